package kernel

import (
	"github.com/ersinkoc/webruntime/pkg/rterror"
)

// Plugin is a unit of kernel-installable behavior: the VFS plugin, the
// builtin shims plugin, and any host-supplied extensions all implement
// this interface.
type Plugin interface {
	// Name uniquely identifies the plugin within a kernel.
	Name() string
	// Dependencies lists the names of plugins that must already be
	// installed before this one.
	Dependencies() []string
	// Install is invoked synchronously when the plugin is registered.
	Install(k *Kernel) error
	// Destroy is invoked when the plugin is unregistered. Per spec §4.10,
	// its result is fire-and-forget: the kernel runs it asynchronously and
	// reports any error via the "error" event rather than to the caller
	// of Unregister.
	Destroy(k *Kernel) error
}

// PluginReadyHook is implemented by a plugin that wants to be notified
// once the kernel's initial plugin set has finished installing (spec
// §3/§6's optional `onReady` lifecycle callback). Runtime.New calls
// NotifyReady once after its initial install loop; a plugin that doesn't
// need the hook simply omits OnReady.
type PluginReadyHook interface {
	OnReady(k *Kernel)
}

// PluginErrorHook is implemented by a plugin that wants to observe its
// own Install/Destroy failures directly, in addition to the kernel's
// generic "error" event (spec §3/§6's optional `onError` lifecycle
// callback).
type PluginErrorHook interface {
	OnError(k *Kernel, err error)
}

// notifyError invokes plugin's own OnError hook, if it implements one.
// A panic from the hook itself is swallowed, matching the kernel's
// posture toward other listener-shaped faults (spec §4.10's event-bus
// "error" handler, §4.3's watcher listeners): a misbehaving observer
// must not take down the kernel.
func notifyError(plugin Plugin, k *Kernel, err error) {
	hook, ok := plugin.(PluginErrorHook)
	if !ok {
		return
	}
	defer func() { _ = recover() }()
	hook.OnError(k, err)
}

// NotifyReady invokes OnReady, in registration order, on every currently
// registered plugin that implements PluginReadyHook. A panicking hook
// has its panic reported via the kernel's "error" event rather than
// propagated, consistent with notifyError's swallow-on-panic posture.
func (k *Kernel) NotifyReady() {
	k.mu.Lock()
	plugins := make([]Plugin, 0, len(k.order))
	for _, name := range k.order {
		if record, ok := k.plugins[name]; ok {
			plugins = append(plugins, record.plugin)
		}
	}
	k.mu.Unlock()

	for _, plugin := range plugins {
		hook, ok := plugin.(PluginReadyHook)
		if !ok {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					k.Events.Emit("error", toError(r), "plugin:"+plugin.Name())
				}
			}()
			hook.OnReady(k)
		}()
	}
}

type pluginRecord struct {
	plugin Plugin
}

// Use registers and installs plugin (spec §4.10's `use`): a duplicate
// name fails PluginDuplicate, a missing declared dependency fails
// PluginDependency, and an Install failure (or panic) removes the
// tentative registration, emits an "error" event, and is itself
// returned to the caller ("rethrown").
func (k *Kernel) Use(plugin Plugin) (err error) {
	name := plugin.Name()

	k.mu.Lock()
	if _, exists := k.plugins[name]; exists {
		k.mu.Unlock()
		return rterror.New(rterror.KindPluginDuplicate, "plugin already registered", name)
	}
	for _, dep := range plugin.Dependencies() {
		if _, ok := k.plugins[dep]; !ok {
			k.mu.Unlock()
			return rterror.New(rterror.KindPluginDependency, "missing required dependency", dep)
		}
	}
	k.plugins[name] = &pluginRecord{plugin: plugin}
	k.order = append(k.order, name)
	k.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			k.removePlugin(name)
			panicErr := toError(r)
			k.Events.Emit("error", panicErr, "plugin:"+name)
			notifyError(plugin, k, panicErr)
			err = rterror.Wrap(rterror.KindPluginError, panicErr, name)
		}
	}()

	if installErr := plugin.Install(k); installErr != nil {
		k.removePlugin(name)
		k.Events.Emit("error", installErr, "plugin:"+name)
		notifyError(plugin, k, installErr)
		return installErr
	}

	k.readiness.bump()
	return nil
}

// removePlugin deletes name from the registry and registration order
// without invoking Destroy; used to roll back a failed Use.
func (k *Kernel) removePlugin(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.plugins, name)
	for i, n := range k.order {
		if n == name {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
}

// Unregister removes a previously registered plugin (spec §4.10's
// `unregister`): an unknown name fails PluginError; a plugin that
// another still-registered plugin depends on fails PluginDependency.
// On success, Destroy runs asynchronously and fire-and-forget, with any
// error reported via the "error" event.
func (k *Kernel) Unregister(name string) error {
	k.mu.Lock()
	record, ok := k.plugins[name]
	if !ok {
		k.mu.Unlock()
		return rterror.New(rterror.KindPluginError, "no such plugin", name)
	}
	for otherName, other := range k.plugins {
		if otherName == name {
			continue
		}
		for _, dep := range other.plugin.Dependencies() {
			if dep == name {
				k.mu.Unlock()
				return rterror.New(rterror.KindPluginDependency, "plugin is a dependency of another registered plugin", otherName)
			}
		}
	}
	delete(k.plugins, name)
	for i, n := range k.order {
		if n == name {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
	k.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr := toError(r)
				k.Events.Emit("error", panicErr, "plugin:"+name)
				notifyError(record.plugin, k, panicErr)
			}
		}()
		if err := record.plugin.Destroy(k); err != nil {
			k.Events.Emit("error", err, "plugin:"+name)
			notifyError(record.plugin, k, err)
		}
	}()

	k.readiness.bump()
	return nil
}

// ListPlugins returns registered plugin names in registration order.
func (k *Kernel) ListPlugins() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.order...)
}

// sortState tracks a plugin's visitation status during TopologicalSort's
// depth-first traversal.
type sortState int

const (
	sortUnvisited sortState = iota
	sortVisiting
	sortVisited
)

// TopologicalSort orders plugins so that every plugin appears after all
// of its declared dependencies that are also present in the input set
// (spec §4.10's `topologicalSort`): a dependency cycle fails
// PluginDependency; a dependency on a name absent from the input set is
// assumed to be satisfied externally (e.g. already installed) and does
// not affect ordering.
func TopologicalSort(plugins []Plugin) ([]Plugin, error) {
	byName := make(map[string]Plugin, len(plugins))
	for _, p := range plugins {
		byName[p.Name()] = p
	}

	state := make(map[string]sortState, len(plugins))
	var order []Plugin

	var visit func(p Plugin) error
	visit = func(p Plugin) error {
		name := p.Name()
		switch state[name] {
		case sortVisited:
			return nil
		case sortVisiting:
			return rterror.New(rterror.KindPluginDependency, "dependency cycle detected", name)
		}

		state[name] = sortVisiting
		for _, dep := range p.Dependencies() {
			depPlugin, present := byName[dep]
			if !present {
				continue
			}
			if err := visit(depPlugin); err != nil {
				return err
			}
		}
		state[name] = sortVisited
		order = append(order, p)
		return nil
	}

	for _, p := range plugins {
		if err := visit(p); err != nil {
			return nil, err
		}
	}

	return order, nil
}
