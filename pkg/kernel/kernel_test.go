package kernel

import (
	"errors"
	"testing"

	"github.com/ersinkoc/webruntime/pkg/rterror"
)

type stubPlugin struct {
	name    string
	deps    []string
	install func(k *Kernel) error
	destroy func(k *Kernel) error
	onReady func(k *Kernel)
	onError func(k *Kernel, err error)
}

func (p *stubPlugin) Name() string           { return p.name }
func (p *stubPlugin) Dependencies() []string { return p.deps }
func (p *stubPlugin) Install(k *Kernel) error {
	if p.install != nil {
		return p.install(k)
	}
	return nil
}
func (p *stubPlugin) Destroy(k *Kernel) error {
	if p.destroy != nil {
		return p.destroy(k)
	}
	return nil
}
func (p *stubPlugin) OnReady(k *Kernel) {
	if p.onReady != nil {
		p.onReady(k)
	}
}
func (p *stubPlugin) OnError(k *Kernel, err error) {
	if p.onError != nil {
		p.onError(k, err)
	}
}

// TestUseDuplicateName tests that registering the same plugin name twice
// fails PluginDuplicate.
func TestUseDuplicateName(t *testing.T) {
	k := New(DefaultConfig(), nil)
	if err := k.Use(&stubPlugin{name: "a"}); err != nil {
		t.Fatalf("first Use failed: %v", err)
	}
	err := k.Use(&stubPlugin{name: "a"})
	if err == nil {
		t.Fatal("expected error for duplicate plugin name")
	}
	rte, ok := err.(*rterror.Error)
	if !ok || rte.Kind != rterror.KindPluginDuplicate {
		t.Fatalf("expected PluginDuplicate, got %v", err)
	}
}

// TestUseMissingDependency tests that a missing declared dependency
// fails PluginDependency.
func TestUseMissingDependency(t *testing.T) {
	k := New(DefaultConfig(), nil)
	err := k.Use(&stubPlugin{name: "b", deps: []string{"a"}})
	if err == nil {
		t.Fatal("expected error for missing dependency")
	}
	rte, ok := err.(*rterror.Error)
	if !ok || rte.Kind != rterror.KindPluginDependency {
		t.Fatalf("expected PluginDependency, got %v", err)
	}
}

// TestUseInstallFailureRollsBack tests that a failing Install removes
// the tentative registration.
func TestUseInstallFailureRollsBack(t *testing.T) {
	k := New(DefaultConfig(), nil)
	installErr := errors.New("boom")
	err := k.Use(&stubPlugin{name: "a", install: func(k *Kernel) error { return installErr }})
	if err != installErr {
		t.Fatalf("expected install error to propagate, got %v", err)
	}
	if len(k.ListPlugins()) != 0 {
		t.Errorf("expected rolled-back registration, got %v", k.ListPlugins())
	}
}

// TestTopologicalSort tests that dependencies are ordered before their
// dependents.
func TestTopologicalSort(t *testing.T) {
	a := &stubPlugin{name: "a"}
	b := &stubPlugin{name: "b", deps: []string{"a"}}
	c := &stubPlugin{name: "c", deps: []string{"b"}}

	order, err := TopologicalSort([]Plugin{c, a, b})
	if err != nil {
		t.Fatalf("TopologicalSort failed: %v", err)
	}
	if len(order) != 3 || order[0].Name() != "a" || order[1].Name() != "b" || order[2].Name() != "c" {
		names := make([]string, len(order))
		for i, p := range order {
			names[i] = p.Name()
		}
		t.Errorf("order = %v, expected [a b c]", names)
	}
}

// TestTopologicalSortCycle tests that a dependency cycle is rejected.
func TestTopologicalSortCycle(t *testing.T) {
	a := &stubPlugin{name: "a", deps: []string{"b"}}
	b := &stubPlugin{name: "b", deps: []string{"a"}}

	_, err := TopologicalSort([]Plugin{a, b})
	if err == nil {
		t.Fatal("expected cycle error")
	}
}

// TestEventBusErrorReemission tests that a panicking handler's error is
// re-emitted on the "error" event.
func TestEventBusErrorReemission(t *testing.T) {
	bus := NewEventBus()
	var captured error
	bus.On("error", func(args ...interface{}) {
		if len(args) > 0 {
			if err, ok := args[0].(error); ok {
				captured = err
			}
		}
	})
	bus.On("tick", func(args ...interface{}) {
		panic("listener exploded")
	})
	bus.Emit("tick")

	if captured == nil {
		t.Fatal("expected error handler to be invoked")
	}
}

// TestNotifyReadyInvokesOnReadyInRegistrationOrder tests the optional
// onReady lifecycle callback (spec §3/§6): NotifyReady calls OnReady on
// every registered plugin that implements it, in registration order.
func TestNotifyReadyInvokesOnReadyInRegistrationOrder(t *testing.T) {
	k := New(DefaultConfig(), nil)
	var readyOrder []string
	a := &stubPlugin{name: "a", onReady: func(k *Kernel) { readyOrder = append(readyOrder, "a") }}
	b := &stubPlugin{name: "b", onReady: func(k *Kernel) { readyOrder = append(readyOrder, "b") }}
	if err := k.Use(a); err != nil {
		t.Fatalf("Use(a) failed: %v", err)
	}
	if err := k.Use(b); err != nil {
		t.Fatalf("Use(b) failed: %v", err)
	}

	k.NotifyReady()

	if len(readyOrder) != 2 || readyOrder[0] != "a" || readyOrder[1] != "b" {
		t.Errorf("readyOrder = %v, expected [a b]", readyOrder)
	}
}

// TestOnErrorHookCalledOnInstallFailure tests the optional onError
// lifecycle callback (spec §3/§6): a plugin whose own Install fails
// receives the error via its own OnError hook, in addition to the
// kernel's generic "error" event.
func TestOnErrorHookCalledOnInstallFailure(t *testing.T) {
	k := New(DefaultConfig(), nil)
	installErr := errors.New("boom")
	var gotFromHook error
	p := &stubPlugin{
		name:    "a",
		install: func(k *Kernel) error { return installErr },
		onError: func(k *Kernel, err error) { gotFromHook = err },
	}

	if err := k.Use(p); err != installErr {
		t.Fatalf("expected install error to propagate, got %v", err)
	}
	if gotFromHook != installErr {
		t.Errorf("expected OnError hook to receive install error, got %v", gotFromHook)
	}
}

// TestVFSUnavailable tests that accessing the VFS before any plugin
// registers one fails PluginError.
func TestVFSUnavailable(t *testing.T) {
	k := New(DefaultConfig(), nil)
	_, err := k.VFS()
	if err == nil {
		t.Fatal("expected error")
	}
	rte, ok := err.(*rterror.Error)
	if !ok || rte.Kind != rterror.KindPluginError {
		t.Fatalf("expected PluginError, got %v", err)
	}
}
