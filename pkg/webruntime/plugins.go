package webruntime

import (
	"github.com/ersinkoc/webruntime/pkg/builtin"
	"github.com/ersinkoc/webruntime/pkg/kernel"
	"github.com/ersinkoc/webruntime/pkg/vfs"
)

// vfsPlugin is the standard plugin that registers the runtime's VFS
// facade with the kernel during install, per spec §4.10's description of
// the VFS plugin as the one that "is permitted, at install time, to
// register the VFS facade with the kernel".
type vfsPlugin struct {
	fs *vfs.VFS
}

// NewVFSPlugin wraps fs as a kernel plugin. The webruntime facade installs
// this first, ahead of any host-supplied plugin, so that dependents can
// always declare "vfs" as a dependency.
func NewVFSPlugin(fs *vfs.VFS) kernel.Plugin {
	return &vfsPlugin{fs: fs}
}

func (p *vfsPlugin) Name() string           { return "vfs" }
func (p *vfsPlugin) Dependencies() []string { return nil }

func (p *vfsPlugin) Install(k *kernel.Kernel) error {
	k.RegisterVFS(p.fs)
	return nil
}

func (p *vfsPlugin) Destroy(*kernel.Kernel) error {
	return nil
}

// builtinShimsPlugin bulk-registers a fixed set of builtin modules into
// the registry at install time, and unregisters the same set at destroy
// time. It exists so host code can express "these Node-shaped builtins
// are available" as an ordinary plugin rather than reaching into the
// registry directly, keeping builtin availability subject to the same
// install/destroy lifecycle as everything else the kernel manages.
type builtinShimsPlugin struct {
	registry *builtin.Registry
	modules  map[string]interface{}
}

// NewBuiltinShimsPlugin constructs a plugin that registers modules into
// registry on install and removes them on destroy.
func NewBuiltinShimsPlugin(registry *builtin.Registry, modules map[string]interface{}) kernel.Plugin {
	return &builtinShimsPlugin{registry: registry, modules: modules}
}

func (p *builtinShimsPlugin) Name() string           { return "builtin-shims" }
func (p *builtinShimsPlugin) Dependencies() []string { return nil }

func (p *builtinShimsPlugin) Install(*kernel.Kernel) error {
	for name, value := range p.modules {
		p.registry.Register(name, value)
	}
	return nil
}

func (p *builtinShimsPlugin) Destroy(*kernel.Kernel) error {
	for name := range p.modules {
		p.registry.Unregister(name)
	}
	return nil
}
