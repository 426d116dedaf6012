// Package kernel implements the runtime's micro-kernel (C10): a
// dependency-ordered plugin registry, an event bus, an immutable config
// record, and the sole point through which plugins obtain the VFS
// handle. There is no teacher analog for a plugin micro-kernel; its
// registry/event-bus shape is original to this package, grounded on the
// same "ordered map + synchronous install + swallow teardown errors"
// texture the teacher uses for its session/plugin-like subsystems
// (synchronous install, fire-and-forget teardown), and its readiness
// generation counter is adapted directly from the teacher's
// pkg/state.Tracker (see readiness.go).
package kernel

import (
	"context"
	"sync"

	"github.com/ersinkoc/webruntime/pkg/logging"
	"github.com/ersinkoc/webruntime/pkg/rterror"
	"github.com/ersinkoc/webruntime/pkg/vfs"
)

// Kernel is the runtime's micro-kernel: it owns the plugin registry, the
// event bus, the immutable config, and the VFS handle plugins register
// at install time.
type Kernel struct {
	Config Config
	Events *EventBus
	Logger *logging.Logger

	mu        sync.Mutex
	plugins   map[string]*pluginRecord
	order     []string
	vfsHandle *vfs.VFS
	readiness *readinessTracker
}

// New constructs a kernel with the given config. The VFS handle starts
// unregistered; a plugin must call RegisterVFS during its Install to
// make the filesystem facade available to the rest of the kernel.
func New(cfg Config, logger *logging.Logger) *Kernel {
	return &Kernel{
		Config:    cfg,
		Events:    NewEventBus(),
		Logger:    logger,
		plugins:   make(map[string]*pluginRecord),
		readiness: newReadinessTracker(),
	}
}

// RegisterVFS installs fs as the kernel's VFS handle. Per spec §4.10,
// this is only meaningful when called by the VFS plugin's Install
// method; calling it at any other time still succeeds but has no
// particular protection against misuse, since the kernel has no way to
// distinguish "the VFS plugin, during its own install" from any other
// caller.
func (k *Kernel) RegisterVFS(fs *vfs.VFS) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.vfsHandle = fs
}

// VFS returns the registered VFS handle, or a PluginError with a fix
// hint if no VFS plugin has registered one yet.
func (k *Kernel) VFS() (*vfs.VFS, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.vfsHandle == nil {
		return nil, rterror.New(rterror.KindPluginError, "no VFS facade registered", "").
			WithHint("Register the VFS plugin with kernel.Use before accessing the filesystem")
	}
	return k.vfsHandle, nil
}

// Generation returns the kernel's current readiness generation: a
// counter bumped on every successful plugin install or unregister.
func (k *Kernel) Generation(ctx context.Context) (uint64, error) {
	return k.readiness.WaitForChange(ctx, 0)
}

// WaitForGeneration blocks until the kernel's generation counter differs
// from previous, or ctx is cancelled.
func (k *Kernel) WaitForGeneration(ctx context.Context, previous uint64) (uint64, error) {
	return k.readiness.WaitForChange(ctx, previous)
}

// Shutdown terminates the kernel's readiness tracker. It does not
// unregister plugins; callers that want full teardown semantics should
// use the runtime facade's Destroy instead.
func (k *Kernel) Shutdown() {
	k.readiness.Terminate()
}
