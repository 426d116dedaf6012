// Package webruntime implements the runtime facade (C11): the object a
// host embeds to get a fully wired kernel, VFS, resolver, and CJS/ESM
// loaders behind four verbs - execute, require/import, use, and destroy.
package webruntime

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ersinkoc/webruntime/pkg/builtin"
	"github.com/ersinkoc/webruntime/pkg/kernel"
	"github.com/ersinkoc/webruntime/pkg/loader"
	"github.com/ersinkoc/webruntime/pkg/logging"
	"github.com/ersinkoc/webruntime/pkg/rterror"
	"github.com/ersinkoc/webruntime/pkg/vfs"
)

// Options configures a new Runtime.
type Options struct {
	Config kernel.Config

	// Plugins are installed after the standard "vfs" plugin, in
	// topologically sorted order.
	Plugins []kernel.Plugin

	// Engine runs CJS-wrapped and ESM module bodies. A nil Engine is
	// valid for a runtime that only ever loads JSON modules.
	Engine loader.ScriptEngine

	// Publisher exposes ESM source text as an importable URL. A nil
	// Publisher forces every ESM import down the CJS fallback path.
	Publisher loader.URLPublisher

	// Transformer strips types / converts JSX / etc. Defaults to
	// loader.IdentityTransformer when nil.
	Transformer loader.Transformer

	// Builtins seeds the builtin registry via a standard
	// "builtin-shims" plugin installed right after "vfs". May be nil.
	Builtins map[string]interface{}

	Logger *logging.Logger
}

// Runtime is the fully wired facade (spec §4.11): a kernel with its
// plugins installed, a VFS, a builtin registry, and CJS/ESM executors
// sharing one module cache.
type Runtime struct {
	Kernel   *kernel.Kernel
	VFS      *vfs.VFS
	Builtins *builtin.Registry
	Console  *ConsoleRecorder

	// InstanceID uniquely identifies this Runtime among others that may
	// share a single host-level URL publisher, namespacing published ESM
	// blob URLs so they never collide (spec §4.9's URL-addressable form).
	InstanceID string

	resolver  *loader.Resolver
	cache     *loader.ModuleCache
	transform *loader.TransformPipeline
	cjs       *loader.CJSExecutor
	esm       *loader.ESMExecutor

	engine loader.ScriptEngine

	execCounter uint64
}

// ExecuteResult is what Execute and RunFile return: the loaded module's
// exports, plus every console call made while loading it.
type ExecuteResult struct {
	Exports interface{}
	Console []loader.ConsoleEntry
}

// New constructs a Runtime: builds the VFS and builtin registry,
// constructs a kernel from opts.Config, topologically sorts the standard
// "vfs" plugin plus (optionally) "builtin-shims" and opts.Plugins, and
// installs them in order. An Install failure aborts construction and
// returns the plugin's error.
func New(opts Options) (*Runtime, error) {
	fs := vfs.New(opts.Logger)
	builtins := builtin.NewRegistry()
	k := kernel.New(opts.Config, opts.Logger)

	plugins := []kernel.Plugin{NewVFSPlugin(fs)}
	if len(opts.Builtins) > 0 {
		plugins = append(plugins, NewBuiltinShimsPlugin(builtins, opts.Builtins))
	}
	plugins = append(plugins, opts.Plugins...)

	sorted, err := kernel.TopologicalSort(plugins)
	if err != nil {
		return nil, err
	}
	for _, p := range sorted {
		if err := k.Use(p); err != nil {
			return nil, err
		}
	}
	k.NotifyReady()

	instanceID := uuid.NewString()

	resolver := loader.NewResolver(fs, builtins)
	cache := loader.NewModuleCache()
	transform := loader.NewTransformPipeline(opts.Transformer)
	cjsExec := loader.NewCJSExecutor(fs, resolver, cache, transform, builtins, opts.Engine)
	esmExec := loader.NewESMExecutor(fs, resolver, cache, transform, builtins, cjsExec, opts.Engine, opts.Publisher, instanceID)

	return &Runtime{
		Kernel:     k,
		InstanceID: instanceID,
		VFS:        fs,
		Builtins:  builtins,
		Console:   NewConsoleRecorder(),
		resolver:  resolver,
		cache:     cache,
		transform: transform,
		cjs:       cjsExec,
		esm:       esmExec,
		engine:    opts.Engine,
	}, nil
}

// Execute writes code to a VFS path (filename, or a generated
// "/__exec_<unixnano>_<n>.js" if empty) and requires it, returning its exports and
// the console activity the load produced (spec §4.11's `execute`). When
// the kernel has no VFS registered, it falls back to direct evaluation of
// code via the configured script engine, with no require/module support.
func (rt *Runtime) Execute(code string, filename string) (ExecuteResult, error) {
	fs, err := rt.Kernel.VFS()
	if err != nil {
		return rt.executeDirect(code, filename)
	}

	if filename == "" {
		rt.execCounter++
		filename = fmt.Sprintf("/__exec_%d_%d.js", time.Now().UnixNano(), rt.execCounter)
	}

	if err := fs.WriteFile(filename, []byte(code)); err != nil {
		return ExecuteResult{}, err
	}

	from := rt.Kernel.Config.Cwd + "/"
	exports, err := rt.cjs.Require(filename, from)
	if err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{Exports: exports, Console: rt.Console.Drain()}, nil
}

// executeDirect evaluates code without going through the VFS or module
// cache at all, for a runtime with no VFS plugin installed.
func (rt *Runtime) executeDirect(code string, filename string) (ExecuteResult, error) {
	if rt.engine == nil {
		return ExecuteResult{}, rterror.New(rterror.KindNotSupported, "no script engine configured to execute code", filename)
	}
	if filename == "" {
		filename = "/__exec_direct.js"
	}
	globals := loader.ScriptGlobals{
		Source:   code,
		Filename: filename,
		Dirname:  "/",
		Module:   &loader.ModuleRecord{ID: filename, Exports: map[string]interface{}{}},
		Exports:  map[string]interface{}{},
		Require: func(specifier string) (interface{}, error) {
			return nil, rterror.New(rterror.KindNotSupported, "require is unavailable without a registered VFS", specifier)
		},
	}
	result, err := rt.engine.ExecuteCJS(globals)
	if err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{Exports: result.Exports, Console: rt.Console.Drain()}, nil
}

// RunFile reads path from the VFS and delegates to Execute.
func (rt *Runtime) RunFile(path string) (ExecuteResult, error) {
	fs, err := rt.Kernel.VFS()
	if err != nil {
		return ExecuteResult{}, err
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		return ExecuteResult{}, err
	}
	return rt.Execute(string(data), path)
}

// Require is a direct entry point into the CJS loader (spec §4.11's
// `require`), resolving specifier as if required from the configured cwd.
func (rt *Runtime) Require(specifier string) (interface{}, error) {
	return rt.cjs.Require(specifier, rt.Kernel.Config.Cwd+"/")
}

// Import is a direct entry point into the ESM loader (spec §4.11's
// `import`), resolving specifier as if dynamically imported from the
// configured cwd.
func (rt *Runtime) Import(specifier string) (interface{}, error) {
	return rt.esm.Import(specifier, rt.Kernel.Config.Cwd+"/")
}

// Use installs an additional plugin after construction via Kernel.Use. It
// performs no separate builtin-registry step; the resolver reads
// rt.Builtins directly, so entries added to it are visible at once.
func (rt *Runtime) Use(plugin kernel.Plugin) error {
	return rt.Kernel.Use(plugin)
}

// ClearCache invalidates the module, resolution, and transform caches.
func (rt *Runtime) ClearCache() {
	rt.cjs.ClearCache()
	rt.esm.ClearCache()
}

// Destroy emits a "destroy" event and unregisters every installed plugin
// in reverse registration order, swallowing individual unregister errors
// so teardown reaches every plugin even if one fails (spec §4.11's
// `destroy`).
func (rt *Runtime) Destroy() {
	rt.Kernel.Events.Emit("destroy")
	names := rt.Kernel.ListPlugins()
	for i := len(names) - 1; i >= 0; i-- {
		_ = rt.Kernel.Unregister(names[i])
	}
	rt.Kernel.Shutdown()
}
