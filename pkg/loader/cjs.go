package loader

import (
	"encoding/json"
	"errors"

	"github.com/ersinkoc/webruntime/pkg/builtin"
	"github.com/ersinkoc/webruntime/pkg/rpath"
	"github.com/ersinkoc/webruntime/pkg/rterror"
	"github.com/ersinkoc/webruntime/pkg/vfs"
)

// builtinCacheID computes the cache id a builtin module is stored under
// (spec §4.8's "also cached under their `__builtin__:<name>` id").
func builtinCacheID(name string) string {
	return "__builtin__:" + name
}

// CJSExecutor implements the CommonJS module loader (C8): resolve,
// cache-before-execute, transform, wrap-and-invoke via a host
// ScriptEngine.
type CJSExecutor struct {
	fs        *vfs.VFS
	resolver  *Resolver
	cache     *ModuleCache
	transform *TransformPipeline
	builtins  *builtin.Registry
	engine    ScriptEngine
}

// NewCJSExecutor constructs a CJSExecutor. engine may be nil only if the
// caller never intends to execute non-JSON modules (e.g. a host that
// only ever loads JSON config files through the loader); requiring an
// executable module with a nil engine returns a NotSupported error
// instead of a nil-pointer dereference deep in ExecuteCJS.
func NewCJSExecutor(fs *vfs.VFS, resolver *Resolver, cache *ModuleCache, transform *TransformPipeline, builtins *builtin.Registry, engine ScriptEngine) *CJSExecutor {
	return &CJSExecutor{
		fs:        fs,
		resolver:  resolver,
		cache:     cache,
		transform: transform,
		builtins:  builtins,
		engine:    engine,
	}
}

// Require resolves and loads specifier as it would be required from the
// module at fromPath, applying cache-before-execute discipline so that a
// circular require chain terminates on the partially populated exports
// object rather than recursing.
func (e *CJSExecutor) Require(specifier, fromPath string) (interface{}, error) {
	resolved, err := e.resolver.Resolve(specifier, fromPath)
	if err != nil {
		return nil, err
	}
	if resolved.Builtin {
		return e.loadBuiltin(specifier)
	}
	return e.loadFile(resolved.Path, resolved.Format)
}

func (e *CJSExecutor) loadBuiltin(name string) (interface{}, error) {
	id := builtinCacheID(name)
	if entry, ok := e.cache.Get(id); ok {
		return entry.Exports, nil
	}
	value, ok := e.builtins.Lookup(name)
	if !ok {
		return nil, rterror.ModuleNotFound(name)
	}
	entry, alreadyCached := e.cache.Reserve(id, value)
	if !alreadyCached {
		entry.Loaded = true
	}
	return entry.Exports, nil
}

func (e *CJSExecutor) loadFile(path string, format Format) (interface{}, error) {
	if entry, ok := e.cache.Get(path); ok {
		return entry.Exports, nil
	}

	entry, alreadyCached := e.cache.Reserve(path, map[string]interface{}{})
	if alreadyCached {
		return entry.Exports, nil
	}

	data, err := e.fs.ReadFile(path)
	if err != nil {
		e.cache.Delete(path)
		return nil, rterror.New(rterror.KindModuleNotFound, "unable to read module source", path)
	}

	if format == FormatJSON {
		var value interface{}
		if err := json.Unmarshal(data, &value); err != nil {
			e.cache.Delete(path)
			return nil, rterror.Wrap(rterror.KindParse, err, path)
		}
		entry.Exports = value
		entry.Loaded = true
		return entry.Exports, nil
	}

	src := data
	if IsTransformable(path, format == FormatESM) {
		out, _, err := e.transform.Transform(src, path)
		if err != nil {
			e.cache.Delete(path)
			return nil, err
		}
		src = out
	} else {
		src = ensureSourceURL(src, path)
	}

	if e.engine == nil {
		e.cache.Delete(path)
		return nil, rterror.New(rterror.KindNotSupported, "no script engine configured to execute module", path)
	}

	dirname := rpath.Dirname(path)
	moduleRecord := &ModuleRecord{ID: path, Exports: entry.Exports}
	globals := ScriptGlobals{
		Source:   string(src),
		Filename: path,
		Dirname:  dirname,
		Module:   moduleRecord,
		Exports:  entry.Exports,
		Require: func(specifier string) (interface{}, error) {
			return e.Require(specifier, path)
		},
	}

	result, err := e.engine.ExecuteCJS(globals)
	if err != nil {
		var runtimeErr *rterror.RuntimeError
		if errors.As(err, &runtimeErr) {
			return nil, err
		}
		return nil, rterror.Wrap(rterror.KindExecution, err, path)
	}

	entry.Exports = result.Exports
	entry.Loaded = true
	return entry.Exports, nil
}

// LoadResolved executes (or returns the cached exports of) the module at
// an already-resolved canonical path. It exists so the ESM executor's
// CJS fallback (spec §4.9's "Fallback" paragraph) can reuse the CJS
// load/execute path without re-running specifier resolution.
func (e *CJSExecutor) LoadResolved(path string, format Format) (interface{}, error) {
	return e.loadFile(path, format)
}

// ClearCache empties the module cache, the transform cache, and the
// resolver's specifier cache - the three independent caches that
// together make up the loader's state (spec §4.6/§4.7: clearing one
// never implicitly clears another, so this explicitly clears all three
// rather than delegating to just one).
func (e *CJSExecutor) ClearCache() {
	e.cache.Clear()
	e.transform.ClearCache()
	e.resolver.ClearCache()
}
