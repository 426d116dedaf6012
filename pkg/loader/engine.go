package loader

// RequireFunc is the closure bound to a particular requesting module's
// path and passed into executed script code as its `require`.
type RequireFunc func(specifier string) (interface{}, error)

// ModuleRecord is the `module` object injected into executed script
// code; Exports starts as the cache entry's placeholder object and may
// be reassigned by the script body (module.exports = ...), in which case
// the executor reads back ScriptResult.Exports rather than the original
// placeholder.
type ModuleRecord struct {
	ID      string
	Exports interface{}
}

// ConsoleEntry records a single call the executed script made to one of
// the injected `console` methods.
type ConsoleEntry struct {
	Level string
	Args  []interface{}
}

// ScriptGlobals bundles everything CJS-wrapped (or ESM, post-rewrite)
// source needs injected before it runs.
type ScriptGlobals struct {
	Source   string
	Filename string
	Dirname  string
	Require  RequireFunc
	Module   *ModuleRecord
	Exports  interface{}
}

// ScriptResult is what a ScriptEngine reports back after running a
// module body.
type ScriptResult struct {
	Exports        interface{}
	ConsoleEntries []ConsoleEntry
}

// ScriptEngine is the pluggable collaborator that actually evaluates
// script source (spec's "sandbox executors", specified only by
// interface: the core never implements a script VM itself, since the
// host - a browser's own JS engine, or a Go-embedded one like goja -
// is what runs the wrapped CommonJS function or the rewritten ESM
// module text).
type ScriptEngine interface {
	// ExecuteCJS runs CommonJS-wrapped source with the given globals,
	// returning the final module.exports value (which may differ from
	// globals.Exports if the body reassigned it).
	ExecuteCJS(globals ScriptGlobals) (ScriptResult, error)

	// ExecuteESM evaluates a published, specifier-rewritten ES module
	// whose importable URL is url, returning its namespace object.
	ExecuteESM(url string, filename string) (ScriptResult, error)
}

// URLPublisher is the pluggable collaborator that exposes source text to
// the host's dynamic `import()` as an addressable URL (spec §4.9). The
// core never implements the actual blob-URL/object-URL mechanism, since
// that's platform-specific (browser Blob URLs, a local file:// shim,
// etc.) - it only decides what text to publish and when to revoke it.
type URLPublisher interface {
	// Publish exposes src as importable script text and returns a URL the
	// host's dynamic import can consume.
	Publish(src []byte, filename string) (url string, err error)

	// Revoke releases a previously published URL.
	Revoke(url string) error
}
