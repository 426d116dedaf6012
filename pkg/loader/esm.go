package loader

import (
	"regexp"
	"sync"

	"github.com/ersinkoc/webruntime/pkg/base62"
	"github.com/ersinkoc/webruntime/pkg/builtin"
	"github.com/ersinkoc/webruntime/pkg/rterror"
	"github.com/ersinkoc/webruntime/pkg/vfs"
)

// specifierPattern matches the four shapes spec §4.9 step 2 calls out:
// static "import ... from '...'", bare "import '...'", "export ... from
// '...'", and dynamic "import('...')". Exactly one of the four capture
// groups is non-empty per match.
var specifierPattern = regexp.MustCompile(
	`import\s*\(\s*['"]([^'"]+)['"]\s*\)` +
		`|\bimport\b[^'";]*?\bfrom\b\s*['"]([^'"]+)['"]` +
		`|\bimport\s+['"]([^'"]+)['"]` +
		`|\bexport\b[^'";]*?\bfrom\b\s*['"]([^'"]+)['"]`,
)

// ESMExecutor implements the ES module loader (C9): specifier scan and
// rewrite, URL-addressable blob publishing, host dynamic-import
// delegation, with a CJS fallback when the host can't do URL-addressable
// modules.
type ESMExecutor struct {
	fs         *vfs.VFS
	resolver   *Resolver
	cache      *ModuleCache
	transform  *TransformPipeline
	builtins   *builtin.Registry
	cjs        *CJSExecutor
	engine     ScriptEngine
	publisher  URLPublisher
	instanceID string

	mu        sync.Mutex
	tokens    uint64
	published map[string]string
}

// NewESMExecutor constructs an ESMExecutor sharing cache/transform/
// builtins/resolver with cjs so that the two executors interoperate on a
// single module cache, as the fallback path requires. instanceID
// namespaces published builtin shim keys and synthetic fallback tokens
// so that two Runtimes sharing one host-level URL publisher (e.g. a
// single Service Worker blob registry backing several tabs) never
// collide on the same "builtin:fs"-shaped key.
func NewESMExecutor(fs *vfs.VFS, resolver *Resolver, cache *ModuleCache, transform *TransformPipeline, builtins *builtin.Registry, cjs *CJSExecutor, engine ScriptEngine, publisher URLPublisher, instanceID string) *ESMExecutor {
	return &ESMExecutor{
		fs:         fs,
		resolver:   resolver,
		cache:      cache,
		transform:  transform,
		builtins:   builtins,
		cjs:        cjs,
		engine:     engine,
		publisher:  publisher,
		instanceID: instanceID,
		published:  make(map[string]string),
	}
}

// Import resolves and loads specifier as a dynamic import performed from
// fromPath.
func (e *ESMExecutor) Import(specifier, fromPath string) (interface{}, error) {
	resolved, err := e.resolver.Resolve(specifier, fromPath)
	if err != nil {
		return nil, err
	}
	if resolved.Builtin {
		return e.importBuiltin(specifier)
	}
	return e.loadModule(resolved.Path, resolved.Format)
}

func (e *ESMExecutor) importBuiltin(name string) (interface{}, error) {
	if entry, ok := e.cache.Get(builtinCacheID(name)); ok {
		return entry.Exports, nil
	}
	return e.cjs.loadBuiltin(name)
}

// canPublish reports whether the host has supplied both a URL publisher
// and a script engine capable of consuming it; absent either, ESM loads
// fall back to the CJS executor entirely (spec §4.9's Fallback clause).
func (e *ESMExecutor) canPublish() bool {
	return e.publisher != nil && e.engine != nil
}

func (e *ESMExecutor) loadModule(path string, format Format) (interface{}, error) {
	if entry, ok := e.cache.Get(path); ok {
		return entry.Exports, nil
	}

	if !e.canPublish() || format == FormatJSON {
		return e.cjs.LoadResolved(path, format)
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

	rewritten, err := e.rewriteSpecifiers(src, path)
	if err != nil {
		e.cache.Delete(path)
		return nil, err
	}

	url, err := e.publisher.Publish(rewritten, path)
	if err != nil {
		e.cache.Delete(path)
		return nil, rterror.Wrap(rterror.KindExecution, err, path)
	}
	e.mu.Lock()
	e.published[path] = url
	e.mu.Unlock()

	result, err := e.engine.ExecuteESM(url, path)
	if err != nil {
		return nil, rterror.Wrap(rterror.KindExecution, err, path)
	}

	entry.Exports = result.Exports
	entry.Loaded = true
	return entry.Exports, nil
}

// rewriteSpecifiers resolves every import/export specifier found in src
// (scanned from fromPath) and rewrites it in place to its published
// URL-addressable form.
func (e *ESMExecutor) rewriteSpecifiers(src []byte, fromPath string) ([]byte, error) {
	text := string(src)
	matches := specifierPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return src, nil
	}

	var out []byte
	cursor := 0
	for _, match := range matches {
		groupStart, groupEnd, specifier := extractSpecifierGroup(text, match)
		if groupStart == -1 {
			continue
		}

		url, err := e.urlForSpecifier(specifier, fromPath)
		if err != nil {
			return nil, err
		}

		out = append(out, text[cursor:groupStart]...)
		out = append(out, []byte(url)...)
		cursor = groupEnd
	}
	out = append(out, text[cursor:]...)
	return out, nil
}

// extractSpecifierGroup finds whichever of specifierPattern's four
// capture groups matched and returns its byte range and text.
func extractSpecifierGroup(text string, match []int) (start, end int, specifier string) {
	for g := 1; g <= 4; g++ {
		s, e := match[2*g], match[2*g+1]
		if s != -1 {
			return s, e, text[s:e]
		}
	}
	return -1, -1, ""
}

// urlForSpecifier resolves specifier from fromPath and returns the
// URL-addressable form it should be rewritten to: a fresh token for each
// distinct resolved module, publishing the target module as a side
// effect if it hasn't been published yet.
func (e *ESMExecutor) urlForSpecifier(specifier, fromPath string) (string, error) {
	resolved, err := e.resolver.Resolve(specifier, fromPath)
	if err != nil {
		return "", err
	}

	if resolved.Builtin {
		return e.publishBuiltinShim(specifier)
	}

	e.mu.Lock()
	if url, ok := e.published[resolved.Path]; ok {
		e.mu.Unlock()
		return url, nil
	}
	e.mu.Unlock()

	// Trigger the target module's own load (and therefore its own
	// publish) so that by the time the host's dynamic import follows this
	// rewritten specifier, the URL already resolves to real content.
	if _, err := e.loadModule(resolved.Path, resolved.Format); err != nil {
		return "", err
	}

	e.mu.Lock()
	url := e.published[resolved.Path]
	e.mu.Unlock()
	if url == "" {
		// The target fell back to the CJS executor (canPublish was false
		// for it too, or it has no publishable text, e.g. JSON); address
		// it with a synthetic token keyed by path so the rewritten
		// specifier is at least stable and debuggable.
		url = e.nextToken()
		e.mu.Lock()
		e.published[resolved.Path] = url
		e.mu.Unlock()
	}
	return url, nil
}

// publishBuiltinShim publishes a tiny re-exporting shim for a builtin
// module so that `import {x} from 'builtin'` can destructure it (spec
// §4.9: "Builtins are published as tiny shim texts that re-export the
// keys of the builtin object").
func (e *ESMExecutor) publishBuiltinShim(name string) (string, error) {
	id := builtinCacheID(name)
	e.mu.Lock()
	if url, ok := e.published[id]; ok {
		e.mu.Unlock()
		return url, nil
	}
	e.mu.Unlock()

	if _, err := e.cjs.loadBuiltin(name); err != nil {
		return "", err
	}
	if !e.canPublish() {
		token := e.nextToken()
		e.mu.Lock()
		e.published[id] = token
		e.mu.Unlock()
		return token, nil
	}

	shim := builtinShimSource(name)
	url, err := e.publisher.Publish([]byte(shim), "builtin:"+e.instanceID+":"+name)
	if err != nil {
		return "", rterror.Wrap(rterror.KindExecution, err, name)
	}
	e.mu.Lock()
	e.published[id] = url
	e.mu.Unlock()
	return url, nil
}

// builtinShimSource is the placeholder shim text published for a
// builtin; the host engine's builtin bridge recognizes this exact form
// and substitutes the real builtin object rather than evaluating it as
// literal script.
func builtinShimSource(name string) string {
	return "/* builtin shim */ export default globalThis.__webruntime_builtin__('" + name + "');"
}

// nextToken mints a short base62-encoded token for URLs that don't have
// a real published blob backing them.
func (e *ESMExecutor) nextToken() string {
	e.mu.Lock()
	e.tokens++
	token := e.tokens
	e.mu.Unlock()
	return "vfs-module:" + e.instanceID + ":" + base62.EncodeUint64(token)
}

// ClearCache revokes every published URL and empties the module,
// transform, and resolver caches.
func (e *ESMExecutor) ClearCache() {
	e.mu.Lock()
	for _, url := range e.published {
		if e.publisher != nil {
			_ = e.publisher.Revoke(url)
		}
	}
	e.published = make(map[string]string)
	e.mu.Unlock()

	e.cache.Clear()
	e.transform.ClearCache()
	e.resolver.ClearCache()
}
