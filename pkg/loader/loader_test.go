package loader

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ersinkoc/webruntime/pkg/builtin"
	"github.com/ersinkoc/webruntime/pkg/rterror"
	"github.com/ersinkoc/webruntime/pkg/vfs"
)

type fakeEngine struct {
	calls int
}

func (f *fakeEngine) ExecuteCJS(globals ScriptGlobals) (ScriptResult, error) {
	f.calls++
	exports, _ := globals.Exports.(map[string]interface{})
	exports["fromEngine"] = true
	return ScriptResult{Exports: exports}, nil
}

func (f *fakeEngine) ExecuteESM(url string, filename string) (ScriptResult, error) {
	return ScriptResult{Exports: map[string]interface{}{"url": url}}, nil
}

func newTestLoader(t *testing.T) (*vfs.VFS, *CJSExecutor) {
	t.Helper()
	fs := vfs.New(nil)
	builtins := builtin.NewRegistry()
	resolver := NewResolver(fs, builtins)
	cache := NewModuleCache()
	transform := NewTransformPipeline(nil)
	cjs := NewCJSExecutor(fs, resolver, cache, transform, builtins, &fakeEngine{})
	return fs, cjs
}

// TestResolveExtensionFallback tests that resolution probes extensions
// in the documented order.
func TestResolveExtensionFallback(t *testing.T) {
	fs, cjs := newTestLoader(t)
	if err := fs.Mkdir("/app", true); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if err := fs.WriteFile("/app/utils.ts", []byte("module.exports = {}")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	resolved, err := cjs.resolver.Resolve("./utils", "/app/index.js")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Path != "/app/utils.ts" {
		t.Errorf("Resolve path = %q, expected /app/utils.ts", resolved.Path)
	}
}

// TestResolvePathIsCanonical tests that a relative specifier resolves to
// a canonical path with no redundant "." segments or doubled separators,
// so that requiring the same module by different spellings (relative vs
// absolute) converges on one module cache entry (spec §3, invariant 3).
func TestResolvePathIsCanonical(t *testing.T) {
	fs, cjs := newTestLoader(t)
	if err := fs.WriteFile("/lib.js", []byte("module.exports = {}")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	viaRelative, err := cjs.resolver.Resolve("./lib", "/")
	if err != nil {
		t.Fatalf("Resolve via relative specifier failed: %v", err)
	}
	if viaRelative.Path != "/lib.js" {
		t.Fatalf("relative resolve path = %q, expected canonical /lib.js", viaRelative.Path)
	}

	viaAbsolute, err := cjs.resolver.Resolve("/lib.js", "/app/index.js")
	if err != nil {
		t.Fatalf("Resolve via absolute specifier failed: %v", err)
	}
	if viaAbsolute.Path != viaRelative.Path {
		t.Errorf("expected both specifiers to resolve to the same canonical path, got %q and %q", viaRelative.Path, viaAbsolute.Path)
	}
}

// TestResolveDirectoryMalformedPackageJSONFallsThrough tests spec §7: a
// directory whose package.json fails to parse is treated as if it had
// none, falling through to index-file resolution rather than failing
// the whole specifier.
func TestResolveDirectoryMalformedPackageJSONFallsThrough(t *testing.T) {
	fs, cjs := newTestLoader(t)
	if err := fs.Mkdir("/app/lib", true); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if err := fs.WriteFile("/app/lib/package.json", []byte("{not valid json")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fs.WriteFile("/app/lib/index.js", []byte("module.exports = {}")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	resolved, err := cjs.resolver.Resolve("./lib", "/app/main.js")
	if err != nil {
		t.Fatalf("Resolve failed despite malformed package.json: %v", err)
	}
	if resolved.Path != "/app/lib/index.js" {
		t.Errorf("Resolve path = %q, expected /app/lib/index.js", resolved.Path)
	}
}

// TestCircularRequire tests the engine hook wiring: requiring /a.js runs
// its body through the ScriptEngine and returns the exports the engine
// reported. fakeEngine never calls require, so the circular path itself
// is exercised by TestCircularRequireSeesPartialExports below.
func TestCircularRequire(t *testing.T) {
	fs, cjs := newTestLoader(t)
	if err := fs.WriteFile("/a.js", []byte("a")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fs.WriteFile("/b.js", []byte("b")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	exportsA, err := cjs.Require("/a.js", "/")
	if err != nil {
		t.Fatalf("Require failed: %v", err)
	}
	mapA, ok := exportsA.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map exports, got %T", exportsA)
	}
	if mapA["fromEngine"] != true {
		t.Errorf("expected fromEngine marker on a.js exports")
	}
}

// circularEngine simulates the JS bodies of seed scenario S3's a.js/b.js,
// each setting its own "value" and then requiring the other module to
// read its (possibly still-in-progress) exports.
type circularEngine struct{}

func (circularEngine) ExecuteCJS(globals ScriptGlobals) (ScriptResult, error) {
	exports, _ := globals.Exports.(map[string]interface{})
	var other, otherFile string
	switch globals.Filename {
	case "/a.js":
		exports["value"] = "a"
		otherFile = "./b.js"
		other = "bValue"
	case "/b.js":
		exports["value"] = "b"
		otherFile = "./a.js"
		other = "aValue"
	}
	otherExports, err := globals.Require(otherFile)
	if err != nil {
		return ScriptResult{}, err
	}
	otherMap := otherExports.(map[string]interface{})
	exports[other] = otherMap["value"]
	return ScriptResult{Exports: exports}, nil
}

func (circularEngine) ExecuteESM(url, filename string) (ScriptResult, error) {
	return ScriptResult{}, nil
}

// TestCircularRequireSeesPartialExports tests spec invariant 4 and seed
// scenario S3 directly: requiring /a.js, whose body requires /b.js,
// whose body requires /a.js back, terminates on the cache-before-execute
// placeholder rather than recursing, and each module observes the
// other's exports object as it stood at the moment of re-entry.
func TestCircularRequireSeesPartialExports(t *testing.T) {
	fs := vfs.New(nil)
	builtins := builtin.NewRegistry()
	resolver := NewResolver(fs, builtins)
	cache := NewModuleCache()
	transform := NewTransformPipeline(nil)
	cjs := NewCJSExecutor(fs, resolver, cache, transform, builtins, circularEngine{})

	require.NoError(t, fs.WriteFile("/a.js", []byte("a")))
	require.NoError(t, fs.WriteFile("/b.js", []byte("b")))

	exportsA, err := cjs.Require("/a.js", "/")
	require.NoError(t, err)
	mapA := exportsA.(map[string]interface{})
	require.Equal(t, "a", mapA["value"])
	require.Equal(t, "b", mapA["bValue"])
}

// TestModuleNotFound tests that an unresolvable specifier reports
// ModuleNotFound with a fix hint.
func TestModuleNotFound(t *testing.T) {
	_, cjs := newTestLoader(t)
	_, err := cjs.Require("nonexistent-package", "/")
	if err == nil {
		t.Fatal("expected error")
	}
	rte, ok := err.(*rterror.Error)
	if !ok || rte.Kind != rterror.KindModuleNotFound {
		t.Fatalf("expected ModuleNotFound, got %v", err)
	}
	if rte.Hint == "" {
		t.Errorf("expected a fix hint on ModuleNotFound, got none")
	}
}

// TestExportsConditional tests package.json exports conditional
// resolution against a host condition list.
func TestExportsConditional(t *testing.T) {
	raw := []byte(`{"import": "./i.mjs", "require": "./r.cjs"}`)
	target, err := resolveConditionalValue(mustUnmarshal(raw), []string{"require", "default"})
	if err != nil {
		t.Fatalf("resolveConditionalValue failed: %v", err)
	}
	if target != "./r.cjs" {
		t.Errorf("target = %q, expected ./r.cjs", target)
	}
}

// TestExportsSubpathPattern tests that a "*" subpath pattern in an
// exports map binds against the requested subpath and substitutes the
// captured segment into the target, using require for the structural
// assertion this case needs.
func TestExportsSubpathPattern(t *testing.T) {
	raw := json.RawMessage(`{"./features/*": "./lib/features/*.js"}`)

	target, err := resolveExportsSubpath(raw, "./features/widgets", []string{"default"})
	require.NoError(t, err)
	require.Equal(t, "./lib/features/widgets.js", target)
}

// TestExportsSubpathPatternWithConditions tests that wildcard
// substitution reaches a conditional-map target: the capture is
// substituted into every condition's string before the condition map is
// resolved, so whichever condition wins carries it.
func TestExportsSubpathPatternWithConditions(t *testing.T) {
	raw := json.RawMessage(`{"./features/*": {"import": "./lib/esm/*.mjs", "require": "./lib/cjs/*.js"}}`)

	target, err := resolveExportsSubpath(raw, "./features/widgets", []string{"require", "default"})
	require.NoError(t, err)
	require.Equal(t, "./lib/cjs/widgets.js", target)
}

// TestExportsArrayFallback tests spec §4.5's array fallback shape: entries
// are tried in order and the first one that resolves wins, skipping an
// earlier entry whose condition map has no matching condition.
func TestExportsArrayFallback(t *testing.T) {
	raw := json.RawMessage(`[{"browser": "./b.js"}, {"require": "./r.cjs"}]`)

	target, err := resolveExportsSubpath(raw, "", []string{"require", "default"})
	require.NoError(t, err)
	require.Equal(t, "./r.cjs", target)
}

// TestExportsArrayFallbackNested tests an array nested inside a condition
// map target, confirming resolveConditionalValue recurses into array
// fallbacks found after a condition has already been selected.
func TestExportsArrayFallbackNested(t *testing.T) {
	raw := json.RawMessage(`{"require": ["./missing-condition.js", "./r.cjs"]}`)

	target, err := resolveExportsSubpath(raw, "", []string{"require", "default"})
	require.NoError(t, err)
	require.Equal(t, "./missing-condition.js", target)
}

func mustUnmarshal(raw []byte) interface{} {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		panic(err)
	}
	return v
}
