package webruntime

import (
	"testing"

	"github.com/ersinkoc/webruntime/pkg/kernel"
	"github.com/ersinkoc/webruntime/pkg/loader"
)

type fakeEngine struct{}

func (fakeEngine) ExecuteCJS(globals loader.ScriptGlobals) (loader.ScriptResult, error) {
	exports, _ := globals.Exports.(map[string]interface{})
	exports["ok"] = true
	return loader.ScriptResult{Exports: exports}, nil
}

func (fakeEngine) ExecuteESM(url, filename string) (loader.ScriptResult, error) {
	return loader.ScriptResult{Exports: map[string]interface{}{"url": url}}, nil
}

// TestExecuteWritesAndRequires tests that Execute persists code to the
// VFS under a generated path and returns its exports.
func TestExecuteWritesAndRequires(t *testing.T) {
	rt, err := New(Options{Config: kernel.DefaultConfig(), Engine: fakeEngine{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := rt.Execute("module.exports = {}", "")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	exports, ok := result.Exports.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map exports, got %T", result.Exports)
	}
	if exports["ok"] != true {
		t.Errorf("expected ok marker from engine")
	}
}

// TestExecuteGeneratesDistinctFilenames tests that two unnamed Execute
// calls don't collide on the same generated VFS path.
func TestExecuteGeneratesDistinctFilenames(t *testing.T) {
	rt, err := New(Options{Config: kernel.DefaultConfig(), Engine: fakeEngine{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := rt.Execute("module.exports = {}", ""); err != nil {
		t.Fatalf("first Execute failed: %v", err)
	}
	if _, err := rt.Execute("module.exports = {}", ""); err != nil {
		t.Fatalf("second Execute failed: %v", err)
	}
	entries, err := rt.VFS.Readdir("/")
	if err != nil {
		t.Fatalf("Readdir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected two generated exec files, got %d", len(entries))
	}
}

// TestRunFileReadsFromVFS tests that RunFile reads a path already present
// in the VFS and requires it.
func TestRunFileReadsFromVFS(t *testing.T) {
	rt, err := New(Options{Config: kernel.DefaultConfig(), Engine: fakeEngine{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := rt.VFS.WriteFile("/app.js", []byte("module.exports = {}")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := rt.RunFile("/app.js"); err != nil {
		t.Fatalf("RunFile failed: %v", err)
	}
}

// TestRequireUsesConfiguredCwd tests that Require resolves relative to
// the runtime's configured working directory.
func TestRequireUsesConfiguredCwd(t *testing.T) {
	cfg := kernel.DefaultConfig()
	cfg.Cwd = "/app"
	rt, err := New(Options{Config: cfg, Engine: fakeEngine{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := rt.VFS.Mkdir("/app", true); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if err := rt.VFS.WriteFile("/app/lib.js", []byte("module.exports = {}")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := rt.Require("./lib"); err != nil {
		t.Fatalf("Require failed: %v", err)
	}
}

// TestBuiltinShimsPluginRegistersAndTearsDown tests that builtins
// configured via Options are available through the registry and that
// Destroy then runs without panicking; the registry's contents after
// Destroy are not checked.
func TestBuiltinShimsPluginRegistersAndTearsDown(t *testing.T) {
	rt, err := New(Options{
		Config:   kernel.DefaultConfig(),
		Engine:   fakeEngine{},
		Builtins: map[string]interface{}{"events": map[string]interface{}{}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !rt.Builtins.Has("events") {
		t.Fatal("expected events builtin to be registered")
	}
	rt.Destroy()
}

// TestDestroyUnregistersAllPlugins tests that Destroy reaches every
// plugin even if teardown order matters, and leaves the kernel with no
// remaining plugins.
func TestDestroyUnregistersAllPlugins(t *testing.T) {
	rt, err := New(Options{Config: kernel.DefaultConfig(), Engine: fakeEngine{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rt.Destroy()
	if len(rt.Kernel.ListPlugins()) != 0 {
		t.Errorf("expected no plugins after Destroy, got %v", rt.Kernel.ListPlugins())
	}
}

// TestClearCacheAllowsReload tests that ClearCache forces a module to be
// re-read and re-executed rather than served from cache.
func TestClearCacheAllowsReload(t *testing.T) {
	rt, err := New(Options{Config: kernel.DefaultConfig(), Engine: fakeEngine{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := rt.VFS.WriteFile("/mod.js", []byte("module.exports = {}")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := rt.Require("/mod.js"); err != nil {
		t.Fatalf("first Require failed: %v", err)
	}
	rt.ClearCache()
	if _, err := rt.Require("/mod.js"); err != nil {
		t.Fatalf("second Require failed: %v", err)
	}
}
