package vfs

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ersinkoc/webruntime/pkg/rterror"
)

func newTestVFS(t *testing.T) *VFS {
	t.Helper()
	return New(nil)
}

// TestWriteReadFile tests a basic write/read round trip.
func TestWriteReadFile(t *testing.T) {
	v := newTestVFS(t)
	if err := v.Mkdir("/a/b", true); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if err := v.WriteFile("/a/b/file.txt", []byte("hello")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := v.ReadFile("/a/b/file.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Errorf("ReadFile = %q, expected %q", data, "hello")
	}
}

// TestReadFileNotFound tests that reading a missing file reports NotFound.
func TestReadFileNotFound(t *testing.T) {
	v := newTestVFS(t)
	_, err := v.ReadFile("/missing.txt")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	rte, ok := err.(*rterror.Error)
	if !ok {
		t.Fatalf("expected *rterror.Error, got %T", err)
	}
	if rte.Reason != rterror.ReasonNotFound {
		t.Errorf("Reason = %v, expected %v", rte.Reason, rterror.ReasonNotFound)
	}
}

// TestReadFileOnDirectory tests that reading a directory reports IsDirectory.
func TestReadFileOnDirectory(t *testing.T) {
	v := newTestVFS(t)
	if err := v.Mkdir("/dir", false); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	_, err := v.ReadFile("/dir")
	rte, ok := err.(*rterror.Error)
	if !ok || rte.Reason != rterror.ReasonIsDirectory {
		t.Fatalf("expected IsDirectory error, got %v", err)
	}
}

// TestRmdirNotEmpty tests that removing a non-empty directory fails.
func TestRmdirNotEmpty(t *testing.T) {
	v := newTestVFS(t)
	if err := v.Mkdir("/dir", false); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if err := v.WriteFile("/dir/file.txt", []byte("x")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	err := v.Rmdir("/dir")
	rte, ok := err.(*rterror.Error)
	if !ok || rte.Reason != rterror.ReasonNotEmpty {
		t.Fatalf("expected NotEmpty error, got %v", err)
	}
}

// TestSymlinkResolution tests that reads follow symlinks transparently.
func TestSymlinkResolution(t *testing.T) {
	v := newTestVFS(t)
	if err := v.WriteFile("/real.txt", []byte("payload")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := v.Symlink("/real.txt", "/link.txt"); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}
	data, err := v.ReadFile("/link.txt")
	if err != nil {
		t.Fatalf("ReadFile through symlink failed: %v", err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Errorf("ReadFile through symlink = %q, expected %q", data, "payload")
	}

	stat, err := v.Lstat("/link.txt")
	if err != nil {
		t.Fatalf("Lstat failed: %v", err)
	}
	if !stat.IsSymlink() {
		t.Errorf("Lstat on link did not report symlink kind")
	}
}

// TestSymlinkWriteThrough tests seed scenario S7: writing through a
// symlink updates the target's content, not the link node itself.
func TestSymlinkWriteThrough(t *testing.T) {
	v := newTestVFS(t)
	if err := v.WriteFile("/target", []byte("original")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := v.Symlink("/target", "/link"); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}
	if err := v.WriteFile("/link", []byte("updated")); err != nil {
		t.Fatalf("WriteFile through symlink failed: %v", err)
	}

	data, err := v.ReadFile("/target")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(data, []byte("updated")) {
		t.Errorf("ReadFile(/target) = %q, expected %q", data, "updated")
	}

	linkStat, err := v.Lstat("/link")
	if err != nil {
		t.Fatalf("Lstat failed: %v", err)
	}
	if !linkStat.IsSymlink() {
		t.Errorf("/link should remain a symlink after write-through")
	}
}

// TestSymlinkLoop tests that a self-referential symlink cycle is rejected
// rather than looping forever.
func TestSymlinkLoop(t *testing.T) {
	v := newTestVFS(t)
	if err := v.Symlink("/b.link", "/a.link"); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}
	if err := v.Symlink("/a.link", "/b.link"); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}
	_, err := v.ReadFile("/a.link")
	rte, ok := err.(*rterror.Error)
	if !ok || rte.Kind != rterror.KindTooManyLinks {
		t.Fatalf("expected TooManyLinks error, got %v", err)
	}
}

// TestSnapshotRoundTrip tests that a tree survives ToSnapshot/FromSnapshot.
func TestSnapshotRoundTrip(t *testing.T) {
	v := newTestVFS(t)
	if err := v.Mkdir("/a/b", true); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if err := v.WriteFile("/a/b/file.txt", []byte("hello")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := v.Symlink("/a/b/file.txt", "/a/link.txt"); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	data, err := v.ToSnapshot()
	if err != nil {
		t.Fatalf("ToSnapshot failed: %v", err)
	}

	restored := New(nil)
	if err := restored.FromSnapshot(data); err != nil {
		t.Fatalf("FromSnapshot failed: %v", err)
	}

	content, err := restored.ReadFile("/a/b/file.txt")
	if err != nil {
		t.Fatalf("ReadFile on restored vfs failed: %v", err)
	}
	if !bytes.Equal(content, []byte("hello")) {
		t.Errorf("restored content = %q, expected %q", content, "hello")
	}

	linkTarget, err := restored.Readlink("/a/link.txt")
	if err != nil {
		t.Fatalf("Readlink on restored vfs failed: %v", err)
	}
	if linkTarget != "/a/b/file.txt" {
		t.Errorf("restored link target = %q, expected %q", linkTarget, "/a/b/file.txt")
	}
}

// TestGlob tests that Glob matches nested paths via doublestar patterns.
func TestGlob(t *testing.T) {
	v := newTestVFS(t)
	if err := v.Mkdir("/src/nested", true); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if err := v.WriteFile("/src/a.js", []byte("")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := v.WriteFile("/src/nested/b.js", []byte("")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := v.WriteFile("/src/nested/c.json", []byte("")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	matches, err := v.Glob("/src", "**/*.js")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Glob matched %d paths, expected 2: %v", len(matches), matches)
	}
}

// TestSnapshotRoundTripPreservesTreeShape tests that the full directory
// listing of a tree survives a ToSnapshot/FromSnapshot round trip,
// covering the multi-path structural comparison a bare t.Fatalf loop
// would be unwieldy for.
func TestSnapshotRoundTripPreservesTreeShape(t *testing.T) {
	v := newTestVFS(t)
	require.NoError(t, v.Mkdir("/src/nested", true))
	require.NoError(t, v.WriteFile("/src/a.js", []byte("a")))
	require.NoError(t, v.WriteFile("/src/nested/b.js", []byte("b")))

	data, err := v.ToSnapshot()
	require.NoError(t, err)

	restored := New(nil)
	require.NoError(t, restored.FromSnapshot(data))

	original, err := v.Glob("/", "**/*")
	require.NoError(t, err)
	restoredPaths, err := restored.Glob("/", "**/*")
	require.NoError(t, err)

	sort.Strings(original)
	sort.Strings(restoredPaths)
	require.Equal(t, original, restoredPaths)
}

// TestWatchBatchesRenameOverChange tests that a rename recorded after a
// change for the same path wins precedence in the flushed batch.
func TestWatchBatchesRenameOverChange(t *testing.T) {
	v := newTestVFS(t)
	if err := v.WriteFile("/watched.txt", []byte("v1")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var received []Event
	if _, err := v.Watch("/watched.txt", false, func(events []Event) {
		received = append(received, events...)
	}); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := v.WriteFile("/watched.txt", []byte("v2")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := v.Unlink("/watched.txt"); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}
	v.Flush()

	if len(received) != 1 {
		t.Fatalf("expected exactly one batched event, got %d: %v", len(received), received)
	}
	if received[0].Kind != changeKindRename {
		t.Errorf("expected rename to win precedence, got kind %v", received[0].Kind)
	}
}

// TestWatchNonRecursiveMatchesImmediateChild tests spec §4.3 step 3: a
// non-recursive watcher on a directory fires for direct children, but
// not for grandchildren.
func TestWatchNonRecursiveMatchesImmediateChild(t *testing.T) {
	v := newTestVFS(t)
	if err := v.Mkdir("/dir/sub", true); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	// Deliver the setup's own /dir and /dir/sub events before watching.
	v.Flush()

	var received []Event
	if _, err := v.Watch("/dir", false, func(events []Event) {
		received = append(received, events...)
	}); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := v.WriteFile("/dir/child.txt", []byte("v1")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := v.WriteFile("/dir/sub/grandchild.txt", []byte("v1")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	v.Flush()

	if len(received) != 1 {
		t.Fatalf("expected exactly one event for the immediate child, got %d: %v", len(received), received)
	}
	if received[0].Path != "/dir/child.txt" {
		t.Errorf("expected event for /dir/child.txt, got %s", received[0].Path)
	}
}
