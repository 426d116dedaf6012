package vfs

import (
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"

	"github.com/ersinkoc/webruntime/pkg/logging"
	"github.com/ersinkoc/webruntime/pkg/rpath"
	"github.com/ersinkoc/webruntime/pkg/rterror"
)

// maxSymlinkHops bounds symlink resolution (spec §4.4), matching the
// conventional POSIX ELOOP threshold.
const maxSymlinkHops = 40

// normalizeName applies Unicode NFC normalization to a single path
// component before it becomes a directory children-map key, so that two
// visually identical names built from different combining-character
// sequences (e.g. precomposed "é" vs "e" + combining acute) collide the
// way they would on a real POSIX filesystem with a normalization-
// insensitive on-disk encoding, rather than silently coexisting as
// distinct entries.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}

// VFS is the in-memory filesystem facade (C4). It owns a single root
// node and the watchers registered against it. It assumes single-threaded
// cooperative access, per the runtime's concurrency model: callers must
// not invoke VFS methods concurrently from multiple goroutines.
type VFS struct {
	root    *Node
	logger  *logging.Logger
	watcher *watcher
	now     func() time.Time
}

// New constructs an empty VFS with a single root directory.
func New(logger *logging.Logger) *VFS {
	v := &VFS{
		logger: logger,
		now:    time.Now,
	}
	v.root = newDirectoryNode(v.now())
	v.watcher = newWatcher()
	v.watcher.logger = logger
	return v
}

// DirEntry describes a single entry returned by Readdir.
type DirEntry struct {
	Name string
	Kind Kind
}

// Stat describes the information returned by Stat/Lstat.
type Stat struct {
	Kind Kind
	Meta Metadata
}

// IsDirectory reports whether the stat result describes a directory.
func (s Stat) IsDirectory() bool { return s.Kind == KindDirectory }

// IsFile reports whether the stat result describes a regular file.
func (s Stat) IsFile() bool { return s.Kind == KindFile }

// IsSymlink reports whether the stat result describes a symbolic link.
func (s Stat) IsSymlink() bool { return s.Kind == KindSymlink }

// resolveOptions controls how resolve walks the tree.
type resolveOptions struct {
	// followFinal controls whether a symlink at the final path component is
	// itself resolved (true for Stat/ReadFile-style operations, false for
	// Lstat/Unlink/Readlink-style operations).
	followFinal bool
}

// resolve walks path from the root, following symlinks along the way
// (and at the final component if followFinal is set), returning the node
// found and the fully-resolved canonical path. hops tracks the total
// number of symlink indirections consumed across the whole walk so that
// resolving a path that re-enters a symlink loop still terminates.
func (v *VFS) resolve(path string, opts resolveOptions) (*Node, string, error) {
	normalized, err := rpath.Normalize("/", path)
	if err != nil {
		return nil, "", err
	}

	node, resolved, err := v.resolveFrom(v.root, "/", rpath.Segments(normalized), opts, 0)
	if err != nil {
		return nil, "", err
	}
	return node, resolved, nil
}

// resolveFrom walks segments beneath current (located at currentPath),
// recursively following symlinks.
func (v *VFS) resolveFrom(current *Node, currentPath string, segments []string, opts resolveOptions, hops int) (*Node, string, error) {
	if len(segments) == 0 {
		return current, currentPath, nil
	}
	if hops > maxSymlinkHops {
		return nil, "", rterror.New(rterror.KindTooManyLinks, "too many symbolic links encountered while resolving path", currentPath)
	}

	if current.Kind != KindDirectory {
		return nil, "", rterror.New(rterror.KindFSError, "not a directory", currentPath).WithReason(rterror.ReasonNotDirectory)
	}

	name := normalizeName(segments[0])
	rest := segments[1:]

	child, ok := current.children[name]
	if !ok {
		return nil, "", rterror.New(rterror.KindFSError, "no such file or directory", rpath.Join(currentPath, name)).WithReason(rterror.ReasonNotFound)
	}

	childPath := rpath.Join(currentPath, name)

	if child.Kind == KindSymlink {
		isFinal := len(rest) == 0
		if isFinal && !opts.followFinal {
			return child, childPath, nil
		}
		targetPath, err := v.symlinkTarget(child, currentPath)
		if err != nil {
			return nil, "", err
		}
		targetNode, resolvedTargetPath, err := v.resolveFrom(v.root, "/", rpath.Segments(targetPath), opts, hops+1)
		if err != nil {
			return nil, "", err
		}
		if isFinal {
			return targetNode, resolvedTargetPath, nil
		}
		return v.resolveFrom(targetNode, resolvedTargetPath, rest, opts, hops+1)
	}

	return v.resolveFrom(child, childPath, rest, opts, hops)
}

// symlinkTarget computes the absolute path a symlink at parentPath points
// to, resolving a relative target against the symlink's own directory.
func (v *VFS) symlinkTarget(link *Node, parentPath string) (string, error) {
	if rpath.IsAbsolute(link.target) {
		return rpath.Normalize("/", link.target)
	}
	return rpath.Normalize(parentPath, link.target)
}

// resolveParent resolves the parent directory of path and returns it
// alongside the final path component, without requiring the final
// component itself to exist.
func (v *VFS) resolveParent(path string) (parent *Node, name string, resolvedParentPath string, err error) {
	normalized, err := rpath.Normalize("/", path)
	if err != nil {
		return nil, "", "", err
	}
	if normalized == "/" {
		return nil, "", "", rterror.New(rterror.KindInvalidArgument, "path has no parent", path)
	}
	dir, base := rpath.Split(normalized)
	node, resolvedDir, err := v.resolve(dir, resolveOptions{followFinal: true})
	if err != nil {
		return nil, "", "", err
	}
	if node.Kind != KindDirectory {
		return nil, "", "", rterror.New(rterror.KindFSError, "not a directory", dir).WithReason(rterror.ReasonNotDirectory)
	}
	return node, normalizeName(base), resolvedDir, nil
}

// Stat resolves path, following a trailing symlink, and reports its
// metadata.
func (v *VFS) Stat(path string) (Stat, error) {
	node, _, err := v.resolve(path, resolveOptions{followFinal: true})
	if err != nil {
		return Stat{}, err
	}
	node.Meta.touchAccess(v.now())
	return Stat{Kind: node.Kind, Meta: node.Meta}, nil
}

// Lstat resolves path without following a trailing symlink.
func (v *VFS) Lstat(path string) (Stat, error) {
	node, _, err := v.resolve(path, resolveOptions{followFinal: false})
	if err != nil {
		return Stat{}, err
	}
	return Stat{Kind: node.Kind, Meta: node.Meta}, nil
}

// Exists reports whether path resolves to a node (following symlinks),
// swallowing resolution errors in favor of a plain boolean.
func (v *VFS) Exists(path string) bool {
	_, _, err := v.resolve(path, resolveOptions{followFinal: true})
	return err == nil
}

// ReadFile reads the full contents of the file at path.
func (v *VFS) ReadFile(path string) ([]byte, error) {
	node, resolved, err := v.resolve(path, resolveOptions{followFinal: true})
	if err != nil {
		return nil, err
	}
	if node.Kind == KindDirectory {
		return nil, rterror.New(rterror.KindFSError, "illegal operation on a directory, read", resolved).WithReason(rterror.ReasonIsDirectory)
	}
	node.Meta.touchAccess(v.now())
	out := make([]byte, len(node.data))
	copy(out, node.data)
	return out, nil
}

// resolveWriteTarget follows a symlink chain rooted at the final path
// component of path, so that a write through a symlink lands on its
// (recursively resolved) target rather than overwriting the link node
// itself (spec §4.4's "Symlink write-through"; seed scenario S7).
// Intermediate path components are followed by resolveParent's own
// directory resolution, which already follows symlinks. A path whose
// final component does not exist, or is not itself a symlink, resolves
// to itself unchanged.
func (v *VFS) resolveWriteTarget(path string) (string, error) {
	normalized, err := rpath.Normalize("/", path)
	if err != nil {
		return "", err
	}
	current := normalized
	for hops := 0; ; hops++ {
		if hops > maxSymlinkHops {
			return "", rterror.New(rterror.KindTooManyLinks, "too many symbolic links encountered while resolving path", current)
		}
		parent, name, parentPath, err := v.resolveParent(current)
		if err != nil {
			return "", err
		}
		child, ok := parent.children[name]
		if !ok || child.Kind != KindSymlink {
			return current, nil
		}
		target, err := v.symlinkTarget(child, parentPath)
		if err != nil {
			return "", err
		}
		current = target
	}
}

// WriteFile writes data to the file at path, creating it (and replacing
// it if it already exists as a file) but not creating missing parent
// directories. A path whose final component is a symlink writes through
// to its resolved target instead of overwriting the link itself.
func (v *VFS) WriteFile(path string, data []byte) error {
	target, err := v.resolveWriteTarget(path)
	if err != nil {
		return err
	}
	parent, name, parentPath, err := v.resolveParent(target)
	if err != nil {
		return err
	}
	now := v.now()
	existing, ok := parent.children[name]
	if ok {
		if existing.Kind == KindDirectory {
			return rterror.New(rterror.KindFSError, "illegal operation on a directory, open", rpath.Join(parentPath, name)).WithReason(rterror.ReasonIsDirectory)
		}
		existing.setData(append([]byte(nil), data...), now)
		v.watcher.record(rpath.Join(parentPath, name), changeKindChange)
		return nil
	}
	node := newFileNode(now)
	node.setData(append([]byte(nil), data...), now)
	parent.children[name] = node
	parent.Meta.touch(now)
	v.watcher.record(rpath.Join(parentPath, name), changeKindRename)
	return nil
}

// AppendFile appends data to the file at path, creating it if it does
// not already exist. Like WriteFile, a path whose final component is a
// symlink writes through to its resolved target.
func (v *VFS) AppendFile(path string, data []byte) error {
	target, err := v.resolveWriteTarget(path)
	if err != nil {
		return err
	}
	parent, name, parentPath, err := v.resolveParent(target)
	if err != nil {
		return err
	}
	now := v.now()
	existing, ok := parent.children[name]
	if !ok {
		node := newFileNode(now)
		node.setData(append([]byte(nil), data...), now)
		parent.children[name] = node
		parent.Meta.touch(now)
		v.watcher.record(rpath.Join(parentPath, name), changeKindRename)
		return nil
	}
	if existing.Kind == KindDirectory {
		return rterror.New(rterror.KindFSError, "illegal operation on a directory, open", rpath.Join(parentPath, name)).WithReason(rterror.ReasonIsDirectory)
	}
	existing.setData(append(existing.data, data...), now)
	v.watcher.record(rpath.Join(parentPath, name), changeKindChange)
	return nil
}

// CopyFile copies the file at src to dst, which must not already be a
// directory.
func (v *VFS) CopyFile(src, dst string) error {
	data, err := v.ReadFile(src)
	if err != nil {
		return err
	}
	return v.WriteFile(dst, data)
}

// Mkdir creates a directory at path. If recursive is false, the parent
// must already exist and path must not already exist. If recursive is
// true, missing ancestors are created and an already-existing directory
// at path is not an error.
func (v *VFS) Mkdir(path string, recursive bool) error {
	normalized, err := rpath.Normalize("/", path)
	if err != nil {
		return err
	}
	if normalized == "/" {
		return nil
	}

	if !recursive {
		parent, name, parentPath, err := v.resolveParent(path)
		if err != nil {
			return err
		}
		if _, exists := parent.children[name]; exists {
			return rterror.New(rterror.KindFSError, "file already exists", rpath.Join(parentPath, name)).WithReason(rterror.ReasonAlreadyExists)
		}
		now := v.now()
		parent.children[name] = newDirectoryNode(now)
		parent.Meta.touch(now)
		v.watcher.record(rpath.Join(parentPath, name), changeKindRename)
		return nil
	}

	current := v.root
	currentPath := "/"
	now := v.now()
	for _, rawSegment := range rpath.Segments(normalized) {
		segment := normalizeName(rawSegment)
		child, ok := current.children[segment]
		if !ok {
			child = newDirectoryNode(now)
			current.children[segment] = child
			current.Meta.touch(now)
			currentPath = rpath.Join(currentPath, segment)
			v.watcher.record(currentPath, changeKindRename)
			current = child
			continue
		}
		if child.Kind != KindDirectory {
			return rterror.New(rterror.KindFSError, "not a directory", rpath.Join(currentPath, segment)).WithReason(rterror.ReasonNotDirectory)
		}
		currentPath = rpath.Join(currentPath, segment)
		current = child
	}
	return nil
}

// Readdir lists the entries of the directory at path, sorted by name.
func (v *VFS) Readdir(path string) ([]DirEntry, error) {
	node, resolved, err := v.resolve(path, resolveOptions{followFinal: true})
	if err != nil {
		return nil, err
	}
	if node.Kind != KindDirectory {
		return nil, rterror.New(rterror.KindFSError, "not a directory", resolved).WithReason(rterror.ReasonNotDirectory)
	}
	node.Meta.touchAccess(v.now())
	names := node.sortedChildNames()
	entries := make([]DirEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, DirEntry{Name: name, Kind: node.children[name].Kind})
	}
	return entries, nil
}

// Rmdir removes the empty directory at path.
func (v *VFS) Rmdir(path string) error {
	parent, name, parentPath, err := v.resolveParent(path)
	if err != nil {
		return err
	}
	child, ok := parent.children[name]
	if !ok {
		return rterror.New(rterror.KindFSError, "no such file or directory", rpath.Join(parentPath, name)).WithReason(rterror.ReasonNotFound)
	}
	if child.Kind != KindDirectory {
		return rterror.New(rterror.KindFSError, "not a directory", rpath.Join(parentPath, name)).WithReason(rterror.ReasonNotDirectory)
	}
	if len(child.children) != 0 {
		return rterror.New(rterror.KindFSError, "directory not empty", rpath.Join(parentPath, name)).WithReason(rterror.ReasonNotEmpty)
	}
	delete(parent.children, name)
	parent.Meta.touch(v.now())
	v.watcher.record(rpath.Join(parentPath, name), changeKindRename)
	return nil
}

// Unlink removes the file or symlink at path (not following a trailing
// symlink).
func (v *VFS) Unlink(path string) error {
	parent, name, parentPath, err := v.resolveParent(path)
	if err != nil {
		return err
	}
	child, ok := parent.children[name]
	if !ok {
		return rterror.New(rterror.KindFSError, "no such file or directory", rpath.Join(parentPath, name)).WithReason(rterror.ReasonNotFound)
	}
	if child.Kind == KindDirectory {
		return rterror.New(rterror.KindFSError, "illegal operation on a directory, unlink", rpath.Join(parentPath, name)).WithReason(rterror.ReasonIsDirectory)
	}
	delete(parent.children, name)
	parent.Meta.touch(v.now())
	v.watcher.record(rpath.Join(parentPath, name), changeKindRename)
	return nil
}

// Rename moves the node at src to dst, which must not already exist.
func (v *VFS) Rename(src, dst string) error {
	srcParent, srcName, srcParentPath, err := v.resolveParent(src)
	if err != nil {
		return err
	}
	node, ok := srcParent.children[srcName]
	if !ok {
		return rterror.New(rterror.KindFSError, "no such file or directory", rpath.Join(srcParentPath, srcName)).WithReason(rterror.ReasonNotFound)
	}

	dstParent, dstName, dstParentPath, err := v.resolveParent(dst)
	if err != nil {
		return err
	}
	if _, exists := dstParent.children[dstName]; exists {
		return rterror.New(rterror.KindFSError, "file already exists", rpath.Join(dstParentPath, dstName)).WithReason(rterror.ReasonAlreadyExists)
	}

	now := v.now()
	delete(srcParent.children, srcName)
	srcParent.Meta.touch(now)
	dstParent.children[dstName] = node
	dstParent.Meta.touch(now)

	v.watcher.record(rpath.Join(srcParentPath, srcName), changeKindRename)
	v.watcher.record(rpath.Join(dstParentPath, dstName), changeKindRename)
	return nil
}

// Symlink creates a symbolic link at path pointing to target. target is
// stored verbatim (it may be relative or absolute) and resolved lazily.
func (v *VFS) Symlink(target, path string) error {
	parent, name, parentPath, err := v.resolveParent(path)
	if err != nil {
		return err
	}
	if _, exists := parent.children[name]; exists {
		return rterror.New(rterror.KindFSError, "file already exists", rpath.Join(parentPath, name)).WithReason(rterror.ReasonAlreadyExists)
	}
	now := v.now()
	parent.children[name] = newSymlinkNode(target, now)
	parent.Meta.touch(now)
	v.watcher.record(rpath.Join(parentPath, name), changeKindRename)
	return nil
}

// Readlink returns the raw, unresolved target of the symlink at path.
func (v *VFS) Readlink(path string) (string, error) {
	node, resolved, err := v.resolve(path, resolveOptions{followFinal: false})
	if err != nil {
		return "", err
	}
	if node.Kind != KindSymlink {
		return "", rterror.New(rterror.KindInvalidArgument, "not a symbolic link", resolved)
	}
	return node.target, nil
}

// Realpath resolves path fully, following every symlink along the way
// (and a trailing one), returning the canonical absolute path.
func (v *VFS) Realpath(path string) (string, error) {
	_, resolved, err := v.resolve(path, resolveOptions{followFinal: true})
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// Chmod changes the permission bits of the node at path (following a
// trailing symlink).
func (v *VFS) Chmod(path string, mode uint32) error {
	node, _, err := v.resolve(path, resolveOptions{followFinal: true})
	if err != nil {
		return err
	}
	node.Meta.Mode = mode
	node.Meta.touch(v.now())
	return nil
}

// Glob returns every path beneath root matching pattern, using the same
// pattern syntax as the module resolver's package.json "exports" matcher
// (doublestar, which extends POSIX glob with "**").
func (v *VFS) Glob(root, pattern string) ([]string, error) {
	base, resolvedRoot, err := v.resolve(root, resolveOptions{followFinal: true})
	if err != nil {
		return nil, err
	}
	if base.Kind != KindDirectory {
		return nil, rterror.New(rterror.KindFSError, "not a directory", resolvedRoot).WithReason(rterror.ReasonNotDirectory)
	}

	var matches []string
	base.walk(resolvedRoot, func(path string, node *Node) {
		if path == resolvedRoot {
			return
		}
		rel := strings.TrimPrefix(path, resolvedRoot+"/")
		ok, err := doublestar.Match(pattern, rel)
		if err == nil && ok {
			matches = append(matches, path)
		}
	})
	sort.Strings(matches)
	return matches, nil
}

// Watch registers a watcher on path (see watch.go for batching semantics).
func (v *VFS) Watch(path string, recursive bool, listener WatchListener) (WatchHandle, error) {
	normalized, err := rpath.Normalize("/", path)
	if err != nil {
		return WatchHandle{}, err
	}
	return v.watcher.add(normalized, recursive, listener), nil
}

// Unwatch removes a previously registered watch.
func (v *VFS) Unwatch(handle WatchHandle) {
	v.watcher.remove(handle)
}
