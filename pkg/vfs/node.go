// Package vfs implements the runtime's in-memory, tree-shaped POSIX
// filesystem (spec §4.2-§4.4): a node store of files, directories, and
// symlinks; a facade exposing POSIX-shaped operations over that store; a
// batched change watcher; and a deterministic binary snapshot format.
//
// The tagged-variant node shape and depth-first walk pattern are grounded
// on the teacher's pkg/synchronization/core/entry.go (Entry's
// Directory/File/SymbolicLink kinds and its walk helper), generalized from
// a content-addressed sync entry (digest-identified, immutable, produced
// by scanning a real filesystem) to a mutable in-memory node that itself
// IS the filesystem, with metadata fields (size, mode, timestamps, inode)
// that core.Entry has no need for.
package vfs

import (
	"sync/atomic"
	"time"
)

// Kind identifies the variant of a Node.
type Kind int

const (
	// KindFile identifies a regular file node.
	KindFile Kind = iota
	// KindDirectory identifies a directory node.
	KindDirectory
	// KindSymlink identifies a symbolic link node.
	KindSymlink
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Default permission bits applied to newly created nodes, mirroring
// Node.js's default umask-adjusted modes.
const (
	DefaultFileMode      = 0644
	DefaultDirectoryMode = 0755
)

// inodeCounter is a process-wide monotonically increasing inode source.
// The runtime is single-threaded per spec's concurrency model, but the
// counter uses atomic increments anyway since a host may construct
// multiple independent VFS instances concurrently during startup.
var inodeCounter uint64

func nextInode() uint64 {
	return atomic.AddUint64(&inodeCounter, 1)
}

// Metadata holds the POSIX-shaped attributes the facade's Stat/Lstat
// operations report (spec §4.4).
type Metadata struct {
	Size      int64
	Mode      uint32
	Inode     uint64
	Atime     time.Time
	Mtime     time.Time
	Ctime     time.Time
	Birthtime time.Time
}

// touch updates Mtime and Ctime to now, leaving Atime/Birthtime untouched.
func (m *Metadata) touch(now time.Time) {
	m.Mtime = now
	m.Ctime = now
}

// touchAccess updates Atime to now.
func (m *Metadata) touchAccess(now time.Time) {
	m.Atime = now
}

// Node is a single entry in the tree: a file, a directory, or a symlink.
// Exactly one of data/children/target is meaningful, selected by Kind.
type Node struct {
	Kind Kind
	Meta Metadata

	// data holds file content; only meaningful when Kind == KindFile.
	data []byte

	// children holds a directory's named entries; only meaningful when
	// Kind == KindDirectory. Ordering for directory listings is imposed at
	// read time rather than preserved here.
	children map[string]*Node

	// target holds a symlink's raw (unresolved) target string; only
	// meaningful when Kind == KindSymlink.
	target string
}

// newFileNode constructs an empty file node with fresh metadata.
func newFileNode(now time.Time) *Node {
	return &Node{
		Kind: KindFile,
		Meta: Metadata{
			Mode:      DefaultFileMode,
			Inode:     nextInode(),
			Atime:     now,
			Mtime:     now,
			Ctime:     now,
			Birthtime: now,
		},
	}
}

// newDirectoryNode constructs an empty directory node with fresh metadata.
func newDirectoryNode(now time.Time) *Node {
	return &Node{
		Kind:     KindDirectory,
		children: make(map[string]*Node),
		Meta: Metadata{
			Mode:      DefaultDirectoryMode,
			Inode:     nextInode(),
			Atime:     now,
			Mtime:     now,
			Ctime:     now,
			Birthtime: now,
		},
	}
}

// newSymlinkNode constructs a symlink node pointing at target.
func newSymlinkNode(target string, now time.Time) *Node {
	return &Node{
		Kind:   KindSymlink,
		target: target,
		Meta: Metadata{
			Mode:      0777,
			Inode:     nextInode(),
			Atime:     now,
			Mtime:     now,
			Ctime:     now,
			Birthtime: now,
		},
	}
}

// setData replaces a file node's content, updating its size and
// modification time.
func (n *Node) setData(data []byte, now time.Time) {
	n.data = data
	n.Meta.Size = int64(len(data))
	n.Meta.touch(now)
}

// walkVisitor is invoked once per node during a depth-first traversal,
// receiving the node's absolute path.
type walkVisitor func(path string, node *Node)

// walk performs a depth-first, pre-order traversal of the subtree rooted
// at n, visiting n itself first (mirroring the teacher's Entry.walk).
// Child iteration order is lexical by name for deterministic snapshots.
func (n *Node) walk(path string, visit walkVisitor) {
	visit(path, n)
	if n.Kind != KindDirectory {
		return
	}
	for _, name := range n.sortedChildNames() {
		child := n.children[name]
		childPath := path
		if childPath == "/" {
			childPath = "/" + name
		} else {
			childPath = childPath + "/" + name
		}
		child.walk(childPath, visit)
	}
}

// sortedChildNames returns a directory's child names in lexical order.
func (n *Node) sortedChildNames() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}
