package vfs

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/ersinkoc/webruntime/pkg/rterror"
)

// Snapshot format: a deterministic, little-endian binary encoding of a
// node tree, suitable for persisting and later restoring a VFS exactly
// (spec §4.4/§6's round-trip law: fromSnapshot(toSnapshot(fs)) observably
// equals fs for every read operation). The walk order (pre-order,
// lexically sorted children, grounded on node.go's walk/sortedChildNames)
// is itself part of the format, since it's what lets restoration rebuild
// the tree with a single linear pass instead of needing random access.
const (
	snapshotMagic   uint32 = 0x57524653 // "WRFS"
	snapshotVersion uint16 = 1

	tagFile      byte = 1
	tagDirectory byte = 2
	tagSymlink   byte = 3
)

// ToSnapshot serializes the entire tree into a deterministic byte slice.
func (v *VFS) ToSnapshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, snapshotMagic); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, snapshotVersion); err != nil {
		return nil, err
	}
	if err := writeNode(&buf, v.root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromSnapshot replaces the VFS's tree with the one encoded in data,
// discarding any in-memory watchers' pending (unflushed) events, since a
// restore represents a new, externally-supplied filesystem state rather
// than a mutation watchers should be notified about.
func (v *VFS) FromSnapshot(data []byte) error {
	r := bytes.NewReader(data)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return rterror.Wrap(rterror.KindInvalidArgument, err, "snapshot")
	}
	if magic != snapshotMagic {
		return rterror.New(rterror.KindInvalidArgument, "not a webruntime vfs snapshot", "")
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return rterror.Wrap(rterror.KindInvalidArgument, err, "snapshot")
	}
	if version != snapshotVersion {
		return rterror.New(rterror.KindInvalidArgument, "unsupported snapshot version", "")
	}

	root, err := readNode(r)
	if err != nil {
		return err
	}
	if root.Kind != KindDirectory {
		return rterror.New(rterror.KindInvalidArgument, "snapshot root must be a directory", "")
	}

	v.root = root
	v.discardPendingEvents()
	return nil
}

// discardPendingEvents clears any batched-but-unflushed watch events.
func (v *VFS) discardPendingEvents() {
	v.watcher.mu.Lock()
	defer v.watcher.mu.Unlock()
	v.watcher.pending = make(map[string]ChangeKind)
	v.watcher.pendingOrder = nil
}

func writeNode(w io.Writer, n *Node) error {
	if err := writeByte(w, kindTag(n.Kind)); err != nil {
		return err
	}
	if err := writeMetadata(w, n.Meta); err != nil {
		return err
	}

	switch n.Kind {
	case KindFile:
		return writeBytes(w, n.data)
	case KindSymlink:
		return writeString(w, n.target)
	case KindDirectory:
		names := n.sortedChildNames()
		if err := writeUint32(w, uint32(len(names))); err != nil {
			return err
		}
		for _, name := range names {
			if err := writeString(w, name); err != nil {
				return err
			}
			if err := writeNode(w, n.children[name]); err != nil {
				return err
			}
		}
		return nil
	default:
		return rterror.New(rterror.KindInvalidArgument, "unknown node kind", "")
	}
}

func readNode(r io.Reader) (*Node, error) {
	tag, err := readByte(r)
	if err != nil {
		return nil, err
	}
	meta, err := readMetadata(r)
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagFile:
		data, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindFile, data: data, Meta: meta}, nil
	case tagSymlink:
		target, err := readString(r)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindSymlink, target: target, Meta: meta}, nil
	case tagDirectory:
		count, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		children := make(map[string]*Node, count)
		for i := uint32(0); i < count; i++ {
			name, err := readString(r)
			if err != nil {
				return nil, err
			}
			child, err := readNode(r)
			if err != nil {
				return nil, err
			}
			children[name] = child
		}
		return &Node{Kind: KindDirectory, children: children, Meta: meta}, nil
	default:
		return nil, rterror.New(rterror.KindInvalidArgument, "corrupt snapshot: unknown node tag", "")
	}
}

func kindTag(k Kind) byte {
	switch k {
	case KindFile:
		return tagFile
	case KindDirectory:
		return tagDirectory
	case KindSymlink:
		return tagSymlink
	default:
		return 0
	}
}

func writeMetadata(w io.Writer, m Metadata) error {
	if err := binary.Write(w, binary.LittleEndian, m.Size); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.Mode); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.Inode); err != nil {
		return err
	}
	for _, t := range []time.Time{m.Atime, m.Mtime, m.Ctime, m.Birthtime} {
		if err := binary.Write(w, binary.LittleEndian, t.UnixNano()); err != nil {
			return err
		}
	}
	return nil
}

func readMetadata(r io.Reader) (Metadata, error) {
	var m Metadata
	if err := binary.Read(r, binary.LittleEndian, &m.Size); err != nil {
		return m, err
	}
	if err := binary.Read(r, binary.LittleEndian, &m.Mode); err != nil {
		return m, err
	}
	if err := binary.Read(r, binary.LittleEndian, &m.Inode); err != nil {
		return m, err
	}
	times := make([]*time.Time, 0, 4)
	times = append(times, &m.Atime, &m.Mtime, &m.Ctime, &m.Birthtime)
	for _, t := range times {
		var nanos int64
		if err := binary.Read(r, binary.LittleEndian, &nanos); err != nil {
			return m, err
		}
		*t = time.Unix(0, nanos).UTC()
	}
	return m, nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func writeBytes(w io.Writer, data []byte) error {
	if err := writeUint32(w, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func readString(r io.Reader) (string, error) {
	data, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
