package vfs

import (
	"strings"
	"sync"

	"github.com/ersinkoc/webruntime/pkg/logging"
	"github.com/ersinkoc/webruntime/pkg/rpath"
)

// ChangeKind classifies a single batched watch event (spec §4.3). Rename
// covers creation, removal, and renaming of an entry; Change covers
// in-place content or metadata modification. When both are reported for
// the same path within one flush, Rename takes precedence, mirroring how
// the teacher's pkg/filesystem watch.go treats a rename as subsuming any
// change seen for the same path in one poll cycle.
type ChangeKind int

const (
	changeKindChange ChangeKind = iota
	changeKindRename
)

// rank orders change kinds so that the higher-precedence kind wins when
// two events for the same path are merged within a flush.
func (c ChangeKind) rank() int {
	if c == changeKindRename {
		return 1
	}
	return 0
}

// Event describes a single deduplicated filesystem change delivered to a
// listener.
type Event struct {
	Path string
	Kind ChangeKind
}

// WatchListener receives batched events for paths it's watching. Any
// panic raised by a listener is recovered and logged rather than
// propagated, matching Node's fs.watch behavior of isolating listener
// exceptions from the emitter.
type WatchListener func(events []Event)

// WatchHandle identifies a registered watch so it can later be removed.
type WatchHandle struct {
	id int
}

type registration struct {
	id        int
	path      string
	recursive bool
	listener  WatchListener
}

// watcher batches and deduplicates filesystem mutations, flushing them to
// registered listeners. Events are accumulated in pending as they occur
// and held until Flush rather than delivered synchronously, so
// that many mutations performed in a single synchronous burst (e.g.
// extracting an archive) coalesce into one notification per path, per
// spec §4.3's "flush scheduled on next tick" rule. Because the runtime is
// single-threaded and cooperative, "next tick" is realized by the host
// explicitly calling Flush (e.g. from a microtask checkpoint or event-loop
// tick callback) rather than by a goroutine/timer.
type watcher struct {
	mu            sync.Mutex
	nextID        int
	registrations []*registration
	pending       map[string]ChangeKind
	pendingOrder  []string
	logger        *logging.Logger
}

func newWatcher() *watcher {
	return &watcher{
		pending: make(map[string]ChangeKind),
	}
}

// add registers listener for path, watching descendants too when
// recursive is true.
func (w *watcher) add(path string, recursive bool, listener WatchListener) WatchHandle {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	reg := &registration{id: w.nextID, path: path, recursive: recursive, listener: listener}
	w.registrations = append(w.registrations, reg)
	return WatchHandle{id: reg.id}
}

// remove unregisters a previously added watch. Removing an unknown or
// already-removed handle is a no-op.
func (w *watcher) remove(handle WatchHandle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, reg := range w.registrations {
		if reg.id == handle.id {
			w.registrations = append(w.registrations[:i], w.registrations[i+1:]...)
			return
		}
	}
}

// record queues a change at path for the next flush, merging with any
// already-pending event for the same path using rename-over-change
// precedence.
func (w *watcher) record(path string, kind ChangeKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	existing, ok := w.pending[path]
	if !ok {
		w.pendingOrder = append(w.pendingOrder, path)
		w.pending[path] = kind
		return
	}
	if kind.rank() > existing.rank() {
		w.pending[path] = kind
	}
}

// matches reports whether a registration covers path: an exact match;
// a recursive watcher whose base is any ancestor directory of path; or
// a non-recursive watcher whose base is path's immediate parent (spec
// §4.3 step 3).
func (r *registration) matches(path string) bool {
	if path == r.path {
		return true
	}
	prefix := r.path
	if prefix != "/" {
		prefix += "/"
	}
	if r.recursive {
		return strings.HasPrefix(path, prefix)
	}
	return rpath.Dirname(path) == r.path
}

// Flush delivers all pending batched events to matching listeners in
// the order their paths were first recorded, then clears the queue. A
// listener's panic is recovered and logged so that one broken listener
// doesn't prevent others from receiving their events or corrupt the
// flush in progress.
func (w *watcher) Flush() {
	w.mu.Lock()
	if len(w.pendingOrder) == 0 {
		w.mu.Unlock()
		return
	}
	events := make([]Event, 0, len(w.pendingOrder))
	for _, path := range w.pendingOrder {
		events = append(events, Event{Path: path, Kind: w.pending[path]})
	}
	registrations := append([]*registration(nil), w.registrations...)
	w.pending = make(map[string]ChangeKind)
	w.pendingOrder = nil
	w.mu.Unlock()

	for _, reg := range registrations {
		var matched []Event
		for _, event := range events {
			if reg.matches(event.Path) {
				matched = append(matched, event)
			}
		}
		if len(matched) == 0 {
			continue
		}
		w.deliver(reg, matched)
	}
}

// deliver invokes a single listener, recovering and logging any panic.
func (w *watcher) deliver(reg *registration, events []Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Warnf("watch listener for '%s' panicked: %v", reg.path, r)
		}
	}()
	reg.listener(events)
}

// Flush flushes pending batched watch events to their listeners. Hosts
// that drive the runtime's event loop should call this once per tick
// (e.g. after a microtask checkpoint) so that filesystem watchers observe
// the same "settle, then notify" behavior Node.js provides.
func (v *VFS) Flush() {
	v.watcher.Flush()
}
