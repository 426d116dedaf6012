package kernel

import (
	"fmt"
	"sync"
)

// Handler receives the arguments passed to Emit for the event it's
// registered against.
type Handler func(args ...interface{})

// HandlerHandle identifies a registered handler so it can later be
// removed with Off.
type HandlerHandle struct {
	event string
	id    int
}

type handlerEntry struct {
	id      int
	handler Handler
}

// EventBus implements the kernel's event bus (spec §4.10): on/off/emit,
// where emit iterates a snapshot of the handler list (so a handler may
// register or unregister other handlers during delivery without
// affecting the in-progress emission), and a handler's panic during a
// non-"error" event is recovered and re-emitted as an "error" event
// rather than propagating to the caller of Emit.
type EventBus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string][]*handlerEntry
}

// NewEventBus constructs an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[string][]*handlerEntry)}
}

// On registers handler for event, returning a handle that Off can use to
// remove it later.
func (b *EventBus) On(event string, handler Handler) HandlerHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[event] = append(b.handlers[event], &handlerEntry{id: b.nextID, handler: handler})
	return HandlerHandle{event: event, id: b.nextID}
}

// Off removes a previously registered handler. Removing an unknown or
// already-removed handle is a no-op.
func (b *EventBus) Off(handle HandlerHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.handlers[handle.event]
	for i, entry := range entries {
		if entry.id == handle.id {
			b.handlers[handle.event] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Emit delivers args to every handler registered for event, using a
// snapshot of the handler list taken at the start of the call.
func (b *EventBus) Emit(event string, args ...interface{}) {
	b.mu.Lock()
	snapshot := append([]*handlerEntry(nil), b.handlers[event]...)
	b.mu.Unlock()

	for _, entry := range snapshot {
		b.invoke(event, entry, args)
	}
}

// invoke calls a single handler, recovering a panic and re-emitting it
// as an "error" event (unless the panicking handler was itself handling
// "error", in which case the panic is silently swallowed to avoid
// infinite recursion).
func (b *EventBus) invoke(event string, entry *handlerEntry, args []interface{}) {
	defer func() {
		if r := recover(); r != nil {
			if event == "error" {
				return
			}
			err := toError(r)
			b.Emit("error", err, "event:"+event)
		}
	}()
	entry.handler(args...)
}

func toError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
