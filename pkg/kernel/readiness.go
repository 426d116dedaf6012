package kernel

import (
	"context"
	"errors"
	"sync"
)

// ErrTrackingTerminated indicates that tracking was terminated before a
// polling operation observed a change.
var ErrTrackingTerminated = errors.New("kernel readiness tracking terminated")

// pollResponse is used to respond to a polling request within
// readinessTracker.
type pollResponse struct {
	index      uint64
	terminated bool
}

// pollRequest represents a polling request within readinessTracker.
type pollRequest struct {
	previousIndex uint64
	responses     chan<- pollResponse
}

// readinessTracker provides index-based generation tracking for the
// kernel: every successful plugin install and unregister bumps the index
// (the config is fixed at construction and never bumps it), and a host
// can wait for the next bump via WaitForChange. This
// is a direct adaptation of the teacher's pkg/state.Tracker (itself a
// condition-variable-to-channel bridge), repurposed from tracking a
// synchronization session's status to tracking a kernel's plugin/config
// generation.
type readinessTracker struct {
	change       *sync.Cond
	index        uint64
	terminated   bool
	pollRequests map[*pollRequest]bool
	trackDone    chan struct{}
}

// newReadinessTracker creates a tracker with an initial index of 1.
func newReadinessTracker() *readinessTracker {
	t := &readinessTracker{
		change:       sync.NewCond(&sync.Mutex{}),
		index:        1,
		pollRequests: make(map[*pollRequest]bool),
		trackDone:    make(chan struct{}),
	}
	go t.track()
	return t
}

func (t *readinessTracker) track() {
	defer close(t.trackDone)

	t.change.L.Lock()
	defer t.change.L.Unlock()

	for {
		if t.terminated {
			response := pollResponse{t.index, true}
			for r := range t.pollRequests {
				r.responses <- response
				delete(t.pollRequests, r)
			}
			return
		}

		for r := range t.pollRequests {
			if r.previousIndex != t.index {
				r.responses <- pollResponse{t.index, false}
				delete(t.pollRequests, r)
			}
		}

		t.change.Wait()
	}
}

// Terminate stops the tracking loop, releasing any outstanding pollers
// with ErrTrackingTerminated.
func (t *readinessTracker) Terminate() {
	t.change.L.Lock()
	t.terminated = true
	t.change.Signal()
	t.change.L.Unlock()
	<-t.trackDone
}

// bump increments the generation index and wakes the tracking loop.
func (t *readinessTracker) bump() {
	t.change.L.Lock()
	defer t.change.L.Unlock()
	t.index++
	if t.index == 0 {
		t.index = 1
	}
	t.change.Signal()
}

// WaitForChange blocks until the index differs from previousIndex (or
// ctx is cancelled, or tracking is terminated). A previousIndex of 0
// returns the current index immediately.
func (t *readinessTracker) WaitForChange(ctx context.Context, previousIndex uint64) (uint64, error) {
	if previousIndex == 0 {
		t.change.L.Lock()
		defer t.change.L.Unlock()
		if t.terminated {
			return t.index, ErrTrackingTerminated
		}
		return t.index, nil
	}

	t.change.L.Lock()
	if t.terminated {
		defer t.change.L.Unlock()
		return t.index, ErrTrackingTerminated
	}

	responses := make(chan pollResponse, 1)
	request := &pollRequest{previousIndex, responses}
	t.pollRequests[request] = true
	t.change.Signal()
	t.change.L.Unlock()

	select {
	case <-ctx.Done():
		t.change.L.Lock()
		delete(t.pollRequests, request)
		t.change.L.Unlock()
		return t.index, context.Canceled
	case response := <-responses:
		if response.terminated {
			return response.index, ErrTrackingTerminated
		}
		return response.index, nil
	}
}
