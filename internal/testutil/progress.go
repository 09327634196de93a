// Package testutil provides test utilities for progress observation.
package testutil

import (
	"sync"

	"github.com/NYPL/snowsync/types"
)

// ProgressEvent records one completed executor operation.
type ProgressEvent struct {
	Key    string
	Action types.Action
	Err    error
}

// ProgressRecorder captures executor progress callbacks for assertions.
// It is safe for concurrent use; wire Observe to the executor's
// OnProgress hook.
type ProgressRecorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

// Observe records one completed operation.
func (r *ProgressRecorder) Observe(op types.PlannedOp, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ProgressEvent{
		Key:    op.DestKey,
		Action: op.Action,
		Err:    err,
	})
}

// Events returns a copy of the recorded events.
func (r *ProgressRecorder) Events() []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]ProgressEvent, len(r.events))
	copy(events, r.events)
	return events
}

// Failed returns the destination keys whose operations reported errors.
func (r *ProgressRecorder) Failed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for _, ev := range r.events {
		if ev.Err != nil {
			keys = append(keys, ev.Key)
		}
	}
	return keys
}

// Reset clears the recorded events.
func (r *ProgressRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
