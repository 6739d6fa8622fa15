package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/stacks/pkg/eventstream"
)

// RecordingPublisher captures operation events in memory so tests can assert
// on the observability stream without a broker.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.OperationEvent

	// FailWith, when set, is returned by PublishOperation without recording.
	FailWith error
}

// NewRecordingPublisher creates an empty recording publisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// PublishOperation records the event.
func (p *RecordingPublisher) PublishOperation(_ context.Context, event *eventstream.OperationEvent) error {
	if event == nil {
		return eventstream.ErrNilOperationEvent
	}
	if p.FailWith != nil {
		return p.FailWith
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Close is a no-op.
func (p *RecordingPublisher) Close() error { return nil }

// Events returns a copy of the captured events.
func (p *RecordingPublisher) Events() []*eventstream.OperationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.OperationEvent(nil), p.events...)
}
