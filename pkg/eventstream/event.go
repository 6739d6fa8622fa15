package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeOperationCompleted is emitted after a knowledge base
	// operation finishes, whether it succeeded or failed.
	EventTypeOperationCompleted = "stacks.operation.completed"
)

// Operation names carried in OperationEvent.Operation.
const (
	OperationSearch          = "search"
	OperationGetDocument     = "get_document"
	OperationListCollections = "list_collections"
)

// OperationEvent is a transport-neutral record of one executed knowledge
// base operation.
type OperationEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Operation     string    `json:"operation"`
	Collection    string    `json:"collection,omitempty"`
	Query         string    `json:"query,omitempty"`
	DocumentID    string    `json:"document_id,omitempty"`
	Success       bool      `json:"success"`
	ResultCount   int       `json:"result_count"`
	Error         string    `json:"error,omitempty"`
	Attempts      int       `json:"attempts"`
	DurationMs    int64     `json:"duration_ms"`
}

// NewOperationEvent stamps a new event with schema metadata, a fresh event
// ID, and the emission time. Callers fill in the operation-specific fields.
func NewOperationEvent(operation string) *OperationEvent {
	return &OperationEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeOperationCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Operation:     operation,
	}
}
