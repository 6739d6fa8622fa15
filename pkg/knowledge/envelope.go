package knowledge

import "encoding/json"

// Validation messages carried in failure envelopes when a request is
// rejected before any network call. Exported so transport layers can tell
// caller mistakes apart from upstream failures.
const (
	EmptyQueryMessage      = "Query cannot be empty"
	EmptyDocumentIDMessage = "Document ID cannot be empty"
)

// SearchEnvelope is the result of a Search call. Success and failure share
// one shape; callers branch on Success. Results and Count are pointers so a
// successful empty search still serializes "results": [] and "count": 0
// while failures omit both keys entirely.
type SearchEnvelope struct {
	Success    bool               `json:"success"`
	Error      string             `json:"error,omitempty"`
	Query      string             `json:"query"`
	Collection string             `json:"collection,omitempty"`
	Results    *[]json.RawMessage `json:"results,omitempty"`
	Count      *int               `json:"count,omitempty"`
}

// DocumentEnvelope is the result of a GetDocument call. The document is
// passed through byte-for-byte as the server sent it. DocumentID and
// Collection are only populated on failures that reached the server.
type DocumentEnvelope struct {
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	Document   json.RawMessage `json:"document,omitempty"`
	DocumentID string          `json:"document_id,omitempty"`
	Collection string          `json:"collection_name,omitempty"`
}

// CollectionsEnvelope is the result of a ListCollections call. Collections
// is a pointer so an empty listing serializes "collections": [] on success
// and the key is absent on failure.
type CollectionsEnvelope struct {
	Success     bool               `json:"success"`
	Error       string             `json:"error,omitempty"`
	Collections *[]json.RawMessage `json:"collections,omitempty"`
}
