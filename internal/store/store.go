package store

import (
	"context"
	"errors"
	"time"
)

// Collection names used by the ingestion pipeline.
const (
	Users              = "users"
	UserEmails         = "userEmails"
	ContentItems       = "contentItems"
	EmailNotifications = "emailNotifications"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConditionFailed is returned when a conditional increment is
	// refused because the counter already reached its limit.
	ErrConditionFailed = errors.New("condition failed")
)

// Document is a schemaless stored record.
type Document = map[string]any

// WriteOp is a single put inside a batch write.
type WriteOp struct {
	Collection string
	ID         string
	Doc        Document
}

// DocumentStore is the durable document storage consumed by the pipeline.
type DocumentStore interface {
	// Get returns one document, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Create writes a new document and returns its generated id.
	Create(ctx context.Context, collection string, doc Document) (string, error)
	// Update merges partial fields into an existing document.
	Update(ctx context.Context, collection, id string, partial Document) error
	// Increment atomically adds delta to a numeric field.
	Increment(ctx context.Context, collection, id, field string, delta int64) error
	// ConditionalIncrement atomically adds delta to a numeric field only
	// while the field's current value is below limit; otherwise it returns
	// ErrConditionFailed and leaves the document untouched.
	ConditionalIncrement(ctx context.Context, collection, id, field string, delta, limit int64) error
	// BatchWrite puts every op, all-or-nothing as far as the backend allows.
	BatchWrite(ctx context.Context, ops []WriteOp) error
}

// ObjectStore is the binary blob storage for uploaded images.
type ObjectStore interface {
	// Put writes data under key and returns a public URL for it.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Str reads a string field from a document, tolerating absence.
func Str(d Document, key string) string {
	s, _ := d[key].(string)
	return s
}

// Int reads a numeric field from a document. DynamoDB unmarshals numbers
// into float64 when the target is map[string]any, so both widths are
// accepted.
func Int(d Document, key string) int64 {
	switch v := d[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// Time reads an RFC3339 timestamp field from a document. Returns the zero
// time when the field is absent or malformed.
func Time(d Document, key string) time.Time {
	t, err := time.Parse(time.RFC3339, Str(d, key))
	if err != nil {
		return time.Time{}
	}
	return t
}
