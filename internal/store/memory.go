package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory document store. It backs tests and the
// "memory" storage type for local runs.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document // collection -> id -> document
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]Document)}
}

// Get returns one document, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

// Create writes a new document under a generated id and returns the id.
func (s *MemoryStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.put(collection, id, doc)
	return id, nil
}

// Update merges partial fields into an existing document.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, partial Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	for field, value := range partial {
		doc[field] = value
	}
	return nil
}

// Increment atomically adds delta to a numeric field.
func (s *MemoryStore) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	doc[field] = Int(doc, field) + delta
	return nil
}

// ConditionalIncrement adds delta only while the field is still below limit.
func (s *MemoryStore) ConditionalIncrement(ctx context.Context, collection, id, field string, delta, limit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	if Int(doc, field) >= limit {
		return ErrConditionFailed
	}
	doc[field] = Int(doc, field) + delta
	return nil
}

// BatchWrite puts every op.
func (s *MemoryStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		s.put(op.Collection, op.ID, op.Doc)
	}
	return nil
}

func (s *MemoryStore) put(collection, id string, doc Document) {
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]Document)
	}
	s.docs[collection][id] = copyDoc(doc)
}

func copyDoc(doc Document) Document {
	out := make(Document, len(doc))
	for field, value := range doc {
		out[field] = value
	}
	return out
}

// MemoryObjects is an in-memory object store counterpart to MemoryStore.
type MemoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryObjects creates an empty in-memory object store.
func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{objects: make(map[string][]byte)}
}

// Put stores data under key and returns a synthetic public URL.
func (s *MemoryObjects) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf
	return fmt.Sprintf("memory://%s", key), nil
}

// Len reports the number of stored objects.
func (s *MemoryObjects) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
