package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ignite/mailmap-inbound/internal/store"
)

func TestIdentityResolverCreatesOnFirstContact(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	r := NewIdentityResolver(docs)

	identity, err := r.Resolve(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Resolve = %v", err)
	}
	if identity.ID == "" {
		t.Fatal("expected a generated id")
	}
	if identity.Email != "alice@example.com" {
		t.Errorf("Email = %q", identity.Email)
	}
	if identity.DisplayName != "alice" {
		t.Errorf("DisplayName = %q, want local part", identity.DisplayName)
	}
	if identity.Provider != "email_webhook" {
		t.Errorf("Provider = %q", identity.Provider)
	}
	if identity.PhotoCount != 0 {
		t.Errorf("PhotoCount = %d, want 0", identity.PhotoCount)
	}

	doc, err := docs.Get(ctx, store.Users, identity.ID)
	if err != nil {
		t.Fatalf("stored user missing: %v", err)
	}
	if store.Str(doc, "provider") != "email_webhook" {
		t.Errorf("stored provider = %q", store.Str(doc, "provider"))
	}
	if doc["isActive"] != true {
		t.Error("stored user should be active")
	}

	index, err := docs.Get(ctx, store.UserEmails, "alice@example.com")
	if err != nil {
		t.Fatalf("email index missing: %v", err)
	}
	if store.Str(index, "uid") != identity.ID {
		t.Errorf("index uid = %q, want %q", store.Str(index, "uid"), identity.ID)
	}
}

func TestIdentityResolverIdempotent(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	r := NewIdentityResolver(docs)

	first, err := r.Resolve(ctx, "bob@example.com")
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(ctx, "bob@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("second resolve returned %q, want %q", second.ID, first.ID)
	}
}

func TestIdentityResolverNoAtSign(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	r := NewIdentityResolver(docs)

	identity, err := r.Resolve(ctx, "not-an-address")
	if err != nil {
		t.Fatal(err)
	}
	if identity.DisplayName != "not-an-address" {
		t.Errorf("DisplayName = %q, want whole address", identity.DisplayName)
	}
}

func TestIdentityResolverMonthlyReset(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	r := NewIdentityResolver(docs)

	identity, err := r.Resolve(ctx, "carol@example.com")
	if err != nil {
		t.Fatal(err)
	}

	// Simulate uploads recorded during a long-gone month.
	stale := time.Date(2001, time.January, 15, 0, 0, 0, 0, time.UTC)
	err = docs.Update(ctx, store.Users, identity.ID, store.Document{
		counterField:        int64(7),
		"last_upload_reset": stale.Format(time.RFC3339),
	})
	if err != nil {
		t.Fatal(err)
	}

	refreshed, err := r.Resolve(ctx, "carol@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.PhotoCount != 0 {
		t.Errorf("PhotoCount = %d, want 0 after month rollover", refreshed.PhotoCount)
	}

	doc, _ := docs.Get(ctx, store.Users, identity.ID)
	if got := store.Int(doc, counterField); got != 0 {
		t.Errorf("durable counter = %d, want 0", got)
	}
}

func TestIdentityResolverSameMonthKeepsCount(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	r := NewIdentityResolver(docs)

	identity, err := r.Resolve(ctx, "dave@example.com")
	if err != nil {
		t.Fatal(err)
	}
	err = docs.Update(ctx, store.Users, identity.ID, store.Document{counterField: int64(4)})
	if err != nil {
		t.Fatal(err)
	}

	refreshed, err := r.Resolve(ctx, "dave@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.PhotoCount != 4 {
		t.Errorf("PhotoCount = %d, want 4 within the same month", refreshed.PhotoCount)
	}
}

// failingStore errors on every operation.
type failingStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failingStore) Get(ctx context.Context, collection, id string) (store.Document, error) {
	return nil, errStoreDown
}

func (failingStore) Create(ctx context.Context, collection string, doc store.Document) (string, error) {
	return "", errStoreDown
}

func (failingStore) Update(ctx context.Context, collection, id string, partial store.Document) error {
	return errStoreDown
}

func (failingStore) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	return errStoreDown
}

func (failingStore) ConditionalIncrement(ctx context.Context, collection, id, field string, delta, limit int64) error {
	return errStoreDown
}

func (failingStore) BatchWrite(ctx context.Context, ops []store.WriteOp) error {
	return errStoreDown
}

func TestIdentityResolverStoreFailure(t *testing.T) {
	r := NewIdentityResolver(failingStore{})

	if _, err := r.Resolve(context.Background(), "erin@example.com"); err == nil {
		t.Fatal("expected error when the store is down")
	}
}
