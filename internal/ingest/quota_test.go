package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/ignite/mailmap-inbound/internal/store"
)

func newQuotaUser(t *testing.T, docs *store.MemoryStore, count int64) string {
	t.Helper()
	id, err := docs.Create(context.Background(), store.Users, store.Document{
		"email":      "quota@example.com",
		counterField: count,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestQuotaTrackerOrderedRefusal(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	id := newQuotaUser(t, docs, 1)

	// Limit 3 with one upload already consumed: the first two attachments
	// go through and the rest are refused, in order.
	q := NewQuotaTracker(docs, id, 1, 3)

	recorded := 0
	refused := 0
	for i := 0; i < 4; i++ {
		if !q.MayUpload() {
			refused++
			continue
		}
		if err := q.RecordUpload(ctx); err != nil {
			t.Fatalf("RecordUpload #%d = %v", i, err)
		}
		recorded++
	}

	if recorded != 2 || refused != 2 {
		t.Errorf("recorded=%d refused=%d, want 2 and 2", recorded, refused)
	}

	doc, err := docs.Get(ctx, store.Users, id)
	if err != nil {
		t.Fatal(err)
	}
	if got := store.Int(doc, counterField); got != 3 {
		t.Errorf("durable counter = %d, want 3", got)
	}
}

func TestQuotaTrackerUnlimited(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	id := newQuotaUser(t, docs, 100)

	q := NewQuotaTracker(docs, id, 100, 0)
	if q.Enforced() {
		t.Error("zero limit must not be enforced")
	}

	for i := 0; i < 5; i++ {
		if !q.MayUpload() {
			t.Fatal("unlimited tracker refused an upload")
		}
		if err := q.RecordUpload(ctx); err != nil {
			t.Fatalf("RecordUpload = %v", err)
		}
	}

	doc, _ := docs.Get(ctx, store.Users, id)
	if got := store.Int(doc, counterField); got != 105 {
		t.Errorf("durable counter = %d, want 105", got)
	}
}

func TestQuotaTrackerAnonymous(t *testing.T) {
	docs := store.NewMemoryStore()

	// No identity: nothing to charge, everything may proceed.
	q := NewQuotaTracker(docs, "", 0, 3)
	if q.Enforced() {
		t.Error("anonymous tracker must not be enforced")
	}
	if !q.MayUpload() {
		t.Error("anonymous tracker refused an upload")
	}
	if err := q.RecordUpload(context.Background()); err != nil {
		t.Errorf("RecordUpload = %v", err)
	}
}

func TestQuotaTrackerConcurrentExhaustion(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	id := newQuotaUser(t, docs, 0)

	q := NewQuotaTracker(docs, id, 0, 2)

	// Another request from the same sender drains the durable counter
	// after this tracker's refresh.
	if err := docs.Update(ctx, store.Users, id, store.Document{counterField: int64(2)}); err != nil {
		t.Fatal(err)
	}

	if !q.MayUpload() {
		t.Fatal("stale in-memory count should still admit the upload")
	}
	err := q.RecordUpload(ctx)
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("RecordUpload = %v, want ErrQuotaExhausted", err)
	}

	// The tracker picks up the exhaustion for the rest of the batch.
	if q.MayUpload() {
		t.Error("tracker must refuse after a conditional increment failure")
	}

	doc, _ := docs.Get(ctx, store.Users, id)
	if got := store.Int(doc, counterField); got != 2 {
		t.Errorf("durable counter = %d, want 2 (no over-count)", got)
	}
}
