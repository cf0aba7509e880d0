package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/mailmap-inbound/internal/store"
)

// counterField is the monthly upload counter on a submitter document.
const counterField = "photo_upload_count_current_month"

// ErrQuotaExhausted is returned by RecordUpload when the durable counter
// was pushed to its limit by a concurrent request after this batch's last
// refresh.
var ErrQuotaExhausted = errors.New("monthly upload quota exhausted")

// QuotaTracker enforces a submitter's monthly upload limit across one
// batch. The in-memory count is refreshed once per request; RecordUpload
// advances both it and the durable counter so that later attachments in
// the same batch see the consumption immediately.
//
// A limit of zero or below means unlimited. An empty identity id (owner
// resolution failed) also disables enforcement: there is no counter to
// charge.
type QuotaTracker struct {
	docs       store.DocumentStore
	identityID string
	count      int64
	limit      int64
}

// NewQuotaTracker creates a tracker seeded with the identity's counter as
// read at the start of the request.
func NewQuotaTracker(docs store.DocumentStore, identityID string, count, limit int64) *QuotaTracker {
	return &QuotaTracker{docs: docs, identityID: identityID, count: count, limit: limit}
}

// Enforced reports whether a limit applies to this batch.
func (t *QuotaTracker) Enforced() bool {
	return t.identityID != "" && t.limit > 0
}

// MayUpload reports whether one more upload may proceed.
func (t *QuotaTracker) MayUpload() bool {
	if !t.Enforced() {
		return true
	}
	return t.count < t.limit
}

// Count returns the in-memory counter as seen by the current batch.
func (t *QuotaTracker) Count() int64 {
	return t.count
}

// RecordUpload charges one upload after a successful persist. When a limit
// is active the durable increment is conditional on the stored counter
// still being below it, which closes the stale-read race between
// concurrent requests from the same submitter.
func (t *QuotaTracker) RecordUpload(ctx context.Context) error {
	if t.identityID == "" {
		return nil
	}

	var err error
	if t.limit > 0 {
		err = t.docs.ConditionalIncrement(ctx, store.Users, t.identityID, counterField, 1, t.limit)
	} else {
		err = t.docs.Increment(ctx, store.Users, t.identityID, counterField, 1)
	}
	if errors.Is(err, store.ErrConditionFailed) {
		t.count = t.limit
		return ErrQuotaExhausted
	}
	if err != nil {
		return fmt.Errorf("recording upload for %s: %w", t.identityID, err)
	}

	t.count++
	return nil
}
