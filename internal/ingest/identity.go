package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mailmap-inbound/internal/store"
)

// SubmitterIdentity is the durable record for one sender address. It is
// created lazily on first contact and never deleted by the ingestion
// subsystem.
type SubmitterIdentity struct {
	ID              string
	Email           string
	DisplayName     string
	Provider        string
	PhotoCount      int64
	LastUploadReset time.Time
}

// IdentityResolver maps sender addresses to durable identities, creating
// one on first contact. Lookup goes through a userEmails index document so
// it stays a plain key read instead of a table scan.
type IdentityResolver struct {
	docs store.DocumentStore
	now  func() time.Time
}

// NewIdentityResolver creates a resolver over the given document store.
func NewIdentityResolver(docs store.DocumentStore) *IdentityResolver {
	return &IdentityResolver{docs: docs, now: time.Now}
}

// Resolve returns the identity for email, creating it when none exists.
// The returned identity's counter reflects the current month: a stale
// counter from a previous month is reset before it is reported.
func (r *IdentityResolver) Resolve(ctx context.Context, email string) (*SubmitterIdentity, error) {
	index, err := r.docs.Get(ctx, store.UserEmails, email)
	if errors.Is(err, store.ErrNotFound) {
		return r.create(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up identity for %s: %w", email, err)
	}

	uid := store.Str(index, "uid")
	doc, err := r.docs.Get(ctx, store.Users, uid)
	if err != nil {
		return nil, fmt.Errorf("loading identity %s: %w", uid, err)
	}

	identity := &SubmitterIdentity{
		ID:              uid,
		Email:           store.Str(doc, "email"),
		DisplayName:     store.Str(doc, "displayName"),
		Provider:        store.Str(doc, "provider"),
		PhotoCount:      store.Int(doc, counterField),
		LastUploadReset: store.Time(doc, "last_upload_reset"),
	}

	if err := r.resetMonthlyCountIfNeeded(ctx, identity); err != nil {
		log.Printf("[Identity] WARNING: failed to reset monthly counter for %s: %v", uid, err)
	}
	return identity, nil
}

func (r *IdentityResolver) create(ctx context.Context, email string) (*SubmitterIdentity, error) {
	uid := uuid.New().String()
	displayName := email
	if at := strings.Index(email, "@"); at > 0 {
		displayName = email[:at]
	}
	now := r.now().UTC()

	doc := store.Document{
		"email":             email,
		"displayName":       displayName,
		"provider":          "email_webhook",
		"createdAt":         now.Format(time.RFC3339),
		counterField:        int64(0),
		"last_upload_reset": now.Format(time.RFC3339),
		"isActive":          true,
	}
	index := store.Document{"uid": uid, "email": email}

	err := r.docs.BatchWrite(ctx, []store.WriteOp{
		{Collection: store.Users, ID: uid, Doc: doc},
		{Collection: store.UserEmails, ID: email, Doc: index},
	})
	if err != nil {
		return nil, fmt.Errorf("creating identity for %s: %w", email, err)
	}

	log.Printf("[Identity] Created new submitter for %s: %s", email, uid)
	return &SubmitterIdentity{
		ID:              uid,
		Email:           email,
		DisplayName:     displayName,
		Provider:        "email_webhook",
		LastUploadReset: now,
	}, nil
}

// resetMonthlyCountIfNeeded zeroes the counter when the last reset falls in
// an earlier UTC month than now.
func (r *IdentityResolver) resetMonthlyCountIfNeeded(ctx context.Context, identity *SubmitterIdentity) error {
	now := r.now().UTC()
	if !identity.LastUploadReset.IsZero() && sameMonth(identity.LastUploadReset.UTC(), now) {
		return nil
	}

	err := r.docs.Update(ctx, store.Users, identity.ID, store.Document{
		counterField:        int64(0),
		"last_upload_reset": now.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	identity.PhotoCount = 0
	identity.LastUploadReset = now
	log.Printf("[Identity] Reset monthly photo count for %s", identity.ID)
	return nil
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
