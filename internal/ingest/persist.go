package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ignite/mailmap-inbound/internal/geo"
	"github.com/ignite/mailmap-inbound/internal/store"
)

// ContentItem carries everything needed to publish one geotagged post.
type ContentItem struct {
	Text       string
	ImageURL   string
	Coordinate geo.Coordinate
	OwnerID    string
	Subject    string
}

// ContentPersister writes published content items to the document store.
type ContentPersister struct {
	docs store.DocumentStore
	now  func() time.Time
}

// NewContentPersister creates a persister over the given document store.
func NewContentPersister(docs store.DocumentStore) *ContentPersister {
	return &ContentPersister{docs: docs, now: time.Now}
}

// Save writes the content item and returns its generated id. The item is
// published immediately; there is no draft state for inbound mail.
func (p *ContentPersister) Save(ctx context.Context, item ContentItem) (string, error) {
	doc := store.Document{
		"text":             item.Text,
		"imageUrl":         item.ImageURL,
		"latitude":         item.Coordinate.Latitude,
		"longitude":        item.Coordinate.Longitude,
		"status":           "published",
		"voteCount":        int64(0),
		"reportedCount":    int64(0),
		"subject":          item.Subject,
		"timestamp":        p.now().UTC().Format(time.RFC3339),
		"notificationSent": false,
	}
	if item.OwnerID != "" {
		doc["userId"] = item.OwnerID
	}

	id, err := p.docs.Create(ctx, store.ContentItems, doc)
	if err != nil {
		return "", fmt.Errorf("creating content item: %w", err)
	}

	// Backfill the document with its own id so clients can build short
	// links without a second lookup. The item is already live, so a
	// failure here is logged and swallowed.
	err = p.docs.Update(ctx, store.ContentItems, id, store.Document{
		"itemId":   id,
		"shortUrl": id,
	})
	if err != nil {
		log.Printf("[Ingest] WARNING: failed to backfill item id on %s: %v", id, err)
	}

	return id, nil
}
