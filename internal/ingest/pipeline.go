package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ignite/mailmap-inbound/internal/geo"
	"github.com/ignite/mailmap-inbound/internal/store"
)

// Result status values reported back to the webhook caller.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
	StatusError          = "error"
)

// Result is the aggregate outcome of processing one inbound message.
type Result struct {
	Status       string
	Message      string
	ContentIDs   []string
	SkippedCount int
}

// GeoExtractor resolves coordinates for an image, falling back to the
// message subject when the image carries no usable GPS data.
type GeoExtractor interface {
	Extract(data []byte, subject string) (geo.Coordinate, bool)
}

// Notifier delivers a best-effort publication notice to the sender.
type Notifier interface {
	NotifyPublished(ctx context.Context, contentID, recipient string)
}

// Pipeline turns one inbound email into zero or more published content
// items. Attachments are independent: a failure on one never aborts the
// rest of the message.
type Pipeline struct {
	resolver   *IdentityResolver
	filter     *Filter
	extractor  GeoExtractor
	persister  *ContentPersister
	docs       store.DocumentStore
	objects    store.ObjectStore
	notifier   Notifier
	photoLimit int64
}

// NewPipeline wires the ingestion pipeline. notifier may be nil when
// notifications are disabled.
func NewPipeline(docs store.DocumentStore, objects store.ObjectStore, filter *Filter, extractor GeoExtractor, notifier Notifier, photoLimit int64) *Pipeline {
	return &Pipeline{
		resolver:   NewIdentityResolver(docs),
		filter:     filter,
		extractor:  extractor,
		persister:  NewContentPersister(docs),
		docs:       docs,
		objects:    objects,
		notifier:   notifier,
		photoLimit: photoLimit,
	}
}

// Process ingests one inbound message and reports the aggregate outcome.
// Identity resolution failures degrade to anonymous, unmetered processing
// rather than rejecting the message.
func (p *Pipeline) Process(ctx context.Context, msg InboundMessage) Result {
	log.Printf("[Ingest] Processing message from %s with %d attachment(s)", msg.Sender, len(msg.Attachments))

	var identityID string
	var photoCount int64
	identity, err := p.resolver.Resolve(ctx, msg.Sender)
	if err != nil {
		log.Printf("[Ingest] WARNING: identity resolution failed for %s, continuing without quota: %v", msg.Sender, err)
	} else {
		identityID = identity.ID
		photoCount = identity.PhotoCount
	}

	quota := NewQuotaTracker(p.docs, identityID, photoCount, p.photoLimit)

	// Mail clients often send HTML-only bodies; the post text falls back
	// to the HTML body rather than publishing empty.
	text := msg.TextBody
	if text == "" {
		text = msg.HTMLBody
	}

	var contentIDs []string
	skipped := 0

	for _, att := range msg.Attachments {
		if err := p.filter.Check(att); err != nil {
			log.Printf("[Ingest] Skipping attachment %q: %v", att.Name, err)
			continue
		}

		if !quota.MayUpload() {
			skipped++
			log.Printf("[Ingest] WARNING: upload limit reached for %s, skipping %q", identityID, att.Name)
			continue
		}

		data, err := p.filter.Decode(att)
		if err != nil {
			log.Printf("[Ingest] Skipping attachment %q: %v", att.Name, err)
			continue
		}

		coord, ok := p.extractor.Extract(data, msg.Subject)
		if !ok {
			log.Printf("[Ingest] WARNING: no location found for %q, skipping", att.Name)
			continue
		}

		ext := extension(att.Name)
		key := fmt.Sprintf("content_images/%s.%s", uuid.New().String(), ext)
		url, err := p.objects.Put(ctx, key, data, att.ContentType)
		if err != nil {
			log.Printf("[Ingest] ERROR: failed to upload %q: %v", att.Name, err)
			continue
		}

		id, err := p.persister.Save(ctx, ContentItem{
			Text:       text,
			ImageURL:   url,
			Coordinate: coord,
			OwnerID:    identityID,
			Subject:    msg.Subject,
		})
		if err != nil {
			log.Printf("[Ingest] ERROR: failed to persist content for %q: %v", att.Name, err)
			continue
		}
		contentIDs = append(contentIDs, id)

		if err := quota.RecordUpload(ctx); err != nil {
			if errors.Is(err, ErrQuotaExhausted) {
				log.Printf("[Ingest] WARNING: quota exhausted concurrently for %s", identityID)
			} else {
				log.Printf("[Ingest] ERROR: failed to record upload for %s: %v", identityID, err)
			}
		}

		if p.notifier != nil && msg.Sender != "" {
			p.notifier.NotifyPublished(ctx, id, msg.Sender)
		}
	}

	return buildResult(contentIDs, skipped)
}

func buildResult(contentIDs []string, skipped int) Result {
	if contentIDs == nil {
		contentIDs = []string{}
	}

	switch {
	case len(contentIDs) == 0 && skipped == 0:
		return Result{
			Status:     StatusError,
			Message:    "No valid images found in attachments",
			ContentIDs: contentIDs,
		}
	case skipped == 0:
		return Result{
			Status:     StatusSuccess,
			Message:    fmt.Sprintf("%d content item(s) published successfully", len(contentIDs)),
			ContentIDs: contentIDs,
		}
	default:
		return Result{
			Status:       StatusPartialSuccess,
			Message:      fmt.Sprintf("%d content item(s) published successfully, %d image(s) skipped due to upload limit", len(contentIDs), skipped),
			ContentIDs:   contentIDs,
			SkippedCount: skipped,
		}
	}
}
