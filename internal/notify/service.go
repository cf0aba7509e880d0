package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/ignite/mailmap-inbound/internal/config"
	"github.com/ignite/mailmap-inbound/internal/store"
)

// Notification statuses.
const (
	statusPending = "pending"
	statusSent    = "sent"
	statusFailed  = "failed"
)

var emailTmpl = template.Must(template.New("notification").Parse(`<html>
<body>
<h2>Your post has been published!</h2>
<p>{{.Text}}</p>
{{if .ImageURL}}<p><img src="{{.ImageURL}}" alt="{{.Subject}}" style="max-width:480px"></p>{{end}}
<p>Coordinates: {{.Latitude}}, {{.Longitude}}</p>
<p><a href="{{.PostURL}}">View your post</a></p>
<p>Sincerely, The MailMap Team</p>
</body>
</html>
`))

type templateData struct {
	Subject   string
	Text      string
	ImageURL  string
	Latitude  float64
	Longitude float64
	PostURL   string
}

// Service records and delivers publication notifications. Delivery is
// best effort: every failure is persisted on the notification record and
// logged, none is surfaced to the webhook caller.
type Service struct {
	docs   store.DocumentStore
	sender Sender
	cfg    config.NotifyConfig
	now    func() time.Time
}

// NewService creates a notification service over the given sender.
func NewService(docs store.DocumentStore, sender Sender, cfg config.NotifyConfig) *Service {
	return &Service{docs: docs, sender: sender, cfg: cfg, now: time.Now}
}

// NotifyPublished records a pending notification for contentID and
// attempts delivery immediately.
func (s *Service) NotifyPublished(ctx context.Context, contentID, recipient string) {
	if contentID == "" || recipient == "" {
		log.Printf("[Notify] WARNING: missing content id or recipient, skipping notification")
		return
	}

	now := s.now().UTC().Format(time.RFC3339)
	id, err := s.docs.Create(ctx, store.EmailNotifications, store.Document{
		"contentId":      contentID,
		"recipientEmail": recipient,
		"status":         statusPending,
		"createdAt":      now,
		"updatedAt":      now,
		"attempts":       int64(0),
		"lastAttemptAt":  "",
		"lastError":      "",
		"type":           "content_published",
		"metadata": map[string]any{
			"contentId":      contentID,
			"recipientEmail": recipient,
		},
	})
	if err != nil {
		log.Printf("[Notify] ERROR: failed to create notification record for content %s: %v", contentID, err)
		return
	}

	if err := s.attemptDelivery(ctx, id); err != nil {
		log.Printf("[Notify] ERROR: delivery failed for notification %s: %v", id, err)
	}
}

// attemptDelivery sends the email for one pending notification record and
// updates its status.
func (s *Service) attemptDelivery(ctx context.Context, notificationID string) error {
	record, err := s.docs.Get(ctx, store.EmailNotifications, notificationID)
	if err != nil {
		return fmt.Errorf("loading notification %s: %w", notificationID, err)
	}
	if store.Str(record, "status") != statusPending {
		log.Printf("[Notify] Notification %s is not pending, skipping", notificationID)
		return nil
	}

	contentID := store.Str(record, "contentId")
	recipient := store.Str(record, "recipientEmail")

	content, err := s.docs.Get(ctx, store.ContentItems, contentID)
	if err != nil {
		s.markFailed(ctx, notificationID, fmt.Sprintf("content item %s not found", contentID))
		return fmt.Errorf("loading content %s: %w", contentID, err)
	}

	subject := store.Str(content, "subject")
	if subject == "" {
		subject = "Your content has been published!"
	}
	postURL := fmt.Sprintf("%s/post/%s", s.cfg.BaseURL, contentID)
	lat, _ := content["latitude"].(float64)
	lng, _ := content["longitude"].(float64)

	emailSubject := fmt.Sprintf("Your post on MailMap: %q has been published!", subject)
	textBody := fmt.Sprintf(
		"Hello,\n\nYour post %q has been successfully published on MailMap.\nText: %s\nCoordinates: %v, %v\nView: %s\n\nSincerely, The MailMap Team",
		subject, store.Str(content, "text"), lat, lng, postURL,
	)

	var htmlBuf bytes.Buffer
	err = emailTmpl.Execute(&htmlBuf, templateData{
		Subject:   subject,
		Text:      store.Str(content, "text"),
		ImageURL:  store.Str(content, "imageUrl"),
		Latitude:  lat,
		Longitude: lng,
		PostURL:   postURL,
	})
	if err != nil {
		log.Printf("[Notify] WARNING: template render failed, using text fallback: %v", err)
		htmlBuf.Reset()
		htmlBuf.WriteString("<p>")
		template.HTMLEscape(&htmlBuf, []byte(textBody))
		htmlBuf.WriteString("</p>")
	}

	sendCtx := ctx
	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout())
		defer cancel()
	}

	if err := s.sender.Send(sendCtx, recipient, emailSubject, textBody, htmlBuf.String()); err != nil {
		s.markFailed(ctx, notificationID, err.Error())
		return err
	}

	now := s.now().UTC().Format(time.RFC3339)
	err = s.docs.Update(ctx, store.EmailNotifications, notificationID, store.Document{
		"status":        statusSent,
		"updatedAt":     now,
		"lastAttemptAt": now,
	})
	if err != nil {
		log.Printf("[Notify] WARNING: failed to mark notification %s sent: %v", notificationID, err)
	}
	if err := s.docs.Increment(ctx, store.EmailNotifications, notificationID, "attempts", 1); err != nil {
		log.Printf("[Notify] WARNING: failed to bump attempts on %s: %v", notificationID, err)
	}

	err = s.docs.Update(ctx, store.ContentItems, contentID, store.Document{
		"notificationSent":   true,
		"notificationSentAt": now,
	})
	if err != nil {
		log.Printf("[Notify] WARNING: failed to flag content %s as notified: %v", contentID, err)
	}

	log.Printf("[Notify] Notification %s sent to %s", notificationID, recipient)
	return nil
}

func (s *Service) markFailed(ctx context.Context, notificationID, reason string) {
	now := s.now().UTC().Format(time.RFC3339)
	err := s.docs.Update(ctx, store.EmailNotifications, notificationID, store.Document{
		"status":        statusFailed,
		"lastError":     reason,
		"updatedAt":     now,
		"lastAttemptAt": now,
	})
	if err != nil {
		log.Printf("[Notify] WARNING: failed to mark notification %s failed: %v", notificationID, err)
	}
	if err := s.docs.Increment(ctx, store.EmailNotifications, notificationID, "attempts", 1); err != nil {
		log.Printf("[Notify] WARNING: failed to bump attempts on %s: %v", notificationID, err)
	}
}
