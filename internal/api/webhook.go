package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/ignite/mailmap-inbound/internal/ingest"
)

// maxBodyBytes bounds the webhook payload. Postmark caps inbound messages
// well below this, so hitting the limit means a misbehaving caller.
const maxBodyBytes = 64 * 1024 * 1024

// postmarkInbound mirrors the subset of the Postmark inbound webhook
// payload this service consumes.
type postmarkInbound struct {
	From     string `json:"From"`
	FromFull struct {
		Email string `json:"Email"`
	} `json:"FromFull"`
	Subject     string `json:"Subject"`
	TextBody    string `json:"TextBody"`
	HTMLBody    string `json:"HtmlBody"`
	Attachments []struct {
		Name        string `json:"Name"`
		ContentType string `json:"ContentType"`
		Content     string `json:"Content"`
	} `json:"Attachments"`
}

// InboundProcessor ingests one inbound message.
type InboundProcessor interface {
	Process(ctx context.Context, msg ingest.InboundMessage) ingest.Result
}

// WebhookHandler receives Postmark inbound webhooks and hands them to the
// ingestion pipeline.
type WebhookHandler struct {
	auth     *TokenAuthenticator
	pipeline InboundProcessor
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(auth *TokenAuthenticator, pipeline InboundProcessor) *WebhookHandler {
	return &WebhookHandler{auth: auth, pipeline: pipeline}
}

// HandleInbound processes one inbound email webhook. Processing errors on
// individual attachments never fail the request; only auth and malformed
// payloads are rejected.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			// The panic value stays in the logs; callers get nothing that
			// could leak internals.
			log.Printf("[Webhook] ERROR: panic while processing inbound mail: %v", rec)
			respondJSON(w, http.StatusInternalServerError, map[string]any{
				"status":  "error",
				"message": "Internal server error",
			})
		}
	}()

	token := r.URL.Query().Get("token")
	if !h.auth.Authenticate(token) {
		log.Printf("[Webhook] WARNING: invalid token on inbound webhook from %s", r.RemoteAddr)
		respondJSON(w, http.StatusUnauthorized, map[string]any{
			"status":  "error",
			"message": "Invalid token",
		})
		return
	}

	var payload postmarkInbound
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		log.Printf("[Webhook] WARNING: malformed inbound payload: %v", err)
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"message": "Invalid JSON payload",
		})
		return
	}

	sender := payload.FromFull.Email
	if sender == "" {
		sender = payload.From
	}
	if sender == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"message": "Sender email not found",
		})
		return
	}

	msg := ingest.InboundMessage{
		Sender:   sender,
		Subject:  payload.Subject,
		TextBody: payload.TextBody,
		HTMLBody: payload.HTMLBody,
	}
	for _, att := range payload.Attachments {
		msg.Attachments = append(msg.Attachments, ingest.Attachment{
			Name:        att.Name,
			ContentType: att.ContentType,
			Content:     att.Content,
		})
	}

	result := h.pipeline.Process(r.Context(), msg)

	body := map[string]any{
		"status":  result.Status,
		"message": result.Message,
	}
	if result.Status != ingest.StatusError {
		body["contentIds"] = result.ContentIDs
		body["skipped_count"] = result.SkippedCount
	}
	respondJSON(w, http.StatusOK, body)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
