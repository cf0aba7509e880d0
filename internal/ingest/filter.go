package ingest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"log"
	"path"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Filter decides whether an attachment is eligible for ingestion. The
// declared-metadata check is cheap and runs before the quota gate; base64
// decoding and the size cap run after it.
type Filter struct {
	allowed map[string]struct{}
	maxSize int64
}

// NewFilter builds a filter from the configured extension allow-list
// (case-insensitive) and the maximum decoded payload size in bytes.
func NewFilter(extensions []string, maxSize int64) *Filter {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &Filter{allowed: allowed, maxSize: maxSize}
}

// Check validates an attachment's declared metadata. A non-nil error names
// the reason the attachment is ineligible.
func (f *Filter) Check(att Attachment) error {
	if !strings.HasPrefix(att.ContentType, "image/") {
		return fmt.Errorf("content type %q is not an image", att.ContentType)
	}
	if att.Name == "" {
		return fmt.Errorf("attachment has no filename")
	}
	ext := extension(att.Name)
	if ext == "" {
		return fmt.Errorf("filename %q has no extension", att.Name)
	}
	if _, ok := f.allowed[ext]; !ok {
		return fmt.Errorf("unsupported file extension %q", ext)
	}
	return nil
}

// Decode base64-decodes the payload and enforces the size cap. Decoding
// failure is terminal for the attachment, never for the batch.
func (f *Filter) Decode(att Attachment) ([]byte, error) {
	// Rough encoded-length bound so oversized payloads are refused before
	// allocating the decoded buffer.
	if f.maxSize > 0 && int64(len(att.Content))/4*3 > f.maxSize+3 {
		return nil, fmt.Errorf("payload exceeds maximum size %d bytes", f.maxSize)
	}

	data, err := base64.StdEncoding.DecodeString(att.Content)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 payload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}
	if f.maxSize > 0 && int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("payload is %d bytes, exceeds maximum %d", len(data), f.maxSize)
	}

	// Non-fatal probe: dimensions for the logs, and early warning about
	// payloads that merely claim to be images. Files some decoders cannot
	// parse may still carry readable EXIF, so processing continues.
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		log.Printf("[Ingest] Attachment %q decoded: %s %dx%d, %d bytes", att.Name, format, cfg.Width, cfg.Height, len(data))
	} else {
		log.Printf("[Ingest] WARNING: attachment %q is not a recognized image format: %v", att.Name, err)
	}

	return data, nil
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}
