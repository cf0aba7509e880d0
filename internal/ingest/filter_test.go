package ingest

import (
	"encoding/base64"
	"strings"
	"testing"
)

func defaultFilter() *Filter {
	return NewFilter([]string{"jpg", "jpeg", "png", "gif", "webp"}, 10*1024*1024)
}

func TestFilterCheck(t *testing.T) {
	f := defaultFilter()

	tests := []struct {
		name    string
		att     Attachment
		wantErr string
	}{
		{"valid jpeg", Attachment{Name: "photo.jpg", ContentType: "image/jpeg"}, ""},
		{"uppercase extension", Attachment{Name: "PHOTO.JPG", ContentType: "image/jpeg"}, ""},
		{"valid webp", Attachment{Name: "pic.webp", ContentType: "image/webp"}, ""},
		{"not an image", Attachment{Name: "doc.pdf", ContentType: "application/pdf"}, "not an image"},
		{"no filename", Attachment{Name: "", ContentType: "image/jpeg"}, "no filename"},
		{"no extension", Attachment{Name: "photo", ContentType: "image/jpeg"}, "no extension"},
		{"disallowed extension", Attachment{Name: "vector.svg", ContentType: "image/svg+xml"}, "unsupported file extension"},
		{"spoofed content type", Attachment{Name: "script.exe", ContentType: "image/jpeg"}, "unsupported file extension"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.Check(tt.att)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Check() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Check() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFilterCheckDottedExtensionConfig(t *testing.T) {
	// Extensions may be configured with or without the leading dot.
	f := NewFilter([]string{".jpg", "PNG"}, 0)

	if err := f.Check(Attachment{Name: "a.jpg", ContentType: "image/jpeg"}); err != nil {
		t.Errorf("Check(.jpg config) = %v", err)
	}
	if err := f.Check(Attachment{Name: "b.png", ContentType: "image/png"}); err != nil {
		t.Errorf("Check(PNG config) = %v", err)
	}
}

func TestFilterDecode(t *testing.T) {
	f := defaultFilter()

	payload := []byte{0x47, 0x49, 0x46, 0x38}
	data, err := f.Decode(Attachment{
		Name:        "a.gif",
		ContentType: "image/gif",
		Content:     base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("Decode() returned %v, want %v", data, payload)
	}
}

func TestFilterDecodeBadBase64(t *testing.T) {
	f := defaultFilter()

	_, err := f.Decode(Attachment{Name: "a.jpg", Content: "!!!not base64!!!"})
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFilterDecodeEmpty(t *testing.T) {
	f := defaultFilter()

	_, err := f.Decode(Attachment{Name: "a.jpg", Content: ""})
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("Decode(empty) = %v, want empty payload error", err)
	}
}

func TestFilterDecodeOversize(t *testing.T) {
	f := NewFilter([]string{"jpg"}, 16)

	big := base64.StdEncoding.EncodeToString(make([]byte, 64))
	_, err := f.Decode(Attachment{Name: "a.jpg", Content: big})
	if err == nil || !strings.Contains(err.Error(), "size") {
		t.Fatalf("Decode(oversize) = %v, want size error", err)
	}
}

func TestFilterDecodeAtExactLimit(t *testing.T) {
	f := NewFilter([]string{"jpg"}, 16)

	exact := base64.StdEncoding.EncodeToString(make([]byte, 16))
	if _, err := f.Decode(Attachment{Name: "a.jpg", Content: exact}); err != nil {
		t.Fatalf("Decode(exactly at limit) = %v, want nil", err)
	}
}
