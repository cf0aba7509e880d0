package ingest

// InboundMessage is one parsed inbound-email webhook payload. It lives for
// a single request.
type InboundMessage struct {
	Sender      string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Attachment is one raw attachment descriptor as declared by the relay.
// Every field is untrusted: the payload may not decode and the filename may
// be absent or extensionless.
type Attachment struct {
	Name        string
	ContentType string
	Content     string // base64
}
