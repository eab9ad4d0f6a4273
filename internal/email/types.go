// Package email holds the message-part model fetched from the mailbox
// and the parser that flattens a part tree into one structured record.
package email

// Header is one name/value pair from a message or part. Names are
// case-insensitive on the wire.
type Header struct {
	Name  string
	Value string
}

// Body carries a part's payload: either inline base64url data or a
// reference resolved later through the attachment endpoint.
type Body struct {
	Size         int64
	Data         string
	AttachmentID string
}

// Part is one node of the MIME tree. Containers have children and may
// or may not carry a body; leaves carry a body.
type Part struct {
	PartID   string
	MimeType string
	Filename string
	Headers  []Header
	Body     *Body
	Parts    []*Part
}

// Message is the envelope plus the root part, as fetched.
type Message struct {
	ID           string
	ThreadID     string
	LabelIDs     []string
	Snippet      string
	HistoryID    string
	InternalDate string
	Payload      *Part
}

// Meta carries the envelope fields that survive parsing unchanged.
// InternalDate is epoch milliseconds, -1 when the field was absent.
type Meta struct {
	ThreadID     string
	HistoryID    string
	InternalDate int64
}

// Attachment describes one attachment part. ContentID is non-empty for
// parts referenced from the HTML body via cid: URIs.
type Attachment struct {
	Filename     string
	MimeType     string
	Size         int64
	AttachmentID string
	Headers      map[string]string
	ContentID    string
}

// Email is the flattened record produced by Parse. Exactly one HTML
// and one plain-text body are retained; later parts overwrite earlier
// ones. ArchiveURL is filled in by the syncer once the original
// message has been archived.
type Email struct {
	ID           string
	Meta         Meta
	LabelIDs     []string
	Snippet      string
	Hash         string
	Headers      map[string]string
	Attachments  []Attachment
	TextPlain    string
	TextHTML     string
	TextMarkdown string
	ArchiveURL   string
}

// AttachmentLink pairs an uploaded attachment with its resolved URL
// for markdown reconciliation.
type AttachmentLink struct {
	Filename  string
	URL       string
	ContentID string
}

// AttachmentData is a separately fetched attachment payload. Data is
// standard-alphabet base64 (normalized from the wire's URL-safe form).
type AttachmentData struct {
	Size int64  `json:"size"`
	Data string `json:"data"`
}
