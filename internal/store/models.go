package store

import "time"

// SyncRecord is the durable outcome of one successful message sync.
// Hash fingerprints the message body at sync time; a matching hash on
// a later run means the destination page is current and the message
// can be skipped.
type SyncRecord struct {
	MessageID       string
	RunID           string
	Hash            string
	PageURL         string
	ArchiveURL      string
	AttachmentCount int
	SyncedAt        time.Time
}
