package email

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.io/infrasutra/emailsync/internal/codec"
	"github.io/infrasutra/emailsync/internal/convert"
	"github.io/infrasutra/emailsync/internal/htmlutil"
)

// Parse flattens a message's part tree into a single Email record.
//
// The traversal uses a flat work queue seeded with the root part;
// children of each dequeued part are appended to the back. A single
// "headers in scope" binding starts as the root's headers and is
// reassigned to each subsequently dequeued part's headers. Disposition
// sniffing for the attachment check reads that binding, so in a mixed
// dequeue/enqueue order a leaf can be classified under a sibling's
// headers. This mirrors the long-standing traversal behavior the rest
// of the pipeline was tuned against; see DESIGN.md before changing it.
//
// Parse never fails: undecodable payloads and absent fields degrade to
// empty values.
func Parse(msg *Message) Email {
	e := Email{
		Meta:        Meta{InternalDate: -1},
		Headers:     map[string]string{},
		Attachments: []Attachment{},
	}
	if msg == nil {
		return e
	}

	e.ID = msg.ID
	e.Meta.ThreadID = msg.ThreadID
	e.Meta.HistoryID = msg.HistoryID
	if msg.InternalDate != "" {
		if millis, err := strconv.ParseInt(msg.InternalDate, 10, 64); err == nil {
			e.Meta.InternalDate = millis
		}
	}
	e.Snippet = msg.Snippet
	e.LabelIDs = msg.LabelIDs

	root := msg.Payload
	if root == nil {
		return e
	}
	e.Headers = headerMap(root.Headers)

	queue := []*Part{root}
	scope := e.Headers
	rootSeen := false

	for len(queue) > 0 {
		part := queue[0]
		queue = queue[1:]
		if part == nil {
			continue
		}
		if len(part.Parts) > 0 {
			queue = append(queue, part.Parts...)
		}
		if rootSeen {
			scope = headerMap(part.Headers)
		}
		rootSeen = true

		if part.Body == nil {
			continue
		}

		isHTML := strings.Contains(part.MimeType, "text/html")
		isPlain := strings.Contains(part.MimeType, "text/plain")
		isAttachment := part.Body.AttachmentID != "" ||
			strings.Contains(strings.ToLower(scope["content-disposition"]), "attachment")

		switch {
		case isHTML && !isAttachment:
			e.Hash = contentHash(part.Body.Data)
			decoded := codec.DecodeText(part.Body.Data)
			e.TextHTML = htmlutil.StripStyleBlocks(decoded)
			e.TextMarkdown = convert.ToMarkdown(decoded)
		case isPlain && !isAttachment:
			e.TextPlain = codec.DecodeText(part.Body.Data)
		case isAttachment:
			own := headerMap(part.Headers)
			e.Attachments = append(e.Attachments, Attachment{
				Filename:     part.Filename,
				MimeType:     part.MimeType,
				Size:         part.Body.Size,
				AttachmentID: part.Body.AttachmentID,
				Headers:      own,
				ContentID:    contentID(own),
			})
		}
	}

	return e
}

// EmbeddedAttachments splits the attachment list by whether each
// attachment's content ID is referenced from the HTML body.
func EmbeddedAttachments(e Email) (embedded, standalone []Attachment) {
	referenced := map[string]struct{}{}
	for _, id := range convert.EmbeddedContentIDs(e.TextHTML) {
		referenced[id] = struct{}{}
	}
	for _, att := range e.Attachments {
		if att.ContentID != "" {
			if _, ok := referenced[att.ContentID]; ok {
				embedded = append(embedded, att)
				continue
			}
		}
		standalone = append(standalone, att)
	}
	return embedded, standalone
}

// headerMap lowercases names into a single-valued map; on duplicate
// names the last one in traversal order wins.
func headerMap(headers []Header) map[string]string {
	result := map[string]string{}
	for _, h := range headers {
		result[strings.ToLower(h.Name)] = h.Value
	}
	return result
}

// contentID prefers the x-attachment-id header and falls back to a
// content-id header with its angle brackets trimmed.
func contentID(headers map[string]string) string {
	if id := headers["x-attachment-id"]; id != "" {
		return id
	}
	if id := headers["content-id"]; id != "" {
		return strings.Trim(id, "<>")
	}
	return ""
}

// contentHash fingerprints the raw encoded payload for change
// detection across sync runs.
func contentHash(encoded string) string {
	sum := sha256.Sum256([]byte(encoded))
	return hex.EncodeToString(sum[:])
}
