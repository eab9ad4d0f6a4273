// Package gmail wraps the Gmail API for the sync service: label
// lookup, message listing and retrieval, attachment payloads, and raw
// message export. Lookups that find nothing return nil values rather
// than errors; callers check and skip.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.io/infrasutra/emailsync/internal/codec"
	"github.io/infrasutra/emailsync/internal/email"
)

const user = "me"

// Credentials is the authorized-user grant the service runs under.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Label identifies one mailbox label.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MessageRef points at one message in a label listing.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

type Client struct {
	srv    *gmailapi.Service
	logger *slog.Logger
}

func NewClient(ctx context.Context, creds Credentials, logger *slog.Logger) (*Client, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailReadonlyScope},
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Client{srv: srv, logger: logger}, nil
}

// Labels lists every label in the mailbox.
func (c *Client) Labels(ctx context.Context) ([]Label, error) {
	res, err := c.srv.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	labels := make([]Label, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, Label{ID: l.Id, Name: l.Name})
	}
	return labels, nil
}

// MessageIDsForLabel lists the messages currently bearing the label.
func (c *Client) MessageIDsForLabel(ctx context.Context, labelID string) ([]MessageRef, error) {
	res, err := c.srv.Users.Messages.List(user).LabelIds(labelID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list messages for label %s: %w", labelID, err)
	}
	refs := make([]MessageRef, 0, len(res.Messages))
	for _, m := range res.Messages {
		refs = append(refs, MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return refs, nil
}

// MessageByID fetches the full message and maps its part tree onto the
// parser's model. A missing message yields (nil, nil).
func (c *Client) MessageByID(ctx context.Context, id string) (*email.Message, error) {
	res, err := c.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if isNotFound(err) {
		c.logger.Info("no message with id", "id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return &email.Message{
		ID:           res.Id,
		ThreadID:     res.ThreadId,
		LabelIDs:     res.LabelIds,
		Snippet:      res.Snippet,
		HistoryID:    strconv.FormatUint(res.HistoryId, 10),
		InternalDate: formatInternalDate(res.InternalDate),
		Payload:      mapPart(res.Payload),
	}, nil
}

// AttachmentData fetches an attachment payload. The wire uses the
// URL-safe base64 alphabet; the returned data is normalized to the
// standard alphabet for downstream decoding.
func (c *Client) AttachmentData(ctx context.Context, messageID, attachmentID string) (*email.AttachmentData, error) {
	res, err := c.srv.Users.Messages.Attachments.Get(user, messageID, attachmentID).Context(ctx).Do()
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment %s of message %s: %w", attachmentID, messageID, err)
	}
	data := strings.ReplaceAll(res.Data, "-", "+")
	data = strings.ReplaceAll(data, "_", "/")
	return &email.AttachmentData{Size: res.Size, Data: data}, nil
}

// RawMessage fetches the message in RFC 822 form for archival.
func (c *Client) RawMessage(ctx context.Context, id string) ([]byte, error) {
	res, err := c.srv.Users.Messages.Get(user, id).Format("raw").Context(ctx).Do()
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get raw message %s: %w", id, err)
	}
	if res.Raw == "" {
		return nil, nil
	}
	raw, err := codec.DecodeBytes(res.Raw)
	if err != nil {
		return nil, fmt.Errorf("decode raw message %s: %w", id, err)
	}
	return raw, nil
}

// isNotFound reports whether the API rejected the lookup with a 404.
// Absent entities are a result, not an error, for this client.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func mapPart(part *gmailapi.MessagePart) *email.Part {
	if part == nil {
		return nil
	}
	mapped := &email.Part{
		PartID:   part.PartId,
		MimeType: part.MimeType,
		Filename: part.Filename,
	}
	for _, h := range part.Headers {
		mapped.Headers = append(mapped.Headers, email.Header{Name: h.Name, Value: h.Value})
	}
	if part.Body != nil {
		mapped.Body = &email.Body{
			Size:         part.Body.Size,
			Data:         part.Body.Data,
			AttachmentID: part.Body.AttachmentId,
		}
	}
	for _, child := range part.Parts {
		mapped.Parts = append(mapped.Parts, mapPart(child))
	}
	return mapped
}

func formatInternalDate(millis int64) string {
	if millis == 0 {
		return ""
	}
	return strconv.FormatInt(millis, 10)
}
