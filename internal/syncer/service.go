// Package syncer sequences one email at a time through the pipeline:
// fetch, parse, upload attachments, reconcile markdown, archive the
// original, create the database page, record the outcome.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/google/uuid"

	"github.io/infrasutra/emailsync/internal/codec"
	"github.io/infrasutra/emailsync/internal/drive"
	"github.io/infrasutra/emailsync/internal/email"
	"github.io/infrasutra/emailsync/internal/gmail"
	"github.io/infrasutra/emailsync/internal/notion"
	"github.io/infrasutra/emailsync/internal/store"
)

// StreamTopic is the hub topic sync progress events are published on.
const StreamTopic = "sync"

// nowFunc is swapped out in tests.
var nowFunc = time.Now

// Mailbox is the slice of the Gmail client the syncer depends on.
type Mailbox interface {
	Labels(ctx context.Context) ([]gmail.Label, error)
	MessageIDsForLabel(ctx context.Context, labelID string) ([]gmail.MessageRef, error)
	MessageByID(ctx context.Context, id string) (*email.Message, error)
	AttachmentData(ctx context.Context, messageID, attachmentID string) (*email.AttachmentData, error)
	RawMessage(ctx context.Context, id string) ([]byte, error)
}

// Documents creates records in the destination database.
type Documents interface {
	CreatePage(ctx context.Context, databaseID string, props []notion.PropValue, markdown string) (*notion.Page, error)
}

// Storage uploads files and resolves shareable links.
type Storage interface {
	UploadToFolder(ctx context.Context, file drive.File, folderID string) (string, error)
	ShareableLink(ctx context.Context, fileID string) (string, error)
}

// History records sync outcomes for change detection.
type History interface {
	SyncRecordFor(ctx context.Context, messageID string) (*store.SyncRecord, error)
	RecordSync(ctx context.Context, record store.SyncRecord) error
}

// Notifier fans progress events out to stream subscribers.
type Notifier interface {
	Broadcast(topic string, payload []byte)
}

// Options carry the deployment targets the pipeline writes to.
type Options struct {
	EmailsDBID          string
	AttachmentsFolderID string
	MessagesFolderID    string
	SyncLabel           string
}

type Service struct {
	mailbox Mailbox
	docs    Documents
	files   Storage
	history History
	events  Notifier
	opts    Options
	logger  *slog.Logger
}

func New(mailbox Mailbox, docs Documents, files Storage, history History, events Notifier, opts Options, logger *slog.Logger) *Service {
	return &Service{
		mailbox: mailbox,
		docs:    docs,
		files:   files,
		history: history,
		events:  events,
		opts:    opts,
		logger:  logger,
	}
}

// SyncResult is the outcome for one message.
type SyncResult struct {
	MessageID   string `json:"messageId"`
	PageURL     string `json:"pageUrl"`
	ArchiveURL  string `json:"archiveUrl"`
	Attachments int    `json:"attachments"`
	Skipped     bool   `json:"skipped"`
}

// SyncSummary aggregates one label-wide run. Per-message failures are
// logged and counted; they never abort the batch.
type SyncSummary struct {
	RunID   string `json:"runId"`
	Label   string `json:"label"`
	Synced  int    `json:"synced"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// EmailsByLabelName fetches and parses every message bearing the
// label, newest first. An unknown label yields an empty slice.
func (s *Service) EmailsByLabelName(ctx context.Context, labelName string) ([]email.Email, error) {
	labelID, err := s.labelIDByName(ctx, labelName)
	if err != nil {
		return nil, err
	}
	if labelID == "" {
		s.logger.Info("no label with name", "label", labelName)
		return []email.Email{}, nil
	}

	refs, err := s.mailbox.MessageIDsForLabel(ctx, labelID)
	if err != nil {
		return nil, err
	}

	emails := make([]email.Email, 0, len(refs))
	for _, ref := range refs {
		msg, err := s.mailbox.MessageByID(ctx, ref.ID)
		if err != nil {
			s.logger.Error("fetch message", "id", ref.ID, "error", err)
			continue
		}
		if msg == nil {
			continue
		}
		emails = append(emails, email.Parse(msg))
	}

	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].Meta.InternalDate > emails[j].Meta.InternalDate
	})
	return emails, nil
}

// Attachment resolves one attachment payload. Missing IDs yield
// (nil, nil).
func (s *Service) Attachment(ctx context.Context, messageID, attachmentID string) (*email.AttachmentData, error) {
	if messageID == "" || attachmentID == "" {
		return nil, nil
	}
	return s.mailbox.AttachmentData(ctx, messageID, attachmentID)
}

// SyncEmail runs the pipeline for a single message under a fresh run
// ID. A nil result with nil error means the message does not exist.
func (s *Service) SyncEmail(ctx context.Context, messageID string) (*SyncResult, error) {
	return s.syncOne(ctx, uuid.NewString(), messageID)
}

// SyncConfiguredLabel syncs the label the deployment watches.
func (s *Service) SyncConfiguredLabel(ctx context.Context) (*SyncSummary, error) {
	return s.SyncLabel(ctx, s.opts.SyncLabel)
}

// SyncLabel syncs every message currently bearing the label, one at a
// time. A failed message is logged and counted, and the run moves on.
func (s *Service) SyncLabel(ctx context.Context, labelName string) (*SyncSummary, error) {
	summary := &SyncSummary{RunID: uuid.NewString(), Label: labelName}

	labelID, err := s.labelIDByName(ctx, labelName)
	if err != nil {
		return nil, err
	}
	if labelID == "" {
		s.logger.Info("no label with name", "label", labelName)
		return summary, nil
	}

	refs, err := s.mailbox.MessageIDsForLabel(ctx, labelID)
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		result, err := s.syncOne(ctx, summary.RunID, ref.ID)
		switch {
		case err != nil:
			summary.Failed++
			s.logger.Error("sync message", "id", ref.ID, "error", err)
			s.publish("failed", ref.ID, nil)
		case result == nil:
			summary.Failed++
			s.logger.Warn("message vanished during sync", "id", ref.ID)
		case result.Skipped:
			summary.Skipped++
		default:
			summary.Synced++
		}
	}

	s.logger.Info("label sync complete", "label", labelName,
		"synced", summary.Synced, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

func (s *Service) syncOne(ctx context.Context, runID, messageID string) (*SyncResult, error) {
	msg, err := s.mailbox.MessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}
	parsed := email.Parse(msg)
	s.publish("parsing", messageID, nil)

	prior, err := s.history.SyncRecordFor(ctx, messageID)
	if err != nil {
		s.logger.Error("read sync history", "id", messageID, "error", err)
	}
	if prior != nil && parsed.Hash != "" && prior.Hash == parsed.Hash {
		s.publish("skipped", messageID, nil)
		return &SyncResult{
			MessageID:   messageID,
			PageURL:     prior.PageURL,
			ArchiveURL:  prior.ArchiveURL,
			Attachments: prior.AttachmentCount,
			Skipped:     true,
		}, nil
	}

	links, err := s.uploadAttachments(ctx, parsed)
	if err != nil {
		return nil, err
	}
	markdown := email.Reconcile(parsed.TextMarkdown, links)

	// Archival is best-effort: a page without an original-message link
	// is still worth creating.
	parsed.ArchiveURL = s.archiveMessage(ctx, parsed)

	page, err := s.docs.CreatePage(ctx, s.opts.EmailsDBID, email.DBProps(parsed), markdown)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		MessageID:   messageID,
		PageURL:     page.URL,
		ArchiveURL:  parsed.ArchiveURL,
		Attachments: len(links),
	}
	record := store.SyncRecord{
		MessageID:       messageID,
		RunID:           runID,
		Hash:            parsed.Hash,
		PageURL:         page.URL,
		ArchiveURL:      parsed.ArchiveURL,
		AttachmentCount: len(links),
		SyncedAt:        nowFunc(),
	}
	if err := s.history.RecordSync(ctx, record); err != nil {
		s.logger.Error("record sync", "id", messageID, "error", err)
	}
	s.publish("synced", messageID, result)
	return result, nil
}

// uploadAttachments pushes every fetchable attachment into the
// attachments folder and pairs it with its resolved link. Any failed
// fetch or upload aborts this email's sync.
func (s *Service) uploadAttachments(ctx context.Context, parsed email.Email) ([]email.AttachmentLink, error) {
	links := make([]email.AttachmentLink, 0, len(parsed.Attachments))
	for _, att := range parsed.Attachments {
		if att.AttachmentID == "" {
			s.logger.Warn("attachment without reference", "message", parsed.ID, "filename", att.Filename)
			continue
		}
		data, err := s.mailbox.AttachmentData(ctx, parsed.ID, att.AttachmentID)
		if err != nil {
			return nil, fmt.Errorf("fetch attachment %s: %w", att.Filename, err)
		}
		if data == nil {
			return nil, fmt.Errorf("attachment %s not found", att.Filename)
		}
		raw, err := codec.DecodeBytes(data.Data)
		if err != nil {
			return nil, fmt.Errorf("decode attachment %s: %w", att.Filename, err)
		}

		fileID, err := s.files.UploadToFolder(ctx, drive.File{
			Data:     raw,
			Filename: att.Filename,
			MimeType: att.MimeType,
		}, s.opts.AttachmentsFolderID)
		if err != nil {
			return nil, fmt.Errorf("upload attachment %s: %w", att.Filename, err)
		}
		url, err := s.files.ShareableLink(ctx, fileID)
		if err != nil {
			return nil, fmt.Errorf("link attachment %s: %w", att.Filename, err)
		}
		links = append(links, email.AttachmentLink{
			Filename:  att.Filename,
			URL:       url,
			ContentID: att.ContentID,
		})
	}
	return links, nil
}

// archiveMessage uploads the raw RFC 822 message into the messages
// folder and returns its link, or "" when any step fails.
func (s *Service) archiveMessage(ctx context.Context, parsed email.Email) string {
	raw, err := s.mailbox.RawMessage(ctx, parsed.ID)
	if err != nil || len(raw) == 0 {
		if err != nil {
			s.logger.Error("fetch raw message", "id", parsed.ID, "error", err)
		}
		return ""
	}

	fileID, err := s.files.UploadToFolder(ctx, drive.File{
		Data:     raw,
		Filename: archiveFilename(raw, parsed.ID),
		MimeType: "message/rfc822",
	}, s.opts.MessagesFolderID)
	if err != nil {
		s.logger.Error("upload raw message", "id", parsed.ID, "error", err)
		return ""
	}
	url, err := s.files.ShareableLink(ctx, fileID)
	if err != nil {
		s.logger.Error("link raw message", "id", parsed.ID, "error", err)
		return ""
	}
	return url
}

// archiveFilename derives the .eml name from the message's Subject
// header, falling back to the message ID.
func archiveFilename(raw []byte, messageID string) string {
	name := messageID
	if entity, err := message.Read(bytes.NewReader(raw)); err == nil && entity != nil {
		if subject := strings.TrimSpace(entity.Header.Get("Subject")); subject != "" {
			name = subject
		}
	}
	return sanitizeFilename(name) + ".eml"
}

// sanitizeFilename keeps names Drive and local filesystems agree on.
func sanitizeFilename(name string) string {
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		default:
			return r
		}
	}, name)
	replaced = strings.TrimSpace(replaced)
	if replaced == "" {
		return "unnamed"
	}
	if len(replaced) > 120 {
		replaced = replaced[:120]
	}
	return replaced
}

func (s *Service) publish(stage, messageID string, result *SyncResult) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"stage":     stage,
		"messageId": messageID,
		"result":    result,
	})
	if err != nil {
		return
	}
	s.events.Broadcast(StreamTopic, payload)
}

func (s *Service) labelIDByName(ctx context.Context, name string) (string, error) {
	labels, err := s.mailbox.Labels(ctx)
	if err != nil {
		return "", err
	}
	for _, label := range labels {
		if label.Name == name {
			return label.ID, nil
		}
	}
	return "", nil
}
