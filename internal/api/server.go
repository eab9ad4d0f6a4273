package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.io/infrasutra/emailsync/internal/auth"
	"github.io/infrasutra/emailsync/internal/email"
	"github.io/infrasutra/emailsync/internal/pagination"
	"github.io/infrasutra/emailsync/internal/sse"
	"github.io/infrasutra/emailsync/internal/store"
	"github.io/infrasutra/emailsync/internal/syncer"
)

type Server struct {
	svc      *syncer.Service
	store    *store.Store
	verifier *auth.Verifier
	hub      *sse.Hub
	logger   *slog.Logger
	mux      *http.ServeMux
}

func NewServer(svc *syncer.Service, st *store.Store, verifier *auth.Verifier, hub *sse.Hub, logger *slog.Logger) *Server {
	server := &Server{
		svc:      svc,
		store:    st,
		verifier: verifier,
		hub:      hub,
		logger:   logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/emails/label/", server.handleLabel)
	mux.HandleFunc("/api/emails/message/", server.handleMessage)
	mux.HandleFunc("/api/emails/", server.handleEmailSync)
	mux.HandleFunc("/api/sync", server.handleDefaultSync)
	mux.HandleFunc("/api/syncs/recent", server.handleRecentSyncs)
	mux.HandleFunc("/api/stream", server.handleStream)
	server.mux = mux
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if strings.HasPrefix(path, "/api/") {
		if _, err := s.callerEmail(r); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.mux.ServeHTTP(w, r)
		return
	}
	if path == "/health" {
		s.respondText(w, http.StatusOK, "ok")
		return
	}
	if path == "/ready" {
		s.respondText(w, http.StatusOK, "ready")
		return
	}
	http.NotFound(w, r)
}

// handleLabel serves /api/emails/label/{name} and
// /api/emails/label/{name}/sync.
func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/emails/label/")
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	labelName := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleLabelList(w, r, labelName)
		return
	}

	if len(parts) == 2 && parts[1] == "sync" {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		summary, err := s.svc.SyncLabel(r.Context(), labelName)
		if err != nil {
			s.logger.Error("sync label", "label", labelName, "error", err)
			http.Error(w, "unable to sync label", http.StatusBadGateway)
			return
		}
		s.respondJSON(w, http.StatusOK, summary)
		return
	}

	http.NotFound(w, r)
}

func (s *Server) handleLabelList(w http.ResponseWriter, r *http.Request, labelName string) {
	emails, err := s.svc.EmailsByLabelName(r.Context(), labelName)
	if err != nil {
		s.logger.Error("list emails", "label", labelName, "error", err)
		http.Error(w, "unable to list emails", http.StatusBadGateway)
		return
	}

	params := pagination.FromQuery(r.URL.Query())
	if params.Sort == "oldest" {
		for i, j := 0, len(emails)-1; i < j; i, j = i+1, j-1 {
			emails[i], emails[j] = emails[j], emails[i]
		}
	}
	total := int32(len(emails))
	start, end := pagination.Window(params.Offset, params.Limit, total)

	response := struct {
		Emails  []emailPayload `json:"emails"`
		Page    int32          `json:"page"`
		Limit   int32          `json:"limit"`
		Total   int32          `json:"total"`
		HasNext bool           `json:"hasNext"`
	}{
		Emails:  make([]emailPayload, 0, end-start),
		Page:    params.Page,
		Limit:   params.Limit,
		Total:   total,
		HasNext: pagination.HasNext(params.Offset, params.Limit, total),
	}
	for _, e := range emails[start:end] {
		response.Emails = append(response.Emails, toPayload(e))
	}
	s.respondJSON(w, http.StatusOK, response)
}

// handleMessage serves
// /api/emails/message/{messageId}/attachment/{attachmentId}.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/emails/message/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "attachment" || parts[0] == "" || parts[2] == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := s.svc.Attachment(r.Context(), parts[0], parts[2])
	if err != nil {
		s.logger.Error("fetch attachment", "message", parts[0], "error", err)
		http.Error(w, "unable to fetch attachment", http.StatusBadGateway)
		return
	}
	if data == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, data)
}

// handleEmailSync serves /api/emails/{messageId}/sync.
func (s *Server) handleEmailSync(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/emails/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "sync" || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.svc.SyncEmail(r.Context(), parts[0])
	if err != nil {
		s.logger.Error("sync email", "id", parts[0], "error", err)
		http.Error(w, "unable to sync email", http.StatusBadGateway)
		return
	}
	if result == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleDefaultSync runs a sync of the configured label.
func (s *Server) handleDefaultSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summary, err := s.svc.SyncConfiguredLabel(r.Context())
	if err != nil {
		s.logger.Error("sync configured label", "error", err)
		http.Error(w, "unable to sync label", http.StatusBadGateway)
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRecentSyncs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var limit int32
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = int32(parsed)
		}
	}
	records, err := s.store.RecentSyncs(r.Context(), limit)
	if err != nil {
		s.logger.Error("list recent syncs", "error", err)
		http.Error(w, "unable to list syncs", http.StatusInternalServerError)
		return
	}
	payload := make([]syncRecordPayload, 0, len(records))
	for _, record := range records {
		payload = append(payload, syncRecordPayload{
			MessageID:       record.MessageID,
			RunID:           record.RunID,
			Hash:            record.Hash,
			PageURL:         record.PageURL,
			ArchiveURL:      record.ArchiveURL,
			AttachmentCount: record.AttachmentCount,
			SyncedAt:        record.SyncedAt.UTC().Format(time.RFC3339),
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"syncs": payload})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.hub.Subscribe(syncer.StreamTopic)
	defer unsubscribe()

	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		}
	}
}

func (s *Server) callerEmail(r *http.Request) (string, error) {
	token := strings.TrimSpace(r.Header.Get(auth.HeaderName))
	if token == "" {
		return "", errors.New("missing token")
	}
	return s.verifier.Verify(r.Context(), token)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) respondText(w http.ResponseWriter, status int, payload string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(payload))
}

type emailPayload struct {
	ID           string              `json:"id"`
	ThreadID     string              `json:"threadId"`
	HistoryID    string              `json:"historyId"`
	InternalDate int64               `json:"internalDate"`
	LabelIDs     []string            `json:"labelIds"`
	Snippet      string              `json:"snippet"`
	Hash         string              `json:"hash"`
	Headers      map[string]string   `json:"headers"`
	Attachments  []attachmentPayload `json:"attachments"`
	TextPlain    string              `json:"textPlain"`
	TextHTML     string              `json:"textHtml"`
	TextMarkdown string              `json:"textMarkdown"`
}

type syncRecordPayload struct {
	MessageID       string `json:"messageId"`
	RunID           string `json:"runId"`
	Hash            string `json:"hash"`
	PageURL         string `json:"pageUrl"`
	ArchiveURL      string `json:"archiveUrl"`
	AttachmentCount int    `json:"attachmentCount"`
	SyncedAt        string `json:"syncedAt"`
}

type attachmentPayload struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachmentId"`
	ContentID    string `json:"contentId,omitempty"`
}

func toPayload(e email.Email) emailPayload {
	attachments := make([]attachmentPayload, 0, len(e.Attachments))
	for _, att := range e.Attachments {
		attachments = append(attachments, attachmentPayload{
			Filename:     att.Filename,
			MimeType:     att.MimeType,
			Size:         att.Size,
			AttachmentID: att.AttachmentID,
			ContentID:    att.ContentID,
		})
	}
	return emailPayload{
		ID:           e.ID,
		ThreadID:     e.Meta.ThreadID,
		HistoryID:    e.Meta.HistoryID,
		InternalDate: e.Meta.InternalDate,
		LabelIDs:     e.LabelIDs,
		Snippet:      e.Snippet,
		Hash:         e.Hash,
		Headers:      e.Headers,
		Attachments:  attachments,
		TextPlain:    e.TextPlain,
		TextHTML:     e.TextHTML,
		TextMarkdown: e.TextMarkdown,
	}
}
