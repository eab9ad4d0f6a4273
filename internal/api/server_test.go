package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.io/infrasutra/emailsync/internal/auth"
	"github.io/infrasutra/emailsync/internal/codec"
	"github.io/infrasutra/emailsync/internal/drive"
	"github.io/infrasutra/emailsync/internal/email"
	"github.io/infrasutra/emailsync/internal/gmail"
	"github.io/infrasutra/emailsync/internal/notion"
	"github.io/infrasutra/emailsync/internal/sse"
	"github.io/infrasutra/emailsync/internal/store"
	"github.io/infrasutra/emailsync/internal/syncer"
)

type stubMailbox struct {
	messages map[string]*email.Message
}

func (m *stubMailbox) Labels(context.Context) ([]gmail.Label, error) {
	return []gmail.Label{{ID: "L1", Name: "Newsletters"}}, nil
}

func (m *stubMailbox) MessageIDsForLabel(_ context.Context, labelID string) ([]gmail.MessageRef, error) {
	if labelID != "L1" {
		return nil, nil
	}
	refs := make([]gmail.MessageRef, 0, len(m.messages))
	for id := range m.messages {
		refs = append(refs, gmail.MessageRef{ID: id})
	}
	return refs, nil
}

func (m *stubMailbox) MessageByID(_ context.Context, id string) (*email.Message, error) {
	return m.messages[id], nil
}

func (m *stubMailbox) AttachmentData(_ context.Context, messageID, attachmentID string) (*email.AttachmentData, error) {
	if messageID == "m1" && attachmentID == "att-1" {
		return &email.AttachmentData{Size: 5, Data: codec.EncodeText("hello")}, nil
	}
	return nil, nil
}

func (m *stubMailbox) RawMessage(_ context.Context, id string) ([]byte, error) {
	return []byte("Subject: hi\r\n\r\nbody"), nil
}

type stubDocs struct{}

func (stubDocs) CreatePage(context.Context, string, []notion.PropValue, string) (*notion.Page, error) {
	return &notion.Page{ID: "p1", URL: "https://notion.example/p1"}, nil
}

type stubStorage struct{}

func (stubStorage) UploadToFolder(context.Context, drive.File, string) (string, error) {
	return "f1", nil
}

func (stubStorage) ShareableLink(_ context.Context, fileID string) (string, error) {
	return "https://drive.example/" + fileID, nil
}

func simpleMessage(id string) *email.Message {
	body := "<p>Hi there</p>"
	return &email.Message{
		ID:           id,
		ThreadID:     "t-" + id,
		InternalDate: "1700000000000",
		Payload: &email.Part{
			MimeType: "text/html",
			Headers: []email.Header{
				{Name: "Subject", Value: "Hello"},
				{Name: "From", Value: "alice@example.com"},
			},
			Body: &email.Body{Size: int64(len(body)), Data: codec.EncodeText(body)},
		},
	}
}

// newTestServer wires a real service over stub collaborators and a
// local tokeninfo endpoint.
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	tokeninfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("id_token")
		if token != "good-token" {
			http.Error(w, "invalid", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "owner@example.com"})
	}))
	t.Cleanup(tokeninfo.Close)

	logger := slog.New(slog.DiscardHandler)
	hub := sse.NewHub()
	mailbox := &stubMailbox{messages: map[string]*email.Message{
		"m1": simpleMessage("m1"),
		"m2": simpleMessage("m2"),
	}}
	ctx := context.Background()
	st, err := store.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	svc := syncer.New(mailbox, stubDocs{}, stubStorage{}, st, hub, syncer.Options{
		EmailsDBID:          "db-1",
		AttachmentsFolderID: "folder-att",
		MessagesFolderID:    "folder-msg",
		SyncLabel:           "Newsletters",
	}, logger)
	verifier := auth.NewVerifierWithEndpoint(tokeninfo.URL, "owner@example.com")

	server := NewServer(svc, st, verifier, hub, logger)
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return ts, "good-token"
}

func doRequest(t *testing.T, method, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set(auth.HeaderName, token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		resp := doRequest(t, http.MethodGet, ts.URL+path, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/emails/label/Newsletters", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without token", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/emails/label/Newsletters", "bad-token")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 with bad token", resp.StatusCode)
	}
}

func TestListEmailsByLabel(t *testing.T) {
	ts, token := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/emails/label/Newsletters", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Emails []struct {
			ID       string            `json:"id"`
			Headers  map[string]string `json:"headers"`
			TextHTML string            `json:"textHtml"`
		} `json:"emails"`
		Total   int  `json:"total"`
		HasNext bool `json:"hasNext"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 2 || len(body.Emails) != 2 {
		t.Fatalf("total = %d, emails = %d", body.Total, len(body.Emails))
	}
	if body.Emails[0].Headers["subject"] != "Hello" {
		t.Errorf("subject = %q", body.Emails[0].Headers["subject"])
	}
	if body.Emails[0].TextHTML == "" {
		t.Error("expected html body in payload")
	}
}

func TestListEmailsPagination(t *testing.T) {
	ts, token := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/emails/label/Newsletters?page=1&limit=1", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Emails  []json.RawMessage `json:"emails"`
		HasNext bool              `json:"hasNext"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Emails) != 1 {
		t.Fatalf("emails = %d, want 1", len(body.Emails))
	}
	if !body.HasNext {
		t.Fatal("expected hasNext on first of two pages")
	}
}

func TestListEmailsUnknownLabel(t *testing.T) {
	ts, token := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/emails/label/Nope", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Emails []json.RawMessage `json:"emails"`
		Total  int               `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 0 || len(body.Emails) != 0 {
		t.Fatalf("body = %+v, want empty list", body)
	}
}

func TestGetAttachment(t *testing.T) {
	ts, token := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/emails/message/m1/attachment/att-1", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Size int64  `json:"size"`
		Data string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Size != 5 || body.Data == "" {
		t.Fatalf("body = %+v", body)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/emails/message/m1/attachment/nope", token)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing attachment status = %d, want 404", resp.StatusCode)
	}
}

func TestSyncSingleEmail(t *testing.T) {
	ts, token := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/emails/m1/sync", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		MessageID string `json:"messageId"`
		PageURL   string `json:"pageUrl"`
		Skipped   bool   `json:"skipped"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.MessageID != "m1" || body.PageURL == "" || body.Skipped {
		t.Fatalf("body = %+v", body)
	}

	resp = doRequest(t, http.MethodPost, ts.URL+"/api/emails/unknown/sync", token)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown message status = %d, want 404", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/emails/m1/sync", token)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET sync status = %d, want 405", resp.StatusCode)
	}
}

func TestDefaultLabelSync(t *testing.T) {
	ts, token := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/sync", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Label  string `json:"label"`
		Synced int    `json:"synced"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Label != "Newsletters" || body.Synced != 2 {
		t.Fatalf("body = %+v", body)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/sync", token)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", resp.StatusCode)
	}
}

func TestRecentSyncsEndpoint(t *testing.T) {
	ts, token := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/emails/m1/sync", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync status = %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/syncs/recent?limit=5", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Syncs []struct {
			MessageID string `json:"messageId"`
			PageURL   string `json:"pageUrl"`
			SyncedAt  string `json:"syncedAt"`
		} `json:"syncs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Syncs) != 1 {
		t.Fatalf("syncs = %d, want 1", len(body.Syncs))
	}
	if body.Syncs[0].MessageID != "m1" || body.Syncs[0].PageURL == "" || body.Syncs[0].SyncedAt == "" {
		t.Fatalf("record = %+v", body.Syncs[0])
	}
}

func TestSyncLabelEndpoint(t *testing.T) {
	ts, token := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/emails/label/Newsletters/sync", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		RunID  string `json:"runId"`
		Synced int    `json:"synced"`
		Failed int    `json:"failed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RunID == "" || body.Synced != 2 || body.Failed != 0 {
		t.Fatalf("body = %+v", body)
	}
}
