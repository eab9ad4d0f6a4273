package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	notionVersion  = "2022-06-28"
)

// Client talks to the Notion REST API. It handles bearer auth, the
// version header, and JSON marshaling; callers hand it already
// formatted properties and markdown.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// NewClientWithBaseURL exists for tests pointing at a local server.
func NewClientWithBaseURL(baseURL, token string, logger *slog.Logger) *Client {
	client := NewClient(token, logger)
	client.baseURL = strings.TrimRight(baseURL, "/")
	return client
}

// CreatePage creates one page in the given database with the given
// property values and the markdown content converted to paragraph
// blocks. Empty markdown produces a page with properties only.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props []PropValue, markdown string) (*Page, error) {
	body := map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": FormatProps(props),
	}
	if blocks := MarkdownToBlocks(markdown); blocks != nil {
		body["children"] = blocks
	}

	var page Page
	if err := c.post(ctx, "/pages", body, &page); err != nil {
		return nil, fmt.Errorf("create page in database %s: %w", databaseID, err)
	}
	return &page, nil
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Error("notion request failed", "path", path, "status", resp.StatusCode, "body", string(detail))
		return fmt.Errorf("notion API returned status %d", resp.StatusCode)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
