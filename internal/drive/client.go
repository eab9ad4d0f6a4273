// Package drive wraps the Google Drive API for attachment and raw
// message uploads.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Credentials is the authorized-user grant for the Drive scope.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// File is one upload: raw bytes plus the metadata Drive needs.
type File struct {
	Data     []byte
	Filename string
	MimeType string
}

type Client struct {
	srv    *driveapi.Service
	logger *slog.Logger
}

func NewClient(ctx context.Context, creds Credentials, logger *slog.Logger) (*Client, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{driveapi.DriveFileScope},
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	srv, err := driveapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Client{srv: srv, logger: logger}, nil
}

// UploadToFolder creates the file inside the folder and returns its
// Drive file ID.
func (c *Client) UploadToFolder(ctx context.Context, file File, folderID string) (string, error) {
	meta := &driveapi.File{
		Name:    file.Filename,
		Parents: []string{folderID},
	}
	created, err := c.srv.Files.Create(meta).
		Media(bytes.NewReader(file.Data)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload %s into folder %s: %w", file.Filename, folderID, err)
	}
	return created.Id, nil
}

// ShareableLink resolves a file ID to its browser-facing view link.
func (c *Client) ShareableLink(ctx context.Context, fileID string) (string, error) {
	file, err := c.srv.Files.Get(fileID).Fields("webViewLink").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get link for file %s: %w", fileID, err)
	}
	return file.WebViewLink, nil
}
