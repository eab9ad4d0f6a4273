package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config carries everything the process needs: the Google OAuth grant
// shared by the Gmail and Drive clients, the Notion target database,
// the Drive folders uploads land in, and the service's own settings.
type Config struct {
	HTTPPort int
	DBPath   string

	GoogleClientID     string
	GoogleClientSecret string
	GmailRefreshToken  string
	DriveRefreshToken  string

	NotionToken      string
	NotionEmailsDBID string

	DriveAttachmentsFolderID string
	DriveMessagesFolderID    string

	SyncLabel    string
	AllowedEmail string
}

// Load reads the environment. Every missing required variable is
// collected so a misconfigured deployment reports them all at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort: getEnvInt("HTTP_PORT", 8080),
		DBPath:   getEnvString("DB_PATH", "sync.db"),
	}

	var missing []string
	require := func(key string) string {
		value := getEnvString(key, "")
		if value == "" {
			missing = append(missing, key)
		}
		return value
	}

	cfg.GoogleClientID = require("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = require("GOOGLE_CLIENT_SECRET")
	cfg.GmailRefreshToken = require("GMAIL_REFRESH_TOKEN")
	cfg.DriveRefreshToken = require("DRIVE_REFRESH_TOKEN")
	cfg.NotionToken = require("NOTION_TOKEN")
	cfg.NotionEmailsDBID = require("NOTION_EMAILS_DB_ID")
	cfg.DriveAttachmentsFolderID = require("DRIVE_ATTACHMENTS_FOLDER_ID")
	cfg.DriveMessagesFolderID = require("DRIVE_MESSAGES_FOLDER_ID")
	cfg.SyncLabel = require("SYNC_LABEL")
	cfg.AllowedEmail = require("ALLOWED_EMAIL")

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}
