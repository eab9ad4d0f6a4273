package config

import (
	"strings"
	"testing"
)

var requiredVars = []string{
	"GOOGLE_CLIENT_ID",
	"GOOGLE_CLIENT_SECRET",
	"GMAIL_REFRESH_TOKEN",
	"DRIVE_REFRESH_TOKEN",
	"NOTION_TOKEN",
	"NOTION_EMAILS_DB_ID",
	"DRIVE_ATTACHMENTS_FOLDER_ID",
	"DRIVE_MESSAGES_FOLDER_ID",
	"SYNC_LABEL",
	"ALLOWED_EMAIL",
}

func setAllRequired(t *testing.T) {
	t.Helper()
	for _, key := range requiredVars {
		t.Setenv(key, key+"-value")
	}
}

func TestLoad(t *testing.T) {
	setAllRequired(t)
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("DB_PATH", "/tmp/test-sync.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != 9999 || cfg.DBPath != "/tmp/test-sync.db" {
		t.Fatalf("options not applied: %+v", cfg)
	}
	if cfg.SyncLabel != "SYNC_LABEL-value" || cfg.AllowedEmail != "ALLOWED_EMAIL-value" {
		t.Fatalf("required vars not read: %+v", cfg)
	}
}

func TestLoadDefaults(t *testing.T) {
	setAllRequired(t)
	t.Setenv("HTTP_PORT", "")
	t.Setenv("DB_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != 8080 || cfg.DBPath != "sync.db" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadReportsAllMissingVars(t *testing.T) {
	setAllRequired(t)
	t.Setenv("NOTION_TOKEN", "")
	t.Setenv("SYNC_LABEL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing vars")
	}
	if !strings.Contains(err.Error(), "NOTION_TOKEN") || !strings.Contains(err.Error(), "SYNC_LABEL") {
		t.Fatalf("error should name every missing var: %v", err)
	}
}
