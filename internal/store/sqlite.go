package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	inMemory := false
	if trimmed == "" {
		trimmed = ":memory:"
		inMemory = true
	}
	if strings.Contains(trimmed, "mode=memory") || trimmed == ":memory:" || trimmed == "file::memory:" {
		inMemory = true
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if !inMemory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sync_records (
            message_id TEXT PRIMARY KEY,
            run_id TEXT NOT NULL,
            hash TEXT NOT NULL,
            page_url TEXT NOT NULL,
            archive_url TEXT NOT NULL DEFAULT '',
            attachment_count INTEGER NOT NULL DEFAULT 0,
            synced_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_sync_records_run ON sync_records(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sync_records_synced ON sync_records(synced_at);`,
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// RecordSync upserts the outcome for a message; re-syncing a message
// replaces its previous record.
func (s *Store) RecordSync(ctx context.Context, record SyncRecord) error {
	query := `INSERT INTO sync_records
        (message_id, run_id, hash, page_url, archive_url, attachment_count, synced_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(message_id) DO UPDATE SET
            run_id = excluded.run_id,
            hash = excluded.hash,
            page_url = excluded.page_url,
            archive_url = excluded.archive_url,
            attachment_count = excluded.attachment_count,
            synced_at = excluded.synced_at;`
	_, err := s.db.ExecContext(ctx, query,
		record.MessageID,
		record.RunID,
		record.Hash,
		record.PageURL,
		record.ArchiveURL,
		record.AttachmentCount,
		record.SyncedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record sync: %w", err)
	}
	return nil
}

// SyncRecordFor returns the stored record for a message, or nil when
// the message has never been synced.
func (s *Store) SyncRecordFor(ctx context.Context, messageID string) (*SyncRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT message_id, run_id, hash, page_url, archive_url, attachment_count, synced_at
        FROM sync_records WHERE message_id = ?;`, messageID)

	var record SyncRecord
	var syncedAt int64
	if err := row.Scan(
		&record.MessageID,
		&record.RunID,
		&record.Hash,
		&record.PageURL,
		&record.ArchiveURL,
		&record.AttachmentCount,
		&syncedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync record: %w", err)
	}
	record.SyncedAt = time.Unix(syncedAt, 0)
	return &record, nil
}

// RecentSyncs lists records newest-first for the recent-syncs listing.
func (s *Store) RecentSyncs(ctx context.Context, limit int32) ([]SyncRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT message_id, run_id, hash, page_url, archive_url, attachment_count, synced_at
        FROM sync_records ORDER BY synced_at DESC, message_id DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync records: %w", err)
	}
	defer rows.Close()

	var records []SyncRecord
	for rows.Next() {
		var record SyncRecord
		var syncedAt int64
		if err := rows.Scan(
			&record.MessageID,
			&record.RunID,
			&record.Hash,
			&record.PageURL,
			&record.ArchiveURL,
			&record.AttachmentCount,
			&syncedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sync record: %w", err)
		}
		record.SyncedAt = time.Unix(syncedAt, 0)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sync records: %w", err)
	}
	return records, nil
}
