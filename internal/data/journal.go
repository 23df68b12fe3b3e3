package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/domain"
	"github.com/autoreply/wa-autoreply-bridge/internal/biz/repo"

	_ "modernc.org/sqlite"
)

const defaultJournalLimit = 50

// journalRepo implements the reply journal repository
type journalRepo struct {
	db *sql.DB
}

// NewJournalRepo opens (or creates) the journal database
func NewJournalRepo(dbPath string) (repo.JournalRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reply_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			msg_id TEXT NOT NULL,
			sender TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reply_events_created_at ON reply_events(created_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &journalRepo{db: db}, nil
}

// Record appends an event and sets its ID
func (r *journalRepo) Record(ctx context.Context, event *domain.ReplyEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reply_events (chat_id, msg_id, sender, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ChatID, event.MsgID, event.Sender, string(event.Outcome), event.Detail, event.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// Recent lists the latest events, newest first
func (r *journalRepo) Recent(ctx context.Context, limit int) ([]*domain.ReplyEvent, error) {
	if limit <= 0 {
		limit = defaultJournalLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, msg_id, sender, outcome, detail, created_at
		FROM reply_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*domain.ReplyEvent
	for rows.Next() {
		var e domain.ReplyEvent
		var outcome string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.ChatID, &e.MsgID, &e.Sender, &outcome, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Outcome = domain.Outcome(outcome)
		e.CreatedAt = time.UnixMilli(createdAt)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// Close closes the database
func (r *journalRepo) Close() error {
	return r.db.Close()
}
