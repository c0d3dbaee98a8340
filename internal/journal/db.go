package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

const (
	KindStatus = "status"
	KindError  = "error"
)

type DB struct {
	*sql.DB
}

// Poll is one iteration of the polling loop.
type Poll struct {
	ID        string
	StartedAt time.Time
	From      int64
	Next      int64
	Homeworks int
	ErrorKind string
	Error     string
}

// Notification is one attempted delivery.
type Notification struct {
	ID        string
	PollID    string
	Kind      string
	Text      string
	Delivered bool
	Error     string
	SentAt    time.Time
}

type Summary struct {
	Polls         int
	FailedPolls   int
	Notifications int
	LastPoll      Poll
	LastStatus    Notification
}

func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &DB{db}, nil
}

// Open opens the journal at dbPath and applies the schema.
func Open(dbPath string) (*DB, error) {
	db, err := NewDB(dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) InitSchema(schemaContent string) error {
	_, err := d.Exec(schemaContent)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (d *DB) RecordPoll(ctx context.Context, p Poll) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := d.ExecContext(ctx, `
		INSERT INTO polls (id, started_at, from_date, next_date, homeworks, error_kind, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.StartedAt.Unix(), p.From, p.Next, p.Homeworks, p.ErrorKind, p.Error)
	if err != nil {
		return fmt.Errorf("recording poll %s: %w", p.ID, err)
	}
	return nil
}

func (d *DB) RecordNotification(ctx context.Context, n Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := d.ExecContext(ctx, `
		INSERT INTO notifications (id, poll_id, kind, text, delivered, error, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.PollID, n.Kind, n.Text, n.Delivered, n.Error, n.SentAt.Unix())
	if err != nil {
		return fmt.Errorf("recording notification %s: %w", n.ID, err)
	}
	return nil
}

// Recent returns up to limit notifications, newest first.
func (d *DB) Recent(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT id, poll_id, kind, text, delivered, error, sent_at
		FROM notifications
		ORDER BY sent_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n      Notification
			sentAt int64
		)
		if err := rows.Scan(&n.ID, &n.PollID, &n.Kind, &n.Text, &n.Delivered, &n.Error, &sentAt); err != nil {
			return nil, err
		}
		n.SentAt = time.Unix(sentAt, 0)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (d *DB) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	row := d.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM polls),
			(SELECT COUNT(*) FROM polls WHERE error != ''),
			(SELECT COUNT(*) FROM notifications)`)
	if err := row.Scan(&s.Polls, &s.FailedPolls, &s.Notifications); err != nil {
		return s, fmt.Errorf("counting journal rows: %w", err)
	}

	var startedAt int64
	err := d.QueryRowContext(ctx, `
		SELECT id, started_at, from_date, next_date, homeworks, error_kind, error
		FROM polls ORDER BY started_at DESC, rowid DESC LIMIT 1`).
		Scan(&s.LastPoll.ID, &startedAt, &s.LastPoll.From, &s.LastPoll.Next,
			&s.LastPoll.Homeworks, &s.LastPoll.ErrorKind, &s.LastPoll.Error)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return s, fmt.Errorf("reading last poll: %w", err)
	default:
		s.LastPoll.StartedAt = time.Unix(startedAt, 0)
	}

	var sentAt int64
	err = d.QueryRowContext(ctx, `
		SELECT id, poll_id, kind, text, delivered, error, sent_at
		FROM notifications WHERE kind = ? ORDER BY sent_at DESC, rowid DESC LIMIT 1`, KindStatus).
		Scan(&s.LastStatus.ID, &s.LastStatus.PollID, &s.LastStatus.Kind, &s.LastStatus.Text,
			&s.LastStatus.Delivered, &s.LastStatus.Error, &sentAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return s, fmt.Errorf("reading last status: %w", err)
	default:
		s.LastStatus.SentAt = time.Unix(sentAt, 0)
	}

	return s, nil
}
