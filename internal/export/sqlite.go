package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/freshstart/outreach/internal/results"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS emails (
	run_id          TEXT NOT NULL,
	idx             INTEGER NOT NULL,
	company_name    TEXT NOT NULL,
	email           TEXT NOT NULL,
	industry        TEXT,
	contact_name    TEXT,
	location        TEXT,
	company_size    TEXT,
	notes           TEXT,
	category        TEXT NOT NULL,
	method          TEXT NOT NULL,
	subject         TEXT NOT NULL,
	body            TEXT NOT NULL,
	elapsed_ms      INTEGER NOT NULL,
	generated_at    TEXT,
	model           TEXT,
	fallback_reason TEXT,
	edited          INTEGER NOT NULL DEFAULT 0,
	sent            INTEGER NOT NULL DEFAULT 0,
	sent_at         TEXT,
	message_id      TEXT,
	send_error      TEXT,
	PRIMARY KEY (run_id, idx)
);
CREATE TABLE IF NOT EXISTS sends (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	company_name TEXT NOT NULL,
	email        TEXT NOT NULL,
	ts           TEXT NOT NULL,
	success      INTEGER NOT NULL,
	error        TEXT,
	message_id   TEXT
);`

// SQLiteStore persists records and send attempts in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use ":memory:"
// for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRecords upserts records keyed by (run_id, idx).
func (s *SQLiteStore) SaveRecords(ctx context.Context, recs []results.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO emails (run_id, idx, company_name, email, industry, contact_name, location,
	company_size, notes, category, method, subject, body, elapsed_ms, generated_at, model,
	fallback_reason, edited, sent, sent_at, message_id, send_error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id, idx) DO UPDATE SET
	subject = excluded.subject,
	body = excluded.body,
	edited = excluded.edited,
	sent = excluded.sent,
	sent_at = excluded.sent_at,
	message_id = excluded.message_id,
	send_error = excluded.send_error`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		row := FromRecord(r)
		if _, err = stmt.ExecContext(ctx,
			row.RunID, row.Index, row.CompanyName, row.Email, row.Industry, row.ContactName,
			row.Location, row.CompanySize, row.Notes, row.Category, row.Method, row.Subject,
			row.Body, row.ElapsedMS, row.GeneratedAt, row.Model, row.FallbackReason,
			row.Edited, row.Sent, row.SentAt, row.MessageID, row.SendError,
		); err != nil {
			return fmt.Errorf("save %s/%d: %w", row.RunID, row.Index, err)
		}
	}
	return tx.Commit()
}

// SaveSends appends delivery attempts.
func (s *SQLiteStore) SaveSends(ctx context.Context, sends []results.SendRecord) error {
	for _, sr := range sends {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO sends (company_name, email, ts, success, error, message_id) VALUES (?, ?, ?, ?, ?, ?)`,
			sr.CompanyName, sr.Email, sr.Timestamp.UTC().Format(time.RFC3339Nano), sr.Success, sr.Error, sr.MessageID,
		); err != nil {
			return fmt.Errorf("save send %s: %w", sr.Email, err)
		}
	}
	return nil
}

// LoadRecords returns records for runID, or every record when runID is empty,
// ordered by run and index.
func (s *SQLiteStore) LoadRecords(ctx context.Context, runID string) ([]results.Record, error) {
	q := `SELECT run_id, idx, company_name, email, industry, contact_name, location, company_size,
	notes, category, method, subject, body, elapsed_ms, generated_at, model, fallback_reason,
	edited, sent, sent_at, message_id, send_error FROM emails`
	var args []any
	if runID != "" {
		q += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	q += ` ORDER BY run_id, idx`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []results.Record
	for rows.Next() {
		var row Row
		var industry, contact, location, size, notes, genAt, model, reason, sentAt, msgID, sendErr sql.NullString
		if err := rows.Scan(&row.RunID, &row.Index, &row.CompanyName, &row.Email, &industry, &contact,
			&location, &size, &notes, &row.Category, &row.Method, &row.Subject, &row.Body,
			&row.ElapsedMS, &genAt, &model, &reason, &row.Edited, &row.Sent, &sentAt, &msgID, &sendErr,
		); err != nil {
			return nil, err
		}
		row.Industry, row.ContactName, row.Location = industry.String, contact.String, location.String
		row.CompanySize, row.Notes, row.GeneratedAt = size.String, notes.String, genAt.String
		row.Model, row.FallbackReason, row.SentAt = model.String, reason.String, sentAt.String
		row.MessageID, row.SendError = msgID.String, sendErr.String

		rec, err := row.Record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SendCount returns how many delivery attempts were stored.
func (s *SQLiteStore) SendCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sends`).Scan(&n)
	return n, err
}
