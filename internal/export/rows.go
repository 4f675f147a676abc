// Package export writes tracked results to CSV, JSON and SQLite, and reads
// edited CSV exports back for sending.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/freshstart/outreach/internal/hybrid"
	"github.com/freshstart/outreach/internal/industry"
	"github.com/freshstart/outreach/internal/prospect"
	"github.com/freshstart/outreach/internal/results"
	"github.com/freshstart/outreach/pkg/pipeline/schema"
)

// Row is the flat, stable export schema.
type Row struct {
	RunID          string `json:"run_id"`
	Index          int    `json:"index"`
	CompanyName    string `json:"company_name"`
	Email          string `json:"email"`
	Industry       string `json:"industry"`
	ContactName    string `json:"contact_name"`
	Location       string `json:"location"`
	CompanySize    string `json:"company_size"`
	Notes          string `json:"notes"`
	Category       string `json:"category"`
	Method         string `json:"method"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	ElapsedMS      int64  `json:"elapsed_ms"`
	GeneratedAt    string `json:"generated_at"`
	Model          string `json:"model"`
	FallbackReason string `json:"fallback_reason"`
	Edited         bool   `json:"edited"`
	Sent           bool   `json:"sent"`
	SentAt         string `json:"sent_at"`
	MessageID      string `json:"message_id"`
	SendError      string `json:"send_error"`
}

// Contract describes Row for every export format.
var Contract = schema.DatasetContract{
	Format: schema.FormatCSV,
	Fields: []schema.Field{
		{Name: "run_id", Type: "string"},
		{Name: "index", Type: "integer"},
		{Name: "company_name", Type: "string"},
		{Name: "email", Type: "string"},
		{Name: "industry", Type: "string", Nullable: true},
		{Name: "contact_name", Type: "string", Nullable: true},
		{Name: "location", Type: "string", Nullable: true},
		{Name: "company_size", Type: "string", Nullable: true},
		{Name: "notes", Type: "string", Nullable: true},
		{Name: "category", Type: "string"},
		{Name: "method", Type: "string"},
		{Name: "subject", Type: "string"},
		{Name: "body", Type: "string"},
		{Name: "elapsed_ms", Type: "integer"},
		{Name: "generated_at", Type: "timestamp"},
		{Name: "model", Type: "string", Nullable: true},
		{Name: "fallback_reason", Type: "string", Nullable: true},
		{Name: "edited", Type: "boolean"},
		{Name: "sent", Type: "boolean"},
		{Name: "sent_at", Type: "timestamp", Nullable: true},
		{Name: "message_id", Type: "string", Nullable: true},
		{Name: "send_error", Type: "string", Nullable: true},
	},
}

// Header returns the stable CSV header.
func Header() []string {
	return Contract.Names()
}

// FromRecord flattens a tracked record.
func FromRecord(r results.Record) Row {
	row := Row{
		RunID:          r.RunID,
		Index:          r.Index,
		CompanyName:    r.Prospect.CompanyName,
		Email:          r.Prospect.Email,
		Industry:       r.Prospect.Industry,
		ContactName:    r.Prospect.ContactName,
		Location:       r.Prospect.Location,
		CompanySize:    r.Prospect.CompanySize,
		Notes:          r.Prospect.Notes,
		Category:       string(r.Result.Category),
		Method:         string(r.Result.Method),
		Subject:        r.Result.Subject,
		Body:           r.Result.Body,
		ElapsedMS:      r.Result.Elapsed.Milliseconds(),
		Model:          r.Result.Model,
		FallbackReason: r.Result.FallbackReason,
		Edited:         r.Result.Edited,
		Sent:           r.Sent,
		MessageID:      r.MessageID,
		SendError:      r.SendError,
	}
	if !r.Result.GeneratedAt.IsZero() {
		row.GeneratedAt = r.Result.GeneratedAt.UTC().Format(time.RFC3339Nano)
	}
	if !r.SentAt.IsZero() {
		row.SentAt = r.SentAt.UTC().Format(time.RFC3339Nano)
	}
	return row
}

// Record rebuilds a tracked record. The method must be one of the known
// generation methods.
func (row Row) Record() (results.Record, error) {
	method, ok := hybrid.ParseMethod(strings.TrimSpace(row.Method))
	if !ok {
		return results.Record{}, fmt.Errorf("row %d: unknown method %q", row.Index, row.Method)
	}
	category, ok := industry.Parse(row.Category)
	if !ok {
		category = industry.Classify(row.Industry)
	}
	rec := results.Record{
		RunID: row.RunID,
		Index: row.Index,
		Prospect: prospect.Prospect{
			CompanyName: row.CompanyName,
			Email:       row.Email,
			Industry:    row.Industry,
			ContactName: row.ContactName,
			Location:    row.Location,
			CompanySize: row.CompanySize,
			Notes:       row.Notes,
		}.Normalize(),
		Result: hybrid.EmailResult{
			Subject:        row.Subject,
			Body:           row.Body,
			Method:         method,
			Category:       category,
			Elapsed:        time.Duration(row.ElapsedMS) * time.Millisecond,
			Model:          row.Model,
			FallbackReason: row.FallbackReason,
			Edited:         row.Edited,
		},
		Sent:      row.Sent,
		MessageID: row.MessageID,
		SendError: row.SendError,
	}
	var err error
	if rec.Result.GeneratedAt, err = parseTime(row.GeneratedAt); err != nil {
		return results.Record{}, fmt.Errorf("row %d: generated_at: %w", row.Index, err)
	}
	if rec.SentAt, err = parseTime(row.SentAt); err != nil {
		return results.Record{}, fmt.Errorf("row %d: sent_at: %w", row.Index, err)
	}
	return rec, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func (row Row) values() []string {
	return []string{
		row.RunID,
		strconv.Itoa(row.Index),
		row.CompanyName,
		row.Email,
		row.Industry,
		row.ContactName,
		row.Location,
		row.CompanySize,
		row.Notes,
		row.Category,
		row.Method,
		row.Subject,
		row.Body,
		strconv.FormatInt(row.ElapsedMS, 10),
		row.GeneratedAt,
		row.Model,
		row.FallbackReason,
		strconv.FormatBool(row.Edited),
		strconv.FormatBool(row.Sent),
		row.SentAt,
		row.MessageID,
		row.SendError,
	}
}
