package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/freshstart/outreach/internal/results"
)

// WriteCSV writes records as a CSV with the stable Header() ordering.
func WriteCSV(w io.Writer, recs []results.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(FromRecord(r).values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads records back from a CSV written by WriteCSV, typically after
// someone edited subjects and bodies by hand. Extra columns are ignored; the
// identity, method, subject and body columns must exist.
func ReadCSV(r io.Reader) ([]results.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"company_name", "email", "method", "subject", "body"} {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var recs []results.Record
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return recs, nil
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		row := Row{
			RunID:          get("run_id"),
			CompanyName:    get("company_name"),
			Email:          get("email"),
			Industry:       get("industry"),
			ContactName:    get("contact_name"),
			Location:       get("location"),
			CompanySize:    get("company_size"),
			Notes:          get("notes"),
			Category:       get("category"),
			Method:         get("method"),
			Subject:        get("subject"),
			Body:           get("body"),
			GeneratedAt:    get("generated_at"),
			Model:          get("model"),
			FallbackReason: get("fallback_reason"),
			SentAt:         get("sent_at"),
			MessageID:      get("message_id"),
			SendError:      get("send_error"),
		}
		row.Index = line - 2
		if v := get("index"); v != "" {
			if row.Index, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("read row %d: index: %w", line, err)
			}
		}
		if v := get("elapsed_ms"); v != "" {
			if row.ElapsedMS, err = strconv.ParseInt(v, 10, 64); err != nil {
				return nil, fmt.Errorf("read row %d: elapsed_ms: %w", line, err)
			}
		}
		row.Edited = parseBool(get("edited"))
		row.Sent = parseBool(get("sent"))

		out, err := row.Record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, out)
	}
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}
