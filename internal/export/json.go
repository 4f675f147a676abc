package export

import (
	"encoding/json"
	"io"

	"github.com/freshstart/outreach/internal/results"
)

// WriteJSON writes records as an indented JSON array of flat rows.
func WriteJSON(w io.Writer, recs []results.Record) error {
	rows := make([]Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, FromRecord(r))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// ReadJSON reads rows written by WriteJSON.
func ReadJSON(r io.Reader) ([]results.Record, error) {
	var rows []Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, err
	}
	recs := make([]results.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.Record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
