package local

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Column describes one logical column and the header spellings accepted for it.
type Column struct {
	Name     string
	Aliases  []string
	Required bool
}

// Row maps logical column names to trimmed cell values. Columns absent from
// the file are absent from the map.
type Row map[string]string

// ReadTable reads a CSV file with a header row and returns one Row per
// non-blank record. Header matching ignores case, surrounding space, and the
// difference between spaces, underscores and hyphens.
func ReadTable(r io.Reader, cols []Column) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(cols))
	for _, c := range cols {
		for i, h := range header {
			if matchesHeader(h, c) {
				idx[c.Name] = i
				break
			}
		}
		if _, ok := idx[c.Name]; !ok && c.Required {
			return nil, fmt.Errorf("missing required column %q", c.Name)
		}
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}
		row := make(Row, len(idx))
		for name, i := range idx {
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func matchesHeader(h string, c Column) bool {
	got := canonical(h)
	if got == canonical(c.Name) {
		return true
	}
	for _, a := range c.Aliases {
		if got == canonical(a) {
			return true
		}
	}
	return false
}

func canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
