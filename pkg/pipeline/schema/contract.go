package schema

import (
	"strings"
)

// Format selects how generated results are written out.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

// Field captures the minimal behavior-relevant schema fields.
type Field struct {
	Name     string
	Type     string
	Nullable bool
}

// DatasetContract is the logical schema contract shared by every export format.
type DatasetContract struct {
	Format Format
	Fields []Field
}

// Names returns the field names in contract order.
func (c DatasetContract) Names() []string {
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		out = append(out, f.Name)
	}
	return out
}

// Index returns the position of name in the contract, or -1.
func (c DatasetContract) Index(name string) int {
	for i, f := range c.Fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// NormalizeFormat maps user input (flag values, file extensions) to a Format.
func NormalizeFormat(raw string) Format {
	s := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(raw)), ".")
	switch s {
	case "json", "jsonl":
		return FormatJSON
	case "sqlite", "sqlite3", "db":
		return FormatSQLite
	default:
		return FormatCSV
	}
}
