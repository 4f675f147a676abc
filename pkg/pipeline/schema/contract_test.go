package schema_test

import (
	"testing"

	"github.com/freshstart/outreach/pkg/pipeline/schema"
)

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want schema.Format
	}{
		{name: "csv default", in: "", want: schema.FormatCSV},
		{name: "csv explicit", in: "csv", want: schema.FormatCSV},
		{name: "json", in: "JSON", want: schema.FormatJSON},
		{name: "extension", in: ".json", want: schema.FormatJSON},
		{name: "sqlite", in: "sqlite3", want: schema.FormatSQLite},
		{name: "db extension", in: ".db", want: schema.FormatSQLite},
		{name: "unknown falls back", in: "xlsx", want: schema.FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := schema.NormalizeFormat(tt.in); got != tt.want {
				t.Fatalf("NormalizeFormat(%q)=%q want=%q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDatasetContractIndex(t *testing.T) {
	c := schema.DatasetContract{Fields: []schema.Field{{Name: "company_name"}, {Name: "email"}}}
	if got := c.Index("EMAIL"); got != 1 {
		t.Fatalf("Index(EMAIL)=%d want=1", got)
	}
	if got := c.Index("missing"); got != -1 {
		t.Fatalf("Index(missing)=%d want=-1", got)
	}
	if names := c.Names(); len(names) != 2 || names[0] != "company_name" {
		t.Fatalf("unexpected names: %v", names)
	}
}
