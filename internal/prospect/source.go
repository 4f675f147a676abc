package prospect

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/freshstart/outreach/pkg/pipeline/core"
	"github.com/freshstart/outreach/pkg/pipeline/io/local"
)

// Columns lists the accepted CSV headers. Only the company name and email are
// required; rows are not validated here.
var Columns = []local.Column{
	{Name: "company_name", Aliases: []string{"company", "business", "business_name", "name"}, Required: true},
	{Name: "email", Aliases: []string{"email_address", "e-mail"}, Required: true},
	{Name: "industry", Aliases: []string{"sector", "category"}},
	{Name: "contact_name", Aliases: []string{"contact", "contact_person"}},
	{Name: "location", Aliases: []string{"city", "address"}},
	{Name: "company_size", Aliases: []string{"size", "employees"}},
	{Name: "notes", Aliases: []string{"note", "comments"}},
}

// LoadOptions tunes CSV loading.
type LoadOptions struct {
	// InferIndustry fills a blank industry from the company name.
	InferIndustry bool
}

// FromRow builds a prospect from a parsed CSV row.
func FromRow(row local.Row) Prospect {
	return Prospect{
		CompanyName: row["company_name"],
		Email:       row["email"],
		Industry:    row["industry"],
		ContactName: row["contact_name"],
		Location:    row["location"],
		CompanySize: row["company_size"],
		Notes:       row["notes"],
	}.Normalize()
}

// ReadCSV parses prospects from r.
func ReadCSV(r io.Reader, opts LoadOptions) ([]Prospect, error) {
	rows, err := local.ReadTable(r, Columns)
	if err != nil {
		return nil, err
	}
	out := make([]Prospect, 0, len(rows))
	for _, row := range rows {
		p := FromRow(row)
		if opts.InferIndustry && p.Industry == "" && p.CompanyName != "" {
			p.Industry = InferIndustry(p.CompanyName)
		}
		out = append(out, p)
	}
	return out, nil
}

// CSVSource loads prospects from a CSV file on disk.
type CSVSource struct {
	Path    string
	Options LoadOptions
}

var _ core.InputAdapter[Prospect] = CSVSource{}

func (s CSVSource) Load(ctx context.Context) ([]Prospect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open prospects: %w", err)
	}
	defer f.Close()
	out, err := ReadCSV(f, s.Options)
	if err != nil {
		return nil, fmt.Errorf("read prospects %s: %w", s.Path, err)
	}
	return out, nil
}
