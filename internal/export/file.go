package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/freshstart/outreach/internal/results"
	"github.com/freshstart/outreach/pkg/pipeline/core"
	"github.com/freshstart/outreach/pkg/pipeline/schema"
)

// FileOutput stores records at Path in Format, inferred from the extension
// when empty.
type FileOutput struct {
	Path   string
	Format schema.Format
}

var _ core.OutputAdapter[results.Record] = FileOutput{}

func (o FileOutput) format() schema.Format {
	if o.Format != "" {
		return o.Format
	}
	return schema.NormalizeFormat(filepath.Ext(o.Path))
}

// Store writes rows, replacing any existing CSV or JSON file. SQLite files
// are upserted.
func (o FileOutput) Store(ctx context.Context, rows []results.Record) error {
	if o.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if dir := filepath.Dir(o.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	switch o.format() {
	case schema.FormatSQLite:
		store, err := OpenSQLite(ctx, o.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.SaveRecords(ctx, rows)
	case schema.FormatJSON:
		return writeFile(o.Path, func(f *os.File) error { return WriteJSON(f, rows) })
	default:
		return writeFile(o.Path, func(f *os.File) error { return WriteCSV(f, rows) })
	}
}

// Load reads records back from Path.
func (o FileOutput) Load(ctx context.Context) ([]results.Record, error) {
	switch o.format() {
	case schema.FormatSQLite:
		store, err := OpenSQLite(ctx, o.Path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.LoadRecords(ctx, "")
	}

	f, err := os.Open(o.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if o.format() == schema.FormatJSON {
		return ReadJSON(f)
	}
	return ReadCSV(f)
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
