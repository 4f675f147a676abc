package prospect

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Samples are the example rows written by WriteTemplateCSV.
var Samples = []Prospect{
	{
		CompanyName: "Turner Industries",
		Email:       "facilities@turner.com",
		Industry:    "Industrial Construction",
		ContactName: "Facilities Manager",
		Location:    "Baton Rouge, LA",
		CompanySize: "10,000+",
		Notes:       "Large industrial construction company",
	},
	{
		CompanyName: "Landis Construction",
		Email:       "projects@landis.com",
		Industry:    "Commercial Construction",
		ContactName: "Project Manager",
		Location:    "New Orleans, LA",
		CompanySize: "100-500",
		Notes:       "Historic renovations",
	},
	{
		CompanyName: "Meta Data Center",
		Email:       "construction@meta.com",
		Industry:    "Technology",
		ContactName: "Construction Manager",
		Location:    "Richland Parish, LA",
		CompanySize: "5000+",
		Notes:       "$10B AI data center",
	},
}

// WriteTemplateCSV writes a starter prospects file: the canonical header
// followed by Samples.
func WriteTemplateCSV(w io.Writer) error {
	return WriteCSV(w, Samples)
}

// WriteCSV writes prospects under the canonical Columns header, so the output
// reads back with ReadCSV.
func WriteCSV(w io.Writer, prospects []Prospect) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(Columns))
	for i, c := range Columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range prospects {
		if err := cw.Write([]string{p.CompanyName, p.Email, p.Industry, p.ContactName, p.Location, p.CompanySize, p.Notes}); err != nil {
			return fmt.Errorf("write %s: %w", p.CompanyName, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
