package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/freshstart/outreach/internal/prospect"
)

var templateOutput string

var templateCSVCmd = &cobra.Command{
	Use:   "template-csv",
	Short: "Write a sample prospects CSV to start from",
	Long: `Writes the accepted prospect columns and three example rows.

Example:
  outreach template-csv -o prospects.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if templateOutput == "" {
			return errors.New("template-csv requires --output")
		}
		f, err := os.Create(templateOutput)
		if err != nil {
			return fmt.Errorf("create template: %w", err)
		}
		if err := prospect.WriteTemplateCSV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Template saved to %s\n", templateOutput)
		return nil
	},
}

func init() {
	templateCSVCmd.Flags().StringVarP(&templateOutput, "output", "o", "", "file to create")
}
