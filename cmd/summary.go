package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/district"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/roster"
	"github.com/wahlkarte/wahlkarte/internal/summary"
)

var (
	summaryIn   string
	summaryXLSX bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Write candidate and county statistics",
	Long:  "Writes the candidate overview, county candidate statistics and district table as CSV, and optionally all three as one XLSX workbook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		set, ros, records, ok, err := loadInputs(cfg.Paths.Districts, orDefault(summaryIn, cfg.Paths.Complete))
		if err != nil || !ok {
			return err
		}

		tables := summaryTables(set, records, ros)
		sheets := make([]summary.Sheet, 0, len(tables))
		for _, t := range tables {
			out := filepath.Join(cfg.Paths.OutputDir, t.File)
			if err := summary.WriteCSV(out, t.Sheet.Rows); err != nil {
				return err
			}
			sheets = append(sheets, t.Sheet)
			zap.L().Info("summary written", zap.String("output", out))
		}

		if summaryXLSX {
			out := filepath.Join(cfg.Paths.OutputDir, summary.WorkbookFile)
			if err := summary.WriteXLSX(out, sheets); err != nil {
				return err
			}
			zap.L().Info("workbook written", zap.String("output", out))
		}
		return nil
	},
}

// summaryTable is one summary with its CSV file name. Sheet names stay
// within the 31 characters a workbook allows.
type summaryTable struct {
	File  string
	Sheet summary.Sheet
}

func summaryTables(set *district.Set, records []model.StreetRecord, ros *roster.Roster) []summaryTable {
	return []summaryTable{
		{File: summary.CandidatesFile, Sheet: summary.Sheet{Name: "Kandidaten", Rows: summary.Candidates(set, records, ros)}},
		{File: summary.CountiesFile, Sheet: summary.Sheet{Name: "Kreistagskandidaten", Rows: summary.Counties(set, records, ros)}},
		{File: summary.DistrictsFile, Sheet: summary.Sheet{Name: "Bezirke", Rows: summary.Districts(set, records, ros)}},
	}
}

func init() {
	summaryCmd.Flags().StringVar(&summaryIn, "in", "", "street CSV (default: complete table from config)")
	summaryCmd.Flags().BoolVar(&summaryXLSX, "xlsx", true, "also write the XLSX workbook")
	rootCmd.AddCommand(summaryCmd)
}
