package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/streets"
)

var (
	completeBase  string
	completeExtra []string
	completeOut   string
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Add districts missing from the street table",
	Long:  "Appends supplementary street tables, adds one hamlet-centre row for every district still without streets and assigns county candidates.",
	RunE: func(cmd *cobra.Command, args []string) error {
		base := orDefault(completeBase, cfg.Paths.Streets)
		out := orDefault(completeOut, cfg.Paths.Complete)

		set, ros, records, ok, err := loadInputs(cfg.Paths.Districts, base)
		if err != nil || !ok {
			return err
		}

		for _, path := range completeExtra {
			if !inputExists(path, "extra streets") {
				return nil
			}
			extra, err := streets.ReadTable(path)
			if err != nil {
				return err
			}
			records = streets.Concat(records, extra)
		}

		missing := streets.Missing(records, set)
		zap.L().Info("completing street table",
			zap.Int("records", len(records)),
			zap.Int("districts", set.Len()),
			zap.Strings("missing", missing),
		)

		full := streets.Complete(records, set, ros, streets.KnownHamlets, region())
		if err := streets.WriteCSV(out, full); err != nil {
			return err
		}

		zap.L().Info("street table complete",
			zap.String("output", out),
			zap.Int("records", len(full)),
			zap.Int("added", len(full)-len(records)),
		)
		return nil
	},
}

func init() {
	completeCmd.Flags().StringVar(&completeBase, "base", "", "base street CSV (default from config)")
	completeCmd.Flags().StringSliceVar(&completeExtra, "extra", nil, "supplementary street tables (CSV or XLSX) appended before completion")
	completeCmd.Flags().StringVarP(&completeOut, "out", "o", "", "output CSV (default from config)")
	rootCmd.AddCommand(completeCmd)
}
