package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/export"
	"github.com/wahlkarte/wahlkarte/internal/mapview"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/summary"
)

var (
	exportIn   string
	exportDir  string
	exportBase string
	exportMaps bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every artifact of the street table at once",
	Long:  "Writes GeoJSON, shapefile, summary CSVs, the workbook and optionally all maps into one directory, concurrently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		set, ros, records, ok, err := loadInputs(cfg.Paths.Districts, orDefault(exportIn, cfg.Paths.Complete))
		if err != nil || !ok {
			return err
		}

		dir := orDefault(exportDir, cfg.Paths.OutputDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", dir)
		}

		targets := export.GeoTargets(exportBase)

		tables := summaryTables(set, records, ros)
		sheets := make([]summary.Sheet, 0, len(tables))
		for _, t := range tables {
			rows := t.Sheet.Rows
			targets = append(targets, export.Target{
				Name:  t.File,
				Write: func(path string, _ []model.StreetRecord) error { return summary.WriteCSV(path, rows) },
			})
			sheets = append(sheets, t.Sheet)
		}
		targets = append(targets, export.Target{
			Name:  summary.WorkbookFile,
			Write: func(path string, _ []model.StreetRecord) error { return summary.WriteXLSX(path, sheets) },
		})

		if exportMaps {
			for mode, file := range mapFiles {
				page, err := buildPage(records, ros, set, mode)
				if err != nil {
					return err
				}
				targets = append(targets, export.Target{
					Name:  file,
					Write: func(path string, _ []model.StreetRecord) error { return mapview.WriteFile(path, page) },
				})
			}
		}

		if err := export.WriteAll(ctx, dir, records, targets); err != nil {
			return eris.Wrap(err, "export artifacts")
		}

		zap.L().Info("export complete",
			zap.String("dir", dir),
			zap.Int("artifacts", len(targets)),
			zap.Int("records", len(records)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportIn, "in", "", "street CSV (default: complete table from config)")
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "", "output directory (default from config)")
	exportCmd.Flags().StringVar(&exportBase, "base", "wahlbezirke", "base name of the GeoJSON and shapefile")
	exportCmd.Flags().BoolVar(&exportMaps, "maps", true, "also render every map")
	rootCmd.AddCommand(exportCmd)
}
