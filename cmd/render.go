package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/district"
	"github.com/wahlkarte/wahlkarte/internal/mapview"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/roster"
)

// mapFiles names the HTML file written for each street map mode.
var mapFiles = map[mapview.Mode]string{
	mapview.ModeCandidate:  "wahlbezirke_final_map.html",
	mapview.ModeCounty:     "wahlbezirke_kreistag_map.html",
	mapview.ModeIndividual: "wahlbezirke_individual_map.html",
}

var (
	renderModes []string
	renderIn    string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render interactive district maps",
	Long:  "Renders the street table as Leaflet HTML maps: one layer per candidate, grouped by county candidate, or one toggle per candidate and district.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("render"); err != nil {
			return err
		}

		modes := make([]mapview.Mode, 0, len(renderModes))
		for _, s := range renderModes {
			m, err := mapview.ParseMode(s)
			if err != nil {
				return err
			}
			if _, ok := mapFiles[m]; !ok {
				zap.L().Error("mode needs extracted addresses, use extract", zap.String("mode", s))
				return nil
			}
			modes = append(modes, m)
		}

		set, ros, records, ok, err := loadInputs(cfg.Paths.Districts, orDefault(renderIn, cfg.Paths.Complete))
		if err != nil || !ok {
			return err
		}

		for _, mode := range modes {
			page, err := buildPage(records, ros, set, mode)
			if err != nil {
				return err
			}
			out := filepath.Join(cfg.Paths.OutputDir, mapFiles[mode])
			if err := mapview.WriteFile(out, page); err != nil {
				return err
			}
			zap.L().Info("map written",
				zap.String("mode", string(mode)),
				zap.String("output", out),
				zap.Int("markers", len(page.Markers)),
				zap.Int("layers", len(page.Layers)),
			)
		}
		return nil
	},
}

// buildPage builds a map page with the configured title, tiles and sizes.
// extra options are applied last.
func buildPage(records []model.StreetRecord, ros *roster.Roster, set *district.Set, mode mapview.Mode, extra ...mapview.Option) (*mapview.Page, error) {
	m := cfg.Map
	opts := []mapview.Option{
		mapview.WithTitle(m.Title),
		mapview.WithParty(m.Party),
		mapview.WithRadius(m.MarkerRadius),
		mapview.WithTiles(m.TileURL, m.Attribution),
	}
	if mode != mapview.ModeAddresses {
		opts = append(opts, mapview.WithZoom(m.Zoom))
	}
	return mapview.Build(records, ros, set, mode, append(opts, extra...)...)
}

func init() {
	renderCmd.Flags().StringSliceVarP(&renderModes, "mode", "m",
		[]string{string(mapview.ModeCandidate), string(mapview.ModeCounty), string(mapview.ModeIndividual)},
		"map modes to render: candidate, county, individual")
	renderCmd.Flags().StringVar(&renderIn, "in", "", "street CSV (default: complete table from config)")
	rootCmd.AddCommand(renderCmd)
}
