package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/district"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/streets"
)

var (
	geocodeDistricts string
	geocodeOut       string
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode every street of every district",
	Long:  "Reads the district assignment, geocodes each street (or the hamlets of districts without streets) and writes the street table as CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		in := orDefault(geocodeDistricts, cfg.Paths.Districts)
		out := orDefault(geocodeOut, cfg.Paths.Geocoded)
		if !inputExists(in, "districts") {
			return nil
		}

		set, err := district.Load(in)
		if err != nil {
			return err
		}

		env, err := initGeocoder(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("geocoding districts",
			zap.Int("districts", set.Len()),
			zap.String("region", cfg.Region.City),
		)

		records, err := streets.FromDistricts(ctx, set, env.Resolver, region(),
			func(done, total int, rec model.StreetRecord) {
				zap.L().Debug("geocoded",
					zap.Int("done", done),
					zap.Int("total", total),
					zap.String("wbz", rec.DistrictID),
					zap.String("street", rec.Street),
					zap.String("info", rec.GeocodeInfo),
				)
			})
		if err != nil {
			return eris.Wrap(err, "geocode districts")
		}

		if err := streets.WriteCSV(out, records); err != nil {
			return err
		}

		fallbacks := 0
		for _, r := range records {
			if r.GeocodeInfo == env.Resolver.Center().Info {
				fallbacks++
			}
		}
		zap.L().Info("geocoding complete",
			zap.String("output", out),
			zap.Int("records", len(records)),
			zap.Int("fallbacks", fallbacks),
			zap.Any("providers", env.Client.ProviderStates()),
		)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeDistricts, "districts", "", "district assignment JSON (default from config)")
	geocodeCmd.Flags().StringVarP(&geocodeOut, "out", "o", "", "output CSV (default from config)")
	rootCmd.AddCommand(geocodeCmd)
}
