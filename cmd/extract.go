package main

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/district"
	"github.com/wahlkarte/wahlkarte/internal/export"
	"github.com/wahlkarte/wahlkarte/internal/extract"
	"github.com/wahlkarte/wahlkarte/internal/mapview"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/ocr"
	"github.com/wahlkarte/wahlkarte/internal/streets"
	"github.com/wahlkarte/wahlkarte/pkg/geocode"
)

var (
	extractStreetsPDF   string
	extractCandidatePDF string
	extractNoGeocode    bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract addresses and districts from PDFs",
	Long:  "Runs OCR on the street list and candidate PDFs. Addresses are geocoded and written as CSV, GeoJSON and a clustered map; district blocks are written as a district assignment JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ext, err := initExtractor()
		if err != nil {
			return err
		}
		if err := extractAddresses(ctx, ext, orDefault(extractStreetsPDF, cfg.Paths.StreetsPDF)); err != nil {
			return err
		}
		return extractDistricts(ctx, ext, orDefault(extractCandidatePDF, cfg.Paths.CandidatePDF))
	},
}

var extractAddressesCmd = &cobra.Command{
	Use:   "addresses [pdf]",
	Short: "Extract and geocode the addresses of a PDF",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ext, err := initExtractor()
		if err != nil {
			return err
		}
		return extractAddresses(ctx, ext, pdfArg(args, extractStreetsPDF, cfg.Paths.StreetsPDF))
	},
}

var extractDistrictsCmd = &cobra.Command{
	Use:   "districts [pdf]",
	Short: "Extract candidate district blocks from a PDF",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ext, err := initExtractor()
		if err != nil {
			return err
		}
		return extractDistricts(ctx, ext, pdfArg(args, extractCandidatePDF, cfg.Paths.CandidatePDF))
	},
}

func initExtractor() (ocr.Extractor, error) {
	if err := cfg.Validate("extract"); err != nil {
		return nil, err
	}
	return ocr.NewExtractor(cfg.OCR)
}

func pdfArg(args []string, flag, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return orDefault(flag, def)
}

// outputBase is the PDF file name without extension, placed in the output dir.
func outputBase(pdf string) string {
	name := filepath.Base(pdf)
	return filepath.Join(cfg.Paths.OutputDir, strings.TrimSuffix(name, filepath.Ext(name)))
}

func extractAddresses(ctx context.Context, ext ocr.Extractor, pdf string) error {
	if !inputExists(pdf, "streets pdf") {
		return nil
	}

	text, err := ext.ExtractText(ctx, pdf)
	if err != nil {
		return eris.Wrapf(err, "extract text from %s", pdf)
	}

	addrs := extract.Addresses(text, extract.Defaults{
		PostalCode: cfg.Region.PostalCode,
		City:       cfg.Region.City,
	})
	zap.L().Info("addresses extracted", zap.String("pdf", pdf), zap.Int("addresses", len(addrs)))
	if len(addrs) == 0 {
		zap.L().Warn("no addresses found, nothing written", zap.String("pdf", pdf))
		return nil
	}

	records := make([]model.StreetRecord, 0, len(addrs))
	if extractNoGeocode {
		for _, a := range addrs {
			records = append(records, a.Record())
		}
	} else {
		records, err = geocodeAddresses(ctx, addrs)
		if err != nil {
			return err
		}
	}

	base := outputBase(pdf)
	if err := streets.WriteCSV(base+"_addresses.csv", records); err != nil {
		return err
	}

	located := streets.Located(records)
	if len(located) == 0 {
		zap.L().Warn("no address could be geocoded, map skipped", zap.String("pdf", pdf))
		return nil
	}
	if err := export.WriteGeoJSON(base+"_map.geojson", located); err != nil {
		return err
	}
	page, err := buildPage(located, nil, nil, mapview.ModeAddresses)
	if err != nil {
		return err
	}
	if err := mapview.WriteFile(base+"_map.html", page); err != nil {
		return err
	}

	zap.L().Info("address map written",
		zap.String("output", base+"_map.html"),
		zap.Int("addresses", len(records)),
		zap.Int("located", len(located)),
	)
	return nil
}

// geocodeAddresses resolves every address. Addresses without a match are
// dropped.
func geocodeAddresses(ctx context.Context, addrs []model.Address) ([]model.StreetRecord, error) {
	env, err := initGeocoder(ctx)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	records := make([]model.StreetRecord, 0, len(addrs))
	for i, a := range addrs {
		res, err := env.Resolver.ResolveAddress(ctx, a)
		if errors.Is(err, geocode.ErrNoMatch) {
			zap.L().Warn("address not found, skipping", zap.String("address", a.FullAddress))
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "geocode address %q", a.FullAddress)
		}
		a.Latitude, a.Longitude = res.Latitude, res.Longitude
		rec := a.Record()
		rec.GeocodeInfo = res.Info
		records = append(records, rec)
		zap.L().Debug("address geocoded",
			zap.Int("done", i+1),
			zap.Int("total", len(addrs)),
			zap.String("address", a.FullAddress),
		)
	}
	return records, nil
}

func extractDistricts(ctx context.Context, ext ocr.Extractor, pdf string) error {
	if !inputExists(pdf, "candidates pdf") {
		return nil
	}

	text, err := ext.ExtractText(ctx, pdf)
	if err != nil {
		return eris.Wrapf(err, "extract text from %s", pdf)
	}

	districts := extract.Districts(text)
	if len(districts) == 0 {
		zap.L().Warn("no district blocks found, nothing written", zap.String("pdf", pdf))
		return nil
	}

	out := outputBase(pdf) + "_bezirke.json"
	if err := district.Write(out, districts); err != nil {
		return err
	}
	zap.L().Info("districts extracted",
		zap.String("pdf", pdf),
		zap.String("output", out),
		zap.Int("districts", len(districts)),
	)
	return nil
}

func init() {
	extractCmd.PersistentFlags().StringVar(&extractStreetsPDF, "streets-pdf", "", "street list PDF (default from config)")
	extractCmd.PersistentFlags().StringVar(&extractCandidatePDF, "candidates-pdf", "", "candidate PDF (default from config)")
	extractCmd.PersistentFlags().BoolVar(&extractNoGeocode, "no-geocode", false, "write extracted addresses without coordinates")
	extractCmd.AddCommand(extractAddressesCmd, extractDistrictsCmd)
	rootCmd.AddCommand(extractCmd)
}
