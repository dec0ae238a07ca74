package export

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wahlkarte/wahlkarte/internal/model"
)

// Writer writes one artifact of a bundle.
type Writer func(path string, records []model.StreetRecord) error

// Target is one artifact of a bundle, named relative to the output dir.
type Target struct {
	Name  string
	Write Writer
}

// GeoTargets returns the GeoJSON and shapefile targets for base.
func GeoTargets(base string) []Target {
	return []Target{
		{Name: base + ".geojson", Write: WriteGeoJSON},
		{Name: base + ".shp", Write: WriteShapefile},
	}
}

// WriteAll writes every target into dir concurrently. The first failure
// cancels the writers that have not started yet.
func WriteAll(ctx context.Context, dir string, records []model.StreetRecord, targets []Target) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrapf(err, "export: %s", t.Name)
			}
			path := filepath.Join(dir, t.Name)
			if err := t.Write(path, records); err != nil {
				return err
			}
			zap.L().Debug("export: artifact written", zap.String("path", path))
			return nil
		})
	}
	return g.Wait()
}
