// Package export writes located street records as GeoJSON and as a point
// shapefile for use in desktop GIS tools.
package export

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/wahlkarte/wahlkarte/internal/model"
)

// Features converts records with coordinates into GeoJSON point features.
// Empty properties are omitted.
func Features(records []model.StreetRecord) []*geojson.Feature {
	out := make([]*geojson.Feature, 0, len(records))
	for i, r := range records {
		if !r.HasCoordinates() {
			continue
		}
		out = append(out, &geojson.Feature{
			ID:         strconv.Itoa(i),
			Geometry:   geom.NewPointFlat(geom.XY, []float64{r.Longitude, r.Latitude}),
			Properties: properties(r),
		})
	}
	return out
}

func properties(r model.StreetRecord) map[string]any {
	props := map[string]any{}
	for _, f := range fields {
		switch v := f.value(r).(type) {
		case string:
			if v != "" {
				props[f.name] = v
			}
		case int:
			if v != 0 {
				props[f.name] = v
			}
		}
	}
	return props
}

// WriteGeoJSON writes a FeatureCollection of the located records to path.
func WriteGeoJSON(path string, records []model.StreetRecord) error {
	fc := geojson.FeatureCollection{Features: Features(records)}
	data, err := json.MarshalIndent(&fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "export: write %s", path)
}

// ReadGeoJSON reads a FeatureCollection written by WriteGeoJSON.
func ReadGeoJSON(path string) ([]*geojson.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "export: parse geojson")
	}
	return fc.Features, nil
}
