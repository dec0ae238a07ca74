package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/wahlkarte/wahlkarte/internal/model"
)

func testRecords() []model.StreetRecord {
	return []model.StreetRecord{
		{
			Street: "Hauptstraße", Original: "Hauptstraße 1-20", PostalCode: "51588", City: "Nümbrecht",
			FullAddress: "Hauptstraße, 51588 Nümbrecht", DistrictID: "WBZ 10", DistrictLabel: "WBZ 10 - Mitte",
			Candidate: "Gisa Hauschildt", EligibleVoters: 1200, Latitude: 50.9033978, Longitude: 7.5409481,
			CountyCand: "Marcus Schmitz",
		},
		{Street: "Ohne Ort", DistrictID: "WBZ 10"},
		{
			Street: "Gaderoth (Ortszentrum)", PostalCode: "51588", City: "Nümbrecht",
			DistrictID: "WBZ 20", Candidate: "Jörg Reintsema", Latitude: 50.87, Longitude: 7.52,
			GeocodeInfo: "Fallback: Zentrum Nümbrecht",
		},
	}
}

func TestDBFNames(t *testing.T) {
	names := DBFNames()
	require.Len(t, names, len(fields))

	seen := map[string]bool{}
	for _, n := range names {
		assert.LessOrEqual(t, len(n), 10, n)
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
	assert.Equal(t, "house_numb", names[2])
	assert.Equal(t, "wahlberech", names[9])
	assert.Equal(t, "kreistagka", names[13])
}

func TestFeatures(t *testing.T) {
	fs := Features(testRecords())
	require.Len(t, fs, 2)

	pt, ok := fs[0].Geometry.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, 7.5409481, pt.X(), 1e-9)
	assert.InDelta(t, 50.9033978, pt.Y(), 1e-9)

	assert.Equal(t, "Hauptstraße", fs[0].Properties["street"])
	assert.Equal(t, 1200, fs[0].Properties["wahlberechtigte"])
	assert.Equal(t, "Marcus Schmitz", fs[0].Properties["kreistagkandidat"])
	assert.NotContains(t, fs[0].Properties, "geocode_info")
	assert.NotContains(t, fs[0].Properties, "house_number")

	assert.Equal(t, "2", fs[1].ID)
	assert.NotContains(t, fs[1].Properties, "wahlberechtigte")
}

func TestWriteGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "karte.geojson")
	require.NoError(t, WriteGeoJSON(path, testRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
	assert.Contains(t, string(data), `"Point"`)

	fs, err := ReadGeoJSON(path)
	require.NoError(t, err)
	require.Len(t, fs, 2)
	assert.Equal(t, "WBZ 20", fs[1].Properties["wbz"])
	assert.InDelta(t, 1200, fs[0].Properties["wahlberechtigte"], 0)

	pt, ok := fs[1].Geometry.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, 7.52, pt.X(), 1e-9)
}

func TestWriteGeoJSON_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leer.geojson")
	require.NoError(t, WriteGeoJSON(path, nil))

	fs, err := ReadGeoJSON(path)
	require.NoError(t, err)
	assert.Empty(t, fs)
}

func TestReadGeoJSON_Errors(t *testing.T) {
	_, err := ReadGeoJSON(filepath.Join(t.TempDir(), "fehlt.geojson"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: read")

	path := filepath.Join(t.TempDir(), "kaputt.geojson")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = ReadGeoJSON(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: parse geojson")
}

func TestWriteShapefile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "karte.shp")
	require.NoError(t, WriteShapefile(path, testRecords()))

	for _, ext := range []string{".shp", ".shx", ".dbf", ".cpg"} {
		_, err := os.Stat(filepath.Join(dir, "karte"+ext))
		assert.NoError(t, err, ext)
	}
	_, err := os.Stat(filepath.Join(dir, "kartedbf"))
	assert.True(t, os.IsNotExist(err))

	cpg, err := os.ReadFile(filepath.Join(dir, "karte.cpg"))
	require.NoError(t, err)
	assert.Equal(t, "UTF-8", string(cpg))

	got, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Hauptstraße", got[0].Street)
	assert.Equal(t, "Hauptstraße 1-20", got[0].Original)
	assert.Equal(t, "51588", got[0].PostalCode)
	assert.Equal(t, "WBZ 10 - Mitte", got[0].DistrictLabel)
	assert.Equal(t, "Gisa Hauschildt", got[0].Candidate)
	assert.Equal(t, 1200, got[0].EligibleVoters)
	assert.Equal(t, "Marcus Schmitz", got[0].CountyCand)
	assert.InDelta(t, 50.9033978, got[0].Latitude, 1e-9)
	assert.InDelta(t, 7.5409481, got[0].Longitude, 1e-9)

	assert.Equal(t, "Jörg Reintsema", got[1].Candidate)
	assert.Equal(t, "Fallback: Zentrum Nümbrecht", got[1].GeocodeInfo)
	assert.Zero(t, got[1].EligibleVoters)
}

func TestAttributeTruncatesOnRuneBoundary(t *testing.T) {
	f := field{name: "city", kind: kindString, size: 5, value: func(r model.StreetRecord) any { return r.City }}
	// ü takes two bytes, so five bytes hold "Nümb" and two bytes only "N".
	got := attribute(f, model.StreetRecord{City: "Nümbrecht"})
	assert.Equal(t, "Nümb", got)

	f.size = 2
	got = attribute(f, model.StreetRecord{City: "Nümbrecht"})
	assert.Equal(t, "N", got)

	voters := fields[9]
	assert.Equal(t, 42, attribute(voters, model.StreetRecord{EligibleVoters: 42}))
}

func TestReadShapefile_MissingAttributeTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "karte.shp")
	require.NoError(t, WriteShapefile(path, testRecords()))
	require.NoError(t, os.Remove(filepath.Join(dir, "karte.dbf")))

	_, err := ReadShapefile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: open attribute table")
}

func TestReadShapefile_Missing(t *testing.T) {
	_, err := ReadShapefile(filepath.Join(t.TempDir(), "fehlt.shp"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: open attribute table")
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteAll(context.Background(), dir, testRecords(), GeoTargets("wahlkarte")))

	for _, name := range []string{"wahlkarte.geojson", "wahlkarte.shp", "wahlkarte.dbf"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestWriteAll_ErrorPropagates(t *testing.T) {
	failing := Target{Name: "x.txt", Write: func(string, []model.StreetRecord) error {
		return os.ErrPermission
	}}
	err := WriteAll(context.Background(), t.TempDir(), testRecords(), []Target{failing})
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestWriteAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	target := Target{Name: "x.txt", Write: func(string, []model.StreetRecord) error {
		called = true
		return nil
	}}
	err := WriteAll(ctx, t.TempDir(), nil, []Target{target})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "context canceled"))
	assert.False(t, called)
}
