package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahlkarte/wahlkarte/internal/config"
	"github.com/wahlkarte/wahlkarte/internal/district"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/streets"
	"github.com/wahlkarte/wahlkarte/internal/summary"
)

type fakeExtractor struct{ text string }

func (f fakeExtractor) ExtractText(context.Context, string) (string, error) { return f.text, nil }

// setupWorkspace points cfg at a temp dir holding a two-district assignment
// and a street table covering only WBZ 10.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cfg = &config.Config{
		Paths: config.PathsConfig{
			Districts: filepath.Join(dir, "wahlbezirke_zuordnung.json"),
			Streets:   filepath.Join(dir, "wahlbezirke_map.csv"),
			Complete:  filepath.Join(dir, "wahlbezirke_complete.csv"),
			OutputDir: dir,
		},
		Region: config.RegionConfig{
			City: "Nümbrecht", PostalCode: "51588", Country: "Deutschland",
			CenterLat: 50.9033978, CenterLon: 7.5409481,
		},
		Map: config.MapConfig{Title: "Testkarte", Party: "CDU", Zoom: 12, MarkerRadius: 8},
	}

	require.NoError(t, district.Write(cfg.Paths.Districts, []model.District{
		{ID: "WBZ 10", Name: "Mitte", Candidate: "Gisa Hauschildt", EligibleVoters: 1200, Streets: []string{"Hauptstraße"}},
		{ID: "WBZ 30", Name: "Gaderoth", Candidate: "Dagmar Schmitz", EligibleVoters: 500, Hamlets: []string{"Gaderoth"}},
	}))
	require.NoError(t, streets.WriteCSV(cfg.Paths.Streets, []model.StreetRecord{
		{
			Street: "Hauptstraße", Original: "Hauptstraße", PostalCode: "51588", City: "Nümbrecht",
			FullAddress: "Hauptstraße, 51588 Nümbrecht", DistrictID: "WBZ 10", DistrictLabel: "WBZ 10 - Mitte",
			Candidate: "Gisa Hauschildt", EligibleVoters: 1200, Latitude: 50.90, Longitude: 7.54,
		},
	}))
	return dir
}

func TestCompleteCommand_AddsMissingDistricts(t *testing.T) {
	setupWorkspace(t)

	require.NoError(t, completeCmd.RunE(completeCmd, nil))

	got, err := streets.ReadCSV(cfg.Paths.Complete)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Marcus Schmitz", got[0].CountyCand)
	assert.Equal(t, "Gaderoth (Ortszentrum)", got[1].Street)
	assert.Equal(t, "WBZ 30", got[1].DistrictID)
	assert.Equal(t, "Thomas Schlegel", got[1].CountyCand)
	assert.InDelta(t, streets.KnownHamlets["Gaderoth"].Lat, got[1].Latitude, 1e-9)
}

func TestCompleteCommand_MissingInputWritesNothing(t *testing.T) {
	setupWorkspace(t)
	require.NoError(t, os.Remove(cfg.Paths.Streets))

	require.NoError(t, completeCmd.RunE(completeCmd, nil))

	_, err := os.Stat(cfg.Paths.Complete)
	assert.True(t, os.IsNotExist(err))
}

func TestRenderCommand_WritesMaps(t *testing.T) {
	dir := setupWorkspace(t)
	cfg.Paths.Complete = cfg.Paths.Streets

	require.NoError(t, renderCmd.RunE(renderCmd, nil))

	for _, file := range mapFiles {
		data, err := os.ReadFile(filepath.Join(dir, file))
		require.NoError(t, err, file)
		assert.Contains(t, string(data), "Testkarte")
	}
}

func TestRenderCommand_InvalidZoom(t *testing.T) {
	setupWorkspace(t)
	cfg.Map.Zoom = 25

	err := renderCmd.RunE(renderCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map.zoom")
}

func TestSummaryCommand_WritesTables(t *testing.T) {
	dir := setupWorkspace(t)
	cfg.Paths.Complete = cfg.Paths.Streets

	require.NoError(t, summaryCmd.RunE(summaryCmd, nil))

	for _, file := range []string{summary.CandidatesFile, summary.CountiesFile, summary.DistrictsFile, summary.WorkbookFile} {
		_, err := os.Stat(filepath.Join(dir, file))
		assert.NoError(t, err, file)
	}

	data, err := os.ReadFile(filepath.Join(dir, summary.CandidatesFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Gisa Hauschildt,1,WBZ 10,1200,1,")
}

func TestExportCommand_WritesBundle(t *testing.T) {
	setupWorkspace(t)
	cfg.Paths.Complete = cfg.Paths.Streets
	out := filepath.Join(t.TempDir(), "bundle")
	exportDir = out
	t.Cleanup(func() { exportDir = "" })

	exportCmd.SetContext(t.Context())
	require.NoError(t, exportCmd.RunE(exportCmd, nil))

	expected := []string{
		"wahlbezirke.geojson", "wahlbezirke.shp", "wahlbezirke.dbf",
		summary.CandidatesFile, summary.CountiesFile, summary.DistrictsFile, summary.WorkbookFile,
	}
	for _, file := range mapFiles {
		expected = append(expected, file)
	}
	for _, file := range expected {
		_, err := os.Stat(filepath.Join(out, file))
		assert.NoError(t, err, file)
	}
}

func TestExtractDistricts_WritesAssignment(t *testing.T) {
	dir := setupWorkspace(t)
	pdf := filepath.Join(dir, "Kandidaten.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))

	ext := fakeExtractor{text: "Bezirk 10: Gisa Hauschildt\nHauptstraße\nBezirk 20\nJörg Reintsema\nSchulweg\n"}
	require.NoError(t, extractDistricts(t.Context(), ext, pdf))

	set, err := district.Load(filepath.Join(dir, "Kandidaten_bezirke.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bezirk 10", "Bezirk 20"}, set.IDs())
}

func TestExtractAddresses_WithoutGeocoding(t *testing.T) {
	dir := setupWorkspace(t)
	pdf := filepath.Join(dir, "Liste.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))
	extractNoGeocode = true
	t.Cleanup(func() { extractNoGeocode = false })

	ext := fakeExtractor{text: "Hauptstraße 12, 51588 Nümbrecht\nSchulweg 2, 51674 Wiehl\n"}
	require.NoError(t, extractAddresses(t.Context(), ext, pdf))

	got, err := streets.ReadCSV(filepath.Join(dir, "Liste_addresses.csv"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "12", got[0].HouseNumber)
	assert.Equal(t, "Wiehl", got[1].City)

	// Nothing is located, so no map is written.
	_, err = os.Stat(filepath.Join(dir, "Liste_map.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractAddresses_MissingPDF(t *testing.T) {
	dir := setupWorkspace(t)
	require.NoError(t, extractAddresses(t.Context(), fakeExtractor{}, filepath.Join(dir, "fehlt.pdf")))

	_, err := os.Stat(filepath.Join(dir, "fehlt_addresses.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestInitGeocoder_WithoutCache(t *testing.T) {
	setupWorkspace(t)
	cfg.Geocode = config.GeocodeConfig{
		NominatimURL: "http://127.0.0.1:1",
		UserAgent:    "wahlkarte_test",
		Retries:      1,
		Fallback:     true,
	}

	env, err := initGeocoder(t.Context())
	require.NoError(t, err)
	defer env.Close()

	assert.Nil(t, env.Cache)
	assert.Equal(t, "Fallback: Zentrum Nümbrecht", env.Resolver.Center().Info)
}

func TestInitGeocoder_WithSQLiteCache(t *testing.T) {
	dir := setupWorkspace(t)
	cfg.Geocode = config.GeocodeConfig{
		NominatimURL: "http://127.0.0.1:1",
		UserAgent:    "wahlkarte_test",
		Retries:      1,
		CacheEnabled: true,
		CacheTTLDays: 30,
	}
	cfg.Store = config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "cache.db")}

	env, err := initGeocoder(t.Context())
	require.NoError(t, err)
	defer env.Close()

	require.NotNil(t, env.Cache)
	st, err := env.Cache.Stats(t.Context())
	require.NoError(t, err)
	assert.Zero(t, st.Entries)
}

func TestInitGeocoder_InvalidConfig(t *testing.T) {
	setupWorkspace(t)
	cfg.Geocode = config.GeocodeConfig{}

	_, err := initGeocoder(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocode.user_agent is required")
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "a.csv", orDefault("a.csv", "b.csv"))
	assert.Equal(t, "b.csv", orDefault("", "b.csv"))
}
