package streets

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahlkarte/wahlkarte/internal/district"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/roster"
	"github.com/wahlkarte/wahlkarte/pkg/geocode"
)

var region = geocode.Region{
	City:       "Nümbrecht",
	PostalCode: "51588",
	Country:    "Deutschland",
	CenterLat:  50.9033978,
	CenterLon:  7.5409481,
}

func testSet() *district.Set {
	return district.NewSet([]model.District{
		{ID: "WBZ 10", Name: "Nümbrecht-Mitte", Candidate: "Gisa Hauschildt", EligibleVoters: 1204,
			Streets: []string{"Hauptstraße - 1-17", "Lindchenweg - alle", "Unbekannter Weg"}},
		{ID: "WBZ 160", Name: "Marienberghausen", Candidate: "Thomas Schlegel", EligibleVoters: 640,
			Hamlets: []string{"Marienberghausen", "Geisterdorf"}},
		{ID: "WBZ 20", Name: "Gaderoth", Candidate: "Dagmar Schmitz", EligibleVoters: 410},
		{ID: "WBZ 30", Name: "Neuhausen", Candidate: "Niemand Bekannt", EligibleVoters: 300},
	})
}

// fakeResolver answers from a table and falls back to the centre for
// Resolve, like geocode.Resolver.
type fakeResolver struct {
	known map[string]geocode.Resolution
	err   error
	calls []string
}

func (f *fakeResolver) Lookup(_ context.Context, street string) (*geocode.Resolution, error) {
	f.calls = append(f.calls, street)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.known[street]; ok {
		return &r, nil
	}
	return nil, geocode.ErrNoMatch
}

func (f *fakeResolver) Resolve(ctx context.Context, street string) (*geocode.Resolution, error) {
	r, err := f.Lookup(ctx, street)
	if errors.Is(err, geocode.ErrNoMatch) {
		return &geocode.Resolution{Latitude: region.CenterLat, Longitude: region.CenterLon,
			Info: "Fallback: Zentrum Nümbrecht", Fallback: true}, nil
	}
	return r, err
}

func TestFromDistricts(t *testing.T) {
	res := &fakeResolver{known: map[string]geocode.Resolution{
		"Hauptstraße":      {Latitude: 50.905, Longitude: 7.542, Info: "Hauptstraße, Nümbrecht"},
		"Lindchenweg":      {Latitude: 50.907, Longitude: 7.545, Info: "Lindchenweg, Nümbrecht"},
		"Marienberghausen": {Latitude: 50.870, Longitude: 7.530, Info: "Marienberghausen"},
	}}

	var progressed int
	records, err := FromDistricts(context.Background(), testSet(), res, region,
		func(done, total int, _ model.StreetRecord) {
			progressed++
			assert.LessOrEqual(t, done, total)
			assert.Equal(t, 5, total)
		})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hauptstraße", "Lindchenweg", "Unbekannter Weg", "Marienberghausen", "Geisterdorf"}, res.calls)
	require.Len(t, records, 4)
	assert.Equal(t, 4, progressed)

	first := records[0]
	assert.Equal(t, "Hauptstraße", first.Street)
	assert.Equal(t, "Hauptstraße - 1-17", first.Original)
	assert.Equal(t, "Hauptstraße, 51588 Nümbrecht", first.FullAddress)
	assert.Equal(t, "WBZ 10", first.DistrictID)
	assert.Equal(t, "WBZ 10 - Nümbrecht-Mitte", first.DistrictLabel)
	assert.Equal(t, "Gisa Hauschildt", first.Candidate)
	assert.Equal(t, 1204, first.EligibleVoters)
	assert.InDelta(t, 50.905, first.Latitude, 1e-9)

	fallback := records[2]
	assert.Equal(t, "Unbekannter Weg", fallback.Street)
	assert.Equal(t, "Fallback: Zentrum Nümbrecht", fallback.GeocodeInfo)
	assert.InDelta(t, 50.9033978, fallback.Latitude, 1e-9)

	hamlet := records[3]
	assert.Equal(t, "Marienberghausen", hamlet.Street)
	assert.Equal(t, "Marienberghausen", hamlet.Original)
	assert.Equal(t, "WBZ 160", hamlet.DistrictID)
}

func TestFromDistricts_PermanentError(t *testing.T) {
	res := &fakeResolver{err: errors.New("geocode: nominatim returned status 403")}
	_, err := FromDistricts(context.Background(), testSet(), res, region, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func baseRecords() []model.StreetRecord {
	return []model.StreetRecord{
		{Street: "Hauptstraße", DistrictID: "WBZ 10", Candidate: "Gisa Hauschildt", Latitude: 50.905, Longitude: 7.542},
		{Street: "Lindchenweg", DistrictID: "WBZ 10", Candidate: "Gisa Hauschildt", Latitude: 50.907, Longitude: 7.545},
		{Street: "Marienberghausen", DistrictID: "WBZ 160", Candidate: "Thomas Schlegel", Latitude: 50.87, Longitude: 7.53},
	}
}

func TestMissing(t *testing.T) {
	assert.Equal(t, []string{"WBZ 20", "WBZ 30"}, Missing(baseRecords(), testSet()))
	assert.Equal(t, []string{"WBZ 10", "WBZ 20", "WBZ 30", "WBZ 160"}, Missing(nil, testSet()))
}

func TestComplete(t *testing.T) {
	base := baseRecords()
	set := testSet()
	out := Complete(base, set, roster.Default(), KnownHamlets, region)

	require.Len(t, out, len(base)+len(Missing(base, set)))
	assert.Empty(t, base[0].CountyCand, "base must not be modified")

	gaderoth := out[3]
	assert.Equal(t, "Gaderoth (Ortszentrum)", gaderoth.Street)
	assert.Equal(t, "Gaderoth", gaderoth.Original)
	assert.Equal(t, "Gaderoth, 51588 Nümbrecht", gaderoth.FullAddress)
	assert.Equal(t, "WBZ 20 - Gaderoth", gaderoth.DistrictLabel)
	assert.Equal(t, 410, gaderoth.EligibleVoters)
	assert.InDelta(t, 50.8849, gaderoth.Latitude, 1e-9)
	assert.InDelta(t, 7.5680, gaderoth.Longitude, 1e-9)
	assert.Equal(t, "Thomas Schlegel", gaderoth.CountyCand)

	unknown := out[4]
	assert.Equal(t, "WBZ 30", unknown.DistrictID)
	assert.InDelta(t, 50.9033978, unknown.Latitude, 1e-9)
	assert.Empty(t, unknown.CountyCand)

	assert.Equal(t, "Marcus Schmitz", out[0].CountyCand)
	assert.Equal(t, "Thomas Schlegel", out[2].CountyCand)
}

func TestComplete_Idempotent(t *testing.T) {
	set := testSet()
	once := Complete(baseRecords(), set, roster.Default(), KnownHamlets, region)
	twice := Complete(once, set, roster.Default(), KnownHamlets, region)
	assert.Equal(t, once, twice)
}

func TestAssignCounty_PreservesRows(t *testing.T) {
	base := baseRecords()
	out := AssignCounty(base, roster.Default())
	require.Len(t, out, len(base))
	for i := range base {
		assert.Equal(t, base[i].Street, out[i].Street)
	}
	assert.Equal(t, "Marcus Schmitz", out[1].CountyCand)
}

func TestConcat(t *testing.T) {
	a := baseRecords()
	b := baseRecords()[:1]
	out := Concat(a, b)
	assert.Len(t, out, len(a)+len(b))
	assert.Len(t, Concat(nil, nil), 0)
}

func TestLocated(t *testing.T) {
	recs := append(baseRecords(), model.StreetRecord{Street: "Ohne Koordinaten"})
	assert.Len(t, Located(recs), 3)
}

func TestCSV_RoundTripFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wahlbezirke_complete.csv")
	recs := AssignCounty(baseRecords(), roster.Default())
	require.NoError(t, WriteCSV(path, recs))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestDecode_OriginalColumns(t *testing.T) {
	csvText := strings.Join([]string{
		"street,original,house_number,postal_code,city,full_address,wbz,bezirk,kandidat,wahlberechtigte,latitude,longitude,geocode_info",
		`Hauptstraße,Hauptstraße - 1-17,,51588,Nümbrecht,"Hauptstraße, 51588 Nümbrecht",WBZ 10,WBZ 10 - Nümbrecht-Mitte,Gisa Hauschildt,1204,50.905,7.542,"Hauptstraße, Nümbrecht"`,
	}, "\n")

	recs, err := Decode(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Hauptstraße - 1-17", recs[0].Original)
	assert.Equal(t, 1204, recs[0].EligibleVoters)
	assert.Empty(t, recs[0].CountyCand)
}

func TestEncode_EmptyWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, nil))
	assert.True(t, strings.HasPrefix(buf.String(), "street,original,house_number"))
}

func TestReadCSV_StripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.csv")
	var buf bytes.Buffer
	buf.WriteString("\xef\xbb\xbf")
	require.NoError(t, Encode(&buf, baseRecords()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	recs, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Hauptstraße", recs[0].Street)
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty csv")
}

func TestDecode_BlankNumericCells(t *testing.T) {
	csvText := strings.Join([]string{
		"street,wbz,kandidat,wahlberechtigte,latitude,longitude",
		"Am Markt,WBZ 10,Gisa Hauschildt,,,",
		"Lindchenweg,WBZ 20,Dagmar Schmitz,1234.0,NaN,nan",
		"Hauptstraße,WBZ 10,Gisa Hauschildt,12,50.9,7.54",
	}, "\n")

	recs, err := Decode(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Zero(t, recs[0].EligibleVoters)
	assert.False(t, recs[0].HasCoordinates())
	assert.Equal(t, 1234, recs[1].EligibleVoters)
	assert.False(t, recs[1].HasCoordinates())
	assert.Equal(t, 12, recs[2].EligibleVoters)
	assert.InDelta(t, 7.54, recs[2].Longitude, 1e-9)
	assert.Len(t, Located(recs), 1)
}

func TestDecode_RejectsFractionalVoters(t *testing.T) {
	_, err := Decode(strings.NewReader("street,wahlberechtigte\nAm Markt,12.5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "streets: decode row")
}
