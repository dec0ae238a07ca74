package export

import (
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/model"
)

// dbfNameLen is the longest field name a DBF header can hold.
const dbfNameLen = 10

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
)

type field struct {
	name  string
	kind  fieldKind
	size  uint8
	value func(model.StreetRecord) any
}

// fields lists the exported attributes in CSV column order.
var fields = []field{
	{"street", kindString, 100, func(r model.StreetRecord) any { return r.Street }},
	{"original", kindString, 150, func(r model.StreetRecord) any { return r.Original }},
	{"house_number", kindString, 10, func(r model.StreetRecord) any { return r.HouseNumber }},
	{"postal_code", kindString, 5, func(r model.StreetRecord) any { return r.PostalCode }},
	{"city", kindString, 50, func(r model.StreetRecord) any { return r.City }},
	{"full_address", kindString, 200, func(r model.StreetRecord) any { return r.FullAddress }},
	{"wbz", kindString, 20, func(r model.StreetRecord) any { return r.DistrictID }},
	{"bezirk", kindString, 100, func(r model.StreetRecord) any { return r.DistrictLabel }},
	{"kandidat", kindString, 80, func(r model.StreetRecord) any { return r.Candidate }},
	{"wahlberechtigte", kindInt, 10, func(r model.StreetRecord) any { return r.EligibleVoters }},
	{"latitude", kindFloat, 12, func(r model.StreetRecord) any { return r.Latitude }},
	{"longitude", kindFloat, 12, func(r model.StreetRecord) any { return r.Longitude }},
	{"geocode_info", kindString, 150, func(r model.StreetRecord) any { return r.GeocodeInfo }},
	{"kreistagkandidat", kindString, 80, func(r model.StreetRecord) any { return r.CountyCand }},
}

// DBFNames returns the attribute names as stored in the DBF header:
// truncated to ten characters and made unique with a numeric suffix.
func DBFNames() []string {
	out := make([]string, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		name := truncate(f.name, dbfNameLen)
		for n := 1; seen[name]; n++ {
			suffix := strconv.Itoa(n)
			name = truncate(f.name, dbfNameLen-len(suffix)) + suffix
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// WriteShapefile writes located records as a point shapefile. path names
// the .shp file; the .shx, .dbf and .cpg siblings are written next to it.
func WriteShapefile(path string, records []model.StreetRecord) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}

	names := DBFNames()
	shpFields := make([]shp.Field, len(fields))
	for i, f := range fields {
		switch f.kind {
		case kindInt:
			shpFields[i] = shp.NumberField(names[i], f.size)
		case kindFloat:
			shpFields[i] = shp.FloatField(names[i], f.size, 7)
		default:
			shpFields[i] = shp.StringField(names[i], f.size)
		}
	}
	if err := w.SetFields(shpFields); err != nil {
		w.Close()
		return eris.Wrap(err, "export: set shapefile fields")
	}

	written, skipped := 0, 0
	for _, r := range records {
		if !r.HasCoordinates() {
			skipped++
			continue
		}
		row := int(w.Write(&shp.Point{X: r.Longitude, Y: r.Latitude}))
		for i, f := range fields {
			if err := w.WriteAttribute(row, i, attribute(f, r)); err != nil {
				w.Close()
				return eris.Wrapf(err, "export: write attribute %s", f.name)
			}
		}
		written++
	}
	w.Close()

	base := strings.TrimSuffix(path, ".shp")
	// go-shp names the attribute table "<base>dbf".
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "export: move attribute table for %s", path)
	}

	cpg := base + ".cpg"
	if err := os.WriteFile(cpg, []byte("UTF-8"), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", cpg)
	}

	if skipped > 0 {
		zap.L().Debug("export: skipped records without coordinates",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	zap.L().Info("export: shapefile written", zap.String("path", path), zap.Int("points", written))
	return nil
}

// attribute returns the DBF value for f. Strings are cut to the field size
// on a rune boundary.
func attribute(f field, r model.StreetRecord) any {
	v := f.value(r)
	s, ok := v.(string)
	if !ok || len(s) <= int(f.size) {
		return v
	}
	cut := int(f.size)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// ReadShapefile reads the points and attributes of a shapefile written by
// WriteShapefile back into records.
func ReadShapefile(path string) ([]model.StreetRecord, error) {
	dbfPath := strings.TrimSuffix(path, ".shp") + ".dbf"
	if _, err := os.Stat(dbfPath); err != nil {
		return nil, eris.Wrapf(err, "export: open attribute table %s", dbfPath)
	}
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := make(map[string]int)
	for i, f := range reader.Fields() {
		idx[strings.ToLower(strings.TrimRight(f.String(), "\x00"))] = i
	}
	dbf := make(map[string]int, len(fields))
	for i, name := range DBFNames() {
		if j, ok := idx[name]; ok {
			dbf[fields[i].name] = j
		}
	}

	var out []model.StreetRecord
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			continue
		}
		attr := func(name string) string {
			j, ok := dbf[name]
			if !ok {
				return ""
			}
			return strings.TrimSpace(strings.TrimRight(reader.Attribute(j), "\x00"))
		}
		voters, _ := strconv.Atoi(attr("wahlberechtigte"))
		out = append(out, model.StreetRecord{
			Street:         attr("street"),
			Original:       attr("original"),
			HouseNumber:    attr("house_number"),
			PostalCode:     attr("postal_code"),
			City:           attr("city"),
			FullAddress:    attr("full_address"),
			DistrictID:     attr("wbz"),
			DistrictLabel:  attr("bezirk"),
			Candidate:      attr("kandidat"),
			EligibleVoters: voters,
			Latitude:       pt.Y,
			Longitude:      pt.X,
			GeocodeInfo:    attr("geocode_info"),
			CountyCand:     attr("kreistagkandidat"),
		})
	}
	return out, nil
}
