// Package streets builds and transforms the table of geocoded streets that
// every map and summary is drawn from.
package streets

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/district"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/normalize"
	"github.com/wahlkarte/wahlkarte/internal/roster"
	"github.com/wahlkarte/wahlkarte/pkg/geocode"
)

// Resolver is the geocoding surface FromDistricts needs.
type Resolver interface {
	// Lookup returns geocode.ErrNoMatch on a miss.
	Lookup(ctx context.Context, street string) (*geocode.Resolution, error)
	// Resolve falls back to the town centre on a miss.
	Resolve(ctx context.Context, street string) (*geocode.Resolution, error)
}

// Coord is a latitude/longitude pair.
type Coord struct {
	Lat float64
	Lon float64
}

// KnownHamlets holds hand-checked hamlet centres for Nümbrecht districts
// that have no geocodable streets.
var KnownHamlets = map[string]Coord{
	"Gaderoth":         {50.8849, 7.5680},
	"Breunfeld":        {50.8890, 7.5750},
	"Oberbreidenbach":  {50.8776, 7.5876},
	"Prombach":         {50.8820, 7.5920},
	"Winterborn":       {50.9180, 7.5950},
	"Grötzenberg":      {50.9250, 7.5780},
	"Hömel":            {50.9150, 7.5650},
	"Benroth":          {50.8950, 7.5550},
	"Berkenroth":       {50.8980, 7.5580},
	"Harscheid":        {50.8850, 7.5450},
	"Marienberghausen": {50.8700, 7.5300},
	"Elsenroth":        {50.8600, 7.5400},
}

// Progress is called after each geocoded entry.
type Progress func(done, total int, rec model.StreetRecord)

// FromDistricts geocodes every street of every district, in district order.
// Districts without streets contribute their hamlets instead; a hamlet that
// cannot be found is dropped, while a street that cannot be found is placed
// at the town centre by the resolver.
func FromDistricts(ctx context.Context, set *district.Set, r Resolver, region geocode.Region, progress Progress) ([]model.StreetRecord, error) {
	total := 0
	for _, d := range set.All() {
		if len(d.Streets) == 0 {
			total += len(d.Hamlets)
		}
		total += len(d.Streets)
	}

	var out []model.StreetRecord
	done := 0
	report := func(rec model.StreetRecord) {
		done++
		if progress != nil {
			progress(done, total, rec)
		}
	}

	for _, d := range set.All() {
		log := zap.L().With(zap.String("wbz", d.ID), zap.String("kandidat", d.Candidate))

		if len(d.Streets) == 0 {
			for _, hamlet := range d.Hamlets {
				res, err := r.Lookup(ctx, hamlet)
				if errors.Is(err, geocode.ErrNoMatch) {
					log.Warn("hamlet not found, skipping", zap.String("ortsteil", hamlet))
					done++
					continue
				}
				if err != nil {
					return nil, eris.Wrapf(err, "streets: geocode hamlet %q", hamlet)
				}
				rec := newRecord(d, hamlet, hamlet, region, res)
				out = append(out, rec)
				report(rec)
			}
		}

		for _, raw := range d.Streets {
			street := normalize.CleanStreet(raw)
			res, err := r.Resolve(ctx, street)
			if err != nil {
				return nil, eris.Wrapf(err, "streets: geocode %q", street)
			}
			if res.Fallback {
				log.Warn("street not found, using town centre", zap.String("street", street))
			}
			rec := newRecord(d, street, raw, region, res)
			out = append(out, rec)
			report(rec)
		}
	}
	return out, nil
}

func newRecord(d model.District, street, original string, region geocode.Region, res *geocode.Resolution) model.StreetRecord {
	return model.StreetRecord{
		Street:         street,
		Original:       original,
		PostalCode:     region.PostalCode,
		City:           region.City,
		FullAddress:    model.FormatAddress(street, region.PostalCode, region.City),
		DistrictID:     d.ID,
		DistrictLabel:  d.Label(),
		Candidate:      d.Candidate,
		EligibleVoters: d.EligibleVoters,
		Latitude:       res.Latitude,
		Longitude:      res.Longitude,
		GeocodeInfo:    res.Info,
	}
}

// Missing returns the ids of districts with no row in records, in district order.
func Missing(records []model.StreetRecord, set *district.Set) []string {
	present := make(map[string]bool, len(records))
	for _, r := range records {
		present[r.DistrictID] = true
	}
	var out []string
	for _, id := range set.IDs() {
		if !present[id] {
			out = append(out, id)
		}
	}
	return out
}

// Complete appends one hamlet-centre row for every district absent from
// base and assigns county candidates to all rows. Coordinates come from
// known, keyed by district name, or the region centre. The result has
// exactly len(base)+len(Missing(base, set)) rows; base is not modified.
func Complete(base []model.StreetRecord, set *district.Set, ros *roster.Roster, known map[string]Coord, region geocode.Region) []model.StreetRecord {
	missing := Missing(base, set)
	added := make([]model.StreetRecord, 0, len(missing))

	for _, id := range missing {
		d, _ := set.Get(id)
		c, ok := known[d.Name]
		if !ok {
			c = Coord{Lat: region.CenterLat, Lon: region.CenterLon}
			zap.L().Warn("no known hamlet centre, using town centre",
				zap.String("wbz", id), zap.String("ortsteil", d.Name))
		}
		added = append(added, model.StreetRecord{
			Street:         fmt.Sprintf("%s (Ortszentrum)", d.Name),
			Original:       d.Name,
			PostalCode:     region.PostalCode,
			City:           region.City,
			FullAddress:    model.FormatAddress(d.Name, region.PostalCode, region.City),
			DistrictID:     id,
			DistrictLabel:  fmt.Sprintf("%s - %s", id, d.Name),
			Candidate:      d.Candidate,
			EligibleVoters: d.EligibleVoters,
			Latitude:       c.Lat,
			Longitude:      c.Lon,
		})
	}

	return AssignCounty(Concat(base, added), ros)
}

// AssignCounty returns a copy of records with the county candidate filled
// from the roster. Candidates not on the roster get an empty value.
func AssignCounty(records []model.StreetRecord, ros *roster.Roster) []model.StreetRecord {
	out := make([]model.StreetRecord, len(records))
	for i, r := range records {
		county, _ := ros.County(r.Candidate)
		r.CountyCand = county
		out[i] = r
	}
	return out
}

// Concat returns a new slice holding a followed by b.
func Concat(a, b []model.StreetRecord) []model.StreetRecord {
	out := make([]model.StreetRecord, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// Located drops records without coordinates.
func Located(records []model.StreetRecord) []model.StreetRecord {
	out := make([]model.StreetRecord, 0, len(records))
	for _, r := range records {
		if r.HasCoordinates() {
			out = append(out, r)
		}
	}
	return out
}
