// Package summary computes the per-candidate, per-county and per-district
// tables published next to the maps.
package summary

import (
	"sort"
	"strings"

	"github.com/wahlkarte/wahlkarte/internal/district"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/roster"
)

// CandidateRow is one line of kandidaten_uebersicht.csv.
type CandidateRow struct {
	Candidate      string `csv:"kandidat" json:"candidate"`
	DistrictCount  int    `csv:"anzahl_bezirke" json:"district_count"`
	Districts      string `csv:"bezirke" json:"districts"`
	EligibleVoters int    `csv:"gesamt_wahlberechtigte" json:"eligible_voters"`
	StreetsOnMap   int    `csv:"anzahl_strassen_auf_karte" json:"streets_on_map"`
	Color          string `csv:"farbe" json:"color"`
}

// CountyRow is one line of kreistagskandidaten_statistik.csv.
type CountyRow struct {
	County         string `csv:"Kreistagkandidat" json:"county_candidate"`
	CountyDistrict int    `csv:"Kreis-WBZ" json:"county_district"`
	DistrictCount  int    `csv:"Anzahl Bezirke" json:"district_count"`
	Districts      string `csv:"Wahlbezirke" json:"districts"`
	EligibleVoters int    `csv:"Gesamt Wahlberechtigte" json:"eligible_voters"`
	StreetsOnMap   int    `csv:"Straßen auf Karte" json:"streets_on_map"`
	WithStreets    string `csv:"Kandidaten mit Straßen" json:"with_streets"`
	WithoutStreets string `csv:"Kandidaten ohne Straßen" json:"without_streets"`
}

// DistrictRow is one line of kandidaten_bezirke.csv.
type DistrictRow struct {
	District    string `csv:"bezirk" json:"district"`
	Candidate   string `csv:"kandidat" json:"candidate"`
	Color       string `csv:"farbe" json:"color"`
	StreetCount int    `csv:"anzahl_strassen" json:"street_count"`
}

// Candidates summarises each candidate of the district file, sorted by name.
func Candidates(set *district.Set, records []model.StreetRecord, ros *roster.Roster) []CandidateRow {
	streets := countBy(records, func(r model.StreetRecord) string { return r.Candidate })
	groups := set.ByCandidate()

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]CandidateRow, 0, len(names))
	for _, name := range names {
		ids := groups[name]
		out = append(out, CandidateRow{
			Candidate:      name,
			DistrictCount:  len(ids),
			Districts:      strings.Join(ids, ", "),
			EligibleVoters: set.EligibleVoters(ids),
			StreetsOnMap:   streets[name],
			Color:          ros.Color(name),
		})
	}
	return out
}

// Counties summarises each county candidate in roster order. Eligible
// voters come from the first street row of each member, or from the
// district file for members without streets on the map.
func Counties(set *district.Set, records []model.StreetRecord, ros *roster.Roster) []CountyRow {
	first := make(map[string]model.StreetRecord)
	streets := make(map[string]int)
	for _, r := range records {
		if _, ok := first[r.Candidate]; !ok {
			first[r.Candidate] = r
		}
		streets[r.Candidate]++
	}

	out := make([]CountyRow, 0, len(ros.Counties))
	for _, c := range ros.Counties {
		row := CountyRow{
			County:         c.Name,
			CountyDistrict: c.CountyDistrict,
			DistrictCount:  len(c.Members),
		}
		var districts, with, without []string
		for _, m := range c.Members {
			districts = append(districts, m.District)
			if rec, ok := first[m.Candidate]; ok {
				with = append(with, m.Candidate)
				row.StreetsOnMap += streets[m.Candidate]
				row.EligibleVoters += rec.EligibleVoters
				continue
			}
			without = append(without, m.Candidate)
			if d, ok := set.Get(m.District); ok {
				row.EligibleVoters += d.EligibleVoters
			}
		}
		row.Districts = strings.Join(districts, ", ")
		row.WithStreets = strings.Join(with, ", ")
		row.WithoutStreets = "Keine"
		if len(without) > 0 {
			row.WithoutStreets = strings.Join(without, ", ")
		}
		out = append(out, row)
	}
	return out
}

// Districts lists each district in id order, labelled "<id> - <name>",
// with its street count.
func Districts(set *district.Set, records []model.StreetRecord, ros *roster.Roster) []DistrictRow {
	streets := countBy(records, func(r model.StreetRecord) string { return r.DistrictID })

	out := make([]DistrictRow, 0, set.Len())
	for _, d := range set.All() {
		out = append(out, DistrictRow{
			District:    d.Label(),
			Candidate:   d.Candidate,
			Color:       ros.Color(d.Candidate),
			StreetCount: streets[d.ID],
		})
	}
	return out
}

func countBy(records []model.StreetRecord, key func(model.StreetRecord) string) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		out[key(r)]++
	}
	return out
}
