// Package extract pulls postal addresses and district blocks out of text
// produced by OCR. Matching is pattern based and best effort: OCR noise
// yields misses, never errors.
package extract

import (
	"regexp"
	"strings"

	"github.com/wahlkarte/wahlkarte/internal/model"
)

// Words of a street or town name are joined by blanks only, so a town at
// the end of one line never absorbs the street starting the next.
const (
	word      = `[A-ZÄÖÜ][a-zäöüß\-\.]+`
	tailWords = `(?:[ \t]+[A-ZÄÖÜ]?[a-zäöüß\-\.]+)*`
)

var (
	// <Street words> <no>[a], <PLZ> <City words>
	fullAddress = regexp.MustCompile(`(` + word + tailWords + `)[ \t]+(\d+[a-zA-Z]?),?\s*(\d{5})[ \t]+(` + word + tailWords + `)`)

	// A single word ending in a street suffix, case-insensitive.
	streetName = regexp.MustCompile(`(?i)([A-ZÄÖÜ][a-zäöüß\-\.]+(?:straße|weg|platz|allee|ring|damm|gasse))`)

	districtHeader = regexp.MustCompile(`(?:Wahlbezirk|Bezirk)\s*(\d+)`)
	personName     = regexp.MustCompile(`([A-ZÄÖÜ][a-zäöüß]+(?:\s+[A-ZÄÖÜ][a-zäöüß]+)+)`)
)

// Defaults fill in the postal code and city for bare street names.
type Defaults struct {
	PostalCode string
	City       string
}

// Addresses returns the addresses found in text in order of appearance,
// de-duplicated by full address. Complete addresses win; only when there
// are none are bare street names collected, placed in the default town.
func Addresses(text string, defaults Defaults) []model.Address {
	var found []model.Address
	for _, m := range fullAddress.FindAllStringSubmatch(text, -1) {
		street := strings.TrimSpace(m[1])
		number := strings.TrimSpace(m[2])
		postal := strings.TrimSpace(m[3])
		city := strings.TrimSpace(m[4])
		found = append(found, model.Address{
			Street:      street,
			HouseNumber: number,
			PostalCode:  postal,
			City:        city,
			FullAddress: street + " " + number + ", " + postal + " " + city,
		})
	}

	if len(found) == 0 {
		for _, m := range streetName.FindAllStringSubmatch(text, -1) {
			street := strings.TrimSpace(m[1])
			found = append(found, model.Address{
				Street:      street,
				PostalCode:  defaults.PostalCode,
				City:        defaults.City,
				FullAddress: model.FormatAddress(street, defaults.PostalCode, defaults.City),
			})
		}
	}

	return dedupe(found)
}

func dedupe(addrs []model.Address) []model.Address {
	seen := make(map[string]bool, len(addrs))
	out := make([]model.Address, 0, len(addrs))
	for _, a := range addrs {
		if seen[a.FullAddress] {
			continue
		}
		seen[a.FullAddress] = true
		out = append(out, a)
	}
	return out
}

// Districts splits text into "Bezirk <n>" blocks. The candidate name is
// taken from the header line after the number, or from the next line.
// Street names are collected until the next header. Blocks without a
// candidate are dropped.
func Districts(text string) []model.District {
	lines := strings.Split(text, "\n")

	var out []model.District
	var cur *model.District
	flush := func() {
		if cur != nil && cur.Candidate != "" {
			out = append(out, *cur)
		}
		cur = nil
	}

	for i, line := range lines {
		loc := districtHeader.FindStringSubmatchIndex(line)
		if loc == nil {
			if cur != nil {
				for _, m := range streetName.FindAllStringSubmatch(line, -1) {
					cur.Streets = append(cur.Streets, m[1])
				}
			}
			continue
		}

		flush()
		cur = &model.District{ID: "Bezirk " + line[loc[2]:loc[3]]}
		if m := personName.FindStringSubmatch(line[loc[1]:]); m != nil {
			cur.Candidate = m[1]
		} else if i+1 < len(lines) {
			if m := personName.FindStringSubmatch(lines[i+1]); m != nil {
				cur.Candidate = m[1]
			}
		}
	}
	flush()

	return out
}
