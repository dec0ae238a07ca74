// Package roster maps local candidates to their display colours and to the
// county council candidate (Kreistagskandidat) they roll up to.
package roster

import (
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FallbackColor is used for candidates that are not on the roster.
const FallbackColor = "#808080"

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Member is a local candidate standing in one electoral sub-district.
type Member struct {
	Candidate string `yaml:"candidate"`
	District  string `yaml:"district"`
	Color     string `yaml:"color"`
}

// County is a county council candidate and the local candidates grouped
// under them.
type County struct {
	Name           string   `yaml:"name"`
	CountyDistrict int      `yaml:"county_district"`
	Color          string   `yaml:"color"`
	Members        []Member `yaml:"members"`
}

// Roster is the static candidate grouping for one election.
type Roster struct {
	Counties []County `yaml:"counties"`

	byCandidate map[string]ref
	byCounty    map[string]int
}

type ref struct {
	county int
	member int
}

// Load reads a roster from a YAML file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: read %s", path)
	}

	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "roster: parse yaml")
	}
	if err := r.index(); err != nil {
		return nil, err
	}
	return &r, nil
}

// New builds a roster from counties, validating colours and uniqueness.
func New(counties []County) (*Roster, error) {
	r := &Roster{Counties: counties}
	if err := r.index(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Roster) index() error {
	r.byCandidate = make(map[string]ref)
	r.byCounty = make(map[string]int, len(r.Counties))

	for ci, c := range r.Counties {
		if c.Name == "" {
			return eris.Errorf("roster: county %d has no name", ci)
		}
		if _, dup := r.byCounty[c.Name]; dup {
			return eris.Errorf("roster: duplicate county candidate %q", c.Name)
		}
		if !hexColor.MatchString(c.Color) {
			return eris.Errorf("roster: county %q has invalid color %q", c.Name, c.Color)
		}
		r.byCounty[c.Name] = ci

		for mi, m := range c.Members {
			if m.Candidate == "" {
				return eris.Errorf("roster: county %q member %d has no candidate", c.Name, mi)
			}
			if _, dup := r.byCandidate[m.Candidate]; dup {
				return eris.Errorf("roster: candidate %q listed twice", m.Candidate)
			}
			if !hexColor.MatchString(m.Color) {
				return eris.Errorf("roster: candidate %q has invalid color %q", m.Candidate, m.Color)
			}
			r.byCandidate[m.Candidate] = ref{county: ci, member: mi}
		}
	}
	return nil
}

// Color returns the candidate's marker colour, or FallbackColor.
func (r *Roster) Color(candidate string) string {
	if x, ok := r.byCandidate[candidate]; ok {
		return r.Counties[x.county].Members[x.member].Color
	}
	return FallbackColor
}

// County returns the county candidate the local candidate rolls up to.
func (r *Roster) County(candidate string) (string, bool) {
	x, ok := r.byCandidate[candidate]
	if !ok {
		return "", false
	}
	return r.Counties[x.county].Name, true
}

// CountyColor returns the county candidate's colour, or FallbackColor.
func (r *Roster) CountyColor(county string) string {
	if i, ok := r.byCounty[county]; ok {
		return r.Counties[i].Color
	}
	return FallbackColor
}

// CountyOfColor returns the colour of the county candidate above candidate.
func (r *Roster) CountyOfColor(candidate string) string {
	county, ok := r.County(candidate)
	if !ok {
		return FallbackColor
	}
	return r.CountyColor(county)
}

// District returns the sub-district the candidate stands in.
func (r *Roster) District(candidate string) (string, bool) {
	x, ok := r.byCandidate[candidate]
	if !ok {
		return "", false
	}
	return r.Counties[x.county].Members[x.member].District, true
}

// Lookup returns the county record by name.
func (r *Roster) Lookup(county string) (County, bool) {
	i, ok := r.byCounty[county]
	if !ok {
		return County{}, false
	}
	return r.Counties[i], true
}

// Candidates lists every local candidate in roster order.
func (r *Roster) Candidates() []string {
	out := make([]string, 0, len(r.byCandidate))
	for _, c := range r.Counties {
		for _, m := range c.Members {
			out = append(out, m.Candidate)
		}
	}
	return out
}
