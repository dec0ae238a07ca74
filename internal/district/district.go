// Package district loads the Wahlbezirk assignment file: which candidate
// stands in which sub-district and which streets belong to it.
package district

import (
	"encoding/json"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/wahlkarte/wahlkarte/internal/model"
)

var trailingNumber = regexp.MustCompile(`(\d+)\s*$`)

// file mirrors the on-disk layout: {"wahlbezirke": {"WBZ 10": {...}}}.
type file struct {
	Districts map[string]model.District `json:"wahlbezirke"`
}

// Set is the read-only collection of districts for one run.
type Set struct {
	byID map[string]model.District
	ids  []string
}

// Load reads and parses the district assignment JSON.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "district: read %s", path)
	}
	return Parse(data)
}

// Parse decodes district JSON.
func Parse(data []byte) (*Set, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "district: parse json")
	}
	if len(f.Districts) == 0 {
		return nil, eris.New("district: no wahlbezirke in file")
	}

	districts := make([]model.District, 0, len(f.Districts))
	for id, d := range f.Districts {
		d.ID = id
		districts = append(districts, d)
	}
	return NewSet(districts), nil
}

// NewSet builds a Set from districts; later duplicates win.
func NewSet(districts []model.District) *Set {
	s := &Set{byID: make(map[string]model.District, len(districts))}
	for _, d := range districts {
		if _, seen := s.byID[d.ID]; !seen {
			s.ids = append(s.ids, d.ID)
		}
		s.byID[d.ID] = d
	}
	sort.SliceStable(s.ids, func(i, j int) bool { return Less(s.ids[i], s.ids[j]) })
	return s
}

// Less orders district ids by their trailing number ("WBZ 20" < "WBZ 100"),
// then lexically.
func Less(a, b string) bool {
	na, okA := idNumber(a)
	nb, okB := idNumber(b)
	switch {
	case okA && okB && na != nb:
		return na < nb
	case okA != okB:
		return okA
	default:
		return a < b
	}
}

func idNumber(id string) (int, bool) {
	m := trailingNumber.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IDs returns district ids in numeric order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of districts.
func (s *Set) Len() int { return len(s.ids) }

// Get returns the district with the given id.
func (s *Set) Get(id string) (model.District, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// All returns the districts in id order.
func (s *Set) All() []model.District {
	out := make([]model.District, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id])
	}
	return out
}

// ByCandidate groups district ids by candidate, ids in numeric order.
func (s *Set) ByCandidate() map[string][]string {
	out := make(map[string][]string)
	for _, id := range s.ids {
		d := s.byID[id]
		out[d.Candidate] = append(out[d.Candidate], id)
	}
	return out
}

// Candidates returns the distinct candidate names, sorted.
func (s *Set) Candidates() []string {
	groups := s.ByCandidate()
	out := make([]string, 0, len(groups))
	for c := range groups {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// EligibleVoters sums eligible voters over the given district ids.
// Unknown ids count as zero.
func (s *Set) EligibleVoters(ids []string) int {
	total := 0
	for _, id := range ids {
		total += s.byID[id].EligibleVoters
	}
	return total
}

// Label returns "<id> - <name>", or the bare id when unknown.
func (s *Set) Label(id string) string {
	d, ok := s.byID[id]
	if !ok {
		return id
	}
	return d.Label()
}

// Write stores districts in the assignment file layout, so districts pulled
// from a PDF can feed the rest of the pipeline.
func Write(path string, districts []model.District) error {
	f := file{Districts: make(map[string]model.District, len(districts))}
	for _, d := range districts {
		f.Districts[d.ID] = d
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return eris.Wrap(err, "district: marshal json")
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "district: write %s", path)
}
