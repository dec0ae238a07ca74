// Package mapview turns street records into a Leaflet page: markers grouped
// into toggleable layers plus the legend and control panel for one of the
// map modes.
package mapview

import (
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/wahlkarte/wahlkarte/internal/district"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/roster"
)

// Mode selects how markers are grouped and which controls are shown.
type Mode string

// Map modes.
const (
	ModeCandidate  Mode = "candidate"
	ModeCounty     Mode = "county"
	ModeIndividual Mode = "individual"
	ModeAddresses  Mode = "addresses"
)

// OtherGroup holds candidates that are not on the roster.
const OtherGroup = "Sonstige"

// ErrNoRecords is returned when no record carries coordinates.
var ErrNoRecords = eris.New("mapview: no records with coordinates")

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeCandidate, ModeCounty, ModeIndividual, ModeAddresses:
		return m, nil
	}
	return "", eris.Errorf("mapview: unknown mode %q", s)
}

// Marker is one circle (or pin, for addresses) on the map.
type Marker struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Layer   string  `json:"layer"`
	Stroke  string  `json:"stroke"`
	Fill    string  `json:"fill"`
	Popup   string  `json:"popup"`
	Tooltip string  `json:"tooltip"`
}

// Layer is a toggleable set of markers, one per candidate or per
// candidate and district.
type Layer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Candidate string `json:"candidate"`
	District  string `json:"district"`
	Group     string `json:"group"`
	Color     string `json:"color"`
	Count     int    `json:"count"`
}

// Group is a county candidate and the layers of their members.
type Group struct {
	Name           string   `json:"name"`
	CountyDistrict int      `json:"countyDistrict"`
	Color          string   `json:"color"`
	Layers         []string `json:"layers"`
	Districts      int      `json:"districts"`
	Count          int      `json:"count"`
}

// Page is everything the HTML template needs.
type Page struct {
	Title       string
	Party       string
	Mode        Mode
	CenterLat   float64
	CenterLon   float64
	Zoom        int
	Radius      int
	TileURL     string
	Attribution string
	Layers      []Layer
	Groups      []Group
	Markers     []Marker
}

// Cluster reports whether markers are clustered instead of layered.
func (p *Page) Cluster() bool { return p.Mode == ModeAddresses }

// Option customises a Page.
type Option func(*Page)

// WithTitle sets the legend title.
func WithTitle(title string) Option {
	return func(p *Page) { p.Title = title }
}

// WithParty sets the party prefix of the candidate line in popups.
func WithParty(party string) Option {
	return func(p *Page) { p.Party = party }
}

// WithZoom overrides the mode's initial zoom level.
func WithZoom(zoom int) Option {
	return func(p *Page) {
		if zoom > 0 {
			p.Zoom = zoom
		}
	}
}

// WithRadius sets the circle marker radius in pixels.
func WithRadius(radius int) Option {
	return func(p *Page) {
		if radius > 0 {
			p.Radius = radius
		}
	}
}

// WithTiles sets the tile URL template and its attribution.
func WithTiles(url, attribution string) Option {
	return func(p *Page) {
		if url != "" {
			p.TileURL = url
			p.Attribution = attribution
		}
	}
}

// Build groups records into layers for mode and computes the map view.
// Records without coordinates are skipped.
func Build(records []model.StreetRecord, ros *roster.Roster, set *district.Set, mode Mode, opts ...Option) (*Page, error) {
	located := make([]model.StreetRecord, 0, len(records))
	for _, r := range records {
		if r.HasCoordinates() {
			located = append(located, r)
		}
	}
	if len(located) == 0 {
		return nil, ErrNoRecords
	}

	p := &Page{
		Title:       "Wahlbezirke",
		Party:       "CDU",
		Mode:        mode,
		Zoom:        12,
		Radius:      8,
		TileURL:     "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "&copy; OpenStreetMap contributors",
	}
	if mode == ModeAddresses {
		p.Zoom = 13
	}
	for _, opt := range opts {
		opt(p)
	}
	p.CenterLat, p.CenterLon = center(located)

	var err error
	switch mode {
	case ModeCandidate:
		err = p.buildCandidates(located, ros, set)
	case ModeCounty, ModeIndividual:
		err = p.buildCounties(located, ros, set)
	case ModeAddresses:
		err = p.buildAddresses(located)
	default:
		err = eris.Errorf("mapview: unknown mode %q", mode)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func center(records []model.StreetRecord) (float64, float64) {
	var lat, lon float64
	for _, r := range records {
		lat += r.Latitude
		lon += r.Longitude
	}
	n := float64(len(records))
	return lat / n, lon / n
}

// buildCandidates makes one layer per candidate, candidates sorted by name.
// Candidates of the district file without streets still get a legend entry.
func (p *Page) buildCandidates(records []model.StreetRecord, ros *roster.Roster, set *district.Set) error {
	names := map[string]bool{}
	if set != nil {
		for _, c := range set.Candidates() {
			names[c] = true
		}
	}
	for _, r := range records {
		names[r.Candidate] = true
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	ids := make(map[string]int, len(sorted))
	for i, name := range sorted {
		ids[name] = i
		l := Layer{ID: layerID(i), Name: name, Candidate: name, Color: ros.Color(name)}
		if set != nil {
			l.District = strings.Join(set.ByCandidate()[name], ", ")
		}
		p.Layers = append(p.Layers, l)
	}

	for _, r := range records {
		i := ids[r.Candidate]
		p.Layers[i].Count++
		if err := p.addMarker(r, p.Layers[i].ID, ros.Color(r.Candidate), ros); err != nil {
			return err
		}
	}
	return nil
}

// buildCounties makes one layer per roster member, grouped by county
// candidate in roster order. Unknown candidates land in OtherGroup.
func (p *Page) buildCounties(records []model.StreetRecord, ros *roster.Roster, set *district.Set) error {
	layerOf := make(map[string]int)
	groupOf := make(map[string]int)

	addLayer := func(gi int, candidate, districtID string) int {
		i := len(p.Layers)
		name := candidate
		if p.Mode == ModeIndividual && districtID != "" {
			name = fmt.Sprintf("%s (%s)", candidate, districtID)
		}
		p.Layers = append(p.Layers, Layer{
			ID:        layerID(i),
			Name:      name,
			Candidate: candidate,
			District:  districtID,
			Group:     p.Groups[gi].Name,
			Color:     ros.Color(candidate),
		})
		p.Groups[gi].Layers = append(p.Groups[gi].Layers, layerID(i))
		if districtID != "" {
			p.Groups[gi].Districts++
		}
		layerOf[candidate] = i
		groupOf[candidate] = gi
		return i
	}

	for _, c := range ros.Counties {
		p.Groups = append(p.Groups, Group{Name: c.Name, CountyDistrict: c.CountyDistrict, Color: c.Color})
		gi := len(p.Groups) - 1
		for _, m := range c.Members {
			addLayer(gi, m.Candidate, m.District)
		}
	}

	other := -1
	for _, r := range records {
		if _, ok := layerOf[r.Candidate]; ok {
			continue
		}
		if other < 0 {
			p.Groups = append(p.Groups, Group{Name: OtherGroup, Color: roster.FallbackColor})
			other = len(p.Groups) - 1
		}
		districtID := r.DistrictID
		if set != nil {
			if ids := set.ByCandidate()[r.Candidate]; len(ids) > 0 {
				districtID = strings.Join(ids, ", ")
			}
		}
		addLayer(other, r.Candidate, districtID)
	}

	for _, r := range records {
		li, gi := layerOf[r.Candidate], groupOf[r.Candidate]
		p.Layers[li].Count++
		p.Groups[gi].Count++

		stroke := ros.Color(r.Candidate)
		if p.Mode == ModeCounty {
			stroke = ros.CountyOfColor(r.Candidate)
		}
		if err := p.addMarker(r, p.Layers[li].ID, stroke, ros); err != nil {
			return err
		}
	}
	return nil
}

func (p *Page) buildAddresses(records []model.StreetRecord) error {
	for _, r := range records {
		popup, err := addressPopup(r)
		if err != nil {
			return err
		}
		tooltip := r.FullAddress
		if tooltip == "" {
			tooltip = model.FormatAddress(r.Street, r.PostalCode, r.City)
		}
		p.Markers = append(p.Markers, Marker{
			Lat: r.Latitude, Lon: r.Longitude,
			Popup: popup, Tooltip: template.HTMLEscapeString(tooltip),
		})
	}
	return nil
}

func (p *Page) addMarker(r model.StreetRecord, layer, stroke string, ros *roster.Roster) error {
	popup, err := streetPopup(p.Party, r, ros)
	if err != nil {
		return err
	}
	p.Markers = append(p.Markers, Marker{
		Lat:     r.Latitude,
		Lon:     r.Longitude,
		Layer:   layer,
		Stroke:  stroke,
		Fill:    ros.Color(r.Candidate),
		Popup:   popup,
		Tooltip: template.HTMLEscapeString(r.Tooltip()),
	})
	return nil
}

func layerID(i int) string { return fmt.Sprintf("layer-%d", i) }
