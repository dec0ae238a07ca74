package mapview

import (
	_ "embed"
	"html/template"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

//go:embed templates/map.html.tmpl
var pageSource string

var pageTmpl = template.Must(template.New("map").Parse(pageSource))

// ScriptData is the JSON handed to the page script.
type ScriptData struct {
	Mode        Mode       `json:"mode"`
	Center      [2]float64 `json:"center"`
	Zoom        int        `json:"zoom"`
	Radius      int        `json:"radius"`
	TileURL     string     `json:"tileURL"`
	Attribution string     `json:"attribution"`
	Cluster     bool       `json:"cluster"`
	Layers      []Layer    `json:"layers"`
	Groups      []Group    `json:"groups"`
	Markers     []Marker   `json:"markers"`
}

// Script returns the data the control panel script works on.
func (p *Page) Script() ScriptData {
	return ScriptData{
		Mode:        p.Mode,
		Center:      [2]float64{p.CenterLat, p.CenterLon},
		Zoom:        p.Zoom,
		Radius:      p.Radius,
		TileURL:     p.TileURL,
		Attribution: p.Attribution,
		Cluster:     p.Cluster(),
		Layers:      nonNil(p.Layers),
		Groups:      nonNil(p.Groups),
		Markers:     nonNil(p.Markers),
	}
}

// GroupLayers returns the layers of the named group in legend order.
func (p *Page) GroupLayers(group string) []Layer {
	var out []Layer
	for _, l := range p.Layers {
		if l.Group == group {
			out = append(out, l)
		}
	}
	return out
}

// Render writes the page as a standalone HTML document.
func Render(w io.Writer, p *Page) error {
	if p == nil || len(p.Markers) == 0 {
		return ErrNoRecords
	}
	return eris.Wrap(pageTmpl.Execute(w, p), "mapview: render")
}

// WriteFile renders the page to path.
func WriteFile(path string, p *Page) error {
	if p == nil || len(p.Markers) == 0 {
		return ErrNoRecords
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "mapview: create %s", path)
	}
	if err := Render(f, p); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "mapview: close %s", path)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
