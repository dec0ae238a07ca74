package mapview

import (
	"bytes"
	"html/template"

	"github.com/rotisserie/eris"

	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/roster"
)

var streetPopupTmpl = template.Must(template.New("street").Parse(`<div class="popup">` +
	`<b class="popup-title">{{.R.Street}}</b><br>` +
	`{{if and .R.Original (ne .R.Original .R.Street)}}<span class="muted">{{.R.Original}}</span><br>{{end}}` +
	`<span class="muted">{{.R.PostalCode}} {{.R.City}}</span><br>` +
	`<hr>` +
	`<b>Wahlbezirk:</b> {{if .R.DistrictLabel}}{{.R.DistrictLabel}}{{else if .R.DistrictID}}{{.R.DistrictID}}{{else}}{{.Home}}{{end}}<br>` +
	`<b>{{.Party}}-Kandidat/in:</b> {{.R.Candidate}}<br>` +
	`{{if .County}}<b>Kreistagkandidat:</b> <span style="color: {{.CountyColor}}; font-weight: bold;">{{.County}}</span><br>{{end}}` +
	`{{if .R.EligibleVoters}}<b>Wahlberechtigte:</b> {{.R.EligibleVoters}}<br>{{end}}` +
	`{{if .R.GeocodeInfo}}<small class="muted">{{.R.GeocodeInfo}}</small><br>{{end}}` +
	`<small class="muted">Koordinaten: {{printf "%.6f" .R.Latitude}}, {{printf "%.6f" .R.Longitude}}</small>` +
	`</div>`))

var addressPopupTmpl = template.Must(template.New("address").Parse(`<div class="popup">` +
	`<b class="popup-title">{{.Street}}{{if .HouseNumber}} {{.HouseNumber}}{{end}}</b><br>` +
	`{{.PostalCode}} {{.City}}<br>` +
	`<small class="muted">Lat: {{printf "%.6f" .Latitude}}, Lon: {{printf "%.6f" .Longitude}}</small>` +
	`</div>`))

type streetPopupData struct {
	R           model.StreetRecord
	Party       string
	County      string
	CountyColor string
	Home        string // roster district when the row has none
}

func streetPopup(party string, r model.StreetRecord, ros *roster.Roster) (string, error) {
	d := streetPopupData{R: r, Party: party, County: r.CountyCand}
	if county, ok := ros.County(r.Candidate); ok {
		d.County = county
	}
	if d.County != "" {
		d.CountyColor = ros.CountyColor(d.County)
	}
	if r.DistrictID == "" {
		d.Home, _ = ros.District(r.Candidate)
	}

	var buf bytes.Buffer
	if err := streetPopupTmpl.Execute(&buf, d); err != nil {
		return "", eris.Wrapf(err, "mapview: popup for %s", r.Street)
	}
	return buf.String(), nil
}

func addressPopup(r model.StreetRecord) (string, error) {
	var buf bytes.Buffer
	if err := addressPopupTmpl.Execute(&buf, r); err != nil {
		return "", eris.Wrapf(err, "mapview: popup for %s", r.FullAddress)
	}
	return buf.String(), nil
}
