package model

import "fmt"

// StreetRecord is one geocoded street (or hamlet) of an electoral sub-district.
// The csv tags match the column names of the original canvassing files.
type StreetRecord struct {
	Street         string  `csv:"street" json:"street"`
	Original       string  `csv:"original" json:"original"`
	HouseNumber    string  `csv:"house_number" json:"house_number"`
	PostalCode     string  `csv:"postal_code" json:"postal_code"`
	City           string  `csv:"city" json:"city"`
	FullAddress    string  `csv:"full_address" json:"full_address"`
	DistrictID     string  `csv:"wbz" json:"wbz"`
	DistrictLabel  string  `csv:"bezirk" json:"bezirk"`
	Candidate      string  `csv:"kandidat" json:"kandidat"`
	EligibleVoters int     `csv:"wahlberechtigte" json:"wahlberechtigte"`
	Latitude       float64 `csv:"latitude" json:"latitude"`
	Longitude      float64 `csv:"longitude" json:"longitude"`
	GeocodeInfo    string  `csv:"geocode_info,omitempty" json:"geocode_info,omitempty"`
	CountyCand     string  `csv:"kreistagkandidat,omitempty" json:"kreistagkandidat,omitempty"`
}

// HasCoordinates reports whether the record carries a usable position.
func (r StreetRecord) HasCoordinates() bool {
	return r.Latitude != 0 || r.Longitude != 0
}

// Tooltip is the short marker label "<street> (<wbz>)".
func (r StreetRecord) Tooltip() string {
	return fmt.Sprintf("%s (%s)", r.Street, r.DistrictID)
}

// FormatAddress builds the "<street>, <postal> <city>" form used in all outputs.
func FormatAddress(street, postalCode, city string) string {
	if postalCode == "" {
		return fmt.Sprintf("%s, %s", street, city)
	}
	return fmt.Sprintf("%s, %s %s", street, postalCode, city)
}
