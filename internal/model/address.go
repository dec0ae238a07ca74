package model

// Address is a postal address pulled out of OCR'd text.
type Address struct {
	Street      string  `csv:"street" json:"street"`
	HouseNumber string  `csv:"house_number" json:"house_number"`
	PostalCode  string  `csv:"postal_code" json:"postal_code"`
	City        string  `csv:"city" json:"city"`
	FullAddress string  `csv:"full_address" json:"full_address"`
	Latitude    float64 `csv:"latitude" json:"latitude"`
	Longitude   float64 `csv:"longitude" json:"longitude"`
}

// HasCoordinates reports whether the address has been geocoded.
func (a Address) HasCoordinates() bool {
	return a.Latitude != 0 || a.Longitude != 0
}

// Record converts the address into a StreetRecord without district data, so
// address lists share the CSV and export writers of street lists.
func (a Address) Record() StreetRecord {
	return StreetRecord{
		Street:      a.Street,
		HouseNumber: a.HouseNumber,
		PostalCode:  a.PostalCode,
		City:        a.City,
		FullAddress: a.FullAddress,
		Latitude:    a.Latitude,
		Longitude:   a.Longitude,
	}
}
