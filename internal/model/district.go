package model

// District is one Wahlbezirk as configured in the assignment file.
type District struct {
	ID             string   `json:"-"`
	Name           string   `json:"name"`
	Candidate      string   `json:"kandidat"`
	EligibleVoters int      `json:"wahlberechtigte"`
	Streets        []string `json:"strassen,omitempty"`
	Hamlets        []string `json:"ortsteile,omitempty"`
}

// Label returns "<id> - <name>", the district label shown on maps.
func (d District) Label() string {
	if d.Name == "" {
		return d.ID
	}
	return d.ID + " - " + d.Name
}
