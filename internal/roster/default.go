package roster

// Default returns the 2024 Nümbrecht roster: county district 1 in blue
// shades, county district 2 in red shades.
func Default() *Roster {
	r, err := New([]County{
		{
			Name:           "Marcus Schmitz",
			CountyDistrict: 1,
			Color:          "#1976D2",
			Members: []Member{
				{Candidate: "Gisa Hauschildt", District: "WBZ 10", Color: "#0D47A1"},
				{Candidate: "Jörg Reintsema", District: "WBZ 20", Color: "#1565C0"},
				{Candidate: "Ulrike Herrgesell", District: "WBZ 60", Color: "#1976D2"},
				{Candidate: "Thomas Hellbusch", District: "WBZ 70", Color: "#1E88E5"},
				{Candidate: "Philipp Beck", District: "WBZ 80", Color: "#2196F3"},
				{Candidate: "Manfred Henry Daub", District: "WBZ 90", Color: "#42A5F5"},
				{Candidate: "Christopher Seinsche", District: "WBZ 100", Color: "#64B5F6"},
				{Candidate: "Björn Dittich", District: "WBZ 110", Color: "#90CAF9"},
			},
		},
		{
			Name:           "Thomas Schlegel",
			CountyDistrict: 2,
			Color:          "#D32F2F",
			Members: []Member{
				{Candidate: "Dagmar Schmitz", District: "WBZ 30", Color: "#B71C1C"},
				{Candidate: "Jörg Menne", District: "WBZ 40", Color: "#C62828"},
				{Candidate: "Markus Lang", District: "WBZ 50", Color: "#D32F2F"},
				{Candidate: "Titzian Crisci", District: "WBZ 120", Color: "#E53935"},
				{Candidate: "Stephan Rühl", District: "WBZ 130", Color: "#F44336"},
				{Candidate: "Roger Adolphs", District: "WBZ 140", Color: "#EF5350"},
				{Candidate: "Frank Schmitz", District: "WBZ 150", Color: "#E57373"},
				{Candidate: "Thomas Schlegel", District: "WBZ 160", Color: "#EF9A9A"},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return r
}
