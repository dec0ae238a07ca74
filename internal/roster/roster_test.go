package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ColorIsTotal(t *testing.T) {
	t.Parallel()
	r := Default()

	for _, c := range r.Candidates() {
		color := r.Color(c)
		assert.NotEqual(t, FallbackColor, color, "candidate %s", c)
		assert.Regexp(t, `^#[0-9A-F]{6}$`, color)
	}
	assert.Equal(t, FallbackColor, r.Color("Unbekannte Person"))
	assert.Equal(t, FallbackColor, r.Color(""))
}

func TestDefault_CountyGrouping(t *testing.T) {
	t.Parallel()
	r := Default()

	require.Len(t, r.Candidates(), 16)

	for _, c := range r.Candidates() {
		county, ok := r.County(c)
		require.True(t, ok, "candidate %s", c)
		assert.Contains(t, []string{"Marcus Schmitz", "Thomas Schlegel"}, county)
	}

	county, ok := r.County("Gisa Hauschildt")
	assert.True(t, ok)
	assert.Equal(t, "Marcus Schmitz", county)

	county, ok = r.County("Thomas Schlegel")
	assert.True(t, ok)
	assert.Equal(t, "Thomas Schlegel", county)

	_, ok = r.County("Nicht zugeordnet")
	assert.False(t, ok)
}

func TestDefault_CountyColors(t *testing.T) {
	t.Parallel()
	r := Default()

	assert.Equal(t, "#1976D2", r.CountyColor("Marcus Schmitz"))
	assert.Equal(t, "#D32F2F", r.CountyColor("Thomas Schlegel"))
	assert.Equal(t, FallbackColor, r.CountyColor("Niemand"))
	assert.Equal(t, "#D32F2F", r.CountyOfColor("Jörg Menne"))
	assert.Equal(t, FallbackColor, r.CountyOfColor("Niemand"))
}

func TestDefault_Districts(t *testing.T) {
	t.Parallel()
	r := Default()

	d, ok := r.District("Björn Dittich")
	assert.True(t, ok)
	assert.Equal(t, "WBZ 110", d)

	c, ok := r.Lookup("Thomas Schlegel")
	require.True(t, ok)
	assert.Equal(t, 2, c.CountyDistrict)
	assert.Len(t, c.Members, 8)
	assert.Equal(t, "WBZ 30", c.Members[0].District)
}

func TestNew_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := New([]County{
		{Name: "A", Color: "#000000", Members: []Member{{Candidate: "X", Color: "#111111"}}},
		{Name: "B", Color: "#000000", Members: []Member{{Candidate: "X", Color: "#222222"}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `candidate "X" listed twice`)

	_, err = New([]County{{Name: "A", Color: "#000000"}, {Name: "A", Color: "#000000"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate county candidate")
}

func TestNew_RejectsBadColor(t *testing.T) {
	t.Parallel()

	_, err := New([]County{{Name: "A", Color: "blue"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid color")
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "roster.yaml")
	yaml := `
counties:
  - name: Anna Berg
    county_district: 3
    color: "#2E7D32"
    members:
      - candidate: Bernd Roth
        district: WBZ 10
        color: "#1B5E20"
      - candidate: Clara Wolf
        district: WBZ 20
        color: "#66BB6A"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bernd Roth", "Clara Wolf"}, r.Candidates())
	assert.Equal(t, "#66BB6A", r.Color("Clara Wolf"))
	county, ok := r.County("Bernd Roth")
	assert.True(t, ok)
	assert.Equal(t, "Anna Berg", county)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roster: read")
}
