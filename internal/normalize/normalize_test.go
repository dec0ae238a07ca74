package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanStreet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Hauptstraße - 1-17", "Hauptstraße"},
		{"Hauptstraße - alle", "Hauptstraße"},
		{"Lindchenweg - 2a-10", "Lindchenweg"},
		{"Lindchenweg -3", "Lindchenweg"},
		{"Hauptstraße", "Hauptstraße"},
		{"  Hauptstraße  ", "Hauptstraße"},
		{"Jakob-Engels-Straße", "Jakob-Engels-Straße"},
		{"Jakob-Engels-Straße - 4-8", "Jakob-Engels-Straße"},
		{"WBZ 160 - Marienberghausen", "WBZ 160 - Marienberghausen"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CleanStreet(tt.in))
		})
	}
}

func TestHamlet(t *testing.T) {
	t.Parallel()

	name, ok := Hamlet("WBZ 160 - Marienberghausen")
	assert.True(t, ok)
	assert.Equal(t, "Marienberghausen", name)

	_, ok = Hamlet("Hauptstraße")
	assert.False(t, ok)

	_, ok = Hamlet("WBZ 10 - ")
	assert.False(t, ok)
}

func TestFold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "numbrecht", Fold("Nümbrecht"))
	assert.Equal(t, Fold("NÜMBRECHT"), Fold("nümbrecht"))
	assert.Equal(t, "hauptstraße, 51588 numbrecht", Fold("  Hauptstraße,   51588 Nümbrecht "))
	assert.Equal(t, "", Fold("   "))
}
