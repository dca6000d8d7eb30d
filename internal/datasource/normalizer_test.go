package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalTeam(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full name", "Boston Celtics", "Boston Celtics"},
		{"provider short form", "LA Clippers", "Los Angeles Clippers"},
		{"abbreviation", "lal", "Los Angeles Lakers"},
		{"nickname", "Sixers", "Philadelphia 76ers"},
		{"dotted", "L.A. Clippers", "Los Angeles Clippers"},
		{"extra whitespace", "  Golden   State Warriors ", "Golden State Warriors"},
		{"unknown team keeps its name", "Seattle  SuperSonics", "Seattle SuperSonics"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalTeam(tt.in))
		})
	}
}

func TestTeamNormalizerExtraAliases(t *testing.T) {
	n := NewTeamNormalizer(map[string]string{"Seattle SuperSonics": "Oklahoma City Thunder"})
	assert.Equal(t, "Oklahoma City Thunder", n.Canonical("seattle supersonics"))
	assert.Equal(t, "Utah Jazz", n.Canonical("UTAH"))
}
