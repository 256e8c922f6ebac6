package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveSport(t *testing.T) {
	tests := []struct {
		reported, league, want string
	}{
		{"Basketball", "NBA", "basketball"},
		{"", "NBA", "basketball"},
		{"", "nfl", "football"},
		{"", "CS2", "cs"},
		{"", "XFL", ""},
		{"cricket", "IPL", "cricket"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveSport(tt.reported, tt.league), "%q/%q", tt.reported, tt.league)
	}
}

func TestParseSport(t *testing.T) {
	s, ok := ParseSport(" Hockey ")
	assert.True(t, ok)
	assert.Equal(t, Hockey, s)
	assert.Equal(t, "Ice Hockey", s.GetSportInfo().Name)

	_, ok = ParseSport("quidditch")
	assert.False(t, ok)
}
