package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCivilToInstant(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, loc.String())

	testCases := []struct {
		name  string
		date  string
		clock string
		want  time.Time
	}{
		{"winter time is UTC+1", "2026-01-15", "19:30", time.Date(2026, 1, 15, 18, 30, 0, 0, time.UTC)},
		{"summer time is UTC+2", "2026-07-15", "19:30", time.Date(2026, 7, 15, 17, 30, 0, 0, time.UTC)},
		{"seconds are accepted", "2026-07-15", "19:30:15", time.Date(2026, 7, 15, 17, 30, 15, 0, time.UTC)},
		{"day after the autumn switch", "2026-10-26", "00:15", time.Date(2026, 10, 25, 23, 15, 0, 0, time.UTC)},
		{"surrounding whitespace", " 2026-12-31 ", " 23:00 ", time.Date(2026, 12, 31, 22, 0, 0, 0, time.UTC)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CivilToInstant(tc.date, tc.clock, loc)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %s got %s", tc.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestCivilToInstant_Invalid(t *testing.T) {
	loc, err := LoadLocation(DefaultTimezone)
	require.NoError(t, err)

	for _, in := range [][2]string{
		{"2026-13-01", "19:00"},
		{"15-01-2026", "19:00"},
		{"2026-01-15", "7pm"},
		{"", ""},
	} {
		_, err := CivilToInstant(in[0], in[1], loc)
		assert.Error(t, err, "%q %q", in[0], in[1])
	}

	_, err = CivilToInstant("2026-01-15", "19:00", nil)
	assert.Error(t, err)
}

func TestLoadLocation_Unknown(t *testing.T) {
	_, err := LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}
