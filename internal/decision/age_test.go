package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAgeAt(t *testing.T) {
	now := date(2024, time.June, 1)

	tests := []struct {
		name  string
		birth time.Time
		want  int
	}{
		{"birthday already passed this year", date(2000, time.January, 15), 24},
		{"birthday later this year", date(2000, time.December, 15), 23},
		{"eighteenth birthday today", date(2006, time.June, 1), 18},
		{"eighteenth birthday tomorrow", date(2006, time.June, 2), 17},
		{"same month, earlier day", date(2006, time.June, 30), 17},
		{"born today", now, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, AgeAt(tt.birth, now))
		})
	}
}

func TestParseDateOfBirth(t *testing.T) {
	t.Run("date only", func(t *testing.T) {
		got, err := ParseDateOfBirth("1990-05-17")
		require.NoError(t, err)
		require.Equal(t, date(1990, time.May, 17), got)
	})

	t.Run("rfc3339", func(t *testing.T) {
		got, err := ParseDateOfBirth("1990-05-17T10:30:00Z")
		require.NoError(t, err)
		require.Equal(t, 1990, got.Year())
		require.Equal(t, time.May, got.Month())
		require.Equal(t, 17, got.Day())
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseDateOfBirth("yesterday")
		require.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseDateOfBirth("")
		require.Error(t, err)
	})
}
