package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayBounds(t *testing.T) {
	cases := []struct {
		now         time.Time
		expectStart time.Time
		expectNext  time.Time
	}{
		{
			now:         time.Date(2024, time.January, 5, 10, 30, 0, 0, Location),
			expectStart: time.Date(2024, time.January, 5, 0, 0, 0, 0, Location),
			expectNext:  time.Date(2024, time.January, 6, 0, 0, 0, 0, Location),
		},
		{
			now:         time.Date(2024, time.December, 31, 23, 59, 59, 0, Location),
			expectStart: time.Date(2024, time.December, 31, 0, 0, 0, 0, Location),
			expectNext:  time.Date(2025, time.January, 1, 0, 0, 0, 0, Location),
		},
	}

	for _, test := range cases {
		start, next := DayBounds(test.now)
		require.Equal(t, test.expectStart, start)
		require.Equal(t, test.expectNext, next)
	}
}

func TestDataDate(t *testing.T) {
	// 00:30 UTC on the 6th is still the 5th in the report timezone
	utc := time.Date(2024, time.January, 6, 0, 30, 0, 0, time.UTC)
	require.Equal(t, "2024-01-05", DataDate(utc))
}
