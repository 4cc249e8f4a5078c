package clubdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyAndDisplay(t *testing.T) {
	day := time.Date(2024, time.May, 1, 18, 30, 0, 0, time.UTC)
	require.Equal(t, "5/1/2024", Display(day))
	require.Equal(t, "5-1-2024", Key(day))
	require.Equal(t, "5/1/2024", KeyToDisplay(Key(day)))

	parsed, err := Parse("12-24-2023", time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, time.December, 24, 0, 0, 0, 0, time.UTC), parsed)

	_, err = Parse("2023-12-24", time.UTC)
	require.Error(t, err)
}

func TestClockUsesClubTimezone(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	// 20:00 UTC on April 30 is already May 1 in the club's zone
	utc := time.Date(2024, time.April, 30, 20, 0, 0, 0, time.UTC)

	clock := Clock{loc: jakarta, now: func() time.Time { return utc }}
	require.Equal(t, "5-1-2024", clock.Today())
	require.Equal(t, jakarta, clock.Location())

	fixed := FixedClock(utc)
	require.Equal(t, "4-30-2024", fixed.Today())
}
