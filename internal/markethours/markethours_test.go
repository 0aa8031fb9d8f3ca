package markethours

import (
	"testing"
	"time"
)

func et(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, ET)
}

func TestIsMarketOpen(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"weekday midsession", et(2026, time.August, 25, 14, 0), true}, // Tuesday
		{"at the open", et(2026, time.August, 25, 9, 30), true},
		{"just before open", et(2026, time.August, 25, 9, 29), false},
		{"at the close", et(2026, time.August, 25, 16, 0), false},
		{"saturday", et(2026, time.August, 29, 12, 0), false},
		{"sunday", et(2026, time.August, 30, 12, 0), false},
		{"thanksgiving", et(2026, time.November, 26, 12, 0), false},
		{"christmas", et(2026, time.December, 25, 12, 0), false},
	}
	for _, c := range cases {
		if got := IsMarketOpen(c.t); got != c.want {
			t.Errorf("%s: IsMarketOpen=%v, want %v", c.name, got, c.want)
		}
	}
}

func TestNextOpen(t *testing.T) {
	// Friday evening → Monday 9:30
	fridayEvening := et(2026, time.August, 28, 18, 0)
	next := NextOpen(fridayEvening)
	want := et(2026, time.August, 31, 9, 30)
	if !next.Equal(want) {
		t.Errorf("NextOpen(Fri evening): got %v, want %v", next, want)
	}

	// Early on a trading day → same day's open
	early := et(2026, time.August, 25, 7, 0)
	if got := NextOpen(early); !got.Equal(et(2026, time.August, 25, 9, 30)) {
		t.Errorf("NextOpen(early): got %v", got)
	}

	// Wednesday before Thanksgiving, after close → Friday (holiday skipped)
	wedClose := et(2026, time.November, 25, 17, 0)
	if got := NextOpen(wedClose); !got.Equal(et(2026, time.November, 27, 9, 30)) {
		t.Errorf("NextOpen over Thanksgiving: got %v", got)
	}
}

func TestTimeUntilClose(t *testing.T) {
	if d := TimeUntilClose(et(2026, time.August, 25, 15, 0)); d != time.Hour {
		t.Errorf("one hour before close: got %v", d)
	}
	if d := TimeUntilClose(et(2026, time.August, 25, 18, 0)); d != 0 {
		t.Errorf("after close: got %v, want 0", d)
	}
}
