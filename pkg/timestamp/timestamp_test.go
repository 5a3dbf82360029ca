package timestamp

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{59, "0:59"},
		{60, "1:00"},
		{125, "2:05"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3661, "1:01:01"},
		{-10, "0:00"},
	}

	for _, c := range cases {
		if got := FormatDuration(c.seconds); got != c.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestDurationRoundTrip(t *testing.T) {
	for _, seconds := range []int{0, 1, 59, 60, 61, 600, 3599, 3600, 7325} {
		s := FormatDuration(seconds)
		got, err := ParseDuration(s)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", s, err)
		}
		if got != seconds {
			t.Errorf("round trip %d -> %q -> %d", seconds, s, got)
		}
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, s := range []string{"", "90", "1:2:3:4", "a:bc", "1:-5"} {
		if _, err := ParseDuration(s); err == nil {
			t.Errorf("ParseDuration(%q): expected error", s)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00.00"},
		{0.5, "00:00.50"},
		{1.25, "00:01.25"},
		{65.01, "01:05.01"},
		{600, "10:00.00"},
		{-3, "00:00.00"},
	}

	for _, c := range cases {
		if got := FormatTimestamp(c.seconds); got != c.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	// Round trip must reconstruct the value to the centisecond.
	for _, seconds := range []float64{0, 0.25, 1.5, 59.99, 60, 61.07, 754.3} {
		s := FormatTimestamp(seconds)
		got, err := ParseTimestamp(s)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", s, err)
		}
		diff := seconds - got
		if diff < 0 {
			diff = -diff
		}
		if diff > 0.0101 {
			t.Errorf("round trip %v -> %q -> %v (diff %v)", seconds, s, got, diff)
		}
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	for _, s := range []string{"", "1:2", "00:75.00", "00:10.120"} {
		if _, err := ParseTimestamp(s); err == nil {
			t.Errorf("ParseTimestamp(%q): expected error", s)
		}
	}
}

func TestFormatRelativeDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-2 * time.Hour), "Today"},
		{now.Add(-30 * time.Hour), "Yesterday"},
		{now.AddDate(0, 0, -3), "3 days ago"},
		{now.AddDate(0, 0, -10), "6/5/2025"},
	}

	for _, c := range cases {
		if got := FormatRelativeDate(c.t, now); got != c.want {
			t.Errorf("FormatRelativeDate(%v) = %q, want %q", c.t, got, c.want)
		}
	}
}
