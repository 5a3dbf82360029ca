// Package timestamp converts second counts to the display strings the mobile
// client shows (memo durations, transcript word timestamps, relative dates)
// and back. FormatDuration/ParseDuration round-trip at whole-second
// granularity; FormatTimestamp/ParseTimestamp at centisecond granularity.
package timestamp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatDuration renders a duration in seconds as "m:ss", or "h:mm:ss" when
// the duration reaches one hour. Negative input is treated as zero.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ParseDuration is the inverse of FormatDuration. It accepts "m:ss" and
// "h:mm:ss" forms and returns the total whole seconds.
func ParseDuration(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		total = total*60 + n
	}
	return total, nil
}

// FormatTimestamp renders a playback position in seconds as "mm:ss.cc"
// (minutes, seconds, centiseconds). Used for word-level transcript
// timestamps, which providers report as fractional seconds.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	whole := int(seconds)
	m := whole / 60
	s := whole % 60
	cs := int(math.Floor((seconds - float64(whole)) * 100))
	return fmt.Sprintf("%02d:%02d.%02d", m, s, cs)
}

// ParseTimestamp is the inverse of FormatTimestamp. The result is exact to
// the centisecond.
func ParseTimestamp(s string) (float64, error) {
	var m, sec, cs int
	if _, err := fmt.Sscanf(s, "%d:%d.%d", &m, &sec, &cs); err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	if m < 0 || sec < 0 || sec > 59 || cs < 0 || cs > 99 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	return float64(m)*60 + float64(sec) + float64(cs)/100, nil
}

// FormatRelativeDate renders a creation time relative to now for the library
// list: "Today", "Yesterday", "N days ago", then a plain date.
func FormatRelativeDate(t, now time.Time) string {
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("1/2/2006")
	}
}
