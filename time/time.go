package time

import (
	"strings"
	"time"
)

// ShortDur shortens d.String() by dropping trailing zero units, so 1h0m0s
// becomes 1h and 2m0s becomes 2m.
func ShortDur(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}

// Elapsed formats the time since start for log lines, rounded to the
// millisecond once it exceeds one.
func Elapsed(start time.Time) string {
	return Round(time.Since(start))
}

// Round rounds d to a precision suitable for humans and shortens it.
func Round(d time.Duration) string {
	switch {
	case d >= time.Minute:
		d = d.Round(time.Second)
	case d >= time.Millisecond:
		d = d.Round(time.Millisecond)
	}
	return ShortDur(d)
}
