package format

import (
	"fmt"
	"time"
)

// HMS renders d as zero-padded HH:MM:SS.  Hours are not wrapped at 24 and
// negative durations render as 00:00:00.
func HMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// HoursMinutes renders d as "{h}h {m}m".
func HoursMinutes(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	mins := int64(d / time.Minute)
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}

// Since renders the age of a ticket: "Xm" under an hour, "Xh Ym" otherwise.
func Since(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	mins := int64(d / time.Minute)
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}
