package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders a duration in seconds as a whole number of its
// largest unit: 45s, 12m, 3h.
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%dh", seconds/3600)
	}
	return fmt.Sprintf("%dm", seconds/60)
}

// FormatAgo is FormatRoundedUnit for the time elapsed since then
func FormatAgo(now, then time.Time) string {
	return FormatRoundedUnit(int64(now.Sub(then) / time.Second))
}
