// Package timeutil provides utility functions for working with
// time-related operations.
package timeutil

import (
	"math"
	"time"
)

const minutesInAnHour = 60

// Round rounds a time value in seconds, minutes, or hours to the nearest integer.
func Round(t float64) int {
	return int(math.Round(t))
}

// ElapsedSeconds returns the number of whole seconds between the given
// epoch-millisecond start timestamp and now. The result is negative when the
// clock has moved backwards past the start timestamp.
func ElapsedSeconds(startMs int64, now time.Time) int {
	diff := now.UnixMilli() - startMs

	return int(math.Floor(float64(diff) / 1000))
}

// MinsToHoursAndMins expresses a minutes value in hours and mins.
func MinsToHoursAndMins(val int) (hrs, mins int) {
	hrs = int(math.Floor(float64(val) / float64(minutesInAnHour)))
	mins = val % minutesInAnHour

	return
}

// ToKey converts a time value to a database key for Bolt.
func ToKey(t time.Time) []byte {
	return []byte(t.Format(time.RFC3339Nano))
}
