package lib

import "time"

// SafePadding moves the date back by one day. Incremental copies use it so
// a message delivered with an internal date slightly older than the last
// recorded action is not skipped.
func SafePadding(date time.Time) time.Time {
	if date.IsZero() {
		return date
	}
	return date.Add(-24 * time.Hour)
}
