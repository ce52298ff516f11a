// Package uptime reports how long the radio has been live.
package uptime

import (
	"strconv"
	"time"
)

// Minutes returns the whole minutes elapsed between start and now, rounded
// down. Times before start report 0.
func Minutes(start, now time.Time) int64 {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// Reporter binds a fixed start instant to a clock. A nil Now reads the wall
// clock.
type Reporter struct {
	Start time.Time
	Now   func() time.Time
}

func (r Reporter) Minutes() int64 {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return Minutes(r.Start, now())
}

// Label formats the elapsed time the way the display shows it.
func (r Reporter) Label() string {
	return Label(r.Minutes())
}

// Label renders n as "Playing for N minutes".
func Label(n int64) string {
	return "Playing for " + strconv.FormatInt(n, 10) + " minutes"
}
