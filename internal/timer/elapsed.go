// Package timer holds the client-side clocks: the running work-session display
// and the pomodoro cycle.
package timer

import (
	"fmt"
	"time"
)

type Clock struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Elapsed is the time since start, truncated to whole seconds. It is never
// negative.
func Elapsed(start, now time.Time) Clock {
	d := now.Sub(start)
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return Clock{Hours: total / 3600, Minutes: total % 3600 / 60, Seconds: total % 60}
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hours, c.Minutes, c.Seconds)
}
