package bot

import "time"

// Clock is the loop's only source of time and suspension
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

// RealClock is the wall clock
type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) Now() time.Time                         { return time.Now() }
