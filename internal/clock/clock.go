// Package clock provides the microsecond-resolution timer service used to
// stamp frames and detect resend/request timeouts.
package clock

import "time"

// Source yields the current time as microseconds since the Unix epoch.
// Tests substitute a fake source to make timeout expiry deterministic.
type Source interface {
	NowMicro() int64
}

// System is the real wall-clock source.
type System struct{}

// NowMicro returns time.Now() in microseconds.
func (System) NowMicro() int64 { return time.Now().UnixMicro() }

// Timeout pairs a clock source with a fixed duration, expressed in
// microseconds to match the frame's Time field.
type Timeout struct {
	Source Source
	Micros int64
}

// New builds a Timeout backed by the system clock.
func New(d time.Duration) Timeout {
	return Timeout{Source: System{}, Micros: d.Microseconds()}
}

// Expired reports whether a frame stamped at sentAt (microseconds) is older
// than the configured timeout as of now.
func (t Timeout) Expired(sentAt int64) bool {
	return sentAt+t.Micros < t.Source.NowMicro()
}

// Now returns the current time in microseconds.
func (t Timeout) Now() int64 { return t.Source.NowMicro() }
