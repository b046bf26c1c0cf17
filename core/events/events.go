// Package events is the pluggable tracing interface the protocol emits
// structured events to. It replaces this package's original game-event
// publish/subscribe shape (EventManager.Register/Trigger, keyed by a
// closed EventType enum and dispatching to possibly many handlers) with a
// single configured Sink carrying protocol trace events, and replaces the
// original C implementation's compile-time VERBOSE flag with a runtime
// swappable destination.
package events

import "github.com/sirupsen/logrus"

// Kind classifies a trace event.
type Kind int

const (
	Sent Kind = iota
	Received
	Resent
	Requested
	StateChanged
)

func (k Kind) String() string {
	switch k {
	case Sent:
		return "sent"
	case Received:
		return "received"
	case Resent:
		return "resent"
	case Requested:
		return "requested"
	case StateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// Event is one protocol-level occurrence worth tracing. ConnID correlates
// every event emitted by one session, so concurrent connections stay
// distinguishable in a shared log stream.
type Event struct {
	ConnID    string
	Kind      Kind
	Seq       int64
	FrameType byte
	Flags     byte
	Detail    string
}

// Sink receives trace events. Implementations must not block the caller
// for long: the event/resend/request loops emit while holding the engine
// lock.
type Sink interface {
	Emit(Event)
}

// Nop discards every event; it is the default when tracing is disabled.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(Event) {}

// Logrus formats each event as a structured log line at Trace level.
type Logrus struct {
	Log *logrus.Logger
}

// Emit implements Sink.
func (s Logrus) Emit(e Event) {
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{
		"conn":  e.ConnID,
		"kind":  e.Kind.String(),
		"seq":   e.Seq,
		"type":  e.FrameType,
		"flags": e.Flags,
	}).Trace(e.Detail)
}
