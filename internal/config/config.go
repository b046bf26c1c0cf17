// Package config holds the CLI-tunable defaults for a UTP endpoint: port,
// window/payload sizes, resend/request timeout, and a link-fault error
// rate. The CLI stores the error rate but applies no link faults; simulated
// loss exists only in internal/linkfault, for tests.
package config

import "time"

// Config is populated by the CLI driver from flags, falling back to the
// defaults below when a flag is not supplied.
type Config struct {
	Port        int
	WindowSize  int16
	PayloadSize int16
	Timeout     time.Duration
	ErrorRate   int
	Trace       bool

	HandshakeTimeout time.Duration
	TeardownMax      int
	LoopInterval     time.Duration
}

// Defaults matches the external interface defaults: port 5555, window 16,
// payload 32, resend/request timeout 60000 microseconds, handshake
// payload 16 bytes (fixed, see handshake.HandshakeSize), teardown retry
// budget 16 rounds.
func Defaults() Config {
	return Config{
		Port:             5555,
		WindowSize:       16,
		PayloadSize:      32,
		Timeout:          60 * time.Millisecond,
		ErrorRate:        0,
		HandshakeTimeout: 60 * time.Millisecond,
		TeardownMax:      16,
		LoopInterval:     20 * time.Millisecond,
	}
}
