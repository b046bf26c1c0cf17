// Package linkfault is test-only plumbing that simulates a lossy UDP link
// between two in-process peers: encoded frames are corrupted or dropped at
// a configurable rate before the other side ever sees them. It is grounded
// on the original implementation's "volatile" send path (UTP_SEND's
// #else UTP_ERROR branch), which flipped checksum bytes or silently
// discarded a packed frame at a percentage chance, operating on the wire
// bytes after the frame was already packed and tagged — this package
// applies faults at the same point, after frame.Frame.Encode, rather than
// on the pre-encode Frame value. It is never wired into the CLI driver.
package linkfault

import (
	"context"
	"math/rand"
	"time"

	"github.com/utp-go/utp/internal/clock"
	"github.com/utp-go/utp/internal/frame"
)

// Link is one direction of a simulated lossy datagram channel.
type Link struct {
	ch   chan []byte
	rate int
	rng  *rand.Rand
}

// NewLink builds a one-way channel that corrupts or drops rate percent of
// the datagrams written to it.
func NewLink(rate int, seed int64) *Link {
	return &Link{ch: make(chan []byte, 64), rate: rate, rng: rand.New(rand.NewSource(seed))}
}

func (l *Link) write(buf []byte) {
	if l.rate <= 0 || l.rng.Intn(100) >= l.rate {
		l.ch <- buf
		return
	}
	switch l.rng.Intn(2) {
	case 0: // drop entirely
		return
	default: // corrupt a payload byte after tagging, so the receiver's
		// integrity check is what catches it
		cp := append([]byte(nil), buf...)
		if len(cp) > frame.HeaderSize {
			cp[frame.HeaderSize] ^= 0xFF
		} else if len(cp) > 0 {
			cp[0] ^= 0xFF
		}
		l.ch <- cp
	}
}

// Peer is a transport.Peer backed by a pair of Links, one per direction,
// with its own clock for stamping frames the way endpoint.Endpoint does.
type Peer struct {
	out   *Link
	in    *Link
	clock clock.Source
}

// NewPipe builds two Peers wired to each other through lossy links, each
// direction faulted independently at rate percent.
func NewPipe(rate int, seed int64) (a, b *Peer) {
	ab := NewLink(rate, seed)
	ba := NewLink(rate, seed+1)
	return &Peer{out: ab, in: ba, clock: clock.System{}},
		&Peer{out: ba, in: ab, clock: clock.System{}}
}

// Send stamps, tags, encodes and writes f through the outbound link,
// where it may be corrupted or dropped.
func (p *Peer) Send(f *frame.Frame) (int, error) {
	f.Time = p.clock.NowMicro()
	f.IntegrityAttach()
	buf := f.Encode()
	p.out.write(buf)
	return len(buf), nil
}

// Recv blocks for a verified frame, a fault-corrupted frame being
// silently rejected the same way endpoint.Endpoint rejects a bad tag.
func (p *Peer) Recv(ctx context.Context, timeout time.Duration) (*frame.Frame, bool) {
	select {
	case buf := <-p.in.ch:
		f, err := frame.Decode(buf)
		if err != nil || !f.IntegrityVerify() {
			return nil, false
		}
		return f, true
	case <-time.After(timeout):
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}
