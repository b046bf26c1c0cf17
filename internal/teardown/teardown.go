// Package teardown implements the symmetric FIN / FIN-ACK / ACK graceful
// close, with a bounded retry budget on both sides so a silent peer cannot
// wedge the caller forever.
package teardown

import (
	"context"
	"time"

	"github.com/utp-go/utp/internal/frame"
)

// Peer is the minimal send/recv contract teardown needs.
type Peer interface {
	Send(f *frame.Frame) (int, error)
	Recv(ctx context.Context, timeout time.Duration) (*frame.Frame, bool)
}

// CloseSend runs the initiating side: send FIN until FIN|ACK arrives, then
// send ACK until the peer stops echoing FIN|ACK. Reports false ("Teardown
// finished due to timeout") once the retry budget is exhausted on either
// leg.
func CloseSend(ctx context.Context, p Peer, nextSeq func() int64, payloadSize int, timeout time.Duration, maxRetries int) bool {
	retries := maxRetries
	for {
		fin := frame.New(payloadSize)
		fin.PackProperties(0, nextSeq(), frame.TypeFIN)
		if _, err := p.Send(fin); err != nil {
			return false
		}
		resp, ok := p.Recv(ctx, timeout)
		if ok && frame.ExactFlags(resp.Flags, frame.TypeFIN|frame.TypeACK) {
			break
		}
		retries--
		if retries <= 0 {
			return false
		}
	}

	retries = maxRetries
	for {
		ack := frame.New(payloadSize)
		ack.PackProperties(0, nextSeq(), frame.TypeACK)
		if _, err := p.Send(ack); err != nil {
			return false
		}
		resp, ok := p.Recv(ctx, timeout)
		if !ok || !frame.ExactFlags(resp.Flags, frame.TypeFIN|frame.TypeACK) {
			return true
		}
		retries--
		if retries <= 0 {
			return false
		}
	}
}

// CloseRecv runs the responding side: once a FIN has been observed by the
// caller, reply with FIN|ACK until the initiator's final ACK arrives.
func CloseRecv(ctx context.Context, p Peer, nextSeq func() int64, payloadSize int, timeout time.Duration, maxRetries int) bool {
	retries := maxRetries
	for {
		finAck := frame.New(payloadSize)
		finAck.PackProperties(0, nextSeq(), frame.TypeFIN|frame.TypeACK)
		if _, err := p.Send(finAck); err != nil {
			return false
		}
		resp, ok := p.Recv(ctx, timeout)
		if ok && frame.ExactFlags(resp.Flags, frame.TypeACK) {
			return true
		}
		retries--
		if retries <= 0 {
			return false
		}
	}
}
