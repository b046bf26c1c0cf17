// Package handshake implements the three-way SYN / SYN-ACK / ACK exchange
// that negotiates the window and payload sizes both peers will use for the
// rest of the connection.
package handshake

import (
	"context"
	"strconv"
	"time"

	"github.com/utp-go/utp/internal/frame"
)

// HandshakeSize is the fixed wire payload size used by every handshake
// frame, independent of whatever payload size ends up negotiated.
const HandshakeSize = 16

// Peer is the minimal send/recv contract the handshake needs; satisfied by
// *endpoint.Endpoint and by test doubles.
type Peer interface {
	Send(f *frame.Frame) (int, error)
	Recv(ctx context.Context, timeout time.Duration) (*frame.Frame, bool)
}

// Result is what a completed handshake, from either side, hands back to
// the caller so it can build the Connection and its sliding window.
type Result struct {
	PeerInitialSeq int64
	Window         int16
	Payload        int16
}

func minInt16(a, b int16) int16 {
	if a < b {
		return a
	}
	return b
}

// Accept runs the listener side of the handshake: wait for a SYN, reply
// with SYN|ACK carrying the negotiated parameters until the initiator's
// final ACK arrives.
func Accept(ctx context.Context, p Peer, nextSeq func() int64, localWindow, localPayload int16, timeout time.Duration) (Result, bool) {
	var peerWindow, peerPayload int16
	for {
		if ctx.Err() != nil {
			return Result{}, false
		}
		f, ok := p.Recv(ctx, timeout)
		if !ok {
			continue
		}
		if frame.ExactFlags(f.Flags, frame.TypeSYN) {
			peerPayload = f.Size
			w, err := strconv.Atoi(cString(f.Msg))
			if err != nil {
				continue
			}
			peerWindow = int16(w)
			break
		}
	}

	negotiatedWindow := minInt16(localWindow, peerWindow)
	negotiatedPayload := minInt16(localPayload, peerPayload)

	for {
		if ctx.Err() != nil {
			return Result{}, false
		}
		synAck := frame.New(HandshakeSize)
		synAck.PackHandshake(nextSeq(), frame.TypeSYN|frame.TypeACK, negotiatedPayload, negotiatedWindow)
		if _, err := p.Send(synAck); err != nil {
			return Result{}, false
		}

		resp, ok := p.Recv(ctx, timeout)
		if ok && frame.ExactFlags(resp.Flags, frame.TypeACK) {
			return Result{
				PeerInitialSeq: resp.Seq,
				Window:         negotiatedWindow,
				Payload:        negotiatedPayload,
			}, true
		}
	}
}

// Connect runs the initiator side of the handshake: send SYN with a local
// proposal until SYN|ACK arrives, adopt the negotiated parameters, then
// keep sending ACK until the peer stops echoing SYN|ACK (or recv times out).
func Connect(ctx context.Context, p Peer, nextSeq func() int64, localWindow, localPayload int16, timeout time.Duration) (Result, bool) {
	var negotiatedWindow, negotiatedPayload int16
	var peerInitialSeq int64

	for {
		if ctx.Err() != nil {
			return Result{}, false
		}
		syn := frame.New(HandshakeSize)
		syn.PackHandshake(nextSeq(), frame.TypeSYN, localPayload, localWindow)
		if _, err := p.Send(syn); err != nil {
			return Result{}, false
		}

		resp, ok := p.Recv(ctx, timeout)
		if ok && frame.ExactFlags(resp.Flags, frame.TypeSYN|frame.TypeACK) {
			negotiatedPayload = resp.Size
			w, err := strconv.Atoi(cString(resp.Msg))
			if err != nil {
				continue
			}
			negotiatedWindow = int16(w)
			peerInitialSeq = resp.Seq
			break
		}
	}

	for {
		ack := frame.New(HandshakeSize)
		ack.PackHandshake(nextSeq(), frame.TypeACK, negotiatedPayload, negotiatedWindow)
		if _, err := p.Send(ack); err != nil {
			return Result{}, false
		}

		resp, ok := p.Recv(ctx, timeout)
		if !ok || !frame.HasFlag(resp.Flags, frame.TypeSYN|frame.TypeACK) {
			break
		}
		peerInitialSeq = resp.Seq
	}

	return Result{
		PeerInitialSeq: peerInitialSeq,
		Window:         negotiatedWindow,
		Payload:        negotiatedPayload,
	}, true
}

// cString reads a NUL-terminated ASCII run out of a zero-padded buffer.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
