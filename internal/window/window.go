// Package window implements the sliding-window selective-repeat engine:
// the Tracker (four sequence cursors) and the three parallel frame rings
// (send, recv, acks) that move behind them.
package window

import "github.com/utp-go/utp/internal/frame"

// Tracker holds the four sequence cursors that bound the send and receive
// windows. SendNext/RecvNext are the base of each window; SendLast/RecvLast
// mark the highest sequence currently occupied (and trail their *Next
// cursor by one when the window is empty).
type Tracker struct {
	SendNext int64
	SendLast int64
	RecvNext int64
	RecvLast int64
}

// SequenceInWindow reports whether seq falls within [base, base+size).
func SequenceInWindow(seq, base int64, size int) bool {
	d := seq - base
	return d >= 0 && d < int64(size)
}

// ring is a capacity-sized array of frame slots, addressed relative to a
// window base. Advancing the window shifts the whole array down by one,
// mirroring the original C implementation's straightforward (not
// ring-pointer-optimized) buffer management.
type ring struct {
	slots []*frame.Frame
}

func newRing(capacity int) ring {
	return ring{slots: make([]*frame.Frame, capacity)}
}

func (r *ring) at(i int) *frame.Frame {
	if i < 0 || i >= len(r.slots) {
		return nil
	}
	return r.slots[i]
}

func (r *ring) insert(i int, f *frame.Frame) {
	if i >= 0 && i < len(r.slots) {
		r.slots[i] = f
	}
}

func (r *ring) shift() {
	copy(r.slots, r.slots[1:])
	r.slots[len(r.slots)-1] = nil
}

// Window owns the Tracker and the three rings it indexes into: outstanding
// sent frames, buffered received frames (out of order, awaiting their
// predecessors), and the acks matched against sent frames.
type Window struct {
	Tracker  Tracker
	Capacity int

	send ring
	recv ring
	acks ring
}

// New builds a window of the given capacity, seeded with the local
// connection's first outbound sequence number and the peer's observed
// initial sequence number (learned during the handshake).
func New(capacity int, localSeq, peerSeq int64) *Window {
	return &Window{
		Tracker: Tracker{
			SendNext: localSeq,
			SendLast: localSeq - 1,
			RecvNext: peerSeq + 1,
			RecvLast: peerSeq,
		},
		Capacity: capacity,
		send:     newRing(capacity),
		recv:     newRing(capacity),
		acks:     newRing(capacity),
	}
}

// HasOutstandingSend reports whether any sent frame is awaiting an ack.
func (w *Window) HasOutstandingSend() bool {
	return SequenceInWindow(w.Tracker.SendLast, w.Tracker.SendNext, w.Capacity)
}

// HasOutstandingRecv reports whether any out-of-order frame is buffered
// ahead of the next expected inbound sequence.
func (w *Window) HasOutstandingRecv() bool {
	return SequenceInWindow(w.Tracker.RecvLast, w.Tracker.RecvNext, w.Capacity)
}

// OutstandingSendCount returns the number of sent frames awaiting an ack.
func (w *Window) OutstandingSendCount() int {
	if !w.HasOutstandingSend() {
		return 0
	}
	return int(w.Tracker.SendLast-w.Tracker.SendNext) + 1
}

// InsertSend records a newly sent frame and advances SendLast.
func (w *Window) InsertSend(f *frame.Frame) {
	w.send.insert(int(f.Seq-w.Tracker.SendNext), f)
	if f.Seq > w.Tracker.SendLast || !w.HasOutstandingSend() {
		w.Tracker.SendLast = f.Seq
	}
}

// InsertRecv buffers an in-window inbound frame and advances RecvLast.
// Frames outside the window are silently ignored by the caller, which
// checks SequenceInWindow before calling.
func (w *Window) InsertRecv(f *frame.Frame) {
	w.recv.insert(int(f.Seq-w.Tracker.RecvNext), f)
	if f.Seq > w.Tracker.RecvLast || !w.HasOutstandingRecv() {
		w.Tracker.RecvLast = f.Seq
	}
}

// InsertAck records an ack against the corresponding sent-frame slot.
func (w *Window) InsertAck(f *frame.Frame) {
	w.acks.insert(int(f.Seq-w.Tracker.SendNext), f)
}

// SendSlot returns the sent frame at offset i from SendNext, if any.
func (w *Window) SendSlot(i int) *frame.Frame { return w.send.at(i) }

// AckSlot returns the ack recorded at offset i from SendNext, if any.
func (w *Window) AckSlot(i int) *frame.Frame { return w.acks.at(i) }

// RecvSlot returns the buffered inbound frame at offset i from RecvNext.
func (w *Window) RecvSlot(i int) *frame.Frame { return w.recv.at(i) }

// Delivered is one in-order chunk of application payload released by
// AdvanceReceive, in send order.
type Delivered struct {
	Data []byte
	End  bool
}

// AdvanceReceive slides the receive window forward over every
// contiguously-present frame starting at RecvNext, returning their
// payloads in order.
func (w *Window) AdvanceReceive() []Delivered {
	var out []Delivered
	for {
		f := w.recv.at(0)
		if f == nil || f.Seq != w.Tracker.RecvNext {
			break
		}
		out = append(out, Delivered{
			Data: append([]byte(nil), f.Msg[:f.Size]...),
			End:  frame.HasFlag(f.Flags, frame.FlagEND),
		})
		w.recv.shift()
		w.Tracker.RecvNext++
	}
	return out
}

// AdvanceSend slides the send window forward over every leading frame
// whose ack has arrived, returning how many frames were retired.
func (w *Window) AdvanceSend() int {
	n := 0
	for {
		sent := w.send.at(0)
		ack := w.acks.at(0)
		if sent == nil || ack == nil || ack.Seq != sent.Seq {
			break
		}
		w.send.shift()
		w.acks.shift()
		w.Tracker.SendNext++
		n++
	}
	return n
}
