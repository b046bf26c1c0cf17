// Package transport implements the selective-repeat protocol: the three
// cooperating activities (event loop, resend loop, request loop) that
// share one engine lock over the Tracker and the send/recv/ack windows,
// plus the handshake and teardown transitions that bracket them.
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/utp-go/utp/core/events"
	"github.com/utp-go/utp/internal/clock"
	"github.com/utp-go/utp/internal/frame"
	"github.com/utp-go/utp/internal/handshake"
	"github.com/utp-go/utp/internal/teardown"
	"github.com/utp-go/utp/internal/window"
)

// Peer is the send/recv contract the session drives the wire through.
// *endpoint.Endpoint satisfies it directly; in tests linkfault.NewPipe
// provides an in-memory pair of Peers that corrupt or drop frames.
type Peer interface {
	Send(f *frame.Frame) (int, error)
	Recv(ctx context.Context, timeout time.Duration) (*frame.Frame, bool)
}

// Config carries the negotiated and locally-configured parameters a
// session runs with.
type Config struct {
	Window       int16
	Payload      int16
	Timeout      time.Duration
	LoopInterval time.Duration
	TeardownMax  int
}

// Session is one open UTP connection: the engine lock plus everything it
// protects (the Tracker, the three windows, the input/output byte
// queues), the peer it talks to, and the sink it traces through.
type Session struct {
	mu     sync.Mutex
	peer   Peer
	cfg    Config
	conn   *Connection
	win    *window.Window
	in     inputQueue
	out    outputQueue
	sink   events.Sink
	to     clock.Timeout
	connID string

	incoming   chan *frame.Frame
	lines      chan lineEvent
	deliveries chan string
	done       chan struct{}
	closedOK   bool
}

type lineEvent struct {
	data []byte
	quit bool
}

// NewSession builds a session around an already-handshaken peer. conn's
// sequence counter must already reflect however many frames the handshake
// consumed; peerInitialSeq is the sequence observed on the peer's final
// handshake frame.
func NewSession(peer Peer, conn *Connection, cfg Config, peerInitialSeq int64, sink events.Sink) *Session {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Session{
		peer:   peer,
		cfg:    cfg,
		conn:   conn,
		win:    window.New(int(cfg.Window), conn.Peek(), peerInitialSeq),
		sink:   sink,
		to:     clock.New(cfg.Timeout),
		connID: uuid.NewString(),

		incoming:   make(chan *frame.Frame, 64),
		lines:      make(chan lineEvent, 64),
		deliveries: make(chan string, 64),
		done:       make(chan struct{}),
	}
}

// Enqueue appends bytes to the outbound application stream for the event
// loop to segment into frames.
func (s *Session) Enqueue(b []byte) {
	select {
	case s.lines <- lineEvent{data: b}:
	case <-s.done:
	}
}

// Quit requests a graceful teardown, initiated by this side.
func (s *Session) Quit() {
	select {
	case s.lines <- lineEvent{quit: true}:
	case <-s.done:
	}
}

// Deliveries yields complete inbound application messages (frames
// reassembled up to an END flag) in order.
func (s *Session) Deliveries() <-chan string { return s.deliveries }

// Done closes once the session has torn down, one way or another.
func (s *Session) Done() <-chan struct{} { return s.done }

// ClosedCleanly reports whether the last teardown completed within its
// retry budget, rather than timing out. Only meaningful after Done closes.
func (s *Session) ClosedCleanly() bool { return s.closedOK }

// ConnID is the correlation id this session stamps on every traced event,
// letting a shared log stream distinguish concurrent connections.
func (s *Session) ConnID() string { return s.connID }

// Run drives the reader goroutine plus the event, resend and request
// loops until the connection closes or ctx is cancelled. It returns once
// all four have exited.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readerLoop(ctx) })
	g.Go(func() error { return s.eventLoop(ctx, cancel) })
	g.Go(func() error { return s.resendLoop(ctx) })
	g.Go(func() error { return s.requestLoop(ctx) })

	err := g.Wait()
	close(s.done)
	return err
}

// readerLoop turns the peer's blocking Recv into the incoming channel the
// event loop selects on, the Go-idiomatic equivalent of the original
// select(2) multiplexing over the socket fd.
func (s *Session) readerLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		f, ok := s.peer.Recv(ctx, s.cfg.LoopInterval)
		if !ok {
			continue
		}
		select {
		case s.incoming <- f:
		case <-ctx.Done():
			return nil
		}
	}
}

// eventLoop is the main dispatch activity: it applies inbound frames to
// the window, refills the send window from the input queue, and reacts to
// the QUIT sentinel or an inbound FIN by running the teardown engine.
func (s *Session) eventLoop(ctx context.Context, cancel context.CancelFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case f := <-s.incoming:
			if frame.Type(f.Flags) == frame.TypeFIN {
				s.mu.Lock()
				s.sink.Emit(events.Event{ConnID: s.connID, Kind: events.StateChanged, Seq: f.Seq, Detail: "fin received, closing"})
				s.mu.Unlock()
				s.closedOK = teardown.CloseRecv(ctx, s.peer, s.conn.NextSeq, int(s.cfg.Payload), s.cfg.Timeout, s.cfg.TeardownMax)
				cancel()
				return nil
			}
			s.handleInbound(f)

		case line := <-s.lines:
			if line.quit {
				s.mu.Lock()
				s.sink.Emit(events.Event{ConnID: s.connID, Kind: events.StateChanged, Detail: "quit requested, closing"})
				s.mu.Unlock()
				s.closedOK = teardown.CloseSend(ctx, s.peer, s.conn.NextSeq, int(s.cfg.Payload), s.cfg.Timeout, s.cfg.TeardownMax)
				cancel()
				return nil
			}
			s.mu.Lock()
			s.in.push(line.data)
			s.sendFramesLocked()
			s.mu.Unlock()
		}
	}
}

func (s *Session) handleInbound(f *frame.Frame) {
	s.mu.Lock()
	var delivered []string

	switch frame.Type(f.Flags) {
	case frame.TypeMSG:
		if window.SequenceInWindow(f.Seq, s.win.Tracker.RecvNext, s.win.Capacity) {
			s.win.InsertRecv(f)
			for _, d := range s.win.AdvanceReceive() {
				s.out.append(d.Data)
				if d.End {
					delivered = append(delivered, s.out.flush())
				}
			}
		}
		ack := frame.New(0)
		ack.PackProperties(0, f.Seq, frame.TypeACK)
		s.peer.Send(ack)
		s.sink.Emit(events.Event{ConnID: s.connID, Kind: events.Received, Seq: f.Seq, FrameType: frame.TypeMSG, Flags: f.Flags})

	case frame.TypeACK:
		if window.SequenceInWindow(f.Seq, s.win.Tracker.SendNext, s.win.Capacity) {
			s.win.InsertAck(f)
			s.win.AdvanceSend()
		}
		s.sendFramesLocked()
		s.sink.Emit(events.Event{ConnID: s.connID, Kind: events.Received, Seq: f.Seq, FrameType: frame.TypeACK, Flags: f.Flags})

	case frame.TypeNAK:
		idx := int(f.Seq - s.win.Tracker.SendNext)
		if resend := s.win.SendSlot(idx); resend != nil {
			s.peer.Send(resend)
			s.sink.Emit(events.Event{ConnID: s.connID, Kind: events.Resent, Seq: resend.Seq, FrameType: frame.TypeMSG, Detail: "resent on NAK"})
		}
	}

	s.mu.Unlock()

	for _, msg := range delivered {
		select {
		case s.deliveries <- msg:
		default:
		}
	}
}

// sendFramesLocked segments the input queue into MSG frames until the
// send window is full or the queue is drained. Caller must hold s.mu.
func (s *Session) sendFramesLocked() {
	for s.win.OutstandingSendCount() < int(s.cfg.Window) && s.in.len() > 0 {
		chunk, exhausted := s.in.take(int(s.cfg.Payload))
		seq := s.conn.NextSeq()
		f := frame.New(int(s.cfg.Payload))
		f.PackMessage(chunk, seq, exhausted)
		s.peer.Send(f)
		s.win.InsertSend(f)
		s.sink.Emit(events.Event{ConnID: s.connID, Kind: events.Sent, Seq: seq, FrameType: frame.TypeMSG, Flags: f.Flags})
	}
}

// resendLoop periodically resends any outstanding sent frame whose
// sender-side timeout has expired without a matching ack.
func (s *Session) resendLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.LoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.resendOnce()
		}
	}
}

func (s *Session) resendOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.win.HasOutstandingSend() {
		return
	}
	last := s.win.OutstandingSendCount() - 1
	for i := 0; i <= last; i++ {
		sent := s.win.SendSlot(i)
		if sent == nil {
			continue
		}
		ack := s.win.AckSlot(i)
		if ack != nil && ack.Seq == sent.Seq {
			continue
		}
		if !s.to.Expired(sent.Time) {
			continue
		}
		sent.Flags |= frame.FlagRES
		s.peer.Send(sent)
		s.sink.Emit(events.Event{ConnID: s.connID, Kind: events.Resent, Seq: sent.Seq, FrameType: frame.TypeMSG, Flags: sent.Flags})
	}
}

// requestLoop periodically scans the receive window for gaps and asks the
// peer to resend whatever has not arrived, once the newest buffered frame
// has itself gone stale.
func (s *Session) requestLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.LoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.requestOnce()
		}
	}
}

func (s *Session) requestOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.win.HasOutstandingRecv() {
		return
	}
	last := int(s.win.Tracker.RecvLast - s.win.Tracker.RecvNext)
	latest := s.win.RecvSlot(last)
	if latest == nil || !s.to.Expired(latest.Time) {
		return
	}
	for i := 0; i <= last; i++ {
		got := s.win.RecvSlot(i)
		if got != nil && got.Seq-s.win.Tracker.RecvNext == int64(i) {
			continue
		}
		nak := frame.New(0)
		nak.PackProperties(0, s.win.Tracker.RecvNext+int64(i), frame.TypeNAK|frame.FlagREQ)
		s.peer.Send(nak)
		s.sink.Emit(events.Event{ConnID: s.connID, Kind: events.Requested, Seq: nak.Seq, FrameType: frame.TypeNAK})
	}
}

// Negotiate runs the handshake appropriate to role and returns a ready
// Session. listener selects Accept vs Connect.
func Negotiate(ctx context.Context, peer Peer, listener bool, localWindow, localPayload int16, handshakeTimeout time.Duration, seed int64, sink events.Sink) (*Session, Config, bool) {
	conn := NewConnection(seed)
	var res handshake.Result
	var ok bool
	if listener {
		res, ok = handshake.Accept(ctx, peer, conn.NextSeq, localWindow, localPayload, handshakeTimeout)
	} else {
		res, ok = handshake.Connect(ctx, peer, conn.NextSeq, localWindow, localPayload, handshakeTimeout)
	}
	if !ok {
		return nil, Config{}, false
	}
	cfg := Config{
		Window:       res.Window,
		Payload:      res.Payload,
		Timeout:      handshakeTimeout,
		LoopInterval: 20 * time.Millisecond,
		TeardownMax:  16,
	}
	return NewSession(peer, conn, cfg, res.PeerInitialSeq, sink), cfg, true
}
