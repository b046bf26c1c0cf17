package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/utp-go/utp/core/events"
	"github.com/utp-go/utp/internal/handshake"
	"github.com/utp-go/utp/internal/linkfault"
)

func negotiateBoth(t *testing.T, rate int) (*Session, *Session) {
	t.Helper()
	a, b := linkfault.NewPipe(rate, 1)
	ctx := context.Background()

	type negResult struct {
		sess *Session
		cfg  Config
		ok   bool
	}
	aCh := make(chan negResult, 1)
	bCh := make(chan negResult, 1)

	go func() {
		s, cfg, ok := Negotiate(ctx, a, true, 4, 8, 200*time.Millisecond, 1000, events.Nop{})
		aCh <- negResult{s, cfg, ok}
	}()
	go func() {
		s, cfg, ok := Negotiate(ctx, b, false, 4, 8, 200*time.Millisecond, 2000, events.Nop{})
		bCh <- negResult{s, cfg, ok}
	}()

	ar := <-aCh
	br := <-bCh
	require.True(t, ar.ok)
	require.True(t, br.ok)
	ar.sess.cfg.LoopInterval = 5 * time.Millisecond
	br.sess.cfg.LoopInterval = 5 * time.Millisecond
	return ar.sess, br.sess
}

func TestEndToEndMessageDeliveryCleanLink(t *testing.T) {
	listener, initiator := negotiateBoth(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go listener.Run(ctx)
	go initiator.Run(ctx)

	initiator.Enqueue([]byte("hello world"))

	select {
	case msg := <-listener.Deliveries():
		require.Equal(t, "hello world", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestEndToEndSurvivesLossyLink(t *testing.T) {
	listener, initiator := negotiateBoth(t, 25)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go listener.Run(ctx)
	go initiator.Run(ctx)

	initiator.Enqueue([]byte("resilient message over a lossy link"))

	select {
	case msg := <-listener.Deliveries():
		require.Equal(t, "resilient message over a lossy link", msg)
	case <-time.After(5 * time.Second):
		t.Fatal("message was not eventually delivered despite loss")
	}
}

func TestGracefulTeardownFromInitiator(t *testing.T) {
	listener, initiator := negotiateBoth(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go listener.Run(ctx)
	go initiator.Run(ctx)

	initiator.Quit()

	select {
	case <-initiator.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("initiator did not complete teardown")
	}
	select {
	case <-listener.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not complete teardown")
	}
	require.True(t, initiator.ClosedCleanly())
	require.True(t, listener.ClosedCleanly())
}

// sanity check that handshake.HandshakeSize stays at the 16-byte
// handshake payload of the wire format.
func TestHandshakeSizeConstant(t *testing.T) {
	require.Equal(t, 16, handshake.HandshakeSize)
}
