package teardown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/utp-go/utp/internal/frame"
)

type pipePeer struct {
	out chan *frame.Frame
	in  chan *frame.Frame
}

func newPipe() (a, b *pipePeer) {
	ab := make(chan *frame.Frame, 8)
	ba := make(chan *frame.Frame, 8)
	return &pipePeer{out: ab, in: ba}, &pipePeer{out: ba, in: ab}
}

func (p *pipePeer) Send(f *frame.Frame) (int, error) {
	p.out <- f
	return 0, nil
}

func (p *pipePeer) Recv(ctx context.Context, timeout time.Duration) (*frame.Frame, bool) {
	select {
	case f := <-p.in:
		return f, true
	case <-time.After(timeout):
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

func seqCounter() func() int64 {
	n := int64(0)
	return func() int64 {
		n++
		return n
	}
}

func TestGracefulTeardownBothSidesReportClean(t *testing.T) {
	senderPeer, recvPeer := newPipe()
	ctx := context.Background()

	sendDone := make(chan bool, 1)
	recvDone := make(chan bool, 1)

	go func() {
		sendDone <- CloseSend(ctx, senderPeer, seqCounter(), 32, 200*time.Millisecond, 16)
	}()
	go func() {
		recvDone <- CloseRecv(ctx, recvPeer, seqCounter(), 32, 200*time.Millisecond, 16)
	}()

	require.True(t, <-sendDone)
	require.True(t, <-recvDone)
}

func TestCloseSendGivesUpWhenPeerNeverResponds(t *testing.T) {
	senderPeer, _ := newPipe()
	ctx := context.Background()

	ok := CloseSend(ctx, senderPeer, seqCounter(), 32, 5*time.Millisecond, 2)
	require.False(t, ok, "teardown should time out when the peer never replies")
}

func TestCloseRecvGivesUpWhenInitiatorNeverAcks(t *testing.T) {
	_, recvPeer := newPipe()
	ctx := context.Background()

	ok := CloseRecv(ctx, recvPeer, seqCounter(), 32, 5*time.Millisecond, 2)
	require.False(t, ok, "teardown should time out when the initiator never sends the final ACK")
}
