package window

import (
	"testing"

	"github.com/utp-go/utp/internal/frame"
)

func TestSequenceInWindow(t *testing.T) {
	cases := []struct {
		seq, base int64
		size      int
		want      bool
	}{
		{10, 10, 4, true},
		{13, 10, 4, true},
		{14, 10, 4, false},
		{9, 10, 4, false},
	}
	for _, c := range cases {
		if got := SequenceInWindow(c.seq, c.base, c.size); got != c.want {
			t.Errorf("SequenceInWindow(%d,%d,%d) = %v, want %v", c.seq, c.base, c.size, got, c.want)
		}
	}
}

func TestFreshWindowHasNoOutstanding(t *testing.T) {
	w := New(4, 100, 50)
	if w.HasOutstandingSend() {
		t.Errorf("fresh window should have no outstanding send")
	}
	if w.HasOutstandingRecv() {
		t.Errorf("fresh window should have no outstanding recv")
	}
	if w.Tracker.RecvNext != 51 {
		t.Errorf("expected RecvNext 51, got %d", w.Tracker.RecvNext)
	}
}

func TestSendInsertAndAdvance(t *testing.T) {
	w := New(4, 100, 50)

	for i := int64(0); i < 3; i++ {
		f := frame.New(4)
		f.PackMessage([]byte("xx"), 100+i, false)
		w.InsertSend(f)
	}
	if !w.HasOutstandingSend() || w.OutstandingSendCount() != 3 {
		t.Fatalf("expected 3 outstanding, got %d", w.OutstandingSendCount())
	}

	ack0 := frame.New(0)
	ack0.PackProperties(0, 100, frame.TypeACK)
	w.InsertAck(ack0)
	ack1 := frame.New(0)
	ack1.PackProperties(0, 101, frame.TypeACK)
	w.InsertAck(ack1)

	n := w.AdvanceSend()
	if n != 2 {
		t.Fatalf("expected 2 frames retired, got %d", n)
	}
	if w.Tracker.SendNext != 102 {
		t.Fatalf("expected SendNext 102, got %d", w.Tracker.SendNext)
	}
	if w.OutstandingSendCount() != 1 {
		t.Fatalf("expected 1 still outstanding, got %d", w.OutstandingSendCount())
	}
}

func TestRecvOutOfOrderBuffersUntilGapFilled(t *testing.T) {
	w := New(4, 1, 49) // RecvNext = 50

	second := frame.New(4)
	second.PackMessage([]byte("B"), 51, false)
	w.InsertRecv(second)

	if delivered := w.AdvanceReceive(); len(delivered) != 0 {
		t.Fatalf("expected nothing deliverable with a gap, got %v", delivered)
	}

	first := frame.New(4)
	first.PackMessage([]byte("A"), 50, false)
	w.InsertRecv(first)

	delivered := w.AdvanceReceive()
	if len(delivered) != 2 {
		t.Fatalf("expected 2 delivered frames once gap filled, got %d", len(delivered))
	}
	if string(delivered[0].Data) != "A" || string(delivered[1].Data) != "B" {
		t.Fatalf("unexpected delivery order: %+v", delivered)
	}
	if w.Tracker.RecvNext != 52 {
		t.Fatalf("expected RecvNext 52, got %d", w.Tracker.RecvNext)
	}
}

func TestAdvanceReceiveReportsEND(t *testing.T) {
	w := New(4, 1, 49)
	f := frame.New(4)
	f.PackMessage([]byte("Z"), 50, true)
	w.InsertRecv(f)

	delivered := w.AdvanceReceive()
	if len(delivered) != 1 || !delivered[0].End {
		t.Fatalf("expected one delivered END frame, got %+v", delivered)
	}
}
