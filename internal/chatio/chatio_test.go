package chatio

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	enqueued   [][]byte
	quitCalled bool
	deliveries chan string
	done       chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		deliveries: make(chan string, 8),
		done:       make(chan struct{}),
	}
}

func (f *fakeSession) Enqueue(b []byte)          { f.enqueued = append(f.enqueued, b) }
func (f *fakeSession) Quit()                     { f.quitCalled = true; close(f.done) }
func (f *fakeSession) Deliveries() <-chan string { return f.deliveries }
func (f *fakeSession) Done() <-chan struct{}     { return f.done }

func TestRunEnqueuesLinesAndPrintsDeliveries(t *testing.T) {
	sess := newFakeSession()
	in := strings.NewReader("hello\nworld\nQUIT\n")
	var out bytes.Buffer

	sess.deliveries <- "reply one"

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	Run(ctx, sess, in, &out)

	require.True(t, sess.quitCalled)
	require.Len(t, sess.enqueued, 2)
	require.Equal(t, "hello", string(sess.enqueued[0]))
	require.Equal(t, "world", string(sess.enqueued[1]))
	require.Contains(t, out.String(), "> reply one")
}
