// Package chatio is the interactive line-oriented front-end that drives a
// transport.Session from stdin: each line typed becomes application
// payload, the literal line "QUIT" initiates graceful teardown, and
// delivered inbound messages print as "> message". It is a driver, not
// core: the transport package never imports it.
package chatio

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// Session is the subset of transport.Session the chat front-end drives.
type Session interface {
	Enqueue(b []byte)
	Quit()
	Deliveries() <-chan string
	Done() <-chan struct{}
}

// Run reads lines from in until EOF, "QUIT", ctx cancellation, or the
// session closing, printing delivered inbound messages to out as they
// arrive. It returns once the session's Done channel closes.
func Run(ctx context.Context, sess Session, in io.Reader, out io.Writer) {
	go readLines(ctx, sess, in)

	for {
		select {
		case msg, ok := <-sess.Deliveries():
			if !ok {
				return
			}
			fmt.Fprintf(out, "> %s\n", msg)
		case <-sess.Done():
			drainRemaining(sess, out)
			return
		case <-ctx.Done():
			return
		}
	}
}

// drainRemaining flushes any deliveries that arrived concurrently with the
// session closing, so a final message isn't lost to a select race.
func drainRemaining(sess Session, out io.Writer) {
	for {
		select {
		case msg, ok := <-sess.Deliveries():
			if !ok {
				return
			}
			fmt.Fprintf(out, "> %s\n", msg)
		default:
			return
		}
	}
}

func readLines(ctx context.Context, sess Session, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if line == "QUIT" {
			sess.Quit()
			return
		}
		sess.Enqueue([]byte(line))
	}
}
