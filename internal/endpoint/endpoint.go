// Package endpoint wraps a net.UDPConn with the frame-level send/recv
// contract the rest of UTP depends on: every outbound frame gets a
// timestamp and an integrity tag, every inbound frame is tag-verified
// before it is handed back.
package endpoint

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/utp-go/utp/internal/clock"
	"github.com/utp-go/utp/internal/frame"
)

// maxDatagram is large enough for any payload size this protocol
// negotiates; UDP itself caps datagrams well below this.
const maxDatagram = 65535

// Endpoint is a single peer's view of the socket: bound locally, and
// (once a remote has been learned, e.g. on a listening socket) able to
// send back to whichever peer last spoke.
type Endpoint struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
	clock  clock.Source
}

// New wraps an already-bound UDP connection. remote may be nil for a
// connection created with net.DialUDP, which already targets a fixed peer.
func New(conn *net.UDPConn, remote *net.UDPAddr) *Endpoint {
	return &Endpoint{conn: conn, remote: remote, clock: clock.System{}}
}

// Listen binds a UDP socket on the given port across all interfaces.
func Listen(port int) (*Endpoint, error) {
	addr := &net.UDPAddr{Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "endpoint: listen on port %d", port)
	}
	return New(conn, nil), nil
}

// Dial binds an ephemeral local UDP socket targeting host:port.
func Dial(host string, port int) (*Endpoint, error) {
	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, errors.Wrapf(err, "endpoint: resolve %s:%d", host, port)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, errors.Wrapf(err, "endpoint: dial %s:%d", host, port)
	}
	return New(conn, nil), nil
}

// Send stamps, tags and writes f to whichever peer this endpoint targets:
// the remote given to New or learned by Recv, or else the fixed peer of a
// dialled socket.
func (e *Endpoint) Send(f *frame.Frame) (int, error) {
	f.Time = e.clock.NowMicro()
	f.IntegrityAttach()
	buf := f.Encode()
	if e.remote != nil {
		return e.conn.WriteToUDP(buf, e.remote)
	}
	return e.conn.Write(buf)
}

// Recv blocks until a verified frame arrives, the timeout elapses, or ctx
// is cancelled. The second return value is false whenever no usable frame
// was produced (short read, decode failure, bad tag, timeout, cancellation).
// On a listening socket, the first peer heard from becomes the remote for
// subsequent Send calls.
func (e *Endpoint) Recv(ctx context.Context, timeout time.Duration) (*frame.Frame, bool) {
	deadline := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := e.conn.SetReadDeadline(deadline); err != nil {
		return nil, false
	}
	stop := context.AfterFunc(ctx, func() { e.conn.SetReadDeadline(time.Now()) })
	defer stop()

	buf := make([]byte, maxDatagram)
	n, addr, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, false
	}
	if e.remote == nil && e.conn.RemoteAddr() == nil {
		e.remote = addr
	}

	f, err := frame.Decode(buf[:n])
	if err != nil {
		return nil, false
	}
	if !f.IntegrityVerify() {
		return nil, false
	}
	return f, true
}

// LocalAddr returns the bound local address.
func (e *Endpoint) LocalAddr() net.Addr { return e.conn.LocalAddr() }

// RemoteAddr returns the currently known remote address, if any.
func (e *Endpoint) RemoteAddr() net.Addr {
	if e.remote != nil {
		return e.remote
	}
	return e.conn.RemoteAddr()
}

// Close releases the underlying socket.
func (e *Endpoint) Close() error { return e.conn.Close() }
