//go:build linux

package reactor

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/valyala/bytebufferpool"
	"golang.org/x/sys/unix"
)

// Connection is one accepted socket. The loop goroutine holds a reference
// from accept until teardown and every worker task holds one while it runs;
// the descriptor is closed when the last reference goes away, so a worker
// never touches a number the kernel has already handed to someone else.
type Connection struct {
	id      uint64
	fd      int
	remote  string
	created time.Time
	channel *Channel
	stats   *Stats

	in      *bytebufferpool.ByteBuffer
	out     *bytebufferpool.ByteBuffer
	written int
	eof     bool
	ctx     any

	refs   atomic.Int32
	closed atomic.Bool
}

func newConnection(id uint64, fd int, remote string, stats *Stats) *Connection {
	var c = &Connection{
		id:      id,
		fd:      fd,
		remote:  remote,
		created: time.Now(),
		stats:   stats,
		in:      bytebufferpool.Get(),
		out:     bytebufferpool.Get(),
	}
	c.refs.Store(1)
	return c
}

func (c *Connection) ID() uint64 {
	return c.id
}

func (c *Connection) Fd() int {
	return c.fd
}

func (c *Connection) RemoteAddr() string {
	return c.remote
}

func (c *Connection) CreatedAt() time.Time {
	return c.created
}

// Closed reports whether the connection has been torn down. Its buffers and
// descriptor may still be alive until in-flight tasks finish.
func (c *Connection) Closed() bool {
	return c.closed.Load()
}

// Input holds bytes read from the peer and not yet consumed by the handler.
func (c *Connection) Input() *bytebufferpool.ByteBuffer {
	return c.in
}

// Output holds the response staged by the handler.
func (c *Connection) Output() *bytebufferpool.ByteBuffer {
	return c.out
}

// Consume drops the first n bytes of Input.
func (c *Connection) Consume(n int) {
	if n >= len(c.in.B) {
		c.in.Reset()
		return
	}
	c.in.B = append(c.in.B[:0], c.in.B[n:]...)
}

// PeerClosed reports whether the last read hit end of stream.
func (c *Connection) PeerClosed() bool {
	return c.eof
}

// Context returns the value stored with SetContext. Handlers keep
// per-connection protocol state here.
func (c *Connection) Context() any {
	return c.ctx
}

func (c *Connection) SetContext(v any) {
	c.ctx = v
}

// Flush writes as much of Output as the socket accepts. Output is reset
// once it has all been written.
func (c *Connection) Flush() WriteOutcome {
	for c.written < len(c.out.B) {
		var n, err = unix.Write(c.fd, c.out.B[c.written:])
		if n > 0 {
			c.written += n
			c.stats.addBytesOut(n)
		}
		switch err {
		case nil:
		case unix.EINTR:
		case unix.EAGAIN:
			return WouldBlock
		default:
			return WriteFatal
		}
	}
	c.out.Reset()
	c.written = 0
	return Drained
}

// fill reads until the socket is drained. eof is set when the peer has shut
// down its side.
func (c *Connection) fill(scratch []byte) (int, bool, error) {
	var total int
	for {
		var n, err = unix.Read(c.fd, scratch)
		if n > 0 {
			_, _ = c.in.Write(scratch[:n])
			total += n
		}
		switch {
		case err == unix.EINTR:
		case err == unix.EAGAIN:
			return total, false, nil
		case err != nil:
			return total, false, os.NewSyscallError("read", err)
		case n == 0:
			return total, true, nil
		}
	}
}

func (c *Connection) acquire() {
	c.refs.Add(1)
}

func (c *Connection) release() {
	if c.refs.Add(-1) == 0 {
		_ = unix.Close(c.fd)
		bytebufferpool.Put(c.in)
		bytebufferpool.Put(c.out)
		c.in = nil
		c.out = nil
	}
}
