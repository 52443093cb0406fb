package worker

import (
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sagernet/sing/common/bufio"
)

// asyncBuf is a buffer that forwards everything sent on in to out, in
// order. It backs the socket's outbound write path; in holds up to 256
// pending messages, and once that fills, senders block until the
// writer catches up.
type asyncBuf struct {
	in  chan *Message
	out chan *Message
}

func newAsyncBuf() *asyncBuf {
	b := &asyncBuf{
		in:  make(chan *Message, 256),
		out: make(chan *Message),
	}
	go b.pump()
	return b
}

func (b *asyncBuf) pump() {
	for msg := range b.in {
		b.out <- msg
	}
	close(b.out)
}

// Drain waits for timeout to elapse, whether or not sends are still
// arriving, then closes in so pump
// flushes whatever is already queued and closes out behind it. Only
// call this once producers have stopped (or have been told to stop
// via a closed-signal channel) -- like any Go channel, only the side
// that knows sends have ended may close it.
func (b *asyncBuf) Drain(timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	<-timer.C
	close(b.in)
}

// socketIO is the duplex, already-framed connection to the node daemon
// the orchestrator drives: Read yields decoded Messages, Write accepts
// Messages to encode and send, IsClosed signals loss of the
// connection.
type socketIO interface {
	Read() <-chan *Message
	Write() chan<- *Message
	IsClosed() <-chan struct{}
	Close()
}

// unixSocket is a socketIO backed by a Unix-domain stream socket.
type unixSocket struct {
	conn      net.Conn
	codec     wireCodec
	readCh    chan *Message
	writeBuf  *asyncBuf
	closed    chan struct{}
	writeDone chan struct{}

	closeOnce sync.Once
}

// newUnixConnection dials a Unix-domain socket endpoint with a
// connect deadline.
func newUnixConnection(endpoint string, timeout time.Duration, version protocolVersion) (*unixSocket, error) {
	conn, err := net.DialTimeout("unix", endpoint, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "worker: connect to %s", endpoint)
	}
	return newSocketIO(conn, version), nil
}

func newSocketIO(conn net.Conn, version protocolVersion) *unixSocket {
	s := &unixSocket{
		conn:      conn,
		codec:     newWireCodec(version),
		readCh:    make(chan *Message),
		writeBuf:  newAsyncBuf(),
		closed:    make(chan struct{}),
		writeDone: make(chan struct{}),
	}
	go s.readLoop()
	go s.writeLoop()
	return s
}

func (s *unixSocket) Read() <-chan *Message     { return s.readCh }
func (s *unixSocket) Write() chan<- *Message    { return s.writeBuf.in }
func (s *unixSocket) IsClosed() <-chan struct{} { return s.closed }

func (s *unixSocket) readLoop() {
	defer close(s.readCh)

	buf := make([]byte, 64*1024)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			for _, msg := range s.codec.Feed(buf[:n]) {
				select {
				case s.readCh <- msg:
				case <-s.closed:
					return
				}
			}
		}
		if err != nil {
			s.Close()
			return
		}
	}
}

// writeLoop drains the write buffer onto the wire, writing each packed
// frame through a vectorised writer when the
// underlying conn supports it, the same fallback dance
// SagerNet-smux/session.go's sendLoop performs around
// bufio.CreateVectorisedWriter.
func (s *unixSocket) writeLoop() {
	defer close(s.writeDone)

	vec, batched := bufio.CreateVectorisedWriter(s.conn)

	for msg := range s.writeBuf.out {
		data := s.codec.Pack(msg)

		var err error
		if batched {
			_, err = bufio.WriteVectorised(vec, [][]byte{data})
		} else {
			_, err = s.conn.Write(data)
		}
		if err != nil {
			s.Close()
			return
		}
	}
}

// Close tears down the connection. It closes the IsClosed signal first
// so any in-flight send on Write() that selects on IsClosed (the
// worker's handshake, heartbeat, terminate and forwarding sends) can
// bail out via its select
// instead of racing a send against the buffer close, then lets
// whatever was already queued drain onto the wire before physically
// closing the underlying conn. The wait runs in its own goroutine,
// bounded by a grace period, so Close is itself non-blocking and safe
// to call from readLoop/writeLoop's own error paths without
// deadlocking against writeDone.
func (s *unixSocket) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		go func() {
			s.writeBuf.Drain(50 * time.Millisecond)
			select {
			case <-s.writeDone:
			case <-time.After(200 * time.Millisecond):
			}
			s.conn.Close()
		}()
	})
}
