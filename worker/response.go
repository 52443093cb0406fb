package worker

import (
	"log"
	"sync"
)

// Response lets a handler stream bytes back to the daemon and
// terminate the session.
type Response interface {
	// Write emits a CHUNK. A no-op once the stream is closed.
	Write(data []byte)
	// ErrorMsg emits an ERROR frame and marks the stream closed.
	ErrorMsg(code int, reason string)
	// Close emits a CHOKE and marks the stream closed.
	Close()
}

// responseStream is the concrete Response: it owns the "closed" bit
// and fans outbound Messages into the worker's single write path.
type responseStream struct {
	session uint64
	out     chan<- *Message
	done    <-chan struct{}

	mu     sync.Mutex
	closed bool
}

func newResponseStream(session uint64, out chan<- *Message, done <-chan struct{}) *responseStream {
	return &responseStream{session: session, out: out, done: done}
}

// Closed reports whether a terminal frame has already been emitted.
func (r *responseStream) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *responseStream) send(msg *Message) {
	select {
	case r.out <- msg:
	case <-r.done:
		// socket is gone; drop the frame rather than block forever.
	}
}

func (r *responseStream) Write(data []byte) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		log.Printf("worker: write on closed session %d dropped", r.session)
		return
	}
	r.mu.Unlock()

	r.send(newChunkMessage(r.session, data))
}

func (r *responseStream) ErrorMsg(code int, reason string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.send(newErrorMessage(r.session, code, reason))
}

func (r *responseStream) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.send(newChokeMessage(r.session))
}
