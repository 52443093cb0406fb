package worker

import "time"

// endOfStream is the sentinel pushed onto a Request stream's queue
// once the daemon has choked the session (or the session manager is
// closing it for another reason).
type endOfStream struct{}

func (endOfStream) Error() string { return "worker: end of stream" }

// RequestError is delivered through a Request stream when the daemon
// sends an ERROR frame for the session; the handler observes it on
// its next Read.
type RequestError struct {
	Code   int
	Reason string
}

func (e *RequestError) Error() string { return e.Reason }

// Request lets a handler pull the bytes the daemon streams into a
// session.
type Request interface {
	// Read blocks for the next chunk. timeout is optional; omitted or
	// zero means wait forever, any positive value is a deadline.
	Read(timeout ...time.Duration) ([]byte, error)
}

// requestStream is the concrete, producer-facing half of a Request:
// the dispatcher pushes bytes/errors/EOF onto it; the handler reads
// through the Request interface.
type requestStream struct {
	queue *asyncQueue
}

func newRequestStream() *requestStream {
	return &requestStream{queue: newAsyncQueue()}
}

// push delivers a CHUNK's payload to the handler.
func (r *requestStream) push(data []byte) {
	r.queue.put(data)
}

// deliverError delivers an ERROR frame's code/reason; the handler
// observes it on its next Read, ahead of any EndOfStream that follows.
func (r *requestStream) deliverError(code int, reason string) {
	r.queue.put(&RequestError{Code: code, Reason: reason})
}

// Close marks the stream exhausted; any Read after all buffered items
// are drained returns endOfStream.
func (r *requestStream) Close() {
	r.queue.put(endOfStream{})
}

func (r *requestStream) Read(timeout ...time.Duration) ([]byte, error) {
	var d time.Duration
	if len(timeout) > 0 {
		d = timeout[0]
	}

	item, err := r.queue.get(d)
	if err != nil {
		return nil, err
	}

	switch v := item.(type) {
	case []byte:
		return v, nil
	case *RequestError:
		return nil, v
	case endOfStream:
		return nil, v
	default:
		return nil, nil
	}
}
