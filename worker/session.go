package worker

import (
	"fmt"
	"log"
)

// sessionManager owns the live session table and the per-event
// handler bindings. Every method here is called synchronously from
// the orchestrator's single event-loop goroutine; no locking is
// required on the table itself.
type sessionManager struct {
	sessions map[uint64]*requestStream
	handlers map[string]Handler
	fallback FallbackHandler

	out  chan<- *Message
	done <-chan struct{}
}

func newSessionManager(out chan<- *Message, done <-chan struct{}) *sessionManager {
	return &sessionManager{
		sessions: make(map[uint64]*requestStream),
		handlers: make(map[string]Handler),
		fallback: FallbackHandlerFunc(DefaultFallbackHandler),
		out:      out,
		done:     done,
	}
}

func (m *sessionManager) bind(event string, h Handler) {
	m.handlers[event] = h
}

func (m *sessionManager) setFallback(h FallbackHandler) {
	m.fallback = h
}

// onInvoke constructs the stream pair, registers the session only
// once setup has fully succeeded, and starts the handler (or
// fallback) as its own goroutine with a completion trap attached.
func (m *sessionManager) onInvoke(session uint64, event string) {
	response := newResponseStream(session, m.out, m.done)

	request, handler, err := m.prepare(event)
	if err != nil {
		response.ErrorMsg(ErrorInvocationFailed, fmt.Sprintf("failed to invoke %s: %v", event, err))
		return
	}

	m.sessions[session] = request

	if handler != nil {
		go m.run(event, handler, request, response)
	} else {
		go m.runFallback(event, request, response)
	}
}

// prepare runs the non-I/O setup steps (queue allocation, handler
// lookup) under a recover trap so a panic here never leaves the
// session registered.
func (m *sessionManager) prepare(event string) (req *requestStream, handler Handler, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	req = newRequestStream()
	handler = m.handlers[event]
	return req, handler, nil
}

func (m *sessionManager) run(event string, handler Handler, request Request, response *responseStream) {
	defer m.trap(event, response)
	handler.Handle(request, response)
}

func (m *sessionManager) runFallback(event string, request Request, response *responseStream) {
	defer m.trap(event, response)
	m.fallback.HandleFallback(event, request, response)
}

// trap is the single completion point every handler goroutine runs
// through, guaranteeing a terminal frame is always emitted regardless
// of how the handler finished.
func (m *sessionManager) trap(event string, response *responseStream) {
	if r := recover(); r != nil {
		response.ErrorMsg(ErrorPanicInHandler, fmt.Sprintf("error in event '%s': %v", event, r))
	}
	if !response.Closed() {
		response.Close()
	}
}

// onChunk delivers a CHUNK's payload to the matching session's
// request stream.
func (m *sessionManager) onChunk(session uint64, data []byte) {
	req, ok := m.sessions[session]
	if !ok {
		log.Printf("worker: chunk for unknown session %d dropped", session)
		return
	}
	req.push(data)
}

// onChoke retires the session and delivers end-of-stream to its
// request stream.
func (m *sessionManager) onChoke(session uint64) {
	req, ok := m.sessions[session]
	if !ok {
		return
	}
	delete(m.sessions, session)
	req.Close()
}

// onError retires the session, delivering the error then end-of-
// stream, so the handler observes the error first.
func (m *sessionManager) onError(session uint64, code int, reason string) {
	req, ok := m.sessions[session]
	if !ok {
		return
	}
	delete(m.sessions, session)
	req.deliverError(code, reason)
	req.Close()
}
