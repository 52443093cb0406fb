package worker

import (
	"log"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// ErrDisowned is returned by Run when the worker stopped because no
// heartbeat arrived within the configured disown timeout.
var ErrDisowned = errors.New("worker: disowned")

// Worker performs IO between an application and the platform's node
// daemon, dispatches incoming messages, and keeps itself alive through
// the heartbeat/disown protocol, across both wire profiles.
type Worker struct {
	conn socketIO
	cfg  *Config

	liveness *livenessEngine
	dispatch *dispatcher
	sessions *sessionManager

	fromHandlers chan *Message
	stopped      chan struct{}
	stopOnce     sync.Once

	// exitFunc is called by onDisown/onFailure to end the process.
	// Overridable so tests can observe a fatal-exit decision without
	// actually killing the test binary.
	exitFunc func(code int)
}

// NewWorker validates cfg, connects to the daemon over the configured
// Unix-domain endpoint, and returns a Worker ready to have handlers
// registered and Run called. A dial failure is treated the same as
// any other on-failure transport error: the supervisor is expected to
// respawn.
func NewWorker(cfg *Config) (*Worker, error) {
	if err := configValidator.Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "worker: invalid configuration")
	}
	conn, err := newUnixConnection(cfg.Endpoint, cfg.ConnectTimeout, cfg.Protocol)
	if err != nil {
		return nil, err
	}
	return newWorker(conn, cfg), nil
}

func newWorker(conn socketIO, cfg *Config) *Worker {
	w := &Worker{
		conn:         conn,
		cfg:          cfg,
		fromHandlers: make(chan *Message),
		stopped:      make(chan struct{}),
		exitFunc:     os.Exit,
	}
	w.sessions = newSessionManager(w.fromHandlers, w.stopped)
	w.dispatch = newDispatcher(cfg.Protocol, w)
	w.liveness = newLivenessEngine(cfg.HeartbeatTimeout, cfg.DisownTimeout, w.emitHeartbeat, w.onDisown)
	return w
}

// On binds handler to event.
func (w *Worker) On(event string, handler Handler) {
	w.sessions.bind(event, handler)
}

// OnFunc is a convenience wrapper for a plain func(Request, Response).
func (w *Worker) OnFunc(event string, handler func(Request, Response)) {
	w.On(event, HandlerFunc(handler))
}

// SetFallbackHandler overrides the handler invoked for events with no
// bound Handler. Defaults to DefaultFallbackHandler.
func (w *Worker) SetFallbackHandler(handler FallbackHandler) {
	w.sessions.setFallback(handler)
}

// Run sends the handshake, starts the liveness engine, and runs the
// event loop until the worker is stopped, returning the reason
// (ErrDisowned, or nil on a graceful TERMINATE).
func (w *Worker) Run() error {
	w.sendHandshake()
	w.liveness.StartWatchdog()
	return w.loop()
}

// Stop ends the event loop and closes the connection. Safe to call
// more than once and from any goroutine.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopped)
		w.liveness.Stop()
		w.conn.Close()
	})
}

func (w *Worker) loop() error {
	var loopErr error

	w.liveness.DoHeartbeat()

	for {
		select {
		case msg, ok := <-w.conn.Read():
			if !ok {
				w.onFailure()
				continue
			}
			w.dispatch.Dispatch(msg)

		case <-w.liveness.HeartbeatTimerC():
			w.liveness.DoHeartbeat()

		case <-w.liveness.DisownTimerC():
			loopErr = ErrDisowned
			w.liveness.FireEventLoopDisown()

		case out := <-w.fromHandlers:
			select {
			case w.conn.Write() <- out:
			case <-w.conn.IsClosed():
			}

		case <-w.stopped:
			return loopErr
		}
	}
}

func (w *Worker) sendHandshake() {
	select {
	case w.conn.Write() <- newHandshakeMessage(w.cfg.UUID):
	case <-w.conn.IsClosed():
	}
}

func (w *Worker) emitHeartbeat() {
	select {
	case w.conn.Write() <- newHeartbeatMessage():
	case <-w.conn.IsClosed():
	}
}

func (w *Worker) sendTerminate(errno int, reason string) {
	select {
	case w.conn.Write() <- newTerminateMessage(errno, reason):
	case <-w.conn.IsClosed():
	}
}

// onDisown is called either by the event-loop disown timer (from the
// loop goroutine) or by the watchdog (from its own goroutine); either
// way the worker is fatally done and the supervisor is the only
// recovery actor.
func (w *Worker) onDisown() {
	log.Println("worker: disowned")
	w.Stop()
	w.exitFunc(1)
}

func (w *Worker) onFailure() {
	log.Println("worker: connection lost")
	w.onDisown()
}

func (w *Worker) onTerminate(errno int, reason string) {
	log.Printf("worker: terminate received: %d %s", errno, reason)
	w.sendTerminate(errno, reason)
	w.Stop()
}

// dispatchTarget implementation -- the dispatcher calls these after
// normalising a wire message into the internal event set; Worker is
// the sole implementer.

func (w *Worker) dispatchHeartbeat() {
	w.liveness.NotifyHeartbeat()
}

func (w *Worker) dispatchTerminate(errno int, reason string) {
	w.onTerminate(errno, reason)
}

func (w *Worker) dispatchInvoke(session uint64, event string) {
	w.sessions.onInvoke(session, event)
}

func (w *Worker) dispatchChunk(session uint64, data []byte) {
	w.sessions.onChunk(session, data)
}

func (w *Worker) dispatchChoke(session uint64) {
	w.sessions.onChoke(session)
}

func (w *Worker) dispatchError(session uint64, code int, reason string) {
	w.sessions.onError(session, code, reason)
}
