package worker

import (
	"sync/atomic"
	"time"
)

// watchdogMultiple is how large a multiple of disownTimeout the
// watchdog goroutine's own deadline is.
const watchdogMultiple = 42

// livenessEngine realises three resettable timers: the periodic
// outgoing heartbeat, the event-loop disown one-shot, and the
// watchdog-goroutine disown one-shot. The watchdog only ever touches
// its own timer and a buffered notify channel, so it stays isolated
// from the event loop even if the loop itself wedges.
type livenessEngine struct {
	heartbeatTimeout time.Duration
	disownTimeout    time.Duration

	heartbeatTimer *time.Timer
	disownTimer    *time.Timer

	watchdogNotify chan struct{}
	watchdogDone   chan struct{}

	emitHeartbeat func()
	disown        func()

	disowned int32
}

func newLivenessEngine(heartbeatTimeout, disownTimeout time.Duration, emitHeartbeat, disown func()) *livenessEngine {
	l := &livenessEngine{
		heartbeatTimeout: heartbeatTimeout,
		disownTimeout:    disownTimeout,
		heartbeatTimer:   time.NewTimer(heartbeatTimeout),
		disownTimer:      time.NewTimer(disownTimeout),
		watchdogNotify:   make(chan struct{}, 1),
		watchdogDone:     make(chan struct{}),
		emitHeartbeat:    emitHeartbeat,
		disown:           disown,
	}
	// NewTimer launches the timer immediately; both must stay disarmed
	// until the orchestrator actually starts.
	l.heartbeatTimer.Stop()
	l.disownTimer.Stop()
	return l
}

// StartWatchdog launches the watchdog goroutine. Call once, at worker
// start-up.
func (l *livenessEngine) StartWatchdog() {
	go l.watchdogLoop()
}

func (l *livenessEngine) watchdogLoop() {
	timer := time.NewTimer(l.disownTimeout * watchdogMultiple)
	defer timer.Stop()

	for {
		select {
		case <-l.watchdogNotify:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(l.disownTimeout * watchdogMultiple)

		case <-timer.C:
			l.fireDisown()
			return

		case <-l.watchdogDone:
			return
		}
	}
}

// NotifyHeartbeat disarms the event-loop disown timer and resets the
// watchdog's deadline to a fresh disownTimeout*42. Spec.md §5: "Incoming
// HEARTBEATs always disarm the disown timers before being otherwise
// observed."
func (l *livenessEngine) NotifyHeartbeat() {
	l.disownTimer.Stop()
	select {
	case l.watchdogNotify <- struct{}{}:
	default:
	}
}

// DoHeartbeat arms the event-loop disown timer, reschedules the next
// periodic heartbeat, and emits the outgoing HEARTBEAT.
func (l *livenessEngine) DoHeartbeat() {
	l.disownTimer.Reset(l.disownTimeout)
	l.heartbeatTimer.Reset(l.heartbeatTimeout)
	l.emitHeartbeat()
}

// FireEventLoopDisown is called by the orchestrator when its disown
// timer channel fires.
func (l *livenessEngine) FireEventLoopDisown() {
	l.fireDisown()
}

func (l *livenessEngine) fireDisown() {
	if atomic.CompareAndSwapInt32(&l.disowned, 0, 1) {
		l.disown()
	}
}

// HeartbeatTimerC is the channel the orchestrator's select loop reads
// to know when to call DoHeartbeat again.
func (l *livenessEngine) HeartbeatTimerC() <-chan time.Time { return l.heartbeatTimer.C }

// DisownTimerC is the channel the orchestrator's select loop reads to
// know when the event-loop disown timer has fired.
func (l *livenessEngine) DisownTimerC() <-chan time.Time { return l.disownTimer.C }

// Stop disarms both event-loop timers and tells the watchdog to exit.
func (l *livenessEngine) Stop() {
	l.heartbeatTimer.Stop()
	l.disownTimer.Stop()
	close(l.watchdogDone)
}
