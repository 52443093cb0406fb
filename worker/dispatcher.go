package worker

import "log"

// dispatchTarget receives the normalised event set a dispatcher
// produces from either wire profile. Worker is the sole implementer;
// splitting the interface out keeps it possible to assert against a
// fake without spinning up a real socket.
type dispatchTarget interface {
	dispatchHeartbeat()
	dispatchTerminate(errno int, reason string)
	dispatchInvoke(session uint64, event string)
	dispatchChunk(session uint64, data []byte)
	dispatchChoke(session uint64)
	dispatchError(session uint64, code int, reason string)
}

// dispatcher normalises decoded wire Messages into dispatchTarget
// calls. The v0 and v1 branches exist purely because v1 multiplexes
// control traffic onto a reserved session id and enforces a
// session-ordering invariant the v0 wire never had; once past that,
// both land on the same target calls.
type dispatcher struct {
	version protocolVersion
	target  dispatchTarget

	// maxSessionSeen enforces the v1 invariant: the first message for
	// any session id above the watermark must be INVOKE.
	maxSessionSeen uint64
}

func newDispatcher(version protocolVersion, target dispatchTarget) *dispatcher {
	return &dispatcher{version: version, target: target}
}

func (d *dispatcher) Dispatch(msg *Message) {
	if d.version == ProtocolV1 {
		d.dispatchV1(msg)
		return
	}
	d.dispatchV0(msg)
}

func (d *dispatcher) dispatchV0(msg *Message) {
	switch msg.Kind {
	case kindHeartbeat:
		d.target.dispatchHeartbeat()
	case kindTerminate:
		d.target.dispatchTerminate(msg.Errno, msg.Reason)
	case kindInvoke:
		d.target.dispatchInvoke(msg.Session, msg.Event)
	case kindChunk:
		d.target.dispatchChunk(msg.Session, msg.Data)
	case kindChoke:
		d.target.dispatchChoke(msg.Session)
	case kindError:
		// Accepted defensively even though no known v0 peer sends it
		// unsolicited.
		d.target.dispatchError(msg.Session, msg.Errno, msg.Reason)
	default:
		log.Printf("worker: v0: unexpected message kind %s ignored", msg.Kind)
	}
}

func (d *dispatcher) dispatchV1(msg *Message) {
	if msg.Session == controlSession {
		switch msg.Kind {
		case kindHeartbeat:
			d.target.dispatchHeartbeat()
		case kindTerminate:
			d.target.dispatchTerminate(msg.Errno, msg.Reason)
		default:
			log.Printf("worker: v1: unexpected control message kind %s ignored", msg.Kind)
		}
		return
	}

	if msg.Session > d.maxSessionSeen {
		if msg.Kind != kindInvoke {
			log.Printf("worker: v1: protocol violation: session %d opened with %s, not INVOKE", msg.Session, msg.Kind)
			return
		}
		d.maxSessionSeen = msg.Session
		d.target.dispatchInvoke(msg.Session, msg.Event)
		return
	}

	switch msg.Kind {
	case kindChunk:
		d.target.dispatchChunk(msg.Session, msg.Data)
	case kindChoke:
		d.target.dispatchChoke(msg.Session)
	case kindError:
		d.target.dispatchError(msg.Session, msg.Errno, msg.Reason)
	default:
		log.Printf("worker: v1: unexpected message kind %s for open session %d ignored", msg.Kind, msg.Session)
	}
}
