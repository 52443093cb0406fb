package worker

// codecV1 implements the newer wire shape: a frame is a 3-element
// msgpack array `[session, type_id, payload]` where payload is itself
// an array of kind-specific fields.
//
// codecV1 only turns wire bytes into Message values; the v1-specific
// session-ordering rule is stateful across the whole connection and
// lives in the dispatcher, not here.
type codecV1 struct {
	dec *frameDecoder
}

func newCodecV1() *codecV1 {
	c := &codecV1{}
	c.dec = &frameDecoder{decode1: c.decode1}
	return c
}

func (c *codecV1) Feed(chunk []byte) []*Message {
	return c.dec.Feed(chunk)
}

func (c *codecV1) decode1(buf []byte) (int, *Message, bool) {
	raw, n, ok := decodeMsgpackValue(buf)
	if !ok {
		return 0, nil, false
	}
	if len(raw) != 3 {
		return n, nil, true
	}
	session, ok := asUint64(raw[0])
	if !ok {
		return n, nil, true
	}
	typeID, ok := asInt(raw[1])
	if !ok {
		return n, nil, true
	}
	payload, ok := raw[2].([]interface{})
	if !ok {
		return n, nil, true
	}

	switch typeID {
	case wireHandshake:
		if len(payload) < 1 {
			return n, nil, true
		}
		uuid, ok := asString(payload[0])
		if !ok {
			return n, nil, true
		}
		return n, newHandshakeMessage(uuid), true

	case wireHeartbeat:
		return n, &Message{Kind: kindHeartbeat, Session: session}, true

	case wireTerminate:
		if len(payload) < 2 {
			return n, nil, true
		}
		errno, ok1 := asInt(payload[0])
		reason, ok2 := asString(payload[1])
		if !ok1 || !ok2 {
			return n, nil, true
		}
		return n, &Message{Kind: kindTerminate, Session: session, Errno: errno, Reason: reason}, true

	case wireInvoke:
		if len(payload) < 1 {
			return n, nil, true
		}
		event, ok := asString(payload[0])
		if !ok {
			return n, nil, true
		}
		return n, newInvokeMessage(session, event), true

	case wireChunk:
		if len(payload) < 1 {
			return n, nil, true
		}
		data, ok := asBytes(payload[0])
		if !ok {
			return n, nil, true
		}
		return n, newChunkMessage(session, data), true

	case wireChoke:
		return n, newChokeMessage(session), true

	case wireError:
		if len(payload) < 2 {
			return n, nil, true
		}
		errno, ok1 := asInt(payload[0])
		reason, ok2 := asString(payload[1])
		if !ok1 || !ok2 {
			return n, nil, true
		}
		return n, newErrorMessage(session, errno, reason), true

	default:
		return n, nil, true
	}
}

func (c *codecV1) Pack(msg *Message) []byte {
	switch msg.Kind {
	case kindHandshake:
		return c.frame(controlSession, wireHandshake, []interface{}{msg.UUID})
	case kindHeartbeat:
		return c.frame(controlSession, wireHeartbeat, []interface{}{})
	case kindTerminate:
		return c.frame(controlSession, wireTerminate, []interface{}{msg.Errno, msg.Reason})
	case kindInvoke:
		return c.frame(msg.Session, wireInvoke, []interface{}{msg.Event})
	case kindChunk:
		return c.frame(msg.Session, wireChunk, []interface{}{msg.Data})
	case kindChoke:
		return c.frame(msg.Session, wireChoke, []interface{}{})
	case kindError:
		return c.frame(msg.Session, wireError, []interface{}{msg.Errno, msg.Reason})
	default:
		return nil
	}
}

func (c *codecV1) frame(session uint64, typeID int, payload []interface{}) []byte {
	return packMsgpackValue([]interface{}{session, typeID, payload})
}
