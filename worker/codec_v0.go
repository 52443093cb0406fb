package worker

// codecV0 implements the legacy wire shape: a frame is a flat msgpack
// array `[kind, session, args...]`. It accepts an inbound ERROR frame
// even though no known v0 daemon sends one unsolicited, to be safe.
type codecV0 struct {
	dec *frameDecoder
}

func newCodecV0() *codecV0 {
	c := &codecV0{}
	c.dec = &frameDecoder{decode1: c.decode1}
	return c
}

func (c *codecV0) Feed(chunk []byte) []*Message {
	return c.dec.Feed(chunk)
}

func (c *codecV0) decode1(buf []byte) (int, *Message, bool) {
	raw, n, ok := decodeMsgpackValue(buf)
	if !ok {
		return 0, nil, false
	}
	if len(raw) < 2 {
		return n, nil, true
	}
	kind, ok := asInt(raw[0])
	if !ok {
		return n, nil, true
	}
	session, ok := asUint64(raw[1])
	if !ok {
		return n, nil, true
	}
	args := raw[2:]

	switch kind {
	case wireHandshake:
		if len(args) < 1 {
			return n, nil, true
		}
		uuid, ok := asString(args[0])
		if !ok {
			return n, nil, true
		}
		return n, newHandshakeMessage(uuid), true

	case wireHeartbeat:
		return n, &Message{Kind: kindHeartbeat, Session: session}, true

	case wireTerminate:
		if len(args) < 2 {
			return n, nil, true
		}
		errno, ok1 := asInt(args[0])
		reason, ok2 := asString(args[1])
		if !ok1 || !ok2 {
			return n, nil, true
		}
		return n, &Message{Kind: kindTerminate, Session: session, Errno: errno, Reason: reason}, true

	case wireInvoke:
		if len(args) < 1 {
			return n, nil, true
		}
		event, ok := asString(args[0])
		if !ok {
			return n, nil, true
		}
		return n, newInvokeMessage(session, event), true

	case wireChunk:
		if len(args) < 1 {
			return n, nil, true
		}
		data, ok := asBytes(args[0])
		if !ok {
			return n, nil, true
		}
		return n, newChunkMessage(session, data), true

	case wireChoke:
		return n, newChokeMessage(session), true

	case wireError:
		if len(args) < 2 {
			return n, nil, true
		}
		errno, ok1 := asInt(args[0])
		reason, ok2 := asString(args[1])
		if !ok1 || !ok2 {
			return n, nil, true
		}
		return n, newErrorMessage(session, errno, reason), true

	default:
		return n, nil, true
	}
}

func (c *codecV0) Pack(msg *Message) []byte {
	switch msg.Kind {
	case kindHandshake:
		return packMsgpackValue([]interface{}{wireHandshake, controlSession, msg.UUID})
	case kindHeartbeat:
		return packMsgpackValue([]interface{}{wireHeartbeat, controlSession})
	case kindTerminate:
		return packMsgpackValue([]interface{}{wireTerminate, controlSession, msg.Errno, msg.Reason})
	case kindInvoke:
		return packMsgpackValue([]interface{}{wireInvoke, msg.Session, msg.Event})
	case kindChunk:
		return packMsgpackValue([]interface{}{wireChunk, msg.Session, msg.Data})
	case kindChoke:
		return packMsgpackValue([]interface{}{wireChoke, msg.Session})
	case kindError:
		return packMsgpackValue([]interface{}{wireError, msg.Session, msg.Errno, msg.Reason})
	default:
		return nil
	}
}
