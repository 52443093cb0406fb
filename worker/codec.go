package worker

import (
	"log"

	"github.com/ugorji/go/codec"
)

// msgpackHandle is shared by both wire profiles.
var msgpackHandle = newMsgpackHandle()

func newMsgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.RawToString = true
	return h
}

// protocolVersion selects which wire profile a connection speaks. The
// daemon does not negotiate this in-band; it is supplied out of band
// (flag/environment), per spec.
type protocolVersion int

const (
	// ProtocolV0 is the legacy [kind, session, args...] wire shape.
	ProtocolV0 protocolVersion = 0
	// ProtocolV1 is the [session, type_id, payload] wire shape.
	ProtocolV1 protocolVersion = 1
)

// wireCodec turns bytes arriving on the socket into internal Messages
// and internal Messages into bytes ready to write to the socket.
//
// Feed is not safe for concurrent use: it is only ever called from the
// orchestrator's single read loop goroutine.
type wireCodec interface {
	Feed(chunk []byte) []*Message
	Pack(msg *Message) []byte
}

func newWireCodec(version protocolVersion) wireCodec {
	if version == ProtocolV1 {
		return newCodecV1()
	}
	return newCodecV0()
}

// frameDecoder implements the incremental "feed bytes, drain complete
// frames, keep the trailing partial frame buffered" shape. decodeOne
// is given whatever bytes are currently buffered; it either reports
// that no complete frame is available yet (ok=false, nothing
// consumed) or that it consumed `n` bytes, possibly producing a
// Message (a malformed-but-complete frame yields n>0 and a nil
// message, which the caller logs and drops).
type frameDecoder struct {
	buf     []byte
	decode1 func([]byte) (n int, msg *Message, ok bool)
}

func (f *frameDecoder) Feed(chunk []byte) []*Message {
	f.buf = append(f.buf, chunk...)

	var out []*Message
	for len(f.buf) > 0 {
		n, msg, ok := f.decode1(f.buf)
		if !ok {
			break
		}
		f.buf = f.buf[n:]
		if msg == nil {
			log.Printf("worker: dropping malformed frame (%d bytes)", n)
			continue
		}
		out = append(out, msg)
	}
	return out
}

// decodeMsgpackValue decodes one complete msgpack value from buf. A
// complete value that is not an array is still consumed, with raw nil,
// so the calling codec drops it as malformed.
func decodeMsgpackValue(buf []byte) (raw []interface{}, consumed int, ok bool) {
	var v interface{}
	dec := codec.NewDecoderBytes(buf, msgpackHandle)
	if err := dec.Decode(&v); err != nil {
		return nil, 0, false
	}
	raw, _ = v.([]interface{})
	return raw, dec.NumBytesRead(), true
}

func packMsgpackValue(v interface{}) []byte {
	var out []byte
	enc := codec.NewEncoderBytes(&out, msgpackHandle)
	// encoding a well-formed Go value never fails.
	_ = enc.Encode(v)
	return out
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		return uint64(n), true
	case int:
		return uint64(n), true
	default:
		return 0, false
	}
}

func asString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

func asBytes(v interface{}) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	default:
		return nil, false
	}
}
