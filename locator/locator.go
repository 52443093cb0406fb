// Package locator resolves a service name to the endpoint that hosts
// it, talking 3-element msgpack frames `[id, type, [args...]]` (the
// nested-payload shape of the worker package's ProtocolV1 codec, not
// ProtocolV0's flat one) with the locator's own type numbering. It is
// a thin, optional client: a worker that
// wants to call other services needs this to find them, but nothing
// in the core session-multiplexer protocol requires it.
package locator

import (
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

// DefaultPort is the locator daemon's well-known listening port.
const DefaultPort = 10053

const (
	resolveChunk = 0
	resolveChoke = 1
	resolveError = 2
)

var handle = &codec.MsgpackHandle{RawToString: true}

// Endpoint is a resolved service's host/port pair.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string { return fmt.Sprintf("%s:%d", e.Host, e.Port) }

// ResolveResult is what a successful Resolve call returns: where the
// service lives, its protocol version, and its method table.
type ResolveResult struct {
	Endpoint Endpoint
	Version  int
	API      map[int]string
}

// Locator is a connection to the node daemon's locator service.
type Locator struct {
	conn net.Conn
}

// Dial opens a Locator connection. endpoint defaults to
// "localhost:10053" when empty.
func Dial(endpoint string, timeout time.Duration) (*Locator, error) {
	if endpoint == "" {
		endpoint = fmt.Sprintf("localhost:%d", DefaultPort)
	}
	conn, err := net.DialTimeout("tcp", endpoint, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "locator: connect to %s", endpoint)
	}
	return &Locator{conn: conn}, nil
}

// Resolve looks up name and blocks until the daemon answers or the
// supplied timeout elapses.
func (l *Locator) Resolve(name string, timeout time.Duration) (*ResolveResult, error) {
	if err := l.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, errors.Wrap(err, "locator: set deadline")
	}

	req := packValue([]interface{}{0, 0, []interface{}{name}})
	if _, err := l.conn.Write(req); err != nil {
		return nil, errors.Wrap(err, "locator: write resolve request")
	}

	buf := make([]byte, 64*1024)
	var pending []byte
	var last *ResolveResult
	for {
		n, err := l.conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
		}
		if err != nil {
			return nil, errors.Wrap(err, "locator: read resolve response")
		}

		for {
			raw, consumed, ok := decodeValue(pending)
			if !ok {
				break
			}
			pending = pending[consumed:]

			result, terminal, rerr := decodeFrame(raw)
			if rerr != nil {
				return nil, rerr
			}
			if result != nil {
				last = result
			}
			if terminal {
				if last == nil {
					return nil, errors.New("locator: resolve closed with no result")
				}
				return last, nil
			}
		}
	}
}

// Close closes the underlying connection.
func (l *Locator) Close() error {
	return l.conn.Close()
}

func decodeFrame(raw []interface{}) (result *ResolveResult, terminal bool, err error) {
	if len(raw) != 3 {
		return nil, false, errors.New("locator: malformed frame")
	}
	typeID, ok := raw[1].(int64)
	if !ok {
		if n, ok2 := raw[1].(uint64); ok2 {
			typeID = int64(n)
		} else {
			return nil, false, errors.New("locator: malformed frame type")
		}
	}
	payload, ok := raw[2].([]interface{})
	if !ok {
		return nil, false, errors.New("locator: malformed payload")
	}

	switch int(typeID) {
	case resolveChunk:
		if len(payload) == 0 {
			return nil, false, errors.New("locator: malformed payload")
		}
		var chunk []byte
		switch p := payload[0].(type) {
		case []byte:
			chunk = p
		case string:
			// handle's RawToString turns raw msgpack bytes into a string.
			chunk = []byte(p)
		default:
			return nil, false, errors.New("locator: chunk payload not bytes")
		}
		var r ResolveResult
		if err := codec.NewDecoderBytes(chunk, handle).Decode(&r); err != nil {
			return nil, false, errors.Wrap(err, "locator: decode resolve result")
		}
		return &r, false, nil
	case resolveChoke:
		return nil, true, nil
	case resolveError:
		return nil, false, errors.New("locator: resolve failed")
	default:
		return nil, false, nil
	}
}

func decodeValue(buf []byte) (raw []interface{}, consumed int, ok bool) {
	dec := codec.NewDecoderBytes(buf, handle)
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, false
	}
	return raw, dec.NumBytesRead(), true
}

func packValue(v interface{}) []byte {
	var out []byte
	enc := codec.NewEncoderBytes(&out, handle)
	_ = enc.Encode(v)
	return out
}
