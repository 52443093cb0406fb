package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainOne(t *testing.T, out chan *Message) *Message {
	t.Helper()
	select {
	case m := <-out:
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outbound message")
		return nil
	}
}

func TestSessionManagerInvokeHappyPath(t *testing.T) {
	out := make(chan *Message, 8)
	done := make(chan struct{})
	m := newSessionManager(out, done)

	var seen []byte
	m.bind("echo", HandlerFunc(func(req Request, resp Response) {
		data, err := req.Read()
		require.NoError(t, err)
		seen = data
		resp.Write(data)
		resp.Close()
	}))

	m.onInvoke(5, "echo")
	m.onChunk(5, []byte("ping"))
	m.onChoke(5)

	msg := drainOne(t, out)
	assert.Equal(t, kindChunk, msg.Kind)
	assert.Equal(t, []byte("ping"), msg.Data)

	msg = drainOne(t, out)
	assert.Equal(t, kindChoke, msg.Kind)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, []byte("ping"), seen)
}

func TestSessionManagerUnknownEventUsesFallback(t *testing.T) {
	out := make(chan *Message, 4)
	done := make(chan struct{})
	m := newSessionManager(out, done)

	m.onInvoke(9, "nosuch")

	msg := drainOne(t, out)
	assert.Equal(t, kindError, msg.Kind)
	assert.Equal(t, ErrorNoEventHandler, msg.Errno)
}

func TestSessionManagerHandlerPanicStillCloses(t *testing.T) {
	out := make(chan *Message, 4)
	done := make(chan struct{})
	m := newSessionManager(out, done)

	m.bind("boom", HandlerFunc(func(req Request, resp Response) {
		panic("kaboom")
	}))

	m.onInvoke(3, "boom")

	msg := drainOne(t, out)
	assert.Equal(t, kindError, msg.Kind)
	assert.Equal(t, ErrorPanicInHandler, msg.Errno)
}

func TestSessionManagerErrorDeliveredBeforeClose(t *testing.T) {
	out := make(chan *Message, 4)
	done := make(chan struct{})
	m := newSessionManager(out, done)

	seenErr := make(chan error, 1)
	m.bind("task", HandlerFunc(func(req Request, resp Response) {
		_, err := req.Read()
		seenErr <- err
		resp.Close()
	}))

	m.onInvoke(4, "task")
	m.onError(4, 17, "failed upstream")

	err := <-seenErr
	rerr, ok := err.(*RequestError)
	require.True(t, ok)
	assert.Equal(t, 17, rerr.Code)

	msg := drainOne(t, out)
	assert.Equal(t, kindChoke, msg.Kind)
}
