package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseStreamWriteThenClose(t *testing.T) {
	out := make(chan *Message, 4)
	done := make(chan struct{})
	r := newResponseStream(7, out, done)

	r.Write([]byte("hi"))
	r.Close()

	msg := <-out
	assert.Equal(t, kindChunk, msg.Kind)
	assert.Equal(t, []byte("hi"), msg.Data)

	msg = <-out
	assert.Equal(t, kindChoke, msg.Kind)
	assert.True(t, r.Closed())
}

func TestResponseStreamOnlyOneTerminalFrame(t *testing.T) {
	out := make(chan *Message, 4)
	done := make(chan struct{})
	r := newResponseStream(1, out, done)

	r.Close()
	r.Close()
	r.ErrorMsg(1, "too late")

	require.Len(t, out, 1)
	msg := <-out
	assert.Equal(t, kindChoke, msg.Kind)
}

func TestResponseStreamDropsOnClosedDone(t *testing.T) {
	out := make(chan *Message) // unbuffered, nobody reading
	done := make(chan struct{})
	close(done)

	r := newResponseStream(1, out, done)

	finished := make(chan struct{})
	go func() {
		r.Write([]byte("x"))
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Write blocked forever instead of bailing out via done")
	}
}
