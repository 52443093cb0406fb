package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecV0RoundTrip(t *testing.T) {
	c := newCodecV0()
	original := newInvokeMessage(7, "echo")

	data := c.Pack(original)
	msgs := c.Feed(data)

	require.Len(t, msgs, 1)
	assert.Equal(t, kindInvoke, msgs[0].Kind)
	assert.EqualValues(t, 7, msgs[0].Session)
	assert.Equal(t, "echo", msgs[0].Event)
}

func TestCodecV1RoundTrip(t *testing.T) {
	c := newCodecV1()
	original := newChunkMessage(12, []byte("payload"))

	data := c.Pack(original)
	msgs := c.Feed(data)

	require.Len(t, msgs, 1)
	assert.Equal(t, kindChunk, msgs[0].Kind)
	assert.EqualValues(t, 12, msgs[0].Session)
	assert.Equal(t, []byte("payload"), msgs[0].Data)
}

func TestCodecFeedHandlesPartialFrames(t *testing.T) {
	c := newCodecV0()
	data := c.Pack(newHeartbeatMessage())

	split := len(data) / 2
	msgs := c.Feed(data[:split])
	assert.Empty(t, msgs, "a partial frame must not yield a message yet")

	msgs = c.Feed(data[split:])
	require.Len(t, msgs, 1)
	assert.Equal(t, kindHeartbeat, msgs[0].Kind)
}

func TestCodecFeedHandlesMultipleFramesInOneChunk(t *testing.T) {
	c := newCodecV1()
	a := c.Pack(newInvokeMessage(2, "one"))
	b := c.Pack(newInvokeMessage(3, "two"))

	msgs := c.Feed(append(a, b...))
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Event)
	assert.Equal(t, "two", msgs[1].Event)
}

func TestCodecVersionParityWireIDs(t *testing.T) {
	v0 := newCodecV0().Pack(newHeartbeatMessage())
	v1msgs := newCodecV1().Feed(newCodecV1().Pack(newHeartbeatMessage()))
	v0msgs := newCodecV0().Feed(v0)

	require.Len(t, v0msgs, 1)
	require.Len(t, v1msgs, 1)
	assert.Equal(t, v0msgs[0].Kind, v1msgs[0].Kind)
}
