package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestStreamDeliversChunksThenEOF(t *testing.T) {
	r := newRequestStream()
	r.push([]byte("a"))
	r.push([]byte("b"))
	r.Close()

	data, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)

	data, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), data)

	_, err = r.Read()
	assert.IsType(t, endOfStream{}, err)
}

func TestRequestStreamDeliversErrorBeforeEOF(t *testing.T) {
	r := newRequestStream()
	r.deliverError(42, "boom")
	r.Close()

	_, err := r.Read()
	rerr, ok := err.(*RequestError)
	require.True(t, ok)
	assert.Equal(t, 42, rerr.Code)
	assert.Equal(t, "boom", rerr.Reason)

	_, err = r.Read()
	assert.IsType(t, endOfStream{}, err)
}
