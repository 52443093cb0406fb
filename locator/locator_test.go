package locator

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ugorji/go/codec"
)

// TestResolveRoundTrip drives a fake locator daemon over net.Pipe:
// it reads the resolve request, writes back a CHUNK carrying a
// ResolveResult then a CHOKE, and expects Resolve to decode exactly
// that result.
func TestResolveRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	l := &Locator{conn: client}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer server.Close()

		buf := make([]byte, 4096)
		n, err := server.Read(buf)
		require.NoError(t, err)

		var req []interface{}
		require.NoError(t, codec.NewDecoderBytes(buf[:n], handle).Decode(&req))
		require.Equal(t, "echo", req[2].([]interface{})[0])

		var chunkPayload []byte
		enc := codec.NewEncoderBytes(&chunkPayload, handle)
		require.NoError(t, enc.Encode(ResolveResult{
			Endpoint: Endpoint{Host: "127.0.0.1", Port: 9000},
			Version:  1,
			API:      map[int]string{0: "invoke"},
		}))

		_, err = server.Write(packValue([]interface{}{0, resolveChunk, []interface{}{chunkPayload}}))
		require.NoError(t, err)
		_, err = server.Write(packValue([]interface{}{0, resolveChoke, []interface{}{}}))
		require.NoError(t, err)
	}()

	result, err := l.Resolve("echo", time.Second)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", result.Endpoint.Host)
	require.Equal(t, 9000, result.Endpoint.Port)
	require.Equal(t, 1, result.Version)

	<-done
}
