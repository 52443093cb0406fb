package worker

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestWorker pairs a Worker with a daemon side: a minimal stand-in
// for cocaine-runtime, built on the same socketIO exactly the worker
// itself uses, so the event loop
// under test talks real framed Messages over a real net.Conn (a
// net.Pipe) rather than a mock.
func newTestWorker(t *testing.T, version protocolVersion) (*Worker, socketIO) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })

	daemon := newSocketIO(server, version)
	cfg := &Config{
		UUID:             "test-uuid",
		App:              "test-app",
		HeartbeatTimeout: time.Hour,
		DisownTimeout:    time.Hour,
	}
	w := newWorker(newSocketIO(client, version), cfg)
	w.exitFunc = func(int) {}
	return w, daemon
}

func recvFrom(t *testing.T, daemon socketIO) *Message {
	t.Helper()
	select {
	case m := <-daemon.Read():
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message from worker")
		return nil
	}
}

func TestWorkerSendsHandshakeOnRun(t *testing.T) {
	w, daemon := newTestWorker(t, ProtocolV1)

	go w.Run()
	defer w.Stop()

	msg := recvFrom(t, daemon)
	require.Equal(t, kindHandshake, msg.Kind)
	require.Equal(t, "test-uuid", msg.UUID)
}

func TestWorkerInvokeEchoesChunkAndChokes(t *testing.T) {
	w, daemon := newTestWorker(t, ProtocolV1)
	w.OnFunc("echo", func(req Request, resp Response) {
		data, err := req.Read()
		require.NoError(t, err)
		resp.Write(data)
		resp.Close()
	})

	go w.Run()
	defer w.Stop()

	recvFrom(t, daemon) // handshake

	daemon.Write() <- newInvokeMessage(2, "echo")
	daemon.Write() <- newChunkMessage(2, []byte("ping"))

	chunk := recvFrom(t, daemon)
	require.Equal(t, kindChunk, chunk.Kind)
	require.Equal(t, []byte("ping"), chunk.Data)

	choke := recvFrom(t, daemon)
	require.Equal(t, kindChoke, choke.Kind)
}

func TestWorkerTerminateStopsTheLoop(t *testing.T) {
	w, daemon := newTestWorker(t, ProtocolV0)

	runDone := make(chan error, 1)
	go func() { runDone <- w.Run() }()

	recvFrom(t, daemon) // handshake

	daemon.Write() <- newTerminateMessage(0, "shutting down")

	echoed := recvFrom(t, daemon)
	require.Equal(t, kindTerminate, echoed.Kind)

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run never returned after TERMINATE")
	}
}

func TestWorkerHeartbeatSymmetryAcrossProtocols(t *testing.T) {
	for _, version := range []protocolVersion{ProtocolV0, ProtocolV1} {
		w, daemon := newTestWorker(t, version)
		go w.Run()

		recvFrom(t, daemon) // handshake
		w.liveness.DoHeartbeat()

		msg := recvFrom(t, daemon)
		require.Equal(t, kindHeartbeat, msg.Kind)

		daemon.Write() <- newHeartbeatMessage()
		w.Stop()
	}
}
