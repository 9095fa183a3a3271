package titanic

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/broker/protocol"
)

// testSession stands in for the broker side of a Worker's connection: it
// accepts one dial, reads the READY handshake, and exposes raw
// request/reply helpers so endpoint tests can drive a real Worker value
// without a full broker.Service running.
type testSession struct {
	conn net.Conn
}

func newTestWorkerPair(t *testing.T, service string) (*mdp.Worker, *testSession) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		require.NoError(t, err)
		accepted <- conn
	}()

	worker, err := mdp.NewWorker("tcp://"+ln.Addr().String(), service)
	require.NoError(t, err)

	conn := <-accepted
	env, err := protocol.ReadEnvelope(conn)
	require.NoError(t, err)
	require.Equal(t, protocol.CmdReady, env.Command)
	require.Equal(t, service, env.Service)

	t.Cleanup(func() { conn.Close() })
	return worker, &testSession{conn: conn}
}

// request sends frames to the worker under test and returns its reply.
func (s *testSession) request(t *testing.T, frames protocol.Frames) protocol.Frames {
	t.Helper()
	require.NoError(t, protocol.WriteEnvelope(s.conn, protocol.Envelope{
		Command: protocol.CmdRequest,
		Frames:  frames,
	}))
	s.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	env, err := protocol.ReadEnvelope(s.conn)
	require.NoError(t, err)
	require.Equal(t, protocol.CmdReply, env.Command)
	return env.Frames
}

func (s *testSession) sendShutdown(t *testing.T) {
	t.Helper()
	require.NoError(t, protocol.WriteEnvelope(s.conn, protocol.Envelope{
		Command: protocol.CmdRequest,
		Frames:  protocol.Frames{[]byte(protocol.Shutdown)},
	}))
}
