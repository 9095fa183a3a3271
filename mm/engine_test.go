package mm

import (
	"io"
	"net"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grassroot72/smamp/broker/protocol"
	"github.com/grassroot72/smamp/docstore"
)

func testLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

// startFakeDocstore runs a stand-in for the document-store broker: it
// replies with whatever scripted response corresponds to the operation
// frame it receives, letting tests exercise mm.Engine's request
// assembly and reply translation without a real RocksDB-backed worker.
func startFakeDocstore(t *testing.T, reply func(op string, frames protocol.Frames) protocol.Frames) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				env, err := protocol.ReadEnvelope(conn)
				if err != nil {
					return
				}
				require.Equal(t, docstore.ServiceName, env.Service)
				op := string(env.Frames[2])
				protocol.WriteEnvelope(conn, protocol.Envelope{
					Command: protocol.CmdReply,
					Frames:  reply(op, env.Frames),
				})
			}(conn)
		}
	}()

	return "tcp://" + ln.Addr().String()
}

func TestEngineSaveSuccess(t *testing.T) {
	endpoint := startFakeDocstore(t, func(op string, frames protocol.Frames) protocol.Frames {
		return protocol.Frames{[]byte(protocol.StatusOK)}
	})
	e := NewEngine("mydb", endpoint, testLogger())

	reply := e.handle(protocol.Frames{[]byte(OpSave), []byte(`{"k_material":"cpu"}`)})
	require.Len(t, reply, 1)
	assert.Equal(t, "One document created.", string(reply[0]))
}

func TestEngineSaveFailure(t *testing.T) {
	endpoint := startFakeDocstore(t, func(op string, frames protocol.Frames) protocol.Frames {
		return protocol.Frames{[]byte(protocol.StatusUnknown)}
	})
	e := NewEngine("mydb", endpoint, testLogger())

	reply := e.handle(protocol.Frames{[]byte(OpSave), []byte(`{"k_material":"cpu"}`)})
	require.Len(t, reply, 1)
	assert.Equal(t, "creating document failed.", string(reply[0]))
}

func TestEngineSelectReturnsDocuments(t *testing.T) {
	endpoint := startFakeDocstore(t, func(op string, frames protocol.Frames) protocol.Frames {
		return protocol.Frames{[]byte(`{"k_material":"cpu"}`)}
	})
	e := NewEngine("mydb", endpoint, testLogger())

	reply := e.handle(protocol.Frames{[]byte(OpSelect), []byte(`{"k_material":"cpu"}`)})
	require.Len(t, reply, 1)
	assert.JSONEq(t, `{"k_material":"cpu"}`, string(reply[0]))
}

func TestEngineSelectNothingFound(t *testing.T) {
	endpoint := startFakeDocstore(t, func(op string, frames protocol.Frames) protocol.Frames {
		return nil
	})
	e := NewEngine("mydb", endpoint, testLogger())

	reply := e.handle(protocol.Frames{[]byte(OpSelect), []byte(`{"k_material":"cpu"}`)})
	require.Len(t, reply, 1)
	assert.Equal(t, "Nothing selected", string(reply[0]))
}

func TestEngineUpdateAndDelete(t *testing.T) {
	endpoint := startFakeDocstore(t, func(op string, frames protocol.Frames) protocol.Frames {
		return protocol.Frames{[]byte(protocol.StatusOK)}
	})
	e := NewEngine("mydb", endpoint, testLogger())

	reply := e.handle(protocol.Frames{[]byte(OpUpdate), []byte(`{"k_material":"cpu"}`), []byte(`{"k_material":"memory"}`)})
	require.Len(t, reply, 1)
	assert.Equal(t, "One document updated.", string(reply[0]))

	reply = e.handle(protocol.Frames{[]byte(OpDelete), []byte(`{"k_material":"memory"}`)})
	require.Len(t, reply, 1)
	assert.Equal(t, "One document deleted.", string(reply[0]))
}

func TestEngineUnknownOperation(t *testing.T) {
	e := NewEngine("mydb", "tcp://127.0.0.1:1", testLogger())
	reply := e.handle(protocol.Frames{[]byte("BOGUS")})
	require.Len(t, reply, 1)
	assert.Equal(t, "unknown operation", string(reply[0]))
}

func TestEngineDialFailureIsReportedAsOperationFailure(t *testing.T) {
	e := NewEngine("mydb", "tcp://127.0.0.1:1", testLogger())

	done := make(chan protocol.Frames, 1)
	go func() { done <- e.handle(protocol.Frames{[]byte(OpSave), []byte(`{}`)}) }()

	select {
	case reply := <-done:
		require.Len(t, reply, 1)
		assert.Equal(t, "creating document failed.", string(reply[0]))
	case <-time.After(5 * time.Second):
		t.Fatal("handle did not return promptly on dial failure")
	}
}
