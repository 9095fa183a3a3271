package titanic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grassroot72/smamp/broker/protocol"
)

func TestReplyEndpointReportsStatusByStoreState(t *testing.T) {
	store := newTestStore(t)
	ep := &ReplyEndpoint{Store: store, Log: testLogger()}

	worker, session := newTestWorkerPair(t, ServiceReply)
	done := make(chan error, 1)
	go func() { done <- ep.Run(worker) }()

	// Unknown UUID: neither .req nor .rep exists.
	reply := session.request(t, protocol.Frames{[]byte("UNKNOWNUUID")})
	require.Len(t, reply, 1)
	assert.Equal(t, protocol.StatusUnknown, string(reply[0]))

	// Pending: .req exists, no .rep yet.
	require.NoError(t, store.SaveMessage(store.RequestPath("PENDINGUUID"), protocol.Frames{[]byte("echo")}))
	reply = session.request(t, protocol.Frames{[]byte("PENDINGUUID")})
	require.Len(t, reply, 1)
	assert.Equal(t, protocol.StatusPending, string(reply[0]))

	// Done: .rep exists.
	require.NoError(t, store.SaveMessage(store.ReplyPath("DONEUUID"), protocol.Frames{[]byte("the answer")}))
	reply = session.request(t, protocol.Frames{[]byte("DONEUUID")})
	require.Len(t, reply, 2)
	assert.Equal(t, protocol.StatusOK, string(reply[0]))
	assert.Equal(t, "the answer", string(reply[1]))

	session.sendShutdown(t)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("endpoint did not exit on shutdown")
	}
}
