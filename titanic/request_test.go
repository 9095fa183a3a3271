package titanic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grassroot72/smamp/broker/protocol"
)

func TestRequestEndpointSavesAndEnqueues(t *testing.T) {
	store := newTestStore(t)
	enqueue := make(chan string, 1)
	ep := &RequestEndpoint{Store: store, Enqueue: enqueue, Log: testLogger()}

	worker, session := newTestWorkerPair(t, ServiceRequest)
	done := make(chan error, 1)
	go func() { done <- ep.Run(worker) }()

	reply := session.request(t, protocol.Frames{[]byte("echo"), []byte("hello")})
	require.Len(t, reply, 2)
	assert.Equal(t, "200", string(reply[0]))
	uuid := string(reply[1])
	assert.Len(t, uuid, uuidCharsInRec)

	select {
	case got := <-enqueue:
		assert.Equal(t, uuid, got)
	case <-time.After(time.Second):
		t.Fatal("uuid was never enqueued")
	}

	assert.True(t, store.Exists(store.RequestPath(uuid)))
	frames, err := store.LoadMessage(store.RequestPath(uuid))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("echo"), []byte("hello")}, [][]byte(frames))

	session.sendShutdown(t)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("endpoint did not exit on shutdown")
	}
}
