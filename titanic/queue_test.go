package titanic

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanQueueSkipsMissingFile(t *testing.T) {
	s := newTestStore(t)
	called := false
	err := s.ScanQueue(context.Background(), func(uuid string) (bool, error) {
		called = true
		return true, nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestScanQueueDeliversPendingAndMarksDone(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Enqueue("11111111111111111111111111111111"))
	require.NoError(t, s.Enqueue("22222222222222222222222222222222"))

	var delivered []string
	err := s.ScanQueue(context.Background(), func(uuid string) (bool, error) {
		delivered = append(delivered, uuid)
		return uuid == "11111111111111111111111111111111", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"11111111111111111111111111111111",
		"22222222222222222222222222222222",
	}, delivered)

	// Second scan only redelivers the one that was left pending.
	delivered = nil
	err = s.ScanQueue(context.Background(), func(uuid string) (bool, error) {
		delivered = append(delivered, uuid)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"22222222222222222222222222222222"}, delivered)

	// A third scan finds nothing left pending.
	delivered = nil
	err = s.ScanQueue(context.Background(), func(uuid string) (bool, error) {
		delivered = append(delivered, uuid)
		return true, nil
	})
	require.NoError(t, err)
	assert.Empty(t, delivered)
}

func TestScanQueueAbortsOnCancelledContext(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Enqueue("33333333333333333333333333333333"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.ScanQueue(ctx, func(uuid string) (bool, error) {
		called = true
		return true, nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestEnqueueRecordIsFixedWidth(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Enqueue("44444444444444444444444444444444"))

	data, err := os.ReadFile(s.QueuePath())
	require.NoError(t, err)
	assert.Equal(t, recordLen+1, len(data)) // + '\n'
	assert.Equal(t, byte(statusPending), data[0])
}

// TestScanQueueToleratesCRLFTerminators covers spec.md §3's "tolerating
// an optional preceding \r": a queue file produced elsewhere (or edited
// by hand) may use CRLF record terminators instead of the bare LF
// Store.Enqueue always writes. ScanQueue must still realign correctly
// after each record, including when flipping a record's status byte in
// place, so a later record isn't misread against the wrong offset.
func TestScanQueueToleratesCRLFTerminators(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureDir())

	const (
		first  = "55555555555555555555555555555555"
		second = "66666666666666666666666666666666"
	)
	raw := "-" + first + "\r\n" + "-" + second + "\r\n"
	require.NoError(t, os.WriteFile(s.QueuePath(), []byte(raw), 0o644))

	var delivered []string
	err := s.ScanQueue(context.Background(), func(uuid string) (bool, error) {
		delivered = append(delivered, uuid)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, delivered)

	data, err := os.ReadFile(s.QueuePath())
	require.NoError(t, err)
	require.Equal(t, len(raw), len(data))
	assert.Equal(t, byte(statusDone), data[0])
	assert.Equal(t, first, string(data[1:33]))
	assert.Equal(t, "\r\n", string(data[33:35]))
	assert.Equal(t, byte(statusDone), data[35])
	assert.Equal(t, second, string(data[36:68]))
	assert.Equal(t, "\r\n", string(data[68:70]))

	// A second scan finds both already processed.
	delivered = nil
	err = s.ScanQueue(context.Background(), func(uuid string) (bool, error) {
		delivered = append(delivered, uuid)
		return true, nil
	})
	require.NoError(t, err)
	assert.Empty(t, delivered)
}
