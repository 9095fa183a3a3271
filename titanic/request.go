package titanic

import (
	log "github.com/sirupsen/logrus"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/broker/protocol"
)

// RequestEndpoint is the titanic.request service: it persists each
// incoming request verbatim (including the target-service frame) under a
// freshly generated UUID, hands the UUID to the dispatcher, and replies
// to the client with that UUID. See spec.md §4.3.
type RequestEndpoint struct {
	Store   *Store
	Enqueue chan<- string // UUIDs handed to the dispatcher.
	Log     *log.Logger
}

// Run processes messages from worker until it receives the shutdown
// sentinel or Recv returns an error (broker session gone).
func (e *RequestEndpoint) Run(worker *mdp.Worker) error {
	for {
		frames, replyTo, err := worker.Recv()
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			continue // Malformed; nothing sensible to do but wait for the next one.
		}
		if string(frames[0]) == protocol.Shutdown {
			return nil
		}

		uuid, err := e.handle(frames)
		if err != nil {
			e.Log.WithError(err).Error("titanic.request: failed to persist request")
			if sendErr := worker.Send(replyTo, protocol.Frames{[]byte(protocol.StatusUnknown)}); sendErr != nil {
				return sendErr
			}
			continue
		}

		if err := worker.Send(replyTo, protocol.Frames{
			[]byte(protocol.StatusOK),
			[]byte(uuid),
		}); err != nil {
			return err
		}
	}
}

func (e *RequestEndpoint) handle(frames protocol.Frames) (string, error) {
	uuid, err := NewUUID()
	if err != nil {
		return "", err
	}
	if err := e.Store.EnsureDir(); err != nil {
		return "", err
	}
	if err := e.Store.SaveMessage(e.Store.RequestPath(uuid), frames); err != nil {
		return "", err
	}
	// Publish after the save has durably landed, never before: a UUID
	// reaching the dispatcher implies its .req file already exists.
	e.Enqueue <- uuid
	return uuid, nil
}
