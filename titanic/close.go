package titanic

import (
	log "github.com/sirupsen/logrus"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/broker/protocol"
)

// CloseEndpoint is the titanic.close service: it idempotently deletes a
// request's .req and .rep files. See spec.md §4.5.
type CloseEndpoint struct {
	Store *Store
	Log   *log.Logger
}

// Run processes messages from worker until shutdown or a broker error.
func (e *CloseEndpoint) Run(worker *mdp.Worker) error {
	for {
		frames, replyTo, err := worker.Recv()
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			continue
		}
		if string(frames[0]) == protocol.Shutdown {
			return nil
		}

		uuid := string(frames[0])
		if err := e.Store.Delete(e.Store.RequestPath(uuid)); err != nil {
			e.Log.WithError(err).Error("titanic.close: deleting request")
		}
		if err := e.Store.Delete(e.Store.ReplyPath(uuid)); err != nil {
			e.Log.WithError(err).Error("titanic.close: deleting reply")
		}

		if err := worker.Send(replyTo, protocol.Frames{[]byte(protocol.StatusOK)}); err != nil {
			return err
		}
	}
}
