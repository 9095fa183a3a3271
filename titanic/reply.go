package titanic

import (
	log "github.com/sirupsen/logrus"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/broker/protocol"
)

// ReplyEndpoint is the titanic.reply service: given a UUID, it reports
// whether a reply exists yet. See spec.md §4.4.
type ReplyEndpoint struct {
	Store *Store
	Log   *log.Logger
}

// Run processes messages from worker until shutdown or a broker error.
func (e *ReplyEndpoint) Run(worker *mdp.Worker) error {
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

		reply, err := e.handle(string(frames[0]))
		if err != nil {
			e.Log.WithError(err).Error("titanic.reply: store error")
			reply = protocol.Frames{[]byte(protocol.StatusUnknown)}
		}
		if err := worker.Send(replyTo, reply); err != nil {
			return err
		}
	}
}

func (e *ReplyEndpoint) handle(uuid string) (protocol.Frames, error) {
	repPath := e.Store.ReplyPath(uuid)
	if e.Store.Exists(repPath) {
		payload, err := e.Store.LoadMessage(repPath)
		if err != nil {
			return nil, err
		}
		return append(protocol.Frames{[]byte(protocol.StatusOK)}, payload...), nil
	}
	if e.Store.Exists(e.Store.RequestPath(uuid)) {
		return protocol.Frames{[]byte(protocol.StatusPending)}, nil
	}
	return protocol.Frames{[]byte(protocol.StatusUnknown)}, nil
}
