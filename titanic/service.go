package titanic

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/core/task"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/broker/protocol"
)

// Endpoint service names, per spec.md §2 and §6.2.
const (
	ServiceRequest = "titanic.request"
	ServiceReply   = "titanic.reply"
	ServiceClose   = "titanic.close"
)

// shutdownCallTimeout bounds how long the shutdown coordinator waits for
// an endpoint to acknowledge its shutdown message. spec.md §9 (open
// question 5) notes the coordinator may race an endpoint that has
// already exited on the same signal; a short timeout here means that
// race degrades to a harmless no-op instead of a hang.
const shutdownCallTimeout = 2 * time.Second

// Service wires the three Titanic endpoints and the dispatcher together,
// exactly the composition spec.md §2 and §4.7 describe: a request
// endpoint feeding the dispatcher over an in-process channel, a reply and
// a close endpoint reading store state independently, and a shutdown
// coordinator that, on cancellation, tells each endpoint to stop.
//
// Its QueueTasks method follows the same task.Group composition teacher
// code uses in consumer/service.go's Service.QueueTasks: each
// independently schedulable unit is a named task, and shutdown is driven
// by the Group's own context rather than a bespoke signal channel.
type Service struct {
	Store          *Store
	BrokerEndpoint string
	Log            *log.Logger
}

// NewService returns a Service backed by store and talking to the broker
// at brokerEndpoint.
func NewService(store *Store, brokerEndpoint string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{Store: store, BrokerEndpoint: brokerEndpoint, Log: logger}
}

// QueueTasks registers the endpoints, the dispatcher, and the shutdown
// coordinator onto tasks. It returns an error immediately if any
// endpoint fails to register with the broker; once queued, individual
// task failures surface through tasks.Wait().
func (svc *Service) QueueTasks(tasks *task.Group) error {
	if err := svc.Store.EnsureDir(); err != nil {
		return errors.Wrap(err, "initializing store directory")
	}

	requestWorker, err := mdp.NewWorker(svc.BrokerEndpoint, ServiceRequest)
	if err != nil {
		return errors.Wrap(err, "registering titanic.request")
	}
	replyWorker, err := mdp.NewWorker(svc.BrokerEndpoint, ServiceReply)
	if err != nil {
		return errors.Wrap(err, "registering titanic.reply")
	}
	closeWorker, err := mdp.NewWorker(svc.BrokerEndpoint, ServiceClose)
	if err != nil {
		return errors.Wrap(err, "registering titanic.close")
	}

	requests := make(chan string, 64)

	requestEP := &RequestEndpoint{Store: svc.Store, Enqueue: requests, Log: svc.Log}
	replyEP := &ReplyEndpoint{Store: svc.Store, Log: svc.Log}
	closeEP := &CloseEndpoint{Store: svc.Store, Log: svc.Log}
	dispatcher := &Dispatcher{
		Store:          svc.Store,
		Requests:       requests,
		BrokerEndpoint: svc.BrokerEndpoint,
		Log:            svc.Log,
	}

	tasks.Queue("titanic.request", func() error { return requestEP.Run(requestWorker) })
	tasks.Queue("titanic.reply", func() error { return replyEP.Run(replyWorker) })
	tasks.Queue("titanic.close", func() error { return closeEP.Run(closeWorker) })
	tasks.Queue("titanic.dispatcher", func() error { return dispatcher.Run(tasks.Context()) })

	tasks.Queue("titanic.shutdown", func() error {
		<-tasks.Context().Done()

		svc.sendShutdown(ServiceRequest)
		svc.sendShutdown(ServiceReply)
		svc.sendShutdown(ServiceClose)

		requestWorker.Close()
		replyWorker.Close()
		closeWorker.Close()
		close(requests)
		return nil
	})

	return nil
}

// sendShutdown delivers the in-band shutdown sentinel to service. Errors
// (including the timeout from an endpoint that already exited) are
// logged, never fatal — per spec.md §9, both orderings must be tolerated.
func (svc *Service) sendShutdown(service string) {
	c, err := mdp.NewClient(svc.BrokerEndpoint)
	if err != nil {
		svc.Log.WithError(err).WithField("service", service).Debug("shutdown: dial failed")
		return
	}
	defer c.Close()

	c.SetTimeout(shutdownCallTimeout)
	if err := c.Send(service, protocol.Frames{[]byte(protocol.Shutdown)}); err != nil {
		svc.Log.WithError(err).WithField("service", service).Debug("shutdown: send failed")
		return
	}
	if _, err := c.Recv(); err != nil {
		svc.Log.WithError(err).WithField("service", service).Debug("shutdown: no reply (endpoint likely already exited)")
	}
}
