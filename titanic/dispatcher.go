package titanic

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/trace"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/broker/protocol"
)

// dispatchTick is how long the dispatcher waits for a new UUID before
// scanning the queue anyway, per spec.md §4.6 ("dispatch once per
// second, if there's no activity").
const dispatchTick = time.Second

// deliveryTimeout bounds a single delivery attempt's broker client
// session, per spec.md §4.6.1 step 3.
const deliveryTimeout = time.Second

// Dispatcher is the background loop that drains the queue by invoking
// target services, per spec.md §4.6. It is the sole owner of both the
// queue file and the SPSC channel fed by RequestEndpoint.
type Dispatcher struct {
	Store          *Store
	Requests       <-chan string
	BrokerEndpoint string
	Log            *log.Logger
}

// Run ticks until ctx is cancelled. On every tick it drains at most one
// newly enqueued UUID (if any arrived) and then performs one full queue
// scan, regardless of whether anything arrived.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case uuid, ok := <-d.Requests:
			if !ok {
				return nil
			}
			if err := d.Store.Enqueue(uuid); err != nil {
				d.Log.WithError(err).WithField("uuid", uuid).Error("dispatcher: failed to enqueue")
			}
		case <-time.After(dispatchTick):
		}

		if err := d.Store.ScanQueue(ctx, d.attemptDelivery); err != nil {
			d.Log.WithError(err).Error("dispatcher: queue scan failed")
		}
	}
}

// attemptDelivery implements spec.md §4.6.1's service_success(uuid).
func (d *Dispatcher) attemptDelivery(uuid string) (bool, error) {
	tr := trace.New("titanic.dispatch", uuid)
	defer tr.Finish()

	frames, err := d.Store.LoadMessage(d.Store.RequestPath(uuid))
	if os.IsNotExist(err) {
		// The client already closed the request; nothing left to deliver.
		tr.LazyPrintf("request already closed")
		return true, nil
	} else if err != nil {
		d.Log.WithError(err).WithField("uuid", uuid).Error("dispatcher: failed to load request")
		tr.SetError()
		return false, nil
	}
	if len(frames) == 0 {
		d.Log.WithField("uuid", uuid).Error("dispatcher: empty request frames")
		tr.SetError()
		return false, nil
	}

	service := string(frames[0])
	payload := frames[1:]
	tr.LazyPrintf("target service %q", service)

	c, err := mdp.NewClient(d.BrokerEndpoint)
	if err != nil {
		d.Log.WithError(err).Error("dispatcher: failed to dial broker")
		tr.SetError()
		return false, nil
	}
	defer c.Close()
	c.SetTimeout(deliveryTimeout)

	if !d.serviceAvailable(c, service) {
		tr.LazyPrintf("service unavailable, will retry")
		return false, nil
	}

	if err := c.Send(service, payload); err != nil {
		tr.SetError()
		return false, nil
	}
	reply, err := c.Recv()
	if err != nil {
		tr.LazyPrintf("no reply within deadline, will retry")
		return false, nil // Timeout or broker error: retry next tick.
	}
	tr.LazyPrintf("delivered")

	if err := d.Store.SaveMessage(d.Store.ReplyPath(uuid), reply); err != nil {
		d.Log.WithError(err).WithField("uuid", uuid).Error("dispatcher: failed to persist reply")
		tr.SetError()
		return false, nil
	}
	return true, nil
}

// serviceAvailable performs the mmi.service management lookup.
func (d *Dispatcher) serviceAvailable(c *mdp.Client, service string) bool {
	if err := c.Send(protocol.ManagementService, protocol.Frames{[]byte(service)}); err != nil {
		return false
	}
	reply, err := c.Recv()
	if err != nil || len(reply) == 0 {
		return false
	}
	return string(reply[0]) == protocol.StatusOK
}
