// Command titanicclient is a Go port of ticlient.c: it submits a
// request to the "echo" service through titanic.request, polls
// titanic.reply until the reply is ready, then calls titanic.close.
package main

import (
	"fmt"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/broker/protocol"
	"github.com/grassroot72/smamp/internal/mbp"
)

var config struct {
	Broker mbp.BrokerConfig `group:"Broker" namespace:"broker" env-namespace:"BROKER"`
	Log    mbp.LogConfig    `group:"Logging" namespace:"log" env-namespace:"LOG"`
}

// serviceCall sends request to service and returns the reply frames
// stripped of their status frame, mirroring s_service_call. A nil
// result means a non-200 status or a transport failure; the caller
// decides how to react instead of this helper exiting the process, the
// one deliberate deviation from ticlient.c's exit(EXIT_FAILURE) calls.
func serviceCall(c *mdp.Client, service string, request protocol.Frames) (protocol.Frames, error) {
	if err := c.Send(service, request); err != nil {
		return nil, err
	}
	reply, err := c.Recv()
	if err != nil {
		return nil, err
	}
	if len(reply) == 0 {
		return nil, nil
	}
	status := string(reply[0])
	switch status {
	case protocol.StatusOK:
		return reply[1:], nil
	case protocol.StatusPending, protocol.StatusUnknown:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected status %q from %s", status, service)
	}
}

func main() {
	parser := flags.NewParser(&config, flags.Default)
	mbp.MustParseArgs(parser)
	config.Log.Apply()

	c, err := mdp.NewClient(config.Broker.Endpoint)
	mbp.Must(err, "dialing broker")
	defer c.Close()
	c.SetTimeout(5 * time.Second)

	// 1. Send an echo request to Titanic.
	reply, err := serviceCall(c, "titanic.request", protocol.Frames{[]byte("echo"), []byte("shutdown")})
	mbp.Must(err, "titanic.request failed")
	if len(reply) == 0 {
		log.Error("titanic.request returned no UUID")
		os.Exit(1)
	}
	uuid := string(reply[0])
	log.WithField("uuid", uuid).Info("request accepted")

	// 2. Wait until we get a reply.
	for {
		time.Sleep(100 * time.Millisecond)

		reply, err := serviceCall(c, "titanic.reply", protocol.Frames{[]byte(uuid)})
		mbp.Must(err, "titanic.reply failed")

		if len(reply) > 0 {
			fmt.Printf("Reply: %s\n", reply[len(reply)-1])

			// 3. Close the request.
			if _, err := serviceCall(c, "titanic.close", protocol.Frames{[]byte(uuid)}); err != nil {
				log.WithError(err).Warn("titanic.close failed")
			}
			return
		}

		log.Info("no reply yet, trying again...")
		time.Sleep(5 * time.Second)
	}
}
