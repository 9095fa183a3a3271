// Command mmclient is a Go port of mm_client.c: it drives the four
// Purchase Order CRUD operations (POSave, POSelect, POUpdate, PODelete)
// against the MM worker directly (no Titanic overlay), printing each
// reply frame the way s_reply_display does.
package main

import (
	"fmt"
	"time"

	flags "github.com/jessevdk/go-flags"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/broker/protocol"
	"github.com/grassroot72/smamp/internal/mbp"
	"github.com/grassroot72/smamp/mm"
)

var config struct {
	Broker mbp.BrokerConfig `group:"Broker" namespace:"broker" env-namespace:"BROKER"`
	Log    mbp.LogConfig    `group:"Logging" namespace:"log" env-namespace:"LOG"`
}

func mmSend(c *mdp.Client, operation string, query, update []byte) (protocol.Frames, error) {
	request := protocol.Frames{[]byte(operation), query}
	if update != nil {
		request = append(request, update)
	}
	if err := c.Send(mm.ServiceName, request); err != nil {
		return nil, err
	}
	return c.Recv()
}

func display(reply protocol.Frames) {
	for _, frame := range reply {
		fmt.Println(string(frame))
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

	// POSave: triggers a CREATE in the document-store worker.
	reply, err := mmSend(c, mm.OpSave, []byte(`{"k_material": "cpu"}`), nil)
	mbp.Must(err, "POSave failed")
	display(reply)

	// POSelect: triggers a RETRIEVE in the document-store worker.
	reply, err = mmSend(c, mm.OpSelect, []byte(`{"k_material": "cpu"}`), nil)
	mbp.Must(err, "POSelect failed")
	display(reply)

	// POUpdate: triggers an UPDATE in the document-store worker.
	reply, err = mmSend(c, mm.OpUpdate, []byte(`{"k_material": "cpu"}`), []byte(`{"k_material": "memory"}`))
	mbp.Must(err, "POUpdate failed")
	display(reply)

	// PODelete: triggers a DELETE in the document-store worker.
	reply, err = mmSend(c, mm.OpDelete, []byte(`{"k_material": "cpu"}`), nil)
	mbp.Must(err, "PODelete failed")
	display(reply)
}
