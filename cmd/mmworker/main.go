// Command mmworker runs the illustrative Material Management worker
// (package mm), a Majordomo worker that forwards Purchase Order CRUD
// operations to the document-store worker chain. See mm_worker.c.
package main

import (
	flags "github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/internal/mbp"
	"github.com/grassroot72/smamp/mm"
)

var config struct {
	Broker   mbp.BrokerConfig `group:"Broker" namespace:"broker" env-namespace:"BROKER"`
	Docstore struct {
		Endpoint string `long:"endpoint" description:"Document-store broker endpoint" default:"tcp://localhost:8888"`
	} `group:"Docstore" namespace:"docstore" env-namespace:"DOCSTORE"`
	DB  string        `long:"db" description:"Document-store database name" default:"mydb"`
	Log mbp.LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
}

func main() {
	parser := flags.NewParser(&config, flags.Default)
	mbp.MustParseArgs(parser)
	config.Log.Apply()

	worker, err := mdp.NewWorker(config.Broker.Endpoint, mm.ServiceName)
	mbp.Must(err, "registering with broker")
	defer worker.Close()

	engine := mm.NewEngine(config.DB, config.Docstore.Endpoint, log.StandardLogger())

	log.WithField("service", mm.ServiceName).Info("mm worker ready")
	if err := engine.Run(worker); err != nil {
		log.WithError(err).Info("mm worker stopped")
	}
}
