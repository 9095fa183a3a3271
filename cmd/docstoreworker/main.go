// Command docstoreworker runs the illustrative document-store worker
// (package docstore), a RocksDB-backed CRUD engine standing in for
// mongodb_worker.c's MongoDB-backed one.
package main

import (
	flags "github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	mdp "github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/docstore"
	"github.com/grassroot72/smamp/internal/mbp"
)

var config struct {
	Broker mbp.BrokerConfig `group:"Broker" namespace:"broker" env-namespace:"BROKER"`
	Store  struct {
		Dir string `long:"dir" description:"Directory holding the RocksDB instance" default:".docstore"`
	} `group:"Store" namespace:"store" env-namespace:"STORE"`
	Log mbp.LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
}

func main() {
	parser := flags.NewParser(&config, flags.Default)
	mbp.MustParseArgs(parser)
	config.Log.Apply()

	store, err := docstore.Open(config.Store.Dir)
	mbp.Must(err, "opening document store")
	defer store.Close()

	worker, err := mdp.NewWorker(config.Broker.Endpoint, docstore.ServiceName)
	mbp.Must(err, "registering with broker")
	defer worker.Close()

	engine := docstore.NewEngine(store, log.StandardLogger())

	log.WithField("service", docstore.ServiceName).Info("document-store worker ready")
	if err := engine.Run(worker); err != nil {
		log.WithError(err).Info("document-store worker stopped")
	}
}
