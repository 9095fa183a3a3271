// Command titanicd runs the Titanic reliable-request service described
// by spec.md: the three broker endpoints (titanic.request, titanic.reply,
// titanic.close) and the background dispatcher, composed via a
// task.Group the same way cmd/sql-driver wires its server and signal
// watch in the estuary-flow example.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/core/task"

	"github.com/grassroot72/smamp/internal/mbp"
	"github.com/grassroot72/smamp/titanic"
)

var config struct {
	Broker mbp.BrokerConfig `group:"Broker" namespace:"broker" env-namespace:"BROKER"`
	Log    mbp.LogConfig    `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Store  struct {
		Dir string `long:"dir" description:"Directory holding Titanic's .req/.rep files and queue" default:".titanic"`
	} `group:"Store" namespace:"store" env-namespace:"STORE"`
}

func main() {
	parser := flags.NewParser(&config, flags.Default)
	mbp.MustParseArgs(parser)
	config.Log.Apply()

	store := titanic.NewStore(config.Store.Dir)
	svc := titanic.NewService(store, config.Broker.Endpoint, log.StandardLogger())

	tasks := task.NewGroup(context.Background())
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGTERM, syscall.SIGINT)

	tasks.Queue("watch signalCh", func() error {
		select {
		case sig := <-signalCh:
			log.WithField("signal", sig).Info("caught signal")
			tasks.Cancel()
			return nil
		case <-tasks.Context().Done():
			return nil
		}
	})

	mbp.Must(svc.QueueTasks(tasks), "failed to queue titanic tasks")
	tasks.GoRun()

	mbp.Must(tasks.Wait(), "titanic task failed")
	log.Info("goodbye")
}
