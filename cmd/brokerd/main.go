// Command brokerd runs the minimal Majordomo broker (see package broker)
// that every other binary in this repository dials against.
package main

import (
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/grassroot72/smamp/broker"
	"github.com/grassroot72/smamp/broker/client"
	"github.com/grassroot72/smamp/internal/mbp"
)

var config struct {
	Broker mbp.BrokerConfig `group:"Broker" namespace:"broker" env-namespace:"BROKER"`
	Log    mbp.LogConfig    `group:"Logging" namespace:"log" env-namespace:"LOG"`
}

func main() {
	parser := flags.NewParser(&config, flags.Default)
	mbp.MustParseArgs(parser)
	config.Log.Apply()

	ln, err := client.Listen(config.Broker.Endpoint)
	mbp.Must(err, "failed to bind broker endpoint")

	svc := broker.NewService(log.StandardLogger())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("signal received, closing listener")
		ln.Close()
	}()

	log.WithField("endpoint", config.Broker.Endpoint).Info("broker listening")
	if err := svc.Serve(ln); err != nil {
		log.WithError(err).Info("broker stopped")
	}
}
