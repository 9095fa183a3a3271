package titanic

import (
	"io"

	log "github.com/sirupsen/logrus"
)

func testLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}
