// Package broker implements a minimal Majordomo Protocol (MDP) broker: a
// service registry, a single built-in management service (mmi.service),
// and request/reply relay between client and worker connections.
//
// This is the external collaborator spec.md §6.1 assumes already exists;
// it is implemented here, rather than merely interfaced, so the rest of
// the repository — Titanic, the MM worker, the document-store worker —
// is runnable end to end and the scenarios in spec.md §8 are exercisable.
// It intentionally omits everything a production MDP broker would add
// beyond that: worker heartbeats, broker-side request queuing when no
// worker is ready, and reconnect/backoff. See DESIGN.md.
package broker

import (
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/trace"

	"github.com/grassroot72/smamp/broker/protocol"
)

// workerReplyTimeout bounds how long the broker waits for a worker to
// answer a relayed request before giving up on it and dropping the
// connection. It is independent of (and longer than) the 1-second
// timeout a Titanic dispatch client applies to its own Recv; it exists
// only so a wedged worker can't leak a broker goroutine forever.
const workerReplyTimeout = 30 * time.Second

// Service is a running broker instance: a service registry plus the
// accept loop that drives it.
type Service struct {
	Log *log.Logger

	mu    sync.RWMutex
	ready map[string][]net.Conn
}

// NewService returns a Service ready to Serve connections.
func NewService(logger *log.Logger) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{
		Log:   logger,
		ready: make(map[string][]net.Conn),
	}
}

// Serve accepts connections from ln until it errors (typically because ln
// was closed by a caller reacting to context cancellation elsewhere).
func (s *Service) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// handleConn owns conn's reads for as long as conn is not a registered
// worker connection. A worker connection is read exactly once here (its
// READY handshake); afterwards it lives in the ready registry and is
// read/written exclusively by dispatch(), never by this goroutine, so
// there is never a concurrent reader on the same net.Conn.
func (s *Service) handleConn(conn net.Conn) {
	env, err := protocol.ReadEnvelope(conn)
	if err != nil {
		conn.Close()
		return
	}

	if env.Command == protocol.CmdReady {
		s.register(env.Service, conn)
		return
	}

	// Otherwise this is a client connection: loop handling one request at
	// a time for as long as the client keeps it open, matching the
	// persistent client session spec.md §6.1 describes.
	defer conn.Close()
	for {
		reply, err := s.dispatch(env)
		if err != nil {
			s.Log.WithError(err).WithField("service", env.Service).Debug("request not serviced")
			return
		}
		if err := protocol.WriteEnvelope(conn, protocol.Envelope{
			Command: protocol.CmdReply,
			Frames:  reply,
		}); err != nil {
			return
		}
		if env, err = protocol.ReadEnvelope(conn); err != nil {
			return // Client disconnected; nothing left to serve.
		}
	}
}

// dispatch handles one client envelope: either the built-in management
// lookup, or a relay to a ready worker of the named service.
func (s *Service) dispatch(env protocol.Envelope) (protocol.Frames, error) {
	tr := trace.New("broker.dispatch", env.Service)
	defer tr.Finish()

	if env.Service == protocol.ManagementService {
		var name string
		if len(env.Frames) > 0 {
			name = string(env.Frames[0])
		}
		tr.LazyPrintf("mmi.service lookup for %q", name)
		if s.available(name) {
			return protocol.Frames{[]byte(protocol.StatusOK)}, nil
		}
		return protocol.Frames{[]byte(protocol.StatusUnknown)}, nil
	}

	conn, ok := s.borrow(env.Service)
	if !ok {
		tr.LazyPrintf("no ready worker")
		tr.SetError()
		return nil, errors.Errorf("no ready worker for service %q", env.Service)
	}

	if err := conn.SetDeadline(time.Now().Add(workerReplyTimeout)); err != nil {
		conn.Close()
		tr.SetError()
		return nil, errors.Wrap(err, "setting worker deadline")
	}
	if err := protocol.WriteEnvelope(conn, protocol.Envelope{
		Command: protocol.CmdRequest,
		Service: env.Service,
		Frames:  env.Frames,
	}); err != nil {
		conn.Close()
		tr.SetError()
		return nil, errors.Wrap(err, "forwarding request to worker")
	}
	tr.LazyPrintf("forwarded to worker")
	reply, err := protocol.ReadEnvelope(conn)
	if err != nil {
		conn.Close()
		tr.SetError()
		return nil, errors.Wrap(err, "reading worker reply")
	}
	tr.LazyPrintf("worker replied")
	_ = conn.SetDeadline(time.Time{})
	s.release(env.Service, conn)
	return reply.Frames, nil
}

func (s *Service) register(service string, conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready[service] = append(s.ready[service], conn)
	s.Log.WithField("service", service).Info("worker registered")
}

func (s *Service) borrow(service string) (net.Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.ready[service]
	if len(list) == 0 {
		return nil, false
	}
	conn := list[len(list)-1]
	s.ready[service] = list[:len(list)-1]
	return conn, true
}

func (s *Service) release(service string, conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready[service] = append(s.ready[service], conn)
}

func (s *Service) available(service string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ready[service]) > 0
}
