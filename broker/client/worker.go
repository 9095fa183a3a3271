// Package client implements the two session types a Majordomo broker
// exposes to its callers: Worker, used by long-lived service endpoints,
// and Client, used for short request/reply round trips. Both are thin
// wrappers over a single net.Conn and the broker/protocol envelope codec.
package client

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/grassroot72/smamp/broker/protocol"
)

// ReplyTo identifies the connection a Worker must answer on. It exists to
// satisfy the worker.recv() -> (msg, reply_envelope) shape spec.md §6.1
// describes; in this transport it is always the Worker's own connection,
// since each Worker owns exactly one broker session for its lifetime.
type ReplyTo struct{}

// Worker is a long-lived, single-threaded session registered with the
// broker under a service name. Recv blocks until the broker relays a
// request; Send answers it. Recv/Send must alternate — this mirrors the
// single-threaded endpoint loops spec.md §4.3–§4.5 require.
type Worker struct {
	conn    net.Conn
	service string
}

// NewWorker dials endpoint and registers as service with the broker.
func NewWorker(endpoint, service string) (*Worker, error) {
	conn, err := dial(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", endpoint)
	}
	if err := protocol.WriteEnvelope(conn, protocol.Envelope{
		Command: protocol.CmdReady,
		Service: service,
	}); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "sending READY")
	}
	return &Worker{conn: conn, service: service}, nil
}

// Recv blocks for the broker's next relayed request. A nil error with a
// non-nil ReplyTo means a request is ready to be answered with Send. Recv
// returns an error when the connection is gone (eg. the process is being
// torn down); callers should treat that the same as spec.md's "null
// result" signal and exit their loop.
func (w *Worker) Recv() (protocol.Frames, *ReplyTo, error) {
	env, err := protocol.ReadEnvelope(w.conn)
	if err != nil {
		return nil, nil, err
	}
	return env.Frames, new(ReplyTo), nil
}

// Send answers the request most recently returned by Recv.
func (w *Worker) Send(_ *ReplyTo, frames protocol.Frames) error {
	return protocol.WriteEnvelope(w.conn, protocol.Envelope{
		Command: protocol.CmdReply,
		Frames:  frames,
	})
}

// Close tears down the worker's broker session.
func (w *Worker) Close() error {
	return w.conn.Close()
}

// SetReadDeadline forwards to the underlying connection. Endpoints that
// need to be unblocked by a cancelled context (rather than only by a
// shutdown message) can poll with a short deadline and retry on timeout.
func (w *Worker) SetReadDeadline(t time.Time) error {
	return w.conn.SetReadDeadline(t)
}
