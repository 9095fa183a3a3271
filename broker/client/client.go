package client

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/grassroot72/smamp/broker/protocol"
)

// Client is a broker session for issuing request/reply calls against
// named services. A Client may be reused for many sequential calls, as
// ticlient.c's mdp_client_t is: dial once, Send/Recv repeatedly.
type Client struct {
	conn    net.Conn
	timeout time.Duration
}

// NewClient dials endpoint and returns a Client with no receive timeout
// set (Recv blocks indefinitely until SetTimeout is called).
func NewClient(endpoint string) (*Client, error) {
	conn, err := dial(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", endpoint)
	}
	return &Client{conn: conn}, nil
}

// SetTimeout bounds the duration of every subsequent Recv call.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Send issues a request to service.
func (c *Client) Send(service string, frames protocol.Frames) error {
	return protocol.WriteEnvelope(c.conn, protocol.Envelope{
		Command: protocol.CmdRequest,
		Service: service,
		Frames:  frames,
	})
}

// Recv waits for the reply to the most recent Send, honoring the
// duration set by SetTimeout. A zero timeout means wait indefinitely.
func (c *Client) Recv() (protocol.Frames, error) {
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, errors.Wrap(err, "setting read deadline")
		}
		defer c.conn.SetReadDeadline(time.Time{})
	}
	env, err := protocol.ReadEnvelope(c.conn)
	if err != nil {
		return nil, err
	}
	return env.Frames, nil
}

// Close ends the broker session.
func (c *Client) Close() error {
	return c.conn.Close()
}
