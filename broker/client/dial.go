package client

import (
	"net"
	"strings"

	"github.com/pkg/errors"
)

// dial connects to a broker endpoint expressed in the zmq-style
// "tcp://host:port" form spec.md §6.4 uses, the same literal address
// convention the original titanic.c hardcodes.
func dial(endpoint string) (net.Conn, error) {
	addr := strings.TrimPrefix(endpoint, "tcp://")
	if addr == endpoint {
		return nil, errors.Errorf("unsupported broker endpoint scheme: %q", endpoint)
	}
	return net.Dial("tcp", addr)
}

// Listen opens a net.Listener for a broker endpoint of the same form,
// used by cmd/brokerd.
func Listen(endpoint string) (net.Listener, error) {
	addr := strings.TrimPrefix(endpoint, "tcp://")
	if addr == endpoint {
		return nil, errors.Errorf("unsupported broker endpoint scheme: %q", endpoint)
	}
	return net.Listen("tcp", addr)
}
