package conn

import (
	"fmt"
	"io"
	"net"
	"reflect"
	"time"
)

// StreamLayer is the listener a NetworkTransport accepts sessions from.
// It only serves the coordinator side; clients connect with Dial.
type StreamLayer interface {
	net.Listener
}

// NewTCPTransport listens on bindAddr and serves client sessions over
// plain TCP. A port of 0 picks a free one; LocalAddr reports it.
func NewTCPTransport(
	bindAddr string,
	timeout time.Duration,
	logOutput io.Writer,
	maxSessions int,
	reflectedTypesMap map[uint8]reflect.Type,
) (*NetworkTransport, error) {
	list, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", bindAddr, err)
	}
	return NewNetworkTransport(list, timeout, logOutput, maxSessions, reflectedTypesMap), nil
}
