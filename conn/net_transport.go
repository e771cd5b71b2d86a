package conn

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-msgpack/codec"
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")
)

// Inbound is delivered for every decoded message and once more, with
// Closed set, when the session ends.
type Inbound struct {
	Session *Session
	Msg     interface{}
	Closed  bool
}

/*
NetworkTransport provides a network based transport that accepts client
sessions. It requires an underlying stream layer to provide a stream
abstraction, which can be simple TCP, TLS, etc.

This transport is very simple and lightweight. Each message is framed by
a byte that indicates the message type, followed by the msgpack body.
All messages from all sessions are funneled into one channel so a single
loop can handle them in arrival order.
*/
type NetworkTransport struct {
	sessions     map[uint64]*Session
	sessionsLock sync.Mutex
	maxSessions  int
	nextID       uint64

	msgCh chan Inbound // msgCh is used to transfer data between NetworkTransport and outer variable (e.g., Node)

	reflectedTypesMap map[uint8]reflect.Type

	logger hclog.Logger

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	stream StreamLayer

	// streamCtx is used to cancel existing connection handlers.
	streamCtx     context.Context
	streamCancel  context.CancelFunc
	streamCtxLock sync.RWMutex

	timeout time.Duration
}

// MsgChan returns the msgCh field of the NetworkTransport.
func (n *NetworkTransport) MsgChan() chan Inbound {
	return n.msgCh
}

// SessionCount returns the number of open sessions.
func (n *NetworkTransport) SessionCount() int {
	n.sessionsLock.Lock()
	defer n.sessionsLock.Unlock()
	return len(n.sessions)
}

// setupStreamContext is used to create a new stream context. This should be
// called with the stream lock held.
func (n *NetworkTransport) setupStreamContext() {
	ctx, cancel := context.WithCancel(context.Background())
	n.streamCtx = ctx
	n.streamCancel = cancel
}

// getStreamContext is used retrieve the current stream context.
func (n *NetworkTransport) getStreamContext() context.Context {
	n.streamCtxLock.RLock()
	defer n.streamCtxLock.RUnlock()
	return n.streamCtx
}

// listen is used to handling incoming connections.
func (n *NetworkTransport) listen() {
	const baseDelay = 5 * time.Millisecond
	const maxDelay = 1 * time.Second

	var loopDelay time.Duration
	for {
		// Accept incoming connections
		conn, err := n.stream.Accept()
		if err != nil {
			if loopDelay == 0 {
				loopDelay = baseDelay
			} else {
				loopDelay *= 2
			}

			if loopDelay > maxDelay {
				loopDelay = maxDelay
			}

			if !n.IsShutdown() {
				n.logger.Error("failed to accept connection", "error", err)
			}

			select {
			case <-n.shutdownCh:
				return
			case <-time.After(loopDelay):
				continue
			}
		}
		// No error, reset loop delay
		loopDelay = 0

		n.logger.Debug("accepted connection", "local-address", n.LocalAddr(), "remote-address", conn.RemoteAddr().String())

		sess, ok := n.register(conn)
		if !ok {
			n.logger.Warn("too many sessions, rejecting connection", "remote-address", conn.RemoteAddr().String(),
				"max-sessions", n.maxSessions)
			conn.Close()
			continue
		}

		// Handle the connection in dedicated routine
		go n.handleConn(n.getStreamContext(), sess)
	}
}

func (n *NetworkTransport) register(conn net.Conn) (*Session, bool) {
	n.sessionsLock.Lock()
	defer n.sessionsLock.Unlock()
	if n.maxSessions > 0 && len(n.sessions) >= n.maxSessions {
		return nil, false
	}
	n.nextID++
	sess := newSession(n.nextID, conn, n.timeout)
	n.sessions[sess.id] = sess
	return sess, true
}

func (n *NetworkTransport) unregister(sess *Session) {
	n.sessionsLock.Lock()
	defer n.sessionsLock.Unlock()
	delete(n.sessions, sess.id)
}

// handleConn is used to handle an inbound connection for its lifespan. The
// handler will exit when the passed context is cancelled or the connection is
// closed.
func (n *NetworkTransport) handleConn(connCtx context.Context, sess *Session) {
	defer func() {
		sess.Close()
		n.unregister(sess)
		select {
		case n.msgCh <- Inbound{Session: sess, Closed: true}:
		case <-n.shutdownCh:
		}
	}()
	r := bufio.NewReader(sess.conn)
	dec := codec.NewDecoder(r, &codec.MsgpackHandle{})

	for {
		select {
		case <-connCtx.Done():
			n.logger.Debug("stream layer is closed")
			return
		default:
		}

		if err := n.handleMsg(sess, r, dec); err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) && err != ErrTransportShutdown {
				n.logger.Error("failed to decode incoming message", "remote-address", sess.RemoteAddr(), "error", err)
			}
			return
		}
	}
}

// handleMsg is used to decode and deliver a single msg.
func (n *NetworkTransport) handleMsg(sess *Session, r *bufio.Reader, dec *codec.Decoder) error {
	_, msg, err := readMsg(r, dec, n.reflectedTypesMap)
	if err != nil {
		return err
	}

	select {
	case n.msgCh <- Inbound{Session: sess, Msg: msg}:
	case <-n.shutdownCh:
		return ErrTransportShutdown
	}
	return nil
}

// LocalAddr returns the address the transport listens on.
func (n *NetworkTransport) LocalAddr() string {
	return n.stream.Addr().String()
}

// IsShutdown is used to check if the transport is shutdown.
func (n *NetworkTransport) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// Close is used to stop the network transport and every open session.
func (n *NetworkTransport) Close() error {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if !n.shutdown {
		close(n.shutdownCh)
		n.stream.Close()
		n.streamCtxLock.Lock()
		n.streamCancel()
		n.streamCtxLock.Unlock()

		n.sessionsLock.Lock()
		for _, sess := range n.sessions {
			sess.Close()
		}
		n.sessionsLock.Unlock()
		n.shutdown = true
	}
	return nil
}

// NetworkTransportConfig encapsulates configuration for the network transport layer.
type NetworkTransportConfig struct {
	// MaxSessions bounds the number of concurrent sessions, zero means unbounded.
	MaxSessions int

	ReflectedTypesMap map[uint8]reflect.Type

	Logger hclog.Logger

	// Listener
	Stream StreamLayer

	// Timeout is used as the write deadline of every session send.
	Timeout time.Duration
}

// NewNetworkTransportWithConfig creates a new network transport with the given config struct.
func NewNetworkTransportWithConfig(
	config *NetworkTransportConfig,
) *NetworkTransport {
	if config.Logger == nil {
		config.Logger = hclog.New(&hclog.LoggerOptions{
			Name:   "ledger-net",
			Output: hclog.DefaultOutput,
			Level:  hclog.DefaultLevel,
		})
	}
	trans := &NetworkTransport{
		sessions:          make(map[uint64]*Session),
		maxSessions:       config.MaxSessions,
		msgCh:             make(chan Inbound, 16),
		reflectedTypesMap: config.ReflectedTypesMap,
		logger:            config.Logger,
		shutdownCh:        make(chan struct{}),
		stream:            config.Stream,
		timeout:           config.Timeout,
	}

	// Create the connection context and then start our listener.
	trans.setupStreamContext()
	go trans.listen()

	return trans
}

// NewNetworkTransport creates a new network transport with the given
// listener. The maxSessions bounds concurrent sessions. The timeout is used
// to apply write deadlines.
func NewNetworkTransport(
	stream StreamLayer,
	timeout time.Duration,
	logOutput io.Writer,
	maxSessions int,
	reflectedTypesMap map[uint8]reflect.Type,
) *NetworkTransport {
	if logOutput == nil {
		logOutput = os.Stderr
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "ledger-net",
		Output: logOutput,
		Level:  hclog.DefaultLevel,
	})
	config := &NetworkTransportConfig{Stream: stream, Timeout: timeout, Logger: logger, MaxSessions: maxSessions,
		ReflectedTypesMap: reflectedTypesMap}
	return NewNetworkTransportWithConfig(config)
}
