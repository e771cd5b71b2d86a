package coordinator

import (
	"errors"

	"github.com/gitzhang10/auditchain/conn"
)

// StartListen starts the node to listen for client sessions.
func (n *Node) StartListen() error {
	var err error
	n.trans, err = conn.NewTCPTransport(n.listenAddr, n.timeout, nil, n.maxPool, ReflectedTypesMap)
	if err != nil {
		return err
	}
	n.logger.Info("listening for clients", "address", n.trans.LocalAddr())
	return nil
}

// Addr returns the address the node listens on.
func (n *Node) Addr() (string, error) {
	if n.trans == nil {
		return "", errors.New("networkTransport has not been created")
	}
	return n.trans.LocalAddr(), nil
}

// Close stops the message loop and the transport.
func (n *Node) Close() error {
	n.closeOnce.Do(func() { close(n.shutdownCh) })
	if n.trans == nil {
		return nil
	}
	return n.trans.Close()
}
