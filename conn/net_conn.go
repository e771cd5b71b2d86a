/*
Package conn implements the msgpack framed connection between a client and
the coordinator.

Every message is framed as a single type byte followed by the msgpack
encoded body. The type byte selects the Go type the body is decoded into.
The server side sees each inbound connection as a Session that it can
write replies and notices to at any time. The client side holds a NetConn.

A StreamLayer only covers the listener of the coordinator. Clients never
listen; they open their single connection with Dial.
*/
package conn

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"reflect"
	"time"

	"github.com/hashicorp/go-msgpack/codec"
)

// NetConn represents a connection established from a client to the server.
type NetConn struct {
	target string
	conn   net.Conn
	w      *bufio.Writer
	enc    *codec.Encoder
	r      *bufio.Reader
	dec    *codec.Decoder
}

// Dial connects to target and wraps the connection with a msgpack encoder and decoder.
func Dial(target string, timeout time.Duration) (*NetConn, error) {
	c, err := net.DialTimeout("tcp", target, timeout)
	if err != nil {
		return nil, err
	}
	netC := &NetConn{
		target: target,
		conn:   c,
		w:      bufio.NewWriter(c),
		r:      bufio.NewReader(c),
	}
	netC.enc = codec.NewEncoder(netC.w, &codec.MsgpackHandle{})
	netC.dec = codec.NewDecoder(netC.r, &codec.MsgpackHandle{})
	return netC, nil
}

// Target returns the address the connection was dialed to.
func (n *NetConn) Target() string {
	return n.target
}

// Release closes the connection in a NetConn variable.
func (n *NetConn) Release() error {
	return n.conn.Close()
}

// SendMsg is used to encode and send the msg.
func SendMsg(conn *NetConn, msgType uint8, msg interface{}) error {
	if err := writeMsg(conn.w, conn.enc, msgType, msg); err != nil {
		conn.Release()
		return err
	}
	return nil
}

// ReceiveMsg blocks until the next message arrives on conn and decodes it
// into the type registered for its type byte.
func ReceiveMsg(conn *NetConn, reflectedTypesMap map[uint8]reflect.Type) (uint8, interface{}, error) {
	return readMsg(conn.r, conn.dec, reflectedTypesMap)
}

func writeMsg(w *bufio.Writer, enc *codec.Encoder, msgType uint8, msg interface{}) error {
	// Write the msg type
	if err := w.WriteByte(msgType); err != nil {
		return err
	}
	if err := enc.Encode(msg); err != nil {
		return err
	}
	return w.Flush()
}

func readMsg(r *bufio.Reader, dec *codec.Decoder, reflectedTypesMap map[uint8]reflect.Type) (uint8, interface{}, error) {
	// Get the msg type
	msgType, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	reflectedType, ok := reflectedTypesMap[msgType]
	if !ok {
		return msgType, nil, errors.New(fmt.Sprintf("type of the msg (%d) is unknown", msgType))
	}
	body := reflect.New(reflectedType)
	if err := dec.Decode(body.Interface()); err != nil {
		return msgType, nil, err
	}
	return msgType, body.Elem().Interface(), nil
}
