package conn

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-msgpack/codec"
)

// Session is the server side of one inbound connection. Writes are
// serialized so replies and notices from different goroutines never interleave.
type Session struct {
	id      uint64
	conn    net.Conn
	timeout time.Duration

	lock sync.Mutex
	w    *bufio.Writer
	enc  *codec.Encoder
}

func newSession(id uint64, c net.Conn, timeout time.Duration) *Session {
	s := &Session{
		id:      id,
		conn:    c,
		timeout: timeout,
		w:       bufio.NewWriter(c),
	}
	s.enc = codec.NewEncoder(s.w, &codec.MsgpackHandle{})
	return s
}

// ID returns the transport-assigned identifier of the session.
func (s *Session) ID() uint64 {
	return s.id
}

// RemoteAddr returns the address of the client.
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

// Send encodes msg under type byte msgType and flushes it to the client.
func (s *Session) Send(msgType uint8, msg interface{}) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.timeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	}
	return writeMsg(s.w, s.enc, msgType, msg)
}

// Close terminates the session. The read loop then reports it as closed.
func (s *Session) Close() error {
	return s.conn.Close()
}
