package conn

import (
	"errors"
	"io"
	"net"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

const (
	personLabel = iota
	addressLabel
)

type Person struct {
	Name string
	Age  int
}

type Address struct {
	Province string
	Town     string
	Code     int
}

var reflectedTypesMap = map[uint8]reflect.Type{
	personLabel:  reflect.TypeOf(Person{}),
	addressLabel: reflect.TypeOf(Address{}),
}

func nextInbound(t *testing.T, tran *NetworkTransport) Inbound {
	t.Helper()
	select {
	case in := <-tran.MsgChan():
		return in
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an inbound message")
	}
	return Inbound{}
}

// TestSimpleComm tests if a client can connect to the server, send a
// Person and receive an Address back on the same session.
func TestSimpleComm(t *testing.T) {
	tran, err := NewTCPTransport("127.0.0.1:0", 2*time.Second, nil, 4, reflectedTypesMap)
	if err != nil {
		t.Fatal(err)
	}
	defer tran.Close()

	client, err := Dial(tran.LocalAddr(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Release()

	person := Person{Name: "seafooler", Age: 18}
	if err := SendMsg(client, personLabel, &person); err != nil {
		t.Fatal(err)
	}

	in := nextInbound(t, tran)
	received, ok := in.Msg.(Person)
	if !ok {
		t.Fatalf("received msg is not of type Person: %T", in.Msg)
	}
	if received != person {
		t.Fatal("received person does not match the original one")
	}

	addr := Address{Province: "Anhui", Town: "Hefei", Code: 230000}
	if err := in.Session.Send(addressLabel, &addr); err != nil {
		t.Fatal(err)
	}
	msgType, reply, err := ReceiveMsg(client, reflectedTypesMap)
	if err != nil {
		t.Fatal(err)
	}
	if msgType != addressLabel || reply.(Address) != addr {
		t.Fatalf("unexpected reply %d %+v", msgType, reply)
	}
}

func TestSessionCloseIsReported(t *testing.T) {
	tran, err := NewTCPTransport("127.0.0.1:0", 2*time.Second, nil, 4, reflectedTypesMap)
	if err != nil {
		t.Fatal(err)
	}
	defer tran.Close()

	client, err := Dial(tran.LocalAddr(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if err := SendMsg(client, personLabel, &Person{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	first := nextInbound(t, tran)
	client.Release()

	closed := nextInbound(t, tran)
	if !closed.Closed || closed.Session.ID() != first.Session.ID() {
		t.Fatalf("expected a close event for session %d, got %+v", first.Session.ID(), closed)
	}
}

func TestMaxSessions(t *testing.T) {
	tran, err := NewTCPTransport("127.0.0.1:0", 2*time.Second, nil, 1, reflectedTypesMap)
	if err != nil {
		t.Fatal(err)
	}
	defer tran.Close()

	first, err := Dial(tran.LocalAddr(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Release()
	if err := SendMsg(first, personLabel, &Person{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	nextInbound(t, tran)

	second, err := Dial(tran.LocalAddr(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Release()
	if _, _, err := ReceiveMsg(second, reflectedTypesMap); err == nil {
		t.Fatal("the second session should have been rejected")
	}
	if n := tran.SessionCount(); n != 1 {
		t.Fatalf("expected one session, got %d", n)
	}
}

// flakyListener fails its first Accept calls before handing over to the
// wrapped listener.
type flakyListener struct {
	net.Listener
	failures int32
}

func (f *flakyListener) Accept() (net.Conn, error) {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return nil, errors.New("accept: too many open files")
	}
	return f.Listener.Accept()
}

func TestListenSurvivesAcceptError(t *testing.T) {
	list, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	tran := NewNetworkTransport(&flakyListener{Listener: list, failures: 2}, 2*time.Second, io.Discard, 4, reflectedTypesMap)
	defer tran.Close()

	client, err := Dial(tran.LocalAddr(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Release()
	if err := SendMsg(client, personLabel, &Person{Name: "after"}); err != nil {
		t.Fatal(err)
	}
	if in := nextInbound(t, tran); in.Msg.(Person).Name != "after" {
		t.Fatalf("unexpected message %+v", in.Msg)
	}
}
