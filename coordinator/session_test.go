package coordinator

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gitzhang10/auditchain/config"
	"github.com/gitzhang10/auditchain/conn"
	"github.com/hashicorp/go-hclog"
)

func startServer(t *testing.T, participants map[string]string) *Node {
	t.Helper()
	conf := config.New("test", "127.0.0.1:0", 8, int(hclog.Off), testDifficulty, 2*time.Second, "", participants)
	n := NewNode(conf)
	if err := n.StartListen(); err != nil {
		t.Fatal(err)
	}
	go n.HandleMsgLoop()
	t.Cleanup(func() { n.Close() })
	return n
}

type client struct {
	t    *testing.T
	conn *conn.NetConn
}

func dial(t *testing.T, n *Node) *client {
	t.Helper()
	addr, err := n.Addr()
	if err != nil {
		t.Fatal(err)
	}
	c, err := conn.Dial(addr, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Release() })
	return &client{t: t, conn: c}
}

func (c *client) send(tag uint8, msg interface{}) {
	c.t.Helper()
	if err := conn.SendMsg(c.conn, tag, msg); err != nil {
		c.t.Fatal(err)
	}
}

func (c *client) next() interface{} {
	c.t.Helper()
	_, msg, err := conn.ReceiveMsg(c.conn, ReflectedTypesMap)
	if err != nil {
		c.t.Fatal(err)
	}
	return msg
}

func (c *client) response() Response {
	c.t.Helper()
	msg := c.next()
	res, ok := msg.(Response)
	if !ok {
		c.t.Fatalf("expected a response, got %T %+v", msg, msg)
	}
	return res
}

func (c *client) notification() Notification {
	c.t.Helper()
	msg := c.next()
	notice, ok := msg.(Notification)
	if !ok {
		c.t.Fatalf("expected a notification, got %T %+v", msg, msg)
	}
	return notice
}

func (c *client) login(name, password string) Response {
	c.t.Helper()
	c.send(LoginTag, &Login{Name: name, Password: password})
	return c.response()
}

func (c *client) run(kind string, args ...string) Response {
	c.t.Helper()
	c.send(CommandTag, &Command{Kind: kind, Args: args})
	return c.response()
}

func TestSessionProposeApprove(t *testing.T) {
	n := startServer(t, nil)
	alice, bob := dial(t, n), dial(t, n)

	if res := alice.login("alice", ""); !res.OK || res.Text != "Welcome, alice!" {
		t.Fatalf("unexpected login response %+v", res)
	}
	if res := bob.login("bob", ""); !res.OK {
		t.Fatalf("unexpected login response %+v", res)
	}

	if res := alice.run(KindList); !strings.Contains(res.Text, "alice\nbob") {
		t.Fatalf("list should show both users, got %q", res.Text)
	}

	if res := alice.run(KindPropose, "Sales", "bob", "100"); !res.OK {
		t.Fatalf("propose failed: %s", res.Text)
	}
	notice := bob.notification()
	if notice.From != "alice" || !strings.Contains(notice.Text, "Please verify the transaction!") {
		t.Fatalf("unexpected notice %+v", notice)
	}

	if res := bob.run(KindApprove); !res.OK {
		t.Fatalf("approve failed: %s", res.Text)
	}
	if notice := alice.notification(); notice.From != "bob" || !strings.Contains(notice.Text, "approved") {
		t.Fatalf("unexpected broadcast %+v", notice)
	}

	for name, c := range n.Replicas() {
		if c.Len() != 2 {
			t.Fatalf("%s has %d blocks, expected 2", name, c.Len())
		}
	}
	if res := alice.run(KindVerify); !res.OK || !strings.Contains(res.Text, "blockchain is valid") {
		t.Fatalf("unexpected verify response %+v", res)
	}
	res := bob.run(KindReport)
	if !res.OK || len(res.Totals) != 2 {
		t.Fatalf("report should carry totals for two accounts, got %+v", res)
	}
	if res.Totals[0].Account != "bob" || res.Totals[0].Incoming != 100 || res.Totals[1].Outgoing != -100 {
		t.Fatalf("unexpected totals %+v", res.Totals)
	}
}

func TestSessionCommandsRunInOrder(t *testing.T) {
	n := startServer(t, nil)
	alice := dial(t, n)
	if res := alice.login("alice", ""); !res.OK {
		t.Fatal(res.Text)
	}

	alice.send(CommandTag, &Command{Kind: KindPropose, Args: []string{"Sales", "bob", "100"}})
	alice.send(CommandTag, &Command{Kind: KindApprove})
	alice.send(CommandTag, &Command{Kind: KindView})

	if res := alice.response(); !res.OK || !strings.Contains(res.Text, "Waiting for approval") {
		t.Fatalf("first response should answer the proposal, got %+v", res)
	}
	if res := alice.response(); !res.OK || !strings.Contains(res.Text, "Added new block") {
		t.Fatalf("approval sent right after the proposal must commit it, got %+v", res)
	}
	if res := alice.response(); !res.OK || !strings.Contains(res.Text, "Sales") {
		t.Fatalf("view should show the committed block, got %+v", res)
	}
	if c := n.Replicas()["alice"]; c.Len() != 2 {
		t.Fatalf("alice has %d blocks, expected 2", c.Len())
	}
}

func TestCommandQueueKeepsPushOrder(t *testing.T) {
	var q commandQueue
	var got []int
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		q.push(func() {
			got = append(got, i)
			if i == 99 {
				close(done)
			}
		})
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not drain")
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("job %d ran at position %d", v, i)
		}
	}
}

func TestSessionLoginRules(t *testing.T) {
	n := startServer(t, map[string]string{"alice": "secret", "bob": "hunter2"})

	c := dial(t, n)
	if res := c.run(KindView); res.OK || !strings.Contains(res.Text, ErrNotLoggedIn.Error()) {
		t.Fatalf("commands before login must fail, got %+v", res)
	}
	if res := c.login("alice", "wrong"); res.OK || !strings.Contains(res.Text, ErrBadCredentials.Error()) {
		t.Fatalf("expected bad credentials, got %+v", res)
	}
	if res := c.login("mallory", ""); res.OK {
		t.Fatal("a name outside the participant table must be rejected")
	}
	if res := c.login("alice", "secret"); !res.OK {
		t.Fatalf("login failed: %s", res.Text)
	}

	other := dial(t, n)
	if res := other.login("alice", "secret"); res.OK || !strings.Contains(res.Text, ErrNameTaken.Error()) {
		t.Fatalf("a second alice must be rejected, got %+v", res)
	}
}

func TestSessionDisconnectKeepsReplica(t *testing.T) {
	n := startServer(t, nil)
	c := dial(t, n)
	if res := c.login("carol", ""); !res.OK {
		t.Fatal(res.Text)
	}
	c.conn.Release()

	deadline := time.Now().Add(2 * time.Second)
	for len(n.Online()) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("carol is still online after disconnecting")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := n.Replicas()["carol"]; !ok {
		t.Fatal("the replica must survive a disconnect")
	}

	again := dial(t, n)
	if res := again.login("carol", ""); !res.OK {
		t.Fatalf("carol should be able to log in again: %s", res.Text)
	}
}

type fakePeer struct {
	id   uint64
	sent []interface{}
}

func (f *fakePeer) ID() uint64 { return f.id }

func (f *fakePeer) Send(_ uint8, msg interface{}) error {
	f.sent = append(f.sent, msg)
	return nil
}

func TestLoginValidation(t *testing.T) {
	n := setupNode(t, "")
	for _, name := range []string{"", "two words", Broadcast} {
		if err := n.login(&fakePeer{id: 1}, name, ""); !errors.Is(err, ErrMalformedCommand) {
			t.Fatalf("name %q: expected ErrMalformedCommand, got %v", name, err)
		}
	}
	p := &fakePeer{id: 2}
	if err := n.login(p, "dave", ""); err != nil {
		t.Fatal(err)
	}
	if err := n.login(p, "erin", ""); !errors.Is(err, ErrMalformedCommand) {
		t.Fatalf("a session logs in once, got %v", err)
	}
}

func TestDeliverSkipsIssuerAndOffline(t *testing.T) {
	n := setupNode(t, "")
	a, b := &fakePeer{id: 1}, &fakePeer{id: 2}
	if err := n.login(a, "a", ""); err != nil {
		t.Fatal(err)
	}
	if err := n.login(b, "b", ""); err != nil {
		t.Fatal(err)
	}

	n.deliver("a", []Notice{{To: Broadcast, Text: "x"}, {To: "ghost", Text: "y"}, {To: "a", Text: "z"}})
	if len(a.sent) != 1 || a.sent[0].(*Notification).Text != "z" {
		t.Fatalf("issuer should only get the notice addressed to it, got %+v", a.sent)
	}
	if len(b.sent) != 1 || b.sent[0].(*Notification).Text != "x" {
		t.Fatalf("b should get the broadcast, got %+v", b.sent)
	}
}
