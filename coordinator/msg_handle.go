package coordinator

import (
	"fmt"
	"strings"
	"sync"
)

// HandleMsgLoop handles every message of every session until Close is called.
// Logins and disconnects are handled in order. Commands of one session run
// one after another in arrival order; different sessions run concurrently.
func (n *Node) HandleMsgLoop() {
	msgCh := n.trans.MsgChan()
	for {
		select {
		case <-n.shutdownCh:
			return
		case in := <-msgCh:
			if in.Closed {
				n.handleClose(in.Session)
				continue
			}
			switch msgAsserted := in.Msg.(type) {
			case Login:
				n.handleLogin(in.Session, &msgAsserted)
			case Command:
				name, ok := n.participantOf(in.Session)
				if !ok {
					n.respond(in.Session, failed(ErrNotLoggedIn))
					continue
				}
				p, cmd := in.Session, msgAsserted
				n.queueOf(p).push(func() { n.handleCommand(p, name, &cmd) })
			default:
				n.logger.Error("unexpected message from client", "session", in.Session.ID(),
					"type", fmt.Sprintf("%T", in.Msg))
			}
		}
	}
}

func (n *Node) handleLogin(p peer, msg *Login) {
	if err := n.login(p, msg.Name, msg.Password); err != nil {
		n.logger.Info("rejected login", "session", p.ID(), "name", msg.Name, "error", err)
		n.respond(p, failed(err))
		return
	}
	n.Join(msg.Name)
	n.logger.Info("participant logged in", "participant", msg.Name, "session", p.ID())
	n.respond(p, Result{OK: true, Text: fmt.Sprintf("Welcome, %s!", msg.Name)})
}

// login binds the session to name after checking the participant table.
func (n *Node) login(p peer, name, password string) error {
	if name == "" || strings.ContainsAny(name, " \t\r\n") || name == Broadcast {
		return fmt.Errorf("%w: invalid user name %q", ErrMalformedCommand, name)
	}
	if len(n.participants) > 0 {
		expected, ok := n.participants[name]
		if !ok || expected != password {
			return ErrBadCredentials
		}
	}

	n.usersLock.Lock()
	defer n.usersLock.Unlock()
	if current, ok := n.sessions[p.ID()]; ok {
		return fmt.Errorf("%w: already logged in as %s", ErrMalformedCommand, current)
	}
	if _, ok := n.users[name]; ok {
		return ErrNameTaken
	}
	n.users[name] = p
	n.sessions[p.ID()] = name
	return nil
}

func (n *Node) participantOf(p peer) (string, bool) {
	n.usersLock.Lock()
	defer n.usersLock.Unlock()
	name, ok := n.sessions[p.ID()]
	return name, ok
}

func (n *Node) handleClose(p peer) {
	n.usersLock.Lock()
	name, ok := n.sessions[p.ID()]
	if ok {
		delete(n.sessions, p.ID())
		delete(n.users, name)
	}
	n.usersLock.Unlock()
	delete(n.queues, p.ID())
	if ok {
		n.Leave(name)
	}
}

// queueOf returns the command queue of the session. Only HandleMsgLoop
// touches n.queues.
func (n *Node) queueOf(p peer) *commandQueue {
	q, ok := n.queues[p.ID()]
	if !ok {
		q = &commandQueue{}
		n.queues[p.ID()] = q
	}
	return q
}

// commandQueue runs jobs one at a time in push order. push never blocks.
type commandQueue struct {
	lock    sync.Mutex
	jobs    []func()
	running bool
}

func (q *commandQueue) push(job func()) {
	q.lock.Lock()
	q.jobs = append(q.jobs, job)
	if q.running {
		q.lock.Unlock()
		return
	}
	q.running = true
	q.lock.Unlock()
	go q.drain()
}

func (q *commandQueue) drain() {
	for {
		q.lock.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			q.lock.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		q.lock.Unlock()
		job()
	}
}

func (n *Node) handleCommand(p peer, participant string, cmd *Command) {
	res := n.Execute(participant, *cmd)
	n.respond(p, res)
	n.deliver(participant, res.Notices)
}
