package coordinator

// peer is the part of a client session the node writes to.
type peer interface {
	ID() uint64
	Send(msgType uint8, msg interface{}) error
}

func (n *Node) respond(p peer, res Result) {
	if err := p.Send(ResponseTag, &Response{OK: res.OK, Text: res.Text, Totals: res.Totals}); err != nil {
		n.logger.Error("fail to send response", "session", p.ID(), "error", err)
	}
}

// deliver pushes every notice issued by from. A broadcast skips the issuer,
// who already got the text as a response. Offline targets are skipped.
func (n *Node) deliver(from string, notices []Notice) {
	for _, notice := range notices {
		msg := &Notification{From: from, Text: notice.Text}
		for name, p := range n.recipients(from, notice.To) {
			if err := p.Send(NotificationTag, msg); err != nil {
				n.logger.Error("fail to send notification", "receiver", name, "error", err)
			}
		}
	}
}

func (n *Node) recipients(from, to string) map[string]peer {
	n.usersLock.Lock()
	defer n.usersLock.Unlock()
	out := make(map[string]peer)
	if to != Broadcast {
		if p, ok := n.users[to]; ok {
			out[to] = p
		} else {
			n.logger.Debug("notice target is offline", "sender", from, "receiver", to)
		}
		return out
	}
	for name, p := range n.users {
		if name != from {
			out[name] = p
		}
	}
	return out
}
