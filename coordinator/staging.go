package coordinator

import (
	"fmt"

	"github.com/gitzhang10/auditchain/chain"
)

// Proposal is a transaction waiting for approval.
type Proposal struct {
	Type   chain.BlockType
	From   string
	To     string
	Amount float64
}

func (p Proposal) String() string {
	return fmt.Sprintf("Block Type: %s\nFrom Address: %s\nTo Address: %s\nTransaction Value: %s",
		p.Type, p.From, p.To, chain.FormatAmount(p.Amount))
}

// staging is the single slot shared by every participant. A new proposal
// overwrites the pending one. It is guarded by Node.lock.
type staging struct {
	pending *Proposal
}

// set stores p and reports whether a pending proposal was overwritten.
func (s *staging) set(p Proposal) bool {
	replaced := s.pending != nil
	s.pending = &p
	return replaced
}

// take empties the slot and returns what it held.
func (s *staging) take() (Proposal, bool) {
	if s.pending == nil {
		return Proposal{}, false
	}
	p := *s.pending
	s.pending = nil
	return p, true
}

func (s *staging) peek() (Proposal, bool) {
	if s.pending == nil {
		return Proposal{}, false
	}
	return *s.pending, true
}
