/*
Package replica keeps one independently owned chain per participant and
reconciles them by whole-chain replacement.

Store is not safe for concurrent use. The coordinator serializes every call
behind the same lock that guards the staged transaction.
*/
package replica

import (
	"sort"

	"github.com/gitzhang10/auditchain/chain"
)

// Store maps a participant name to that participant's chain.
type Store struct {
	difficulty int
	replicas   map[string]*chain.Chain
}

func NewStore(difficulty int) *Store {
	return &Store{
		difficulty: difficulty,
		replicas:   make(map[string]*chain.Chain),
	}
}

// Ensure creates a genesis-only chain for participant if it has none.
// It reports whether a chain was created.
func (s *Store) Ensure(participant string) bool {
	if _, ok := s.replicas[participant]; ok {
		return false
	}
	s.replicas[participant] = chain.New(s.difficulty)
	return true
}

// Get returns the participant's chain. The chain stays owned by the store.
func (s *Store) Get(participant string) (*chain.Chain, bool) {
	c, ok := s.replicas[participant]
	return c, ok
}

// Replace discards the participant's chain and stores a deep copy of c.
func (s *Store) Replace(participant string, c *chain.Chain) {
	s.replicas[participant] = c.Clone()
}

// Names returns every participant in lexicographic order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.replicas))
	for name := range s.replicas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForEach calls fn for every replica in lexicographic participant order.
func (s *Store) ForEach(fn func(participant string, c *chain.Chain)) {
	for _, name := range s.Names() {
		fn(name, s.replicas[name])
	}
}

// Snapshot returns deep copies of every replica.
func (s *Store) Snapshot() map[string]*chain.Chain {
	out := make(map[string]*chain.Chain, len(s.replicas))
	for name, c := range s.replicas {
		out[name] = c.Clone()
	}
	return out
}

// Len returns the number of replicas.
func (s *Store) Len() int {
	return len(s.replicas)
}

func (s *Store) Difficulty() int {
	return s.difficulty
}
