package replica

// Reconcile picks the longest replica and overwrites every other replica with
// a copy of it. Among equally long replicas the lexicographically smallest
// participant wins. Chains are not verified first, so a long invalid chain
// is propagated. It returns the winner, or "" when the store is empty.
func Reconcile(s *Store) string {
	winner := ""
	best := -1
	// Names is sorted, so a strict comparison keeps the smallest name on ties.
	for _, name := range s.Names() {
		if l := s.replicas[name].Len(); l > best {
			winner, best = name, l
		}
	}
	if winner == "" {
		return ""
	}
	source := s.replicas[winner]
	for _, name := range s.Names() {
		if name != winner {
			s.Replace(name, source)
		}
	}
	return winner
}
