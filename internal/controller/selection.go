// ABOUTME: Track selection policy for the playback controller
// ABOUTME: Sequential wrap-around or shuffled draws without replacement
package controller

import "math/rand"

// selector decides which score plays next when the user has not picked
// one explicitly.
type selector struct {
	mode string
	n    int
	last int // last played index, -1 before anything played

	// random mode: a shuffled permutation consumed left to right,
	// reshuffled when exhausted.
	order []int
	pos   int
}

func newSelector(mode string, n int) *selector {
	return &selector{mode: mode, n: n, last: -1}
}

// next returns the following index per the configured mode. Requires
// n > 0.
func (s *selector) next() int {
	if s.mode == "random" {
		if s.pos >= len(s.order) {
			s.order = rand.Perm(s.n)
			s.pos = 0
		}
		idx := s.order[s.pos]
		s.pos++
		s.last = idx
		return idx
	}

	s.last = (s.last + 1) % s.n
	return s.last
}

// played records an index chosen outside the policy (explicit user
// selection), so sequential advance continues from there.
func (s *selector) played(idx int) {
	s.last = idx
}
