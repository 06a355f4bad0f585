// Package search implements incremental permissive matching over a prefix
// tree.
//
// A Searcher keeps the characters typed so far together with the frontier:
// every tree node reachable from the root by reading the input one character
// at a time, where each character may also be read as one of its lookalikes.
// Pushing a character only looks at the children of the current frontier, so
// the cost of a keystroke does not depend on the size of the collection.
//
// A keystroke that matches nothing leaves the frontier where it was instead
// of emptying it, so a stray key does not wipe out the results.
package search

import (
	"iter"
	"slices"

	"github.com/bastiangx/permsearch/pkg/lookalike"
	"github.com/bastiangx/permsearch/pkg/tree"
)

// Searcher is the per-session search state. It is not safe for concurrent
// use, but several searchers may share one tree.
type Searcher struct {
	tree       *tree.Tree
	lookalikes lookalike.Func
	input      []rune
	// frontier may hold the same node more than once.
	frontier []tree.NodeID
	// scratch is swapped with frontier after every non-empty step.
	scratch []tree.NodeID
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLookalikes sets the tolerance policy. The default is lookalike.All;
// a nil f means exact matching.
func WithLookalikes(f lookalike.Func) Option {
	return func(s *Searcher) {
		if f == nil {
			f = lookalike.None
		}
		s.lookalikes = f
	}
}

// New returns a searcher over t with empty input.
func New(t *tree.Tree, opts ...Option) *Searcher {
	s := &Searcher{
		tree:       t,
		lookalikes: lookalike.All,
		frontier:   []tree.NodeID{tree.Root},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tree returns the tree the searcher reads.
func (s *Searcher) Tree() *tree.Tree {
	return s.tree
}

// Input returns everything typed so far, unmatched characters included.
func (s *Searcher) Input() string {
	return string(s.input)
}

// Len returns the number of characters typed so far.
func (s *Searcher) Len() int {
	return len(s.input)
}

// Frontier returns a copy of the nodes currently considered, in order.
func (s *Searcher) Frontier() []tree.NodeID {
	return slices.Clone(s.frontier)
}

// Push appends ch to the input and advances the frontier.
func (s *Searcher) Push(ch rune) {
	s.input = append(s.input, ch)
	s.step(ch)
}

// Extend pushes every rune of str in order.
func (s *Searcher) Extend(str string) {
	for _, ch := range str {
		s.Push(ch)
	}
}

// Pop removes the last character of the input and rebuilds the frontier by
// replaying the remaining input from the root. It does nothing on empty
// input.
func (s *Searcher) Pop() {
	if len(s.input) == 0 {
		return
	}
	s.input = s.input[:len(s.input)-1]
	s.replay()
}

// Reset clears the input.
func (s *Searcher) Reset() {
	s.input = s.input[:0]
	s.replay()
}

func (s *Searcher) replay() {
	s.frontier = append(s.frontier[:0], tree.Root)
	for _, ch := range s.input {
		s.step(ch)
	}
}

// step moves the frontier to the children reachable by ch or one of its
// lookalikes. Nodes are collected frontier-major, ch first, then lookalikes in
// table order. An empty result keeps the old frontier.
func (s *Searcher) step(ch rune) {
	similar := s.lookalikes(ch)
	next := s.scratch[:0]
	for _, n := range s.frontier {
		if child, ok := s.tree.Child(n, ch); ok {
			next = append(next, child)
		}
		for _, alt := range similar {
			if child, ok := s.tree.Child(n, alt); ok {
				next = append(next, child)
			}
		}
	}
	if len(next) == 0 {
		s.scratch = next
		return
	}
	s.frontier, s.scratch = next, s.frontier
}

// Candidates yields the index of every key the input could refer to: for each
// frontier node in order, the indices below it in tree order. An index may
// appear more than once when lookalikes lead to the same node twice.
//
// The sequence is read lazily and may be abandoned at any point. It must not
// be consumed across a Push, Pop or Reset.
func (s *Searcher) Candidates() iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, n := range s.frontier {
			for index := range s.tree.Terminals(n) {
				if !yield(index) {
					return
				}
			}
		}
	}
}

// ForEachCandidate calls fn with every candidate in Candidates order. The
// first error returned by fn stops the enumeration and is returned as is.
func (s *Searcher) ForEachCandidate(fn func(index int) error) error {
	for _, n := range s.frontier {
		if err := s.tree.Walk(n, fn); err != nil {
			return err
		}
	}
	return nil
}

// Collect returns up to limit candidates. A limit below 1 means no limit.
func (s *Searcher) Collect(limit int) []int {
	var out []int
	for index := range s.Candidates() {
		out = append(out, index)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
