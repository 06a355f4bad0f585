// Package tree implements the rune-keyed prefix tree that indexes the keys of
// a permissive search.
//
// Nodes live in a single arena and are addressed by NodeID, so searchers can
// hold on to nodes without pointers into the tree. A Tree is built once by
// inserting keys and is read-only afterwards; any number of goroutines may
// read it concurrently as long as none of them inserts.
package tree

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
)

// NodeID addresses a node inside its Tree.
type NodeID int32

// Root is the node every key starts from. The empty key ends at Root.
const Root NodeID = 0

type edge struct {
	ch   rune
	node NodeID
}

type node struct {
	// children is sorted by ch, each ch appearing once.
	children []edge
	terminal int
	end      bool
}

// Tree associates string keys with int indices.
type Tree struct {
	nodes []node
	keys  int
}

// New returns a tree holding only the root.
func New() *Tree {
	return &Tree{nodes: make([]node, 1)}
}

// Build inserts every (index, key) pair in iteration order.
// A key seen twice keeps the index it was inserted with last.
func Build(pairs iter.Seq2[int, string]) *Tree {
	t := New()
	for index, key := range pairs {
		t.Insert(key, index)
	}
	return t
}

// FromStrings indexes every key by its position in keys.
func FromStrings(keys []string) *Tree {
	return Build(slices.All(keys))
}

// Insert adds key to the tree, recording index at the node where key ends.
func (t *Tree) Insert(key string, index int) {
	n := Root
	for _, ch := range key {
		children := t.nodes[n].children
		i, found := slices.BinarySearchFunc(children, ch, compareEdge)
		if !found {
			child := NodeID(len(t.nodes))
			t.nodes = append(t.nodes, node{})
			t.nodes[n].children = slices.Insert(children, i, edge{ch: ch, node: child})
		}
		n = t.nodes[n].children[i].node
	}
	if !t.nodes[n].end {
		t.keys++
	}
	t.nodes[n].terminal = index
	t.nodes[n].end = true
}

// Child returns the child of n reached by exactly ch.
func (t *Tree) Child(n NodeID, ch rune) (NodeID, bool) {
	children := t.nodes[n].children
	if len(children) == 0 || ch > children[len(children)-1].ch {
		return 0, false
	}
	i, found := slices.BinarySearchFunc(children, ch, compareEdge)
	if !found {
		return 0, false
	}
	return children[i].node, true
}

// Terminal returns the index of the key ending at n, if any.
func (t *Tree) Terminal(n NodeID) (int, bool) {
	return t.nodes[n].terminal, t.nodes[n].end
}

// Walk calls fn with every index reachable from n: the index ending at n
// first, then the subtrees of its children in ascending rune order.
//
// The first error returned by fn stops the walk and is returned as is.
func (t *Tree) Walk(n NodeID, fn func(index int) error) error {
	var err error
	t.walk(n, func(index int) bool {
		err = fn(index)
		return err == nil
	})
	return err
}

// Terminals yields the same indices as Walk, in the same order.
// Breaking out of the loop early is safe.
func (t *Tree) Terminals(n NodeID) iter.Seq[int] {
	return func(yield func(int) bool) {
		t.walk(n, yield)
	}
}

func (t *Tree) walk(n NodeID, yield func(int) bool) bool {
	nd := &t.nodes[n]
	if nd.end && !yield(nd.terminal) {
		return false
	}
	for _, e := range nd.children {
		if !t.walk(e.node, yield) {
			return false
		}
	}
	return true
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Keys returns the number of distinct keys stored.
func (t *Tree) Keys() int {
	return t.keys
}

// Fprint writes the shape of the tree, one rune per line, indented by depth.
func (t *Tree) Fprint(w io.Writer) error {
	return t.fprint(w, Root, 0)
}

func (t *Tree) fprint(w io.Writer, n NodeID, depth int) error {
	for _, e := range t.nodes[n].children {
		line := strings.Repeat("│ ", depth) + string(e.ch)
		if index, ok := t.Terminal(e.node); ok {
			line = fmt.Sprintf("%s [%d]", line, index)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if err := t.fprint(w, e.node, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func compareEdge(e edge, ch rune) int {
	switch {
	case e.ch < ch:
		return -1
	case e.ch > ch:
		return 1
	default:
		return 0
	}
}
