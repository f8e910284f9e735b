package menu

import (
	"fmt"
	"strings"
)

// RootID is the key of the synthetic root node.
const RootID = "root"

// Handle addresses a node inside one Tree.
type Handle int

// RootHandle is the handle of the synthetic root.
const RootHandle Handle = 0

// Node is a tree entry. Parent edges are the only structure; items carry no
// child pointers.
type Node struct {
	Handle Handle
	ID     string
	Parent Handle
	Item   Item
}

// Tree is an ordered single-root forest of menu items. Nodes are stored in
// insertion order and a node's parent always precedes it.
type Tree struct {
	nodes    []Node
	children map[Handle][]Handle
	index    map[string]Handle
}

// NewTree returns a tree holding only the synthetic root.
func NewTree() *Tree {
	t := &Tree{
		children: make(map[Handle][]Handle),
		index:    make(map[string]Handle),
	}
	t.nodes = append(t.nodes, Node{Handle: RootHandle, ID: RootID, Parent: -1, Item: Item{Label: "Root", Enabled: true}})
	t.index[RootID] = RootHandle
	return t
}

// Add inserts item under parent and returns its handle. A repeated id
// rebinds the id to the newest node; the older node stays in place.
func (t *Tree) Add(parent Handle, id string, item Item) Handle {
	if !t.valid(parent) {
		parent = RootHandle
	}
	h := Handle(len(t.nodes))
	t.nodes = append(t.nodes, Node{Handle: h, ID: id, Parent: parent, Item: item})
	t.children[parent] = append(t.children[parent], h)
	if id != "" {
		t.index[id] = h
	}
	return h
}

// Len returns the number of nodes below the root.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes) - 1
}

// Node returns the node at h.
func (t *Tree) Node(h Handle) (Node, bool) {
	if t == nil || !t.valid(h) {
		return Node{}, false
	}
	return t.nodes[h], true
}

// Find returns the node most recently registered under id.
func (t *Tree) Find(id string) (Node, bool) {
	if t == nil {
		return Node{}, false
	}
	h, ok := t.index[id]
	if !ok {
		return Node{}, false
	}
	return t.nodes[h], true
}

// Children returns the children of h in insertion order.
func (t *Tree) Children(h Handle) []Node {
	if t == nil {
		return nil
	}
	hs := t.children[h]
	out := make([]Node, 0, len(hs))
	for _, c := range hs {
		out = append(out, t.nodes[c])
	}
	return out
}

// Walk visits every node below the root depth-first in display order.
func (t *Tree) Walk(fn func(n Node, depth int) bool) {
	if t == nil {
		return
	}
	var visit func(h Handle, depth int) bool
	visit = func(h Handle, depth int) bool {
		for _, c := range t.children[h] {
			if !fn(t.nodes[c], depth) {
				return false
			}
			if !visit(c, depth+1) {
				return false
			}
		}
		return true
	}
	visit(RootHandle, 0)
}

// Validate checks that every non-root node has exactly one existing parent
// and that no node is its own ancestor.
func (t *Tree) Validate() error {
	if t == nil || len(t.nodes) == 0 {
		return fmt.Errorf("tree has no root")
	}
	seen := make(map[Handle]Handle, len(t.nodes))
	for parent, hs := range t.children {
		for _, h := range hs {
			if prev, dup := seen[h]; dup {
				return fmt.Errorf("node %d has parents %d and %d", h, prev, parent)
			}
			seen[h] = parent
		}
	}
	for _, n := range t.nodes[1:] {
		if seen[n.Handle] != n.Parent {
			return fmt.Errorf("node %d parent edge mismatch", n.Handle)
		}
		steps := 0
		for p := n.Parent; p != RootHandle; p = t.nodes[p].Parent {
			if p == n.Handle || !t.valid(p) || steps > len(t.nodes) {
				return fmt.Errorf("node %d is its own ancestor", n.Handle)
			}
			steps++
		}
	}
	return nil
}

// Render returns an indented dump of the tree.
func (t *Tree) Render() string {
	var b strings.Builder
	b.WriteString("Root\n")
	t.Walk(func(n Node, depth int) bool {
		b.WriteString(strings.Repeat("  ", depth+1))
		switch {
		case n.Item.Separator:
			b.WriteString("--")
		default:
			b.WriteString(n.Item.Label)
		}
		if n.Item.Action != "" {
			fmt.Fprintf(&b, " [%s]", n.Item.Action)
		}
		if !n.Item.Enabled {
			b.WriteString(" (disabled)")
		}
		if n.Item.Checked != ToggleOff {
			fmt.Fprintf(&b, " (%s)", n.Item.Checked)
		}
		if n.Item.Accel != "" {
			fmt.Fprintf(&b, " <%s>", n.Item.Accel)
		}
		b.WriteByte('\n')
		return true
	})
	return b.String()
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return NewTree()
	}
	out := &Tree{
		nodes:    make([]Node, len(t.nodes)),
		children: make(map[Handle][]Handle, len(t.children)),
		index:    make(map[string]Handle, len(t.index)),
	}
	for i, n := range t.nodes {
		n.Item = n.Item.clone()
		out.nodes[i] = n
	}
	for h, cs := range t.children {
		out.children[h] = append([]Handle(nil), cs...)
	}
	for id, h := range t.index {
		out.index[id] = h
	}
	return out
}

func (t *Tree) item(h Handle) *Item {
	if !t.valid(h) {
		return nil
	}
	return &t.nodes[h].Item
}

func (t *Tree) valid(h Handle) bool {
	return h >= 0 && int(h) < len(t.nodes)
}
