// Package navtree holds the immutable model of a Doxygen navigation tree:
// the menu nodes, the flat shard index and the per-shard breadcrumb tables.
package navtree

import (
	"encoding/json"
	"fmt"
)

// File and variable names used by the generated navigation scripts.
const (
	DataFile   = "navtreedata.js"
	TreeVar    = "NAVTREE"
	IndexVar   = "NAVTREEINDEX"
	SyncOnVar  = "SYNCONMSG"
	SyncOffVar = "SYNCOFFMSG"
)

// ShardFile returns the script holding shard i.
func ShardFile(i int) string {
	return fmt.Sprintf("navtreeindex%d.js", i)
}

// ShardVar returns the variable declared by ShardFile(i).
func ShardVar(i int) string {
	return fmt.Sprintf("%s%d", IndexVar, i)
}

// LazyFile returns the script that defines the children behind ref.
func LazyFile(ref string) string {
	return ref + ".js"
}

// Kind says how a node's children are stored.
type Kind int

const (
	Leaf   Kind = iota // no children (JS null)
	Inline             // children listed in place
	Lazy               // children live in LazyFile(Ref())
)

func (k Kind) String() string {
	switch k {
	case Leaf:
		return "leaf"
	case Inline:
		return "inline"
	case Lazy:
		return "lazy"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one menu entry. Nodes are immutable once built.
type Node struct {
	label    string
	target   string
	kind     Kind
	ref      string
	children []*Node
}

// NewLeaf returns a node without children.
func NewLeaf(label, target string) *Node {
	return &Node{label: label, target: target, kind: Leaf}
}

// NewBranch returns a node with inline children. The slice is copied.
func NewBranch(label, target string, children []*Node) *Node {
	c := make([]*Node, len(children))
	copy(c, children)
	return &Node{label: label, target: target, kind: Inline, children: c}
}

// NewLazy returns a node whose children are loaded from LazyFile(ref).
func NewLazy(label, target, ref string) *Node {
	return &Node{label: label, target: target, kind: Lazy, ref: ref}
}

func (n *Node) Label() string { return n.label }
func (n *Node) Target() string { return n.target }
func (n *Node) Kind() Kind { return n.kind }

// Ref is the lazy child reference, empty unless Kind() == Lazy.
func (n *Node) Ref() string { return n.ref }

// NumChildren counts inline children.
func (n *Node) NumChildren() int { return len(n.children) }

// Child returns inline child i.
func (n *Node) Child(i int) *Node { return n.children[i] }

// Children returns a copy of the inline children.
func (n *Node) Children() []*Node {
	if len(n.children) == 0 {
		return nil
	}
	c := make([]*Node, len(n.children))
	copy(c, n.children)
	return c
}

type nodeJSON struct {
	Label    string  `json:"label"`
	Target   string  `json:"target"`
	Lazy     string  `json:"lazy,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		Label:    n.label,
		Target:   n.target,
		Lazy:     n.ref,
		Children: n.children,
	})
}

// SyncMessages are the two labels of the sync toggle.
type SyncMessages struct {
	On  string `json:"on"`
	Off string `json:"off"`
}

// Tree is a loaded navtreedata.js.
type Tree struct {
	roots []*Node
	index Index
	sync  SyncMessages
}

// New builds a tree. roots must not be empty.
func New(roots []*Node, index Index, sync SyncMessages) (*Tree, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("navtree: no root node")
	}
	r := make([]*Node, len(roots))
	copy(r, roots)
	return &Tree{roots: r, index: index, sync: sync}, nil
}

// Root is the node the renderer shows: the first top-level entry.
func (t *Tree) Root() *Node { return t.roots[0] }

// Roots returns every top-level entry.
func (t *Tree) Roots() []*Node {
	r := make([]*Node, len(t.roots))
	copy(r, t.roots)
	return r
}

func (t *Tree) Index() Index { return t.index }
func (t *Tree) Sync() SyncMessages { return t.sync }
func (t *Tree) RootTarget() string { return t.roots[0].target }
func (t *Tree) ProjectName() string { return t.roots[0].label }

// WalkFunc is called for every node reached through inline children.
// path holds positions starting with the top-level entry.
type WalkFunc func(path []int, n *Node) error

// Walk visits nodes depth-first. Lazy children are not followed.
func (t *Tree) Walk(fn WalkFunc) error {
	for i, r := range t.roots {
		if err := walk([]int{i}, r, fn); err != nil {
			return err
		}
	}
	return nil
}

func walk(path []int, n *Node, fn WalkFunc) error {
	if err := fn(path, n); err != nil {
		return err
	}
	for i, c := range n.children {
		p := make([]int, len(path)+1)
		copy(p, path)
		p[len(path)] = i
		if err := walk(p, c, fn); err != nil {
			return err
		}
	}
	return nil
}

// NodeAt follows path through inline children only.
func (t *Tree) NodeAt(path []int) (*Node, bool) {
	if len(path) == 0 || path[0] < 0 || path[0] >= len(t.roots) {
		return nil, false
	}
	n := t.roots[path[0]]
	for _, i := range path[1:] {
		if i < 0 || i >= len(n.children) {
			return nil, false
		}
		n = n.children[i]
	}
	return n, true
}

func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Roots []*Node      `json:"roots"`
		Index []string     `json:"index"`
		Sync  SyncMessages `json:"sync"`
	}{t.roots, t.index.Keys(), t.sync})
}
