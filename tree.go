package treediff

import (
	"fmt"
	"iter"
)

// NodeID is a handle into the arena of one Tree. It is only meaningful for
// the Tree that issued it.
type NodeID int

// InvalidNode is returned where no node exists (e.g. the parent of a root).
const InvalidNode NodeID = -1

// Kind is the coarse type of a node. Nodes of different kinds are never
// matched to each other.
type Kind string

// Property is an out-of-band attribute of a node. Properties are not part of
// the structural hash; changes to them surface as UpdateProperty ops.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NodeData is the payload stored for every node of a Tree.
type NodeData struct {
	Hash     uint64
	Kind     Kind
	Label    string
	HasLabel bool
	Props    []Property
}

// Prop returns the value of the property named key.
func (d NodeData) Prop(key string) (string, bool) {
	for _, p := range d.Props {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

type treeNode struct {
	data     NodeData
	parent   NodeID
	children []NodeID
}

// Tree is an arena-backed ordered tree. Parent and child links are stored as
// indices, so the structure is acyclic by construction.
type Tree struct {
	nodes []treeNode
	root  NodeID
}

// NewTree creates a tree holding a single root node.
func NewTree(root NodeData) *Tree {
	return &Tree{
		nodes: []treeNode{{data: root, parent: InvalidNode}},
		root:  0,
	}
}

// Root returns the root node.
func (t *Tree) Root() NodeID { return t.root }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

func (t *Tree) node(id NodeID) *treeNode {
	if !t.valid(id) {
		panic(fmt.Sprintf("treediff: node %d does not belong to this tree (len %d)", id, len(t.nodes)))
	}
	return &t.nodes[id]
}

// AddChild appends a new child at the end of parent's children.
// It panics if parent is not a node of t.
func (t *Tree) AddChild(parent NodeID, data NodeData) NodeID {
	p := t.node(parent)
	id := NodeID(len(t.nodes))
	p.children = append(p.children, id)
	t.nodes = append(t.nodes, treeNode{data: data, parent: parent})
	return id
}

// Data returns the payload of id.
func (t *Tree) Data(id NodeID) NodeData { return t.node(id).data }

func (t *Tree) Kind(id NodeID) Kind { return t.node(id).data.Kind }

func (t *Tree) Hash(id NodeID) uint64 { return t.node(id).data.Hash }

func (t *Tree) Props(id NodeID) []Property { return t.node(id).data.Props }

// Label returns the label of id and whether it has one.
func (t *Tree) Label(id NodeID) (string, bool) {
	d := t.node(id).data
	return d.Label, d.HasLabel
}

// Parent returns the parent of id, or false for the root.
func (t *Tree) Parent(id NodeID) (NodeID, bool) {
	p := t.node(id).parent
	return p, p != InvalidNode
}

// Children returns the children of id in insertion order. The returned
// slice must not be modified.
func (t *Tree) Children(id NodeID) []NodeID { return t.node(id).children }

func (t *Tree) ChildCount(id NodeID) int { return len(t.node(id).children) }

// Position returns the index of id among its siblings, 0 for the root.
func (t *Tree) Position(id NodeID) int {
	parent, ok := t.Parent(id)
	if !ok {
		return 0
	}
	for i, c := range t.nodes[parent].children {
		if c == id {
			return i
		}
	}
	return 0
}

// Height is the length of the longest path from id down to a leaf.
func (t *Tree) Height(id NodeID) int {
	h := 0
	for _, c := range t.node(id).children {
		if ch := t.Height(c) + 1; ch > h {
			h = ch
		}
	}
	return h
}

// Size returns the number of nodes in the subtree rooted at id.
func (t *Tree) Size(id NodeID) int {
	n := 1
	for _, c := range t.node(id).children {
		n += t.Size(c)
	}
	return n
}

// IsAncestor reports whether anc is a proper ancestor of id.
func (t *Tree) IsAncestor(anc, id NodeID) bool {
	for p, ok := t.Parent(id); ok; p, ok = t.Parent(p) {
		if p == anc {
			return true
		}
	}
	return false
}

// PostOrder visits every node, children before their parent.
func (t *Tree) PostOrder() iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		t.postOrder(t.root, yield)
	}
}

func (t *Tree) postOrder(id NodeID, yield func(NodeID) bool) bool {
	for _, c := range t.nodes[id].children {
		if !t.postOrder(c, yield) {
			return false
		}
	}
	return yield(id)
}

// PreOrder visits every node, parents before their children.
func (t *Tree) PreOrder() iter.Seq[NodeID] { return t.Descendants(t.root) }

// Iter is an alias of PreOrder.
func (t *Tree) Iter() iter.Seq[NodeID] { return t.PreOrder() }

// Descendants visits the subtree rooted at id in pre-order, id included.
func (t *Tree) Descendants(id NodeID) iter.Seq[NodeID] {
	t.node(id)
	return func(yield func(NodeID) bool) {
		t.preOrder(id, yield)
	}
}

func (t *Tree) preOrder(id NodeID, yield func(NodeID) bool) bool {
	if !yield(id) {
		return false
	}
	for _, c := range t.nodes[id].children {
		if !t.preOrder(c, yield) {
			return false
		}
	}
	return true
}

// preOrderIndex numbers the nodes of t in pre-order.
func (t *Tree) preOrderIndex() []int {
	idx := make([]int, len(t.nodes))
	i := 0
	for id := range t.PreOrder() {
		idx[id] = i
		i++
	}
	return idx
}

// heights computes Height for every node in one pass.
func (t *Tree) heights() []int {
	h := make([]int, len(t.nodes))
	for id := range t.PostOrder() {
		for _, c := range t.nodes[id].children {
			if h[c]+1 > h[id] {
				h[id] = h[c] + 1
			}
		}
	}
	return h
}
