package treediff

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrRootMismatch is returned when the roots of the two trees are not
// matched to each other; the root of a document cannot be replaced.
var ErrRootMismatch = errors.New("tree roots are not matched")

// shadowNode mirrors one node of the concrete tree while patches are being
// generated, so every path is computed against the state the applier will
// see when it reaches that patch.
type shadowNode struct {
	a, b     NodeID // A-side and B-side identity, InvalidNode when absent
	parent   *shadowNode
	children []*shadowNode
	slot     int // slot holding this node, -1 when not a slot root
	placed   bool
	removed  bool
}

func newShadow(a, b NodeID) *shadowNode {
	return &shadowNode{a: a, b: b, slot: -1}
}

func (s *shadowNode) index() int {
	if s.parent == nil {
		return -1
	}
	for i, c := range s.parent.children {
		if c == s {
			return i
		}
	}
	return -1
}

func (s *shadowNode) insertChild(c *shadowNode, pos int) {
	s.children = append(s.children, nil)
	copy(s.children[pos+1:], s.children[pos:])
	s.children[pos] = c
	c.parent = s
}

type translator struct {
	a, b     *Tree
	m        *Matching
	log      logrus.FieldLogger
	root     *shadowNode
	ofA      []*shadowNode
	ofB      []*shadowNode
	slots    map[int]*shadowNode
	nextSlot int
	inserts  map[NodeID]EditOp
	changes  map[NodeID][]EditOp
	carried  map[NodeID]bool
	patches  []Patch
}

// Translate turns an edit script between a and b into HTML patches that can
// be applied, in order, to the document a was built from.
//
// Deletes run first; matched descendants of a deleted node are parked in
// slots beforehand. Then b is walked in pre-order and every node is put at
// its final index under its already placed parent, so all indices before it
// are final. Inserted nodes carry the inserted descendants that have no op
// of their own. Updates are emitted once their node is in place.
func Translate(ops []EditOp, a, b *Tree, m *Matching, opts ...Option) ([]Patch, error) {
	o := newOptions(opts)
	if p, ok := m.ToB(a.Root()); !ok || p != b.Root() {
		return nil, ErrRootMismatch
	}

	tr := &translator{
		a:       a,
		b:       b,
		m:       m,
		log:     o.Logger,
		ofA:     make([]*shadowNode, a.Len()),
		ofB:     make([]*shadowNode, b.Len()),
		slots:   make(map[int]*shadowNode),
		inserts: make(map[NodeID]EditOp),
		changes: make(map[NodeID][]EditOp),
		carried: make(map[NodeID]bool),
	}
	tr.root = tr.mirror(a.Root(), nil)
	tr.root.placed = true

	var deletes []EditOp
	for i, op := range ops {
		switch op.Type {
		case OpDelete:
			if !a.valid(op.Node) {
				return nil, fmt.Errorf("op %d (%s): unknown node %d", i, op.Type, op.Node)
			}
			deletes = append(deletes, op)
		case OpInsert:
			if !b.valid(op.Node) {
				return nil, fmt.Errorf("op %d (%s): unknown node %d", i, op.Type, op.Node)
			}
			if op.Parent != parentOrInvalid(b, op.Node) || op.Position != b.Position(op.Node) {
				return nil, fmt.Errorf("op %d (%s): node %d is not at %d@%d", i, op.Type, op.Node, op.Parent, op.Position)
			}
			tr.inserts[op.Node] = op
		case OpUpdate, OpUpdateProperty:
			if !b.valid(op.Node) || !m.MatchedB(op.Node) {
				return nil, fmt.Errorf("op %d (%s): node %d is not matched", i, op.Type, op.Node)
			}
			tr.changes[op.Node] = append(tr.changes[op.Node], op)
		case OpMove:
			// Placement is derived from b itself, which also covers moves
			// folded into an ancestor's move by Simplify.
			if !b.valid(op.Node) || !m.MatchedB(op.Node) {
				return nil, fmt.Errorf("op %d (%s): node %d is not matched", i, op.Type, op.Node)
			}
		default:
			return nil, fmt.Errorf("op %d: unknown operation type: %s", i, op.Type)
		}
	}

	for _, op := range deletes {
		if err := tr.remove(op.Node); err != nil {
			return nil, fmt.Errorf("delete %d: %w", op.Node, err)
		}
	}
	for id := range a.PreOrder() {
		if !m.MatchedA(id) && !tr.ofA[id].removed {
			return nil, fmt.Errorf("node %d (%s) has no counterpart and is not deleted", id, a.Kind(id))
		}
	}

	for id := range b.PreOrder() {
		if id == b.Root() || tr.carried[id] {
			continue
		}
		if err := tr.place(id); err != nil {
			return nil, fmt.Errorf("place %d (%s): %w", id, b.Kind(id), err)
		}
		if err := tr.update(id); err != nil {
			return nil, fmt.Errorf("update %d: %w", id, err)
		}
	}

	tr.log.WithFields(logrus.Fields{
		"ops":     len(ops),
		"patches": len(tr.patches),
		"slots":   tr.nextSlot,
	}).Debug("translated edit script")
	return tr.patches, nil
}

func (tr *translator) mirror(id NodeID, parent *shadowNode) *shadowNode {
	partner, _ := tr.m.ToB(id)
	s := newShadow(id, partner)
	s.parent = parent
	tr.ofA[id] = s
	if partner != InvalidNode {
		tr.ofB[partner] = s
	}
	for _, c := range tr.a.Children(id) {
		s.children = append(s.children, tr.mirror(c, s))
	}
	return s
}

// ref addresses s as the applier will find it: a path from the root, or a
// path from the root of the slot subtree s sits in.
func (tr *translator) ref(s *shadowNode) (NodeRef, error) {
	var path NodePath
	cur := s
	for cur.parent != nil {
		path = append(path, cur.index())
		cur = cur.parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	switch {
	case cur == tr.root:
		return PathRef(path), nil
	case cur.slot >= 0:
		ref := SlotRef(cur.slot)
		ref.Path = path
		return ref, nil
	}
	return NodeRef{}, errors.New("node is detached")
}

func (tr *translator) path(s *shadowNode) (NodePath, error) {
	ref, err := tr.ref(s)
	if err != nil {
		return nil, err
	}
	if ref.Slot != nil {
		return nil, fmt.Errorf("node is held in slot %d", *ref.Slot)
	}
	if ref.Path == nil {
		return NodePath{}, nil
	}
	return ref.Path, nil
}

func (tr *translator) detach(s *shadowNode) {
	if s.slot >= 0 {
		delete(tr.slots, s.slot)
		s.slot = -1
		return
	}
	i := s.index()
	s.parent.children = append(s.parent.children[:i], s.parent.children[i+1:]...)
	s.parent = nil
}

func (tr *translator) park(s *shadowNode) int {
	n := tr.nextSlot
	tr.nextSlot++
	s.slot = n
	tr.slots[n] = s
	return n
}

func (tr *translator) remove(id NodeID) error {
	if tr.m.MatchedA(id) {
		return errors.New("node is matched")
	}
	s := tr.ofA[id]
	if s.removed {
		// Already gone with an ancestor.
		return nil
	}

	var keep []*shadowNode
	var collect func(n *shadowNode)
	collect = func(n *shadowNode) {
		for _, c := range n.children {
			if c.b != InvalidNode {
				keep = append(keep, c)
				continue
			}
			collect(c)
		}
	}
	collect(s)
	for _, k := range keep {
		ref, err := tr.ref(k)
		if err != nil {
			return err
		}
		tr.detach(k)
		slot := tr.park(k)
		tr.emit(Patch{Type: PatchDetach, Node: &ref, Slot: &slot})
	}

	ref, err := tr.ref(s)
	if err != nil {
		return err
	}
	tr.detach(s)
	tr.emit(Patch{Type: PatchRemove, Node: &ref})

	var mark func(n *shadowNode)
	mark = func(n *shadowNode) {
		n.removed = true
		for _, c := range n.children {
			mark(c)
		}
	}
	mark(s)
	return nil
}

// target returns the placed shadow of id's parent in b.
func (tr *translator) target(id NodeID) (*shadowNode, error) {
	pb, _ := tr.b.Parent(id)
	parent := tr.ofB[pb]
	if parent == nil || !parent.placed {
		return nil, fmt.Errorf("parent %d is not in place", pb)
	}
	return parent, nil
}

// displace parks the node at parent.children[pos] when it is still waiting
// for its own turn and belongs under another parent.
func (tr *translator) displace(parent *shadowNode, pos int) *int {
	if pos >= len(parent.children) {
		return nil
	}
	occ := parent.children[pos]
	if occ.placed || occ.b == InvalidNode {
		return nil
	}
	pb, _ := tr.b.Parent(occ.b)
	if tr.ofB[pb] == parent {
		return nil
	}
	tr.detach(occ)
	slot := tr.park(occ)
	return &slot
}

func (tr *translator) place(id NodeID) error {
	parent, err := tr.target(id)
	if err != nil {
		return err
	}
	pos := tr.b.Position(id)

	if _, ok := tr.m.ToA(id); ok {
		s := tr.ofB[id]
		if s.removed {
			return errors.New("matched node was removed")
		}
		if s.parent == parent && s.index() == pos {
			s.placed = true
			return nil
		}
		src, err := tr.ref(s)
		if err != nil {
			return err
		}
		tr.detach(s)
		if pos > len(parent.children) {
			return fmt.Errorf("position %d past the end of %d children", pos, len(parent.children))
		}
		slot := tr.displace(parent, pos)
		dst, err := tr.path(parent)
		if err != nil {
			return err
		}
		parent.insertChild(s, pos)
		s.placed = true
		tr.emit(Patch{Type: PatchMove, Node: &src, Parent: dst, Position: pos, Slot: slot})
		return nil
	}

	if _, ok := tr.inserts[id]; !ok {
		return errors.New("node has no counterpart and is not inserted")
	}
	if pos > len(parent.children) {
		return fmt.Errorf("position %d past the end of %d children", pos, len(parent.children))
	}
	frag, s := tr.build(id)
	slot := tr.displace(parent, pos)
	dst, err := tr.path(parent)
	if err != nil {
		return err
	}
	parent.insertChild(s, pos)

	p := Patch{Parent: dst, Position: pos, Slot: slot}
	switch frag.Type {
	case FragmentElement:
		p.Type, p.Tag, p.Attrs, p.Children = PatchInsertElement, frag.Tag, frag.Attrs, frag.Children
	case FragmentText:
		p.Type, p.Text = PatchInsertText, frag.Text
	case FragmentComment:
		p.Type, p.Text = PatchInsertComment, frag.Text
	case FragmentDoctype:
		p.Type, p.Text, p.Attrs = PatchInsertDoctype, frag.Text, frag.Attrs
	}
	tr.emit(p)
	return nil
}

// build creates the fragment and shadow subtree for an inserted node. Its
// children without an Insert op of their own are carried along.
func (tr *translator) build(id NodeID) (Fragment, *shadowNode) {
	frag := fragmentOf(tr.b, id)
	s := newShadow(InvalidNode, id)
	s.placed = true
	tr.ofB[id] = s
	for _, c := range tr.b.Children(id) {
		if tr.m.MatchedB(c) {
			continue
		}
		if _, own := tr.inserts[c]; own {
			continue
		}
		tr.carried[c] = true
		cf, cs := tr.build(c)
		frag.Children = append(frag.Children, cf)
		s.children = append(s.children, cs)
		cs.parent = s
	}
	return frag, s
}

func (tr *translator) update(id NodeID) error {
	changes := tr.changes[id]
	if len(changes) == 0 {
		return nil
	}
	path, err := tr.path(tr.ofB[id])
	if err != nil {
		return err
	}
	for _, op := range changes {
		switch {
		case op.Type == OpUpdate:
			tr.emit(Patch{Type: PatchSetText, Path: path, Text: op.NewLabel})
		case op.Removed:
			tr.emit(Patch{Type: PatchRemoveAttribute, Path: path, Name: op.Key})
		default:
			tr.emit(Patch{Type: PatchSetAttribute, Path: path, Name: op.Key, Value: op.NewValue})
		}
	}
	return nil
}

func (tr *translator) emit(p Patch) {
	tr.log.WithField("patch", p.String()).Trace("emit patch")
	tr.patches = append(tr.patches, p)
}
