package treediff

import (
	"fmt"
	"sort"

	"znkr.io/diff"
)

type OpType string

const (
	OpInsert         OpType = "INSERT"          // B node without an A counterpart
	OpDelete         OpType = "DELETE"          // A node without a B counterpart
	OpMove           OpType = "MOVE"            // Matched node with a new parent or position
	OpUpdate         OpType = "UPDATE"          // Matched leaf whose label changed
	OpUpdateProperty OpType = "UPDATE_PROPERTY" // Matched node whose property changed
)

// EditOp is one step of an edit script. Insert, Move, Update and
// UpdateProperty reference B-side nodes (the target state); Delete
// references an A-side node.
type EditOp struct {
	Type     OpType `json:"type"`
	Node     NodeID `json:"node"`
	Parent   NodeID `json:"parent"`   // Insert/Move: B-side parent, -1 for none
	Position int    `json:"position"` // Insert/Move: index under Parent
	Kind     Kind   `json:"kind,omitempty"`
	Label    string `json:"label,omitempty"`
	OldLabel string `json:"old_label,omitempty"`
	NewLabel string `json:"new_label,omitempty"`
	Key      string `json:"key,omitempty"`       // UpdateProperty: property name
	OldValue string `json:"old_value,omitempty"` // UpdateProperty: previous value
	NewValue string `json:"new_value,omitempty"` // UpdateProperty: new value
	Removed  bool   `json:"removed,omitempty"`   // UpdateProperty: the property was removed
}

func (op EditOp) String() string {
	switch op.Type {
	case OpInsert:
		return fmt.Sprintf("%s %d (%s) under %d at %d", op.Type, op.Node, op.Kind, op.Parent, op.Position)
	case OpDelete:
		return fmt.Sprintf("%s %d (%s)", op.Type, op.Node, op.Kind)
	case OpMove:
		return fmt.Sprintf("%s %d to %d at %d", op.Type, op.Node, op.Parent, op.Position)
	case OpUpdate:
		return fmt.Sprintf("%s %d %q -> %q", op.Type, op.Node, op.OldLabel, op.NewLabel)
	case OpUpdateProperty:
		if op.Removed {
			return fmt.Sprintf("%s %d remove %s", op.Type, op.Node, op.Key)
		}
		return fmt.Sprintf("%s %d %s=%q", op.Type, op.Node, op.Key, op.NewValue)
	}
	return string(op.Type)
}

// BuildScript derives the edit script from the matching between a and b.
//
// Deletes come first in post-order of a, so a subtree is emptied before its
// root goes. Inserts follow in pre-order of b, so a parent always exists
// before its children. Moves and updates come last.
func BuildScript(a, b *Tree, m *Matching) []EditOp {
	var ops []EditOp

	for id := range a.PostOrder() {
		if m.MatchedA(id) {
			continue
		}
		d := a.Data(id)
		ops = append(ops, EditOp{
			Type:     OpDelete,
			Node:     id,
			Parent:   parentOrInvalid(a, id),
			Position: a.Position(id),
			Kind:     d.Kind,
			Label:    d.Label,
		})
	}

	for id := range b.PreOrder() {
		if m.MatchedB(id) {
			continue
		}
		d := b.Data(id)
		ops = append(ops, EditOp{
			Type:     OpInsert,
			Node:     id,
			Parent:   parentOrInvalid(b, id),
			Position: b.Position(id),
			Kind:     d.Kind,
			Label:    d.Label,
		})
	}

	inOrder := alignedChildren(a, b, m)
	for id := range b.PreOrder() {
		src, ok := m.ToA(id)
		if !ok {
			continue
		}
		if moved(a, b, m, src, id, inOrder) {
			ops = append(ops, EditOp{
				Type:     OpMove,
				Node:     id,
				Parent:   parentOrInvalid(b, id),
				Position: b.Position(id),
				Kind:     b.Kind(id),
			})
		}
		oldLabel, _ := a.Label(src)
		newLabel, _ := b.Label(id)
		if oldLabel != newLabel {
			ops = append(ops, EditOp{
				Type:     OpUpdate,
				Node:     id,
				Kind:     b.Kind(id),
				OldLabel: oldLabel,
				NewLabel: newLabel,
			})
		}
		ops = append(ops, diffProps(id, a.Data(src), b.Data(id))...)
	}
	return ops
}

func parentOrInvalid(t *Tree, id NodeID) NodeID {
	p, ok := t.Parent(id)
	if !ok {
		return InvalidNode
	}
	return p
}

// moved reports whether the matched pair (src, dst) changed place: either
// its parent is not the partner of its old parent, or it fell out of the
// longest common subsequence of its aligned siblings.
func moved(a, b *Tree, m *Matching, src, dst NodeID, inOrder map[NodeID]bool) bool {
	pa, okA := a.Parent(src)
	pb, okB := b.Parent(dst)
	if !okA || !okB {
		return okA != okB
	}
	if p, ok := m.ToB(pa); !ok || p != pb {
		return true
	}
	return !inOrder[dst]
}

// alignedChildren marks, for every matched parent pair, the B children that
// keep their relative order: the matched run of a minimal diff between the
// old and new sibling sequences.
func alignedChildren(a, b *Tree, m *Matching) map[NodeID]bool {
	inOrder := make(map[NodeID]bool)
	for pa, pb := range m.Pairs() {
		var seqA, seqB []NodeID
		for _, c := range a.Children(pa) {
			if p, ok := m.ToB(c); ok && parentOrInvalid(b, p) == pb {
				seqA = append(seqA, p)
			}
		}
		for _, c := range b.Children(pb) {
			if p, ok := m.ToA(c); ok && parentOrInvalid(a, p) == pa {
				seqB = append(seqB, c)
			}
		}
		for _, e := range diff.Edits(seqA, seqB) {
			if e.Op == diff.Match {
				inOrder[e.Y] = true
			}
		}
	}
	return inOrder
}

// diffProps compares properties key by key. Keys are visited in sorted
// order so scripts are deterministic.
func diffProps(node NodeID, from, to NodeData) []EditOp {
	var ops []EditOp
	keys := make(map[string]struct{})
	for _, p := range from.Props {
		keys[p.Key] = struct{}{}
	}
	for _, p := range to.Props {
		keys[p.Key] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		vOld, inOld := from.Prop(k)
		vNew, inNew := to.Prop(k)
		switch {
		case inOld && !inNew:
			ops = append(ops, EditOp{Type: OpUpdateProperty, Node: node, Kind: to.Kind, Key: k, OldValue: vOld, Removed: true})
		case !inOld || vOld != vNew:
			ops = append(ops, EditOp{Type: OpUpdateProperty, Node: node, Kind: to.Kind, Key: k, OldValue: vOld, NewValue: vNew})
		}
	}
	return ops
}
