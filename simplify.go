package treediff

// Simplify drops the Insert, Delete and Move ops that are implied by an op
// of the same kind on the node's parent: inserting, deleting or moving a
// node carries its whole subtree. Parents are looked up in b for Insert and
// Move and in a for Delete. Update and UpdateProperty ops are always kept.
// The relative order of the remaining ops is preserved.
func Simplify(ops []EditOp, a, b *Tree) []EditOp {
	carriers := map[OpType]map[NodeID]bool{
		OpInsert: {},
		OpDelete: {},
		OpMove:   {},
	}
	for _, op := range ops {
		if set, ok := carriers[op.Type]; ok {
			set[op.Node] = true
		}
	}

	out := make([]EditOp, 0, len(ops))
	for _, op := range ops {
		set, ok := carriers[op.Type]
		if !ok {
			out = append(out, op)
			continue
		}
		t := b
		if op.Type == OpDelete {
			t = a
		}
		if p, hasParent := t.Parent(op.Node); hasParent && set[p] {
			continue
		}
		out = append(out, op)
	}
	return out
}
