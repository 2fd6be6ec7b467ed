package treediff

// Equal reports whether a and b have the same shape, kinds and labels, and
// the same properties on every node. Property order is ignored.
func Equal(a, b *Tree) bool {
	return equalNode(a, a.Root(), b, b.Root())
}

func equalNode(a *Tree, x NodeID, b *Tree, y NodeID) bool {
	dx, dy := a.Data(x), b.Data(y)
	if dx.Kind != dy.Kind || dx.HasLabel != dy.HasLabel || dx.Label != dy.Label {
		return false
	}
	if len(dx.Props) != len(dy.Props) {
		return false
	}
	for _, p := range dx.Props {
		if v, ok := dy.Prop(p.Key); !ok || v != p.Value {
			return false
		}
	}
	cx, cy := a.Children(x), b.Children(y)
	if len(cx) != len(cy) {
		return false
	}
	for i := range cx {
		if !equalNode(a, cx[i], b, cy[i]) {
			return false
		}
	}
	return true
}
