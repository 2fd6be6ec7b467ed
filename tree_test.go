package treediff

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func elem(kind Kind) NodeData { return NodeData{Kind: kind} }

func leaf(kind Kind, label string) NodeData {
	return NodeData{Kind: kind, Label: label, HasLabel: true}
}

// sampleTree builds root[parent[child("a"), child("b")], child("a")].
func sampleTree() *Tree {
	t := NewTree(elem("root"))
	p := t.AddChild(t.Root(), elem("parent"))
	t.AddChild(p, leaf("child", "a"))
	t.AddChild(p, leaf("child", "b"))
	t.AddChild(t.Root(), leaf("child", "a"))
	t.UpdateHashes()
	return t
}

func TestTreeTraversal(t *testing.T) {
	tr := sampleTree()

	if diff := cmp.Diff([]NodeID{0, 1, 2, 3, 4}, slices.Collect(tr.PreOrder())); diff != "" {
		t.Errorf("PreOrder mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]NodeID{2, 3, 1, 4, 0}, slices.Collect(tr.PostOrder())); diff != "" {
		t.Errorf("PostOrder mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]NodeID{1, 2, 3}, slices.Collect(tr.Descendants(1))); diff != "" {
		t.Errorf("Descendants mismatch (-want +got):\n%s", diff)
	}
	// Iterators are restartable.
	if got := len(slices.Collect(tr.Iter())); got != tr.Len() {
		t.Errorf("Iter visited %d nodes, want %d", got, tr.Len())
	}

	var visited []NodeID
	for id := range tr.PreOrder() {
		if id == 2 {
			break
		}
		visited = append(visited, id)
	}
	if diff := cmp.Diff([]NodeID{0, 1}, visited); diff != "" {
		t.Errorf("early break mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeShape(t *testing.T) {
	tr := sampleTree()

	tests := []struct {
		id       NodeID
		height   int
		size     int
		position int
	}{
		{id: 0, height: 2, size: 5, position: 0},
		{id: 1, height: 1, size: 3, position: 0},
		{id: 3, height: 0, size: 1, position: 1},
		{id: 4, height: 0, size: 1, position: 1},
	}
	for _, tt := range tests {
		if got := tr.Height(tt.id); got != tt.height {
			t.Errorf("Height(%d) = %d, want %d", tt.id, got, tt.height)
		}
		if got := tr.Size(tt.id); got != tt.size {
			t.Errorf("Size(%d) = %d, want %d", tt.id, got, tt.size)
		}
		if got := tr.Position(tt.id); got != tt.position {
			t.Errorf("Position(%d) = %d, want %d", tt.id, got, tt.position)
		}
	}

	if _, ok := tr.Parent(tr.Root()); ok {
		t.Error("root should have no parent")
	}
	if p, ok := tr.Parent(3); !ok || p != 1 {
		t.Errorf("Parent(3) = %d, %v; want 1, true", p, ok)
	}
	if !tr.IsAncestor(0, 3) || tr.IsAncestor(4, 3) || tr.IsAncestor(3, 3) {
		t.Error("IsAncestor gave a wrong answer")
	}
}

func TestAddChildInvalidParent(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected AddChild to panic on an unknown parent")
		}
	}()
	tr := NewTree(elem("root"))
	tr.AddChild(42, elem("x"))
}

func TestUpdateHashes(t *testing.T) {
	a := sampleTree()
	b := sampleTree()
	if a.Hash(a.Root()) != b.Hash(b.Root()) {
		t.Error("identical trees should hash the same")
	}
	if a.Hash(2) != a.Hash(4) {
		t.Error("identical leaves should hash the same")
	}
	if a.Hash(2) == a.Hash(3) {
		t.Error("leaves with different labels should hash differently")
	}

	withProps := NewTree(elem("root"))
	p := withProps.AddChild(withProps.Root(), NodeData{Kind: "parent", Props: []Property{{Key: "id", Value: "x"}}})
	withProps.AddChild(p, leaf("child", "a"))
	withProps.AddChild(p, leaf("child", "b"))
	withProps.AddChild(withProps.Root(), leaf("child", "a"))
	withProps.UpdateHashes()
	if withProps.Hash(withProps.Root()) != a.Hash(a.Root()) {
		t.Error("properties should not contribute to the hash")
	}

	relabeled := NewTree(elem("root"))
	p = relabeled.AddChild(relabeled.Root(), elem("parent"))
	relabeled.AddChild(p, leaf("child", "a"))
	relabeled.AddChild(p, leaf("child", "c"))
	relabeled.AddChild(relabeled.Root(), leaf("child", "a"))
	relabeled.UpdateHashes()
	if relabeled.Hash(relabeled.Root()) == a.Hash(a.Root()) {
		t.Error("a label change should reach the root hash")
	}

	// No label and an empty label are different nodes.
	x, y := NewTree(elem("n")), NewTree(leaf("n", ""))
	x.UpdateHashes()
	y.UpdateHashes()
	if x.Hash(0) == y.Hash(0) {
		t.Error("missing and empty labels should hash differently")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "Same", a: `<p class="x" id="y">A</p>`, b: `<p class="x" id="y">A</p>`, want: true},
		{name: "Attribute order", a: `<p class="x" id="y">A</p>`, b: `<p id="y" class="x">A</p>`, want: true},
		{name: "Attribute value", a: `<p class="x">A</p>`, b: `<p class="z">A</p>`, want: false},
		{name: "Text", a: `<p>A</p>`, b: `<p>B</p>`, want: false},
		{name: "Shape", a: `<p>A</p>`, b: `<p>A</p><p></p>`, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, err := ParseTree(tt.a)
			if err != nil {
				t.Fatalf("ParseTree failed: %v", err)
			}
			b, _, err := ParseTree(tt.b)
			if err != nil {
				t.Fatalf("ParseTree failed: %v", err)
			}
			if got := Equal(a, b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}
