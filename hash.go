package treediff

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// UpdateHashes recomputes the structural hash of every node, children first.
// The hash covers the kind, the label and the ordered child hashes, so two
// nodes with equal hashes root identical subtrees. Properties are excluded.
// Call it once the tree is fully built.
func (t *Tree) UpdateHashes() {
	for id := range t.PostOrder() {
		n := &t.nodes[id]
		n.data.Hash = t.hashNode(n)
	}
}

func (t *Tree) hashNode(n *treeNode) uint64 {
	h := xxhash.New()
	var b [8]byte

	// Length prefixes keep ("ab","c") and ("a","bc") apart.
	binary.LittleEndian.PutUint64(b[:], uint64(len(n.data.Kind)))
	h.Write(b[:])
	h.WriteString(string(n.data.Kind))

	if n.data.HasLabel {
		h.Write([]byte{1})
		binary.LittleEndian.PutUint64(b[:], uint64(len(n.data.Label)))
		h.Write(b[:])
		h.WriteString(n.data.Label)
	} else {
		h.Write([]byte{0})
	}

	binary.LittleEndian.PutUint64(b[:], uint64(len(n.children)))
	h.Write(b[:])
	for _, c := range n.children {
		binary.LittleEndian.PutUint64(b[:], t.nodes[c].data.Hash)
		h.Write(b[:])
	}
	return h.Sum64()
}
