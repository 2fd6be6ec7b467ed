package treediff

import (
	"fmt"
	"iter"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sirupsen/logrus"
)

// Matching is a partial injective correspondence between the nodes of an
// "A" (before) tree and a "B" (after) tree.
type Matching struct {
	aToB []NodeID
	bToA []NodeID
	n    int
}

// NewMatching returns an empty matching sized for a and b.
func NewMatching(a, b *Tree) *Matching {
	m := &Matching{
		aToB: make([]NodeID, a.Len()),
		bToA: make([]NodeID, b.Len()),
	}
	for i := range m.aToB {
		m.aToB[i] = InvalidNode
	}
	for i := range m.bToA {
		m.bToA[i] = InvalidNode
	}
	return m
}

// Add records the pair (a, b). It panics if either node is already matched.
func (m *Matching) Add(a, b NodeID) {
	if m.aToB[a] != InvalidNode || m.bToA[b] != InvalidNode {
		panic(fmt.Sprintf("treediff: non-injective matching: (%d, %d) conflicts with (%d, %d)",
			a, b, m.bToA[b], m.aToB[a]))
	}
	m.aToB[a] = b
	m.bToA[b] = a
	m.n++
}

// ToB returns the B partner of a.
func (m *Matching) ToB(a NodeID) (NodeID, bool) {
	b := m.aToB[a]
	return b, b != InvalidNode
}

// ToA returns the A partner of b.
func (m *Matching) ToA(b NodeID) (NodeID, bool) {
	a := m.bToA[b]
	return a, a != InvalidNode
}

func (m *Matching) MatchedA(a NodeID) bool { return m.aToB[a] != InvalidNode }

func (m *Matching) MatchedB(b NodeID) bool { return m.bToA[b] != InvalidNode }

// Len returns the number of matched pairs.
func (m *Matching) Len() int { return m.n }

// Pairs yields every (a, b) pair in ascending order of a.
func (m *Matching) Pairs() iter.Seq2[NodeID, NodeID] {
	return func(yield func(NodeID, NodeID) bool) {
		for a, b := range m.aToB {
			if b == InvalidNode {
				continue
			}
			if !yield(NodeID(a), b) {
				return
			}
		}
	}
}

type matcher struct {
	a, b         *Tree
	m            *Matching
	opts         Options
	dmp          *diffmatchpatch.DiffMatchPatch
	preA, preB   []int
	heightA      []int
	heightB      []int
	sizeA, sizeB []int
}

// Match computes the matching between a and b. Both trees must have
// up-to-date hashes (see Tree.UpdateHashes).
func Match(a, b *Tree, opts ...Option) *Matching {
	return newMatcher(a, b, newOptions(opts)).run()
}

func newMatcher(a, b *Tree, opts Options) *matcher {
	return &matcher{
		a:       a,
		b:       b,
		m:       NewMatching(a, b),
		opts:    opts,
		dmp:     diffmatchpatch.New(),
		preA:    a.preOrderIndex(),
		preB:    b.preOrderIndex(),
		heightA: a.heights(),
		heightB: b.heights(),
		sizeA:   sizes(a),
		sizeB:   sizes(b),
	}
}

func sizes(t *Tree) []int {
	s := make([]int, t.Len())
	for id := range t.PostOrder() {
		s[id] = 1
		for _, c := range t.Children(id) {
			s[id] += s[c]
		}
	}
	return s
}

func (mt *matcher) run() *Matching {
	log := mt.opts.Logger.WithFields(logrus.Fields{"nodes_a": mt.a.Len(), "nodes_b": mt.b.Len()})

	ra, rb := mt.a.Root(), mt.b.Root()
	if mt.a.Kind(ra) == mt.b.Kind(rb) {
		if mt.identical(ra, rb) {
			mt.matchSubtree(ra, rb)
			log.WithField("matched", mt.m.Len()).Debug("trees are identical")
			return mt.m
		}
		mt.m.Add(ra, rb)
	}

	mt.matchSubtrees()
	log.WithFields(logrus.Fields{"phase": "subtree", "matched": mt.m.Len()}).Debug("matching phase complete")
	mt.matchContainers()
	log.WithFields(logrus.Fields{"phase": "container", "matched": mt.m.Len()}).Debug("matching phase complete")
	mt.matchChildren()
	log.WithFields(logrus.Fields{"phase": "recovery", "matched": mt.m.Len()}).Debug("matching phase complete")
	mt.matchLeaves()
	log.WithFields(logrus.Fields{"phase": "leaf", "matched": mt.m.Len()}).Debug("matching phase complete")
	return mt.m
}

// identical guards hash equality against collisions.
func (mt *matcher) identical(a, b NodeID) bool {
	if mt.a.Hash(a) != mt.b.Hash(b) || mt.sizeA[a] != mt.sizeB[b] {
		return false
	}
	da, db := mt.a.Data(a), mt.b.Data(b)
	return da.Kind == db.Kind && da.HasLabel == db.HasLabel && da.Label == db.Label
}

func (mt *matcher) matchSubtree(a, b NodeID) {
	var as []NodeID
	for id := range mt.a.Descendants(a) {
		as = append(as, id)
	}
	i := 0
	for id := range mt.b.Descendants(b) {
		mt.m.Add(as[i], id)
		i++
	}
}

func (mt *matcher) subtreeFree(a NodeID) bool {
	for id := range mt.a.Descendants(a) {
		if mt.m.MatchedA(id) {
			return false
		}
	}
	return true
}

// anchored reports whether the parents of a and b are matched to each other.
func (mt *matcher) anchored(a, b NodeID) bool {
	pa, okA := mt.a.Parent(a)
	pb, okB := mt.b.Parent(b)
	if !okA || !okB {
		return false
	}
	p, ok := mt.m.ToB(pa)
	return ok && p == pb
}

func (mt *matcher) distance(a, b NodeID) int {
	d := mt.preA[a] - mt.preB[b]
	if d < 0 {
		return -d
	}
	return d
}

// matchSubtrees matches identical subtrees top-down. Once a pair is matched
// all of its descendants are matched too.
func (mt *matcher) matchSubtrees() {
	byHash := make(map[uint64][]NodeID)
	for id := range mt.a.PreOrder() {
		if mt.heightA[id] >= mt.opts.MinHeight && !mt.m.MatchedA(id) {
			h := mt.a.Hash(id)
			byHash[h] = append(byHash[h], id)
		}
	}

	for b := range mt.b.PreOrder() {
		if mt.m.MatchedB(b) || mt.heightB[b] < mt.opts.MinHeight {
			continue
		}
		best := InvalidNode
		bestAnchored, bestDist := false, 0
		for _, a := range byHash[mt.b.Hash(b)] {
			if mt.m.MatchedA(a) || !mt.identical(a, b) || !mt.subtreeFree(a) {
				continue
			}
			anc, dist := mt.anchored(a, b), mt.distance(a, b)
			if best == InvalidNode ||
				(anc && !bestAnchored) ||
				(anc == bestAnchored && dist < bestDist) {
				best, bestAnchored, bestDist = a, anc, dist
			}
		}
		if best != InvalidNode {
			mt.matchSubtree(best, b)
		}
	}
}

// matchContainers matches inner nodes bottom-up: each child whose partner
// lives under some A node votes for that node.
func (mt *matcher) matchContainers() {
	for b := range mt.b.PostOrder() {
		if mt.m.MatchedB(b) || mt.b.ChildCount(b) == 0 {
			continue
		}
		kind := mt.b.Kind(b)
		votes := make(map[NodeID]int)
		var order []NodeID
		for _, c := range mt.b.Children(b) {
			pa, ok := mt.m.ToA(c)
			if !ok {
				continue
			}
			p, ok := mt.a.Parent(pa)
			if !ok || mt.m.MatchedA(p) || mt.a.Kind(p) != kind {
				continue
			}
			if votes[p] == 0 {
				order = append(order, p)
			}
			votes[p]++
		}
		best := InvalidNode
		for _, a := range order {
			if best == InvalidNode || votes[a] > votes[best] ||
				(votes[a] == votes[best] && mt.distance(a, b) < mt.distance(best, b)) {
				best = a
			}
		}
		if best != InvalidNode {
			mt.m.Add(best, b)
		}
	}
}

// matchChildren matches the unmatched children of every matched pair, top-down,
// so newly matched children get their own children recovered in turn.
func (mt *matcher) matchChildren() {
	for b := range mt.b.PreOrder() {
		a, ok := mt.m.ToA(b)
		if !ok {
			continue
		}
		for _, cb := range mt.b.Children(b) {
			if mt.m.MatchedB(cb) {
				continue
			}
			best := InvalidNode
			var bestSim float64
			bestEqual := false
			for _, ca := range mt.a.Children(a) {
				if mt.m.MatchedA(ca) || mt.a.Kind(ca) != mt.b.Kind(cb) {
					continue
				}
				sim, equal, ok := mt.labelScore(ca, cb)
				if !ok {
					continue
				}
				if best == InvalidNode ||
					(equal && !bestEqual) ||
					(equal == bestEqual && sim > bestSim) ||
					(equal == bestEqual && sim == bestSim &&
						posDistance(mt.a.Position(ca), mt.b.Position(cb)) < posDistance(mt.a.Position(best), mt.b.Position(cb))) {
					best, bestSim, bestEqual = ca, sim, equal
				}
			}
			if best != InvalidNode {
				mt.m.Add(best, cb)
			}
		}
	}
}

// matchLeaves is the last pass: remaining leaves are matched across the
// whole tree when at least one side keeps a matched parent.
func (mt *matcher) matchLeaves() {
	byKind := make(map[Kind][]NodeID)
	for id := range mt.a.PreOrder() {
		if mt.a.ChildCount(id) == 0 && !mt.m.MatchedA(id) {
			k := mt.a.Kind(id)
			byKind[k] = append(byKind[k], id)
		}
	}

	for b := range mt.b.PostOrder() {
		if mt.m.MatchedB(b) || mt.b.ChildCount(b) != 0 {
			continue
		}
		pb, hasParent := mt.b.Parent(b)
		parentMatched := hasParent && mt.m.MatchedB(pb)

		best := InvalidNode
		var bestSim float64
		bestEqual, bestAnchored := false, false
		for _, a := range byKind[mt.b.Kind(b)] {
			if mt.m.MatchedA(a) {
				continue
			}
			if pa, ok := mt.a.Parent(a); !parentMatched && (!ok || !mt.m.MatchedA(pa)) {
				continue
			}
			sim, equal, ok := mt.labelScore(a, b)
			if !ok {
				continue
			}
			anc := mt.anchored(a, b)
			if best == InvalidNode || better(anc, equal, sim, mt.distance(a, b),
				bestAnchored, bestEqual, bestSim, mt.distance(best, b)) {
				best, bestSim, bestEqual, bestAnchored = a, sim, equal, anc
			}
		}
		if best != InvalidNode {
			mt.m.Add(best, b)
		}
	}
}

// labelScore returns the similarity of the labels of a and b, whether they
// are equal, and whether the pair clears the similarity threshold.
func (mt *matcher) labelScore(a, b NodeID) (float64, bool, bool) {
	la, hasA := mt.a.Label(a)
	lb, hasB := mt.b.Label(b)
	if hasA == hasB && la == lb {
		return 1, true, true
	}
	th := mt.opts.SimilarityThreshold
	if similarityBound(la, lb) < th {
		return 0, false, false
	}
	sim := labelSimilarity(mt.dmp, la, lb)
	return sim, false, sim >= th
}

func better(anc, equal bool, sim float64, dist int, bAnc, bEqual bool, bSim float64, bDist int) bool {
	if anc != bAnc {
		return anc
	}
	if equal != bEqual {
		return equal
	}
	if sim != bSim {
		return sim > bSim
	}
	return dist < bDist
}

func posDistance(i, j int) int {
	if i > j {
		return i - j
	}
	return j - i
}
