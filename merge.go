package treediff

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnmergeable is returned for deltas that park nodes in slots; their
// patches cannot be rebased against concurrent edits.
var ErrUnmergeable = errors.New("delta moves nodes and cannot be merged")

// Merge combines two concurrent deltas computed against the same base.
// A's patches run first; B's are rebased onto the document A produced.
// When the deltas conflict, the conflicts are returned and nothing is applied.
func Merge(baseHTML string, deltaA, deltaB *Delta) (string, *Delta, []Conflict, error) {
	return MergeAll(baseHTML, []*Delta{deltaA, deltaB})
}

// MergeAll folds any number of concurrent deltas, in order, into one.
func MergeAll(baseHTML string, deltas []*Delta) (string, *Delta, []Conflict, error) {
	if len(deltas) == 0 {
		return "", nil, nil, errors.New("no deltas to merge")
	}
	baseHash := hashString(baseHTML)
	for i, d := range deltas {
		if d.BaseHash != baseHash {
			return "", nil, nil, fmt.Errorf("delta %d: %w", i, ErrBaseMismatch)
		}
		if err := checkMergeable(d); err != nil {
			return "", nil, nil, fmt.Errorf("delta %d: %w", i, err)
		}
	}

	merged := append([]Patch(nil), deltas[0].Patches...)
	var conflicts []Conflict
	for _, d := range deltas[1:] {
		rebased, cs := rebase(merged, d.Patches)
		if len(cs) > 0 {
			conflicts = append(conflicts, cs...)
			continue
		}
		merged = append(merged, rebased...)
	}
	if len(conflicts) > 0 {
		return "", nil, conflicts, nil
	}

	mergedDelta := &Delta{
		BaseHash:  baseHash,
		Patches:   merged,
		Author:    "system-merge",
		Timestamp: time.Now().Unix(),
	}

	patched, err := ApplyDelta(baseHTML, mergedDelta)
	return patched, mergedDelta, nil, err
}

func checkMergeable(d *Delta) error {
	for i, p := range d.Patches {
		if p.Type == PatchDetach || p.Type == PatchMove || p.Slot != nil {
			return fmt.Errorf("patch %d (%s): %w", i, p.Type, ErrUnmergeable)
		}
		if p.Node != nil && p.Node.Slot != nil {
			return fmt.Errorf("patch %d (%s): %w", i, p.Type, ErrUnmergeable)
		}
	}
	return nil
}

// rebase transforms every patch of bs so it applies after as. Both lists
// start from the same document; each patch is relative to the state left by
// the patches before it in its own list.
func rebase(as, bs []Patch) ([]Patch, []Conflict) {
	as = append([]Patch(nil), as...)
	live := make([]bool, len(as))
	for i := range live {
		live[i] = true
	}

	var out []Patch
	var conflicts []Conflict
	for _, b := range bs {
		cur, keep := b, true
		for k, a := range as {
			if !live[k] {
				continue
			}
			if c, ok := detectConflict(a, cur); ok {
				conflicts = append(conflicts, c)
				keep = false
				break
			}
			if isRemove(a) && isRemove(cur) && pathEqual(a.Node.Path, cur.Node.Path) {
				// Both removed the same node.
				live[k], keep = false, false
				break
			}
			next := transformOp(cur, a, true)
			as[k] = transformOp(a, cur, false)
			cur = next
		}
		if keep {
			out = append(out, cur)
		}
	}
	return out, conflicts
}

// detectConflict compares two patches that apply to the same document.
func detectConflict(a, b Patch) (Conflict, bool) {
	if isRemove(a) && removes(a.Node.Path, b) {
		return Conflict{
			Type:        "Structure",
			Description: "Modification of deleted node",
			Path:        targetPath(b),
			Patches:     []Patch{a, b},
		}, true
	}
	if isRemove(b) && removes(b.Node.Path, a) {
		return Conflict{
			Type:        "Structure",
			Description: "Modification of deleted node",
			Path:        targetPath(a),
			Patches:     []Patch{a, b},
		}, true
	}
	if !pathEqual(a.Path, b.Path) {
		return Conflict{}, false
	}
	direct := false
	switch {
	case a.Type == PatchSetText && b.Type == PatchSetText:
		direct = a.Text != b.Text
	case isAttr(a) && isAttr(b) && a.Name == b.Name:
		direct = a.Type != b.Type || a.Value != b.Value
	}
	if !direct {
		return Conflict{}, false
	}
	return Conflict{
		Type:        "Direct",
		Description: fmt.Sprintf("Conflict on node %v: %s vs %s", a.Path, a.Type, b.Type),
		Path:        a.Path,
		Patches:     []Patch{a, b},
	}, true
}

// removes reports whether removing the node at path takes p's target with
// it. Removing the same node twice is not a conflict.
func removes(path NodePath, p Patch) bool {
	switch {
	case isRemove(p):
		return isDescendant(path, p.Node.Path)
	case isInsert(p):
		return hasPrefix(p.Parent, path)
	}
	return hasPrefix(p.Path, path)
}

func isRemove(p Patch) bool { return p.Type == PatchRemove && p.Node != nil }

func isAttr(p Patch) bool {
	return p.Type == PatchSetAttribute || p.Type == PatchRemoveAttribute
}

func isInsert(p Patch) bool {
	switch p.Type {
	case PatchInsertElement, PatchInsertText, PatchInsertComment, PatchInsertDoctype:
		return true
	}
	return false
}

func targetPath(p Patch) NodePath {
	switch {
	case isRemove(p):
		return p.Node.Path
	case isInsert(p):
		return p.Parent
	}
	return p.Path
}

// transformOp adjusts b so it applies after a. Both must be relative to the
// same document state. aFirst breaks ties between inserts at the same spot.
func transformOp(b, a Patch, aFirst bool) Patch {
	newB := b

	// Case 1: A inserted a node
	if isInsert(a) {
		if isInsert(b) && pathEqual(b.Parent, a.Parent) {
			if a.Position < b.Position || (a.Position == b.Position && aFirst) {
				newB.Position++
			}
		}
		newB = shiftPaths(newB, a.Parent, a.Position, 1)
	}

	// Case 2: A removed a node
	if isRemove(a) && len(a.Node.Path) > 0 {
		parentPath := a.Node.Path[:len(a.Node.Path)-1]
		delIndex := a.Node.Path[len(a.Node.Path)-1]
		if isInsert(b) && pathEqual(b.Parent, parentPath) && delIndex < b.Position {
			newB.Position--
		}
		newB = shiftPaths(newB, parentPath, delIndex+1, -1)
	}

	return newB
}

// shiftPaths moves every path of p running through a child of parent at
// index >= from by delta.
func shiftPaths(p Patch, parent NodePath, from, delta int) Patch {
	shift := func(path NodePath) NodePath {
		if !isSiblingAffected(parent, from, path) {
			return path
		}
		out := make(NodePath, len(path))
		copy(out, path)
		out[len(parent)] += delta
		return out
	}
	switch {
	case isRemove(p):
		p.Node = &NodeRef{Path: shift(p.Node.Path)}
	case isInsert(p):
		p.Parent = shift(p.Parent)
	default:
		p.Path = shift(p.Path)
	}
	return p
}

func pathEqual(a, b NodePath) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// hasPrefix reports whether path equals prefix or lies below it.
func hasPrefix(path, prefix NodePath) bool {
	return len(path) >= len(prefix) && pathEqual(path[:len(prefix)], prefix)
}

func isDescendant(ancestor, child NodePath) bool {
	return len(child) > len(ancestor) && hasPrefix(child, ancestor)
}

// Check if `target` passes through a child of `parent` at index >= `index`.
func isSiblingAffected(parent NodePath, index int, target NodePath) bool {
	if len(target) <= len(parent) || !hasPrefix(target, parent) {
		return false
	}
	return target[len(parent)] >= index
}
