package treediff

import (
	"errors"
	"fmt"

	"github.com/huandu/go-clone"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

type applier struct {
	root  *html.Node
	slots map[int]*html.Node
	log   logrus.FieldLogger
}

// Apply runs patches against root in order. Every path is resolved against
// the tree as left by the previous patch. Slots live for the duration of
// one call; nodes still parked when it returns are dropped.
func Apply(root *html.Node, patches []Patch, opts ...Option) error {
	o := newOptions(opts)
	ap := &applier{root: root, slots: make(map[int]*html.Node), log: o.Logger}
	for i, p := range patches {
		if err := ap.apply(p); err != nil {
			return fmt.Errorf("failed to apply patch %d (%s): %w", i, p.Type, err)
		}
		ap.log.WithField("patch", p.String()).Trace("applied patch")
	}
	if len(ap.slots) > 0 {
		ap.log.WithField("slots", len(ap.slots)).Debug("discarding parked nodes")
	}
	return nil
}

// ApplyCopy applies patches to a deep copy of root and returns the copy.
func ApplyCopy(root *html.Node, patches []Patch, opts ...Option) (*html.Node, error) {
	doc := clone.Slowly(root).(*html.Node)
	if err := Apply(doc, patches, opts...); err != nil {
		return nil, err
	}
	return doc, nil
}

func (ap *applier) apply(p Patch) error {
	switch p.Type {
	case PatchSetText:
		node, err := GetNode(ap.root, p.Path)
		if err != nil {
			return err
		}
		switch node.Type {
		case html.TextNode, html.CommentNode, html.DoctypeNode:
			node.Data = p.Text
		default:
			return fmt.Errorf("target node for %s holds no text (type=%d)", p.Type, node.Type)
		}

	case PatchSetAttribute, PatchRemoveAttribute:
		node, err := GetNode(ap.root, p.Path)
		if err != nil {
			return err
		}
		if node.Type != html.ElementNode && node.Type != html.DoctypeNode {
			return fmt.Errorf("target node for %s is not an element node", p.Type)
		}
		ns, key := unqualify(p.Name)
		if p.Type == PatchSetAttribute {
			setAttr(node, ns, key, p.Value)
		} else {
			removeAttr(node, ns, key)
		}

	case PatchRemove:
		if _, err := ap.take(p.Node); err != nil {
			return err
		}

	case PatchDetach:
		if p.Slot == nil {
			return errors.New("missing target slot")
		}
		node, err := ap.take(p.Node)
		if err != nil {
			return err
		}
		return ap.park(*p.Slot, node)

	case PatchMove:
		node, err := ap.take(p.Node)
		if err != nil {
			return err
		}
		return ap.insert(p, node)

	case PatchInsertElement, PatchInsertText, PatchInsertComment, PatchInsertDoctype:
		node, err := buildNode(fragmentOfPatch(p))
		if err != nil {
			return err
		}
		return ap.insert(p, node)

	default:
		return fmt.Errorf("unknown patch type: %s", p.Type)
	}

	return nil
}

// resolve finds the node a ref points at.
func (ap *applier) resolve(ref *NodeRef) (*html.Node, error) {
	if ref == nil {
		return nil, errors.New("missing node reference")
	}
	if ref.Slot == nil {
		return GetNode(ap.root, ref.Path)
	}
	base, ok := ap.slots[*ref.Slot]
	if !ok {
		return nil, fmt.Errorf("slot %d is empty", *ref.Slot)
	}
	return GetNode(base, ref.Path)
}

// take resolves ref and detaches the node from wherever it is held.
func (ap *applier) take(ref *NodeRef) (*html.Node, error) {
	node, err := ap.resolve(ref)
	if err != nil {
		return nil, err
	}
	if ref.Slot != nil && len(ref.Path) == 0 {
		delete(ap.slots, *ref.Slot)
		return node, nil
	}
	if node == ap.root || node.Parent == nil {
		return nil, errors.New("cannot detach the root node")
	}
	node.Parent.RemoveChild(node)
	return node, nil
}

func (ap *applier) park(slot int, node *html.Node) error {
	if _, ok := ap.slots[slot]; ok {
		return fmt.Errorf("slot %d is already in use", slot)
	}
	ap.slots[slot] = node
	return nil
}

// insert puts node at p.Position under p.Parent, first parking the current
// occupant of that position when p.Slot is set.
func (ap *applier) insert(p Patch, node *html.Node) error {
	parent, err := GetNode(ap.root, p.Parent)
	if err != nil {
		return err
	}
	if parent.Type != html.ElementNode && parent.Type != html.DocumentNode {
		return fmt.Errorf("parent node cannot hold children (type=%d)", parent.Type)
	}
	if n := childCount(parent); p.Position < 0 || p.Position > n {
		return fmt.Errorf("position %d out of range (parent has %d children)", p.Position, n)
	}
	if p.Slot != nil {
		if occ := getChildAtIndex(parent, p.Position); occ != nil {
			parent.RemoveChild(occ)
			if err := ap.park(*p.Slot, occ); err != nil {
				return err
			}
		}
	}
	insertChildAt(parent, node, p.Position)
	return nil
}

func fragmentOfPatch(p Patch) Fragment {
	switch p.Type {
	case PatchInsertText:
		return Fragment{Type: FragmentText, Text: p.Text}
	case PatchInsertComment:
		return Fragment{Type: FragmentComment, Text: p.Text}
	case PatchInsertDoctype:
		return Fragment{Type: FragmentDoctype, Text: p.Text, Attrs: p.Attrs}
	}
	return Fragment{Type: FragmentElement, Tag: p.Tag, Attrs: p.Attrs, Children: p.Children}
}

func getAttr(n *html.Node, ns, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == ns && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, ns, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == ns && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	// Add if not found
	n.Attr = append(n.Attr, html.Attribute{Namespace: ns, Key: key, Val: val})
}

func removeAttr(n *html.Node, ns, key string) {
	for i, a := range n.Attr {
		if a.Namespace == ns && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func insertChildAt(parent, child *html.Node, index int) {
	ref := getChildAtIndex(parent, index)
	if ref != nil {
		parent.InsertBefore(child, ref)
	} else {
		parent.AppendChild(child)
	}
}
