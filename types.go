package treediff

import "fmt"

// NodePath represents the traversal steps from the root to a target node.
// Example: [0, 1, 3] means root -> child[0] -> child[1] -> child[3]
// Paths are positional: they are resolved against the tree as it is when the
// patch carrying them is applied.
type NodePath []int

// NodeRef addresses a node either by path from the root, or, when Slot is
// set, by path from the subtree held in that displacement slot.
type NodeRef struct {
	Slot *int    `json:"slot,omitempty"`
	Path NodePath `json:"path,omitempty"`
}

func PathRef(p NodePath) NodeRef { return NodeRef{Path: p} }

func SlotRef(slot int) NodeRef { return NodeRef{Slot: &slot} }

func (r NodeRef) String() string {
	if r.Slot != nil {
		if len(r.Path) == 0 {
			return fmt.Sprintf("slot(%d)", *r.Slot)
		}
		return fmt.Sprintf("slot(%d)%v", *r.Slot, []int(r.Path))
	}
	return fmt.Sprint([]int(r.Path))
}

type PatchType string

const (
	PatchSetText         PatchType = "SET_TEXT"         // Replace the data of a text, comment or doctype node
	PatchSetAttribute    PatchType = "SET_ATTRIBUTE"    // Add or change an attribute
	PatchRemoveAttribute PatchType = "REMOVE_ATTRIBUTE" // Drop an attribute
	PatchRemove          PatchType = "REMOVE"           // Detach a node and drop it
	PatchDetach          PatchType = "DETACH"           // Detach a node into a slot
	PatchMove            PatchType = "MOVE"             // Reparent or reorder a node
	PatchInsertElement   PatchType = "INSERT_ELEMENT"   // Insert a new element with its subtree
	PatchInsertText      PatchType = "INSERT_TEXT"      // Insert a new text node
	PatchInsertComment   PatchType = "INSERT_COMMENT"   // Insert a new comment node
	PatchInsertDoctype   PatchType = "INSERT_DOCTYPE"   // Insert a new doctype node
)

// Attribute is an HTML attribute. Namespace is set for foreign attributes
// such as xlink:href.
type Attribute struct {
	Namespace string `json:"namespace,omitempty"`
	Key       string `json:"key"`
	Val       string `json:"val"`
}

type FragmentType string

const (
	FragmentElement FragmentType = "element"
	FragmentText    FragmentType = "text"
	FragmentComment FragmentType = "comment"
	FragmentDoctype FragmentType = "doctype"
)

// Fragment is a detached subtree carried by an insert patch.
type Fragment struct {
	Type     FragmentType `json:"type"`
	Tag      string       `json:"tag,omitempty"`
	Attrs    []Attribute  `json:"attrs,omitempty"`
	Text     string       `json:"text,omitempty"`
	Children []Fragment   `json:"children,omitempty"`
}

// Patch is one concrete mutation of an HTML tree.
type Patch struct {
	Type PatchType `json:"type"`
	// SetText, SetAttribute, RemoveAttribute: the node to change.
	Path NodePath `json:"path,omitempty"`
	// Remove, Detach, Move: the node to act on.
	Node *NodeRef `json:"node,omitempty"`
	// Move and inserts: new parent and index among its children.
	Parent   NodePath `json:"parent,omitempty"`
	Position int      `json:"position,omitempty"`
	// Detach: target slot. Move and inserts: slot receiving the node that
	// currently occupies Position, if any.
	Slot *int `json:"detach_to_slot,omitempty"`

	Tag      string      `json:"tag,omitempty"`
	Name     string      `json:"name,omitempty"`  // attribute name, "ns key" for foreign attributes
	Value    string      `json:"value,omitempty"` // attribute value
	Text     string      `json:"text,omitempty"`
	Attrs    []Attribute `json:"attrs,omitempty"`
	Children []Fragment  `json:"children,omitempty"`
}

func (p Patch) String() string {
	switch p.Type {
	case PatchSetText:
		return fmt.Sprintf("%s %v %q", p.Type, []int(p.Path), p.Text)
	case PatchSetAttribute:
		return fmt.Sprintf("%s %v %s=%q", p.Type, []int(p.Path), p.Name, p.Value)
	case PatchRemoveAttribute:
		return fmt.Sprintf("%s %v %s", p.Type, []int(p.Path), p.Name)
	case PatchRemove:
		return fmt.Sprintf("%s %s", p.Type, p.Node)
	case PatchDetach:
		if p.Slot == nil {
			return fmt.Sprintf("%s %s", p.Type, p.Node)
		}
		return fmt.Sprintf("%s %s -> slot(%d)", p.Type, p.Node, *p.Slot)
	case PatchMove:
		return fmt.Sprintf("%s %s -> %v@%d", p.Type, p.Node, []int(p.Parent), p.Position)
	case PatchInsertElement:
		return fmt.Sprintf("%s <%s> -> %v@%d", p.Type, p.Tag, []int(p.Parent), p.Position)
	default:
		return fmt.Sprintf("%s %q -> %v@%d", p.Type, p.Text, []int(p.Parent), p.Position)
	}
}

// Delta represents a set of changes applied to a base document.
type Delta struct {
	BaseHash  string   `json:"base_hash"` // Hash of the original document to ensure validity
	Script    []EditOp `json:"script,omitempty"`
	Patches   []Patch  `json:"patches"`
	Timestamp int64    `json:"timestamp"`
	Author    string   `json:"author"`
}

// Conflict represents a detected conflict between two patches.
type Conflict struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Path        NodePath `json:"path"`
	Patches     []Patch  `json:"patches"`
}
