package treediff

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kinds of non-element HTML nodes. Elements use their tag name.
const (
	KindDocument Kind = "#document"
	KindText     Kind = "#text"
	KindComment  Kind = "#comment"
	KindDoctype  Kind = "!doctype"
)

// ParseHTML parses a string into an HTML node tree.
// Parse wraps partial input in html/head/body, which keeps both sides of a
// comparison normalised the same way.
func ParseHTML(content string) (*html.Node, error) {
	return html.Parse(strings.NewReader(content))
}

// RenderNode converts a node tree back to a string.
func RenderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GetNode traverses the tree using the provided path to find a specific node.
func GetNode(root *html.Node, path NodePath) (*html.Node, error) {
	current := root
	for i, index := range path {
		child := getChildAtIndex(current, index)
		if child == nil {
			return nil, fmt.Errorf("node not found at path %v (failed at index %d, step %d)", path, index, i)
		}
		current = child
	}
	return current, nil
}

// getChildAtIndex finds the Nth child of a node.
// Note: html.Node's children are a linked list (FirstChild, NextSibling).
func getChildAtIndex(parent *html.Node, index int) *html.Node {
	if index < 0 {
		return nil
	}
	count := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if count == index {
			return c
		}
		count++
	}
	return nil
}

func childCount(parent *html.Node) int {
	n := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		n++
	}
	return n
}

// GetPath finds the path from root to the target node.
func GetPath(root, target *html.Node) (NodePath, error) {
	var path NodePath

	current := target
	for current != root {
		parent := current.Parent
		if parent == nil {
			return nil, errors.New("target node is not a descendant of root")
		}

		index := getChildIndex(parent, current)
		if index == -1 {
			return nil, errors.New("integrity error: child not found in parent's list")
		}

		path = append(NodePath{index}, path...)
		current = parent
	}
	return path, nil
}

// getChildIndex returns the index of child within parent.
func getChildIndex(parent, child *html.Node) int {
	count := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c == child {
			return count
		}
		count++
	}
	return -1
}

// FromHTML builds a hashed Tree mirroring root. Every child node becomes a
// tree node, whitespace text included, so tree positions and DOM positions
// agree.
func FromHTML(root *html.Node) *Tree {
	t := NewTree(nodeData(root))
	var walk func(n *html.Node, id NodeID)
	walk = func(n *html.Node, id NodeID) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, t.AddChild(id, nodeData(c)))
		}
	}
	walk(root, t.Root())
	t.UpdateHashes()
	return t
}

// ParseTree parses content and builds its Tree.
func ParseTree(content string) (*Tree, *html.Node, error) {
	doc, err := ParseHTML(content)
	if err != nil {
		return nil, nil, err
	}
	return FromHTML(doc), doc, nil
}

func nodeData(n *html.Node) NodeData {
	switch n.Type {
	case html.DocumentNode:
		return NodeData{Kind: KindDocument}
	case html.TextNode:
		return NodeData{Kind: KindText, Label: n.Data, HasLabel: true}
	case html.CommentNode:
		return NodeData{Kind: KindComment, Label: n.Data, HasLabel: true}
	case html.DoctypeNode:
		return NodeData{Kind: KindDoctype, Label: n.Data, HasLabel: true, Props: attrProps(n.Attr)}
	case html.ElementNode:
		return NodeData{Kind: Kind(qualify(n.Namespace, n.Data)), Props: attrProps(n.Attr)}
	}
	return NodeData{Kind: Kind(fmt.Sprintf("#raw%d", n.Type)), Label: n.Data, HasLabel: true}
}

func attrProps(attrs []html.Attribute) []Property {
	if len(attrs) == 0 {
		return nil
	}
	props := make([]Property, 0, len(attrs))
	for _, a := range attrs {
		props = append(props, Property{Key: qualify(a.Namespace, a.Key), Value: a.Val})
	}
	return props
}

// qualify joins a namespace and a local name as "ns name". A space cannot
// occur in tag or attribute names, while a colon can (xml:lang in HTML
// content is a plain key).
func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + " " + name
}

func unqualify(name string) (string, string) {
	ns, local, ok := strings.Cut(name, " ")
	if !ok {
		return "", name
	}
	return ns, local
}

func propAttrs(props []Property) []Attribute {
	if len(props) == 0 {
		return nil
	}
	attrs := make([]Attribute, 0, len(props))
	for _, p := range props {
		ns, key := unqualify(p.Key)
		attrs = append(attrs, Attribute{Namespace: ns, Key: key, Val: p.Value})
	}
	return attrs
}

// buildNode creates a detached HTML node from a fragment.
func buildNode(f Fragment) (*html.Node, error) {
	var n *html.Node
	switch f.Type {
	case FragmentElement:
		ns, tag := unqualify(f.Tag)
		n = &html.Node{
			Type:      html.ElementNode,
			Data:      tag,
			DataAtom:  atom.Lookup([]byte(tag)),
			Namespace: ns,
		}
		for _, a := range f.Attrs {
			n.Attr = append(n.Attr, html.Attribute{Namespace: a.Namespace, Key: a.Key, Val: a.Val})
		}
	case FragmentText:
		n = &html.Node{Type: html.TextNode, Data: f.Text}
	case FragmentComment:
		n = &html.Node{Type: html.CommentNode, Data: f.Text}
	case FragmentDoctype:
		n = &html.Node{Type: html.DoctypeNode, Data: f.Text}
		for _, a := range f.Attrs {
			n.Attr = append(n.Attr, html.Attribute{Namespace: a.Namespace, Key: a.Key, Val: a.Val})
		}
	default:
		return nil, fmt.Errorf("unknown fragment type %q", f.Type)
	}
	for _, c := range f.Children {
		child, err := buildNode(c)
		if err != nil {
			return nil, err
		}
		n.AppendChild(child)
	}
	return n, nil
}

// fragmentOf describes node id of t as a fragment without children.
func fragmentOf(t *Tree, id NodeID) Fragment {
	d := t.Data(id)
	switch d.Kind {
	case KindText:
		return Fragment{Type: FragmentText, Text: d.Label}
	case KindComment:
		return Fragment{Type: FragmentComment, Text: d.Label}
	case KindDoctype:
		return Fragment{Type: FragmentDoctype, Text: d.Label, Attrs: propAttrs(d.Props)}
	}
	return Fragment{Type: FragmentElement, Tag: string(d.Kind), Attrs: propAttrs(d.Props)}
}
