package treediff

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

var roundTripCases = []struct {
	name    string
	oldHTML string
	newHTML string
}{
	{
		name:    "Text change",
		oldHTML: "<div><p>Hello</p></div>",
		newHTML: "<div><p>World</p></div>",
	},
	{
		name:    "Attribute change",
		oldHTML: `<div class="a"></div>`,
		newHTML: `<div class="b"></div>`,
	},
	{
		name:    "Attribute removal",
		oldHTML: `<div class="a" id="b"></div>`,
		newHTML: `<div id="b"></div>`,
	},
	{
		name:    "Foreign attribute",
		oldHTML: `<svg><use xlink:href="#a"></use></svg>`,
		newHTML: `<svg><use xlink:href="#b"></use><circle r="1"></circle></svg>`,
	},
	{
		name:    "Insert node",
		oldHTML: `<ul><li>A</li></ul>`,
		newHTML: `<ul><li>A</li><li>B</li></ul>`,
	},
	{
		name:    "Delete node",
		oldHTML: `<ul><li>A</li><li>B</li></ul>`,
		newHTML: `<ul><li>A</li></ul>`,
	},
	{
		name:    "Complex structural change",
		oldHTML: `<div id="main"><h1>Title</h1><p>Text</p></div>`,
		newHTML: `<div id="main"><h1>New Title</h1><p>Text</p><p>Footer</p></div>`,
	},
	{
		name:    "Reorder",
		oldHTML: `<ul><li>A</li><li>B</li><li>C</li><li>D</li></ul>`,
		newHTML: `<ul><li>D</li><li>B</li><li>A</li><li>C</li></ul>`,
	},
	{
		name:    "Move across parents",
		oldHTML: `<div><p id="x">X</p></div><section></section>`,
		newHTML: `<div></div><section><p id="x">X</p></section>`,
	},
	{
		name:    "Swap containers",
		oldHTML: `<div><p>One</p></div><div><p>Two</p></div>`,
		newHTML: `<div><p>Two</p></div><div><p>One</p></div>`,
	},
	{
		name:    "Wrap",
		oldHTML: `<div><p>A</p><p>B</p></div>`,
		newHTML: `<div><section><p>A</p><p>B</p></section></div>`,
	},
	{
		name:    "Unwrap",
		oldHTML: `<div><section><p>A</p><p>B</p></section></div>`,
		newHTML: `<div><p>A</p><p>B</p></div>`,
	},
	{
		name:    "Nested insert",
		oldHTML: `<div></div>`,
		newHTML: `<div><ul><li>A</li><li>B <b>bold</b></li></ul></div>`,
	},
	{
		name:    "Nested delete",
		oldHTML: `<div><ul><li>A</li><li>B <b>bold</b></li></ul></div>`,
		newHTML: `<div></div>`,
	},
	{
		name:    "Replace element",
		oldHTML: `<div><span>A</span></div>`,
		newHTML: `<div><em>A</em></div>`,
	},
	{
		name:    "Rewrap with edits",
		oldHTML: `<ul><li>A</li><li>B</li></ul><ol></ol>`,
		newHTML: `<ul><li>B</li></ul><ol><li>A!</li></ol>`,
	},
	{
		name:    "Doctype",
		oldHTML: `<!DOCTYPE html><p>x</p>`,
		newHTML: `<p>x</p><!-- done -->`,
	},
	{
		name:    "Lists trade places",
		oldHTML: `<section><ul><li>one</li><li>two</li></ul></section><aside><ol><li>three</li></ol></aside>`,
		newHTML: `<section><ol><li>three</li></ol></section><aside><ul><li>one</li><li>two</li><li>four</li></ul></aside>`,
	},
	{
		name:    "Whole document",
		oldHTML: "<!DOCTYPE html>\n<html><head><title>Old</title></head>\n<body>\n  <h1>Title</h1>\n  <p class=\"lead\">Intro text here</p>\n</body></html>",
		newHTML: "<!DOCTYPE html>\n<html><head><title>New</title><meta charset=\"utf-8\"></head>\n<body>\n  <main><h1>Title</h1>\n  <p>Intro text there</p></main>\n</body></html>",
	},
}

func TestPatchRoundTrip(t *testing.T) {
	for _, simplify := range []bool{true, false} {
		for _, tt := range roundTripCases {
			name := tt.name
			if !simplify {
				name += "/raw"
			}
			t.Run(name, func(t *testing.T) {
				delta, err := Diff(tt.oldHTML, tt.newHTML, "tester", WithSimplify(simplify), WithVerify(true))
				if err != nil {
					t.Fatalf("Diff() error = %v", err)
				}

				patched, err := ApplyDelta(tt.oldHTML, delta)
				if err != nil {
					t.Fatalf("ApplyDelta() error = %v", err)
				}

				// Compare semantic equivalence: Patch output is a full
				// rendered document.
				wantStr := normalize(t, tt.newHTML)
				gotStr := normalize(t, patched)
				if gotStr != wantStr {
					t.Errorf("RoundTrip failed.\nWant: %s\nGot:  %s", wantStr, gotStr)
					for i, p := range delta.Patches {
						t.Logf("Patch[%d]: %v", i, p)
					}
				}
			})
		}
	}
}

func bodyOf(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := ParseHTML(s)
	if err != nil {
		t.Fatalf("ParseHTML failed: %v", err)
	}
	body, err := GetNode(doc, NodePath{0, 1})
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	return body
}

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	s, err := RenderNode(n)
	if err != nil {
		t.Fatalf("RenderNode failed: %v", err)
	}
	return s
}

func slot(n int) *int { return &n }

func TestApplyDisplacesIntoSlot(t *testing.T) {
	body := bodyOf(t, `<p>First</p>`)
	patches := []Patch{{
		Type:     PatchInsertElement,
		Parent:   NodePath{},
		Position: 0,
		Tag:      "p",
		Slot:     slot(0),
	}}
	if err := Apply(body, patches); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got, want := render(t, body), `<body><p></p></body>`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestApplySlotTraffic(t *testing.T) {
	body := bodyOf(t, `<div><p>A</p><p>B</p></div><span>x</span>`)
	ref := SlotRef(0)
	inner := SlotRef(0)
	inner.Path = NodePath{0}
	patches := []Patch{
		{Type: PatchDetach, Node: &NodeRef{Path: NodePath{0}}, Slot: slot(0)},
		{Type: PatchMove, Node: &inner, Parent: NodePath{}, Position: 0},
		{Type: PatchMove, Node: &ref, Parent: NodePath{1}, Position: 0},
	}
	if err := Apply(body, patches); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := `<body><p>A</p><span><div><p>B</p></div>x</span></body>`
	if got := render(t, body); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestApplyCopyLeavesOriginal(t *testing.T) {
	body := bodyOf(t, `<p class="a">Hello</p>`)
	patches := []Patch{
		{Type: PatchSetText, Path: NodePath{0, 0}, Text: "Bye"},
		{Type: PatchRemoveAttribute, Path: NodePath{0}, Name: "class"},
		{Type: PatchSetAttribute, Path: NodePath{0}, Name: "id", Value: "x"},
	}
	copied, err := ApplyCopy(body, patches)
	if err != nil {
		t.Fatalf("ApplyCopy failed: %v", err)
	}
	if got, want := render(t, copied), `<body><p id="x">Bye</p></body>`; got != want {
		t.Errorf("copy: got %s, want %s", got, want)
	}
	if got, want := render(t, body), `<body><p class="a">Hello</p></body>`; got != want {
		t.Errorf("original changed: got %s, want %s", got, want)
	}
	if v, ok := getAttr(copied.FirstChild, "", "id"); !ok || v != "x" {
		t.Errorf("id attribute = %q, %v", v, ok)
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name    string
		patch   Patch
		wantErr string
	}{
		{
			name:    "Position past the end",
			patch:   Patch{Type: PatchInsertText, Parent: NodePath{0}, Position: 5, Text: "x"},
			wantErr: "out of range",
		},
		{
			name:    "Missing path",
			patch:   Patch{Type: PatchSetText, Path: NodePath{3}, Text: "x"},
			wantErr: "node not found",
		},
		{
			name:    "Text on element",
			patch:   Patch{Type: PatchSetText, Path: NodePath{0}, Text: "x"},
			wantErr: "holds no text",
		},
		{
			name:    "Empty slot",
			patch:   Patch{Type: PatchRemove, Node: &NodeRef{Slot: slot(7)}},
			wantErr: "slot 7 is empty",
		},
		{
			name:    "Root",
			patch:   Patch{Type: PatchRemove, Node: &NodeRef{}},
			wantErr: "cannot detach the root",
		},
		{
			name:    "Insert under text",
			patch:   Patch{Type: PatchInsertText, Parent: NodePath{0, 0}, Position: 0, Text: "x"},
			wantErr: "cannot hold children",
		},
		{
			name:    "Unknown type",
			patch:   Patch{Type: "REPLACE"},
			wantErr: "unknown patch type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := bodyOf(t, `<p>Hello</p>`)
			err := Apply(body, []Patch{tt.patch})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) || !strings.Contains(err.Error(), "failed to apply patch 0") {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
