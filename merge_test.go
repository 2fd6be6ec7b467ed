package treediff

import (
	"errors"
	"testing"
)

func TestMerge(t *testing.T) {
	baseHTML := `<ul><li>A</li><li>B</li></ul>`

	// Delta A: Insert X at 0
	deltaA, _ := Diff(baseHTML, `<ul><li>X</li><li>A</li><li>B</li></ul>`, "A")

	// Delta B: Insert Y at 2 (Append)
	deltaB, _ := Diff(baseHTML, `<ul><li>A</li><li>B</li><li>Y</li></ul>`, "B")

	mergedHTML, merged, conflicts, err := Merge(baseHTML, deltaA, deltaB)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if len(conflicts) > 0 {
		t.Fatalf("Unexpected conflicts: %v", conflicts)
	}
	if merged.Author != "system-merge" || len(merged.Patches) != 2 {
		t.Errorf("unexpected merged delta: %+v", merged)
	}

	wanted := `<ul><li>X</li><li>A</li><li>B</li><li>Y</li></ul>`
	if got, want := normalize(t, mergedHTML), normalize(t, wanted); got != want {
		t.Errorf("Merge mismatch.\nWant: %s\nGot:  %s", want, got)
	}
}

func TestMergeSamePosition(t *testing.T) {
	baseHTML := `<ul><li>A</li></ul>`
	deltaA, _ := Diff(baseHTML, `<ul><li>X</li><li>A</li></ul>`, "A")
	deltaB, _ := Diff(baseHTML, `<ul><li>Y</li><li>A</li></ul>`, "B")

	mergedHTML, _, conflicts, err := Merge(baseHTML, deltaA, deltaB)
	if err != nil || len(conflicts) > 0 {
		t.Fatalf("Merge failed: %v %v", err, conflicts)
	}
	// A's insert wins the tie and stays first.
	wanted := `<ul><li>X</li><li>Y</li><li>A</li></ul>`
	if got, want := normalize(t, mergedHTML), normalize(t, wanted); got != want {
		t.Errorf("Merge mismatch.\nWant: %s\nGot:  %s", want, got)
	}
}

func TestMergeAll(t *testing.T) {
	baseHTML := `<div><p>Start</p><p>Line 1</p></div>`

	// Delta 1: Change the second line
	delta1, _ := Diff(baseHTML, `<div><p>Start</p><p>Line 2</p></div>`, "User1")

	// Delta 2: Change the first line
	delta2, _ := Diff(baseHTML, `<div><p>Starts</p><p>Line 1</p></div>`, "User2")

	// Delta 3: Add an attribute to div
	delta3, _ := Diff(baseHTML, `<div class="x"><p>Start</p><p>Line 1</p></div>`, "User3")

	mergedHTML, _, conflicts, err := MergeAll(baseHTML, []*Delta{delta1, delta2, delta3})
	if err != nil {
		t.Fatalf("MergeAll failed: %v", err)
	}
	if len(conflicts) > 0 {
		t.Fatalf("Unexpected conflicts: %v", conflicts)
	}

	wanted := `<div class="x"><p>Starts</p><p>Line 2</p></div>`
	if got, want := normalize(t, mergedHTML), normalize(t, wanted); got != want {
		t.Errorf("MergeAll mismatch.\nWant: %s\nGot:  %s", want, got)
	}
}

func TestMergeShiftsPaths(t *testing.T) {
	baseHTML := `<ul><li>A</li><li>Hello world</li></ul>`

	// A removes the first item, B edits the second one.
	deltaA, _ := Diff(baseHTML, `<ul><li>Hello world</li></ul>`, "A")
	deltaB, _ := Diff(baseHTML, `<ul><li>A</li><li>Hello big world</li></ul>`, "B")

	mergedHTML, _, conflicts, err := Merge(baseHTML, deltaA, deltaB)
	if err != nil || len(conflicts) > 0 {
		t.Fatalf("Merge failed: %v %v", err, conflicts)
	}
	wanted := `<ul><li>Hello big world</li></ul>`
	if got, want := normalize(t, mergedHTML), normalize(t, wanted); got != want {
		t.Errorf("Merge mismatch.\nWant: %s\nGot:  %s", want, got)
	}
}

func TestMergeSameRemoval(t *testing.T) {
	baseHTML := `<ul><li>A</li><li>B</li><li>C</li></ul>`
	deltaA, _ := Diff(baseHTML, `<ul><li>A</li><li>C</li></ul>`, "A")
	deltaB, _ := Diff(baseHTML, `<ul><li>A</li><li>C</li></ul>`, "B")

	mergedHTML, _, conflicts, err := Merge(baseHTML, deltaA, deltaB)
	if err != nil || len(conflicts) > 0 {
		t.Fatalf("Merge failed: %v %v", err, conflicts)
	}
	wanted := `<ul><li>A</li><li>C</li></ul>`
	if got, want := normalize(t, mergedHTML), normalize(t, wanted); got != want {
		t.Errorf("Merge mismatch.\nWant: %s\nGot:  %s", want, got)
	}
}

func TestConflict(t *testing.T) {
	tests := []struct {
		name     string
		baseHTML string
		htmlA    string
		htmlB    string
		wantType string
	}{
		{
			name:     "Text",
			baseHTML: `<div>Hello world</div>`,
			htmlA:    `<div>Hello big world</div>`,
			htmlB:    `<div>Hello there world</div>`,
			wantType: "Direct",
		},
		{
			name:     "Attribute",
			baseHTML: `<div class="a"></div>`,
			htmlA:    `<div class="b"></div>`,
			htmlB:    `<div></div>`,
			wantType: "Direct",
		},
		{
			name:     "Edit of removed node",
			baseHTML: `<ul><li>A</li><li>Hello world</li></ul>`,
			htmlA:    `<ul><li>A</li></ul>`,
			htmlB:    `<ul><li>A</li><li>Hello big world</li></ul>`,
			wantType: "Structure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deltaA, _ := Diff(tt.baseHTML, tt.htmlA, "A")
			deltaB, _ := Diff(tt.baseHTML, tt.htmlB, "B")

			_, merged, conflicts, err := Merge(tt.baseHTML, deltaA, deltaB)
			if err != nil {
				t.Fatalf("Merge failed: %v", err)
			}
			if merged != nil {
				t.Error("conflicting merge should not produce a delta")
			}
			if len(conflicts) != 1 {
				t.Fatalf("Expected 1 conflict, got %d: %v", len(conflicts), conflicts)
			}
			if conflicts[0].Type != tt.wantType {
				t.Errorf("conflict type = %s, want %s", conflicts[0].Type, tt.wantType)
			}
		})
	}
}

func TestMergeRejects(t *testing.T) {
	baseHTML := `<ul><li>A</li><li>B</li><li>C</li></ul>`
	moved, _ := Diff(baseHTML, `<ul><li>C</li><li>A</li><li>B</li></ul>`, "A")
	edit, _ := Diff(baseHTML, `<ul><li>A</li><li>B</li></ul>`, "B")

	if _, _, _, err := Merge(baseHTML, moved, edit); !errors.Is(err, ErrUnmergeable) {
		t.Errorf("Merge() error = %v, want ErrUnmergeable", err)
	}

	other, _ := Diff(`<p>x</p>`, `<p>y</p>`, "C")
	if _, _, _, err := Merge(baseHTML, edit, other); !errors.Is(err, ErrBaseMismatch) {
		t.Errorf("Merge() error = %v, want ErrBaseMismatch", err)
	}
}
