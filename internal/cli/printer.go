package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"

	"github.com/dannyswat/treediff"
)

var (
	insertColor = color.New(color.FgGreen)
	removeColor = color.New(color.FgRed)
	moveColor   = color.New(color.FgYellow)
	updateColor = color.New(color.FgCyan)
	faintColor  = color.New(color.Faint)
)

// writeDelta renders delta in the configured format.
func writeDelta(w io.Writer, format string, delta *treediff.Delta) error {
	switch format {
	case FormatYAML:
		out, err := yaml.Marshal(delta)
		if err != nil {
			return fmt.Errorf("failed to encode delta: %w", err)
		}
		_, err = w.Write(out)
		return err
	case FormatText:
		return writeDeltaText(w, delta)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(delta)
}

func writeDeltaText(w io.Writer, delta *treediff.Delta) error {
	faintColor.Fprintf(w, "base %s", delta.BaseHash)
	if delta.Author != "" {
		faintColor.Fprintf(w, " by %s", delta.Author)
	}
	fmt.Fprintln(w)
	for i, p := range delta.Patches {
		if _, err := patchColor(p.Type).Fprintf(w, "%3d %s\n", i, p); err != nil {
			return err
		}
	}
	return nil
}

func patchColor(t treediff.PatchType) *color.Color {
	switch t {
	case treediff.PatchInsertElement, treediff.PatchInsertText, treediff.PatchInsertComment, treediff.PatchInsertDoctype:
		return insertColor
	case treediff.PatchRemove:
		return removeColor
	case treediff.PatchMove, treediff.PatchDetach:
		return moveColor
	}
	return updateColor
}

func writeConflicts(w io.Writer, conflicts []treediff.Conflict) {
	for _, c := range conflicts {
		removeColor.Fprintf(w, "%s conflict at %v: %s\n", c.Type, []int(c.Path), c.Description)
		for _, p := range c.Patches {
			faintColor.Fprintf(w, "    %s\n", p)
		}
	}
}

// readDelta decodes a delta written as JSON or YAML.
func readDelta(data []byte) (*treediff.Delta, error) {
	var delta treediff.Delta
	var err error
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(data, &delta)
	} else {
		err = yaml.Unmarshal(data, &delta)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode delta: %w", err)
	}
	return &delta, nil
}
