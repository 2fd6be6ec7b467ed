package treediff

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

var (
	// ErrRoundTrip is returned by Diff in verify mode when the patches do
	// not reproduce the new document.
	ErrRoundTrip = errors.New("patches do not reproduce the target document")
	// ErrBaseMismatch is returned when a delta is applied to a document
	// other than the one it was computed from.
	ErrBaseMismatch = errors.New("base hash mismatch")
	// ErrInvalidUTF8 is returned by Diff for documents whose text or
	// attributes are not valid UTF-8. Serialized deltas are JSON, which
	// would replace such bytes with U+FFFD.
	ErrInvalidUTF8 = errors.New("document is not valid UTF-8")
)

// DiffTrees matches a against b and returns the matching together with the
// edit script turning a into b. The script is simplified unless
// WithSimplify(false) is given.
func DiffTrees(a, b *Tree, opts ...Option) (*Matching, []EditOp) {
	o := newOptions(opts)
	m := Match(a, b, opts...)
	ops := BuildScript(a, b, m)
	raw := len(ops)
	if o.Simplify {
		ops = Simplify(ops, a, b)
	}
	o.Logger.WithFields(logrus.Fields{
		"matched":    m.Len(),
		"ops":        raw,
		"simplified": len(ops),
	}).Debug("built edit script")
	return m, ops
}

// Diff calculates the patches needed to transform 'oldHTML' into 'newHTML'.
func Diff(oldHTML, newHTML, author string, opts ...Option) (*Delta, error) {
	o := newOptions(opts)

	a, oldDoc, err := ParseTree(oldHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse old HTML: %w", err)
	}
	b, _, err := ParseTree(newHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse new HTML: %w", err)
	}
	if err := checkUTF8(a); err != nil {
		return nil, fmt.Errorf("old HTML: %w", err)
	}
	if err := checkUTF8(b); err != nil {
		return nil, fmt.Errorf("new HTML: %w", err)
	}

	m, ops := DiffTrees(a, b, opts...)
	patches, err := Translate(ops, a, b, m, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to translate edit script: %w", err)
	}

	if o.Verify {
		patched, err := ApplyCopy(oldDoc, patches, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRoundTrip, err)
		}
		if !Equal(FromHTML(patched), b) {
			return nil, ErrRoundTrip
		}
		o.Logger.Debug("round trip verified")
	}

	return &Delta{
		BaseHash:  hashString(oldHTML),
		Script:    ops,
		Patches:   patches,
		Timestamp: time.Now().Unix(),
		Author:    author,
	}, nil
}

// ApplyDelta applies the changes in 'delta' to 'baseHTML'.
func ApplyDelta(baseHTML string, delta *Delta, opts ...Option) (string, error) {
	if currentHash := hashString(baseHTML); currentHash != delta.BaseHash {
		return "", fmt.Errorf("%w: expected %s, got %s", ErrBaseMismatch, delta.BaseHash, currentHash)
	}

	doc, err := ParseHTML(baseHTML)
	if err != nil {
		return "", err
	}
	if err := Apply(doc, delta.Patches, opts...); err != nil {
		return "", err
	}
	return RenderNode(doc)
}

func checkUTF8(t *Tree) error {
	for id := range t.PreOrder() {
		d := t.Data(id)
		if !utf8.ValidString(string(d.Kind)) || !utf8.ValidString(d.Label) {
			return fmt.Errorf("%w: node %d (%q)", ErrInvalidUTF8, id, d.Kind)
		}
		for _, p := range d.Props {
			if !utf8.ValidString(p.Key) || !utf8.ValidString(p.Value) {
				return fmt.Errorf("%w: attribute %q of node %d", ErrInvalidUTF8, p.Key, id)
			}
		}
	}
	return nil
}

func hashString(s string) string {
	h := sha256.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
