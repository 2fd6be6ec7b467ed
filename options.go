package treediff

import (
	"github.com/sirupsen/logrus"
)

// DefaultSimilarityThreshold is the minimum label similarity for two leaves
// with different labels to be matched.
const DefaultSimilarityThreshold = 0.5

// Options configures diffing, translation and patch application.
type Options struct {
	// SimilarityThreshold is the minimum similarity (0..1) for leaves whose
	// labels differ. Candidates below it are never matched.
	SimilarityThreshold float64
	// MinHeight is the smallest subtree height considered by exact subtree
	// matching. Shorter subtrees are left to label matching, where the
	// parent context is known.
	MinHeight int
	// Simplify collapses whole-subtree operations into their root op.
	Simplify bool
	// Verify replays the patches on a copy of the old document and checks
	// the result against the new one.
	Verify bool
	Logger logrus.FieldLogger
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		SimilarityThreshold: DefaultSimilarityThreshold,
		MinHeight:           1,
		Simplify:            true,
		Logger:              logrus.StandardLogger(),
	}
}

func newOptions(opts []Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// WithSimilarityThreshold sets the minimum label similarity for leaf matching.
func WithSimilarityThreshold(th float64) Option {
	return func(o *Options) { o.SimilarityThreshold = th }
}

// WithMinHeight sets the minimum subtree height for exact subtree matching.
func WithMinHeight(h int) Option {
	return func(o *Options) { o.MinHeight = h }
}

// WithSimplify enables or disables script simplification.
func WithSimplify(enable bool) Option {
	return func(o *Options) { o.Simplify = enable }
}

// WithVerify enables round-trip verification in Diff.
func WithVerify(enable bool) Option {
	return func(o *Options) { o.Verify = enable }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Options) { o.Logger = l }
}
