package graph

import (
	"context"

	"github.com/qbridge/qbridge/pkg/errors"
	"github.com/qbridge/qbridge/pkg/format"
)

// ConvertFunc translates a program from one format to another.
// The input program is owned by the caller; implementations must return a
// new value rather than mutating the input. Conversions may perform blocking
// work (e.g., lazy loading of vendor tooling) and should honor ctx.
type ConvertFunc func(ctx context.Context, program any) (any, error)

// Detector reports the canonical format of an arbitrary program payload.
// Implementations fail with an UNSUPPORTED_FORMAT error when the payload is
// not recognized.
type Detector interface {
	Detect(program any) (format.Format, error)
}

// Edge is a directed, single-function translation between two formats.
//
// Edges are constructed once at graph-build time and immutable thereafter.
// Identity for graph purposes is the (source, target) pair only - two edges
// with the same endpoints but different converter functions are the same
// edge as far as [ConversionGraph.AddConversion] is concerned.
type Edge struct {
	source  format.Format
	target  format.Format
	convert ConvertFunc
	weight  float64
}

// EdgeOption configures optional edge attributes.
type EdgeOption func(*Edge)

// WithWeight sets the declared cost weight of the edge.
//
// Weights are stored and reported but path ranking is purely by hop count;
// ShortestPath and TopPaths do not consult them.
func WithWeight(w float64) EdgeOption {
	return func(e *Edge) { e.weight = w }
}

// NewEdge creates an edge wrapping a pairwise converter function.
//
// Both endpoints must be registered formats (UNKNOWN_FORMAT otherwise), the
// endpoints must differ, and the converter must be non-nil (INVALID_EDGE).
// The default weight is 1.
func NewEdge(reg *format.Registry, source, target format.Format, fn ConvertFunc, opts ...EdgeOption) (*Edge, error) {
	if err := reg.Validate(source); err != nil {
		return nil, err
	}
	if err := reg.Validate(target); err != nil {
		return nil, err
	}
	if source == target {
		return nil, errors.New(errors.ErrCodeInvalidEdge, "edge endpoints must differ: %q", source)
	}
	if fn == nil {
		return nil, errors.New(errors.ErrCodeInvalidEdge, "edge %s -> %s requires a converter function", source, target)
	}

	e := &Edge{
		source:  source,
		target:  target,
		convert: fn,
		weight:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Source returns the declared input format.
func (e *Edge) Source() format.Format { return e.source }

// Target returns the declared output format.
func (e *Edge) Target() format.Format { return e.target }

// Weight returns the declared cost weight (default 1, unused by ranking).
func (e *Edge) Weight() float64 { return e.weight }

// String returns the edge as "source -> target".
func (e *Edge) String() string {
	return string(e.source) + " -> " + string(e.target)
}

// Apply runs the wrapped converter on the program after validating that the
// program's detected format matches the edge's declared source.
//
// A detection mismatch fails with FORMAT_MISMATCH describing expected vs.
// actual. A converter failure is wrapped as STEP_CONVERSION preserving the
// underlying cause. Both are recoverable by the orchestrator.
func (e *Edge) Apply(ctx context.Context, det Detector, program any) (any, error) {
	actual, err := det.Detect(program)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormatMismatch, err,
			"edge %s: program format could not be detected", e)
	}
	if actual != e.source {
		return nil, errors.New(errors.ErrCodeFormatMismatch,
			"edge %s: expected %q input, detected %q", e, e.source, actual)
	}

	out, err := e.convert(ctx, program)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStepConversion, err, "convert %s", e)
	}
	return out, nil
}
