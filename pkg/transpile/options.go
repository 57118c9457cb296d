package transpile

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/qbridge/qbridge/pkg/cache"
	"github.com/qbridge/qbridge/pkg/errors"
	"github.com/qbridge/qbridge/pkg/format"
	"github.com/qbridge/qbridge/pkg/graph"
	"github.com/qbridge/qbridge/pkg/qasm"
)

// DefaultMaxPaths is the number of candidate paths attempted before the
// orchestrator declares terminal failure.
const DefaultMaxPaths = 3

// Flattener is the decompose fallback bound to exactly one intermediate
// representation. When a conversion step fails and the current intermediate
// program's detected format equals Format(), the orchestrator applies
// Flatten once and retries the step once.
type Flattener interface {
	Format() format.Format
	Flatten(program any) (any, error)
}

// CloneFunc deep-copies a program payload. The orchestrator clones the
// caller's program once per path attempt so the original is never mutated.
type CloneFunc func(program any) (any, error)

// Cloner lets custom program types opt in to DefaultClone.
type Cloner interface {
	CloneProgram() any
}

// DefaultClone copies string and []byte payloads and types implementing
// [Cloner]. Other types fail with UNSUPPORTED - supply WithClone for
// pointer-typed vendor programs.
func DefaultClone(program any) (any, error) {
	switch p := program.(type) {
	case string:
		return p, nil
	case []byte:
		return slices.Clone(p), nil
	}
	if c, ok := program.(Cloner); ok {
		return c.CloneProgram(), nil
	}
	return nil, errors.New(errors.ErrCodeUnsupported,
		"cannot deep-copy program of type %T; configure transpile.WithClone", program)
}

// TaggedProgram lets non-string program types report their own format.
type TaggedProgram interface {
	ProgramFormat() format.Format
}

// defaultDetector recognizes TaggedProgram implementations and OpenQASM
// source text.
type defaultDetector struct{}

func (defaultDetector) Detect(program any) (format.Format, error) {
	if tagged, ok := program.(TaggedProgram); ok {
		return tagged.ProgramFormat(), nil
	}
	if src, ok := program.(string); ok {
		return qasm.DetectVersion(src)
	}
	return "", errors.New(errors.ErrCodeUnsupportedFormat, "cannot detect format of %T", program)
}

// Option configures a Transpiler.
type Option func(*Transpiler)

// WithDetector replaces the default format detector.
func WithDetector(d graph.Detector) Option {
	return func(t *Transpiler) {
		if d != nil {
			t.detector = d
		}
	}
}

// WithFlattener replaces the default flatten fallback.
// Pass nil to disable the fallback entirely.
func WithFlattener(f Flattener) Option {
	return func(t *Transpiler) { t.flattener = f }
}

// WithClone replaces the default deep-copy function.
func WithClone(fn CloneFunc) Option {
	return func(t *Transpiler) {
		if fn != nil {
			t.clone = fn
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *log.Logger) Option {
	return func(t *Transpiler) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMaxPaths sets the number of candidate paths attempted per conversion.
// Values below 1 are ignored.
func WithMaxPaths(n int) Option {
	return func(t *Transpiler) {
		if n >= 1 {
			t.maxPaths = n
		}
	}
}

// WithCache enables caching of path-query results. Cached paths are scoped
// to the graph version, so graph mutations invalidate them. If keyer is
// nil, a DefaultKeyer is used.
func WithCache(c cache.Cache, keyer cache.Keyer) Option {
	return func(t *Transpiler) {
		if c != nil {
			t.cache = c
		}
		if keyer != nil {
			t.keyer = keyer
		}
	}
}

// discardLogger returns a logger that writes nowhere.
func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// DefaultGraph builds a conversion graph over the default format registry,
// seeded with the built-in OpenQASM edges (qasm2 <-> qasm3).
func DefaultGraph() (*graph.ConversionGraph, error) {
	reg := format.DefaultRegistry()
	edges, err := qasm.Edges(reg)
	if err != nil {
		return nil, err
	}
	return graph.New(reg, edges...)
}
