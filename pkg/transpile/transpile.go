// Package transpile implements the conversion orchestrator: given a program
// and a target format, it detects the source format, asks the conversion
// graph for candidate paths, and executes them in order with a bounded
// per-step fallback.
//
// # Execution model
//
// A conversion run proceeds through a fixed sequence of states:
//
//  1. Detect the source format; fail fast for unknown targets.
//  2. Short-circuit when the program is already in the target format.
//  3. Query the graph for the top-N shortest candidate paths (default 3).
//  4. Attempt each candidate in ascending hop-count order on a private deep
//     copy of the original program. Within a path, edges are applied
//     strictly in sequence; a failed step is retried at most once, after
//     applying the flatten fallback when the current intermediate's format
//     supports it.
//  5. Surface a single terminal CONVERSION_EXHAUSTED error only after every
//     candidate path has failed.
//
// Step-level failures (FORMAT_MISMATCH, STEP_CONVERSION) never reach the
// caller while alternative candidates remain; they are visible through
// debug logs and [observability] hooks only.
//
// Execution is synchronous. The graph is read-only during conversion, so
// independent conversions may share one Transpiler concurrently.
//
// # Usage
//
//	g, _ := transpile.DefaultGraph()
//	t := transpile.New(g, transpile.WithLogger(logger))
//	out, err := t.Transpile(ctx, program, format.Qasm3)
package transpile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/qbridge/qbridge/pkg/cache"
	"github.com/qbridge/qbridge/pkg/errors"
	"github.com/qbridge/qbridge/pkg/format"
	"github.com/qbridge/qbridge/pkg/graph"
	"github.com/qbridge/qbridge/pkg/observability"
	"github.com/qbridge/qbridge/pkg/qasm"
)

// Transpiler routes programs through the conversion graph.
//
// A Transpiler is immutable after New and safe for concurrent use as long
// as the underlying graph is not mutated.
type Transpiler struct {
	graph     *graph.ConversionGraph
	detector  graph.Detector
	flattener Flattener
	clone     CloneFunc
	logger    *log.Logger
	cache     cache.Cache
	keyer     cache.Keyer
	maxPaths  int
}

// New creates a Transpiler over the given graph.
//
// Defaults: the built-in detector (TaggedProgram implementations and
// OpenQASM text), the qasm3 flatten fallback, DefaultClone, a discarding
// logger, no path caching, and DefaultMaxPaths candidates.
func New(g *graph.ConversionGraph, opts ...Option) *Transpiler {
	t := &Transpiler{
		graph:     g,
		detector:  defaultDetector{},
		flattener: qasm.Flattener{},
		clone:     DefaultClone,
		logger:    discardLogger(),
		cache:     cache.NewNullCache(),
		keyer:     cache.NewDefaultKeyer(),
		maxPaths:  DefaultMaxPaths,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Graph returns the underlying conversion graph.
func (t *Transpiler) Graph() *graph.ConversionGraph { return t.graph }

// Close releases resources held by the transpiler (primarily the cache).
func (t *Transpiler) Close() error {
	if t.cache != nil {
		return t.cache.Close()
	}
	return nil
}

// Transpile converts the program to the target format.
//
// The caller's program is never mutated; each path attempt operates on a
// private deep copy. When the program is already in the target format the
// identical value is returned without touching the graph.
//
// Errors: UNKNOWN_FORMAT for an unregistered target, UNSUPPORTED_FORMAT
// when source detection fails, NO_PATH when the graph has no route, and
// CONVERSION_EXHAUSTED after all candidate paths fail.
func (t *Transpiler) Transpile(ctx context.Context, program any, target format.Format) (any, error) {
	start := time.Now()

	if err := t.graph.Registry().Validate(target); err != nil {
		return nil, err
	}
	source, err := t.detector.Detect(program)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnsupportedFormat, err, "detect source format")
	}

	observability.Conversion().OnConvertStart(ctx, string(source), string(target))

	if source == target {
		t.logger.Debug("program already in target format", "format", source)
		observability.Conversion().OnConvertComplete(ctx, string(source), string(target), string(source), time.Since(start), nil)
		return program, nil
	}

	paths, err := t.candidatePaths(ctx, source, target)
	if err != nil {
		observability.Conversion().OnConvertComplete(ctx, string(source), string(target), "", time.Since(start), err)
		return nil, err
	}

	var lastErr error
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			observability.Conversion().OnConvertComplete(ctx, string(source), string(target), "", time.Since(start), err)
			return nil, err
		}
		observability.Conversion().OnPathAttempt(ctx, i, path.String())
		t.logger.Debug("attempting conversion path", "attempt", i+1, "of", len(paths), "path", path.String())

		out, err := t.attemptPath(ctx, path, program)
		if err == nil {
			t.logger.Info("converted program", "path", path.String(), "duration", time.Since(start))
			observability.Conversion().OnConvertComplete(ctx, string(source), string(target), path.String(), time.Since(start), nil)
			return out, nil
		}
		if !errors.Recoverable(err) {
			// Clone failures and context errors affect every candidate the
			// same way; surface them instead of burning the remaining paths.
			observability.Conversion().OnConvertComplete(ctx, string(source), string(target), "", time.Since(start), err)
			return nil, err
		}
		t.logger.Debug("conversion path failed", "path", path.String(), "error", err)
		lastErr = err
	}

	terminal := errors.Wrap(errors.ErrCodeConversionExhausted, lastErr,
		"no successful conversion path from %q to %q (%d candidates attempted)", source, target, len(paths))
	observability.Conversion().OnConvertComplete(ctx, string(source), string(target), "", time.Since(start), terminal)
	return nil, terminal
}

// attemptPath executes one candidate path on a private copy of the program.
// A failed step gets exactly one retry, preceded by the flatten fallback
// when the current intermediate's detected format supports it.
func (t *Transpiler) attemptPath(ctx context.Context, path graph.Path, program any) (any, error) {
	work, err := t.clone(program)
	if err != nil {
		return nil, err
	}

	for _, edge := range path {
		stepStart := time.Now()
		out, err := edge.Apply(ctx, t.detector, work)
		observability.Conversion().OnStepComplete(ctx, edge.String(), time.Since(stepStart), err)
		if err == nil {
			work = out
			continue
		}

		flat, ok := t.tryFlatten(ctx, work, err)
		if !ok {
			return nil, err
		}

		retryStart := time.Now()
		out, retryErr := edge.Apply(ctx, t.detector, flat)
		observability.Conversion().OnStepComplete(ctx, edge.String(), time.Since(retryStart), retryErr)
		if retryErr != nil {
			return nil, retryErr
		}
		work = out
	}
	return work, nil
}

// tryFlatten applies the flatten fallback to the current intermediate if
// the step failure is recoverable and the intermediate's detected format is
// the one the fallback supports. Returns the flattened program and whether
// a retry should happen.
func (t *Transpiler) tryFlatten(ctx context.Context, work any, stepErr error) (any, bool) {
	if t.flattener == nil || !errors.Recoverable(stepErr) {
		return nil, false
	}
	current, err := t.detector.Detect(work)
	if err != nil || current != t.flattener.Format() {
		return nil, false
	}

	observability.Conversion().OnFallback(ctx, string(current))
	t.logger.Debug("flattening intermediate program", "format", current)

	flat, err := t.flattener.Flatten(work)
	if err != nil {
		t.logger.Debug("flatten fallback failed", "format", current, "error", err)
		return nil, false
	}
	return flat, true
}

// candidatePaths returns the top-N shortest paths, consulting the path
// cache when one is configured. Cached entries are scoped to the graph
// version and rebuilt from the live edge set on read.
func (t *Transpiler) candidatePaths(ctx context.Context, source, target format.Format) ([]graph.Path, error) {
	key := t.keyer.PathKey(t.graph.Version(), cache.PathKeyOpts{
		Source: string(source),
		Target: string(target),
		N:      t.maxPaths,
	})

	if data, hit, err := t.cache.Get(ctx, key); err == nil && hit {
		if paths, ok := t.decodePaths(data); ok {
			observability.Cache().OnCacheHit(ctx, "paths")
			return paths, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "paths")

	paths, err := t.graph.TopPaths(source, target, t.maxPaths)
	if err != nil {
		return nil, err
	}

	if data, err := encodePaths(paths); err == nil {
		if err := t.cache.Set(ctx, key, data, cache.TTLPaths); err == nil {
			observability.Cache().OnCacheSet(ctx, "paths", len(data))
		}
	}
	return paths, nil
}

// encodePaths serializes paths as format chains.
func encodePaths(paths []graph.Path) ([]byte, error) {
	chains := make([][]format.Format, len(paths))
	for i, p := range paths {
		chains[i] = p.Formats()
	}
	return json.Marshal(chains)
}

// decodePaths rebuilds paths from cached format chains against the live
// edge set. Any missing edge invalidates the whole entry.
func (t *Transpiler) decodePaths(data []byte) ([]graph.Path, bool) {
	var chains [][]format.Format
	if err := json.Unmarshal(data, &chains); err != nil || len(chains) == 0 {
		return nil, false
	}
	paths := make([]graph.Path, 0, len(chains))
	for _, chain := range chains {
		if len(chain) < 2 {
			return nil, false
		}
		path := make(graph.Path, 0, len(chain)-1)
		for i := 0; i+1 < len(chain); i++ {
			edge, ok := t.graph.Edge(chain[i], chain[i+1])
			if !ok {
				return nil, false
			}
			path = append(path, edge)
		}
		paths = append(paths, path)
	}
	return paths, true
}
