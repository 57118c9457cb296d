package transpile

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/qbridge/qbridge/pkg/cache"
	"github.com/qbridge/qbridge/pkg/errors"
	"github.com/qbridge/qbridge/pkg/format"
	"github.com/qbridge/qbridge/pkg/graph"
	"github.com/qbridge/qbridge/pkg/observability"
	"github.com/qbridge/qbridge/pkg/qasm"
)

// fakeProgram is a tagged, cloneable payload standing in for a vendor
// circuit object.
type fakeProgram struct {
	fmt format.Format
}

func (p *fakeProgram) ProgramFormat() format.Format { return p.fmt }
func (p *fakeProgram) CloneProgram() any            { return &fakeProgram{fmt: p.fmt} }

// edgeRecorder tracks converter invocations in call order.
type edgeRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *edgeRecorder) record(label string) {
	r.mu.Lock()
	r.calls = append(r.calls, label)
	r.mu.Unlock()
}

func (r *edgeRecorder) okEdge(t *testing.T, reg *format.Registry, source, target format.Format) *graph.Edge {
	t.Helper()
	e, err := graph.NewEdge(reg, source, target, func(ctx context.Context, program any) (any, error) {
		r.record(string(source) + "->" + string(target))
		return &fakeProgram{fmt: target}, nil
	})
	if err != nil {
		t.Fatalf("NewEdge(%s, %s) = %v", source, target, err)
	}
	return e
}

func (r *edgeRecorder) failEdge(t *testing.T, reg *format.Registry, source, target format.Format) *graph.Edge {
	t.Helper()
	e, err := graph.NewEdge(reg, source, target, func(ctx context.Context, program any) (any, error) {
		r.record(string(source) + "->" + string(target))
		return nil, errors.New(errors.ErrCodeInternal, "converter rejected program")
	})
	if err != nil {
		t.Fatalf("NewEdge(%s, %s) = %v", source, target, err)
	}
	return e
}

// conversionRecorder captures orchestrator hook events.
type conversionRecorder struct {
	mu        sync.Mutex
	attempts  []string
	steps     []string
	fallbacks []string
	completes []error
}

func (r *conversionRecorder) OnConvertStart(ctx context.Context, source, target string) {}

func (r *conversionRecorder) OnPathAttempt(ctx context.Context, index int, path string) {
	r.mu.Lock()
	r.attempts = append(r.attempts, path)
	r.mu.Unlock()
}

func (r *conversionRecorder) OnStepComplete(ctx context.Context, edge string, d time.Duration, err error) {
	r.mu.Lock()
	r.steps = append(r.steps, edge)
	r.mu.Unlock()
}

func (r *conversionRecorder) OnFallback(ctx context.Context, formatName string) {
	r.mu.Lock()
	r.fallbacks = append(r.fallbacks, formatName)
	r.mu.Unlock()
}

func (r *conversionRecorder) OnConvertComplete(ctx context.Context, source, target, path string, d time.Duration, err error) {
	r.mu.Lock()
	r.completes = append(r.completes, err)
	r.mu.Unlock()
}

// cacheRecorder captures cache hook events.
type cacheRecorder struct {
	mu     sync.Mutex
	hits   int
	misses int
	sets   int
}

func (r *cacheRecorder) OnCacheHit(ctx context.Context, keyType string) {
	r.mu.Lock()
	r.hits++
	r.mu.Unlock()
}

func (r *cacheRecorder) OnCacheMiss(ctx context.Context, keyType string) {
	r.mu.Lock()
	r.misses++
	r.mu.Unlock()
}

func (r *cacheRecorder) OnCacheSet(ctx context.Context, keyType string, size int) {
	r.mu.Lock()
	r.sets++
	r.mu.Unlock()
}

func TestTranspileShortCircuit(t *testing.T) {
	t.Cleanup(observability.Reset)
	rec := &conversionRecorder{}
	observability.SetConversionHooks(rec)

	// The graph has no edges touching qasm2, so any path query for it would
	// fail. Returning the program proves the short circuit skips the graph.
	reg := format.DefaultRegistry()
	recorder := &edgeRecorder{}
	g, err := graph.New(reg, recorder.okEdge(t, reg, format.Cirq, format.Braket))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	tr := New(g)
	program := "OPENQASM 2.0;\nqreg q[1];\n"
	out, err := tr.Transpile(context.Background(), program, format.Qasm2)
	if err != nil {
		t.Fatalf("Transpile() = %v", err)
	}
	if out != any(program) {
		t.Error("short circuit did not return the identical value")
	}
	if len(rec.attempts) != 0 {
		t.Errorf("short circuit attempted %d paths, want 0", len(rec.attempts))
	}
	if len(rec.completes) != 1 || rec.completes[0] != nil {
		t.Errorf("completes = %v, want one nil", rec.completes)
	}
}

func TestTranspileSingleHop(t *testing.T) {
	g, err := DefaultGraph()
	if err != nil {
		t.Fatalf("DefaultGraph() = %v", err)
	}
	tr := New(g)

	source := "OPENQASM 2.0;\ninclude \"qelib1.inc\";\nqreg q[2];\nh q[0];\n"
	out, err := tr.Transpile(context.Background(), source, format.Qasm3)
	if err != nil {
		t.Fatalf("Transpile() = %v", err)
	}
	text, ok := out.(string)
	if !ok {
		t.Fatalf("Transpile() returned %T, want string", out)
	}
	if !strings.Contains(text, "OPENQASM 3.0;") {
		t.Errorf("output not converted:\n%s", text)
	}
}

func TestTranspileValidationErrors(t *testing.T) {
	g, err := DefaultGraph()
	if err != nil {
		t.Fatalf("DefaultGraph() = %v", err)
	}
	tr := New(g)
	ctx := context.Background()
	qasm2 := "OPENQASM 2.0;\nqreg q[1];\n"

	tests := []struct {
		name     string
		program  any
		target   format.Format
		wantCode errors.Code
	}{
		{"UnknownTarget", qasm2, "quipper", errors.ErrCodeUnknownFormat},
		{"UndetectableProgram", 42, format.Qasm3, errors.ErrCodeUnsupportedFormat},
		{"HeaderlessSource", "qreg q[1];\n", format.Qasm3, errors.ErrCodeUnsupportedFormat},
		{"UnreachableTarget", qasm2, format.Cirq, errors.ErrCodeNoPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Transpile(ctx, tt.program, tt.target)
			if got := errors.GetCode(err); got != tt.wantCode {
				t.Errorf("Transpile() code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestTranspileMultiPathSuccess(t *testing.T) {
	// The first candidate fails, the second succeeds. The caller must see
	// only the success.
	reg := format.DefaultRegistry()
	recorder := &edgeRecorder{}
	g, err := graph.New(reg,
		recorder.failEdge(t, reg, format.Qasm2, format.Cirq),
		recorder.okEdge(t, reg, format.Cirq, format.Qiskit),
		recorder.okEdge(t, reg, format.Qasm2, format.Qasm3),
		recorder.okEdge(t, reg, format.Qasm3, format.Qiskit),
	)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	tr := New(g, WithFlattener(nil))
	out, err := tr.Transpile(context.Background(), &fakeProgram{fmt: format.Qasm2}, format.Qiskit)
	if err != nil {
		t.Fatalf("Transpile() = %v", err)
	}
	if p, ok := out.(*fakeProgram); !ok || p.fmt != format.Qiskit {
		t.Errorf("Transpile() = %#v, want qiskit program", out)
	}

	want := []string{"qasm2->cirq", "qasm2->qasm3", "qasm3->qiskit"}
	if len(recorder.calls) != len(want) {
		t.Fatalf("converter calls = %v, want %v", recorder.calls, want)
	}
	for i := range want {
		if recorder.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, recorder.calls[i], want[i])
		}
	}
}

func TestTranspileExhaustion(t *testing.T) {
	t.Cleanup(observability.Reset)
	rec := &conversionRecorder{}
	observability.SetConversionHooks(rec)

	// Three candidate paths, every first hop fails. Attempts must run in
	// ascending hop-count order and produce one terminal error.
	reg := format.DefaultRegistry()
	recorder := &edgeRecorder{}
	g, err := graph.New(reg,
		recorder.failEdge(t, reg, format.Qasm2, format.Cirq),
		recorder.okEdge(t, reg, format.Cirq, format.Qiskit),
		recorder.failEdge(t, reg, format.Qasm2, format.Qasm3),
		recorder.okEdge(t, reg, format.Qasm3, format.Qiskit),
		recorder.failEdge(t, reg, format.Qasm2, format.Braket),
		recorder.okEdge(t, reg, format.Braket, format.PyQuil),
		recorder.okEdge(t, reg, format.PyQuil, format.Qiskit),
	)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	tr := New(g, WithFlattener(nil))
	_, err = tr.Transpile(context.Background(), &fakeProgram{fmt: format.Qasm2}, format.Qiskit)
	if got := errors.GetCode(err); got != errors.ErrCodeConversionExhausted {
		t.Fatalf("Transpile() code = %q, want %q", got, errors.ErrCodeConversionExhausted)
	}
	if !strings.Contains(err.Error(), "3 candidates attempted") {
		t.Errorf("Transpile() error = %v, want candidate count", err)
	}

	wantAttempts := []string{
		"qasm2 -> cirq -> qiskit",
		"qasm2 -> qasm3 -> qiskit",
		"qasm2 -> braket -> pyquil -> qiskit",
	}
	if len(rec.attempts) != len(wantAttempts) {
		t.Fatalf("attempts = %v, want %v", rec.attempts, wantAttempts)
	}
	for i := range wantAttempts {
		if rec.attempts[i] != wantAttempts[i] {
			t.Errorf("attempts[%d] = %q, want %q", i, rec.attempts[i], wantAttempts[i])
		}
	}
}

func TestTranspileFallbackRetry(t *testing.T) {
	t.Cleanup(observability.Reset)
	rec := &conversionRecorder{}
	observability.SetConversionHooks(rec)

	// qasm3 -> qiskit rejects composite gates, so the first application
	// fails, the intermediate is flattened, and the single retry succeeds.
	reg := format.DefaultRegistry()
	up, err := graph.NewEdge(reg, format.Qasm2, format.Qasm3, func(ctx context.Context, p any) (any, error) {
		src := p.(string)
		return strings.Replace(src, "OPENQASM 2.0;", "OPENQASM 3.0;", 1), nil
	})
	if err != nil {
		t.Fatalf("NewEdge() = %v", err)
	}
	final, err := graph.NewEdge(reg, format.Qasm3, format.Qiskit, func(ctx context.Context, p any) (any, error) {
		if strings.Contains(p.(string), "gate ") {
			return nil, errors.New(errors.ErrCodeInternal, "composite gates unsupported")
		}
		return &fakeProgram{fmt: format.Qiskit}, nil
	})
	if err != nil {
		t.Fatalf("NewEdge() = %v", err)
	}
	g, err := graph.New(reg, up, final)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	flattener := &countingFlattener{}
	tr := New(g, WithFlattener(flattener))

	source := "OPENQASM 2.0;\ngate bell a, b {\n  h a;\n  cx a, b;\n}\nqubit[2] q;\nbell q[0], q[1];\n"
	out, err := tr.Transpile(context.Background(), source, format.Qiskit)
	if err != nil {
		t.Fatalf("Transpile() = %v", err)
	}
	if p, ok := out.(*fakeProgram); !ok || p.fmt != format.Qiskit {
		t.Errorf("Transpile() = %#v, want qiskit program", out)
	}

	if flattener.calls != 1 {
		t.Errorf("flatten calls = %d, want exactly 1", flattener.calls)
	}
	if len(rec.fallbacks) != 1 || rec.fallbacks[0] != "qasm3" {
		t.Errorf("fallbacks = %v, want one qasm3 event", rec.fallbacks)
	}

	// The failing edge is applied twice: the failure and the single retry.
	applications := 0
	for _, s := range rec.steps {
		if s == "qasm3 -> qiskit" {
			applications++
		}
	}
	if applications != 2 {
		t.Errorf("qasm3 -> qiskit applied %d times, want 2", applications)
	}
}

func TestTranspileFallbackRetriesOnlyOnce(t *testing.T) {
	t.Cleanup(observability.Reset)
	rec := &conversionRecorder{}
	observability.SetConversionHooks(rec)

	// The step keeps failing after the flatten, so the path fails after one
	// retry and the run ends in a terminal error.
	reg := format.DefaultRegistry()
	up, err := graph.NewEdge(reg, format.Qasm2, format.Qasm3, func(ctx context.Context, p any) (any, error) {
		return strings.Replace(p.(string), "OPENQASM 2.0;", "OPENQASM 3.0;", 1), nil
	})
	if err != nil {
		t.Fatalf("NewEdge() = %v", err)
	}
	final, err := graph.NewEdge(reg, format.Qasm3, format.Qiskit, func(ctx context.Context, p any) (any, error) {
		return nil, errors.New(errors.ErrCodeInternal, "always fails")
	})
	if err != nil {
		t.Fatalf("NewEdge() = %v", err)
	}
	g, err := graph.New(reg, up, final)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	flattener := &countingFlattener{}
	tr := New(g, WithFlattener(flattener))

	_, err = tr.Transpile(context.Background(), "OPENQASM 2.0;\nqreg q[1];\n", format.Qiskit)
	if got := errors.GetCode(err); got != errors.ErrCodeConversionExhausted {
		t.Fatalf("Transpile() code = %q, want %q", got, errors.ErrCodeConversionExhausted)
	}
	if flattener.calls != 1 {
		t.Errorf("flatten calls = %d, want exactly 1", flattener.calls)
	}

	applications := 0
	for _, s := range rec.steps {
		if s == "qasm3 -> qiskit" {
			applications++
		}
	}
	if applications != 2 {
		t.Errorf("qasm3 -> qiskit applied %d times, want 2 (failure plus one retry)", applications)
	}
}

func TestTranspileNonRecoverableSurfacesImmediately(t *testing.T) {
	t.Cleanup(observability.Reset)
	rec := &conversionRecorder{}
	observability.SetConversionHooks(rec)

	// rigidProgram is detectable but not cloneable, so the clone fails on
	// the first attempt. The error is not a step failure and must surface
	// without burning the second candidate.
	reg := format.DefaultRegistry()
	recorder := &edgeRecorder{}
	g, err := graph.New(reg,
		recorder.okEdge(t, reg, format.Qasm2, format.Cirq),
		recorder.okEdge(t, reg, format.Cirq, format.Qiskit),
		recorder.okEdge(t, reg, format.Qasm2, format.Qasm3),
		recorder.okEdge(t, reg, format.Qasm3, format.Qiskit),
	)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	tr := New(g, WithFlattener(nil))
	_, err = tr.Transpile(context.Background(), rigidProgram{}, format.Qiskit)
	if got := errors.GetCode(err); got != errors.ErrCodeUnsupported {
		t.Fatalf("Transpile() code = %q, want %q", got, errors.ErrCodeUnsupported)
	}
	if len(rec.attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(rec.attempts))
	}
	if len(recorder.calls) != 0 {
		t.Errorf("converter calls = %v, want none", recorder.calls)
	}
}

func TestTranspileMaxPaths(t *testing.T) {
	t.Cleanup(observability.Reset)
	rec := &conversionRecorder{}
	observability.SetConversionHooks(rec)

	reg := format.DefaultRegistry()
	recorder := &edgeRecorder{}
	g, err := graph.New(reg,
		recorder.failEdge(t, reg, format.Qasm2, format.Cirq),
		recorder.okEdge(t, reg, format.Cirq, format.Qiskit),
		recorder.okEdge(t, reg, format.Qasm2, format.Qasm3),
		recorder.okEdge(t, reg, format.Qasm3, format.Qiskit),
	)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	// With the candidate budget capped at 1, the working second path is
	// never considered.
	tr := New(g, WithFlattener(nil), WithMaxPaths(1))
	_, err = tr.Transpile(context.Background(), &fakeProgram{fmt: format.Qasm2}, format.Qiskit)
	if got := errors.GetCode(err); got != errors.ErrCodeConversionExhausted {
		t.Fatalf("Transpile() code = %q, want %q", got, errors.ErrCodeConversionExhausted)
	}
	if len(rec.attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(rec.attempts))
	}
}

func TestTranspilePathCaching(t *testing.T) {
	t.Cleanup(observability.Reset)
	rec := &cacheRecorder{}
	observability.SetCacheHooks(rec)

	reg := format.DefaultRegistry()
	recorder := &edgeRecorder{}
	g, err := graph.New(reg,
		recorder.okEdge(t, reg, format.Qasm2, format.Qasm3),
		recorder.okEdge(t, reg, format.Qasm3, format.Qiskit),
	)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	tr := New(g, WithFlattener(nil), WithCache(cache.NewMemoryCache(), nil))
	defer tr.Close()
	ctx := context.Background()
	program := &fakeProgram{fmt: format.Qasm2}

	if _, err := tr.Transpile(ctx, program, format.Qiskit); err != nil {
		t.Fatalf("Transpile() = %v", err)
	}
	if rec.misses != 1 || rec.sets != 1 || rec.hits != 0 {
		t.Fatalf("after first run: hits=%d misses=%d sets=%d", rec.hits, rec.misses, rec.sets)
	}

	if _, err := tr.Transpile(ctx, program, format.Qiskit); err != nil {
		t.Fatalf("Transpile() = %v", err)
	}
	if rec.hits != 1 {
		t.Errorf("after second run: hits=%d, want 1", rec.hits)
	}

	// A graph mutation bumps the version and invalidates cached queries.
	direct := recorder.okEdge(t, reg, format.Qasm2, format.Qiskit)
	if err := g.AddConversion(direct, false); err != nil {
		t.Fatalf("AddConversion() = %v", err)
	}
	if _, err := tr.Transpile(ctx, program, format.Qiskit); err != nil {
		t.Fatalf("Transpile() = %v", err)
	}
	if rec.misses != 2 {
		t.Errorf("after graph mutation: misses=%d, want 2", rec.misses)
	}
}

func TestTranspileContextCancellation(t *testing.T) {
	t.Cleanup(observability.Reset)
	rec := &conversionRecorder{}
	observability.SetConversionHooks(rec)

	g, err := DefaultGraph()
	if err != nil {
		t.Fatalf("DefaultGraph() = %v", err)
	}
	tr := New(g)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = tr.Transpile(ctx, "OPENQASM 2.0;\nqreg q[1];\n", format.Qasm3)
	if err == nil {
		t.Fatal("Transpile() = nil error with cancelled context")
	}

	// Every started run ends with exactly one completion event, and a
	// cancelled run carries the context error.
	if len(rec.attempts) != 0 {
		t.Errorf("attempts = %d with cancelled context, want 0", len(rec.attempts))
	}
	if len(rec.completes) != 1 {
		t.Fatalf("completes = %d, want 1", len(rec.completes))
	}
	if rec.completes[0] == nil {
		t.Error("completion event carries no error for a cancelled run")
	}
}

// countingFlattener counts flatten invocations and delegates to the real
// gate inliner.
type countingFlattener struct {
	calls int
}

func (f *countingFlattener) Format() format.Format { return format.Qasm3 }

func (f *countingFlattener) Flatten(program any) (any, error) {
	f.calls++
	src, ok := program.(string)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupportedFormat, "cannot flatten %T", program)
	}
	return qasm.Flatten(src)
}

// rigidProgram is detectable but deliberately not cloneable.
type rigidProgram struct{}

func (rigidProgram) ProgramFormat() format.Format { return format.Qasm2 }
