package qasm

import (
	"context"

	"github.com/qbridge/qbridge/pkg/errors"
	"github.com/qbridge/qbridge/pkg/format"
	"github.com/qbridge/qbridge/pkg/graph"
)

// Edges returns the OpenQASM conversion edges (qasm2 <-> qasm3) for seeding
// a conversion graph.
func Edges(reg *format.Registry) ([]*graph.Edge, error) {
	up, err := graph.NewEdge(reg, format.Qasm2, format.Qasm3, stringConverter(ConvertQasm2To3))
	if err != nil {
		return nil, err
	}
	down, err := graph.NewEdge(reg, format.Qasm3, format.Qasm2, stringConverter(ConvertQasm3To2))
	if err != nil {
		return nil, err
	}
	return []*graph.Edge{up, down}, nil
}

// stringConverter adapts a source-text converter to the graph's ConvertFunc.
func stringConverter(fn func(string) (string, error)) graph.ConvertFunc {
	return func(ctx context.Context, program any) (any, error) {
		src, ok := program.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeFormatMismatch, "expected OpenQASM source text, got %T", program)
		}
		return fn(src)
	}
}

// Detector recognizes OpenQASM source text payloads.
// It satisfies the engine's detector contract for string programs.
type Detector struct{}

// Detect returns the OpenQASM dialect of a string payload.
// Non-string payloads fail with UNSUPPORTED_FORMAT.
func (Detector) Detect(program any) (format.Format, error) {
	src, ok := program.(string)
	if !ok {
		return "", errors.New(errors.ErrCodeUnsupportedFormat, "cannot detect format of %T", program)
	}
	return DetectVersion(src)
}

// Flattener is the decompose fallback for the qasm3 intermediate
// representation, applied once by the orchestrator when a step fails.
type Flattener struct{}

// Format returns the single format the fallback applies to.
func (Flattener) Format() format.Format { return format.Qasm3 }

// Flatten inlines user-defined gates in the program source.
func (Flattener) Flatten(program any) (any, error) {
	src, ok := program.(string)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupportedFormat, "cannot flatten %T", program)
	}
	return Flatten(src)
}
