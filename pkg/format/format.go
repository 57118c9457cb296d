// Package format defines the closed set of quantum program representations
// known to the conversion engine.
//
// A Format is an opaque identifier naming one program representation, such
// as an OpenQASM dialect ("qasm2", "qasm3") or a vendor circuit type
// ("qiskit", "cirq", "braket"). Every edge in the conversion graph refers to
// registered formats only; free-text identifiers are rejected at the
// edge-construction boundary.
//
// A Registry is an explicit, immutable value constructed once at startup and
// passed by reference to the graph and orchestrator. There is no mutable
// process-global registry.
package format

import (
	"slices"

	"github.com/qbridge/qbridge/pkg/errors"
)

// Format identifies a quantum program representation.
type Format string

// Built-in formats covering the default conversion set.
const (
	Qasm2  Format = "qasm2"
	Qasm3  Format = "qasm3"
	Qiskit Format = "qiskit"
	Cirq   Format = "cirq"
	Braket Format = "braket"
	PyQuil Format = "pyquil"
	Pytket Format = "pytket"
	IonQ   Format = "ionq"
)

// String returns the format identifier.
func (f Format) String() string { return string(f) }

// Registry is an immutable set of known formats.
// The zero value is not usable - use NewRegistry or DefaultRegistry.
// A Registry is safe for concurrent use once constructed.
type Registry struct {
	formats map[Format]struct{}
}

// NewRegistry creates a registry containing the given formats.
// Returns an INVALID_FORMAT error if any identifier fails validation,
// or an INVALID_INPUT error if no formats are given.
func NewRegistry(formats ...Format) (*Registry, error) {
	if len(formats) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "registry requires at least one format")
	}
	set := make(map[Format]struct{}, len(formats))
	for _, f := range formats {
		if err := errors.ValidateFormatName(string(f)); err != nil {
			return nil, err
		}
		set[f] = struct{}{}
	}
	return &Registry{formats: set}, nil
}

// DefaultRegistry creates a registry with all built-in formats.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry(Qasm2, Qasm3, Qiskit, Cirq, Braket, PyQuil, Pytket, IonQ)
	return r
}

// Contains reports whether the format is registered.
func (r *Registry) Contains(f Format) bool {
	_, ok := r.formats[f]
	return ok
}

// Validate returns an UNKNOWN_FORMAT error if the format is not registered.
func (r *Registry) Validate(f Format) error {
	if !r.Contains(f) {
		return errors.New(errors.ErrCodeUnknownFormat, "unknown format: %q", f)
	}
	return nil
}

// Formats returns all registered formats in sorted order.
func (r *Registry) Formats() []Format {
	out := make([]Format, 0, len(r.formats))
	for f := range r.formats {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of registered formats.
func (r *Registry) Len() int { return len(r.formats) }
