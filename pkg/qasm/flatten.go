package qasm

import (
	"regexp"
	"strings"

	"github.com/qbridge/qbridge/pkg/errors"
)

// maxInlinePasses bounds gate inlining for nested definitions. Definitions
// deeper than this (or mutually recursive ones) fail rather than loop.
const maxInlinePasses = 16

var (
	gateDefRe = regexp.MustCompile(`(?ms)^\s*gate\s+(\w+)\s*(?:\(([^)]*)\))?\s*([\w\s,]+?)\s*\{(.*?)\}\s*$`)
	gateAppRe = regexp.MustCompile(`(?m)^(\s*)(\w+)\s*(?:\(([^)]*)\))?\s+([^;{}]+);\s*$`)
)

// gateDef is one user-defined composite gate.
type gateDef struct {
	params []string // formal parameter names
	qubits []string // formal qubit argument names
	body   []string // statements, formals unresolved
}

// Flatten expands user-defined composite gates into primitive operations by
// inlining each gate application with its definition body, substituting
// formal parameters and qubit arguments with the actuals at the call site.
//
// Gate definitions are removed from the output. Flatten is the decompose
// fallback the orchestrator applies once when a conversion step fails on an
// OpenQASM 3 intermediate; it works identically on OpenQASM 2 source.
func Flatten(source string) (string, error) {
	defs := make(map[string]gateDef)
	for _, m := range gateDefRe.FindAllStringSubmatch(source, -1) {
		defs[m[1]] = gateDef{
			params: splitArgs(m[2]),
			qubits: splitArgs(m[3]),
			body:   statements(m[4]),
		}
	}
	if len(defs) == 0 {
		return source, nil
	}

	out := gateDefRe.ReplaceAllString(source, "")

	for pass := 0; ; pass++ {
		if pass >= maxInlinePasses {
			return "", errors.New(errors.ErrCodeInvalidInput,
				"gate definitions nest deeper than %d levels (recursive definition?)", maxInlinePasses)
		}
		expanded, changed, err := inlinePass(out, defs)
		if err != nil {
			return "", err
		}
		if !changed {
			return expanded, nil
		}
		out = expanded
	}
}

// inlinePass replaces every application of a defined gate with its body,
// one level deep. Returns whether any replacement happened.
func inlinePass(source string, defs map[string]gateDef) (string, bool, error) {
	changed := false
	var failure error

	out := gateAppRe.ReplaceAllStringFunc(source, func(stmt string) string {
		if failure != nil {
			return stmt
		}
		m := gateAppRe.FindStringSubmatch(stmt)
		indent, name := m[1], m[2]
		def, ok := defs[name]
		if !ok {
			return stmt
		}

		actualParams := splitArgs(m[3])
		actualQubits := splitArgs(m[4])
		if len(actualParams) != len(def.params) || len(actualQubits) != len(def.qubits) {
			failure = errors.New(errors.ErrCodeInvalidInput,
				"gate %s applied with %d params and %d qubits, defined with %d and %d",
				name, len(actualParams), len(actualQubits), len(def.params), len(def.qubits))
			return stmt
		}

		subst := make(map[string]string, len(def.params)+len(def.qubits))
		for i, formal := range def.params {
			subst[formal] = actualParams[i]
		}
		for i, formal := range def.qubits {
			subst[formal] = actualQubits[i]
		}

		lines := make([]string, 0, len(def.body))
		for _, body := range def.body {
			lines = append(lines, indent+substituteIdents(body, subst))
		}
		changed = true
		return strings.Join(lines, "\n")
	})

	if failure != nil {
		return "", false, failure
	}
	return out, changed, nil
}

// splitArgs splits a comma-separated argument list, trimming whitespace.
// Returns nil for an empty list.
func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// statements splits a gate body into trimmed, semicolon-terminated lines.
func statements(body string) []string {
	var out []string
	for _, part := range strings.Split(body, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part+";")
		}
	}
	return out
}

// substituteIdents replaces whole-identifier occurrences of each formal with
// its actual argument.
func substituteIdents(stmt string, subst map[string]string) string {
	return identRe.ReplaceAllStringFunc(stmt, func(ident string) string {
		if actual, ok := subst[ident]; ok {
			return actual
		}
		return ident
	})
}

var identRe = regexp.MustCompile(`[A-Za-z_]\w*`)
