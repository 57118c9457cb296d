// Package qasm provides OpenQASM support for the conversion engine: dialect
// detection, qasm2 <-> qasm3 source conversion, and the flatten fallback
// that inlines user-defined gates into primitive operations.
//
// The converters here operate on program source text. They rewrite the
// version header, the standard-library include, register declarations, and
// measurement syntax; gate applications shared by both dialects pass
// through unchanged.
package qasm

import (
	"regexp"
	"strings"

	"github.com/qbridge/qbridge/pkg/errors"
	"github.com/qbridge/qbridge/pkg/format"
)

var (
	versionRe = regexp.MustCompile(`(?m)^\s*OPENQASM\s+(\d)(?:\.\d+)?\s*;`)

	qregRe = regexp.MustCompile(`(?m)^(\s*)qreg\s+(\w+)\s*\[\s*(\d+)\s*\]\s*;`)
	cregRe = regexp.MustCompile(`(?m)^(\s*)creg\s+(\w+)\s*\[\s*(\d+)\s*\]\s*;`)

	qubitRe = regexp.MustCompile(`(?m)^(\s*)qubit\s*\[\s*(\d+)\s*\]\s+(\w+)\s*;`)
	bitRe   = regexp.MustCompile(`(?m)^(\s*)bit\s*\[\s*(\d+)\s*\]\s+(\w+)\s*;`)

	// qasm2: measure q[0] -> c[0];   qasm3: c[0] = measure q[0];
	measure2Re = regexp.MustCompile(`(?m)^(\s*)measure\s+([\w\[\]]+)\s*->\s*([\w\[\]]+)\s*;`)
	measure3Re = regexp.MustCompile(`(?m)^(\s*)([\w\[\]]+)\s*=\s*measure\s+([\w\[\]]+)\s*;`)
)

// DetectVersion reports the OpenQASM dialect of the source text.
// Fails with UNSUPPORTED_FORMAT when no OPENQASM version header is present
// or the major version is not 2 or 3.
func DetectVersion(source string) (format.Format, error) {
	m := versionRe.FindStringSubmatch(source)
	if m == nil {
		return "", errors.New(errors.ErrCodeUnsupportedFormat, "missing OPENQASM version header")
	}
	switch m[1] {
	case "2":
		return format.Qasm2, nil
	case "3":
		return format.Qasm3, nil
	}
	return "", errors.New(errors.ErrCodeUnsupportedFormat, "unsupported OPENQASM version %s", m[1])
}

// ConvertQasm2To3 rewrites OpenQASM 2 source as OpenQASM 3.
func ConvertQasm2To3(source string) (string, error) {
	if v, err := DetectVersion(source); err != nil {
		return "", err
	} else if v != format.Qasm2 {
		return "", errors.New(errors.ErrCodeFormatMismatch, "expected qasm2 source, detected %q", v)
	}

	out := versionRe.ReplaceAllString(source, "OPENQASM 3.0;")
	out = strings.ReplaceAll(out, `include "qelib1.inc";`, `include "stdgates.inc";`)
	out = qregRe.ReplaceAllString(out, "${1}qubit[$3] $2;")
	out = cregRe.ReplaceAllString(out, "${1}bit[$3] $2;")
	out = measure2Re.ReplaceAllString(out, "${1}$3 = measure $2;")
	return out, nil
}

// ConvertQasm3To2 rewrites OpenQASM 3 source as OpenQASM 2.
// Constructs with no OpenQASM 2 equivalent (input/output declarations,
// classical control flow) fail with STEP_CONVERSION.
func ConvertQasm3To2(source string) (string, error) {
	if v, err := DetectVersion(source); err != nil {
		return "", err
	} else if v != format.Qasm3 {
		return "", errors.New(errors.ErrCodeFormatMismatch, "expected qasm3 source, detected %q", v)
	}

	for _, keyword := range []string{"input ", "output ", "while ", "for ", "def "} {
		if containsStatement(source, keyword) {
			return "", errors.New(errors.ErrCodeStepConversion,
				"construct %q has no OpenQASM 2 equivalent", strings.TrimSpace(keyword))
		}
	}

	out := versionRe.ReplaceAllString(source, "OPENQASM 2.0;")
	out = strings.ReplaceAll(out, `include "stdgates.inc";`, `include "qelib1.inc";`)
	out = qubitRe.ReplaceAllString(out, "${1}qreg $3[$2];")
	out = bitRe.ReplaceAllString(out, "${1}creg $3[$2];")
	out = measure3Re.ReplaceAllString(out, "${1}measure $3 -> $2;")
	return out, nil
}

// containsStatement reports whether any line of the source starts with the
// given keyword.
func containsStatement(source, keyword string) bool {
	for _, line := range strings.Split(source, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), keyword) {
			return true
		}
	}
	return false
}
