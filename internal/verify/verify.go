// Package verify compiles generated consumer packages to prove they stand on
// their own. Verification runs strictly after every consumer package has been
// written, so cross-package references always see the freshest output.
package verify

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"congen/internal/errors"
)

// Diagnostic is one compiler message, parsed from the toolchain's
// file:line:col output form.
type Diagnostic struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.File)
	if d.Line > 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(d.Line))
		if d.Column > 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(d.Column))
		}
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// Runner checks that one consumer package compiles. Implementations must
// honor ctx cancellation.
type Runner interface {
	Check(ctx context.Context, dir string) ([]Diagnostic, error)
}

// GoBuildRunner verifies consumer packages with the Go toolchain itself.
type GoBuildRunner struct{}

// NewRunner returns the default toolchain-backed verifier.
func NewRunner() *GoBuildRunner {
	return &GoBuildRunner{}
}

// Check builds the consumer package in place. A clean build returns no
// diagnostics; a failed build returns the parsed compiler output together
// with a verification error.
func (r *GoBuildRunner) Check(ctx context.Context, dir string) ([]Diagnostic, error) {
	cmd := exec.CommandContext(ctx, "go", "build", "./...")
	cmd.Dir = dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err == nil {
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	diags := ParseDiagnostics(output.String())
	verr := errors.Wrapf(errors.VerificationErrorCode, err, "consumer package in %s does not compile", dir).
		WithSuggestion("inspect the generated sources; this usually indicates a bug in extraction or generation")
	if len(diags) == 0 {
		diags = []Diagnostic{{File: dir, Message: strings.TrimSpace(output.String())}}
	}
	return diags, verr
}

// ParseDiagnostics extracts file:line:col diagnostics from raw toolchain
// output. Lines that do not match (package headers, notes) are skipped.
func ParseDiagnostics(output string) []Diagnostic {
	var diags []Diagnostic
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if diag, ok := parseLine(line); ok {
			diags = append(diags, diag)
		}
	}
	return diags
}

func parseLine(line string) (Diagnostic, bool) {
	// Expected shape: path/file.go:12:7: message
	parts := strings.SplitN(line, ":", 4)
	if len(parts) < 3 {
		return Diagnostic{}, false
	}
	lineNum, err := strconv.Atoi(parts[1])
	if err != nil {
		return Diagnostic{}, false
	}

	diag := Diagnostic{File: parts[0], Line: lineNum}
	if len(parts) == 4 {
		if col, err := strconv.Atoi(parts[2]); err == nil {
			diag.Column = col
			diag.Message = strings.TrimSpace(parts[3])
			return diag, true
		}
	}
	diag.Message = strings.TrimSpace(strings.Join(parts[2:], ":"))
	return diag, true
}
