package models

import (
	"fmt"
	"sort"
	"strings"
)

// ReceiverKind describes how an extracted method binds to its implementing type.
type ReceiverKind int

const (
	ReceiverNone ReceiverKind = iota
	ReceiverValue
	ReceiverPointer
)

func (r ReceiverKind) String() string {
	switch r {
	case ReceiverValue:
		return "value"
	case ReceiverPointer:
		return "pointer"
	default:
		return "none"
	}
}

// Param is one method parameter field. Names holds every identifier the
// field declares, so grouped parameters like "id, value string" render the
// way they were written. Type is the declared type text, passed through
// verbatim from the source.
type Param struct {
	Names []string
	Type  string
}

// MethodSignature is the full signature of one exported method on an
// annotated implementation type.
type MethodSignature struct {
	Name     string
	Receiver ReceiverKind
	Params   []Param
	Results  []string
}

// Canonical renders the signature as a single deterministic line. It is the
// unit of fingerprinting and of conflict comparison: two signatures are equal
// exactly when their canonical forms are byte-identical.
func (m MethodSignature) Canonical() string {
	var b strings.Builder
	switch m.Receiver {
	case ReceiverPointer:
		b.WriteString("*|")
	case ReceiverValue:
		b.WriteString("v|")
	}
	b.WriteString(m.Name)
	b.WriteByte('(')
	writeParams(&b, m.Params)
	b.WriteByte(')')
	if len(m.Results) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(m.Results, ", "))
		b.WriteByte(')')
	}
	return b.String()
}

// Declaration renders the signature as it appears inside a generated
// interface body.
func (m MethodSignature) Declaration() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteByte('(')
	writeParams(&b, m.Params)
	b.WriteByte(')')
	switch len(m.Results) {
	case 0:
	case 1:
		b.WriteByte(' ')
		b.WriteString(m.Results[0])
	default:
		b.WriteString(" (")
		b.WriteString(strings.Join(m.Results, ", "))
		b.WriteByte(')')
	}
	return b.String()
}

// writeParams renders a parameter list, keeping grouped names together.
func writeParams(b *strings.Builder, params []Param) {
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		if len(p.Names) > 0 {
			b.WriteString(strings.Join(p.Names, ", "))
			b.WriteByte(' ')
		}
		b.WriteString(p.Type)
	}
}

// ImportRef is a reference from a signature or a copied type declaration to
// an imported package, resolved against the source file's import table.
type ImportRef struct {
	Qualifier string // identifier used in source, e.g. "context"
	Path      string // import path, e.g. "context" or "github.com/google/uuid"
}

// AnnotatedBlock is one //congen::export struct declaration together with the
// exported method set extracted for it. Blocks are produced once during
// extraction as an explicit, inspectable list.
type AnnotatedBlock struct {
	InterfaceName  string   // declared or inferred target interface name
	StructName     string   // implementing type
	TypeParams     string   // generic parameter list, verbatim; empty when absent
	TypeParamNames []string // names bound by TypeParams, in declaration order
	File           string
	Line           int

	Methods []MethodSignature

	// LocalRefs names exported package-local types referenced by the method
	// signatures; they must be copied into the consumer package verbatim.
	LocalRefs []string
	// ConstRefs names package-local constants the signatures depend on,
	// such as array lengths.
	ConstRefs []string
	// ImportRefs lists imported packages the signatures depend on.
	ImportRefs []ImportRef
}

// SignatureFingerprint returns the canonical multi-line signature text for a
// set of methods, sorted by method name. Hashing this text yields the
// generation-record fingerprint.
func SignatureFingerprint(ifaceName string, methods []MethodSignature) string {
	lines := make([]string, 0, len(methods)+1)
	for _, m := range methods {
		lines = append(lines, m.Canonical())
	}
	sort.Strings(lines)
	return fmt.Sprintf("%s\n%s\n", ifaceName, strings.Join(lines, "\n"))
}
