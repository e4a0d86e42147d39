// Package annotations parses congen:: annotation comments. The comment
// grammar is handled by participle so that malformed annotations are rejected
// with a real parse error instead of being silently ignored.
package annotations

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Prefix marks a comment as a congen annotation, after the leading slashes.
const Prefix = "congen::"

// Kind is the annotation verb.
type Kind int

const (
	KindExport Kind = iota
)

func (k Kind) String() string {
	switch k {
	case KindExport:
		return "export"
	default:
		return "unknown"
	}
}

// Parsed is the result of parsing one annotation comment.
type Parsed struct {
	Kind Kind
	// InterfaceName is the explicit target interface name, empty when the
	// name should be inferred from the implementing type.
	InterfaceName string
	Raw           string
}

// raw is the participle grammar for an annotation comment.
type raw struct {
	Comment   string `parser:"@Comment"`
	Congen    string `parser:"@Congen"`
	Separator string `parser:"@Separator"`
	Verb      string `parser:"@Ident"`
	Target    string `parser:"@Ident?"`
}

// Parser parses congen annotation comments.
type Parser struct {
	parser *participle.Parser[raw]
}

// NewParser builds the annotation comment parser.
func NewParser() *Parser {
	lex := lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `//`},
		{Name: "Congen", Pattern: `congen`},
		{Name: "Separator", Pattern: `::`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	return &Parser{
		parser: participle.MustBuild[raw](
			participle.Lexer(lex),
			participle.Elide("Whitespace"),
			participle.UseLookahead(2),
		),
	}
}

// IsAnnotation reports whether a comment line carries the congen:: prefix at
// all. Content inside strings or plain prose that merely mentions the prefix
// never reaches this check, because callers only pass doc-comment lines taken
// from a full syntactic parse.
func IsAnnotation(comment string) bool {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(comment), "//"))
	return strings.HasPrefix(text, Prefix)
}

// Parse parses a single doc-comment line into an annotation. The comment must
// include its leading slashes.
func (p *Parser) Parse(comment string) (*Parsed, error) {
	ast, err := p.parser.ParseString("", strings.TrimSpace(comment))
	if err != nil {
		return nil, fmt.Errorf("malformed annotation %q: %w", comment, err)
	}

	parsed := &Parsed{
		InterfaceName: ast.Target,
		Raw:           comment,
	}

	switch ast.Verb {
	case "export":
		parsed.Kind = KindExport
	default:
		return nil, fmt.Errorf("unknown annotation verb %q in %q", ast.Verb, comment)
	}

	return parsed, nil
}
