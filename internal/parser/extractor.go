// Package parser extracts annotated implementation blocks from module
// package sources. Extraction is a pure read: it parses every source file
// into a full syntax tree, locates //congen::export annotations, and returns
// an explicit list of tagged blocks without ever mutating the sources.
package parser

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"sort"
	"strings"

	"congen/internal/annotations"
	"congen/internal/errors"
	"congen/internal/models"
)

// TypeDecl is one package-level type declaration, captured verbatim so the
// synthesizer can copy it into the consumer package. TypeParamNames lists
// the names the declaration's own generic parameter list binds; they are
// excluded from LocalRefs.
type TypeDecl struct {
	Name           string
	Exported       bool
	Source         string // declaration text, verbatim from the source file
	File           string
	Line           int
	TypeParamNames []string
	LocalRefs      []string
	ConstRefs      []string
	ImportRefs     []models.ImportRef
}

// ConstDecl is one package-level constant declaration. Source is empty when
// the constant carries no explicit value (an iota continuation) and so
// cannot be copied standalone.
type ConstDecl struct {
	Name       string
	Exported   bool
	Source     string
	File       string
	Line       int
	LocalRefs  []string
	ConstRefs  []string
	ImportRefs []models.ImportRef
}

// Extraction is everything the downstream pipeline needs from one module
// package: the annotated blocks and the type and constant declarations they
// may reference.
type Extraction struct {
	PackageName string
	Blocks      []models.AnnotatedBlock
	Types       map[string]TypeDecl
	Consts      map[string]ConstDecl
}

// Extractor parses module package sources and extracts annotated blocks.
// Each Extractor owns its own FileSet, so pipelines running concurrently
// across module packages must use separate instances.
type Extractor struct {
	fileSet     *token.FileSet
	annotations *annotations.Parser
}

// NewExtractor creates a new annotation extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		fileSet:     token.NewFileSet(),
		annotations: annotations.NewParser(),
	}
}

// sourceFile bundles one parsed file with what is needed to slice verbatim
// text out of it.
type sourceFile struct {
	path    string
	ast     *ast.File
	content []byte
	imports map[string]string // qualifier -> import path
}

// ExtractPackage parses every source file of the module package and returns
// the annotated blocks found in it.
func (e *Extractor) ExtractPackage(mod models.ModulePackage) (*Extraction, error) {
	var files []*sourceFile
	for _, path := range mod.SourceFiles {
		sf, err := e.parseFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, sf)
	}

	ext := &Extraction{Types: make(map[string]TypeDecl), Consts: make(map[string]ConstDecl)}
	for _, sf := range files {
		if ext.PackageName == "" {
			ext.PackageName = sf.ast.Name.Name
		}
		e.collectTypeDecls(sf, ext)
		e.collectConstDecls(sf, ext)
	}

	for _, sf := range files {
		blocks, err := e.extractBlocks(sf, files)
		if err != nil {
			return nil, err
		}
		ext.Blocks = append(ext.Blocks, blocks...)
	}

	if err := checkConflicts(mod.Name, ext.Blocks); err != nil {
		return nil, err
	}

	return ext, nil
}

// ExtractSource extracts from a single in-memory source file, for tests.
func (e *Extractor) ExtractSource(filename, source string) (*Extraction, error) {
	file, err := parser.ParseFile(e.fileSet, filename, source, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrap(errors.ParseErrorCode, "failed to parse source", err).
			WithLocation(errors.SourceLocation{File: filename})
	}
	sf := &sourceFile{path: filename, ast: file, content: []byte(source), imports: importTable(file)}

	ext := &Extraction{PackageName: file.Name.Name, Types: make(map[string]TypeDecl), Consts: make(map[string]ConstDecl)}
	e.collectTypeDecls(sf, ext)
	e.collectConstDecls(sf, ext)

	files := []*sourceFile{sf}
	blocks, err := e.extractBlocks(sf, files)
	if err != nil {
		return nil, err
	}
	ext.Blocks = blocks

	if err := checkConflicts(file.Name.Name, ext.Blocks); err != nil {
		return nil, err
	}
	return ext, nil
}

func (e *Extractor) parseFile(path string) (*sourceFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.IOErrorCode, err, "failed to read %s", path)
	}
	file, err := parser.ParseFile(e.fileSet, path, content, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrap(errors.ParseErrorCode, "failed to parse source", err).
			WithLocation(errors.SourceLocation{File: path})
	}
	return &sourceFile{
		path:    path,
		ast:     file,
		content: content,
		imports: importTable(file),
	}, nil
}

// importTable maps the identifiers a file uses to qualify imported names onto
// their import paths.
func importTable(file *ast.File) map[string]string {
	table := make(map[string]string)
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		qualifier := path
		if i := strings.LastIndex(path, "/"); i >= 0 {
			qualifier = path[i+1:]
		}
		if imp.Name != nil {
			if imp.Name.Name == "_" || imp.Name.Name == "." {
				continue
			}
			qualifier = imp.Name.Name
		}
		table[qualifier] = path
	}
	return table
}

// collectTypeDecls captures every package-level type declaration verbatim.
// A declaration's own generic parameter names are recorded but never
// reported as local references.
func (e *Extractor) collectTypeDecls(sf *sourceFile, ext *Extraction) {
	for _, decl := range sf.ast.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			name := typeSpec.Name.Name
			refs := newRefCollector()
			var typeParamNames []string
			if typeSpec.TypeParams != nil {
				for _, field := range typeSpec.TypeParams.List {
					for _, paramName := range field.Names {
						typeParamNames = append(typeParamNames, paramName.Name)
					}
					refs.collect(sf, field.Type, e)
				}
			}
			refs.collect(sf, typeSpec.Type, e)
			localRefs, constRefs, importRefs := refs.sorted()
			ext.Types[name] = TypeDecl{
				Name:           name,
				Exported:       typeSpec.Name.IsExported(),
				Source:         "type " + e.sliceSource(sf, typeSpec.Pos(), typeSpec.End()),
				File:           sf.path,
				Line:           e.fileSet.Position(typeSpec.Pos()).Line,
				TypeParamNames: typeParamNames,
				LocalRefs:      withoutTypeParams(localRefs, typeParamNames),
				ConstRefs:      constRefs,
				ImportRefs:     importRefs,
			}
		}
	}
}

// collectConstDecls captures every package-level constant declaration, so
// constants named in signatures (array lengths) can be copied alongside the
// types that use them.
func (e *Extractor) collectConstDecls(sf *sourceFile, ext *Extraction) {
	for _, decl := range sf.ast.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.CONST {
			continue
		}
		for _, spec := range genDecl.Specs {
			valueSpec, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}

			refs := newRefCollector()
			if valueSpec.Type != nil {
				refs.collect(sf, valueSpec.Type, e)
			}
			for _, value := range valueSpec.Values {
				refs.collectConstExpr(sf, value)
			}
			localRefs, constRefs, importRefs := refs.sorted()

			// An iota continuation has no values of its own and cannot be
			// copied outside its const block.
			source := ""
			if len(valueSpec.Values) > 0 {
				source = "const " + e.sliceSource(sf, valueSpec.Pos(), valueSpec.End())
			}

			for _, name := range valueSpec.Names {
				ext.Consts[name.Name] = ConstDecl{
					Name:       name.Name,
					Exported:   name.IsExported(),
					Source:     source,
					File:       sf.path,
					Line:       e.fileSet.Position(valueSpec.Pos()).Line,
					LocalRefs:  localRefs,
					ConstRefs:  constRefs,
					ImportRefs: importRefs,
				}
			}
		}
	}
}

// extractBlocks walks one file's declarations looking for congen annotations,
// and rejects annotations placed on anything that is not a struct type
// declaration.
func (e *Extractor) extractBlocks(sf *sourceFile, files []*sourceFile) ([]models.AnnotatedBlock, error) {
	var blocks []models.AnnotatedBlock

	for _, decl := range sf.ast.Decls {
		switch node := decl.(type) {
		case *ast.FuncDecl:
			if parsed, err := e.annotationFrom(sf, node.Doc); err != nil {
				return nil, err
			} else if parsed != nil {
				return nil, e.misplaced(sf, node.Pos(), "a function declaration")
			}

		case *ast.GenDecl:
			declParsed, err := e.annotationFrom(sf, node.Doc)
			if err != nil {
				return nil, err
			}
			if declParsed != nil && node.Tok != token.TYPE {
				return nil, e.misplaced(sf, node.Pos(), node.Tok.String()+" declaration")
			}

			for _, spec := range node.Specs {
				typeSpec, isType := spec.(*ast.TypeSpec)
				if !isType {
					continue
				}
				parsed := declParsed
				if specParsed, err := e.annotationFrom(sf, typeSpec.Doc); err != nil {
					return nil, err
				} else if specParsed != nil {
					parsed = specParsed
				}
				if parsed == nil {
					continue
				}

				if _, isStruct := typeSpec.Type.(*ast.StructType); !isStruct {
					return nil, e.misplaced(sf, typeSpec.Pos(), "a non-struct type declaration")
				}

				block, err := e.buildBlock(sf, files, typeSpec, parsed)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, block)
			}
		}
	}

	return blocks, nil
}

// annotationFrom scans a doc comment group for a congen annotation line and
// parses it. Comment lines that merely resemble annotations inside strings
// never arrive here; only true doc comments do.
func (e *Extractor) annotationFrom(sf *sourceFile, doc *ast.CommentGroup) (*annotations.Parsed, error) {
	if doc == nil {
		return nil, nil
	}
	for _, comment := range doc.List {
		if !annotations.IsAnnotation(comment.Text) {
			continue
		}
		parsed, err := e.annotations.Parse(comment.Text)
		if err != nil {
			pos := e.fileSet.Position(comment.Pos())
			return nil, errors.Wrap(errors.ParseErrorCode, err.Error(), err).
				WithLocation(errors.SourceLocation{File: sf.path, Line: pos.Line, Column: pos.Column})
		}
		return parsed, nil
	}
	return nil, nil
}

// buildBlock assembles the annotated block for one exported struct: target
// interface name, generic parameters, and the full exported method set.
func (e *Extractor) buildBlock(sf *sourceFile, files []*sourceFile, typeSpec *ast.TypeSpec, parsed *annotations.Parsed) (models.AnnotatedBlock, error) {
	structName := typeSpec.Name.Name

	ifaceName := parsed.InterfaceName
	if ifaceName == "" {
		ifaceName = strings.TrimSuffix(structName, "Impl")
		if ifaceName == structName {
			ifaceName = structName + "Interface"
		}
	}

	block := models.AnnotatedBlock{
		InterfaceName: ifaceName,
		StructName:    structName,
		File:          sf.path,
		Line:          e.fileSet.Position(typeSpec.Pos()).Line,
	}
	refs := newRefCollector()
	if typeSpec.TypeParams != nil {
		block.TypeParams = "[" + e.sliceSource(sf, typeSpec.TypeParams.Opening+1, typeSpec.TypeParams.Closing) + "]"
		for _, field := range typeSpec.TypeParams.List {
			for _, name := range field.Names {
				block.TypeParamNames = append(block.TypeParamNames, name.Name)
			}
			refs.collect(sf, field.Type, e)
		}
	}

	for _, other := range files {
		for _, method := range e.methodsOf(other, structName, refs) {
			block.Methods = append(block.Methods, method)
		}
	}
	sort.Slice(block.Methods, func(i, j int) bool {
		return block.Methods[i].Name < block.Methods[j].Name
	})
	block.LocalRefs, block.ConstRefs, block.ImportRefs = refs.sorted()
	block.LocalRefs = withoutTypeParams(block.LocalRefs, block.TypeParamNames)

	return block, nil
}

// methodsOf extracts the exported methods declared on structName in one file.
func (e *Extractor) methodsOf(sf *sourceFile, structName string, refs *refCollector) []models.MethodSignature {
	var methods []models.MethodSignature

	for _, decl := range sf.ast.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		if !ok || funcDecl.Recv == nil || len(funcDecl.Recv.List) == 0 {
			continue
		}
		if !funcDecl.Name.IsExported() {
			continue
		}

		kind, base := receiverInfo(funcDecl.Recv.List[0].Type)
		if base != structName {
			continue
		}

		method := models.MethodSignature{
			Name:     funcDecl.Name.Name,
			Receiver: kind,
		}

		if funcDecl.Type.Params != nil {
			for _, field := range funcDecl.Type.Params.List {
				refs.collect(sf, field.Type, e)
				param := models.Param{Type: e.sliceSource(sf, field.Type.Pos(), field.Type.End())}
				for _, name := range field.Names {
					param.Names = append(param.Names, name.Name)
				}
				method.Params = append(method.Params, param)
			}
		}

		if funcDecl.Type.Results != nil {
			for _, field := range funcDecl.Type.Results.List {
				typeText := e.sliceSource(sf, field.Type.Pos(), field.Type.End())
				refs.collect(sf, field.Type, e)
				n := len(field.Names)
				if n == 0 {
					n = 1
				}
				for i := 0; i < n; i++ {
					method.Results = append(method.Results, typeText)
				}
			}
		}

		methods = append(methods, method)
	}

	return methods
}

// sliceSource returns the verbatim source text between two positions.
func (e *Extractor) sliceSource(sf *sourceFile, from, to token.Pos) string {
	start := e.fileSet.Position(from).Offset
	end := e.fileSet.Position(to).Offset
	if start < 0 || end > len(sf.content) || start > end {
		return ""
	}
	return string(sf.content[start:end])
}

func (e *Extractor) misplaced(sf *sourceFile, pos token.Pos, what string) error {
	p := e.fileSet.Position(pos)
	return errors.Newf(errors.MisplacedAnnotationErrorCode,
		"congen::export may only annotate a struct type declaration, found it on %s", what).
		WithLocation(errors.SourceLocation{File: sf.path, Line: p.Line, Column: p.Column}).
		WithSuggestion("move the annotation onto the implementing struct type")
}

// withoutTypeParams drops the names a block's own generic parameter list
// binds, so they are never mistaken for package-level types to copy.
func withoutTypeParams(refs, typeParams []string) []string {
	if len(typeParams) == 0 || len(refs) == 0 {
		return refs
	}
	bound := make(map[string]bool, len(typeParams))
	for _, name := range typeParams {
		bound[name] = true
	}
	kept := refs[:0]
	for _, ref := range refs {
		if !bound[ref] {
			kept = append(kept, ref)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// receiverInfo classifies a method receiver and resolves its base type name,
// unwrapping pointers and generic instantiations.
func receiverInfo(expr ast.Expr) (models.ReceiverKind, string) {
	kind := models.ReceiverValue
	if star, ok := expr.(*ast.StarExpr); ok {
		kind = models.ReceiverPointer
		expr = star.X
	}
	for {
		switch t := expr.(type) {
		case *ast.Ident:
			return kind, t.Name
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.ParenExpr:
			expr = t.X
		default:
			return models.ReceiverNone, ""
		}
	}
}

// checkConflicts enforces that annotated blocks declaring the same interface
// name carry byte-identical signature sets.
func checkConflicts(modName string, blocks []models.AnnotatedBlock) error {
	byIface := make(map[string]models.AnnotatedBlock)
	for _, block := range blocks {
		prev, seen := byIface[block.InterfaceName]
		if !seen {
			byIface[block.InterfaceName] = block
			continue
		}
		a := models.SignatureFingerprint(block.InterfaceName, prev.Methods)
		b := models.SignatureFingerprint(block.InterfaceName, block.Methods)
		if a != b {
			return errors.Newf(errors.ConflictingAnnotationErrorCode,
				"interface %s is declared by %s and %s with differing method sets in module package %s",
				block.InterfaceName, prev.StructName, block.StructName, modName).
				WithLocation(errors.SourceLocation{File: block.File, Line: block.Line}).
				WithContext("first_declaration", prev.File).
				WithSuggestion("give the implementations identical signature sets, or export them under different interface names")
		}
	}
	return nil
}
