package parser

import (
	"go/ast"
	"sort"

	"congen/internal/models"
)

// goBuiltinTypes are the predeclared identifiers that can appear in a type
// position and must never be treated as package-local references.
var goBuiltinTypes = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true,
	"float32": true, "float64": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"uintptr": true,
}

// goPredeclaredValues are the predeclared identifiers that can appear in a
// constant expression without referring to a package-level declaration.
var goPredeclaredValues = map[string]bool{
	"true": true, "false": true, "iota": true, "nil": true,
	"len": true, "cap": true, "min": true, "max": true,
}

// refCollector accumulates the package-local and imported names a set of
// type expressions references. It walks expressions structurally so that
// field names inside anonymous structs are never mistaken for type names,
// and it keeps constant references (array lengths) apart from type
// references.
type refCollector struct {
	local   map[string]bool
	consts  map[string]bool
	imports map[string]models.ImportRef
}

func newRefCollector() *refCollector {
	return &refCollector{
		local:   make(map[string]bool),
		consts:  make(map[string]bool),
		imports: make(map[string]models.ImportRef),
	}
}

func (rc *refCollector) collect(sf *sourceFile, expr ast.Expr, e *Extractor) {
	switch t := expr.(type) {
	case *ast.Ident:
		if !goBuiltinTypes[t.Name] {
			rc.local[t.Name] = true
		}

	case *ast.SelectorExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			if path, found := sf.imports[ident.Name]; found {
				rc.imports[ident.Name] = models.ImportRef{Qualifier: ident.Name, Path: path}
				return
			}
		}
		rc.collect(sf, t.X, e)

	case *ast.StarExpr:
		rc.collect(sf, t.X, e)

	case *ast.ParenExpr:
		rc.collect(sf, t.X, e)

	case *ast.ArrayType:
		if t.Len != nil {
			rc.collectConstExpr(sf, t.Len)
		}
		rc.collect(sf, t.Elt, e)

	case *ast.Ellipsis:
		rc.collect(sf, t.Elt, e)

	case *ast.MapType:
		rc.collect(sf, t.Key, e)
		rc.collect(sf, t.Value, e)

	case *ast.ChanType:
		rc.collect(sf, t.Value, e)

	case *ast.FuncType:
		if t.Params != nil {
			for _, field := range t.Params.List {
				rc.collect(sf, field.Type, e)
			}
		}
		if t.Results != nil {
			for _, field := range t.Results.List {
				rc.collect(sf, field.Type, e)
			}
		}

	case *ast.IndexExpr:
		rc.collect(sf, t.X, e)
		rc.collect(sf, t.Index, e)

	case *ast.IndexListExpr:
		rc.collect(sf, t.X, e)
		for _, index := range t.Indices {
			rc.collect(sf, index, e)
		}

	case *ast.StructType:
		if t.Fields != nil {
			for _, field := range t.Fields.List {
				rc.collect(sf, field.Type, e)
			}
		}

	case *ast.InterfaceType:
		if t.Methods != nil {
			for _, field := range t.Methods.List {
				rc.collect(sf, field.Type, e)
			}
		}
	}
}

// collectConstExpr records the package-level constants a constant expression
// names. Identifiers in a constant position are constants, never types.
func (rc *refCollector) collectConstExpr(sf *sourceFile, expr ast.Expr) {
	ast.Inspect(expr, func(n ast.Node) bool {
		switch t := n.(type) {
		case *ast.SelectorExpr:
			if ident, ok := t.X.(*ast.Ident); ok {
				if path, found := sf.imports[ident.Name]; found {
					rc.imports[ident.Name] = models.ImportRef{Qualifier: ident.Name, Path: path}
					return false
				}
			}
		case *ast.Ident:
			if !goBuiltinTypes[t.Name] && !goPredeclaredValues[t.Name] {
				rc.consts[t.Name] = true
			}
		}
		return true
	})
}

// sorted returns the collected references in deterministic order.
func (rc *refCollector) sorted() (local, consts []string, imports []models.ImportRef) {
	local = sortedNames(rc.local)
	consts = sortedNames(rc.consts)

	imports = make([]models.ImportRef, 0, len(rc.imports))
	for _, ref := range rc.imports {
		imports = append(imports, ref)
	}
	sort.Slice(imports, func(i, j int) bool { return imports[i].Path < imports[j].Path })
	if len(imports) == 0 {
		imports = nil
	}
	return local, consts, imports
}

func sortedNames(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
