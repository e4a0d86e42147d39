// Package generator synthesizes consumer package sources from extracted
// annotation blocks. Generation is deterministic: the same extraction always
// yields byte-identical output, so repeated runs over an unchanged workspace
// produce no writes.
package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/tools/imports"

	"congen/internal/errors"
	"congen/internal/models"
	"congen/internal/parser"
)

// GeneratedHeader marks synthesized sources. The standard "DO NOT EDIT" form
// keeps linters and code-review tooling away from the output. The tool
// version is deliberately absent: upgrading the tool must not dirty
// up-to-date consumer packages.
const GeneratedHeader = "// Code generated by congen. DO NOT EDIT."

// Generator synthesizes one consumer package from one module package's
// extraction.
type Generator struct{}

// NewGenerator creates a new interface synthesizer.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the complete in-memory consumer package for a module
// package. It never touches disk; the manager owns all writes.
func (g *Generator) Generate(mod models.ModulePackage, ext *parser.Extraction) (*models.ConsumerPackage, error) {
	blocks := dedupeByInterface(ext.Blocks)

	copied, consts, err := resolveCopied(mod, blocks, ext)
	if err != nil {
		return nil, err
	}

	importRefs, err := mergeImports(mod, blocks, copied, consts)
	if err != nil {
		return nil, err
	}

	source, err := g.renderSource(mod, blocks, copied, consts, importRefs)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(importRefs))
	for _, ref := range importRefs {
		paths = append(paths, ref.Path)
	}

	return &models.ConsumerPackage{
		Name: mod.ConsumerName(),
		Dir:  mod.ConsumerDir,
		Files: map[string]string{
			models.GeneratedFileName: source,
		},
		ImportPaths: paths,
	}, nil
}

// Fingerprint hashes the canonical signature text of every interface a module
// package exports. Cosmetic source edits (comments, method bodies, blank
// lines) leave it unchanged.
func Fingerprint(blocks []models.AnnotatedBlock) string {
	blocks = dedupeByInterface(blocks)
	var b strings.Builder
	for _, block := range blocks {
		b.WriteString(models.SignatureFingerprint(block.InterfaceName, block.Methods))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// dedupeByInterface collapses blocks declaring the same interface into one
// and orders the result lexicographically. The extractor has already rejected
// same-name blocks with differing signatures, so keeping the first is safe.
func dedupeByInterface(blocks []models.AnnotatedBlock) []models.AnnotatedBlock {
	seen := make(map[string]bool, len(blocks))
	out := make([]models.AnnotatedBlock, 0, len(blocks))
	for _, block := range blocks {
		if seen[block.InterfaceName] {
			continue
		}
		seen[block.InterfaceName] = true
		out = append(out, block)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InterfaceName < out[j].InterfaceName })
	return out
}

// resolveCopied walks the local type and constant references of every block
// transitively and returns the declarations that must be copied into the
// consumer package, in lexicographic order. Types may pull in constants
// (array lengths) and constants may pull in types, so both worklists drain
// together. A reference that cannot be resolved to an exported package-level
// declaration is a generation error.
func resolveCopied(mod models.ModulePackage, blocks []models.AnnotatedBlock, ext *parser.Extraction) ([]parser.TypeDecl, []parser.ConstDecl, error) {
	interfaces := make(map[string]bool, len(blocks))
	for _, block := range blocks {
		interfaces[block.InterfaceName] = true
	}

	var typeQueue, constQueue []string
	enqueueTypes := func(refs []string, typeParams []string) {
		bound := make(map[string]bool, len(typeParams))
		for _, name := range typeParams {
			bound[name] = true
		}
		for _, ref := range refs {
			if !bound[ref] {
				typeQueue = append(typeQueue, ref)
			}
		}
	}
	for _, block := range blocks {
		enqueueTypes(block.LocalRefs, block.TypeParamNames)
		constQueue = append(constQueue, block.ConstRefs...)
	}

	visitedTypes := make(map[string]bool)
	visitedConsts := make(map[string]bool)
	copiedSources := make(map[string]bool)
	var copied []parser.TypeDecl
	var consts []parser.ConstDecl
	for len(typeQueue) > 0 || len(constQueue) > 0 {
		for len(typeQueue) > 0 {
			name := typeQueue[0]
			typeQueue = typeQueue[1:]
			if visitedTypes[name] || interfaces[name] {
				continue
			}
			visitedTypes[name] = true

			decl, found := ext.Types[name]
			if !found {
				return nil, nil, errors.Newf(errors.UnresolvedTypeErrorCode,
					"signature of module package %s references type %s, which is not declared at package level", mod.Name, name).
					WithSuggestion("declare the type in the module package, or qualify it with its defining package")
			}
			if !decl.Exported {
				return nil, nil, errors.Newf(errors.UnresolvedTypeErrorCode,
					"signature of module package %s references unexported type %s, which cannot be copied into the consumer package", mod.Name, name).
					WithLocation(errors.SourceLocation{File: decl.File, Line: decl.Line}).
					WithSuggestion("export the type so consumers can name it")
			}

			copied = append(copied, decl)
			enqueueTypes(decl.LocalRefs, decl.TypeParamNames)
			constQueue = append(constQueue, decl.ConstRefs...)
		}

		for len(constQueue) > 0 {
			name := constQueue[0]
			constQueue = constQueue[1:]
			if visitedConsts[name] {
				continue
			}
			visitedConsts[name] = true

			decl, found := ext.Consts[name]
			if !found {
				return nil, nil, errors.Newf(errors.UnresolvedTypeErrorCode,
					"signature of module package %s references constant %s, which is not declared at package level", mod.Name, name).
					WithSuggestion("declare the constant in the module package, or qualify it with its defining package")
			}
			if !decl.Exported {
				return nil, nil, errors.Newf(errors.UnresolvedTypeErrorCode,
					"signature of module package %s references unexported constant %s, which cannot be copied into the consumer package", mod.Name, name).
					WithLocation(errors.SourceLocation{File: decl.File, Line: decl.Line}).
					WithSuggestion("export the constant so consumers can name it")
			}
			if decl.Source == "" {
				return nil, nil, errors.Newf(errors.UnresolvedTypeErrorCode,
					"signature of module package %s references constant %s, which has no explicit value and cannot be copied standalone", mod.Name, name).
					WithLocation(errors.SourceLocation{File: decl.File, Line: decl.Line}).
					WithSuggestion("give the constant an explicit value instead of continuing an iota sequence")
			}

			// A grouped spec is stored once per declared name; emit it once.
			if !copiedSources[decl.Source] {
				copiedSources[decl.Source] = true
				consts = append(consts, decl)
			}
			enqueueTypes(decl.LocalRefs, nil)
			constQueue = append(constQueue, decl.ConstRefs...)
		}
	}

	sort.Slice(copied, func(i, j int) bool { return copied[i].Name < copied[j].Name })
	sort.Slice(consts, func(i, j int) bool { return consts[i].Name < consts[j].Name })
	return copied, consts, nil
}

// mergeImports unions the import references of the blocks and the copied
// declarations. Two files binding the same qualifier to different paths
// cannot be merged into one generated file.
func mergeImports(mod models.ModulePackage, blocks []models.AnnotatedBlock, copied []parser.TypeDecl, consts []parser.ConstDecl) ([]models.ImportRef, error) {
	byQualifier := make(map[string]models.ImportRef)
	add := func(ref models.ImportRef) error {
		if prev, found := byQualifier[ref.Qualifier]; found && prev.Path != ref.Path {
			return errors.Newf(errors.InconsistentOutputErrorCode,
				"module package %s binds qualifier %q to both %q and %q; the generated file cannot import both", mod.Name, ref.Qualifier, prev.Path, ref.Path).
				WithSuggestion("alias one of the imports consistently across the module package")
		}
		byQualifier[ref.Qualifier] = ref
		return nil
	}
	for _, block := range blocks {
		for _, ref := range block.ImportRefs {
			if err := add(ref); err != nil {
				return nil, err
			}
		}
	}
	for _, decl := range copied {
		for _, ref := range decl.ImportRefs {
			if err := add(ref); err != nil {
				return nil, err
			}
		}
	}
	for _, decl := range consts {
		for _, ref := range decl.ImportRefs {
			if err := add(ref); err != nil {
				return nil, err
			}
		}
	}

	refs := make([]models.ImportRef, 0, len(byQualifier))
	for _, ref := range byQualifier {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

func (g *Generator) renderSource(mod models.ModulePackage, blocks []models.AnnotatedBlock, copied []parser.TypeDecl, consts []parser.ConstDecl, importRefs []models.ImportRef) (string, error) {
	var b strings.Builder
	b.WriteString(GeneratedHeader)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "// Package %s exposes the public interface of %s%s without its implementation.\n",
		mod.GoPackageName(), models.ModPrefix, mod.Name)
	fmt.Fprintf(&b, "package %s\n\n", mod.GoPackageName())

	if len(importRefs) > 0 {
		b.WriteString("import (\n")
		for _, ref := range importRefs {
			base := ref.Path
			if i := strings.LastIndex(base, "/"); i >= 0 {
				base = base[i+1:]
			}
			if ref.Qualifier != base {
				fmt.Fprintf(&b, "\t%s %q\n", ref.Qualifier, ref.Path)
			} else {
				fmt.Fprintf(&b, "\t%q\n", ref.Path)
			}
		}
		b.WriteString(")\n\n")
	}

	for _, block := range blocks {
		fmt.Fprintf(&b, "// %s is implemented by %s in %s%s.\n",
			block.InterfaceName, block.StructName, models.ModPrefix, mod.Name)
		fmt.Fprintf(&b, "type %s%s interface {\n", block.InterfaceName, block.TypeParams)
		for _, method := range block.Methods {
			fmt.Fprintf(&b, "\t%s\n", method.Declaration())
		}
		b.WriteString("}\n\n")
	}

	for _, decl := range consts {
		b.WriteString(decl.Source)
		b.WriteString("\n\n")
	}

	for _, decl := range copied {
		b.WriteString(decl.Source)
		b.WriteString("\n\n")
	}

	formatted, err := imports.Process(models.GeneratedFileName, []byte(b.String()), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return "", errors.Wrapf(errors.InconsistentOutputErrorCode, err,
			"generated source for module package %s does not parse", mod.Name)
	}
	return string(formatted), nil
}
