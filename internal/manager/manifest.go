package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"

	"congen/internal/errors"
	"congen/internal/models"
	"congen/internal/utils"
)

// moduleManifest is the parsed go.mod of one module package, reduced to what
// dependency resolution needs.
type moduleManifest struct {
	Path      string
	GoVersion string
	Requires  []models.Require
}

func loadModuleManifest(mod models.ModulePackage) (*moduleManifest, error) {
	path := filepath.Join(mod.Dir, "go.mod")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.IOErrorCode, err, "failed to read %s", path)
	}
	file, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ParseErrorCode, err, "failed to parse %s", path)
	}
	manifest := &moduleManifest{Path: file.Module.Mod.Path}
	if file.Go != nil {
		manifest.GoVersion = file.Go.Version
	}
	for _, req := range file.Require {
		manifest.Requires = append(manifest.Requires, models.Require{
			Path:    req.Mod.Path,
			Version: req.Mod.Version,
		})
	}
	return manifest, nil
}

// consumerModulePath derives the consumer's module path from the module
// package's: the trailing mod-* element becomes con-*.
func consumerModulePath(manifest *moduleManifest, mod models.ModulePackage) string {
	modElem := models.ModPrefix + mod.Name
	if strings.HasSuffix(manifest.Path, "/"+modElem) || manifest.Path == modElem {
		return strings.TrimSuffix(manifest.Path, modElem) + mod.ConsumerName()
	}
	return manifest.Path + "/" + mod.ConsumerName()
}

// syncManifest brings the consumer go.mod in line with what the generated
// source imports. The require block is tool-owned: entries the source no
// longer needs are dropped, entries it newly needs are added, and everything
// else in the file is preserved as written.
func (m *Manager) syncManifest(mod models.ModulePackage, con *models.ConsumerPackage) (added, removed int, err error) {
	manifest, err := loadModuleManifest(mod)
	if err != nil {
		return 0, 0, err
	}

	desired, selfDep, err := resolveRequires(manifest, mod, con.ImportPaths)
	if err != nil {
		return 0, 0, err
	}
	con.Requires = desired

	manifestPath := filepath.Join(con.Dir, "go.mod")
	file, err := openOrInitManifest(manifestPath, consumerModulePath(manifest, mod), manifest.GoVersion)
	if err != nil {
		return 0, 0, err
	}

	desiredByPath := make(map[string]string, len(desired))
	for _, req := range desired {
		desiredByPath[req.Path] = req.Version
	}

	for _, req := range file.Require {
		version, wanted := desiredByPath[req.Mod.Path]
		if wanted && version == req.Mod.Version {
			delete(desiredByPath, req.Mod.Path)
			continue
		}
		if err := file.DropRequire(req.Mod.Path); err != nil {
			return 0, 0, errors.Wrapf(errors.IOErrorCode, err, "failed to drop requirement %s", req.Mod.Path)
		}
		removed++
	}

	missing := make([]string, 0, len(desiredByPath))
	for path := range desiredByPath {
		missing = append(missing, path)
	}
	sort.Strings(missing)
	for _, path := range missing {
		if err := file.AddRequire(path, desiredByPath[path]); err != nil {
			return 0, 0, errors.Wrapf(errors.IOErrorCode, err, "failed to add requirement %s", path)
		}
		added++
	}

	if selfDep {
		rel, relErr := filepath.Rel(con.Dir, mod.Dir)
		if relErr != nil {
			rel = filepath.Join("..", models.ModPrefix+mod.Name)
		}
		if err := file.AddReplace(manifest.Path, "", rel, ""); err != nil {
			return 0, 0, errors.Wrapf(errors.IOErrorCode, err, "failed to add replace directive for %s", manifest.Path)
		}
	}

	file.Cleanup()
	formatted, err := file.Format()
	if err != nil {
		return 0, 0, errors.Wrapf(errors.IOErrorCode, err, "failed to format %s", manifestPath)
	}

	same, err := contentMatches(manifestPath, string(formatted))
	if err != nil {
		return 0, 0, err
	}
	if !same {
		if err := utils.WriteFileAtomic(manifestPath, formatted, 0o644); err != nil {
			return 0, 0, errors.Wrapf(errors.IOErrorCode, err, "failed to write %s", manifestPath)
		}
	}

	return added, removed, nil
}

// openOrInitManifest parses an existing consumer go.mod, or builds a fresh
// one mirroring the module package's go directive.
func openOrInitManifest(path, modulePath, goVersion string) (*modfile.File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		content := fmt.Sprintf("module %s\n", modulePath)
		if goVersion != "" {
			content += fmt.Sprintf("\ngo %s\n", goVersion)
		}
		data = []byte(content)
		err = nil
	}
	if err != nil {
		return nil, errors.Wrapf(errors.IOErrorCode, err, "failed to read %s", path)
	}
	file, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ParseErrorCode, err, "failed to parse %s", path)
	}
	return file, nil
}

// resolveRequires maps the generated source's import paths onto the module
// package's requirements by longest-prefix match. Standard library imports
// need no requirement; imports of the module package's own subpackages turn
// into a self requirement backed by a local replace directive.
func resolveRequires(manifest *moduleManifest, mod models.ModulePackage, importPaths []string) ([]models.Require, bool, error) {
	byPath := make(map[string]string)
	selfDep := false

	for _, imp := range importPaths {
		if isStandardLibrary(imp) {
			continue
		}
		if imp == manifest.Path || strings.HasPrefix(imp, manifest.Path+"/") {
			byPath[manifest.Path] = "v0.0.0"
			selfDep = true
			continue
		}
		req, found := longestPrefixRequire(manifest.Requires, imp)
		if !found {
			return nil, false, errors.Newf(errors.UnresolvedTypeErrorCode,
				"generated source for module package %s imports %q, which no requirement in %s/go.mod provides", mod.Name, imp, mod.Dir).
				WithSuggestion("run go mod tidy in the module package first")
		}
		byPath[req.Path] = req.Version
	}

	requires := make([]models.Require, 0, len(byPath))
	for path, version := range byPath {
		requires = append(requires, models.Require{Path: path, Version: version})
	}
	sort.Slice(requires, func(i, j int) bool { return requires[i].Path < requires[j].Path })
	return requires, selfDep, nil
}

func longestPrefixRequire(requires []models.Require, importPath string) (models.Require, bool) {
	var best models.Require
	found := false
	for _, req := range requires {
		if importPath != req.Path && !strings.HasPrefix(importPath, req.Path+"/") {
			continue
		}
		if !found || len(req.Path) > len(best.Path) {
			best = req
			found = true
		}
	}
	return best, found
}

// isStandardLibrary reports whether an import path belongs to the standard
// library: its first element carries no dot, so it can never be a module path.
func isStandardLibrary(importPath string) bool {
	first := importPath
	if i := strings.Index(importPath, "/"); i >= 0 {
		first = importPath[:i]
	}
	return !strings.Contains(first, ".")
}
