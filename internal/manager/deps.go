package manager

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"

	"congen/internal/errors"
	"congen/internal/models"
	"congen/internal/utils"
)

// AddDependency adds or updates a requirement in a module package's go.mod.
// Specs take the module@version form.
func AddDependency(mod models.ModulePackage, spec string) error {
	path, version, found := strings.Cut(spec, "@")
	if !found || path == "" || version == "" {
		return errors.Newf(errors.ParseErrorCode, "invalid dependency spec %q", spec).
			WithSuggestion("use the module@version form, e.g. github.com/google/uuid@v1.6.0")
	}
	return editManifest(mod, func(file *modfile.File) error {
		return file.AddRequire(path, version)
	})
}

// RemoveDependency drops a requirement from a module package's go.mod.
// Removing a path that is not required is an error, matching go mod edit.
func RemoveDependency(mod models.ModulePackage, path string) error {
	return editManifest(mod, func(file *modfile.File) error {
		for _, req := range file.Require {
			if req.Mod.Path == path {
				return file.DropRequire(path)
			}
		}
		return errors.Newf(errors.PackageNotFoundErrorCode, "go.mod of %s%s does not require %s", models.ModPrefix, mod.Name, path)
	})
}

func editManifest(mod models.ModulePackage, edit func(*modfile.File) error) error {
	path := filepath.Join(mod.Dir, "go.mod")
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.IOErrorCode, err, "failed to read %s", path)
	}
	file, err := modfile.Parse(path, data, nil)
	if err != nil {
		return errors.Wrapf(errors.ParseErrorCode, err, "failed to parse %s", path)
	}

	if err := edit(file); err != nil {
		return err
	}

	file.Cleanup()
	formatted, err := file.Format()
	if err != nil {
		return errors.Wrapf(errors.IOErrorCode, err, "failed to format %s", path)
	}
	if string(formatted) == string(data) {
		return nil
	}
	if err := utils.WriteFileAtomic(path, formatted, 0o644); err != nil {
		return errors.Wrapf(errors.IOErrorCode, err, "failed to write %s", path)
	}
	return nil
}
