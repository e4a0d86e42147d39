// Package workspace discovers module packages under a workspace root and
// decides which of them are due for regeneration.
package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"congen/internal/errors"
	"congen/internal/models"
	"congen/internal/utils"
)

// skipDirs are directory names that never contain module packages.
var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	"testdata":     true,
	"build":        true,
	"dist":         true,
	"target":       true,
}

// Scanner discovers mod-* directories under a workspace root. A module
// package is identified by the combination of a go.mod manifest at the
// directory root and the mod- directory-name prefix.
type Scanner struct{}

// NewScanner creates a new workspace scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan walks the workspace and returns an alphabetically ordered snapshot of
// the module packages it finds. All timestamps are captured here, once; the
// rest of the run never re-reads the filesystem for staleness.
func (s *Scanner) Scan(cfg models.Config) ([]models.ModulePackage, error) {
	var mods []models.ModulePackage
	seen := make(map[string]string) // short name -> dir

	err := filepath.WalkDir(cfg.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(errors.IOErrorCode, err, "failed to walk %s", path)
		}
		if !d.IsDir() {
			return nil
		}

		name := d.Name()
		if path != cfg.Root {
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			// Consumer directories are outputs, not scan candidates.
			if strings.HasPrefix(name, models.ConPrefix) {
				return filepath.SkipDir
			}
		}

		if !strings.HasPrefix(name, models.ModPrefix) {
			return nil
		}
		if !utils.FileExists(filepath.Join(path, "go.mod")) {
			return nil
		}

		short := strings.TrimPrefix(name, models.ModPrefix)
		if short == "" {
			return nil
		}
		if prev, dup := seen[short]; dup {
			return errors.Newf(errors.AmbiguousPackageErrorCode,
				"module packages %s and %s both map to consumer %s%s", prev, path, models.ConPrefix, short)
		}
		seen[short] = path

		mod, err := s.snapshot(short, path)
		if err != nil {
			return err
		}
		mods = append(mods, mod)

		// A module package never nests another one.
		return filepath.SkipDir
	})
	if err != nil {
		if _, ok := err.(errors.ToolError); ok {
			return nil, err
		}
		return nil, errors.Wrapf(errors.IOErrorCode, err, "failed to scan workspace root %s", cfg.Root)
	}

	sort.Slice(mods, func(i, j int) bool { return mods[i].Name < mods[j].Name })

	if cfg.Filter != "" {
		for _, mod := range mods {
			if mod.Name == cfg.Filter {
				return []models.ModulePackage{mod}, nil
			}
		}
		return nil, errors.Newf(errors.PackageNotFoundErrorCode,
			"no module package named %s%s under %s", models.ModPrefix, cfg.Filter, cfg.Root).
			WithSuggestion("run 'congen list' to see the discovered module packages")
	}

	if len(mods) == 0 {
		return nil, errors.Newf(errors.NoPackagesFoundErrorCode,
			"no module packages found under %s", cfg.Root).
			WithSuggestion("congen looks for directories named " + models.ModPrefix + "* containing a go.mod")
	}

	return mods, nil
}

// snapshot captures one module package: its source file list, its latest
// modification time, and the state of its consumer directory.
func (s *Scanner) snapshot(short, dir string) (models.ModulePackage, error) {
	mod := models.ModulePackage{
		Name:        short,
		Dir:         dir,
		ConsumerDir: filepath.Join(filepath.Dir(dir), models.ConPrefix+short),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return mod, errors.Wrapf(errors.IOErrorCode, err, "failed to read module package %s", dir)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		mod.SourceFiles = append(mod.SourceFiles, filepath.Join(dir, name))
	}
	sort.Strings(mod.SourceFiles)

	mod.ModTime, err = latestModTime(dir)
	if err != nil {
		return mod, err
	}

	if info, statErr := os.Stat(mod.ConsumerDir); statErr == nil && info.IsDir() {
		mod.HasConsumer = true
		mod.ConTime, err = latestModTime(mod.ConsumerDir)
		if err != nil {
			return mod, err
		}
	}

	return mod, nil
}

// latestModTime returns the most recent modification time among the regular
// files under dir. Hidden files are excluded so that writing the generation
// record never makes a module package look newer than its own consumer
// output, and directory mtimes are ignored because creating the record (or
// any scratch file) bumps them too.
func latestModTime(dir string) (time.Time, error) {
	var latest time.Time
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != dir && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return latest, errors.Wrapf(errors.IOErrorCode, err, "failed to read timestamps under %s", dir)
	}
	return latest, nil
}
