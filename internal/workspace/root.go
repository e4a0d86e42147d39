package workspace

import (
	"path/filepath"
	"strings"

	"congen/internal/models"
	"congen/internal/utils"
)

// FindRoot walks upward from startDir looking for the workspace root: the
// first directory containing a go.work file, or failing that, a .git
// directory. When neither is found, startDir itself is returned.
//
// The second return value is the ambient module scope: when startDir is
// inside a mod-* directory, runs default to that one module package unless a
// filter says otherwise.
func FindRoot(startDir string) (root string, ambientMod string) {
	dir := filepath.Clean(startDir)

	for cur := dir; ; {
		base := filepath.Base(cur)
		if ambientMod == "" && strings.HasPrefix(base, models.ModPrefix) {
			ambientMod = strings.TrimPrefix(base, models.ModPrefix)
		}
		if utils.FileExists(filepath.Join(cur, "go.work")) {
			return cur, ambientMod
		}
		if utils.DirExists(filepath.Join(cur, ".git")) {
			return cur, ambientMod
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir, ambientMod
		}
		cur = parent
	}
}
