// Package manager owns every write the tool makes: consumer source files,
// consumer manifests, and generation records. Writes are content-diffed
// first, so an unchanged workspace produces zero filesystem mutations.
package manager

import (
	"os"
	"path/filepath"

	"congen/internal/errors"
	"congen/internal/models"
	"congen/internal/utils"
)

// MaterializeResult reports what a consumer package write actually changed.
type MaterializeResult struct {
	FilesWritten int
	DepsAdded    int
	DepsRemoved  int
}

// Changed reports whether materializing touched the filesystem at all.
func (r MaterializeResult) Changed() bool {
	return r.FilesWritten > 0 || r.DepsAdded > 0 || r.DepsRemoved > 0
}

// Manager materializes in-memory consumer packages onto disk.
type Manager struct {
	cfg models.Config
}

// NewManager creates a consumer package manager.
func NewManager(cfg models.Config) *Manager {
	return &Manager{cfg: cfg}
}

// Materialize writes the consumer package next to its module package. Files
// whose on-disk content already matches are left untouched, preserving their
// timestamps.
func (m *Manager) Materialize(mod models.ModulePackage, con *models.ConsumerPackage) (MaterializeResult, error) {
	var result MaterializeResult

	if err := os.MkdirAll(con.Dir, 0o755); err != nil {
		return result, errors.Wrapf(errors.IOErrorCode, err, "failed to create consumer directory %s", con.Dir)
	}

	for rel, content := range con.Files {
		path := filepath.Join(con.Dir, rel)
		same, err := contentMatches(path, content)
		if err != nil {
			return result, err
		}
		if same {
			continue
		}
		if err := utils.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
			return result, errors.Wrapf(errors.IOErrorCode, err, "failed to write %s", path)
		}
		result.FilesWritten++
	}

	added, removed, err := m.syncManifest(mod, con)
	if err != nil {
		return result, err
	}
	result.DepsAdded = added
	result.DepsRemoved = removed

	return result, nil
}

// contentMatches reports whether path already holds exactly content. A
// missing file is simply a mismatch, not an error.
func contentMatches(path, content string) (bool, error) {
	existing, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(errors.IOErrorCode, err, "failed to read %s", path)
	}
	return string(existing) == content, nil
}
