package manager

import (
	"encoding/json"
	"os"
	"path/filepath"

	"congen/internal/errors"
	"congen/internal/models"
	"congen/internal/utils"
)

// ReadRecord loads the generation record from a module package directory.
// A missing record returns nil; a corrupt one is treated the same way, since
// the worst outcome is one redundant regeneration.
func ReadRecord(mod models.ModulePackage) *models.GenerationRecord {
	data, err := os.ReadFile(filepath.Join(mod.Dir, models.RecordFileName))
	if err != nil {
		return nil
	}
	var record models.GenerationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil
	}
	return &record
}

// WriteRecord stores the generation record inside the module package
// directory. It is rewritten only when its content changed, so a no-op run
// leaves the mtime alone.
func WriteRecord(mod models.ModulePackage, record models.GenerationRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errors.Wrap(errors.IOErrorCode, "failed to encode generation record", err)
	}
	data = append(data, '\n')

	path := filepath.Join(mod.Dir, models.RecordFileName)
	same, err := contentMatches(path, string(data))
	if err != nil {
		return err
	}
	if same {
		return nil
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return errors.Wrapf(errors.IOErrorCode, err, "failed to write %s", path)
	}
	return nil
}
