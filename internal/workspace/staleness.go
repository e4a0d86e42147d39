package workspace

import "congen/internal/models"

// ShouldRegenerate applies the staleness policy to one module package,
// independently of all others:
//
//   - force always regenerates;
//   - a module package with no consumer output yet regenerates;
//   - otherwise the module package regenerates only when it is strictly
//     newer than its consumer output.
//
// The decision is made entirely from the scan-time snapshot.
func ShouldRegenerate(cfg models.Config, mod models.ModulePackage) models.RegenReason {
	if cfg.Force {
		return models.RegenForce
	}
	if !mod.HasConsumer {
		return models.RegenMissing
	}
	if mod.ModTime.After(mod.ConTime) {
		return models.RegenModified
	}
	return models.RegenNone
}
