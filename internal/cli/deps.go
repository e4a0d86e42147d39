package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"congen/internal/errors"
	"congen/internal/manager"
	"congen/internal/models"
	"congen/internal/workspace"
)

var addDepCmd = &cobra.Command{
	Use:   "add-dep <module> <path@version>...",
	Short: "Add requirements to a module package's go.mod",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mod, err := resolveModule(args[0])
		if err != nil {
			return err
		}
		diag := newDiagnostics()
		for _, spec := range args[1:] {
			if err := manager.AddDependency(mod, spec); err != nil {
				return err
			}
			diag.Success("%s%s: added %s", models.ModPrefix, mod.Name, spec)
		}
		diag.Info("run congen to propagate the change into %s", mod.ConsumerName())
		return nil
	},
}

var rmDepCmd = &cobra.Command{
	Use:   "rm-dep <module> <path>...",
	Short: "Remove requirements from a module package's go.mod",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mod, err := resolveModule(args[0])
		if err != nil {
			return err
		}
		diag := newDiagnostics()
		for _, path := range args[1:] {
			if err := manager.RemoveDependency(mod, path); err != nil {
				return err
			}
			diag.Success("%s%s: removed %s", models.ModPrefix, mod.Name, path)
		}
		diag.Info("run congen to propagate the change into %s", mod.ConsumerName())
		return nil
	},
}

// resolveModule scans the workspace for one module package by short name.
func resolveModule(name string) (models.ModulePackage, error) {
	cfg, err := buildConfig()
	if err != nil {
		return models.ModulePackage{}, err
	}
	// Accept both "alpha" and "mod-alpha".
	cfg.Filter = strings.TrimPrefix(name, models.ModPrefix)

	mods, err := workspace.NewScanner().Scan(cfg)
	if err != nil {
		return models.ModulePackage{}, err
	}
	if len(mods) != 1 {
		return models.ModulePackage{}, errors.Newf(errors.PackageNotFoundErrorCode,
			"module package %q did not resolve to exactly one directory", name)
	}
	return mods[0], nil
}
