// Package cli wires the congen commands together: flag and environment
// handling, workspace discovery, and the run pipeline behind each command.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"congen/internal/errors"
	"congen/internal/models"
	"congen/internal/utils"
	"congen/internal/workspace"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"

	flagRoot    string
	flagMod     string
	flagForce   bool
	flagJobs    int
	flagVerbose bool
	flagQuiet   bool

	// rootCmd is the base command; invoked bare it behaves like generate.
	rootCmd = &cobra.Command{
		Use:   "congen",
		Short: "Generate interface-only consumer packages for annotated module packages",
		Long: `congen scans a workspace for mod-* module packages, extracts the exported
method sets of structs annotated with //congen::export, and synthesizes a
sibling con-* package per module holding only the interfaces and the types
they mention. Downstream code depends on the small consumer package instead
of the implementation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd)
		},
	}
)

func init() {
	cobra.OnInitialize(initEnvConfig)

	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "workspace root (default: auto-discovered from go.work or .git)")
	rootCmd.PersistentFlags().StringVar(&flagMod, "mod", "", "restrict the run to one module package (short name)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress everything except errors")
	rootCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "regenerate everything, ignoring staleness")
	rootCmd.Flags().IntVarP(&flagJobs, "jobs", "j", 0, "maximum concurrent module packages (default: GOMAXPROCS)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addDepCmd)
	rootCmd.AddCommand(rmDepCmd)
}

// initEnvConfig lets every flag be driven by a CONGEN_* environment variable,
// with explicit flags taking precedence.
func initEnvConfig() {
	viper.SetEnvPrefix("congen")
	viper.AutomaticEnv()

	for _, name := range []string{"root", "mod", "verbose", "quiet"} {
		flag := rootCmd.PersistentFlags().Lookup(name)
		if !flag.Changed && viper.IsSet(name) {
			_ = flag.Value.Set(viper.GetString(name))
		}
	}
}

// buildConfig resolves the effective run configuration: explicit flags first,
// then workspace discovery from the current directory. Running inside a mod-*
// directory implicitly scopes the run to that module.
func buildConfig() (models.Config, error) {
	cfg := models.Config{
		Filter:      flagMod,
		Force:       flagForce,
		Parallelism: flagJobs,
		ToolVersion: Version,
		Verbose:     flagVerbose,
		Quiet:       flagQuiet,
	}

	if flagRoot != "" {
		cfg.Root = flagRoot
		return cfg, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return cfg, errors.Wrap(errors.IOErrorCode, "failed to resolve working directory", err)
	}
	root, ambientMod := workspace.FindRoot(cwd)
	cfg.Root = root
	if cfg.Filter == "" {
		cfg.Filter = ambientMod
	}
	return cfg, nil
}

func newDiagnostics() *utils.DiagnosticSystem {
	switch {
	case flagQuiet:
		return utils.NewQuietDiagnostics()
	case flagVerbose:
		return utils.NewVerboseDiagnostics()
	default:
		return utils.NewDiagnosticSystem(utils.DiagnosticInfo)
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd.Version = fmt.Sprintf("%s (commit %s)", Version, Commit)
	if err := rootCmd.Execute(); err != nil {
		if code, ok := err.(*exitError); ok {
			return code.code
		}
		diag := newDiagnostics()
		diag.Error("%s", err)
		if te, ok := err.(errors.ToolError); ok {
			for _, hint := range te.Suggestions() {
				diag.Info("hint: %s", hint)
			}
		}
		return exitCodeFor(err)
	}
	return 0
}

// exitError carries a precomputed exit code out of a RunE without
// re-reporting a message the command already printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// exitCodeFor maps an error to the documented exit codes: 1 workspace,
// 2 parse/annotation, 3 generation, 4 verification, 5 cancelled.
func exitCodeFor(err error) int {
	switch code := errors.CodeOf(err); {
	case code.IsWorkspace():
		return 1
	case code == errors.ParseErrorCode,
		code == errors.MisplacedAnnotationErrorCode,
		code == errors.ConflictingAnnotationErrorCode:
		return 2
	case code == errors.UnresolvedTypeErrorCode,
		code == errors.InconsistentOutputErrorCode:
		return 3
	case code == errors.VerificationErrorCode:
		return 4
	default:
		return 1
	}
}
