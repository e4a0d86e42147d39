package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"congen/internal/errors"
	"congen/internal/models"
	"congen/internal/utils"
	"congen/internal/verify"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Scan the workspace and (re)generate stale consumer packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd)
	},
}

func init() {
	generateCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "regenerate everything, ignoring staleness")
	generateCmd.Flags().IntVarP(&flagJobs, "jobs", "j", 0, "maximum concurrent module packages (default: GOMAXPROCS)")
}

func runGenerate(cmd *cobra.Command) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	diag := newDiagnostics()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := NewPipeline(cfg, diag, verify.NewRunner()).Run(ctx)
	if err != nil {
		// Workspace-level failure: nothing was processed.
		diag.Error("%s", err)
		if te, ok := err.(errors.ToolError); ok {
			for _, hint := range te.Suggestions() {
				diag.Info("hint: %s", hint)
			}
		}
		return &exitError{code: exitCodeFor(err)}
	}

	report(diag, summary)

	switch summary.Status {
	case models.RunCancelled:
		return &exitError{code: 5}
	case models.RunFailed:
		return &exitError{code: summaryExitCode(summary)}
	}
	return nil
}

// report prints the aggregate outcome of a run. Per-package failures are
// collected into one combined error and reported together at the end.
func report(diag *utils.DiagnosticSystem, summary *models.RunSummary) {
	diag.Section("Run " + summary.RunID)

	failed := errors.NewMultipleErrors()
	for _, result := range summary.Results {
		switch result.Action {
		case models.ActionGenerated:
			diag.PhaseItem("%s%s: %d interface(s) -> %s", models.ModPrefix, result.Name, result.Interfaces, result.ConsumerDir)
		case models.ActionFailed:
			if te, ok := result.Err.(errors.ToolError); ok {
				failed.Add(te)
			} else {
				failed.Add(errors.Wrapf(errors.IOErrorCode, result.Err, "%s%s failed", models.ModPrefix, result.Name))
			}
		}
	}

	if !failed.IsEmpty() {
		diag.Error("%s", failed.Error())
		var hints []string
		for _, err := range failed.Errors {
			hints = append(hints, err.Suggestions()...)
		}
		if len(hints) > 0 {
			diag.Subsection("Hints")
			diag.Indent()
			for _, hint := range hints {
				diag.List("%s", hint)
			}
			diag.Unindent()
		}
	}

	stats := map[string]interface{}{
		"Packages":     len(summary.Results),
		"Generated":    summary.Generated(),
		"Failed":       len(summary.Failures()),
		"Deps added":   summary.DepsAdded,
		"Deps removed": summary.DepsRemoved,
		"Status":       summary.Status.String(),
	}
	diag.Summary("Summary",
		[]string{"Packages", "Generated", "Failed", "Deps added", "Deps removed", "Status"}, stats)
}

// summaryExitCode picks the exit code for a failed run by pipeline phase:
// extraction failures win over generation failures, which win over
// verification failures.
func summaryExitCode(summary *models.RunSummary) int {
	worst := 0
	rank := func(code int) {
		switch {
		case worst == 0:
			worst = code
		case code < worst:
			worst = code
		}
	}
	for _, failure := range summary.Failures() {
		rank(exitCodeFor(failure.Err))
	}
	if len(summary.VerifyErrors) > 0 {
		rank(4)
	}
	if worst == 0 {
		worst = 1
	}
	return worst
}
