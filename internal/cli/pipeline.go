package cli

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"congen/internal/errors"
	"congen/internal/generator"
	"congen/internal/manager"
	"congen/internal/models"
	"congen/internal/parser"
	"congen/internal/utils"
	"congen/internal/verify"
	"congen/internal/workspace"
)

// Pipeline coordinates one full run: scan, per-module generation, and the
// trailing verification phase. Module packages are processed independently on
// a bounded worker pool; only the coordinator touches the aggregate summary.
type Pipeline struct {
	cfg      models.Config
	diag     *utils.DiagnosticSystem
	verifier verify.Runner
}

// NewPipeline creates a run coordinator.
func NewPipeline(cfg models.Config, diag *utils.DiagnosticSystem, verifier verify.Runner) *Pipeline {
	return &Pipeline{cfg: cfg, diag: diag, verifier: verifier}
}

// Run executes the whole pipeline and returns the aggregate summary. The
// returned error is non-nil only for run-fatal failures (workspace scan);
// per-package failures are carried inside the summary.
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	summary := &models.RunSummary{RunID: uuid.NewString()}

	p.diag.Verbose("run %s starting in %s", summary.RunID, p.cfg.Root)

	mods, err := workspace.NewScanner().Scan(p.cfg)
	if err != nil {
		summary.Status = models.RunFailed
		return summary, err
	}
	p.diag.Verbose("scanned %d module package(s)", len(mods))

	results := p.generatePhase(ctx, mods, summary.RunID)
	for _, result := range results {
		summary.Results = append(summary.Results, result)
		summary.DepsAdded += result.DepsAdded
		summary.DepsRemoved += result.DepsRemoved
	}

	if ctx.Err() == nil {
		summary.VerifyErrors = p.verifyPhase(ctx, results)
	}

	switch {
	case ctx.Err() != nil:
		summary.Status = models.RunCancelled
	case len(summary.Failures()) > 0 || len(summary.VerifyErrors) > 0:
		summary.Status = models.RunFailed
	default:
		summary.Status = models.RunSucceeded
	}
	return summary, nil
}

// generatePhase runs every module package through extraction, synthesis, and
// materialization on the worker pool. Results arrive over a channel; the
// coordinator is the only writer of the ordered slice.
func (p *Pipeline) generatePhase(ctx context.Context, mods []models.ModulePackage, runID string) []models.PackageResult {
	group, ctx := errgroup.WithContext(ctx)
	if p.cfg.Parallelism > 0 {
		group.SetLimit(p.cfg.Parallelism)
	}

	resultCh := make(chan models.PackageResult, len(mods))
	for _, mod := range mods {
		mod := mod
		group.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			resultCh <- p.processModule(mod, runID)
			return nil
		})
	}
	_ = group.Wait()
	close(resultCh)

	byName := make(map[string]models.PackageResult, len(mods))
	for result := range resultCh {
		byName[result.Name] = result
	}

	// Report in scan order regardless of completion order.
	results := make([]models.PackageResult, 0, len(mods))
	for _, mod := range mods {
		if result, done := byName[mod.Name]; done {
			results = append(results, result)
		}
	}
	return results
}

// processModule runs the per-package pipeline. Failures never escape as
// errors; they become part of the package's result.
func (p *Pipeline) processModule(mod models.ModulePackage, runID string) models.PackageResult {
	result := models.PackageResult{Name: mod.Name, ConsumerDir: mod.ConsumerDir}

	result.Reason = workspace.ShouldRegenerate(p.cfg, mod)
	if result.Reason == models.RegenNone {
		p.diag.Verbose("%s%s: up to date", models.ModPrefix, mod.Name)
		result.Action = models.ActionSkipped
		return result
	}

	ext, err := parser.NewExtractor().ExtractPackage(mod)
	if err != nil {
		return failed(result, err)
	}
	if len(ext.Blocks) == 0 {
		if mod.HasConsumer {
			p.diag.Warn("%s%s has no congen::export annotations but %s exists; remove the stale consumer package",
				models.ModPrefix, mod.Name, mod.ConsumerDir)
		} else {
			p.diag.Verbose("%s%s: no annotated blocks", models.ModPrefix, mod.Name)
		}
		result.Action = models.ActionNoBlocks
		return result
	}

	fingerprint := generator.Fingerprint(ext.Blocks)

	// A modified module whose exported signatures are untouched needs no
	// rewrite: the record fingerprint catches comment and body edits.
	if result.Reason == models.RegenModified && mod.HasConsumer {
		if record := manager.ReadRecord(mod); record != nil && record.Fingerprint == fingerprint {
			p.diag.Verbose("%s%s: signatures unchanged, skipping rewrite", models.ModPrefix, mod.Name)
			result.Action = models.ActionUnchanged
			return result
		}
	}

	con, err := generator.NewGenerator().Generate(mod, ext)
	if err != nil {
		return failed(result, err)
	}
	result.Interfaces = interfaceCount(ext.Blocks)

	materialized, err := manager.NewManager(p.cfg).Materialize(mod, con)
	if err != nil {
		return failed(result, err)
	}
	result.DepsAdded = materialized.DepsAdded
	result.DepsRemoved = materialized.DepsRemoved

	if err := manager.WriteRecord(mod, models.GenerationRecord{
		Fingerprint: fingerprint,
		ToolVersion: p.cfg.ToolVersion,
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
	}); err != nil {
		return failed(result, err)
	}

	if materialized.Changed() {
		result.Action = models.ActionGenerated
		p.diag.Verbose("%s%s: generated %d interface(s) (%s)", models.ModPrefix, mod.Name, result.Interfaces, result.Reason)
	} else {
		result.Action = models.ActionUnchanged
		p.diag.Verbose("%s%s: output already current", models.ModPrefix, mod.Name)
	}
	return result
}

// verifyPhase compiles every consumer package the run touched, strictly after
// all writes have landed.
func (p *Pipeline) verifyPhase(ctx context.Context, results []models.PackageResult) []error {
	var targets []models.PackageResult
	for _, result := range results {
		if result.Action == models.ActionGenerated || result.Action == models.ActionUnchanged {
			targets = append(targets, result)
		}
	}
	if len(targets) == 0 || p.verifier == nil {
		return nil
	}

	group, ctx := errgroup.WithContext(ctx)
	if p.cfg.Parallelism > 0 {
		group.SetLimit(p.cfg.Parallelism)
	}

	errCh := make(chan error, len(targets))
	for _, target := range targets {
		target := target
		group.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			diags, err := p.verifier.Check(ctx, target.ConsumerDir)
			if err != nil && errors.CodeOf(err) == errors.VerificationErrorCode {
				for _, diag := range diags {
					p.diag.Error("%s", diag)
				}
				errCh <- err
			}
			return nil
		})
	}
	_ = group.Wait()
	close(errCh)

	var verifyErrs []error
	for err := range errCh {
		verifyErrs = append(verifyErrs, err)
	}
	return verifyErrs
}

func failed(result models.PackageResult, err error) models.PackageResult {
	result.Action = models.ActionFailed
	result.Err = err
	return result
}

func interfaceCount(blocks []models.AnnotatedBlock) int {
	seen := make(map[string]bool, len(blocks))
	for _, block := range blocks {
		seen[block.InterfaceName] = true
	}
	return len(seen)
}
