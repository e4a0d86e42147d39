package models

// PackageAction states what the run did with one module package.
type PackageAction int

const (
	ActionSkipped   PackageAction = iota // staleness gate said up to date
	ActionGenerated                      // consumer output written
	ActionUnchanged                      // regenerated output matched disk, nothing written
	ActionNoBlocks                       // no annotated blocks, no consumer produced
	ActionFailed
)

func (a PackageAction) String() string {
	switch a {
	case ActionGenerated:
		return "generated"
	case ActionUnchanged:
		return "unchanged"
	case ActionNoBlocks:
		return "no annotations"
	case ActionFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// PackageResult is the per-module outcome merged into the aggregate report by
// the coordinating owner. Workers never share it; each sends its own result
// over the results channel.
type PackageResult struct {
	Name        string
	ConsumerDir string
	Action      PackageAction
	Reason      RegenReason
	Interfaces  int
	DepsAdded   int
	DepsRemoved int
	Err         error
}

// RunStatus is the overall outcome of a run. Cancelled is distinct from both
// success and failure.
type RunStatus int

const (
	RunSucceeded RunStatus = iota
	RunFailed
	RunCancelled
)

func (s RunStatus) String() string {
	switch s {
	case RunFailed:
		return "failed"
	case RunCancelled:
		return "cancelled"
	default:
		return "succeeded"
	}
}

// RunSummary is the single aggregate report for a run.
type RunSummary struct {
	RunID        string
	Status       RunStatus
	Results      []PackageResult
	DepsAdded    int // manifest entries added across the whole run
	DepsRemoved  int // manifest entries pruned across the whole run
	VerifyErrors []error
}

// Generated returns how many module packages had consumer output written.
func (s *RunSummary) Generated() int {
	n := 0
	for _, r := range s.Results {
		if r.Action == ActionGenerated {
			n++
		}
	}
	return n
}

// Failures returns the per-package errors collected during the run.
func (s *RunSummary) Failures() []PackageResult {
	var failed []PackageResult
	for _, r := range s.Results {
		if r.Action == ActionFailed {
			failed = append(failed, r)
		}
	}
	return failed
}
