package models

// Config carries the run-wide settings. It is built once by the CLI layer and
// passed explicitly into every component call; components keep no ambient
// state of their own.
type Config struct {
	// Root is the workspace root directory scanned for module packages.
	Root string

	// Filter restricts the run to a single module package (short name, so
	// "alpha" for mod-alpha). Empty means the whole workspace.
	Filter string

	// Force bypasses staleness evaluation and regenerates everything.
	Force bool

	// Parallelism bounds the worker pool. Zero means GOMAXPROCS.
	Parallelism int

	// ToolVersion is stamped into generation records.
	ToolVersion string

	Verbose bool
	Quiet   bool
}
