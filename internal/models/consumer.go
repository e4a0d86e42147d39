package models

import "time"

// Require is one tool-managed dependency entry in a consumer package manifest.
type Require struct {
	Path    string
	Version string
}

// ConsumerPackage is the in-memory form of a generated consumer package: the
// complete file set is assembled before anything touches disk, so the manager
// can diff against existing contents and skip writes that would only bump
// timestamps.
type ConsumerPackage struct {
	Name        string            // con-alpha
	Dir         string            // target directory
	Files       map[string]string // relative path -> content
	ImportPaths []string          // import paths the generated source uses
	Requires    []Require         // manifest dependency entries, resolved by the manager
}

// GenerationRecord is the bookkeeping artifact stored inside the module
// package directory. The fingerprint distinguishes cosmetic source edits from
// signature-affecting ones; the timestamp-based staleness gate remains
// authoritative.
type GenerationRecord struct {
	Fingerprint string    `json:"fingerprint"`
	ToolVersion string    `json:"tool_version"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
}
