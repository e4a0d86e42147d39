package models

import (
	"strings"
	"time"
)

// ModPrefix is the directory-name prefix that marks a module package.
const ModPrefix = "mod-"

// ConPrefix is the directory-name prefix used for generated consumer packages.
const ConPrefix = "con-"

// RecordFileName is the generation record written inside a module package.
const RecordFileName = ".congen-record.json"

// GeneratedFileName is the synthesized interface source inside a consumer package.
const GeneratedFileName = "autogen_interfaces.go"

// ModulePackage is an immutable snapshot of one mod-* directory, taken at scan
// time. All staleness decisions for a run are made against this snapshot; the
// filesystem is never re-read for timestamps mid-run.
type ModulePackage struct {
	Name        string    // short name, "alpha" for mod-alpha
	Dir         string    // filesystem path to the mod-* directory
	ConsumerDir string    // sibling path for the con-* directory
	SourceFiles []string  // ordered non-test .go files
	ModTime     time.Time // latest mtime among sources and go.mod (record excluded)

	HasConsumer bool      // whether ConsumerDir existed at scan time
	ConTime     time.Time // latest mtime inside ConsumerDir; zero when absent
}

// ConsumerName returns the directory name of the consumer package
// (pure prefix substitution, so no two module packages can collide).
func (m ModulePackage) ConsumerName() string {
	return ConPrefix + m.Name
}

// GoPackageName returns the Go package identifier used inside the consumer
// package, "con_alpha" for mod-alpha.
func (m ModulePackage) GoPackageName() string {
	return strings.ReplaceAll(m.ConsumerName(), "-", "_")
}

// RegenReason states why a module package's consumer output is being rebuilt.
type RegenReason int

const (
	RegenNone RegenReason = iota // up to date, skip
	RegenForce
	RegenMissing
	RegenModified
)

func (r RegenReason) String() string {
	switch r {
	case RegenForce:
		return "forced"
	case RegenMissing:
		return "consumer missing"
	case RegenModified:
		return "module modified"
	default:
		return "up to date"
	}
}
