package model

import (
	"fmt"
	"time"
)

// ContentMetadata identifies one build of managed boot content, derived
// from package database lookup. Immutable once produced. Device paths
// never appear here: topology is re-derived on every operation so a disk
// reconfiguration cannot leave a stale path behind.
type ContentMetadata struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Version   string    `json:"version" yaml:"version"`
}

func (m ContentMetadata) String() string {
	return fmt.Sprintf("%s (%s)", m.Version, m.Timestamp.Format(time.RFC3339))
}

// Equal reports whether m and other describe the same content, judged
// from metadata alone.
func (m ContentMetadata) Equal(other ContentMetadata) bool {
	return m.Version == other.Version && m.Timestamp.Equal(other.Timestamp)
}

// FileTree maps slash-relative paths of staged boot assets to their
// SHA-256 hex digests.
type FileTree map[string]string

// InstalledContent is the durable record of what is installed for one
// component. FileTree is nil for components whose install is a pass/fail
// action rather than a tracked file set. AdoptedFrom records the version
// string of a prior unmanaged installation and is set if and only if the
// record was produced through adoption.
type InstalledContent struct {
	Meta        ContentMetadata `json:"meta" yaml:"meta"`
	FileTree    FileTree        `json:"filetree,omitempty" yaml:"filetree,omitempty"`
	AdoptedFrom *string         `json:"adopted_from,omitempty" yaml:"adopted_from,omitempty"`
}

// Adoptable describes a pre-existing, unmanaged installation eligible
// for adoption. Confident is false when the probe had to guess the
// version.
type Adoptable struct {
	Version   ContentMetadata `json:"version"`
	Confident bool            `json:"confident"`
}

type ValidationKind int

const (
	ValidationValid ValidationKind = iota
	ValidationSkip
	ValidationErrors
)

// ValidationResult is the verdict of a post-install check. Components
// whose correctness cannot be cheaply verified report ValidationSkip.
type ValidationResult struct {
	Kind   ValidationKind
	Errors []string
}

func (v ValidationResult) String() string {
	switch v.Kind {
	case ValidationValid:
		return "valid"
	case ValidationSkip:
		return "skip"
	default:
		return fmt.Sprintf("errors: %v", v.Errors)
	}
}

// SavedState mirrors the on-disk state file: one InstalledContent per
// component name.
type SavedState struct {
	Installed map[string]InstalledContent `json:"installed" yaml:"installed"`
}

// NewSavedState returns an empty state ready to record components.
func NewSavedState() *SavedState {
	return &SavedState{Installed: map[string]InstalledContent{}}
}
