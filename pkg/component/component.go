package component

import (
	"github.com/kentos-io/bootward/pkg/model"
	vfs "github.com/twpayne/go-vfs/v4"
)

// Component is the lifecycle contract every firmware-type implementation
// satisfies. The orchestrator calls one operation at a time.
//
// Callers must never run two lifecycle operations concurrently against
// the same device or destination root: the shared mutable resources are
// the on-disk boot directory and the target device, and no locking
// happens at this layer. Operations block on external tool invocations
// and filesystem I/O; any timeout policy belongs to the caller.
type Component interface {
	Name() string

	// Install performs the initial installation against destRoot and
	// device, reading update metadata from src. It fails when no update
	// descriptor for this component exists under src.
	Install(src vfs.FS, destRoot, device string) (*model.InstalledContent, error)

	// GenerateUpdateMetadata queries the package database for the
	// component's payload under sysrootPath and persists the resulting
	// descriptor there. Run at OS build time.
	GenerateUpdateMetadata(sysrootPath string) (*model.ContentMetadata, error)

	// QueryUpdate returns the available update descriptor, or nil when
	// none is readable. Absence is not an error.
	QueryUpdate(sysroot vfs.FS) (*model.ContentMetadata, error)

	// RunUpdate re-resolves the boot target and reinstalls. It requires
	// QueryUpdate to have returned non-nil.
	RunUpdate(sysroot vfs.FS, current *model.InstalledContent) (*model.InstalledContent, error)

	// QueryAdopt detects a pre-existing unmanaged installation eligible
	// for adoption, nil when there is none or when adoption is
	// meaningless for how the system actually boots.
	QueryAdopt() (*model.Adoptable, error)

	// AdoptUpdate performs the same install procedure as RunUpdate
	// against the live root and records the superseded unmanaged
	// version in the returned record.
	AdoptUpdate(src vfs.FS, update *model.ContentMetadata) (*model.InstalledContent, error)

	// Validate checks installed content where that is cheap to do.
	Validate(installed *model.InstalledContent) (model.ValidationResult, error)

	// GetEFIVendor returns the EFI vendor directory name, "" for non-EFI
	// components.
	GetEFIVendor(sysroot vfs.FS) (string, error)
}
