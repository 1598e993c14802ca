package blockdev

import (
	"fmt"

	"github.com/kentos-io/bootward/internal/constants"
	"github.com/kentos-io/bootward/internal/utils"
)

// Resolver discovers the block device node that must receive the
// bootloader. The implementation is chosen by platform strategy, never
// by runtime branching on the produced result, and never retries: a
// failed or empty query is fatal to the calling operation.
type Resolver interface {
	Resolve(run utils.Runner) (string, error)
}

// MountChainResolver finds the device backing Mountpoint, then that
// device's parent disk. Used where the loader must be written to a
// whole-disk device rather than a partition.
type MountChainResolver struct {
	Mountpoint string
}

func (r MountChainResolver) Resolve(run utils.Runner) (string, error) {
	partition, err := run.Output("findmnt", "--noheadings", "--nofsroot", "--output", "SOURCE", r.Mountpoint)
	if err != nil {
		return "", fmt.Errorf("%w: finding source of %s: %v", constants.ErrResolution, r.Mountpoint, err)
	}
	if partition == "" {
		return "", fmt.Errorf("%w: empty source for %s", constants.ErrResolution, r.Mountpoint)
	}

	parent, err := run.Output("lsblk", "--paths", "--noheadings", "--output", "PKNAME", partition)
	if err != nil {
		return "", fmt.Errorf("%w: finding parent of %s: %v", constants.ErrResolution, partition, err)
	}
	if parent == "" {
		return "", fmt.Errorf("%w: no parent device for %s", constants.ErrResolution, partition)
	}
	return parent, nil
}

// SymlinkResolver resolves a stable well-known device symlink for a
// reserved boot partition directly to its real device node. Used where
// the firmware locates the loader by partition type rather than by disk
// offset.
type SymlinkResolver struct {
	Link string
}

func (r SymlinkResolver) Resolve(run utils.Runner) (string, error) {
	device, err := run.Output("realpath", r.Link)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", constants.ErrResolution, r.Link, err)
	}
	if device == "" {
		return "", fmt.Errorf("%w: %s resolved to nothing", constants.ErrResolution, r.Link)
	}
	return device, nil
}
