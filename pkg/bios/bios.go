package bios

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kentos-io/bootward/internal/constants"
	"github.com/kentos-io/bootward/internal/utils"
	"github.com/kentos-io/bootward/pkg/blockdev"
	"github.com/kentos-io/bootward/pkg/component"
	"github.com/kentos-io/bootward/pkg/efi"
	"github.com/kentos-io/bootward/pkg/model"
	"github.com/kentos-io/bootward/pkg/packagesystem"
	vfs "github.com/twpayne/go-vfs/v4"
)

// Bios manages the legacy-mode stage-2 loader written by grub-install.
type Bios struct {
	platform Platform
	root     vfs.FS // host root, for precondition checks and asset staging
	run      utils.Runner
}

var _ component.Component = (*Bios)(nil)

func New(platform Platform) *Bios {
	return &Bios{platform: platform, root: vfs.OSFS, run: utils.NewRunner()}
}

// NewWithDeps builds a Bios against an arbitrary root filesystem and
// runner, for tests.
func NewWithDeps(platform Platform, root vfs.FS, run utils.Runner) *Bios {
	return &Bios{platform: platform, root: root, run: run}
}

func (b *Bios) Name() string {
	return constants.BiosComponent
}

// device resolves the boot target anew; the result is never stored.
func (b *Bios) device() (string, error) {
	return b.platform.Resolver.Resolve(b.run)
}

// checkModules verifies the grub target modules are shipped on this
// system before anything is invoked.
func (b *Bios) checkModules() error {
	dir := filepath.Join(constants.GrubLibDir, b.platform.ModulesDir)
	if _, err := b.root.Stat(dir); err != nil {
		return fmt.Errorf("%w: %s", constants.ErrModulesMissing, dir)
	}
	return nil
}

// runGrubInstall runs grub-install against destRoot's boot directory and
// device, then stages the platform support files next to the loader.
// Both steps overwrite, so re-running converges to the same on-disk
// result.
func (b *Bios) runGrubInstall(destRoot, device string) error {
	if err := b.checkModules(); err != nil {
		return err
	}
	grubInstall := filepath.Join("/", constants.GrubBinPath)
	if _, err := b.root.Stat(grubInstall); err != nil {
		return fmt.Errorf("%w: %s", constants.ErrBinaryMissing, grubInstall)
	}

	bootDir := filepath.Join(destRoot, constants.BootDir)
	args := []string{"--target", b.platform.GrubTarget, "--boot-directory", bootDir}
	if len(b.platform.Modules) > 0 {
		args = append(args, "--modules", strings.Join(b.platform.Modules, " "))
	}
	args = append(args, b.platform.ExtraArgs...)
	args = append(args, device)

	utils.Log.Info().Str("device", device).Str("bootdir", bootDir).Str("target", b.platform.GrubTarget).Msg("Running grub-install")
	if err := b.run.Run(grubInstall, args...); err != nil {
		return fmt.Errorf("%w: %v", constants.ErrInstallFailed, err)
	}

	source := filepath.Join(constants.GrubLibDir, b.platform.SupportDir)
	destination := filepath.Join(bootDir, b.platform.SupportDest)
	if _, err := b.root.Stat(source); err != nil {
		return fmt.Errorf("%w: %s", constants.ErrAssetsMissing, source)
	}
	if err := utils.CopyTree(b.root, source, b.root, destination); err != nil {
		return err
	}
	utils.Log.Info().Str("from", source).Str("to", destination).Msg("Staged grub support files")
	return nil
}

// biosBootPartition looks for a GPT "BIOS boot" partition on the disk
// the loader would target. Absence is a valid signal, not an error.
func (b *Bios) biosBootPartition() (string, error) {
	device, err := b.device()
	if err != nil {
		return "", err
	}
	return blockdev.FindPartitionByType(b.run, device, constants.GPTTableType, constants.BiosBootPartName, blockdev.BiosBootGUID)
}

func (b *Bios) Install(src vfs.FS, destRoot, device string) (*model.InstalledContent, error) {
	meta, err := component.GetUpdate(src, b.Name())
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: component %s", constants.ErrMetadataNotFound, b.Name())
	}

	if err := b.runGrubInstall(destRoot, device); err != nil {
		return nil, err
	}
	return &model.InstalledContent{Meta: *meta}, nil
}

func (b *Bios) GenerateUpdateMetadata(sysrootPath string) (*model.ContentMetadata, error) {
	sysroot := utils.SysrootFS(sysrootPath)
	grubInstall := filepath.Join("/", constants.GrubBinPath)
	if _, err := sysroot.Stat(grubInstall); err != nil {
		return nil, fmt.Errorf("%w: %s under %s", constants.ErrBinaryMissing, grubInstall, sysrootPath)
	}

	meta, err := packagesystem.QueryFiles(b.run, sysrootPath, grubInstall)
	if err != nil {
		return nil, err
	}
	if err := component.WriteUpdate(sysroot, b.Name(), meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (b *Bios) QueryUpdate(sysroot vfs.FS) (*model.ContentMetadata, error) {
	return component.GetUpdate(sysroot, b.Name())
}

func (b *Bios) RunUpdate(sysroot vfs.FS, _ *model.InstalledContent) (*model.InstalledContent, error) {
	meta, err := b.QueryUpdate(sysroot)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: component %s", constants.ErrMetadataNotFound, b.Name())
	}

	device, err := b.device()
	if err != nil {
		return nil, err
	}
	if err := b.runGrubInstall("/", device); err != nil {
		return nil, err
	}
	return &model.InstalledContent{Meta: *meta}, nil
}

// QueryAdopt skips adoption when the system booted via EFI and the disk
// carries no BIOS boot partition: the legacy loader cannot be relevant
// to how this machine actually boots.
func (b *Bios) QueryAdopt() (*model.Adoptable, error) {
	if efi.Booted(b.root) {
		part, err := b.biosBootPartition()
		if err != nil {
			return nil, err
		}
		if part == "" {
			utils.Log.Debug().Msg("EFI boot and no BIOS boot partition, skipping BIOS adoption")
			return nil, nil
		}
	}
	return component.QueryAdoptState(b.root)
}

func (b *Bios) AdoptUpdate(_ vfs.FS, update *model.ContentMetadata) (*model.InstalledContent, error) {
	adoptable, err := b.QueryAdopt()
	if err != nil {
		return nil, err
	}
	if adoptable == nil {
		return nil, fmt.Errorf("%w: component %s", constants.ErrAdoptionNotFound, b.Name())
	}

	device, err := b.device()
	if err != nil {
		return nil, err
	}
	if err := b.runGrubInstall("/", device); err != nil {
		return nil, err
	}

	from := adoptable.Version.Version
	return &model.InstalledContent{Meta: *update, AdoptedFrom: &from}, nil
}

// Validate is a skip: a pass/fail install leaves no manifest to compare.
func (b *Bios) Validate(_ *model.InstalledContent) (model.ValidationResult, error) {
	return model.ValidationResult{Kind: model.ValidationSkip}, nil
}

func (b *Bios) GetEFIVendor(_ vfs.FS) (string, error) {
	return "", nil
}
