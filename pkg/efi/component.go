package efi

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kentos-io/bootward/internal/constants"
	"github.com/kentos-io/bootward/internal/utils"
	"github.com/kentos-io/bootward/pkg/component"
	"github.com/kentos-io/bootward/pkg/model"
	"github.com/kentos-io/bootward/pkg/packagesystem"
	vfs "github.com/twpayne/go-vfs/v4"
)

// EFI manages the vendor tree on the EFI system partition. Unlike the
// BIOS loader its payload is a tracked file set, so installs record a
// digest manifest that Validate can recheck.
type EFI struct {
	root       vfs.FS
	run        utils.Runner
	espMounted func(string) bool
}

var _ component.Component = (*EFI)(nil)

func New() *EFI {
	return &EFI{root: vfs.OSFS, run: utils.NewRunner(), espMounted: utils.Mounted}
}

// NewWithDeps builds an EFI component against an arbitrary root
// filesystem, runner and mount probe, for tests.
func NewWithDeps(root vfs.FS, run utils.Runner, espMounted func(string) bool) *EFI {
	return &EFI{root: root, run: run, espMounted: espMounted}
}

func (e *EFI) Name() string {
	return constants.EFIComponent
}

// stagedPath is where OS builds place the EFI payload, relative to a
// sysroot.
func stagedPath() string {
	return filepath.Join("/", constants.UpdatesDir, constants.EFIComponent)
}

func (e *EFI) ensureESP(destRoot string) (string, error) {
	esp := filepath.Join(destRoot, constants.ESPMountPoint)
	if !e.espMounted(esp) {
		return "", fmt.Errorf("%w: %s", constants.ErrESPNotMounted, esp)
	}
	return esp, nil
}

// installTree copies the staged payload from src into the ESP and
// returns the manifest of what is now there. Copying overwrites, so
// re-running converges.
func (e *EFI) installTree(src vfs.FS, destRoot string) (model.FileTree, error) {
	esp, err := e.ensureESP(destRoot)
	if err != nil {
		return nil, err
	}
	staged := stagedPath()
	if _, err := src.Stat(staged); err != nil {
		return nil, fmt.Errorf("%w: %s", constants.ErrAssetsMissing, staged)
	}

	dest := filepath.Join(esp, "EFI")
	if err := utils.CopyTree(src, staged, e.root, dest); err != nil {
		return nil, err
	}
	tree, err := utils.TreeDigest(e.root, dest)
	if err != nil {
		return nil, err
	}
	utils.Log.Info().Str("to", dest).Int("files", len(tree)).Msg("Staged EFI payload")
	if Booted(e.root) {
		utils.Log.Debug().Bool("secureboot", SecureBootEnabled()).Msg("EFI install done")
	}
	return tree, nil
}

func (e *EFI) Install(src vfs.FS, destRoot, _ string) (*model.InstalledContent, error) {
	meta, err := component.GetUpdate(src, e.Name())
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: component %s", constants.ErrMetadataNotFound, e.Name())
	}

	tree, err := e.installTree(src, destRoot)
	if err != nil {
		return nil, err
	}
	return &model.InstalledContent{Meta: *meta, FileTree: tree}, nil
}

func (e *EFI) GenerateUpdateMetadata(sysrootPath string) (*model.ContentMetadata, error) {
	sysroot := utils.SysrootFS(sysrootPath)
	staged := stagedPath()
	if _, err := sysroot.Stat(staged); err != nil {
		return nil, fmt.Errorf("%w: %s under %s", constants.ErrAssetsMissing, staged, sysrootPath)
	}

	tree, err := utils.TreeDigest(sysroot, staged)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(tree))
	for rel := range tree {
		paths = append(paths, filepath.Join(staged, rel))
	}
	sort.Strings(paths)

	meta, err := packagesystem.QueryFiles(e.run, sysrootPath, paths...)
	if err != nil {
		return nil, err
	}
	if err := component.WriteUpdate(sysroot, e.Name(), meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (e *EFI) QueryUpdate(sysroot vfs.FS) (*model.ContentMetadata, error) {
	return component.GetUpdate(sysroot, e.Name())
}

func (e *EFI) RunUpdate(sysroot vfs.FS, _ *model.InstalledContent) (*model.InstalledContent, error) {
	meta, err := e.QueryUpdate(sysroot)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: component %s", constants.ErrMetadataNotFound, e.Name())
	}

	tree, err := e.installTree(sysroot, "/")
	if err != nil {
		return nil, err
	}
	return &model.InstalledContent{Meta: *meta, FileTree: tree}, nil
}

// QueryAdopt reports an unmanaged vendor tree on the ESP of an
// EFI-booted system. The version is unknowable without package records,
// so the probe is not confident.
func (e *EFI) QueryAdopt() (*model.Adoptable, error) {
	if !Booted(e.root) {
		utils.Log.Debug().Msg("Not EFI booted, skipping EFI adoption")
		return nil, nil
	}
	if !e.espMounted(constants.ESPMountPoint) {
		return nil, nil
	}
	info, err := e.root.Stat(filepath.Join(constants.ESPMountPoint, "EFI"))
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	return &model.Adoptable{
		Version:   model.ContentMetadata{Version: "unknown", Timestamp: info.ModTime().UTC()},
		Confident: false,
	}, nil
}

func (e *EFI) AdoptUpdate(src vfs.FS, update *model.ContentMetadata) (*model.InstalledContent, error) {
	adoptable, err := e.QueryAdopt()
	if err != nil {
		return nil, err
	}
	if adoptable == nil {
		return nil, fmt.Errorf("%w: component %s", constants.ErrAdoptionNotFound, e.Name())
	}

	tree, err := e.installTree(src, "/")
	if err != nil {
		return nil, err
	}
	from := adoptable.Version.Version
	return &model.InstalledContent{Meta: *update, FileTree: tree, AdoptedFrom: &from}, nil
}

// Validate recomputes the manifest digests and reports drift. Files that
// appeared on the ESP outside the manifest are ignored; other tools own
// them.
func (e *EFI) Validate(installed *model.InstalledContent) (model.ValidationResult, error) {
	if installed == nil || installed.FileTree == nil {
		return model.ValidationResult{Kind: model.ValidationSkip}, nil
	}
	if !e.espMounted(constants.ESPMountPoint) {
		return model.ValidationResult{}, fmt.Errorf("%w: %s", constants.ErrESPNotMounted, constants.ESPMountPoint)
	}

	current, err := utils.TreeDigest(e.root, filepath.Join(constants.ESPMountPoint, "EFI"))
	if err != nil {
		return model.ValidationResult{}, err
	}

	var errs []string
	for rel, digest := range installed.FileTree {
		got, ok := current[rel]
		if !ok {
			errs = append(errs, fmt.Sprintf("missing: %s", rel))
			continue
		}
		if got != digest {
			errs = append(errs, fmt.Sprintf("changed: %s", rel))
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return model.ValidationResult{Kind: model.ValidationErrors, Errors: errs}, nil
	}
	return model.ValidationResult{Kind: model.ValidationValid}, nil
}

// GetEFIVendor returns the vendor directory shipped in the staged EFI
// tree, identified by the presence of a shim or grub EFI binary.
func (e *EFI) GetEFIVendor(sysroot vfs.FS) (string, error) {
	entries, err := sysroot.ReadDir(stagedPath())
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		children, err := sysroot.ReadDir(filepath.Join(stagedPath(), entry.Name()))
		if err != nil {
			continue
		}
		for _, c := range children {
			name := strings.ToLower(c.Name())
			if strings.HasSuffix(name, ".efi") && (strings.HasPrefix(name, "shim") || strings.HasPrefix(name, "grub")) {
				return entry.Name(), nil
			}
		}
	}
	return "", nil
}
