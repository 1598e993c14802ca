package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/jaypipes/ghw"
	"github.com/kentos-io/bootward/internal/config"
	"github.com/kentos-io/bootward/internal/constants"
	"github.com/kentos-io/bootward/internal/utils"
	"github.com/kentos-io/bootward/pkg/bios"
	"github.com/kentos-io/bootward/pkg/component"
	"github.com/kentos-io/bootward/pkg/efi"
	"github.com/kentos-io/bootward/pkg/model"
	"github.com/spectrocloud-labs/herd"
	vfs "github.com/twpayne/go-vfs/v4"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// components returns every firmware-type implementation this build
// manages, BIOS first.
func components() []component.Component {
	return []component.Component{
		bios.New(bios.DefaultPlatform()),
		efi.New(),
	}
}

func getConfig(c *cli.Context) config.Config {
	if cfg, ok := c.App.Metadata["config"].(config.Config); ok {
		return cfg
	}
	return config.Config{LogLevel: "info"}
}

var sysrootFlag = &cli.StringFlag{
	Name:  "sysroot",
	Value: "/",
	Usage: "filesystem root to operate against",
}

var Commands = []*cli.Command{
	{
		Name:  "generate-update-metadata",
		Usage: "query the package database and write update descriptors for every component",
		Flags: []cli.Flag{sysrootFlag},
		Action: func(c *cli.Context) error {
			var errs *multierror.Error
			for _, comp := range components() {
				meta, err := comp.GenerateUpdateMetadata(c.String("sysroot"))
				if err != nil {
					errs = multierror.Append(errs, fmt.Errorf("%s: %w", comp.Name(), err))
					continue
				}
				utils.Log.Info().Str("component", comp.Name()).Str("version", meta.Version).Msg("Update metadata written")
			}
			return errs.ErrorOrNil()
		},
	},
	{
		Name:   "update",
		Usage:  "apply pending updates to all managed components",
		Flags:  []cli.Flag{sysrootFlag},
		Action: runUpdate,
	},
	{
		Name:   "adopt-and-update",
		Usage:  "take ownership of unmanaged boot components, reinstalling them",
		Flags:  []cli.Flag{sysrootFlag},
		Action: runAdopt,
	},
	{
		Name:  "status",
		Usage: "show managed components, pending updates and boot path hazards",
		Flags: []cli.Flag{
			sysrootFlag,
			&cli.StringFlag{Name: "format", Value: "yaml", Usage: "output format: yaml or json"},
		},
		Action: runStatus,
	},
	{
		Name:   "validate",
		Usage:  "verify installed content against its recorded manifests",
		Flags:  []cli.Flag{sysrootFlag},
		Action: runValidate,
	},
	{
		Name:   "inspect",
		Usage:  "log the block device inventory",
		Action: runInspect,
	},
}

// loadOrNewState reads the saved state, returning an empty one for
// systems that have never been put under management.
func loadOrNewState(sysroot vfs.FS, path string) (*model.SavedState, error) {
	st, err := component.LoadState(sysroot, path)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = model.NewSavedState()
	}
	return st, nil
}

// runUpdate queries and applies updates one component at a time. The
// herd graph is kept strictly linear: lifecycle operations must never
// overlap on the same device or boot directory.
func runUpdate(c *cli.Context) error {
	cfg := getConfig(c)
	sysroot := utils.SysrootFS(c.String("sysroot"))
	st, err := loadOrNewState(sysroot, cfg.StatePath)
	if err != nil {
		return err
	}

	g := herd.DAG()
	prev := ""
	for _, comp := range components() {
		comp := comp
		opName := "update-" + comp.Name()
		cb := func(_ context.Context) error {
			current, managed := st.Installed[comp.Name()]
			if !managed {
				utils.Log.Debug().Str("component", comp.Name()).Msg("Not managed, skipping")
				return nil
			}
			update, err := comp.QueryUpdate(sysroot)
			if err != nil {
				return fmt.Errorf("%s: %w", comp.Name(), err)
			}
			if update == nil || update.Equal(current.Meta) {
				utils.Log.Info().Str("component", comp.Name()).Msg("Already up to date")
				return nil
			}
			installed, err := comp.RunUpdate(sysroot, &current)
			if err != nil {
				return fmt.Errorf("%s: %w", comp.Name(), err)
			}
			st.Installed[comp.Name()] = *installed
			utils.Log.Info().Str("component", comp.Name()).Str("version", installed.Meta.Version).Msg("Updated")
			return nil
		}
		opts := []herd.OpOption{herd.WithCallback(cb)}
		if prev != "" {
			opts = append(opts, herd.WithDeps(prev))
		}
		if err := g.Add(opName, opts...); err != nil {
			return err
		}
		prev = opName
	}

	var errs *multierror.Error
	if err := g.Run(c.Context); err != nil {
		errs = multierror.Append(errs, err)
	}
	// Persist whatever succeeded; a failed component keeps its old record.
	if err := component.SaveState(sysroot, cfg.StatePath, st); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

func runAdopt(c *cli.Context) error {
	cfg := getConfig(c)
	sysroot := utils.SysrootFS(c.String("sysroot"))
	st, err := loadOrNewState(sysroot, cfg.StatePath)
	if err != nil {
		return err
	}

	g := herd.DAG()
	prev := ""
	for _, comp := range components() {
		comp := comp
		opName := "adopt-" + comp.Name()
		cb := func(_ context.Context) error {
			if _, managed := st.Installed[comp.Name()]; managed {
				return nil
			}
			adoptable, err := comp.QueryAdopt()
			if err != nil {
				return fmt.Errorf("%s: %w", comp.Name(), err)
			}
			if adoptable == nil {
				utils.Log.Debug().Str("component", comp.Name()).Msg("Nothing to adopt")
				return nil
			}
			update, err := comp.QueryUpdate(sysroot)
			if err != nil {
				return fmt.Errorf("%s: %w", comp.Name(), err)
			}
			if update == nil {
				return fmt.Errorf("%w: component %s", constants.ErrMetadataNotFound, comp.Name())
			}
			installed, err := comp.AdoptUpdate(sysroot, update)
			if err != nil {
				return fmt.Errorf("%s: %w", comp.Name(), err)
			}
			st.Installed[comp.Name()] = *installed
			from := ""
			if installed.AdoptedFrom != nil {
				from = *installed.AdoptedFrom
			}
			utils.Log.Info().Str("component", comp.Name()).Str("from", from).Str("version", installed.Meta.Version).Msg("Adopted")
			return nil
		}
		opts := []herd.OpOption{herd.WithCallback(cb)}
		if prev != "" {
			opts = append(opts, herd.WithDeps(prev))
		}
		if err := g.Add(opName, opts...); err != nil {
			return err
		}
		prev = opName
	}

	var errs *multierror.Error
	if err := g.Run(c.Context); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := component.SaveState(sysroot, cfg.StatePath, st); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

type componentStatus struct {
	Installed *model.InstalledContent `json:"installed,omitempty" yaml:"installed,omitempty"`
	Update    *model.ContentMetadata  `json:"update,omitempty" yaml:"update,omitempty"`
	Adoptable bool                    `json:"adoptable" yaml:"adoptable"`
}

type statusOutput struct {
	Components  map[string]componentStatus `json:"components" yaml:"components"`
	SecureBoot  *bool                      `json:"secureboot,omitempty" yaml:"secureboot,omitempty"`
	FstabPinned []string                   `json:"fstab_pinned,omitempty" yaml:"fstab_pinned,omitempty"`
}

func runStatus(c *cli.Context) error {
	cfg := getConfig(c)
	sysroot := utils.SysrootFS(c.String("sysroot"))
	st, err := loadOrNewState(sysroot, cfg.StatePath)
	if err != nil {
		return err
	}

	out := statusOutput{Components: map[string]componentStatus{}}
	for _, comp := range components() {
		cs := componentStatus{}
		if installed, ok := st.Installed[comp.Name()]; ok {
			installed := installed
			cs.Installed = &installed
		}
		update, err := comp.QueryUpdate(sysroot)
		if err != nil {
			return fmt.Errorf("%s: %w", comp.Name(), err)
		}
		if update != nil && (cs.Installed == nil || !update.Equal(cs.Installed.Meta)) {
			cs.Update = update
		}
		if cs.Installed == nil {
			adoptable, err := comp.QueryAdopt()
			if err != nil {
				utils.Log.Warn().Err(err).Str("component", comp.Name()).Msg("Adoption probe failed")
			}
			cs.Adoptable = adoptable != nil
		}
		out.Components[comp.Name()] = cs
	}

	if efi.Booted(vfs.OSFS) {
		sb := efi.SecureBootEnabled()
		out.SecureBoot = &sb
	}

	pinned, err := utils.AuditFstab("/etc/fstab")
	if err != nil {
		utils.Log.Debug().Err(err).Msg("fstab audit failed")
	} else {
		out.FstabPinned = pinned
		for _, mp := range pinned {
			utils.Log.Warn().Str("mountpoint", mp).Msg("fstab pins a boot mount by raw device path")
		}
	}

	var data []byte
	switch c.String("format") {
	case "json":
		data, err = json.MarshalIndent(out, "", "  ")
	default:
		data, err = yaml.Marshal(out)
	}
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runValidate(c *cli.Context) error {
	cfg := getConfig(c)
	sysroot := utils.SysrootFS(c.String("sysroot"))
	st, err := loadOrNewState(sysroot, cfg.StatePath)
	if err != nil {
		return err
	}

	var errs *multierror.Error
	for _, comp := range components() {
		installed, ok := st.Installed[comp.Name()]
		if !ok {
			continue
		}
		result, err := comp.Validate(&installed)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", comp.Name(), err))
			continue
		}
		utils.Log.Info().Str("component", comp.Name()).Str("result", result.String()).Msg("Validated")
		if result.Kind == model.ValidationErrors {
			for _, e := range result.Errors {
				errs = multierror.Append(errs, fmt.Errorf("%s: %s", comp.Name(), e))
			}
		}
	}
	return errs.ErrorOrNil()
}

func runInspect(_ *cli.Context) error {
	block, err := ghw.Block()
	if err != nil {
		return err
	}

	utils.Log.Info().Int("disks", len(block.Disks)).Msg("Block inventory")
	for _, disk := range block.Disks {
		utils.Log.Info().Str("name", disk.Name).Uint64("size", disk.SizeBytes).Str("model", disk.Model).Msg("Disk")
		for _, part := range disk.Partitions {
			utils.Log.Info().Str("name", part.Name).Str("fstype", part.Type).Str("label", part.Label).Str("mountpoint", part.MountPoint).Msg("Partition")
		}
	}
	return nil
}
