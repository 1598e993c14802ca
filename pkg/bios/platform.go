package bios

import (
	"path/filepath"
	"runtime"

	"github.com/kentos-io/bootward/pkg/blockdev"
)

// Platform is the set of platform facts that parameterize the otherwise
// generic install flow: grub target, forced module set, support files
// and the device resolution strategy. Fixed at construction so the
// control flow stays identical across platforms.
type Platform struct {
	Name        string
	GrubTarget  string
	Modules     []string // forced so the result survives RAID and GPT layouts
	ModulesDir  string   // under constants.GrubLibDir
	SupportDir  string   // under constants.GrubLibDir
	SupportDest string   // under the boot directory
	ExtraArgs   []string
	Resolver    blockdev.Resolver
}

// PlatformX8664 targets the MBR gap of the whole disk backing /boot.
func PlatformX8664() Platform {
	return Platform{
		Name:        "x86_64",
		GrubTarget:  "i386-pc",
		Modules:     []string{"mdraid1x", "part_gpt"},
		ModulesDir:  "i386-pc",
		SupportDir:  "x86_64-efi",
		SupportDest: filepath.Join("grub", "x86_64-efi"),
		Resolver:    blockdev.MountChainResolver{Mountpoint: "/boot"},
	}
}

// PlatformPPC64 targets the PReP partition; the firmware finds the
// loader by partition type, so the reserved-partition symlink resolves
// the target directly.
func PlatformPPC64() Platform {
	return Platform{
		Name:        "ppc64le",
		GrubTarget:  "powerpc-ieee1275",
		ModulesDir:  "powerpc-ieee1275",
		SupportDir:  "powerpc-ieee1275",
		SupportDest: "powerpc-ieee1275",
		ExtraArgs:   []string{"--no-nvram"},
		Resolver:    blockdev.SymlinkResolver{Link: "/dev/disk/by-partlabel/PowerPC-PReP-boot"},
	}
}

// DefaultPlatform selects the strategy for the build architecture.
func DefaultPlatform() Platform {
	switch runtime.GOARCH {
	case "ppc64", "ppc64le":
		return PlatformPPC64()
	default:
		return PlatformX8664()
	}
}
