package constants

import "errors"

// Error kinds surfaced by the component lifecycle. All of them are fatal
// to the operation that produced them; nothing below the orchestrator
// retries.
var (
	ErrResolution       = errors.New("boot device resolution failed")
	ErrQuery            = errors.New("block device query failed")
	ErrSourceMissing    = errors.New("source directory not found")
	ErrAssetsMissing    = errors.New("support files directory not found")
	ErrModulesMissing   = errors.New("grub modules not found")
	ErrBinaryMissing    = errors.New("install binary not found")
	ErrInstallFailed    = errors.New("install command failed")
	ErrMetadataNotFound = errors.New("update metadata not found")
	ErrAdoptionNotFound = errors.New("no adoptable installation found")
	ErrESPNotMounted    = errors.New("EFI system partition not mounted")
)

const (
	BiosComponent = "BIOS"
	EFIComponent  = "EFI"

	// grub-install location, relative to the sysroot
	GrubBinPath = "usr/sbin/grub-install"
	// where grub ships its per-target module and support directories
	GrubLibDir = "/usr/lib64/grub"

	// update descriptors, written at OS build time and read at update time
	UpdatesDir = "usr/lib/bootward/updates"
	// durable record of what is installed, relative to the sysroot
	StatePath = "/boot/bootward-state.json"

	BootDir       = "boot"
	ESPMountPoint = "/boot/efi"

	LogDir = "/var/log/bootward"

	// GPT semantic partition type names as lsblk reports them
	BiosBootPartName = "BIOS boot"
	ESPPartName      = "EFI System"

	GPTTableType = "gpt"
)
