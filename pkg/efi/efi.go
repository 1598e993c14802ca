package efi

import (
	goefi "github.com/foxboron/go-uefi/efi"
	vfs "github.com/twpayne/go-vfs/v4"
)

// Booted reports whether the system booted through EFI firmware.
func Booted(fsys vfs.FS) bool {
	_, err := fsys.Stat("/sys/firmware/efi")
	return err == nil
}

// SecureBootEnabled reports the firmware secure boot state. Only
// meaningful on EFI-booted systems.
func SecureBootEnabled() bool {
	return goefi.GetSecureBoot()
}
