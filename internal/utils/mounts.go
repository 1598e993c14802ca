package utils

import "github.com/moby/sys/mountinfo"

// Mounted reports whether path is a mountpoint. Errors degrade to false;
// callers treat an unknown mount state the same as unmounted.
func Mounted(path string) bool {
	mounted, err := mountinfo.Mounted(path)
	if err != nil {
		Log.Debug().Err(err).Str("path", path).Msg("mountinfo query failed")
		return false
	}
	return mounted
}
