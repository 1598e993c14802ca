package utils

import (
	"strings"

	"github.com/deniswernert/go-fstab"
)

// AuditFstab parses an fstab file and returns the mountpoints under
// /boot that are pinned by a raw /dev path. Device topology can change
// between boots, so such entries are a hazard this tool refuses to
// create itself and warns about when it finds them.
func AuditFstab(path string) ([]string, error) {
	mounts, err := fstab.ParseFile(path)
	if err != nil {
		return nil, err
	}

	var pinned []string
	for _, m := range mounts {
		if m.File != "/boot" && !strings.HasPrefix(m.File, "/boot/") {
			continue
		}
		if strings.HasPrefix(m.Spec, "/dev/") && !strings.HasPrefix(m.Spec, "/dev/disk/by-") {
			pinned = append(pinned, m.File)
		}
	}
	return pinned, nil
}
