package component

import (
	"os"

	"github.com/kentos-io/bootward/pkg/model"
	vfs "github.com/twpayne/go-vfs/v4"
)

// legacy grub config written by distribution installers that predate
// this tool
const legacyGrubConfig = "/boot/grub2/grub.cfg"

// QueryAdoptState probes for a bootloader installed by means outside
// this tool. The marker is the legacy grub config; its mtime stands in
// for a build time since no package record describes the installation.
func QueryAdoptState(root vfs.FS) (*model.Adoptable, error) {
	info, err := root.Stat(legacyGrubConfig)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	return &model.Adoptable{
		Version:   model.ContentMetadata{Version: "legacy", Timestamp: info.ModTime().UTC()},
		Confident: true,
	}, nil
}
