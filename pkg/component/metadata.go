package component

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kentos-io/bootward/internal/constants"
	"github.com/kentos-io/bootward/pkg/model"
	vfs "github.com/twpayne/go-vfs/v4"
)

func updatePath(name string) string {
	return filepath.Join("/", constants.UpdatesDir, name+".json")
}

// GetUpdate reads the update descriptor for component name under the
// given sysroot capability. nil, nil when there is none: absence of
// readable metadata is not an error.
func GetUpdate(sysroot vfs.FS, name string) (*model.ContentMetadata, error) {
	data, err := sysroot.ReadFile(updatePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var meta model.ContentMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding update metadata for %s: %w", name, err)
	}
	return &meta, nil
}

// WriteUpdate persists the update descriptor for component name.
func WriteUpdate(sysroot vfs.FS, name string, meta *model.ContentMetadata) error {
	path := updatePath(name)
	if err := vfs.MkdirAll(sysroot, filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return sysroot.WriteFile(path, data, 0o644)
}

// LoadState reads the durable installed-content record at path (the
// default when empty). nil, nil when the system has never been put under
// management.
func LoadState(sysroot vfs.FS, path string) (*model.SavedState, error) {
	if path == "" {
		path = constants.StatePath
	}
	data, err := sysroot.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var st model.SavedState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding state file %s: %w", path, err)
	}
	if st.Installed == nil {
		st.Installed = map[string]model.InstalledContent{}
	}
	return &st, nil
}

// SaveState writes the record through a temp file and rename, so a crash
// never leaves a half-written state file behind.
func SaveState(sysroot vfs.FS, path string, st *model.SavedState) error {
	if path == "" {
		path = constants.StatePath
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := sysroot.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return sysroot.Rename(tmp, path)
}
