package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kentos-io/bootward/internal/constants"
	vfs "github.com/twpayne/go-vfs/v4"
)

// SysrootFS returns a filesystem capability rooted at path. Metadata and
// state reads go through one of these so a sysroot other than / needs no
// path arithmetic at the call sites.
func SysrootFS(path string) vfs.FS {
	if path == "" || path == "/" {
		return vfs.OSFS
	}
	return vfs.NewPathFS(vfs.OSFS, path)
}

// CopyTree copies the directory tree at src on srcFS to dest on destFS,
// creating dest and any missing parents. Regular files are copied byte
// for byte with their permissions; anything else (symlinks, device
// nodes) is logged and skipped so a stray entry cannot abort a boot
// asset staging.
func CopyTree(srcFS vfs.FS, src string, destFS vfs.FS, dest string) error {
	info, err := srcFS.Stat(src)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", constants.ErrSourceMissing, src)
	}
	if err := vfs.MkdirAll(destFS, dest, 0o755); err != nil {
		return err
	}

	entries, err := srcFS.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		destPath := filepath.Join(dest, entry.Name())
		switch {
		case entry.IsDir():
			if err := CopyTree(srcFS, srcPath, destFS, destPath); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			fi, err := entry.Info()
			if err != nil {
				return err
			}
			data, err := srcFS.ReadFile(srcPath)
			if err != nil {
				return err
			}
			if err := destFS.WriteFile(destPath, data, fi.Mode().Perm()); err != nil {
				return err
			}
		default:
			Log.Warn().Str("path", srcPath).Str("type", entry.Type().String()).Msg("Unsupported entry type, skipping")
		}
	}
	return nil
}

// TreeDigest walks dir and returns slash-relative paths of every regular
// file mapped to its SHA-256 hex digest.
func TreeDigest(fsys vfs.FS, dir string) (map[string]string, error) {
	out := map[string]string{}
	err := vfs.Walk(fsys, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		data, err := fsys.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		out[filepath.ToSlash(rel)] = hex.EncodeToString(sum[:])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
