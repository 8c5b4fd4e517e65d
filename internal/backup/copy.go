package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// excludedDirs are build artifacts and caches never worth snapshotting.
// Entries with a separator match a relative path prefix, bare entries
// match a directory name anywhere in the tree.
var excludedDirs = []string{
	"node_modules",
	"vendor",
	".git",
	"dist",
	"target",
	"storage/logs",
	"bootstrap/cache",
}

// excluded reports whether the relative path rel names a skipped directory.
func excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}
	for _, ex := range excludedDirs {
		if strings.Contains(ex, "/") {
			if rel == ex {
				return true
			}
		} else if base == ex {
			return true
		}
	}
	return false
}

// copyTree copies src into dst, skipping excluded directories. dst must
// not exist yet.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if rel != "." && excluded(rel) {
				return filepath.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(filepath.Join(dst, rel), info.Mode().Perm())
		}

		// Symlinks are copied as the path they point to.
		if d.Type()&os.ModeSymlink != 0 {
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(linkTarget, filepath.Join(dst, rel))
		}

		return copyFile(path, filepath.Join(dst, rel))
	})
}

// copyFile copies one regular file, preserving its mode.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// treeSize returns the total size in bytes of all files under dir.
func treeSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// replaceTree swaps dst with a copy of src. The old dst is removed
// first; a missing src leaves dst removed, matching a snapshot taken
// before that tree existed.
func replaceTree(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dst, err)
	}
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	return copyTree(src, dst)
}
