// Package stage copies a source tree into an isolated build directory.
package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExclude lists base names that are never staged.
var DefaultExclude = []string{".git", ".hg", ".svn"}

// ErrInside is returned when the source lives inside the destination.
var ErrInside = errors.New("stage: source dir is inside the build dir")

// Copier stages sources by copying them. Directories, regular files and
// symlinks are copied; everything else is skipped. Existing files in the
// destination are overwritten.
type Copier struct {
	Exclude []string // base names skipped at any depth
	Skip    []string // directories never staged, such as a work dir inside the source tree
}

// Copy stages src into dst with DefaultExclude.
func Copy(ctx context.Context, src, dst string) error {
	return Copier{Exclude: DefaultExclude}.Stage(ctx, src, dst)
}

// Stage copies src into dst. When dst is nested inside src, dst itself and
// the Skip dirs are left out; the source folders around them are staged.
func (c Copier) Stage(ctx context.Context, src, dst string) error {
	src, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	dst, err = filepath.Abs(dst)
	if err != nil {
		return err
	}
	skip := make([]string, 0, len(c.Skip)+1)
	skip = append(skip, dst)
	for _, dir := range c.Skip {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		skip = append(skip, abs)
	}
	if src == dst {
		return fmt.Errorf("stage: %s: source and build dir are the same", src)
	}
	if within(src, dst) {
		return fmt.Errorf("%w: %s", ErrInside, src)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == src {
			return nil
		}
		if slices.Contains(c.Exclude, d.Name()) || slices.Contains(skip, path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return copyFile(path, target, info.Mode().Perm())
		}
		return nil
	})
}

// within reports whether dir is a proper ancestor of path.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// Remove first so read-only files from a previous staging don't block us.
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
