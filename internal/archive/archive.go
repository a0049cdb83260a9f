// Package archive writes an install tree to a directory or an archive file.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/nuttyartist/notes/pkgs/buildsys/stage"
	"github.com/ulikunitz/xz"
)

// Format is picked from the destination's suffix.
type Format int

const (
	Dir Format = iota
	Zip
	TarGz
	TarXz
	TarZst
)

func (f Format) String() string {
	switch f {
	case Zip:
		return "zip"
	case TarGz:
		return "tar.gz"
	case TarXz:
		return "tar.xz"
	case TarZst:
		return "tar.zst"
	}
	return "dir"
}

// FormatOf reports the format Write uses for dest.
func FormatOf(dest string) Format {
	switch {
	case strings.HasSuffix(dest, ".zip"):
		return Zip
	case strings.HasSuffix(dest, ".tar.gz"), strings.HasSuffix(dest, ".tgz"):
		return TarGz
	case strings.HasSuffix(dest, ".tar.xz"):
		return TarXz
	case strings.HasSuffix(dest, ".tar.zst"):
		return TarZst
	}
	return Dir
}

// Write stores the contents of srcDir at dest: an archive when dest has a
// known archive suffix, otherwise a copy of the directory.
func Write(srcDir, dest string) error {
	format := FormatOf(dest)
	if format == Dir {
		return stage.Copier{}.Stage(context.Background(), srcDir, dest)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if err := write(f, srcDir, format); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Close()
}

func write(w io.Writer, srcDir string, format Format) error {
	switch format {
	case Zip:
		return writeZip(w, srcDir)
	case TarGz:
		gz := pgzip.NewWriter(w)
		if err := writeTar(gz, srcDir); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	case TarXz:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return err
		}
		if err := writeTar(xw, srcDir); err != nil {
			xw.Close()
			return err
		}
		return xw.Close()
	case TarZst:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if err := writeTar(zw, srcDir); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return fmt.Errorf("archive: unsupported format %s", format)
}

func writeTar(w io.Writer, srcDir string) error {
	tw := tar.NewWriter(w)
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		var link string
		if d.Type()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		} else if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}
		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFileTo(tw, path)
	})
	if err != nil {
		return err
	}
	return tw.Close()
}

func writeZip(w io.Writer, srcDir string) error {
	zw := zip.NewWriter(w)
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		symlink := d.Type()&fs.ModeSymlink != 0
		if d.IsDir() || !(symlink || d.Type().IsRegular()) {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		// Symlinks are stored the way Info-ZIP does: link mode, target as body.
		if symlink {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			header.SetMode(info.Mode())
			header.Method = zip.Store
			writer, err := zw.CreateHeader(header)
			if err != nil {
				return err
			}
			_, err = io.WriteString(writer, link)
			return err
		}

		writer, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		return copyFileTo(writer, path)
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func copyFileTo(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
