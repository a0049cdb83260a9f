package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"bin/notes":         "#!/bin/sh\necho notes\n",
		"share/notes/a.txt": "hello",
		"lib/libqhotkey.a":  "archive",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		dest string
		want Format
	}{
		{"out.zip", Zip},
		{"out.tar.gz", TarGz},
		{"out.tgz", TarGz},
		{"out.tar.xz", TarXz},
		{"out.tar.zst", TarZst},
		{"out", Dir},
		{"out.tar", Dir},
		{"/tmp/notes-1.0", Dir},
	}
	for _, tt := range tests {
		if got := FormatOf(tt.dest); got != tt.want {
			t.Errorf("FormatOf(%q) = %v, want %v", tt.dest, got, tt.want)
		}
	}
}

func TestWrite_Dir(t *testing.T) {
	src := writeTree(t)
	dest := filepath.Join(t.TempDir(), "out")

	if err := Write(src, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "share", "notes", "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("copied content = %q", data)
	}
}

func TestWrite_Zip(t *testing.T) {
	src := writeTree(t)
	dest := filepath.Join(t.TempDir(), "out.zip")

	if err := Write(src, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}
	r, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
		if f.Name == "share/notes/a.txt" {
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			data, _ := io.ReadAll(rc)
			rc.Close()
			if string(data) != "hello" {
				t.Errorf("a.txt = %q", data)
			}
		}
	}
	sort.Strings(names)
	want := []string{"bin/notes", "lib/libqhotkey.a", "share/notes/a.txt"}
	if len(names) != len(want) {
		t.Fatalf("zip entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func readTar(t *testing.T, r io.Reader) map[string]string {
	t.Helper()
	files := make(map[string]string)
	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		switch h.Typeflag {
		case tar.TypeReg:
			data, err := io.ReadAll(tr)
			if err != nil {
				t.Fatal(err)
			}
			files[h.Name] = string(data)
		case tar.TypeSymlink:
			files[h.Name] = "-> " + h.Linkname
		case tar.TypeDir:
			files[h.Name] = ""
		}
	}
	return files
}

func TestWrite_Tar(t *testing.T) {
	tests := []struct {
		name string
		open func(io.Reader) (io.Reader, error)
	}{
		{"out.tar.gz", func(r io.Reader) (io.Reader, error) { return pgzip.NewReader(r) }},
		{"out.tgz", func(r io.Reader) (io.Reader, error) { return pgzip.NewReader(r) }},
		{"out.tar.xz", func(r io.Reader) (io.Reader, error) { return xz.NewReader(r) }},
		{"out.tar.zst", func(r io.Reader) (io.Reader, error) {
			d, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeTree(t)
			dest := filepath.Join(t.TempDir(), tt.name)
			if err := Write(src, dest); err != nil {
				t.Fatalf("Write: %v", err)
			}
			data, err := os.ReadFile(dest)
			if err != nil {
				t.Fatal(err)
			}
			r, err := tt.open(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			files := readTar(t, r)
			if files["bin/notes"] != "#!/bin/sh\necho notes\n" {
				t.Errorf("bin/notes = %q", files["bin/notes"])
			}
			if files["lib/libqhotkey.a"] != "archive" {
				t.Errorf("lib/libqhotkey.a = %q", files["lib/libqhotkey.a"])
			}
			if _, ok := files["share/notes/"]; !ok {
				t.Errorf("directory entry share/notes/ missing: %v", files)
			}
		})
	}
}

func TestWrite_TarSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	src := writeTree(t)
	if err := os.Symlink("libqhotkey.a", filepath.Join(src, "lib", "libqhotkey.so")); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "out.tar.gz")
	if err := Write(src, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := pgzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	files := readTar(t, gz)
	if got := files["lib/libqhotkey.so"]; got != "-> libqhotkey.a" {
		t.Errorf("symlink entry = %q", got)
	}
}

func TestWrite_ZipSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	src := writeTree(t)
	if err := os.Symlink("libqhotkey.a", filepath.Join(src, "lib", "libqhotkey.so")); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "out.zip")
	if err := Write(src, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}
	r, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	var found bool
	for _, f := range r.File {
		if f.Name != "lib/libqhotkey.so" {
			continue
		}
		found = true
		if f.Mode()&fs.ModeSymlink == 0 {
			t.Errorf("lib/libqhotkey.so mode = %v, want a symlink", f.Mode())
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		target, _ := io.ReadAll(rc)
		rc.Close()
		if string(target) != "libqhotkey.a" {
			t.Errorf("link target = %q, want %q", target, "libqhotkey.a")
		}
	}
	if !found {
		t.Error("symlink lib/libqhotkey.so missing from zip")
	}
}

func TestWrite_MissingSource(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.zip")
	if err := Write(filepath.Join(t.TempDir(), "missing"), dest); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("partial archive left behind: %v", err)
	}
}
