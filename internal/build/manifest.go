package build

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/nuttyartist/notes/internal/config"
	"github.com/nuttyartist/notes/pkgs/buildsys"
	"github.com/nuttyartist/notes/pkgs/buildsys/stage"
	"lukechampine.com/blake3"
)

// FileEntry describes one installed file.
type FileEntry struct {
	Path   string      `json:"path"` // slash-separated, relative to the install dir
	Size   int64       `json:"size"`
	Mode   fs.FileMode `json:"mode"`
	Digest string      `json:"digest,omitempty"` // BLAKE3-256, hex
	Link   string      `json:"link,omitempty"`   // symlink target
}

// Manifest lists every file and symlink under dir, sorted by path.
func Manifest(dir string) ([]FileEntry, error) {
	var entries []FileEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		e := FileEntry{Path: filepath.ToSlash(rel), Size: info.Size(), Mode: info.Mode()}
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			if e.Link, err = os.Readlink(path); err != nil {
				return err
			}
		case d.Type().IsRegular():
			if e.Digest, err = fileDigest(path); err != nil {
				return err
			}
		default:
			return nil
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// usedPart is a part another part builds against.
type usedPart struct {
	InstallDir  string
	Fingerprint string // of its last successful build
}

// fingerprint hashes everything that decides the outcome of building part:
// the build context, the part's settings, the builds of the parts it uses and
// the contents of its source tree. workDir is skipped like staging skips it.
func fingerprint(part config.Part, bc buildsys.BuildContext, uses []usedPart, workDir string) (string, error) {
	h := blake3.New(32, nil)
	field := func(k, v string) { fmt.Fprintf(h, "%s=%q\n", k, v) }

	field("build", bc.BuildDir)
	field("install", bc.InstallDir)
	field("project", bc.ProjectFile)
	field("parallel", fmt.Sprint(bc.Parallel))
	field("qt", part.QtVersion)
	for _, o := range part.Options {
		field("option", o)
	}
	keys := make([]string, 0, len(part.Environment))
	for k := range part.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		field("env."+k, part.Environment[k])
	}
	for _, u := range uses {
		field("use", u.InstallDir)
		field("use.fingerprint", u.Fingerprint)
	}

	if err := hashTree(h, bc.SourceDir, workDir); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashTree(h hash.Hash, root, skip string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && (slices.Contains(stage.DefaultExclude, d.Name()) || path == skip) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		switch {
		case d.IsDir():
			fmt.Fprintf(h, "dir %q\n", rel)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(h, "link %q %q\n", rel, link)
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			fmt.Fprintf(h, "file %q %o %d\n", rel, info.Mode().Perm(), info.Size())
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(h, f)
			f.Close()
			if err != nil {
				return err
			}
		}
		return nil
	})
}
