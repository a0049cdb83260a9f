package env

import (
	"path/filepath"
	"testing"
)

func TestWorkDirDefault(t *testing.T) {
	t.Setenv(WorkDirEnv, "")
	project := t.TempDir()

	dir, err := WorkDir(project)
	if err != nil {
		t.Fatalf("WorkDir() returned error: %v", err)
	}
	if want := filepath.Join(project, ".qmk"); dir != want {
		t.Errorf("WorkDir() = %q, want %q", dir, want)
	}
}

func TestWorkDirOverride(t *testing.T) {
	custom := t.TempDir()
	t.Setenv(WorkDirEnv, custom)

	dir, err := WorkDir("/ignored")
	if err != nil {
		t.Fatalf("WorkDir() returned error: %v", err)
	}
	if dir != custom {
		t.Errorf("WorkDir() = %q, want %q", dir, custom)
	}
}

func TestWorkDirRelative(t *testing.T) {
	t.Setenv(WorkDirEnv, "")
	dir, err := WorkDir(".")
	if err != nil {
		t.Fatalf("WorkDir() returned error: %v", err)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("WorkDir() = %q, want an absolute path", dir)
	}
}

func TestLayout(t *testing.T) {
	l := Layout{Root: "/w"}
	for name, tt := range map[string]struct{ got, want string }{
		"part":    {l.PartDir("notes"), filepath.Join("/w", "parts", "notes")},
		"build":   {l.BuildDir("notes"), filepath.Join("/w", "parts", "notes", "build")},
		"install": {l.InstallDir("notes"), filepath.Join("/w", "parts", "notes", "install")},
		"state":   {l.StateDir("notes"), filepath.Join("/w", "parts", "notes", "state")},
	} {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", name, tt.got, tt.want)
		}
	}
}
