package env

import (
	"os"
	"path/filepath"
)

// WorkDirEnv overrides the work directory of every project.
const WorkDirEnv = "QMK_WORKDIR"

// WorkDir returns where the parts of the project in projectDir are built:
// $QMK_WORKDIR if set, otherwise <projectDir>/.qmk.
func WorkDir(projectDir string) (string, error) {
	if dir := os.Getenv(WorkDirEnv); dir != "" {
		return filepath.Abs(dir)
	}
	return filepath.Abs(filepath.Join(projectDir, ".qmk"))
}

// Layout names the directories of each part under a work directory:
//
//	<root>/parts/<part>/
//	  build/      # staged sources, Makefile, objects
//	  install/    # make install prefix
//	  state/      # .lock and .cache.json
type Layout struct {
	Root string
}

func (l Layout) PartDir(part string) string {
	return filepath.Join(l.Root, "parts", part)
}

func (l Layout) BuildDir(part string) string {
	return filepath.Join(l.PartDir(part), "build")
}

func (l Layout) InstallDir(part string) string {
	return filepath.Join(l.PartDir(part), "install")
}

func (l Layout) StateDir(part string) string {
	return filepath.Join(l.PartDir(part), "state")
}
