package qmake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nuttyartist/notes/pkgs/buildsys"
	"golang.org/x/mod/semver"
)

// ErrQtTooOld is returned when the Qt behind qmake is older than required.
var ErrQtTooOld = errors.New("qmake: Qt version too old")

// QtVersion asks qmake which Qt it belongs to ("qmake -query QT_VERSION").
func QtVersion(ctx context.Context, r buildsys.Runner) (string, error) {
	var out bytes.Buffer
	cmd := buildsys.Command{Name: "qmake", Args: []string{"-query", "QT_VERSION"}, Stdout: &out}
	if err := r.Run(ctx, cmd); err != nil {
		return "", buildsys.NewToolError("qmake", "query", err)
	}
	ver := strings.TrimSpace(out.String())
	if !semver.IsValid(canonical(ver)) {
		return "", fmt.Errorf("qmake: unexpected QT_VERSION %q", ver)
	}
	return ver, nil
}

// CheckQtVersion fails with ErrQtTooOld unless qmake's Qt is at least min.
func CheckQtVersion(ctx context.Context, r buildsys.Runner, min string) error {
	if !semver.IsValid(canonical(min)) {
		return fmt.Errorf("qmake: invalid minimum Qt version %q", min)
	}
	have, err := QtVersion(ctx, r)
	if err != nil {
		return err
	}
	if semver.Compare(canonical(have), canonical(min)) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrQtTooOld, have, min)
	}
	return nil
}

// canonical turns "5.15.2" into "v5.15.2" for semver.
func canonical(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
