package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5"
	"golang.org/x/mod/semver"
)

// CommitSHANotFound is returned by CommitSHA outside a git checkout.
const CommitSHANotFound = "COMMIT_SHA_NOT_FOUND"

var (
	ErrNotInstalled   = errors.New("not installed")
	ErrUnknownVersion = errors.New("could not determine version")
	ErrVersionTooOld  = errors.New("version too old")
)

// InstalledVersion runs "<binary> --version" and returns the second field of
// its output, as printed by tools like "pre-commit 3.5.0".
func InstalledVersion(ctx context.Context, binary string) (string, error) {
	result, err := Run(ctx, []string{binary, "--version"}, Options{Capture: true, Quiet: true})
	if errors.Is(err, exec.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", binary, ErrNotInstalled)
	}
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%s --version exited with status %d: %s", binary, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	fields := strings.Fields(result.Stdout)
	if len(fields) < 2 {
		return "", fmt.Errorf("%s: %w", binary, ErrUnknownVersion)
	}
	return fields[1], nil
}

// CheckMinimumVersion fails unless binary reports a version of at least min.
func CheckMinimumVersion(ctx context.Context, binary, min string) (string, error) {
	version, err := InstalledVersion(ctx, binary)
	if err != nil {
		return "", err
	}
	have, want := canonical(version), canonical(min)
	if have == "" {
		return version, fmt.Errorf("%s reported %q: %w", binary, version, ErrUnknownVersion)
	}
	if want == "" {
		return version, fmt.Errorf("minimum version %q is not a valid version", min)
	}
	if semver.Compare(have, want) < 0 {
		return version, fmt.Errorf("%s %s, need at least %s: %w", binary, version, min, ErrVersionTooOld)
	}
	return version, nil
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// CommitSHA returns the HEAD commit of the repository containing dir.
func CommitSHA(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return CommitSHANotFound
	}
	head, err := repo.Head()
	if err != nil {
		return CommitSHANotFound
	}
	return head.Hash().String()
}
