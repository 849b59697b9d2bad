package updater

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/guiyumin/bgscribe/internal/core/version"
)

const (
	repoOwner = "guiyumin"
	repoName  = "bgscribe"
)

func newUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, err
	}
	return selfupdate.NewUpdater(selfupdate.Config{
		Source: source,
	})
}

// CheckUpdate reports the latest release and whether it is newer than this build.
func CheckUpdate(ctx context.Context) (*selfupdate.Release, bool, error) {
	updater, err := newUpdater()
	if err != nil {
		return nil, false, err
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	if latest.LessOrEqual(currentVersion()) {
		return latest, false, nil
	}
	return latest, true, nil
}

// Update replaces the running binary with the latest release.
func Update(ctx context.Context, out io.Writer) error {
	latest, newer, err := CheckUpdate(ctx)
	if err != nil {
		return err
	}
	if latest == nil {
		return fmt.Errorf("no releases found for %s/%s", repoOwner, repoName)
	}

	current := currentVersion()
	if !newer {
		fmt.Fprintf(out, "Already up to date (v%s)\n", current)
		return nil
	}

	fmt.Fprintf(out, "Updating from v%s to %s...\n", current, latest.Version())

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	updater, err := newUpdater()
	if err != nil {
		return err
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	fmt.Fprintf(out, "Successfully updated to %s\n", latest.Version())
	return nil
}

// currentVersion strips the leading 'v' for comparison.
func currentVersion() string {
	return strings.TrimPrefix(version.Version, "v")
}
