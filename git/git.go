package git

import (
	"errors"

	gogit "github.com/go-git/go-git/v5"
)

// IsDirty reports whether the worktree containing root has uncommitted
// changes. A directory that is not inside a Git repository counts as clean;
// the caller only uses this to decide whether to show a warning.
func IsDirty(root string) (bool, error) {
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return false, nil
		}
		return false, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	return !status.IsClean(), nil
}
