package git

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AddWorktree creates a worktree at worktreePath tracking branch, creating
// the branch from HEAD first if it does not already exist. Returns the
// worktree's administrative directory (the stable identifier referenced by
// GIT_DIR when spawning a child into the worktree).
func (r *Repo) AddWorktree(worktreePath, branch string) (string, error) {
	if _, err := r.run("rev-parse", "--verify", "refs/heads/"+branch); err != nil {
		if _, err := r.run("branch", branch, "HEAD"); err != nil {
			return "", &Error{Kind: BranchCreation, Context: "creating worktree branch " + branch, Err: err}
		}
	}
	if _, err := r.run("worktree", "add", worktreePath, branch); err != nil {
		return "", fmt.Errorf("adding worktree at %s: %w", worktreePath, err)
	}
	return r.WorktreeGitDir(branch)
}

// WorktreeGitDir returns the administrative directory git maintains for a
// worktree checked out from branch, i.e. <repo>/.git/worktrees/<name>. It
// finds the worktree that has branch checked out through `git worktree
// list --porcelain` and asks git for that worktree's git dir, so it works
// whatever the worktree directory is named.
func (r *Repo) WorktreeGitDir(branch string) (string, error) {
	out, err := r.run("worktree", "list", "--porcelain")
	if err != nil {
		return "", err
	}
	var currentWorktree string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			currentWorktree = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			if strings.TrimPrefix(line, "branch refs/heads/") == branch {
				gitDir, err := NewRepo(currentWorktree).run("rev-parse", "--git-dir")
				if err != nil {
					return "", err
				}
				if !filepath.IsAbs(gitDir) {
					gitDir = filepath.Join(currentWorktree, gitDir)
				}
				return gitDir, nil
			}
		}
	}
	return "", fmt.Errorf("no worktree found for branch %s", branch)
}

// RemoveWorktree force-removes a git worktree and its administrative
// metadata.
func (r *Repo) RemoveWorktree(worktreePath string) error {
	_, err := r.run("worktree", "remove", "--force", worktreePath)
	return err
}

// PruneWorktrees cleans up stale worktree bookkeeping entries, e.g. after
// a worktree directory was removed directly with os.RemoveAll.
func (r *Repo) PruneWorktrees() error {
	_, err := r.run("worktree", "prune")
	return err
}
