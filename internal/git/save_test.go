package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func initRepo(t *testing.T, dir string) {
	t.Helper()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=t@t",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=t@t",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %s: %v", args, out, err)
		}
	}
	run("init", "-b", "main")
}

func commitFile(t *testing.T, dir, name, content, msg string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command("git", "-C", dir, "add", "-A")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add: %s: %v", out, err)
	}
	cmd = exec.Command("git", "-C", dir, "commit", "-m", msg)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=t@t",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=t@t",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %s: %v", out, err)
	}
}

func TestSaveAdvancesTrackingBranch(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	commitFile(t, dir, "README.md", "hello", "init")

	if err := os.WriteFile(filepath.Join(dir, "wip.txt"), []byte("work in progress"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := NewRepo(dir)
	headBefore, err := repo.run("rev-parse", "HEAD")
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.Save("tmp/autosave", "autosave commit", "autosave merge"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	headAfter, err := repo.run("rev-parse", "HEAD")
	if err != nil {
		t.Fatal(err)
	}
	if headBefore != headAfter {
		t.Errorf("Save moved HEAD: before=%s after=%s", headBefore, headAfter)
	}

	tip, err := repo.run("rev-parse", "tmp/autosave")
	if err != nil {
		t.Fatalf("tracking branch should exist: %v", err)
	}
	treeFiles, err := repo.run("ls-tree", "-r", "--name-only", tip)
	if err != nil {
		t.Fatal(err)
	}
	if !contains(treeFiles, "wip.txt") {
		t.Errorf("tracking branch tree missing wip.txt, got: %q", treeFiles)
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	commitFile(t, dir, "README.md", "hello", "init")
	if err := os.WriteFile(filepath.Join(dir, "wip.txt"), []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := NewRepo(dir)
	if err := repo.Save("tmp/autosave", "autosave commit", "autosave merge"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	firstTip, err := repo.run("rev-parse", "tmp/autosave")
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.Save("tmp/autosave", "autosave commit", "autosave merge"); err != nil {
		t.Fatalf("second save: %v", err)
	}
	secondTip, err := repo.run("rev-parse", "tmp/autosave")
	if err != nil {
		t.Fatal(err)
	}

	if firstTip != secondTip {
		t.Errorf("second save with no changes created a new commit: %s -> %s", firstTip, secondTip)
	}
}

func TestSavePreservesIndex(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	commitFile(t, dir, "README.md", "hello", "init")

	if err := os.WriteFile(filepath.Join(dir, "staged.txt"), []byte("staged"), 0o644); err != nil {
		t.Fatal(err)
	}
	repo := NewRepo(dir)
	if _, err := repo.run("add", "staged.txt"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "unstaged.txt"), []byte("unstaged"), 0o644); err != nil {
		t.Fatal(err)
	}

	statusBefore, err := repo.run("status", "--porcelain")
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.Save("tmp/autosave", "autosave commit", "autosave merge"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	statusAfter, err := repo.run("status", "--porcelain")
	if err != nil {
		t.Fatal(err)
	}
	if statusBefore != statusAfter {
		t.Errorf("Save changed the user's staged/unstaged state:\nbefore: %q\nafter:  %q", statusBefore, statusAfter)
	}
}

func TestSaveDetachedHeadNotMoved(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	commitFile(t, dir, "README.md", "hello", "init")
	commitFile(t, dir, "a.txt", "a", "second")

	repo := NewRepo(dir)
	firstCommit, err := repo.run("rev-parse", "HEAD~1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.run("checkout", "--detach", firstCommit); err != nil {
		t.Fatalf("checkout --detach: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "detached-wip.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := repo.Save("tmp/autosave", "autosave commit", "autosave merge"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	headAfter, err := repo.run("rev-parse", "HEAD")
	if err != nil {
		t.Fatal(err)
	}
	if headAfter != firstCommit {
		t.Errorf("detached HEAD moved: want %s, got %s", firstCommit, headAfter)
	}
	symbolic, err := repo.run("symbolic-ref", "--short", "HEAD")
	if err == nil {
		t.Errorf("HEAD should still be detached, got symbolic ref %s", symbolic)
	}
}

// TestSaveAutoMergesDivergedBranches exercises the case where the prior
// branch and the tracking branch have each advanced independently since
// they last shared history, so performSave must fold the prior branch in
// with a real two-parent merge rather than a fast-forward.
func TestSaveAutoMergesDivergedBranches(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	commitFile(t, dir, "README.md", "hello", "init")
	repo := NewRepo(dir)

	if err := os.WriteFile(filepath.Join(dir, "wip1.txt"), []byte("wip1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save("tmp/autosave", "autosave commit", "autosave merge"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	priorTrackingTip, err := repo.run("rev-parse", "tmp/autosave")
	if err != nil {
		t.Fatal(err)
	}
	// wip1.txt is already captured on the tracking branch; remove it from
	// disk so it doesn't get swept into the feature branch's commit below.
	if err := os.Remove(filepath.Join(dir, "wip1.txt")); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.run("checkout", "-b", "feature", "main"); err != nil {
		t.Fatalf("checkout -b feature: %v", err)
	}
	commitFile(t, dir, "feature.txt", "feature work", "feature work")
	featureTip, err := repo.run("rev-parse", "feature")
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "wip2.txt"), []byte("wip2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save("tmp/autosave", "autosave commit", "autosave merge"); err != nil {
		t.Fatalf("second save: %v", err)
	}

	mergeCommit, err := repo.run("rev-parse", "tmp/autosave^1")
	if err != nil {
		t.Fatalf("expected the final snapshot commit to have a merge commit parent: %v", err)
	}
	parents, err := repo.run("log", "-1", "--pretty=%P", mergeCommit)
	if err != nil {
		t.Fatal(err)
	}
	fields := strings.Fields(parents)
	if len(fields) != 2 {
		t.Fatalf("expected the auto-merge commit to have 2 parents, got %q", parents)
	}
	if fields[0] != featureTip {
		t.Errorf("merge commit first parent = %s, want prior branch tip %s (feature)", fields[0], featureTip)
	}
	if fields[1] != priorTrackingTip {
		t.Errorf("merge commit second parent = %s, want tracking branch's own prior tip %s", fields[1], priorTrackingTip)
	}
}

// TestSaveFromUnbornBranchWithExistingHistoryElsewhere covers the half of
// the unborn-HEAD invariant that TestSaveDetachedHeadNotMoved doesn't: HEAD
// symbolic but pointed at a branch with no commit of its own, in a
// repository that already has history on another branch (so Save must not
// take the "fully empty repository" short-circuit).
func TestSaveFromUnbornBranchWithExistingHistoryElsewhere(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	commitFile(t, dir, "README.md", "hello", "init")

	repo := NewRepo(dir)
	if _, err := repo.run("checkout", "--orphan", "empty"); err != nil {
		t.Fatalf("checkout --orphan empty: %v", err)
	}
	if _, err := repo.run("symbolic-ref", "--short", "HEAD"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.run("rev-parse", "--verify", "HEAD"); err == nil {
		t.Fatal("expected HEAD to be unborn right after checkout --orphan")
	}

	if err := os.WriteFile(filepath.Join(dir, "orphan-wip.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := repo.Save("tmp/autosave", "autosave commit", "autosave merge"); err != nil {
		t.Fatalf("Save from unborn branch: %v", err)
	}

	branch, err := repo.run("symbolic-ref", "--short", "HEAD")
	if err != nil {
		t.Fatalf("HEAD should still be symbolic: %v", err)
	}
	if branch != "empty" {
		t.Errorf("HEAD branch = %s, want empty (restored)", branch)
	}
	if _, err := repo.run("rev-parse", "--verify", "HEAD"); err == nil {
		t.Error("expected the empty branch to still be unborn after Save")
	}

	tip, err := repo.run("rev-parse", "tmp/autosave")
	if err != nil {
		t.Fatalf("tracking branch should exist: %v", err)
	}
	treeFiles, err := repo.run("ls-tree", "-r", "--name-only", tip)
	if err != nil {
		t.Fatal(err)
	}
	if !contains(treeFiles, "orphan-wip.txt") {
		t.Errorf("tracking branch tree missing orphan-wip.txt, got: %q", treeFiles)
	}
}

func TestSaveNoOpDuringRebase(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	commitFile(t, dir, "README.md", "hello", "init")

	repo := NewRepo(dir)
	gitDirOut, err := repo.run("rev-parse", "--git-dir")
	if err != nil {
		t.Fatal(err)
	}
	gitDir := gitDirOut
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}
	if err := os.Mkdir(filepath.Join(gitDir, "rebase-merge"), 0o755); err != nil {
		t.Fatal(err)
	}

	headBefore, _ := repo.run("rev-parse", "HEAD")
	if err := repo.Save("tmp/autosave", "autosave commit", "autosave merge"); err != nil {
		t.Fatalf("Save should no-op cleanly during rebase: %v", err)
	}
	headAfter, _ := repo.run("rev-parse", "HEAD")
	if headBefore != headAfter {
		t.Errorf("Save moved HEAD during a mid-rebase no-op")
	}
	if _, err := repo.run("rev-parse", "--verify", "refs/heads/tmp/autosave"); err == nil {
		t.Errorf("Save should not create the tracking branch during a mid-rebase no-op")
	}
}

func contains(haystack, needle string) bool {
	for _, line := range splitLines(haystack) {
		if line == needle {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
