package acceptance_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("run", func() {
	var repoDir, cacheDir string

	BeforeEach(func() {
		repoDir, cacheDir = setupTestRepo("run")
	})

	It("propagates the child command's exit code", func() {
		_, err := autosave(repoDir, cacheDir, "run", "scratch", "sh", "-c", "exit 7")
		Expect(err).To(HaveOccurred())
		exitErr, ok := asExitError(err)
		Expect(ok).To(BeTrue())
		Expect(exitErr).To(Equal(7))
	})

	It("runs the command inside a throwaway worktree, not the main tree", func() {
		out, err := autosave(repoDir, cacheDir, "run", "scratch", "sh", "-c", "pwd")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(Equal(repoDir))
	})

	It("removes the worktree once the command exits", func() {
		_, err := autosave(repoDir, cacheDir, "run", "scratch", "sh", "-c", "true")
		Expect(err).NotTo(HaveOccurred())

		worktrees := runGitOutput(repoDir, "worktree", "list", "--porcelain")
		// Only the main worktree (repoDir itself) should remain registered.
		Expect(worktrees).To(ContainSubstring(mustAbs(repoDir)))
		Expect(worktrees).NotTo(ContainSubstring(filepath.Join(cacheDir, "worktrees")))
	})
})

func asExitError(err error) (int, bool) {
	type exitCoder interface{ ExitCode() int }
	if ee, ok := err.(exitCoder); ok {
		return ee.ExitCode(), true
	}
	return 0, false
}

func mustAbs(p string) string {
	abs, err := filepath.Abs(p)
	Expect(err).NotTo(HaveOccurred())
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs
	}
	return resolved
}
