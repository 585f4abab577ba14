package acceptance_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("watch list", func() {
	var repoDir, cacheDir string

	BeforeEach(func() {
		repoDir, cacheDir = setupTestRepo("watch")
	})

	It("adds the current directory with no arguments", func() {
		autosaveOK(repoDir, cacheDir)
		out := autosaveOK(repoDir, cacheDir, "list")
		Expect(out).To(ContainSubstring(repoDir))
	})

	It("removes a watched path", func() {
		autosaveOK(repoDir, cacheDir)
		Expect(autosaveOK(repoDir, cacheDir, "list")).To(ContainSubstring(repoDir))

		autosaveOK(repoDir, cacheDir, "remove")
		Expect(autosaveOK(repoDir, cacheDir, "list")).NotTo(ContainSubstring(repoDir))
	})

	It("starts a daemon lazily on first use and stops it on kill", func() {
		autosaveOK(repoDir, cacheDir)
		_, err := autosave(repoDir, cacheDir, "kill")
		Expect(err).NotTo(HaveOccurred())

		// A later command with no daemon running should still succeed
		// once a fresh one is spawned to answer it.
		_, err = autosave(repoDir, cacheDir, "list")
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("autosave on filesystem change", func() {
	var repoDir, cacheDir string

	BeforeEach(func() {
		repoDir, cacheDir = setupTestRepo("autosave")
	})

	It("commits a snapshot onto the default branch after the debounce delay", func() {
		autosaveOK(repoDir, cacheDir)
		writeFile(repoDir, "work.txt", "first draft\n")

		eventually(10*time.Second, func() bool {
			return branchExists(repoDir, "tmp/autosave")
		})

		msg := runGitOutput(repoDir, "log", "-1", "--format=%s", "tmp/autosave")
		Expect(msg).To(ContainSubstring("autosave commit"))
	})

	It("does not snapshot a path after it has been removed", func() {
		autosaveOK(repoDir, cacheDir)
		autosaveOK(repoDir, cacheDir, "remove")
		writeFile(repoDir, "untracked-change.txt", "should not be saved\n")

		// Wait past the default 3s debounce delay so a save would have fired.
		time.Sleep(5 * time.Second)
		Expect(branchExists(repoDir, "tmp/autosave")).To(BeFalse())
	})

	It("fires two attached tiers at their own delays", func() {
		autosaveOK(repoDir, cacheDir, "--delay", "2")
		autosaveOK(repoDir, cacheDir, "--delay", "5")

		writeFile(repoDir, "work1.txt", "first draft\n")

		eventually(10*time.Second, func() bool {
			return branchExists(repoDir, "tmp/autosave")
		})
		firstTip := runGitOutput(repoDir, "rev-parse", "tmp/autosave")

		// Nudge the still-running second tier before its delay elapses so
		// a later, distinct change also lands once that tier fires.
		writeFile(repoDir, "work2.txt", "second draft\n")

		eventually(10*time.Second, func() bool {
			return runGitOutput(repoDir, "rev-parse", "tmp/autosave") != firstTip
		})
		secondTip := runGitOutput(repoDir, "rev-parse", "tmp/autosave")

		firstTree := runGitOutput(repoDir, "ls-tree", "-r", "--name-only", firstTip)
		Expect(firstTree).To(ContainSubstring("work1.txt"))
		Expect(firstTree).NotTo(ContainSubstring("work2.txt"))

		secondTree := runGitOutput(repoDir, "ls-tree", "-r", "--name-only", secondTip)
		Expect(secondTree).To(ContainSubstring("work1.txt"))
		Expect(secondTree).To(ContainSubstring("work2.txt"))
	})
})
