package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// setupTestRepo creates a fresh git repo and a dedicated daemon cache
// directory (so each test's daemon instance is isolated) and returns
// (repoDir, cacheDir). Both are removed, and the daemon killed, on
// cleanup.
func setupTestRepo(prefix string) (string, string) {
	repoDir, err := os.MkdirTemp("", prefix+"-repo-*")
	Expect(err).NotTo(HaveOccurred())
	cacheDir, err := os.MkdirTemp("", prefix+"-cache-*")
	Expect(err).NotTo(HaveOccurred())

	runGit(repoDir, "init")
	runGit(repoDir, "config", "user.email", "test@test.com")
	runGit(repoDir, "config", "user.name", "Test")
	writeFile(repoDir, "README.md", "# test\n")
	runGit(repoDir, "add", ".")
	runGit(repoDir, "commit", "-m", "initial commit")

	DeferCleanup(func() {
		_, _ = autosave(repoDir, cacheDir, "kill")
		os.RemoveAll(repoDir)
		os.RemoveAll(cacheDir)
	})

	return repoDir, cacheDir
}

func runGit(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "git %s failed: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

func runGitOutput(dir string, args ...string) string {
	return runGit(dir, args...)
}

func writeFile(dir, name, content string) {
	p := filepath.Join(dir, name)
	Expect(os.MkdirAll(filepath.Dir(p), 0o755)).To(Succeed())
	Expect(os.WriteFile(p, []byte(content), 0o644)).To(Succeed())
}

// autosave runs the built binary with dir as its working directory and
// cacheDir as its daemon state root, returning combined output.
func autosave(dir, cacheDir string, args ...string) (string, error) {
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "AUTOSAVE_CACHE="+cacheDir)
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func autosaveOK(dir, cacheDir string, args ...string) string {
	out, err := autosave(dir, cacheDir, args...)
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "autosave %s failed: %s", strings.Join(args, " "), out)
	return out
}

// eventually polls check every 100ms until it returns true or timeout
// elapses, failing the test if it never does.
func eventually(timeout time.Duration, check func() bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	ExpectWithOffset(1, check()).To(BeTrue(), "condition not met within %s", timeout)
}

func branchExists(dir, branch string) bool {
	out, err := exec.Command("git", "-C", dir, "branch", "--list", branch).CombinedOutput()
	return err == nil && strings.Contains(string(out), branch)
}
