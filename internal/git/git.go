// Package git implements the save algorithm, worktree management, and
// ignore checks by shelling out to the git binary. There is no native Go
// object-database dependency anywhere in the retrieved pack, so this
// mirrors the one Git engine example that exists there: wrap os/exec,
// scrub the environment of hook-inherited GIT_* variables, and retry the
// small set of genuinely transient failures (index lock contention).
package git

import (
	"os"
	"os/exec"
	"strings"
	"time"
)

// gitEnvPrefixes lists git environment variable prefixes that must be
// stripped from child git processes. The run subcommand spawns children
// with GIT_DIR/GIT_WORK_TREE pointed at a worktree; if those leak into the
// daemon's own git invocations against the original repository, commands
// resolve against the wrong repo entirely.
var gitEnvPrefixes = []string{
	"GIT_DIR=",
	"GIT_WORK_TREE=",
	"GIT_INDEX_FILE=",
	"GIT_OBJECT_DIRECTORY=",
	"GIT_ALTERNATE_OBJECT_DIRECTORIES=",
	"GIT_COMMON_DIR=",
}

const (
	retryMaxAttempts = 3
	retryBaseDelay   = 50 * time.Millisecond
)

// sleepFunc is overridden in tests to avoid real sleeping.
var sleepFunc = time.Sleep

// Repo is a handle to a git repository, operated on by shelling out to the
// git binary rooted at dir.
type Repo struct {
	dir string
}

// NewRepo returns a handle for the repository rooted at dir. It does not
// verify dir is actually a repository; the first operation that needs one
// surfaces NoRepository if it isn't.
func NewRepo(dir string) *Repo {
	return &Repo{dir: dir}
}

// Dir returns the repository's working directory.
func (r *Repo) Dir() string { return r.dir }

// run executes a git subcommand rooted at r.dir with a scrubbed
// environment, retrying a bounded number of times on transient failures
// (index lock contention, ref lock contention) with a short backoff.
func (r *Repo) run(args ...string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		if attempt > 0 {
			sleepFunc(retryBaseDelay * time.Duration(attempt))
		}
		out, err := r.runOnce(args...)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isTransient(err.Error()) {
			return "", err
		}
	}
	return "", lastErr
}

func (r *Repo) runOnce(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	cmd.Env = append(cleanGitEnv(os.Environ()), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &Error{
			Kind:    classify(string(out)),
			Context: "git " + strings.Join(args, " "),
			Err:     err,
			Output:  strings.TrimSpace(string(out)),
		}
	}
	return strings.TrimSpace(string(out)), nil
}

// cleanGitEnv returns a copy of environ with hook-inherited git variables
// removed.
func cleanGitEnv(environ []string) []string {
	result := make([]string, 0, len(environ))
	for _, e := range environ {
		keep := true
		for _, prefix := range gitEnvPrefixes {
			if strings.HasPrefix(e, prefix) {
				keep = false
				break
			}
		}
		if keep {
			result = append(result, e)
		}
	}
	return result
}

// isTransient reports whether a git stderr message indicates a failure
// worth retrying: lock contention on the index or a ref, which commonly
// resolves itself within milliseconds (a concurrent git process releasing
// its lock).
func isTransient(msg string) bool {
	transientSubstrings := []string{
		"index file open failed",
		"Unable to create",
		"cannot lock ref",
		".lock': File exists",
	}
	for _, s := range transientSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
