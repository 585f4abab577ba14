// Command autosave-redirect is not a CLI entry point in the usual sense:
// built with `go build -buildmode=c-shared`, it produces the shared
// library injected via LD_PRELOAD / DYLD_INSERT_LIBRARIES by the run
// subcommand's session driver. It intercepts the libc path-taking entry
// points exported from bridge.go (open, openat, creat, stat, lstat,
// fstatat, access, faccessat, opendir, mkdir, mkdirat, rmdir, chdir,
// unlink, unlinkat, rename, renameat, link, linkat, symlink, symlinkat,
// readlink, readlinkat, chmod, fchmodat, chown, lchown, fchownat,
// realpath, execve, execv) and rewrites paths under a redirected
// repository prefix onto a throwaway worktree, so a child process appears
// to operate on the original repository while the daemon autosaves the
// worktree. The 64-suffixed variants (open64, stat64, ...), statx, the
// glibc __xstat family, truncate, renameat2, the utime family and the
// xattr family are not intercepted; calls through them reach libc
// unredirected.
package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cordx56/autosave/internal/ignore"
)

// redirectConfig is the process-wide redirection state, populated exactly
// once from REDIRECT_FROM/REDIRECT_TO/REDIRECT_SKIP_GITIGNORE by
// initRedirect on the first intercepted call, not at library load.
// It never changes afterward; interception logic only ever reads it.
type redirectConfig struct {
	from          string
	to            string
	skipGitignore bool
	active        bool
}

var (
	cfg     redirectConfig
	cfgOnce sync.Once
)

// initRedirect reads the environment. It must run only after every
// original function pointer has been resolved (see the resolve_originals
// constructor in bridge.go), because reading the environment and checking ignore
// rules themselves perform path operations this library intercepts.
func initRedirect() {
	cfgOnce.Do(func() {
		from := os.Getenv("REDIRECT_FROM")
		to := os.Getenv("REDIRECT_TO")
		if from == "" || to == "" {
			return
		}
		cfg = redirectConfig{
			from:          strings.TrimSuffix(from, "/"),
			to:            strings.TrimSuffix(to, "/"),
			skipGitignore: os.Getenv("REDIRECT_SKIP_GITIGNORE") == "1",
			active:        true,
		}
	})
}

// redirectPath computes the rewritten form of path, or "" if no
// redirection applies. path must already be absolute (callers of the
// …at family resolve relative paths against the right directory first).
func redirectPath(path string) string {
	if !cfg.active || path == "" {
		return ""
	}
	normalized := lexicalClean(path)

	if isExcluded(normalized) {
		return ""
	}

	if normalized == cfg.from {
		return cfg.to
	}
	if rest, ok := strings.CutPrefix(normalized, cfg.from+"/"); ok {
		return filepath.Join(cfg.to, rest)
	}
	return ""
}

// lexicalClean resolves "." and ".." purely lexically, joining with the
// process cwd if path is relative. It must never touch the filesystem
// (no symlink resolution, no stat calls) since it runs inside an
// interception that may itself be intercepted recursively otherwise.
func lexicalClean(path string) string {
	if !filepath.IsAbs(path) {
		if wd, err := os.Getwd(); err == nil {
			path = filepath.Join(wd, path)
		}
	}
	return filepath.Clean(path)
}

// isExcluded reports whether path must never be redirected: the source
// repository's .git metadata (worktree semantics are conveyed through
// GIT_DIR/GIT_WORK_TREE instead), or, when REDIRECT_SKIP_GITIGNORE is
// set, a path ignored by the source repository's .gitignore rules.
func isExcluded(path string) bool {
	gitDir := cfg.from + "/.git"
	if path == gitDir || strings.HasPrefix(path, gitDir+"/") {
		return true
	}
	if cfg.skipGitignore && isGitignored(path) {
		return true
	}
	return false
}

var (
	gitignoreMatcher *ignore.Matcher
	gitignoreOnce    sync.Once
)

// isGitignored consults the source repository's .gitignore rules. Lazily
// loaded on first use (rather than during the two-phase init) since it is
// only ever needed when REDIRECT_SKIP_GITIGNORE is set, and loading it
// itself performs path operations that must go through the already-
// resolved original functions, not through this library's own wrappers.
func isGitignored(path string) bool {
	gitignoreOnce.Do(func() {
		m, err := ignore.Load(cfg.from)
		if err != nil {
			return
		}
		gitignoreMatcher = m
	})
	if gitignoreMatcher == nil {
		return false
	}
	return gitignoreMatcher.IsIgnored(path)
}

// resolveAtPath applies the …at-family resolution rule: an absolute path
// redirects normally; a relative path against AT_FDCWD redirects
// normally (relative to cwd); a relative path against another directory
// descriptor is resolved via /proc/self/fd/<fd> first.
func resolveAtPath(dirfd int, path string) string {
	const atFDCWD = -100
	if filepath.IsAbs(path) || dirfd == atFDCWD {
		return redirectPath(path)
	}
	dir, err := os.Readlink("/proc/self/fd/" + strconv.Itoa(dirfd))
	if err != nil {
		return ""
	}
	return redirectPath(filepath.Join(dir, path))
}

func main() {}
