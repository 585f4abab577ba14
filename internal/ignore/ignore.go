// Package ignore consults a repository's .gitignore rules both for the
// Git engine's is_ignored operation and for the preload library's
// REDIRECT_SKIP_GITIGNORE exclusion.
package ignore

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

const ignoreFile = ".gitignore"

// Matcher checks paths against a repository's .gitignore patterns.
type Matcher struct {
	root string
	gi   *gitignore.GitIgnore
}

// Load compiles the .gitignore at the root of dir. Returns a Matcher that
// matches nothing if the repository has no .gitignore — an absent file is
// not an error, it simply means nothing is ignored.
func Load(dir string) (*Matcher, error) {
	path := filepath.Join(dir, ignoreFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Matcher{root: dir}, nil
	}

	gi, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, err
	}
	return &Matcher{root: dir, gi: gi}, nil
}

// IsIgnored reports whether the given path (absolute, or relative to the
// matcher's root) matches the repository's .gitignore rules.
func (m *Matcher) IsIgnored(path string) bool {
	if m.gi == nil {
		return false
	}
	rel := path
	if filepath.IsAbs(path) {
		if r, err := filepath.Rel(m.root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		} else {
			return false
		}
	}
	return m.gi.MatchesPath(rel)
}

// AllIgnored returns true if every given file path (relative to the
// matcher's root) matches the ignore patterns. It returns false for an
// empty list or when no .gitignore was loaded.
func (m *Matcher) AllIgnored(files []string) bool {
	if m.gi == nil || len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !m.gi.MatchesPath(f) {
			return false
		}
	}
	return true
}
