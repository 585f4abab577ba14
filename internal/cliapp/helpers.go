package cliapp

import (
	"os"
	"path/filepath"
)

// findGitRoot walks up from dir looking for a .git entry, returning "" if
// none is found before the filesystem root.
func findGitRoot(dir string) string {
	return walkUpUntil(dir, func(d string) bool {
		_, err := os.Stat(filepath.Join(d, ".git"))
		return err == nil
	})
}

// walkUpUntil walks up the directory tree from dir, calling check on
// each directory, returning the first one where check returns true.
func walkUpUntil(dir string, check func(string) bool) string {
	for {
		if check(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
