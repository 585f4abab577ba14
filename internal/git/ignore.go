package git

import "github.com/cordx56/autosave/internal/ignore"

// IsIgnored consults the repository's .gitignore rules for an absolute
// path, per the Git engine's is_ignored operation.
func (r *Repo) IsIgnored(path string) (bool, error) {
	m, err := ignore.Load(r.dir)
	if err != nil {
		return false, err
	}
	return m.IsIgnored(path), nil
}
