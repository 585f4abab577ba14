// Package dylibshim extracts and version-checks the bundled redirect
// library (built separately as cmd/autosave-redirect, a -buildmode=c-shared
// package) into the cache directory, so the run subcommand always points
// LD_PRELOAD/DYLD_INSERT_LIBRARIES at a stable, verified path rather than
// wherever the installer happened to place the original artifact.
package dylibshim

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cordx56/autosave/internal/fileutil"
)

// libraryFileName is the platform-appropriate shared library name
// produced by `go build -buildmode=c-shared` for cmd/autosave-redirect.
func libraryFileName() string {
	switch runtime.GOOS {
	case "darwin":
		return "autosave-redirect.dylib"
	case "windows":
		return "autosave-redirect.dll"
	default:
		return "autosave-redirect.so"
	}
}

// sourcePath locates the library the installer placed alongside the main
// binary.
func sourcePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("dylibshim: resolving executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), libraryFileName()), nil
}

// EnsureExtracted copies the bundled redirect library into
// <cacheDir>/lib/<name> if it is missing or stale (its sha256 no longer
// matches the sum recorded alongside it), and returns the stable path the
// run subcommand should point LD_PRELOAD/DYLD_INSERT_LIBRARIES at.
func EnsureExtracted(cacheDir string) (string, error) {
	src, err := sourcePath()
	if err != nil {
		return "", err
	}
	srcSum, err := fileSHA256(src)
	if err != nil {
		return "", fmt.Errorf("dylibshim: hashing bundled library %s: %w", src, err)
	}

	libDir := filepath.Join(cacheDir, "lib")
	if err := fileutil.EnsureDir(libDir); err != nil {
		return "", err
	}
	dst := filepath.Join(libDir, libraryFileName())
	sumPath := dst + ".sha256"

	if existingSum, err := os.ReadFile(sumPath); err == nil && string(existingSum) == srcSum {
		if _, err := os.Stat(dst); err == nil {
			return dst, nil
		}
	}

	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("dylibshim: extracting library: %w", err)
	}
	if err := os.WriteFile(sumPath, []byte(srcSum), 0o644); err != nil {
		return "", fmt.Errorf("dylibshim: recording library checksum: %w", err)
	}
	return dst, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
