// Package security guards the files lakron reads and writes on the user's
// behalf: session files and exports.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for paths containing shell metacharacters.
var ErrUnsafePath = errors.New("unsafe file path")

// forbidden holds characters never accepted in a user-supplied path.
const forbidden = ";&|$`(){}<>!\n\r"

// CleanPath validates path and returns it absolute, cleaned and with
// symlinks resolved when the file already exists.
func CleanPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty", ErrUnsafePath)
	}
	if i := strings.IndexAny(path, forbidden); i >= 0 {
		return "", fmt.Errorf("%w: forbidden character %q in %s", ErrUnsafePath, path[i], path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", fmt.Errorf("resolve path: %w", err)
	}
	return resolved, nil
}

// ReadFile reads a file after validating its path.
func ReadFile(path string) ([]byte, error) {
	clean, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 - path is validated above
	return os.ReadFile(clean)
}

// WritePrivateFile replaces path with data, readable only by the owner.
// The parent directory is created 0700. The write goes through a temp file
// and a rename so readers never see a partial file.
func WritePrivateFile(path string, data []byte) error {
	clean, err := CleanPath(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(clean)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(clean)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), clean)
}

// RemoveFile deletes path. A missing file is not an error.
func RemoveFile(path string) error {
	clean, err := CleanPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
