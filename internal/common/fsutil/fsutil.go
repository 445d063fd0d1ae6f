package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/scripts/math
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// ModuleFile maps a dotted module id to a file under dir: "pkg.math" with ext
// ".js" becomes <dir>/pkg/math.js. Ids with empty segments or path separators
// are rejected so a module can never resolve outside dir.
func ModuleFile(dir, id, ext string) (string, error) {
	if id == "" {
		return "", errors.New("empty module id")
	}
	parts := strings.Split(id, ".")
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, `/\`) {
			return "", fmt.Errorf("invalid module id %q", id)
		}
	}
	base, err := ExpandHome(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, filepath.Join(parts...)+ext), nil
}

// ModuleID is the inverse of ModuleFile for a path relative to the modules
// directory: "pkg/math.js" becomes "pkg.math".
func ModuleID(rel string) string {
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
}
