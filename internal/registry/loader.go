package registry

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"scriptd/internal/common/fsutil"
	"scriptd/pkg/types"
)

// Extensions by engine kind.
var kindExt = map[string]string{
	"js":    ".js",
	"wasm":  ".wasm",
	"llama": ".gguf",
}

// Ext returns the module file extension used by an engine kind.
func Ext(kind string) (string, bool) {
	ext, ok := kindExt[kind]
	return ext, ok
}

// Scanner discovers module files for one engine kind.
type Scanner struct {
	kind string
	ext  string
}

// NewScanner returns a scanner for kind (js, wasm or llama).
func NewScanner(kind string) (*Scanner, error) {
	ext, ok := kindExt[kind]
	if !ok {
		return nil, fmt.Errorf("unknown engine kind %q", kind)
	}
	return &Scanner{kind: kind, ext: ext}, nil
}

// Scan walks dir recursively. Module ids are relative paths without the
// extension, with directories joined by dots; files whose path cannot be
// expressed as an id (dots inside a directory or base name) are skipped.
func (s *Scanner) Scan(dir string) ([]types.Module, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	var mods []types.Module
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != abs && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), s.ext) {
			return nil
		}
		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return err
		}
		stem := strings.TrimSuffix(rel, filepath.Ext(rel))
		if strings.Contains(filepath.ToSlash(stem), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mods = append(mods, types.Module{
			ID:   fsutil.ModuleID(rel),
			Kind: s.kind,
			Path: p,
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", abs, err)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].ID < mods[j].ID })
	return mods, nil
}

// LoadDir scans dir for modules of the given engine kind.
func LoadDir(dir, kind string) ([]types.Module, error) {
	s, err := NewScanner(kind)
	if err != nil {
		return nil, err
	}
	return s.Scan(dir)
}
