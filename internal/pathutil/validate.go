// Package pathutil confines files written on behalf of remote callers to a
// fixed set of directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ExportDirName is the subdirectory of the data directory that receives exports.
const ExportDirName = "exports"

var (
	ErrEmptyPath = errors.New("path is empty")
	ErrNoDirs    = errors.New("no allowed directories configured")
	ErrNullByte  = errors.New("path contains null byte")
	ErrOutside   = errors.New("path is outside allowed directories")
)

// Dirs is an ordered set of directories outputs may be written under.
// Relative names resolve against the first entry.
type Dirs []string

// ExportDirs returns <dataDir>/exports followed by any non-empty extra dirs.
func ExportDirs(dataDir string, extra ...string) Dirs {
	d := Dirs{filepath.Join(dataDir, ExportDirName)}
	for _, dir := range extra {
		if dir != "" {
			d = append(d, dir)
		}
	}
	return d
}

// Check reports whether path lies within one of d once it is cleaned, made
// absolute and has symlinks in its existing ancestors resolved. The file
// and its parents need not exist.
func (d Dirs) Check(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("path validation failed: %w", ErrEmptyPath)
	case len(d) == 0:
		return fmt.Errorf("path validation failed: %w", ErrNoDirs)
	case strings.ContainsRune(path, '\x00'):
		return fmt.Errorf("path validation failed: %w", ErrNullByte)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	target, err := resolve(abs)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	for _, dir := range d {
		root, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if root, err = resolve(root); err != nil {
			continue
		}
		if within(target, root) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %s: %w", RedactPath(abs), ErrOutside)
}

// Resolve joins a relative name onto the first directory, checks the
// result and returns it cleaned. Absolute names are checked as given.
func (d Dirs) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("path validation failed: %w", ErrEmptyPath)
	}
	if len(d) == 0 {
		return "", fmt.Errorf("path validation failed: %w", ErrNoDirs)
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(d[0], path)
	}
	if err := d.Check(path); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}

// resolve evaluates symlinks on the deepest existing ancestor of path and
// re-appends the missing tail.
func resolve(path string) (string, error) {
	var tail []string
	for {
		if r, err := filepath.EvalSymlinks(path); err == nil {
			slices.Reverse(tail)
			return filepath.Join(append([]string{r}, tail...)...), nil
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", fmt.Errorf("cannot resolve %s", RedactPath(path))
		}
		tail = append(tail, filepath.Base(path))
		path = parent
	}
}

// within reports whether path is root or below it.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}

// RedactPath shortens a path to .../<parent>/<base> for error messages,
// e.g. "/home/user/.selfwatch/selfwatch.db" becomes ".../.selfwatch/selfwatch.db".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}
