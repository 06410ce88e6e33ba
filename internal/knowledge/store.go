// Package knowledge is the read-only contract for enriching a worker's
// context with notes about a step's target. Absence of notes is normal, not
// an error.
package knowledge

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Store looks up advisory notes by step target.
type Store interface {
	// Lookup returns notes for a target, or "" when none exist.
	Lookup(target string) (string, error)
}

// DirStore reads notes from <root>/<sanitized target>.md files.
type DirStore struct {
	Root string
}

// NewDirStore returns a directory-backed store. The directory does not need
// to exist.
func NewDirStore(root string) *DirStore {
	return &DirStore{Root: root}
}

// Lookup implements Store.
func (d *DirStore) Lookup(target string) (string, error) {
	if target == "" {
		return "", nil
	}
	path := filepath.Join(d.Root, sanitize(target)+".md")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func sanitize(target string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return r.Replace(target)
}

// Empty is a Store with no knowledge. Useful default.
type Empty struct{}

func (Empty) Lookup(string) (string, error) { return "", nil }
