package backup

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Prefix names every backup directory at the project root.
const Prefix = ".applydiff_backup_"

// Session collects pre-images for one apply invocation. The directory is
// created lazily on the first Add of an existing file, so an apply that
// mutates nothing, or only creates new files, leaves no directory behind.
type Session struct {
	root    string
	dir     string
	created bool
	saved   map[string]bool
}

// NewSession prepares a backup session for the given project root. Nothing
// touches the disk until the first file is added.
func NewSession(root string) *Session {
	stamp := time.Now().Format("20060102_150405")
	return &Session{
		root:  root,
		dir:   filepath.Join(root, Prefix+stamp+"_"+randomSuffix()),
		saved: make(map[string]bool),
	}
}

// Dir returns the session's backup directory path. It may not exist yet.
func (s *Session) Dir() string {
	return s.dir
}

// Created reports whether any pre-image has been written.
func (s *Session) Created() bool {
	return s.created
}

// Add copies the current bytes of the given relative path into the session
// directory. A file is backed up at most once per session, so later blocks
// touching the same file keep the invocation's original pre-image.
// Non-existent files are recorded by their absence.
func (s *Session) Add(rel string) error {
	if s.saved[rel] {
		return nil
	}

	src := filepath.Join(s.root, filepath.FromSlash(rel))
	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		s.saved[rel] = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s for backup: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		s.saved[rel] = true
		return nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s for backup: %w", rel, err)
	}

	dst := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup of %s: %w", rel, err)
	}

	s.created = true
	s.saved[rel] = true
	return nil
}

// List returns all backup directories under root, newest first. The
// timestamped names sort lexically, so name order is age order.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read project root: %w", err)
	}

	var dirs []string
	for _, ent := range entries {
		if ent.IsDir() && strings.HasPrefix(ent.Name(), Prefix) {
			dirs = append(dirs, ent.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	return dirs, nil
}

// Latest returns the most recent backup directory name, if any.
func Latest(root string) (string, bool) {
	dirs, err := List(root)
	if err != nil || len(dirs) == 0 {
		return "", false
	}
	return dirs[0], true
}

// Restore copies every file in the named backup directory back into the
// project tree, recreating parent directories as needed.
func Restore(root, name string) error {
	backupRoot := filepath.Join(root, name)
	info, err := os.Stat(backupRoot)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("backup directory not found: %s", name)
	}

	return filepath.WalkDir(backupRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(backupRoot, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read backup file %s: %w", rel, err)
		}
		dst := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return fmt.Errorf("failed to restore %s: %w", rel, err)
		}
		return nil
	})
}

func randomSuffix() string {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "0000"
	}
	return hex.EncodeToString(b[:])
}
