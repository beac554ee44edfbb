package session

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// FileName is the session-health file kept at the project root.
const FileName = ".applydiff_session.json"

// MaxFileSize guards against loading a runaway session file.
const MaxFileSize = 5_000_000

// FileMetrics tracks patch history for one file within the session.
type FileMetrics struct {
	OriginalHash   string  `json:"original_hash"`
	PatchCount     int     `json:"patch_count"`
	PercentChanged float64 `json:"percent_changed"`
	IsKeystone     bool    `json:"is_keystone"`
}

// State is the persisted session-health record.
type State struct {
	Version       int                     `json:"version"`
	LastModified  time.Time               `json:"last_modified"`
	ExchangeCount int                     `json:"exchange_count"`
	TotalErrors   int                     `json:"total_errors"`
	Files         map[string]*FileMetrics `json:"files"`
}

// Session couples a state with its on-disk location.
type Session struct {
	State State
	path  string
}

// Load reads the session file from the project root, or starts a fresh
// state if none exists. A corrupt or oversized file is an error.
func Load(root string) (*Session, error) {
	path := filepath.Join(root, FileName)
	s := &Session{
		State: State{
			Version:      1,
			LastModified: time.Now(),
			Files:        make(map[string]*FileMetrics),
		},
		path: path,
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat session file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("session file exceeds %d byte limit", MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	if err := json.Unmarshal(data, &s.State); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if s.State.Files == nil {
		s.State.Files = make(map[string]*FileMetrics)
	}
	return s, nil
}

// Save writes the session state back to disk.
func (s *Session) Save() error {
	s.State.LastModified = time.Now()
	data, err := json.MarshalIndent(&s.State, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// RecordError counts one failed block toward the session's error total.
func (s *Session) RecordError() {
	s.State.TotalErrors++
}

// RecordSuccess notes a successful patch application for a file, updating
// its patch count and the share of lines this patch changed (before versus
// after). Only the first-seen content's hash is kept.
func (s *Session) RecordSuccess(file, before, after string) {
	m, ok := s.State.Files[file]
	if !ok {
		m = &FileMetrics{OriginalHash: HashContent(before)}
		s.State.Files[file] = m
	}
	m.PatchCount++
	m.PercentChanged = percentChanged(before, after)
}

// NextExchange counts one more patch exchange and returns its number.
func (s *Session) NextExchange() int {
	s.State.ExchangeCount++
	return s.State.ExchangeCount
}

// Refresh resets the counters for a new checkpoint.
func (s *Session) Refresh() {
	s.State.ExchangeCount = 0
	s.State.TotalErrors = 0
}

// HotFiles returns the files patched most often this session, up to n.
func (s *Session) HotFiles(n int) []string {
	type entry struct {
		file  string
		count int
	}
	var entries []entry
	for file, m := range s.State.Files {
		entries = append(entries, entry{file, m.PatchCount})
	}
	// Order by patch count, ties by name for stable output.
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].count > entries[i].count ||
				(entries[j].count == entries[i].count && entries[j].file < entries[i].file) {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	var out []string
	for i := 0; i < len(entries) && i < n; i++ {
		out = append(out, entries[i].file)
	}
	return out
}

// HashContent returns the sha1 hex digest of a file's content.
func HashContent(content string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(content)))
}

// percentChanged measures the line-level difference between two versions of
// a file, as a percentage of the new line count.
func percentChanged(before, after string) float64 {
	if before == "" {
		if after == "" {
			return 0
		}
		return 100
	}

	dmp := diffmatchpatch.New()
	a, b, _ := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)

	changed := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffInsert {
			changed += len([]rune(d.Text))
		}
	}

	total := strings.Count(after, "\n")
	if !strings.HasSuffix(after, "\n") && after != "" {
		total++
	}
	if total < 1 {
		total = 1
	}
	return float64(changed) / float64(total) * 100
}
