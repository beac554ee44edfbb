package session

import (
	"os"
	"path/filepath"

	"applydiff/engine"
)

// RecordReport folds one apply report into the session state. Pre-images
// come from the invocation's backup directory; files the apply created have
// no pre-image there and count as fully new.
func (s *Session) RecordReport(root string, rep *engine.Report) {
	seen := make(map[string]bool)
	for _, o := range rep.Outcomes {
		if o.Status != engine.StatusApplied {
			s.RecordError()
			continue
		}
		if seen[o.File] {
			continue
		}
		seen[o.File] = true

		after, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(o.File)))
		if err != nil {
			continue
		}
		var before []byte
		if rep.BackupDir != "" {
			before, _ = os.ReadFile(filepath.Join(rep.BackupDir, filepath.FromSlash(o.File)))
		}
		s.RecordSuccess(o.File, string(before), string(after))
	}
}
