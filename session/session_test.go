package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "applydiff-session-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestLoadFreshSession(t *testing.T) {
	root := tempRoot(t)

	s, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.State.Version != 1 {
		t.Errorf("Expected version 1, got %d", s.State.Version)
	}
	if s.State.ExchangeCount != 0 || s.State.TotalErrors != 0 {
		t.Errorf("Expected zeroed counters")
	}
}

func TestSaveAndReload(t *testing.T) {
	root := tempRoot(t)

	s, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.RecordError()
	s.RecordError()
	s.RecordSuccess("a.txt", "old content\n", "new content\n")
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	re, err := Load(root)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if re.State.TotalErrors != 2 {
		t.Errorf("Expected 2 errors, got %d", re.State.TotalErrors)
	}
	m, ok := re.State.Files["a.txt"]
	if !ok {
		t.Fatalf("Expected metrics for a.txt")
	}
	if m.PatchCount != 1 {
		t.Errorf("Expected patch count 1, got %d", m.PatchCount)
	}
	if m.OriginalHash != HashContent("old content\n") {
		t.Errorf("Expected hash of the first-seen content")
	}
}

func TestRecordSuccessKeepsOriginalHash(t *testing.T) {
	root := tempRoot(t)
	s, _ := Load(root)

	s.RecordSuccess("a.txt", "v1\n", "v2\n")
	s.RecordSuccess("a.txt", "v2\n", "v3\n")

	m := s.State.Files["a.txt"]
	if m.PatchCount != 2 {
		t.Errorf("Expected patch count 2, got %d", m.PatchCount)
	}
	if m.OriginalHash != HashContent("v1\n") {
		t.Errorf("Original hash must be pinned to the first-seen content")
	}
}

func TestPercentChanged(t *testing.T) {
	if p := percentChanged("", "anything\n"); p != 100 {
		t.Errorf("Created file should be 100%% changed, got %v", p)
	}
	if p := percentChanged("a\nb\nc\n", "a\nb\nc\n"); p != 0 {
		t.Errorf("Identical content should be 0%% changed, got %v", p)
	}
	p := percentChanged("a\nb\nc\nd\n", "a\nX\nc\nd\n")
	if p != 25 {
		t.Errorf("One of four lines changed should be 25%%, got %v", p)
	}
}

func TestRefreshResetsCounters(t *testing.T) {
	root := tempRoot(t)
	s, _ := Load(root)

	s.RecordError()
	s.NextExchange()
	s.Refresh()
	if s.State.ExchangeCount != 0 || s.State.TotalErrors != 0 {
		t.Errorf("Expected counters reset")
	}
}

func TestCorruptSessionFileIsError(t *testing.T) {
	root := tempRoot(t)
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	_, err := Load(root)
	if err == nil {
		t.Fatalf("Expected error for corrupt session file")
	}
}

func TestHotFiles(t *testing.T) {
	root := tempRoot(t)
	s, _ := Load(root)

	for i := 0; i < 3; i++ {
		s.RecordSuccess("busy.txt", "a\n", "b\n")
	}
	s.RecordSuccess("quiet.txt", "a\n", "b\n")

	hot := s.HotFiles(1)
	if len(hot) != 1 || hot[0] != "busy.txt" {
		t.Errorf("Expected busy.txt as hottest, got %v", hot)
	}
}

func TestBriefingMentionsHealth(t *testing.T) {
	root := tempRoot(t)
	s, _ := Load(root)
	s.RecordError()
	s.RecordError()
	s.RecordError()

	briefing := s.Briefing()
	if !strings.Contains(briefing, "exchange 1") {
		t.Errorf("Expected exchange count in briefing: %q", briefing)
	}
	if !strings.Contains(briefing, "APPLYDIFF AFB-1") {
		t.Errorf("Expected patch format instructions in briefing")
	}
	if !strings.Contains(briefing, "lower Fuzz") {
		t.Errorf("Expected error guidance after repeated failures")
	}
	if s.State.ExchangeCount != 1 {
		t.Errorf("Briefing should count the exchange")
	}
}
