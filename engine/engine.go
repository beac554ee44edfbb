package engine

import (
	"errors"
	"fmt"
	"os"

	"applydiff/applier"
	"applydiff/backup"
	"applydiff/config"
	"applydiff/logger"
	"applydiff/matcher"
	"applydiff/parser"
)

// Status is the per-block outcome classification.
type Status string

const (
	StatusApplied           Status = "Applied"
	StatusSkippedNoMatch    Status = "Skipped-NoMatch"
	StatusSkippedAmbiguous  Status = "Skipped-Ambiguous"
	StatusSkippedPathEscape Status = "Skipped-PathEscape"
	StatusSkippedParseError Status = "Skipped-ParseError"
	StatusSkippedIOError    Status = "Skipped-IOError"
)

// Outcome records how one block fared, in input order.
type Outcome struct {
	Index       int     `json:"index"`
	File        string  `json:"file"`
	Status      Status  `json:"status"`
	Detail      string  `json:"detail"`
	BestScore   float64 `json:"best_score,omitempty"`
	SecondScore float64 `json:"second_score,omitempty"`
}

// Report aggregates an invocation: counts, the unified diff of the
// successful subset, per-block outcomes, and (for apply) the backup
// directory when at least one pre-image was copied into it. An apply whose
// only mutations create new files reports no backup directory.
type Report struct {
	OK        int       `json:"ok"`
	Fail      int       `json:"fail"`
	Diff      string    `json:"diff"`
	Outcomes  []Outcome `json:"outcomes"`
	BackupDir string    `json:"backup_dir,omitempty"`
}

// Engine applies patch documents to a project tree. Preview and Apply run
// the identical block pipeline over shared in-memory buffers; Apply adds
// backup and persistence. The engine holds no process-wide state, so
// concurrent engines on disjoint trees are safe.
type Engine struct {
	root        string
	log         *logger.Logger
	defaultFuzz float64
	maxFileSize int64
}

// New creates an engine rooted at the given project directory, with the
// built-in defaults for the fuzz threshold and the per-file size bound.
func New(root string, log *logger.Logger) *Engine {
	return &Engine{
		root:        root,
		log:         log,
		defaultFuzz: parser.DefaultFuzz,
		maxFileSize: applier.MaxFileSize,
	}
}

// NewWithConfig creates an engine that honors the loaded configuration:
// cfg.DefaultFuzz applies to blocks that omit fuzz=, and cfg.MaxFileSize
// replaces the built-in per-file bound.
func NewWithConfig(root string, log *logger.Logger, cfg *config.Config) *Engine {
	e := New(root, log)
	if cfg == nil {
		return e
	}
	if cfg.DefaultFuzz > 0 {
		e.defaultFuzz = cfg.DefaultFuzz
	}
	if cfg.MaxFileSize > 0 {
		e.maxFileSize = cfg.MaxFileSize
	}
	return e
}

// Preview parses and simulates the patch, producing the same per-block
// outcomes and diff an Apply would, without writing anything.
func (e *Engine) Preview(patch []byte) (*Report, error) {
	return e.run(patch, false)
}

// Apply parses and applies the patch, backing up each file's pre-image
// before its first mutation and persisting via atomic renames.
func (e *Engine) Apply(patch []byte) (*Report, error) {
	return e.run(patch, true)
}

// fileState is one file's in-memory buffer for the invocation. Later blocks
// see earlier blocks' edits, whether or not anything hit the disk yet.
type fileState struct {
	content     string
	exists      bool
	origContent string
	origExists  bool
	applied     bool
}

func (e *Engine) run(patch []byte, persist bool) (*Report, error) {
	blocks, err := parser.ParseWithDefaults(patch, e.defaultFuzz)
	if err != nil {
		var perr *parser.Error
		kind := KindParseMalformed
		if errors.As(err, &perr) && perr.Code == parser.CodeLimit {
			kind = KindParseLimit
		}
		return nil, &Error{Kind: kind, Message: "patch rejected", Err: err}
	}

	report := &Report{}
	states := make(map[string]*fileState)
	var order []string

	var bak *backup.Session
	if persist {
		bak = backup.NewSession(e.root)
	}

	for i, blk := range blocks {
		outcome := e.runBlock(i, blk, states, &order, bak, persist)
		if outcome == nil {
			// Backup failure: fatal, no further blocks.
			return nil, &Error{
				Kind:    KindBackupFailure,
				Message: fmt.Sprintf("backup failed for %s", blk.File),
			}
		}
		if outcome.Status == StatusApplied {
			report.OK++
		} else {
			report.Fail++
		}
		report.Outcomes = append(report.Outcomes, *outcome)
	}

	report.Diff = unifiedDiff(states, order)
	if bak != nil && bak.Created() {
		report.BackupDir = bak.Dir()
	}
	return report, nil
}

// runBlock evaluates one block. It returns nil only on a backup failure,
// which aborts the invocation.
func (e *Engine) runBlock(i int, blk parser.Block, states map[string]*fileState, order *[]string, bak *backup.Session, persist bool) *Outcome {
	outcome := &Outcome{Index: i, File: blk.File}

	full, err := applier.Resolve(e.root, blk.File, e.log)
	if err != nil {
		outcome.Status = StatusSkippedPathEscape
		outcome.Detail = err.Error()
		return outcome
	}

	st, ok := states[blk.File]
	if !ok {
		var ioErr string
		st, ioErr = e.loadFile(full)
		if ioErr != "" {
			outcome.Status = StatusSkippedIOError
			outcome.Detail = ioErr
			return outcome
		}
		states[blk.File] = st
		*order = append(*order, blk.File)
	}

	if blk.Mode == parser.ModePatch && blk.From != "" && !st.exists {
		outcome.Status = StatusSkippedNoMatch
		outcome.Detail = "file does not exist"
		return outcome
	}

	res, err := applier.Apply(st.content, st.exists, blk, e.log)
	if err != nil {
		var nm *matcher.NoMatchError
		var amb *matcher.AmbiguousError
		switch {
		case errors.As(err, &nm):
			outcome.Status = StatusSkippedNoMatch
			outcome.Detail = err.Error()
			outcome.BestScore = nm.Best
		case errors.As(err, &amb):
			outcome.Status = StatusSkippedAmbiguous
			outcome.Detail = err.Error()
			outcome.BestScore = amb.Best
			outcome.SecondScore = amb.Second
		default:
			outcome.Status = StatusSkippedIOError
			outcome.Detail = err.Error()
		}
		return outcome
	}

	if persist {
		if err := bak.Add(blk.File); err != nil {
			e.log.ErrorCtx("backup", "copy_failed", err.Error(),
				map[string]any{"file": blk.File})
			return nil
		}
		if err := applier.WriteFileAtomic(full, res.Content); err != nil {
			outcome.Status = StatusSkippedIOError
			outcome.Detail = err.Error()
			return outcome
		}
	}

	st.content = res.Content
	st.exists = true
	st.applied = true

	outcome.Status = StatusApplied
	outcome.BestScore = res.Score
	outcome.SecondScore = res.Second
	if res.Created {
		outcome.Detail = "created"
	} else {
		outcome.Detail = fmt.Sprintf("matched bytes [%d,%d)", res.Start, res.End)
	}
	return outcome
}

// loadFile reads one target into a fresh fileState, enforcing the engine's
// per-file size bound. The second return is a non-empty detail string on
// I/O errors.
func (e *Engine) loadFile(full string) (*fileState, string) {
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return &fileState{}, ""
	}
	if err != nil {
		return nil, fmt.Sprintf("stat failed: %v", err)
	}
	if info.Size() > e.maxFileSize {
		return nil, fmt.Sprintf("file exceeds %d byte limit", e.maxFileSize)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Sprintf("read failed: %v", err)
	}
	return &fileState{
		content:     string(data),
		exists:      true,
		origContent: string(data),
		origExists:  true,
	}, ""
}
