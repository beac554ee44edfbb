package applier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"applydiff/logger"
	"applydiff/matcher"
	"applydiff/parser"
)

// MaxFileSize is the per-file buffer bound. Larger targets are skipped.
const MaxFileSize = 10 * 1024 * 1024

// PathEscapeError marks a block whose path points outside the project root.
type PathEscapeError struct {
	Path string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("path escapes project root: %s", e.Path)
}

// Result is the outcome of applying one block to an in-memory buffer.
type Result struct {
	Content string
	Start   int
	End     int
	Score   float64
	Second  float64
	Created bool
}

// Resolve validates a block's relative POSIX path against root and returns
// the absolute target path. Absolute paths and any parent-directory segment
// are rejected before resolution; the resolved path must still sit under
// root after lexical normalization.
func Resolve(root, file string, log *logger.Logger) (string, error) {
	if file == "" || strings.HasPrefix(file, "/") || filepath.IsAbs(file) {
		log.InfoCtx("applier", "path_escape_rejected", "absolute or empty path",
			map[string]any{"path": file})
		return "", &PathEscapeError{Path: file}
	}
	for _, seg := range strings.Split(file, "/") {
		if seg == ".." {
			log.InfoCtx("applier", "path_escape_rejected", "parent-directory segment",
				map[string]any{"path": file})
			return "", &PathEscapeError{Path: file}
		}
	}

	cleanRoot := filepath.Clean(root)
	full := filepath.Join(cleanRoot, filepath.FromSlash(file))
	if full != cleanRoot && !strings.HasPrefix(full, cleanRoot+string(filepath.Separator)) {
		log.InfoCtx("applier", "path_escape_rejected", "resolved outside root",
			map[string]any{"path": file})
		return "", &PathEscapeError{Path: file}
	}
	return full, nil
}

// Apply applies one block to the file's in-memory content and returns the
// new content. It never touches the filesystem; persistence is the engine's
// job. exists reports whether the target currently exists on disk (or in the
// invocation's buffer after an earlier create).
func Apply(content string, exists bool, blk parser.Block, log *logger.Logger) (*Result, error) {
	if blk.Mode == parser.ModeReplace {
		return &Result{
			Content: blk.To,
			Start:   0,
			End:     len(content),
			Score:   1.0,
			Created: !exists,
		}, nil
	}

	// Empty FROM is exclusively a create/append signal: it never matches
	// inside a non-empty file.
	if blk.From == "" {
		if !exists || content == "" {
			return &Result{
				Content: blk.To,
				Start:   0,
				End:     0,
				Score:   1.0,
				Created: !exists,
			}, nil
		}
		newContent := content
		if !strings.HasSuffix(newContent, "\n") && blk.To != "" {
			newContent += "\n"
		}
		newContent += blk.To
		return &Result{
			Content: newContent,
			Start:   len(content),
			End:     len(content),
			Score:   1.0,
		}, nil
	}

	m, err := matcher.Find(content, blk.From, blk.Fuzz, log)
	if err != nil {
		return nil, err
	}

	to := harmonizeEOL(blk.To, content[m.Start:m.End])
	return &Result{
		Content: content[:m.Start] + to + content[m.End:],
		Start:   m.Start,
		End:     m.End,
		Score:   m.Score,
		Second:  m.Second,
	}, nil
}

// harmonizeEOL rewrites the replacement's line endings to the dominant style
// of the matched region. Bytes outside the region are never rewritten, and
// no whole-file normalization happens. An empty replacement deletes the
// region outright, trailing newline included.
func harmonizeEOL(to, matched string) string {
	if to == "" {
		return ""
	}
	crlf := strings.Count(matched, "\r\n")
	lf := strings.Count(matched, "\n") - crlf
	if crlf+lf == 0 {
		return to
	}

	eol := "\n"
	if crlf >= lf {
		eol = "\r\n"
	}

	out := strings.ReplaceAll(to, "\r\n", "\n")
	if eol == "\r\n" {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}

	// Window matches include the region's trailing newline; a trimmed
	// replacement must carry it forward in the region's style.
	if strings.HasSuffix(matched, "\n") && !strings.HasSuffix(out, "\n") {
		out += eol
	}
	return out
}

// WriteFileAtomic writes content to path via a temp file in the same
// directory and an atomic rename, creating parent directories as needed.
// On any failure the original file is left untouched.
func WriteFileAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".applydiff-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
