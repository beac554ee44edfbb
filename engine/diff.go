package engine

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// unifiedDiff renders the combined unified diff for every file the
// invocation actually changed, in first-touched order. Skipped blocks left
// no trace in the buffers, so the diff covers the successful subset only.
func unifiedDiff(states map[string]*fileState, order []string) string {
	var sb strings.Builder
	for _, rel := range order {
		st := states[rel]
		if !st.applied || st.content == st.origContent {
			continue
		}

		fromFile := "a/" + rel
		if !st.origExists {
			fromFile = "/dev/null"
		}

		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        splitLines(st.origContent),
			B:        splitLines(st.content),
			FromFile: fromFile,
			ToFile:   "b/" + rel,
			Context:  3,
		})
		if err != nil {
			continue
		}
		sb.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// splitLines is difflib.SplitLines without the phantom empty line it
// produces for empty input, which would show up in created-file hunks.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(s)
}
