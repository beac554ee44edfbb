package session

import (
	"fmt"
	"strings"

	"applydiff/prompts"
)

// Briefing builds the proactive guidance preamble for the AI, counts the
// exchange, and appends the patch-format instructions.
func (s *Session) Briefing() string {
	exchange := s.NextExchange()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session health: exchange %d, %d failed blocks so far.\n",
		exchange, s.State.TotalErrors)

	if s.State.TotalErrors >= 3 {
		sb.WriteString("Several recent blocks failed to match. Quote the EXACT current file content in From sections, or lower Fuzz.\n")
	}

	if hot := s.HotFiles(3); len(hot) > 0 {
		fmt.Fprintf(&sb, "Heavily patched files this session: %s. Re-read them before editing again; their content has drifted.\n",
			strings.Join(hot, ", "))
	}

	sb.WriteString("\n")
	sb.WriteString(prompts.PatchFormat())
	return sb.String()
}
