package matcher

import "strings"

// lineRanges returns (start, end) byte offsets for each logical line of s,
// where end includes the newline if present. CRLF terminators keep the '\r'
// inside the line body.
func lineRanges(s string) [][2]int {
	var out [][2]int
	lineStart := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, [2]int{lineStart, i + 1})
			lineStart = i + 1
		}
	}
	if lineStart < len(s) {
		out = append(out, [2]int{lineStart, len(s)})
	}
	return out
}

// countLines counts logical lines, ignoring a single trailing newline.
func countLines(s string) int {
	if s == "" {
		return 1
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// trimTrailingNewline strips one trailing LF or CRLF so window slices line
// up with needles the parser has already trimmed.
func trimTrailingNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// normalizeNewlines rewrites CRLF to LF for comparison and scoring only.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// normalizeWhitespace collapses runs of spaces and tabs to a single space
// and strips per-line trailing whitespace. Newlines are preserved.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		var b strings.Builder
		b.Grow(len(line))
		lastWasWS := false
		for _, ch := range line {
			if ch == ' ' || ch == '\t' {
				if !lastWasWS {
					b.WriteByte(' ')
					lastWasWS = true
				}
			} else {
				b.WriteRune(ch)
				lastWasWS = false
			}
		}
		out[i] = strings.TrimRight(b.String(), " ")
	}
	return strings.Join(out, "\n")
}

// stripCommonIndent removes the minimum leading indentation shared by all
// non-empty lines, preserving the inner indentation structure.
func stripCommonIndent(s string) string {
	lines := strings.Split(s, "\n")

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := 0
		for _, ch := range line {
			if ch == ' ' || ch == '\t' {
				n++
			} else {
				break
			}
		}
		if minIndent < 0 || n < minIndent {
			minIndent = n
		}
	}
	if minIndent <= 0 {
		return s
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = line
			continue
		}
		removed := 0
		j := 0
		for j < len(line) && removed < minIndent {
			if line[j] == ' ' || line[j] == '\t' {
				removed++
				j++
			} else {
				break
			}
		}
		out[i] = line[j:]
	}
	return strings.Join(out, "\n")
}

// similarity is a normalized Damerau-Levenshtein score in [0, 1]: identical
// strings score 1.0, completely different strings approach 0.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(osaDistance(ra, rb))/float64(longest)
}

// osaDistance is the optimal-string-alignment variant of Damerau-Levenshtein:
// edits are insert, delete, substitute, and transposition of adjacent runes.
func osaDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev2 := make([]int, len(b)+1)
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d := cur[j-1] + 1 // insertion
			if del := prev[j] + 1; del < d {
				d = del
			}
			if sub := prev[j-1] + cost; sub < d {
				d = sub
			}
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if tr := prev2[j-2] + 1; tr < d {
					d = tr
				}
			}
			cur[j] = d
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[len(b)]
}
