package matcher

import (
	"fmt"
	"strings"

	"applydiff/logger"
)

// ScoreGap is the ambiguity guard: when the best and second-best window
// scores are closer than this, the match is rejected rather than guessed.
const ScoreGap = 0.02

// MaxHaystackSize bounds the fuzzy tier. Above this the sliding-window scan
// is skipped entirely; the exact and normalized tiers still run.
const MaxHaystackSize = 10 * 1024 * 1024

// Tier identifies which matching strategy produced a result.
type Tier int

const (
	TierExact Tier = iota
	TierWhitespace
	TierIndent
	TierFuzzy
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierWhitespace:
		return "whitespace"
	case TierIndent:
		return "indent"
	case TierFuzzy:
		return "fuzzy"
	}
	return "unknown"
}

// Match is a single unambiguous byte range into the original haystack.
// Score is 1.0 for the exact and normalized tiers; Second is the runner-up
// window score from the fuzzy tier, or zero when no second window scored.
type Match struct {
	Start  int
	End    int
	Score  float64
	Second float64
	Tier   Tier
}

// NoMatchError reports that no window reached the fuzz threshold.
type NoMatchError struct {
	Best float64
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no match: best score %.3f below threshold", e.Best)
}

// AmbiguousError reports two windows the scorer cannot tell apart.
type AmbiguousError struct {
	Best   float64
	Second float64
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous match: best %.3f, second %.3f", e.Best, e.Second)
}

// Find locates needle within haystack and returns a single byte range, or a
// structured failure. The strategy is layered, first success wins:
//
//  1. unique exact substring
//  2. whitespace-normalized equality over line windows
//  3. relative-indentation-preserving equality over line windows
//  4. Damerau-Levenshtein similarity over line windows, with the ambiguity
//     guard and the fuzz threshold
//
// Scoring is insensitive to LF vs CRLF; the returned range is always into
// the original bytes.
func Find(haystack, needle string, fuzz float64, log *logger.Logger) (*Match, error) {
	if needle == "" {
		return nil, fmt.Errorf("empty needle")
	}

	log.InfoCtx("matcher", "search_start", "locating needle",
		map[string]any{"needle_len": len(needle), "fuzz": fuzz})

	// Tier 1: exact substring. Unique wins outright; multiple occurrences
	// are indistinguishable to any scorer (best == second == 1.0), so they
	// collapse straight to ambiguity.
	occurrences := exactOccurrences(haystack, needle)
	switch {
	case len(occurrences) == 1:
		log.InfoCtx("matcher", "fast_path_match", "unique exact substring",
			map[string]any{"needle_len": len(needle)})
		return &Match{
			Start: occurrences[0],
			End:   occurrences[0] + len(needle),
			Score: 1.0,
			Tier:  TierExact,
		}, nil
	case len(occurrences) > 1:
		log.InfoCtx("matcher", "ambiguous_match", "multiple exact occurrences",
			map[string]any{"best": 1.0, "second": 1.0, "count": len(occurrences)})
		return nil, &AmbiguousError{Best: 1.0, Second: 1.0}
	}

	ranges := lineRanges(haystack)
	if len(ranges) == 0 {
		log.Info("matcher", "no_candidates", "empty haystack")
		return nil, &NoMatchError{Best: 0}
	}

	needleNorm := normalizeNewlines(needle)
	winLines := countLines(needleNorm)

	// Tier 2: whitespace-normalized equality.
	needleWS := normalizeWhitespace(needleNorm)
	if hits := scanWindowsEqual(haystack, ranges, winLines, needleWS, func(s string) string {
		return normalizeWhitespace(normalizeNewlines(s))
	}); len(hits) == 1 {
		log.InfoCtx("matcher", "normalized_ws_match", "whitespace-normalized window",
			map[string]any{"start": hits[0][0], "end": hits[0][1]})
		return &Match{Start: hits[0][0], End: hits[0][1], Score: 1.0, Tier: TierWhitespace}, nil
	}

	// Tier 3: relative-indentation-preserving equality.
	needleRel := stripCommonIndent(needleNorm)
	if hits := scanWindowsEqual(haystack, ranges, winLines, needleRel, func(s string) string {
		return stripCommonIndent(normalizeNewlines(s))
	}); len(hits) == 1 {
		log.InfoCtx("matcher", "relative_indent_match", "indentation-normalized window",
			map[string]any{"start": hits[0][0], "end": hits[0][1]})
		return &Match{Start: hits[0][0], End: hits[0][1], Score: 1.0, Tier: TierIndent}, nil
	}

	// Tier 4: fuzzy window scan.
	if len(haystack) > MaxHaystackSize {
		log.InfoCtx("matcher", "haystack_too_large", "fuzzy tier skipped",
			map[string]any{"size": len(haystack)})
		return nil, &NoMatchError{Best: 0}
	}

	best, second := -1.0, -1.0
	bestStart, bestEnd := 0, 0
	for i := 0; i+winLines <= len(ranges); i++ {
		start := ranges[i][0]
		end := ranges[i+winLines-1][1]
		slice := trimTrailingNewline(haystack[start:end])

		score := similarity(normalizeNewlines(slice), needleNorm)
		if score > best {
			second = best
			best = score
			bestStart, bestEnd = start, end
		} else if score > second {
			second = score
		}
	}

	if best < 0 {
		log.Info("matcher", "no_candidates", "no windows produced a score")
		return nil, &NoMatchError{Best: 0}
	}
	if best < fuzz {
		log.InfoCtx("matcher", "no_match_threshold", "best window below threshold",
			map[string]any{"best": best, "fuzz": fuzz})
		return nil, &NoMatchError{Best: best}
	}
	if second >= 0 && best-second < ScoreGap {
		log.InfoCtx("matcher", "ambiguous_match", "two windows within the score gap",
			map[string]any{"best": best, "second": second})
		return nil, &AmbiguousError{Best: best, Second: second}
	}

	log.InfoCtx("matcher", "fuzzy_match", "window accepted",
		map[string]any{"start": bestStart, "end": bestEnd, "score": best})
	sec := second
	if sec < 0 {
		sec = 0
	}
	return &Match{Start: bestStart, End: bestEnd, Score: best, Second: sec, Tier: TierFuzzy}, nil
}

// exactOccurrences returns the byte offsets of all non-overlapping exact
// occurrences of needle.
func exactOccurrences(haystack, needle string) []int {
	var out []int
	for pos := 0; ; {
		idx := strings.Index(haystack[pos:], needle)
		if idx < 0 {
			return out
		}
		out = append(out, pos+idx)
		pos += idx + len(needle)
	}
}

// scanWindowsEqual slides a window of winLines lines over the haystack and
// returns the ranges of every window whose transformed text equals needleXfm.
func scanWindowsEqual(haystack string, ranges [][2]int, winLines int, needleXfm string, xfm func(string) string) [][2]int {
	var hits [][2]int
	for i := 0; i+winLines <= len(ranges); i++ {
		start := ranges[i][0]
		end := ranges[i+winLines-1][1]
		slice := trimTrailingNewline(haystack[start:end])
		if xfm(slice) == needleXfm {
			hits = append(hits, [2]int{start, end})
		}
	}
	return hits
}
