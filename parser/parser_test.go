package parser

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseClassicBlock(t *testing.T) {
	input := ">>> file: src/main.go | fuzz=0.90\n--- from\nold line\n--- to\nnew line\n<<<\n"

	blocks, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 block, got %d", len(blocks))
	}

	blk := blocks[0]
	if blk.File != "src/main.go" {
		t.Errorf("Expected file src/main.go, got %q", blk.File)
	}
	if blk.From != "old line" {
		t.Errorf("Expected from 'old line', got %q", blk.From)
	}
	if blk.To != "new line" {
		t.Errorf("Expected to 'new line', got %q", blk.To)
	}
	if blk.Fuzz != 0.90 {
		t.Errorf("Expected fuzz 0.90, got %v", blk.Fuzz)
	}
	if blk.Mode != ModePatch {
		t.Errorf("Expected patch mode, got %v", blk.Mode)
	}
}

func TestParseDefaultFuzz(t *testing.T) {
	input := ">>> file: a.txt\n--- from\nx\n--- to\ny\n<<<\n"

	blocks, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if blocks[0].Fuzz != DefaultFuzz {
		t.Errorf("Expected default fuzz %v, got %v", DefaultFuzz, blocks[0].Fuzz)
	}
}

func TestParseWithDefaultsFuzz(t *testing.T) {
	input := ">>> file: a.txt\n--- from\nx\n--- to\ny\n<<<\n" +
		">>> file: b.txt | fuzz=0.95\n--- from\nx\n--- to\ny\n<<<\n"

	blocks, err := ParseWithDefaults([]byte(input), 0.6)
	if err != nil {
		t.Fatalf("ParseWithDefaults failed: %v", err)
	}
	if blocks[0].Fuzz != 0.6 {
		t.Errorf("Expected configured default fuzz 0.6, got %v", blocks[0].Fuzz)
	}
	if blocks[1].Fuzz != 0.95 {
		t.Errorf("Expected explicit fuzz to win, got %v", blocks[1].Fuzz)
	}

	// Out-of-range defaults are clamped like block-level values.
	blocks, err = ParseWithDefaults([]byte(input), 1.5)
	if err != nil {
		t.Fatalf("ParseWithDefaults failed: %v", err)
	}
	if blocks[0].Fuzz != 1.0 {
		t.Errorf("Expected clamped default fuzz 1.0, got %v", blocks[0].Fuzz)
	}
}

func TestParseReplaceMode(t *testing.T) {
	input := ">>> file: a.txt | mode=replace\n--- from\n--- to\nentire new file\n<<<\n"

	blocks, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if blocks[0].Mode != ModeReplace {
		t.Errorf("Expected replace mode, got %v", blocks[0].Mode)
	}
	if blocks[0].From != "" {
		t.Errorf("Expected empty from, got %q", blocks[0].From)
	}
}

func TestParseRegexModeRejected(t *testing.T) {
	input := ">>> file: a.txt | mode=regex\n--- from\nx\n--- to\ny\n<<<\n"

	_, err := Parse([]byte(input))
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Expected parse error, got %v", err)
	}
	if perr.Code != CodeMalformed {
		t.Errorf("Expected malformed code, got %v", perr.Code)
	}
}

func TestParseMissingClosingSentinelIsFatal(t *testing.T) {
	input := ">>> file: a.txt\n--- from\nx\n--- to\ny\n"

	_, err := Parse([]byte(input))
	if err == nil {
		t.Fatalf("Expected error for missing '<<<', got blocks")
	}
	if !strings.Contains(err.Error(), "<<<") {
		t.Errorf("Expected error to mention '<<<': %v", err)
	}
}

func TestParseMalformedBlockRejectsWholeDocument(t *testing.T) {
	input := ">>> file: good.txt\n--- from\na\n--- to\nb\n<<<\n" +
		">>> file: bad.txt\n--- from\na\n"

	_, err := Parse([]byte(input))
	if err == nil {
		t.Fatalf("Expected whole-document rejection, got success")
	}
}

func TestParseMultipleBlocksPreserveOrder(t *testing.T) {
	input := ">>> file: one.txt\n--- from\na\n--- to\nb\n<<<\n" +
		">>> file: two.txt\n--- from\nc\n--- to\nd\n<<<\n" +
		">>> file: one.txt\n--- from\ne\n--- to\nf\n<<<\n"

	blocks, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("Expected 3 blocks, got %d", len(blocks))
	}
	want := []string{"one.txt", "two.txt", "one.txt"}
	for i, w := range want {
		if blocks[i].File != w {
			t.Errorf("Block %d: expected %s, got %s", i, w, blocks[i].File)
		}
	}
}

func TestParseIgnoresSurroundingNoise(t *testing.T) {
	input := "Sure! Here is the patch you asked for:\n\n" +
		">>> file: a.txt\n--- from\nx\n--- to\ny\n<<<\n\n" +
		"Let me know if you need anything else.\n"

	blocks, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(blocks) != 1 {
		t.Errorf("Expected 1 block, got %d", len(blocks))
	}
}

func TestParseEmptyDocument(t *testing.T) {
	_, err := Parse([]byte("nothing to see here\n"))
	if err == nil {
		t.Fatalf("Expected error for document without blocks")
	}
}

func TestParseMultilineContentBytePreserved(t *testing.T) {
	input := ">>> file: a.go\n--- from\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n--- to\nfunc main() {\n\tfmt.Println(\"bye\")\n}\n<<<\n"

	blocks, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if blocks[0].From != "func main() {\n\tfmt.Println(\"hi\")\n}" {
		t.Errorf("From not byte-preserved: %q", blocks[0].From)
	}
}

func TestParseArmoredBlock(t *testing.T) {
	from := base64.StdEncoding.EncodeToString([]byte("old text\n"))
	to := base64.StdEncoding.EncodeToString([]byte("new text\n"))
	input := "-----BEGIN APPLYDIFF AFB-1-----\n" +
		"Path: docs/readme.md\n" +
		"Fuzz: 0.80\n" +
		"Encoding: base64\n" +
		"From:\n" + from + "\n" +
		"To:\n" + to + "\n" +
		"-----END APPLYDIFF AFB-1-----\n"

	blocks, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	blk := blocks[0]
	if blk.File != "docs/readme.md" {
		t.Errorf("Expected path docs/readme.md, got %q", blk.File)
	}
	if blk.From != "old text\n" {
		t.Errorf("Expected decoded from, got %q", blk.From)
	}
	if blk.To != "new text\n" {
		t.Errorf("Expected decoded to, got %q", blk.To)
	}
	if blk.Fuzz != 0.80 {
		t.Errorf("Expected fuzz 0.80, got %v", blk.Fuzz)
	}
	if !blk.Armored {
		t.Errorf("Expected armored envelope flag")
	}
}

func TestParseArmoredWrappedBase64(t *testing.T) {
	payload := strings.Repeat("the quick brown fox jumps over the lazy dog\n", 8)
	enc := base64.StdEncoding.EncodeToString([]byte(payload))

	// Wrap the payload at 20 chars with stray indentation.
	var wrapped strings.Builder
	for i := 0; i < len(enc); i += 20 {
		end := i + 20
		if end > len(enc) {
			end = len(enc)
		}
		wrapped.WriteString("  " + enc[i:end] + "\n")
	}

	input := "-----BEGIN APPLYDIFF AFB-1-----\n" +
		"Path: a.txt\n" +
		"From:\n" +
		"To:\n" + wrapped.String() +
		"-----END APPLYDIFF AFB-1-----\n"

	blocks, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if blocks[0].To != payload {
		t.Errorf("Wrapped base64 did not round-trip")
	}
	if blocks[0].From != "" {
		t.Errorf("Expected empty from, got %q", blocks[0].From)
	}
}

func TestParseArmoredBadBase64(t *testing.T) {
	input := "-----BEGIN APPLYDIFF AFB-1-----\n" +
		"Path: a.txt\n" +
		"From:\n!!!not-base64!!!\n" +
		"To:\n" +
		"-----END APPLYDIFF AFB-1-----\n"

	_, err := Parse([]byte(input))
	if err == nil {
		t.Fatalf("Expected error for invalid base64")
	}
}

func TestParseArmoredMissingPath(t *testing.T) {
	input := "-----BEGIN APPLYDIFF AFB-1-----\n" +
		"From:\n" +
		"To:\n" +
		"-----END APPLYDIFF AFB-1-----\n"

	_, err := Parse([]byte(input))
	if err == nil {
		t.Fatalf("Expected error for missing Path header")
	}
}

func TestParseArmoredMissingEndMarker(t *testing.T) {
	input := "-----BEGIN APPLYDIFF AFB-1-----\n" +
		"Path: a.txt\n" +
		"From:\n" +
		"To:\n"

	_, err := Parse([]byte(input))
	if err == nil {
		t.Fatalf("Expected error for missing end marker")
	}
}

func TestParseTooManyBlocks(t *testing.T) {
	var sb strings.Builder
	for i := 0; i <= MaxBlocks; i++ {
		fmt.Fprintf(&sb, ">>> file: f%d.txt\n--- from\na\n--- to\nb\n<<<\n", i)
	}

	_, err := Parse([]byte(sb.String()))
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Expected parse error, got %v", err)
	}
	if perr.Code != CodeLimit {
		t.Errorf("Expected limit code, got %v", perr.Code)
	}
}

func TestParseTooManyLinesPerBlock(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(">>> file: big.txt\n--- from\na\n--- to\n")
	for i := 0; i <= MaxLinesPerBlock; i++ {
		sb.WriteString("line\n")
	}
	sb.WriteString("<<<\n")

	_, err := Parse([]byte(sb.String()))
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Expected parse error, got %v", err)
	}
	if perr.Code != CodeLimit {
		t.Errorf("Expected limit code, got %v", perr.Code)
	}
}

func TestParseMixedEnvelopes(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte("armored"))
	input := ">>> file: classic.txt\n--- from\na\n--- to\nb\n<<<\n" +
		"-----BEGIN APPLYDIFF AFB-1-----\n" +
		"Path: armored.txt\n" +
		"From:\n" +
		"To:\n" + enc + "\n" +
		"-----END APPLYDIFF AFB-1-----\n"

	blocks, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Armored || !blocks[1].Armored {
		t.Errorf("Envelope flags wrong: %v %v", blocks[0].Armored, blocks[1].Armored)
	}
}
