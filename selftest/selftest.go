package selftest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"applydiff/engine"
	"applydiff/logger"
)

// Meta describes one fixture case's expectations.
type Meta struct {
	Description         string `json:"description"`
	ExpectOK            int    `json:"expect_ok"`
	ExpectFail          int    `json:"expect_fail"`
	ExpectError         bool   `json:"expect_error"`
	ExpectedLogContains string `json:"expected_log_contains"`
}

// CaseResult is the outcome of one fixture case.
type CaseResult struct {
	Name        string
	Description string
	Passed      bool
	Detail      string
}

// Report summarizes a full gauntlet run.
type Report struct {
	Cases   int
	Passed  int
	Results []CaseResult
}

// OK reports whether every case passed and at least one case ran.
func (r *Report) OK() bool {
	return r.Cases > 0 && r.Passed == r.Cases
}

// Render formats the report the way the selftest command prints it.
func (r *Report) Render() string {
	var sb strings.Builder
	sb.WriteString("Self-test gauntlet\n")
	for _, res := range r.Results {
		mark := "PASS"
		if !res.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&sb, "  [%s] %s — %s\n", mark, res.Name, res.Description)
		if res.Detail != "" {
			fmt.Fprintf(&sb, "         %s\n", res.Detail)
		}
	}
	fmt.Fprintf(&sb, "Cases passed: %d/%d\n", r.Passed, r.Cases)
	if r.OK() {
		sb.WriteString("Self-test PASSED\n")
	} else {
		sb.WriteString("Self-test FAILED\n")
	}
	return sb.String()
}

// Run executes every fixture case under fixtureDir. Each case is a
// directory holding meta.json, patch.txt, an optional before/ tree copied
// into a fresh sandbox, and an optional after/ tree compared byte-for-byte
// against the sandbox once the patch has been applied.
func Run(fixtureDir string) (*Report, error) {
	entries, err := os.ReadDir(fixtureDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture directory: %w", err)
	}

	var names []string
	for _, ent := range entries {
		if ent.IsDir() {
			names = append(names, ent.Name())
		}
	}
	sort.Strings(names)

	report := &Report{}
	for _, name := range names {
		res := runCase(filepath.Join(fixtureDir, name))
		res.Name = name
		report.Cases++
		if res.Passed {
			report.Passed++
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func runCase(caseDir string) CaseResult {
	var res CaseResult

	metaData, err := os.ReadFile(filepath.Join(caseDir, "meta.json"))
	if err != nil {
		res.Detail = fmt.Sprintf("failed to read meta.json: %v", err)
		return res
	}
	var meta Meta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		res.Detail = fmt.Sprintf("failed to parse meta.json: %v", err)
		return res
	}
	res.Description = meta.Description

	patch, err := os.ReadFile(filepath.Join(caseDir, "patch.txt"))
	if err != nil {
		res.Detail = fmt.Sprintf("failed to read patch.txt: %v", err)
		return res
	}

	sandbox, err := os.MkdirTemp("", "applydiff-selftest")
	if err != nil {
		res.Detail = fmt.Sprintf("failed to create sandbox: %v", err)
		return res
	}
	defer os.RemoveAll(sandbox)

	beforeDir := filepath.Join(caseDir, "before")
	if _, err := os.Stat(beforeDir); err == nil {
		if err := copyTree(beforeDir, sandbox); err != nil {
			res.Detail = fmt.Sprintf("failed to copy before tree: %v", err)
			return res
		}
	}

	var logBuf bytes.Buffer
	log := logger.NewWithSink(logger.NewRID(), &logBuf)

	// Fixtures pin their expectations against the built-in defaults, so the
	// user's config must not leak into the gauntlet.
	eng := engine.New(sandbox, log)
	rep, err := eng.Apply(patch)
	if err != nil {
		if meta.ExpectError {
			res.Passed = true
			return res
		}
		res.Detail = fmt.Sprintf("engine error: %v", err)
		return res
	}
	if meta.ExpectError {
		res.Detail = "expected an engine error, got a report"
		return res
	}

	if rep.OK != meta.ExpectOK || rep.Fail != meta.ExpectFail {
		res.Detail = fmt.Sprintf("expected ok=%d fail=%d, got ok=%d fail=%d",
			meta.ExpectOK, meta.ExpectFail, rep.OK, rep.Fail)
		return res
	}

	if meta.ExpectedLogContains != "" && !strings.Contains(logBuf.String(), meta.ExpectedLogContains) {
		res.Detail = fmt.Sprintf("log does not contain %q", meta.ExpectedLogContains)
		return res
	}

	afterDir := filepath.Join(caseDir, "after")
	if _, err := os.Stat(afterDir); err == nil {
		if detail := compareTrees(afterDir, sandbox); detail != "" {
			res.Detail = detail
			return res
		}
	}

	res.Passed = true
	return res
}

// copyTree copies src's files into dst, keeping relative layout.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
}

// compareTrees checks every file under expected against the sandbox,
// byte-for-byte. Files the sandbox grew beyond the expectation (backup
// directories, in particular) are not an error.
func compareTrees(expected, sandbox string) string {
	var detail string
	filepath.WalkDir(expected, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || detail != "" {
			return err
		}
		rel, err := filepath.Rel(expected, path)
		if err != nil {
			return err
		}
		want, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		got, err := os.ReadFile(filepath.Join(sandbox, rel))
		if err != nil {
			detail = fmt.Sprintf("expected file %s missing: %v", rel, err)
			return nil
		}
		if !bytes.Equal(want, got) {
			detail = fmt.Sprintf("file %s differs from expected artifact", rel)
		}
		return nil
	})
	return detail
}
