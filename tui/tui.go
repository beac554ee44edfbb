package tui

import (
	"bytes"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"applydiff/backup"
	"applydiff/config"
	"applydiff/engine"
	"applydiff/git"
	"applydiff/logger"
	"applydiff/session"
	"applydiff/source"
	"applydiff/watcher"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94"))
	addStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	delStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type viewMode int

const (
	viewHome viewMode = iota
	viewPreview
	viewResult
	viewHistory
)

type treeChangedMsg struct{}

type model struct {
	root    string
	cfg     *config.Config
	watch   *watcher.Watcher
	logBuf  *bytes.Buffer
	patch   []byte
	preview *engine.Report
	result  *engine.Report
	backups []string
	cursor  int
	status  string
	dirty   bool
	width   int
	height  int
	scroll  int
	view    viewMode
}

func (m model) Init() tea.Cmd {
	if m.watch != nil {
		return waitForChange(m.watch)
	}
	return nil
}

// waitForChange blocks on the next tree change so a stale preview can be
// recomputed against the current file contents.
func waitForChange(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-w.Events; !ok {
			return nil
		}
		return treeChangedMsg{}
	}
}

func (m model) newEngine() *engine.Engine {
	m.logBuf.Reset()
	return engine.NewWithConfig(m.root, logger.NewWithSink(logger.NewRID(), m.logBuf), m.cfg)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case treeChangedMsg:
		// The tree shifted under a pending preview; recompute it.
		if m.view == viewPreview && m.patch != nil {
			m.runPreview()
			m.status = "Tree changed on disk; preview refreshed"
		}
		if m.watch != nil {
			return m, waitForChange(m.watch)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "p":
		patch, err := source.Read("")
		if err != nil {
			m.status = fmt.Sprintf("Could not read patch: %v", err)
			return m, nil
		}
		m.patch = patch
		m.runPreview()
		m.scroll = 0
		m.view = viewPreview

	case "a":
		if m.view != viewPreview || m.patch == nil {
			return m, nil
		}
		m.runApply()
		m.scroll = 0
		m.view = viewResult

	case "h":
		dirs, err := backup.List(m.root)
		if err != nil {
			m.status = fmt.Sprintf("Could not list backups: %v", err)
			return m, nil
		}
		m.backups = dirs
		m.cursor = 0
		m.view = viewHistory

	case "r":
		if m.view != viewHistory || len(m.backups) == 0 {
			return m, nil
		}
		name := m.backups[m.cursor]
		if err := backup.Restore(m.root, name); err != nil {
			m.status = fmt.Sprintf("Restore failed: %v", err)
		} else {
			m.status = fmt.Sprintf("Restored %s", name)
		}

	case "esc":
		m.view = viewHome
		m.status = ""

	case "up", "k":
		if m.view == viewHistory && m.cursor > 0 {
			m.cursor--
		} else if m.scroll > 0 {
			m.scroll--
		}

	case "down", "j":
		if m.view == viewHistory && m.cursor < len(m.backups)-1 {
			m.cursor++
		} else if m.view == viewPreview || m.view == viewResult {
			m.scroll++
		}
	}
	return m, nil
}

func (m *model) runPreview() {
	dirty, err := git.IsDirty(m.root)
	m.dirty = err == nil && dirty

	report, err := m.newEngine().Preview(m.patch)
	if err != nil {
		m.preview = nil
		m.status = fmt.Sprintf("Patch rejected: %v", err)
		return
	}
	m.preview = report
	m.status = ""
}

func (m *model) runApply() {
	report, err := m.newEngine().Apply(m.patch)
	if err != nil {
		m.result = nil
		m.status = fmt.Sprintf("Apply failed: %v", err)
		return
	}
	m.result = report
	m.recordSession(report)
	m.status = ""
}

// recordSession feeds the apply outcome into the session-health file. The
// engine knows nothing about sessions; this is shell bookkeeping.
func (m *model) recordSession(report *engine.Report) {
	s, err := session.Load(m.root)
	if err != nil {
		return
	}
	s.RecordReport(m.root, report)
	s.Save()
}

func (m model) View() string {
	var body string
	switch m.view {
	case viewPreview:
		body = m.reportView("Preview (nothing written)", m.preview, "p: reload  a: apply  esc: back  q: quit")
	case viewResult:
		body = m.reportView("Applied", m.result, "p: new patch  h: history  esc: back  q: quit")
	case viewHistory:
		body = m.historyView()
	default:
		body = m.homeView()
	}

	out := titleStyle.Render("applydiff") + "\n" + body
	if m.status != "" {
		out += "\n" + dimStyle.Render(m.status)
	}
	return out
}

func (m model) homeView() string {
	lines := []string{
		"Paste a patch into your clipboard, then:",
		"",
		"  p  preview the patch against " + m.root,
		"  h  browse backup history",
		"  q  quit",
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m model) reportView(heading string, report *engine.Report, help string) string {
	if report == nil {
		return panelStyle.Render("No report. " + help)
	}

	var sb strings.Builder
	sb.WriteString(heading + "\n")
	if m.dirty {
		sb.WriteString(failStyle.Render("Warning: worktree has uncommitted changes") + "\n")
	}
	fmt.Fprintf(&sb, "Blocks: %s  %s\n\n",
		okStyle.Render(fmt.Sprintf("%d ok", report.OK)),
		failStyle.Render(fmt.Sprintf("%d failed", report.Fail)))

	for _, o := range report.Outcomes {
		line := fmt.Sprintf("#%d %-30s %s", o.Index+1, o.File, o.Status)
		if o.Status == engine.StatusApplied {
			sb.WriteString(okStyle.Render(line))
		} else {
			sb.WriteString(failStyle.Render(line + "  " + o.Detail))
		}
		sb.WriteString("\n")
	}

	if report.BackupDir != "" {
		sb.WriteString(dimStyle.Render("Backup: "+report.BackupDir) + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.diffView(report.Diff))
	sb.WriteString("\n" + dimStyle.Render(help))
	return panelStyle.Render(sb.String())
}

// diffView colours the unified diff by line prefix and applies scrolling.
func (m model) diffView(diff string) string {
	if diff == "" {
		return dimStyle.Render("(no changes)")
	}

	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	visible := 20
	if m.height > 16 {
		visible = m.height - 16
	}
	start := m.scroll
	if start > len(lines)-1 {
		start = len(lines) - 1
	}
	end := start + visible
	if end > len(lines) {
		end = len(lines)
	}

	var sb strings.Builder
	for _, line := range lines[start:end] {
		switch {
		case strings.HasPrefix(line, "+"):
			sb.WriteString(addStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			sb.WriteString(delStyle.Render(line))
		case strings.HasPrefix(line, "@@"):
			sb.WriteString(dimStyle.Render(line))
		default:
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}
	if end < len(lines) {
		fmt.Fprintf(&sb, "%s\n", dimStyle.Render(fmt.Sprintf("… %d more lines (j to scroll)", len(lines)-end)))
	}
	return sb.String()
}

func (m model) historyView() string {
	var sb strings.Builder
	sb.WriteString("Backup history (newest first)\n\n")
	if len(m.backups) == 0 {
		sb.WriteString(dimStyle.Render("No backups yet") + "\n")
	}
	for i, name := range m.backups {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		sb.WriteString(cursor + name + "\n")
	}
	sb.WriteString("\n" + dimStyle.Render("r: restore selected  esc: back  q: quit"))
	return panelStyle.Render(sb.String())
}

// Start runs the interactive shell over the given project root.
func Start(root string, cfg *config.Config) error {
	w, err := watcher.New(root)
	if err != nil {
		// The shell still works without live refresh.
		w = nil
	} else {
		w.Start()
		defer w.Stop()
	}

	m := model{
		root:   root,
		cfg:    cfg,
		watch:  w,
		logBuf: &bytes.Buffer{},
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
