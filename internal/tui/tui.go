// Package tui provides a Bubble Tea TUI for browsing a replayed history.
package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fakeyudi/retrace/internal/checkpoint"
	"github.com/fakeyudi/retrace/internal/record"
	"github.com/fakeyudi/retrace/internal/replay"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	// Active tab: bright, underlined
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	// Inactive tab: muted
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	// Separator between tabs
	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	// Section heading inside a tab
	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	// Key=value label
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	bulletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	kindCreateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	kindEditStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	kindBatchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	kindReadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	// Diff rendering
	diffAddStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	diffDelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	diffMetaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	// Selected row in the Operations list
	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabOperations
	tabFiles
	tabSessions
	tabReport
	tabCount
)

var tabNames = [tabCount]string{
	"Summary", "Operations", "Files", "Sessions", "Report",
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	eng       *replay.Engine
	rep       *replay.Report
	source    string
	steps     []replay.Step
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	// Operations tab: cursor position, expanded set and lazily computed diffs
	opCursor  int
	expanded  map[int]bool
	diffCache map[int]string
}

// New creates a new TUI model over a replayed engine and its report.
func New(eng *replay.Engine, rep *replay.Report, source string) Model {
	return Model{
		eng:       eng,
		rep:       rep,
		source:    source,
		steps:     eng.Operations(),
		expanded:  make(map[int]bool),
		diffCache: make(map[int]string),
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3", "4", "5":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "up", "k":
			if m.activeTab == tabOperations && m.opCursor > 0 {
				m.opCursor--
				m.rebuildOperationsViewport()
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabOperations && m.opCursor < len(m.steps)-1 {
				m.opCursor++
				m.rebuildOperationsViewport()
				return m, nil
			}
		case "enter", " ":
			if m.activeTab == tabOperations && len(m.steps) > 0 {
				st := m.steps[m.opCursor]
				if st.Record.Kind.Mutates() { // reads have nothing to expand
					if m.expanded[m.opCursor] {
						delete(m.expanded, m.opCursor)
					} else {
						m.expanded[m.opCursor] = true
					}
					m.rebuildOperationsViewport()
				}
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	// ── Row 1: title bar ──────────────────────────────────────────────────────
	title := titleStyle.Width(m.width).Render("  retrace  " + m.source)

	// ── Row 2: tab bar ────────────────────────────────────────────────────────
	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	// ── Row 3…N-1: scrollable content ────────────────────────────────────────
	content := m.viewports[m.activeTab].View()

	// ── Row N: status / hint bar ──────────────────────────────────────────────
	hint := "  ←/→ tab  ↑/↓ scroll  1-5 jump  q quit"
	if m.activeTab == tabOperations {
		hint += "  ↑/↓ select  enter expand/collapse"
	}
	// show scroll % on the right
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(
		hint + strings.Repeat(" ", pad) + pct,
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) rebuildOperationsViewport() {
	m.viewports[tabOperations].SetContent(m.renderTab(tabOperations))
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabOperations:
		return m.renderOperations()
	case tabFiles:
		return m.renderFiles()
	case tabSessions:
		return m.renderSessions()
	case tabReport:
		return m.renderReport()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func bullet(text string) string {
	return bulletStyle.Render("  •") + "  " + text + "\n"
}

func (m *Model) renderSummary() string {
	var sb strings.Builder
	sb.WriteString(heading("Replay Summary"))

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", label)) + "  " + value + "\n")
	}
	row("Source:", m.source)
	if len(m.steps) > 0 {
		row("First Op:", m.steps[0].Record.Timestamp.Format("2006-01-02 15:04:05 MST"))
		row("Last Op:", m.steps[len(m.steps)-1].Record.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}

	sb.WriteString("\n")
	sb.WriteString(heading("Counts"))
	row("Operations:", fmt.Sprintf("%d", len(m.steps)))
	row("Checkpoints:", fmt.Sprintf("%d", m.eng.Checkpoints()))
	row("Files:", fmt.Sprintf("%d", len(m.filePaths())))
	row("Sessions:", fmt.Sprintf("%d", len(m.eng.Sessions())))
	row("Warnings:", fmt.Sprintf("%d", len(m.rep.Warnings())))
	return sb.String()
}

func (m *Model) renderOperations() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Operations (%d)", len(m.steps))))
	if len(m.steps) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for i, st := range m.steps {
		ts := timeStyle.Render(st.Record.Timestamp.Format("15:04:05"))
		expandable := st.Record.Kind.Mutates()
		expanded := m.expanded[i]

		var icon string
		switch {
		case !expandable:
			icon = dimStyle.Render("○ ") // read, nothing to show
		case st.Record.Kind == record.KindCreate:
			icon = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("◈ ")
		default:
			icon = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("◇ ")
		}

		toggle := dimStyle.Render("  ▶ ")
		if expanded {
			toggle = dimStyle.Render("  ▼ ")
		}
		if !expandable {
			toggle = "    " // no arrow, not expandable
		}

		row := fmt.Sprintf("%s%s%s  %s%s  %s", toggle, icon, ts, kindBadge(st.Record.Kind), short(st.Record.ID), st.Record.FilePath)
		if st.Bootstrapped() {
			row += dimStyle.Render("  [bootstrapped]")
		}
		if st.Record.Kind.Mutates() && st.SnapshotID == "" {
			row += dimStyle.Render("  [no checkpoint]")
		}
		if i == m.opCursor {
			// Pad to width so the highlight fills the line
			row = selectedRowStyle.Width(m.width - 2).Render(row)
		}
		sb.WriteString(row + "\n")

		// Expanded diff block
		if expanded && expandable {
			sb.WriteString(renderDiff(m.diffFor(i), m.width))
			sb.WriteString("\n")
		} else {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// diffFor computes (and caches) the unified diff for the step at index i.
func (m *Model) diffFor(i int) string {
	if d, ok := m.diffCache[i]; ok {
		return d
	}
	var text string
	d, err := m.eng.Diff(m.steps[i].Record.ID)
	switch {
	case errors.Is(err, replay.ErrNotApplicable):
		text = "(read operation, nothing to diff)"
	case errors.Is(err, checkpoint.ErrNotFound):
		text = "(operation was not checkpointed)"
	case err != nil:
		text = err.Error()
	case len(d.Unified) == 0:
		text = "(no content change)"
	default:
		text = strings.Join(d.Unified, "\n")
	}
	m.diffCache[i] = text
	return text
}

// renderDiff colorises a unified diff string.
func renderDiff(diff string, width int) string {
	borderWidth := width - 4
	if borderWidth < 1 {
		borderWidth = 1
	}
	var sb strings.Builder
	border := dimStyle.Render("  " + strings.Repeat("─", borderWidth))
	sb.WriteString(border + "\n")
	for _, line := range strings.Split(diff, "\n") {
		var rendered string
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			rendered = diffMetaStyle.Render("  " + line)
		case strings.HasPrefix(line, "+"):
			rendered = diffAddStyle.Render("  " + line)
		case strings.HasPrefix(line, "-"):
			rendered = diffDelStyle.Render("  " + line)
		case strings.HasPrefix(line, "@@"):
			rendered = diffMetaStyle.Render("  " + line)
		default:
			rendered = dimStyle.Render("  " + line)
		}
		sb.WriteString(rendered + "\n")
	}
	sb.WriteString(border + "\n")
	return sb.String()
}

func (m *Model) renderFiles() string {
	paths := m.filePaths()
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Files (%d)", len(paths))))
	if len(paths) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for _, p := range paths {
		sb.WriteString(labelStyle.Render("  "+p) + "\n")
		for _, e := range m.eng.FileTimeline(p) {
			num := dimStyle.Render(fmt.Sprintf("  %3d.", e.Seq))
			line := fmt.Sprintf("%s  %s%s", num, kindBadge(e.Kind), short(e.OperationID))
			if e.Bootstrap {
				line += dimStyle.Render("  [bootstrapped]")
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderSessions() string {
	sessions := m.eng.Sessions()
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Sessions (%d)", len(sessions))))
	if len(sessions) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for _, s := range sessions {
		sb.WriteString(bullet(labelStyle.Render(s.SessionID)))
		sb.WriteString(fmt.Sprintf("      %d operations over %d files\n", s.OperationCount, s.DistinctFiles))
		window := s.First.Format("15:04:05") + " to " + s.Last.Format("15:04:05")
		sb.WriteString(timeStyle.Render("      "+window) + "\n\n")
	}
	return sb.String()
}

func (m *Model) renderReport() string {
	var sb strings.Builder
	sb.WriteString(heading("Replay Report"))
	if m.rep.Empty() {
		sb.WriteString(dimStyle.Render("  (clean replay, nothing was dropped)") + "\n")
		return sb.String()
	}
	if len(m.rep.Malformed) > 0 {
		sb.WriteString(heading(fmt.Sprintf("Malformed Records (%d)", len(m.rep.Malformed))))
		for i := range m.rep.Malformed {
			sb.WriteString(bullet(m.rep.Malformed[i].Error()))
		}
	}
	if len(m.rep.Failures) > 0 {
		sb.WriteString(heading(fmt.Sprintf("Checkpoint Failures (%d)", len(m.rep.Failures))))
		for _, f := range m.rep.Failures {
			sb.WriteString(bullet(fmt.Sprintf("%s: %v", f.OperationID, f.Err)))
		}
	}
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// filePaths returns every file path touched by any operation, sorted.
func (m *Model) filePaths() []string {
	seen := make(map[string]bool)
	for _, st := range m.steps {
		seen[st.Record.FilePath] = true
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func kindBadge(k record.Kind) string {
	switch k {
	case record.KindCreate:
		return kindCreateStyle.Render(fmt.Sprintf("%-7s", "CREATE"))
	case record.KindPartialEdit:
		return kindEditStyle.Render(fmt.Sprintf("%-7s", "EDIT"))
	case record.KindBatchEdit:
		return kindBatchStyle.Render(fmt.Sprintf("%-7s", "BATCH"))
	case record.KindRead:
		return kindReadStyle.Render(fmt.Sprintf("%-7s", "READ"))
	}
	return fmt.Sprintf("%-7s", string(k))
}

// short truncates an operation id for display.
func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Run starts the TUI over a replayed engine.
func Run(eng *replay.Engine, rep *replay.Report, source string) error {
	p := tea.NewProgram(New(eng, rep, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
