// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/stats"
	"github.com/verte-zerg/typeracer/internal/store"
)

const (
	tabHistory = iota
	tabLeaderboard
	tabMistakes
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Loader builds the report shown by the browser.
type Loader func(ctx context.Context) (stats.Report, error)

// StoreLoader reads the report from the local store.
func StoreLoader(st *store.Store, cfg model.StatsConfig) Loader {
	return func(ctx context.Context) (stats.Report, error) {
		return stats.BuildReport(ctx, st, cfg)
	}
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	load   Loader
	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	tables    []table.Model

	width  int
	height int
}

// NewModel constructs a stats UI model and loads the first report.
func NewModel(load Loader) *Model {
	m := &Model{
		load: load,
		tabs: []string{"History", "Leaderboard", "Mistakes"},
	}
	m.tables = make([]table.Model, len(m.tabs))
	for i := range m.tables {
		m.tables[i] = table.New(table.WithHeight(1))
		m.tables[i].SetStyles(tableStyles())
	}
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, nil
		case "right", "l", "tab":
			m.moveTab(1)
			return m, nil
		case "r":
			m.refreshReport()
			return m, nil
		case "g", "home":
			m.tables[m.activeTab].GotoTop()
			return m, nil
		case "G", "end":
			m.tables[m.activeTab].GotoBottom()
			return m, nil
		}
		var cmd tea.Cmd
		m.tables[m.activeTab], cmd = m.tables[m.activeTab].Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) refreshReport() {
	report, err := m.load(context.Background())
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.report = report
	m.tables[tabHistory].SetRows(nil)
	m.tables[tabHistory].SetColumns(historyColumns())
	m.tables[tabHistory].SetRows(historyRows(report.Sessions))
	m.tables[tabLeaderboard].SetRows(nil)
	m.tables[tabLeaderboard].SetColumns(leaderboardColumns())
	m.tables[tabLeaderboard].SetRows(leaderboardRows(report.Leaderboard))
	m.tables[tabMistakes].SetRows(nil)
	m.tables[tabMistakes].SetColumns(mistakeColumns())
	m.tables[tabMistakes].SetRows(mistakeRows(report.Mistakes))
	m.updateLayout()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.tables {
		m.tables[i].SetWidth(m.width)
		m.tables[i].SetHeight(maxInt(1, bodyHeight-1))
	}
	m.focusActive()
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	m.focusActive()
}

func (m *Model) focusActive() {
	for i := range m.tables {
		if i == m.activeTab {
			m.tables[i].Focus()
		} else {
			m.tables[i].Blur()
		}
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	return tabs + "\n" + headerStyle.Render(truncateLine(m.renderSummary(), m.width))
}

func (m *Model) renderSummary() string {
	st := m.report.Summary
	if st.TotalRaces == 0 {
		return "No sessions yet"
	}
	return fmt.Sprintf("Races %d  Best %.2f WPM  Avg %.0f WPM  Accuracy %.0f%%",
		st.TotalRaces, st.BestWPM, st.AverageWPM, st.AverageAccuracy*100)
}

func (m *Model) renderBody() string {
	empty := ""
	switch m.activeTab {
	case tabHistory:
		if len(m.report.Sessions) == 0 {
			empty = "No sessions found."
		}
	case tabLeaderboard:
		if len(m.report.Leaderboard) == 0 {
			empty = "Leaderboard is empty."
		}
	case tabMistakes:
		if len(m.report.Mistakes) == 0 {
			empty = "No mistakes recorded."
		}
	}
	if empty != "" {
		return empty
	}
	return tableMutedStyle.Render(m.tables[m.activeTab].View())
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Scroll: up/down  Reload: r  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func historyColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 16},
		{Title: "Mode", Width: 5},
		{Title: "WPM", Width: 7},
		{Title: "Accuracy", Width: 8},
		{Title: "Chars", Width: 6},
		{Title: "Errors", Width: 6},
	}
}

// historyRows lists sessions newest first.
func historyRows(sessions []model.SessionRecord) []table.Row {
	rows := make([]table.Row, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		rows = append(rows, table.Row{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			string(s.Mode),
			fmt.Sprintf("%.2f", s.WPM),
			fmt.Sprintf("%.0f%%", s.Accuracy*100),
			fmt.Sprintf("%d", s.CharsTyped),
			fmt.Sprintf("%d", s.ErrorCount),
		})
	}
	return rows
}

func leaderboardColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 3},
		{Title: "Player", Width: 20},
		{Title: "Best WPM", Width: 9},
		{Title: "Races", Width: 6},
	}
}

func leaderboardRows(entries []model.LeaderboardEntry) []table.Row {
	sorted := stats.SortLeaderboard(entries)
	rows := make([]table.Row, 0, len(sorted))
	for i, e := range sorted {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			e.Username,
			fmt.Sprintf("%.2f", e.Best),
			fmt.Sprintf("%d", len(e.Scores)),
		})
	}
	return rows
}

func mistakeColumns() []table.Column {
	return []table.Column{
		{Title: "Char", Width: 8},
		{Title: "Count", Width: 6},
		{Title: "", Width: 20},
	}
}

func mistakeRows(mistakes []model.MistakeCount) []table.Row {
	top := stats.TopMistakes(mistakes, 0)
	rows := make([]table.Row, 0, len(top))
	if len(top) == 0 {
		return rows
	}
	maxCount := top[0].Count
	for _, m := range top {
		bar := 1
		if maxCount > 0 {
			bar = maxInt(1, m.Count*20/maxCount)
		}
		rows = append(rows, table.Row{
			stats.CharLabel(m.Char),
			fmt.Sprintf("%d", m.Count),
			strings.Repeat("#", bar),
		})
	}
	return rows
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
