// Package tui provides the Bubble Tea typing interfaces for solo games and
// two-player races.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/score"
)

const (
	tickInterval  = time.Second
	submitTimeout = 10 * time.Second
	plotHeight    = 8
	topMistakes   = 5
)

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = currentWordStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	errorStyle       = incorrectStyle
)

// SubmitFunc delivers a finished solo game and returns the accepted WPM.
type SubmitFunc func(ctx context.Context, sub score.Submission) (float64, error)

// RecordFunc stores a finished race in the history.
type RecordFunc func(ctx context.Context, sub score.Submission) error

// CorpusFunc supplies the text of the next game.
type CorpusFunc func(ctx context.Context) (model.Corpus, error)

type tickMsg struct {
	gen int
}

type countdownMsg struct {
	gen int
}

func tickAfter(gen int) tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func countdownAfter(gen int) tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return countdownMsg{gen: gen}
	})
}

func contentWidth(width int) int {
	w := int(float64(width) * 0.70)
	if w < 1 {
		w = 1
	}
	return w
}

// place centers content on the screen with an optional footer line.
func place(width, height int, content, footer string) string {
	if width == 0 || height == 0 {
		if footer == "" {
			return content
		}
		return content + "\n\n" + footer
	}
	if footer == "" || height < 3 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(width, height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(width, 1, lipgloss.Center, lipgloss.Center, footerStyle.Render(footer))
	return body + "\n" + footerLine
}

func joinLines(lines ...string) string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n\n")
}
