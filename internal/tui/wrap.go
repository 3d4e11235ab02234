package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/typeracer/internal/session"
)

const wrongSpace = '•'

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

func newStyledRune(r rune, style lipgloss.Style) styledRune {
	return styledRune{
		s:       style.Render(string(r)),
		width:   runewidth.RuneWidth(r),
		isSpace: r == ' ',
	}
}

// buildStyledRunes lays out the visible window of a session: left padding,
// the typed text, the cursor and the pending text. The rest of the word under
// the cursor is highlighted.
func buildStyledRunes(snap session.Snapshot) []styledRune {
	typed := []rune(snap.Typed)
	pending := []rune(snap.Pending)
	out := make([]styledRune, 0, snap.LeftPad+len(typed)+1+len(pending))
	for i := 0; i < snap.LeftPad; i++ {
		out = append(out, styledRune{s: " ", width: 1, isSpace: true})
	}
	for _, r := range typed {
		out = append(out, newStyledRune(r, correctStyle))
	}
	if snap.Current != 0 {
		displayed := snap.Current
		style := cursorStyle
		if snap.Incorrect {
			style = incorrectStyle.Underline(true)
			if displayed == ' ' {
				displayed = wrongSpace
			}
		}
		item := newStyledRune(displayed, style)
		item.isSpace = snap.Current == ' '
		out = append(out, item)
	}
	inWord := snap.Current != 0 && snap.Current != ' '
	for _, r := range pending {
		if r == ' ' {
			inWord = false
		}
		style := pendingStyle
		if inWord {
			style = currentWordStyle
		}
		out = append(out, newStyledRune(r, style))
	}
	return out
}

// renderBoard draws the typing window wrapped to width.
func renderBoard(snap session.Snapshot, width int) string {
	return wrapStyledRunes(buildStyledRunes(snap), width)
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
