package tui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/session"
	"github.com/verte-zerg/typeracer/internal/stats"
)

// referenceAt returns the reference WPM at the same second as the player's
// last sample.
func referenceAt(reference []float64, samples int) float64 {
	if len(reference) == 0 {
		return 0
	}
	i := samples - 1
	if i < 0 {
		i = 0
	}
	if i >= len(reference) {
		i = len(reference) - 1
	}
	return reference[i]
}

func renderMistakes(mistakes []model.MistakeCount) string {
	top := stats.TopMistakes(mistakes, topMistakes)
	if len(top) == 0 {
		return "No mistakes"
	}
	parts := make([]string, 0, len(top))
	for _, m := range top {
		parts = append(parts, fmt.Sprintf("%s x%d", stats.CharLabel(m.Char), m.Count))
	}
	return "Top mistakes: " + strings.Join(parts, "  ")
}

func renderChart(samples, reference []float64, width int) string {
	if len(samples) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := stats.RenderRace(&buf, samples, reference, width, plotHeight, true); err != nil {
		return errorStyle.Render(fmt.Sprintf("Failed to render chart: %v", err))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// renderSoloResults shows the score, the speed curve against the reference
// and the most missed characters.
func renderSoloResults(snap session.Snapshot, corpus model.Corpus, mistakes []model.MistakeCount, status string, width int) string {
	if snap.Mode == session.SkippedToResults {
		return joinLines(
			titleStyle.Render("Skipped"),
			fmt.Sprintf("%d characters typed, score not submitted", snap.CharsTyped),
			renderMistakes(mistakes),
		)
	}
	score := fmt.Sprintf("WPM %s   Accuracy %s",
		valueStyle.Render(fmt.Sprintf("%.2f", snap.WPM)),
		valueStyle.Render(fmt.Sprintf("%.0f%%", snap.Accuracy*100)))
	if len(corpus.Reference) > 0 {
		score += fmt.Sprintf("   Reference %s",
			valueStyle.Render(fmt.Sprintf("%.2f", referenceAt(corpus.Reference, len(snap.Samples)))))
	}
	spark := ""
	if len(snap.Samples) > 0 {
		spark = "Speed " + stats.Sparkline(snap.Samples)
	}
	return joinLines(
		titleStyle.Render("Results"),
		score,
		spark,
		renderChart(snap.Samples, corpus.Reference, width),
		renderMistakes(mistakes),
		status,
	)
}
