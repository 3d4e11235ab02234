// Package stats contains score formulas and statistics reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/typeracer/internal/model"
)

const sparkChars = " .:-=+*#%@"

// CharsPerWord is the conventional word length used by WPM.
const CharsPerWord = 5

// Round2 rounds a value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WPM computes words per minute for the typed characters over the elapsed
// wall-clock time. Zero characters or zero time yield zero.
func WPM(chars int, elapsed time.Duration) float64 {
	if chars <= 0 || elapsed <= 0 {
		return 0
	}
	minutes := float64(elapsed.Milliseconds()) / 60000.0
	if minutes <= 0 {
		return 0
	}
	return Round2(float64(chars) / CharsPerWord / minutes)
}

// Accuracy computes the share of the corpus typed without an error.
func Accuracy(corpusLength, errorCount int) float64 {
	if corpusLength <= 0 {
		return 0
	}
	acc := Round2(float64(corpusLength-errorCount) / float64(corpusLength))
	if acc < 0 {
		return 0
	}
	return acc
}

// UserStats summarizes session records: best WPM, average WPM rounded to an
// integer, and average accuracy rounded to two decimals.
func UserStats(sessions []model.SessionRecord) model.UserStats {
	if len(sessions) == 0 {
		return model.UserStats{}
	}
	var sumWPM, sumAcc float64
	best := sessions[0].WPM
	for _, s := range sessions {
		sumWPM += s.WPM
		sumAcc += s.Accuracy
		if s.WPM > best {
			best = s.WPM
		}
	}
	count := float64(len(sessions))
	return model.UserStats{
		TotalRaces:      len(sessions),
		BestWPM:         best,
		AverageWPM:      math.Round(sumWPM / count),
		AverageAccuracy: Round2(sumAcc / count),
	}
}

// BestScore returns the highest score, or zero for an empty list.
func BestScore(scores []float64) float64 {
	best := 0.0
	for i, s := range scores {
		if i == 0 || s > best {
			best = s
		}
	}
	return best
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the user stats block.
func RenderSummary(w io.Writer, st model.UserStats) error {
	if st.TotalRaces == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Races: %d\n", st.TotalRaces); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Best WPM: %.2f\n", st.BestWPM); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg WPM: %.0f\n", st.AverageWPM); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg Accuracy: %.2f%%\n", st.AverageAccuracy*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderHistory prints the session history, newest first.
func RenderHistory(w io.Writer, sessions []model.SessionRecord) error {
	if len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Recent Sessions"); err != nil {
		return err
	}
	headers := []string{"Date", "Mode", "WPM", "Accuracy", "Chars", "Errors"}
	rows := make([][]string, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		rows = append(rows, []string{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			string(s.Mode),
			fmt.Sprintf("%.2f", s.WPM),
			fmt.Sprintf("%.0f%%", s.Accuracy*100),
			fmt.Sprintf("%d", s.CharsTyped),
			fmt.Sprintf("%d", s.ErrorCount),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{2: true, 3: true, 4: true, 5: true})
}

// RenderMistakes prints the most frequently missed characters with a bar.
func RenderMistakes(w io.Writer, mistakes []model.MistakeCount, top int) error {
	mistakes = TopMistakes(mistakes, top)
	if len(mistakes) == 0 {
		_, err := fmt.Fprintln(w, "No mistakes recorded.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Mistakes"); err != nil {
		return err
	}
	maxCount := mistakes[0].Count
	headers := []string{"Char", "Count", ""}
	rows := make([][]string, 0, len(mistakes))
	for _, m := range mistakes {
		bar := 1
		if maxCount > 0 {
			bar = int(math.Ceil(float64(m.Count) / float64(maxCount) * 20))
		}
		rows = append(rows, []string{
			CharLabel(m.Char),
			fmt.Sprintf("%d", m.Count),
			strings.Repeat("#", bar),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{1: true})
}

// RenderLeaderboard prints players ordered by their best score.
func RenderLeaderboard(w io.Writer, entries []model.LeaderboardEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "Leaderboard is empty.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Leaderboard"); err != nil {
		return err
	}
	headers := []string{"#", "Player", "Best WPM", "Races"}
	rows := make([][]string, 0, len(entries))
	for i, e := range SortLeaderboard(entries) {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			e.Username,
			fmt.Sprintf("%.2f", e.Best),
			fmt.Sprintf("%d", len(e.Scores)),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{0: true, 2: true, 3: true})
}

// RenderCurves prints WPM and accuracy over the sessions.
func RenderCurves(w io.Writer, sessions []model.SessionRecord, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	wpms := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		wpms[i] = s.WPM
		accs[i] = s.Accuracy * 100
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Progress", []Series{
		{Name: "WPM", Values: MovingAverage(wpms, window)},
		{Name: "Accuracy", Values: MovingAverage(accs, window)},
	}, width, height, useColor)
}

// RenderRace charts a game's WPM samples against the reference series on a
// shared scale.
func RenderRace(w io.Writer, samples, reference []float64, totalWidth, height int, useColor bool) error {
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	if len(reference) > len(samples) && len(samples) > 0 {
		reference = reference[:len(samples)]
	}
	return plotSeries(w, "WPM per second", []Series{
		{Name: "You", Values: samples},
		{Name: "Reference", Values: reference},
	}, plotOptions{width: width, height: height, forceColor: useColor, shared: true})
}

// CharLabel makes whitespace visible in tables.
func CharLabel(ch string) string {
	switch ch {
	case " ":
		return "<space>"
	case "\t":
		return "<tab>"
	case "\n":
		return "<enter>"
	default:
		return ch
	}
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool) error {
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
