package stats

import (
	"sort"

	"github.com/verte-zerg/typeracer/internal/model"
)

// TopMistakes returns the n most missed characters, most frequent first.
// A non-positive n returns all of them.
func TopMistakes(mistakes []model.MistakeCount, n int) []model.MistakeCount {
	items := MergeMistakes(mistakes)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Char < items[j].Char
		}
		return items[i].Count > items[j].Count
	})
	if n > 0 && n < len(items) {
		items = items[:n]
	}
	return items
}

// MergeMistakes sums counts for the same character, ordered by character.
func MergeMistakes(lists ...[]model.MistakeCount) []model.MistakeCount {
	totals := map[string]int{}
	for _, list := range lists {
		for _, m := range list {
			if m.Count <= 0 {
				continue
			}
			totals[m.Char] += m.Count
		}
	}
	out := make([]model.MistakeCount, 0, len(totals))
	for ch, count := range totals {
		out = append(out, model.MistakeCount{Char: ch, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Char < out[j].Char })
	return out
}

// SortLeaderboard orders entries by best score, then by name.
func SortLeaderboard(entries []model.LeaderboardEntry) []model.LeaderboardEntry {
	out := make([]model.LeaderboardEntry, len(entries))
	copy(out, entries)
	for i := range out {
		out[i].Best = BestScore(out[i].Scores)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Best == out[j].Best {
			return out[i].Username < out[j].Username
		}
		return out[i].Best > out[j].Best
	})
	return out
}
