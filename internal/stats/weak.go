package stats

import "github.com/verte-zerg/typeracer/internal/model"

// WeakChars selects the most frequently missed characters.
func WeakChars(mistakes []model.MistakeCount, top int) map[rune]struct{} {
	weakSet := map[rune]struct{}{}
	for _, m := range TopMistakes(mistakes, top) {
		runes := []rune(m.Char)
		if len(runes) == 0 || runes[0] == ' ' {
			continue
		}
		weakSet[runes[0]] = struct{}{}
	}
	return weakSet
}
