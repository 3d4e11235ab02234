package corpus

import "github.com/verte-zerg/typeracer/internal/model"

// DefaultText is raced when no corpus has been imported.
const DefaultText = "the quick brown fox jumps over the lazy dog while a patient typist " +
	"watches the clock and counts every word that crosses the line. speed comes " +
	"from rhythm rather than force, so keep your hands relaxed and your eyes a " +
	"few letters ahead of your fingers. every mistake costs a moment, but a calm " +
	"mind recovers faster than a hurried one. practice a little each day and the " +
	"numbers will follow, one steady keystroke after another, until the words " +
	"seem to type themselves and the race is won before you notice it began."

// DefaultReference is a per-second WPM series of a practiced typist on
// DefaultText, charted against the player's own samples.
var DefaultReference = []float64{
	48, 66, 74, 79, 83, 85, 86, 88, 89, 90,
	90, 91, 92, 92, 93, 93, 94, 94, 95, 95,
	95, 96, 96, 96, 97, 97, 97, 98, 98, 98,
}

// Default returns the built-in corpus.
func Default() model.Corpus {
	ref := make([]float64, len(DefaultReference))
	copy(ref, DefaultReference)
	return model.Corpus{Text: DefaultText, Reference: ref}
}
