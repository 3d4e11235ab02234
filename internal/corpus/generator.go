package corpus

import (
	"math/rand"
	"strings"
	"time"
	"unicode"
)

// GenerateOptions shapes generated practice text.
type GenerateOptions struct {
	Words    int
	CapsPct  float64
	PunctPct float64
	PunctSet []rune
	// Weak biases word choice toward words containing these characters.
	Weak       map[rune]struct{}
	WeakFactor float64
}

// Generator produces randomized corpus text from a word list.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator returns a Generator seeded with the current time.
func NewGenerator() *Generator {
	return NewGeneratorSeed(time.Now().UnixNano())
}

// NewGeneratorSeed returns a deterministic Generator.
func NewGeneratorSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate joins opts.Words randomly chosen words into one line of text.
func (g *Generator) Generate(words []string, opts GenerateOptions) string {
	if len(words) == 0 || opts.Words <= 0 {
		return ""
	}
	pick := g.uniform(words)
	if len(opts.Weak) > 0 && opts.WeakFactor > 0 {
		pick = g.weighted(words, opts.Weak, opts.WeakFactor)
	}
	result := make([]string, 0, opts.Words)
	for i := 0; i < opts.Words; i++ {
		word := pick()
		word = applyCaps(g.rnd, word, opts.CapsPct)
		word = applyPunct(g.rnd, word, opts.PunctPct, opts.PunctSet)
		result = append(result, word)
	}
	return strings.Join(result, " ")
}

func (g *Generator) uniform(words []string) func() string {
	return func() string {
		return words[g.rnd.Intn(len(words))]
	}
}

func (g *Generator) weighted(words []string, weak map[rune]struct{}, factor float64) func() string {
	weights := make([]float64, len(words))
	total := 0.0
	for i, word := range words {
		weakCount := 0
		for _, r := range word {
			if _, ok := weak[unicode.ToLower(r)]; ok {
				weakCount++
			}
		}
		w := 1.0 + float64(weakCount)*factor
		weights[i] = w
		total += w
	}
	return func() string {
		r := g.rnd.Float64() * total
		acc := 0.0
		for j, w := range weights {
			acc += w
			if r <= acc {
				return words[j]
			}
		}
		return words[len(words)-1]
	}
}

func applyCaps(rnd *rand.Rand, word string, capsPct float64) string {
	if capsPct <= 0 || rnd.Float64() > capsPct {
		return word
	}
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func applyPunct(rnd *rand.Rand, word string, punctPct float64, punctSet []rune) string {
	if punctPct <= 0 || len(punctSet) == 0 || rnd.Float64() > punctPct {
		return word
	}
	return word + string(punctSet[rnd.Intn(len(punctSet))])
}
