package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/typeracer/internal/model"
)

type memStore struct {
	c     *model.Corpus
	saves int
}

func (m *memStore) Corpus(context.Context) (model.Corpus, error) {
	if m.c == nil {
		return model.Corpus{}, model.ErrNotFound
	}
	return *m.c, nil
}

func (m *memStore) SaveCorpus(_ context.Context, c model.Corpus) error {
	m.saves++
	m.c = &c
	return nil
}

func TestProviderFallsBackToDefault(t *testing.T) {
	p := NewProvider(&memStore{})
	c, err := p.Corpus(context.Background())
	if err != nil {
		t.Fatalf("corpus: %v", err)
	}
	if c.Text != DefaultText || len(c.Reference) != len(DefaultReference) {
		t.Fatalf("expected default corpus, got %+v", c)
	}
}

func TestEnsureSeedsOnce(t *testing.T) {
	st := &memStore{}
	ctx := context.Background()
	if err := Ensure(ctx, st); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := Ensure(ctx, st); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if st.saves != 1 || st.c.Text != DefaultText {
		t.Fatalf("expected a single seed, got %d saves", st.saves)
	}
}

func TestLoadFileNormalizesWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text.txt")
	if err := os.WriteFile(path, []byte("  one\ttwo\n\nthree  "), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	text, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if text != "one two three" {
		t.Fatalf("unexpected text %q", text)
	}
	blank := filepath.Join(t.TempDir(), "blank.txt")
	if err := os.WriteFile(blank, []byte(" \n "), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(blank); err == nil {
		t.Fatalf("expected error for blank corpus")
	}
}

func TestParseReference(t *testing.T) {
	got, err := ParseReference("12, 30.5\n41")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 3 || got[1] != 30.5 {
		t.Fatalf("unexpected series %v", got)
	}
	if FormatReference(got) != "12,30.5,41" {
		t.Fatalf("unexpected format %q", FormatReference(got))
	}
	if _, err := ParseReference("1,x"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestGenerateWordCount(t *testing.T) {
	g := NewGeneratorSeed(7)
	text := g.Generate([]string{"alpha", "beta", "gamma"}, GenerateOptions{Words: 12})
	if n := len(strings.Fields(text)); n != 12 {
		t.Fatalf("expected 12 words, got %d in %q", n, text)
	}
	if g.Generate(nil, GenerateOptions{Words: 3}) != "" {
		t.Fatalf("expected empty text without words")
	}
}

func TestGenerateWeightedPrefersWeakWords(t *testing.T) {
	g := NewGeneratorSeed(1)
	text := g.Generate([]string{"zzz", "abc"}, GenerateOptions{
		Words:      400,
		Weak:       map[rune]struct{}{'z': {}},
		WeakFactor: 10,
	})
	z := strings.Count(text, "zzz")
	if z < 300 {
		t.Fatalf("expected weak word to dominate, got %d of 400", z)
	}
}

func TestFilterEnglishASCII(t *testing.T) {
	filter := FilterForLang("en")
	if !filter("hello") {
		t.Fatalf("expected hello to pass english filter")
	}
	for _, word := range []string{"résumé", "naïve", "don’t", "co-op"} {
		if filter(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
}

func TestLoadWordsFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("apple\nNaïve\n\nbanana\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	words, err := LoadWords(path, FilterForLang("en"))
	if err != nil {
		t.Fatalf("load words: %v", err)
	}
	if len(words) != 2 || words[0] != "apple" || words[1] != "banana" {
		t.Fatalf("unexpected words %v", words)
	}
}
