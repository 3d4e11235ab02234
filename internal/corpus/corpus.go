// Package corpus supplies the text typed in a game and its reference series.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/verte-zerg/typeracer/internal/model"
)

// Store persists the active corpus.
type Store interface {
	Corpus(ctx context.Context) (model.Corpus, error)
	SaveCorpus(ctx context.Context, c model.Corpus) error
}

// Provider serves the stored corpus, falling back to the built-in one.
type Provider struct {
	store Store
}

// NewProvider returns a provider backed by store. A nil store always
// serves the default corpus.
func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

// Corpus returns the active corpus.
func (p *Provider) Corpus(ctx context.Context) (model.Corpus, error) {
	if p.store == nil {
		return Default(), nil
	}
	c, err := p.store.Corpus(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return model.Corpus{}, fmt.Errorf("failed to load corpus: %w", err)
	}
	return c, nil
}

// Ensure seeds the store with the default corpus when it holds none.
func Ensure(ctx context.Context, store Store) error {
	_, err := store.Corpus(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	if err := store.SaveCorpus(ctx, Default()); err != nil {
		return fmt.Errorf("failed to seed corpus: %w", err)
	}
	return nil
}

// Normalize collapses runs of whitespace into single spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// LoadFile reads a corpus text from path.
func LoadFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read corpus file: %w", err)
	}
	text := Normalize(string(raw))
	if text == "" {
		return "", fmt.Errorf("corpus file %s is empty", path)
	}
	return text, nil
}

// ParseReference parses a comma or whitespace separated WPM series.
func ParseReference(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid reference value %q: %w", f, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("invalid reference value %q: negative", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// FormatReference renders a series the way ParseReference reads it.
func FormatReference(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
