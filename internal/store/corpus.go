package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/verte-zerg/typeracer/internal/model"
)

// Corpus returns the stored race text and reference series.
func (s *Store) Corpus(ctx context.Context) (model.Corpus, error) {
	var text, reference string
	err := s.db.QueryRowContext(ctx, `SELECT text, reference FROM corpus WHERE id = 1`).Scan(&text, &reference)
	if err != nil {
		return model.Corpus{}, notFound(err)
	}
	c := model.Corpus{Text: text}
	if err := json.Unmarshal([]byte(reference), &c.Reference); err != nil {
		return model.Corpus{}, err
	}
	return c, nil
}

// SaveCorpus replaces the stored corpus.
func (s *Store) SaveCorpus(ctx context.Context, c model.Corpus) error {
	reference := c.Reference
	if reference == nil {
		reference = []float64{}
	}
	raw, err := json.Marshal(reference)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO corpus (id, text, reference, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET text = excluded.text, reference = excluded.reference, updated_at = excluded.updated_at`,
		c.Text, string(raw), formatTime(time.Now()),
	)
	return err
}
