package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
)

// SearchIndex is an immutable, queryable index over all passages.
// Vectors[i] belongs to Passages[i].
type SearchIndex struct {
	Strategy string
	Passages []entities.Passage
	Vectors  [][]float32

	encoder ports.Encoder
}

// Len returns the number of indexed passages.
func (ix *SearchIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.Passages)
}

// IndexBuilder builds a SearchIndex or restores it from a persisted snapshot.
type IndexBuilder struct {
	strategy ports.EncodingStrategy
	store    ports.IndexStore
	log      logrus.FieldLogger
}

// NewIndexBuilder creates an IndexBuilder. store may be nil, in which case
// every call builds from scratch.
func NewIndexBuilder(strategy ports.EncodingStrategy, store ports.IndexStore, log logrus.FieldLogger) *IndexBuilder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &IndexBuilder{
		strategy: strategy,
		store:    store,
		log:      log.WithField("component", "index"),
	}
}

// BuildOrLoad serves the persisted snapshot when it matches the passages,
// and rebuilds otherwise.
func (b *IndexBuilder) BuildOrLoad(ctx context.Context, passages []entities.Passage) (*SearchIndex, error) {
	if b.store != nil {
		ix, err := b.load(ctx, passages)
		switch {
		case err == nil:
			b.log.WithField("passages", ix.Len()).Info("loaded index snapshot")
			return ix, nil
		case errors.Is(err, entities.ErrIndexNotFound):
			b.log.Info("no index snapshot, building")
		default:
			b.log.WithError(err).Warn("discarding index snapshot, rebuilding")
		}
	}
	return b.Build(ctx, passages)
}

// Build fits the strategy over the passages and persists the result.
func (b *IndexBuilder) Build(ctx context.Context, passages []entities.Passage) (*SearchIndex, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	start := time.Now()
	encoder, vectors, err := b.strategy.Fit(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrIndexBuild, err)
	}
	if len(vectors) != len(passages) {
		return nil, fmt.Errorf("%w: %d vectors for %d passages", entities.ErrIndexBuild, len(vectors), len(passages))
	}

	ix := &SearchIndex{
		Strategy: b.strategy.Name(),
		Passages: passages,
		Vectors:  vectors,
		encoder:  encoder,
	}
	b.log.WithFields(logrus.Fields{
		"strategy": ix.Strategy,
		"passages": ix.Len(),
		"took":     time.Since(start).String(),
	}).Info("built index")

	if b.store != nil {
		if err := b.save(ctx, ix); err != nil {
			b.log.WithError(err).Warn("persisting index snapshot failed, serving in-memory index")
		}
	}
	return ix, nil
}

func (b *IndexBuilder) load(ctx context.Context, passages []entities.Passage) (*SearchIndex, error) {
	snap, err := b.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateSnapshot(snap, b.strategy.Name(), passages); err != nil {
		return nil, err
	}

	encoder, err := b.strategy.Restore(snap.EncoderState)
	if err != nil {
		return nil, fmt.Errorf("%w: restoring encoder: %v", entities.ErrIndexStale, err)
	}

	return &SearchIndex{
		Strategy: snap.Strategy,
		Passages: passages,
		Vectors:  snap.Vectors,
		encoder:  encoder,
	}, nil
}

func (b *IndexBuilder) save(ctx context.Context, ix *SearchIndex) error {
	state, err := ix.encoder.State()
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return b.store.Save(ctx, &entities.IndexSnapshot{
		Strategy:     ix.Strategy,
		Checksum:     corpusChecksum(ix.Passages),
		PassageCount: ix.Len(),
		EncoderState: state,
		Passages:     ix.Passages,
		Vectors:      ix.Vectors,
		CreatedAt:    time.Now(),
	})
}

// validateSnapshot rejects any snapshot that is not aligned with passages.
func validateSnapshot(snap *entities.IndexSnapshot, strategy string, passages []entities.Passage) error {
	switch {
	case snap.Strategy != strategy:
		return fmt.Errorf("%w: built with %q, configured %q", entities.ErrIndexStale, snap.Strategy, strategy)
	case snap.PassageCount != len(passages):
		return fmt.Errorf("%w: %d passages indexed, corpus has %d", entities.ErrIndexStale, snap.PassageCount, len(passages))
	case len(snap.Vectors) != snap.PassageCount:
		return fmt.Errorf("%w: %d vectors for %d passages", entities.ErrIndexStale, len(snap.Vectors), snap.PassageCount)
	case snap.Checksum != corpusChecksum(passages):
		return fmt.Errorf("%w: corpus content changed", entities.ErrIndexStale)
	}
	return nil
}
