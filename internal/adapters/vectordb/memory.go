package vectordb

import (
	"context"
	"sync"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

// InMemoryStore is a process-local ports.IndexStore, used when persistence
// is disabled. Snapshots are copied in and out so callers never share slices.
type InMemoryStore struct {
	mu   sync.RWMutex
	snap *entities.IndexSnapshot
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Save replaces the stored snapshot.
func (s *InMemoryStore) Save(ctx context.Context, snap *entities.IndexSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = cloneSnapshot(snap)
	return nil
}

// Load returns a copy of the stored snapshot.
func (s *InMemoryStore) Load(ctx context.Context) (*entities.IndexSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return nil, entities.ErrIndexNotFound
	}
	return cloneSnapshot(s.snap), nil
}

// Clear removes the stored snapshot.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = nil
	return nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}

func cloneSnapshot(snap *entities.IndexSnapshot) *entities.IndexSnapshot {
	out := *snap
	out.EncoderState = append([]byte(nil), snap.EncoderState...)
	out.Passages = append([]entities.Passage(nil), snap.Passages...)
	out.Vectors = make([][]float32, len(snap.Vectors))
	for i, v := range snap.Vectors {
		out.Vectors[i] = append([]float32(nil), v...)
	}
	return &out
}
