// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

// TableLoader reads a tabular corpus file into raw rows of cells.
// A missing file must surface an error wrapping fs.ErrNotExist.
type TableLoader interface {
	// Load returns every row of the file, in file order.
	Load(ctx context.Context, path string) ([][]string, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// RowParser extracts rows from the bytes of one tabular format.
type RowParser interface {
	Parse(ctx context.Context, data []byte, filename string) ([][]string, error)

	// SupportedFormats returns formats this parser handles (e.g., "xlsx", "csv").
	SupportedFormats() []string
}

// EmbeddingService generates dense vector embeddings for text.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Encoder is a fitted representation function. It is read-only once
// returned, so it can be shared by any number of concurrent queries.
type Encoder interface {
	// Encode maps a query into the same space the index rows live in.
	Encode(ctx context.Context, text string) ([]float32, error)

	// State returns what is needed to restore this encoder from a snapshot.
	State() ([]byte, error)
}

// EncodingStrategy produces encoders. The dense and sparse strategies are
// interchangeable behind this interface.
type EncodingStrategy interface {
	Name() string

	// Fit builds an encoder over the whole corpus and returns one vector per text.
	Fit(ctx context.Context, texts []string) (Encoder, [][]float32, error)

	// Restore rebuilds an encoder from persisted state without refitting.
	Restore(state []byte) (Encoder, error)
}

// IndexStore persists index snapshots across restarts.
type IndexStore interface {
	// Load returns entities.ErrIndexNotFound when nothing has been saved.
	Load(ctx context.Context) (*entities.IndexSnapshot, error)

	// Save replaces any previous snapshot.
	Save(ctx context.Context, snap *entities.IndexSnapshot) error

	Close() error
}

// Generator is a generative text backend.
// Implementations must be safe to call from multiple goroutines.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFactory opens a generator, validating its credential.
type GeneratorFactory func(ctx context.Context) (Generator, error)

// FileWatcher monitors a file for changes.
type FileWatcher interface {
	// Watch starts monitoring the path and emits events.
	Watch(ctx context.Context, path string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
