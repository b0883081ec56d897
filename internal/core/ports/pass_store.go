package ports

import (
	"context"

	"github.com/corepass/hallpass/internal/core/domain"
)

// ChangeFeed signals that the result set of a live query may have changed.
// It carries no data: readers re-query for a full snapshot on every signal.
type ChangeFeed interface {
	// Next blocks until the next change or until ctx is done.
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// PassStore persists passes in the external document store.
type PassStore interface {
	// ListByAuthor returns every pass of author ordered by created_at descending.
	ListByAuthor(ctx context.Context, author string) ([]domain.Pass, error)
	// FindByID retrieves one pass scoped to author.
	FindByID(ctx context.Context, id, author string) (*domain.Pass, error)
	// WatchAuthor opens a change feed over passes whose author is author.
	WatchAuthor(ctx context.Context, author string) (ChangeFeed, error)
	// Create inserts p with a store-assigned id and created_at, both written back to p.
	Create(ctx context.Context, p *domain.Pass) error
	// Deactivate sets active=false on the pass identified by id and owned by author.
	// Returns domain.ErrPassNotFound when nothing matched.
	Deactivate(ctx context.Context, id, author string) error
}

// RoomStore reads the rooms collection.
type RoomStore interface {
	// ListNames returns the raw room names, possibly with duplicates.
	ListNames(ctx context.Context) ([]string, error)
}
