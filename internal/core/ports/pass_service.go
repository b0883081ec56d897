package ports

import (
	"context"

	"github.com/corepass/hallpass/internal/core/domain"
)

// SubmitInput carries a new pass request. DurationMinutes is nil when the
// student did not pick a length.
type SubmitInput struct {
	From            string
	To              string
	DurationMinutes *int
	Author          string
}

// PassSubmitter creates pending passes and lists the rooms they may name.
type PassSubmitter interface {
	ListRooms(ctx context.Context) ([]string, error)
	Submit(ctx context.Context, in SubmitInput) error
}

// PassReader reads and mutates the signed-in user's passes.
type PassReader interface {
	Snapshot(ctx context.Context) (domain.Buckets, error)
	Find(ctx context.Context, id string) (*domain.Pass, error)
	EndPass(ctx context.Context, id string) error
}
