package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/corepass/hallpass/internal/core/domain"
	"github.com/corepass/hallpass/internal/core/ports"
)

// Submitter creates pending pass requests. It trusts its caller to have
// validated the request: anything beyond what the store enforces is checked by
// SubmissionFlow.
type Submitter struct {
	passes   ports.PassStore
	rooms    ports.RoomStore
	notifier ports.PassNotifier
	schoolID string
	log      zerolog.Logger
	now      func() time.Time
}

func NewSubmitter(passes ports.PassStore, rooms ports.RoomStore, notifier ports.PassNotifier, schoolID string, log zerolog.Logger) *Submitter {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Submitter{
		passes:   passes,
		rooms:    rooms,
		notifier: notifier,
		schoolID: schoolID,
		log:      log,
		now:      time.Now,
	}
}

// ListRooms returns the unique room names in ascending order.
func (s *Submitter) ListRooms(ctx context.Context) ([]string, error) {
	names, err := s.rooms.ListNames(ctx)
	if err != nil {
		return nil, domain.ReadFailure("list rooms", err)
	}
	return domain.RoomNames(names), nil
}

// Submit stores a new pending pass. created_at comes from the store clock.
func (s *Submitter) Submit(ctx context.Context, in ports.SubmitInput) error {
	p := domain.NewPendingPass(in.Author, in.From, in.To, in.DurationMinutes, s.schoolID)

	if err := s.passes.Create(ctx, p); err != nil {
		s.log.Error().Err(err).Str("author", in.Author).Msg("failed to submit pass")
		return domain.WriteFailure("submit pass", err)
	}

	s.notifier.Notify(ports.PassEvent{
		Kind:       ports.PassRequested,
		PassID:     p.ID,
		Author:     p.Author,
		FromRoom:   p.FromRoom,
		ToRoom:     p.ToRoom,
		Duration:   p.Duration,
		SchoolID:   p.SchoolID,
		OccurredAt: s.now().UTC(),
	})
	s.log.Info().Str("pass_id", p.ID).Str("author", p.Author).Str("from", p.FromRoom).Str("to", p.ToRoom).Msg("pass requested")
	return nil
}
