package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/corepass/hallpass/internal/core/domain"
	"github.com/corepass/hallpass/internal/core/ports"
)

const feedCloseTimeout = 5 * time.Second

// Subscription is the handle of a live pass query. Closing it is idempotent.
type Subscription struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool

	// mu is held across the liveness check and the callback it guards.
	mu sync.Mutex
}

func (s *Subscription) ID() string {
	return s.id
}

// Done is closed once the subscription goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription and waits for a callback that is already
// running to return. No callback starts after Close returns. Callbacks must
// not close their own subscription. Safe on a nil handle.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.cancel()

	s.mu.Lock()
	s.closed.Store(true)
	s.mu.Unlock()
}

func (s *Subscription) live(ctx context.Context) bool {
	return !s.closed.Load() && ctx.Err() == nil
}

// emit runs fn only while the subscription is live.
func (s *Subscription) emit(ctx context.Context, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live(ctx) {
		fn()
	}
}

// PassQueryService keeps one live query over the signed-in user's passes and
// ends running passes. An instance holds at most one subscription.
type PassQueryService struct {
	store    ports.PassStore
	session  ports.SessionProvider
	notifier ports.PassNotifier
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	current *Subscription
}

func NewPassQueryService(store ports.PassStore, session ports.SessionProvider, notifier ports.PassNotifier, log zerolog.Logger) *PassQueryService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &PassQueryService{
		store:    store,
		session:  session,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Subscribe starts delivering full snapshots of the signed-in user's passes,
// newest first, to onChange: once on start and again after every change in the
// store. Read failures are handed to onError; the subscription is not retried.
// Any previous subscription of this instance is torn down first. Cancelling
// ctx also ends the subscription.
func (s *PassQueryService) Subscribe(ctx context.Context, onChange func([]domain.Pass), onError func(error)) (*Subscription, error) {
	uid, ok := s.session.CurrentUserID(ctx)
	if !ok {
		return nil, domain.ErrNotSignedIn
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Close()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.current = sub

	if onError == nil {
		onError = func(err error) {
			s.log.Warn().Err(err).Str("subscription", sub.id).Msg("pass subscription error")
		}
	}

	go s.run(subCtx, sub, uid, onChange, onError)

	s.log.Debug().Str("subscription", sub.id).Str("author", uid).Msg("pass subscription started")
	return sub, nil
}

// Unsubscribe releases sub. Nil handles and repeated calls are no-ops.
func (s *PassQueryService) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.Close()

	s.mu.Lock()
	if s.current == sub {
		s.current = nil
	}
	s.mu.Unlock()
}

// Stop releases the current subscription, if any.
func (s *PassQueryService) Stop() {
	s.mu.Lock()
	cur := s.current
	s.current = nil
	s.mu.Unlock()
	cur.Close()
}

func (s *PassQueryService) run(ctx context.Context, sub *Subscription, uid string, onChange func([]domain.Pass), onError func(error)) {
	defer close(sub.done)
	defer sub.cancel()

	// Open the feed before the first read so no change slips between them.
	feed, err := s.store.WatchAuthor(ctx, uid)
	if err != nil {
		sub.emit(ctx, func() { onError(domain.ReadFailure("watch passes", err)) })
		return
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), feedCloseTimeout)
		defer cancel()
		if err := feed.Close(closeCtx); err != nil {
			s.log.Debug().Err(err).Str("subscription", sub.id).Msg("close change feed")
		}
	}()

	s.deliver(ctx, sub, uid, onChange, onError)
	for feed.Next(ctx) {
		s.deliver(ctx, sub, uid, onChange, onError)
	}

	if err := feed.Err(); err != nil {
		sub.emit(ctx, func() { onError(domain.ReadFailure("watch passes", err)) })
	}
	s.log.Debug().Str("subscription", sub.id).Msg("pass subscription ended")
}

func (s *PassQueryService) deliver(ctx context.Context, sub *Subscription, uid string, onChange func([]domain.Pass), onError func(error)) {
	passes, err := s.store.ListByAuthor(ctx, uid)
	sub.emit(ctx, func() {
		if err != nil {
			onError(domain.ReadFailure("list passes", err))
			return
		}
		onChange(passes)
	})
}

// Snapshot reads the signed-in user's passes once and classifies them.
func (s *PassQueryService) Snapshot(ctx context.Context) (domain.Buckets, error) {
	uid, ok := s.session.CurrentUserID(ctx)
	if !ok {
		return domain.Buckets{}, domain.ErrNotSignedIn
	}
	passes, err := s.store.ListByAuthor(ctx, uid)
	if err != nil {
		return domain.Buckets{}, domain.ReadFailure("list passes", err)
	}
	return domain.Classify(passes), nil
}

// Find returns one of the signed-in user's passes.
func (s *PassQueryService) Find(ctx context.Context, id string) (*domain.Pass, error) {
	if id == "" {
		return nil, domain.ErrMissingPassID
	}
	uid, ok := s.session.CurrentUserID(ctx)
	if !ok {
		return nil, domain.ErrNotSignedIn
	}
	p, err := s.store.FindByID(ctx, id, uid)
	if err != nil {
		return nil, domain.ReadFailure("find pass", err)
	}
	return p, nil
}

// EndPass marks the pass inactive. Local state is left alone: the change
// reaches subscribers through the live query.
func (s *PassQueryService) EndPass(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrMissingPassID
	}
	uid, ok := s.session.CurrentUserID(ctx)
	if !ok {
		return domain.ErrNotSignedIn
	}

	if err := s.store.Deactivate(ctx, id, uid); err != nil {
		s.log.Error().Err(err).Str("pass_id", id).Msg("failed to end pass")
		return domain.WriteFailure("end pass", err)
	}

	s.notifier.Notify(ports.PassEvent{
		Kind:       ports.PassEnded,
		PassID:     id,
		Author:     uid,
		OccurredAt: s.now().UTC(),
	})
	s.log.Info().Str("pass_id", id).Str("author", uid).Msg("pass ended")
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(ports.PassEvent) {}
