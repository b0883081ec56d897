package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/corepass/hallpass/internal/core/domain"
	"github.com/corepass/hallpass/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

type stubFeed struct {
	signals chan struct{}
	err     error

	mu     sync.Mutex
	closed bool
}

func newStubFeed() *stubFeed {
	return &stubFeed{signals: make(chan struct{}, 8)}
}

func (f *stubFeed) Next(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case _, ok := <-f.signals:
		return ok
	}
}

func (f *stubFeed) Err() error { return f.err }

func (f *stubFeed) Close(context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *stubFeed) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type stubPassStore struct {
	mu            sync.Mutex
	passes        []domain.Pass
	listErr       error
	listGate      chan struct{} // when set, ListByAuthor waits for it
	watchErr      error
	feed          *stubFeed
	createErr     error
	deactivateErr error

	watchCalls  int
	listCalls   int
	created     []*domain.Pass
	deactivated []string
}

func newStubPassStore(passes ...domain.Pass) *stubPassStore {
	return &stubPassStore{passes: passes, feed: newStubFeed()}
}

func (s *stubPassStore) ListByAuthor(ctx context.Context, author string) ([]domain.Pass, error) {
	s.mu.Lock()
	gate := s.listGate
	s.listCalls++
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Pass
	for _, p := range s.passes {
		if p.Author == author {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPassStore) FindByID(_ context.Context, id, author string) (*domain.Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.passes {
		if p.ID == id && p.Author == author {
			clone := p
			return &clone, nil
		}
	}
	return nil, domain.ErrPassNotFound
}

func (s *stubPassStore) WatchAuthor(context.Context, string) (ports.ChangeFeed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchCalls++
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	return s.feed, nil
}

func (s *stubPassStore) Create(_ context.Context, p *domain.Pass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	p.ID = "pass-" + p.FromRoom + "-" + p.ToRoom
	p.CreatedAt = time.Date(2025, 9, 8, 10, 0, 0, 0, time.UTC)
	clone := *p
	s.created = append(s.created, &clone)
	s.passes = append(s.passes, clone)
	return nil
}

func (s *stubPassStore) Deactivate(_ context.Context, id, author string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deactivateErr != nil {
		return s.deactivateErr
	}
	for i, p := range s.passes {
		if p.ID == id && p.Author == author {
			s.passes[i].Active = false
			s.deactivated = append(s.deactivated, id)
			return nil
		}
	}
	return domain.ErrPassNotFound
}

func (s *stubPassStore) set(passes ...domain.Pass) {
	s.mu.Lock()
	s.passes = passes
	s.mu.Unlock()
}

func (s *stubPassStore) counts() (watch, list, created int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchCalls, s.listCalls, len(s.created)
}

type stubRoomStore struct {
	names []string
	err   error
	calls int
}

func (r *stubRoomStore) ListNames(context.Context) ([]string, error) {
	r.calls++
	return r.names, r.err
}

type stubNotifier struct {
	mu     sync.Mutex
	events []ports.PassEvent
}

func (n *stubNotifier) Notify(e ports.PassEvent) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
}

func (n *stubNotifier) all() []ports.PassEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ports.PassEvent(nil), n.events...)
}

type stubGuard struct {
	busy     bool
	err      error
	acquired int
	released int
}

func (g *stubGuard) TryAcquire(context.Context, string) (func(), bool, error) {
	if g.err != nil {
		return nil, false, g.err
	}
	if g.busy {
		return nil, false, nil
	}
	g.acquired++
	return func() { g.released++ }, true, nil
}

var errStoreDown = errors.New("store unavailable")

func samplePass(id string, status domain.ApprovalStatus, active bool, offset time.Duration) domain.Pass {
	return domain.Pass{
		ID:        id,
		Author:    "uid-1",
		FromRoom:  "C200",
		ToRoom:    "Library",
		Approved:  status,
		Active:    active,
		CreatedAt: time.Date(2025, 9, 8, 9, 0, 0, 0, time.UTC).Add(offset),
	}
}
