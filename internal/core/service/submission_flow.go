package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/corepass/hallpass/internal/core/domain"
	"github.com/corepass/hallpass/internal/core/ports"
)

// SubmitState is the state of a SubmissionFlow.
type SubmitState int

const (
	StateIdle SubmitState = iota
	StateSubmitting
)

func (s SubmitState) String() string {
	if s == StateSubmitting {
		return "submitting"
	}
	return "idle"
}

const (
	MessageSubmitted    = "Your pass request was sent."
	messageSubmitFailed = "Failed to submit: "
)

// SubmissionFlow is the caller side of a pass request: it holds the student's
// selections, validates them before anything reaches the store and allows a
// single submission in flight.
type SubmissionFlow struct {
	submitter ports.PassSubmitter
	session   ports.SessionProvider
	guard     ports.SubmitGuard
	log       zerolog.Logger

	submitting atomic.Bool

	mu       sync.Mutex
	from     string
	to       string
	duration *int
	rooms    []string
	message  string
}

// NewSubmissionFlow builds an idle flow with the default duration selected.
// guard may be nil when no cross-process lock is needed.
func NewSubmissionFlow(submitter ports.PassSubmitter, session ports.SessionProvider, guard ports.SubmitGuard, log zerolog.Logger) *SubmissionFlow {
	d := domain.DefaultDurationMinutes
	return &SubmissionFlow{
		submitter: submitter,
		session:   session,
		guard:     guard,
		log:       log,
		duration:  &d,
	}
}

func (f *SubmissionFlow) SetFrom(room string) {
	f.mu.Lock()
	f.from = room
	f.mu.Unlock()
}

func (f *SubmissionFlow) SetTo(room string) {
	f.mu.Lock()
	f.to = room
	f.mu.Unlock()
}

// SetDuration selects the pass length; nil leaves it unspecified.
func (f *SubmissionFlow) SetDuration(minutes *int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if minutes == nil {
		f.duration = nil
		return
	}
	v := *minutes
	f.duration = &v
}

// Selection returns the current inputs.
func (f *SubmissionFlow) Selection() (from, to string, duration *int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.from, f.to, f.duration
}

func (f *SubmissionFlow) State() SubmitState {
	if f.submitting.Load() {
		return StateSubmitting
	}
	return StateIdle
}

// Message is the outcome of the last submission, empty before the first one.
func (f *SubmissionFlow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

func (f *SubmissionFlow) Rooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms
}

// LoadRooms fetches the room list the selections are checked against.
func (f *SubmissionFlow) LoadRooms(ctx context.Context) error {
	rooms, err := f.submitter.ListRooms(ctx)
	if err != nil {
		return err
	}
	if rooms == nil {
		rooms = []string{}
	}
	f.mu.Lock()
	f.rooms = rooms
	f.mu.Unlock()
	return nil
}

// Validate reports every reason the current inputs cannot be submitted.
func (f *SubmissionFlow) Validate(ctx context.Context) error {
	f.mu.Lock()
	from, to, rooms := f.from, f.to, f.rooms
	f.mu.Unlock()

	var verr domain.ValidationError
	if _, ok := f.session.CurrentUserID(ctx); !ok {
		verr.Add("session", domain.ErrNotSignedIn)
	}
	if err := domain.ValidateRoute(from, to, rooms); err != nil {
		var routeErr *domain.ValidationError
		if errors.As(err, &routeErr) {
			verr.Fields = append(verr.Fields, routeErr.Fields...)
		}
	}
	return verr.OrNil()
}

// CanSubmit reports whether Submit would reach the store.
func (f *SubmissionFlow) CanSubmit(ctx context.Context) bool {
	return f.State() == StateIdle && f.Validate(ctx) == nil
}

// Submit sends the request. While a submission is in flight further calls
// return domain.ErrSubmissionInFlight without side effects. On success the
// room selections are cleared and the duration kept; on failure the inputs are
// left untouched.
func (f *SubmissionFlow) Submit(ctx context.Context) error {
	if !f.submitting.CompareAndSwap(false, true) {
		return domain.ErrSubmissionInFlight
	}
	defer f.submitting.Store(false)

	if err := f.Validate(ctx); err != nil {
		return err
	}
	uid, _ := f.session.CurrentUserID(ctx)

	if f.guard != nil {
		release, ok, err := f.guard.TryAcquire(ctx, uid)
		switch {
		case err != nil:
			f.log.Warn().Err(err).Str("author", uid).Msg("submit lock unavailable, submitting anyway")
		case !ok:
			return domain.ErrSubmissionInFlight
		default:
			defer release()
		}
	}

	from, to, duration := f.Selection()
	err := f.submitter.Submit(ctx, ports.SubmitInput{
		From:            from,
		To:              to,
		DurationMinutes: duration,
		Author:          uid,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.message = messageSubmitFailed + err.Error()
		return err
	}
	f.message = MessageSubmitted
	f.from, f.to = "", ""
	return nil
}
