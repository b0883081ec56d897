package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corepass/hallpass/internal/core/domain"
	"github.com/corepass/hallpass/internal/core/ports"
)

const waitFor = 2 * time.Second

func newQuerySvc(store *stubPassStore, uid string, notifier ports.PassNotifier) *PassQueryService {
	return NewPassQueryService(store, FixedSession{UID: uid}, notifier, discardLogger)
}

func recvSnapshot(t *testing.T, ch <-chan []domain.Pass) []domain.Pass {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func expectNoSnapshot(t *testing.T, ch <-chan []domain.Pass) {
	t.Helper()
	select {
	case s := <-ch:
		t.Fatalf("unexpected snapshot: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(waitFor):
		t.Fatal("subscription did not stop")
	}
}

// ---------------------------------------------------------------------------
// Subscribe
// ---------------------------------------------------------------------------

func TestPassQuery_Subscribe_NotSignedIn(t *testing.T) {
	store := newStubPassStore()
	svc := newQuerySvc(store, "", nil)

	sub, err := svc.Subscribe(context.Background(), func([]domain.Pass) {}, nil)
	if !errors.Is(err, domain.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if sub != nil {
		t.Error("expected no subscription handle")
	}
	if watch, list, _ := store.counts(); watch != 0 || list != 0 {
		t.Errorf("store must not be touched: watch=%d list=%d", watch, list)
	}
}

func TestPassQuery_Subscribe_DeliversFullSnapshots(t *testing.T) {
	store := newStubPassStore(samplePass("p1", domain.ApprovalPending, false, 0))
	svc := newQuerySvc(store, "uid-1", nil)

	snaps := make(chan []domain.Pass, 4)
	sub, err := svc.Subscribe(context.Background(), func(ps []domain.Pass) { snaps <- ps }, nil)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer svc.Unsubscribe(sub)

	if got := recvSnapshot(t, snaps); len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("initial snapshot: %+v", got)
	}

	store.set(
		samplePass("p1", domain.ApprovalApproved, true, 0),
		samplePass("p2", domain.ApprovalPending, false, time.Minute),
	)
	store.feed.signals <- struct{}{}

	got := recvSnapshot(t, snaps)
	if len(got) != 2 {
		t.Fatalf("expected complete snapshot of 2 passes, got %d", len(got))
	}
	b := domain.Classify(got)
	if b.Active == nil || b.Active.ID != "p1" || len(b.Requested) != 1 {
		t.Errorf("unexpected buckets: %+v", b)
	}
}

func TestPassQuery_Subscribe_ReplacesPreviousSubscription(t *testing.T) {
	store := newStubPassStore(samplePass("p1", domain.ApprovalPending, false, 0))
	svc := newQuerySvc(store, "uid-1", nil)

	first := make(chan []domain.Pass, 4)
	sub1, err := svc.Subscribe(context.Background(), func(ps []domain.Pass) { first <- ps }, nil)
	if err != nil {
		t.Fatal(err)
	}
	recvSnapshot(t, first)

	second := make(chan []domain.Pass, 4)
	sub2, err := svc.Subscribe(context.Background(), func(ps []domain.Pass) { second <- ps }, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Unsubscribe(sub2)

	waitDone(t, sub1)
	recvSnapshot(t, second)

	if sub1.ID() == sub2.ID() {
		t.Error("handles must be distinct")
	}
	expectNoSnapshot(t, first)
}

func TestPassQuery_Unsubscribe_IdempotentAndNilSafe(t *testing.T) {
	store := newStubPassStore()
	svc := newQuerySvc(store, "uid-1", nil)

	svc.Unsubscribe(nil)
	svc.Stop()

	snaps := make(chan []domain.Pass, 4)
	sub, err := svc.Subscribe(context.Background(), func(ps []domain.Pass) { snaps <- ps }, nil)
	if err != nil {
		t.Fatal(err)
	}
	recvSnapshot(t, snaps)

	svc.Unsubscribe(sub)
	svc.Unsubscribe(sub)
	sub.Close()
	waitDone(t, sub)

	if !store.feed.isClosed() {
		t.Error("change feed must be closed on unsubscribe")
	}
	expectNoSnapshot(t, snaps)
}

func TestPassQuery_Unsubscribe_BeforeFirstSnapshot(t *testing.T) {
	store := newStubPassStore(samplePass("p1", domain.ApprovalPending, false, 0))
	store.listGate = make(chan struct{})
	svc := newQuerySvc(store, "uid-1", nil)

	snaps := make(chan []domain.Pass, 4)
	sub, err := svc.Subscribe(context.Background(), func(ps []domain.Pass) { snaps <- ps }, nil)
	if err != nil {
		t.Fatal(err)
	}

	svc.Unsubscribe(sub)
	close(store.listGate)
	waitDone(t, sub)

	expectNoSnapshot(t, snaps)
}

func TestPassQuery_Close_WaitsForRunningCallback(t *testing.T) {
	store := newStubPassStore(samplePass("p1", domain.ApprovalPending, false, 0))
	svc := newQuerySvc(store, "uid-1", nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	sub, err := svc.Subscribe(context.Background(), func([]domain.Pass) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-entered:
	case <-time.After(waitFor):
		t.Fatal("callback never started")
	}

	closed := make(chan struct{})
	go func() {
		sub.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a callback was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(waitFor):
		t.Fatal("Close did not return after the callback finished")
	}

	store.feed.signals <- struct{}{}
	waitDone(t, sub)
	if got := calls.Load(); got != 1 {
		t.Errorf("no callback may run after Close returns, got %d calls", got)
	}
}

func TestPassQuery_Subscribe_WatchFailureReportedAsReadFailure(t *testing.T) {
	store := newStubPassStore()
	store.watchErr = errStoreDown
	svc := newQuerySvc(store, "uid-1", nil)

	errs := make(chan error, 1)
	sub, err := svc.Subscribe(context.Background(), func([]domain.Pass) {
		t.Error("no snapshot expected")
	}, func(err error) { errs <- err })
	if err != nil {
		t.Fatalf("subscribe itself must succeed, got %v", err)
	}

	select {
	case err := <-errs:
		if !errors.Is(err, domain.ErrStoreRead) || !errors.Is(err, errStoreDown) {
			t.Errorf("expected wrapped read failure, got %v", err)
		}
	case <-time.After(waitFor):
		t.Fatal("expected error callback")
	}
	waitDone(t, sub)
}

func TestPassQuery_Subscribe_ListFailureKeepsListening(t *testing.T) {
	store := newStubPassStore(samplePass("p1", domain.ApprovalPending, false, 0))
	store.listErr = errStoreDown
	svc := newQuerySvc(store, "uid-1", nil)

	snaps := make(chan []domain.Pass, 4)
	errs := make(chan error, 4)
	sub, err := svc.Subscribe(context.Background(), func(ps []domain.Pass) { snaps <- ps }, func(err error) { errs <- err })
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Unsubscribe(sub)

	select {
	case err := <-errs:
		if !errors.Is(err, domain.ErrStoreRead) {
			t.Errorf("expected read failure, got %v", err)
		}
	case <-time.After(waitFor):
		t.Fatal("expected error callback")
	}

	store.mu.Lock()
	store.listErr = nil
	store.mu.Unlock()
	store.feed.signals <- struct{}{}

	if got := recvSnapshot(t, snaps); len(got) != 1 {
		t.Errorf("expected recovery snapshot, got %+v", got)
	}
}

func TestPassQuery_Subscribe_FeedErrorSurfaced(t *testing.T) {
	store := newStubPassStore()
	store.feed.err = errors.New("change stream invalidated")
	svc := newQuerySvc(store, "uid-1", nil)

	snaps := make(chan []domain.Pass, 4)
	errs := make(chan error, 1)
	sub, err := svc.Subscribe(context.Background(), func(ps []domain.Pass) { snaps <- ps }, func(err error) { errs <- err })
	if err != nil {
		t.Fatal(err)
	}
	recvSnapshot(t, snaps)
	close(store.feed.signals)

	select {
	case err := <-errs:
		if !errors.Is(err, domain.ErrStoreRead) {
			t.Errorf("expected read failure, got %v", err)
		}
	case <-time.After(waitFor):
		t.Fatal("expected feed error")
	}
	waitDone(t, sub)
}

func TestPassQuery_Subscribe_ContextCancelEndsSubscription(t *testing.T) {
	store := newStubPassStore()
	svc := newQuerySvc(store, "uid-1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := svc.Subscribe(ctx, func([]domain.Pass) {}, nil)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	waitDone(t, sub)
}

// ---------------------------------------------------------------------------
// Snapshot / Find
// ---------------------------------------------------------------------------

func TestPassQuery_Snapshot_Classifies(t *testing.T) {
	store := newStubPassStore(
		samplePass("pending", domain.ApprovalPending, false, 0),
		samplePass("running", domain.ApprovalApproved, true, time.Minute),
		samplePass("denied", domain.ApprovalRejected, false, 2*time.Minute),
	)
	svc := newQuerySvc(store, "uid-1", nil)

	b, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b.Active == nil || b.Active.ID != "running" || len(b.Requested) != 1 || len(b.Past) != 1 {
		t.Errorf("unexpected buckets: %+v", b)
	}
}

func TestPassQuery_Snapshot_Errors(t *testing.T) {
	if _, err := newQuerySvc(newStubPassStore(), "", nil).Snapshot(context.Background()); !errors.Is(err, domain.ErrNotSignedIn) {
		t.Errorf("expected ErrNotSignedIn, got %v", err)
	}

	store := newStubPassStore()
	store.listErr = errStoreDown
	if _, err := newQuerySvc(store, "uid-1", nil).Snapshot(context.Background()); !errors.Is(err, domain.ErrStoreRead) {
		t.Errorf("expected ErrStoreRead, got %v", err)
	}
}

func TestPassQuery_Find_ScopedToAuthor(t *testing.T) {
	other := samplePass("theirs", domain.ApprovalPending, false, 0)
	other.Author = "uid-2"
	store := newStubPassStore(samplePass("mine", domain.ApprovalPending, false, 0), other)
	svc := newQuerySvc(store, "uid-1", nil)

	if p, err := svc.Find(context.Background(), "mine"); err != nil || p.ID != "mine" {
		t.Errorf("expected own pass, got %v %v", p, err)
	}
	if _, err := svc.Find(context.Background(), "theirs"); !errors.Is(err, domain.ErrPassNotFound) {
		t.Errorf("expected ErrPassNotFound for foreign pass, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// EndPass
// ---------------------------------------------------------------------------

func TestPassQuery_EndPass_Success(t *testing.T) {
	store := newStubPassStore(samplePass("run", domain.ApprovalApproved, true, 0))
	notifier := &stubNotifier{}
	svc := newQuerySvc(store, "uid-1", notifier)

	if err := svc.EndPass(context.Background(), "run"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.deactivated) != 1 || store.deactivated[0] != "run" {
		t.Errorf("expected deactivate call, got %v", store.deactivated)
	}
	events := notifier.all()
	if len(events) != 1 || events[0].Kind != ports.PassEnded || events[0].PassID != "run" {
		t.Errorf("expected pass.ended notification, got %+v", events)
	}
}

func TestPassQuery_EndPass_Errors(t *testing.T) {
	cases := []struct {
		name  string
		uid   string
		id    string
		err   error
		want  error
		notif bool
	}{
		{name: "missing id", uid: "uid-1", id: "", want: domain.ErrMissingPassID},
		{name: "signed out", uid: "", id: "run", want: domain.ErrNotSignedIn},
		{name: "unknown pass", uid: "uid-1", id: "nope", want: domain.ErrPassNotFound},
		{name: "foreign pass", uid: "uid-2", id: "run", want: domain.ErrPassNotFound},
		{name: "store down", uid: "uid-1", id: "run", err: errStoreDown, want: domain.ErrStoreWrite},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			store := newStubPassStore(samplePass("run", domain.ApprovalApproved, true, 0))
			store.deactivateErr = c.err
			notifier := &stubNotifier{}
			svc := newQuerySvc(store, c.uid, notifier)

			err := svc.EndPass(context.Background(), c.id)
			if !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
			if len(notifier.all()) != 0 {
				t.Error("failed end must not notify")
			}
		})
	}
}
