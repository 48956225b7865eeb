package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/notify"
	"github.com/anirbandas/job-apply-agent/internal/profile"
	"github.com/anirbandas/job-apply-agent/internal/queue"
)

type blockingProfiles struct {
	calls   int32
	release chan struct{}
}

func (b *blockingProfiles) GetByID(_ context.Context, _ string) (*profile.Profile, error) {
	atomic.AddInt32(&b.calls, 1)
	<-b.release
	return nil, errors.New("released")
}

// gatedProfiles parks the worker inside the profile lookup until released,
// then lets the pass proceed normally.
type gatedProfiles struct {
	calls   int32
	release chan struct{}
}

func (g *gatedProfiles) GetByID(_ context.Context, id string) (*profile.Profile, error) {
	atomic.AddInt32(&g.calls, 1)
	<-g.release
	return &profile.Profile{ID: id, FullName: "Test User", Email: "test@example.com"}, nil
}

func waitForLookups(t *testing.T, profiles *gatedProfiles, want int32) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&profiles.calls) < want && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt32(&profiles.calls); got < want {
		t.Fatalf("expected at least %d profile lookups, observed %d", want, got)
	}
}

func newManagerFixture(t *testing.T, profiles ProfileStore) *Manager {
	t.Helper()

	logger := zap.NewNop()
	cfg := Config{RetryDelay: time.Millisecond, PassInterval: time.Millisecond}
	queues := queue.NewStore(t.TempDir(), time.Second, logger)
	hub := notify.NewHub(logger)
	scorer := &stubScorer{scores: map[string]int{}}
	writer := &stubWriter{}

	router := NewRouter(scorer, queues, hub, cfg, logger)
	submitter := NewSubmitter(writer, &stubApplier{}, queues, hub, cfg, logger)
	worker := NewWorker(profiles, &stubQueries{}, &stubSource{}, router, writer, submitter, queues, hub, cfg, logger)

	return NewManager(worker, logger)
}

func TestLifecycleOnUnregisteredUser(t *testing.T) {
	m := newManagerFixture(t, &stubProfiles{})

	if err := m.Start(context.Background(), "ghost"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser from Start, got %v", err)
	}

	if err := m.Stop("ghost"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser from Stop, got %v", err)
	}

	if _, err := m.Status("ghost"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser from Status, got %v", err)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	m := newManagerFixture(t, &stubProfiles{})

	first := m.Register("u1")
	second := m.Register("u1")

	if first != second {
		t.Fatal("expected the same handle for repeated registration")
	}

	active, err := m.Status("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active {
		t.Fatal("freshly registered user must be inactive")
	}
}

func TestStartSpawnsExactlyOneTask(t *testing.T) {
	profiles := &blockingProfiles{release: make(chan struct{})}
	m := newManagerFixture(t, profiles)
	m.Register("u1")

	ctx := context.Background()
	if err := m.Start(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Start(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&profiles.calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	if calls := atomic.LoadInt32(&profiles.calls); calls != 1 {
		t.Fatalf("expected a single running task, observed %d profile lookups", calls)
	}

	close(profiles.release)
	m.Shutdown()
}

func TestFailedPassDeactivatesUser(t *testing.T) {
	m := newManagerFixture(t, &stubProfiles{err: profile.ErrNotFound})
	m.Register("u1")

	if err := m.Start(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.Shutdown()

	active, err := m.Status("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active {
		t.Fatal("user must be inactive after the task exits")
	}
}

func TestStopDeactivatesWithoutBlocking(t *testing.T) {
	profiles := &blockingProfiles{release: make(chan struct{})}
	m := newManagerFixture(t, profiles)
	m.Register("u1")

	if err := m.Start(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if err := m.Stop("u1"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop must not wait for the task")
	}

	active, err := m.Status("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active {
		t.Fatal("user must be inactive after Stop")
	}

	close(profiles.release)
	m.Shutdown()
}

func TestStartDuringWindDownIsNotLost(t *testing.T) {
	const rounds = 50

	// Buffered so releasing never blocks, even when the task happens to be
	// between passes rather than parked in the lookup.
	profiles := &gatedProfiles{release: make(chan struct{}, rounds+1)}
	m := newManagerFixture(t, profiles)
	m.Register("u1")

	ctx := context.Background()
	if err := m.Start(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Stop releases the parked pass, so the task is winding down right as
	// the next Start arrives. Every restart must produce a live task again,
	// observable as one more profile lookup.
	for i := 0; i < rounds; i++ {
		waitForLookups(t, profiles, int32(i+1))

		if err := m.Stop("u1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		profiles.release <- struct{}{}
		if err := m.Start(ctx, "u1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	waitForLookups(t, profiles, rounds+1)

	active, err := m.Status("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !active {
		t.Fatal("restart during wind-down was lost")
	}

	if err := m.Stop("u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	profiles.release <- struct{}{}
	m.Shutdown()
}

func TestRestartAfterStop(t *testing.T) {
	m := newManagerFixture(t, &stubProfiles{err: profile.ErrNotFound})
	m.Register("u1")

	ctx := context.Background()
	if err := m.Start(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Shutdown()

	if err := m.Start(ctx, "u1"); err != nil {
		t.Fatalf("expected restart to succeed, got %v", err)
	}
	m.Shutdown()
}
