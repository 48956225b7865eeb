package agent

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// User is the runtime handle for one registered user. The active flag is the
// sole cancellation signal: every downstream step polls it before doing work.
type User struct {
	ID string

	active atomic.Bool
}

func (u *User) Active() bool {
	return u.active.Load()
}

// Manager owns the per-user worker lifecycle. It is the only component that
// mutates the active flag and the only one allowed to spawn worker tasks, so
// at most one task ever runs per user id.
type Manager struct {
	worker *Worker
	logger *zap.Logger

	wg sync.WaitGroup

	mu      sync.Mutex
	users   map[string]*User
	running map[string]struct{}
}

func NewManager(worker *Worker, logger *zap.Logger) *Manager {
	return &Manager{
		worker:  worker,
		logger:  logger,
		users:   make(map[string]*User),
		running: make(map[string]struct{}),
	}
}

// Register creates an inactive handle for the user if absent. Idempotent.
func (m *Manager) Register(userID string) *User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[userID]; ok {
		return u
	}

	u := &User{ID: userID}
	m.users[userID] = u

	m.logger.Debug("user registered", zap.String("user_id", userID))

	return u
}

// Start activates the user and launches their processing task unless one is
// already running. Starting an already-running user only refreshes the flag.
func (m *Manager) Start(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrUnknownUser
	}

	u.active.Store(true)

	if _, alreadyRunning := m.running[userID]; alreadyRunning {
		m.logger.Debug("agent already running", zap.String("user_id", userID))
		return nil
	}

	m.spawnLocked(ctx, u)

	return nil
}

// spawnLocked launches the processing task for the user. Caller holds m.mu.
//
// The exit path runs under m.mu as well. Run returns only after the active
// flag went down, so finding it up again at exit means a Start call raced
// the wind-down: it saw the running entry and trusted this task to keep
// going. That restart must not be lost, so the task is respawned instead of
// being torn down.
func (m *Manager) spawnLocked(ctx context.Context, u *User) {
	m.running[u.ID] = struct{}{}
	m.wg.Add(1)

	m.logger.Info("starting agent", zap.String("user_id", u.ID))

	go func() {
		defer m.wg.Done()

		m.worker.Run(ctx, u)

		m.mu.Lock()
		delete(m.running, u.ID)

		if u.Active() && ctx.Err() == nil {
			m.spawnLocked(ctx, u)
			m.mu.Unlock()
			return
		}

		u.active.Store(false)
		m.mu.Unlock()

		m.logger.Info("agent stopped", zap.String("user_id", u.ID))
	}()
}

// Stop deactivates the user. It does not wait for the task to exit; the task
// notices the flag at its next poll point and winds down on its own.
func (m *Manager) Stop(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrUnknownUser
	}

	u.active.Store(false)

	m.logger.Info("stopping agent", zap.String("user_id", userID))

	return nil
}

// Status reports whether the user's agent is active.
func (m *Manager) Status(userID string) (bool, error) {
	m.mu.Lock()
	u, ok := m.users[userID]
	m.mu.Unlock()

	if !ok {
		return false, ErrUnknownUser
	}

	return u.Active(), nil
}

// Unregister removes the handle entirely, deactivating it first.
func (m *Manager) Unregister(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrUnknownUser
	}

	u.active.Store(false)
	delete(m.users, userID)

	return nil
}

// Shutdown deactivates every user and waits for all tasks to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, u := range m.users {
		u.active.Store(false)
	}
	m.mu.Unlock()

	m.wg.Wait()
}
