package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/utils"
)

const (
	defaultLockTimeout = 10 * time.Second
	lockRetryInterval  = 100 * time.Millisecond
)

// ErrLocked is returned when a queue lock could not be acquired within the
// configured timeout. Callers should back off and retry the whole operation.
var ErrLocked = errors.New("queue is locked")

// Store keeps per-user, per-status job lists as JSON files under
// dir/<sanitized user id>/<status>.json. Every operation is a whole-list
// read-modify-write guarded by a lock keyed by (user, status): an in-process
// semaphore plus an advisory file lock so other processes inspecting the
// same files stay consistent.
type Store struct {
	dir         string
	logger      *zap.Logger
	lockTimeout time.Duration

	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewStore(dir string, lockTimeout time.Duration, logger *zap.Logger) *Store {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}

	return &Store{
		dir:         dir,
		logger:      logger,
		lockTimeout: lockTimeout,
		locks:       make(map[string]chan struct{}),
	}
}

// Append adds one record to the end of the queue, committing the whole list
// before returning.
func (s *Store) Append(ctx context.Context, userID string, status Status, rec Record) error {
	return s.Update(ctx, userID, status, func(records []Record) []Record {
		return append(records, rec)
	})
}

// ReadAll returns the queue content in insertion order. A missing file reads
// as an empty list, and so does a corrupted one: corruption means "nothing
// processed yet", never a hard failure.
func (s *Store) ReadAll(ctx context.Context, userID string, status Status) ([]Record, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown queue status %q", status)
	}

	path, err := s.ensurePath(userID, status)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, userID, status, path)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.readLocked(path), nil
}

// Update applies fn to the current list and writes the result back, all under
// the (user, status) lock. Used for the lazy clarification attach, where a
// plain append would duplicate records.
func (s *Store) Update(ctx context.Context, userID string, status Status, fn func([]Record) []Record) error {
	if !status.Valid() {
		return fmt.Errorf("unknown queue status %q", status)
	}

	path, err := s.ensurePath(userID, status)
	if err != nil {
		return err
	}

	release, err := s.acquire(ctx, userID, status, path)
	if err != nil {
		return err
	}
	defer release()

	records := s.readLocked(path)
	records = fn(records)

	return writeRecords(path, records)
}

func (s *Store) ensurePath(userID string, status Status) (string, error) {
	userDir := filepath.Join(s.dir, utils.SanitizeUserID(userID))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", fmt.Errorf("creating queue directory: %w", err)
	}

	return filepath.Join(userDir, string(status)+".json"), nil
}

// acquire takes the in-process semaphore for the (user, status) key and then
// the advisory file lock, both bounded by the configured timeout. The
// returned release func must be called exactly once.
func (s *Store) acquire(ctx context.Context, userID string, status Status, path string) (func(), error) {
	key := utils.SanitizeUserID(userID) + "/" + string(status)
	sem := s.semaphore(key)

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
	case <-timer.C:
		return nil, fmt.Errorf("acquiring lock for %s: %w", key, ErrLocked)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	fl := flock.New(path + ".lock")

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		<-sem
		return nil, fmt.Errorf("acquiring file lock for %s: %w", key, err)
	}
	if !locked {
		<-sem
		return nil, fmt.Errorf("acquiring file lock for %s: %w", key, ErrLocked)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("releasing queue file lock", zap.String("key", key), zap.Error(err))
		}
		<-sem
	}, nil
}

func (s *Store) semaphore(key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	sem, ok := s.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		s.locks[key] = sem
	}
	return sem
}

func (s *Store) readLocked(path string) []Record {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("reading queue file", zap.String("path", path), zap.Error(err))
		}
		return []Record{}
	}

	if len(data) == 0 {
		return []Record{}
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("queue file is not parseable, treating as empty",
			zap.String("path", path),
			zap.Error(err),
		)
		return []Record{}
	}

	return records
}

// writeRecords rewrites the whole list through a temp file and rename so a
// concurrent reader never observes a partial write.
func writeRecords(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue records: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp queue file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing queue file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("committing queue file: %w", err)
	}

	return nil
}
