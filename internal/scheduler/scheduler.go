package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/AI2HU/sqlite2pg/internal/config"
	"github.com/AI2HU/sqlite2pg/internal/logger"
	"github.com/AI2HU/sqlite2pg/internal/services"
)

// Retry configuration constants
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 30 * time.Second
)

// BackupService is the part of the operation service the scheduler drives
type BackupService interface {
	Connection() (config.Connection, error)
	Backup(ctx context.Context, conn config.Connection) (*services.Artifact, error)
	PruneBackups(retain int) ([]string, error)
}

// Options configures scheduled backups
type Options struct {
	Schedule   string
	Retain     int
	MaxRetries int
	RetryDelay time.Duration
}

// Scheduler runs periodic backups of the saved connection
type Scheduler struct {
	service BackupService
	opts    Options
	cron    *cron.Cron
	entry   cron.EntryID
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex
	runMu   sync.Mutex
}

// New creates a new scheduler
func New(service BackupService, opts Options) *Scheduler {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	} else if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Scheduler{
		service: service,
		opts:    opts,
		cron:    cron.New(),
	}
}

// Enabled reports whether a schedule is configured
func (s *Scheduler) Enabled() bool {
	return s.opts.Schedule != ""
}

// Start registers the backup job and starts the cron loop. It is a no-op
// when no schedule is configured.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if !s.Enabled() {
		logger.Debug("No backup schedule configured, scheduler idle")
		return nil
	}

	// Cancelling runCtx abandons pending retries. A pg_dump already running
	// is bounded by the tool timeout only.
	runCtx, cancel := context.WithCancel(ctx)
	id, err := s.cron.AddFunc(s.opts.Schedule, func() {
		if err := s.RunNow(runCtx); err != nil {
			logger.Error("Scheduled backup failed: %v", err)
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entry = id
	s.cancel = cancel

	s.cron.Start()
	s.running = true

	logger.Info("Scheduler started with cron expression: %s (retain %d)", s.opts.Schedule, s.opts.Retain)
	return nil
}

// Stop stops the scheduler, abandons pending retries and waits for the
// current backup attempt to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entry)
	s.running = false

	logger.Info("Scheduler stopped")
}

// Next returns the next planned run, or the zero time when idle
func (s *Scheduler) Next() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// RunNow performs one backup with retries, then prunes old dumps. Runs
// never overlap.
func (s *Scheduler) RunNow(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	conn, err := s.service.Connection()
	if err != nil {
		return fmt.Errorf("failed to load connection: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Info("Executing scheduled backup of %s", conn.Redacted())
	artifact, err := s.backupWithRetry(ctx, conn)
	if err != nil {
		return err
	}
	logger.Info("Scheduled backup written to %s (%d bytes, %s)", artifact.Path, artifact.Size, artifact.Checksum)

	removed, err := s.service.PruneBackups(s.opts.Retain)
	if err != nil {
		return fmt.Errorf("failed to prune backups: %w", err)
	}
	for _, path := range removed {
		logger.Info("Pruned old backup %s", path)
	}
	return nil
}

func (s *Scheduler) backupWithRetry(ctx context.Context, conn config.Connection) (*services.Artifact, error) {
	var lastErr error

	for attempt := 1; attempt <= s.opts.MaxRetries; attempt++ {
		artifact, err := s.service.Backup(ctx, conn)
		if err == nil {
			if attempt > 1 {
				logger.Info("Backup succeeded on attempt %d after %d previous failures", attempt, attempt-1)
			}
			return artifact, nil
		}

		lastErr = err
		logger.Warning("Attempt %d/%d of scheduled backup failed: %v", attempt, s.opts.MaxRetries, err)

		// Don't wait after the last attempt
		if attempt < s.opts.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.opts.RetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("failed after %d attempts, last error: %w", s.opts.MaxRetries, lastErr)
}
