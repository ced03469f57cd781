package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/AI2HU/sqlite2pg/internal/logger"
)

// ErrTimedOut is returned when a command is killed at its deadline.
var ErrTimedOut = errors.New("operation timed out")

// DefaultTimeout bounds every external tool run unless configured otherwise.
const DefaultTimeout = 10 * time.Minute

// Command describes one external process invocation.
type Command struct {
	Name    string
	Args    []string
	Env     []string // appended to the parent environment
	Timeout time.Duration
}

// Result captures what the process left behind.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// Observer is notified around each process run.
type Observer interface {
	ToolStarted()
	ToolFinished()
}

// Runner spawns external commands synchronously.
type Runner struct {
	sem      *semaphore.Weighted
	observer Observer
}

// NewRunner creates a runner. maxConcurrent <= 0 leaves concurrency unbounded.
func NewRunner(maxConcurrent int64, observer Observer) *Runner {
	r := &Runner{observer: observer}
	if maxConcurrent > 0 {
		r.sem = semaphore.NewWeighted(maxConcurrent)
	}
	return r
}

// Run executes cmd and waits for it to exit or hit its deadline.
//
// The returned error is non-nil only when the process could not be started,
// when the caller's context ended before a slot was free, or ErrTimedOut.
// A non-zero exit is reported through Result.ExitCode.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("waiting for a free tool slot: %w", err)
		}
		defer r.sem.Release(1)
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// A running tool outlives the request that started it; only the deadline stops it.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, cmd.Name, cmd.Args...)
	c.Env = append(os.Environ(), cmd.Env...)
	c.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if r.observer != nil {
		r.observer.ToolStarted()
		defer r.observer.ToolFinished()
	}

	log := logger.GetLogger().With("tool", cmd.Name)
	log.Debug("Running %v (timeout %s)", redactArgs(cmd.Args), timeout)

	start := time.Now()
	err := c.Run()
	res := &Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		log.Warning("%s timed out after %s", cmd.Name, timeout)
		return res, ErrTimedOut
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, nil
		}
		return res, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
	}

	return res, nil
}

// redactArgs hides URL credentials before arguments reach the log.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = redactURL(a)
	}
	return out
}
