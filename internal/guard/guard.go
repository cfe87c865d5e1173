// Package guard keeps the named logger session alive.
//
// One invocation runs a single pass of the supervisory state machine:
// list, jitter, re-list, create, reap. The guard never retries and never
// tracks the payload after creation; the scheduler that invokes it provides
// the loop.
package guard

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/plugwatch/plugwatch/internal/session"
)

// ErrAlreadyRunning reports that a live session held the name at the first
// check (or that another guard holds the lock). Callers translate it into
// the early-exit code 1.
var ErrAlreadyRunning = errors.New("session already running")

// Outcome labels for a completed run.
const (
	OutcomeCreated        = "created"
	OutcomeAlreadyRunning = "already-running"
	OutcomeSkippedCreate  = "skipped-create"
)

// Options configure one EnsureRunning pass.
type Options struct {
	// SessionName is the fixed session the guard maintains.
	SessionName string

	// WorkDir is the directory the payload starts in, normally the
	// executable's own directory so relative data paths resolve the same
	// regardless of the scheduler's CWD.
	WorkDir string

	// Command is the shell command the session runs.
	Command string

	// JitterMin and JitterMax bound the delay between the two existence
	// checks.
	JitterMin time.Duration
	JitterMax time.Duration

	// LockFile, when non-empty, takes an exclusive flock for the duration
	// of the run. A lock held elsewhere is treated like the early-exit
	// branch.
	LockFile string

	// Sleep replaces time.Sleep in tests. Nil means time.Sleep.
	Sleep func(time.Duration)
}

// EnsureRunning idempotently ensures a live session named opts.SessionName
// is running opts.Command. It returns the outcome label for the pass.
//
// A live session at the first check returns ErrAlreadyRunning without
// touching the table. Otherwise the guard sleeps a uniform random delay in
// [JitterMin, JitterMax] to desynchronize overlapping scheduler ticks,
// re-checks, and creates the session only if the name is still free. The
// jitter is a probabilistic hint, not a lock; the check-then-act window
// stays open unless LockFile is set. Finally, a dead entry under the name
// triggers a table wipe.
func EnsureRunning(s session.Sessions, opts Options) (string, error) {
	if opts.LockFile != "" {
		lock := flock.New(opts.LockFile)
		locked, err := lock.TryLock()
		if err != nil {
			return "", fmt.Errorf("acquiring guard lock %s: %w", opts.LockFile, err)
		}
		if !locked {
			return OutcomeAlreadyRunning, ErrAlreadyRunning
		}
		defer func() { _ = lock.Unlock() }()
	}

	alive, err := session.Alive(s, opts.SessionName)
	if err != nil {
		return "", fmt.Errorf("listing sessions: %w", err)
	}
	if alive {
		return OutcomeAlreadyRunning, ErrAlreadyRunning
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(jitter(opts.JitterMin, opts.JitterMax))

	alive, err = session.Alive(s, opts.SessionName)
	if err != nil {
		return "", fmt.Errorf("listing sessions: %w", err)
	}

	outcome := OutcomeSkippedCreate
	if !alive {
		switch err := s.Create(opts.SessionName, opts.WorkDir, opts.Command); {
		case err == nil:
			outcome = OutcomeCreated
		default:
			// Lost the creation race to a competing invocation. As long
			// as a live session holds the name now, the goal is met.
			nowAlive, aliveErr := session.Alive(s, opts.SessionName)
			if aliveErr != nil || !nowAlive {
				return "", fmt.Errorf("creating session %s: %w", opts.SessionName, err)
			}
		}
	}

	infos, err := s.List()
	if err != nil {
		return outcome, fmt.Errorf("listing sessions: %w", err)
	}
	for _, info := range infos {
		if info.Name == opts.SessionName && info.State.Dead() {
			if err := s.WipeDead(); err != nil {
				return outcome, fmt.Errorf("wiping dead sessions: %w", err)
			}
			break
		}
	}

	return outcome, nil
}

// jitter picks a uniform duration in [min, max].
func jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// PayloadCommand composes the shell command the session runs. With capture
// enabled the payload's combined stdout and stderr are appended to logFile
// through tee, so successive payload runs extend one log.
func PayloadCommand(base, logFile string, capture bool) string {
	if !capture || logFile == "" {
		return base
	}
	return fmt.Sprintf("%s 2>&1 | tee -a %s", base, shellQuote(logFile))
}

// shellQuote wraps s in single quotes for sh -c, escaping embedded quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
