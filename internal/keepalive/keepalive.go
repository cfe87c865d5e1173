// Package keepalive records when the logger last did useful work, so the
// status command can tell a live session from a wedged one.
package keepalive

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/plugwatch/plugwatch/internal/util"
)

const (
	runtimeDir = ".runtime"
	fileName   = "keepalive.json"
)

// State is the persisted heartbeat.
type State struct {
	Timestamp   time.Time `json:"timestamp"`
	LastCommand string    `json:"last_command"`
}

// Age returns how long ago the keepalive was touched. A nil state reads as
// very old, so a missing file sorts as stale.
func (s *State) Age() time.Duration {
	if s == nil {
		return time.Duration(math.MaxInt64)
	}
	return time.Since(s.Timestamp)
}

func statePath(workDir string) string {
	return filepath.Join(workDir, runtimeDir, fileName)
}

// TouchInWorkspace records that cmd just ran in workDir, creating the
// runtime directory as needed. Errors are swallowed: a failed touch must
// never break the command that did the work.
func TouchInWorkspace(workDir, cmd string) {
	p := statePath(workDir)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return
	}
	_ = util.AtomicWriteJSON(p, State{
		Timestamp:   time.Now(),
		LastCommand: cmd,
	})
}

// Read returns the recorded state for workDir, nil when absent or
// unreadable.
func Read(workDir string) *State {
	data, err := os.ReadFile(statePath(workDir))
	if err != nil {
		return nil
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	return &s
}
