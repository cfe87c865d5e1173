package session

import (
	"errors"
	"sync"
)

// Double is a FAKE with SPY capabilities for the Sessions interface.
//
// Test Double Taxonomy (Meszaros/Fowler):
//   - FAKE: Working in-memory implementation (no real screen subprocess)
//   - SPY: Records method calls for verification (CreateCalls, WipeCalls)
//
// Entries are kept per PID, not per name: like real screen, a stale Dead
// entry can share its name with a newly created live session.
//
// Use conformance tests to verify it matches real screen behavior.
// For error injection, wrap with a stub that intercepts specific methods.
type Double struct {
	mu       sync.RWMutex
	sessions []*doubleSession
	nextPID  int

	listCalls   int
	createCalls int
	killCalls   int
	wipeCalls   int
}

type doubleSession struct {
	pid     int
	name    string
	workDir string
	command string
	state   State
}

// NewDouble creates a new in-memory Sessions test double.
func NewDouble() *Double {
	return &Double{nextPID: 40000}
}

// Ensure Double implements Sessions
var _ Sessions = (*Double)(nil)

// List returns all sessions in creation (PID) order.
func (d *Double) List() ([]Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listCalls++

	infos := make([]Info, 0, len(d.sessions))
	for _, sess := range d.sessions {
		infos = append(infos, Info{PID: sess.pid, Name: sess.name, State: sess.state})
	}
	return infos, nil
}

// Create registers a new detached session. Fails if a live session with the
// same name exists; a Dead entry does not block the name.
func (d *Double) Create(name, workDir, command string) error {
	if name == "" {
		return errors.New("session name cannot be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.createCalls++

	for _, sess := range d.sessions {
		if sess.name == name && !sess.state.Dead() {
			return errors.New("duplicate session: " + name)
		}
	}

	d.nextPID++
	d.sessions = append(d.sessions, &doubleSession{
		pid:     d.nextPID,
		name:    name,
		workDir: workDir,
		command: command,
		state:   StateDetached,
	})
	return nil
}

// Kill removes the first live session with the name. Returns nil if none
// exists (idempotent). Dead entries are left for WipeDead.
func (d *Double) Kill(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.killCalls++

	for i, sess := range d.sessions {
		if sess.name == name && !sess.state.Dead() {
			d.sessions = append(d.sessions[:i], d.sessions[i+1:]...)
			return nil
		}
	}
	return nil
}

// WipeDead removes every session whose state reads as dead.
func (d *Double) WipeDead() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.wipeCalls++

	kept := d.sessions[:0]
	for _, sess := range d.sessions {
		if !sess.state.Dead() {
			kept = append(kept, sess)
		}
	}
	d.sessions = kept
	return nil
}

// --- Test helpers (not part of the Sessions interface) ---

// find returns the most recently created session with the name.
func (d *Double) find(name string) *doubleSession {
	for i := len(d.sessions) - 1; i >= 0; i-- {
		if d.sessions[i].name == name {
			return d.sessions[i]
		}
	}
	return nil
}

// SetState overrides a session's state (for test setup, e.g. marking it Dead).
// With duplicate names it targets the most recently created one.
func (d *Double) SetState(name string, state State) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sess := d.find(name)
	if sess == nil {
		return errors.New("session not found: " + name)
	}

	sess.state = state
	return nil
}

// Command returns the command the most recent session with the name was
// created with (for test verification).
func (d *Double) Command(name string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sess := d.find(name)
	if sess == nil {
		return ""
	}
	return sess.command
}

// WorkDir returns the working directory the most recent session with the
// name was created with (for test verification).
func (d *Double) WorkDir(name string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sess := d.find(name)
	if sess == nil {
		return ""
	}
	return sess.workDir
}

// SessionCount returns the number of entries, dead ones included (for test
// verification).
func (d *Double) SessionCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.sessions)
}

// Clear removes all sessions and resets spy counters (for test cleanup).
func (d *Double) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sessions = nil
	d.listCalls = 0
	d.createCalls = 0
	d.killCalls = 0
	d.wipeCalls = 0
}

// ListCalls returns how many times List was invoked (for test verification).
func (d *Double) ListCalls() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.listCalls
}

// CreateCalls returns how many times Create was invoked (for test verification).
func (d *Double) CreateCalls() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.createCalls
}

// KillCalls returns how many times Kill was invoked (for test verification).
func (d *Double) KillCalls() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.killCalls
}

// WipeCalls returns how many times WipeDead was invoked (for test verification).
func (d *Double) WipeCalls() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.wipeCalls
}
