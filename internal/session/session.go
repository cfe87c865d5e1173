// Package session provides abstractions for the terminal-multiplexer session
// table the guard supervises. The primary implementation is GNU screen, but
// the abstraction allows testing with doubles and potentially other
// multiplexers (e.g., tmux).
package session

import "strings"

// State is the liveness state the session manager reports for an entry.
// For GNU screen this is the parenthesized word in `screen -ls` output:
// "Attached", "Detached", or "Dead ???" for stale sockets.
type State string

const (
	// StateAttached means a client is currently attached.
	StateAttached State = "Attached"
	// StateDetached means the session runs in the background.
	StateDetached State = "Detached"
)

// Dead reports whether the entry is a stale socket awaiting a wipe.
// Screen renders dead entries as "Dead ???", so this matches on prefix.
func (s State) Dead() bool {
	return strings.HasPrefix(string(s), "Dead")
}

// Info describes one entry in the session table.
type Info struct {
	PID   int    // Process ID of the session server
	Name  string // Session name (the part after "pid." in screen listings)
	State State  // Liveness state as reported by the manager
}

// Sessions is the portable interface over the session manager's table.
// It carries exactly the operations the guard needs: list the table,
// create a detached session, reap dead entries, and kill by name.
//
// The table is global mutable state owned by the external manager; nothing
// here is transactional. Callers that need check-then-act semantics accept
// the race or serialize themselves.
type Sessions interface {
	// List returns the current session table. An empty table is not an
	// error.
	List() ([]Info, error)

	// Create starts a new detached session named name running command via
	// `sh -c` with workDir as its working directory. Creating a name with a
	// live session is an error; a dead entry does not block the name, since
	// screen keys sockets by PID and happily starts a second one.
	Create(name, workDir, command string) error

	// Kill terminates the named session. Killing an absent session is not
	// an error.
	Kill(name string) error

	// WipeDead removes dead entries from the table. A table with no dead
	// entries is not an error.
	WipeDead() error
}

// Find scans the table for the named session.
func Find(s Sessions, name string) (Info, bool, error) {
	infos, err := s.List()
	if err != nil {
		return Info{}, false, err
	}
	for _, info := range infos {
		if info.Name == name {
			return info, true, nil
		}
	}
	return Info{}, false, nil
}

// Exists reports whether the named session is present in the table,
// regardless of its state.
func Exists(s Sessions, name string) (bool, error) {
	_, ok, err := Find(s, name)
	return ok, err
}

// Alive reports whether a live (non-dead) session with the name is present.
func Alive(s Sessions, name string) (bool, error) {
	infos, err := s.List()
	if err != nil {
		return false, err
	}
	for _, info := range infos {
		if info.Name == name && !info.State.Dead() {
			return true, nil
		}
	}
	return false, nil
}
