package session

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Screen drives GNU screen through its CLI.
type Screen struct {
	// execPath is the screen binary to invoke. Defaults to "screen" on PATH.
	execPath string
}

// NewScreen returns a Sessions implementation backed by GNU screen.
func NewScreen() *Screen {
	return &Screen{execPath: "screen"}
}

var _ Sessions = (*Screen)(nil)

// run executes screen with the given arguments and returns combined output.
func (s *Screen) run(workDir string, args ...string) ([]byte, error) {
	cmd := exec.Command(s.execPath, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("screen %s: %w (output: %s)", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// List parses `screen -ls`. Screen exits non-zero from -ls even when the
// listing succeeds (and always when the table is empty), so the exit status
// is ignored and the output parsed regardless. A missing binary is still
// reported: without screen installed the caller has nothing to supervise.
func (s *Screen) List() ([]Info, error) {
	cmd := exec.Command(s.execPath, "-ls")
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("running screen -ls: %w", err)
		}
	}
	return parseListing(out), nil
}

// parseListing extracts session entries from `screen -ls` output.
//
// Entries are indented lines of the form
//
//	12345.tasmota_log	(Detached)
//	12345.tasmota_log	(08/22/26 10:11:12)	(Dead ???)
//
// The state is the last parenthesized group; builds compiled with session
// timestamps put those in an earlier group.
func parseListing(out []byte) []Info {
	var infos []Info
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "\t") && !strings.HasPrefix(line, " ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		dot := strings.IndexByte(fields[0], '.')
		if dot <= 0 {
			continue
		}
		pid, err := strconv.Atoi(fields[0][:dot])
		if err != nil {
			continue
		}
		info := Info{PID: pid, Name: fields[0][dot+1:]}
		open, end := strings.LastIndexByte(line, '('), strings.LastIndexByte(line, ')')
		if open >= 0 && end > open {
			info.State = State(line[open+1 : end])
		}
		infos = append(infos, info)
	}
	return infos
}

// Create starts a detached session running command under `sh -c`.
// The screen server forks from this process, so workDir becomes the
// session's working directory.
func (s *Screen) Create(name, workDir, command string) error {
	if name == "" {
		return fmt.Errorf("session name is required")
	}
	if command == "" {
		return fmt.Errorf("session command is required")
	}
	alive, err := Alive(s, name)
	if err != nil {
		return err
	}
	if alive {
		return fmt.Errorf("duplicate session: %s", name)
	}
	if _, err := s.run(workDir, "-dmS", name, "sh", "-c", command); err != nil {
		return fmt.Errorf("creating session %s: %w", name, err)
	}
	return nil
}

// Kill terminates the named session. Absent sessions are ignored so Kill is
// idempotent.
func (s *Screen) Kill(name string) error {
	if name == "" {
		return fmt.Errorf("session name is required")
	}
	out, err := s.run("", "-S", name, "-X", "quit")
	if err != nil {
		if strings.Contains(string(out), "No screen session found") {
			return nil
		}
		return fmt.Errorf("killing session %s: %w", name, err)
	}
	return nil
}

// WipeDead runs `screen -wipe`, removing dead entries from the table.
// Like -ls, -wipe signals through output rather than exit status, so exit
// errors from a reachable binary are ignored.
func (s *Screen) WipeDead() error {
	cmd := exec.Command(s.execPath, "-wipe")
	_, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("running screen -wipe: %w", err)
		}
	}
	return nil
}
