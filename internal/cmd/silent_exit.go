package cmd

import (
	"errors"
	"fmt"
)

// SilentExitError carries an exit code for flows whose status IS the code,
// like the guard's already-running branch. Execute translates it without
// printing anything; the command prints whatever notice it wants first.
type SilentExitError struct {
	Code int
}

func (e *SilentExitError) Error() string {
	return fmt.Sprintf("silent exit with code %d", e.Code)
}

// NewSilentExit returns an error that makes Execute exit with code.
func NewSilentExit(code int) error {
	return &SilentExitError{Code: code}
}

// IsSilentExit extracts the exit code from a silent exit error.
func IsSilentExit(err error) (int, bool) {
	var se *SilentExitError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
