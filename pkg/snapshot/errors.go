package snapshot

import (
	"errors"
	"os"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"
)

var (
	// ErrVanished reports a PID that stopped resolving mid-query.
	ErrVanished = errors.New("process vanished")
	// ErrAccessDenied reports insufficient privilege to read a field.
	ErrAccessDenied = errors.New("access denied")
	// ErrUnavailable reports a backend that failed to initialize or respond.
	ErrUnavailable = errors.New("backend unavailable")
)

// classify folds library and kernel errors into the package sentinels so
// callers can decide between skipping a record and degrading a backend.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, process.ErrorProcessNotRunning), errors.Is(err, syscall.ESRCH):
		return ErrVanished
	case errors.Is(err, os.ErrPermission), errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return ErrAccessDenied
	default:
		return err
	}
}
