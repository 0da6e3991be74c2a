//go:build linux
// +build linux

package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/procscope/procscope/pkg/types"
)

// Native is the cheap one-pass /proc enumeration backend. It reads only
// pid, command name, and resident memory; everything else comes from the
// introspection backend.
type Native struct {
	root     string
	pageSize uint64
}

// NewNative verifies /proc is readable and returns the backend.
func NewNative() (*Native, error) {
	n := &Native{root: "/proc", pageSize: uint64(os.Getpagesize())}
	if _, err := os.Stat(n.root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

// Snapshot walks the proc root once and returns a row per readable process.
// Entries that disappear or fail to parse mid-walk are skipped; a walk that
// yields nothing is reported as unavailable so the caller can fall back.
func (n *Native) Snapshot(ctx context.Context) ([]types.BulkRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(n.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rows := make([]types.BulkRow, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.ParseInt(entry.Name(), 10, 32)
		if err != nil || pid <= 0 {
			continue
		}
		name, err := n.comm(int32(pid))
		if err != nil {
			continue
		}
		rss, err := n.residentKB(int32(pid))
		if err != nil {
			continue
		}
		rows = append(rows, types.BulkRow{Pid: int32(pid), Name: name, MemoryKB: rss})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no parsable entries under %s", ErrUnavailable, n.root)
	}
	return rows, nil
}

// comm returns the command name for a PID.
func (n *Native) comm(pid int32) (string, error) {
	path := filepath.Join(n.root, strconv.FormatInt(int64(pid), 10), "comm")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(string(bytes.TrimRight(data, "\n")))
	if name == "" {
		return "", fmt.Errorf("empty comm for pid %d", pid)
	}
	return name, nil
}

// residentKB parses /proc/PID/statm and returns the RSS in kilobytes.
func (n *Native) residentKB(pid int32) (uint64, error) {
	path := filepath.Join(n.root, strconv.FormatInt(int64(pid), 10), "statm")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, fmt.Errorf("unexpected statm format for pid %d", pid)
	}
	pages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, err
	}
	return pages * n.pageSize / 1024, nil
}
