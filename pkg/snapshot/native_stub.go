//go:build !linux
// +build !linux

package snapshot

import (
	"context"
	"fmt"

	"github.com/procscope/procscope/pkg/types"
)

// Native is a placeholder on platforms without a /proc filesystem.
type Native struct{}

// NewNative always fails off Linux; the manager then runs introspection-only.
func NewNative() (*Native, error) {
	return nil, fmt.Errorf("%w: native enumeration requires linux", ErrUnavailable)
}

// Snapshot always fails on unsupported platforms.
func (n *Native) Snapshot(_ context.Context) ([]types.BulkRow, error) {
	return nil, fmt.Errorf("%w: native enumeration requires linux", ErrUnavailable)
}
