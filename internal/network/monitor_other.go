//go:build !linux

package network

import (
	"context"
	"errors"
)

// Start is unsupported off Linux.
func (m *Monitor) Start(ctx context.Context) error {
	return errors.New("interface monitoring requires netlink (linux only)")
}
