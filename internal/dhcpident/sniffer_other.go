//go:build !linux

package dhcpident

import (
	"context"
	"errors"
)

// Start is unsupported off Linux; the cache can still be fed through
// ObserveFrame.
func (s *Sniffer) Start(ctx context.Context) error {
	if len(s.config.Interfaces) == 0 {
		return nil
	}
	return errors.New("dhcp sniffing requires AF_PACKET (linux only)")
}
