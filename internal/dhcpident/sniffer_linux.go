//go:build linux

package dhcpident

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/mdlayher/packet"
	"golang.org/x/sys/unix"
)

// Start begins listening for DHCP broadcasts on each configured interface.
// Interfaces that cannot be opened are logged and skipped.
func (s *Sniffer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.config.Interfaces) == 0 {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)

	for _, ifaceName := range s.config.Interfaces {
		iface, err := net.InterfaceByName(ifaceName)
		if err != nil {
			s.logger.Warn("interface not found", "iface", ifaceName, "err", err)
			continue
		}

		// UDP/67 is filtered in userspace.
		conn, err := packet.Listen(iface, packet.Raw, unix.ETH_P_IP, nil)
		if err != nil {
			s.logger.Warn("failed to listen on raw socket", "iface", ifaceName, "err", err)
			continue
		}

		s.wg.Add(1)
		go s.run(ctx, conn, ifaceName)
		s.logger.Info("started DHCP sniffer", "iface", ifaceName)
	}

	s.wg.Add(1)
	go s.prune(ctx)
	return nil
}

func (s *Sniffer) run(ctx context.Context, conn *packet.Conn, ifaceName string) {
	defer s.wg.Done()
	defer conn.Close()

	buf := make([]byte, 1518)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Periodic deadline so cancellation is noticed.
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))

		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "closed network connection") {
				return
			}
			s.logger.Debug("read error", "iface", ifaceName, "err", err)
			continue
		}

		s.cache.ObserveFrame(buf[:n], ifaceName)
	}
}
