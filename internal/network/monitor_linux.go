//go:build linux

package network

import (
	"context"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Netlink is the host's netlink socket.
type Netlink struct{}

// LinkList lists all host links.
func (Netlink) LinkList() ([]netlink.Link, error) { return netlink.LinkList() }

// LinkSubscribe streams link updates until done is closed.
func (Netlink) LinkSubscribe(ch chan<- netlink.LinkUpdate, done <-chan struct{}) error {
	return netlink.LinkSubscribe(ch, done)
}

// Start syncs the registry and then follows link updates until ctx is
// cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return nil
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	updates := make(chan netlink.LinkUpdate)
	if err := m.links.LinkSubscribe(updates, ctx.Done()); err != nil {
		m.Stop()
		return err
	}
	if err := m.Sync(); err != nil {
		m.logger.Warn("Initial link sync failed", "error", err)
	}

	m.wg.Add(1)
	go m.processUpdates(ctx, updates)

	m.logger.Info("Started interface monitoring", "devices", len(m.Devices()))
	return nil
}

func (m *Monitor) processUpdates(ctx context.Context, updates <-chan netlink.LinkUpdate) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.Link == nil {
				continue
			}
			_ = m.LinkChanged(u.Attrs().Name, u.Header.Type != unix.RTM_DELLINK)
		}
	}
}
