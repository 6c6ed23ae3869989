package network

import (
	"context"
	"sort"
	"sync"

	"github.com/vishvananda/netlink"

	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/events"
	"grimm.is/l2bridge/internal/logging"
)

// Links is the subset of netlink used for link discovery.
type Links interface {
	LinkList() ([]netlink.Link, error)
	LinkSubscribe(ch chan<- netlink.LinkUpdate, done <-chan struct{}) error
}

// Monitor keeps the AvailableInterface registry in step with host links.
type Monitor struct {
	tables *bridging.Tables
	links  Links
	events *events.Hub
	logger *logging.Logger

	mu       sync.Mutex
	declared map[string]bridging.AvailableInterface // by device name
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewMonitor creates a monitor applying link changes to tables.
func NewMonitor(tables *bridging.Tables, links Links, hub *events.Hub) *Monitor {
	return &Monitor{
		tables:   tables,
		links:    links,
		events:   hub,
		logger:   logging.WithComponent("network"),
		declared: make(map[string]bridging.AvailableInterface),
	}
}

// SetDeclared replaces the declared interfaces. Only interfaces with a
// device name are tracked.
func (m *Monitor) SetDeclared(ifaces []bridging.AvailableInterface) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.declared = make(map[string]bridging.AvailableInterface, len(ifaces))
	for _, i := range ifaces {
		if i.Device != "" {
			m.declared[i.Device] = i
		}
	}
}

// Devices returns the tracked device names, sorted.
func (m *Monitor) Devices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.declared))
	for name := range m.declared {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Sync lists the host links and adds or removes every tracked interface
// to match.
func (m *Monitor) Sync() error {
	links, err := m.links.LinkList()
	if err != nil {
		return err
	}
	exists := make(map[string]bool, len(links))
	for _, l := range links {
		exists[l.Attrs().Name] = true
	}

	for _, name := range m.Devices() {
		if err := m.LinkChanged(name, exists[name]); err != nil {
			return err
		}
	}
	return nil
}

// LinkChanged records that the link named name now exists or not.
// Untracked names are ignored.
func (m *Monitor) LinkChanged(name string, exists bool) error {
	m.mu.Lock()
	iface, ok := m.declared[name]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	changed := false
	err := m.tables.Update(func(tx *bridging.Tx) error {
		_, present := tx.Interface(iface.Key)
		switch {
		case exists && !present:
			changed = true
			return tx.AddInterface(iface)
		case !exists && present:
			changed = true
			return tx.DeleteInterface(iface.Key)
		}
		return nil
	})
	if err != nil {
		m.logger.Warn("Failed to update interface registry", "device", name, "key", iface.Key, "error", err)
		return err
	}
	if changed {
		m.events.EmitInterface(exists, iface.Key, name)
		m.logger.Info("Interface presence changed", "device", name, "key", iface.Key, "present", exists)
	}
	return nil
}

// Stop stops following link updates.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()

	m.wg.Wait()
}
