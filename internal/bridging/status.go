package bridging

// Status is the operational status reported for a table entry.
type Status string

const (
	StatusDisabled Status = "Disabled"
	StatusEnabled  Status = "Enabled"
	StatusError    Status = "Error"
)

// BridgeStatus reports the status of a bridge. An enabled 802.1Q bridge
// with a VLAN table reports Error unless its default VLAN has an enabled
// entry, and a bridge whose enabled ports name missing interfaces reports
// Error.
func (s *Snapshot) BridgeStatus(key int) (Status, bool) {
	b, ok := s.bridges[key]
	if !ok {
		return "", false
	}
	if !b.Enabled {
		return StatusDisabled, true
	}
	if b.Standard == Standard8021Q && b.HasVLANTable() && !b.vlanEnabled(b.VLANID) {
		return StatusError, true
	}
	for _, p := range b.Ports {
		if !p.Enabled || p.Interface == 0 {
			continue
		}
		if _, present := s.interfaces[p.Interface]; !present {
			return StatusError, true
		}
	}
	return StatusEnabled, true
}

// FilterStatus reports the status of a filter. An enabled filter reports
// Error when its bridge reference dangles, when its bridge has a Port table
// without an enabled port for the selected interface, or when its bridge
// has a VLAN table without an enabled entry for VLANIDFilter.
func (s *Snapshot) FilterStatus(key int) (Status, bool) {
	f, ok := s.filters[key]
	if !ok {
		return "", false
	}
	if !f.Enabled {
		return StatusDisabled, true
	}
	if f.BridgeReference == -1 {
		return StatusEnabled, true
	}
	b, ok := s.bridges[f.BridgeReference]
	if !ok {
		return StatusError, true
	}
	if !s.portsEnabled(b, f.Interface) {
		return StatusError, true
	}
	if b.HasVLANTable() && f.VLANIDFilter != -1 && !b.vlanEnabled(f.VLANIDFilter) {
		return StatusError, true
	}
	return StatusEnabled, true
}

// MarkingStatus reports the status of a marking, using the same reference
// rules as FilterStatus.
func (s *Snapshot) MarkingStatus(key int) (Status, bool) {
	m, ok := s.markings[key]
	if !ok {
		return "", false
	}
	if !m.Enabled {
		return StatusDisabled, true
	}
	if m.BridgeReference == -1 {
		return StatusEnabled, true
	}
	b, ok := s.bridges[m.BridgeReference]
	if !ok {
		return StatusError, true
	}
	if !s.portsEnabled(b, m.Interface) {
		return StatusError, true
	}
	if b.HasVLANTable() && m.VLANIDMark != -1 && !b.vlanEnabled(m.VLANIDMark) {
		return StatusError, true
	}
	return StatusEnabled, true
}

// portsEnabled reports whether a single-interface selector has an enabled
// port on b. Bridges without a Port table and aggregate selectors always pass.
func (s *Snapshot) portsEnabled(b *Bridge, sel Selector) bool {
	key, single := sel.Key()
	if !b.HasPortTable() || !single {
		return true
	}
	p := b.portFor(key)
	return p != nil && p.Enabled
}
