package bridging

import (
	"sort"
)

// Snapshot is an immutable view of all bridging tables. Precedence orders
// are derived when the snapshot is built, so they always agree with its
// content. A Snapshot is safe for concurrent use.
type Snapshot struct {
	version    uint64
	interfaces map[int]*AvailableInterface
	bridges    map[int]*Bridge
	filters    map[int]*Filter
	markings   map[int]*Marking

	// ordered holds the filters in evaluation order: exclusive entries by
	// ascending rank, then non-exclusive entries by ascending key.
	ordered   []*Filter
	exclusive int
	// markingOrder holds the markings by ascending key.
	markingOrder []*Marking
	vlanPorts    map[portKey]*vlanPort
}

type portKey struct {
	bridge int
	iface  int
}

// vlanPort is the implicit 802.1Q port state of an interface on a bridge
// without a Port table, derived from the filters bound to the bridge.
type vlanPort struct {
	pvid            uint16
	pvidFromFilter  bool
	members         []uint16
	admitOnlyTagged bool
}

func (p *vlanPort) isMember(vid uint16) bool {
	for _, m := range p.members {
		if m == vid {
			return true
		}
	}
	return false
}

func emptySnapshot() *Snapshot {
	s := &Snapshot{
		interfaces: make(map[int]*AvailableInterface),
		bridges:    make(map[int]*Bridge),
		filters:    make(map[int]*Filter),
		markings:   make(map[int]*Marking),
	}
	s.index()
	return s
}

// clone returns a shallow copy whose maps may be modified. Entries are
// replaced, never mutated, so they are shared with the source.
func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		version:    s.version,
		interfaces: make(map[int]*AvailableInterface, len(s.interfaces)),
		bridges:    make(map[int]*Bridge, len(s.bridges)),
		filters:    make(map[int]*Filter, len(s.filters)),
		markings:   make(map[int]*Marking, len(s.markings)),
	}
	for k, v := range s.interfaces {
		c.interfaces[k] = v
	}
	for k, v := range s.bridges {
		c.bridges[k] = v
	}
	for k, v := range s.filters {
		c.filters[k] = v
	}
	for k, v := range s.markings {
		c.markings[k] = v
	}
	return c
}

// index derives the evaluation orders and implicit VLAN port state.
func (s *Snapshot) index() {
	s.ordered = make([]*Filter, 0, len(s.filters))
	var nonExclusive []*Filter
	for _, f := range s.filters {
		if f.Exclusive() {
			s.ordered = append(s.ordered, f)
		} else {
			nonExclusive = append(nonExclusive, f)
		}
	}
	sort.Slice(s.ordered, func(i, j int) bool {
		if s.ordered[i].ExclusivityOrder != s.ordered[j].ExclusivityOrder {
			return s.ordered[i].ExclusivityOrder < s.ordered[j].ExclusivityOrder
		}
		return s.ordered[i].Key < s.ordered[j].Key
	})
	sort.Slice(nonExclusive, func(i, j int) bool { return nonExclusive[i].Key < nonExclusive[j].Key })
	s.exclusive = len(s.ordered)
	s.ordered = append(s.ordered, nonExclusive...)

	s.markingOrder = make([]*Marking, 0, len(s.markings))
	for _, m := range s.markings {
		s.markingOrder = append(s.markingOrder, m)
	}
	sort.Slice(s.markingOrder, func(i, j int) bool { return s.markingOrder[i].Key < s.markingOrder[j].Key })

	s.vlanPorts = make(map[portKey]*vlanPort)
	for _, f := range s.ordered {
		if !f.Enabled {
			continue
		}
		b, ok := s.bridges[f.BridgeReference]
		if !ok || b.Standard != Standard8021Q || b.HasPortTable() {
			continue
		}
		effective := b.VLANID
		if f.VLANIDFilter != -1 {
			effective = f.VLANIDFilter
		}
		for _, iface := range f.Interface.Resolve(s) {
			pk := portKey{bridge: b.Key, iface: iface}
			vp, ok := s.vlanPorts[pk]
			if !ok {
				vp = &vlanPort{pvid: uint16(b.VLANID)}
				s.vlanPorts[pk] = vp
			}
			if f.VLANIDFilter != -1 && !vp.pvidFromFilter {
				vp.pvid = uint16(f.VLANIDFilter)
				vp.pvidFromFilter = true
			}
			if !vp.isMember(uint16(effective)) {
				vp.members = append(vp.members, uint16(effective))
			}
			vp.admitOnlyTagged = vp.admitOnlyTagged || f.AdmitOnlyVLANTagged
		}
	}
	for _, vp := range s.vlanPorts {
		sort.Slice(vp.members, func(i, j int) bool { return vp.members[i] < vp.members[j] })
	}
}

// Version returns the number of committed updates this snapshot reflects.
func (s *Snapshot) Version() uint64 { return s.version }

// Interface returns the AvailableInterface with the given key.
func (s *Snapshot) Interface(key int) (AvailableInterface, bool) {
	v, ok := s.interfaces[key]
	if !ok {
		return AvailableInterface{}, false
	}
	c := *v
	c.Reference = append([]string{}, v.Reference...)
	return c, true
}

// Bridge returns the bridge with the given key.
func (s *Snapshot) Bridge(key int) (Bridge, bool) {
	v, ok := s.bridges[key]
	if !ok {
		return Bridge{}, false
	}
	return v.clone(), true
}

// Filter returns the filter with the given key.
func (s *Snapshot) Filter(key int) (Filter, bool) {
	v, ok := s.filters[key]
	if !ok {
		return Filter{}, false
	}
	return v.clone(), true
}

// Marking returns the marking with the given key.
func (s *Snapshot) Marking(key int) (Marking, bool) {
	v, ok := s.markings[key]
	if !ok {
		return Marking{}, false
	}
	return *v, true
}

// Interfaces returns all AvailableInterface entries sorted by key.
func (s *Snapshot) Interfaces() []AvailableInterface {
	out := make([]AvailableInterface, 0, len(s.interfaces))
	for _, k := range sortedKeys(s.interfaces) {
		v, _ := s.Interface(k)
		out = append(out, v)
	}
	return out
}

// Bridges returns all bridges sorted by key.
func (s *Snapshot) Bridges() []Bridge {
	out := make([]Bridge, 0, len(s.bridges))
	for _, k := range sortedKeys(s.bridges) {
		out = append(out, s.bridges[k].clone())
	}
	return out
}

// Filters returns all filters sorted by key.
func (s *Snapshot) Filters() []Filter {
	out := make([]Filter, 0, len(s.filters))
	for _, k := range sortedKeys(s.filters) {
		out = append(out, s.filters[k].clone())
	}
	return out
}

// Markings returns all markings sorted by key.
func (s *Snapshot) Markings() []Marking {
	out := make([]Marking, 0, len(s.markingOrder))
	for _, m := range s.markingOrder {
		out = append(out, *m)
	}
	return out
}

// EvaluationOrder returns filter keys in evaluation order: exclusive
// entries by rank, then non-exclusive entries by key.
func (s *Snapshot) EvaluationOrder() []int {
	out := make([]int, len(s.ordered))
	for i, f := range s.ordered {
		out[i] = f.Key
	}
	return out
}

// Counts returns the number of interfaces, bridges, filters and markings.
func (s *Snapshot) Counts() (interfaces, bridges, filters, markings int) {
	return len(s.interfaces), len(s.bridges), len(s.filters), len(s.markings)
}

// Members returns the interfaces attached to a bridge, sorted by key: the
// enabled ports' interfaces when the bridge has a Port table, otherwise
// every interface named by an enabled filter bound to the bridge.
func (s *Snapshot) Members(bridge int) []int {
	b, ok := s.bridges[bridge]
	if !ok {
		return []int{}
	}
	set := make(map[int]struct{})
	if b.HasPortTable() {
		for _, p := range b.Ports {
			if _, present := s.interfaces[p.Interface]; p.Enabled && present {
				set[p.Interface] = struct{}{}
			}
		}
	} else {
		for _, f := range s.ordered {
			if !f.Enabled || f.BridgeReference != bridge {
				continue
			}
			for _, k := range f.Interface.Resolve(s) {
				set[k] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

// PVID returns the VLAN ID assigned to untagged and priority-tagged frames
// arriving on iface for an 802.1Q bridge.
func (s *Snapshot) PVID(bridge, iface int) (uint16, bool) {
	b, ok := s.bridges[bridge]
	if !ok || b.Standard != Standard8021Q {
		return 0, false
	}
	if b.HasPortTable() {
		p := b.portFor(iface)
		if p == nil {
			return 0, false
		}
		return uint16(p.PVID), true
	}
	vp, ok := s.vlanPorts[portKey{bridge: bridge, iface: iface}]
	if !ok {
		return uint16(b.VLANID), true
	}
	return vp.pvid, true
}

// MemberSet returns the sorted VLAN IDs iface is a member of on an 802.1Q bridge.
func (s *Snapshot) MemberSet(bridge, iface int) []uint16 {
	out := []uint16{}
	b, ok := s.bridges[bridge]
	if !ok || b.Standard != Standard8021Q {
		return out
	}
	if b.HasPortTable() {
		for _, v := range b.VLANs {
			if v.Enabled {
				out = append(out, uint16(v.VLANID))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}
	if vp, ok := s.vlanPorts[portKey{bridge: bridge, iface: iface}]; ok {
		out = append(out, vp.members...)
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
