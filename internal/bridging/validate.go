package bridging

import (
	"fmt"

	"grimm.is/l2bridge/internal/validation"
)

// String bounds of the TR-098 parameters.
const (
	maxNameLength     = 64
	maxIdentityLength = 255
)

// validate checks every table invariant that must hold before a snapshot
// is published.
func (s *Snapshot) validate() ValidationErrors {
	var errs ValidationErrors
	for _, k := range sortedKeys(s.interfaces) {
		s.interfaces[k].validate(&errs)
	}
	for _, k := range sortedKeys(s.bridges) {
		s.bridges[k].validate(&errs)
	}
	for _, k := range sortedKeys(s.filters) {
		s.validateFilter(s.filters[k], &errs)
	}
	for _, k := range sortedKeys(s.markings) {
		s.markings[k].validate(&errs)
	}
	s.validateRanks(&errs)
	return errs
}

func (i *AvailableInterface) validate(errs *ValidationErrors) {
	if !i.Type.Valid() {
		errs.add(TableInterface, i.Key, "InterfaceType", "unknown type %q", i.Type)
	}
	if i.Device != "" {
		if err := validation.ValidateInterfaceName(i.Device); err != nil {
			errs.add(TableInterface, i.Key, "Device", "%v", err)
		}
	}
}

func validVLANID(v int) bool { return v >= 1 && v <= 4094 }

func (b *Bridge) validate(errs *ValidationErrors) {
	switch b.Standard {
	case Standard8021D:
		if b.VLANID != 0 {
			errs.add(TableBridge, b.Key, "VLANID", "must be 0 for an 802.1D bridge, got %d", b.VLANID)
		}
	case Standard8021Q:
		if !validVLANID(b.VLANID) {
			errs.add(TableBridge, b.Key, "VLANID", "must be 1..4094 for an 802.1Q bridge, got %d", b.VLANID)
		}
	default:
		errs.add(TableBridge, b.Key, "BridgeStandard", "unknown standard %q", b.Standard)
	}
	if err := validation.ValidateLength(b.Name, maxNameLength); err != nil {
		errs.add(TableBridge, b.Key, "BridgeName", "%v", err)
	}

	portKeys := make(map[int]bool)
	portIfaces := make(map[int]int)
	for _, p := range b.Ports {
		field := fmt.Sprintf("Port.%d", p.Key)
		if p.Key < 1 || portKeys[p.Key] {
			errs.add(TableBridge, b.Key, field, "port key must be positive and unique")
		}
		portKeys[p.Key] = true
		if p.Interface < 0 {
			errs.add(TableBridge, b.Key, field+".PortInterface", "invalid interface %d", p.Interface)
		}
		if p.Interface > 0 {
			if other, dup := portIfaces[p.Interface]; dup {
				errs.add(TableBridge, b.Key, field+".PortInterface", "interface %d already attached to port %d", p.Interface, other)
			}
			portIfaces[p.Interface] = p.Key
		}
		if b.Standard == Standard8021Q && !validVLANID(p.PVID) {
			errs.add(TableBridge, b.Key, field+".PVID", "must be 1..4094, got %d", p.PVID)
		}
		switch p.AcceptableFrameTypes {
		case AdmitAll, AdmitOnlyVLANTagged, AdmitOnlyPrioUntagged:
		default:
			errs.add(TableBridge, b.Key, field+".AcceptableFrameTypes", "unknown value %q", p.AcceptableFrameTypes)
		}
	}

	vlanKeys := make(map[int]bool)
	vlanIDs := make(map[int]bool)
	for _, v := range b.VLANs {
		field := fmt.Sprintf("VLAN.%d", v.Key)
		if v.Key < 1 || vlanKeys[v.Key] {
			errs.add(TableBridge, b.Key, field, "VLAN key must be positive and unique")
		}
		vlanKeys[v.Key] = true
		if err := validation.ValidateLength(v.Name, maxNameLength); err != nil {
			errs.add(TableBridge, b.Key, field+".VLANName", "%v", err)
		}
		if !validVLANID(v.VLANID) {
			errs.add(TableBridge, b.Key, field+".VLANID", "must be 1..4094, got %d", v.VLANID)
		} else if vlanIDs[v.VLANID] {
			errs.add(TableBridge, b.Key, field+".VLANID", "VLAN %d defined twice", v.VLANID)
		}
		vlanIDs[v.VLANID] = true
	}
}

func (s *Snapshot) validateFilter(f *Filter, errs *ValidationErrors) {
	if f.BridgeReference < -1 {
		errs.add(TableFilter, f.Key, "FilterBridgeReference", "must be -1 or a bridge key, got %d", f.BridgeReference)
	}
	if f.ExclusivityOrder < 0 {
		errs.add(TableFilter, f.Key, "ExclusivityOrder", "must not be negative")
	}
	if f.VLANIDFilter < -1 || f.VLANIDFilter > 4094 {
		errs.add(TableFilter, f.Key, "VLANIDFilter", "must be -1..4094, got %d", f.VLANIDFilter)
	}
	if b, ok := s.bridges[f.BridgeReference]; ok && b.Standard == Standard8021Q && f.VLANIDFilter == 0 {
		errs.add(TableFilter, f.Key, "VLANIDFilter", "0 is invalid on 802.1Q bridge %d", b.Key)
	}
	if !f.SourceVendorClassID.Mode.Valid() {
		errs.add(TableFilter, f.Key, "SourceMACFromVendorClassIDMode", "unknown mode %q", f.SourceVendorClassID.Mode)
	}
	if !f.DestVendorClassID.Mode.Valid() {
		errs.add(TableFilter, f.Key, "DestMACFromVendorClassIDMode", "unknown mode %q", f.DestVendorClassID.Mode)
	}
	for _, c := range []struct {
		param string
		value string
	}{
		{"SourceMACFromVendorClassIDFilter", f.SourceVendorClassID.Value},
		{"DestMACFromVendorClassIDFilter", f.DestVendorClassID.Value},
		{"SourceMACFromClientIDFilter", f.SourceClientID.Value},
		{"DestMACFromClientIDFilter", f.DestClientID.Value},
		{"SourceMACFromUserClassIDFilter", f.SourceUserClassID.Value},
		{"DestMACFromUserClassIDFilter", f.DestUserClassID.Value},
	} {
		if err := validation.ValidateLength(c.value, maxIdentityLength); err != nil {
			errs.add(TableFilter, f.Key, c.param, "%v", err)
		}
	}
}

func (m *Marking) validate(errs *ValidationErrors) {
	if m.BridgeReference < -1 {
		errs.add(TableMarking, m.Key, "MarkingBridgeReference", "must be -1 or a bridge key, got %d", m.BridgeReference)
	}
	if m.VLANIDMark != -1 && !validVLANID(m.VLANIDMark) {
		errs.add(TableMarking, m.Key, "VLANIDMark", "must be -1 or 1..4094, got %d", m.VLANIDMark)
	}
	if m.EthernetPriorityMark < -1 || m.EthernetPriorityMark > 7 {
		errs.add(TableMarking, m.Key, "EthernetPriorityMark", "must be -1..7, got %d", m.EthernetPriorityMark)
	}
}

// validateRanks asserts exclusive ranks form 1..N. Tx maintains this, so
// a violation here is a bug in the re-ranking code.
func (s *Snapshot) validateRanks(errs *ValidationErrors) {
	seen := make(map[int]int)
	n := 0
	for _, f := range s.filters {
		if !f.Exclusive() {
			continue
		}
		n++
		if other, dup := seen[f.ExclusivityOrder]; dup {
			errs.add(TableFilter, f.Key, "ExclusivityOrder", "rank %d also held by filter %d", f.ExclusivityOrder, other)
		}
		seen[f.ExclusivityOrder] = f.Key
	}
	for rank := 1; rank <= n; rank++ {
		if _, ok := seen[rank]; !ok {
			errs.add(TableFilter, 0, "ExclusivityOrder", "rank %d missing", rank)
			return
		}
	}
}

// checkLimits enforces the configured table size limits.
func (s *Snapshot) checkLimits(l Limits) error {
	over := func(n, max int) bool { return max > 0 && n > max }

	var d, q int
	for _, b := range s.bridges {
		if b.Standard == Standard8021Q {
			q++
		} else {
			d++
		}
		if over(len(b.VLANs), l.MaxVLANEntries) {
			return fmt.Errorf("%w: bridge %d has %d VLAN entries, MaxVLANEntries is %d", ErrLimit, b.Key, len(b.VLANs), l.MaxVLANEntries)
		}
	}
	switch {
	case over(len(s.bridges), l.MaxBridgeEntries):
		return fmt.Errorf("%w: %d bridges, MaxBridgeEntries is %d", ErrLimit, len(s.bridges), l.MaxBridgeEntries)
	case over(d, l.MaxDBridgeEntries):
		return fmt.Errorf("%w: %d 802.1D bridges, MaxDBridgeEntries is %d", ErrLimit, d, l.MaxDBridgeEntries)
	case over(q, l.MaxQBridgeEntries):
		return fmt.Errorf("%w: %d 802.1Q bridges, MaxQBridgeEntries is %d", ErrLimit, q, l.MaxQBridgeEntries)
	case over(len(s.filters), l.MaxFilterEntries):
		return fmt.Errorf("%w: %d filters, MaxFilterEntries is %d", ErrLimit, len(s.filters), l.MaxFilterEntries)
	case over(len(s.markings), l.MaxMarkingEntries):
		return fmt.Errorf("%w: %d markings, MaxMarkingEntries is %d", ErrLimit, len(s.markings), l.MaxMarkingEntries)
	}
	return nil
}
