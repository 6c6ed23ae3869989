package bridging

// MarkResult is the outcome of egress marking for one interface.
type MarkResult struct {
	Egress Egress
	// Marking is the key of the winning entry; valid when Matched is set.
	Marking int
	Matched bool
}

// Mark selects the marking entry for frames leaving bridge through egress
// and applies it to in. Among enabled entries bound to the bridge whose
// selector contains the interface, the lowest key wins. Without a winner
// the frame is left unchanged.
func (s *Snapshot) Mark(bridge, egress int, in Egress) MarkResult {
	if _, ok := s.bridges[bridge]; !ok {
		return MarkResult{Egress: in}
	}
	for _, m := range s.markingOrder {
		if !m.Enabled || m.BridgeReference != bridge || !m.Interface.Contains(s, egress) {
			continue
		}
		return MarkResult{Egress: m.apply(in), Marking: m.Key, Matched: true}
	}
	return MarkResult{Egress: in}
}

// apply rewrites the tag state of a frame. Untagging wins over VLAN ID
// marking; priority marking is evaluated independently.
func (m *Marking) apply(in Egress) Egress {
	out := in
	if m.VLANIDUntag {
		out.Tag = Untagged
		out.VLANID = 0
	} else if m.VLANIDMark != -1 && (m.VLANIDMarkOverride || in.Tag == PriorityTagged) {
		out.Tag = VLANTagged
		out.VLANID = uint16(m.VLANIDMark)
	}

	if m.EthernetPriorityMark != -1 && (m.EthernetPriorityOverride || in.Priority == 0) {
		out.Priority = uint8(m.EthernetPriorityMark)
		// A priority needs a tag to travel in, unless the entry strips it.
		if out.Tag == Untagged && !m.VLANIDUntag && out.Priority != 0 {
			out.Tag = PriorityTagged
		}
	}
	return out
}
