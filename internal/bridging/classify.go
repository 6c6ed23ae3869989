package bridging

// Classify evaluates the filter table against a frame and appends one
// Admission per bridge the frame is admitted to. When the result is empty
// the returned reason says why the frame was dropped.
//
// Exclusive entries are tried in ascending rank and the first full match
// decides the frame alone. Otherwise every matching non-exclusive entry
// admits the frame to its bridge, the lowest key deciding per bridge.
// Entries that are disabled, that reference a missing or disabled bridge,
// or whose selector does not contain the ingress interface are inert.
//
// Classify does not allocate when dst has spare capacity.
func (s *Snapshot) Classify(fr Frame, ids IdentitySource, dst []Admission) ([]Admission, DropReason) {
	if ids == nil {
		ids = NoIdentities
	}
	l := identityLookup{ids: ids, srcMAC: fr.SrcMAC, dstMAC: fr.DstMAC}
	start := len(dst)

	for i := 0; i < s.exclusive; i++ {
		f := s.ordered[i]
		b, ok := s.candidate(f, &fr)
		if !ok || !f.matches(&fr, &l) {
			continue
		}
		a, reason := s.admit(b, f, &fr)
		if reason != ReasonNone {
			return dst, reason
		}
		return append(dst, a), ReasonNone
	}

	// Without an admission, the last VLAN rejection explains the drop.
	reason := ReasonNoMatch
	for _, f := range s.ordered[s.exclusive:] {
		b, ok := s.candidate(f, &fr)
		if !ok || admitted(dst[start:], b.Key) || !f.matches(&fr, &l) {
			continue
		}
		a, r := s.admit(b, f, &fr)
		if r != ReasonNone {
			reason = r
			continue
		}
		dst = append(dst, a)
	}
	if len(dst) > start {
		return dst, ReasonNone
	}
	return dst, reason
}

// candidate returns the bridge f would admit fr to, if f is live for the
// frame's ingress interface.
func (s *Snapshot) candidate(f *Filter, fr *Frame) (*Bridge, bool) {
	if !f.Enabled {
		return nil, false
	}
	b, ok := s.bridges[f.BridgeReference]
	if !ok || !b.Enabled {
		return nil, false
	}
	if !f.Interface.Contains(s, fr.Ingress) {
		return nil, false
	}
	if f.AdmitOnlyVLANTagged && b.Standard == Standard8021Q && fr.Tag != VLANTagged {
		return nil, false
	}
	return b, true
}

func admitted(list []Admission, bridge int) bool {
	for i := range list {
		if list[i].Bridge == bridge {
			return true
		}
	}
	return false
}

// admit applies the bridge's VLAN admission rules to a matched frame.
func (s *Snapshot) admit(b *Bridge, f *Filter, fr *Frame) (Admission, DropReason) {
	a := Admission{
		Bridge:   b.Key,
		Filter:   f.Key,
		VLANID:   fr.VLANID,
		Tag:      fr.Tag,
		Priority: fr.Priority,
	}
	if b.Standard != Standard8021Q {
		return a, ReasonNone
	}

	if b.HasPortTable() {
		p := b.portFor(fr.Ingress)
		if p == nil || !p.Enabled {
			return a, ReasonNoPort
		}
		switch p.AcceptableFrameTypes {
		case AdmitOnlyVLANTagged:
			if fr.Tag != VLANTagged {
				return a, ReasonFrameType
			}
		case AdmitOnlyPrioUntagged:
			if fr.Tag == VLANTagged {
				return a, ReasonFrameType
			}
		}
		if fr.Tag != VLANTagged {
			a.VLANID = uint16(p.PVID)
			return a, ReasonNone
		}
		if p.IngressFiltering && !b.vlanEnabled(int(fr.VLANID)) {
			return a, ReasonVLANMember
		}
		return a, ReasonNone
	}

	vp, ok := s.vlanPorts[portKey{bridge: b.Key, iface: fr.Ingress}]
	if !ok {
		if fr.Tag != VLANTagged {
			a.VLANID = uint16(b.VLANID)
		}
		return a, ReasonNone
	}
	if fr.Tag != VLANTagged {
		a.VLANID = vp.pvid
		return a, ReasonNone
	}
	if !vp.isMember(fr.VLANID) && vp.admitOnlyTagged {
		return a, ReasonVLANMember
	}
	return a, ReasonNone
}
