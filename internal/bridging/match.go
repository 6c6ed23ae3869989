package bridging

import "strings"

// admits applies a criterion's polarity: a frame passes when its value is
// in the list and the list is inclusive, or is not in the list and the list
// is exclusive. An empty inclusive list therefore admits nothing and an
// empty exclusive list admits everything.
func admits(inList, exclude bool) bool {
	return inList != exclude
}

func containsEthertype(list []uint16, v uint16) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

func containsMAC(list []MACMatch, m MAC) bool {
	for i := range list {
		if list[i].Matches(m) {
			return true
		}
	}
	return false
}

// matchString compares a learned identity string against a criterion
// value. Comparison is case-sensitive.
func matchString(mode MatchMode, pattern, value string) bool {
	if value == "" {
		return false
	}
	switch mode {
	case MatchPrefix:
		return strings.HasPrefix(value, pattern)
	case MatchSuffix:
		return strings.HasSuffix(value, pattern)
	case MatchSubstring:
		return strings.Contains(value, pattern)
	default:
		return value == pattern
	}
}

// identityLookup resolves the source and destination identities of a frame
// at most once each.
type identityLookup struct {
	ids              IdentitySource
	src, dst         Identity
	srcOK, dstOK     bool
	srcDone, dstDone bool
	srcMAC, dstMAC   MAC
}

func (l *identityLookup) source() (Identity, bool) {
	if !l.srcDone {
		l.src, l.srcOK = l.ids.Lookup(l.srcMAC)
		l.srcDone = true
	}
	return l.src, l.srcOK
}

func (l *identityLookup) dest() (Identity, bool) {
	if !l.dstDone {
		l.dst, l.dstOK = l.ids.Lookup(l.dstMAC)
		l.dstDone = true
	}
	return l.dst, l.dstOK
}

type identityField uint8

const (
	fieldVendorClassID identityField = iota
	fieldClientID
	fieldUserClassID
)

func (c *IdentityCriterion) admits(field identityField, l *identityLookup, dest bool) bool {
	inList := false
	if c.Value != "" {
		var id Identity
		var ok bool
		if dest {
			id, ok = l.dest()
		} else {
			id, ok = l.source()
		}
		if ok {
			switch field {
			case fieldVendorClassID:
				inList = matchString(c.Mode, c.Value, id.VendorClassID)
			case fieldClientID:
				inList = matchString(MatchExact, c.Value, id.ClientID)
			case fieldUserClassID:
				inList = matchString(MatchExact, c.Value, id.UserClassID)
			}
		}
	}
	return admits(inList, c.Exclude)
}

// matches reports whether every classification criterion of f admits fr.
func (f *Filter) matches(fr *Frame, l *identityLookup) bool {
	if !admits(containsEthertype(f.EthertypeList, fr.EtherType), f.EthertypeExclude) {
		return false
	}
	if !admits(containsMAC(f.SourceMACList, fr.SrcMAC), f.SourceMACExclude) {
		return false
	}
	if !admits(containsMAC(f.DestMACList, fr.DstMAC), f.DestMACExclude) {
		return false
	}
	return f.SourceVendorClassID.admits(fieldVendorClassID, l, false) &&
		f.DestVendorClassID.admits(fieldVendorClassID, l, true) &&
		f.SourceClientID.admits(fieldClientID, l, false) &&
		f.DestClientID.admits(fieldClientID, l, true) &&
		f.SourceUserClassID.admits(fieldUserClassID, l, false) &&
		f.DestUserClassID.admits(fieldUserClassID, l, true)
}
