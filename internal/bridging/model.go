// Package bridging implements the Layer2Bridging classification and marking
// engine: the AvailableInterface registry, the Bridge, Filter and Marking
// tables, the ingress classifier and the egress marker.
//
// Tables are published as immutable Snapshots. The data plane takes one
// snapshot per frame and calls Classify and Mark on it; the management plane
// mutates the tables through Tables.Update, which validates and re-ranks a
// private copy before publishing it atomically.
package bridging

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// InterfaceType classifies an AvailableInterface.
type InterfaceType string

const (
	LANInterface  InterfaceType = "LANInterface"
	WANInterface  InterfaceType = "WANInterface"
	LANConnection InterfaceType = "LANConnection"
	WANConnection InterfaceType = "WANConnection"
)

// Valid reports whether t is a known interface type.
func (t InterfaceType) Valid() bool {
	switch t {
	case LANInterface, WANInterface, LANConnection, WANConnection:
		return true
	}
	return false
}

// AvailableInterface is an interface eligible for bridging.
type AvailableInterface struct {
	Key  int           `json:"key"`
	Type InterfaceType `json:"type"`
	// Reference holds the fully-qualified object paths of the underlying
	// LAN/WAN objects.
	Reference []string `json:"reference"`
	// Device is the OS link name used for capture and discovery.
	Device string `json:"device,omitempty"`
}

// Standard is the bridging standard a Bridge follows.
type Standard string

const (
	Standard8021D Standard = "802.1D"
	Standard8021Q Standard = "802.1Q"
)

// FrameTypes is the AcceptableFrameTypes setting of a bridge port.
type FrameTypes string

const (
	AdmitAll              FrameTypes = "AdmitAll"
	AdmitOnlyVLANTagged   FrameTypes = "AdmitOnlyVLANTagged"
	AdmitOnlyPrioUntagged FrameTypes = "AdmitOnlyPrioUntagged"
)

// Port is an entry of a bridge's explicit Port table.
type Port struct {
	Key     int  `json:"key"`
	Enabled bool `json:"enabled"`
	// Interface is the AvailableInterface key the port attaches to (0 = none).
	Interface            int        `json:"interface"`
	PVID                 int        `json:"pvid"`
	AcceptableFrameTypes FrameTypes `json:"acceptable_frame_types"`
	IngressFiltering     bool       `json:"ingress_filtering"`
}

// VLAN is an entry of a bridge's explicit VLAN table.
type VLAN struct {
	Key     int    `json:"key"`
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
	VLANID  int    `json:"vlan_id"`
}

// Bridge is a logical 802.1D or 802.1Q switching domain.
//
// A bridge implements a Port (VLAN) table when Ports (VLANs) is non-empty.
type Bridge struct {
	Key      int      `json:"key"`
	Name     string   `json:"name"`
	Standard Standard `json:"standard"`
	Enabled  bool     `json:"enabled"`
	// VLANID is the default VLAN: 0 for 802.1D, 1..4094 for 802.1Q.
	VLANID int    `json:"vlan_id"`
	Ports  []Port `json:"ports"`
	VLANs  []VLAN `json:"vlans"`
}

// HasPortTable reports whether the bridge implements an explicit Port table.
func (b *Bridge) HasPortTable() bool { return len(b.Ports) > 0 }

// HasVLANTable reports whether the bridge implements an explicit VLAN table.
func (b *Bridge) HasVLANTable() bool { return len(b.VLANs) > 0 }

func (b *Bridge) portFor(iface int) *Port {
	for i := range b.Ports {
		if b.Ports[i].Interface == iface {
			return &b.Ports[i]
		}
	}
	return nil
}

func (b *Bridge) vlanEnabled(vid int) bool {
	for i := range b.VLANs {
		if b.VLANs[i].Enabled && b.VLANs[i].VLANID == vid {
			return true
		}
	}
	return false
}

func (b Bridge) clone() Bridge {
	b.Ports = append([]Port{}, b.Ports...)
	b.VLANs = append([]VLAN{}, b.VLANs...)
	return b
}

// MatchMode selects how a VendorClassID criterion compares strings.
type MatchMode string

const (
	MatchExact     MatchMode = "Exact"
	MatchPrefix    MatchMode = "Prefix"
	MatchSuffix    MatchMode = "Suffix"
	MatchSubstring MatchMode = "Substring"
)

// Valid reports whether m is a known match mode.
func (m MatchMode) Valid() bool {
	switch m {
	case MatchExact, MatchPrefix, MatchSuffix, MatchSubstring:
		return true
	}
	return false
}

// IdentityCriterion matches a DHCP-learned identity string of the source
// or destination device. An empty Value is an empty criterion list.
type IdentityCriterion struct {
	Value   string `json:"value"`
	Exclude bool   `json:"exclude"`
	// Mode is only consulted for VendorClassID criteria.
	Mode MatchMode `json:"mode,omitempty"`
}

// Filter is an ingress classification rule.
type Filter struct {
	Key     int  `json:"key"`
	Enabled bool `json:"enabled"`
	// BridgeReference is the key of the target bridge, -1 when unbound.
	BridgeReference int `json:"bridge_reference"`
	// ExclusivityOrder is 0 for non-exclusive entries, otherwise the rank.
	ExclusivityOrder    int      `json:"exclusivity_order"`
	Interface           Selector `json:"interface"`
	VLANIDFilter        int      `json:"vlan_id_filter"`
	AdmitOnlyVLANTagged bool     `json:"admit_only_vlan_tagged"`

	EthertypeList    []uint16   `json:"ethertype_list"`
	EthertypeExclude bool       `json:"ethertype_exclude"`
	SourceMACList    []MACMatch `json:"source_mac_list"`
	SourceMACExclude bool       `json:"source_mac_exclude"`
	DestMACList      []MACMatch `json:"dest_mac_list"`
	DestMACExclude   bool       `json:"dest_mac_exclude"`

	SourceVendorClassID IdentityCriterion `json:"source_vendor_class_id"`
	DestVendorClassID   IdentityCriterion `json:"dest_vendor_class_id"`
	SourceClientID      IdentityCriterion `json:"source_client_id"`
	DestClientID        IdentityCriterion `json:"dest_client_id"`
	SourceUserClassID   IdentityCriterion `json:"source_user_class_id"`
	DestUserClassID     IdentityCriterion `json:"dest_user_class_id"`
}

// Exclusive reports whether the filter has an exclusivity rank.
func (f *Filter) Exclusive() bool { return f.ExclusivityOrder > 0 }

func (f Filter) clone() Filter {
	f.EthertypeList = append([]uint16{}, f.EthertypeList...)
	f.SourceMACList = append([]MACMatch{}, f.SourceMACList...)
	f.DestMACList = append([]MACMatch{}, f.DestMACList...)
	return f
}

// Marking is an egress rewrite rule.
type Marking struct {
	Key                      int      `json:"key"`
	Enabled                  bool     `json:"enabled"`
	BridgeReference          int      `json:"bridge_reference"`
	Interface                Selector `json:"interface"`
	VLANIDUntag              bool     `json:"vlan_id_untag"`
	VLANIDMark               int      `json:"vlan_id_mark"`
	VLANIDMarkOverride       bool     `json:"vlan_id_mark_override"`
	EthernetPriorityMark     int      `json:"ethernet_priority_mark"`
	EthernetPriorityOverride bool     `json:"ethernet_priority_override"`
}

// NewBridge returns a bridge with creation defaults.
func NewBridge(key int) Bridge {
	return Bridge{
		Key:      key,
		Standard: Standard8021D,
		Ports:    []Port{},
		VLANs:    []VLAN{},
	}
}

// NewFilter returns a filter with creation defaults: unbound, non-exclusive,
// inheriting the bridge VLAN and admitting every frame on each criterion.
func NewFilter(key int) Filter {
	return Filter{
		Key:              key,
		BridgeReference:  -1,
		VLANIDFilter:     -1,
		EthertypeList:    []uint16{},
		EthertypeExclude: true,
		SourceMACList:    []MACMatch{},
		SourceMACExclude: true,
		DestMACList:      []MACMatch{},
		DestMACExclude:   true,

		SourceVendorClassID: IdentityCriterion{Exclude: true, Mode: MatchExact},
		DestVendorClassID:   IdentityCriterion{Exclude: true, Mode: MatchExact},
		SourceClientID:      IdentityCriterion{Exclude: true},
		DestClientID:        IdentityCriterion{Exclude: true},
		SourceUserClassID:   IdentityCriterion{Exclude: true},
		DestUserClassID:     IdentityCriterion{Exclude: true},
	}
}

// NewMarking returns a marking with creation defaults.
func NewMarking(key int) Marking {
	return Marking{
		Key:                  key,
		BridgeReference:      -1,
		VLANIDMark:           -1,
		EthernetPriorityMark: -1,
	}
}

// NewAvailableInterface returns an interface entry with an empty reference list.
func NewAvailableInterface(key int, typ InterfaceType) AvailableInterface {
	return AvailableInterface{Key: key, Type: typ, Reference: []string{}}
}

// MAC is an IEEE 802 MAC-48 address.
type MAC [6]byte

// ParseMAC parses a colon or dash separated MAC-48 address.
func ParseMAC(s string) (MAC, error) {
	var m MAC
	clean := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(s))
	if len(clean) != 12 {
		return m, fmt.Errorf("invalid MAC address %q", s)
	}
	if _, err := hex.Decode(m[:], []byte(clean)); err != nil {
		return m, fmt.Errorf("invalid MAC address %q: %w", s, err)
	}
	return m, nil
}

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// MarshalText implements encoding.TextMarshaler.
func (m MAC) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MAC) UnmarshalText(b []byte) error {
	v, err := ParseMAC(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

var fullMask = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// MACMatch is a MAC address list entry with a bit mask.
type MACMatch struct {
	Addr MAC
	Mask MAC
}

// ExactMAC returns a list entry matching exactly addr.
func ExactMAC(addr MAC) MACMatch {
	return MACMatch{Addr: addr, Mask: fullMask}
}

// ParseMACMatch parses "aa:bb:cc:dd:ee:ff" or "aa:bb:cc:dd:ee:ff/ff:ff:ff:00:00:00".
// An absent mask means an exact match.
func ParseMACMatch(s string) (MACMatch, error) {
	addrPart, maskPart, hasMask := strings.Cut(strings.TrimSpace(s), "/")
	addr, err := ParseMAC(addrPart)
	if err != nil {
		return MACMatch{}, err
	}
	if !hasMask {
		return ExactMAC(addr), nil
	}
	mask, err := ParseMAC(maskPart)
	if err != nil {
		return MACMatch{}, fmt.Errorf("invalid MAC mask in %q: %w", s, err)
	}
	return MACMatch{Addr: addr, Mask: mask}, nil
}

// Matches reports whether (m & mask) == (addr & mask).
func (e MACMatch) Matches(m MAC) bool {
	for i := range m {
		if m[i]&e.Mask[i] != e.Addr[i]&e.Mask[i] {
			return false
		}
	}
	return true
}

func (e MACMatch) String() string {
	if e.Mask == fullMask {
		return e.Addr.String()
	}
	return e.Addr.String() + "/" + e.Mask.String()
}

// MarshalText implements encoding.TextMarshaler.
func (e MACMatch) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *MACMatch) UnmarshalText(b []byte) error {
	v, err := ParseMACMatch(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// TagKind describes the 802.1Q tag state of a frame.
type TagKind uint8

const (
	Untagged TagKind = iota
	// PriorityTagged frames carry an 802.1Q tag with VLAN ID 0 (PriorityOnly).
	PriorityTagged
	VLANTagged
)

func (k TagKind) String() string {
	switch k {
	case Untagged:
		return "untagged"
	case PriorityTagged:
		return "priority"
	case VLANTagged:
		return "tagged"
	}
	return fmt.Sprintf("TagKind(%d)", uint8(k))
}

// Frame holds the header fields the classifier inspects.
type Frame struct {
	// Ingress is the AvailableInterface key the frame arrived on.
	Ingress   int
	DstMAC    MAC
	SrcMAC    MAC
	EtherType uint16
	Tag       TagKind
	VLANID    uint16
	Priority  uint8
}

// Identity is the DHCP-derived identity of a device.
type Identity struct {
	VendorClassID string
	ClientID      string
	UserClassID   string
}

// IdentitySource looks up the DHCP identity learned for a MAC address.
type IdentitySource interface {
	Lookup(mac MAC) (Identity, bool)
}

// NoIdentities is an IdentitySource that knows no devices.
var NoIdentities IdentitySource = noIdentities{}

type noIdentities struct{}

func (noIdentities) Lookup(MAC) (Identity, bool) { return Identity{}, false }

// Admission is one bridge a frame was admitted to.
type Admission struct {
	Bridge int
	// Filter is the key of the filter entry that admitted the frame.
	Filter int
	// VLANID is the VLAN the frame is associated with on the bridge.
	VLANID   uint16
	Tag      TagKind
	Priority uint8
}

// Egress returns the initial egress tag state for this admission.
func (a Admission) Egress() Egress {
	return Egress{Tag: a.Tag, VLANID: a.VLANID, Priority: a.Priority}
}

// Egress is the tag state of a frame leaving a bridge.
type Egress struct {
	Tag      TagKind
	VLANID   uint16
	Priority uint8
}

// DropReason explains why a frame was not admitted.
type DropReason string

const (
	ReasonNone DropReason = ""
	// ReasonNoMatch means no filter entry matched the frame.
	ReasonNoMatch DropReason = "no-match"
	// ReasonVLANMember means a tagged frame was outside the ingress member set.
	ReasonVLANMember DropReason = "vlan-not-member"
	// ReasonFrameType means the ingress port does not accept the frame's tag state.
	ReasonFrameType DropReason = "frame-type"
	// ReasonNoPort means the bridge has a Port table without an enabled port
	// for the ingress interface.
	ReasonNoPort DropReason = "no-port"
)
