package bridging

// FilterBuilder provides a fluent interface for building filters. It
// starts from the creation defaults of NewFilter.
type FilterBuilder struct {
	filter Filter
}

// NewFilterBuilder creates a new filter builder.
func NewFilterBuilder(key int) *FilterBuilder {
	return &FilterBuilder{filter: NewFilter(key)}
}

// Enable enables the filter.
func (b *FilterBuilder) Enable() *FilterBuilder {
	b.filter.Enabled = true
	return b
}

// Bridge binds the filter to a bridge.
func (b *FilterBuilder) Bridge(key int) *FilterBuilder {
	b.filter.BridgeReference = key
	return b
}

// Exclusive gives the filter an exclusivity rank.
func (b *FilterBuilder) Exclusive(order int) *FilterBuilder {
	b.filter.ExclusivityOrder = order
	return b
}

// Interface sets the interface selector.
func (b *FilterBuilder) Interface(sel Selector) *FilterBuilder {
	b.filter.Interface = sel
	return b
}

// VLAN sets VLANIDFilter.
func (b *FilterBuilder) VLAN(vid int) *FilterBuilder {
	b.filter.VLANIDFilter = vid
	return b
}

// AdmitOnlyVLANTagged restricts the filter to VLAN-tagged frames.
func (b *FilterBuilder) AdmitOnlyVLANTagged() *FilterBuilder {
	b.filter.AdmitOnlyVLANTagged = true
	return b
}

// Ethertypes admits only the listed Ethertypes.
func (b *FilterBuilder) Ethertypes(types ...uint16) *FilterBuilder {
	b.filter.EthertypeList = append([]uint16{}, types...)
	b.filter.EthertypeExclude = false
	return b
}

// ExcludeEthertypes admits every Ethertype except the listed ones.
func (b *FilterBuilder) ExcludeEthertypes(types ...uint16) *FilterBuilder {
	b.filter.EthertypeList = append([]uint16{}, types...)
	b.filter.EthertypeExclude = true
	return b
}

// SourceMACs admits only frames from the listed source addresses.
func (b *FilterBuilder) SourceMACs(entries ...MACMatch) *FilterBuilder {
	b.filter.SourceMACList = append([]MACMatch{}, entries...)
	b.filter.SourceMACExclude = false
	return b
}

// ExcludeSourceMACs admits frames from any source except the listed ones.
func (b *FilterBuilder) ExcludeSourceMACs(entries ...MACMatch) *FilterBuilder {
	b.filter.SourceMACList = append([]MACMatch{}, entries...)
	b.filter.SourceMACExclude = true
	return b
}

// DestMACs admits only frames to the listed destination addresses.
func (b *FilterBuilder) DestMACs(entries ...MACMatch) *FilterBuilder {
	b.filter.DestMACList = append([]MACMatch{}, entries...)
	b.filter.DestMACExclude = false
	return b
}

// ExcludeDestMACs admits frames to any destination except the listed ones.
func (b *FilterBuilder) ExcludeDestMACs(entries ...MACMatch) *FilterBuilder {
	b.filter.DestMACList = append([]MACMatch{}, entries...)
	b.filter.DestMACExclude = true
	return b
}

// SourceVendorClassID admits frames from devices whose DHCP vendor class matches.
func (b *FilterBuilder) SourceVendorClassID(value string, mode MatchMode) *FilterBuilder {
	b.filter.SourceVendorClassID = IdentityCriterion{Value: value, Mode: mode}
	return b
}

// DestVendorClassID admits frames to devices whose DHCP vendor class matches.
func (b *FilterBuilder) DestVendorClassID(value string, mode MatchMode) *FilterBuilder {
	b.filter.DestVendorClassID = IdentityCriterion{Value: value, Mode: mode}
	return b
}

// SourceClientID admits frames from the device with this DHCP client identifier.
func (b *FilterBuilder) SourceClientID(value string) *FilterBuilder {
	b.filter.SourceClientID = IdentityCriterion{Value: value}
	return b
}

// DestClientID admits frames to the device with this DHCP client identifier.
func (b *FilterBuilder) DestClientID(value string) *FilterBuilder {
	b.filter.DestClientID = IdentityCriterion{Value: value}
	return b
}

// SourceUserClassID admits frames from devices with this DHCP user class.
func (b *FilterBuilder) SourceUserClassID(value string) *FilterBuilder {
	b.filter.SourceUserClassID = IdentityCriterion{Value: value}
	return b
}

// DestUserClassID admits frames to devices with this DHCP user class.
func (b *FilterBuilder) DestUserClassID(value string) *FilterBuilder {
	b.filter.DestUserClassID = IdentityCriterion{Value: value}
	return b
}

// Build returns the constructed filter.
func (b *FilterBuilder) Build() Filter {
	return b.filter.clone()
}

// MarkingBuilder provides a fluent interface for building markings.
type MarkingBuilder struct {
	marking Marking
}

// NewMarkingBuilder creates a new marking builder.
func NewMarkingBuilder(key int) *MarkingBuilder {
	return &MarkingBuilder{marking: NewMarking(key)}
}

// Enable enables the marking.
func (b *MarkingBuilder) Enable() *MarkingBuilder {
	b.marking.Enabled = true
	return b
}

// Bridge binds the marking to a bridge.
func (b *MarkingBuilder) Bridge(key int) *MarkingBuilder {
	b.marking.BridgeReference = key
	return b
}

// Interface sets the egress interface selector.
func (b *MarkingBuilder) Interface(sel Selector) *MarkingBuilder {
	b.marking.Interface = sel
	return b
}

// Untag strips the VLAN tag on egress.
func (b *MarkingBuilder) Untag() *MarkingBuilder {
	b.marking.VLANIDUntag = true
	return b
}

// VLANMark rewrites the VLAN ID, for every frame when override is set and
// otherwise only for priority-tagged frames.
func (b *MarkingBuilder) VLANMark(vid int, override bool) *MarkingBuilder {
	b.marking.VLANIDMark = vid
	b.marking.VLANIDMarkOverride = override
	return b
}

// PriorityMark rewrites the Ethernet priority, for every frame when
// override is set and otherwise only for frames with priority 0.
func (b *MarkingBuilder) PriorityMark(prio int, override bool) *MarkingBuilder {
	b.marking.EthernetPriorityMark = prio
	b.marking.EthernetPriorityOverride = override
	return b
}

// Build returns the constructed marking.
func (b *MarkingBuilder) Build() Marking {
	return b.marking
}

// BridgeBuilder provides a fluent interface for building bridges.
type BridgeBuilder struct {
	bridge Bridge
}

// NewBridgeBuilder creates a new 802.1D bridge builder.
func NewBridgeBuilder(key int) *BridgeBuilder {
	return &BridgeBuilder{bridge: NewBridge(key)}
}

// Name sets the bridge name.
func (b *BridgeBuilder) Name(name string) *BridgeBuilder {
	b.bridge.Name = name
	return b
}

// Enable enables the bridge.
func (b *BridgeBuilder) Enable() *BridgeBuilder {
	b.bridge.Enabled = true
	return b
}

// Dot1Q makes the bridge an 802.1Q bridge with the given default VLAN.
func (b *BridgeBuilder) Dot1Q(vid int) *BridgeBuilder {
	b.bridge.Standard = Standard8021Q
	b.bridge.VLANID = vid
	return b
}

// Port appends an enabled port attaching iface with the given PVID.
func (b *BridgeBuilder) Port(key, iface, pvid int, frames FrameTypes, ingressFiltering bool) *BridgeBuilder {
	b.bridge.Ports = append(b.bridge.Ports, Port{
		Key:                  key,
		Enabled:              true,
		Interface:            iface,
		PVID:                 pvid,
		AcceptableFrameTypes: frames,
		IngressFiltering:     ingressFiltering,
	})
	return b
}

// VLAN appends an enabled VLAN table entry.
func (b *BridgeBuilder) VLAN(key, vid int, name string) *BridgeBuilder {
	b.bridge.VLANs = append(b.bridge.VLANs, VLAN{Key: key, Enabled: true, Name: name, VLANID: vid})
	return b
}

// Build returns the constructed bridge.
func (b *BridgeBuilder) Build() Bridge {
	return b.bridge.clone()
}
