package bridging

import (
	"fmt"
	"strconv"

	"grimm.is/l2bridge/internal/config"
)

// LimitsFromConfig overlays configured limits on DefaultLimits.
func LimitsFromConfig(c *config.Limits) Limits {
	l := DefaultLimits()
	if c == nil {
		return l
	}
	set := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	set(&l.MaxBridgeEntries, c.MaxBridgeEntries)
	set(&l.MaxDBridgeEntries, c.MaxDBridgeEntries)
	set(&l.MaxQBridgeEntries, c.MaxQBridgeEntries)
	set(&l.MaxVLANEntries, c.MaxVLANEntries)
	set(&l.MaxFilterEntries, c.MaxFilterEntries)
	set(&l.MaxMarkingEntries, c.MaxMarkingEntries)
	return l
}

// DocumentFromConfig converts the declared tables of cfg. Every declared
// interface is included; callers that track link presence prune the
// registry afterwards.
func DocumentFromConfig(cfg *config.Config) (Document, error) {
	doc := Document{
		Interfaces: make([]AvailableInterface, 0, len(cfg.Interfaces)),
		Bridges:    make([]Bridge, 0, len(cfg.Bridges)),
		Filters:    make([]Filter, 0, len(cfg.Filters)),
		Markings:   make([]Marking, 0, len(cfg.Markings)),
	}
	for _, ci := range cfg.Interfaces {
		i, err := InterfaceFromConfig(ci)
		if err != nil {
			return Document{}, err
		}
		doc.Interfaces = append(doc.Interfaces, i)
	}
	for _, cb := range cfg.Bridges {
		b, err := bridgeFromConfig(cb)
		if err != nil {
			return Document{}, err
		}
		doc.Bridges = append(doc.Bridges, b)
	}
	for _, cf := range cfg.Filters {
		f, err := filterFromConfig(cf)
		if err != nil {
			return Document{}, err
		}
		doc.Filters = append(doc.Filters, f)
	}
	for _, cm := range cfg.Markings {
		m, err := markingFromConfig(cm)
		if err != nil {
			return Document{}, err
		}
		doc.Markings = append(doc.Markings, m)
	}
	return doc, nil
}

// InterfaceFromConfig converts one declared interface.
func InterfaceFromConfig(ci config.AvailableInterface) (AvailableInterface, error) {
	key, err := config.ParseKey(ci.Key)
	if err != nil {
		return AvailableInterface{}, fmt.Errorf("available_interface: %w", err)
	}
	i := NewAvailableInterface(key, InterfaceType(ci.Type))
	i.Reference = append(i.Reference, ci.Reference...)
	i.Device = ci.Device
	return i, nil
}

func bridgeFromConfig(cb config.Bridge) (Bridge, error) {
	key, err := config.ParseKey(cb.Key)
	if err != nil {
		return Bridge{}, fmt.Errorf("bridge: %w", err)
	}
	b := NewBridge(key)
	b.Name = cb.Name
	if cb.Standard != "" {
		b.Standard = Standard(cb.Standard)
	}
	b.Enabled = cb.Enabled
	b.VLANID = cb.VLANID
	for _, cp := range cb.Ports {
		p := Port{
			Enabled:              cp.Enabled,
			PVID:                 cp.PVID,
			AcceptableFrameTypes: FrameTypes(cp.AcceptableFrameTypes),
			IngressFiltering:     cp.IngressFiltering,
		}
		if p.Key, err = config.ParseKey(cp.Key); err != nil {
			return Bridge{}, fmt.Errorf("bridge %d port: %w", key, err)
		}
		if p.AcceptableFrameTypes == "" {
			p.AcceptableFrameTypes = AdmitAll
		}
		if p.PVID == 0 && b.Standard == Standard8021Q {
			p.PVID = b.VLANID
		}
		if cp.Interface != "" {
			if p.Interface, err = config.ParseKey(cp.Interface); err != nil {
				return Bridge{}, fmt.Errorf("bridge %d port %d interface: %w", key, p.Key, err)
			}
		}
		b.Ports = append(b.Ports, p)
	}
	for _, cv := range cb.VLANs {
		v := VLAN{Enabled: cv.Enabled, Name: cv.Name, VLANID: cv.VLANID}
		if v.Key, err = config.ParseKey(cv.Key); err != nil {
			return Bridge{}, fmt.Errorf("bridge %d vlan: %w", key, err)
		}
		b.VLANs = append(b.VLANs, v)
	}
	return b, nil
}

// exclude resolves an optional exclude flag: absent means inclusive for a
// non-empty list and admit-all for an empty one.
func exclude(flag *bool, n int) bool {
	if flag != nil {
		return *flag
	}
	return n == 0
}

func identityFromConfig(m *config.IdentityMatch) IdentityCriterion {
	if m == nil {
		return IdentityCriterion{Exclude: true, Mode: MatchExact}
	}
	c := IdentityCriterion{Value: m.Value, Exclude: m.Exclude, Mode: MatchMode(m.Mode)}
	if c.Mode == "" {
		c.Mode = MatchExact
	}
	return c
}

func macsFromConfig(list []string) ([]MACMatch, error) {
	out := make([]MACMatch, 0, len(list))
	for _, s := range list {
		m, err := ParseMACMatch(s)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func filterFromConfig(cf config.Filter) (Filter, error) {
	key, err := config.ParseKey(cf.Key)
	if err != nil {
		return Filter{}, fmt.Errorf("filter: %w", err)
	}
	f := NewFilter(key)
	f.Enabled = cf.Enabled
	if cf.Bridge != nil {
		f.BridgeReference = *cf.Bridge
	}
	f.ExclusivityOrder = cf.ExclusivityOrder
	if f.Interface, err = ParseSelector(cf.Interface); err != nil {
		return Filter{}, fmt.Errorf("filter %d: %w", key, err)
	}
	if cf.VLANIDFilter != nil {
		f.VLANIDFilter = *cf.VLANIDFilter
	}
	f.AdmitOnlyVLANTagged = cf.AdmitOnlyVLANTagged

	for _, s := range cf.Ethertypes {
		v, err := config.ParseEthertype(s)
		if err != nil {
			return Filter{}, fmt.Errorf("filter %d: %w", key, err)
		}
		f.EthertypeList = append(f.EthertypeList, v)
	}
	f.EthertypeExclude = exclude(cf.EthertypeExclude, len(f.EthertypeList))
	if f.SourceMACList, err = macsFromConfig(cf.SourceMACs); err != nil {
		return Filter{}, fmt.Errorf("filter %d source_macs: %w", key, err)
	}
	f.SourceMACExclude = exclude(cf.SourceMACExclude, len(f.SourceMACList))
	if f.DestMACList, err = macsFromConfig(cf.DestMACs); err != nil {
		return Filter{}, fmt.Errorf("filter %d dest_macs: %w", key, err)
	}
	f.DestMACExclude = exclude(cf.DestMACExclude, len(f.DestMACList))

	f.SourceVendorClassID = identityFromConfig(cf.SourceVendorClassID)
	f.DestVendorClassID = identityFromConfig(cf.DestVendorClassID)
	f.SourceClientID = identityFromConfig(cf.SourceClientID)
	f.DestClientID = identityFromConfig(cf.DestClientID)
	f.SourceUserClassID = identityFromConfig(cf.SourceUserClassID)
	f.DestUserClassID = identityFromConfig(cf.DestUserClassID)
	f.SourceClientID.Mode = ""
	f.DestClientID.Mode = ""
	f.SourceUserClassID.Mode = ""
	f.DestUserClassID.Mode = ""
	return f, nil
}

func markingFromConfig(cm config.Marking) (Marking, error) {
	key, err := config.ParseKey(cm.Key)
	if err != nil {
		return Marking{}, fmt.Errorf("marking: %w", err)
	}
	m := NewMarking(key)
	m.Enabled = cm.Enabled
	if cm.Bridge != nil {
		m.BridgeReference = *cm.Bridge
	}
	if m.Interface, err = ParseSelector(cm.Interface); err != nil {
		return Marking{}, fmt.Errorf("marking %d: %w", key, err)
	}
	m.VLANIDUntag = cm.VLANIDUntag
	if cm.VLANIDMark != nil {
		m.VLANIDMark = *cm.VLANIDMark
	}
	m.VLANIDMarkOverride = cm.VLANIDMarkOverride
	if cm.EthernetPriorityMark != nil {
		m.EthernetPriorityMark = *cm.EthernetPriorityMark
	}
	m.EthernetPriorityOverride = cm.EthernetPriorityOverride
	return m, nil
}

// ApplyToConfig replaces the table declarations of cfg with doc, keeping
// every other setting. Declared interfaces bound to a device that is
// currently absent from doc stay declared.
func ApplyToConfig(cfg *config.Config, doc Document) {
	inDoc := make(map[int]bool, len(doc.Interfaces))
	for _, i := range doc.Interfaces {
		inDoc[i.Key] = true
	}
	byKey := make(map[int]config.AvailableInterface)
	for _, ci := range cfg.Interfaces {
		key, err := config.ParseKey(ci.Key)
		if err == nil && ci.Device != "" && !inDoc[key] {
			byKey[key] = ci
		}
	}
	for _, i := range doc.Interfaces {
		byKey[i.Key] = interfaceToConfig(i)
	}
	cfg.Interfaces = make([]config.AvailableInterface, 0, len(byKey))
	for _, k := range sortedKeys(byKey) {
		cfg.Interfaces = append(cfg.Interfaces, byKey[k])
	}

	cfg.Bridges = make([]config.Bridge, 0, len(doc.Bridges))
	for _, b := range doc.Bridges {
		cfg.Bridges = append(cfg.Bridges, bridgeToConfig(b))
	}
	cfg.Filters = make([]config.Filter, 0, len(doc.Filters))
	for _, f := range doc.Filters {
		cfg.Filters = append(cfg.Filters, filterToConfig(f))
	}
	cfg.Markings = make([]config.Marking, 0, len(doc.Markings))
	for _, m := range doc.Markings {
		cfg.Markings = append(cfg.Markings, markingToConfig(m))
	}
}

func interfaceToConfig(i AvailableInterface) config.AvailableInterface {
	ci := config.AvailableInterface{
		Key:    strconv.Itoa(i.Key),
		Type:   string(i.Type),
		Device: i.Device,
	}
	if len(i.Reference) > 0 {
		ci.Reference = append([]string{}, i.Reference...)
	}
	return ci
}

func bridgeToConfig(b Bridge) config.Bridge {
	cb := config.Bridge{
		Key:     strconv.Itoa(b.Key),
		Name:    b.Name,
		Enabled: b.Enabled,
		VLANID:  b.VLANID,
	}
	if b.Standard != Standard8021D {
		cb.Standard = string(b.Standard)
	}
	for _, p := range b.Ports {
		cp := config.Port{
			Key:              strconv.Itoa(p.Key),
			Enabled:          p.Enabled,
			PVID:             p.PVID,
			IngressFiltering: p.IngressFiltering,
		}
		if p.AcceptableFrameTypes != AdmitAll {
			cp.AcceptableFrameTypes = string(p.AcceptableFrameTypes)
		}
		if p.Interface > 0 {
			cp.Interface = strconv.Itoa(p.Interface)
		}
		cb.Ports = append(cb.Ports, cp)
	}
	for _, v := range b.VLANs {
		cb.VLANs = append(cb.VLANs, config.VLAN{
			Key:     strconv.Itoa(v.Key),
			Enabled: v.Enabled,
			Name:    v.Name,
			VLANID:  v.VLANID,
		})
	}
	return cb
}

// excludeFlag returns nil when flag equals the implicit default for a list
// of n entries.
func excludeFlag(flag bool, n int) *bool {
	if flag == (n == 0) {
		return nil
	}
	return config.Bool(flag)
}

func identityToConfig(c IdentityCriterion) *config.IdentityMatch {
	if c.Value == "" && c.Exclude {
		return nil
	}
	m := &config.IdentityMatch{Value: c.Value, Exclude: c.Exclude}
	if c.Mode != "" && c.Mode != MatchExact {
		m.Mode = string(c.Mode)
	}
	return m
}

func macsToConfig(list []MACMatch) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	for i, m := range list {
		out[i] = m.String()
	}
	return out
}

func filterToConfig(f Filter) config.Filter {
	cf := config.Filter{
		Key:                 strconv.Itoa(f.Key),
		Enabled:             f.Enabled,
		ExclusivityOrder:    f.ExclusivityOrder,
		Interface:           f.Interface.String(),
		AdmitOnlyVLANTagged: f.AdmitOnlyVLANTagged,
		EthertypeExclude:    excludeFlag(f.EthertypeExclude, len(f.EthertypeList)),
		SourceMACs:          macsToConfig(f.SourceMACList),
		SourceMACExclude:    excludeFlag(f.SourceMACExclude, len(f.SourceMACList)),
		DestMACs:            macsToConfig(f.DestMACList),
		DestMACExclude:      excludeFlag(f.DestMACExclude, len(f.DestMACList)),
		SourceVendorClassID: identityToConfig(f.SourceVendorClassID),
		DestVendorClassID:   identityToConfig(f.DestVendorClassID),
		SourceClientID:      identityToConfig(f.SourceClientID),
		DestClientID:        identityToConfig(f.DestClientID),
		SourceUserClassID:   identityToConfig(f.SourceUserClassID),
		DestUserClassID:     identityToConfig(f.DestUserClassID),
	}
	if f.BridgeReference != -1 {
		cf.Bridge = config.Int(f.BridgeReference)
	}
	if f.VLANIDFilter != -1 {
		cf.VLANIDFilter = config.Int(f.VLANIDFilter)
	}
	for _, e := range f.EthertypeList {
		cf.Ethertypes = append(cf.Ethertypes, config.FormatEthertype(e))
	}
	return cf
}

func markingToConfig(m Marking) config.Marking {
	cm := config.Marking{
		Key:                      strconv.Itoa(m.Key),
		Enabled:                  m.Enabled,
		Interface:                m.Interface.String(),
		VLANIDUntag:              m.VLANIDUntag,
		VLANIDMarkOverride:       m.VLANIDMarkOverride,
		EthernetPriorityOverride: m.EthernetPriorityOverride,
	}
	if m.BridgeReference != -1 {
		cm.Bridge = config.Int(m.BridgeReference)
	}
	if m.VLANIDMark != -1 {
		cm.VLANIDMark = config.Int(m.VLANIDMark)
	}
	if m.EthernetPriorityMark != -1 {
		cm.EthernetPriorityMark = config.Int(m.EthernetPriorityMark)
	}
	return cm
}
