package tr098

import (
	"fmt"
	"strconv"
	"strings"

	"grimm.is/l2bridge/internal/bridging"
)

// field describes one parameter of an object of type T. A nil set makes
// the parameter read-only.
type field[T any] struct {
	name string
	get  func(s *bridging.Snapshot, v *T) string
	set  func(v *T, value string) error
}

func (f *field[T]) writable() bool { return f.set != nil }

func lookup[T any](fields []field[T], name string) *field[T] {
	for i := range fields {
		if fields[i].name == name {
			return &fields[i]
		}
	}
	return nil
}

func readOnly[T any](name string, get func(s *bridging.Snapshot, v *T) string) field[T] {
	return field[T]{name: name, get: get}
}

func boolField[T any](name string, ptr func(*T) *bool) field[T] {
	return field[T]{
		name: name,
		get:  func(_ *bridging.Snapshot, v *T) string { return formatBool(*ptr(v)) },
		set: func(v *T, s string) error {
			b, err := parseBool(s)
			if err != nil {
				return err
			}
			*ptr(v) = b
			return nil
		},
	}
}

func intField[T any](name string, ptr func(*T) *int, min, max int) field[T] {
	return field[T]{
		name: name,
		get:  func(_ *bridging.Snapshot, v *T) string { return strconv.Itoa(*ptr(v)) },
		set: func(v *T, s string) error {
			n, err := parseInt(s, min, max)
			if err != nil {
				return err
			}
			*ptr(v) = n
			return nil
		},
	}
}

func stringField[T any](name string, ptr func(*T) *string) field[T] {
	return field[T]{
		name: name,
		get:  func(_ *bridging.Snapshot, v *T) string { return *ptr(v) },
		set: func(v *T, s string) error {
			*ptr(v) = s
			return nil
		},
	}
}

func selectorField[T any](name string, ptr func(*T) *bridging.Selector) field[T] {
	return field[T]{
		name: name,
		get:  func(_ *bridging.Snapshot, v *T) string { return ptr(v).String() },
		set: func(v *T, s string) error {
			sel, err := parseSelector(s)
			if err != nil {
				return err
			}
			*ptr(v) = sel
			return nil
		},
	}
}

func keyField[T any](name string, key func(*T) int) field[T] {
	return readOnly(name, func(_ *bridging.Snapshot, v *T) string { return strconv.Itoa(key(v)) })
}

// identityFields returns the value, exclude and (for vendor class) mode
// parameters of one DHCP identity criterion.
func identityFields(prefix string, ptr func(*bridging.Filter) *bridging.IdentityCriterion, withMode bool) []field[bridging.Filter] {
	out := []field[bridging.Filter]{
		stringField(prefix, func(f *bridging.Filter) *string { return &ptr(f).Value }),
		boolField(prefix+"Exclude", func(f *bridging.Filter) *bool { return &ptr(f).Exclude }),
	}
	if withMode {
		out = append(out, field[bridging.Filter]{
			name: strings.TrimSuffix(prefix, "Filter") + "Mode",
			get: func(_ *bridging.Snapshot, f *bridging.Filter) string {
				return string(ptr(f).Mode)
			},
			set: func(f *bridging.Filter, s string) error {
				mode := bridging.MatchMode(strings.TrimSpace(s))
				if !mode.Valid() {
					return fmt.Errorf("%w: unknown mode %q", ErrInvalidValue, s)
				}
				ptr(f).Mode = mode
				return nil
			},
		})
	}
	return out
}

// limitsView carries what the root object reports.
type limitsView struct {
	limits bridging.Limits
}

var rootFields = []field[limitsView]{
	keyField("MaxBridgeEntries", func(v *limitsView) int { return v.limits.MaxBridgeEntries }),
	keyField("MaxDBridgeEntries", func(v *limitsView) int { return v.limits.MaxDBridgeEntries }),
	keyField("MaxQBridgeEntries", func(v *limitsView) int { return v.limits.MaxQBridgeEntries }),
	keyField("MaxVLANEntries", func(v *limitsView) int { return v.limits.MaxVLANEntries }),
	keyField("MaxFilterEntries", func(v *limitsView) int { return v.limits.MaxFilterEntries }),
	keyField("MaxMarkingEntries", func(v *limitsView) int { return v.limits.MaxMarkingEntries }),
	readOnly("BridgeNumberOfEntries", func(s *bridging.Snapshot, _ *limitsView) string {
		_, n, _, _ := s.Counts()
		return strconv.Itoa(n)
	}),
	readOnly("FilterNumberOfEntries", func(s *bridging.Snapshot, _ *limitsView) string {
		_, _, n, _ := s.Counts()
		return strconv.Itoa(n)
	}),
	readOnly("MarkingNumberOfEntries", func(s *bridging.Snapshot, _ *limitsView) string {
		_, _, _, n := s.Counts()
		return strconv.Itoa(n)
	}),
	readOnly("AvailableInterfaceNumberOfEntries", func(s *bridging.Snapshot, _ *limitsView) string {
		n, _, _, _ := s.Counts()
		return strconv.Itoa(n)
	}),
}

var bridgeFields = []field[bridging.Bridge]{
	keyField("BridgeKey", func(b *bridging.Bridge) int { return b.Key }),
	{
		name: "BridgeStandard",
		get:  func(_ *bridging.Snapshot, b *bridging.Bridge) string { return string(b.Standard) },
		set: func(b *bridging.Bridge, s string) error {
			switch std := bridging.Standard(strings.TrimSpace(s)); std {
			case bridging.Standard8021D, bridging.Standard8021Q:
				b.Standard = std
				return nil
			}
			return fmt.Errorf("%w: unknown standard %q", ErrInvalidValue, s)
		},
	},
	boolField("BridgeEnable", func(b *bridging.Bridge) *bool { return &b.Enabled }),
	readOnly("BridgeStatus", func(s *bridging.Snapshot, b *bridging.Bridge) string {
		st, _ := s.BridgeStatus(b.Key)
		return string(st)
	}),
	stringField("BridgeName", func(b *bridging.Bridge) *string { return &b.Name }),
	intField("VLANID", func(b *bridging.Bridge) *int { return &b.VLANID }, 0, 4094),
	readOnly("PortNumberOfEntries", func(_ *bridging.Snapshot, b *bridging.Bridge) string {
		return strconv.Itoa(len(b.Ports))
	}),
	readOnly("VLANNumberOfEntries", func(_ *bridging.Snapshot, b *bridging.Bridge) string {
		return strconv.Itoa(len(b.VLANs))
	}),
}

var portFields = []field[bridging.Port]{
	keyField("PortKey", func(p *bridging.Port) int { return p.Key }),
	boolField("PortEnable", func(p *bridging.Port) *bool { return &p.Enabled }),
	{
		name: "PortInterface",
		get:  func(_ *bridging.Snapshot, p *bridging.Port) string { return formatIfaceRef(p.Interface) },
		set: func(p *bridging.Port, s string) error {
			key, err := parseIfaceRef(s)
			if err != nil {
				return err
			}
			p.Interface = key
			return nil
		},
	},
	intField("PVID", func(p *bridging.Port) *int { return &p.PVID }, 1, 4094),
	{
		name: "AcceptableFrameTypes",
		get:  func(_ *bridging.Snapshot, p *bridging.Port) string { return string(p.AcceptableFrameTypes) },
		set: func(p *bridging.Port, s string) error {
			switch ft := bridging.FrameTypes(strings.TrimSpace(s)); ft {
			case bridging.AdmitAll, bridging.AdmitOnlyVLANTagged, bridging.AdmitOnlyPrioUntagged:
				p.AcceptableFrameTypes = ft
				return nil
			}
			return fmt.Errorf("%w: unknown frame types %q", ErrInvalidValue, s)
		},
	},
	boolField("IngressFiltering", func(p *bridging.Port) *bool { return &p.IngressFiltering }),
}

var vlanFields = []field[bridging.VLAN]{
	keyField("VLANKey", func(v *bridging.VLAN) int { return v.Key }),
	boolField("VLANEnable", func(v *bridging.VLAN) *bool { return &v.Enabled }),
	stringField("VLANName", func(v *bridging.VLAN) *string { return &v.Name }),
	intField("VLANID", func(v *bridging.VLAN) *int { return &v.VLANID }, 1, 4094),
}

var filterFields = concat(
	[]field[bridging.Filter]{
		keyField("FilterKey", func(f *bridging.Filter) int { return f.Key }),
		boolField("FilterEnable", func(f *bridging.Filter) *bool { return &f.Enabled }),
		readOnly("FilterStatus", func(s *bridging.Snapshot, f *bridging.Filter) string {
			st, _ := s.FilterStatus(f.Key)
			return string(st)
		}),
		intField("FilterBridgeReference", func(f *bridging.Filter) *int { return &f.BridgeReference }, -1, maxInt),
		intField("ExclusivityOrder", func(f *bridging.Filter) *int { return &f.ExclusivityOrder }, 0, maxInt),
		selectorField("FilterInterface", func(f *bridging.Filter) *bridging.Selector { return &f.Interface }),
		intField("VLANIDFilter", func(f *bridging.Filter) *int { return &f.VLANIDFilter }, -1, 4094),
		boolField("AdmitOnlyVLANTagged", func(f *bridging.Filter) *bool { return &f.AdmitOnlyVLANTagged }),
		{
			name: "EthertypeFilterList",
			get:  func(_ *bridging.Snapshot, f *bridging.Filter) string { return formatEthertypes(f.EthertypeList) },
			set: func(f *bridging.Filter, s string) error {
				list, err := parseEthertypes(s)
				if err != nil {
					return err
				}
				f.EthertypeList = list
				return nil
			},
		},
		boolField("EthertypeFilterExclude", func(f *bridging.Filter) *bool { return &f.EthertypeExclude }),
		macListField("SourceMACAddressFilterList", func(f *bridging.Filter) *[]bridging.MACMatch { return &f.SourceMACList }),
		boolField("SourceMACAddressFilterExclude", func(f *bridging.Filter) *bool { return &f.SourceMACExclude }),
		macListField("DestMACAddressFilterList", func(f *bridging.Filter) *[]bridging.MACMatch { return &f.DestMACList }),
		boolField("DestMACAddressFilterExclude", func(f *bridging.Filter) *bool { return &f.DestMACExclude }),
	},
	identityFields("SourceMACFromVendorClassIDFilter", func(f *bridging.Filter) *bridging.IdentityCriterion { return &f.SourceVendorClassID }, true),
	identityFields("DestMACFromVendorClassIDFilter", func(f *bridging.Filter) *bridging.IdentityCriterion { return &f.DestVendorClassID }, true),
	identityFields("SourceMACFromClientIDFilter", func(f *bridging.Filter) *bridging.IdentityCriterion { return &f.SourceClientID }, false),
	identityFields("DestMACFromClientIDFilter", func(f *bridging.Filter) *bridging.IdentityCriterion { return &f.DestClientID }, false),
	identityFields("SourceMACFromUserClassIDFilter", func(f *bridging.Filter) *bridging.IdentityCriterion { return &f.SourceUserClassID }, false),
	identityFields("DestMACFromUserClassIDFilter", func(f *bridging.Filter) *bridging.IdentityCriterion { return &f.DestUserClassID }, false),
)

func macListField(name string, ptr func(*bridging.Filter) *[]bridging.MACMatch) field[bridging.Filter] {
	return field[bridging.Filter]{
		name: name,
		get:  func(_ *bridging.Snapshot, f *bridging.Filter) string { return formatMACs(*ptr(f)) },
		set: func(f *bridging.Filter, s string) error {
			list, err := parseMACs(s)
			if err != nil {
				return err
			}
			*ptr(f) = list
			return nil
		},
	}
}

var markingFields = []field[bridging.Marking]{
	keyField("MarkingKey", func(m *bridging.Marking) int { return m.Key }),
	boolField("MarkingEnable", func(m *bridging.Marking) *bool { return &m.Enabled }),
	readOnly("MarkingStatus", func(s *bridging.Snapshot, m *bridging.Marking) string {
		st, _ := s.MarkingStatus(m.Key)
		return string(st)
	}),
	intField("MarkingBridgeReference", func(m *bridging.Marking) *int { return &m.BridgeReference }, -1, maxInt),
	selectorField("MarkingInterface", func(m *bridging.Marking) *bridging.Selector { return &m.Interface }),
	boolField("VLANIDUntag", func(m *bridging.Marking) *bool { return &m.VLANIDUntag }),
	intField("VLANIDMark", func(m *bridging.Marking) *int { return &m.VLANIDMark }, -1, 4094),
	boolField("VLANIDMarkOverride", func(m *bridging.Marking) *bool { return &m.VLANIDMarkOverride }),
	intField("EthernetPriorityMark", func(m *bridging.Marking) *int { return &m.EthernetPriorityMark }, -1, 7),
	boolField("EthernetPriorityOverride", func(m *bridging.Marking) *bool { return &m.EthernetPriorityOverride }),
}

var interfaceFields = []field[bridging.AvailableInterface]{
	keyField("AvailableInterfaceKey", func(i *bridging.AvailableInterface) int { return i.Key }),
	readOnly("InterfaceType", func(_ *bridging.Snapshot, i *bridging.AvailableInterface) string {
		return string(i.Type)
	}),
	readOnly("InterfaceReference", func(_ *bridging.Snapshot, i *bridging.AvailableInterface) string {
		return strings.Join(i.Reference, ",")
	}),
}

func concat[T any](lists ...[]field[T]) []field[T] {
	var out []field[T]
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
