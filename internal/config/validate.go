package config

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"grimm.is/l2bridge/internal/validation"
)

// Severity levels for validation findings.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field    string
	Message  string
	Severity string // "error" (default), "warning"
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if any finding has error severity.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// Errors returns the findings with error severity.
func (e ValidationErrors) Errors() ValidationErrors {
	var out ValidationErrors
	for _, err := range e {
		if err.Severity != SeverityWarning {
			out = append(out, err)
		}
	}
	return out
}

func (e *ValidationErrors) errorf(field, format string, args ...any) {
	*e = append(*e, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (e *ValidationErrors) warnf(field, format string, args ...any) {
	*e = append(*e, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Selector tokens accepted by filter and marking "interface" attributes.
var selectorTokens = map[string]bool{
	"AllInterfaces": true,
	"LANInterfaces": true,
	"WANInterfaces": true,
}

var interfaceTypes = map[string]bool{
	"LANInterface":  true,
	"WANInterface":  true,
	"LANConnection": true,
	"WANConnection": true,
}

var vendorModes = map[string]bool{
	"":          true,
	"Exact":     true,
	"Prefix":    true,
	"Suffix":    true,
	"Substring": true,
}

// ParseKey parses a block label as a positive decimal key.
func ParseKey(label string) (int, error) {
	key, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil || key < 1 {
		return 0, fmt.Errorf("key %q must be a positive integer", label)
	}
	return key, nil
}

// ParseEthertype parses "0x0800" style hex or a decimal Ethertype.
func ParseEthertype(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid ethertype %q", s)
	}
	return uint16(v), nil
}

// FormatEthertype renders an Ethertype the way ParseEthertype reads it.
func FormatEthertype(v uint16) string {
	return fmt.Sprintf("0x%04x", v)
}

// Validate validates the entire configuration structurally. Cross-table
// invariants are enforced when the tables are built.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.LogLevel != "" {
		switch strings.ToLower(c.LogLevel) {
		case "debug", "info", "warn", "warning", "error":
		default:
			errs.errorf("log_level", "unknown level %q", c.LogLevel)
		}
	}

	errs = append(errs, c.validateInterfaces()...)
	errs = append(errs, c.validateBridges()...)
	errs = append(errs, c.validateFilters()...)
	errs = append(errs, c.validateMarkings()...)
	errs = append(errs, c.validateServices()...)
	return errs
}

func validateKeys[T any](table string, items []T, label func(T) string) (ValidationErrors, map[int]bool) {
	var errs ValidationErrors
	seen := make(map[int]bool)
	for _, item := range items {
		l := label(item)
		key, err := ParseKey(l)
		if err != nil {
			errs.errorf(fmt.Sprintf("%s.%s", table, l), "%v", err)
			continue
		}
		if seen[key] {
			errs.errorf(fmt.Sprintf("%s.%s", table, l), "duplicate key")
		}
		seen[key] = true
	}
	return errs, seen
}

func validateSelector(errs *ValidationErrors, field, sel string) {
	if sel == "" || selectorTokens[sel] {
		return
	}
	if _, err := ParseKey(sel); err != nil {
		errs.errorf(field, "interface must be empty, a key or one of AllInterfaces, LANInterfaces, WANInterfaces; got %q", sel)
	}
}

func (c *Config) validateInterfaces() ValidationErrors {
	errs, _ := validateKeys("available_interface", c.Interfaces, func(i AvailableInterface) string { return i.Key })
	devices := make(map[string]string)
	for _, i := range c.Interfaces {
		field := "available_interface." + i.Key
		if !interfaceTypes[i.Type] {
			errs.errorf(field+".type", "unknown interface type %q", i.Type)
		}
		if i.Device != "" {
			if err := validation.ValidateInterfaceName(i.Device); err != nil {
				errs.errorf(field+".device", "%v", err)
			}
			if other, dup := devices[i.Device]; dup {
				errs.errorf(field+".device", "device %s already used by available_interface %s", i.Device, other)
			}
			devices[i.Device] = i.Key
		}
	}
	return errs
}

func (c *Config) validateBridges() ValidationErrors {
	errs, _ := validateKeys("bridge", c.Bridges, func(b Bridge) string { return b.Key })
	for _, b := range c.Bridges {
		field := "bridge." + b.Key
		switch b.Standard {
		case "", "802.1D":
			if b.VLANID != 0 {
				errs.errorf(field+".vlan_id", "must be 0 for an 802.1D bridge")
			}
		case "802.1Q":
			if b.VLANID < 1 || b.VLANID > 4094 {
				errs.errorf(field+".vlan_id", "must be 1..4094 for an 802.1Q bridge, got %d", b.VLANID)
			}
		default:
			errs.errorf(field+".standard", "unknown standard %q", b.Standard)
		}

		portErrs, _ := validateKeys(field+".port", b.Ports, func(p Port) string { return p.Key })
		errs = append(errs, portErrs...)
		for _, p := range b.Ports {
			if p.Interface != "" {
				if _, err := ParseKey(p.Interface); err != nil {
					errs.errorf(field+".port."+p.Key+".interface", "%v", err)
				}
			}
			switch p.AcceptableFrameTypes {
			case "", "AdmitAll", "AdmitOnlyVLANTagged", "AdmitOnlyPrioUntagged":
			default:
				errs.errorf(field+".port."+p.Key+".acceptable_frame_types", "unknown value %q", p.AcceptableFrameTypes)
			}
		}
		vlanErrs, _ := validateKeys(field+".vlan", b.VLANs, func(v VLAN) string { return v.Key })
		errs = append(errs, vlanErrs...)
	}
	return errs
}

func (c *Config) validateFilters() ValidationErrors {
	errs, _ := validateKeys("filter", c.Filters, func(f Filter) string { return f.Key })
	ranks := make(map[int][]string)
	for _, f := range c.Filters {
		field := "filter." + f.Key
		validateSelector(&errs, field+".interface", f.Interface)
		if f.ExclusivityOrder < 0 {
			errs.errorf(field+".exclusivity_order", "must not be negative")
		} else if f.ExclusivityOrder > 0 {
			ranks[f.ExclusivityOrder] = append(ranks[f.ExclusivityOrder], f.Key)
		}
		for _, et := range f.Ethertypes {
			if _, err := ParseEthertype(et); err != nil {
				errs.errorf(field+".ethertypes", "%v", err)
			}
		}
		for _, list := range [][]string{f.SourceMACs, f.DestMACs} {
			for _, m := range list {
				if err := validateMACEntry(m); err != nil {
					errs.errorf(field, "%v", err)
				}
			}
		}
		if im := f.SourceVendorClassID; im != nil && !vendorModes[im.Mode] {
			errs.errorf(field+".source_vendor_class_id.mode", "unknown mode %q", im.Mode)
		}
		if im := f.DestVendorClassID; im != nil && !vendorModes[im.Mode] {
			errs.errorf(field+".dest_vendor_class_id.mode", "unknown mode %q", im.Mode)
		}
	}

	// Ranks are renumbered to 1..N on load; point out when that changes them.
	orders := make([]int, 0, len(ranks))
	for r := range ranks {
		orders = append(orders, r)
	}
	sort.Ints(orders)
	for i, r := range orders {
		if len(ranks[r]) > 1 {
			errs.warnf("filter.exclusivity_order", "rank %d shared by filters %s; ties are broken by key", r, strings.Join(ranks[r], ", "))
		}
		if r != i+1 {
			errs.warnf("filter.exclusivity_order", "ranks are not contiguous from 1; they will be renumbered")
			break
		}
	}
	return errs
}

func validateMACEntry(s string) error {
	addr, mask, hasMask := strings.Cut(s, "/")
	if _, err := net.ParseMAC(addr); err != nil {
		return fmt.Errorf("invalid MAC address %q", s)
	}
	if hasMask {
		if _, err := net.ParseMAC(mask); err != nil {
			return fmt.Errorf("invalid MAC mask %q", s)
		}
	}
	return nil
}

func (c *Config) validateMarkings() ValidationErrors {
	errs, _ := validateKeys("marking", c.Markings, func(m Marking) string { return m.Key })
	for _, m := range c.Markings {
		field := "marking." + m.Key
		validateSelector(&errs, field+".interface", m.Interface)
		if m.VLANIDUntag && m.VLANIDMark != nil && *m.VLANIDMark != -1 {
			errs.warnf(field+".vlan_id_mark", "ignored because vlan_id_untag is set")
		}
	}
	return errs
}

func (c *Config) validateServices() ValidationErrors {
	var errs ValidationErrors
	if s := c.DHCPSnooping; s != nil {
		if s.TTL != "" {
			if d, err := time.ParseDuration(s.TTL); err != nil || d <= 0 {
				errs.errorf("dhcp_snooping.ttl", "invalid duration %q", s.TTL)
			}
		}
		for _, name := range s.Interfaces {
			if err := validation.ValidateInterfaceName(name); err != nil {
				errs.errorf("dhcp_snooping.interfaces", "%v", err)
			}
		}
	}
	if m := c.Metrics; m != nil {
		if m.Listen != "" {
			if _, _, err := net.SplitHostPort(m.Listen); err != nil {
				errs.errorf("metrics.listen", "invalid address %q: %v", m.Listen, err)
			}
		}
		if m.Interval != "" {
			if d, err := time.ParseDuration(m.Interval); err != nil || d <= 0 {
				errs.errorf("metrics.interval", "invalid duration %q", m.Interval)
			}
		}
	}
	if a := c.Audit; a != nil && a.Retention != "" {
		if d, err := time.ParseDuration(a.Retention); err != nil || d <= 0 {
			errs.errorf("audit.retention", "invalid duration %q", a.Retention)
		}
	}
	return errs
}
