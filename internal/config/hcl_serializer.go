package config

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Marshal renders cfg as formatted HCL. Attributes holding their default
// value are omitted so that a load/save round trip stays minimal.
func Marshal(cfg *Config) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	version := cfg.SchemaVersion
	if version == "" {
		version = CurrentSchemaVersion
	}
	body.SetAttributeValue("schema_version", cty.StringVal(version))
	setString(body, "log_level", cfg.LogLevel)
	setBool(body, "log_json", cfg.LogJSON)
	setString(body, "state_dir", cfg.StateDir)

	if l := cfg.Limits; l != nil {
		b := appendBlock(body, "limits")
		setInt(b, "max_bridge_entries", l.MaxBridgeEntries)
		setInt(b, "max_dbridge_entries", l.MaxDBridgeEntries)
		setInt(b, "max_qbridge_entries", l.MaxQBridgeEntries)
		setInt(b, "max_vlan_entries", l.MaxVLANEntries)
		setInt(b, "max_filter_entries", l.MaxFilterEntries)
		setInt(b, "max_marking_entries", l.MaxMarkingEntries)
	}

	for _, i := range cfg.Interfaces {
		b := appendBlock(body, "available_interface", i.Key)
		b.SetAttributeValue("type", cty.StringVal(i.Type))
		setStrings(b, "reference", i.Reference)
		setString(b, "device", i.Device)
	}

	for _, br := range cfg.Bridges {
		writeBridge(appendBlock(body, "bridge", br.Key), br)
	}

	for _, flt := range cfg.Filters {
		writeFilter(appendBlock(body, "filter", flt.Key), flt)
	}

	for _, m := range cfg.Markings {
		b := appendBlock(body, "marking", m.Key)
		setBool(b, "enabled", m.Enabled)
		setIntPtr(b, "bridge", m.Bridge)
		setString(b, "interface", m.Interface)
		setBool(b, "vlan_id_untag", m.VLANIDUntag)
		setIntPtr(b, "vlan_id_mark", m.VLANIDMark)
		setBool(b, "vlan_id_mark_override", m.VLANIDMarkOverride)
		setIntPtr(b, "ethernet_priority_mark", m.EthernetPriorityMark)
		setBool(b, "ethernet_priority_override", m.EthernetPriorityOverride)
	}

	if s := cfg.DHCPSnooping; s != nil {
		b := appendBlock(body, "dhcp_snooping")
		setBool(b, "enabled", s.Enabled)
		setStrings(b, "interfaces", s.Interfaces)
		setString(b, "ttl", s.TTL)
		setBool(b, "persist", s.Persist)
		setString(b, "vendor_db", s.VendorDB)
	}

	if m := cfg.Metrics; m != nil {
		b := appendBlock(body, "metrics")
		setBool(b, "enabled", m.Enabled)
		setString(b, "listen", m.Listen)
		setString(b, "interval", m.Interval)
	}

	if a := cfg.Audit; a != nil {
		b := appendBlock(body, "audit")
		setBool(b, "enabled", a.Enabled)
		setString(b, "retention", a.Retention)
	}

	return f.Bytes(), nil
}

func writeBridge(b *hclwrite.Body, br Bridge) {
	setString(b, "name", br.Name)
	setString(b, "standard", br.Standard)
	setBool(b, "enabled", br.Enabled)
	setInt(b, "vlan_id", br.VLANID)
	for _, p := range br.Ports {
		pb := b.AppendNewBlock("port", []string{p.Key}).Body()
		setBool(pb, "enabled", p.Enabled)
		setString(pb, "interface", p.Interface)
		setInt(pb, "pvid", p.PVID)
		setString(pb, "acceptable_frame_types", p.AcceptableFrameTypes)
		setBool(pb, "ingress_filtering", p.IngressFiltering)
	}
	for _, v := range br.VLANs {
		vb := b.AppendNewBlock("vlan", []string{v.Key}).Body()
		setBool(vb, "enabled", v.Enabled)
		setString(vb, "name", v.Name)
		vb.SetAttributeValue("vlan_id", cty.NumberIntVal(int64(v.VLANID)))
	}
}

func writeFilter(b *hclwrite.Body, flt Filter) {
	setBool(b, "enabled", flt.Enabled)
	setIntPtr(b, "bridge", flt.Bridge)
	setInt(b, "exclusivity_order", flt.ExclusivityOrder)
	setString(b, "interface", flt.Interface)
	setIntPtr(b, "vlan_id_filter", flt.VLANIDFilter)
	setBool(b, "admit_only_vlan_tagged", flt.AdmitOnlyVLANTagged)

	setStrings(b, "ethertypes", flt.Ethertypes)
	setBoolPtr(b, "ethertype_exclude", flt.EthertypeExclude)
	setStrings(b, "source_macs", flt.SourceMACs)
	setBoolPtr(b, "source_mac_exclude", flt.SourceMACExclude)
	setStrings(b, "dest_macs", flt.DestMACs)
	setBoolPtr(b, "dest_mac_exclude", flt.DestMACExclude)

	writeIdentity(b, "source_vendor_class_id", flt.SourceVendorClassID)
	writeIdentity(b, "dest_vendor_class_id", flt.DestVendorClassID)
	writeIdentity(b, "source_client_id", flt.SourceClientID)
	writeIdentity(b, "dest_client_id", flt.DestClientID)
	writeIdentity(b, "source_user_class_id", flt.SourceUserClassID)
	writeIdentity(b, "dest_user_class_id", flt.DestUserClassID)
}

func writeIdentity(b *hclwrite.Body, name string, im *IdentityMatch) {
	if im == nil {
		return
	}
	ib := b.AppendNewBlock(name, nil).Body()
	ib.SetAttributeValue("value", cty.StringVal(im.Value))
	setBool(ib, "exclude", im.Exclude)
	setString(ib, "mode", im.Mode)
}

func appendBlock(body *hclwrite.Body, typ string, labels ...string) *hclwrite.Body {
	body.AppendNewline()
	return body.AppendNewBlock(typ, labels).Body()
}

func setString(b *hclwrite.Body, name, v string) {
	if v != "" {
		b.SetAttributeValue(name, cty.StringVal(v))
	}
}

func setBool(b *hclwrite.Body, name string, v bool) {
	if v {
		b.SetAttributeValue(name, cty.True)
	}
}

func setBoolPtr(b *hclwrite.Body, name string, v *bool) {
	if v != nil {
		b.SetAttributeValue(name, cty.BoolVal(*v))
	}
}

func setInt(b *hclwrite.Body, name string, v int) {
	if v != 0 {
		b.SetAttributeValue(name, cty.NumberIntVal(int64(v)))
	}
}

func setIntPtr(b *hclwrite.Body, name string, v *int) {
	if v != nil {
		b.SetAttributeValue(name, cty.NumberIntVal(int64(*v)))
	}
}

func setStrings(b *hclwrite.Body, name string, list []string) {
	if len(list) == 0 {
		return
	}
	vals := make([]cty.Value, len(list))
	for i, s := range list {
		vals[i] = cty.StringVal(s)
	}
	b.SetAttributeValue(name, cty.ListVal(vals))
}
