// Package config loads and writes the l2bridge configuration file.
//
// The file is HCL (JSON is accepted as a fallback) describing the
// Layer2Bridging tables plus daemon settings:
//
//	schema_version = "1.0"
//	log_level      = "info"
//
//	available_interface "1" {
//	  type      = "LANInterface"
//	  reference = ["InternetGatewayDevice.LANDevice.1.LANEthernetInterfaceConfig.1"]
//	  device    = "eth1"
//	}
//
//	bridge "1" {
//	  name     = "lan"
//	  standard = "802.1Q"
//	  enabled  = true
//	  vlan_id  = 10
//	}
//
//	filter "1" {
//	  enabled           = true
//	  bridge            = 1
//	  exclusivity_order = 1
//	  interface         = "1"
//	}
//
// Keys are the block labels; they must be positive decimal integers.
package config

// CurrentSchemaVersion defines the current schema version of the configuration.
const CurrentSchemaVersion = "1.0"

// Config is the top-level structure for the bridging configuration.
type Config struct {
	// Schema version for backward compatibility (e.g., "1.0", "2.0")
	// If empty, defaults to "1.0"
	SchemaVersion string `hcl:"schema_version,optional" json:"schema_version,omitempty"`

	LogLevel string `hcl:"log_level,optional" json:"log_level,omitempty"`
	LogJSON  bool   `hcl:"log_json,optional" json:"log_json,omitempty"`
	StateDir string `hcl:"state_dir,optional" json:"state_dir,omitempty"`

	Limits     *Limits              `hcl:"limits,block" json:"limits,omitempty"`
	Interfaces []AvailableInterface `hcl:"available_interface,block" json:"available_interfaces"`
	Bridges    []Bridge             `hcl:"bridge,block" json:"bridges"`
	Filters    []Filter             `hcl:"filter,block" json:"filters"`
	Markings   []Marking            `hcl:"marking,block" json:"markings"`

	DHCPSnooping *DHCPSnooping  `hcl:"dhcp_snooping,block" json:"dhcp_snooping,omitempty"`
	Metrics      *MetricsConfig `hcl:"metrics,block" json:"metrics,omitempty"`
	Audit        *AuditConfig   `hcl:"audit,block" json:"audit,omitempty"`
}

// Limits overrides the advertised table size limits.
type Limits struct {
	MaxBridgeEntries  int `hcl:"max_bridge_entries,optional" json:"max_bridge_entries,omitempty"`
	MaxDBridgeEntries int `hcl:"max_dbridge_entries,optional" json:"max_dbridge_entries,omitempty"`
	MaxQBridgeEntries int `hcl:"max_qbridge_entries,optional" json:"max_qbridge_entries,omitempty"`
	MaxVLANEntries    int `hcl:"max_vlan_entries,optional" json:"max_vlan_entries,omitempty"`
	MaxFilterEntries  int `hcl:"max_filter_entries,optional" json:"max_filter_entries,omitempty"`
	MaxMarkingEntries int `hcl:"max_marking_entries,optional" json:"max_marking_entries,omitempty"`
}

// AvailableInterface declares an interface eligible for bridging.
type AvailableInterface struct {
	Key       string   `hcl:"key,label" json:"key"`
	Type      string   `hcl:"type" json:"type"` // LANInterface, WANInterface, LANConnection, WANConnection
	Reference []string `hcl:"reference,optional" json:"reference,omitempty"`
	// Device is the OS link name. When set, the interface is only present
	// in the registry while the link exists.
	Device string `hcl:"device,optional" json:"device,omitempty"`
}

// Bridge declares a logical bridge.
type Bridge struct {
	Key      string `hcl:"key,label" json:"key"`
	Name     string `hcl:"name,optional" json:"name,omitempty"`
	Standard string `hcl:"standard,optional" json:"standard,omitempty"` // 802.1D (default) or 802.1Q
	Enabled  bool   `hcl:"enabled,optional" json:"enabled"`
	VLANID   int    `hcl:"vlan_id,optional" json:"vlan_id,omitempty"`
	Ports    []Port `hcl:"port,block" json:"ports,omitempty"`
	VLANs    []VLAN `hcl:"vlan,block" json:"vlans,omitempty"`
}

// Port is an explicit bridge port.
type Port struct {
	Key                  string `hcl:"key,label" json:"key"`
	Enabled              bool   `hcl:"enabled,optional" json:"enabled"`
	Interface            string `hcl:"interface,optional" json:"interface,omitempty"`
	PVID                 int    `hcl:"pvid,optional" json:"pvid,omitempty"`
	AcceptableFrameTypes string `hcl:"acceptable_frame_types,optional" json:"acceptable_frame_types,omitempty"`
	IngressFiltering     bool   `hcl:"ingress_filtering,optional" json:"ingress_filtering,omitempty"`
}

// VLAN is an explicit bridge VLAN.
type VLAN struct {
	Key     string `hcl:"key,label" json:"key"`
	Enabled bool   `hcl:"enabled,optional" json:"enabled"`
	Name    string `hcl:"name,optional" json:"name,omitempty"`
	VLANID  int    `hcl:"vlan_id" json:"vlan_id"`
}

// Filter declares an ingress classification rule.
//
// A list criterion without an explicit exclude flag is inclusive when the
// list is non-empty and admits everything when it is empty.
type Filter struct {
	Key                 string `hcl:"key,label" json:"key"`
	Enabled             bool   `hcl:"enabled,optional" json:"enabled"`
	Bridge              *int   `hcl:"bridge,optional" json:"bridge,omitempty"` // nil = unbound
	ExclusivityOrder    int    `hcl:"exclusivity_order,optional" json:"exclusivity_order,omitempty"`
	Interface           string `hcl:"interface,optional" json:"interface,omitempty"`
	VLANIDFilter        *int   `hcl:"vlan_id_filter,optional" json:"vlan_id_filter,omitempty"` // nil = inherit
	AdmitOnlyVLANTagged bool   `hcl:"admit_only_vlan_tagged,optional" json:"admit_only_vlan_tagged,omitempty"`

	Ethertypes       []string `hcl:"ethertypes,optional" json:"ethertypes,omitempty"` // "0x0800" or decimal
	EthertypeExclude *bool    `hcl:"ethertype_exclude,optional" json:"ethertype_exclude,omitempty"`
	SourceMACs       []string `hcl:"source_macs,optional" json:"source_macs,omitempty"` // "aa:bb:cc:dd:ee:ff[/mask]"
	SourceMACExclude *bool    `hcl:"source_mac_exclude,optional" json:"source_mac_exclude,omitempty"`
	DestMACs         []string `hcl:"dest_macs,optional" json:"dest_macs,omitempty"`
	DestMACExclude   *bool    `hcl:"dest_mac_exclude,optional" json:"dest_mac_exclude,omitempty"`

	SourceVendorClassID *IdentityMatch `hcl:"source_vendor_class_id,block" json:"source_vendor_class_id,omitempty"`
	DestVendorClassID   *IdentityMatch `hcl:"dest_vendor_class_id,block" json:"dest_vendor_class_id,omitempty"`
	SourceClientID      *IdentityMatch `hcl:"source_client_id,block" json:"source_client_id,omitempty"`
	DestClientID        *IdentityMatch `hcl:"dest_client_id,block" json:"dest_client_id,omitempty"`
	SourceUserClassID   *IdentityMatch `hcl:"source_user_class_id,block" json:"source_user_class_id,omitempty"`
	DestUserClassID     *IdentityMatch `hcl:"dest_user_class_id,block" json:"dest_user_class_id,omitempty"`
}

// IdentityMatch matches a DHCP-learned identity string.
type IdentityMatch struct {
	Value   string `hcl:"value" json:"value"`
	Exclude bool   `hcl:"exclude,optional" json:"exclude,omitempty"`
	Mode    string `hcl:"mode,optional" json:"mode,omitempty"` // Exact, Prefix, Suffix, Substring (vendor class only)
}

// Marking declares an egress rewrite rule.
type Marking struct {
	Key                      string `hcl:"key,label" json:"key"`
	Enabled                  bool   `hcl:"enabled,optional" json:"enabled"`
	Bridge                   *int   `hcl:"bridge,optional" json:"bridge,omitempty"`
	Interface                string `hcl:"interface,optional" json:"interface,omitempty"`
	VLANIDUntag              bool   `hcl:"vlan_id_untag,optional" json:"vlan_id_untag,omitempty"`
	VLANIDMark               *int   `hcl:"vlan_id_mark,optional" json:"vlan_id_mark,omitempty"`
	VLANIDMarkOverride       bool   `hcl:"vlan_id_mark_override,optional" json:"vlan_id_mark_override,omitempty"`
	EthernetPriorityMark     *int   `hcl:"ethernet_priority_mark,optional" json:"ethernet_priority_mark,omitempty"`
	EthernetPriorityOverride bool   `hcl:"ethernet_priority_override,optional" json:"ethernet_priority_override,omitempty"`
}

// DHCPSnooping configures learning of DHCP client identities.
type DHCPSnooping struct {
	Enabled bool `hcl:"enabled,optional" json:"enabled"`
	// Interfaces lists the devices to capture on; empty means every device
	// of a LANInterface entry.
	Interfaces []string `hcl:"interfaces,optional" json:"interfaces,omitempty"`
	// TTL bounds how long a learned identity is kept (Go duration, default 24h).
	TTL string `hcl:"ttl,optional" json:"ttl,omitempty"`
	// Persist stores learned identities in the state database.
	Persist bool `hcl:"persist,optional" json:"persist,omitempty"`
	// VendorDB is a compact IEEE vendor database (see "l2bridge vendordb")
	// used to annotate learned identities with the device manufacturer.
	VendorDB string `hcl:"vendor_db,optional" json:"vendor_db,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `hcl:"enabled,optional" json:"enabled"`
	Listen   string `hcl:"listen,optional" json:"listen,omitempty"`     // default ":9108"
	Interval string `hcl:"interval,optional" json:"interval,omitempty"` // collector period, default 15s
}

// AuditConfig configures the management event journal.
type AuditConfig struct {
	Enabled bool `hcl:"enabled,optional" json:"enabled"`
	// Retention bounds how long entries are kept (Go duration, default 2160h).
	Retention string `hcl:"retention,optional" json:"retention,omitempty"`
}

// Int returns a pointer to v, for optional integer fields.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for optional boolean fields.
func Bool(v bool) *bool { return &v }
