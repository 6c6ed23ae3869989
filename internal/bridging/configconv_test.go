package bridging

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/l2bridge/internal/config"
)

const sampleConfig = `
schema_version = "1.0"

limits {
  max_filter_entries = 32
}

available_interface "1" {
  type   = "LANInterface"
  device = "eth1"
}

available_interface "2" {
  type = "WANInterface"
}

bridge "1" {
  name     = "voice"
  standard = "802.1Q"
  enabled  = true
  vlan_id  = 10

  port "1" {
    enabled   = true
    interface = "1"
  }

  vlan "1" {
    enabled = true
    vlan_id = 10
  }
}

filter "1" {
  enabled           = true
  bridge            = 1
  exclusivity_order = 1
  interface         = "LANInterfaces"
  ethertypes        = ["0x0800", "0x86dd"]
  source_macs       = ["00:11:22:00:00:00/ff:ff:ff:00:00:00"]

  source_vendor_class_id {
    value = "Cisco"
    mode  = "Prefix"
  }
}

filter "2" {
  enabled           = true
  bridge            = 1
  interface         = "AllInterfaces"
  ethertypes        = ["0x0806"]
  ethertype_exclude = true
}

marking "1" {
  enabled                = true
  bridge                 = 1
  interface              = "2"
  ethernet_priority_mark = 5
}
`

func TestDocumentFromConfig(t *testing.T) {
	cfg, err := config.LoadHCL([]byte(sampleConfig), "test.hcl")
	require.NoError(t, err)

	doc, err := DocumentFromConfig(cfg)
	require.NoError(t, err)

	require.Len(t, doc.Bridges, 1)
	b := doc.Bridges[0]
	assert.Equal(t, Standard8021Q, b.Standard)
	require.Len(t, b.Ports, 1)
	assert.Equal(t, Port{Key: 1, Enabled: true, Interface: 1, PVID: 10, AcceptableFrameTypes: AdmitAll}, b.Ports[0])

	require.Len(t, doc.Filters, 2)
	f := doc.Filters[0]
	assert.Equal(t, 1, f.BridgeReference)
	assert.Equal(t, LANInterfaces, f.Interface)
	assert.Equal(t, []uint16{0x0800, 0x86dd}, f.EthertypeList)
	assert.False(t, f.EthertypeExclude, "a non-empty list defaults to inclusive")
	assert.False(t, f.SourceMACExclude)
	assert.True(t, f.DestMACExclude, "an empty list defaults to admit-all")
	assert.Equal(t, IdentityCriterion{Value: "Cisco", Mode: MatchPrefix}, f.SourceVendorClassID)
	assert.Equal(t, IdentityCriterion{Exclude: true, Mode: MatchExact}, f.DestVendorClassID)
	assert.Equal(t, IdentityCriterion{Exclude: true}, f.SourceClientID)
	assert.True(t, doc.Filters[1].EthertypeExclude)

	require.Len(t, doc.Markings, 1)
	assert.Equal(t, 5, doc.Markings[0].EthernetPriorityMark)
	assert.Equal(t, -1, doc.Markings[0].VLANIDMark)

	assert.Equal(t, 32, LimitsFromConfig(cfg.Limits).MaxFilterEntries)
	assert.Equal(t, DefaultLimits().MaxMarkingEntries, LimitsFromConfig(cfg.Limits).MaxMarkingEntries)

	tbl := New(Options{Limits: LimitsFromConfig(cfg.Limits)})
	require.NoError(t, tbl.Replace(doc))
	got, _ := tbl.Snapshot().Classify(Frame{Ingress: 1, EtherType: 0x0800, SrcMAC: macA}, identityMap{macA: {VendorClassID: "Cisco SIP"}}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Filter)
	assert.Equal(t, uint16(10), got[0].VLANID)
}

func TestDocumentFromConfig_Errors(t *testing.T) {
	cfg := &config.Config{Filters: []config.Filter{{Key: "1", Ethertypes: []string{"ip"}}}}
	_, err := DocumentFromConfig(cfg)
	assert.Error(t, err)

	cfg = &config.Config{Markings: []config.Marking{{Key: "x"}}}
	_, err = DocumentFromConfig(cfg)
	assert.Error(t, err)
}

func TestApplyToConfig_RoundTrip(t *testing.T) {
	cfg, err := config.LoadHCL([]byte(sampleConfig), "test.hcl")
	require.NoError(t, err)
	doc, err := DocumentFromConfig(cfg)
	require.NoError(t, err)

	// Interface 1 is bound to a device that went away.
	pruned := doc
	pruned.Interfaces = doc.Interfaces[1:]
	out := &config.Config{LogLevel: "debug", Interfaces: cfg.Interfaces}
	ApplyToConfig(out, pruned)

	assert.Equal(t, "debug", out.LogLevel)
	require.Len(t, out.Interfaces, 2, "absent device interfaces stay declared")
	assert.Equal(t, "eth1", out.Interfaces[0].Device)

	again, err := DocumentFromConfig(out)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, again, cmp.AllowUnexported(Selector{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
