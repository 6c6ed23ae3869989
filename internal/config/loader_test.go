package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleHCL = `
schema_version = "1.0"
log_level      = "debug"

available_interface "1" {
  type      = "LANInterface"
  reference = ["InternetGatewayDevice.LANDevice.1.LANEthernetInterfaceConfig.1"]
  device    = "eth1"
}

available_interface "2" {
  type = "WANInterface"
}

bridge "1" {
  name     = "lan"
  standard = "802.1Q"
  enabled  = true
  vlan_id  = 10

  vlan "1" {
    enabled = true
    vlan_id = 10
  }
}

filter "1" {
  enabled           = true
  bridge            = 1
  exclusivity_order = 1
  interface         = "1"
  ethertypes        = ["0x0800", "0x86dd"]

  source_vendor_class_id {
    value = "MSFT"
    mode  = "Prefix"
  }
}

marking "3" {
  enabled                = true
  bridge                 = 1
  interface              = "LANInterfaces"
  ethernet_priority_mark = 5
}

dhcp_snooping {
  enabled = true
  ttl     = "12h"
}
`

func TestLoadHCL(t *testing.T) {
	cfg, err := LoadHCL([]byte(sampleHCL), "test.hcl")
	if err != nil {
		t.Fatalf("LoadHCL() error = %v", err)
	}

	if cfg.SchemaVersion != "1.0" {
		t.Errorf("SchemaVersion = %q, want %q", cfg.SchemaVersion, "1.0")
	}
	if len(cfg.Interfaces) != 2 {
		t.Fatalf("len(Interfaces) = %d, want 2", len(cfg.Interfaces))
	}
	if cfg.Interfaces[0].Device != "eth1" {
		t.Errorf("Interfaces[0].Device = %q, want eth1", cfg.Interfaces[0].Device)
	}
	if len(cfg.Bridges) != 1 || len(cfg.Bridges[0].VLANs) != 1 {
		t.Fatalf("bridge/vlan blocks not decoded: %+v", cfg.Bridges)
	}

	f := cfg.Filters[0]
	if f.Bridge == nil || *f.Bridge != 1 {
		t.Errorf("Filter.Bridge = %v, want 1", f.Bridge)
	}
	if f.VLANIDFilter != nil {
		t.Errorf("Filter.VLANIDFilter = %v, want nil (inherit)", *f.VLANIDFilter)
	}
	if f.SourceVendorClassID == nil || f.SourceVendorClassID.Mode != "Prefix" {
		t.Errorf("SourceVendorClassID = %+v, want Prefix match", f.SourceVendorClassID)
	}
	if f.DestClientID != nil {
		t.Error("DestClientID should be nil when the block is absent")
	}

	m := cfg.Markings[0]
	if m.EthernetPriorityMark == nil || *m.EthernetPriorityMark != 5 {
		t.Errorf("Marking.EthernetPriorityMark = %v, want 5", m.EthernetPriorityMark)
	}
	if m.VLANIDMark != nil {
		t.Error("Marking.VLANIDMark should be nil when unset")
	}
}

func TestLoadHCL_DefaultsVersion(t *testing.T) {
	cfg, err := LoadHCL([]byte(`log_json = true`), "test.hcl")
	if err != nil {
		t.Fatalf("LoadHCL() error = %v", err)
	}
	if cfg.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", cfg.SchemaVersion, CurrentSchemaVersion)
	}
}

func TestLoadHCL_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"syntax", `bridge "1" {`, "parse error"},
		{"unsupported version", `schema_version = "2.0"`, "unsupported"},
		{"bad version", `schema_version = "one"`, "invalid schema version"},
		{"unknown attribute", `bogus = 1`, "decode error"},
		{"invalid key", "bridge \"x\" {\n}\n", "positive integer"},
		{"8021d vlan", "bridge \"1\" {\n  vlan_id = 5\n}\n", "802.1D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadHCL([]byte(tt.input), "test.hcl")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadHCLWithOptions_Warnings(t *testing.T) {
	input := `
filter "1" {
  exclusivity_order = 2
}
filter "2" {
  exclusivity_order = 2
}
`
	result, err := LoadHCLWithOptions([]byte(input), "test.hcl", DefaultLoadOptions())
	if err != nil {
		t.Fatalf("LoadHCLWithOptions() error = %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected warnings for shared and non-contiguous ranks")
	}
}

func TestLoadFile_JSONFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "l2bridge.conf")
	data := `{"schema_version": "1.0", "bridges": [{"key": "4", "standard": "802.1Q", "vlan_id": 20, "enabled": true}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(cfg.Bridges) != 1 || cfg.Bridges[0].VLANID != 20 {
		t.Errorf("Bridges = %+v, want one bridge with vlan 20", cfg.Bridges)
	}
}

func TestSaveFile_RoundTrip(t *testing.T) {
	cfg, err := LoadHCL([]byte(sampleHCL), "test.hcl")
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"out.hcl", "out.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			if err := SaveFile(cfg, path); err != nil {
				t.Fatalf("SaveFile() error = %v", err)
			}
			again, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if len(again.Filters) != 1 || again.Filters[0].SourceVendorClassID.Value != "MSFT" {
				t.Errorf("filter lost in round trip: %+v", again.Filters)
			}
			if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
				t.Error("temporary file left behind")
			}
		})
	}
}
