package config

import (
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantErrs int
		wantWarn int
	}{
		{
			name: "valid minimal",
			cfg: Config{
				Interfaces: []AvailableInterface{{Key: "1", Type: "LANInterface"}},
				Bridges:    []Bridge{{Key: "1", Standard: "802.1Q", VLANID: 10}},
				Filters:    []Filter{{Key: "1", Bridge: Int(1), Interface: "1", ExclusivityOrder: 1}},
				Markings:   []Marking{{Key: "1", Interface: "AllInterfaces"}},
			},
		},
		{
			name: "unknown interface type",
			cfg: Config{
				Interfaces: []AvailableInterface{{Key: "1", Type: "USBInterface"}},
			},
			wantErrs: 1,
		},
		{
			name: "duplicate device",
			cfg: Config{
				Interfaces: []AvailableInterface{
					{Key: "1", Type: "LANInterface", Device: "eth1"},
					{Key: "2", Type: "LANInterface", Device: "eth1"},
				},
			},
			wantErrs: 1,
		},
		{
			name: "bad device name",
			cfg: Config{
				Interfaces: []AvailableInterface{{Key: "1", Type: "LANInterface", Device: "eth1 && reboot"}},
			},
			wantErrs: 1,
		},
		{
			name: "duplicate key",
			cfg: Config{
				Bridges: []Bridge{{Key: "1"}, {Key: "1"}},
			},
			wantErrs: 1,
		},
		{
			name: "802.1Q without vlan",
			cfg: Config{
				Bridges: []Bridge{{Key: "1", Standard: "802.1Q"}},
			},
			wantErrs: 1,
		},
		{
			name: "bad selector and ethertype",
			cfg: Config{
				Filters: []Filter{{Key: "1", Interface: "eth0", Ethertypes: []string{"ipv4"}}},
			},
			wantErrs: 2,
		},
		{
			name: "bad mac and mode",
			cfg: Config{
				Filters: []Filter{{
					Key:                 "1",
					SourceMACs:          []string{"00:11:22:33:44:55/ff:ff:ff:00:00:00", "nope"},
					SourceVendorClassID: &IdentityMatch{Value: "x", Mode: "Regex"},
				}},
			},
			wantErrs: 2,
		},
		{
			name: "rank gap warns",
			cfg: Config{
				Filters: []Filter{{Key: "1", ExclusivityOrder: 3}},
			},
			wantWarn: 1,
		},
		{
			name: "untag with mark warns",
			cfg: Config{
				Markings: []Marking{{Key: "1", VLANIDUntag: true, VLANIDMark: Int(20)}},
			},
			wantWarn: 1,
		},
		{
			name: "services",
			cfg: Config{
				DHCPSnooping: &DHCPSnooping{TTL: "forever", Interfaces: []string{"eth1", "eth1;reboot"}},
				Metrics:      &MetricsConfig{Listen: "9108", Interval: "-1s"},
				Audit:        &AuditConfig{Retention: "0s"},
			},
			wantErrs: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.cfg.Validate()
			gotErrs := len(errs.Errors())
			gotWarn := len(errs) - gotErrs
			if gotErrs != tt.wantErrs || gotWarn != tt.wantWarn {
				t.Errorf("Validate() = %d errors, %d warnings; want %d, %d: %v",
					gotErrs, gotWarn, tt.wantErrs, tt.wantWarn, errs)
			}
		})
	}
}

func TestParseEthertype(t *testing.T) {
	for in, want := range map[string]uint16{"0x0800": 0x0800, "2048": 0x0800, "0x86DD": 0x86dd} {
		got, err := ParseEthertype(in)
		if err != nil || got != want {
			t.Errorf("ParseEthertype(%q) = %#x, %v; want %#x", in, got, err, want)
		}
	}
	if _, err := ParseEthertype("0x10000"); err == nil {
		t.Error("expected overflow error")
	}
	if got := FormatEthertype(0x8100); got != "0x8100" {
		t.Errorf("FormatEthertype = %q", got)
	}
}
