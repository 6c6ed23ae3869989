package validation

import (
	"strings"
	"testing"
)

func TestValidateInterfaceName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Happy paths
		{"simple", "eth0", false},
		{"with dash", "lan-1", false},
		{"with underscore", "wan_0", false},
		{"with dot (vlan)", "eth0.100", false},
		{"max length", "eth0123456789ab", false}, // 15 chars

		// Sad paths
		{"empty", "", true},
		{"too long", "eth01234567890123", true}, // 17 chars
		{"dot", ".", true},
		{"dot dot", "..", true},
		{"slash", "br/0", true},
		{"space", "eth 0", true},
		{"semicolon injection", "eth0;rm", true},
		{"pipe injection", "eth0|cat", true},
		{"dollar sign", "eth0$USER", true},
		{"backtick", "eth0`whoami`", true},
		{"newline", "eth0\n", true},
		{"non ascii", "éth0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInterfaceName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInterfaceName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLength(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		max     int
		wantErr bool
	}{
		{"empty", "", 64, false},
		{"at limit", strings.Repeat("a", 64), 64, false},
		{"over limit", strings.Repeat("a", 65), 64, true},
		{"multibyte counts runes", strings.Repeat("é", 64), 64, false},
		{"invalid utf8", "\xff", 64, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLength(tt.input, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLength(%q, %d) error = %v, wantErr %v", tt.input, tt.max, err, tt.wantErr)
			}
		})
	}
}
