// Package dhcpident learns device identities from DHCP client traffic.
//
// DHCP requests carry a vendor class (option 60), a client identifier
// (option 61) and user classes (option 77). The Cache keeps the latest
// values per client hardware address and serves them to the bridging
// classifier, which matches filters on the identity of a frame's source or
// destination device.
package dhcpident

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/insomniacslk/dhcp/dhcpv4"

	"grimm.is/l2bridge/internal/bridging"
)

// ErrNotDHCP is returned for frames that are not DHCPv4 client requests.
var ErrNotDHCP = errors.New("not a DHCP request")

// Record is the identity learned for one client.
type Record struct {
	MAC         bridging.MAC `json:"mac"`
	Interface   string       `json:"interface,omitempty"`
	Hostname    string       `json:"hostname,omitempty"`      // Option 12
	Fingerprint string       `json:"fingerprint,omitempty"`   // Option 55 (Parameter Request List)
	VendorClass string       `json:"vendor_class,omitempty"`  // Option 60
	ClientID    string       `json:"client_id,omitempty"`     // Option 61, hex encoded
	UserClass   string       `json:"user_class,omitempty"`    // Option 77
	Vendor      string       `json:"vendor,omitempty"`        // From the MAC prefix
	LearnedAt   time.Time    `json:"learned_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Identity returns the fields the classifier matches on.
func (r Record) Identity() bridging.Identity {
	return bridging.Identity{
		VendorClassID: r.VendorClass,
		ClientID:      r.ClientID,
		UserClassID:   r.UserClass,
	}
}

// OS returns a best-effort operating system guess from the fingerprint.
func (r Record) OS() string {
	return InferDeviceOS(r.Fingerprint)
}

func (r Record) sameIdentity(o Record) bool {
	return r.Interface == o.Interface &&
		r.Hostname == o.Hostname &&
		r.Fingerprint == o.Fingerprint &&
		r.VendorClass == o.VendorClass &&
		r.ClientID == o.ClientID &&
		r.UserClass == o.UserClass
}

// ExtractRecord extracts the identity options of a DHCP packet.
func ExtractRecord(pkt *dhcpv4.DHCPv4, iface string) (Record, error) {
	if len(pkt.ClientHWAddr) != 6 {
		return Record{}, fmt.Errorf("%w: client hardware address %v", ErrNotDHCP, pkt.ClientHWAddr)
	}
	rec := Record{Interface: iface}
	copy(rec.MAC[:], pkt.ClientHWAddr)

	if opt := pkt.Options.Get(dhcpv4.OptionHostName); opt != nil {
		rec.Hostname = string(opt)
	}
	if opt := pkt.Options.Get(dhcpv4.OptionParameterRequestList); opt != nil {
		codes := make([]string, len(opt))
		for i, code := range opt {
			codes[i] = strconv.Itoa(int(code))
		}
		rec.Fingerprint = strings.Join(codes, ",")
	}
	if opt := pkt.Options.Get(dhcpv4.OptionClassIdentifier); opt != nil {
		rec.VendorClass = string(opt)
	}
	if opt := pkt.Options.Get(dhcpv4.OptionClientIdentifier); opt != nil {
		rec.ClientID = hex.EncodeToString(opt)
	}
	if opt := pkt.Options.Get(dhcpv4.OptionUserClassInformation); opt != nil {
		rec.UserClass = decodeUserClass(opt)
	}
	return rec, nil
}

// decodeUserClass decodes option 77. RFC 3004 data is a sequence of
// length-prefixed classes, joined here with commas; clients that send a
// bare string get it back unchanged.
func decodeUserClass(data []byte) string {
	var classes []string
	for rest := data; len(rest) > 0; {
		n := int(rest[0])
		if n == 0 || n+1 > len(rest) {
			return string(data)
		}
		classes = append(classes, string(rest[1:n+1]))
		rest = rest[n+1:]
	}
	return strings.Join(classes, ",")
}

// ParseFrame extracts a DHCPv4 client request from an Ethernet frame,
// optionally carrying an 802.1Q tag.
func ParseFrame(raw []byte) (*dhcpv4.DHCPv4, error) {
	var (
		eth layers.Ethernet
		tag layers.Dot1Q
		ip4 layers.IPv4
		udp layers.UDP
	)
	parser := gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &eth, &tag, &ip4, &udp)
	parser.IgnoreUnsupported = true
	decoded := make([]gopacket.LayerType, 0, 4)
	if err := parser.DecodeLayers(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDHCP, err)
	}

	hasUDP := false
	for _, lt := range decoded {
		if lt == layers.LayerTypeUDP {
			hasUDP = true
		}
	}
	if !hasUDP || udp.DstPort != 67 || len(udp.Payload) == 0 {
		return nil, ErrNotDHCP
	}

	pkt, err := dhcpv4.FromBytes(udp.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDHCP, err)
	}
	if pkt.OpCode != dhcpv4.OpcodeBootRequest {
		return nil, ErrNotDHCP
	}
	return pkt, nil
}

// Common DHCP fingerprints, from https://fingerbank.org
var knownFingerprints = map[string]string{
	"1,3,6,15,31,33,43,44,46,47,119,121,249,252": "Windows 10/11",
	"1,121,3,6,15,119,252":                       "macOS",
	"1,3,6,12,15,28,42":                          "Linux",
	"1,3,28,6":                                   "Android",
	"1,3,6,15,119,252":                           "iOS",
}

// InferDeviceOS attempts to infer the device OS from its DHCP fingerprint.
func InferDeviceOS(fingerprint string) string {
	return knownFingerprints[fingerprint]
}
