package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/config"
	"grimm.is/l2bridge/internal/dhcpident"
	"grimm.is/l2bridge/internal/forward"
	"grimm.is/l2bridge/internal/frame"
)

// ClassifyOptions describes a test frame. Either Frame (hex bytes) or the
// header fields are used.
type ClassifyOptions struct {
	// Ingress is the AvailableInterface key the frame arrives on.
	Ingress int
	Frame   string

	Src       string
	Dst       string
	Ethertype string
	// VLAN is the 802.1Q VLAN ID; negative means untagged and 0 priority tagged.
	VLAN int
	PCP  int

	// Identity learned for the source MAC before classifying.
	VendorClass string
	ClientID    string
	UserClass   string
}

// DefaultClassifyOptions returns an untagged IPv4 broadcast.
func DefaultClassifyOptions() ClassifyOptions {
	return ClassifyOptions{
		Src:       "02:00:00:00:00:01",
		Dst:       "ff:ff:ff:ff:ff:ff",
		Ethertype: "0x0800",
		VLAN:      -1,
	}
}

type classification struct {
	Deliveries []forward.Delivery
	Reason     bridging.DropReason
}

// RunClassify runs a test frame through the tables of configFile and
// prints where it would be delivered.
func RunClassify(configFile string, opts ClassifyOptions) error {
	_, tables, err := loadTables(configFile)
	if err != nil {
		return err
	}
	res, err := classify(tables, opts)
	if err != nil {
		return err
	}

	if res.Reason != bridging.ReasonNone {
		Printer.Printf("Frame dropped: %s\n", res.Reason)
		return nil
	}
	if len(res.Deliveries) == 0 {
		Printer.Println("Frame admitted but no other bridge members to deliver to.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	Printer.Fprintln(w, "BRIDGE\tFILTER\tINTERFACE\tDEVICE\tMARKING\tTAG\tVLAN\tPCP")
	for _, d := range res.Deliveries {
		Printer.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t%s\t%d\t%d\n",
			d.Bridge, d.Filter, d.Interface, d.Device, markingString(d.Marking),
			d.Egress.Tag, d.Egress.VLANID, d.Egress.Priority)
	}
	w.Flush()

	if opts.Frame != "" {
		Printer.Println()
		for _, d := range res.Deliveries {
			Printer.Printf("%s: %s\n", d.Device, hex.EncodeToString(d.Frame))
		}
	}
	return nil
}

// classify evaluates opts against tables. A raw frame goes through the full
// forwarding pipeline, so a DHCP request in it is learned first.
func classify(tables *bridging.Tables, opts ClassifyOptions) (classification, error) {
	cache := dhcpident.NewCache(dhcpident.Options{Logger: quietLogger()})

	if opts.Frame != "" {
		raw, err := decodeHex(opts.Frame)
		if err != nil {
			return classification{}, err
		}
		if err := learnSource(cache, opts, raw); err != nil {
			return classification{}, err
		}
		p := forward.New(forward.Options{Tables: tables, Identities: cache, Logger: quietLogger()})
		deliveries, err := p.Process(opts.Ingress, raw)
		var dropErr *forward.DropError
		if errors.As(err, &dropErr) {
			return classification{Reason: dropErr.Reason}, nil
		}
		if err != nil {
			return classification{}, err
		}
		return classification{Deliveries: deliveries}, nil
	}

	fr, err := headerFrame(opts)
	if err != nil {
		return classification{}, err
	}
	if err := learnSource(cache, opts, nil); err != nil {
		return classification{}, err
	}
	deliveries, reason := forward.Route(tables.Snapshot(), fr, cache)
	return classification{Deliveries: deliveries, Reason: reason}, nil
}

// headerFrame builds the frame described by the header options.
func headerFrame(opts ClassifyOptions) (bridging.Frame, error) {
	fr := bridging.Frame{Ingress: opts.Ingress}
	var err error
	if fr.SrcMAC, err = bridging.ParseMAC(opts.Src); err != nil {
		return fr, fmt.Errorf("invalid source MAC: %w", err)
	}
	if fr.DstMAC, err = bridging.ParseMAC(opts.Dst); err != nil {
		return fr, fmt.Errorf("invalid destination MAC: %w", err)
	}
	if fr.EtherType, err = config.ParseEthertype(opts.Ethertype); err != nil {
		return fr, fmt.Errorf("invalid ethertype: %w", err)
	}
	if opts.PCP < 0 || opts.PCP > 7 {
		return fr, fmt.Errorf("invalid priority %d", opts.PCP)
	}

	switch {
	case opts.VLAN < 0:
		fr.Tag = bridging.Untagged
	case opts.VLAN == 0:
		fr.Tag = bridging.PriorityTagged
		fr.Priority = uint8(opts.PCP)
	case opts.VLAN <= 4094:
		fr.Tag = bridging.VLANTagged
		fr.VLANID = uint16(opts.VLAN)
		fr.Priority = uint8(opts.PCP)
	default:
		return fr, fmt.Errorf("invalid VLAN ID %d", opts.VLAN)
	}
	return fr, nil
}

// learnSource records the identity options for the frame's source MAC.
func learnSource(cache *dhcpident.Cache, opts ClassifyOptions, raw []byte) error {
	if opts.VendorClass == "" && opts.ClientID == "" && opts.UserClass == "" {
		return nil
	}
	var src bridging.MAC
	if raw != nil {
		fr, err := frame.Decode(raw, opts.Ingress)
		if err != nil {
			return err
		}
		src = fr.SrcMAC
	} else {
		var err error
		if src, err = bridging.ParseMAC(opts.Src); err != nil {
			return fmt.Errorf("invalid source MAC: %w", err)
		}
	}
	cache.Learn(dhcpident.Record{
		MAC:         src,
		VendorClass: opts.VendorClass,
		ClientID:    opts.ClientID,
		UserClass:   opts.UserClass,
	})
	return nil
}

// decodeHex accepts hex with optional whitespace, ':' or '-' separators.
func decodeHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', ':', '-':
			return -1
		}
		return r
	}, s)
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid frame hex: %w", err)
	}
	return raw, nil
}

func markingString(key int) string {
	if key == 0 {
		return "-"
	}
	return fmt.Sprint(key)
}
