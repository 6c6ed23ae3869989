// Package frame converts raw Ethernet frames to the header view used by
// the bridging classifier and rewrites their 802.1Q tag on egress.
//
// Only the outermost tag is interpreted. A stacked inner tag stays part of
// the payload.
package frame

import (
	"errors"
	"fmt"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"grimm.is/l2bridge/internal/bridging"
)

// ErrTruncated is returned for frames too short to hold their headers.
var ErrTruncated = errors.New("truncated frame")

// Codec decodes and re-encodes frames. It reuses its layer buffers, so a
// Codec must not be shared between goroutines.
type Codec struct {
	eth layers.Ethernet
	tag layers.Dot1Q
	buf gopacket.SerializeBuffer

	tagged  bool
	inner   uint16
	payload []byte
}

// NewCodec returns a Codec.
func NewCodec() *Codec {
	return &Codec{buf: gopacket.NewSerializeBuffer()}
}

func (c *Codec) parse(raw []byte) error {
	if err := c.eth.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	c.tagged = false
	c.payload = c.eth.Payload
	switch c.eth.EthernetType {
	case layers.EthernetTypeLLC:
		// 802.3 frames carry a length where the Ethertype would be.
		c.inner = c.eth.Length
	case layers.EthernetTypeDot1Q, layers.EthernetTypeQinQ:
		if err := c.tag.DecodeFromBytes(c.eth.Payload, gopacket.NilDecodeFeedback); err != nil {
			return fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		c.tagged = true
		c.inner = uint16(c.tag.Type)
		c.payload = c.tag.Payload
	default:
		c.inner = uint16(c.eth.EthernetType)
	}
	return nil
}

// Decode returns the classifier view of raw as received on ingress. The
// Ethertype is the one following the outermost tag.
func (c *Codec) Decode(raw []byte, ingress int) (bridging.Frame, error) {
	if err := c.parse(raw); err != nil {
		return bridging.Frame{}, err
	}
	fr := bridging.Frame{Ingress: ingress, EtherType: c.inner}
	copy(fr.DstMAC[:], c.eth.DstMAC)
	copy(fr.SrcMAC[:], c.eth.SrcMAC)
	if c.tagged {
		fr.Priority = c.tag.Priority
		fr.VLANID = c.tag.VLANIdentifier
		fr.Tag = bridging.VLANTagged
		if fr.VLANID == 0 {
			fr.Tag = bridging.PriorityTagged
		}
	}
	return fr, nil
}

// Encode returns a copy of raw whose outermost tag reflects eg: removed for
// Untagged, VLAN ID 0 for PriorityTagged, otherwise eg.VLANID. Frames below
// the Ethernet minimum are zero padded.
func (c *Codec) Encode(raw []byte, eg bridging.Egress) ([]byte, error) {
	if err := c.parse(raw); err != nil {
		return nil, err
	}
	eth := layers.Ethernet{
		SrcMAC:       c.eth.SrcMAC,
		DstMAC:       c.eth.DstMAC,
		EthernetType: layers.EthernetTypeDot1Q,
	}
	payload := gopacket.Payload(c.payload)

	var err error
	if eg.Tag == bridging.Untagged {
		if c.inner < 0x0600 {
			eth.EthernetType = layers.EthernetTypeLLC
			eth.Length = c.inner
		} else {
			eth.EthernetType = layers.EthernetType(c.inner)
		}
		err = gopacket.SerializeLayers(c.buf, gopacket.SerializeOptions{}, &eth, payload)
	} else {
		tag := layers.Dot1Q{
			Priority:       eg.Priority,
			VLANIdentifier: eg.VLANID,
			Type:           layers.EthernetType(c.inner),
		}
		if c.tagged {
			tag.DropEligible = c.tag.DropEligible
		}
		if eg.Tag == bridging.PriorityTagged {
			tag.VLANIdentifier = 0
		}
		err = gopacket.SerializeLayers(c.buf, gopacket.SerializeOptions{}, &eth, &tag, payload)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return append([]byte(nil), c.buf.Bytes()...), nil
}

// Decode is a convenience wrapper around a fresh Codec.
func Decode(raw []byte, ingress int) (bridging.Frame, error) {
	return NewCodec().Decode(raw, ingress)
}

// Encode is a convenience wrapper around a fresh Codec.
func Encode(raw []byte, eg bridging.Egress) ([]byte, error) {
	return NewCodec().Encode(raw, eg)
}
