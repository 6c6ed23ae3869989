// Package forward runs frames through the bridging tables: decode,
// identity learning, classification, flooding to bridge members and
// egress marking.
package forward

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/dhcpident"
	"grimm.is/l2bridge/internal/frame"
	"grimm.is/l2bridge/internal/logging"
	"grimm.is/l2bridge/internal/metrics"
)

// ErrDropped is matched by every DropError.
var ErrDropped = errors.New("frame dropped")

// DropError reports a frame no bridge admitted.
type DropError struct {
	Reason bridging.DropReason
}

func (e *DropError) Error() string {
	return fmt.Sprintf("frame dropped: %s", e.Reason)
}

// Is reports whether target is ErrDropped.
func (e *DropError) Is(target error) bool {
	return target == ErrDropped
}

// Delivery is one copy of a frame leaving a bridge.
type Delivery struct {
	Bridge int
	// Interface is the egress AvailableInterface key.
	Interface int
	// Device is the egress OS link name, if known.
	Device string
	// Filter is the key of the filter entry that admitted the frame.
	Filter int
	// Marking is the key of the applied marking entry, or 0.
	Marking int
	Egress  bridging.Egress
	// Frame is the encoded frame; nil for routes computed without payload.
	Frame []byte
}

// Learner learns identities from frames seen on an interface.
type Learner interface {
	bridging.IdentitySource
	ObserveFrame(raw []byte, iface string) (dhcpident.Record, bool)
}

// Options configures a Pipeline.
type Options struct {
	Tables *bridging.Tables
	// Identities is optional.
	Identities Learner
	Metrics    *metrics.Registry
	Logger     *logging.Logger
}

// Pipeline processes frames against the current bridging snapshot.
// It is safe for concurrent use.
type Pipeline struct {
	tables  *bridging.Tables
	ids     Learner
	metrics *metrics.Registry
	logger  *logging.Logger
	codecs  sync.Pool
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.WithComponent("forward")
	}
	return &Pipeline{
		tables:  opts.Tables,
		ids:     opts.Identities,
		metrics: opts.Metrics,
		logger:  logger,
		codecs:  sync.Pool{New: func() any { return frame.NewCodec() }},
	}
}

// Process handles raw as received on the ingress interface and returns the
// frame copies to transmit. A frame no bridge admits yields a *DropError.
func (p *Pipeline) Process(ingress int, raw []byte) ([]Delivery, error) {
	codec := p.codecs.Get().(*frame.Codec)
	defer p.codecs.Put(codec)

	fr, err := codec.Decode(raw, ingress)
	if err != nil {
		p.drop("malformed")
		return nil, err
	}

	snap := p.tables.Snapshot()

	var ids bridging.IdentitySource = bridging.NoIdentities
	if p.ids != nil {
		ids = p.ids
		p.ids.ObserveFrame(raw, deviceName(snap, ingress))
	}

	deliveries, reason := Route(snap, fr, ids)
	if reason != bridging.ReasonNone {
		p.drop(string(reason))
		return nil, &DropError{Reason: reason}
	}

	for i := range deliveries {
		d := &deliveries[i]
		if d.Frame, err = codec.Encode(raw, d.Egress); err != nil {
			return nil, err
		}
		if p.metrics != nil {
			p.metrics.RecordDelivery(d.Bridge, d.Interface)
			if d.Marking != 0 {
				p.metrics.RecordMarking(d.Marking)
			}
		}
	}
	if p.metrics != nil {
		seen := -1
		for _, d := range deliveries {
			if d.Bridge != seen {
				p.metrics.RecordClassified(d.Bridge)
				seen = d.Bridge
			}
		}
	}
	return deliveries, nil
}

func (p *Pipeline) drop(reason string) {
	if p.metrics != nil {
		p.metrics.RecordDrop(reason)
	}
	p.logger.Debug("Dropped frame", "reason", reason)
}

// Route classifies fr against snap and expands each admission into one
// delivery per bridge member other than the ingress interface, with egress
// marking applied. Deliveries are grouped by bridge in admission order.
//
// An admitted frame with no other members yields no deliveries and no
// drop reason.
func Route(snap *bridging.Snapshot, fr bridging.Frame, ids bridging.IdentitySource) ([]Delivery, bridging.DropReason) {
	admissions, reason := snap.Classify(fr, ids, nil)
	if reason != bridging.ReasonNone {
		return nil, reason
	}

	var out []Delivery
	for _, a := range admissions {
		for _, iface := range snap.Members(a.Bridge) {
			if iface == fr.Ingress {
				continue
			}
			mark := snap.Mark(a.Bridge, iface, a.Egress())
			d := Delivery{
				Bridge:    a.Bridge,
				Interface: iface,
				Device:    deviceName(snap, iface),
				Filter:    a.Filter,
				Egress:    mark.Egress,
			}
			if mark.Matched {
				d.Marking = mark.Marking
			}
			out = append(out, d)
		}
	}
	return out, bridging.ReasonNone
}

func deviceName(snap *bridging.Snapshot, key int) string {
	if i, ok := snap.Interface(key); ok && i.Device != "" {
		return i.Device
	}
	return strconv.Itoa(key)
}
