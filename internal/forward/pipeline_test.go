package forward

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/dhcpident"
	"grimm.is/l2bridge/internal/frame"
	"grimm.is/l2bridge/internal/metrics"
)

var (
	hostMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	bcast   = layers.EthernetBroadcast
)

func iface(key int, typ bridging.InterfaceType, device string) bridging.AvailableInterface {
	i := bridging.NewAvailableInterface(key, typ)
	i.Device = device
	return i
}

// newTables returns LAN interfaces 1 and 2, WAN interface 3, an enabled
// "lan" bridge 1 fed by every LAN interface and an enabled "printers"
// bridge 2.
func newTables(t *testing.T) *bridging.Tables {
	t.Helper()
	tables := bridging.New(bridging.Options{})
	require.NoError(t, tables.Replace(bridging.Document{
		Interfaces: []bridging.AvailableInterface{
			iface(1, bridging.LANInterface, "lan1"),
			iface(2, bridging.LANInterface, "lan2"),
			iface(3, bridging.WANInterface, "wan0"),
		},
		Bridges: []bridging.Bridge{
			bridging.NewBridgeBuilder(1).Name("lan").Enable().Build(),
			bridging.NewBridgeBuilder(2).Name("printers").Enable().Build(),
		},
		Filters: []bridging.Filter{
			bridging.NewFilterBuilder(1).Enable().Bridge(1).Interface(bridging.LANInterfaces).Build(),
		},
	}))
	return tables
}

func ethernet(t *testing.T, lyrs ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, lyrs...))
	return buf.Bytes()
}

func ipv4Frame(t *testing.T) []byte {
	return ethernet(t,
		&layers.Ethernet{SrcMAC: hostMAC, DstMAC: bcast, EthernetType: layers.EthernetTypeIPv4},
		gopacket.Payload(bytes.Repeat([]byte{0xab}, 50)),
	)
}

func dhcpFrame(t *testing.T, vendorClass string) []byte {
	t.Helper()
	pkt, err := dhcpv4.NewDiscovery(hostMAC, dhcpv4.WithOption(dhcpv4.OptClassIdentifier(vendorClass)))
	require.NoError(t, err)

	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4zero,
		DstIP:    net.IPv4bcast,
	}
	udp := &layers.UDP{SrcPort: 68, DstPort: 67}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return ethernet(t,
		&layers.Ethernet{SrcMAC: hostMAC, DstMAC: bcast, EthernetType: layers.EthernetTypeIPv4},
		ip, udp, gopacket.Payload(pkt.ToBytes()),
	)
}

func TestProcess_FloodsToOtherMembers(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	p := New(Options{Tables: newTables(t), Metrics: reg})

	raw := ipv4Frame(t)
	out, err := p.Process(1, raw)
	require.NoError(t, err)
	require.Len(t, out, 1)

	d := out[0]
	assert.Equal(t, 1, d.Bridge)
	assert.Equal(t, 2, d.Interface)
	assert.Equal(t, "lan2", d.Device)
	assert.Equal(t, 1, d.Filter)
	assert.Zero(t, d.Marking)
	assert.Equal(t, raw, d.Frame)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.FramesClassified.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.FramesDelivered.WithLabelValues("1", "2")))
}

func TestProcess_AppliesMarking(t *testing.T) {
	tables := newTables(t)
	require.NoError(t, tables.Update(func(tx *bridging.Tx) error {
		return tx.AddMarking(bridging.NewMarkingBuilder(4).Enable().Bridge(1).
			Interface(bridging.InterfaceKey(2)).VLANMark(100, true).PriorityMark(5, true).Build())
	}))
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	p := New(Options{Tables: tables, Metrics: reg})

	out, err := p.Process(1, ipv4Frame(t))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 4, out[0].Marking)
	assert.Equal(t, bridging.Egress{Tag: bridging.VLANTagged, VLANID: 100, Priority: 5}, out[0].Egress)

	fr, err := frame.Decode(out[0].Frame, 2)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), fr.VLANID)
	assert.Equal(t, uint8(5), fr.Priority)
	assert.Equal(t, uint16(0x0800), fr.EtherType)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.MarkingsApplied.WithLabelValues("4")))
}

func TestProcess_Drops(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	p := New(Options{Tables: newTables(t), Metrics: reg})

	_, err := p.Process(3, ipv4Frame(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDropped))
	var drop *DropError
	require.True(t, errors.As(err, &drop))
	assert.Equal(t, bridging.ReasonNoMatch, drop.Reason)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.FramesDropped.WithLabelValues("no-match")))

	_, err = p.Process(1, []byte{1, 2, 3})
	assert.ErrorIs(t, err, frame.ErrTruncated)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.FramesDropped.WithLabelValues("malformed")))
}

func TestProcess_LearnsIdentityBeforeClassifying(t *testing.T) {
	tables := newTables(t)
	require.NoError(t, tables.Update(func(tx *bridging.Tx) error {
		return tx.AddFilter(bridging.NewFilterBuilder(2).Enable().Bridge(2).Exclusive(1).
			Interface(bridging.LANInterfaces).
			SourceVendorClassID("printer", bridging.MatchPrefix).Build())
	}))
	cache := dhcpident.NewCache(dhcpident.Options{})
	p := New(Options{Tables: tables, Identities: cache})

	out, err := p.Process(1, dhcpFrame(t, "printer-xyz"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].Bridge)
	assert.Equal(t, 2, out[0].Filter)

	rec, ok := cache.Get(bridging.MAC{0x00, 0x11, 0x22, 0x33, 0x44, 0x55})
	require.True(t, ok)
	assert.Equal(t, "lan1", rec.Interface)

	// Later non-DHCP traffic from the same host follows the learned identity.
	out, err = p.Process(1, ipv4Frame(t))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].Bridge)
}

func TestRoute_FanOut(t *testing.T) {
	tables := newTables(t)
	require.NoError(t, tables.Update(func(tx *bridging.Tx) error {
		return tx.AddFilter(bridging.NewFilterBuilder(3).Enable().Bridge(2).Interface(bridging.AllInterfaces).Build())
	}))
	snap := tables.Snapshot()

	fr := bridging.Frame{Ingress: 2, EtherType: 0x0800}
	out, reason := Route(snap, fr, nil)
	require.Equal(t, bridging.ReasonNone, reason)

	type hop struct{ bridge, iface int }
	var hops []hop
	for _, d := range out {
		hops = append(hops, hop{d.Bridge, d.Interface})
		assert.Nil(t, d.Frame)
	}
	assert.Equal(t, []hop{{1, 1}, {2, 1}, {2, 3}}, hops)
}

func TestProcess_Concurrent(t *testing.T) {
	p := New(Options{Tables: newTables(t)})
	raw := ipv4Frame(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				out, err := p.Process(1, raw)
				if !assert.NoError(t, err) || !assert.Len(t, out, 1) {
					return
				}
				assert.Equal(t, raw, out[0].Frame)
			}
		}()
	}
	wg.Wait()
}
