package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all bridging engine metrics.
type Registry struct {
	// Data plane
	FramesClassified *prometheus.CounterVec
	FramesDropped    *prometheus.CounterVec
	FramesDelivered  *prometheus.CounterVec
	MarkingsApplied  *prometheus.CounterVec

	// Management plane
	TableMutations *prometheus.CounterVec
	TableEntries   *prometheus.GaugeVec
	TableVersion   prometheus.Gauge

	// DHCP snooping
	IdentitiesLearned prometheus.Counter
	IdentityCacheSize prometheus.Gauge

	// Interfaces
	InterfaceRxBytes   *prometheus.GaugeVec
	InterfaceTxBytes   *prometheus.GaugeVec
	InterfaceRxPackets *prometheus.GaugeVec
	InterfaceTxPackets *prometheus.GaugeVec
	InterfaceUp        *prometheus.GaugeVec

	// System
	Uptime       prometheus.Gauge
	ConfigReload *prometheus.CounterVec
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry(prometheus.DefaultRegisterer)
	})
	return registry
}

// NewRegistry creates a registry whose collectors are registered with reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid global state.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg)
}

func newRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{}
	factory := promauto.With(reg)

	r.FramesClassified = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "l2bridge_frames_classified_total",
		Help: "Frames admitted to a bridge by the filter table",
	}, []string{"bridge"})

	r.FramesDropped = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "l2bridge_frames_dropped_total",
		Help: "Frames dropped during classification or forwarding",
	}, []string{"reason"})

	r.FramesDelivered = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "l2bridge_frames_delivered_total",
		Help: "Frame copies handed to an egress interface",
	}, []string{"bridge", "interface"})

	r.MarkingsApplied = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "l2bridge_markings_applied_total",
		Help: "Egress frames rewritten by a marking entry",
	}, []string{"marking"})

	r.TableMutations = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "l2bridge_table_mutations_total",
		Help: "Committed management-plane table changes",
	}, []string{"table", "op"})

	r.TableEntries = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "l2bridge_table_entries",
		Help: "Number of entries in each bridging table",
	}, []string{"table"})

	r.TableVersion = factory.NewGauge(prometheus.GaugeOpts{
		Name: "l2bridge_table_version",
		Help: "Version of the currently published table snapshot",
	})

	r.IdentitiesLearned = factory.NewCounter(prometheus.CounterOpts{
		Name: "l2bridge_dhcp_identities_learned_total",
		Help: "DHCP client identities learned by snooping",
	})

	r.IdentityCacheSize = factory.NewGauge(prometheus.GaugeOpts{
		Name: "l2bridge_dhcp_identity_cache_entries",
		Help: "Current number of cached DHCP client identities",
	})

	r.InterfaceRxBytes = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "l2bridge_interface_rx_bytes",
		Help: "Received bytes per interface",
	}, []string{"interface", "device"})

	r.InterfaceTxBytes = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "l2bridge_interface_tx_bytes",
		Help: "Transmitted bytes per interface",
	}, []string{"interface", "device"})

	r.InterfaceRxPackets = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "l2bridge_interface_rx_packets",
		Help: "Received packets per interface",
	}, []string{"interface", "device"})

	r.InterfaceTxPackets = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "l2bridge_interface_tx_packets",
		Help: "Transmitted packets per interface",
	}, []string{"interface", "device"})

	r.InterfaceUp = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "l2bridge_interface_up",
		Help: "Whether the interface's link is operationally up",
	}, []string{"interface", "device"})

	r.Uptime = factory.NewGauge(prometheus.GaugeOpts{
		Name: "l2bridge_uptime_seconds",
		Help: "Daemon uptime in seconds",
	})

	r.ConfigReload = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "l2bridge_config_reloads_total",
		Help: "Total configuration reloads",
	}, []string{"status"})

	return r
}

// RecordClassified records a frame admitted to a bridge.
func (r *Registry) RecordClassified(bridge int) {
	r.FramesClassified.WithLabelValues(keyString(bridge)).Inc()
}

// RecordDrop records a dropped frame.
func (r *Registry) RecordDrop(reason string) {
	r.FramesDropped.WithLabelValues(reason).Inc()
}

// RecordDelivery records a frame copy sent out of an interface.
func (r *Registry) RecordDelivery(bridge, iface int) {
	r.FramesDelivered.WithLabelValues(keyString(bridge), keyString(iface)).Inc()
}

// RecordMarking records an egress rewrite by a marking entry.
func (r *Registry) RecordMarking(marking int) {
	r.MarkingsApplied.WithLabelValues(keyString(marking)).Inc()
}

// RecordMutation records a committed table change.
func (r *Registry) RecordMutation(table, op string) {
	r.TableMutations.WithLabelValues(table, op).Inc()
}

func keyString(key int) string {
	return strconv.Itoa(key)
}
