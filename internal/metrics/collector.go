package metrics

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"grimm.is/l2bridge/internal/clock"
	"grimm.is/l2bridge/internal/logging"
)

// TableStats is a point-in-time summary of the bridging tables.
type TableStats struct {
	Bridges    int
	Filters    int
	Markings   int
	Interfaces int
	Identities int
	Version    uint64
	// Devices maps AvailableInterface keys to OS link names.
	Devices map[int]string
}

// StatsSource supplies table statistics to the collector.
type StatsSource func() TableStats

// InterfaceStats holds traffic statistics for a bridged interface.
type InterfaceStats struct {
	Key       int    `json:"key"`
	Device    string `json:"device"`
	RxBytes   uint64 `json:"rx_bytes"`
	TxBytes   uint64 `json:"tx_bytes"`
	RxPackets uint64 `json:"rx_packets"`
	TxPackets uint64 `json:"tx_packets"`
	LinkUp    bool   `json:"link_up"`
}

// Collector periodically publishes table sizes and interface counters.
type Collector struct {
	registry *Registry
	logger   *logging.Logger
	interval time.Duration
	source   StatsSource
	sysRoot  string
	started  time.Time
	stopCh   chan struct{}
	stopOnce sync.Once

	mu             sync.RWMutex
	lastUpdate     time.Time
	interfaceStats map[int]*InterfaceStats

	// Reload counters for testing
	reloadSuccess int64
	reloadFailure int64
}

// NewCollector creates a new metrics collector.
func NewCollector(registry *Registry, logger *logging.Logger, interval time.Duration, source StatsSource) *Collector {
	if registry == nil {
		registry = Get()
	}
	if logger == nil {
		logger = logging.WithComponent("metrics")
	}
	return &Collector{
		registry:       registry,
		logger:         logger,
		interval:       interval,
		source:         source,
		sysRoot:        "/sys/class/net",
		started:        clock.Now(),
		stopCh:         make(chan struct{}),
		interfaceStats: make(map[int]*InterfaceStats),
	}
}

// Start begins the metrics collection loop. It blocks until Stop is called.
func (c *Collector) Start() {
	c.logger.Info("Starting metrics collector", "interval", c.interval.String())

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect()
	for {
		select {
		case <-ticker.C:
			c.Collect()
		case <-c.stopCh:
			c.logger.Info("Stopping metrics collector")
			return
		}
	}
}

// Stop stops the metrics collection loop.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Collect gathers all metrics once and updates the registry.
func (c *Collector) Collect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.Uptime.Set(clock.Now().Sub(c.started).Seconds())

	if c.source == nil {
		c.lastUpdate = clock.Now()
		return
	}

	stats := c.source()
	c.registry.TableEntries.WithLabelValues("bridge").Set(float64(stats.Bridges))
	c.registry.TableEntries.WithLabelValues("filter").Set(float64(stats.Filters))
	c.registry.TableEntries.WithLabelValues("marking").Set(float64(stats.Markings))
	c.registry.TableEntries.WithLabelValues("available_interface").Set(float64(stats.Interfaces))
	c.registry.IdentityCacheSize.Set(float64(stats.Identities))
	c.registry.TableVersion.Set(float64(stats.Version))

	c.collectInterfaceStats(stats.Devices)
	c.lastUpdate = clock.Now()
}

// collectInterfaceStats reads link counters from sysfs for every bound device.
func (c *Collector) collectInterfaceStats(devices map[int]string) {
	for key, dev := range devices {
		if dev == "" {
			continue
		}
		base := filepath.Join(c.sysRoot, dev)
		if _, err := os.Stat(base); err != nil {
			delete(c.interfaceStats, key)
			continue
		}

		stats := &InterfaceStats{
			Key:       key,
			Device:    dev,
			RxBytes:   readSysUint64(filepath.Join(base, "statistics", "rx_bytes")),
			TxBytes:   readSysUint64(filepath.Join(base, "statistics", "tx_bytes")),
			RxPackets: readSysUint64(filepath.Join(base, "statistics", "rx_packets")),
			TxPackets: readSysUint64(filepath.Join(base, "statistics", "tx_packets")),
			LinkUp:    readSysString(filepath.Join(base, "operstate")) == "up",
		}
		c.interfaceStats[key] = stats

		label := strconv.Itoa(key)
		c.registry.InterfaceRxBytes.WithLabelValues(label, dev).Set(float64(stats.RxBytes))
		c.registry.InterfaceTxBytes.WithLabelValues(label, dev).Set(float64(stats.TxBytes))
		c.registry.InterfaceRxPackets.WithLabelValues(label, dev).Set(float64(stats.RxPackets))
		c.registry.InterfaceTxPackets.WithLabelValues(label, dev).Set(float64(stats.TxPackets))
		up := 0.0
		if stats.LinkUp {
			up = 1
		}
		c.registry.InterfaceUp.WithLabelValues(label, dev).Set(up)
	}
}

// IncrementConfigReload increments the config reload counter.
func (c *Collector) IncrementConfigReload(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := "success"
	if success {
		c.reloadSuccess++
	} else {
		status = "failure"
		c.reloadFailure++
	}
	c.registry.ConfigReload.WithLabelValues(status).Inc()
}

// GetReloadCounts returns the internal reload success/failure counts (for testing).
func (c *Collector) GetReloadCounts() (success, failure int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reloadSuccess, c.reloadFailure
}

// GetInterfaceStats returns a copy of the last collected interface counters.
func (c *Collector) GetInterfaceStats() map[int]InterfaceStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[int]InterfaceStats, len(c.interfaceStats))
	for k, v := range c.interfaceStats {
		out[k] = *v
	}
	return out
}

// GetLastUpdate returns the time of the last collection.
func (c *Collector) GetLastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

func readSysUint64(path string) uint64 {
	v, err := strconv.ParseUint(readSysString(path), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func readSysString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
