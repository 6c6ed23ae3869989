package dhcpident

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/clock"
	"grimm.is/l2bridge/internal/events"
	"grimm.is/l2bridge/internal/logging"
	"grimm.is/l2bridge/internal/metrics"
	"grimm.is/l2bridge/internal/state"
)

// StateBucket is the state store bucket holding learned identities.
const StateBucket = "dhcp_identities"

// DefaultTTL is how long an identity is kept after its last request.
const DefaultTTL = 24 * time.Hour

// Options configures a Cache.
type Options struct {
	TTL     time.Duration
	Clock   clock.Clock
	Store   state.Store // Optional
	Events  *events.Hub
	Metrics *metrics.Registry
	Logger  *logging.Logger
	Vendors *VendorDB // Optional
}

// Cache holds the DHCP identities learned per client MAC address.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	records map[bridging.MAC]Record

	ttl     time.Duration
	clock   clock.Clock
	store   state.Store
	events  *events.Hub
	metrics *metrics.Registry
	logger  *logging.Logger
	vendors *VendorDB
}

// NewCache creates an empty cache.
func NewCache(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.WithComponent("dhcp-ident")
	}
	if opts.Store != nil {
		if err := state.EnsureBucket(opts.Store, StateBucket); err != nil {
			logger.Warn("Identity persistence disabled", "error", err)
			opts.Store = nil
		}
	}
	return &Cache{
		records: make(map[bridging.MAC]Record),
		ttl:     opts.TTL,
		clock:   clock.OrReal(opts.Clock),
		store:   opts.Store,
		events:  opts.Events,
		metrics: opts.Metrics,
		logger:  logger,
		vendors: opts.Vendors,
	}
}

// Lookup returns the unexpired identity learned for mac.
func (c *Cache) Lookup(mac bridging.MAC) (bridging.Identity, bool) {
	rec, ok := c.Get(mac)
	if !ok {
		return bridging.Identity{}, false
	}
	return rec.Identity(), true
}

// Get returns the unexpired record for mac.
func (c *Cache) Get(mac bridging.MAC) (Record, bool) {
	c.mu.RLock()
	rec, ok := c.records[mac]
	c.mu.RUnlock()
	if !ok || !c.clock.Now().Before(rec.ExpiresAt) {
		return Record{}, false
	}
	return rec, true
}

// Learn stores rec, refreshing its expiry. It reports whether the identity
// differs from what was known for the MAC.
func (c *Cache) Learn(rec Record) bool {
	now := c.clock.Now()
	rec.LearnedAt = now
	rec.ExpiresAt = now.Add(c.ttl)
	if rec.Vendor == "" {
		rec.Vendor = c.vendors.Lookup(rec.MAC)
	}

	c.mu.Lock()
	prev, known := c.records[rec.MAC]
	changed := !known || !now.Before(prev.ExpiresAt) || !prev.sameIdentity(rec)
	c.records[rec.MAC] = rec
	size := len(c.records)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SetJSONWithTTL(StateBucket, rec.MAC.String(), rec, c.ttl); err != nil {
			c.logger.Warn("Failed to persist identity", "mac", rec.MAC.String(), "error", err)
		}
	}
	if c.metrics != nil {
		c.metrics.IdentityCacheSize.Set(float64(size))
	}
	if !changed {
		return false
	}

	if c.metrics != nil {
		c.metrics.IdentitiesLearned.Inc()
	}
	c.events.EmitIdentity(events.IdentityData{
		MAC:           rec.MAC.String(),
		Interface:     rec.Interface,
		VendorClassID: rec.VendorClass,
		ClientID:      rec.ClientID,
		UserClassID:   rec.UserClass,
	})
	c.logger.Debug("Learned DHCP identity",
		"mac", rec.MAC.String(),
		"interface", rec.Interface,
		"vendor_class", rec.VendorClass,
		"client_id", rec.ClientID,
		"user_class", rec.UserClass,
		"vendor", rec.Vendor)
	return true
}

// ObserveFrame learns the identity carried by a DHCP request frame seen on
// iface. Frames that are not DHCP client requests are ignored.
func (c *Cache) ObserveFrame(raw []byte, iface string) (Record, bool) {
	pkt, err := ParseFrame(raw)
	if err != nil {
		return Record{}, false
	}
	rec, err := ExtractRecord(pkt, iface)
	if err != nil {
		return Record{}, false
	}
	c.Learn(rec)
	return rec, true
}

// Forget removes the record for mac.
func (c *Cache) Forget(mac bridging.MAC) {
	c.mu.Lock()
	delete(c.records, mac)
	size := len(c.records)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(StateBucket, mac.String()); err != nil && !errors.Is(err, state.ErrNotFound) {
			c.logger.Warn("Failed to delete identity", "mac", mac.String(), "error", err)
		}
	}
	if c.metrics != nil {
		c.metrics.IdentityCacheSize.Set(float64(size))
	}
}

// Prune drops expired records and returns how many were removed.
func (c *Cache) Prune() int {
	now := c.clock.Now()
	c.mu.Lock()
	removed := 0
	for mac, rec := range c.records {
		if !now.Before(rec.ExpiresAt) {
			delete(c.records, mac)
			removed++
		}
	}
	size := len(c.records)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.IdentityCacheSize.Set(float64(size))
	}
	return removed
}

// Len returns the number of records held, including expired ones not yet
// pruned.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Records returns the unexpired records ordered by MAC address.
func (c *Cache) Records() []Record {
	now := c.clock.Now()
	c.mu.RLock()
	out := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		if now.Before(rec.ExpiresAt) {
			out = append(out, rec)
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].MAC.String() < out[j].MAC.String()
	})
	return out
}

// Load restores unexpired records from the state store and returns how
// many were loaded.
func (c *Cache) Load() (int, error) {
	if c.store == nil {
		return 0, nil
	}
	entries, err := c.store.List(StateBucket)
	if err != nil {
		if errors.Is(err, state.ErrBucketMissing) {
			return 0, nil
		}
		return 0, err
	}

	now := c.clock.Now()
	loaded := 0
	c.mu.Lock()
	for key, data := range entries {
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			c.logger.Warn("Skipping unreadable identity", "key", key, "error", err)
			continue
		}
		if !now.Before(rec.ExpiresAt) {
			continue
		}
		c.records[rec.MAC] = rec
		loaded++
	}
	size := len(c.records)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.IdentityCacheSize.Set(float64(size))
	}
	return loaded, nil
}
