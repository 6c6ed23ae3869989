package bridging

import (
	"fmt"
	"sync"
	"sync/atomic"

	"grimm.is/l2bridge/internal/events"
	"grimm.is/l2bridge/internal/logging"
	"grimm.is/l2bridge/internal/metrics"
)

// Table names used in change records, events and metrics.
const (
	TableInterface = "interface"
	TableBridge    = "bridge"
	TableFilter    = "filter"
	TableMarking   = "marking"
)

// Change operations.
const (
	OpAdd     = "add"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpReplace = "replace"
)

// Change records one mutation made inside a transaction.
type Change struct {
	Table string
	Op    string
	Key   int
}

// Limits caps table sizes. Zero means unlimited.
type Limits struct {
	MaxBridgeEntries  int
	MaxDBridgeEntries int
	MaxQBridgeEntries int
	// MaxVLANEntries caps the VLAN table of each bridge.
	MaxVLANEntries    int
	MaxFilterEntries  int
	MaxMarkingEntries int
}

// DefaultLimits returns the limits advertised when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxBridgeEntries:  16,
		MaxDBridgeEntries: 16,
		MaxQBridgeEntries: 16,
		MaxVLANEntries:    4094,
		MaxFilterEntries:  256,
		MaxMarkingEntries: 256,
	}
}

// Options configures a Tables instance.
type Options struct {
	Logger  *logging.Logger
	Events  *events.Hub
	Metrics *metrics.Registry
	Limits  Limits
	// OnCommit is called with each newly published snapshot, in commit order.
	OnCommit func(*Snapshot)
}

// Tables owns the bridging tables and publishes them as snapshots.
type Tables struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]

	logger   *logging.Logger
	events   *events.Hub
	metrics  *metrics.Registry
	limits   Limits
	onCommit func(*Snapshot)
}

// New creates empty tables.
func New(opts Options) *Tables {
	logger := opts.Logger
	if logger == nil {
		logger = logging.WithComponent("bridging")
	}
	t := &Tables{
		logger:   logger,
		events:   opts.Events,
		metrics:  opts.Metrics,
		limits:   opts.Limits,
		onCommit: opts.OnCommit,
	}
	t.snap.Store(emptySnapshot())
	return t
}

// Snapshot returns the current published snapshot. Callers evaluating a
// frame should take one snapshot and use it for the whole frame.
func (t *Tables) Snapshot() *Snapshot {
	return t.snap.Load()
}

// Limits returns the configured table limits.
func (t *Tables) Limits() Limits {
	return t.limits
}

// Update runs fn against a private copy of the tables. If fn returns nil
// and the result is valid, the copy is published atomically; otherwise
// nothing changes. Updates are serialized.
func (t *Tables) Update(fn func(*Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.snap.Load()
	tx := &Tx{snap: old.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.changes) == 0 {
		return nil
	}

	if errs := tx.snap.validate(); errs.HasErrors() {
		return errs
	}
	if err := tx.snap.checkLimits(t.limits); err != nil {
		return err
	}

	next := tx.snap
	next.version = old.version + 1
	next.index()
	t.snap.Store(next)

	t.notify(old, next, tx.changes)
	if t.onCommit != nil {
		t.onCommit(next)
	}
	return nil
}

func (t *Tables) notify(old, next *Snapshot, changes []Change) {
	for _, c := range changes {
		t.logger.Audit("bridging."+c.Op, fmt.Sprintf("%s/%d", c.Table, c.Key), map[string]any{
			"version": next.version,
		})
		t.events.EmitTableChange(c.Table, c.Op, c.Key, next.version)
		if t.metrics != nil {
			t.metrics.RecordMutation(c.Table, c.Op)
		}
	}

	reranked := make(map[int]int)
	for key, f := range next.filters {
		if prev, ok := old.filters[key]; ok && prev.ExclusivityOrder != f.ExclusivityOrder {
			reranked[key] = f.ExclusivityOrder
		}
	}
	if len(reranked) > 0 {
		t.logger.Debug("Exclusivity order changed", "filters", len(reranked), "version", next.version)
		t.events.EmitRerank(reranked, next.version)
	}
}

// Replace swaps every table for the content of doc in one update.
func (t *Tables) Replace(doc Document) error {
	return t.Update(func(tx *Tx) error {
		return tx.Replace(doc)
	})
}
