package bridging

import (
	"fmt"
)

// Tx is a pending set of table mutations. It is only valid inside the
// function passed to Tables.Update.
type Tx struct {
	snap    *Snapshot
	changes []Change
}

func (tx *Tx) record(table, op string, key int) {
	tx.changes = append(tx.changes, Change{Table: table, Op: op, Key: key})
}

// Changes returns the mutations recorded so far.
func (tx *Tx) Changes() []Change {
	return append([]Change{}, tx.changes...)
}

func checkKey(table string, key int) error {
	if key < 1 {
		return fmt.Errorf("%w: %s key %d must be positive", ErrInvalid, table, key)
	}
	return nil
}

// Interface returns the pending AvailableInterface with the given key.
func (tx *Tx) Interface(key int) (AvailableInterface, bool) { return tx.snap.Interface(key) }

// Bridge returns the pending bridge with the given key.
func (tx *Tx) Bridge(key int) (Bridge, bool) { return tx.snap.Bridge(key) }

// Filter returns the pending filter with the given key.
func (tx *Tx) Filter(key int) (Filter, bool) { return tx.snap.Filter(key) }

// Marking returns the pending marking with the given key.
func (tx *Tx) Marking(key int) (Marking, bool) { return tx.snap.Marking(key) }

// NextKey returns one more than the highest key in table.
func (tx *Tx) NextKey(table string) int {
	var keys []int
	switch table {
	case TableInterface:
		keys = sortedKeys(tx.snap.interfaces)
	case TableBridge:
		keys = sortedKeys(tx.snap.bridges)
	case TableFilter:
		keys = sortedKeys(tx.snap.filters)
	case TableMarking:
		keys = sortedKeys(tx.snap.markings)
	}
	if len(keys) == 0 {
		return 1
	}
	return keys[len(keys)-1] + 1
}

// AddInterface registers an interface that appeared.
func (tx *Tx) AddInterface(i AvailableInterface) error {
	if err := checkKey(TableInterface, i.Key); err != nil {
		return err
	}
	if _, ok := tx.snap.interfaces[i.Key]; ok {
		return fmt.Errorf("%w: interface %d", ErrExists, i.Key)
	}
	tx.putInterface(i)
	tx.record(TableInterface, OpAdd, i.Key)
	return nil
}

// UpdateInterface replaces an existing interface entry.
func (tx *Tx) UpdateInterface(i AvailableInterface) error {
	if _, ok := tx.snap.interfaces[i.Key]; !ok {
		return fmt.Errorf("%w: interface %d", ErrNotFound, i.Key)
	}
	tx.putInterface(i)
	tx.record(TableInterface, OpUpdate, i.Key)
	return nil
}

// DeleteInterface removes an interface that disappeared. Selectors naming
// it become inert.
func (tx *Tx) DeleteInterface(key int) error {
	if _, ok := tx.snap.interfaces[key]; !ok {
		return fmt.Errorf("%w: interface %d", ErrNotFound, key)
	}
	delete(tx.snap.interfaces, key)
	tx.record(TableInterface, OpDelete, key)
	return nil
}

func (tx *Tx) putInterface(i AvailableInterface) {
	i.Reference = append([]string{}, i.Reference...)
	tx.snap.interfaces[i.Key] = &i
}

// AddBridge creates a bridge.
func (tx *Tx) AddBridge(b Bridge) error {
	if err := checkKey(TableBridge, b.Key); err != nil {
		return err
	}
	if _, ok := tx.snap.bridges[b.Key]; ok {
		return fmt.Errorf("%w: bridge %d", ErrExists, b.Key)
	}
	tx.putBridge(b)
	tx.record(TableBridge, OpAdd, b.Key)
	return nil
}

// UpdateBridge replaces an existing bridge.
func (tx *Tx) UpdateBridge(b Bridge) error {
	if _, ok := tx.snap.bridges[b.Key]; !ok {
		return fmt.Errorf("%w: bridge %d", ErrNotFound, b.Key)
	}
	tx.putBridge(b)
	tx.record(TableBridge, OpUpdate, b.Key)
	return nil
}

// DeleteBridge removes a bridge. Filters and markings referencing it are
// kept and become inert.
func (tx *Tx) DeleteBridge(key int) error {
	if _, ok := tx.snap.bridges[key]; !ok {
		return fmt.Errorf("%w: bridge %d", ErrNotFound, key)
	}
	delete(tx.snap.bridges, key)
	tx.record(TableBridge, OpDelete, key)
	return nil
}

func (tx *Tx) putBridge(b Bridge) {
	if b.Standard == "" {
		b.Standard = Standard8021D
	}
	c := b.clone()
	tx.snap.bridges[b.Key] = &c
}

// AddFilter creates a filter. An exclusive rank already held by another
// entry pushes that entry and every lower-precedence one down by one.
func (tx *Tx) AddFilter(f Filter) error {
	if err := checkKey(TableFilter, f.Key); err != nil {
		return err
	}
	if _, ok := tx.snap.filters[f.Key]; ok {
		return fmt.Errorf("%w: filter %d", ErrExists, f.Key)
	}
	if f.ExclusivityOrder < 0 {
		return &ValidationError{Table: TableFilter, Key: f.Key, Field: "ExclusivityOrder", Message: "must not be negative"}
	}
	tx.putFilter(f)
	tx.rerank(f.Key, f.ExclusivityOrder)
	tx.record(TableFilter, OpAdd, f.Key)
	return nil
}

// UpdateFilter replaces an existing filter, re-ranking exclusive entries
// when its rank changes.
func (tx *Tx) UpdateFilter(f Filter) error {
	if _, ok := tx.snap.filters[f.Key]; !ok {
		return fmt.Errorf("%w: filter %d", ErrNotFound, f.Key)
	}
	if f.ExclusivityOrder < 0 {
		return &ValidationError{Table: TableFilter, Key: f.Key, Field: "ExclusivityOrder", Message: "must not be negative"}
	}
	tx.putFilter(f)
	tx.rerank(f.Key, f.ExclusivityOrder)
	tx.record(TableFilter, OpUpdate, f.Key)
	return nil
}

// DeleteFilter removes a filter and compacts the remaining exclusive ranks.
func (tx *Tx) DeleteFilter(key int) error {
	if _, ok := tx.snap.filters[key]; !ok {
		return fmt.Errorf("%w: filter %d", ErrNotFound, key)
	}
	delete(tx.snap.filters, key)
	tx.rerank(key, 0)
	tx.record(TableFilter, OpDelete, key)
	return nil
}

func (tx *Tx) putFilter(f Filter) {
	if f.SourceVendorClassID.Mode == "" {
		f.SourceVendorClassID.Mode = MatchExact
	}
	if f.DestVendorClassID.Mode == "" {
		f.DestVendorClassID.Mode = MatchExact
	}
	c := f.clone()
	tx.snap.filters[f.Key] = &c
}

// AddMarking creates a marking.
func (tx *Tx) AddMarking(m Marking) error {
	if err := checkKey(TableMarking, m.Key); err != nil {
		return err
	}
	if _, ok := tx.snap.markings[m.Key]; ok {
		return fmt.Errorf("%w: marking %d", ErrExists, m.Key)
	}
	tx.snap.markings[m.Key] = &m
	tx.record(TableMarking, OpAdd, m.Key)
	return nil
}

// UpdateMarking replaces an existing marking.
func (tx *Tx) UpdateMarking(m Marking) error {
	if _, ok := tx.snap.markings[m.Key]; !ok {
		return fmt.Errorf("%w: marking %d", ErrNotFound, m.Key)
	}
	tx.snap.markings[m.Key] = &m
	tx.record(TableMarking, OpUpdate, m.Key)
	return nil
}

// DeleteMarking removes a marking.
func (tx *Tx) DeleteMarking(key int) error {
	if _, ok := tx.snap.markings[key]; !ok {
		return fmt.Errorf("%w: marking %d", ErrNotFound, key)
	}
	delete(tx.snap.markings, key)
	tx.record(TableMarking, OpDelete, key)
	return nil
}

// Replace drops every entry and loads doc. Exclusive ranks in doc are
// normalized to 1..N, ties broken by key.
func (tx *Tx) Replace(doc Document) error {
	tx.snap.interfaces = make(map[int]*AvailableInterface, len(doc.Interfaces))
	tx.snap.bridges = make(map[int]*Bridge, len(doc.Bridges))
	tx.snap.filters = make(map[int]*Filter, len(doc.Filters))
	tx.snap.markings = make(map[int]*Marking, len(doc.Markings))

	for _, i := range doc.Interfaces {
		if err := checkKey(TableInterface, i.Key); err != nil {
			return err
		}
		if _, ok := tx.snap.interfaces[i.Key]; ok {
			return fmt.Errorf("%w: interface %d", ErrExists, i.Key)
		}
		tx.putInterface(i)
	}
	for _, b := range doc.Bridges {
		if err := checkKey(TableBridge, b.Key); err != nil {
			return err
		}
		if _, ok := tx.snap.bridges[b.Key]; ok {
			return fmt.Errorf("%w: bridge %d", ErrExists, b.Key)
		}
		tx.putBridge(b)
	}
	for _, f := range doc.Filters {
		if err := checkKey(TableFilter, f.Key); err != nil {
			return err
		}
		if _, ok := tx.snap.filters[f.Key]; ok {
			return fmt.Errorf("%w: filter %d", ErrExists, f.Key)
		}
		if f.ExclusivityOrder < 0 {
			return &ValidationError{Table: TableFilter, Key: f.Key, Field: "ExclusivityOrder", Message: "must not be negative"}
		}
		tx.putFilter(f)
	}
	tx.normalizeRanks()
	for _, m := range doc.Markings {
		if err := checkKey(TableMarking, m.Key); err != nil {
			return err
		}
		if _, ok := tx.snap.markings[m.Key]; ok {
			return fmt.Errorf("%w: marking %d", ErrExists, m.Key)
		}
		tx.snap.markings[m.Key] = &m
	}

	for _, table := range []string{TableInterface, TableBridge, TableFilter, TableMarking} {
		tx.record(table, OpReplace, 0)
	}
	return nil
}
