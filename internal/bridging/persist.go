package bridging

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"grimm.is/l2bridge/internal/state"
)

// StateBucket is the state store bucket holding the persisted tables.
const StateBucket = "bridging"

// Document is the serializable content of every bridging table.
type Document struct {
	Interfaces []AvailableInterface `json:"interfaces"`
	Bridges    []Bridge             `json:"bridges"`
	Filters    []Filter             `json:"filters"`
	Markings   []Marking            `json:"markings"`
}

// Document returns the snapshot content sorted by key.
func (s *Snapshot) Document() Document {
	return Document{
		Interfaces: s.Interfaces(),
		Bridges:    s.Bridges(),
		Filters:    s.Filters(),
		Markings:   s.Markings(),
	}
}

// Persist writes snap to store, one JSON value per table plus the
// snapshot version, in a single store transaction.
func Persist(store state.Store, snap *Snapshot) error {
	if err := state.EnsureBucket(store, StateBucket); err != nil {
		return err
	}
	doc := snap.Document()
	values := make(map[string][]byte, 5)
	for key, v := range map[string]any{
		TableInterface: doc.Interfaces,
		TableBridge:    doc.Bridges,
		TableFilter:    doc.Filters,
		TableMarking:   doc.Markings,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s table: %w", key, err)
		}
		values[key] = data
	}
	values["version"] = []byte(strconv.FormatUint(snap.Version(), 10))
	return store.SetMulti(StateBucket, values)
}

// Restore loads persisted tables into t. It reports false when the store
// holds no tables.
func Restore(store state.Store, t *Tables) (bool, error) {
	var doc Document
	found := false
	for key, dst := range map[string]any{
		TableInterface: &doc.Interfaces,
		TableBridge:    &doc.Bridges,
		TableFilter:    &doc.Filters,
		TableMarking:   &doc.Markings,
	} {
		err := store.GetJSON(StateBucket, key, dst)
		switch {
		case errors.Is(err, state.ErrNotFound), errors.Is(err, state.ErrBucketMissing):
			continue
		case err != nil:
			return false, fmt.Errorf("failed to decode %s table: %w", key, err)
		}
		found = true
	}
	if !found {
		return false, nil
	}
	if err := t.Replace(doc); err != nil {
		return false, fmt.Errorf("persisted tables rejected: %w", err)
	}
	return true, nil
}
