package bridging

import "sort"

// exclusiveKeys returns the keys of exclusive filters other than skip,
// ordered by rank with ties broken by key.
func (tx *Tx) exclusiveKeys(skip int) []int {
	keys := make([]int, 0, len(tx.snap.filters))
	for k, f := range tx.snap.filters {
		if k != skip && f.Exclusive() {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := tx.snap.filters[keys[i]], tx.snap.filters[keys[j]]
		if a.ExclusivityOrder != b.ExclusivityOrder {
			return a.ExclusivityOrder < b.ExclusivityOrder
		}
		return a.Key < b.Key
	})
	return keys
}

// rerank places filter key at exclusive rank v (0 = non-exclusive) and
// renumbers the exclusive entries to 1..N. The entry previously at v and
// every entry after it move down one rank; a rank past the end becomes
// N. Non-exclusive entries are never touched.
func (tx *Tx) rerank(key, v int) {
	keys := tx.exclusiveKeys(key)
	if _, ok := tx.snap.filters[key]; ok && v > 0 {
		pos := v - 1
		if pos > len(keys) {
			pos = len(keys)
		}
		keys = append(keys, 0)
		copy(keys[pos+1:], keys[pos:])
		keys[pos] = key
	}
	tx.renumber(keys)
}

// normalizeRanks renumbers exclusive entries to 1..N preserving order.
func (tx *Tx) normalizeRanks() {
	tx.renumber(tx.exclusiveKeys(0))
}

func (tx *Tx) renumber(keys []int) {
	for i, k := range keys {
		f := tx.snap.filters[k]
		if f.ExclusivityOrder == i+1 {
			continue
		}
		// Entries are shared with published snapshots; replace, never mutate.
		c := *f
		c.ExclusivityOrder = i + 1
		tx.snap.filters[k] = &c
	}
}
