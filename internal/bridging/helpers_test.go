package bridging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// identityMap is an IdentitySource backed by a map.
type identityMap map[MAC]Identity

func (m identityMap) Lookup(mac MAC) (Identity, bool) {
	id, ok := m[mac]
	return id, ok
}

var (
	macA = MAC{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	macB = MAC{0x00, 0x11, 0x23, 0x00, 0x00, 0x01}
	macC = MAC{0x02, 0x00, 0x00, 0x00, 0x00, 0x0c}
)

func update(t *testing.T, tbl *Tables, fn func(*Tx) error) {
	t.Helper()
	require.NoError(t, tbl.Update(fn))
}

// newTestTables returns tables with LAN interfaces 1 and 2, WAN interface 3
// and two enabled 802.1D bridges.
func newTestTables(t *testing.T) *Tables {
	t.Helper()
	tbl := New(Options{})
	update(t, tbl, func(tx *Tx) error {
		for _, i := range []AvailableInterface{
			NewAvailableInterface(1, LANInterface),
			NewAvailableInterface(2, LANInterface),
			NewAvailableInterface(3, WANInterface),
		} {
			if err := tx.AddInterface(i); err != nil {
				return err
			}
		}
		if err := tx.AddBridge(NewBridgeBuilder(1).Name("lan").Enable().Build()); err != nil {
			return err
		}
		return tx.AddBridge(NewBridgeBuilder(2).Name("guest").Enable().Build())
	})
	return tbl
}

func addFilters(t *testing.T, tbl *Tables, filters ...Filter) {
	t.Helper()
	update(t, tbl, func(tx *Tx) error {
		for _, f := range filters {
			if err := tx.AddFilter(f); err != nil {
				return err
			}
		}
		return nil
	})
}

func addMarkings(t *testing.T, tbl *Tables, markings ...Marking) {
	t.Helper()
	update(t, tbl, func(tx *Tx) error {
		for _, m := range markings {
			if err := tx.AddMarking(m); err != nil {
				return err
			}
		}
		return nil
	})
}

func ranks(s *Snapshot) map[int]int {
	out := make(map[int]int)
	for _, f := range s.Filters() {
		out[f.Key] = f.ExclusivityOrder
	}
	return out
}

func classify(s *Snapshot, fr Frame, ids IdentitySource) ([]Admission, DropReason) {
	return s.Classify(fr, ids, nil)
}

func bridgesOf(list []Admission) []int {
	out := make([]int, len(list))
	for i, a := range list {
		out[i] = a.Bridge
	}
	return out
}
