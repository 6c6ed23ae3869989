package bridging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/l2bridge/internal/events"
)

func exclusiveFilter(key, rank int) Filter {
	return NewFilterBuilder(key).Enable().Bridge(1).Interface(AllInterfaces).Exclusive(rank).Build()
}

func TestRerank_InsertShiftsOccupiedRank(t *testing.T) {
	tbl := newTestTables(t)
	addFilters(t, tbl, exclusiveFilter(1, 1), exclusiveFilter(2, 2), exclusiveFilter(3, 3))

	addFilters(t, tbl, exclusiveFilter(4, 2))

	assert.Equal(t, map[int]int{1: 1, 4: 2, 2: 3, 3: 4}, ranks(tbl.Snapshot()))
	assert.Equal(t, []int{1, 4, 2, 3}, tbl.Snapshot().EvaluationOrder())
}

func TestRerank_DeleteCompacts(t *testing.T) {
	tbl := newTestTables(t)
	addFilters(t, tbl, exclusiveFilter(1, 1), exclusiveFilter(2, 2), exclusiveFilter(3, 3))

	update(t, tbl, func(tx *Tx) error { return tx.DeleteFilter(2) })

	assert.Equal(t, map[int]int{1: 1, 3: 2}, ranks(tbl.Snapshot()))
}

func TestRerank_RankPastEndClamps(t *testing.T) {
	tbl := newTestTables(t)
	addFilters(t, tbl, exclusiveFilter(1, 1), exclusiveFilter(2, 2))

	addFilters(t, tbl, exclusiveFilter(3, 10))

	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 3}, ranks(tbl.Snapshot()))
}

func TestRerank_UpdateMovesEntry(t *testing.T) {
	tbl := newTestTables(t)
	addFilters(t, tbl, exclusiveFilter(1, 1), exclusiveFilter(2, 2), exclusiveFilter(3, 3))

	update(t, tbl, func(tx *Tx) error {
		f, ok := tx.Filter(1)
		require.True(t, ok)
		f.ExclusivityOrder = 3
		return tx.UpdateFilter(f)
	})
	assert.Equal(t, map[int]int{2: 1, 3: 2, 1: 3}, ranks(tbl.Snapshot()))

	update(t, tbl, func(tx *Tx) error {
		f, _ := tx.Filter(1)
		f.ExclusivityOrder = 1
		return tx.UpdateFilter(f)
	})
	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 3}, ranks(tbl.Snapshot()))
}

func TestRerank_UpdateToNonExclusiveCompacts(t *testing.T) {
	tbl := newTestTables(t)
	addFilters(t, tbl, exclusiveFilter(1, 1), exclusiveFilter(2, 2), exclusiveFilter(3, 3))

	update(t, tbl, func(tx *Tx) error {
		f, _ := tx.Filter(1)
		f.ExclusivityOrder = 0
		return tx.UpdateFilter(f)
	})

	assert.Equal(t, map[int]int{1: 0, 2: 1, 3: 2}, ranks(tbl.Snapshot()))
	assert.Equal(t, []int{2, 3, 1}, tbl.Snapshot().EvaluationOrder())
}

func TestRerank_NonExclusiveUntouched(t *testing.T) {
	tbl := newTestTables(t)
	plain := NewFilterBuilder(9).Enable().Bridge(1).Interface(AllInterfaces).Build()
	addFilters(t, tbl, plain, exclusiveFilter(1, 1))

	addFilters(t, tbl, exclusiveFilter(2, 1))
	update(t, tbl, func(tx *Tx) error { return tx.DeleteFilter(1) })

	assert.Equal(t, map[int]int{2: 1, 9: 0}, ranks(tbl.Snapshot()))
}

func TestRerank_RanksStayContiguous(t *testing.T) {
	tbl := newTestTables(t)
	steps := []func(tx *Tx) error{
		func(tx *Tx) error { return tx.AddFilter(exclusiveFilter(1, 1)) },
		func(tx *Tx) error { return tx.AddFilter(exclusiveFilter(2, 1)) },
		func(tx *Tx) error { return tx.AddFilter(exclusiveFilter(3, 2)) },
		func(tx *Tx) error { return tx.AddFilter(exclusiveFilter(4, 7)) },
		func(tx *Tx) error { return tx.DeleteFilter(2) },
		func(tx *Tx) error { return tx.AddFilter(exclusiveFilter(5, 1)) },
		func(tx *Tx) error { return tx.DeleteFilter(5) },
		func(tx *Tx) error { return tx.DeleteFilter(4) },
	}
	for i, step := range steps {
		update(t, tbl, step)

		seen := make(map[int]bool)
		n := 0
		for _, r := range ranks(tbl.Snapshot()) {
			if r == 0 {
				continue
			}
			n++
			assert.False(t, seen[r], "step %d: duplicate rank %d", i, r)
			seen[r] = true
		}
		for r := 1; r <= n; r++ {
			assert.True(t, seen[r], "step %d: missing rank %d", i, r)
		}
	}
}

func TestRerank_EmitsEvent(t *testing.T) {
	hub := events.NewHub()
	ch := hub.Subscribe(8, events.EventFilterReranked)
	tbl := New(Options{Events: hub})
	update(t, tbl, func(tx *Tx) error {
		if err := tx.AddBridge(NewBridgeBuilder(1).Enable().Build()); err != nil {
			return err
		}
		if err := tx.AddFilter(exclusiveFilter(1, 1)); err != nil {
			return err
		}
		return tx.AddFilter(exclusiveFilter(2, 2))
	})

	addFilters(t, tbl, exclusiveFilter(3, 1))

	select {
	case e := <-ch:
		data, ok := e.Data.(events.RerankData)
		require.True(t, ok)
		assert.Equal(t, map[int]int{1: 2, 2: 3}, data.Orders)
		assert.Equal(t, tbl.Snapshot().Version(), data.Version)
	default:
		t.Fatal("expected rerank event")
	}
}

func TestReplace_NormalizesRanks(t *testing.T) {
	tbl := newTestTables(t)
	doc := tbl.Snapshot().Document()
	doc.Filters = []Filter{exclusiveFilter(7, 5), exclusiveFilter(3, 5), exclusiveFilter(4, 2)}

	require.NoError(t, tbl.Replace(doc))

	assert.Equal(t, map[int]int{4: 1, 3: 2, 7: 3}, ranks(tbl.Snapshot()))
}
