package bridging

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/l2bridge/internal/state"
)

func newStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store, err := state.NewSQLiteStore(state.DefaultOptions(filepath.Join(t.TempDir(), "state.db")))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPersistRestore(t *testing.T) {
	tbl := newTestTables(t)
	oui, err := ParseMACMatch("00:11:22:00:00:00/ff:ff:ff:00:00:00")
	require.NoError(t, err)
	update(t, tbl, func(tx *Tx) error {
		if err := tx.AddBridge(NewBridgeBuilder(3).Name("voice").Enable().Dot1Q(20).
			Port(1, 1, 20, AdmitOnlyVLANTagged, true).
			VLAN(1, 20, "voice").
			Build()); err != nil {
			return err
		}
		if err := tx.AddFilter(NewFilterBuilder(1).Enable().Bridge(3).Interface(InterfaceKey(1)).
			Exclusive(1).VLAN(20).Ethertypes(etherIPv4).SourceMACs(oui).
			SourceVendorClassID("Cisco", MatchPrefix).Build()); err != nil {
			return err
		}
		if err := tx.AddFilter(NewFilterBuilder(2).Enable().Bridge(1).Interface(LANInterfaces).Build()); err != nil {
			return err
		}
		return tx.AddMarking(NewMarkingBuilder(1).Enable().Bridge(3).Interface(AllInterfaces).Untag().Build())
	})
	store := newStore(t)

	require.NoError(t, Persist(store, tbl.Snapshot()))

	restored := New(Options{})
	ok, err := Restore(store, restored)
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(tbl.Snapshot().Document(), restored.Snapshot().Document(), cmp.AllowUnexported(Selector{})); diff != "" {
		t.Errorf("restored tables differ (-want +got):\n%s", diff)
	}
	assert.Equal(t, tbl.Snapshot().EvaluationOrder(), restored.Snapshot().EvaluationOrder())
}

func TestRestore_Empty(t *testing.T) {
	store := newStore(t)

	ok, err := Restore(store, New(Options{}))

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestore_RejectsInvalid(t *testing.T) {
	store := newStore(t)
	require.NoError(t, state.EnsureBucket(store, StateBucket))
	require.NoError(t, store.Set(StateBucket, TableBridge, []byte(`[{"key":1,"standard":"802.1D","vlan_id":5}]`)))
	tbl := New(Options{})

	ok, err := Restore(store, tbl)

	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, uint64(0), tbl.Snapshot().Version())
}
