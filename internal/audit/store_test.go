package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/l2bridge/internal/events"
)

func newTestStore(t *testing.T, retention time.Duration) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "audit", "audit.db"), retention)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndQuery(t *testing.T) {
	s := newTestStore(t, 0)

	require.NoError(t, s.Record(events.Event{
		ID:     "e1",
		Type:   events.EventTableChanged,
		Source: "bridging",
		Data:   events.TableChangeData{Table: "filter", Op: "add", Key: 4, Version: 7},
	}))
	require.NoError(t, s.Record(events.Event{
		Type:   events.EventIdentityLearned,
		Source: "dhcp",
		Data:   events.IdentityData{MAC: "00:11:22:33:44:55", VendorClassID: "printer"},
	}))

	all, err := s.Query(Query{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "identity/00:11:22:33:44:55", all[0].Resource, "newest first")
	assert.Equal(t, "printer", all[0].Details["vendor_class_id"])

	changes, err := s.Query(Query{Type: events.EventTableChanged})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "e1", changes[0].EventID)
	assert.Equal(t, "filter/4", changes[0].Resource)
	assert.Equal(t, "add", changes[0].Details["op"])
	assert.Equal(t, 7.0, changes[0].Details["version"])

	byResource, err := s.Query(Query{Resource: "filter/4", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, byResource, 1)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_QuerySince(t *testing.T) {
	s := newTestStore(t, 0)
	now := time.Now()

	require.NoError(t, s.Write(Entry{Timestamp: now.Add(-2 * time.Hour), Type: events.EventInterfaceAdded, Resource: "interface/1"}))
	require.NoError(t, s.Write(Entry{Timestamp: now, Type: events.EventInterfaceRemoved, Resource: "interface/1"}))

	recent, err := s.Query(Query{Since: now.Add(-time.Hour)})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, events.EventInterfaceRemoved, recent[0].Type)
	assert.WithinDuration(t, now, recent[0].Timestamp, time.Millisecond)
}

func TestStore_Prune(t *testing.T) {
	s := newTestStore(t, time.Hour)

	require.NoError(t, s.Write(Entry{Timestamp: time.Now().Add(-2 * time.Hour), Type: events.EventTableChanged, Resource: "bridge/1"}))
	require.NoError(t, s.Write(Entry{Timestamp: time.Now(), Type: events.EventTableChanged, Resource: "bridge/2"}))

	removed, err := s.Prune()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	left, err := s.Query(Query{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "bridge/2", left[0].Resource)
}

func TestResource(t *testing.T) {
	assert.Equal(t, "filter", Resource(events.Event{Data: events.RerankData{Orders: map[int]int{1: 1}}}))
	assert.Equal(t, "interface/3", Resource(events.Event{Data: events.InterfaceData{Key: 3, Device: "eth1"}}))
	assert.Equal(t, "custom", Resource(events.Event{Type: "custom"}))
}
