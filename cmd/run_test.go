package cmd

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"

	"grimm.is/l2bridge/internal/audit"
	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/config"
	"grimm.is/l2bridge/internal/dhcpident"
	"grimm.is/l2bridge/internal/events"
	"grimm.is/l2bridge/internal/health"
	"grimm.is/l2bridge/internal/logging"
	"grimm.is/l2bridge/internal/metrics"
)

// staticLinks reports a fixed set of host links.
type staticLinks []string

func (s staticLinks) LinkList() ([]netlink.Link, error) {
	out := make([]netlink.Link, 0, len(s))
	for _, name := range s {
		out = append(out, &netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: name}})
	}
	return out, nil
}

func (staticLinks) LinkSubscribe(chan<- netlink.LinkUpdate, <-chan struct{}) error { return nil }

func newTestDaemon(t *testing.T, content string, links staticLinks) (*daemon, *metrics.Registry, string) {
	t.Helper()
	path := writeConfig(t, "l2bridge.hcl", content)
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	reg := metrics.NewRegistry(prometheus.NewRegistry())
	d, err := newDaemon(path, cfg, daemonDeps{
		Logger:  quietLogger(),
		Metrics: reg,
		Links:   links,
	})
	require.NoError(t, err)
	t.Cleanup(d.close)
	return d, reg, path
}

func stateConfig(dir, body string) string {
	return "state_dir = \"" + dir + "\"\n" + body
}

func TestDaemon_PrunesAbsentLinks(t *testing.T) {
	d, _, _ := newTestDaemon(t, stateConfig(t.TempDir(), testConfig), staticLinks{"lo", "lan1", "wan0"})

	snap := d.tables.Snapshot()
	_, ok := snap.Interface(1)
	assert.True(t, ok)
	_, ok = snap.Interface(2)
	assert.False(t, ok, "lan2 does not exist")
	_, ok = snap.Interface(3)
	assert.True(t, ok)
	assert.Equal(t, []string{"lan1", "lan2", "wan0"}, d.monitor.Devices())
}

func TestDaemon_PersistsCommits(t *testing.T) {
	dir := t.TempDir()
	d, _, _ := newTestDaemon(t, stateConfig(dir, testConfig), staticLinks{"lan1", "lan2", "wan0"})
	want := d.tables.Snapshot().Document()

	restored := bridging.New(bridging.Options{Logger: quietLogger()})
	found, err := bridging.Restore(d.store, restored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, restored.Snapshot().Document())
}

func TestDaemon_Reload(t *testing.T) {
	dir := t.TempDir()
	d, reg, path := newTestDaemon(t, stateConfig(dir, testConfig), staticLinks{"lan1", "lan2", "wan0"})

	renamed := stateConfig(dir, testConfig+`
bridge "3" {
  name    = "guests"
  enabled = true
}
`)
	require.NoError(t, os.WriteFile(path, []byte(renamed), 0644))
	require.NoError(t, d.reload())

	b, ok := d.tables.Snapshot().Bridge(3)
	require.True(t, ok)
	assert.Equal(t, "guests", b.Name)

	version := d.tables.Snapshot().Version()
	require.NoError(t, os.WriteFile(path, []byte(`bridge "1" {`), 0644))
	assert.Error(t, d.reload())
	assert.Equal(t, version, d.tables.Snapshot().Version(), "failed reload keeps the running tables")

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ConfigReload.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ConfigReload.WithLabelValues("failure")))
}

func TestDaemon_FallsBackToPersistedTables(t *testing.T) {
	dir := t.TempDir()
	links := staticLinks{"lan1", "lan2", "wan0"}
	first, _, _ := newTestDaemon(t, stateConfig(dir, testConfig), links)
	want := first.tables.Snapshot().Document()
	first.close()

	// Filter 9 references a bridge that does not exist.
	broken := stateConfig(dir, testConfig+`
filter "9" {
  enabled = true
  bridge  = 9
}
`)
	d, _, _ := newTestDaemon(t, broken, links)
	assert.Equal(t, want, d.tables.Snapshot().Document())
}

func TestDaemon_RejectsWithoutPersistedTables(t *testing.T) {
	path := writeConfig(t, "l2bridge.hcl", stateConfig(t.TempDir(), testConfig+`
filter "9" {
  enabled = true
  bridge  = 9
}
`))
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	_, err = newDaemon(path, cfg, daemonDeps{
		Logger:  quietLogger(),
		Metrics: metrics.NewRegistry(prometheus.NewRegistry()),
		Links:   staticLinks{},
	})
	assert.ErrorIs(t, err, bridging.ErrInvalid)
}

func TestDaemon_Snooping(t *testing.T) {
	dir := t.TempDir()
	d, _, _ := newTestDaemon(t, stateConfig(dir, testConfig+`
dhcp_snooping {
  enabled = true
  persist = true
  ttl     = "1h"
}
`), staticLinks{"lan1", "lan2", "wan0"})

	require.NotNil(t, d.cache)
	require.NotNil(t, d.sniffer)

	mac, err := bridging.ParseMAC("00:11:22:33:44:55")
	require.NoError(t, err)
	assert.True(t, d.cache.Learn(dhcpident.Record{MAC: mac, VendorClass: "printer-x"}))

	keys, err := d.store.ListKeys("dhcp_identities")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	st := d.stats()
	assert.Equal(t, 1, st.Identities)
	assert.Equal(t, 2, st.Bridges)
	assert.Equal(t, map[int]string{1: "lan1", 2: "lan2", 3: "wan0"}, st.Devices)
}

func TestDaemon_Journal(t *testing.T) {
	dir := t.TempDir()
	d, _, path := newTestDaemon(t, stateConfig(dir, testConfig+`
audit {
  enabled   = true
  retention = "24h"
}
`), staticLinks{"lan1", "lan2", "wan0"})
	require.NotNil(t, d.journal)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	d.start(ctx, &config.Config{})

	// The initial load is journaled once the event loop runs.
	assert.Eventually(t, func() bool {
		entries, err := d.journal.Query(audit.Query{Type: events.EventTableChanged, Resource: "filter/0"})
		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := d.journal.Query(audit.Query{Resource: "filter/0"})
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "replace", entries[0].Details["op"])

	assert.NoError(t, RunHistory(path, HistoryOptions{Limit: 5}))
	assert.NoError(t, RunHistory(path, HistoryOptions{Type: string(events.EventTableChanged), Since: time.Hour, JSON: true}))
}

func TestRunHistory_NoJournal(t *testing.T) {
	path := writeConfig(t, "l2bridge.hcl", stateConfig(t.TempDir(), testConfig))
	assert.ErrorContains(t, RunHistory(path, HistoryOptions{}), "no audit journal")
}

func TestDetailString(t *testing.T) {
	assert.Equal(t, "-", detailString(nil))
	assert.Equal(t, "key=2 op=add", detailString(map[string]any{"op": "add", "key": 2}))
}

func TestDaemon_Health(t *testing.T) {
	d, _, _ := newTestDaemon(t, stateConfig(t.TempDir(), testConfig), staticLinks{"lan1", "wan0"})

	report := d.healthChecker().Check(context.Background())
	assert.Equal(t, health.StatusDegraded, report.Status, "lan2 is missing")
	assert.Equal(t, health.StatusHealthy, report.Checks["tables"].Status)
	assert.Equal(t, health.StatusHealthy, report.Checks["state"].Status)
	assert.Equal(t, health.StatusHealthy, report.Checks["disk"].Status)
	assert.Equal(t, "2 of 3 declared interfaces present", report.Checks["interfaces"].Message)
	assert.NotContains(t, report.Checks, "audit")
}

func TestLANDevices(t *testing.T) {
	d, _, _ := newTestDaemon(t, stateConfig(t.TempDir(), testConfig), staticLinks{"lan1", "lan2", "wan0"})
	assert.Equal(t, []string{"lan1", "lan2"}, lanDevices(d.tables.Snapshot()))
}

func TestSetupLogging(t *testing.T) {
	prev := logging.Default()
	t.Cleanup(func() { logging.SetDefault(prev) })

	logger, err := setupLogging(&config.Config{LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, logger.GetLevel())

	_, err = setupLogging(&config.Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestPIDFilePath(t *testing.T) {
	assert.Equal(t, "/run/x/l2bridge.pid", pidFilePath("/run/x"))
	assert.Equal(t, "/tmp/s", stateDir(&config.Config{StateDir: "/tmp/s"}))
}
