package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/l2bridge/internal/audit"
	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/config"
	"grimm.is/l2bridge/internal/dhcpident"
	"grimm.is/l2bridge/internal/events"
	"grimm.is/l2bridge/internal/health"
	"grimm.is/l2bridge/internal/logging"
	"grimm.is/l2bridge/internal/metrics"
	"grimm.is/l2bridge/internal/network"
	"grimm.is/l2bridge/internal/state"
)

const (
	defaultMetricsListen   = ":9108"
	defaultMetricsInterval = 15 * time.Second
	stateFileName          = "state.db"
	auditFileName          = "audit.db"
	eventBuffer            = 1024
)

// daemon holds the long-running components.
type daemon struct {
	configFile string
	dir        string
	logger     *logging.Logger
	hub        *events.Hub
	metrics    *metrics.Registry
	store      *state.SQLiteStore
	tables     *bridging.Tables
	monitor    *network.Monitor
	eventCh    <-chan events.Event

	// Optional components.
	journal   *audit.Store
	cache     *dhcpident.Cache
	sniffer   *dhcpident.Sniffer
	collector *metrics.Collector
	server    *http.Server

	wg sync.WaitGroup
}

// RunDaemon runs the bridging engine in the foreground until SIGINT or
// SIGTERM. SIGHUP reloads the configuration file.
func RunDaemon(configFile string) error {
	result, err := config.LoadFileWithOptions(configFile, config.DefaultLoadOptions())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := result.Config

	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	d, err := newDaemon(configFile, cfg, daemonDeps{
		Logger:  logger,
		Metrics: metrics.Get(),
		Links:   hostLinks(),
	})
	if err != nil {
		return err
	}
	defer d.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.start(ctx, cfg)

	pidFile := pidFilePath(stateDir(cfg))
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		logger.Warn("Failed to write PID file", "path", pidFile, "error", err)
	} else {
		defer os.Remove(pidFile)
	}

	logger.Info("Bridging engine running", "config", configFile, "version", d.tables.Snapshot().Version())
	return d.loop(ctx, cancel)
}

// setupLogging builds the process logger from the configuration and makes
// it the default.
func setupLogging(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.JSON = cfg.LogJSON
	logger := logging.New(logCfg)
	logging.SetDefault(logger)
	return logger, nil
}

// daemonDeps are the host-facing dependencies of a daemon.
type daemonDeps struct {
	Logger  *logging.Logger
	Metrics *metrics.Registry
	Links   network.Links
}

// newDaemon opens the state store and loads the tables. When the
// configured tables cannot be loaded, the last persisted tables are used.
func newDaemon(configFile string, cfg *config.Config, deps daemonDeps) (*daemon, error) {
	dir := stateDir(cfg)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	store, err := state.NewSQLiteStore(state.DefaultOptions(filepath.Join(dir, stateFileName)))
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	d := &daemon{
		configFile: configFile,
		dir:        dir,
		logger:     deps.Logger,
		hub:        events.NewHub(),
		metrics:    deps.Metrics,
		store:      store,
	}
	// Subscribe before the first apply so the initial load is journaled.
	d.eventCh = d.hub.Subscribe(eventBuffer)
	if a := cfg.Audit; a != nil && a.Enabled {
		if err := d.openJournal(dir, a); err != nil {
			store.Close()
			return nil, err
		}
	}
	d.tables = bridging.New(bridging.Options{
		Logger:   deps.Logger.WithComponent("bridging"),
		Events:   d.hub,
		Metrics:  deps.Metrics,
		Limits:   bridging.LimitsFromConfig(cfg.Limits),
		OnCommit: d.persist,
	})
	d.monitor = network.NewMonitor(d.tables, deps.Links, d.hub)

	if err := d.apply(cfg); err != nil {
		restored, rerr := bridging.Restore(store, d.tables)
		if rerr != nil || !restored {
			d.closeStores()
			return nil, err
		}
		d.logger.Warn("Configured tables rejected, using last persisted tables", "error", err)
		d.monitor.SetDeclared(d.tables.Snapshot().Interfaces())
	}

	if snoop := cfg.DHCPSnooping; snoop != nil && snoop.Enabled {
		if err := d.setupSnooping(snoop); err != nil {
			d.closeStores()
			return nil, err
		}
	}
	return d, nil
}

// apply loads the tables declared by cfg and re-syncs interface presence.
func (d *daemon) apply(cfg *config.Config) error {
	doc, err := bridging.DocumentFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := d.tables.Replace(doc); err != nil {
		return err
	}
	d.monitor.SetDeclared(doc.Interfaces)
	if err := d.monitor.Sync(); err != nil {
		d.logger.Warn("Failed to sync interface presence", "error", err)
	}
	if limits := bridging.LimitsFromConfig(cfg.Limits); limits != d.tables.Limits() {
		d.logger.Warn("Table limit changes take effect after restart")
	}
	return nil
}

func (d *daemon) openJournal(dir string, a *config.AuditConfig) error {
	retention := audit.DefaultRetention
	if a.Retention != "" {
		var err error
		if retention, err = time.ParseDuration(a.Retention); err != nil {
			return fmt.Errorf("invalid audit retention: %w", err)
		}
	}
	journal, err := audit.NewStore(filepath.Join(dir, auditFileName), retention)
	if err != nil {
		return fmt.Errorf("failed to open audit journal: %w", err)
	}
	if n, err := journal.Prune(); err != nil {
		d.logger.Warn("Failed to prune audit journal", "error", err)
	} else if n > 0 {
		d.logger.Info("Pruned audit journal", "removed", n)
	}
	d.journal = journal
	return nil
}

func (d *daemon) persist(snap *bridging.Snapshot) {
	if err := bridging.Persist(d.store, snap); err != nil {
		d.logger.Warn("Failed to persist tables", "version", snap.Version(), "error", err)
	}
}

func (d *daemon) setupSnooping(snoop *config.DHCPSnooping) error {
	ttl := dhcpident.DefaultTTL
	if snoop.TTL != "" {
		var err error
		if ttl, err = time.ParseDuration(snoop.TTL); err != nil {
			return fmt.Errorf("invalid dhcp_snooping ttl: %w", err)
		}
	}
	opts := dhcpident.Options{
		TTL:     ttl,
		Events:  d.hub,
		Metrics: d.metrics,
		Logger:  d.logger.WithComponent("dhcp-ident"),
	}
	if snoop.Persist {
		opts.Store = d.store
	}
	if snoop.VendorDB != "" {
		db, err := dhcpident.LoadVendorFile(snoop.VendorDB)
		if err != nil {
			d.logger.Warn("Vendor lookup disabled", "path", snoop.VendorDB, "error", err)
		} else {
			d.logger.Info("Loaded vendor database", "prefixes", db.Len())
			opts.Vendors = db
		}
	}
	d.cache = dhcpident.NewCache(opts)
	if snoop.Persist {
		n, err := d.cache.Load()
		if err != nil {
			d.logger.Warn("Failed to load learned identities", "error", err)
		} else {
			d.logger.Info("Loaded learned identities", "count", n)
		}
	}

	devices := snoop.Interfaces
	if len(devices) == 0 {
		devices = lanDevices(d.tables.Snapshot())
	}
	d.sniffer = dhcpident.NewSniffer(dhcpident.SnifferConfig{Interfaces: devices}, d.cache)
	return nil
}

// lanDevices returns the devices of every LANInterface entry.
func lanDevices(snap *bridging.Snapshot) []string {
	var out []string
	for _, i := range snap.Interfaces() {
		if i.Type == bridging.LANInterface && i.Device != "" {
			out = append(out, i.Device)
		}
	}
	return out
}

// start launches the background components. Failures of optional host
// integrations are logged and the daemon keeps running without them.
func (d *daemon) start(ctx context.Context, cfg *config.Config) {
	if err := d.monitor.Start(ctx); err != nil {
		d.logger.Warn("Interface monitor unavailable", "error", err)
	}
	if d.sniffer != nil {
		if err := d.sniffer.Start(ctx); err != nil {
			d.logger.Warn("DHCP snooping unavailable", "error", err)
		}
	}
	if m := cfg.Metrics; m != nil && m.Enabled {
		if err := d.startMetrics(m); err != nil {
			d.logger.Warn("Metrics endpoint unavailable", "error", err)
		}
	}

	d.wg.Add(1)
	go d.logEvents(ctx, d.eventCh)
}

func (d *daemon) startMetrics(m *config.MetricsConfig) error {
	interval := defaultMetricsInterval
	if m.Interval != "" {
		var err error
		if interval, err = time.ParseDuration(m.Interval); err != nil {
			return fmt.Errorf("invalid metrics interval: %w", err)
		}
	}
	listen := m.Listen
	if listen == "" {
		listen = defaultMetricsListen
	}

	d.collector = metrics.NewCollector(d.metrics, d.logger.WithComponent("metrics"), interval, d.stats)
	go d.collector.Start()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	d.healthChecker().Mount(mux)
	d.server = &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		d.logger.Info("Serving metrics", "listen", listen)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("Metrics server failed", "error", err)
		}
	}()
	return nil
}

// stats summarizes the current tables for the metrics collector.
// healthChecker reports on the tables, the stores and interface presence.
func (d *daemon) healthChecker() *health.Checker {
	checker := health.NewChecker(nil)
	checker.Register("tables", func(context.Context) health.Check {
		snap := d.tables.Snapshot()
		if snap.Version() == 0 {
			return health.Unhealthy("no tables loaded")
		}
		return health.Healthy("version %d", snap.Version())
	})
	checker.Register("state", func(context.Context) health.Check {
		if _, err := d.store.ListBuckets(); err != nil {
			return health.Unhealthy("state store: %v", err)
		}
		return health.Healthy("state store open")
	})
	checker.Register("interfaces", func(context.Context) health.Check {
		declared := d.monitor.Devices()
		present := len(d.tables.Snapshot().Interfaces())
		if present < len(declared) {
			return health.Degraded("%d of %d declared interfaces present", present, len(declared))
		}
		return health.Healthy("%d interfaces present", present)
	})
	checker.Register("disk", health.CheckDir(d.dir))
	if d.journal != nil {
		checker.Register("audit", func(context.Context) health.Check {
			n, err := d.journal.Count()
			if err != nil {
				return health.Degraded("audit journal: %v", err)
			}
			return health.Healthy("%d entries", n)
		})
	}
	return checker
}

func (d *daemon) stats() metrics.TableStats {
	snap := d.tables.Snapshot()
	ifaces, bridges, filters, markings := snap.Counts()
	st := metrics.TableStats{
		Bridges:    bridges,
		Filters:    filters,
		Markings:   markings,
		Interfaces: ifaces,
		Version:    snap.Version(),
		Devices:    make(map[int]string),
	}
	for _, i := range snap.Interfaces() {
		if i.Device != "" {
			st.Devices[i.Key] = i.Device
		}
	}
	if d.cache != nil {
		st.Identities = d.cache.Len()
	}
	return st
}

// logEvents traces every management event at debug level and writes it to
// the journal when one is open.
func (d *daemon) logEvents(ctx context.Context, ch <-chan events.Event) {
	defer d.wg.Done()
	defer d.hub.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-ch:
			d.logger.Debug("Event", "type", e.Type, "source", e.Source, "data", e.Data)
			if d.journal != nil {
				if err := d.journal.Record(e); err != nil {
					d.logger.Warn("Failed to journal event", "type", e.Type, "error", err)
				}
			}
		}
	}
}

// reload re-reads the configuration file and replaces the tables. On any
// error the running tables are kept.
func (d *daemon) reload() error {
	result, err := config.LoadFileWithOptions(d.configFile, config.DefaultLoadOptions())
	if err == nil {
		err = d.apply(result.Config)
	}
	if d.collector != nil {
		d.collector.IncrementConfigReload(err == nil)
	} else if d.metrics != nil {
		d.metrics.ConfigReload.WithLabelValues(reloadStatus(err)).Inc()
	}
	if err != nil {
		return err
	}

	if level, lerr := logging.ParseLevel(result.Config.LogLevel); lerr == nil {
		d.logger.SetLevel(level)
	}
	d.logger.Info("Reloaded configuration", "schema_version", result.Version, "version", d.tables.Snapshot().Version())
	return nil
}

func reloadStatus(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// loop handles signals until shutdown.
func (d *daemon) loop(ctx context.Context, cancel context.CancelFunc) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				d.logger.Info("Received SIGHUP, reloading configuration...")
				if err := d.reload(); err != nil {
					d.logger.Error("Failed to reload configuration", "error", err)
				}
			case os.Interrupt, syscall.SIGTERM:
				d.logger.Info("Received signal, shutting down...", "signal", sig)
				cancel()
				return nil
			}
		}
	}
}

// close stops every component and closes the state store.
func (d *daemon) close() {
	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.server.Shutdown(ctx); err != nil {
			d.logger.Warn("Metrics server shutdown failed", "error", err)
		}
		cancel()
	}
	if d.collector != nil {
		d.collector.Stop()
	}
	if d.sniffer != nil {
		d.sniffer.Stop()
	}
	d.monitor.Stop()
	d.wg.Wait()
	d.closeStores()
}

func (d *daemon) closeStores() {
	if d.journal != nil {
		if err := d.journal.Close(); err != nil {
			d.logger.Warn("Failed to close audit journal", "error", err)
		}
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("Failed to close state store", "error", err)
	}
}
