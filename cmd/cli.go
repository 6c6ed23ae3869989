// Package cmd implements the l2bridge subcommands.
package cmd

import (
	"fmt"

	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/config"
	"grimm.is/l2bridge/internal/i18n"
	"grimm.is/l2bridge/internal/logging"
)

// Printer is used for all user-facing output.
var Printer = i18n.NewCLIPrinter()

// loadTables loads configFile and builds the bridging tables it declares.
// The returned tables are detached from any store or event hub.
func loadTables(configFile string) (*config.Config, *bridging.Tables, error) {
	result, err := config.LoadFileWithOptions(configFile, config.DefaultLoadOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := result.Config

	tables, err := buildTables(cfg, bridging.Options{
		Logger: quietLogger(),
		Limits: bridging.LimitsFromConfig(cfg.Limits),
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, tables, nil
}

// buildTables creates tables with opts and loads the tables declared by cfg.
func buildTables(cfg *config.Config, opts bridging.Options) (*bridging.Tables, error) {
	doc, err := bridging.DocumentFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid bridging tables: %w", err)
	}
	tables := bridging.New(opts)
	if err := tables.Replace(doc); err != nil {
		return nil, fmt.Errorf("invalid bridging tables: %w", err)
	}
	return tables, nil
}

// quietLogger only reports errors, keeping one-shot commands readable.
func quietLogger() *logging.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LevelError
	return logging.New(cfg).WithComponent("bridging")
}
