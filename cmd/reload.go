package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"grimm.is/l2bridge/internal/brand"
	"grimm.is/l2bridge/internal/config"
)

// RunReload triggers a configuration reload on the running daemon.
// It first validates the configuration file to prevent bad loads.
func RunReload(configFile string) error {
	// 1. Validate the configuration first
	Printer.Printf("Validating configuration: %s\n", configFile)
	cfg, _, err := loadTables(configFile)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	Printer.Println("Configuration is valid.")

	// 2. Find the PID of the running daemon
	pidFile := pidFilePath(stateDir(cfg))
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return fmt.Errorf("failed to read PID file %s: %w (is the daemon running?)", pidFile, err)
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return fmt.Errorf("invalid PID in file: %s", pidStr)
	}

	// 3. Send SIGHUP
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	Printer.Printf("Sending SIGHUP to process %d...\n", pid)
	if err := process.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("failed to signal process: %w", err)
	}

	Printer.Println("Reload signal sent successfully.")
	return nil
}

// stateDir returns the configured state directory or the default one.
func stateDir(cfg *config.Config) string {
	if cfg.StateDir != "" {
		return cfg.StateDir
	}
	return brand.GetStateDir()
}

func pidFilePath(dir string) string {
	return filepath.Join(dir, brand.LowerName+".pid")
}
