package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"grimm.is/l2bridge/internal/brand"
	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/config"
)

// RunCheck validates the configuration file syntax and semantics, including
// the table rules enforced when the tables are loaded.
func RunCheck(configFile string, verbose bool) error {
	if len(configFile) == 0 {
		return fmt.Errorf("usage: %s check [-v] <config-file>\nExample: %s check -v %s", brand.BinaryName, brand.BinaryName, brand.DefaultConfigPath())
	}

	result, err := config.LoadFileWithOptions(configFile, config.DefaultLoadOptions())
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	cfg := result.Config

	tables, err := buildTables(cfg, bridging.Options{
		Logger: quietLogger(),
		Limits: bridging.LimitsFromConfig(cfg.Limits),
	})
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	Printer.Printf("Configuration valid!\n")
	Printer.Printf("Schema Version: %s\n", result.Version)
	Printer.Printf("Available Interfaces: %d\n", len(cfg.Interfaces))
	Printer.Printf("Bridges: %d\n", len(cfg.Bridges))
	Printer.Printf("Filters: %d\n", len(cfg.Filters))
	Printer.Printf("Markings: %d\n", len(cfg.Markings))
	for _, w := range result.Warnings {
		Printer.Printf("Warning: %s\n", w)
	}

	if verbose {
		Printer.Println()
		printSummary(tables.Snapshot())
	}
	return nil
}

// printSummary prints the loaded tables, filters in evaluation order.
func printSummary(snap *bridging.Snapshot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)

	Printer.Fprintln(w, "INTERFACE\tTYPE\tDEVICE")
	for _, i := range snap.Interfaces() {
		Printer.Fprintf(w, "%d\t%s\t%s\n", i.Key, i.Type, dash(i.Device))
	}
	Printer.Fprintln(w)
	w.Flush()

	Printer.Fprintln(w, "BRIDGE\tNAME\tSTANDARD\tSTATUS\tMEMBERS")
	for _, b := range snap.Bridges() {
		status, _ := snap.BridgeStatus(b.Key)
		Printer.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", b.Key, dash(b.Name), b.Standard, status, joinKeys(snap.Members(b.Key)))
	}
	Printer.Fprintln(w)
	w.Flush()

	Printer.Fprintln(w, "FILTER\tORDER\tBRIDGE\tINTERFACE\tSTATUS")
	for _, key := range snap.EvaluationOrder() {
		f, _ := snap.Filter(key)
		status, _ := snap.FilterStatus(key)
		Printer.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", f.Key, orderString(f.ExclusivityOrder), refString(f.BridgeReference), dash(f.Interface.String()), status)
	}
	Printer.Fprintln(w)
	w.Flush()

	Printer.Fprintln(w, "MARKING\tBRIDGE\tINTERFACE\tSTATUS")
	for _, m := range snap.Markings() {
		status, _ := snap.MarkingStatus(m.Key)
		Printer.Fprintf(w, "%d\t%s\t%s\t%s\n", m.Key, refString(m.BridgeReference), dash(m.Interface.String()), status)
	}
	w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func refString(ref int) string {
	if ref < 0 {
		return "-"
	}
	return fmt.Sprint(ref)
}

func orderString(order int) string {
	if order == 0 {
		return "inclusive"
	}
	return fmt.Sprint(order)
}

func joinKeys(keys []int) string {
	if len(keys) == 0 {
		return "-"
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprint(k)
	}
	return strings.Join(parts, ",")
}
