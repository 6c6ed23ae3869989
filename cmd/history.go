package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"grimm.is/l2bridge/internal/audit"
	"grimm.is/l2bridge/internal/config"
	"grimm.is/l2bridge/internal/events"
)

// HistoryOptions selects journal entries to print.
type HistoryOptions struct {
	Limit    int
	Type     string
	Resource string
	Since    time.Duration // Zero means no lower bound
	JSON     bool
}

// RunHistory prints the management event journal kept by the daemon.
func RunHistory(configFile string, opts HistoryOptions) error {
	result, err := config.LoadFileWithOptions(configFile, config.DefaultLoadOptions())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	path := filepath.Join(stateDir(result.Config), auditFileName)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no audit journal at %s (enable the audit block): %w", path, err)
	}

	journal, err := audit.NewStore(path, 0)
	if err != nil {
		return err
	}
	defer journal.Close()

	q := audit.Query{
		Type:     events.EventType(opts.Type),
		Resource: opts.Resource,
		Limit:    opts.Limit,
	}
	if opts.Since > 0 {
		q.Since = time.Now().Add(-opts.Since)
	}
	entries, err := journal.Query(q)
	if err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		Printer.Println("No events recorded.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	Printer.Fprintln(w, "TIME\tTYPE\tRESOURCE\tDETAILS")
	for _, e := range entries {
		Printer.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Type, e.Resource, detailString(e.Details))
	}
	return w.Flush()
}

// detailString renders details as sorted key=value pairs.
func detailString(details map[string]any) string {
	if len(details) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, details[k])
	}
	return strings.Join(parts, " ")
}
