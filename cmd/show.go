package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/tr098"
)

// RunShow prints the tables a configuration file declares.
// With params set it prints the TR-098 parameters below prefix instead of
// the table summary; prefix may omit the Layer2Bridging root. With asJSON
// set the same content is printed as JSON.
func RunShow(configFile string, params bool, prefix string, asJSON bool) error {
	_, tables, err := loadTables(configFile)
	if err != nil {
		return err
	}

	if !params {
		if asJSON {
			return printJSON(tables.Snapshot().Document())
		}
		printSummary(tables.Snapshot())
		return nil
	}

	if prefix != "" {
		prefix = qualify(prefix)
	}
	list, err := tr098.New(tables).Walk(prefix)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(list)
	}
	Printer.Print(formatParams(list))
	return nil
}

// formatParams renders one "name = value" line per parameter; read-only
// parameters are suffixed with "(ro)".
func formatParams(list []tr098.Param) string {
	var sb strings.Builder
	for _, p := range list {
		fmt.Fprintf(&sb, "%s = %q", p.Name, p.Value)
		if !p.Writable {
			sb.WriteString(" (ro)")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// paramText returns the full parameter listing of tables.
func paramText(tables *bridging.Tables) (string, error) {
	list, err := tr098.New(tables).Walk(tr098.Root)
	if err != nil {
		return "", err
	}
	return formatParams(list), nil
}
