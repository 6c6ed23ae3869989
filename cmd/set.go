package cmd

import (
	"fmt"
	"strings"

	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/config"
	"grimm.is/l2bridge/internal/tr098"
)

// RunSet applies TR-098 "path=value" assignments to the tables of
// configFile and writes the result back. Either every assignment is
// applied or the file is left untouched.
func RunSet(configFile string, assignments []string) error {
	if len(assignments) == 0 {
		return fmt.Errorf("no assignments given")
	}
	values, err := parseAssignments(assignments)
	if err != nil {
		return err
	}

	return editTables(configFile, func(tree *tr098.Tree) error {
		return tree.SetValues(values)
	})
}

// RunAdd creates an instance in the table at tablePath, such as
// "InternetGatewayDevice.Layer2Bridging.Filter.", and writes the result back.
// A zero key picks the next free instance number.
func RunAdd(configFile, tablePath string, key int) error {
	return editTables(configFile, func(tree *tr098.Tree) error {
		added, err := tree.AddObject(qualify(tablePath), key)
		if err != nil {
			return err
		}
		Printer.Printf("Added %s%d.\n", qualify(tablePath), added)
		return nil
	})
}

// RunDelete removes the instance at path and writes the result back.
func RunDelete(configFile, path string) error {
	return editTables(configFile, func(tree *tr098.Tree) error {
		return tree.DeleteObject(qualify(path))
	})
}

// editTables loads configFile, runs edit on its parameter tree and saves
// the edited tables. Errors carry their CWMP fault code.
func editTables(configFile string, edit func(*tr098.Tree) error) error {
	cfg, tables, err := loadTables(configFile)
	if err != nil {
		return err
	}
	before := tables.Snapshot().Version()

	if err := edit(tr098.New(tables)); err != nil {
		return fmt.Errorf("fault %d: %w", tr098.FaultCode(err), err)
	}
	snap := tables.Snapshot()
	if snap.Version() == before {
		Printer.Println("No changes.")
		return nil
	}

	bridging.ApplyToConfig(cfg, snap.Document())
	if err := config.SaveFile(cfg, configFile); err != nil {
		return err
	}
	Printer.Printf("Saved %s\n", configFile)
	return nil
}

// parseAssignments splits "path=value" arguments. Paths may omit the
// InternetGatewayDevice.Layer2Bridging. prefix.
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		path, value, ok := strings.Cut(arg, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected path=value", arg)
		}
		path = qualify(path)
		if _, dup := values[path]; dup {
			return nil, fmt.Errorf("parameter %s assigned twice", path)
		}
		values[path] = value
	}
	return values, nil
}

// qualify prefixes a relative path with the Layer2Bridging root.
func qualify(path string) string {
	if strings.HasPrefix(path, "InternetGatewayDevice.") {
		return path
	}
	return tr098.Root + path
}
