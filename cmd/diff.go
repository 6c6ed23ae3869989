package cmd

import (
	"errors"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/l2bridge/internal/bridging"
	"grimm.is/l2bridge/internal/config"
)

// ErrConfigsDiffer is returned by RunDiff when the tables differ.
var ErrConfigsDiffer = errors.New("configurations differ")

// RunDiff compares the bridging tables declared by two configuration
// files. Both are normalized first, so formatting, key order and omitted
// defaults do not show up. With params set the comparison is over the
// TR-098 parameter listing.
func RunDiff(fileA, fileB string, params bool) error {
	text, err := diffConfigs(fileA, fileB, params)
	if err != nil {
		return err
	}
	if text == "" {
		Printer.Println("No changes detected.")
		return nil
	}
	fmt.Print(text)
	return ErrConfigsDiffer
}

// diffConfigs returns the unified diff between the two files, or "" when
// they declare the same tables.
func diffConfigs(fileA, fileB string, params bool) (string, error) {
	a, err := normalized(fileA, params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", fileA, err)
	}
	b, err := normalized(fileB, params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", fileB, err)
	}
	if a == b {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: fileA,
		ToFile:   fileB,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// normalized renders the tables of configFile in canonical form.
func normalized(configFile string, params bool) (string, error) {
	_, tables, err := loadTables(configFile)
	if err != nil {
		return "", err
	}
	if params {
		return paramText(tables)
	}

	var out config.Config
	bridging.ApplyToConfig(&out, tables.Snapshot().Document())
	out.SchemaVersion = config.CurrentSchemaVersion
	data, err := config.Marshal(&out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
