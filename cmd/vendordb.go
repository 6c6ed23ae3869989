package cmd

import (
	"errors"
	"fmt"
	"os"

	"grimm.is/l2bridge/internal/dhcpident"
)

// RunVendorDB builds a compact vendor database from IEEE registry text
// files (oui.txt, mam.txt, oui36.txt, iab.txt) and writes it to output.
func RunVendorDB(output string, registries []string) error {
	if output == "" {
		return errors.New("output file required")
	}
	if len(registries) == 0 {
		return errors.New("at least one registry file required")
	}

	db := dhcpident.NewVendorDB()
	for _, path := range registries {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		n, err := db.ParseRegistry(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		Printer.Printf("%s: %d prefixes\n", path, n)
	}
	if err := db.SaveFile(output); err != nil {
		return err
	}
	Printer.Printf("Wrote %d prefixes to %s\n", db.Len(), output)
	return nil
}
