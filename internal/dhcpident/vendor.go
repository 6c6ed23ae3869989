package dhcpident

import (
	"bufio"
	"compress/gzip"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"grimm.is/l2bridge/internal/bridging"
)

// RandomMAC is the vendor reported for locally administered addresses.
const RandomMAC = "Random MAC"

// VendorDB maps IEEE registry prefixes to manufacturers.
//
// Keys are upper-case hex prefixes of 6 (MA-L), 7 (MA-M) or 9 (MA-S)
// digits. The on-disk form is a gzip-compressed gob stream.
type VendorDB struct {
	Entries map[string]VendorEntry
	Updated time.Time
}

// VendorEntry is one registry assignment.
type VendorEntry struct {
	Manufacturer string
}

// NewVendorDB returns an empty database.
func NewVendorDB() *VendorDB {
	return &VendorDB{Entries: make(map[string]VendorEntry)}
}

// Registry lines look like:
//
//	00-00-5E   (hex)		USC INFORMATION SCIENCES INST
//	70-B3-D5-0A-1     (hex)		Some MA-S Vendor
var registryLine = regexp.MustCompile(`^([0-9A-F]{2})-([0-9A-F]{2})-([0-9A-F]{2})([-0-9A-F]*)\s+\(hex\)\s+(.+)$`)

// ParseRegistry adds the assignments of an IEEE registry text file
// (oui.txt, mam.txt, oui36.txt or iab.txt) and returns how many it read.
func (db *VendorDB) ParseRegistry(r io.Reader) (int, error) {
	n := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := registryLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		prefix := m[1] + m[2] + m[3] + strings.ReplaceAll(m[4], "-", "")
		db.Entries[prefix] = VendorEntry{Manufacturer: strings.TrimSpace(m[5])}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, err
	}
	db.Updated = time.Now()
	return n, nil
}

// Lookup returns the manufacturer for mac using the longest registered
// prefix. It returns RandomMAC for locally administered addresses and ""
// when nothing matches. A nil database matches nothing.
func (db *VendorDB) Lookup(mac bridging.MAC) string {
	if db == nil {
		return ""
	}
	if mac[0]&0x02 != 0 {
		return RandomMAC
	}
	raw := strings.ToUpper(hex.EncodeToString(mac[:]))
	for _, n := range []int{9, 7, 6} {
		if e, ok := db.Entries[raw[:n]]; ok {
			return e.Manufacturer
		}
	}
	return ""
}

// Len returns the number of prefixes.
func (db *VendorDB) Len() int {
	if db == nil {
		return 0
	}
	return len(db.Entries)
}

// Save writes the compact form of db to w.
func (db *VendorDB) Save(w io.Writer) error {
	zw := gzip.NewWriter(w)
	if err := gob.NewEncoder(zw).Encode(db); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// SaveFile writes the compact form of db to path.
func (db *VendorDB) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := db.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadVendorDB reads a database written by Save.
func LoadVendorDB(r io.Reader) (*VendorDB, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("vendor database: %w", err)
	}
	defer zr.Close()

	var db VendorDB
	if err := gob.NewDecoder(zr).Decode(&db); err != nil {
		return nil, fmt.Errorf("vendor database: %w", err)
	}
	if db.Entries == nil {
		db.Entries = make(map[string]VendorEntry)
	}
	return &db, nil
}

// LoadVendorFile reads a database written by SaveFile.
func LoadVendorFile(path string) (*VendorDB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadVendorDB(f)
}
