package config

import (
	"fmt"
	"strconv"
	"strings"
)

// SchemaVersion represents a semantic version for config schemas
type SchemaVersion struct {
	Major int
	Minor int
}

// ParseVersion parses a version string like "1.0" or "2.1".
// An empty string is read as the current version.
func ParseVersion(s string) (SchemaVersion, error) {
	if s == "" {
		s = CurrentSchemaVersion
	}

	major, minor, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minor, ".") {
		return SchemaVersion{}, fmt.Errorf("invalid version format: %s (expected X.Y)", s)
	}

	majorNum, err := strconv.Atoi(major)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("invalid major version: %s", major)
	}
	minorNum, err := strconv.Atoi(minor)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("invalid minor version: %s", minor)
	}

	return SchemaVersion{Major: majorNum, Minor: minorNum}, nil
}

// String returns the version as "X.Y"
func (v SchemaVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1 if v < other, 0 if equal, 1 if v > other
func (v SchemaVersion) Compare(other SchemaVersion) int {
	switch {
	case v.Major != other.Major:
		if v.Major < other.Major {
			return -1
		}
		return 1
	case v.Minor < other.Minor:
		return -1
	case v.Minor > other.Minor:
		return 1
	}
	return 0
}

// SupportedVersions lists all schema versions we can read
var SupportedVersions = []SchemaVersion{
	{Major: 1, Minor: 0},
}

// IsSupportedVersion checks if we have a reader for this version.
// Newer minor versions of a supported major version are accepted.
func IsSupportedVersion(v SchemaVersion) bool {
	for _, supported := range SupportedVersions {
		if v.Major == supported.Major {
			return true
		}
	}
	return false
}
