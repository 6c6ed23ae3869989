// Package validation checks free-form strings that end up in kernel
// interfaces or bounded TR-098 string parameters.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxInterfaceName is IFNAMSIZ minus the terminating NUL.
const MaxInterfaceName = 15

var (
	// Alphanumeric, dash, underscore and dot (for VLAN subinterfaces).
	interfaceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,15}$`)

	// Characters that should never appear in a device name.
	dangerousChars = []string{";", "|", "&", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r", "/"}
)

// ValidateInterfaceName validates a network device name.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name cannot be empty")
	}
	if len(name) > MaxInterfaceName {
		return fmt.Errorf("interface name too long (max %d characters): %s", MaxInterfaceName, name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid interface name: %s", name)
	}
	for _, char := range dangerousChars {
		if strings.Contains(name, char) {
			return fmt.Errorf("interface name contains dangerous character: %q", char)
		}
	}
	if !interfaceNameRegex.MatchString(name) {
		return fmt.Errorf("invalid interface name: %s (must be alphanumeric with -_.)", name)
	}
	return nil
}

// ValidateLength checks that s is valid UTF-8 of at most max characters,
// the bound of a TR-098 string(max) parameter.
func ValidateLength(s string, max int) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("not valid UTF-8")
	}
	if n := utf8.RuneCountInString(s); n > max {
		return fmt.Errorf("too long (%d characters, max %d)", n, max)
	}
	return nil
}
