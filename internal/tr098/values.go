package tr098

import (
	"fmt"
	"strconv"
	"strings"

	"grimm.is/l2bridge/internal/bridging"
)

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// parseBool accepts the xsd:boolean lexical forms.
func parseBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, s)
}

func parseInt(s string, min, max int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, s)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%w: %d out of range %d..%d", ErrInvalidValue, v, min, max)
	}
	return v, nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func formatEthertypes(list []uint16) string {
	items := make([]string, len(list))
	for i, v := range list {
		items[i] = strconv.Itoa(int(v))
	}
	return strings.Join(items, ",")
}

func parseEthertypes(s string) ([]uint16, error) {
	out := []uint16{}
	for _, item := range splitList(s) {
		v, err := strconv.ParseUint(item, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: ethertype %q", ErrInvalidValue, item)
		}
		out = append(out, uint16(v))
	}
	return out, nil
}

func formatMACs(list []bridging.MACMatch) string {
	items := make([]string, len(list))
	for i, m := range list {
		items[i] = m.String()
	}
	return strings.Join(items, ",")
}

func parseMACs(s string) ([]bridging.MACMatch, error) {
	out := []bridging.MACMatch{}
	for _, item := range splitList(s) {
		m, err := bridging.ParseMACMatch(item)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func parseSelector(s string) (bridging.Selector, error) {
	sel, err := bridging.ParseSelector(s)
	if err != nil {
		return sel, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return sel, nil
}

// formatIfaceRef renders a port's interface reference; 0 means none.
func formatIfaceRef(key int) string {
	if key == 0 {
		return ""
	}
	return strconv.Itoa(key)
}

func parseIfaceRef(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return parseInt(s, 1, maxInt)
}

const maxInt = int(^uint(0) >> 1)
