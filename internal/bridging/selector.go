package bridging

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Aggregate selector tokens.
const (
	TokenAllInterfaces = "AllInterfaces"
	TokenLANInterfaces = "LANInterfaces"
	TokenWANInterfaces = "WANInterfaces"
)

type selectorKind uint8

const (
	selectNone selectorKind = iota
	selectKey
	selectAll
	selectLAN
	selectWAN
)

// Selector names the interfaces a Filter or Marking entry applies to: a
// single AvailableInterface key, an aggregate token, or nothing.
//
// Selectors are resolved against the registry of the snapshot being
// evaluated. A key selector naming a missing interface selects nothing.
type Selector struct {
	kind selectorKind
	key  int
}

// Predefined aggregate selectors.
var (
	NoInterfaces  = Selector{}
	AllInterfaces = Selector{kind: selectAll}
	LANInterfaces = Selector{kind: selectLAN}
	WANInterfaces = Selector{kind: selectWAN}
)

// InterfaceKey returns a selector naming a single interface.
func InterfaceKey(key int) Selector {
	return Selector{kind: selectKey, key: key}
}

// ParseSelector parses the textual selector form: "", a decimal key, or one
// of AllInterfaces, LANInterfaces, WANInterfaces.
func ParseSelector(s string) (Selector, error) {
	switch s = strings.TrimSpace(s); s {
	case "":
		return NoInterfaces, nil
	case TokenAllInterfaces:
		return AllInterfaces, nil
	case TokenLANInterfaces:
		return LANInterfaces, nil
	case TokenWANInterfaces:
		return WANInterfaces, nil
	}
	key, err := strconv.Atoi(s)
	if err != nil || key < 1 {
		return NoInterfaces, fmt.Errorf("%w: interface selector %q", ErrInvalid, s)
	}
	return InterfaceKey(key), nil
}

// Key returns the interface key of a single-interface selector.
func (s Selector) Key() (int, bool) {
	return s.key, s.kind == selectKey
}

// IsEmpty reports whether the selector selects nothing by construction.
func (s Selector) IsEmpty() bool { return s.kind == selectNone }

func (s Selector) String() string {
	switch s.kind {
	case selectKey:
		return strconv.Itoa(s.key)
	case selectAll:
		return TokenAllInterfaces
	case selectLAN:
		return TokenLANInterfaces
	case selectWAN:
		return TokenWANInterfaces
	}
	return ""
}

// MarshalText implements encoding.TextMarshaler.
func (s Selector) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Selector) UnmarshalText(b []byte) error {
	v, err := ParseSelector(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Contains reports whether the selector selects interface key in snap.
// It does not allocate.
func (s Selector) Contains(snap *Snapshot, key int) bool {
	if s.kind == selectNone {
		return false
	}
	iface, ok := snap.interfaces[key]
	if !ok {
		return false
	}
	return s.admitsType(iface.Type, key)
}

func (s Selector) admitsType(t InterfaceType, key int) bool {
	switch s.kind {
	case selectKey:
		return key == s.key
	case selectAll:
		return t == LANInterface || t == WANInterface
	case selectLAN:
		return t == LANInterface
	case selectWAN:
		return t == WANInterface
	}
	return false
}

// Resolve returns the sorted keys of every interface the selector selects.
func (s Selector) Resolve(snap *Snapshot) []int {
	keys := []int{}
	if s.kind == selectKey {
		if _, ok := snap.interfaces[s.key]; ok {
			keys = append(keys, s.key)
		}
		return keys
	}
	for key, iface := range snap.interfaces {
		if s.admitsType(iface.Type, key) {
			keys = append(keys, key)
		}
	}
	sort.Ints(keys)
	return keys
}
