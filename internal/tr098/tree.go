// Package tr098 exposes the bridging tables as the TR-098
// InternetGatewayDevice.Layer2Bridging. parameter tree.
//
// Instance numbers are the entity keys. Reads are served from one snapshot;
// every write is a single bridging table update, so a SetValues call with
// several parameters either applies completely or not at all.
package tr098

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"grimm.is/l2bridge/internal/bridging"
)

// Root is the path of the Layer2Bridging object.
const Root = "InternetGatewayDevice.Layer2Bridging."

// Object names below Root.
const (
	objBridge    = "Bridge"
	objFilter    = "Filter"
	objMarking   = "Marking"
	objInterface = "AvailableInterface"
	objPort      = "Port"
	objVLAN      = "VLAN"
)

// Param is one parameter of the tree.
type Param struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Writable bool   `json:"writable"`
}

// Tree is the parameter view of a set of bridging tables.
type Tree struct {
	tables *bridging.Tables
}

// New returns the parameter tree of tables.
func New(tables *bridging.Tables) *Tree {
	return &Tree{tables: tables}
}

// ref is a parsed path.
type ref struct {
	table  string // "" for the root object
	key    int
	sub    string // objPort, objVLAN or ""
	subKey int
	// param is empty for object and table paths.
	param string
	// isTable marks a table path without an instance, like "Filter.".
	isTable bool
}

func (r ref) isRoot() bool { return r.table == "" }

func parsePath(path string) (ref, error) {
	if !strings.HasPrefix(path, Root) {
		return ref{}, ErrInvalidName
	}
	rest := strings.TrimPrefix(path, Root)
	partial := rest == "" || strings.HasSuffix(rest, ".")
	rest = strings.TrimSuffix(rest, ".")

	var parts []string
	if rest != "" {
		parts = strings.Split(rest, ".")
	}
	var r ref
	if !partial {
		r.param = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return r, nil
	}

	r.table = parts[0]
	switch r.table {
	case objBridge, objFilter, objMarking, objInterface:
	default:
		return ref{}, ErrInvalidName
	}
	if len(parts) == 1 {
		if r.param != "" {
			return ref{}, ErrInvalidName
		}
		r.isTable = true
		return r, nil
	}

	var ok bool
	if r.key, ok = instance(parts[1]); !ok {
		return ref{}, ErrInvalidName
	}
	if len(parts) == 2 {
		return r, nil
	}

	if r.table != objBridge || (parts[2] != objPort && parts[2] != objVLAN) {
		return ref{}, ErrInvalidName
	}
	r.sub = parts[2]
	if len(parts) == 3 {
		if r.param != "" {
			return ref{}, ErrInvalidName
		}
		r.isTable = true
		return r, nil
	}
	if r.subKey, ok = instance(parts[3]); !ok || len(parts) > 4 {
		return ref{}, ErrInvalidName
	}
	return r, nil
}

func instance(s string) (int, bool) {
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil && n > 0
}

func tableName(obj string) string {
	switch obj {
	case objBridge:
		return bridging.TableBridge
	case objFilter:
		return bridging.TableFilter
	case objMarking:
		return bridging.TableMarking
	}
	return bridging.TableInterface
}

func portIndex(ports []bridging.Port, key int) int {
	for i := range ports {
		if ports[i].Key == key {
			return i
		}
	}
	return -1
}

func vlanIndex(vlans []bridging.VLAN, key int) int {
	for i := range vlans {
		if vlans[i].Key == key {
			return i
		}
	}
	return -1
}

func getField[T any](fields []field[T], name string, snap *bridging.Snapshot, v *T) (Param, error) {
	f := lookup(fields, name)
	if f == nil {
		return Param{}, ErrInvalidName
	}
	return Param{Value: f.get(snap, v), Writable: f.writable()}, nil
}

func setField[T any](fields []field[T], name string, v *T, value string) error {
	f := lookup(fields, name)
	if f == nil {
		return ErrInvalidName
	}
	if !f.writable() {
		return ErrNotWritable
	}
	return f.set(v, value)
}

// Get returns the value of one parameter.
func (t *Tree) Get(path string) (string, error) {
	p, err := t.Param(path)
	if err != nil {
		return "", err
	}
	return p.Value, nil
}

// Param returns one parameter with its writability.
func (t *Tree) Param(path string) (Param, error) {
	r, err := parsePath(path)
	if err == nil && (r.param == "" || r.isTable) {
		err = ErrInvalidName
	}
	if err != nil {
		return Param{}, paramErr(path, err)
	}
	p, err := t.get(t.tables.Snapshot(), r)
	if err != nil {
		return Param{}, paramErr(path, err)
	}
	p.Name = path
	return p, nil
}

func (t *Tree) get(snap *bridging.Snapshot, r ref) (Param, error) {
	switch r.table {
	case "":
		lv := limitsView{limits: t.tables.Limits()}
		return getField(rootFields, r.param, snap, &lv)
	case objBridge:
		b, ok := snap.Bridge(r.key)
		if !ok {
			return Param{}, ErrInvalidName
		}
		switch r.sub {
		case objPort:
			i := portIndex(b.Ports, r.subKey)
			if i < 0 {
				return Param{}, ErrInvalidName
			}
			return getField(portFields, r.param, snap, &b.Ports[i])
		case objVLAN:
			i := vlanIndex(b.VLANs, r.subKey)
			if i < 0 {
				return Param{}, ErrInvalidName
			}
			return getField(vlanFields, r.param, snap, &b.VLANs[i])
		}
		return getField(bridgeFields, r.param, snap, &b)
	case objFilter:
		f, ok := snap.Filter(r.key)
		if !ok {
			return Param{}, ErrInvalidName
		}
		return getField(filterFields, r.param, snap, &f)
	case objMarking:
		m, ok := snap.Marking(r.key)
		if !ok {
			return Param{}, ErrInvalidName
		}
		return getField(markingFields, r.param, snap, &m)
	default:
		i, ok := snap.Interface(r.key)
		if !ok {
			return Param{}, ErrInvalidName
		}
		return getField(interfaceFields, r.param, snap, &i)
	}
}

// exists reports whether the object an object or table path names exists.
func exists(snap *bridging.Snapshot, r ref) bool {
	switch {
	case r.isRoot():
		return true
	case r.isTable && r.sub == "":
		return true
	}
	switch r.table {
	case objBridge:
		b, ok := snap.Bridge(r.key)
		switch {
		case !ok:
			return false
		case r.isTable:
			return true
		case r.sub == objPort:
			return portIndex(b.Ports, r.subKey) >= 0
		case r.sub == objVLAN:
			return vlanIndex(b.VLANs, r.subKey) >= 0
		}
		return true
	case objFilter:
		_, ok := snap.Filter(r.key)
		return ok
	case objMarking:
		_, ok := snap.Marking(r.key)
		return ok
	}
	_, ok := snap.Interface(r.key)
	return ok
}

// Walk returns every parameter whose name starts with prefix, in tree
// order: the root parameters, then bridges with their ports and VLANs,
// filters, markings and available interfaces, each by instance number.
// A full parameter path returns just that parameter. An empty prefix
// walks the whole tree.
func (t *Tree) Walk(prefix string) ([]Param, error) {
	if prefix == "" {
		prefix = Root
	}
	r, err := parsePath(prefix)
	if err != nil {
		return nil, paramErr(prefix, err)
	}
	snap := t.tables.Snapshot()

	if r.param != "" {
		p, err := t.get(snap, r)
		if err != nil {
			return nil, paramErr(prefix, err)
		}
		p.Name = prefix
		return []Param{p}, nil
	}
	if !exists(snap, r) {
		return nil, paramErr(prefix, ErrInvalidName)
	}

	var out []Param
	for _, p := range t.collect(snap) {
		if strings.HasPrefix(p.Name, prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}

func appendAll[T any](out *[]Param, base string, fields []field[T], snap *bridging.Snapshot, v *T) {
	for i := range fields {
		f := &fields[i]
		*out = append(*out, Param{Name: base + f.name, Value: f.get(snap, v), Writable: f.writable()})
	}
}

func (t *Tree) collect(snap *bridging.Snapshot) []Param {
	var out []Param
	lv := limitsView{limits: t.tables.Limits()}
	appendAll(&out, Root, rootFields, snap, &lv)

	for _, b := range snap.Bridges() {
		base := fmt.Sprintf("%s%s.%d.", Root, objBridge, b.Key)
		appendAll(&out, base, bridgeFields, snap, &b)

		sort.Slice(b.Ports, func(i, j int) bool { return b.Ports[i].Key < b.Ports[j].Key })
		for i := range b.Ports {
			appendAll(&out, fmt.Sprintf("%s%s.%d.", base, objPort, b.Ports[i].Key), portFields, snap, &b.Ports[i])
		}
		sort.Slice(b.VLANs, func(i, j int) bool { return b.VLANs[i].Key < b.VLANs[j].Key })
		for i := range b.VLANs {
			appendAll(&out, fmt.Sprintf("%s%s.%d.", base, objVLAN, b.VLANs[i].Key), vlanFields, snap, &b.VLANs[i])
		}
	}
	for _, f := range snap.Filters() {
		appendAll(&out, fmt.Sprintf("%s%s.%d.", Root, objFilter, f.Key), filterFields, snap, &f)
	}
	for _, m := range snap.Markings() {
		appendAll(&out, fmt.Sprintf("%s%s.%d.", Root, objMarking, m.Key), markingFields, snap, &m)
	}
	for _, i := range snap.Interfaces() {
		appendAll(&out, fmt.Sprintf("%s%s.%d.", Root, objInterface, i.Key), interfaceFields, snap, &i)
	}
	return out
}

// Set sets one parameter.
func (t *Tree) Set(path, value string) error {
	return t.SetValues(map[string]string{path: value})
}

// SetValues sets several parameters in one table update. If any name,
// value or resulting table state is invalid, nothing changes.
func (t *Tree) SetValues(values map[string]string) error {
	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	return t.tables.Update(func(tx *bridging.Tx) error {
		for _, path := range paths {
			if err := setValue(tx, path, values[path]); err != nil {
				return paramErr(path, err)
			}
		}
		return nil
	})
}

func setValue(tx *bridging.Tx, path, value string) error {
	r, err := parsePath(path)
	if err != nil {
		return err
	}
	if r.param == "" || r.isTable {
		return ErrInvalidName
	}

	switch r.table {
	case "":
		if lookup(rootFields, r.param) != nil {
			return ErrNotWritable
		}
		return ErrInvalidName
	case objBridge:
		b, ok := tx.Bridge(r.key)
		if !ok {
			return ErrInvalidName
		}
		switch r.sub {
		case objPort:
			i := portIndex(b.Ports, r.subKey)
			if i < 0 {
				return ErrInvalidName
			}
			err = setField(portFields, r.param, &b.Ports[i], value)
		case objVLAN:
			i := vlanIndex(b.VLANs, r.subKey)
			if i < 0 {
				return ErrInvalidName
			}
			err = setField(vlanFields, r.param, &b.VLANs[i], value)
		default:
			err = setField(bridgeFields, r.param, &b, value)
		}
		if err != nil {
			return err
		}
		return tx.UpdateBridge(b)
	case objFilter:
		f, ok := tx.Filter(r.key)
		if !ok {
			return ErrInvalidName
		}
		if err := setField(filterFields, r.param, &f, value); err != nil {
			return err
		}
		return tx.UpdateFilter(f)
	case objMarking:
		m, ok := tx.Marking(r.key)
		if !ok {
			return ErrInvalidName
		}
		if err := setField(markingFields, r.param, &m, value); err != nil {
			return err
		}
		return tx.UpdateMarking(m)
	default:
		i, ok := tx.Interface(r.key)
		if !ok {
			return ErrInvalidName
		}
		return setField(interfaceFields, r.param, &i, value)
	}
}

// AddObject creates an instance in the table named by tablePath, such as
// Root+"Filter." or Root+"Bridge.1.Port.", with creation defaults. A zero
// key picks one more than the highest existing instance. It returns the
// new instance number.
func (t *Tree) AddObject(tablePath string, key int) (int, error) {
	r, err := parsePath(tablePath)
	if err == nil && !r.isTable {
		err = ErrInvalidName
	}
	if err == nil && key < 0 {
		err = fmt.Errorf("%w: instance %d", ErrInvalidValue, key)
	}
	if err != nil {
		return 0, paramErr(tablePath, err)
	}

	err = t.tables.Update(func(tx *bridging.Tx) error {
		if r.table == objInterface {
			return ErrNotWritable
		}
		if r.sub == "" {
			if key == 0 {
				key = tx.NextKey(tableName(r.table))
			}
			switch r.table {
			case objBridge:
				return tx.AddBridge(bridging.NewBridge(key))
			case objFilter:
				return tx.AddFilter(bridging.NewFilter(key))
			default:
				return tx.AddMarking(bridging.NewMarking(key))
			}
		}

		b, ok := tx.Bridge(r.key)
		if !ok {
			return ErrInvalidName
		}
		if r.sub == objPort {
			if key == 0 {
				for _, p := range b.Ports {
					key = max(key, p.Key)
				}
				key++
			}
			if portIndex(b.Ports, key) >= 0 {
				return fmt.Errorf("%w: port %d", bridging.ErrExists, key)
			}
			b.Ports = append(b.Ports, bridging.Port{
				Key:                  key,
				PVID:                 1,
				AcceptableFrameTypes: bridging.AdmitAll,
			})
		} else {
			if key == 0 {
				for _, v := range b.VLANs {
					key = max(key, v.Key)
				}
				key++
			}
			if vlanIndex(b.VLANs, key) >= 0 {
				return fmt.Errorf("%w: VLAN %d", bridging.ErrExists, key)
			}
			b.VLANs = append(b.VLANs, bridging.VLAN{Key: key, VLANID: unusedVLANID(b.VLANs)})
		}
		return tx.UpdateBridge(b)
	})
	if err != nil {
		return 0, paramErr(tablePath, err)
	}
	return key, nil
}

// unusedVLANID returns the lowest VLAN ID no entry of vlans uses.
func unusedVLANID(vlans []bridging.VLAN) int {
	used := make(map[int]bool, len(vlans))
	for _, v := range vlans {
		used[v.VLANID] = true
	}
	id := 1
	for used[id] {
		id++
	}
	return id
}

// DeleteObject removes the instance named by path, such as
// Root+"Filter.3.".
func (t *Tree) DeleteObject(path string) error {
	r, err := parsePath(path)
	if err == nil && (r.isRoot() || r.isTable || r.param != "") {
		err = ErrInvalidName
	}
	if err != nil {
		return paramErr(path, err)
	}

	err = t.tables.Update(func(tx *bridging.Tx) error {
		switch r.table {
		case objInterface:
			return ErrNotWritable
		case objFilter:
			return tx.DeleteFilter(r.key)
		case objMarking:
			return tx.DeleteMarking(r.key)
		}
		if r.sub == "" {
			return tx.DeleteBridge(r.key)
		}
		b, ok := tx.Bridge(r.key)
		if !ok {
			return ErrInvalidName
		}
		if r.sub == objPort {
			i := portIndex(b.Ports, r.subKey)
			if i < 0 {
				return ErrInvalidName
			}
			b.Ports = append(b.Ports[:i], b.Ports[i+1:]...)
		} else {
			i := vlanIndex(b.VLANs, r.subKey)
			if i < 0 {
				return ErrInvalidName
			}
			b.VLANs = append(b.VLANs[:i], b.VLANs[i+1:]...)
		}
		return tx.UpdateBridge(b)
	})
	if err != nil {
		return paramErr(path, err)
	}
	return nil
}
