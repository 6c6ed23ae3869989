package cmd

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/l2bridge/internal/bridging"
)

func testTables(t *testing.T) *bridging.Tables {
	t.Helper()
	_, tables, err := loadTables(writeConfig(t, "l2bridge.hcl", testConfig))
	require.NoError(t, err)
	return tables
}

func TestClassify_HeaderFields(t *testing.T) {
	tables := testTables(t)
	opts := DefaultClassifyOptions()
	opts.Ingress = 1

	res, err := classify(tables, opts)
	require.NoError(t, err)
	require.Equal(t, bridging.ReasonNone, res.Reason)
	require.Len(t, res.Deliveries, 1)

	d := res.Deliveries[0]
	assert.Equal(t, 1, d.Bridge)
	assert.Equal(t, 1, d.Filter)
	assert.Equal(t, 2, d.Interface)
	assert.Equal(t, "lan2", d.Device)
	assert.Equal(t, 1, d.Marking)
	assert.Equal(t, bridging.Egress{Tag: bridging.PriorityTagged, Priority: 5}, d.Egress)
}

func TestClassify_IdentityOptions(t *testing.T) {
	tables := testTables(t)
	opts := DefaultClassifyOptions()
	opts.Ingress = 1
	opts.VendorClass = "printer-hp"

	res, err := classify(tables, opts)
	require.NoError(t, err)
	require.Len(t, res.Deliveries, 1)
	assert.Equal(t, 2, res.Deliveries[0].Bridge, "exclusive vendor class filter wins")
	assert.Equal(t, 2, res.Deliveries[0].Filter)
	assert.Zero(t, res.Deliveries[0].Marking)
}

func TestClassify_RawFrame(t *testing.T) {
	tables := testTables(t)
	raw := "ffffffffffff" + "001122334455" + "0800" + strings.Repeat("00", 46)

	opts := DefaultClassifyOptions()
	opts.Ingress = 2
	opts.Frame = raw

	res, err := classify(tables, opts)
	require.NoError(t, err)
	require.Len(t, res.Deliveries, 1)

	d := res.Deliveries[0]
	assert.Equal(t, 1, d.Bridge)
	assert.Equal(t, 1, d.Interface)
	assert.Zero(t, d.Marking, "marking 1 only applies on interface 2")
	assert.Equal(t, raw, hex.EncodeToString(d.Frame))
}

func TestClassify_RawFrameIdentity(t *testing.T) {
	tables := testTables(t)

	opts := DefaultClassifyOptions()
	opts.Ingress = 2
	opts.Frame = "ff:ff:ff:ff:ff:ff 00:11:22:33:44:55 08:00" + strings.Repeat(" 00", 46)
	opts.VendorClass = "printer"

	res, err := classify(tables, opts)
	require.NoError(t, err)
	require.Len(t, res.Deliveries, 1)
	assert.Equal(t, 2, res.Deliveries[0].Bridge)
	assert.Equal(t, 1, res.Deliveries[0].Interface)
}

func TestClassify_Drops(t *testing.T) {
	tables := testTables(t)

	opts := DefaultClassifyOptions()
	opts.Ingress = 3
	res, err := classify(tables, opts)
	require.NoError(t, err)
	assert.Equal(t, bridging.ReasonNoMatch, res.Reason)
	assert.Empty(t, res.Deliveries)

	opts.Frame = "ffffffffffff" + "001122334455" + "0800" + strings.Repeat("00", 46)
	res, err = classify(tables, opts)
	require.NoError(t, err)
	assert.Equal(t, bridging.ReasonNoMatch, res.Reason)
}

func TestHeaderFrame(t *testing.T) {
	opts := DefaultClassifyOptions()
	opts.Ingress = 1
	opts.VLAN = 10
	opts.PCP = 3
	opts.Ethertype = "0x86dd"

	fr, err := headerFrame(opts)
	require.NoError(t, err)
	assert.Equal(t, bridging.VLANTagged, fr.Tag)
	assert.Equal(t, uint16(10), fr.VLANID)
	assert.Equal(t, uint8(3), fr.Priority)
	assert.Equal(t, uint16(0x86dd), fr.EtherType)

	opts.VLAN = 0
	fr, err = headerFrame(opts)
	require.NoError(t, err)
	assert.Equal(t, bridging.PriorityTagged, fr.Tag)

	for name, mutate := range map[string]func(*ClassifyOptions){
		"vlan":      func(o *ClassifyOptions) { o.VLAN = 4095 },
		"pcp":       func(o *ClassifyOptions) { o.PCP = 8 },
		"src":       func(o *ClassifyOptions) { o.Src = "nope" },
		"dst":       func(o *ClassifyOptions) { o.Dst = "00:11" },
		"ethertype": func(o *ClassifyOptions) { o.Ethertype = "ipv4" },
	} {
		t.Run(name, func(t *testing.T) {
			o := DefaultClassifyOptions()
			mutate(&o)
			_, err := headerFrame(o)
			assert.Error(t, err)
		})
	}
}

func TestDecodeHex(t *testing.T) {
	raw, err := decodeHex("de:ad be-ef\n")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, raw)

	_, err = decodeHex("xyz")
	assert.Error(t, err)
}

func TestRunClassify(t *testing.T) {
	path := writeConfig(t, "l2bridge.hcl", testConfig)
	opts := DefaultClassifyOptions()
	opts.Ingress = 1
	assert.NoError(t, RunClassify(path, opts))

	opts.Ingress = 3
	assert.NoError(t, RunClassify(path, opts), "a dropped frame is a result, not an error")
}
