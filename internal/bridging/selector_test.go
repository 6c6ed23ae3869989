package bridging

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		want    Selector
		wantErr bool
	}{
		{"", NoInterfaces, false},
		{"AllInterfaces", AllInterfaces, false},
		{"LANInterfaces", LANInterfaces, false},
		{"WANInterfaces", WANInterfaces, false},
		{"7", InterfaceKey(7), false},
		{" 12 ", InterfaceKey(12), false},
		{"0", NoInterfaces, true},
		{"-3", NoInterfaces, true},
		{"eth0", NoInterfaces, true},
		{"allinterfaces", NoInterfaces, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelector(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestSelector_Resolve(t *testing.T) {
	tbl := newTestTables(t)
	update(t, tbl, func(tx *Tx) error {
		if err := tx.AddInterface(NewAvailableInterface(4, LANConnection)); err != nil {
			return err
		}
		return tx.AddInterface(NewAvailableInterface(5, WANInterface))
	})
	s := tbl.Snapshot()

	assert.Equal(t, []int{1, 2, 3, 5}, AllInterfaces.Resolve(s))
	assert.Equal(t, []int{1, 2}, LANInterfaces.Resolve(s))
	assert.Equal(t, []int{3, 5}, WANInterfaces.Resolve(s))
	assert.Equal(t, []int{4}, InterfaceKey(4).Resolve(s))
	assert.Empty(t, InterfaceKey(9).Resolve(s))
	assert.Empty(t, NoInterfaces.Resolve(s))

	assert.True(t, LANInterfaces.Contains(s, 2))
	assert.False(t, LANInterfaces.Contains(s, 4))
	assert.False(t, InterfaceKey(9).Contains(s, 9))
}

func TestSelector_JSON(t *testing.T) {
	m := NewMarkingBuilder(1).Interface(WANInterfaces).Build()

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"interface":"WANInterfaces"`)

	var back Marking
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, m, back)
}

func TestParseMACMatch(t *testing.T) {
	m, err := ParseMACMatch("00:11:22:33:44:55")
	require.NoError(t, err)
	assert.Equal(t, ExactMAC(macA), m)
	assert.Equal(t, "00:11:22:33:44:55", m.String())

	m, err = ParseMACMatch("00-11-22-00-00-00/ff:ff:ff:00:00:00")
	require.NoError(t, err)
	assert.True(t, m.Matches(macA))
	assert.False(t, m.Matches(macB))
	assert.Equal(t, "00:11:22:00:00:00/ff:ff:ff:00:00:00", m.String())

	zero := MACMatch{Addr: macC}
	assert.True(t, zero.Matches(macA), "an all-zero mask matches everything")

	for _, bad := range []string{"", "00:11:22", "zz:11:22:33:44:55", "00:11:22:33:44:55/ff"} {
		_, err := ParseMACMatch(bad)
		assert.Error(t, err, bad)
	}
}
