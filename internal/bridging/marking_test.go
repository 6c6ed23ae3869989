package bridging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMark_LowestKeyWins(t *testing.T) {
	tbl := newTestTables(t)
	addMarkings(t, tbl,
		NewMarkingBuilder(5).Enable().Bridge(1).Interface(InterfaceKey(2)).VLANMark(200, true).Build(),
		NewMarkingBuilder(3).Enable().Bridge(1).Interface(LANInterfaces).VLANMark(100, true).Build(),
	)

	res := tbl.Snapshot().Mark(1, 2, Egress{Tag: VLANTagged, VLANID: 10})

	assert.True(t, res.Matched)
	assert.Equal(t, 3, res.Marking)
	assert.Equal(t, Egress{Tag: VLANTagged, VLANID: 100}, res.Egress)
}

func TestMark_Selection(t *testing.T) {
	tbl := newTestTables(t)
	addMarkings(t, tbl,
		NewMarkingBuilder(1).Bridge(1).Interface(AllInterfaces).Untag().Build(),       // disabled
		NewMarkingBuilder(2).Enable().Bridge(2).Interface(AllInterfaces).Untag().Build(), // other bridge
		NewMarkingBuilder(4).Enable().Bridge(1).Interface(WANInterfaces).Untag().Build(),
	)
	s := tbl.Snapshot()
	in := Egress{Tag: VLANTagged, VLANID: 10, Priority: 3}

	res := s.Mark(1, 1, in)
	assert.False(t, res.Matched)
	assert.Equal(t, in, res.Egress)

	res = s.Mark(1, 3, in)
	assert.True(t, res.Matched)
	assert.Equal(t, 4, res.Marking)

	res = s.Mark(9, 1, in)
	assert.False(t, res.Matched, "missing bridge")
}

func TestMark_Apply(t *testing.T) {
	tests := []struct {
		name    string
		marking *MarkingBuilder
		in      Egress
		want    Egress
	}{
		{
			name:    "untag strips regardless of marks",
			marking: NewMarkingBuilder(1).Untag().VLANMark(100, true).PriorityMark(5, true),
			in:      Egress{Tag: VLANTagged, VLANID: 10, Priority: 3},
			want:    Egress{Tag: Untagged, VLANID: 0, Priority: 5},
		},
		{
			name:    "untag priority frame",
			marking: NewMarkingBuilder(1).Untag(),
			in:      Egress{Tag: PriorityTagged, Priority: 6},
			want:    Egress{Tag: Untagged, Priority: 6},
		},
		{
			name:    "vlan mark override",
			marking: NewMarkingBuilder(1).VLANMark(100, true),
			in:      Egress{Tag: VLANTagged, VLANID: 10},
			want:    Egress{Tag: VLANTagged, VLANID: 100},
		},
		{
			name:    "vlan mark skips tagged without override",
			marking: NewMarkingBuilder(1).VLANMark(100, false),
			in:      Egress{Tag: VLANTagged, VLANID: 10},
			want:    Egress{Tag: VLANTagged, VLANID: 10},
		},
		{
			name:    "vlan mark applies to priority frames",
			marking: NewMarkingBuilder(1).VLANMark(100, false),
			in:      Egress{Tag: PriorityTagged, Priority: 4},
			want:    Egress{Tag: VLANTagged, VLANID: 100, Priority: 4},
		},
		{
			name:    "no vlan mark keeps bridging vlan",
			marking: NewMarkingBuilder(1),
			in:      Egress{Tag: VLANTagged, VLANID: 10, Priority: 2},
			want:    Egress{Tag: VLANTagged, VLANID: 10, Priority: 2},
		},
		{
			name:    "priority override",
			marking: NewMarkingBuilder(1).PriorityMark(5, true),
			in:      Egress{Tag: VLANTagged, VLANID: 10, Priority: 3},
			want:    Egress{Tag: VLANTagged, VLANID: 10, Priority: 5},
		},
		{
			name:    "priority skips non-zero without override",
			marking: NewMarkingBuilder(1).PriorityMark(5, false),
			in:      Egress{Tag: VLANTagged, VLANID: 10, Priority: 3},
			want:    Egress{Tag: VLANTagged, VLANID: 10, Priority: 3},
		},
		{
			name:    "priority on untagged adds priority tag",
			marking: NewMarkingBuilder(1).PriorityMark(5, false),
			in:      Egress{Tag: Untagged},
			want:    Egress{Tag: PriorityTagged, Priority: 5},
		},
		{
			name:    "zero priority leaves untagged",
			marking: NewMarkingBuilder(1).PriorityMark(0, true),
			in:      Egress{Tag: Untagged},
			want:    Egress{Tag: Untagged},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newTestTables(t)
			addMarkings(t, tbl, tt.marking.Enable().Bridge(1).Interface(AllInterfaces).Build())

			res := tbl.Snapshot().Mark(1, 1, tt.in)

			assert.True(t, res.Matched)
			assert.Equal(t, tt.want, res.Egress)
		})
	}
}

func TestMark_DoesNotAllocate(t *testing.T) {
	tbl := newTestTables(t)
	addMarkings(t, tbl, NewMarkingBuilder(1).Enable().Bridge(1).Interface(AllInterfaces).PriorityMark(3, true).Build())
	s := tbl.Snapshot()

	allocs := testing.AllocsPerRun(100, func() {
		_ = s.Mark(1, 2, Egress{Tag: VLANTagged, VLANID: 7})
	})
	assert.Zero(t, allocs)
}
