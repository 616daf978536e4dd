package length

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func TestLength(t *testing.T) {
	tests := []struct {
		name   string
		radius float64
		ppr    uint32
		deltas []int32
		want   float64
	}{
		{
			name:   "one revolution",
			radius: 0.01,
			ppr:    2048,
			deltas: []int32{2048},
			want:   2 * math.Pi * 0.01,
		},
		{
			name:   "two revolutions in two steps",
			radius: 0.01,
			ppr:    2048,
			deltas: []int32{2048, 2048},
			want:   4 * math.Pi * 0.01,
		},
		{
			name:   "backwards",
			radius: 0.05,
			ppr:    400,
			deltas: []int32{-400},
			want:   -2 * math.Pi * 0.05,
		},
		{
			name:   "there and back",
			radius: 0.05,
			ppr:    400,
			deltas: []int32{1000, -1000},
			want:   0,
		},
		{
			name:   "no movement",
			radius: 0.02,
			ppr:    1024,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := New(tt.radius, tt.ppr)
			for _, d := range tt.deltas {
				acc.UpdateWithDifference(d)
			}
			if got := acc.Length(); math.Abs(got-tt.want) > tolerance {
				t.Errorf("Length() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeltaGroupingDoesNotMatter(t *testing.T) {
	deltas := []int32{17, -3, 2048, 5, -900, 1, 1, 1}

	single := New(0.03, 600)
	var sum int32
	for _, d := range deltas {
		single.UpdateWithDifference(d)
		sum += d
	}

	grouped := New(0.03, 600)
	grouped.UpdateWithDifference(sum)

	if single.Position() != grouped.Position() {
		t.Fatalf("positions differ: %d != %d", single.Position(), grouped.Position())
	}
	if single.Length() != grouped.Length() {
		t.Errorf("lengths differ: %v != %v", single.Length(), grouped.Length())
	}
}

func TestZeroDeltaIsIdentity(t *testing.T) {
	acc := New(0.01, 2048)
	acc.UpdateWithDifference(123)
	before := acc.Length()
	acc.UpdateWithDifference(0)
	if got := acc.Length(); got != before {
		t.Errorf("Length() changed from %v to %v", before, got)
	}
}

func TestReset(t *testing.T) {
	acc := New(0.01, 2048)
	acc.UpdateWithDifference(5000)
	acc.Reset()
	if got := acc.Length(); got != 0 {
		t.Errorf("Length() after Reset = %v, want 0", got)
	}
	acc.Reset()
	if got := acc.Position(); got != 0 {
		t.Errorf("Position() after second Reset = %d, want 0", got)
	}
}

func TestNoDriftOverManyTicks(t *testing.T) {
	acc := New(0.01, 2048)
	for i := 0; i < 2048*1000; i++ {
		acc.UpdateWithDifference(1)
	}
	want := 1000 * 2 * math.Pi * 0.01
	if got := acc.Length(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Length() = %v, want %v", got, want)
	}
	if got := acc.Revolutions(); got != 1000 {
		t.Errorf("Revolutions() = %v, want 1000", got)
	}
}

func TestPositionBeyondInt32(t *testing.T) {
	acc := New(0.01, 2048)
	for i := 0; i < 4; i++ {
		acc.UpdateWithDifference(math.MaxInt32)
	}
	if got, want := acc.Position(), int64(4)*math.MaxInt32; got != want {
		t.Errorf("Position() = %d, want %d", got, want)
	}
}
