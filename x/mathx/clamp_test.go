package mathx

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-3, 0, 10, 0},
		{42, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
		{5, 10, 0, 5}, // swapped bounds
	}
	for _, tc := range cases {
		if got := Clamp(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
}

func TestMinMax(t *testing.T) {
	if got := Min(uint16(3), 9); got != 3 {
		t.Errorf("Min(3, 9) = %d", got)
	}
	if got := Max(uint16(3), 9); got != 9 {
		t.Errorf("Max(3, 9) = %d", got)
	}
	if got := Min("a", "b"); got != "a" {
		t.Errorf("Min(a, b) = %q", got)
	}
}
