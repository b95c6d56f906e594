package blf

import "testing"

func TestDirectionFromCode(t *testing.T) {
	cases := []struct {
		code uint16
		want Direction
	}{
		{0, DirectionIn},
		{1, DirectionOut},
		{2, DirectionOut},
		{9, DirectionUnknown},
	}
	for _, c := range cases {
		if got := directionFromCode(c.code); got != c.want {
			t.Errorf("directionFromCode(%d) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestIfaceStatusName(t *testing.T) {
	if got := ifaceStatusName(2, 5); got != "STATUS-ETH-2-5" {
		t.Errorf("ifaceStatusName(2, 5) = %q, want %q", got, "STATUS-ETH-2-5")
	}
}
