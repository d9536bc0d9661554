package word

import "testing"

// TestPackDecode tests that Seq and Value round-trip through Pack.
func TestPackDecode(t *testing.T) {
	cases := []struct {
		seq, value uint32
	}{
		{0, 0},
		{0, 1},
		{1, 0},
		{3, 42},
		{0xFFFFFFFF, 0xFFFFFFFF},
		{7, 0x80000000},
	}
	for _, c := range cases {
		s := Pack(c.seq, c.value)
		if s.Seq() != c.seq {
			t.Errorf("Pack(%d, %d).Seq() = %d, want %d", c.seq, c.value, s.Seq(), c.seq)
		}
		if s.Value() != c.value {
			t.Errorf("Pack(%d, %d).Value() = %d, want %d", c.seq, c.value, s.Value(), c.value)
		}
	}
}

// TestBumped tests that every write advances the sequence number, including
// a write of the same value.
func TestBumped(t *testing.T) {
	s := Pack(5, 1)

	next := s.Bumped(2)
	if next.Seq() != 6 || next.Value() != 2 {
		t.Errorf("Bumped(2) = %v, want 2#6", next)
	}

	// Same value, still a distinct state.
	same := s.Bumped(1)
	if same == s {
		t.Errorf("Bumped(same value) = %v, must differ from %v", same, s)
	}
	if same.Seq() != 6 || same.Value() != 1 {
		t.Errorf("Bumped(1) = %v, want 1#6", same)
	}
}

// TestBumpedWraps tests sequence wraparound at 2^32.
func TestBumpedWraps(t *testing.T) {
	s := Pack(0xFFFFFFFF, 9)
	next := s.Bumped(9)
	if next.Seq() != 0 {
		t.Errorf("Bumped at max seq: Seq() = %d, want 0", next.Seq())
	}
}

// TestString tests the debug representation.
func TestString(t *testing.T) {
	if got := Pack(3, 1).String(); got != "1#3" {
		t.Errorf("Pack(3, 1).String() = %q, want %q", got, "1#3")
	}
	if got := Pack(0, 0).String(); got != "0#0" {
		t.Errorf("Pack(0, 0).String() = %q, want %q", got, "0#0")
	}
}
