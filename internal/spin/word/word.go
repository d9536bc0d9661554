// Package word implements the packed state of a single modeled memory word.
//
// State packs a write sequence number and the stored value into one 64-bit
// cell:
// - Top 32 bits: Seq, bumped by every write to the word
// - Bottom 32 bits: Value, the program-visible contents
//
// The sequence number is what makes load-linked/store-conditional emulation
// sound: a store-conditional compares against the full packed state captured
// at load-linked time, so any intervening write fails it — including a write
// that restores the old value, which a value-only compare-and-swap would miss
// (the ABA problem).
package word

// State is the 64-bit packed state of one word.
// Layout: [Seq:32][Value:32]
//
// Example: 0x0000000300000001 represents Seq=3, Value=1.
type State uint64

const (
	// ValueBits is the number of bits holding the program-visible value.
	ValueBits = 32

	// ValueMask extracts the value from a packed state (0x00000000FFFFFFFF).
	ValueMask = (1 << ValueBits) - 1
)

// Pack builds a state from a sequence number and a value.
//
//go:nosplit
func Pack(seq, value uint32) State {
	return State(uint64(seq)<<ValueBits | uint64(value))
}

// Seq extracts the write sequence number.
//
//go:nosplit
func (s State) Seq() uint32 {
	return uint32(s >> ValueBits)
}

// Value extracts the program-visible value.
//
//go:nosplit
func (s State) Value() uint32 {
	return uint32(s & ValueMask)
}

// Bumped returns the state after a write of v: the value is replaced and the
// sequence number advances by one. Every mutation of a word goes through
// Bumped, so two states separated by any write never compare equal.
//
// The sequence number wraps at 2^32 writes. A link register would have to
// stay live across exactly 2^32 intervening writes to be fooled, which the
// bounded critical sections in this module cannot produce.
//
//go:nosplit
func (s State) Bumped(v uint32) State {
	return Pack(s.Seq()+1, v)
}

// String returns a human-readable representation, "value#seq".
// Debug output only, not on any hot path.
func (s State) String() string {
	return itoa(s.Value()) + "#" + itoa(s.Seq())
}

// itoa converts an integer to string without an fmt import.
func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
