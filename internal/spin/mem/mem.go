// Package mem models the atomic memory substrate that the lock and barrier
// algorithms are built on.
//
// A Memory is a fixed set of shared words addressed by Addr. It exposes the
// three atomic read-modify-write primitives of the hardware family —
// exchange, test-and-set, and load-linked/store-conditional — plus ordinary
// load and store. Everything above this package (locks, barriers) is built
// exclusively on these operations; none of them is implemented in terms of a
// lock, which is exactly what lets a critical section be bootstrapped from
// them.
//
// # Representation
//
// Each word is a single atomic.Uint64 holding a word.State: a 32-bit value
// stamped with a 32-bit write sequence number. Go's sync/atomic plays the
// cache-coherence substrate — it delivers the consistent, eventually-visible
// view of shared memory that the algorithms assume.
//
// # Link registers
//
// Load-linked records the calling thread's snapshot of the word in a
// per-thread link register; store-conditional succeeds only if no write has
// intervened since that snapshot. Link registers are per-thread state in a
// thread-indexed table, never shared: two threads' LL/SC attempts cannot
// disturb each other's link tracking. Entries are cache-line padded so
// neighboring threads do not false-share.
//
// # Probes
//
// An optional Probe observes every operation before it executes. This is the
// injection point for the deterministic scheduler (park a thread at an
// operation boundary) and for tests that count RMW attempts. With no probe
// installed the cost is a nil check.
package mem

import (
	"fmt"
	"sync/atomic"

	"github.com/kolkov/spinkit/internal/spin/word"
)

// MaxThreads is the number of link registers a Memory carries, and therefore
// the highest usable ThreadID + 1.
const MaxThreads = 64

// ThreadID identifies a logical thread. Valid range: [0, MaxThreads).
type ThreadID int

// Addr names a word inside a Memory.
type Addr int

// Op identifies one memory operation kind, as reported to a Probe.
type Op uint8

// Operation kinds.
const (
	OpRead Op = iota
	OpWrite
	OpExchange
	OpTestAndSet
	OpLoadLinked
	OpStoreConditional
)

// IsRMW reports whether the operation is an atomic read-modify-write
// attempt. Loads — including load-linked, which has plain load semantics on
// the interconnect — are not RMW.
func (op Op) IsRMW() bool {
	return op == OpExchange || op == OpTestAndSet || op == OpStoreConditional
}

// String returns the operation name.
func (op Op) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpExchange:
		return "exchange"
	case OpTestAndSet:
		return "test-and-set"
	case OpLoadLinked:
		return "load-linked"
	case OpStoreConditional:
		return "store-conditional"
	}
	return "unknown"
}

// Probe observes memory operations. BeforeOp runs on the acting thread's
// goroutine immediately before the operation executes, and may block — the
// deterministic scheduler blocks here until the script grants the step.
type Probe interface {
	BeforeOp(tid ThreadID, op Op, addr Addr)
}

// linkReg is one thread's link register: the word snapshot taken by the most
// recent load-linked. Owned exclusively by its thread; padded to a cache
// line so adjacent threads' registers do not false-share.
type linkReg struct {
	addr  Addr
	snap  word.State
	valid bool
	_     [40]byte
}

// Memory is a fixed set of shared words plus per-thread link registers.
//
// All word operations are safe for concurrent use. Alloc and SetProbe are
// setup-time calls: perform them before any contending thread starts.
type Memory struct {
	cells []atomic.Uint64
	links [MaxThreads]linkReg
	probe Probe
	next  int // Alloc watermark.
}

// New creates a Memory of the given number of words, all zero.
func New(words int) *Memory {
	if words < 1 {
		panic("mem: memory must hold at least one word")
	}
	return &Memory{cells: make([]atomic.Uint64, words)}
}

// Words returns the number of words in the memory.
func (m *Memory) Words() int {
	return len(m.cells)
}

// Alloc hands out the next unused address. It exists so constructors can
// claim distinct words without coordinating; it is not safe for concurrent
// use and panics when the memory is exhausted.
func (m *Memory) Alloc() Addr {
	if m.next >= len(m.cells) {
		panic(fmt.Sprintf("mem: out of words (capacity %d)", len(m.cells)))
	}
	a := Addr(m.next)
	m.next++
	return a
}

// SetProbe installs p as the operation observer. Install before starting any
// thread that touches the memory; a nil probe removes observation.
func (m *Memory) SetProbe(p Probe) {
	m.probe = p
}

// step validates the caller and notifies the probe. Called at the top of
// every operation, so every spin-loop iteration passes through here — this
// is what lets the scheduler pause a thread mid-spin at a chosen iteration.
func (m *Memory) step(tid ThreadID, op Op, a Addr) {
	if tid < 0 || tid >= MaxThreads {
		panic(fmt.Sprintf("mem: thread id %d out of range [0,%d)", tid, MaxThreads))
	}
	if a < 0 || int(a) >= len(m.cells) {
		panic(fmt.Sprintf("mem: address %d out of range [0,%d)", a, len(m.cells)))
	}
	if m.probe != nil {
		m.probe.BeforeOp(tid, op, a)
	}
}

// Read returns the current value of the word at a. Ordinary load semantics:
// not atomic with respect to a concurrent read-modify-write, which is
// exactly why the algorithms use it only where staleness is tolerated
// (spin-wait loops).
func (m *Memory) Read(tid ThreadID, a Addr) uint32 {
	m.step(tid, OpRead, a)
	return word.State(m.cells[a].Load()).Value()
}

// Write stores v into the word at a. Ordinary store semantics for the
// program, but still a write to the coherence substrate: it bumps the word's
// sequence number and so invalidates every link register naming a.
func (m *Memory) Write(tid ThreadID, a Addr, v uint32) {
	m.step(tid, OpWrite, a)
	c := &m.cells[a]
	for {
		old := word.State(c.Load())
		if c.CompareAndSwap(uint64(old), uint64(old.Bumped(v))) {
			return
		}
	}
}

// Exchange atomically swaps v into the word at a and returns the previous
// value. Every invocation writes, even when the value does not change — the
// word's storage line changes owner on each call, which is what makes a
// naive exchange lock so expensive under contention.
func (m *Memory) Exchange(tid ThreadID, a Addr, v uint32) uint32 {
	m.step(tid, OpExchange, a)
	c := &m.cells[a]
	for {
		old := word.State(c.Load())
		if c.CompareAndSwap(uint64(old), uint64(old.Bumped(v))) {
			return old.Value()
		}
	}
}

// TestAndSet atomically stores v into the word at a iff its current value is
// zero. It returns the observed value and whether the store happened. When
// the word is non-zero no write occurs at all: the word's sequence number is
// untouched and no link register is invalidated.
func (m *Memory) TestAndSet(tid ThreadID, a Addr, v uint32) (old uint32, wrote bool) {
	return m.testAndStore(tid, a, 0, v)
}

// TestAndStore is the generalized family member of TestAndSet: it stores v
// iff the current value equals free. TestAndSet is TestAndStore with free=0.
func (m *Memory) TestAndStore(tid ThreadID, a Addr, free, v uint32) (old uint32, wrote bool) {
	return m.testAndStore(tid, a, free, v)
}

func (m *Memory) testAndStore(tid ThreadID, a Addr, free, v uint32) (uint32, bool) {
	m.step(tid, OpTestAndSet, a)
	c := &m.cells[a]
	for {
		old := word.State(c.Load())
		if old.Value() != free {
			// Occupied: report without writing. Linearizes at the load.
			return old.Value(), false
		}
		if c.CompareAndSwap(uint64(old), uint64(old.Bumped(v))) {
			return free, true
		}
	}
}

// LoadLinked returns the current value of the word at a and records the full
// word snapshot in the calling thread's link register. On the interconnect
// it behaves like an ordinary load — no write, no invalidation traffic.
func (m *Memory) LoadLinked(tid ThreadID, a Addr) uint32 {
	m.step(tid, OpLoadLinked, a)
	snap := word.State(m.cells[a].Load())
	lr := &m.links[tid]
	lr.addr, lr.snap, lr.valid = a, snap, true
	return snap.Value()
}

// StoreConditional stores v into the word at a and reports success iff the
// calling thread's link register still names a and no write to a — by any
// thread, the caller included — has occurred since the matching LoadLinked.
// On failure no write occurs.
//
// The attempt consumes the link register either way: a second
// StoreConditional without a fresh LoadLinked always fails, as does one with
// no prior LoadLinked at all.
func (m *Memory) StoreConditional(tid ThreadID, a Addr, v uint32) bool {
	m.step(tid, OpStoreConditional, a)
	lr := &m.links[tid]
	ok := lr.valid && lr.addr == a
	lr.valid = false
	if !ok {
		return false
	}
	// Any intervening write bumped the sequence number, so the packed
	// snapshot no longer matches and the CAS fails. The end-to-end
	// atomicity of the LL/SC pair emerges from this invalidation, not
	// from any additional lock.
	return m.cells[a].CompareAndSwap(uint64(lr.snap), uint64(lr.snap.Bumped(v)))
}
