// Package lock implements four spin-lock variants, one per acquire strategy:
// plain exchange, test-and-set, test-and-test-and-set, and
// load-linked/store-conditional.
//
// All four share the same contract. Acquire busy-waits — it never
// deschedules the logical thread — until the caller has exclusive ownership.
// Release is a plain store of the free value: no atomic RMW is needed in the
// unlocked direction because only the current holder may legally perform it.
// Mutual exclusion follows directly from the atomicity of the acquire
// primitive; there is no ordering or fairness guarantee among waiters, and a
// thread may spin indefinitely under adversarial scheduling.
//
// The variants differ only in the traffic they generate while waiting:
//
//   - Exchange writes the lock word on every iteration, bouncing its storage
//     line among spinning cores even while the lock is held elsewhere.
//   - TestAndSet attempts an RMW every iteration but suppresses the write
//     when the word is observed held.
//   - TestAndTestAndSet spins on plain reads of the locally cached copy and
//     attempts a single RMW only at the instant the lock is observed free.
//   - LLSC spins on load-linked (plain-load traffic) and attempts a
//     store-conditional on observing free; acquisition requires both the
//     free observation and the conditional store to succeed.
package lock

import (
	"runtime"

	"github.com/kolkov/spinkit/internal/spin/mem"
)

// Lock word values.
const (
	Free uint32 = 0
	Held uint32 = 1
)

// maxSpins is how many failed attempts a spin loop makes before yielding the
// processor to the Go runtime. The logical algorithm never blocks; the yield
// only keeps a spinning goroutine from starving the holder of its core.
const maxSpins = 64

// Kind selects the acquire strategy. The strategy is fixed at construction;
// it is not switchable per call.
type Kind int

const (
	// Exchange acquires by looping on an atomic exchange of Held.
	Exchange Kind = iota

	// TestAndSet acquires by looping on an atomic test-and-set.
	TestAndSet

	// TestAndTestAndSet spins on plain reads and attempts the atomic
	// operation only once the lock is observed free.
	TestAndTestAndSet

	// LLSC acquires with a load-linked/store-conditional pair.
	LLSC
)

// Kinds lists every strategy, in a stable order. Used by tests and the
// benchmark tool to sweep all variants.
var Kinds = []Kind{Exchange, TestAndSet, TestAndTestAndSet, LLSC}

// String returns the strategy name.
func (k Kind) String() string {
	switch k {
	case Exchange:
		return "exchange"
	case TestAndSet:
		return "tas"
	case TestAndTestAndSet:
		return "ttas"
	case LLSC:
		return "llsc"
	}
	return "unknown"
}

// ParseKind maps a strategy name (as printed by String) back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Lock is a mutual-exclusion lock over one shared word.
//
// Callers must obey the protocol: Acquire before the critical section,
// Release after, Release only by the current holder. Re-entrant acquisition
// by the holder deadlocks by construction; the lock does not detect it.
type Lock interface {
	// Acquire busy-waits until the calling thread owns the lock.
	Acquire(tid mem.ThreadID)

	// Release frees the lock with a plain store. Panics if the lock is
	// not currently held.
	Release(tid mem.ThreadID)

	// Addr returns the lock word's address.
	Addr() mem.Addr
}

// New creates a lock of the given kind over the word at a, initializing the
// word to free. Construct before any contending thread starts.
func New(kind Kind, m *mem.Memory, a mem.Addr) Lock {
	b := base{m: m, a: a}
	m.Write(0, a, Free)
	switch kind {
	case Exchange:
		return &exchangeLock{b}
	case TestAndSet:
		return &tasLock{b}
	case TestAndTestAndSet:
		return &ttasLock{b}
	case LLSC:
		return &llscLock{b}
	}
	panic("lock: unknown kind")
}

type base struct {
	m *mem.Memory
	a mem.Addr
}

func (b *base) Addr() mem.Addr {
	return b.a
}

// Release transitions held→free with a plain store. The held check is a
// protocol assertion, not part of the algorithm: the primitives themselves
// have no notion of an invalid caller.
func (b *base) Release(tid mem.ThreadID) {
	if b.m.Read(tid, b.a) == Free {
		panic("lock: release of unheld lock")
	}
	b.m.Write(tid, b.a, Free)
}

// backoff yields to the runtime after a burst of failed attempts.
func backoff(spins *int) {
	*spins++
	if *spins > maxSpins {
		*spins = 0
		runtime.Gosched()
	}
}

// exchangeLock: every iteration swaps Held in and inspects what came out.
// Acquired when the previous value was Free.
type exchangeLock struct{ base }

func (l *exchangeLock) Acquire(tid mem.ThreadID) {
	spins := 0
	for l.m.Exchange(tid, l.a, Held) != Free {
		backoff(&spins)
	}
}

// tasLock: every iteration is a test-and-set attempt. The write is
// suppressed while the word is observed held, but the attempt itself still
// reaches the word every iteration.
type tasLock struct{ base }

func (l *tasLock) Acquire(tid mem.ThreadID) {
	spins := 0
	for {
		if _, wrote := l.m.TestAndSet(tid, l.a, Held); wrote {
			return
		}
		backoff(&spins)
	}
}

// ttasLock: spin on plain reads while held, attempt the RMW once on
// observing free, and fall back to read-spinning if the race is lost. While
// the lock is held, waiters touch only their cached copy; traffic is
// confined to one RMW per free→held handoff.
type ttasLock struct{ base }

func (l *ttasLock) Acquire(tid mem.ThreadID) {
	spins := 0
	for {
		for l.m.Read(tid, l.a) != Free {
			backoff(&spins)
		}
		if _, wrote := l.m.TestAndSet(tid, l.a, Held); wrote {
			return
		}
		backoff(&spins)
	}
}

// llscLock: load-linked the word; retry while it is observed held; on
// observing free attempt the store-conditional. Exiting the loop needs both
// conditions — free observed and the conditional store succeeded. Losing the
// store race to another thread re-enters the loop from the load-linked.
type llscLock struct{ base }

func (l *llscLock) Acquire(tid mem.ThreadID) {
	spins := 0
	for {
		if l.m.LoadLinked(tid, l.a) != Free {
			backoff(&spins)
			continue
		}
		if l.m.StoreConditional(tid, l.a, Held) {
			return
		}
		backoff(&spins)
	}
}
