// Package spin provides low-level shared-memory synchronization primitives:
// four spin-lock variants built on distinct atomic hardware primitives, and
// a reusable sense-reversal barrier.
//
// The primitives operate on a modeled atomic memory — a fixed set of shared
// words exposing ordinary load/store plus three atomic read-modify-write
// operations: exchange, test-and-set, and load-linked/store-conditional.
// Locks and barriers are built exclusively on those operations; the atomic
// RMW is the irreducible capability the memory substrate supplies, never
// itself implemented in terms of a lock.
//
// # Quick Start
//
//	m := spin.NewMemory(2)
//	lk := spin.NewLock(spin.TestAndTestAndSet, m, m.Alloc())
//	counter := m.Alloc()
//
//	// In each thread, with its own tid:
//	lk.Acquire(tid)
//	m.Write(tid, counter, m.Read(tid, counter)+1)
//	lk.Release(tid)
//
// # Lock variants
//
// The four strategies give identical mutual-exclusion guarantees and differ
// only in interconnect traffic while waiting:
//
//   - [Exchange]: swap-based; writes the lock word on every spin iteration.
//   - [TestAndSet]: RMW attempt every iteration, write suppressed while held.
//   - [TestAndTestAndSet]: plain-read spinning while held, one RMW per
//     free→held handoff. The variant to use under contention.
//   - [LLSC]: load-linked spinning, store-conditional at the handoff.
//
// No variant is fair: mutual exclusion and eventual progress are guaranteed
// under a live scheduler, bounded waiting and FIFO ordering are not.
//
// # Barrier
//
// [NewBarrier] builds a centralized-counter barrier that is safe to reuse
// across generations. Each thread toggles a private sense flag per call and
// waits for the shared release word to match it, which is what makes reuse
// race-free; see the barrier package documentation for the failure mode this
// prevents.
//
// # Discipline
//
// Correctness depends entirely on (a) the atomicity of the RMW primitives
// and (b) every participant obeying the acquire-before-section /
// release-after-section discipline. Misuse — releasing a lock not held,
// re-entrant acquisition by the holder — is not detected beyond the explicit
// protocol panics, and re-entrant acquisition deadlocks by construction.
//
// Thread identity is explicit: every operation takes the caller's ThreadID,
// which indexes per-thread state such as link registers and barrier sense
// flags. Run at most one goroutine per ThreadID.
package spin
