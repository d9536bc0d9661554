// Package barrier implements a reusable sense-reversal barrier for a fixed
// set of participating threads.
//
// # Why sense reversal
//
// A barrier that resets a shared release word to a fixed "not released"
// sentinel on first arrival and sets a fixed "released" sentinel on last
// arrival is not safely reusable. A thread delayed in its release-detecting
// spin can be overtaken by a peer that has already returned, entered the
// next generation, and reset the release word before the delayed thread ever
// observed the previous release — after which both spin forever.
//
// Sense reversal removes the race by making the awaited value per-thread and
// per-generation: each thread toggles a private sense flag on entry and
// waits for the shared release word to equal its own flipped sense. The
// value a thread waits for is never reused by that thread across two
// consecutive generations, so a stale reset belonging to the next generation
// can never be mistaken for this generation's release.
package barrier

import (
	"fmt"
	"runtime"

	"github.com/kolkov/spinkit/internal/spin/lock"
	"github.com/kolkov/spinkit/internal/spin/mem"
)

// spinYieldEvery bounds read-spinning bursts between runtime yields.
const spinYieldEvery = 64

// Barrier is a centralized counter + sense-reversal synchronization point.
//
// The shared counter and release words are explicit handles into a Memory,
// so independent barriers coexist and are testable in isolation. The counter
// increment runs inside the supplied lock's critical section; the release
// wait spins on plain reads outside it.
type Barrier struct {
	m       *mem.Memory
	lk      lock.Lock
	count   mem.Addr
	release mem.Addr
	total   int

	// sense holds each participant's private sense flag, toggled by its
	// owner once per barrier call. Per-thread state, never shared.
	sense [mem.MaxThreads]uint32
}

// New creates a barrier for total participating threads over the given
// counter and release words. The counter starts at zero; the release word's
// prior contents are irrelevant (each thread waits for its own sense, never
// for an initial sentinel). total is fixed for the barrier's lifetime and
// must be at least 1.
func New(m *mem.Memory, lk lock.Lock, count, release mem.Addr, total int) *Barrier {
	if total < 1 {
		panic(fmt.Sprintf("barrier: total must be at least 1, got %d", total))
	}
	m.Write(0, count, 0)
	return &Barrier{m: m, lk: lk, count: count, release: release, total: total}
}

// Total returns the fixed participant count.
func (b *Barrier) Total() int {
	return b.total
}

// ArriveAndWait blocks the calling thread, by busy-waiting, until all
// participants of the current generation have arrived.
//
// The last arrival — the thread whose increment brings the counter to
// total — resets the counter and publishes its own just-flipped sense as the
// release value, all inside the same critical section. That single write is
// what unblocks every generation-mate.
func (b *Barrier) ArriveAndWait(tid mem.ThreadID) {
	s := b.sense[tid] ^ 1
	b.sense[tid] = s

	b.lk.Acquire(tid)
	n := b.m.Read(tid, b.count) + 1
	if int(n) == b.total {
		b.m.Write(tid, b.count, 0)
		b.m.Write(tid, b.release, s)
	} else {
		b.m.Write(tid, b.count, n)
	}
	b.lk.Release(tid)

	// Plain-read spin: stale observations are tolerated here, the wait
	// just lasts one coherence delay longer.
	spins := 0
	for b.m.Read(tid, b.release) != s {
		spins++
		if spins > spinYieldEvery {
			spins = 0
			runtime.Gosched()
		}
	}
}
