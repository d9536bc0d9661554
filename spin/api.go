// Package spin provides the public API for the synchronization primitives.
//
// See doc.go for detailed documentation and examples.
package spin

import (
	"github.com/kolkov/spinkit/internal/spin/barrier"
	"github.com/kolkov/spinkit/internal/spin/lock"
	"github.com/kolkov/spinkit/internal/spin/mem"
)

// Re-exported core types. The internal packages own the implementations;
// these aliases keep the public surface to a single import.
type (
	// Memory is the modeled atomic memory substrate.
	Memory = mem.Memory

	// ThreadID identifies a logical thread, range [0, MaxThreads).
	ThreadID = mem.ThreadID

	// Addr names a word inside a Memory.
	Addr = mem.Addr

	// Lock is a mutual-exclusion spin lock over one shared word.
	Lock = lock.Lock

	// Kind selects a lock's acquire strategy at construction time.
	Kind = lock.Kind

	// Barrier is a reusable sense-reversal synchronization point.
	Barrier = barrier.Barrier
)

// Lock strategies.
const (
	// Exchange loops on an atomic exchange.
	Exchange = lock.Exchange

	// TestAndSet loops on an atomic test-and-set.
	TestAndSet = lock.TestAndSet

	// TestAndTestAndSet spins on plain reads, RMW only on observed free.
	TestAndTestAndSet = lock.TestAndTestAndSet

	// LLSC uses a load-linked/store-conditional pair.
	LLSC = lock.LLSC
)

// MaxThreads is the highest usable ThreadID + 1.
const MaxThreads = mem.MaxThreads

// NewMemory creates an atomic memory of the given number of words, all
// zero. Allocate words for locks, barriers and shared data with
// Memory.Alloc during setup, before contending threads start.
func NewMemory(words int) *Memory {
	return mem.New(words)
}

// NewLock creates a lock of the given strategy over the word at a and
// initializes it to free. The strategy is fixed for the lock's lifetime.
func NewLock(kind Kind, m *Memory, a Addr) Lock {
	return lock.New(kind, m, a)
}

// NewBarrier creates a reusable barrier for total participating threads.
// The count and release words and the lock protecting the arrival counter
// are explicit handles, so independent barriers coexist on one Memory.
//
// Panics if total < 1.
func NewBarrier(m *Memory, lk Lock, count, release Addr, total int) *Barrier {
	return barrier.New(m, lk, count, release, total)
}
