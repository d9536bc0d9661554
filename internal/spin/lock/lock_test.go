package lock_test

import (
	"sync"
	"testing"

	"github.com/kolkov/spinkit/internal/spin/lock"
	"github.com/kolkov/spinkit/internal/spin/mem"
	"github.com/kolkov/spinkit/internal/spin/sched"
)

// TestMutualExclusionScripted drives three threads through fine-grained
// round-robin interleaving — every thread advances one memory operation at a
// time — and asserts that no two threads are ever inside the critical
// section simultaneously, for each variant.
func TestMutualExclusionScripted(t *testing.T) {
	const threads, rounds = 3, 3
	for _, kind := range lock.Kinds {
		t.Run(kind.String(), func(t *testing.T) {
			m := mem.New(2)
			lk := lock.New(kind, m, m.Alloc())
			counter := m.Alloc()
			s := sched.New(m, threads)

			// Exactly one thread runs between grants, so these plain
			// variables are safe for the bodies to share.
			inSection := 0
			maxInSection := 0

			body := func(tid mem.ThreadID) {
				for r := 0; r < rounds; r++ {
					lk.Acquire(tid)
					inSection++
					if inSection > maxInSection {
						maxInSection = inSection
					}
					v := m.Read(tid, counter)
					m.Write(tid, counter, v+1)
					inSection--
					lk.Release(tid)
				}
			}

			if err := s.Run(nil, body, body, body); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if stalled := s.Drain(200000); stalled != nil {
				t.Fatalf("threads %v stalled", stalled)
			}
			if maxInSection != 1 {
				t.Errorf("max threads in critical section = %d, want 1", maxInSection)
			}
			if got := m.Read(0, counter); got != threads*rounds {
				t.Errorf("counter = %d, want %d", got, threads*rounds)
			}
			if got := m.Read(0, lk.Addr()); got != lock.Free {
				t.Errorf("lock word = %d after all releases, want %d", got, lock.Free)
			}
		})
	}
}

// TestLostUpdatePrevention runs N real goroutines each performing K locked
// increments of a shared word; the final value must be exactly N×K for
// every variant.
func TestLostUpdatePrevention(t *testing.T) {
	const iters = 1000
	for _, kind := range lock.Kinds {
		for threads := 2; threads <= 8; threads++ {
			m := mem.New(2)
			lk := lock.New(kind, m, m.Alloc())
			counter := m.Alloc()

			var wg sync.WaitGroup
			for i := 0; i < threads; i++ {
				wg.Add(1)
				go func(tid mem.ThreadID) {
					defer wg.Done()
					for k := 0; k < iters; k++ {
						lk.Acquire(tid)
						v := m.Read(tid, counter)
						m.Write(tid, counter, v+1)
						lk.Release(tid)
					}
				}(mem.ThreadID(i))
			}
			wg.Wait()

			want := uint32(threads * iters)
			if got := m.Read(0, counter); got != want {
				t.Errorf("%v with %d threads: counter = %d, want %d (lost updates)",
					kind, threads, got, want)
			}
		}
	}
}

// TestTTASTrafficProperty pins down the test-and-test-and-set traffic
// profile with a scripted schedule: while the lock is held, a waiter's
// steps are plain reads only; the free→held handoff costs exactly one
// atomic RMW.
func TestTTASTrafficProperty(t *testing.T) {
	const heldSpins = 5

	m := mem.New(1)
	lk := lock.New(lock.TestAndTestAndSet, m, m.Alloc())
	s := sched.New(m, 2)

	body := func(tid mem.ThreadID) {
		lk.Acquire(tid)
		lk.Release(tid)
	}

	// Thread 0 acquires (read free + test-and-set), thread 1 spins
	// heldSpins steps against the held lock, thread 0 releases (held
	// check + store), thread 1 observes free and takes the lock.
	script := []mem.ThreadID{0, 0}
	for i := 0; i < heldSpins; i++ {
		script = append(script, 1)
	}
	script = append(script, 0, 0, 1, 1)

	if err := s.Run(script, body, body); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stalled := s.Drain(1000); stalled != nil {
		t.Fatalf("threads %v stalled", stalled)
	}

	waiter := s.Ops(1)
	if len(waiter) < heldSpins+2 {
		t.Fatalf("waiter executed %d ops, want at least %d", len(waiter), heldSpins+2)
	}

	// Zero RMW attempts while the lock was held.
	for i := 0; i < heldSpins; i++ {
		if waiter[i].Op != mem.OpRead {
			t.Errorf("waiter op %d while lock held = %v, want %v", i, waiter[i].Op, mem.OpRead)
		}
	}

	// One free-observing read, then the single handoff RMW.
	if waiter[heldSpins].Op != mem.OpRead {
		t.Errorf("waiter op %d = %v, want free-observing %v", heldSpins, waiter[heldSpins].Op, mem.OpRead)
	}
	if waiter[heldSpins+1].Op != mem.OpTestAndSet {
		t.Errorf("waiter op %d = %v, want %v", heldSpins+1, waiter[heldSpins+1].Op, mem.OpTestAndSet)
	}

	for tid := mem.ThreadID(0); tid < 2; tid++ {
		rmw := 0
		for _, rec := range s.Ops(tid) {
			if rec.Op.IsRMW() {
				rmw++
			}
		}
		if rmw != 1 {
			t.Errorf("thread %d issued %d RMW ops, want exactly 1 per handoff", tid, rmw)
		}
	}
}

// TestLLSCLockLostRace scripts the two-condition retry of the LL/SC lock:
// both threads observe the lock free via load-linked, one store-conditional
// wins, and the loser re-enters the loop from load-linked rather than
// acquiring on the stale observation.
func TestLLSCLockLostRace(t *testing.T) {
	m := mem.New(1)
	lk := lock.New(lock.LLSC, m, m.Alloc())
	s := sched.New(m, 2)

	var order []mem.ThreadID
	body := func(tid mem.ThreadID) {
		lk.Acquire(tid)
		order = append(order, tid)
		lk.Release(tid)
	}

	// Both load-linked the free word; thread 1's store-conditional lands
	// first, thread 0's must fail and retry.
	script := []mem.ThreadID{0, 1, 1, 0}
	if err := s.Run(script, body, body); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stalled := s.Drain(10000); stalled != nil {
		t.Fatalf("threads %v stalled", stalled)
	}

	if len(order) != 2 || order[0] != 1 || order[1] != 0 {
		t.Fatalf("acquisition order = %v, want [1 0]", order)
	}

	loser := s.Ops(0)
	if loser[0].Op != mem.OpLoadLinked || loser[1].Op != mem.OpStoreConditional {
		t.Fatalf("loser's first ops = %v, %v; want load-linked then store-conditional", loser[0].Op, loser[1].Op)
	}
	// The failed attempt sent the loser back through load-linked.
	if loser[2].Op != mem.OpLoadLinked {
		t.Errorf("loser op 2 = %v, want retry from %v", loser[2].Op, mem.OpLoadLinked)
	}
	if got := m.Read(0, lk.Addr()); got != lock.Free {
		t.Errorf("lock word = %d after both releases, want %d", got, lock.Free)
	}
}

// TestReleaseUnheldPanics tests the release protocol assertion.
func TestReleaseUnheldPanics(t *testing.T) {
	for _, kind := range lock.Kinds {
		t.Run(kind.String(), func(t *testing.T) {
			m := mem.New(1)
			lk := lock.New(kind, m, m.Alloc())
			defer func() {
				if recover() == nil {
					t.Errorf("release of unheld %v lock did not panic", kind)
				}
			}()
			lk.Release(0)
		})
	}
}

// TestAcquireSetsHeld tests the uncontended acquire/release cycle.
func TestAcquireSetsHeld(t *testing.T) {
	for _, kind := range lock.Kinds {
		m := mem.New(1)
		lk := lock.New(kind, m, m.Alloc())

		lk.Acquire(0)
		if got := m.Read(0, lk.Addr()); got != lock.Held {
			t.Errorf("%v: lock word after Acquire = %d, want %d", kind, got, lock.Held)
		}
		lk.Release(0)
		if got := m.Read(0, lk.Addr()); got != lock.Free {
			t.Errorf("%v: lock word after Release = %d, want %d", kind, got, lock.Free)
		}
	}
}

// TestParseKind tests the name round-trip used by the benchmark tool.
func TestParseKind(t *testing.T) {
	for _, kind := range lock.Kinds {
		got, ok := lock.ParseKind(kind.String())
		if !ok || got != kind {
			t.Errorf("ParseKind(%q) = (%v, %v), want (%v, true)", kind.String(), got, ok, kind)
		}
	}
	if _, ok := lock.ParseKind("mcs"); ok {
		t.Errorf("ParseKind(%q) succeeded, want failure", "mcs")
	}
}
