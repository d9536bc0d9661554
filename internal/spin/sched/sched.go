// Package sched replays prescribed thread interleavings deterministically.
//
// A Scheduler drives a fixed set of logical threads, each a Go goroutine,
// through their memory operations one at a time. It installs itself as the
// Memory's probe: every operation parks its thread at the operation boundary
// until the scheduler grants it exactly one step. A scheduling script — an
// ordered list of which thread executes its next operation — is replayed
// verbatim, so the adversarial interleavings that incidental goroutine
// scheduling would almost never produce (a waiter overtaken between its
// release-check and its re-read, a store-conditional raced by a peer's
// write) are reproduced on every run.
//
// Exactly one thread is runnable between grants. Thread bodies may therefore
// update ordinary Go variables for assertions without synchronization; the
// grant serializes everything a body does between two of its operations.
//
// After the script, Drain hands out round-robin steps with a bounded budget.
// Threads still live when the budget runs out are reported as stalled —
// this is the harness timeout that turns a permanent spin (a deadlocked
// barrier generation, for instance) into an observable result instead of a
// hung test.
package sched

import (
	"fmt"

	"github.com/kolkov/spinkit/internal/spin/mem"
)

// OpRecord is one executed memory operation, in program order for its
// thread.
type OpRecord struct {
	Op   mem.Op
	Addr mem.Addr
}

// thread is the scheduler's view of one logical thread.
type thread struct {
	id mem.ThreadID

	// Rendezvous channels. The thread announces arrival at an operation
	// boundary on parked, then blocks on gate until granted. done closes
	// when the body returns.
	parked chan struct{}
	gate   chan struct{}
	done   chan struct{}

	// launched gates probe interception: operations issued with this tid
	// before the thread starts (constructor writes) pass through.
	launched bool

	steps int
	ops   []OpRecord
}

// Scheduler replays interleavings over one Memory.
type Scheduler struct {
	m       *mem.Memory
	threads []*thread
	ran     bool

	detached bool
	stalled  []mem.ThreadID
}

// New creates a scheduler for n logical threads (ids 0..n-1) over m and
// installs itself as m's probe. Create locks and barriers and perform any
// setup writes before calling Run; setup operations are not intercepted.
func New(m *mem.Memory, n int) *Scheduler {
	if n < 1 || n > mem.MaxThreads {
		panic(fmt.Sprintf("sched: thread count %d out of range [1,%d]", n, mem.MaxThreads))
	}
	s := &Scheduler{m: m, threads: make([]*thread, n)}
	for i := range s.threads {
		s.threads[i] = &thread{
			id:     mem.ThreadID(i),
			parked: make(chan struct{}),
			gate:   make(chan struct{}),
			done:   make(chan struct{}),
		}
	}
	m.SetProbe(s)
	return s
}

// BeforeOp implements mem.Probe. It runs on the acting thread's goroutine:
// announce the boundary, wait for a grant, then record the executed step.
func (s *Scheduler) BeforeOp(tid mem.ThreadID, op mem.Op, a mem.Addr) {
	if int(tid) >= len(s.threads) {
		return
	}
	t := s.threads[tid]
	if !t.launched {
		return
	}
	t.parked <- struct{}{}
	<-t.gate
	t.ops = append(t.ops, OpRecord{Op: op, Addr: a})
	t.steps++
}

// Run starts one goroutine per body and replays the script: entry i grants
// one memory operation to the named thread. Threads are launched one at a
// time, each run up to its first operation boundary before the next starts,
// so the whole execution is deterministic.
//
// Granting a step to a thread whose body has already returned is a script
// error. Threads still live when the script ends stay parked; finish them
// with Drain.
func (s *Scheduler) Run(script []mem.ThreadID, bodies ...func(mem.ThreadID)) error {
	if len(bodies) != len(s.threads) {
		return fmt.Errorf("sched: %d bodies for %d threads", len(bodies), len(s.threads))
	}
	if s.ran {
		return fmt.Errorf("sched: scheduler already ran")
	}
	s.ran = true

	for i, body := range bodies {
		t := s.threads[i]
		t.launched = true
		go func(t *thread, body func(mem.ThreadID)) {
			defer close(t.done)
			body(t.id)
		}(t, body)
		t.awaitBoundary()
	}

	for i, tid := range script {
		if int(tid) < 0 || int(tid) >= len(s.threads) {
			return fmt.Errorf("sched: script step %d names unknown thread %d", i, tid)
		}
		t := s.threads[tid]
		if t.finished() {
			return fmt.Errorf("sched: script step %d grants thread %d after its body returned", i, tid)
		}
		s.grant(t)
	}
	return nil
}

// Drain grants round-robin steps to still-live threads until they all
// finish or budget steps have been spent. It returns the ids of threads
// still live afterwards — under a sufficient budget, a non-empty result
// means those threads spin forever (deadlock).
//
// Drain ends the run: it removes the scheduler from the Memory, so the
// caller can inspect final shared-memory state directly. Stalled threads
// stay parked at their next operation boundary and touch no memory after
// Drain returns. Further Drain calls return the recorded result.
func (s *Scheduler) Drain(budget int) []mem.ThreadID {
	if s.detached {
		return s.stalled
	}
	for budget > 0 {
		live := false
		for _, t := range s.threads {
			if t.finished() {
				continue
			}
			live = true
			if budget == 0 {
				break
			}
			s.grant(t)
			budget--
		}
		if !live {
			break
		}
	}
	for _, t := range s.threads {
		if !t.finished() {
			s.stalled = append(s.stalled, t.id)
		}
	}
	s.detached = true
	s.m.SetProbe(nil)
	return s.stalled
}

// grant releases t for exactly one operation, then waits for it to reach
// its next boundary or return.
func (s *Scheduler) grant(t *thread) {
	t.gate <- struct{}{}
	t.awaitBoundary()
}

// awaitBoundary blocks until t is parked at an operation boundary or its
// body has returned.
func (t *thread) awaitBoundary() {
	select {
	case <-t.parked:
	case <-t.done:
	}
}

// finished reports whether t's body has returned.
func (t *thread) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Steps returns how many operations thread tid has executed.
func (s *Scheduler) Steps(tid mem.ThreadID) int {
	return s.threads[tid].steps
}

// Ops returns thread tid's executed operations in program order. Safe to
// call once Run (and any Drain) has returned.
func (s *Scheduler) Ops(tid mem.ThreadID) []OpRecord {
	return s.threads[tid].ops
}

// Finished reports whether thread tid's body returned.
func (s *Scheduler) Finished(tid mem.ThreadID) bool {
	return s.threads[tid].finished()
}
