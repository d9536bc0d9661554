// trace.go implements the 'spinbench trace' command.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kolkov/spinkit/internal/spin/lock"
	"github.com/kolkov/spinkit/internal/spin/mem"
	"github.com/kolkov/spinkit/internal/spin/sched"
)

// traceCommand implements 'spinbench trace': a deterministic two-thread
// contention replay. Thread 0 acquires the lock, thread 1 is granted a fixed
// number of spin steps while the lock is held, then thread 0 releases and
// both finish. The printed operation mix shows what each waiting strategy
// puts on the interconnect: a ttas waiter's held-phase steps are all plain
// reads, a tas waiter's are all RMW attempts.
func traceCommand(args []string) {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	variant := fs.String("variant", "ttas", "lock variant: exchange, tas, ttas, llsc")
	spins := fs.Int("spins", 10, "waiter spin steps while the lock is held")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	kind, ok := lock.ParseKind(*variant)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown variant %q\n", *variant)
		os.Exit(1)
	}
	if *spins < 0 {
		fmt.Fprintf(os.Stderr, "Error: spins must be non-negative\n")
		os.Exit(1)
	}

	m := mem.New(1)
	lk := lock.New(kind, m, m.Alloc())
	s := sched.New(m, 2)

	// Holder takes the lock, waiter spins while it is held, holder
	// releases, then both run to completion.
	script := make([]mem.ThreadID, 0, acquireSteps(kind)+*spins+2)
	for i := 0; i < acquireSteps(kind); i++ {
		script = append(script, 0)
	}
	for i := 0; i < *spins; i++ {
		script = append(script, 1)
	}
	script = append(script, 0, 0) // release: held check + store

	body := func(tid mem.ThreadID) {
		lk.Acquire(tid)
		lk.Release(tid)
	}
	if err := s.Run(script, body, body); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if stalled := s.Drain(10000); stalled != nil {
		fmt.Fprintf(os.Stderr, "Error: threads %v stalled\n", stalled)
		os.Exit(1)
	}

	fmt.Printf("variant=%s spins=%d\n\n", kind, *spins)
	for tid := mem.ThreadID(0); tid < 2; tid++ {
		role := "holder"
		if tid == 1 {
			role = "waiter"
		}
		fmt.Printf("thread %d (%s): %d ops\n", tid, role, s.Steps(tid))
		for _, count := range opMix(s.Ops(tid)) {
			fmt.Printf("  %-18s %d\n", count.op, count.n)
		}
	}
}

// acquireSteps is the number of memory operations each strategy needs to
// acquire an uncontended free lock.
func acquireSteps(kind lock.Kind) int {
	switch kind {
	case lock.TestAndTestAndSet, lock.LLSC:
		return 2 // observe free, then the RMW
	default:
		return 1
	}
}

type opCount struct {
	op mem.Op
	n  int
}

// opMix counts operations by kind, in first-seen order.
func opMix(ops []sched.OpRecord) []opCount {
	var mix []opCount
	for _, rec := range ops {
		found := false
		for i := range mix {
			if mix[i].op == rec.Op {
				mix[i].n++
				found = true
				break
			}
		}
		if !found {
			mix = append(mix, opCount{op: rec.Op, n: 1})
		}
	}
	return mix
}
