//go:build linux

package main

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// pinCPUs restricts the process to CPUs 0..n-1 so every contending thread
// runs on its own core and lock handoffs actually cross the interconnect.
// Without pinning, the scheduler is free to stack threads on one core and
// the variants' traffic profiles blur together.
func pinCPUs(n int) error {
	if n > runtime.NumCPU() {
		return fmt.Errorf("cannot pin %d threads on %d CPUs", n, runtime.NumCPU())
	}
	var set unix.CPUSet
	for cpu := 0; cpu < n; cpu++ {
		set.Set(cpu)
	}
	// pid 0 = this process.
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("sched_setaffinity: %w", err)
	}
	return nil
}
