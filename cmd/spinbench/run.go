// run.go implements the 'spinbench run' command.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kolkov/spinkit/internal/spin/lock"
	"github.com/kolkov/spinkit/internal/spin/mem"
)

// runConfig holds parsed 'run' flags.
type runConfig struct {
	kinds   []lock.Kind
	threads int
	iters   int
	pin     bool
}

// runCommand implements 'spinbench run': the lost-update workload, timed.
//
// Each of N goroutines performs K increments of a shared word, each
// increment a plain read-modify-write inside the lock's critical section.
// The final counter must equal N×K exactly — anything less means the lock
// admitted two threads at once.
func runCommand(args []string) {
	config, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if config.pin {
		if err := pinCPUs(config.threads); err != nil {
			fmt.Fprintf(os.Stderr, "Error pinning CPUs: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("threads=%d iters=%d total=%d\n\n", config.threads, config.iters, config.threads*config.iters)
	fmt.Printf("%-10s %12s %14s %8s\n", "variant", "elapsed", "acquires/sec", "counter")

	for _, kind := range config.kinds {
		elapsed, final := runWorkload(kind, config.threads, config.iters)
		want := uint32(config.threads * config.iters)
		status := "ok"
		if final != want {
			status = fmt.Sprintf("LOST UPDATES (want %d)", want)
		}
		rate := float64(config.threads*config.iters) / elapsed.Seconds()
		fmt.Printf("%-10s %12s %14.0f %8d %s\n", kind, elapsed.Round(time.Microsecond), rate, final, status)
	}
}

// runWorkload runs the locked-increment workload for one variant and
// returns the wall time and the final counter value.
func runWorkload(kind lock.Kind, threads, iters int) (time.Duration, uint32) {
	m := mem.New(2)
	lk := lock.New(kind, m, m.Alloc())
	counter := m.Alloc()

	var wg sync.WaitGroup
	start := time.Now()
	for t := 0; t < threads; t++ {
		wg.Add(1)
		go func(tid mem.ThreadID) {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				lk.Acquire(tid)
				v := m.Read(tid, counter)
				m.Write(tid, counter, v+1)
				lk.Release(tid)
			}
		}(mem.ThreadID(t))
	}
	wg.Wait()
	elapsed := time.Since(start)

	return elapsed, m.Read(0, counter)
}

// parseRunArgs parses 'run' command flags.
func parseRunArgs(args []string) (*runConfig, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	variant := fs.String("variant", "all", "lock variant: exchange, tas, ttas, llsc, or all")
	threads := fs.Int("threads", 4, "number of contending threads")
	iters := fs.Int("iters", 100000, "locked increments per thread")
	pin := fs.Bool("pin", false, "pin the process to CPUs 0..threads-1 (Linux only)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *threads < 1 || *threads > mem.MaxThreads {
		return nil, fmt.Errorf("threads must be in [1,%d], got %d", mem.MaxThreads, *threads)
	}
	if *iters < 1 {
		return nil, fmt.Errorf("iters must be positive, got %d", *iters)
	}

	config := &runConfig{threads: *threads, iters: *iters, pin: *pin}
	if *variant == "all" {
		config.kinds = lock.Kinds
	} else {
		kind, ok := lock.ParseKind(*variant)
		if !ok {
			return nil, fmt.Errorf("unknown variant %q", *variant)
		}
		config.kinds = []lock.Kind{kind}
	}
	return config, nil
}
