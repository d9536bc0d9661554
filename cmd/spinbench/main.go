// Package main implements the spinbench CLI tool.
//
// spinbench measures the four spin-lock variants under contention and
// replays scripted interleavings to show each variant's traffic profile:
//
//  1. run: the lost-update workload — N OS-backed threads each performing K
//     locked increments of a shared word — timed per variant, with the final
//     counter checked against N×K.
//  2. trace: a deterministic two-thread contention schedule, printing each
//     thread's memory-operation mix so the traffic difference between, say,
//     test-and-set and test-and-test-and-set is directly visible.
//
// Usage:
//
//	spinbench run -variant=ttas -threads=8 -iters=100000
//	spinbench run -variant=all -pin
//	spinbench trace -variant=tas
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runCommand(os.Args[2:])
	case "trace":
		traceCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("spinbench version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`spinbench - spin lock contention benchmark

Usage:
  spinbench run [flags]     Time the locked-increment workload per variant
  spinbench trace [flags]   Replay a scripted contention and print op mixes
  spinbench version         Print version
  spinbench help            Print this help

Run flags:
  -variant=<exchange|tas|ttas|llsc|all>   Lock variant (default all)
  -threads=N                              Contending threads (default 4)
  -iters=K                                Locked increments per thread (default 100000)
  -pin                                    Pin the process to CPUs 0..threads-1 (Linux)

Trace flags:
  -variant=<exchange|tas|ttas|llsc>       Lock variant (default ttas)
  -spins=N                                Waiter spin steps while the lock is held (default 10)`)
}
