//go:build !linux

package main

import "errors"

// pinCPUs is Linux-only; other platforms have no portable affinity call.
func pinCPUs(int) error {
	return errors.New("-pin requires Linux")
}
