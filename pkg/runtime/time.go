package runtime

import (
	_ "unsafe" // for go:linkname
)

// NanoTime returns the current time in nanoseconds from a monotonic clock.
// Only differences between two readings are meaningful.
//
//go:linkname NanoTime runtime.nanotime
func NanoTime() int64
