package runtime

import (
	_ "unsafe" // for go:linkname
)

// Procyield spins for the given number of cycles without yielding to the
// scheduler, using PAUSE on x86. Meant for short CAS retry backoff.
//
//go:linkname Procyield runtime.procyield
func Procyield(cycles uint32)
