// Package atomicx provides small lock-free building blocks on top of
// sync/atomic.
package atomicx

import (
	"strconv"
	"sync/atomic"

	pkgRuntime "github.com/huynhanx03/go-refqueue/pkg/runtime"
)

const casBackoffCycles = 4

// Flag is a boolean that can be read and updated atomically without locks.
// It guards nothing but its own value. The zero value is false.
type Flag struct {
	value uint32 // 0 is false, 1 is true
}

// NewFlag returns a flag holding initial.
func NewFlag(initial bool) *Flag {
	return &Flag{value: b2u(initial)}
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Get returns the current value.
func (f *Flag) Get() bool {
	return atomic.LoadUint32(&f.value) != 0
}

// Set stores v unconditionally.
func (f *Flag) Set(v bool) {
	atomic.StoreUint32(&f.value, b2u(v))
}

// LazySet stores v with ordering relative to the writer's earlier writes only.
// Go has no weaker store than the sequentially consistent one, so this is Set.
func (f *Flag) LazySet(v bool) {
	atomic.StoreUint32(&f.value, b2u(v))
}

// CompareAndSet sets the value to update if it currently equals expect, and
// reports whether it did.
func (f *Flag) CompareAndSet(expect, update bool) bool {
	return atomic.CompareAndSwapUint32(&f.value, b2u(expect), b2u(update))
}

// WeakCompareAndSet is CompareAndSet under a weaker contract: callers must
// tolerate spurious failure and retry in a loop. It never fails spuriously.
func (f *Flag) WeakCompareAndSet(expect, update bool) bool {
	return f.CompareAndSet(expect, update)
}

// GetAndSet stores v and returns the previous value.
func (f *Flag) GetAndSet(v bool) bool {
	for {
		prev := f.Get()
		if f.CompareAndSet(prev, v) {
			return prev
		}
		pkgRuntime.Procyield(casBackoffCycles)
	}
}

func (f *Flag) String() string {
	return strconv.FormatBool(f.Get())
}
