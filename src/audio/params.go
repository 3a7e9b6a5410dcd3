package audio

import "sync/atomic"

// ----- Parameter ----- //

// Parameter is a value published by the control side and read by the audio
// side. Reads never block and always observe a value that was completely
// written by some earlier Set. Each Parameter is consistent on its own; a
// buffer may see a new value of one Parameter together with an old value of
// another.
//
// A Parameter must not be copied after first use.
type Parameter[T any] struct {
	v atomic.Pointer[T]
}

func newParameter[T any](initial T) *Parameter[T] {
	p := &Parameter[T]{}
	p.Set(initial)
	return p
}

// Set publishes a new value. It allocates on the caller's goroutine, which is
// always the control side.
func (p *Parameter[T]) Set(value T) {
	v := value
	p.v.Store(&v)
}

// Get returns the last published value.
func (p *Parameter[T]) Get() T {
	return *p.v.Load()
}

// ----- Utility ----- //

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
