// Package checked provides overflow-reporting arithmetic on unsigned integers.
//
// Every offset and size derived from user-supplied copy descriptors is
// computed through this package. The boolean result is false when the
// operation wrapped around; callers abort the command in that case.
package checked

import "golang.org/x/exp/constraints"

// Add returns a+b and whether the sum fits in T.
func Add[T constraints.Unsigned](a, b T) (T, bool) {
	s := a + b
	return s, s >= a
}

// Sub returns a-b and whether the result is non-negative.
func Sub[T constraints.Unsigned](a, b T) (T, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// Mul returns a*b and whether the product fits in T.
func Mul[T constraints.Unsigned](a, b T) (T, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	return p, p/a == b
}

// RoundUp rounds v up to the next multiple of m. A zero multiple leaves v
// unchanged. The multiple does not have to be a power of two.
func RoundUp[T constraints.Unsigned](v, m T) (T, bool) {
	if m == 0 {
		return v, true
	}
	r := v % m
	if r == 0 {
		return v, true
	}
	return Add(v, m-r)
}

// Value accumulates a chain of operations and remembers whether any step
// overflowed. Once overflowed, further operations keep the overflow state.
//
//	end, ok := checked.New(offset).Add(z*bpi).Add(y*bpr).Get()
type Value[T constraints.Unsigned] struct {
	v        T
	overflow bool
}

// New starts a checked computation at v.
func New[T constraints.Unsigned](v T) Value[T] {
	return Value[T]{v: v}
}

// Add adds x to the accumulated value.
func (c Value[T]) Add(x T) Value[T] {
	if c.overflow {
		return c
	}
	s, ok := Add(c.v, x)
	return Value[T]{v: s, overflow: !ok}
}

// Mul multiplies the accumulated value by x.
func (c Value[T]) Mul(x T) Value[T] {
	if c.overflow {
		return c
	}
	p, ok := Mul(c.v, x)
	return Value[T]{v: p, overflow: !ok}
}

// Sub subtracts x from the accumulated value.
func (c Value[T]) Sub(x T) Value[T] {
	if c.overflow {
		return c
	}
	d, ok := Sub(c.v, x)
	return Value[T]{v: d, overflow: !ok}
}

// Overflowed reports whether any step overflowed.
func (c Value[T]) Overflowed() bool { return c.overflow }

// Get returns the accumulated value and whether it is valid.
func (c Value[T]) Get() (T, bool) {
	if c.overflow {
		return 0, false
	}
	return c.v, true
}

// Narrow converts a uint64 into a uint32 when it fits.
func Narrow(v uint64) (uint32, bool) {
	if v > uint64(^uint32(0)) {
		return 0, false
	}
	return uint32(v), true
}
