package bridge

import (
	"fmt"
	"unsafe"
)

// NilPointerError is the panic value of MustNotNil. The library handed a
// null pointer where the declaration promises an object.
type NilPointerError struct {
	Method   string
	Argument string
}

func (e *NilPointerError) Error() string {
	return fmt.Sprintf("bridge: %s received a null %s", e.Method, e.Argument)
}

// MustNotNil panics with a *NilPointerError when p is nil. Generated
// callbacks run it on every pointer before reading through it.
func MustNotNil(p unsafe.Pointer, method, argument string) {
	if p == nil {
		panic(&NilPointerError{Method: method, Argument: argument})
	}
}

// Copy returns *p, or the zero value for a nil p. Streams use it to detach
// a payload from memory the library owns.
func Copy[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
