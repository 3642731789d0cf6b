// Package safe runs functions so that a panic surfaces as an error.
package safe

import (
	"github.com/pkg/errors"
)

// Run calls fn and turns a panic into an error. A panicking error value is
// kept in the chain so errors.Is still matches it.
func Run(fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if cause, ok := r.(error); ok {
			err = errors.WithStack(cause)
		} else {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// Go runs fn on its own goroutine. The returned channel yields the result of
// fn, then closes.
func Go(fn func() error) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- Run(fn)
	}()
	return result
}
