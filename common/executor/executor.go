// Package executor guards a deferred function that may either run or be
// cancelled, but not both.
package executor

import "sync/atomic"

type state = int32

const (
	armed state = iota
	ran
	cancelled
)

// Executor settles exactly once: Exec runs the function, Cancel discards it.
// Whichever call settles first wins, the other reports false.
type Executor struct {
	fn    func()
	state state
	done  chan struct{}
}

func NewExecutor(fn func()) *Executor {
	return &Executor{fn: fn, done: make(chan struct{})}
}

func (e *Executor) settle(to state) bool {
	return atomic.CompareAndSwapInt32(&e.state, armed, to)
}

// Exec runs the function unless the executor already settled. Done is closed
// after the function returns, even when it panics.
func (e *Executor) Exec() bool {
	if !e.settle(ran) {
		return false
	}
	defer close(e.done)
	e.fn()
	return true
}

func (e *Executor) Cancel() bool {
	if !e.settle(cancelled) {
		return false
	}
	close(e.done)
	return true
}

func (e *Executor) Executed() bool { return atomic.LoadInt32(&e.state) == ran }

func (e *Executor) Canceled() bool { return atomic.LoadInt32(&e.state) == cancelled }

// Done is closed once the executor settled and, if it ran, the function returned.
func (e *Executor) Done() <-chan struct{} { return e.done }
