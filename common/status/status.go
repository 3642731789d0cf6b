// Package status holds the Ready, Running and Closed lifecycle shared by the
// window and its timers. Transitions are atomic so readers need no lock.
package status

import "sync/atomic"

type Status int64

const (
	Ready Status = iota
	Running
	Closed
)

var names = [...]string{Ready: "ready", Running: "running", Closed: "closed"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(names) {
		return "unknown"
	}
	return names[s]
}

func (s Status) Ready() bool   { return s == Ready }
func (s Status) Running() bool { return s == Running }
func (s Status) Closed() bool  { return s == Closed }

// CAP moves the status from one state to another, reporting false when it
// was not in from.
func CAP(s *Status, from, to Status) bool {
	return atomic.CompareAndSwapInt64((*int64)(s), int64(from), int64(to))
}

func Load(s *Status) Status {
	return Status(atomic.LoadInt64((*int64)(s)))
}

// Swap stores to and returns the previous status.
func Swap(s *Status, to Status) Status {
	return Status(atomic.SwapInt64((*int64)(s), int64(to)))
}
