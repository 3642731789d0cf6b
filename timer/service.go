package timer

import (
	"sync"
	"time"

	"github.com/RuiFG/streaming/streaming-unique/common/executor"
	"github.com/RuiFG/streaming/streaming-unique/common/status"
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var ErrServiceClosed = errors.New("timer service closed")

// Trigger will be triggered passively as processing time goes by.
// It runs on the timer goroutine and must not panic.
type Trigger[T comparable] interface {
	OnProcessingTime(timer Timer[T])
}

type TriggerFn[T comparable] func(timer Timer[T])

func (fn TriggerFn[T]) OnProcessingTime(timer Timer[T]) {
	fn(timer)
}

// Service keeps registered processing-time timers in a queue and arms a single
// clock timer for the head. Firings are serialized: a trigger never runs
// concurrently with another trigger of the same service.
type Service[T comparable] struct {
	clock   clock.Clock
	trigger Trigger[T]

	mutex     sync.Mutex
	fireMutex sync.Mutex
	status    status.Status
	queue     *timerQueue[T]

	nextTimer    *clock.Timer
	nextDeadline time.Time
	nextExecutor *executor.Executor
}

func NewService[T comparable](clk clock.Clock, trigger Trigger[T]) *Service[T] {
	return &Service[T]{
		clock:   clk,
		trigger: trigger,
		status:  status.Running,
		queue:   newTimerQueue[T](),
	}
}

// Register queues timer; registering the same timer twice is a no-op.
func (s *Service[T]) Register(timer Timer[T]) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if status.Load(&s.status).Closed() {
		return ErrServiceClosed
	}
	if s.queue.PushTimer(timer) {
		s.armLocked()
	}
	return nil
}

func (s *Service[T]) Delete(timer Timer[T]) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.queue.Remove(timer) {
		s.armLocked()
		return true
	}
	return false
}

// Next reports the deadline the clock timer is currently armed for.
func (s *Service[T]) Next() (time.Time, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.nextExecutor == nil {
		return time.Time{}, false
	}
	return s.nextDeadline, true
}

func (s *Service[T]) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.queue.Len()
}

// Close drops all pending timers. A trigger already running is not interrupted,
// but no trigger starts after Close returns.
func (s *Service[T]) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	status.Swap(&s.status, status.Closed)
	s.disarmLocked()
	s.queue = newTimerQueue[T]()
}

func (s *Service[T]) armLocked() {
	if s.queue.Len() == 0 {
		s.disarmLocked()
		return
	}
	head := s.queue.PeekTimer()
	if s.nextExecutor != nil && s.nextDeadline.Equal(head.Deadline) {
		return
	}
	s.disarmLocked()
	var exec *executor.Executor
	deadline := head.Deadline
	exec = executor.NewExecutor(func() {
		s.advance(exec, deadline)
	})
	s.nextExecutor = exec
	s.nextDeadline = deadline
	s.nextTimer = s.clock.AfterFunc(s.clock.Until(deadline), func() {
		exec.Exec()
	})
}

func (s *Service[T]) disarmLocked() {
	if s.nextExecutor != nil {
		s.nextExecutor.Cancel()
		s.nextExecutor = nil
	}
	if s.nextTimer != nil {
		s.nextTimer.Stop()
		s.nextTimer = nil
	}
}

func (s *Service[T]) advance(exec *executor.Executor, deadline time.Time) {
	s.fireMutex.Lock()
	defer s.fireMutex.Unlock()

	s.mutex.Lock()
	if status.Load(&s.status).Closed() {
		s.mutex.Unlock()
		return
	}
	if s.nextExecutor == exec {
		s.nextExecutor = nil
		s.nextTimer = nil
	}
	var due []Timer[T]
	for s.queue.Len() > 0 && !s.queue.PeekTimer().Deadline.After(deadline) {
		due = append(due, s.queue.PopTimer())
	}
	s.mutex.Unlock()

	for _, timer := range due {
		if status.Load(&s.status).Closed() {
			return
		}
		s.trigger.OnProcessingTime(timer)
	}

	s.mutex.Lock()
	if !status.Load(&s.status).Closed() {
		s.armLocked()
	}
	s.mutex.Unlock()
}
