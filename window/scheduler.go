package window

import (
	"sync"
	"time"

	"github.com/RuiFG/streaming/streaming-unique/common/safe"
	"github.com/RuiFG/streaming/streaming-unique/common/status"
	"github.com/RuiFG/streaming/streaming-unique/log"
	"github.com/RuiFG/streaming/streaming-unique/timer"
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/uber-go/tally/v4"
)

// Boundary is handed to the expiry callback, it closes the interval [Start, Instant).
type Boundary struct {
	Index   int64
	Start   time.Time
	Instant time.Time
	FiredAt time.Time
}

type SchedulerOption func(s *Scheduler)

// WithSchedulerStartTime anchors the boundaries at startTime + offset
// instead of the construction instant + offset.
func WithSchedulerStartTime(startTime time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.startTime = startTime
	}
}

func WithSchedulerLogger(logger log.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithSchedulerScope(scope tally.Scope) SchedulerOption {
	return func(s *Scheduler) {
		s.scope = scope
	}
}

// Scheduler fires one callback per tumbling boundary. Boundaries are armed one
// at a time on a processing-time timer.Service, the next one is armed after the
// callback of the current one returned.
type Scheduler struct {
	logger log.Logger
	scope  tally.Scope
	clock  clock.Clock

	grid        grid
	startTime   time.Time
	constructed time.Time
	service     *timer.Service[int64]

	mutex      sync.Mutex
	onBoundary func(boundary Boundary)
	onFailure  func(err error)
	status     status.Status

	skipped  tally.Counter
	lateness tally.Timer
}

func NewScheduler(clk clock.Clock, period, offset time.Duration, options ...SchedulerOption) (*Scheduler, error) {
	if period <= 0 {
		return nil, invalidConfiguration("window.time must be positive, got %s", period)
	}
	if offset < 0 {
		return nil, invalidConfiguration("start.time can't be negative, got %s", offset)
	}
	if clk == nil {
		clk = clock.New()
	}
	s := &Scheduler{
		logger:      log.Nop(),
		scope:       tally.NoopScope,
		clock:       clk,
		constructed: clk.Now(),
		onBoundary:  func(Boundary) {},
		onFailure:   func(error) {},
	}
	for _, option := range options {
		option(s)
	}
	anchor := s.constructed
	if !s.startTime.IsZero() {
		anchor = s.startTime
	}
	s.grid = grid{anchor: anchor.Add(offset), period: period}
	s.service = timer.NewService[int64](clk, timer.TriggerFn[int64](s.fire))
	s.skipped = s.scope.Counter("skipped_boundaries")
	s.lateness = s.scope.Timer("boundary_lateness")
	return s, nil
}

func (s *Scheduler) Period() time.Duration {
	return s.grid.period
}

// FirstBoundary is the anchor of the boundary sequence.
func (s *Scheduler) FirstBoundary() time.Time {
	return s.grid.anchor
}

// NextBoundary reports the boundary currently armed.
func (s *Scheduler) NextBoundary() (time.Time, bool) {
	return s.service.Next()
}

// OnBoundary registers the expiry action. It must be set before Start.
func (s *Scheduler) OnBoundary(callback func(boundary Boundary)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.onBoundary = callback
}

// OnFailure registers the action run once when the scheduler gives up.
func (s *Scheduler) OnFailure(callback func(err error)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.onFailure = callback
}

// Start arms the first boundary strictly after now.
func (s *Scheduler) Start() error {
	if !status.CAP(&s.status, status.Ready, status.Running) {
		return errors.Errorf("scheduler is %s, can't start", status.Load(&s.status))
	}
	return s.ScheduleNext(s.grid.indexAfter(s.clock.Now()))
}

// ScheduleNext arms boundary n.
func (s *Scheduler) ScheduleNext(n int64) error {
	deadline, err := s.grid.at(n)
	if err != nil {
		return errors.WithMessage(ErrSchedulerArm, err.Error())
	}
	if err = s.service.Register(timer.Timer[int64]{Payload: n, Deadline: deadline}); err != nil {
		return errors.WithMessagef(ErrSchedulerArm, "boundary %d at %s: %v", n, deadline, err)
	}
	s.logger.Debugw("boundary armed", "index", n, "deadline", deadline)
	return nil
}

// Stop cancels the pending boundary. A callback already running completes,
// and a boundary that passed its status check before Stop may still start its
// callback after Stop returns. Owners re-check their own state in the callback.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	status.Swap(&s.status, status.Closed)
	s.mutex.Unlock()
	s.service.Close()
}

func (s *Scheduler) fire(t timer.Timer[int64]) {
	boundary := Boundary{
		Index:   t.Payload,
		Start:   s.intervalStart(t.Payload),
		Instant: t.Deadline,
		FiredAt: s.clock.Now(),
	}
	s.mutex.Lock()
	running := status.Load(&s.status).Running()
	onBoundary := s.onBoundary
	s.mutex.Unlock()
	if !running {
		return
	}
	s.lateness.Record(boundary.FiredAt.Sub(boundary.Instant))

	if err := safe.Run(func() error {
		onBoundary(boundary)
		return nil
	}); err != nil {
		s.fail(errors.WithMessagef(ErrSchedulerArm, "boundary %d callback: %v", boundary.Index, err))
		return
	}
	if !status.Load(&s.status).Running() {
		return
	}

	next := boundary.Index + 1
	if nextDeadline, err := s.grid.at(next); err == nil && !nextDeadline.After(s.clock.Now()) {
		// late, one expiry was fired for the missed boundary, resume on the grid
		next = s.grid.indexAfter(s.clock.Now())
		skipped := next - boundary.Index - 1
		s.skipped.Inc(skipped)
		s.logger.Warnw("boundary fired late, skipping elapsed boundaries",
			"index", boundary.Index, "skipped", skipped, "resume", next)
	}
	if err := s.ScheduleNext(next); err != nil {
		if status.Load(&s.status).Closed() {
			return
		}
		s.fail(err)
	}
}

func (s *Scheduler) intervalStart(n int64) time.Time {
	if n == 0 {
		return s.constructed
	}
	start, _ := s.grid.at(n - 1)
	if start.Before(s.constructed) {
		return s.constructed
	}
	return start
}

func (s *Scheduler) fail(err error) {
	if status.Swap(&s.status, status.Closed).Closed() {
		return
	}
	s.service.Close()
	s.mutex.Lock()
	onFailure := s.onFailure
	s.mutex.Unlock()
	s.logger.Errorw("scheduler stopped", "err", err)
	onFailure(err)
}
