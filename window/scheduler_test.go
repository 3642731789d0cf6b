package window

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/RuiFG/streaming/streaming-unique/timer"
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
)

type boundaries struct {
	mutex sync.Mutex
	fired []Boundary
}

func (b *boundaries) record(boundary Boundary) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.fired = append(b.fired, boundary)
}

func (b *boundaries) get() []Boundary {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]Boundary(nil), b.fired...)
}

func (b *boundaries) len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.fired)
}

func counterValue(scope tally.TestScope, name string) int64 {
	var total int64
	for _, counter := range scope.Snapshot().Counters() {
		if counter.Name() == name {
			total += counter.Value()
		}
	}
	return total
}

func waitNext(t *testing.T, scheduler *Scheduler, deadline time.Time) {
	t.Helper()
	require.Eventually(t, func() bool {
		next, ok := scheduler.NextBoundary()
		return ok && next.Equal(deadline)
	}, time.Second, time.Millisecond, "boundary %s never armed", deadline)
}

func TestNewScheduler_InvalidConfiguration(t *testing.T) {
	_, err := NewScheduler(clock.NewMock(), 0, 0)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	_, err = NewScheduler(clock.NewMock(), -time.Second, 0)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	_, err = NewScheduler(clock.NewMock(), time.Second, -time.Millisecond)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestScheduler_BoundarySpacing(t *testing.T) {
	mock := clock.NewMock()
	scheduler, err := NewScheduler(mock, time.Second, 0)
	require.NoError(t, err)
	assert.True(t, ms(0).Equal(scheduler.FirstBoundary()))
	b := &boundaries{}
	scheduler.OnBoundary(b.record)
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	for i := int64(1); i <= 3; i++ {
		waitNext(t, scheduler, ms(i*1000))
		mock.Add(time.Second)
		require.Eventually(t, func() bool { return b.len() == int(i) }, time.Second, time.Millisecond)
	}
	fired := b.get()
	for i, boundary := range fired {
		assert.EqualValues(t, i+1, boundary.Index)
		assert.True(t, ms(int64(i+1)*1000).Equal(boundary.Instant))
		assert.True(t, ms(int64(i)*1000).Equal(boundary.Start))
		assert.False(t, boundary.FiredAt.Before(boundary.Instant))
	}
	for i := 1; i < len(fired); i++ {
		assert.Equal(t, time.Second, fired[i].Instant.Sub(fired[i-1].Instant))
	}
}

func TestScheduler_NeverFiresEarly(t *testing.T) {
	mock := clock.NewMock()
	scheduler, err := NewScheduler(mock, time.Second, 0)
	require.NoError(t, err)
	b := &boundaries{}
	scheduler.OnBoundary(b.record)
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	waitNext(t, scheduler, ms(1000))
	mock.Add(999 * time.Millisecond)
	assert.Never(t, func() bool { return b.len() > 0 }, 20*time.Millisecond, time.Millisecond)
	mock.Add(time.Millisecond)
	assert.Eventually(t, func() bool { return b.len() == 1 }, time.Second, time.Millisecond)
}

func TestScheduler_Offset(t *testing.T) {
	mock := clock.NewMock()
	scheduler, err := NewScheduler(mock, time.Second, 250*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ms(250).Equal(scheduler.FirstBoundary()))
	b := &boundaries{}
	scheduler.OnBoundary(b.record)
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	waitNext(t, scheduler, ms(250))
	mock.Add(250 * time.Millisecond)
	require.Eventually(t, func() bool { return b.len() == 1 }, time.Second, time.Millisecond)
	first := b.get()[0]
	assert.EqualValues(t, 0, first.Index)
	assert.True(t, ms(0).Equal(first.Start))
	assert.True(t, ms(250).Equal(first.Instant))
	waitNext(t, scheduler, ms(1250))
}

func TestScheduler_StartTime(t *testing.T) {
	mock := clock.NewMock()
	mock.Add(10 * time.Second)
	scheduler, err := NewScheduler(mock, time.Second, 0, WithSchedulerStartTime(ms(7500)))
	require.NoError(t, err)
	assert.True(t, ms(7500).Equal(scheduler.FirstBoundary()))
	b := &boundaries{}
	scheduler.OnBoundary(b.record)
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	waitNext(t, scheduler, ms(10500))
	mock.Add(500 * time.Millisecond)
	require.Eventually(t, func() bool { return b.len() == 1 }, time.Second, time.Millisecond)
	first := b.get()[0]
	assert.EqualValues(t, 3, first.Index)
	// the interval is clipped to the instant the scheduler was built
	assert.True(t, ms(10000).Equal(first.Start))
}

func TestScheduler_LateFiringSkipsElapsedBoundaries(t *testing.T) {
	mock := clock.NewMock()
	scope := tally.NewTestScope("", nil)
	scheduler, err := NewScheduler(mock, time.Second, 0, WithSchedulerScope(scope))
	require.NoError(t, err)
	b := &boundaries{}
	release := make(chan struct{})
	scheduler.OnBoundary(func(boundary Boundary) {
		b.record(boundary)
		if boundary.Index == 1 {
			<-release
		}
	})
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	waitNext(t, scheduler, ms(1000))
	mock.Add(time.Second)
	require.Eventually(t, func() bool { return b.len() == 1 }, time.Second, time.Millisecond)
	// the expiry is still running when the following boundary passes
	mock.Add(1500 * time.Millisecond)
	close(release)

	waitNext(t, scheduler, ms(3000))
	assert.Equal(t, 1, b.len())
	assert.EqualValues(t, 1, counterValue(scope, "skipped_boundaries"))

	mock.Add(500 * time.Millisecond)
	require.Eventually(t, func() bool { return b.len() == 2 }, time.Second, time.Millisecond)
	assert.EqualValues(t, 3, b.get()[1].Index)
	assert.True(t, ms(2000).Equal(b.get()[1].Start))
}

func TestScheduler_StopCancelsPending(t *testing.T) {
	mock := clock.NewMock()
	scheduler, err := NewScheduler(mock, time.Second, 0)
	require.NoError(t, err)
	b := &boundaries{}
	scheduler.OnBoundary(b.record)
	require.NoError(t, scheduler.Start())
	waitNext(t, scheduler, ms(1000))

	scheduler.Stop()
	_, armed := scheduler.NextBoundary()
	assert.False(t, armed)
	mock.Add(3 * time.Second)
	assert.Never(t, func() bool { return b.len() > 0 }, 20*time.Millisecond, time.Millisecond)
	assert.Error(t, scheduler.Start())
}

func TestScheduler_BoundaryInFlightAfterStop(t *testing.T) {
	mock := clock.NewMock()
	scope := tally.NewTestScope("", nil)
	scheduler, err := NewScheduler(mock, time.Second, 0, WithSchedulerScope(scope))
	require.NoError(t, err)
	b := &boundaries{}
	scheduler.OnBoundary(b.record)
	require.NoError(t, scheduler.Start())
	waitNext(t, scheduler, ms(1000))

	scheduler.Stop()
	// the timer goroutine delivers a boundary it popped before Stop
	mock.Add(time.Second)
	scheduler.fire(timer.Timer[int64]{Payload: 1, Deadline: ms(1000)})

	assert.Equal(t, 0, b.len())
	for _, lateness := range scope.Snapshot().Timers() {
		assert.Empty(t, lateness.Values())
	}
	_, armed := scheduler.NextBoundary()
	assert.False(t, armed)
}

func TestScheduler_ArmOverflow(t *testing.T) {
	scheduler, err := NewScheduler(clock.NewMock(), time.Duration(math.MaxInt64/2+1), 0)
	require.NoError(t, err)
	assert.NoError(t, scheduler.ScheduleNext(1))
	err = scheduler.ScheduleNext(2)
	assert.True(t, errors.Is(err, ErrSchedulerArm))
	scheduler.Stop()
	assert.True(t, errors.Is(scheduler.ScheduleNext(1), ErrSchedulerArm))
}

func TestScheduler_PanickingCallbackFails(t *testing.T) {
	mock := clock.NewMock()
	scheduler, err := NewScheduler(mock, time.Second, 0)
	require.NoError(t, err)
	failures := make(chan error, 1)
	scheduler.OnBoundary(func(Boundary) { panic("boom") })
	scheduler.OnFailure(func(err error) { failures <- err })
	require.NoError(t, scheduler.Start())

	waitNext(t, scheduler, ms(1000))
	mock.Add(time.Second)
	select {
	case err := <-failures:
		assert.True(t, errors.Is(err, ErrSchedulerArm))
		assert.Contains(t, err.Error(), "boom")
	case <-time.After(time.Second):
		t.Fatal("failure not reported")
	}
	_, armed := scheduler.NextBoundary()
	assert.False(t, armed)
}
