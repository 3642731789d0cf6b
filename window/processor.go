package window

import (
	"sync"

	"github.com/RuiFG/streaming/streaming-unique/common/safe"
	"github.com/RuiFG/streaming/streaming-unique/common/status"
	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/RuiFG/streaming/streaming-unique/log"
	"github.com/pkg/errors"
	"github.com/uber-go/tally/v4"
)

var batchSizeBuckets = tally.MustMakeExponentialValueBuckets(1, 2, 16)

// Processor is a tumbling processing-time window that keeps one event per key
// in every batch and hands the batch to its collector at each boundary.
type Processor[K comparable, T any] struct {
	name         string
	logger       log.Logger
	collector    element.Collector[T]
	selectorFn   KeySelector[K, T]
	diagnosticFn DiagnosticFn[T]
	policy       Policy
	emitEmpty    bool
	scheduler    *Scheduler

	// mutex guards the current set reference and status transitions,
	// admissions share it, the swap at a boundary owns it.
	mutex     sync.RWMutex
	current   *AdmissionSet[K, T]
	status    status.Status
	errorChan chan error

	admitted           tally.Counter
	rejected           tally.Counter
	extractionFailures tally.Counter
	dropped            tally.Counter
	batches            tally.Counter
	batchSize          tally.Histogram
}

func New[K comparable, T any](collector element.Collector[T], withOptionsFns ...WithOptions[K, T]) (*Processor[K, T], error) {
	if collector == nil {
		return nil, invalidConfiguration("collector can't be nil")
	}
	o := defaultOptions[K, T]()
	for _, withOptionsFn := range withOptionsFns {
		if err := withOptionsFn(o); err != nil {
			return nil, invalidConfiguration("illegal parameter: %v", err)
		}
	}
	if o.selectorFn == nil {
		return nil, invalidConfiguration("%s: key selector is required", o.name)
	}
	if o.windowSize <= 0 {
		return nil, invalidConfiguration("%s: window.time is required", o.name)
	}

	logger := o.logger.Named("window").With("window", o.name)
	scope := o.scope.Tagged(map[string]string{"window": o.name})
	schedulerOptions := []SchedulerOption{WithSchedulerLogger(logger.Named("scheduler")), WithSchedulerScope(scope)}
	if !o.startTime.IsZero() {
		schedulerOptions = append(schedulerOptions, WithSchedulerStartTime(o.startTime))
	}
	scheduler, err := NewScheduler(o.clock, o.windowSize, o.offset, schedulerOptions...)
	if err != nil {
		return nil, err
	}

	return &Processor[K, T]{
		name:               o.name,
		logger:             logger,
		collector:          collector,
		selectorFn:         o.selectorFn,
		diagnosticFn:       o.diagnosticFn,
		policy:             o.policy,
		emitEmpty:          o.emitEmpty,
		scheduler:          scheduler,
		current:            NewAdmissionSet[K, T](0),
		errorChan:          make(chan error, 1),
		admitted:           scope.Counter("admitted"),
		rejected:           scope.Counter("rejected"),
		extractionFailures: scope.Counter("key_extraction_failures"),
		dropped:            scope.Counter("dropped"),
		batches:            scope.Counter("batches"),
		batchSize:          scope.Histogram("batch_size", batchSizeBuckets),
	}, nil
}

func (p *Processor[K, T]) Name() string {
	return p.name
}

func (p *Processor[K, T]) Policy() Policy {
	return p.policy
}

// Scheduler exposes the boundary schedule, mostly for inspection.
func (p *Processor[K, T]) Scheduler() *Scheduler {
	return p.scheduler
}

// Errors delivers the failure that closed the processor, at most once.
func (p *Processor[K, T]) Errors() <-chan error {
	return p.errorChan
}

// Open starts the boundary schedule, events are admitted from then on.
func (p *Processor[K, T]) Open() error {
	p.mutex.Lock()
	if !status.CAP(&p.status, status.Ready, status.Running) {
		current := status.Load(&p.status)
		p.mutex.Unlock()
		return errors.Errorf("window %s is %s, can't open", p.name, current)
	}
	p.mutex.Unlock()

	p.scheduler.OnBoundary(p.expire)
	p.scheduler.OnFailure(p.fail)
	if err := p.scheduler.Start(); err != nil {
		p.fail(err)
		return err
	}
	p.logger.Infow("window opened", "policy", p.policy, "period", p.scheduler.Period(),
		"first_boundary", p.scheduler.FirstBoundary(), "emit_empty", p.emitEmpty)
	return nil
}

// ProcessEvent offers event to the current batch. Duplicates are dropped
// according to the policy, events whose key can't be extracted are reported
// and dropped.
func (p *Processor[K, T]) ProcessEvent(event *element.Event[T]) {
	var key K
	if err := safe.Run(func() (err error) {
		key, err = p.selectorFn(event.Value)
		return err
	}); err != nil {
		if !errors.Is(err, ErrKeyExtraction) {
			err = errors.WithMessage(ErrKeyExtraction, err.Error())
		}
		p.extractionFailures.Inc(1)
		p.logger.Warnw("dropping event without key", "err", err)
		p.diagnosticFn(event, err)
		return
	}

	p.mutex.RLock()
	if !status.Load(&p.status).Running() {
		p.mutex.RUnlock()
		p.dropped.Inc(1)
		return
	}
	admitted := p.current.Admit(p.policy, key, event)
	p.mutex.RUnlock()

	if admitted {
		p.admitted.Inc(1)
	} else {
		p.rejected.Inc(1)
	}
}

func (p *Processor[K, T]) expire(boundary Boundary) {
	p.mutex.Lock()
	if !status.Load(&p.status).Running() {
		p.mutex.Unlock()
		return
	}
	previous := p.current
	p.current = NewAdmissionSet[K, T](previous.Len())
	events := previous.DrainAll()
	p.mutex.Unlock()

	p.batchSize.RecordValue(float64(len(events)))
	if len(events) == 0 && !p.emitEmpty {
		return
	}
	p.collector.EmitBatch(&element.Batch[T]{
		Index:  boundary.Index,
		Start:  boundary.Start,
		End:    boundary.Instant,
		Events: events,
	})
	p.batches.Inc(1)
	p.logger.Debugw("batch emitted", "index", boundary.Index, "size", len(events), "fired_at", boundary.FiredAt)
}

func (p *Processor[K, T]) fail(err error) {
	p.mutex.Lock()
	previous := status.Swap(&p.status, status.Closed)
	p.mutex.Unlock()
	if previous.Closed() {
		return
	}
	p.scheduler.Stop()
	p.logger.Errorw("window failed", "err", err)
	select {
	case p.errorChan <- err:
	default:
	}
}

// Close cancels the pending boundary. No batch is emitted once Close has begun,
// events retained for the open batch are discarded.
func (p *Processor[K, T]) Close() error {
	p.mutex.Lock()
	previous := status.Swap(&p.status, status.Closed)
	p.mutex.Unlock()
	p.scheduler.Stop()
	if !previous.Closed() {
		p.logger.Infow("window closed")
	}
	return nil
}
