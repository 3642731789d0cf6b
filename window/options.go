package window

import (
	"time"

	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/RuiFG/streaming/streaming-unique/log"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uber-go/tally/v4"
)

// KeySelector derives the uniqueness key of a value.
type KeySelector[K comparable, T any] func(value T) (K, error)

// DiagnosticFn receives events left out of a batch because their key could not be extracted.
type DiagnosticFn[T any] func(event *element.Event[T], err error)

type options[K comparable, T any] struct {
	name         string
	selectorFn   KeySelector[K, T]
	windowSize   time.Duration
	offset       time.Duration
	startTime    time.Time
	policy       Policy
	emitEmpty    bool
	clock        clock.Clock
	logger       log.Logger
	scope        tally.Scope
	diagnosticFn DiagnosticFn[T]
}

type WithOptions[K comparable, T any] func(opts *options[K, T]) error

func WithName[K comparable, T any](name string) WithOptions[K, T] {
	return func(opts *options[K, T]) error {
		if name == "" {
			return errors.Errorf("name can't be empty")
		}
		opts.name = name
		return nil
	}
}

func WithKeySelector[K comparable, T any](fn KeySelector[K, T]) WithOptions[K, T] {
	return func(opts *options[K, T]) error {
		if fn == nil {
			return errors.Errorf("KeySelector can't be nil")
		}
		opts.selectorFn = fn
		return nil
	}
}

// WithTumblingProcessingTime sets the batch length and the phase offset of the boundaries.
func WithTumblingProcessingTime[K comparable, T any](windowSize time.Duration, globalOffset time.Duration) WithOptions[K, T] {
	return func(opts *options[K, T]) error {
		if windowSize <= 0 {
			return errors.Errorf("windowSize should be positive, got %s", windowSize)
		}
		if globalOffset < 0 {
			return errors.Errorf("globalOffset can't be less than 0, got %s", globalOffset)
		}
		opts.windowSize = windowSize
		opts.offset = globalOffset
		return nil
	}
}

// WithStartTime aligns boundaries to startTime instead of the construction instant.
func WithStartTime[K comparable, T any](startTime time.Time) WithOptions[K, T] {
	return func(opts *options[K, T]) error {
		opts.startTime = startTime
		return nil
	}
}

func WithPolicy[K comparable, T any](policy Policy) WithOptions[K, T] {
	return func(opts *options[K, T]) error {
		if policy != FirstWins && policy != LastWins {
			return errors.Errorf("unknown policy %d", policy)
		}
		opts.policy = policy
		return nil
	}
}

// WithEmitEmpty controls whether a boundary with nothing retained still emits a batch.
func WithEmitEmpty[K comparable, T any](emitEmpty bool) WithOptions[K, T] {
	return func(opts *options[K, T]) error {
		opts.emitEmpty = emitEmpty
		return nil
	}
}

func WithClock[K comparable, T any](clk clock.Clock) WithOptions[K, T] {
	return func(opts *options[K, T]) error {
		if clk == nil {
			return errors.Errorf("clock can't be nil")
		}
		opts.clock = clk
		return nil
	}
}

func WithLogger[K comparable, T any](logger log.Logger) WithOptions[K, T] {
	return func(opts *options[K, T]) error {
		if logger == nil {
			return errors.Errorf("logger can't be nil")
		}
		opts.logger = logger
		return nil
	}
}

func WithScope[K comparable, T any](scope tally.Scope) WithOptions[K, T] {
	return func(opts *options[K, T]) error {
		if scope == nil {
			return errors.Errorf("scope can't be nil")
		}
		opts.scope = scope
		return nil
	}
}

func WithDiagnostic[K comparable, T any](fn DiagnosticFn[T]) WithOptions[K, T] {
	return func(opts *options[K, T]) error {
		if fn == nil {
			return errors.Errorf("DiagnosticFn can't be nil")
		}
		opts.diagnosticFn = fn
		return nil
	}
}

func defaultOptions[K comparable, T any]() *options[K, T] {
	return &options[K, T]{
		name:         "unique-" + uuid.NewString()[:8],
		policy:       FirstWins,
		emitEmpty:    true,
		clock:        clock.New(),
		logger:       log.Global(),
		scope:        tally.NoopScope,
		diagnosticFn: func(*element.Event[T], error) {},
	}
}
