// Package mock generates events in bursts and collects batches through a callback.
package mock

import (
	"context"
	"math/rand"
	"time"

	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/benbjohnson/clock"
)

type GeneratorFn[T any] func() T

// Source emits number generated events every interval.
type Source[T any] struct {
	GeneratorFn[T]
	clock    clock.Clock
	interval time.Duration
	number   int
}

func NewSource[T any](generatorFn GeneratorFn[T], interval time.Duration, number int) *Source[T] {
	return &Source[T]{GeneratorFn: generatorFn, clock: clock.New(), interval: interval, number: number}
}

// WithClock replaces the clock pacing the bursts.
func (s *Source[T]) WithClock(clk clock.Clock) *Source[T] {
	s.clock = clk
	return s
}

func (s *Source[T]) Run(ctx context.Context, emit element.Emit[T]) error {
	for {
		for i := 0; i < s.number; i++ {
			emit(&element.Event[T]{
				Value:        s.GeneratorFn(),
				Timestamp:    s.clock.Now().UnixMilli(),
				HasTimestamp: true,
			})
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(s.interval):
		}
	}
}

// DefaultSymbols feeds Quotes when no symbol is given.
var DefaultSymbols = []string{"IBM", "WSO2", "ORCL"}

// Quotes generates stock quote records over a fixed symbol set, the way the
// stock examples of a unique window are usually fed. An empty set falls back
// to DefaultSymbols.
func Quotes(symbols []string, seed int64) GeneratorFn[element.Record] {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	random := rand.New(rand.NewSource(seed))
	return func() element.Record {
		return element.Record{
			"symbol": symbols[random.Intn(len(symbols))],
			"price":  float32(random.Intn(10000)) / 100,
			"volume": random.Intn(1000),
		}
	}
}
