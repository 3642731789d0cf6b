package mock

import "github.com/RuiFG/streaming/streaming-unique/element"

type ProcessBatchFn[T any] func(batch *element.Batch[T])

// Sink hands every batch to a callback.
type Sink[T any] struct {
	ProcessBatchFn[T]
}

func NewSink[T any](processBatchFn ProcessBatchFn[T]) *Sink[T] {
	return &Sink[T]{ProcessBatchFn: processBatchFn}
}

func (s *Sink[T]) EmitBatch(batch *element.Batch[T]) {
	s.ProcessBatchFn(batch)
}
