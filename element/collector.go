package element

// Collector receives the batches a window emits.
type Collector[T any] interface {
	EmitBatch(batch *Batch[T])
}

type CollectorFn[T any] func(batch *Batch[T])

func (fn CollectorFn[T]) EmitBatch(batch *Batch[T]) {
	fn(batch)
}
