package element

import "time"

// Batch is everything a window retained for one interval [Start, End).
type Batch[T any] struct {
	Index  int64
	Start  time.Time
	End    time.Time
	Events []*Event[T]
}

func (b *Batch[T]) Len() int {
	return len(b.Events)
}

func (b *Batch[T]) Values() []T {
	values := make([]T, 0, len(b.Events))
	for _, event := range b.Events {
		values = append(values, event.Value)
	}
	return values
}
