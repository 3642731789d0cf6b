package window

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/stretchr/testify/assert"
)

func event(value int) *element.Event[int] {
	return &element.Event[int]{Value: value}
}

func values(events []*element.Event[int]) []int {
	out := make([]int, 0, len(events))
	for _, e := range events {
		out = append(out, e.Value)
	}
	return out
}

func TestAdmissionSet_TryAdmitKeepsFirst(t *testing.T) {
	set := NewAdmissionSet[string, int](0)
	assert.True(t, set.TryAdmit("A", event(10)))
	assert.True(t, set.TryAdmit("B", event(20)))
	assert.False(t, set.TryAdmit("A", event(99)))
	assert.True(t, set.Contains("A"))
	assert.False(t, set.Contains("C"))
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []int{10, 20}, values(set.DrainAll()))
}

func TestAdmissionSet_DrainTwice(t *testing.T) {
	set := NewAdmissionSet[int, int](4)
	for i := 0; i < 4; i++ {
		set.TryAdmit(i, event(i))
	}
	assert.Equal(t, []int{0, 1, 2, 3}, values(set.DrainAll()))
	second := set.DrainAll()
	assert.NotNil(t, second)
	assert.Empty(t, second)
	assert.Equal(t, 0, set.Len())
}

func TestAdmissionSet_ReplaceKeepsSlot(t *testing.T) {
	set := NewAdmissionSet[string, int](-1)
	assert.False(t, set.Replace("A", event(10)))
	assert.False(t, set.Replace("B", event(20)))
	assert.True(t, set.Replace("A", event(99)))
	assert.Equal(t, []int{99, 20}, values(set.DrainAll()))
}

func TestAdmissionSet_AdmitDispatchesPolicy(t *testing.T) {
	first := NewAdmissionSet[string, int](0)
	assert.True(t, first.Admit(FirstWins, "A", event(1)))
	assert.False(t, first.Admit(FirstWins, "A", event(2)))
	assert.Equal(t, []int{1}, values(first.DrainAll()))

	last := NewAdmissionSet[string, int](0)
	assert.True(t, last.Admit(LastWins, "A", event(1)))
	assert.True(t, last.Admit(LastWins, "A", event(2)))
	assert.Equal(t, []int{2}, values(last.DrainAll()))
}

func TestAdmissionSet_ConcurrentDuplicates(t *testing.T) {
	const producers, keys = 16, 200
	set := NewAdmissionSet[string, int](0)
	var accepted int64
	wg := sync.WaitGroup{}
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for k := 0; k < keys; k++ {
				if set.TryAdmit(strconv.Itoa(k), event(p*keys+k)) {
					atomic.AddInt64(&accepted, 1)
				}
			}
		}(p)
	}
	wg.Wait()
	assert.EqualValues(t, keys, accepted)
	drained := set.DrainAll()
	assert.Len(t, drained, keys)
	seen := map[int]bool{}
	for _, e := range drained {
		k := e.Value % keys
		assert.False(t, seen[k], "key %d drained twice", k)
		seen[k] = true
	}
}
