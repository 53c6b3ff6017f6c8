package translator

import (
	"container/heap"
	"time"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
)

// scheduledQueue is a priority queue keyed by firing deadline, drained at the
// start of every tick rather than via per-event one-shot timers, per
// spec.md §9 ("Scheduling with delayed events"): per-event timers multiply
// under load and starve the event loop.
type scheduledQueue struct {
	items scheduledHeap
	now   func() time.Time
}

func newScheduledQueue() *scheduledQueue {
	return &scheduledQueue{now: time.Now}
}

func (q *scheduledQueue) Push(ev native.NativeEvent) {
	heap.Push(&q.items, ev)
}

// DrainDue pops and returns every event whose FireAt has passed.
func (q *scheduledQueue) DrainDue() []native.NativeEvent {
	now := q.now()
	var due []native.NativeEvent
	for q.items.Len() > 0 && q.items[0].Due(now) {
		ev := heap.Pop(&q.items).(native.NativeEvent)
		due = append(due, ev)
	}
	return due
}

type scheduledHeap []native.NativeEvent

func (h scheduledHeap) Len() int { return len(h) }
func (h scheduledHeap) Less(i, j int) bool { return h[i].FireAt.Before(h[j].FireAt) }
func (h scheduledHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *scheduledHeap) Push(x any) {
	*h = append(*h, x.(native.NativeEvent))
}

func (h *scheduledHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
