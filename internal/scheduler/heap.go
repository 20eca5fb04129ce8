package scheduler

import (
	"container/heap"
	"time"
)

// entry is a job's next fire time
type entry struct {
	job   string
	at    time.Time
	index int // index in the heap (for heap.Interface)
}

// entryHeap is a min-heap of entries ordered by fire time
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	return h[i].at.Before(h[j].at)
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil // avoid memory leak
	e.index = -1
	*h = old[:n-1]
	return e
}

// fireQueue holds at most one pending fire time per job. Not safe for
// concurrent use; the scheduler guards it with its mutex.
type fireQueue struct {
	heap  entryHeap
	byJob map[string]*entry
}

func newFireQueue() *fireQueue {
	q := &fireQueue{byJob: make(map[string]*entry)}
	heap.Init(&q.heap)
	return q
}

// schedule sets job's next fire time, replacing any pending one
func (q *fireQueue) schedule(job string, at time.Time) {
	if e, ok := q.byJob[job]; ok {
		e.at = at
		heap.Fix(&q.heap, e.index)
		return
	}
	e := &entry{job: job, at: at}
	heap.Push(&q.heap, e)
	q.byJob[job] = e
}

// peek returns the earliest entry without removing it
func (q *fireQueue) peek() (*entry, bool) {
	if q.heap.Len() == 0 {
		return nil, false
	}
	return q.heap[0], true
}

func (q *fireQueue) pop() *entry {
	e := heap.Pop(&q.heap).(*entry)
	delete(q.byJob, e.job)
	return e
}

// next returns job's pending fire time
func (q *fireQueue) next(job string) (time.Time, bool) {
	e, ok := q.byJob[job]
	if !ok {
		return time.Time{}, false
	}
	return e.at, true
}
