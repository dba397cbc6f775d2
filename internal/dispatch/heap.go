package dispatch

import "container/heap"

// entryHeap implements container/heap.Interface for *Entry, ordered by
// ExecuteAt and then by insertion sequence so simultaneous entries stay FIFO.
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].ExecuteAt.Equal(h[j].ExecuteAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].ExecuteAt.Before(h[j].ExecuteAt)
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*Entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

func heapPush(h *entryHeap, e *Entry) {
	heap.Push(h, e)
}

// heapRemoveAt removes and returns the entry at index i. Index 0 is the head.
func heapRemoveAt(h *entryHeap, i int) *Entry {
	return heap.Remove(h, i).(*Entry)
}

// earliestDeadline returns the index of the entry whose Deadline comes first,
// or -1 when the heap is empty. Ties resolve to the heap order of the scan.
func (h entryHeap) earliestDeadline() int {
	idx := -1
	for i, e := range h {
		if idx < 0 || e.Deadline.Before(h[idx].Deadline) ||
			(e.Deadline.Equal(h[idx].Deadline) && e.seq < h[idx].seq) {
			idx = i
		}
	}
	return idx
}
