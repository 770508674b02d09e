package scheduler

import "container/heap"

type heapEntry struct {
	task Task
	seq  uint64
}

// taskHeap pops the highest priority first, then the earliest createdAt, then
// the earliest admission.
type taskHeap []heapEntry

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.task.Priority() != b.task.Priority() {
		return a.task.Priority() > b.task.Priority()
	}
	if ca, cb := a.task.CreatedAt(), b.task.CreatedAt(); !ca.Equal(cb) {
		return ca.Before(cb)
	}
	return a.seq < b.seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(heapEntry)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = heapEntry{}
	*h = old[:n-1]
	return item
}

func (h *taskHeap) push(task Task, seq uint64) {
	heap.Push(h, heapEntry{task: task, seq: seq})
}

func (h *taskHeap) pop() Task {
	return heap.Pop(h).(heapEntry).task
}
