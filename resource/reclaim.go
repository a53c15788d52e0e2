package resource

import "container/heap"

// pendingItem is one resource waiting for its last-used epoch to complete.
type pendingItem struct {
	epoch   Epoch
	seq     uint64
	handle  Handle
	destroy func()
}

// pendingQueue is a min-heap ordered by epoch, with enqueue order breaking
// ties so that resources released within the same epoch reclaim FIFO.
type pendingQueue []pendingItem

var _ heap.Interface = &pendingQueue{}

func (q pendingQueue) Len() int { return len(q) }

func (q pendingQueue) Less(i, j int) bool {
	if q[i].epoch != q[j].epoch {
		return q[i].epoch < q[j].epoch
	}
	return q[i].seq < q[j].seq
}

func (q pendingQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pendingQueue) Push(x any) {
	*q = append(*q, x.(pendingItem))
}

func (q *pendingQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	old[len(old)-1] = pendingItem{}
	*q = old[:len(old)-1]
	return item
}
