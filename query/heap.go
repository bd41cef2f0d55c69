package query

import (
	"container/heap"
	"sort"
)

// scoreHeap is a min-heap of the current top-k candidates: the weakest
// candidate (lowest score, ties broken toward evicting the higher docid
// so the older/lower-docid insertion survives) sits at the root, ready
// to be evicted when a stronger candidate arrives.
type scoreHeap []ScoredDoc

func (h scoreHeap) Len() int { return len(h) }
func (h scoreHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}
func (h scoreHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}
func (h *scoreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// pushCapped inserts doc into h, evicting the current weakest entry
// first if h is already at capacity and doc beats it.
func pushCapped(h *scoreHeap, doc ScoredDoc, capacity int) {
	if capacity <= 0 {
		return
	}
	if h.Len() < capacity {
		heap.Push(h, doc)
		return
	}
	root := (*h)[0]
	better := doc.Score > root.Score || (doc.Score == root.Score && doc.DocID < root.DocID)
	if better {
		heap.Pop(h)
		heap.Push(h, doc)
	}
}

// drainHeap empties h and returns its contents ranked best-first: score
// descending, ties broken by docid ascending.
func drainHeap(h *scoreHeap) []ScoredDoc {
	out := make([]ScoredDoc, len(*h))
	copy(out, *h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocID < out[j].DocID
	})
	return out
}
