package selector

import "sort"

// boundedHeap keeps the k best items seen so far, ordered by a score
// extractor. It is a plain binary min-heap over (score, sequence) pairs: the
// root is the current worst of the kept set, so each offer beyond capacity is
// a single O(log k) sift instead of an O(n log n) sort of everything.
//
// Ties are stable: an incumbent with an equal score always beats a later
// arrival, so the final ranking matches what a stable descending sort of the
// full input would produce.
type boundedHeap[T any] struct {
	k     int
	score func(T) float32
	items []heapItem[T]
}

type heapItem[T any] struct {
	value T
	score float32
	seq   int
}

func newBoundedHeap[T any](k int, score func(T) float32) *boundedHeap[T] {
	return &boundedHeap[T]{
		k:     k,
		score: score,
		items: make([]heapItem[T], 0, k),
	}
}

// worse reports whether a ranks below b: lower score, or on equal scores the
// later arrival.
func worse[T any](a, b heapItem[T]) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.seq > b.seq
}

// Offer considers one item. seq must be strictly increasing across calls.
func (h *boundedHeap[T]) Offer(value T, seq int) {
	if h.k <= 0 {
		return
	}
	item := heapItem[T]{value: value, score: h.score(value), seq: seq}

	if len(h.items) < h.k {
		h.items = append(h.items, item)
		h.siftUp(len(h.items) - 1)
		return
	}
	// Root is the worst kept item; a newcomer must strictly beat it.
	if !worse(h.items[0], item) {
		return
	}
	h.items[0] = item
	h.siftDown(0)
}

// Sorted drains the heap, best first (score descending, arrival order on ties).
func (h *boundedHeap[T]) Sorted() []T {
	sort.Slice(h.items, func(i, j int) bool {
		return worse(h.items[j], h.items[i])
	})
	out := make([]T, len(h.items))
	for i, item := range h.items {
		out[i] = item.value
	}
	h.items = h.items[:0]
	return out
}

func (h *boundedHeap[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !worse(h.items[i], h.items[parent]) {
			return
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *boundedHeap[T]) siftDown(i int) {
	n := len(h.items)
	for {
		worst := i
		if l := 2*i + 1; l < n && worse(h.items[l], h.items[worst]) {
			worst = l
		}
		if r := 2*i + 2; r < n && worse(h.items[r], h.items[worst]) {
			worst = r
		}
		if worst == i {
			return
		}
		h.items[i], h.items[worst] = h.items[worst], h.items[i]
		i = worst
	}
}
