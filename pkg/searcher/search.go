// Package searcher finds the top-K frames in a hashstore.Store whose
// perceptual hash is closest, by Hamming distance, to a query hash.
package searcher

import (
	"container/heap"
	"context"
	"sort"

	"videoindex/pkg/framehash"
	"videoindex/pkg/hashstore"
	"videoindex/pkg/phash"
)

// DefaultTopK is used when a caller passes a non-positive topK.
const DefaultTopK = 50

// Match pairs an indexed record with its distance from the query hash.
type Match struct {
	Record   *framehash.LazyFrameHash
	Distance int
}

// Similarity maps Distance to a [0,1] score, 1.0 being an exact match.
func (m Match) Similarity() float64 { return phash.Similarity(m.Distance) }

// ProgressFunc reports how many of the store's bytes have been scanned.
type ProgressFunc func(bytesRead, total int64)

// Search scans every record in store, keeping the topK closest to query by
// Hamming distance, and returns them sorted nearest-first. Ties in distance
// are broken by the record's position in the store (earlier wins), so
// repeated searches over an unchanged store are deterministic.
//
// The scan is bounded to O(n log topK): a topK-sized max-heap (ordered so
// the currently-worst kept match sits at the root) is evicted only when a
// strictly closer candidate arrives, so one full pass over the store
// suffices without sorting the whole index.
func Search(ctx context.Context, store *hashstore.Store, query phash.Hash, topK int, progress ProgressFunc) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	h := &matchHeap{}
	heap.Init(h)
	seq := 0

	err := store.IterateWithProgress(ctx, func(rec *framehash.LazyFrameHash, bytesRead, total int64) error {
		if rec == nil {
			// Empty store: one synthetic (0,0) progress tick, nothing to rank.
			if progress != nil {
				progress(bytesRead, total)
			}
			return nil
		}

		distance := phash.HammingDistance(query, rec.Hash)
		item := &matchItem{match: Match{Record: rec, Distance: distance}, seq: seq}
		seq++

		switch {
		case h.Len() < topK:
			heap.Push(h, item)
		case distance < (*h)[0].match.Distance:
			heap.Pop(h)
			heap.Push(h, item)
		}

		if progress != nil {
			progress(bytesRead, total)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]*matchItem, len(*h))
	copy(items, *h)
	sort.Slice(items, func(i, j int) bool {
		if items[i].match.Distance != items[j].match.Distance {
			return items[i].match.Distance < items[j].match.Distance
		}
		return items[i].seq < items[j].seq
	})

	out := make([]Match, len(items))
	for i, it := range items {
		out[i] = it.match
	}
	return out, nil
}

// matchItem augments a Match with its discovery order, used only to break
// distance ties deterministically in the final sort.
type matchItem struct {
	match Match
	seq   int
}

// matchHeap is a max-heap by Distance: the worst kept match is always at
// the root, so Search can test a new candidate against it in O(1) and evict
// in O(log topK).
type matchHeap []*matchItem

func (h matchHeap) Len() int { return len(h) }
func (h matchHeap) Less(i, j int) bool {
	if h[i].match.Distance != h[j].match.Distance {
		return h[i].match.Distance > h[j].match.Distance
	}
	// Among equal distances the later record is the worse one, so eviction
	// keeps earlier records and the tie-break holds across the whole scan.
	return h[i].seq > h[j].seq
}
func (h matchHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(x interface{}) { *h = append(*h, x.(*matchItem)) }
func (h *matchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
