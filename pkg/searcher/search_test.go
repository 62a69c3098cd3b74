package searcher

import (
	"context"
	"path/filepath"
	"testing"

	"videoindex/pkg/framehash"
	"videoindex/pkg/hashstore"
	"videoindex/pkg/phash"
)

func buildStore(t *testing.T, hashes []phash.Hash) *hashstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.bin")
	s, err := hashstore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	for i, h := range hashes {
		fh := &framehash.FrameHash{
			Thumbnail:  []byte{1, 2, 3},
			Hash:       h,
			SourcePath: "clip.mp4",
			Time:       float64(i),
		}
		if err := s.Append(fh); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}
	return s
}

func TestSearchReturnsClosestFirst(t *testing.T) {
	query := phash.Hash(0b0000)
	hashes := []phash.Hash{
		0b1111, // distance 4
		0b0001, // distance 1
		0b0011, // distance 2
		0b0000, // distance 0
	}
	store := buildStore(t, hashes)

	results, err := Search(context.Background(), store, query, 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Distance > results[i].Distance {
			t.Fatalf("results not sorted ascending by distance: %v", results)
		}
	}
	if results[0].Distance != 0 {
		t.Fatalf("closest result distance = %d, want 0", results[0].Distance)
	}
}

func TestSearchBoundsToTopK(t *testing.T) {
	query := phash.Hash(0)
	hashes := make([]phash.Hash, 20)
	for i := range hashes {
		hashes[i] = phash.Hash(i)
	}
	store := buildStore(t, hashes)

	results, err := Search(context.Background(), store, query, 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("got %d results, want topK=5", len(results))
	}
}

func TestSearchTieBreakIsInsertionOrder(t *testing.T) {
	query := phash.Hash(0)
	// All four hashes are equidistant (distance 1) from the query.
	hashes := []phash.Hash{1, 2, 4, 8}
	store := buildStore(t, hashes)

	results, err := Search(context.Background(), store, query, 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for i, want := range []float64{0, 1, 2, 3} {
		if results[i].Record.Time != want {
			t.Fatalf("result[%d].Time = %v, want %v (insertion-order tiebreak)", i, results[i].Record.Time, want)
		}
	}
}

func TestSearchDefaultsTopKWhenNonPositive(t *testing.T) {
	hashes := []phash.Hash{1, 2, 3}
	store := buildStore(t, hashes)

	results, err := Search(context.Background(), store, phash.Hash(0), 0, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3 (all records, under DefaultTopK)", len(results))
	}
}

func TestSearchProgressReachesTotal(t *testing.T) {
	hashes := []phash.Hash{1, 2, 3}
	store := buildStore(t, hashes)

	var lastRead, lastTotal int64
	_, err := Search(context.Background(), store, phash.Hash(0), 10, func(bytesRead, total int64) {
		lastRead, lastTotal = bytesRead, total
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if lastRead != lastTotal {
		t.Fatalf("final progress bytesRead=%d, total=%d, want equal", lastRead, lastTotal)
	}
}

func TestSearchEmptyStoreFiresProgressOnceAndReturnsNoMatches(t *testing.T) {
	store := buildStore(t, nil)

	var calls int
	results, err := Search(context.Background(), store, phash.Hash(0), 10, func(bytesRead, total int64) {
		calls++
		if bytesRead != 0 || total != 0 {
			t.Fatalf("expected (0,0) progress on empty store, got (%d,%d)", bytesRead, total)
		}
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results from an empty store, got %d", len(results))
	}
	if calls != 1 {
		t.Fatalf("expected progress callback once on empty store, got %d", calls)
	}
}
