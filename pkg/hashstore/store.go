// Package hashstore implements the append-only, length-framed binary log
// that holds a video index: one variable-length record per indexed frame,
// each record itself a framehash.FrameHash encoding. The format is designed
// for safe concurrent appends from a single writer and streaming reads from
// any number of readers, tolerating a truncated final record (a crash or
// kill mid-write) as end-of-stream rather than a hard error.
package hashstore

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"videoindex/pkg/framehash"
)

// recordLenPrefixSize is the width of the length prefix that precedes every
// record body in the store file.
const recordLenPrefixSize = 4

// Store is a single append-only index file. The zero value is not usable;
// construct one with Open.
type Store struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// Open opens (creating if absent) the index file at path for appending and
// reading. The returned Store is safe for concurrent use.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("hashstore: open %s: %w", path, err)
	}
	return &Store{path: path, f: f}, nil
}

// Close releases the store's file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Append writes one record to the end of the store and flushes it to disk
// before returning, so a reader opening the file afterward sees it.
func (s *Store) Append(fh *framehash.FrameHash) error {
	body := fh.Encode()

	record := make([]byte, 0, recordLenPrefixSize+len(body))
	record = binary.LittleEndian.AppendUint32(record, uint32(len(body)))
	record = append(record, body...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.f.Write(record); err != nil {
		return fmt.Errorf("hashstore: append to %s: %w", s.path, err)
	}
	return s.f.Sync()
}

// Size returns the store's current byte length, used as the denominator for
// progress reporting during a full scan.
func (s *Store) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("hashstore: stat %s: %w", s.path, err)
	}
	return info.Size(), nil
}

// RecordIterator streams records out of a store file in append order,
// independent of any concurrent writer. It holds its own file handle.
type RecordIterator struct {
	f     *os.File
	r     *bufio.Reader
	read  int64
	total int64
	cur   *framehash.LazyFrameHash
	err   error
}

// Iterate opens an independent read cursor over the store, starting at the
// first record.
func (s *Store) Iterate() (*RecordIterator, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("hashstore: open %s for reading: %w", s.path, err)
	}
	total, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("hashstore: stat %s: %w", s.path, err)
	}
	return &RecordIterator{f: f, r: bufio.NewReader(f), total: total.Size()}, nil
}

// Next advances to the next record, returning false at a clean end of
// stream (including a truncated trailing record, which is treated as an
// in-progress write rather than corruption) or on a read error. Check Err
// after Next returns false to distinguish the two.
func (it *RecordIterator) Next() bool {
	if it.err != nil {
		return false
	}

	lenBuf := make([]byte, recordLenPrefixSize)
	n, err := io.ReadFull(it.r, lenBuf)
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return false // clean end of stream
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return false // truncated length prefix: incomplete trailing write
		}
		it.err = fmt.Errorf("hashstore: read length prefix: %w", err)
		return false
	}
	it.read += int64(n)

	recordLen := binary.LittleEndian.Uint32(lenBuf)
	body := make([]byte, recordLen)
	n, err = io.ReadFull(it.r, body)
	it.read += int64(n)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return false // truncated trailing record
		}
		it.err = fmt.Errorf("hashstore: read record body: %w", err)
		return false
	}

	fh, err := framehash.Decode(body)
	if err != nil {
		it.err = fmt.Errorf("hashstore: decode record at offset %d: %w", it.read-int64(recordLen)-recordLenPrefixSize, err)
		return false
	}
	it.cur = fh
	return true
}

// Record returns the record produced by the most recent successful Next.
func (it *RecordIterator) Record() *framehash.LazyFrameHash { return it.cur }

// Err returns the first error encountered, or nil if iteration ended
// cleanly (including at a truncated trailing record).
func (it *RecordIterator) Err() error { return it.err }

// BytesRead reports how many bytes of the store have been consumed so far,
// for progress reporting against Total.
func (it *RecordIterator) BytesRead() int64 { return it.read }

// Total is the store's byte length as observed when iteration began.
func (it *RecordIterator) Total() int64 { return it.total }

// Close releases the iterator's file handle.
func (it *RecordIterator) Close() error { return it.f.Close() }

// ProgressFunc receives the current byte offset and the store's total size
// after each record is delivered.
type ProgressFunc func(record *framehash.LazyFrameHash, bytesRead, total int64) error

// IterateWithProgress scans the store from the beginning, invoking cb once
// per record with cumulative progress. On an empty store cb is invoked
// exactly once, with a nil record and (0, 0) progress. Scanning stops early,
// without error, if ctx is canceled; it stops with an error if cb returns one.
func (s *Store) IterateWithProgress(ctx context.Context, cb ProgressFunc) error {
	it, err := s.Iterate()
	if err != nil {
		return err
	}
	defer it.Close()

	if it.Total() == 0 {
		return cb(nil, 0, 0)
	}

	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := cb(it.Record(), it.BytesRead(), it.Total()); err != nil {
			return err
		}
	}
	return it.Err()
}

// IndexedPaths returns the set of distinct source paths already present in
// the store, so a caller can skip re-indexing a video it has already
// processed.
func (s *Store) IndexedPaths() (map[string]struct{}, error) {
	it, err := s.Iterate()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	paths := make(map[string]struct{})
	for it.Next() {
		paths[it.Record().SourcePath] = struct{}{}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}
