// Package framehash defines the FrameHash record — a thumbnail, a 64-bit
// perceptual hash, a source video path, and a timestamp — and its
// self-describing binary encoding. Records are immutable once built.
package framehash

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"math"
	"sync"

	"videoindex/pkg/phash"
)

// FrameHash is one indexed moment, ready to be appended to a store.
// Thumbnail holds an already-encoded, self-delimited image blob (PNG) at
// most 128x128, aspect-preserved.
type FrameHash struct {
	Thumbnail  []byte
	Hash       phash.Hash
	SourcePath string
	Time       float64
}

// Encode serializes the record body: thumbnail, hash, path, and time, each
// sub-field length-prefixed in that fixed order. The caller (the store) is
// responsible for prefixing the resulting body with its own total length.
func (f *FrameHash) Encode() []byte {
	hashBlob := encodePackedHash(f.Hash)
	pathBytes := []byte(f.SourcePath)

	size := 4 + len(f.Thumbnail) +
		4 + len(hashBlob) +
		4 + len(pathBytes) +
		8
	buf := make([]byte, 0, size)
	buf = appendLenPrefixed(buf, f.Thumbnail)
	buf = appendLenPrefixed(buf, hashBlob)
	buf = appendLenPrefixed(buf, pathBytes)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f.Time))
	return buf
}

func appendLenPrefixed(buf []byte, field []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(field)))
	return append(buf, field...)
}

// LazyFrameHash is a record read back from a store: the hash, path, and time
// are decoded eagerly, but the thumbnail stays as raw bytes until LoadImage
// is called. This keeps store scans dominated by the 64-bit hash comparison
// rather than image decoding.
type LazyFrameHash struct {
	thumbnailBytes []byte
	Hash           phash.Hash
	SourcePath     string
	Time           float64

	once      sync.Once
	img       image.Image
	decodeErr error
}

// ThumbnailBytes returns the raw, still-encoded thumbnail blob.
func (l *LazyFrameHash) ThumbnailBytes() []byte {
	return l.thumbnailBytes
}

// LoadImage decodes the thumbnail to a pixel buffer, memoizing the result.
// Callers that never display a thumbnail pay zero decode cost.
func (l *LazyFrameHash) LoadImage() (image.Image, error) {
	l.once.Do(func() {
		l.img, l.decodeErr = png.Decode(bytes.NewReader(l.thumbnailBytes))
	})
	return l.img, l.decodeErr
}

// Decode parses a record body (as produced by Encode) into a LazyFrameHash.
// body must be exactly one complete record; a short or malformed body is an
// error, distinct from a store-level truncated tail (which is end-of-stream,
// not an error — see pkg/hashstore).
func Decode(body []byte) (*LazyFrameHash, error) {
	r := &byteReader{buf: body}

	thumb, err := r.readLenPrefixed()
	if err != nil {
		return nil, fmt.Errorf("framehash: thumbnail field: %w", err)
	}

	hashBlob, err := r.readLenPrefixed()
	if err != nil {
		return nil, fmt.Errorf("framehash: hash field: %w", err)
	}
	h, err := decodeHashBlob(hashBlob)
	if err != nil {
		return nil, fmt.Errorf("framehash: hash blob: %w", err)
	}

	pathBytes, err := r.readLenPrefixed()
	if err != nil {
		return nil, fmt.Errorf("framehash: path field: %w", err)
	}

	timeBits, err := r.readUint64()
	if err != nil {
		return nil, fmt.Errorf("framehash: time field: %w", err)
	}

	if !r.exhausted() {
		return nil, fmt.Errorf("framehash: %d trailing bytes after record", r.remaining())
	}

	return &LazyFrameHash{
		thumbnailBytes: thumb,
		Hash:           h,
		SourcePath:     string(pathBytes),
		Time:           math.Float64frombits(timeBits),
	}, nil
}

// byteReader is a minimal cursor over an in-memory record body.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) readLenPrefixed() ([]byte, error) {
	if len(r.buf)-r.pos < 4 {
		return nil, fmt.Errorf("truncated length prefix")
	}
	n := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	if len(r.buf)-r.pos < int(n) {
		return nil, fmt.Errorf("truncated field: want %d bytes, have %d", n, len(r.buf)-r.pos)
	}
	field := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return field, nil
}

func (r *byteReader) readUint64() (uint64, error) {
	if len(r.buf)-r.pos < 8 {
		return 0, fmt.Errorf("truncated 8-byte field")
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) exhausted() bool { return r.pos == len(r.buf) }
func (r *byteReader) remaining() int  { return len(r.buf) - r.pos }
