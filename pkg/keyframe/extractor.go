// Package keyframe extracts a thinned sequence of representative frames
// from a decoded video: every frame is hashed, but a frame is only kept
// when it differs enough from the last kept frame to represent a new
// visual moment, rather than a near-duplicate of one already indexed.
package keyframe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"

	"videoindex/pkg/ffmpegdecoder"
	"videoindex/pkg/framehash"
	"videoindex/pkg/phash"
)

// DefaultThumbnailMax is the longest side, in pixels, a stored thumbnail is
// scaled to. The hash is computed from the full-resolution frame, not the
// thumbnail. Smaller source frames are kept at their native size:
// thumbnails are never upscaled.
const DefaultThumbnailMax = 128

// DefaultDeltaThreshold is the fraction of the 64-bit hash that must differ
// from the last emitted frame's hash before a new frame is emitted. It is
// the default for Extractor.DeltaThreshold, which callers may override;
// the emission rule itself is fixed as anchor-on-emission (the comparison
// is always against the last *emitted* hash, never the immediately
// preceding decoded frame). Changing the threshold changes what "a new
// visual moment" means for every index built with it.
const DefaultDeltaThreshold = 0.2

// ProgressFunc reports elapsed and total video time in seconds, in the same
// units ffprobe reports duration.
type ProgressFunc func(elapsed, total float64)

// EmitFunc receives one extracted keyframe. Extraction stops if EmitFunc
// returns an error.
type EmitFunc func(*framehash.FrameHash) error

// Extractor thins a decoded frame stream into keyframes.
type Extractor struct {
	Decoder        ffmpegdecoder.FrameDecoder
	ThumbnailMax   int
	DeltaThreshold float64
}

// New builds an Extractor with the default thumbnail size and delta
// threshold.
func New(decoder ffmpegdecoder.FrameDecoder) *Extractor {
	return &Extractor{
		Decoder:        decoder,
		ThumbnailMax:   DefaultThumbnailMax,
		DeltaThreshold: DefaultDeltaThreshold,
	}
}

// Extract decodes videoPath frame by frame, emitting one FrameHash per kept
// keyframe via emit, in presentation order. progress may be nil.
func (e *Extractor) Extract(ctx context.Context, videoPath string, emit EmitFunc, progress ProgressFunc) error {
	thumbnailMax := e.ThumbnailMax
	if thumbnailMax <= 0 {
		thumbnailMax = DefaultThumbnailMax
	}
	threshold := e.DeltaThreshold
	if threshold <= 0 {
		threshold = DefaultDeltaThreshold
	}

	it, meta, err := e.Decoder.Open(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("keyframe: open %s: %w", videoPath, err)
	}
	defer it.Close()

	var anchor *phash.Hash

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := it.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("keyframe: decode %s: %w", videoPath, err)
		}

		hash := phash.Compute(frame.Image)

		if anchor != nil {
			distance := phash.HammingDistance(*anchor, hash)
			if float64(distance)/64 <= threshold {
				continue // too similar to the last emitted frame
			}
		}

		thumbW, thumbH := thumbnailDimensions(frame.Image.Bounds().Dx(), frame.Image.Bounds().Dy(), thumbnailMax)
		thumb := resize(frame.Image, thumbW, thumbH)
		thumbPNG, err := encodePNG(thumb)
		if err != nil {
			return fmt.Errorf("keyframe: encode thumbnail: %w", err)
		}

		fh := &framehash.FrameHash{
			Thumbnail:  thumbPNG,
			Hash:       hash,
			SourcePath: videoPath,
			Time:       frame.Time,
		}
		if err := emit(fh); err != nil {
			return err
		}

		h := hash
		anchor = &h
		if progress != nil {
			progress(frame.Time, meta.Duration)
		}
	}

	if progress != nil {
		progress(meta.Duration, meta.Duration)
	}
	return nil
}

// thumbnailDimensions scales (origW, origH) so its longest side is at most
// max, preserving aspect ratio, never upscaling.
func thumbnailDimensions(origW, origH, max int) (int, int) {
	if origW <= 0 || origH <= 0 || max <= 0 {
		return max, max
	}
	ratioW := float64(max) / float64(origW)
	ratioH := float64(max) / float64(origH)
	scale := math.Min(math.Min(ratioW, ratioH), 1.0)

	w := int(math.Round(float64(origW) * scale))
	h := int(math.Round(float64(origH) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func resize(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
