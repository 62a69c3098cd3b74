package keyframe

import (
	"context"
	"image"
	"image/color"
	"io"
	"testing"

	"videoindex/pkg/ffmpegdecoder"
	"videoindex/pkg/framehash"
)

func solidFrame(w, h int, gray uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: gray})
		}
	}
	return img
}

func checkerFrame(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			} else {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return img
}

type fakeFrame struct {
	img  image.Image
	time float64
}

type fakeIterator struct {
	frames []fakeFrame
	pos    int
}

func (it *fakeIterator) Next() (*ffmpegdecoder.Frame, error) {
	if it.pos >= len(it.frames) {
		return nil, io.EOF
	}
	f := it.frames[it.pos]
	it.pos++
	return &ffmpegdecoder.Frame{Image: f.img, Time: f.time}, nil
}

func (it *fakeIterator) Close() error { return nil }

type fakeDecoder struct {
	frames []fakeFrame
	meta   ffmpegdecoder.Metadata
}

func (d *fakeDecoder) Open(ctx context.Context, videoPath string) (ffmpegdecoder.FrameIterator, *ffmpegdecoder.Metadata, error) {
	meta := d.meta
	return &fakeIterator{frames: d.frames}, &meta, nil
}

func TestExtractStaticShotYieldsOneKeyframe(t *testing.T) {
	frames := make([]fakeFrame, 0, 10)
	for i := 0; i < 10; i++ {
		frames = append(frames, fakeFrame{img: solidFrame(32, 32, 128), time: float64(i)})
	}
	decoder := &fakeDecoder{frames: frames, meta: ffmpegdecoder.Metadata{Duration: 9, Width: 32, Height: 32, FrameRate: 1}}

	var emitted []*framehash.FrameHash
	ex := New(decoder)
	err := ex.Extract(context.Background(), "static.mp4", func(fh *framehash.FrameHash) error {
		emitted = append(emitted, fh)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(emitted) != 1 {
		t.Fatalf("emitted %d keyframes for a static shot, want 1", len(emitted))
	}
	if emitted[0].Time != 0 {
		t.Fatalf("first keyframe time = %v, want 0", emitted[0].Time)
	}
}

func TestExtractSceneCutYieldsTwoKeyframes(t *testing.T) {
	frames := []fakeFrame{
		{img: solidFrame(32, 32, 10), time: 0},
		{img: solidFrame(32, 32, 10), time: 1},
		{img: solidFrame(32, 32, 10), time: 2},
		{img: checkerFrame(32, 32), time: 3},
		{img: checkerFrame(32, 32), time: 4},
	}
	decoder := &fakeDecoder{frames: frames, meta: ffmpegdecoder.Metadata{Duration: 4, Width: 32, Height: 32, FrameRate: 1}}

	var emitted []*framehash.FrameHash
	ex := New(decoder)
	err := ex.Extract(context.Background(), "cut.mp4", func(fh *framehash.FrameHash) error {
		emitted = append(emitted, fh)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(emitted) != 2 {
		t.Fatalf("emitted %d keyframes across one scene cut, want 2", len(emitted))
	}
	if emitted[0].Time != 0 {
		t.Fatalf("first keyframe time = %v, want 0", emitted[0].Time)
	}
	if emitted[1].Time != 3 {
		t.Fatalf("second keyframe time = %v, want 3 (the cut)", emitted[1].Time)
	}
}

func TestExtractProgressReportsFinalDuration(t *testing.T) {
	frames := []fakeFrame{{img: solidFrame(16, 16, 5), time: 0}}
	decoder := &fakeDecoder{frames: frames, meta: ffmpegdecoder.Metadata{Duration: 42, Width: 16, Height: 16, FrameRate: 1}}

	var lastElapsed, lastTotal float64
	ex := New(decoder)
	err := ex.Extract(context.Background(), "x.mp4", func(fh *framehash.FrameHash) error { return nil }, func(elapsed, total float64) {
		lastElapsed, lastTotal = elapsed, total
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if lastElapsed != 42 || lastTotal != 42 {
		t.Fatalf("final progress = (%v, %v), want (42, 42)", lastElapsed, lastTotal)
	}
}

func TestExtractStopsOnEmitError(t *testing.T) {
	frames := []fakeFrame{
		{img: solidFrame(16, 16, 1), time: 0},
		{img: checkerFrame(16, 16), time: 1},
	}
	decoder := &fakeDecoder{frames: frames, meta: ffmpegdecoder.Metadata{Duration: 1, Width: 16, Height: 16, FrameRate: 1}}

	boom := io.ErrClosedPipe
	ex := New(decoder)
	err := ex.Extract(context.Background(), "x.mp4", func(fh *framehash.FrameHash) error {
		return boom
	}, nil)
	if err != boom {
		t.Fatalf("Extract error = %v, want %v", err, boom)
	}
}

func TestThumbnailDimensionsNeverUpscales(t *testing.T) {
	w, h := thumbnailDimensions(64, 48, 128)
	if w != 64 || h != 48 {
		t.Fatalf("thumbnailDimensions(64,48,128) = (%d,%d), want (64,48) unchanged", w, h)
	}
}

func TestThumbnailDimensionsPreservesAspect(t *testing.T) {
	w, h := thumbnailDimensions(1920, 1080, 128)
	if w != 128 {
		t.Fatalf("expected longest side scaled to 128, got width %d", w)
	}
	if h != 72 {
		t.Fatalf("expected height 72 for 16:9 at width 128, got %d", h)
	}
}
