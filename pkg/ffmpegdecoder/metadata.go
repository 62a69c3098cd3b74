package ffmpegdecoder

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Metadata is the subset of a video's container/stream metadata this module
// needs: its duration, native frame dimensions, and frame rate.
type Metadata struct {
	Duration  float64
	Width     int
	Height    int
	FrameRate float64
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetMetadata runs ffprobe against videoPath and parses its duration and
// first video stream's dimensions.
func GetMetadata(ctx context.Context, videoPath string) (*Metadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	}

	cmd := exec.CommandContext(ctx, FFprobePath(), args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var width, height int
	var frameRate float64
	for _, stream := range probe.Streams {
		if stream.CodecType == "video" && width == 0 {
			width = stream.Width
			height = stream.Height
			frameRate = parseFrameRate(stream.RFrameRate)
		}
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("no video stream found in %s", videoPath)
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration: %w", err)
	}

	return &Metadata{Duration: duration, Width: width, Height: height, FrameRate: frameRate}, nil
}

// parseFrameRate parses ffprobe's "num/den" r_frame_rate representation.
func parseFrameRate(rate string) float64 {
	if rate == "" {
		return 0
	}
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		val, _ := strconv.ParseFloat(rate, 64)
		return val
	}
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}
