package apperrors

import "fmt"

// Video/store-specific error types and sentinel errors.

// ErrInvalidFileExtension is returned when a scanned file has an extension
// not recognized as an indexable video container.
var ErrInvalidFileExtension = &ValidationError{
	baseError: baseError{
		message:  "invalid file extension, allowed: .mp4, .webm",
		code:     CodeInvalidFileExtension,
		exitCode: ExitUsageError,
	},
	Field: "file",
}

// ErrVideoFileNotFound is returned when a video path named on the command
// line, or recorded in the index, doesn't exist on disk.
func ErrVideoFileNotFound(path string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:  "video file not found",
			code:     CodeVideoFileNotFound,
			exitCode: ExitFailure,
		},
		Resource: "video_file",
		ID:       path,
	}
}

// ErrDecodeFailed wraps a frame-decode failure (ffmpeg/ffprobe subprocess
// error, corrupt stream) for a specific video path.
func ErrDecodeFailed(path string, cause error) *InternalError {
	e := NewInternalError(fmt.Sprintf("failed to decode %s", path), cause)
	e.code = CodeDecodeFailed
	return e
}

// ErrStoreIO wraps a hashstore read/write failure.
func ErrStoreIO(path string, cause error) *InternalError {
	e := NewInternalError(fmt.Sprintf("index store I/O error on %s", path), cause)
	e.code = CodeStoreIO
	return e
}
