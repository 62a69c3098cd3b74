package apperrors

// Error codes, one per distinguishable failure mode videoindex can report.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodeInternal   = "INTERNAL_ERROR"

	// Video decode/indexing errors
	CodeInvalidFileExtension = "INVALID_FILE_EXTENSION"
	CodeVideoFileNotFound    = "VIDEO_FILE_NOT_FOUND"
	CodeDecodeFailed         = "DECODE_FAILED"
	CodeStoreIO              = "STORE_IO_ERROR"
)
