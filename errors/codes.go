package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Alignment errors
const (
	// ErrCodeMissingChunkBoundary indicates an ASR chunk without a start or end time.
	ErrCodeMissingChunkBoundary ErrorCode = "MISSING_CHUNK_BOUNDARY"
	// ErrCodeInvalidRTTMRecord indicates a diarization record with unparsable numbers.
	ErrCodeInvalidRTTMRecord ErrorCode = "INVALID_RTTM_RECORD"
	// ErrCodeInvalidVTT indicates a malformed WebVTT document.
	ErrCodeInvalidVTT ErrorCode = "INVALID_VTT"
)

// Connection/Availability errors (retryable)
const (
	ErrCodeServiceUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed    ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout             ErrorCode = "TIMEOUT"
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeExternalService     ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Resource errors
const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	ErrCodeDuplicateRecording ErrorCode = "DUPLICATE_RECORDING"
)

// Validation errors
const (
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeMissingField  ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// Authentication errors
const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Internal errors
const (
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeStorage       ErrorCode = "STORAGE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable:  true,
	ErrCodeConnectionFailed:    true,
	ErrCodeTimeout:             true,
	ErrCodeProviderUnavailable: true,
	ErrCodeExternalService:     true,
	ErrCodeDatabaseError:       true,
	ErrCodeStorage:             true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
