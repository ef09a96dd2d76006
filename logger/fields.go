package logger

import (
	"time"
)

// Field keys used across lifescribe log lines.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldSessionID  = "session_id"
	FieldRecording  = "recording"
	FieldProvider   = "provider"
	FieldSpeaker    = "speaker"
	FieldChunks     = "chunks"
	FieldIntervals  = "intervals"
	FieldSegments   = "segments"
	FieldSkipped    = "skipped"
	FieldArtifact   = "artifact"
	FieldPath       = "path"
	FieldAttempt    = "attempt"
	FieldRequestID  = "request_id"
	FieldStatusCode = "status"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("aligned", logger.Fields("segments", 12, "chunks", 40))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}
