package database

import (
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/kbukum/lifescribe/errors"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"driver: bad connection",
	"database is locked",
}

// IsConnectionError reports whether err looks like a transient connection
// failure worth retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range connectionPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsNotFoundError reports a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}

// FromDatabase converts a GORM error to an AppError. resource names what
// was being read or written.
func FromDatabase(err error, resource string) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		return errors.NotFound(resource, "").WithCause(err)
	case stderrors.Is(err, gorm.ErrDuplicatedKey):
		return errors.AlreadyExists(resource).WithCause(err)
	case IsConnectionError(err):
		return errors.ServiceUnavailable("database").WithCause(err)
	default:
		e := errors.DatabaseError(err)
		e.Retryable = false
		return e.WithDetail("resource", resource)
	}
}
