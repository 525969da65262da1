package fsx

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/fenilsonani/orgest/pkg/utils"
)

// ErrorReason categorizes why a file operation failed
type ErrorReason int

const (
	ReasonPermissionDenied ErrorReason = iota
	ReasonFileInUse
	ReasonFileNotFound
	ReasonIsDirectory
	ReasonCrossDevice
	ReasonNoSpace
	ReasonUnknown
)

// String returns a human-readable error reason
func (e ErrorReason) String() string {
	switch e {
	case ReasonPermissionDenied:
		return "Permission denied"
	case ReasonFileInUse:
		return "File is in use"
	case ReasonFileNotFound:
		return "File not found"
	case ReasonIsDirectory:
		return "Is a directory"
	case ReasonCrossDevice:
		return "Cross-device move"
	case ReasonNoSpace:
		return "No space left on device"
	case ReasonUnknown:
		return "Unknown error"
	default:
		return "Unspecified error"
	}
}

// OpError represents a categorized failure of a move, copy, write or remove
type OpError struct {
	Op        string // "move", "copy", "remove", "write", ...
	Path      string
	Reason    ErrorReason
	Err       error
	Retryable bool
}

// Error implements the error interface
func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %s (%v)", e.Op, e.Path, e.Reason, e.Err)
}

// Unwrap exposes the underlying error
func (e *OpError) Unwrap() error { return e.Err }

// UserMessage returns a user-friendly error message
func (e *OpError) UserMessage() string {
	switch e.Reason {
	case ReasonPermissionDenied:
		return fmt.Sprintf("Permission denied: %s", e.Path)
	case ReasonFileInUse:
		return fmt.Sprintf("File is being used: %s (close the application and try again)", e.Path)
	case ReasonFileNotFound:
		return fmt.Sprintf("No longer exists: %s", e.Path)
	case ReasonIsDirectory:
		return fmt.Sprintf("Expected a file but found a directory: %s", e.Path)
	case ReasonCrossDevice:
		return fmt.Sprintf("Could not move across filesystems: %s", e.Path)
	case ReasonNoSpace:
		return fmt.Sprintf("Disk full while handling: %s", e.Path)
	default:
		return fmt.Sprintf("Error handling %s: %v", e.Path, e.Err)
	}
}

// CategorizeError analyzes an error and returns a categorized OpError. An
// error that already is an *OpError is returned unchanged.
func CategorizeError(op, path string, err error) *OpError {
	if err == nil {
		return nil
	}

	var existing *OpError
	if errors.As(err, &existing) {
		return existing
	}

	opErr := &OpError{
		Op:     op,
		Path:   path,
		Err:    err,
		Reason: ReasonUnknown,
	}

	if IsCrossDevice(err) {
		opErr.Reason = ReasonCrossDevice
		return opErr
	}

	if os.IsNotExist(err) {
		opErr.Reason = ReasonFileNotFound
		return opErr
	}

	if os.IsPermission(err) {
		opErr.Reason = ReasonPermissionDenied
		return opErr
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			opErr.Reason = ReasonPermissionDenied
		case syscall.EBUSY, syscall.ETXTBSY:
			opErr.Reason = ReasonFileInUse
			opErr.Retryable = true
		case syscall.ENOENT:
			opErr.Reason = ReasonFileNotFound
		case syscall.EISDIR:
			opErr.Reason = ReasonIsDirectory
		case syscall.ENOSPC:
			opErr.Reason = ReasonNoSpace
		}
	}

	return opErr
}

// GroupErrors groups errors by reason
func GroupErrors(errs []*OpError) map[ErrorReason][]*OpError {
	grouped := make(map[ErrorReason][]*OpError)
	for _, err := range errs {
		grouped[err.Reason] = append(grouped[err.Reason], err)
	}
	return grouped
}

// FormatErrorSummary creates a user-friendly summary of errors
func FormatErrorSummary(errs []*OpError) string {
	if len(errs) == 0 {
		return ""
	}

	grouped := GroupErrors(errs)
	reasons := make([]ErrorReason, 0, len(grouped))
	for reason := range grouped {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	var b strings.Builder
	b.WriteString("Issues encountered:\n")
	for i, reason := range reasons {
		branch := "├─"
		if i == len(reasons)-1 {
			branch = "└─"
		}
		fmt.Fprintf(&b, "   %s %s: %s\n", branch, reason, utils.Plural(len(grouped[reason]), "file"))
		switch reason {
		case ReasonPermissionDenied:
			b.WriteString("   │  └─ Tip: check ownership of the folder\n")
		case ReasonFileInUse:
			b.WriteString("   │  └─ Tip: close applications and retry\n")
		}
	}

	return b.String()
}
