package stage

import "errors"

// ErrorCode tags a stage outcome that did no work for a stage-level reason
type ErrorCode string

const (
	CodeNone              ErrorCode = ""
	CodeToolMissing       ErrorCode = "tool_missing"
	CodeDependencyMissing ErrorCode = "dependency_missing"
	CodeInterrupted       ErrorCode = "interrupted"
	CodePanic             ErrorCode = "panic"
)

// Description returns a short human-readable explanation of the code
func (c ErrorCode) Description() string {
	switch c {
	case CodeNone:
		return "ok"
	case CodeToolMissing:
		return "external tool not available"
	case CodeDependencyMissing:
		return "required library not available"
	case CodeInterrupted:
		return "interrupted"
	case CodePanic:
		return "stage crashed"
	default:
		return string(c)
	}
}

var (
	// ErrToolMissing is returned when an external program cannot be found or installed
	ErrToolMissing = errors.New("external tool not available")
	// ErrDependencyMissing is returned when a codec or library capability is absent
	ErrDependencyMissing = errors.New("required dependency not available")
)
