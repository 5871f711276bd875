package types

import "fmt"

// ErrorCode is the closed failure taxonomy of the channel
type ErrorCode int

const (
	// MissingArgument: required argument absent or null
	MissingArgument ErrorCode = iota + 1
	// UnknownMethod: method name not recognized, reported without a message
	UnknownMethod
	// PlatformError: unexpected condition while querying or acting on the registry
	PlatformError
)

// Wire codes shared with the UI layer
const (
	CodePackageNameNull = "PACKAGE_NAME_NULL"
	CodeNotImplemented  = "NOT_IMPLEMENTED"
	CodePlatformError   = "PLATFORM_ERROR"
)

// MessagePackageNameNull is the fixed message for MissingArgument
const MessagePackageNameNull = "Package name is null"

// String returns the code's name
func (c ErrorCode) String() string {
	switch c {
	case MissingArgument:
		return "MissingArgument"
	case UnknownMethod:
		return "UnknownMethod"
	case PlatformError:
		return "PlatformError"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Wire returns the code as sent over the channel
func (c ErrorCode) Wire() string {
	switch c {
	case MissingArgument:
		return CodePackageNameNull
	case UnknownMethod:
		return CodeNotImplemented
	default:
		return CodePlatformError
	}
}

// ParseWireCode maps a wire code back to an ErrorCode
func ParseWireCode(code string) (ErrorCode, bool) {
	switch code {
	case CodePackageNameNull:
		return MissingArgument, true
	case CodeNotImplemented:
		return UnknownMethod, true
	case CodePlatformError:
		return PlatformError, true
	default:
		return 0, false
	}
}

// Failure describes a structured failure
type Failure struct {
	Code    ErrorCode
	Message string
}

// Result is either a boolean success or a Failure, never both
type Result struct {
	Value   bool
	Failure *Failure
}

// Success wraps a boolean outcome
func Success(v bool) Result {
	return Result{Value: v}
}

// Fail builds a failure result
func Fail(code ErrorCode, message string) Result {
	return Result{Failure: &Failure{Code: code, Message: message}}
}

// OK reports whether the result is a success
func (r Result) OK() bool {
	return r.Failure == nil
}

// Outcome names the result for logs and metric labels
func (r Result) Outcome() string {
	if r.Failure != nil {
		return r.Failure.Code.String()
	}
	if r.Value {
		return "true"
	}
	return "false"
}

// Reply encodes the result as a channel reply envelope
func (r Result) Reply(callID string) Reply {
	if r.Failure == nil {
		v := r.Value
		return Reply{ID: callID, OK: true, Result: &v}
	}

	re := &ReplyError{Code: r.Failure.Code.Wire()}
	// UnknownMethod never carries a message
	if r.Failure.Code != UnknownMethod && r.Failure.Message != "" {
		msg := r.Failure.Message
		re.Message = &msg
	}
	return Reply{ID: callID, OK: false, Error: re}
}
