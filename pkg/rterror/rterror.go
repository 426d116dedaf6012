// Package rterror implements the runtime's single tagged error type (see
// spec §4.12 / §7). Every fallible operation in pkg/vfs, pkg/loader,
// pkg/kernel, and pkg/webruntime returns either a plain Go error (for
// conditions that can't happen in correct host/collaborator code) or an
// *Error carrying one of the closed-set Kind tags below.
//
// Internally, collaborators wrap lower-level causes with
// github.com/pkg/errors so that the original message survives underneath
// the tagged error, mirroring how the teacher threads errors through
// pkg/filesystem and pkg/synchronization.
package rterror

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind is the closed set of error kinds from spec §4.12.
type Kind string

const (
	KindModuleNotFound  Kind = "ModuleNotFound"
	KindParse           Kind = "Parse"
	KindExecution       Kind = "Execution"
	KindFSError         Kind = "FSError"
	KindFSPermission    Kind = "FSPermission"
	KindPluginError     Kind = "PluginError"
	KindPluginDependency Kind = "PluginDependency"
	KindPluginDuplicate Kind = "PluginDuplicate"
	KindNetworkError    Kind = "NetworkError"
	KindTransformError  Kind = "TransformError"
	KindInvalidArgument Kind = "InvalidArgument"
	KindNotSupported    Kind = "NotSupported"
	KindTooManyLinks    Kind = "TooManyLinks"
)

// FSErrorReason refines KindFSError/KindFSPermission into the specific
// filesystem precondition that was violated (see spec §4.4's table). It is
// stored in Error.Reason, with the offending path in Error.Context, so that callers that
// want the table's exact taxonomy don't have to parse messages.
type FSErrorReason string

const (
	ReasonNotFound      FSErrorReason = "NotFound"
	ReasonIsDirectory   FSErrorReason = "IsDirectory"
	ReasonNotDirectory  FSErrorReason = "NotDirectory"
	ReasonAlreadyExists FSErrorReason = "AlreadyExists"
	ReasonNotEmpty      FSErrorReason = "NotEmpty"
	ReasonNotPermitted  FSErrorReason = "NotPermitted"
)

// Error is the runtime's single error type.
type Error struct {
	// Kind is the tag identifying the broad error category.
	Kind Kind
	// Message is a human-readable description.
	Message string
	// Context is an optional locus for the error: a file path, a plugin
	// name, or another identifying string.
	Context string
	// Reason optionally refines Kind (used for FSError/FSPermission).
	Reason FSErrorReason
	// Hint is an optional suggested fix, usually produced by FixHint.
	Hint string
	// cause is the optional underlying error, if any.
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Reason != "" {
		b.WriteString("/")
		b.WriteString(string(e.Reason))
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (%s)", e.Context)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, " [fix: %s]", e.Hint)
	}
	return b.String()
}

// Unwrap exposes the underlying cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs an *Error with no cause and no hint.
func New(kind Kind, message string, context string) *Error {
	return &Error{Kind: kind, Message: message, Context: context}
}

// Wrap constructs an *Error whose Message is cause's message, keeping cause
// (annotated with the kind via github.com/pkg/errors.WithMessage) reachable
// through Unwrap. No stack trace is added.
func Wrap(kind Kind, cause error, context string) *Error {
	wrapped := errors.WithMessage(cause, string(kind))
	return &Error{Kind: kind, Message: cause.Error(), Context: context, cause: wrapped}
}

// WithReason returns a copy of e with Reason set, used for the FSError
// taxonomy in spec §4.4.
func (e *Error) WithReason(reason FSErrorReason) *Error {
	clone := *e
	clone.Reason = reason
	return &clone
}

// WithHint returns a copy of e with an explicit fix hint, bypassing
// FixHint's pattern matching.
func (e *Error) WithHint(hint string) *Error {
	clone := *e
	clone.Hint = hint
	return &clone
}

// Is makes errors.Is(err, target) match when target is an *Error of the
// same Kind (for example rterror.New(rterror.KindX, "", "")); most callers
// should instead use KindOf below.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var rte *Error
	if errors.As(err, &rte) {
		return rte.Kind, true
	}
	return "", false
}

// FixHint maps common message patterns to canned fix hints, as described in
// spec §4.12.
func FixHint(message string) string {
	switch {
	case strings.Contains(message, "Cannot find module"):
		start := strings.Index(message, "'")
		end := strings.LastIndex(message, "'")
		if start != -1 && end > start {
			name := message[start+1 : end]
			return fmt.Sprintf("Install with: runtime.npm.install('%s')", name)
		}
		return "Install the missing module with runtime.npm.install(...)"
	case strings.Contains(message, "too many symbolic links"):
		return "Check for a symlink cycle in the affected path"
	case strings.Contains(message, "not a directory"):
		return "Verify the path doesn't pass through a file as if it were a directory"
	default:
		return ""
	}
}

// ModuleNotFound builds a KindModuleNotFound error for the given specifier,
// attaching the canned fix hint automatically.
func ModuleNotFound(specifier string) *Error {
	message := fmt.Sprintf("Cannot find module '%s'", specifier)
	e := New(KindModuleNotFound, message, specifier)
	return e.WithHint(FixHint(message))
}

// RuntimeError marks an error that already originated from executing
// script code (a thrown exception surfaced by the host's script engine),
// as distinct from a loader-side failure. The CJS/ESM executors detect
// this type and propagate it unchanged rather than wrapping it as
// KindExecution, per spec §4.8 step 9.
type RuntimeError struct {
	Err error
}

// NewRuntimeError wraps err as a RuntimeError.
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the underlying script error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}
