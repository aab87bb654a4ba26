// Package joinerr provides explicit, typed error values for the sort-merge
// join operator. Every error is terminal: the operator surfaces it once and
// then ends the output stream.
package joinerr

import "fmt"

// Kind categorizes a JoinError for callers that want to branch on failure
// class without string-matching messages.
type Kind int

const (
	// KindConfiguration marks a construction-time validation failure:
	// mismatched sort_options/on lengths, missing or incompatible join
	// columns.
	KindConfiguration Kind = iota
	// KindUpstream marks an error yielded verbatim by a child input stream.
	KindUpstream
	// KindTypeSupport marks an unsupported element type reaching the key
	// comparator.
	KindTypeSupport
	// KindInvariant marks an internal invariant violation, such as
	// with_new_children receiving the wrong number of children.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindUpstream:
		return "upstream"
	case KindTypeSupport:
		return "type-support"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// JoinError is the base error type every error returned by this module
// wraps. It carries the failure kind, a human-readable reason, and, for
// propagated errors, the original cause.
type JoinError struct {
	Kind    Kind
	Message string
	Reason  string
	Cause   error
}

func (e *JoinError) Error() string {
	msg := fmt.Sprintf("sort-merge join: %s: %s", e.Kind, e.Message)
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *JoinError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError reports a construction-time validation failure.
func NewConfigurationError(message, reason string) *JoinError {
	return &JoinError{Kind: KindConfiguration, Message: message, Reason: reason}
}

// NewUpstreamError wraps an error yielded by a child input stream.
func NewUpstreamError(cause error) *JoinError {
	return &JoinError{Kind: KindUpstream, Message: "upstream input failed", Cause: cause}
}

// NewTypeSupportError reports an element type the comparator cannot
// dispatch on.
func NewTypeSupportError(typeName string) *JoinError {
	return &JoinError{
		Kind:    KindTypeSupport,
		Message: "unsupported type",
		Reason:  fmt.Sprintf("key column has unsupported element type %s", typeName),
	}
}

// NewInvariantError reports an internal invariant violation such as a
// wrong-arity with_new_children call.
func NewInvariantError(message string) *JoinError {
	return &JoinError{Kind: KindInvariant, Message: message}
}
