package oneid

import (
	"errors"
	"fmt"
)

// Kind classifies why a OneID operation failed.
type Kind int

const (
	// KindTransport means no response was received.
	KindTransport Kind = iota + 1
	// KindRejected means the provider answered with a non-2xx status.
	KindRejected
	// KindParse means the response body was not the expected JSON.
	KindParse
	// KindBusinessRule means a 2xx response lacked a contractually required field.
	KindBusinessRule
	// KindValidation means caller input failed shape checks before any request.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRejected:
		return "rejected"
	case KindParse:
		return "parse"
	case KindBusinessRule:
		return "business_rule"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the failure type returned by the raw client operations.
type Error struct {
	Op   string
	Kind Kind
	// StatusCode is set for KindRejected and KindBusinessRule.
	StatusCode int
	// Body is the raw response body when one was received.
	Body []byte
	// Field names the missing profile key for KindBusinessRule.
	Field string
	// Messages carries input violations for KindValidation.
	Messages []string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRejected:
		return fmt.Sprintf("oneid %s: rejected with HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	case KindBusinessRule:
		return fmt.Sprintf("oneid %s: response is missing required %q", e.Op, e.Field)
	case KindValidation:
		return fmt.Sprintf("oneid %s: invalid input: %v", e.Op, e.Messages)
	}
	if e.Err != nil {
		return fmt.Sprintf("oneid %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("oneid %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func isKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsTransport reports whether err is a OneID transport failure.
func IsTransport(err error) bool { return isKind(err, KindTransport) }

// IsRejected reports whether err is a non-2xx provider response.
func IsRejected(err error) bool { return isKind(err, KindRejected) }

// IsParse reports whether err is a malformed provider response.
func IsParse(err error) bool { return isKind(err, KindParse) }

// IsBusinessRule reports whether err is a well-formed response missing required data.
func IsBusinessRule(err error) bool { return isKind(err, KindBusinessRule) }

// IsValidation reports whether err is rejected caller input.
func IsValidation(err error) bool { return isKind(err, KindValidation) }
