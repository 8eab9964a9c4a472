package errors

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// DecodeErrorKind classifies why an inbound byte stream was rejected.
type DecodeErrorKind int

const (
	// Truncated means the stream ended before a field could be read.
	Truncated DecodeErrorKind = iota + 1
	// UnknownTag means the envelope tag is outside the known variant set.
	UnknownTag
	// InvalidField means a field was present but could not be parsed.
	InvalidField
)

// Codes reported through Error.Code().
const (
	TruncatedErrCode    = 460
	UnknownTagErrCode   = 461
	InvalidFieldErrCode = 462
)

func (k DecodeErrorKind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case UnknownTag:
		return "unknown_tag"
	case InvalidField:
		return "invalid_field"
	default:
		return fmt.Sprintf("DecodeErrorKind(%d)", int(k))
	}
}

// DecodeError is returned by the codecs for malformed input. It is never
// fatal: the caller drops the offending message and keeps reading.
type DecodeError struct {
	Kind   DecodeErrorKind
	Field  string
	Detail string
	From   string
}

func NewDecodeError(kind DecodeErrorKind, caller, field, detail string) *DecodeError {
	return &DecodeError{Kind: kind, Field: field, Detail: detail, From: caller}
}

func (err *DecodeError) Error() string {
	if err.Field == "" {
		return fmt.Sprintf("%s: %s", err.Kind, err.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", err.Kind, err.Field, err.Detail)
}

// Is matches any *DecodeError with the same kind, so callers can write
// errors.Is(err, &DecodeError{Kind: Truncated}).
func (err *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	if !ok {
		return false
	}
	return t.Kind == err.Kind
}

func (err *DecodeError) Fatal() bool     { return false }
func (err *DecodeError) Temporary() bool { return false }
func (err *DecodeError) Caller() string  { return err.From }
func (err *DecodeError) Reason() string  { return err.Error() }

func (err *DecodeError) Code() int {
	switch err.Kind {
	case Truncated:
		return TruncatedErrCode
	case UnknownTag:
		return UnknownTagErrCode
	default:
		return InvalidFieldErrCode
	}
}

func (err *DecodeError) Log() {
	log.WithFields(log.Fields{
		"kind":  err.Kind.String(),
		"field": err.Field,
	}).Errorf("[%s]: Error type: %d, Reason: %s", err.Caller(), err.Code(), err.Detail)
}
