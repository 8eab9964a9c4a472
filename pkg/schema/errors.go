package schema

import (
	"errors"
	"fmt"

	"github.com/nm-morais/go-por/pkg/message"
)

var (
	// ErrMissingField marks a wire-optional field the typed model requires.
	ErrMissingField = errors.New("missing required field")
	// ErrNoResponseType is returned for an envelope with no variant set.
	ErrNoResponseType = errors.New("no response_type field")
	// ErrMultipleResponseTypes is returned when more than one variant is set.
	ErrMultipleResponseTypes = errors.New("more than one response_type field")
)

// Field names a required sub-message, using its wire name.
type Field string

const (
	FieldRequestID    Field = "request_id"
	FieldTimestamp    Field = "timestamp"
	FieldNextExpected Field = "next_expected"
)

// FieldError carries the offending field and the cause, which is either
// ErrMissingField or the nested sub-message's error.
type FieldError struct {
	Field Field
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// RequestIDError: Timestamp.
type RequestIDError struct{ FieldError }

// RequestError: RequestID.
type RequestError struct{ FieldError }

// ResponseError: RequestID.
type ResponseError struct{ FieldError }

// EdgeCutError: RequestID.
type EdgeCutError struct{ FieldError }

// SyncError: RequestID, Timestamp, NextExpected.
type SyncError struct{ FieldError }

// PaymentError: RequestID.
type PaymentError struct{ FieldError }

// AckError: RequestID.
type AckError struct{ FieldError }

func missing(field Field) FieldError {
	return FieldError{Field: field, Err: ErrMissingField}
}

func requestIDFailed(err error) FieldError {
	return FieldError{Field: FieldRequestID, Err: err}
}

// PorMessageError is the envelope level error. Variant is zero when no
// variant could be selected.
type PorMessageError struct {
	Variant message.ID
	Err     error
}

func (e *PorMessageError) Error() string {
	if e.Variant == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", variantName(e.Variant), e.Err)
}

func (e *PorMessageError) Unwrap() error {
	return e.Err
}

func variantName(id message.ID) string {
	switch id {
	case message.RequestMessageType:
		return "request"
	case message.ResponseMessageType:
		return "response"
	case message.EdgeCutMessageType:
		return "edge_cut"
	case message.SyncMessageType:
		return "sync"
	case message.PaymentMessageType:
		return "payment"
	case message.AckMessageType:
		return "ack"
	case message.NodeIDMessageType:
		return "node_id"
	default:
		return id.String()
	}
}
