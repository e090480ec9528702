package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	ErrVariantNotFound       = errors.New("variant not found")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrOrderCreationFailed   = errors.New("order creation failed")
	ErrLineAttachmentFailed  = errors.New("line attachment failed")
	ErrMalformedResponse     = errors.New("malformed response")
	ErrBackendUnavailable    = errors.New("backend unavailable")
	ErrInvalidOrderReference = errors.New("invalid order reference")
	ErrUnsupportedStatus     = errors.New("unsupported status")
	ErrCheckoutInProgress    = errors.New("checkout already in progress")
	ErrCartUnavailable       = errors.New("cart unavailable")
)

// LineAttachmentError records one cart line the remote system did not accept.
type LineAttachmentError struct {
	LineID    int
	VariantID int64
	Quantity  int
	Err       error
}

func (e *LineAttachmentError) Error() string {
	return fmt.Sprintf("attach line %d (variant %d, qty %d): %v", e.LineID, e.VariantID, e.Quantity, e.Err)
}

func (e *LineAttachmentError) Unwrap() []error {
	return []error{ErrLineAttachmentFailed, e.Err}
}

// MalformedResponseError describes a payload that could not be decoded.
// CircularReference is set when the failure looks like an upstream
// serializer that ran into an object cycle.
type MalformedResponseError struct {
	Reason            string
	CircularReference bool
	Err               error
}

func (e *MalformedResponseError) Error() string {
	msg := "malformed response: " + e.Reason
	if e.CircularReference {
		msg += " (possible circular reference)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedResponse}
	}
	return []error{ErrMalformedResponse, e.Err}
}
