// Package domainerr defines the typed failure taxonomy shared by the
// lifecycle service, the reconciler and the HTTP layer. Every failure a
// caller can act on carries a Kind for classification and a stable
// machine-readable Code for the wire.
package domainerr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidInput
	KindInvalidTransition
	KindConflict
	KindTransientIntegration
	KindDefinitiveIntegration
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two domain errors by code, so callers can compare against the
// constructor helpers with errors.Is without caring about message details.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, cause: err}
}

// KindOf extracts the Kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf extracts the machine code from err, or "internal_error".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

func ChargeNotFound(id int64) *Error {
	return New(KindNotFound, "charge_not_found", "charge %d not found", id)
}

func CustomerNotFound(id int64) *Error {
	return New(KindNotFound, "customer_not_found", "customer %d not found", id)
}

func CustomerAlreadyExists(field, value string) *Error {
	return New(KindConflict, "customer_already_exists", "customer with %s %q already exists", field, value)
}

func CustomerBlocked(id int64) *Error {
	return New(KindInvalidTransition, "customer_blocked", "customer %d is blocked and cannot be modified", id)
}

func InvalidField(field, reason string) *Error {
	return New(KindInvalidInput, "invalid_"+field, "%s: %s", field, reason)
}

func ChargeCannotBeCancelled(reason string) *Error {
	return New(KindInvalidTransition, "charge_cannot_be_cancelled", "charge cannot be cancelled: %s", reason)
}

func ChargeCannotBeUpdated(id int64) *Error {
	return New(KindInvalidTransition, "charge_cannot_be_updated", "charge %d can no longer be updated", id)
}

func ChargeNotRefundable() *Error {
	return New(KindInvalidTransition, "charge_not_refundable", "only paid charges can be refunded")
}

func TransientGateway(err error) *Error {
	return Wrap(err, KindTransientIntegration, "gateway_unavailable", "payment gateway temporarily unavailable")
}

func DefinitiveGateway(err error) *Error {
	return Wrap(err, KindDefinitiveIntegration, "gateway_rejected", "payment gateway rejected the request")
}
