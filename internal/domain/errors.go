package domain

import "fmt"

// ErrorCode is the closed set of recoverable, user-facing failure kinds.
// Callers dispatch on the code, never on error message text.
type ErrorCode string

const (
	CodeEmptyCart               ErrorCode = "EMPTY_CART"
	CodeProductUnavailable      ErrorCode = "PRODUCT_UNAVAILABLE"
	CodeInsufficientStock       ErrorCode = "INSUFFICIENT_STOCK"
	CodeUnlinkedProduct         ErrorCode = "UNLINKED_PRODUCT"
	CodeOrderNotFound           ErrorCode = "ORDER_NOT_FOUND"
	CodeAccessDenied            ErrorCode = "ACCESS_DENIED"
	CodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	CodeMustAcceptFirst         ErrorCode = "MUST_ACCEPT_FIRST"
	CodeCannotCancel            ErrorCode = "CANNOT_CANCEL"
	CodeInvalidPaymentSignature ErrorCode = "INVALID_PAYMENT_SIGNATURE"
)

type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches by code, so wrapped errors compare against the sentinels
// below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrEmptyCart               = &Error{Code: CodeEmptyCart, Message: "cart has no orderable items"}
	ErrProductUnavailable      = &Error{Code: CodeProductUnavailable, Message: "product is unavailable"}
	ErrInsufficientStock       = &Error{Code: CodeInsufficientStock, Message: "insufficient stock"}
	ErrUnlinkedProduct         = &Error{Code: CodeUnlinkedProduct, Message: "product is not linked to a shop"}
	ErrOrderNotFound           = &Error{Code: CodeOrderNotFound, Message: "order not found"}
	ErrAccessDenied            = &Error{Code: CodeAccessDenied, Message: "access denied"}
	ErrInvalidStatusTransition = &Error{Code: CodeInvalidStatusTransition, Message: "invalid status transition"}
	ErrMustAcceptFirst         = &Error{Code: CodeMustAcceptFirst, Message: "order must be accepted before completion"}
	ErrCannotCancel            = &Error{Code: CodeCannotCancel, Message: "order can no longer be cancelled"}
	ErrInvalidPaymentSignature = &Error{Code: CodeInvalidPaymentSignature, Message: "payment signature verification failed"}
)
