// Package apperr holds the error taxonomy shared by both services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindInvalidArgument     Kind = "invalid_argument"
	KindNotFound            Kind = "not_found"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindConflict            Kind = "conflict"
	KindInternal            Kind = "internal"
)

// Error is a classified failure. Details are merged into the HTTP error body.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// With returns a copy of e carrying an extra detail field.
func (e *Error) With(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	cp := *e
	cp.Details = details
	return &cp
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidArgument(message string) *Error {
	return New(KindInvalidArgument, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func InsufficientStock(requested, available int) *Error {
	return New(KindInsufficientStock, "Insufficient inventory").
		With("requested", requested).
		With("available_quantity", available)
}

func Upstream(message string, err error) *Error {
	return Wrap(KindUpstreamUnavailable, message, err)
}

// KindOf reports the kind of err, or KindInternal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument, KindInsufficientStock:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Body renders err as a JSON error payload. Internal errors never leak their cause.
func Body(err error) map[string]any {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return map[string]any{"error": "Internal server error"}
	}
	body := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		body[k] = v
	}
	body["error"] = e.Message
	return body
}
