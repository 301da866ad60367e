// Package errs classifies failures the inventory core can surface. None of
// them are fatal; each maps to a user-retriable degraded view.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	// KindTransient is a network or store failure. State is kept for retry.
	KindTransient Kind = "TRANSIENT"
	// KindValidation is caught before any gateway call.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindPartial means some independent mutations in a batch were applied.
	KindPartial Kind = "PARTIAL_FAILURE"
	// KindNotFound covers missing records and permission denials alike.
	KindNotFound Kind = "NOT_FOUND"
	KindInternal Kind = "INTERNAL_ERROR"
)

type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
}

var metadataByKind = map[Kind]Metadata{
	KindTransient: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "temporary failure, please retry",
	},
	KindValidation: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "validation failed",
	},
	KindPartial: {
		HTTPStatus:    http.StatusMultiStatus,
		Retryable:     true,
		PublicMessage: "some changes were not applied, please retry",
	},
	KindNotFound: {
		HTTPStatus:    http.StatusNotFound,
		Retryable:     false,
		PublicMessage: "resource not found",
	},
	KindInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
}

// MetadataFor returns the metadata for kind, defaulting to internal.
func MetadataFor(kind Kind) Metadata {
	if md, ok := metadataByKind[kind]; ok {
		return md
	}
	return metadataByKind[KindInternal]
}

type Error struct {
	kind    Kind
	message string
	details any
	err     error
}

func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{kind: kind, message: message, err: err}
}

func (e *Error) WithDetails(details any) *Error {
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.message
	}
	if e.message == "" {
		return e.err.Error()
	}
	return e.message + ": " + e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Message() string { return e.message }

func (e *Error) Details() any { return e.details }

// As extracts the first *Error in err's chain.
func As(err error) *Error {
	var target *Error
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// KindOf reports the kind of err; unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e := As(err); e != nil {
		return e.kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Transient wraps err as a retryable store failure unless it is already classified.
func Transient(err error, message string) error {
	if err == nil {
		return nil
	}
	if As(err) != nil {
		return err
	}
	return Wrap(KindTransient, err, message)
}
