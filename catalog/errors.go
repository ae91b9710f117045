package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/keys"
	"github.com/e-lopezc/serverless-product-catalog-api/catalog/pagination"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

// ErrorKind categorizes catalog failures. The presentation layer maps kinds
// to transport status codes.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindDuplicateName      ErrorKind = "DUPLICATE_NAME"
	KindDuplicateSKU       ErrorKind = "DUPLICATE_SKU"
	KindInvalidReference   ErrorKind = "INVALID_REFERENCE"
	KindConflict           ErrorKind = "CONFLICT"
	KindInsufficientStock  ErrorKind = "INSUFFICIENT_STOCK"
	KindInvalidArgument    ErrorKind = "INVALID_ARGUMENT"
	KindInvalidToken       ErrorKind = "INVALID_TOKEN"
	KindTimeout            ErrorKind = "TIMEOUT"
	KindStorageUnavailable ErrorKind = "STORAGE_UNAVAILABLE"
	KindInternal           ErrorKind = "INTERNAL"
)

// Error is the error type returned by every catalog operation.
type Error struct {
	Kind ErrorKind
	// Entity is the entity type the failure concerns, e.g. "product".
	Entity string
	ID     string
	// Field names the offending input field, if any.
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
		if e.ID != "" {
			b.WriteString(" ")
			b.WriteString(e.ID)
		}
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %s", e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrDuplicateName      = &Error{Kind: KindDuplicateName}
	ErrDuplicateSKU       = &Error{Kind: KindDuplicateSKU}
	ErrInvalidReference   = &Error{Kind: KindInvalidReference}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
	ErrInternal           = &Error{Kind: KindInternal}
)

// KindOf returns the kind of err, or KindInternal when err is not a catalog
// error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func notFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

func invalidArgument(entity, field, msg string) error {
	return &Error{Kind: KindInvalidArgument, Entity: entity, Field: field, Message: msg}
}

func conflict(entity, id, msg string) error {
	return &Error{Kind: KindConflict, Entity: entity, ID: id, Message: msg}
}

// storageError classifies a failure returned by the storage layer or by one
// of the key and token codecs. Catalog errors pass through unchanged.
// Condition failures must be handled by the caller before reaching here.
func storageError(entity, id string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	kind := KindInternal
	switch {
	case errors.Is(err, keys.ErrMalformedIdentifier):
		kind = KindInvalidArgument
	case errors.Is(err, pagination.ErrInvalidToken):
		kind = KindInvalidToken
	case errors.Is(err, ddbiface.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		kind = KindTimeout
	case errors.Is(err, ddbiface.ErrUnavailable):
		kind = KindStorageUnavailable
	case errors.Is(err, ddbiface.ErrContention):
		kind = KindConflict
	}
	return &Error{Kind: kind, Entity: entity, ID: id, Err: err}
}
