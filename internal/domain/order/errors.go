package order

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-orders/internal/domain/currency"
)

// Error kinds. Every error returned by Service matches exactly one of them
// through errors.Is, except for context cancellation.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrInvalidState = errors.New("invalid state")
	ErrPersistence  = errors.New("persistence error")
)

// Error is a domain error carrying a human-readable message and its kind.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error kind so callers can branch on ErrNotFound and friends.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func notFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func invalidState(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

// isDomain reports whether err was raised by domain rules rather than by
// the storage layer.
func isDomain(err error) bool {
	var (
		de  *Error
		pnf *ProductNotFoundError
		pua *ProductUnavailableError
		cme *CurrencyMismatchError
	)
	return errors.As(err, &de) || errors.As(err, &pnf) || errors.As(err, &pua) || errors.As(err, &cme)
}

// storageError classifies an error coming back from a repository call.
// Domain errors raised inside repository callbacks pass through untouched, a
// bare ErrNotFound means the order itself is missing, and anything else is
// a persistence failure whose message is kept verbatim.
func storageError(err error) error {
	if isDomain(err) {
		return err
	}
	if errors.Is(err, ErrNotFound) {
		return notFound("order not found")
	}
	return &Error{Kind: ErrPersistence, Message: err.Error(), Err: err}
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with id %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ProductUnavailableError indicates a product is not currently sold.
type ProductUnavailableError struct {
	ProductName string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("%q is currently unavailable", e.ProductName)
}

func (e *ProductUnavailableError) Is(target error) bool {
	return target == ErrValidation
}

// CurrencyMismatchError indicates a product priced in a different currency
// than the one already established on the order.
type CurrencyMismatchError struct {
	Established currency.Currency
	Candidate   currency.Currency
	ProductName string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("cannot mix currencies in one order: order currency is %s, but %q uses %s",
		e.Established, e.ProductName, e.Candidate)
}

func (e *CurrencyMismatchError) Is(target error) bool {
	return target == ErrValidation
}
