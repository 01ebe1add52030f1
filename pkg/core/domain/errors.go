package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors. Always recoverable and reported per batch entry before
// anything is persisted.
var (
	ErrEmptyInput            = errors.New("input cannot be empty")
	ErrMalformedURL          = errors.New("invalid URL format")
	ErrInvalidHostname       = errors.New("invalid hostname")
	ErrLocalhostNotAllowed   = errors.New("localhost URLs are not allowed")
	ErrInvalidDomainFormat   = errors.New("invalid domain format")
	ErrInvalidLength         = errors.New("shortcode must be between 3 and 20 characters")
	ErrInvalidCharacters     = errors.New("shortcode must contain only letters and numbers")
	ErrReservedWord          = errors.New("shortcode is reserved and cannot be used")
	ErrShortcodeInUse        = errors.New("shortcode is already in use")
	ErrInvalidValidityPeriod = errors.New("validity must be between 1 minute and 30 days (43200 minutes)")
	ErrInvalidBatchSize      = errors.New("a batch must contain between 1 and 5 links")
)

// Store errors.
var (
	ErrPersistenceFailure  = errors.New("failed to persist links")
	ErrNotFound            = errors.New("link not found")
	ErrAllocationExhausted = errors.New("failed to allocate a unique shortcode")
	ErrCorruptData         = errors.New("stored data could not be decoded")
)

var validationErrors = []error{
	ErrEmptyInput,
	ErrMalformedURL,
	ErrInvalidHostname,
	ErrLocalhostNotAllowed,
	ErrInvalidDomainFormat,
	ErrInvalidLength,
	ErrInvalidCharacters,
	ErrReservedWord,
	ErrShortcodeInUse,
	ErrInvalidValidityPeriod,
	ErrInvalidBatchSize,
}

// IsValidation reports whether err (or any error it wraps) is a validation error.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// EntryError ties an error to the zero-based position of a batch entry
type EntryError struct {
	Index int
	Err   error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("entry %d: %v", e.Index+1, e.Err)
}

func (e EntryError) Unwrap() error {
	return e.Err
}

// BatchError rejects a whole creation batch. It lists every failing entry.
type BatchError struct {
	Entries []EntryError
}

func (e *BatchError) Add(index int, err error) {
	e.Entries = append(e.Entries, EntryError{Index: index, Err: err})
}

// For returns the error recorded for the entry at index, or nil.
func (e *BatchError) For(index int) error {
	for _, entry := range e.Entries {
		if entry.Index == index {
			return entry.Err
		}
	}
	return nil
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		msgs = append(msgs, entry.Error())
	}
	return "batch rejected: " + strings.Join(msgs, "; ")
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Entries))
	for _, entry := range e.Entries {
		errs = append(errs, entry)
	}
	return errs
}
