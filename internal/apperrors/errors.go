package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates that a requested resource could not be found.
// Cross-tenant access intentionally surfaces as this error so that record
// existence never leaks across businesses.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ParseCode identifies the reason a statement file could not be decoded.
type ParseCode string

const (
	ParseTooLarge     ParseCode = "TOO_LARGE"
	ParseTooManyRows  ParseCode = "TOO_MANY_ROWS"
	ParseBadEncoding  ParseCode = "BAD_ENCODING"
	ParseNoTableFound ParseCode = "NO_TABLE_FOUND"
	ParseTimeout      ParseCode = "TIMEOUT"
)

// ParseError is fatal to the current decode attempt; the owning import is
// moved to failed when one occurs.
type ParseError struct {
	Code   ParseCode
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("parse error: %s", e.Code)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Code, e.Reason)
}

// NewParseError creates a ParseError with the given code and reason.
func NewParseError(code ParseCode, reason string) *ParseError {
	return &ParseError{Code: code, Reason: reason}
}

// NormalizationError reports a single row field that could not be converted
// into its canonical form. These are collected per row, never fatal to a batch.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("cannot normalize %s: %s", e.Field, e.Reason)
}

// ValidationError carries the mandatory column-mapping roles that were missing
// from a submitted mapping.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: missing mandatory mapping role(s): %s", ErrValidation, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// BusinessCode identifies a business-rule violation. Callers receive these
// verbatim; they are never retried.
type BusinessCode string

const (
	BusinessAlreadyMatched         BusinessCode = "ALREADY_MATCHED"
	BusinessInvalidTransition      BusinessCode = "INVALID_TRANSITION"
	BusinessHasMatchedTransactions BusinessCode = "HAS_MATCHED_TRANSACTIONS"
	BusinessImportBusy             BusinessCode = "IMPORT_BUSY"
)

// BusinessError is a rule violation surfaced to the caller as-is.
type BusinessError struct {
	Code   BusinessCode
	Detail string
}

func (e *BusinessError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("business rule violation: %s", e.Code)
	}
	return fmt.Sprintf("business rule violation: %s: %s", e.Code, e.Detail)
}

// NewBusinessError creates a BusinessError with the given code and detail.
func NewBusinessError(code BusinessCode, detail string) *BusinessError {
	return &BusinessError{Code: code, Detail: detail}
}
