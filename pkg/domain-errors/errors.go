// Package domainerrors defines the registry's closed error taxonomy.
//
// Every rejected request maps to exactly one Code. Codes carry the stable
// numeric values the on-chain contract used (100-106) so external callers
// migrating from the contract see identical identifiers; ambient codes used
// only by the transport layer have no numeric value.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into coded errors with New/Wrap; transport renders the code verbatim.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class in the closed taxonomy.
type Code string

const (
	// Contract-era codes, surfaced verbatim to callers.
	CodeNotAuthorized            Code = "not_authorized"
	CodeCertificateNotFound      Code = "certificate_not_found"
	CodeAlreadyExists            Code = "already_exists"
	CodeInvalidInput             Code = "invalid_input"
	CodeInstitutionNotRegistered Code = "institution_not_registered"
	CodeCertificateRevoked       Code = "certificate_revoked"
	CodeInvalidRecipient         Code = "invalid_recipient"

	// Ambient codes for the transport surface.
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
)

// numericCodes preserves the contract's wire-stable error numbers.
var numericCodes = map[Code]int{
	CodeNotAuthorized:            100,
	CodeCertificateNotFound:      101,
	CodeAlreadyExists:            102,
	CodeInvalidInput:             103,
	CodeInstitutionNotRegistered: 104,
	CodeCertificateRevoked:       105,
	CodeInvalidRecipient:         106,
}

// Numeric returns the contract-era numeric value for the code, or 0 when the
// code is transport-only and has no contract equivalent.
func (c Code) Numeric() int { return numericCodes[c] }

// DomainError is the concrete error carried through service and transport
// layers. It wraps an optional cause for errors.Is/As chains.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &DomainError{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	for e := err; e != nil; {
		if errors.As(e, &de) {
			if de.Code == code {
				return true
			}
			e = de.Err
			continue
		}
		return false
	}
	return false
}

// Is is a readability alias for HasCode at call sites that test a single code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the outermost code from err, defaulting to CodeInternal for
// uncoded errors so transport never leaks internals.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps taxonomy codes onto HTTP statuses for the JSON envelope.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeCertificateNotFound, CodeInstitutionNotRegistered:
		return http.StatusNotFound
	case CodeInvalidInput, CodeInvalidRecipient, CodeBadRequest:
		return http.StatusBadRequest
	case CodeAlreadyExists, CodeCertificateRevoked:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
