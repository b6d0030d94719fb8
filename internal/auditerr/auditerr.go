// Package auditerr defines the error kinds surfaced by the audit pipeline
// (spec §7). An *Error unwraps both to its cause and to its kind's sentinel,
// so callers can match kinds with errors.Is while still getting a
// scanner-name-and-index-bearing message at the runAudit boundary.
package auditerr

import (
	"errors"
	"strconv"
)

// Kind identifies one of the seven fatal/recoverable error classes the
// pipeline can raise.
type Kind string

const (
	InvalidRequest    Kind = "invalid_request"
	RulePackLoadError Kind = "rulepack_load_error"
	ScannerInvalid    Kind = "scanner_invalid"
	ScannerTimeout    Kind = "scanner_timeout"
	AssetMissing      Kind = "asset_missing"
	PolicyConfigError Kind = "policy_config_error"
	ChainError        Kind = "chain_error"
)

// Sentinel errors, one per kind, for errors.Is matching.
var (
	ErrInvalidRequest    = errors.New(string(InvalidRequest))
	ErrRulePackLoadError = errors.New(string(RulePackLoadError))
	ErrScannerInvalid    = errors.New(string(ScannerInvalid))
	ErrScannerTimeout    = errors.New(string(ScannerTimeout))
	ErrAssetMissing      = errors.New(string(AssetMissing))
	ErrPolicyConfigError = errors.New(string(PolicyConfigError))
	ErrChainError        = errors.New(string(ChainError))
)

func sentinelFor(k Kind) error {
	switch k {
	case InvalidRequest:
		return ErrInvalidRequest
	case RulePackLoadError:
		return ErrRulePackLoadError
	case ScannerInvalid:
		return ErrScannerInvalid
	case ScannerTimeout:
		return ErrScannerTimeout
	case AssetMissing:
		return ErrAssetMissing
	case PolicyConfigError:
		return ErrPolicyConfigError
	default:
		return ErrChainError
	}
}

// Error is a kinded, wrapped error carrying a human-readable message and,
// when raised from inside a scanner chain, the offending scanner's name and
// index.
type Error struct {
	Kind        Kind
	Message     string
	Scanner     string
	ScannerIdx  int
	hasScanner  bool
	wrapped     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.hasScanner {
		msg = msg + " (scanner=" + e.Scanner + " index=" + strconv.Itoa(e.ScannerIdx) + ")"
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.wrapped != nil {
		return []error{e.wrapped, sentinelFor(e.Kind)}
	}
	return []error{sentinelFor(e.Kind)}
}

// New creates an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, wrapped: cause}
}

// WithScanner annotates the error with the scanner name and chain index that
// raised it, as required by spec §7 ("a diagnostic message containing
// scanner name and index").
func (e *Error) WithScanner(name string, idx int) *Error {
	e.Scanner = name
	e.ScannerIdx = idx
	e.hasScanner = true
	return e
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return errors.Is(err, sentinelFor(kind))
}
