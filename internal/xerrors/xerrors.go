// Package xerrors defines the flat status-code taxonomy shared by every
// component boundary in xfrase, from the on-disk index/methylome loaders
// up through the wire protocol's response header.
package xerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, wire-visible status. Its numeric value is transmitted
// verbatim in the response header's status field (see internal/wire).
type Code uint8

const (
	OK Code = iota
	BadRequest
	UnknownMethylome
	UnknownChromosome
	SizeMismatch
	MetadataMismatch
	CorruptData
	IOError
	Timeout
	CacheFull
	InternalError
)

var names = [...]string{
	"ok",
	"bad_request",
	"unknown_methylome",
	"unknown_chromosome",
	"size_mismatch",
	"metadata_mismatch",
	"corrupt_data",
	"io_error",
	"timeout",
	"cache_full",
	"internal_error",
}

// String renders the code the way it appears in logs and in the lookup
// client's output; the wire header carries the numeric value instead.
func (c Code) String() string {
	if int(c) < len(names) {
		return names[c]
	}
	return "internal_error"
}

// Error is the error type returned across component boundaries. Lower
// level errors (zlib codes, os errors) are mapped into one of these at
// the boundary; callers above that boundary only ever see a Code.
type Error struct {
	Op   string // component/operation that produced the error, e.g. "cpgindex.Read"
	Code Code
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op/code, optionally wrapping cause.
func New(op string, code Code, cause error) *Error {
	return &Error{Op: op, Code: code, Err: cause}
}

// CodeOf extracts the Code from err if it (or something it wraps) is an
// *Error; otherwise it returns InternalError, matching spec.md §7's
// "unknown errors become internal_error" rule.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}
