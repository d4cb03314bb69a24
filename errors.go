package scurry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrVersionMismatch is returned when the applied history and the available scripts disagree
	// on the version at some position.
	ErrVersionMismatch = errors.New("version mismatch")

	// ErrHashMismatch is returned when an applied script has been modified since it was applied.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrUnknownVersion is returned when the history contains a version that has no script.
	ErrUnknownVersion = errors.New("schema contains unknown version")

	// ErrScriptChanged is returned when a script changed on disk between the moment it was loaded
	// and the moment it was about to be executed.
	ErrScriptChanged = errors.New("script changed since it was loaded")

	// ErrDuplicateVersion is returned when two scripts share the same version string.
	ErrDuplicateVersion = errors.New("duplicate version")

	// ErrInvalidFilename is returned when a script filename does not follow the
	// <version>__<name>.sql pattern.
	ErrInvalidFilename = errors.New("invalid migration filename")

	// ErrSessionClosed is returned when a closed Session is used.
	ErrSessionClosed = errors.New("session closed")
)

// Kind classifies an Error.
type Kind int

const (
	// KindIO covers filesystem failures while reading scripts.
	KindIO Kind = iota + 1
	// KindParse covers filenames that cannot be turned into a version.
	KindParse
	// KindSQL covers any failure reported by the database.
	KindSQL
	// KindConsistency covers disagreements between the applied history and the available
	// scripts.
	KindConsistency
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindSQL:
		return "sql"
	case KindConsistency:
		return "consistency"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type returned by scurry operations. Use errors.As or KindOf to classify it,
// and errors.Is to match the sentinel errors above.
type Error struct {
	Kind Kind
	// Op is a short description of what was being done, e.g. "read history" or
	// "apply 002__users.sql".
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or zero when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func ioError(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

func parseError(op string, err error) error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

func sqlError(op string, err error) error {
	return &Error{Kind: KindSQL, Op: op, Err: err}
}

func consistencyError(op string, err error) error {
	return &Error{Kind: KindConsistency, Op: op, Err: err}
}

// PartialError is returned by Migrate when a script fails, but some scripts already got applied
// in earlier nested scopes. Those scripts stay applied until the session is rolled back.
type PartialError struct {
	// Applied are versions that were applied successfully before the error occurred. May be empty.
	Applied []*Version
	// Failed is the version whose script failed. Cannot be nil.
	Failed *Version
	// Err is the error that occurred while running the script and caused the failure.
	Err error
}

func (e *PartialError) Error() string {
	applied := make([]string, 0, len(e.Applied))
	for _, v := range e.Applied {
		applied = append(applied, v.Version)
	}
	return fmt.Sprintf(
		"partial migration error (version:%s,applied:[%s]): %v",
		e.Failed.Version, strings.Join(applied, ","), e.Err,
	)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}
