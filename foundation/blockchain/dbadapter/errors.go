package dbadapter

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Classification is the bucket a Postgres error falls into per spec
// §4.8/§6.4.
type Classification int

const (
	// ClassOther covers everything that isn't retryable, fatal or a
	// guest-visible constraint violation: the enclosing transaction is
	// marked invalid and the fault is logged.
	ClassOther Classification = iota
	// ClassRetryableConnectivity is any 08xxx SQLSTATE except 08P01
	// (protocol violation, which is a programming error, not a
	// transient connectivity fault).
	ClassRetryableConnectivity
	// ClassFatalCorruption is XX001/XX002: index or database corruption.
	// Triggers a graceful shutdown with exit code 51.
	ClassFatalCorruption
	// ClassConstraintViolation is any 23xxx SQLSTATE: a deterministic,
	// guest-catchable error.
	ClassConstraintViolation
	// ClassLockConflict is 53300: another processor instance holds the
	// advisory lock. Triggers a graceful shutdown with exit code 50.
	ClassLockConflict
)

// ExitCode maps a Classification to the process exit code spec §6.4
// assigns it, or 0 if the classification does not imply a shutdown.
func (c Classification) ExitCode() int {
	switch c {
	case ClassFatalCorruption:
		return 51
	case ClassLockConflict:
		return 50
	default:
		return 0
	}
}

// Classify inspects err and returns its Classification alongside the
// underlying *pgconn.PgError when one is present. Non-Postgres errors
// (e.g. a dropped TCP connection) classify as ClassRetryableConnectivity,
// since the adapter cannot distinguish "no connection" from "lost
// connection" without a SQLSTATE to inspect.
func Classify(err error) (Classification, *pgconn.PgError) {
	if err == nil {
		return ClassOther, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ClassRetryableConnectivity, nil
	}

	switch {
	case pgErr.Code == "53300":
		return ClassLockConflict, pgErr
	case pgErr.Code == "XX001" || pgErr.Code == "XX002":
		return ClassFatalCorruption, pgErr
	case strings.HasPrefix(pgErr.Code, "08") && pgErr.Code != "08P01":
		return ClassRetryableConnectivity, pgErr
	case strings.HasPrefix(pgErr.Code, "23"):
		return ClassConstraintViolation, pgErr
	default:
		return ClassOther, pgErr
	}
}

// FatalError wraps an error whose Classification requires the process
// to shut down rather than merely fail the current transaction or
// retry the current connection attempt: ClassFatalCorruption (exit
// code 51) or ClassLockConflict (exit code 50), per spec §5/§6.4.
type FatalError struct {
	Classification Classification
	Err            error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// ExitCode is the process exit code the caller must shut down with.
func (e *FatalError) ExitCode() int {
	return e.Classification.ExitCode()
}

// ClassifyFatal is Classify, plus promotion to *FatalError for the two
// classifications spec §6.4 mandates a graceful shutdown for. Callers
// on the DB-error path that must fail closed on corruption or a lost
// advisory lock, rather than just retry or invalidate the current
// transaction, call this instead of Classify directly.
func ClassifyFatal(err error) (Classification, error) {
	class, _ := Classify(err)
	if class == ClassFatalCorruption || class == ClassLockConflict {
		return class, &FatalError{Classification: class, Err: err}
	}
	return class, err
}

// GuestError strips host-specific detail (stack traces, file/line,
// server-internal hints) from a constraint-violation PgError, leaving
// only the SQLSTATE code and message the guest is allowed to see.
type GuestError struct {
	Code    string
	Message string
}

func (e *GuestError) Error() string {
	return e.Message
}

// ToGuestError converts a *pgconn.PgError into the deterministic,
// guest-visible form; the guest never sees pgErr.Where, pgErr.File or
// pgErr.Line, all of which vary with the server build.
func ToGuestError(pgErr *pgconn.PgError) *GuestError {
	return &GuestError{Code: pgErr.Code, Message: pgErr.Message}
}
