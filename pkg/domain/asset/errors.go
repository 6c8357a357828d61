package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned when a document declares a kind that is not an asset kind.
	ErrUnknownKind = errors.New("unknown asset kind")

	// ErrInvalidTransition is returned when an asset state change is not allowed by the state machine.
	ErrInvalidTransition = errors.New("invalid asset state transition")
)

// ParseError is returned when an asset file is malformed.
type ParseError struct {
	File string
	// Document is the zero-based index of the YAML document in the file, -1 when the whole file is affected.
	Document int
	Err      error
}

func (e *ParseError) Error() string {
	if e.Document < 0 {
		return fmt.Sprintf("failed to parse %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("failed to parse %s (document %d): %v", e.File, e.Document, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DuplicateAssetError is returned when two documents declare the same (kind, slug).
type DuplicateAssetError struct {
	Key    Key
	First  string
	Second string
}

func (e *DuplicateAssetError) Error() string {
	if e.First == e.Second {
		return fmt.Sprintf("duplicate asset %s declared twice in %s", e.Key, e.First)
	}
	return fmt.Sprintf("duplicate asset %s declared in %s and %s", e.Key, e.First, e.Second)
}

// UnresolvedReferenceError is returned when a reference points to an asset that exists neither
// locally nor remotely.
type UnresolvedReferenceError struct {
	Key    Key
	Field  string
	Target Key
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s: %s references unknown %s", e.Key, e.Field, e.Target)
}

// InvalidAssetError is returned when an asset field violates a validation rule.
type InvalidAssetError struct {
	Key    Key
	Field  string
	Reason string
}

func (e *InvalidAssetError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Key, e.Field, e.Reason)
}

// TransientSyncError is a retryable remote failure: transport error, throttling or server fault.
// It is returned once the retries are exhausted.
type TransientSyncError struct {
	Key Key
	Err error
}

func (e *TransientSyncError) Error() string {
	return fmt.Sprintf("%s: transient sync failure: %v", e.Key, e.Err)
}

func (e *TransientSyncError) Unwrap() error { return e.Err }

// RejectedSyncError is a non-retryable remote failure, usually a validation error of the remote API.
type RejectedSyncError struct {
	Key Key
	Err error
}

func (e *RejectedSyncError) Error() string {
	return fmt.Sprintf("%s: rejected by remote: %v", e.Key, e.Err)
}

func (e *RejectedSyncError) Unwrap() error { return e.Err }

// AuthError is returned when the tenant credential is missing or refused.
// Key is zero when the failure is not tied to an asset.
type AuthError struct {
	Key Key
	Err error
}

func (e *AuthError) Error() string {
	if e.Key.IsZero() {
		return fmt.Sprintf("authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("%s: authentication failed: %v", e.Key, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// DependencyFailedError marks an asset that was not synced because an asset it references failed.
type DependencyFailedError struct {
	Key        Key
	Dependency Key
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("%s: skipped, dependency %s failed", e.Key, e.Dependency)
}

// IsValidationError reports whether err is one of the local, pre-sync error types.
func IsValidationError(err error) bool {
	var (
		parseErr      *ParseError
		duplicateErr  *DuplicateAssetError
		unresolvedErr *UnresolvedReferenceError
		invalidErr    *InvalidAssetError
	)
	return errors.As(err, &parseErr) ||
		errors.As(err, &duplicateErr) ||
		errors.As(err, &unresolvedErr) ||
		errors.As(err, &invalidErr)
}
