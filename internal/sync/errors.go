// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package sync

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures so callers branch on the kind instead
// of matching messages.
type ErrorKind int

const (
	// KindUnknown is returned by KindOf for errors that carry no kind.
	KindUnknown ErrorKind = iota
	// RetryableTransport covers timeouts, connection errors, rate limiting and
	// 5xx responses. Only seen by callers when wrapped in RetriesExhausted.
	RetryableTransport
	// AuthInvalid means the token was rejected (401/403). Aborts the branch.
	AuthInvalid
	// BadRequest means the server rejected the request itself (other 4xx),
	// typically an unsupported filter or projection. Aborts the entity.
	BadRequest
	// RetriesExhausted means a page kept failing with retryable errors until
	// the attempt budget ran out.
	RetriesExhausted
	// PersistenceFailure covers raw-store and watermark write failures.
	PersistenceFailure
	// CredentialsUnavailable means the branch credentials could not be read
	// from the secret store. The API was never contacted. Aborts the branch.
	CredentialsUnavailable
)

// String returns the snake_case name used in logs and metric labels.
func (k ErrorKind) String() string {
	switch k {
	case RetryableTransport:
		return "retryable_transport"
	case AuthInvalid:
		return "auth_invalid"
	case BadRequest:
		return "bad_request"
	case RetriesExhausted:
		return "retries_exhausted"
	case PersistenceFailure:
		return "persistence_failure"
	case CredentialsUnavailable:
		return "credentials_unavailable"
	default:
		return "unknown"
	}
}

// ErrNoToken is returned when the auth endpoint answers without a usable token.
var ErrNoToken = errors.New("auth response contained no token")

// FetchError is returned by the fetch primitive and the entity pipeline.
type FetchError struct {
	Kind       ErrorKind
	Entity     string
	Page       int // 0 when not tied to a page
	StatusCode int // 0 for transport errors
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Entity, e.Kind)
	if e.Page > 0 {
		msg += fmt.Sprintf(" on page %d", e.Page)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// BranchError reports a failure that aborts a whole branch, such as a failed
// token exchange.
type BranchError struct {
	BranchID string
	Kind     ErrorKind
	Err      error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("branch %s: %s: %v", e.BranchID, e.Kind, e.Err)
}

func (e *BranchError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var be *BranchError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// persistenceError wraps a storage failure for entity.
func persistenceError(entity string, err error) error {
	return &FetchError{Kind: PersistenceFailure, Entity: entity, Err: err}
}
