// Package errs defines the error kinds shared by the identity core.
//
// Every failure returned by a core operation matches exactly one of the
// sentinels below with errors.Is. Internal failures (storage, hashing) carry
// their cause so the boundary can log it; callers outside the process only
// ever see the kind.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for an unknown address or a wrong secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned for a missing, unknown or expired session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when a role lacks a permission or cannot assign a role.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyExists is returned when an address is already registered.
	ErrAlreadyExists = errors.New("already exists")
	// ErrAlreadyInvited is returned when an active invitation exists for an address.
	ErrAlreadyInvited = errors.New("already invited")
	// ErrExpired is returned when an invitation is past its expiry.
	ErrExpired = errors.New("expired")
	// ErrNotFound is returned when a record (invitation token, principal) is unknown.
	ErrNotFound = errors.New("not found")
	// ErrHashing is returned when the credential subsystem fails internally.
	ErrHashing = errors.New("hashing failure")
	// ErrStorage is returned when the persistence layer fails.
	ErrStorage = errors.New("storage failure")
	// ErrNotification is returned when an invitation could not be delivered.
	ErrNotification = errors.New("notification failure")
)

// Storage wraps a persistence error as a storage failure. A nil error stays nil.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Hashing wraps a credential subsystem error as a hashing failure.
func Hashing(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrHashing) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrHashing, err)
}

// Notification wraps a delivery error as a notification failure.
func Notification(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotification) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNotification, err)
}

// Internal reports whether err is a failure whose detail must not leave the process.
func Internal(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrHashing)
}

// Kind returns the sentinel err matches, or nil if it matches none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// kinds is ordered so that domain kinds win over the internal ones they may wrap.
var kinds = []error{
	ErrInvalidCredentials,
	ErrUnauthenticated,
	ErrForbidden,
	ErrAlreadyExists,
	ErrAlreadyInvited,
	ErrExpired,
	ErrNotFound,
	ErrNotification,
	ErrHashing,
	ErrStorage,
}
