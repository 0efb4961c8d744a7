// Package core provides the fundamental building blocks of the mango ODM.
// This file defines the error kinds raised by the connection, query, and
// relation layers. All errors are sentinels so callers can classify failures
// with errors.Is regardless of the wrapping message.
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates missing or inconsistent connection
	// configuration, such as an unknown connection name or an unset
	// default connection.
	ErrConfiguration = errors.New("mango: configuration error")

	// ErrInvalidArgument indicates an invalid caller-supplied argument,
	// such as a non-positive page number or an index declaration without
	// a name or keys.
	ErrInvalidArgument = errors.New("mango: invalid argument")

	// ErrRelationMismatch indicates that a document of the wrong schema
	// was passed to a relation write operation.
	ErrRelationMismatch = errors.New("mango: relation mismatch")

	// ErrUnsavedTarget indicates a relation write or delete attempted
	// against a parent document that was never persisted.
	ErrUnsavedTarget = errors.New("mango: unsaved target")
)

// configurationErrorf wraps ErrConfiguration with a formatted message.
func configurationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// invalidArgumentf wraps ErrInvalidArgument with a formatted message.
func invalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// relationMismatchf wraps ErrRelationMismatch with a formatted message.
func relationMismatchf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRelationMismatch, fmt.Sprintf(format, args...))
}

// unsavedTargetf wraps ErrUnsavedTarget with a formatted message.
func unsavedTargetf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsavedTarget, fmt.Sprintf(format, args...))
}
