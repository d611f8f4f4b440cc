// Package common defines sentinel errors shared by the seeding and search
// layers. Callers should match them with errors.Is.
package common

import "errors"

var (
	// ErrNotFound is returned by stores and indexes when a record is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument marks caller input that cannot be processed.
	ErrInvalidArgument = errors.New("invalid argument")
)
