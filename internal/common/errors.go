// Package common defines shared constants and sentinel errors used across
// client layers of S3Keeper. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrorAlreadyExists is returned when an identifier is already taken.
	ErrorAlreadyExists = errors.New("already exists")
)
