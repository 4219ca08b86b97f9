// Package services contains the application services of the S3Keeper client:
// credential profiles and the master passphrase, the cached remote façade
// over a storage backend, and the upload queue.
package services

import (
	"errors"
	"fmt"
)

// ErrValidation marks input rejected before any backend call.
var ErrValidation = errors.New("validation error")

var (
	ErrNoActiveProfile  = fmt.Errorf("%w: no active profile", ErrValidation)
	ErrNoBucket         = fmt.Errorf("%w: no bucket selected", ErrValidation)
	ErrEmptyInput       = fmt.Errorf("%w: empty input", ErrValidation)
	ErrPassphraseNotSet = fmt.Errorf("%w: master passphrase not set", ErrValidation)
)

func emptyField(name string) error {
	return fmt.Errorf("%w: %s", ErrEmptyInput, name)
}
