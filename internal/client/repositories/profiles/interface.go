// Package profiles persists the connection profile list, the active profile
// reference and the master passphrase in the metadata table.
//
// Layout:
//
//	profiles           {"profiles":[...],"active_id":"..."}
//	master_passphrase  raw passphrase bytes
package profiles

import (
	"context"

	"github.com/dmitrijs2005/s3keeper/internal/client/models"
)

const (
	KeyProfiles   = "profiles"
	KeyPassphrase = "master_passphrase"
)

// State is the persisted profile list. Secrets inside are ciphertext for
// every profile with Encrypted set.
type State struct {
	Profiles []models.ConnectionProfile `json:"profiles"`
	ActiveID string                     `json:"active_id,omitempty"`
}

type Repository interface {
	// Load returns an empty State when nothing was saved yet.
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, s *State) error

	// Passphrase returns "", false when none is stored.
	Passphrase(ctx context.Context) (string, bool, error)
	SetPassphrase(ctx context.Context, p string) error

	// SaveWithPassphrase stores both records in one transaction.
	SaveWithPassphrase(ctx context.Context, s *State, p string) error
}
