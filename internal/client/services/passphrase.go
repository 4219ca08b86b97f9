package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/s3keeper/internal/client/repositories/profiles"
	"github.com/dmitrijs2005/s3keeper/internal/common"
	"github.com/dmitrijs2005/s3keeper/internal/logging"
)

// PassphraseService owns the master passphrase that protects profile
// secrets.
//
// Set does not touch already encrypted profiles; use ProfileService.Rotate
// to re-encrypt them under a new passphrase.
type PassphraseService interface {
	// Get returns the stored passphrase. When none is stored it generates a
	// random one, persists it and returns it, unless the service is strict,
	// in which case ErrPassphraseNotSet is returned.
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, p string) error
	IsSet(ctx context.Context) (bool, error)
}

type passphraseService struct {
	mu     sync.Mutex
	repo   profiles.Repository
	strict bool
	log    logging.Logger
}

func NewPassphraseService(repo profiles.Repository, strict bool, log logging.Logger) PassphraseService {
	return &passphraseService{repo: repo, strict: strict, log: log}
}

func (s *passphraseService) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok, err := s.repo.Passphrase(ctx)
	if err != nil {
		return "", fmt.Errorf("load passphrase error: %w", err)
	}
	if ok {
		return p, nil
	}
	if s.strict {
		return "", ErrPassphraseNotSet
	}

	p, err = common.MakeRandHexString(32)
	if err != nil {
		return "", fmt.Errorf("generate passphrase error: %w", err)
	}
	if err := s.repo.SetPassphrase(ctx, p); err != nil {
		return "", fmt.Errorf("save passphrase error: %w", err)
	}
	s.log.Warn(ctx, "no master passphrase set, generated a random one")
	return p, nil
}

func (s *passphraseService) Set(ctx context.Context, p string) error {
	if p == "" {
		return emptyField("passphrase")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SetPassphrase(ctx, p); err != nil {
		return fmt.Errorf("save passphrase error: %w", err)
	}
	return nil
}

func (s *passphraseService) IsSet(ctx context.Context) (bool, error) {
	_, ok, err := s.repo.Passphrase(ctx)
	if err != nil {
		return false, fmt.Errorf("load passphrase error: %w", err)
	}
	return ok, nil
}
