package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/s3keeper/internal/client/models"
	"github.com/dmitrijs2005/s3keeper/internal/client/repositories/profiles"
	"github.com/dmitrijs2005/s3keeper/internal/common"
	"github.com/dmitrijs2005/s3keeper/internal/cryptox"
	"github.com/dmitrijs2005/s3keeper/internal/logging"
	"github.com/google/uuid"
)

// ProfileService manages connection profiles. Secrets are persisted
// encrypted under the master passphrase and decrypted only on use.
//
// List and Get return the stored (encrypted) form.
type ProfileService interface {
	List(ctx context.Context) ([]models.ConnectionProfile, error)
	Get(ctx context.Context, id string) (*models.ConnectionProfile, error)
	Add(ctx context.Context, p models.ConnectionProfile) (*models.ConnectionProfile, error)
	Update(ctx context.Context, p models.ConnectionProfile) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string) error
	ActiveID(ctx context.Context) (string, error)

	// ResolveActive returns a decrypted copy of the active profile, or
	// nil, nil when none is active. If decryption fails the encrypted copy
	// is returned instead of an error.
	ResolveActive(ctx context.Context) (*models.ConnectionProfile, error)

	// Rotate re-encrypts every profile that decrypts under the current
	// passphrase with newPassphrase, then makes newPassphrase current.
	// It returns the number of profiles re-encrypted; profiles that could
	// not be decrypted are kept unchanged.
	Rotate(ctx context.Context, newPassphrase string) (int, error)
}

type profileService struct {
	mu         sync.Mutex
	repo       profiles.Repository
	passphrase PassphraseService
	cipher     cryptox.Cipher
	log        logging.Logger
}

func NewProfileService(repo profiles.Repository, passphrase PassphraseService, cipher cryptox.Cipher, log logging.Logger) ProfileService {
	return &profileService{repo: repo, passphrase: passphrase, cipher: cipher, log: log}
}

func find(s *profiles.State, id string) int {
	for i := range s.Profiles {
		if s.Profiles[i].ID == id {
			return i
		}
	}
	return -1
}

func validateProfile(p *models.ConnectionProfile) error {
	switch {
	case p.Name == "":
		return emptyField("name")
	case p.AccessKeyID == "":
		return emptyField("access key id")
	case p.SecretAccessKey == "":
		return emptyField("secret access key")
	}
	return nil
}

func (s *profileService) load(ctx context.Context) (*profiles.State, error) {
	st, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles error: %w", err)
	}
	return st, nil
}

func (s *profileService) save(ctx context.Context, st *profiles.State) error {
	if err := s.repo.Save(ctx, st); err != nil {
		return fmt.Errorf("save profiles error: %w", err)
	}
	return nil
}

// seal encrypts the secret fields of p in place.
func (s *profileService) seal(ctx context.Context, p *models.ConnectionProfile) error {
	pass, err := s.passphrase.Get(ctx)
	if err != nil {
		return err
	}
	return encryptSecrets(s.cipher, p, pass)
}

// sealChanged encrypts every secret field of p that is not the stored
// ciphertext. Fields still equal to an encrypted stored value are kept.
func (s *profileService) sealChanged(ctx context.Context, p, stored *models.ConnectionProfile) error {
	pass, err := s.passphrase.Get(ctx)
	if err != nil {
		return err
	}
	have := secretFields(stored)
	for n, field := range secretFields(p) {
		if *field == "" || (p.Encrypted && stored.Encrypted && *field == *have[n]) {
			continue
		}
		ct, err := s.cipher.Encrypt(*field, pass)
		if err != nil {
			return fmt.Errorf("encrypt profile error: %w", err)
		}
		*field = ct
	}
	p.Encrypted = true
	return nil
}

func encryptSecrets(c cryptox.Cipher, p *models.ConnectionProfile, pass string) error {
	for _, field := range secretFields(p) {
		if *field == "" {
			continue
		}
		ct, err := c.Encrypt(*field, pass)
		if err != nil {
			return fmt.Errorf("encrypt profile error: %w", err)
		}
		*field = ct
	}
	p.Encrypted = true
	return nil
}

func decryptSecrets(c cryptox.Cipher, p *models.ConnectionProfile, pass string) error {
	for _, field := range secretFields(p) {
		if *field == "" {
			continue
		}
		pt, err := c.Decrypt(*field, pass)
		if err != nil {
			return err
		}
		*field = pt
	}
	p.Encrypted = false
	return nil
}

func secretFields(p *models.ConnectionProfile) []*string {
	return []*string{&p.AccessKeyID, &p.SecretAccessKey, &p.SessionToken}
}

func (s *profileService) List(ctx context.Context) ([]models.ConnectionProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return st.Profiles, nil
}

func (s *profileService) Get(ctx context.Context, id string) (*models.ConnectionProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := find(st, id)
	if i < 0 {
		return nil, fmt.Errorf("profile %s: %w", id, common.ErrorNotFound)
	}
	return st.Profiles[i].Clone(), nil
}

func (s *profileService) Add(ctx context.Context, p models.ConnectionProfile) (*models.ConnectionProfile, error) {
	if err := validateProfile(&p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if find(st, p.ID) >= 0 {
		return nil, fmt.Errorf("profile %s: %w", p.ID, common.ErrorAlreadyExists)
	}

	if err := s.seal(ctx, &p); err != nil {
		return nil, err
	}
	st.Profiles = append(st.Profiles, p)

	if err := s.save(ctx, st); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (s *profileService) Update(ctx context.Context, p models.ConnectionProfile) error {
	if p.ID == "" {
		return emptyField("id")
	}
	if err := validateProfile(&p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := find(st, p.ID)
	if i < 0 {
		return fmt.Errorf("profile %s: %w", p.ID, common.ErrorNotFound)
	}

	if err := s.sealChanged(ctx, &p, &st.Profiles[i]); err != nil {
		return err
	}
	st.Profiles[i] = p

	return s.save(ctx, st)
}

func (s *profileService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := find(st, id)
	if i < 0 {
		return fmt.Errorf("profile %s: %w", id, common.ErrorNotFound)
	}

	st.Profiles = append(st.Profiles[:i], st.Profiles[i+1:]...)
	if st.ActiveID == id {
		st.ActiveID = ""
	}
	return s.save(ctx, st)
}

func (s *profileService) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	if find(st, id) < 0 {
		return fmt.Errorf("profile %s: %w", id, common.ErrorNotFound)
	}
	st.ActiveID = id
	return s.save(ctx, st)
}

func (s *profileService) ActiveID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return st.ActiveID, nil
}

func (s *profileService) ResolveActive(ctx context.Context) (*models.ConnectionProfile, error) {
	s.mu.Lock()
	st, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if st.ActiveID == "" {
		return nil, nil
	}
	i := find(st, st.ActiveID)
	if i < 0 {
		return nil, nil
	}

	stored := st.Profiles[i].Clone()
	if !stored.Encrypted {
		return stored, nil
	}

	pass, err := s.passphrase.Get(ctx)
	if err != nil {
		return nil, err
	}

	plain := stored.Clone()
	if err := decryptSecrets(s.cipher, plain, pass); err != nil {
		if !errors.Is(err, cryptox.ErrDecrypt) {
			return nil, err
		}
		s.log.Warn(ctx, "profile secrets do not decrypt under the current passphrase",
			"profile", stored.ID, "err", err)
		return stored, nil
	}
	return plain, nil
}

func (s *profileService) Rotate(ctx context.Context, newPassphrase string) (int, error) {
	if newPassphrase == "" {
		return 0, emptyField("passphrase")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	oldPass, err := s.passphrase.Get(ctx)
	if err != nil {
		return 0, err
	}

	rotated := 0
	for i := range st.Profiles {
		p := st.Profiles[i].Clone()
		if p.Encrypted {
			if err := decryptSecrets(s.cipher, p, oldPass); err != nil {
				s.log.Warn(ctx, "skipping profile during rotation", "profile", p.ID, "err", err)
				continue
			}
		}
		if err := encryptSecrets(s.cipher, p, newPassphrase); err != nil {
			return 0, err
		}
		st.Profiles[i] = *p
		rotated++
	}

	if err := s.repo.SaveWithPassphrase(ctx, st, newPassphrase); err != nil {
		return 0, fmt.Errorf("save rotated profiles error: %w", err)
	}
	return rotated, nil
}
