package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/s3keeper/internal/client/models"
	"github.com/dmitrijs2005/s3keeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/s3keeper/internal/dbx"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Load(ctx context.Context) (*State, error) {
	raw, err := metadata.NewSQLiteRepository(r.db).Get(ctx, KeyProfiles)
	if err != nil {
		return nil, err
	}

	s := &State{Profiles: []models.ConnectionProfile{}}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, s *State) error {
	raw, err := encode(s)
	if err != nil {
		return err
	}
	return metadata.NewSQLiteRepository(r.db).Set(ctx, KeyProfiles, raw)
}

func (r *SQLiteRepository) Passphrase(ctx context.Context) (string, bool, error) {
	raw, err := metadata.NewSQLiteRepository(r.db).Get(ctx, KeyPassphrase)
	if err != nil {
		return "", false, err
	}
	if len(raw) == 0 {
		return "", false, nil
	}
	return string(raw), true, nil
}

func (r *SQLiteRepository) SetPassphrase(ctx context.Context, p string) error {
	return metadata.NewSQLiteRepository(r.db).Set(ctx, KeyPassphrase, []byte(p))
}

func (r *SQLiteRepository) SaveWithPassphrase(ctx context.Context, s *State, p string) error {
	raw, err := encode(s)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, KeyProfiles, raw); err != nil {
			return err
		}
		return repo.Set(ctx, KeyPassphrase, []byte(p))
	})
}

func encode(s *State) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode profiles: %w", err)
	}
	return raw, nil
}
