package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/s3keeper/internal/client/client"
	"github.com/dmitrijs2005/s3keeper/internal/client/repositories/profiles"
	"github.com/dmitrijs2005/s3keeper/internal/cryptox"
	"github.com/dmitrijs2005/s3keeper/internal/logging"
	"github.com/stretchr/testify/require"
)

func newProfilesRepo(t *testing.T) *profiles.SQLiteRepository {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "data", "s3keeper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return profiles.NewSQLiteRepository(db)
}

func newProfileService(t *testing.T, strict bool) (ProfileService, PassphraseService, *profiles.SQLiteRepository) {
	t.Helper()
	repo := newProfilesRepo(t)
	pass := NewPassphraseService(repo, strict, logging.Nop())
	return NewProfileService(repo, pass, cryptox.NewAESGCM(), logging.Nop()), pass, repo
}
