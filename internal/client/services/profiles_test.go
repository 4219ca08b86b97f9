package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/s3keeper/internal/client/models"
	"github.com/dmitrijs2005/s3keeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProfile() models.ConnectionProfile {
	return models.ConnectionProfile{
		Name:            "prod",
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret/key",
		Region:          "eu-west-1",
	}
}

func TestProfiles_AddEncryptsAtRest(t *testing.T) {
	svc, pass, repo := newProfileService(t, false)
	ctx := context.Background()
	require.NoError(t, pass.Set(ctx, "master"))

	added, err := svc.Add(ctx, sampleProfile())
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.True(t, added.Encrypted)

	st, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, st.Profiles, 1)
	stored := st.Profiles[0]
	assert.True(t, stored.Encrypted)
	assert.NotEqual(t, "AKIAEXAMPLE", stored.AccessKeyID)
	assert.NotEqual(t, "secret/key", stored.SecretAccessKey)
	assert.Empty(t, stored.SessionToken)
	assert.Equal(t, "eu-west-1", stored.Region)
}

func TestProfiles_ResolveActive(t *testing.T) {
	svc, pass, _ := newProfileService(t, false)
	ctx := context.Background()
	require.NoError(t, pass.Set(ctx, "master"))

	got, err := svc.ResolveActive(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	p := sampleProfile()
	p.SessionToken = "token"
	added, err := svc.Add(ctx, p)
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(ctx, added.ID))

	got, err = svc.ResolveActive(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Encrypted)
	assert.Equal(t, "AKIAEXAMPLE", got.AccessKeyID)
	assert.Equal(t, "secret/key", got.SecretAccessKey)
	assert.Equal(t, "token", got.SessionToken)
}

func TestProfiles_ResolveActive_WrongPassphrase(t *testing.T) {
	svc, pass, _ := newProfileService(t, false)
	ctx := context.Background()
	require.NoError(t, pass.Set(ctx, "first"))

	added, err := svc.Add(ctx, sampleProfile())
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(ctx, added.ID))

	require.NoError(t, pass.Set(ctx, "second"))

	got, err := svc.ResolveActive(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Encrypted)
	assert.Equal(t, added.AccessKeyID, got.AccessKeyID)
	assert.Equal(t, added.SecretAccessKey, got.SecretAccessKey)
}

func TestProfiles_Validation(t *testing.T) {
	svc, _, _ := newProfileService(t, false)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(p *models.ConnectionProfile)
	}{
		{name: "no name", mutate: func(p *models.ConnectionProfile) { p.Name = "" }},
		{name: "no access key", mutate: func(p *models.ConnectionProfile) { p.AccessKeyID = "" }},
		{name: "no secret", mutate: func(p *models.ConnectionProfile) { p.SecretAccessKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sampleProfile()
			tt.mutate(&p)
			_, err := svc.Add(ctx, p)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	err := svc.Update(ctx, sampleProfile())
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestProfiles_DuplicateAndNotFound(t *testing.T) {
	svc, _, _ := newProfileService(t, false)
	ctx := context.Background()

	p := sampleProfile()
	p.ID = "fixed"
	_, err := svc.Add(ctx, p)
	require.NoError(t, err)

	_, err = svc.Add(ctx, p)
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "missing"), common.ErrorNotFound)
	assert.ErrorIs(t, svc.SetActive(ctx, "missing"), common.ErrorNotFound)

	missing := sampleProfile()
	missing.ID = "missing"
	assert.ErrorIs(t, svc.Update(ctx, missing), common.ErrorNotFound)
}

func TestProfiles_DeleteClearsActive(t *testing.T) {
	svc, _, _ := newProfileService(t, false)
	ctx := context.Background()

	a, err := svc.Add(ctx, sampleProfile())
	require.NoError(t, err)
	b, err := svc.Add(ctx, sampleProfile())
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(ctx, a.ID))

	require.NoError(t, svc.Delete(ctx, a.ID))

	id, err := svc.ActiveID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestProfiles_Update(t *testing.T) {
	svc, pass, _ := newProfileService(t, false)
	ctx := context.Background()
	require.NoError(t, pass.Set(ctx, "master"))

	added, err := svc.Add(ctx, sampleProfile())
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(ctx, added.ID))

	p := sampleProfile()
	p.ID = added.ID
	p.SecretAccessKey = "rotated"
	p.Bucket = "photos"
	require.NoError(t, svc.Update(ctx, p))

	got, err := svc.ResolveActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.SecretAccessKey)
	assert.Equal(t, "photos", got.Bucket)

	// ciphertext round-trips untouched
	stored, err := svc.Get(ctx, added.ID)
	require.NoError(t, err)
	stored.Name = "renamed"
	require.NoError(t, svc.Update(ctx, *stored))

	got, err = svc.ResolveActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "rotated", got.SecretAccessKey)
}

func TestProfiles_Update_ChangedSecretOnEncryptedCopy(t *testing.T) {
	svc, pass, repo := newProfileService(t, false)
	ctx := context.Background()
	require.NoError(t, pass.Set(ctx, "master"))

	added, err := svc.Add(ctx, sampleProfile())
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(ctx, added.ID))

	stored, err := svc.Get(ctx, added.ID)
	require.NoError(t, err)
	require.True(t, stored.Encrypted)
	stored.SecretAccessKey = "new-plain-secret"
	require.NoError(t, svc.Update(ctx, *stored))

	st, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, st.Profiles, 1)
	persisted := st.Profiles[0]
	assert.True(t, persisted.Encrypted)
	assert.NotEqual(t, "new-plain-secret", persisted.SecretAccessKey)
	assert.Equal(t, added.AccessKeyID, persisted.AccessKeyID)

	got, err := svc.ResolveActive(ctx)
	require.NoError(t, err)
	assert.False(t, got.Encrypted)
	assert.Equal(t, "new-plain-secret", got.SecretAccessKey)
	assert.Equal(t, "AKIAEXAMPLE", got.AccessKeyID)
}

func TestProfiles_Rotate(t *testing.T) {
	svc, pass, _ := newProfileService(t, false)
	ctx := context.Background()
	require.NoError(t, pass.Set(ctx, "old"))

	added, err := svc.Add(ctx, sampleProfile())
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(ctx, added.ID))

	n, err := svc.Rotate(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	current, err := pass.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", current)

	got, err := svc.ResolveActive(ctx)
	require.NoError(t, err)
	assert.False(t, got.Encrypted)
	assert.Equal(t, "secret/key", got.SecretAccessKey)

	_, err = svc.Rotate(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestProfiles_StrictWithoutPassphrase(t *testing.T) {
	svc, _, _ := newProfileService(t, true)

	_, err := svc.Add(context.Background(), sampleProfile())
	assert.ErrorIs(t, err, ErrPassphraseNotSet)
}
