package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/apperrors"
	"github.com/Yashh56/relwave-app-sub001/pkg/crypto"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	cipher, err := crypto.NewCredentialCipher("test-host|test-user")
	require.NoError(t, err)
	return New(dir, cipher, 30*time.Second, zap.NewNop()), dir
}

func addParams() AddParams {
	return AddParams{
		Name:     "local pg",
		Host:     "db.internal",
		Port:     5433,
		User:     "app",
		Password: "hunter2",
		Database: "appdb",
		Engine:   models.EnginePostgres,
		Tags:     []string{"dev"},
	}
}

func TestAddAndGet(t *testing.T) {
	s, dir := newTestStore(t)

	meta, err := s.Add(addParams())
	require.NoError(t, err)
	require.NotEmpty(t, meta.ID)
	assert.Equal(t, "local pg", meta.Name)
	assert.Equal(t, "db_"+meta.ID, meta.CredentialID)
	assert.False(t, meta.CreatedAt.IsZero())

	got := s.Get(meta.ID)
	require.NotNil(t, got)
	assert.Equal(t, meta.ID, got.ID)

	assert.Nil(t, s.Get("nope"))

	// Metadata file must never contain the plaintext password.
	raw, err := os.ReadFile(filepath.Join(dir, "databases.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
}

func TestAddWithoutPassword(t *testing.T) {
	s, _ := newTestStore(t)

	p := addParams()
	p.Password = ""
	meta, err := s.Add(p)
	require.NoError(t, err)
	assert.Empty(t, meta.CredentialID)

	_, ok := s.GetPassword(meta)
	assert.False(t, ok)
}

func TestPasswordRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	meta, err := s.Add(addParams())
	require.NoError(t, err)

	pw, ok := s.GetPassword(meta)
	require.True(t, ok)
	assert.Equal(t, "hunter2", pw)
}

func TestUpdateMergesPatch(t *testing.T) {
	s, _ := newTestStore(t)

	meta, err := s.Add(addParams())
	require.NoError(t, err)

	name := "renamed"
	port := 15432
	updated, err := s.Update(meta.ID, UpdateParams{Name: &name, Port: &port})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, 15432, updated.Port)
	assert.Equal(t, "db.internal", updated.Host) // untouched
	assert.True(t, !updated.UpdatedAt.Before(meta.UpdatedAt))

	// Readers observe the new value immediately, not after the TTL.
	got := s.Get(meta.ID)
	require.NotNil(t, got)
	assert.Equal(t, "renamed", got.Name)
}

func TestUpdatePasswordReencrypts(t *testing.T) {
	s, _ := newTestStore(t)

	meta, err := s.Add(addParams())
	require.NoError(t, err)

	pw := "new-secret"
	updated, err := s.Update(meta.ID, UpdateParams{Password: &pw})
	require.NoError(t, err)
	require.NotEmpty(t, updated.CredentialID)

	got, ok := s.GetPassword(updated)
	require.True(t, ok)
	assert.Equal(t, "new-secret", got)
}

func TestUpdateUnknownID(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Update("missing", UpdateParams{})
	assert.ErrorIs(t, err, apperrors.ErrDatabaseNotFound)
}

func TestDeleteCascadesCredential(t *testing.T) {
	s, dir := newTestStore(t)

	meta, err := s.Add(addParams())
	require.NoError(t, err)
	credID := meta.CredentialID

	require.NoError(t, s.Delete(meta.ID))
	assert.Nil(t, s.Get(meta.ID))

	creds := map[string]string{}
	raw, err := os.ReadFile(filepath.Join(dir, ".credentials"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &creds))
	_, ok := creds[credID]
	assert.False(t, ok)

	assert.ErrorIs(t, s.Delete(meta.ID), apperrors.ErrDatabaseNotFound)
}

func TestCorruptFilesFailOpen(t *testing.T) {
	s, dir := newTestStore(t)

	meta, err := s.Add(addParams())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "databases.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".credentials"), []byte("{not json"), 0o600))

	// Fresh store sees an empty set instead of erroring out.
	fresh := New(dir, mustCipher(t), 30*time.Second, zap.NewNop())
	assert.Empty(t, fresh.List())
	_, ok := fresh.GetPassword(meta)
	assert.False(t, ok)
}

func TestCredentialsFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}
	s, dir := newTestStore(t)

	_, err := s.Add(addParams())
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, ".credentials"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func mustCipher(t *testing.T) *crypto.CredentialCipher {
	t.Helper()
	c, err := crypto.NewCredentialCipher("test-host|test-user")
	require.NoError(t, err)
	return c
}
