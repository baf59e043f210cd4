package projectstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/apperrors"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir(), nil, zap.NewNop())
}

func createProject(t *testing.T, s *Store) *models.Project {
	t.Helper()
	p, err := s.Create(CreateParams{DatabaseID: "db-1", Name: "P1"})
	require.NoError(t, err)
	return p
}

func TestCreateListDelete(t *testing.T) {
	s := newTestStore(t)
	p := createProject(t, s)

	for _, sub := range []string{"schema", "diagrams", "queries"} {
		info, err := os.Stat(filepath.Join(s.Dir(p.ID), sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P1", list[0].Name)

	require.NoError(t, s.Delete(p.ID))

	_, err = os.Stat(s.Dir(p.ID))
	assert.True(t, os.IsNotExist(err))

	list, err = s.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := s.Get(p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateWhitelist(t *testing.T) {
	s := newTestStore(t)
	p := createProject(t, s)

	updated, err := s.Update(p.ID, map[string]any{
		"name":          "renamed",
		"description":   "desc",
		"defaultSchema": "public",
		"id":            "evil-id",
		"databaseId":    "evil-db",
		"createdAt":     "1999-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "desc", updated.Description)
	assert.Equal(t, "public", updated.DefaultSchema)
	// Identity fields survive whatever the payload carries.
	assert.Equal(t, p.ID, updated.ID)
	assert.Equal(t, p.DatabaseID, updated.DatabaseID)
	assert.Equal(t, p.CreatedAt.Unix(), updated.CreatedAt.Unix())
}

func TestUpdateUnknownProject(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update("missing", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)
}

func TestSaveSchemaDedup(t *testing.T) {
	s := newTestStore(t)
	p := createProject(t, s)

	snapshot := []models.Schema{{
		Name: "public",
		Tables: []models.Table{{
			Name: "users", Type: "table",
			Columns: []models.Column{{Name: "id", Type: "integer", IsPrimaryKey: true}},
		}},
	}}

	first, err := s.SaveSchema(p.ID, snapshot)
	require.NoError(t, err)

	// Identical content: no rewrite, same cachedAt.
	second, err := s.SaveSchema(p.ID, snapshot)
	require.NoError(t, err)
	assert.Equal(t, first.CachedAt, second.CachedAt)

	// Changed content: strictly later cachedAt.
	time.Sleep(5 * time.Millisecond)
	changed := append(snapshot[:len(snapshot):len(snapshot)], models.Schema{Name: "billing"})
	third, err := s.SaveSchema(p.ID, changed)
	require.NoError(t, err)
	assert.True(t, third.CachedAt.After(first.CachedAt))
}

func TestSaveSchemaUnknownProject(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveSchema("missing", nil)
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)
}

func TestGetByDatabaseIDFirstMatch(t *testing.T) {
	s := newTestStore(t)
	first := createProject(t, s)
	_, err := s.Create(CreateParams{DatabaseID: "db-1", Name: "P2"})
	require.NoError(t, err)

	got, err := s.GetByDatabaseID("db-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)

	none, err := s.GetByDatabaseID("db-unknown")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestQueryLifecycle(t *testing.T) {
	s := newTestStore(t)
	p := createProject(t, s)

	q, err := s.AddQuery(p.ID, "top users", "SELECT * FROM users LIMIT 10")
	require.NoError(t, err)
	require.NotEmpty(t, q.ID)

	name := "renamed"
	updated, err := s.UpdateQuery(p.ID, q.ID, &name, nil)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, q.SQL, updated.SQL)

	// Absent id: nil result, not an error.
	missing, err := s.UpdateQuery(p.ID, "nope", &name, nil)
	require.NoError(t, err)
	assert.Nil(t, missing)
	require.NoError(t, s.DeleteQuery(p.ID, "nope"))

	require.NoError(t, s.DeleteQuery(p.ID, q.ID))
	queries, err := s.ListQueries(p.ID)
	require.NoError(t, err)
	assert.Empty(t, queries)
}

func TestExport(t *testing.T) {
	s := newTestStore(t)
	p := createProject(t, s)

	bundle, err := s.Export(p.ID)
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Equal(t, p.ID, bundle.Metadata.ID)
	assert.NotNil(t, bundle.Schema)
	assert.NotNil(t, bundle.Diagram)
	assert.NotNil(t, bundle.Queries)

	none, err := s.Export("missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEnsureGitignoreIdempotent(t *testing.T) {
	s := newTestStore(t)
	p := createProject(t, s)

	modified, err := s.EnsureGitignore(p.ID)
	require.NoError(t, err)
	assert.True(t, modified)

	raw, err := os.ReadFile(filepath.Join(s.Dir(p.ID), ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "relwave.local.json")

	modified, err = s.EnsureGitignore(p.ID)
	require.NoError(t, err)
	assert.False(t, modified)
}

func TestDiagramRoundTrip(t *testing.T) {
	s := newTestStore(t)
	p := createProject(t, s)

	nodes := []models.DiagramNode{{ID: "n1", SchemaName: "public", TableName: "users", X: 10, Y: 20}}
	saved, err := s.SaveDiagram(p.ID, nodes)
	require.NoError(t, err)
	assert.Len(t, saved.Nodes, 1)

	got, err := s.GetDiagram(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, nodes, got.Nodes)
}
