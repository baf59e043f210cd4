package vcs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/apperrors"
	"github.com/Yashh56/relwave-app-sub001/pkg/diff"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
	"github.com/Yashh56/relwave-app-sub001/pkg/projectstore"
)

// fakeReader serves canned snapshots per ref.
type fakeReader struct {
	files   map[string][]byte // ref -> content, missing key = absent at ref
	history []Commit
	err     error
}

func (f *fakeReader) FileAtRef(_ context.Context, _, _, ref string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.files[ref], nil
}

func (f *fakeReader) FileHistory(_ context.Context, _, _ string, count int) ([]Commit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if count < len(f.history) {
		return f.history[:count], nil
	}
	return f.history, nil
}

func marshalSnapshot(t *testing.T, schemas ...models.Schema) []byte {
	t.Helper()
	raw, err := json.Marshal(&models.SchemaFile{Version: 1, Schemas: schemas})
	require.NoError(t, err)
	return raw
}

func newTestService(t *testing.T, reader RefReader) (*DiffService, *projectstore.Store, string) {
	t.Helper()
	projects := projectstore.New(t.TempDir(), nil, zap.NewNop())
	project, err := projects.Create(projectstore.CreateParams{DatabaseID: "db-1", Name: "P1"})
	require.NoError(t, err)
	return NewDiffService(projects, reader, zap.NewNop()), projects, project.ID
}

func TestSchemaDiffDefaultsFromRefToHead(t *testing.T) {
	before := models.Schema{Name: "public", Tables: []models.Table{{Name: "users", Type: "table"}}}
	reader := &fakeReader{files: map[string][]byte{"HEAD": marshalSnapshot(t, before)}}
	svc, projects, projectID := newTestService(t, reader)

	// Working tree adds a table.
	_, err := projects.SaveSchema(projectID, []models.Schema{{
		Name: "public",
		Tables: []models.Table{
			{Name: "users", Type: "table"},
			{Name: "posts", Type: "table"},
		},
	}})
	require.NoError(t, err)

	res, err := svc.SchemaDiff(context.Background(), projectID, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.TablesAdded)
	assert.Equal(t, 1, res.Summary.SchemasModified)
	assert.True(t, res.Summary.HasChanges)
}

func TestSchemaDiffAbsentAtRefIsAllAdded(t *testing.T) {
	reader := &fakeReader{files: map[string][]byte{}} // nothing at any ref
	svc, projects, projectID := newTestService(t, reader)

	_, err := projects.SaveSchema(projectID, []models.Schema{{Name: "public"}})
	require.NoError(t, err)

	res, err := svc.SchemaDiff(context.Background(), projectID, "HEAD", "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.SchemasAdded)
	require.Len(t, res.Schemas, 1)
	assert.Equal(t, diff.StatusAdded, res.Schemas[0].Status)
}

func TestSchemaDiffBetweenTwoRefs(t *testing.T) {
	reader := &fakeReader{files: map[string][]byte{
		"v1": marshalSnapshot(t, models.Schema{Name: "public"}),
		"v2": marshalSnapshot(t, models.Schema{Name: "public"}, models.Schema{Name: "billing"}),
	}}
	svc, _, projectID := newTestService(t, reader)

	res, err := svc.SchemaDiff(context.Background(), projectID, "v1", "v2")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.SchemasAdded)
	assert.False(t, res.Summary.SchemasRemoved > 0)
}

func TestSchemaDiffUnknownProject(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeReader{})
	_, err := svc.SchemaDiff(context.Background(), "missing", "", "")
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)
}

func TestSchemaDiffReaderFailure(t *testing.T) {
	reader := &fakeReader{err: errors.New("not a git repository")}
	svc, _, projectID := newTestService(t, reader)

	_, err := svc.SchemaDiff(context.Background(), projectID, "HEAD", "")
	assert.ErrorIs(t, err, apperrors.ErrDiffFailed)
}

func TestFileHistoryDefaultCount(t *testing.T) {
	history := make([]Commit, 30)
	for i := range history {
		history[i] = Commit{Hash: "h", Subject: "change"}
	}
	reader := &fakeReader{history: history}
	svc, _, projectID := newTestService(t, reader)

	commits, err := svc.FileHistory(context.Background(), projectID, 0)
	require.NoError(t, err)
	assert.Len(t, commits, DefaultHistoryCount)
}
