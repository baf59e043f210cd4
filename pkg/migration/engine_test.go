package migration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource"
	"github.com/Yashh56/relwave-app-sub001/pkg/apperrors"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
	"github.com/Yashh56/relwave-app-sub001/pkg/projectstore"
)

// fakeExecutor records executed statements.
type fakeExecutor struct {
	executed []string
	failOn   string
}

func (f *fakeExecutor) Execute(ctx context.Context, sqlText string) error {
	if f.failOn != "" && sqlText == f.failOn {
		return assert.AnError
	}
	f.executed = append(f.executed, sqlText)
	return nil
}

func (f *fakeExecutor) TestConnection(ctx context.Context) error { return nil }
func (f *fakeExecutor) StreamQuery(ctx context.Context, _ string, _ int, _ datasource.BatchSink) error {
	return nil
}
func (f *fakeExecutor) ListSchemaNames(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeExecutor) ListTables(ctx context.Context, _ string) ([]datasource.TableInfo, error) {
	return nil, nil
}
func (f *fakeExecutor) ListColumns(ctx context.Context, _, _ string) ([]models.Column, error) {
	return nil, nil
}
func (f *fakeExecutor) Stats(ctx context.Context) (*datasource.DatabaseStats, error) {
	return nil, nil
}
func (f *fakeExecutor) Close() error { return nil }

func newTestEngine(t *testing.T) (*Engine, *fakeExecutor, string) {
	t.Helper()
	projects := projectstore.New(t.TempDir(), nil, zap.NewNop())
	project, err := projects.Create(projectstore.CreateParams{DatabaseID: "db-1", Name: "P1"})
	require.NoError(t, err)

	exec := &fakeExecutor{}
	eng := NewEngine(projects, func(context.Context, string) (datasource.Adapter, error) {
		return exec, nil
	}, zap.NewNop())

	// Each generate call gets a fresh version stamp.
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	eng.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}
	return eng, exec, project.ID
}

func TestGenerateCreatePostgres(t *testing.T) {
	eng, _, projectID := newTestEngine(t)

	def := "now()"
	artifact, err := eng.GenerateCreate(projectID, "public", "users", []ColumnDef{
		{Name: "id", Type: "serial", PrimaryKey: true},
		{Name: "email", Type: "text", Unique: true},
		{Name: "created_at", Type: "timestamptz", Default: &def},
	}, models.EnginePostgres)
	require.NoError(t, err)

	assert.Contains(t, artifact.UpSQL, `CREATE TABLE "public"."users"`)
	assert.Contains(t, artifact.UpSQL, `"id" serial PRIMARY KEY`)
	assert.Contains(t, artifact.UpSQL, `"email" text NOT NULL UNIQUE`)
	assert.Contains(t, artifact.UpSQL, `DEFAULT now()`)
	assert.Equal(t, `DROP TABLE IF EXISTS "public"."users";`, artifact.DownSQL)
	assert.Equal(t, artifact.Version+"_create_users.json", artifact.Filename)
}

func TestGenerateCreateMySQLQuoting(t *testing.T) {
	eng, _, projectID := newTestEngine(t)

	artifact, err := eng.GenerateCreate(projectID, "", "users", []ColumnDef{
		{Name: "id", Type: "int", PrimaryKey: true},
	}, models.EngineMySQL)
	require.NoError(t, err)

	assert.Contains(t, artifact.UpSQL, "CREATE TABLE `users`")
	assert.Contains(t, artifact.UpSQL, "`id` int PRIMARY KEY")
}

func TestGenerateAlterMariaDBDropIfExists(t *testing.T) {
	eng, _, projectID := newTestEngine(t)

	artifact, err := eng.GenerateAlter(projectID, "", "users",
		[]ColumnDef{{Name: "age", Type: "int", Nullable: true}},
		[]string{"legacy"}, models.EngineMariaDB)
	require.NoError(t, err)

	assert.Contains(t, artifact.UpSQL, "ADD COLUMN `age` int")
	assert.Contains(t, artifact.UpSQL, "DROP COLUMN IF EXISTS `legacy`")
	// MySQL has no IF EXISTS for DROP COLUMN.
	artifact2, err := eng.GenerateAlter(projectID, "", "users",
		nil, []string{"legacy"}, models.EngineMySQL)
	require.NoError(t, err)
	assert.Contains(t, artifact2.UpSQL, "DROP COLUMN `legacy`")
	assert.NotContains(t, artifact2.UpSQL, "IF EXISTS")
}

func TestGenerateAlterNeedsColumns(t *testing.T) {
	eng, _, projectID := newTestEngine(t)
	_, err := eng.GenerateAlter(projectID, "", "users", nil, nil, models.EnginePostgres)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestApplyRollbackDeleteLifecycle(t *testing.T) {
	eng, exec, projectID := newTestEngine(t)
	ctx := context.Background()

	artifact, err := eng.GenerateCreate(projectID, "public", "users", []ColumnDef{
		{Name: "id", Type: "serial", PrimaryKey: true},
	}, models.EnginePostgres)
	require.NoError(t, err)

	// Applied migrations cannot be deleted or re-applied.
	require.NoError(t, eng.Apply(ctx, projectID, artifact.Version, "db-1"))
	require.Len(t, exec.executed, 1)
	assert.Contains(t, exec.executed[0], "CREATE TABLE")

	assert.ErrorIs(t, eng.Apply(ctx, projectID, artifact.Version, "db-1"), apperrors.ErrMigrationApplied)
	assert.ErrorIs(t, eng.Delete(projectID, artifact.Version), apperrors.ErrMigrationApplied)

	applied, err := eng.IsApplied(projectID, artifact.Version)
	require.NoError(t, err)
	assert.True(t, applied)

	require.NoError(t, eng.Rollback(ctx, projectID, artifact.Version, "db-1"))
	assert.Contains(t, exec.executed[len(exec.executed)-1], "DROP TABLE")

	applied, err = eng.IsApplied(projectID, artifact.Version)
	require.NoError(t, err)
	assert.False(t, applied)

	// Rolling back again: not applied anymore.
	assert.ErrorIs(t, eng.Rollback(ctx, projectID, artifact.Version, "db-1"), apperrors.ErrBadRequest)

	require.NoError(t, eng.Delete(projectID, artifact.Version))
	_, err = eng.Get(projectID, artifact.Version)
	assert.ErrorIs(t, err, apperrors.ErrMigrationNotFound)
}

func TestGetUnknownVersion(t *testing.T) {
	eng, _, projectID := newTestEngine(t)
	_, err := eng.Get(projectID, "19700101000000")
	assert.ErrorIs(t, err, apperrors.ErrMigrationNotFound)
}

func TestListSortedByVersion(t *testing.T) {
	eng, _, projectID := newTestEngine(t)

	first, err := eng.GenerateCreate(projectID, "", "a", []ColumnDef{{Name: "id", Type: "int"}}, models.EnginePostgres)
	require.NoError(t, err)
	second, err := eng.GenerateCreate(projectID, "", "b", []ColumnDef{{Name: "id", Type: "int"}}, models.EnginePostgres)
	require.NoError(t, err)

	list, err := eng.List(projectID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.Version, list[0].Version)
	assert.Equal(t, second.Version, list[1].Version)
}

func TestSplitStatements(t *testing.T) {
	script := `
CREATE TABLE t (name text DEFAULT 'a;b');
-- a comment; with a semicolon
ALTER TABLE t ADD COLUMN n int;

`
	stmts := splitStatements(script)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "'a;b'")
	assert.Contains(t, stmts[1], "ADD COLUMN")
}

func TestSplitStatementsCommentOnly(t *testing.T) {
	assert.Empty(t, splitStatements("-- nothing to do\n"))
}
