package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource"
	"github.com/Yashh56/relwave-app-sub001/pkg/apperrors"
	"github.com/Yashh56/relwave-app-sub001/pkg/fsutil"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
	"github.com/Yashh56/relwave-app-sub001/pkg/projectstore"
)

const (
	migrationsDir = "migrations"
	appliedFile   = "applied.json"
)

// appliedState tracks which migration versions have been applied, in
// application order.
type appliedState struct {
	Version int      `json:"version"`
	Applied []string `json:"applied"`
}

// ExecutorOpener dials a database for statement execution. The caller of
// the returned adapter must close it.
type ExecutorOpener func(ctx context.Context, databaseID string) (datasource.Adapter, error)

// Engine generates and runs migrations for project-linked databases.
type Engine struct {
	projects *projectstore.Store
	open     ExecutorOpener
	logger   *zap.Logger

	// mu serializes artifact and applied-state writes per process.
	mu sync.Mutex

	// now is swapped in tests to pin version stamps.
	now func() time.Time
}

// NewEngine wires the migration engine to the project store and an
// executor opener (normally the query manager).
func NewEngine(projects *projectstore.Store, open ExecutorOpener, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{projects: projects, open: open, logger: logger, now: time.Now}
}

func (e *Engine) dir(projectID string) string {
	return filepath.Join(e.projects.Dir(projectID), migrationsDir)
}

func (e *Engine) appliedPath(projectID string) string {
	return filepath.Join(e.dir(projectID), appliedFile)
}

// GenerateCreate writes a create-table migration artifact.
func (e *Engine) GenerateCreate(projectID, schema, table string, cols []ColumnDef, engine models.Engine) (*Artifact, error) {
	up := createTableSQL(engine, schema, table, cols)
	down := dropTableSQL(engine, schema, table)
	return e.write(projectID, "create_"+table, up, down)
}

// GenerateAlter writes an alter-table migration artifact adding and
// dropping columns.
func (e *Engine) GenerateAlter(projectID, schema, table string, add []ColumnDef, drop []string, engine models.Engine) (*Artifact, error) {
	up, down := alterTableSQL(engine, schema, table, add, drop)
	if up == "" {
		return nil, fmt.Errorf("%w: alter migration needs columns to add or drop", apperrors.ErrBadRequest)
	}
	return e.write(projectID, "alter_"+table, up, down)
}

// GenerateDrop writes a drop-table migration artifact. The column
// definitions are used to build the recreate statement for the down path.
func (e *Engine) GenerateDrop(projectID, schema, table string, cols []ColumnDef, engine models.Engine) (*Artifact, error) {
	up := dropTableSQL(engine, schema, table)
	down := createTableSQL(engine, schema, table, cols)
	return e.write(projectID, "drop_"+table, up, down)
}

func (e *Engine) write(projectID, name, upSQL, downSQL string) (*Artifact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	project, err := e.projects.Get(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}

	version := e.now().UTC().Format("20060102150405")
	slug := slugify(name)
	artifact := &Artifact{
		Version:  version,
		Filename: version + "_" + slug + ".json",
		Name:     slug,
		UpSQL:    upSQL,
		DownSQL:  downSQL,
	}
	path := filepath.Join(e.dir(projectID), artifact.Filename)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("migration %s already exists", artifact.Filename)
	}
	if err := fsutil.WriteJSONAtomic(path, artifact, 0o644); err != nil {
		return nil, err
	}

	e.logger.Info("migration generated",
		zap.String("projectId", projectID),
		zap.String("version", version),
		zap.String("name", slug))
	return artifact, nil
}

// Get loads one artifact by version.
func (e *Engine) Get(projectID, version string) (*Artifact, error) {
	entries, err := os.ReadDir(e.dir(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrMigrationNotFound
		}
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), version+"_") {
			continue
		}
		var artifact Artifact
		found, err := fsutil.ReadJSON(filepath.Join(e.dir(projectID), entry.Name()), &artifact)
		if err != nil {
			return nil, err
		}
		if found {
			return &artifact, nil
		}
	}
	return nil, apperrors.ErrMigrationNotFound
}

// List returns all artifacts of a project, oldest first.
func (e *Engine) List(projectID string) ([]Artifact, error) {
	entries, err := os.ReadDir(e.dir(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var artifacts []Artifact
	for _, entry := range entries {
		if entry.Name() == appliedFile || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var artifact Artifact
		found, err := fsutil.ReadJSON(filepath.Join(e.dir(projectID), entry.Name()), &artifact)
		if err != nil {
			return nil, err
		}
		if found {
			artifacts = append(artifacts, artifact)
		}
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Version < artifacts[j].Version })
	return artifacts, nil
}

// IsApplied reports whether the version is recorded as applied.
func (e *Engine) IsApplied(projectID, version string) (bool, error) {
	state, err := e.readApplied(projectID)
	if err != nil {
		return false, err
	}
	for _, v := range state.Applied {
		if v == version {
			return true, nil
		}
	}
	return false, nil
}

// Apply runs the up SQL of one migration against the database and records
// it as applied. Re-applying an already applied version is an error.
func (e *Engine) Apply(ctx context.Context, projectID, version, databaseID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	artifact, err := e.Get(projectID, version)
	if err != nil {
		return err
	}
	applied, err := e.isAppliedLocked(projectID, version)
	if err != nil {
		return err
	}
	if applied {
		return apperrors.ErrMigrationApplied
	}

	if err := e.execute(ctx, databaseID, artifact.UpSQL); err != nil {
		return fmt.Errorf("apply %s: %w", version, err)
	}

	state, err := e.readApplied(projectID)
	if err != nil {
		return err
	}
	state.Applied = append(state.Applied, version)
	if err := fsutil.WriteJSONAtomic(e.appliedPath(projectID), state, 0o644); err != nil {
		return err
	}

	e.logger.Info("migration applied",
		zap.String("projectId", projectID), zap.String("version", version))
	return nil
}

// Rollback runs the down SQL of an applied migration and clears its
// applied record. Rolling back a version that was never applied is a
// bad request.
func (e *Engine) Rollback(ctx context.Context, projectID, version, databaseID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	artifact, err := e.Get(projectID, version)
	if err != nil {
		return err
	}
	applied, err := e.isAppliedLocked(projectID, version)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("%w: migration %s is not applied", apperrors.ErrBadRequest, version)
	}

	if err := e.execute(ctx, databaseID, artifact.DownSQL); err != nil {
		return fmt.Errorf("rollback %s: %w", version, err)
	}

	state, err := e.readApplied(projectID)
	if err != nil {
		return err
	}
	kept := state.Applied[:0]
	for _, v := range state.Applied {
		if v != version {
			kept = append(kept, v)
		}
	}
	state.Applied = kept
	if err := fsutil.WriteJSONAtomic(e.appliedPath(projectID), state, 0o644); err != nil {
		return err
	}

	e.logger.Info("migration rolled back",
		zap.String("projectId", projectID), zap.String("version", version))
	return nil
}

// Delete removes a migration artifact. Applied migrations are protected:
// roll back first, then delete.
func (e *Engine) Delete(projectID, version string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	artifact, err := e.Get(projectID, version)
	if err != nil {
		return err
	}
	applied, err := e.isAppliedLocked(projectID, version)
	if err != nil {
		return err
	}
	if applied {
		return apperrors.ErrMigrationApplied
	}
	return os.Remove(filepath.Join(e.dir(projectID), artifact.Filename))
}

// execute runs each statement of the SQL text in order over one
// connection.
func (e *Engine) execute(ctx context.Context, databaseID, sqlText string) error {
	adapter, err := e.open(ctx, databaseID)
	if err != nil {
		return err
	}
	defer adapter.Close()

	for _, stmt := range splitStatements(sqlText) {
		if err := adapter.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) isAppliedLocked(projectID, version string) (bool, error) {
	state, err := e.readApplied(projectID)
	if err != nil {
		return false, err
	}
	for _, v := range state.Applied {
		if v == version {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) readApplied(projectID string) (*appliedState, error) {
	state := &appliedState{Version: 1, Applied: []string{}}
	if _, err := fsutil.ReadJSON(e.appliedPath(projectID), state); err != nil {
		return nil, err
	}
	return state, nil
}
