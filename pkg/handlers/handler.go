// Package handlers maps RPC methods onto the underlying services and
// translates their results into wire-shaped payloads.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/apperrors"
	"github.com/Yashh56/relwave-app-sub001/pkg/credstore"
	"github.com/Yashh56/relwave-app-sub001/pkg/migration"
	"github.com/Yashh56/relwave-app-sub001/pkg/projectstore"
	"github.com/Yashh56/relwave-app-sub001/pkg/query"
	"github.com/Yashh56/relwave-app-sub001/pkg/vcs"
)

// NotifySender pushes a server-initiated notification to the client. The
// RPC server implements it.
type NotifySender interface {
	Notify(method string, params any)
}

// Handler owns the full method surface.
type Handler struct {
	databases  *credstore.Store
	queries    *query.Manager
	projects   *projectstore.Store
	migrations *migration.Engine
	diffs      *vcs.DiffService
	logger     *zap.Logger
}

func New(
	databases *credstore.Store,
	queries *query.Manager,
	projects *projectstore.Store,
	migrations *migration.Engine,
	diffs *vcs.DiffService,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		databases:  databases,
		queries:    queries,
		projects:   projects,
		migrations: migrations,
		diffs:      diffs,
		logger:     logger,
	}
}

// Dispatch routes one request to its method handler.
func (h *Handler) Dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "db.list":
		return h.databases.List(), nil
	case "db.get":
		return h.dbGet(params)
	case "db.add":
		return h.dbAdd(params)
	case "db.update":
		return h.dbUpdate(params)
	case "db.delete":
		return h.dbDelete(params)
	case "db.getStats":
		return h.dbGetStats(ctx, params)
	case "db.getTotalStats":
		return h.dbGetTotalStats(ctx)
	case "db.testConnection":
		return h.dbTestConnection(ctx, params)
	case "db.listTables":
		return h.dbListTables(ctx, params)
	case "db.getSchema":
		return h.dbGetSchema(ctx, params)

	case "query.run":
		return h.queryRun(ctx, params)
	case "query.cancel":
		return h.queryCancel(params)

	case "project.create":
		return h.projectCreate(params)
	case "project.get":
		return h.projectGet(params)
	case "project.getByDatabase":
		return h.projectGetByDatabase(params)
	case "project.list":
		return h.projects.List()
	case "project.update":
		return h.projectUpdate(params)
	case "project.delete":
		return h.projectDelete(params)
	case "project.saveDiagram":
		return h.projectSaveDiagram(params)
	case "project.getDiagram":
		return h.projectGetDiagram(params)
	case "project.addQuery":
		return h.projectAddQuery(params)
	case "project.updateQuery":
		return h.projectUpdateQuery(params)
	case "project.deleteQuery":
		return h.projectDeleteQuery(params)
	case "project.export":
		return h.projectExport(params)
	case "project.ensureGitignore":
		return h.projectEnsureGitignore(params)

	case "migration.generateCreate":
		return h.migrationGenerateCreate(params)
	case "migration.generateAlter":
		return h.migrationGenerateAlter(params)
	case "migration.generateDrop":
		return h.migrationGenerateDrop(params)
	case "migration.apply":
		return h.migrationApply(ctx, params)
	case "migration.rollback":
		return h.migrationRollback(ctx, params)
	case "migration.delete":
		return h.migrationDelete(params)
	case "migration.getSQL":
		return h.migrationGetSQL(params)
	case "migration.list":
		return h.migrationList(params)

	case "schema.diff":
		return h.schemaDiff(ctx, params)
	case "schema.fileHistory":
		return h.schemaFileHistory(ctx, params)
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownMethod, method)
}

// decode unmarshals params into dst. A missing params block decodes the
// zero value; required-field checks stay with each method.
func decode(params json.RawMessage, dst any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err)
	}
	return nil
}

func requireField(value, name string) error {
	if value == "" {
		return fmt.Errorf("%w: missing %s", apperrors.ErrBadRequest, name)
	}
	return nil
}
