package handlers

import (
	"context"
	"encoding/json"

	"github.com/Yashh56/relwave-app-sub001/pkg/migration"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// generateParams is the shared payload for the three generators.
type generateParams struct {
	ProjectID   string                `json:"projectId"`
	SchemaName  string                `json:"schemaName"`
	TableName   string                `json:"tableName"`
	Columns     []migration.ColumnDef `json:"columns"`
	AddColumns  []migration.ColumnDef `json:"addColumns"`
	DropColumns []string              `json:"dropColumns"`
	DBType      models.Engine         `json:"dbType"`
}

func (h *Handler) decodeGenerate(params json.RawMessage) (*generateParams, error) {
	var p generateParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	if err := requireField(p.TableName, "tableName"); err != nil {
		return nil, err
	}
	if err := requireField(string(p.DBType), "dbType"); err != nil {
		return nil, err
	}
	return &p, nil
}

func (h *Handler) migrationGenerateCreate(params json.RawMessage) (any, error) {
	p, err := h.decodeGenerate(params)
	if err != nil {
		return nil, err
	}
	return h.migrations.GenerateCreate(p.ProjectID, p.SchemaName, p.TableName, p.Columns, p.DBType)
}

func (h *Handler) migrationGenerateAlter(params json.RawMessage) (any, error) {
	p, err := h.decodeGenerate(params)
	if err != nil {
		return nil, err
	}
	return h.migrations.GenerateAlter(p.ProjectID, p.SchemaName, p.TableName, p.AddColumns, p.DropColumns, p.DBType)
}

func (h *Handler) migrationGenerateDrop(params json.RawMessage) (any, error) {
	p, err := h.decodeGenerate(params)
	if err != nil {
		return nil, err
	}
	return h.migrations.GenerateDrop(p.ProjectID, p.SchemaName, p.TableName, p.Columns, p.DBType)
}

type migrationRunParams struct {
	ProjectID  string `json:"projectId"`
	Version    string `json:"version"`
	DatabaseID string `json:"databaseId"`
}

func (h *Handler) decodeMigrationRun(params json.RawMessage, needDatabase bool) (*migrationRunParams, error) {
	var p migrationRunParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	if err := requireField(p.Version, "version"); err != nil {
		return nil, err
	}
	if needDatabase {
		if err := requireField(p.DatabaseID, "databaseId"); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (h *Handler) migrationApply(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := h.decodeMigrationRun(params, true)
	if err != nil {
		return nil, err
	}
	if err := h.migrations.Apply(ctx, p.ProjectID, p.Version, p.DatabaseID); err != nil {
		return nil, err
	}
	return map[string]bool{"applied": true}, nil
}

func (h *Handler) migrationRollback(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := h.decodeMigrationRun(params, true)
	if err != nil {
		return nil, err
	}
	if err := h.migrations.Rollback(ctx, p.ProjectID, p.Version, p.DatabaseID); err != nil {
		return nil, err
	}
	return map[string]bool{"rolledBack": true}, nil
}

func (h *Handler) migrationDelete(params json.RawMessage) (any, error) {
	p, err := h.decodeMigrationRun(params, false)
	if err != nil {
		return nil, err
	}
	if err := h.migrations.Delete(p.ProjectID, p.Version); err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": true}, nil
}

func (h *Handler) migrationGetSQL(params json.RawMessage) (any, error) {
	p, err := h.decodeMigrationRun(params, false)
	if err != nil {
		return nil, err
	}
	return h.migrations.Get(p.ProjectID, p.Version)
}

func (h *Handler) migrationList(params json.RawMessage) (any, error) {
	var p projectIDParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	return h.migrations.List(p.ProjectID)
}

func (h *Handler) schemaDiff(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		ProjectID string `json:"projectId"`
		FromRef   string `json:"fromRef"`
		ToRef     string `json:"toRef"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	return h.diffs.SchemaDiff(ctx, p.ProjectID, p.FromRef, p.ToRef)
}

func (h *Handler) schemaFileHistory(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		ProjectID string `json:"projectId"`
		Count     int    `json:"count"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	return h.diffs.FileHistory(ctx, p.ProjectID, p.Count)
}
