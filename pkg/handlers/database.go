package handlers

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/credstore"
	"github.com/Yashh56/relwave-app-sub001/pkg/logging"
)

// bytesPerMB converts engine-reported MB figures to bytes on the wire.
const bytesPerMB = 1048576

type idParams struct {
	ID string `json:"id"`
}

// statsPayload is the normalized wire shape for size statistics.
type statsPayload struct {
	TotalTables    int64 `json:"totalTables"`
	TotalRows      int64 `json:"totalRows"`
	TotalSizeBytes int64 `json:"totalSizeBytes"`
}

func (h *Handler) dbGet(params json.RawMessage) (any, error) {
	var p idParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ID, "id"); err != nil {
		return nil, err
	}
	return h.databases.Get(p.ID), nil
}

func (h *Handler) dbAdd(params json.RawMessage) (any, error) {
	var p credstore.AddParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.Name, "name"); err != nil {
		return nil, err
	}
	if err := requireField(string(p.Engine), "engineType"); err != nil {
		return nil, err
	}
	return h.databases.Add(p)
}

func (h *Handler) dbUpdate(params json.RawMessage) (any, error) {
	var p struct {
		ID string `json:"id"`
		credstore.UpdateParams
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ID, "id"); err != nil {
		return nil, err
	}
	return h.databases.Update(p.ID, p.UpdateParams)
}

func (h *Handler) dbDelete(params json.RawMessage) (any, error) {
	var p idParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ID, "id"); err != nil {
		return nil, err
	}
	if err := h.databases.Delete(p.ID); err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": true}, nil
}

func (h *Handler) dbGetStats(ctx context.Context, params json.RawMessage) (any, error) {
	var p idParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ID, "id"); err != nil {
		return nil, err
	}
	stats, err := h.queries.Stats(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return statsPayload{
		TotalTables:    stats.TotalTables,
		TotalRows:      stats.TotalRows,
		TotalSizeBytes: int64(stats.TotalDBSizeMB * bytesPerMB),
	}, nil
}

// dbGetTotalStats aggregates stats across every registered database. One
// unreachable database is skipped and logged, not fatal to the batch.
func (h *Handler) dbGetTotalStats(ctx context.Context) (any, error) {
	var total statsPayload
	failed := 0
	for _, meta := range h.databases.List() {
		stats, err := h.queries.Stats(ctx, meta.ID)
		if err != nil {
			failed++
			h.logger.Warn("Skipping database in total stats",
				zap.String("id", meta.ID),
				zap.String("name", meta.Name),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}
		total.TotalTables += stats.TotalTables
		total.TotalRows += stats.TotalRows
		total.TotalSizeBytes += int64(stats.TotalDBSizeMB * bytesPerMB)
	}
	return struct {
		statsPayload
		FailedDatabases int `json:"failedDatabases"`
	}{total, failed}, nil
}

func (h *Handler) dbTestConnection(ctx context.Context, params json.RawMessage) (any, error) {
	var p idParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ID, "id"); err != nil {
		return nil, err
	}
	if err := h.queries.TestConnection(ctx, p.ID); err != nil {
		return map[string]any{"ok": false, "error": logging.SanitizeError(err)}, nil
	}
	return map[string]any{"ok": true}, nil
}

func (h *Handler) dbListTables(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		ID     string `json:"id"`
		Schema string `json:"schema"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ID, "id"); err != nil {
		return nil, err
	}
	if err := requireField(p.Schema, "schema"); err != nil {
		return nil, err
	}
	return h.queries.ListTables(ctx, p.ID, p.Schema)
}

// dbGetSchema introspects the database; when a projectId is supplied the
// snapshot is also persisted (deduplicated) into that project.
func (h *Handler) dbGetSchema(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		ID        string `json:"id"`
		ProjectID string `json:"projectId"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ID, "id"); err != nil {
		return nil, err
	}

	schemas, err := h.queries.IntrospectSchemas(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if p.ProjectID != "" {
		return h.projects.SaveSchema(p.ProjectID, schemas)
	}
	return map[string]any{"schemas": schemas}, nil
}
