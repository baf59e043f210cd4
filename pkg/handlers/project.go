package handlers

import (
	"encoding/json"

	"github.com/Yashh56/relwave-app-sub001/pkg/models"
	"github.com/Yashh56/relwave-app-sub001/pkg/projectstore"
)

type projectIDParams struct {
	ProjectID string `json:"projectId"`
}

func (h *Handler) projectCreate(params json.RawMessage) (any, error) {
	var p struct {
		DatabaseID    string `json:"databaseId"`
		Name          string `json:"name"`
		Description   string `json:"description"`
		DefaultSchema string `json:"defaultSchema"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.Name, "name"); err != nil {
		return nil, err
	}
	return h.projects.Create(projectstore.CreateParams{
		DatabaseID:    p.DatabaseID,
		Name:          p.Name,
		Description:   p.Description,
		DefaultSchema: p.DefaultSchema,
	})
}

func (h *Handler) projectGet(params json.RawMessage) (any, error) {
	var p idParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ID, "id"); err != nil {
		return nil, err
	}
	return h.projects.Get(p.ID)
}

func (h *Handler) projectGetByDatabase(params json.RawMessage) (any, error) {
	var p struct {
		DatabaseID string `json:"databaseId"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.DatabaseID, "databaseId"); err != nil {
		return nil, err
	}
	return h.projects.GetByDatabaseID(p.DatabaseID)
}

func (h *Handler) projectUpdate(params json.RawMessage) (any, error) {
	var p struct {
		ID    string         `json:"id"`
		Patch map[string]any `json:"patch"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ID, "id"); err != nil {
		return nil, err
	}
	return h.projects.Update(p.ID, p.Patch)
}

func (h *Handler) projectDelete(params json.RawMessage) (any, error) {
	var p idParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ID, "id"); err != nil {
		return nil, err
	}
	if err := h.projects.Delete(p.ID); err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": true}, nil
}

func (h *Handler) projectSaveDiagram(params json.RawMessage) (any, error) {
	var p struct {
		ProjectID string               `json:"projectId"`
		Nodes     []models.DiagramNode `json:"nodes"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	return h.projects.SaveDiagram(p.ProjectID, p.Nodes)
}

func (h *Handler) projectGetDiagram(params json.RawMessage) (any, error) {
	var p projectIDParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	return h.projects.GetDiagram(p.ProjectID)
}

func (h *Handler) projectAddQuery(params json.RawMessage) (any, error) {
	var p struct {
		ProjectID string `json:"projectId"`
		Name      string `json:"name"`
		SQL       string `json:"sql"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	if err := requireField(p.Name, "name"); err != nil {
		return nil, err
	}
	return h.projects.AddQuery(p.ProjectID, p.Name, p.SQL)
}

func (h *Handler) projectUpdateQuery(params json.RawMessage) (any, error) {
	var p struct {
		ProjectID string  `json:"projectId"`
		QueryID   string  `json:"queryId"`
		Name      *string `json:"name"`
		SQL       *string `json:"sql"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	if err := requireField(p.QueryID, "queryId"); err != nil {
		return nil, err
	}
	return h.projects.UpdateQuery(p.ProjectID, p.QueryID, p.Name, p.SQL)
}

func (h *Handler) projectDeleteQuery(params json.RawMessage) (any, error) {
	var p struct {
		ProjectID string `json:"projectId"`
		QueryID   string `json:"queryId"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	if err := requireField(p.QueryID, "queryId"); err != nil {
		return nil, err
	}
	if err := h.projects.DeleteQuery(p.ProjectID, p.QueryID); err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": true}, nil
}

func (h *Handler) projectExport(params json.RawMessage) (any, error) {
	var p projectIDParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	return h.projects.Export(p.ProjectID)
}

func (h *Handler) projectEnsureGitignore(params json.RawMessage) (any, error) {
	var p projectIDParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.ProjectID, "projectId"); err != nil {
		return nil, err
	}
	modified, err := h.projects.EnsureGitignore(p.ProjectID)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"modified": modified}, nil
}
