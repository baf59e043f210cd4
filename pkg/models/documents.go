package models

import "time"

// DiagramNode is one table placed on the ER-diagram canvas.
type DiagramNode struct {
	ID         string  `json:"id"`
	SchemaName string  `json:"schemaName"`
	TableName  string  `json:"tableName"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// ERDiagramFile is the persisted diagram layout (diagrams/er.json).
type ERDiagramFile struct {
	Version   int           `json:"version"`
	ProjectID string        `json:"projectId"`
	Nodes     []DiagramNode `json:"nodes"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// SavedQuery is a named SQL snippet. Identity is the UUID.
type SavedQuery struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SQL       string    `json:"sql"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// QueriesFile is the persisted saved-query collection (queries/queries.json).
type QueriesFile struct {
	Version   int          `json:"version"`
	ProjectID string       `json:"projectId"`
	Queries   []SavedQuery `json:"queries"`
}

// ProjectBundle aggregates every document of a project for export.
type ProjectBundle struct {
	Metadata *Project       `json:"metadata"`
	Schema   *SchemaFile    `json:"schema,omitempty"`
	Diagram  *ERDiagramFile `json:"diagram,omitempty"`
	Queries  *QueriesFile   `json:"queries,omitempty"`
}
