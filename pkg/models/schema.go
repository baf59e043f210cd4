package models

import "time"

// Column is one column of a cached table snapshot.
type Column struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Nullable     bool    `json:"nullable"`
	IsPrimaryKey bool    `json:"isPrimaryKey"`
	IsForeignKey bool    `json:"isForeignKey"`
	DefaultValue *string `json:"defaultValue"`
	IsUnique     bool    `json:"isUnique"`
}

// Table is a table or view within a schema snapshot.
type Table struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"` // "table" or "view"
	Columns []Column `json:"columns"`
}

// Schema is one named schema within a snapshot.
type Schema struct {
	Name   string  `json:"name"`
	Tables []Table `json:"tables"`
}

// SchemaFile is the persisted snapshot document (schema/schema.json).
// CachedAt only advances when the serialized schema content actually changes,
// so repeated refreshes of an unchanged database do not churn version control.
type SchemaFile struct {
	Version    int       `json:"version"`
	ProjectID  string    `json:"projectId"`
	DatabaseID string    `json:"databaseId"`
	Schemas    []Schema  `json:"schemas"`
	CachedAt   time.Time `json:"cachedAt"`
}
