package models

import "time"

// Project is the tracked metadata document (relwave.json) for one project.
type Project struct {
	Version       int       `json:"version"`
	ID            string    `json:"id"`
	DatabaseID    string    `json:"databaseId"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Engine        Engine    `json:"engine,omitempty"`
	DefaultSchema string    `json:"defaultSchema,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProjectSummary is one entry of the projects index, kept flat so listing
// never requires opening individual project directories.
type ProjectSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	DatabaseID string    `json:"databaseId"`
	Engine     Engine    `json:"engine,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ProjectIndex is the on-disk shape of index.json at the projects root.
type ProjectIndex struct {
	Version  int              `json:"version"`
	Projects []ProjectSummary `json:"projects"`
}

// LocalConfig is the untracked per-project overrides file (relwave.local.json).
// It must be kept out of version control; EnsureGitignore takes care of that.
type LocalConfig struct {
	Version       int    `json:"version"`
	ConnectionURL string `json:"connectionUrl,omitempty"`
	Notes         string `json:"notes,omitempty"`
}
