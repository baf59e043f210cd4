// Package projectstore persists project directories under the projects
// root: tracked metadata, schema snapshots, ER-diagram layout and saved
// queries, plus a flat index for fast listing. Every write is atomic
// (temp file + rename), so readers never observe a half-written document.
package projectstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/apperrors"
	"github.com/Yashh56/relwave-app-sub001/pkg/credstore"
	"github.com/Yashh56/relwave-app-sub001/pkg/fsutil"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

const (
	currentVersion = 1

	metadataFile    = "relwave.json"
	localConfigFile = "relwave.local.json"
	schemaFile      = "schema/schema.json"
	diagramFile     = "diagrams/er.json"
	queriesFile     = "queries/queries.json"
	indexFile       = "index.json"
)

// gitignorePatterns are merged into each project's .gitignore so local
// overrides never end up in version control.
var gitignorePatterns = []string{localConfigFile, "*.log"}

// Store owns the projects root directory.
type Store struct {
	root   string
	creds  *credstore.Store
	logger *zap.Logger

	// mu serializes writers; each document is rewritten whole, so a
	// single lock keeps the index and the per-project files consistent.
	mu sync.Mutex
}

// New builds a Store rooted at dir. The credential store is consulted
// only to resolve the engine of a linked database at creation time.
func New(dir string, creds *credstore.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: dir, creds: creds, logger: logger}
}

// Dir returns the directory of one project. It is the repo root handed to
// the version-control reader.
func (s *Store) Dir(projectID string) string {
	return filepath.Join(s.root, projectID)
}

func (s *Store) path(projectID, rel string) string {
	return filepath.Join(s.root, projectID, filepath.FromSlash(rel))
}

// CreateParams are the caller-supplied fields of a new project.
type CreateParams struct {
	DatabaseID    string
	Name          string
	Description   string
	DefaultSchema string
}

// Create writes a new project directory with its four documents and adds
// an index entry. The engine is resolved from the linked database when it
// exists; an unknown databaseId leaves the engine unset rather than
// failing creation.
func (s *Store) Create(params CreateParams) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	project := &models.Project{
		Version:       currentVersion,
		ID:            uuid.NewString(),
		DatabaseID:    params.DatabaseID,
		Name:          params.Name,
		Description:   params.Description,
		DefaultSchema: params.DefaultSchema,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.creds != nil {
		if meta := s.creds.Get(params.DatabaseID); meta != nil {
			project.Engine = meta.Engine
		}
	}

	if err := fsutil.WriteJSONAtomic(s.path(project.ID, metadataFile), project, 0o644); err != nil {
		return nil, err
	}
	schema := &models.SchemaFile{Version: currentVersion, ProjectID: project.ID, DatabaseID: project.DatabaseID, Schemas: []models.Schema{}, CachedAt: now}
	if err := fsutil.WriteJSONAtomic(s.path(project.ID, schemaFile), schema, 0o644); err != nil {
		return nil, err
	}
	diagram := &models.ERDiagramFile{Version: currentVersion, ProjectID: project.ID, Nodes: []models.DiagramNode{}, UpdatedAt: now}
	if err := fsutil.WriteJSONAtomic(s.path(project.ID, diagramFile), diagram, 0o644); err != nil {
		return nil, err
	}
	queries := &models.QueriesFile{Version: currentVersion, ProjectID: project.ID, Queries: []models.SavedQuery{}}
	if err := fsutil.WriteJSONAtomic(s.path(project.ID, queriesFile), queries, 0o644); err != nil {
		return nil, err
	}
	local := &models.LocalConfig{Version: currentVersion}
	if err := fsutil.WriteJSONAtomic(s.path(project.ID, localConfigFile), local, 0o644); err != nil {
		return nil, err
	}

	if err := s.updateIndex(func(idx *models.ProjectIndex) {
		idx.Projects = append(idx.Projects, summaryOf(project))
	}); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		zap.String("projectId", project.ID),
		zap.String("databaseId", project.DatabaseID))
	return project, nil
}

// Get reads one project's metadata. Returns nil when the id is unknown.
func (s *Store) Get(projectID string) (*models.Project, error) {
	var project models.Project
	found, err := fsutil.ReadJSON(s.path(projectID, metadataFile), &project)
	if err != nil || !found {
		return nil, err
	}
	return &project, nil
}

// GetByDatabaseID returns the first project linked to the database, in
// index order. Multiple projects may link the same database; first match
// wins.
func (s *Store) GetByDatabaseID(databaseID string) (*models.Project, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	for _, summary := range idx.Projects {
		if summary.DatabaseID == databaseID {
			return s.Get(summary.ID)
		}
	}
	return nil, nil
}

// List returns the index entries without opening project directories.
func (s *Store) List() ([]models.ProjectSummary, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	return idx.Projects, nil
}

// Update patches a project's metadata. Only name, description and
// defaultSchema may change through this path; every other key in the
// payload is ignored, including attempts to rewrite id or databaseId.
func (s *Store) Update(projectID string, patch map[string]any) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.Get(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}

	if v, ok := patch["name"].(string); ok {
		project.Name = v
	}
	if v, ok := patch["description"].(string); ok {
		project.Description = v
	}
	if v, ok := patch["defaultSchema"].(string); ok {
		project.DefaultSchema = v
	}
	project.UpdatedAt = time.Now().UTC()

	if err := fsutil.WriteJSONAtomic(s.path(projectID, metadataFile), project, 0o644); err != nil {
		return nil, err
	}
	if err := s.updateIndex(func(idx *models.ProjectIndex) {
		for i := range idx.Projects {
			if idx.Projects[i].ID == projectID {
				idx.Projects[i] = summaryOf(project)
			}
		}
	}); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes the whole project directory and its index entry.
func (s *Store) Delete(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.Get(projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return apperrors.ErrProjectNotFound
	}

	if err := os.RemoveAll(s.Dir(projectID)); err != nil {
		return fmt.Errorf("remove project dir: %w", err)
	}
	return s.updateIndex(func(idx *models.ProjectIndex) {
		kept := idx.Projects[:0]
		for _, p := range idx.Projects {
			if p.ID != projectID {
				kept = append(kept, p)
			}
		}
		idx.Projects = kept
	})
}

// SaveSchema persists a snapshot for the project. The write is
// content-addressed: when the serialized schema list matches what is on
// disk, nothing is written and the prior document (with its original
// cachedAt) is returned, so unchanged refreshes never churn version
// control.
func (s *Store) SaveSchema(projectID string, schemas []models.Schema) (*models.SchemaFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.Get(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}

	var existing models.SchemaFile
	hasExisting, err := fsutil.ReadJSON(s.path(projectID, schemaFile), &existing)
	if err != nil {
		return nil, err
	}
	if hasExisting && sameContent(existing.Schemas, schemas) {
		return &existing, nil
	}

	doc := &models.SchemaFile{
		Version:    currentVersion,
		ProjectID:  projectID,
		DatabaseID: project.DatabaseID,
		Schemas:    schemas,
		CachedAt:   time.Now().UTC(),
	}
	if err := fsutil.WriteJSONAtomic(s.path(projectID, schemaFile), doc, 0o644); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetSchema reads the cached snapshot. Returns nil when the project or
// snapshot does not exist.
func (s *Store) GetSchema(projectID string) (*models.SchemaFile, error) {
	var doc models.SchemaFile
	found, err := fsutil.ReadJSON(s.path(projectID, schemaFile), &doc)
	if err != nil || !found {
		return nil, err
	}
	return &doc, nil
}

// SchemaPath returns the snapshot path relative to the project directory,
// as consumed by the version-control reader.
func SchemaPath() string { return schemaFile }

// SaveDiagram replaces the ER-diagram layout.
func (s *Store) SaveDiagram(projectID string, nodes []models.DiagramNode) (*models.ERDiagramFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.Get(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}

	doc := &models.ERDiagramFile{
		Version:   currentVersion,
		ProjectID: projectID,
		Nodes:     nodes,
		UpdatedAt: time.Now().UTC(),
	}
	if err := fsutil.WriteJSONAtomic(s.path(projectID, diagramFile), doc, 0o644); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDiagram reads the diagram layout. Returns nil when absent.
func (s *Store) GetDiagram(projectID string) (*models.ERDiagramFile, error) {
	var doc models.ERDiagramFile
	found, err := fsutil.ReadJSON(s.path(projectID, diagramFile), &doc)
	if err != nil || !found {
		return nil, err
	}
	return &doc, nil
}

// AddQuery appends a named SQL snippet and rewrites the queries file.
func (s *Store) AddQuery(projectID, name, sqlText string) (*models.SavedQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readQueries(projectID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperrors.ErrProjectNotFound
	}

	now := time.Now().UTC()
	q := models.SavedQuery{
		ID:        uuid.NewString(),
		Name:      name,
		SQL:       sqlText,
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc.Queries = append(doc.Queries, q)
	if err := fsutil.WriteJSONAtomic(s.path(projectID, queriesFile), doc, 0o644); err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuery replaces the named fields of a saved query. Returns nil
// (not an error) when the query id is absent.
func (s *Store) UpdateQuery(projectID, queryID string, name, sqlText *string) (*models.SavedQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readQueries(projectID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperrors.ErrProjectNotFound
	}

	for i := range doc.Queries {
		if doc.Queries[i].ID != queryID {
			continue
		}
		if name != nil {
			doc.Queries[i].Name = *name
		}
		if sqlText != nil {
			doc.Queries[i].SQL = *sqlText
		}
		doc.Queries[i].UpdatedAt = time.Now().UTC()
		if err := fsutil.WriteJSONAtomic(s.path(projectID, queriesFile), doc, 0o644); err != nil {
			return nil, err
		}
		q := doc.Queries[i]
		return &q, nil
	}
	return nil, nil
}

// DeleteQuery removes a saved query; deleting an absent id is a no-op.
func (s *Store) DeleteQuery(projectID, queryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readQueries(projectID)
	if err != nil {
		return err
	}
	if doc == nil {
		return apperrors.ErrProjectNotFound
	}

	kept := doc.Queries[:0]
	removed := false
	for _, q := range doc.Queries {
		if q.ID == queryID {
			removed = true
			continue
		}
		kept = append(kept, q)
	}
	if !removed {
		return nil
	}
	doc.Queries = kept
	return fsutil.WriteJSONAtomic(s.path(projectID, queriesFile), doc, 0o644)
}

// ListQueries returns all saved queries of the project.
func (s *Store) ListQueries(projectID string) ([]models.SavedQuery, error) {
	doc, err := s.readQueries(projectID)
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.Queries, nil
}

// Export bundles every document of a project. Returns nil when the
// project does not exist; never a partial bundle.
func (s *Store) Export(projectID string) (*models.ProjectBundle, error) {
	project, err := s.Get(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, nil
	}

	bundle := &models.ProjectBundle{Metadata: project}
	if bundle.Schema, err = s.GetSchema(projectID); err != nil {
		return nil, err
	}
	if bundle.Diagram, err = s.GetDiagram(projectID); err != nil {
		return nil, err
	}
	var queries models.QueriesFile
	found, err := fsutil.ReadJSON(s.path(projectID, queriesFile), &queries)
	if err != nil {
		return nil, err
	}
	if found {
		bundle.Queries = &queries
	}
	return bundle, nil
}

// EnsureGitignore merges the known ignore patterns into the project's
// .gitignore. Idempotent; reports whether the file was modified.
func (s *Store) EnsureGitignore(projectID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.Get(projectID)
	if err != nil {
		return false, err
	}
	if project == nil {
		return false, apperrors.ErrProjectNotFound
	}

	path := filepath.Join(s.Dir(projectID), ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("read .gitignore: %w", err)
	}

	present := make(map[string]struct{})
	for _, line := range strings.Split(string(existing), "\n") {
		present[strings.TrimSpace(line)] = struct{}{}
	}

	var missing []string
	for _, pattern := range gitignorePatterns {
		if _, ok := present[pattern]; !ok {
			missing = append(missing, pattern)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(missing, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write .gitignore: %w", err)
	}
	return true, nil
}

func (s *Store) readQueries(projectID string) (*models.QueriesFile, error) {
	var doc models.QueriesFile
	found, err := fsutil.ReadJSON(s.path(projectID, queriesFile), &doc)
	if err != nil || !found {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) readIndex() (*models.ProjectIndex, error) {
	idx := &models.ProjectIndex{Version: currentVersion, Projects: []models.ProjectSummary{}}
	if _, err := fsutil.ReadJSON(filepath.Join(s.root, indexFile), idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *Store) updateIndex(mutate func(*models.ProjectIndex)) error {
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	mutate(idx)
	idx.Version = currentVersion
	return fsutil.WriteJSONAtomic(filepath.Join(s.root, indexFile), idx, 0o644)
}

func summaryOf(p *models.Project) models.ProjectSummary {
	return models.ProjectSummary{
		ID:         p.ID,
		Name:       p.Name,
		DatabaseID: p.DatabaseID,
		Engine:     p.Engine,
		UpdatedAt:  p.UpdatedAt,
	}
}

// sameContent compares the serialized schema lists. Timestamps live
// outside the compared payload, so equal content always compares equal.
func sameContent(a, b []models.Schema) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}
