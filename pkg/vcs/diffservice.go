package vcs

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/apperrors"
	"github.com/Yashh56/relwave-app-sub001/pkg/diff"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
	"github.com/Yashh56/relwave-app-sub001/pkg/projectstore"
)

// DefaultHistoryCount is how many commits FileHistory returns when the
// caller does not say.
const DefaultHistoryCount = 20

// DiffService compares schema snapshots across version-control refs.
type DiffService struct {
	projects *projectstore.Store
	reader   RefReader
	logger   *zap.Logger
}

func NewDiffService(projects *projectstore.Store, reader RefReader, logger *zap.Logger) *DiffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiffService{projects: projects, reader: reader, logger: logger}
}

// SchemaDiff diffs the project's snapshot between two refs. fromRef
// defaults to HEAD; an empty toRef means the working tree, read through
// the project store. A snapshot absent at a ref diffs as nil, so new and
// deleted snapshots classify cleanly as added/removed.
func (s *DiffService) SchemaDiff(ctx context.Context, projectID, fromRef, toRef string) (*diff.Result, error) {
	project, err := s.projects.Get(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	if fromRef == "" {
		fromRef = "HEAD"
	}

	before, err := s.snapshotAtRef(ctx, projectID, fromRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDiffFailed, err)
	}

	var after *models.SchemaFile
	if toRef == "" {
		after, err = s.projects.GetSchema(projectID)
		if err != nil {
			return nil, err
		}
	} else {
		after, err = s.snapshotAtRef(ctx, projectID, toRef)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrDiffFailed, err)
		}
	}

	return diff.Diff(before, after), nil
}

// FileHistory returns the snapshot file's commit history, newest first.
func (s *DiffService) FileHistory(ctx context.Context, projectID string, count int) ([]Commit, error) {
	project, err := s.projects.Get(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	if count <= 0 {
		count = DefaultHistoryCount
	}

	commits, err := s.reader.FileHistory(ctx, s.projects.Dir(projectID), projectstore.SchemaPath(), count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDiffFailed, err)
	}
	return commits, nil
}

func (s *DiffService) snapshotAtRef(ctx context.Context, projectID, ref string) (*models.SchemaFile, error) {
	data, err := s.reader.FileAtRef(ctx, s.projects.Dir(projectID), projectstore.SchemaPath(), ref)
	if err != nil {
		return nil, err
	}
	if data == nil {
		// Absent at this ref: the snapshot did not exist yet.
		return nil, nil
	}
	var file models.SchemaFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse snapshot at %s: %w", ref, err)
	}
	return &file, nil
}
