package query

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// IntrospectSchemas walks every user schema of the database and returns
// the full schema -> tables -> columns snapshot. Per-schema work is fanned
// out with a bounded concurrency limit so a database with many schemas does
// not see a connection stampede. A schema that fails to introspect is
// logged and dropped; the rest of the snapshot is still returned.
func (m *Manager) IntrospectSchemas(ctx context.Context, databaseID string) ([]models.Schema, error) {
	adapter, _, err := m.open(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	defer adapter.Close()

	names, err := adapter.ListSchemaNames(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		schemas []models.Schema
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.IntrospectConcurrency)

	for _, name := range names {
		name := name
		g.Go(func() error {
			schema, err := m.introspectOne(gctx, adapter, name)
			if err != nil {
				// Partial results beat a hard failure here; a single
				// permission-restricted schema should not hide the rest.
				m.logger.Warn("schema introspection failed, dropping schema",
					zap.String("databaseId", databaseID),
					zap.String("schema", name),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			schemas = append(schemas, *schema)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Fan-out completion order is nondeterministic; snapshots must not be.
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas, nil
}

// introspectOne reads all tables and their columns for a single schema.
// Tables within a schema are walked sequentially; the fan-out happens one
// level up, across schemas.
func (m *Manager) introspectOne(ctx context.Context, adapter datasource.Adapter, name string) (*models.Schema, error) {
	tables, err := adapter.ListTables(ctx, name)
	if err != nil {
		return nil, err
	}

	schema := &models.Schema{Name: name, Tables: make([]models.Table, 0, len(tables))}
	for _, t := range tables {
		columns, err := adapter.ListColumns(ctx, name, t.Name)
		if err != nil {
			return nil, err
		}
		schema.Tables = append(schema.Tables, models.Table{
			Name:    t.Name,
			Type:    t.Type,
			Columns: columns,
		})
	}
	return schema, nil
}
