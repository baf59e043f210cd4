// Package datasource defines the engine-neutral adapter contracts and the
// registry that maps wire dialects to implementations.
package datasource

import (
	"context"

	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// ColumnInfo describes one result column of a streamed query.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// BatchSink receives one batch of rows. Returning an error stops the
// stream; the adapter must not call the sink again afterwards.
type BatchSink func(rows [][]any, columns []ColumnInfo) error

// DatabaseStats holds engine-reported size figures. Sizes are in MB as
// reported by the engine; callers normalize to bytes.
type DatabaseStats struct {
	TotalTables   int64   `json:"total_tables"`
	TotalRows     int64   `json:"total_rows"`
	TotalDBSizeMB float64 `json:"total_db_size_mb"`
}

// TableInfo is one table or view as reported by introspection.
type TableInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // "table" or "view"
}

// ConnectionTester verifies the target is reachable with the supplied
// credentials.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

// StreamingQuerier runs a query and delivers rows to the sink in batches
// of at most batchSize. The stream observes ctx cancellation between
// batches, never mid-batch.
type StreamingQuerier interface {
	StreamQuery(ctx context.Context, sqlText string, batchSize int, sink BatchSink) error
}

// SchemaIntrospector walks schema -> tables -> columns metadata.
type SchemaIntrospector interface {
	ListSchemaNames(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, schema string) ([]TableInfo, error)
	ListColumns(ctx context.Context, schema, table string) ([]models.Column, error)
}

// StatsReader reports engine-level size statistics.
type StatsReader interface {
	Stats(ctx context.Context) (*DatabaseStats, error)
}

// Executor runs DDL/DML statements without result streaming. Used by the
// migration engine to apply and roll back generated SQL.
type Executor interface {
	Execute(ctx context.Context, sqlText string) error
}

// Adapter is the full per-engine surface. Each implementation owns its
// connection and must be closed when done.
type Adapter interface {
	ConnectionTester
	StreamingQuerier
	SchemaIntrospector
	StatsReader
	Executor
	Close() error
}

// ConnectFunc opens an adapter against the resolved connection target.
type ConnectFunc func(ctx context.Context, desc models.ConnectionDescriptor) (Adapter, error)
