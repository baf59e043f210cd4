// Package postgres provides PostgreSQL connectivity via pgx.
package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// Adapter provides PostgreSQL connectivity.
type Adapter struct {
	pool *pgxpool.Pool
}

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// All user-provided fields must be URL-escaped to handle special characters
// in passwords (e.g. @, /, #, ?) that would otherwise break URL parsing.
func buildConnectionString(desc models.ConnectionDescriptor) string {
	sslMode := desc.SSLMode
	if sslMode == "" {
		if desc.SSL {
			sslMode = "require"
		} else {
			sslMode = "prefer"
		}
	}

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(desc.User),
		url.QueryEscape(desc.Password),
		desc.Host,
		desc.Port,
		url.QueryEscape(desc.Database),
		sslMode,
	)
}

// NewAdapter opens a connection pool against the descriptor.
func NewAdapter(ctx context.Context, desc models.ConnectionDescriptor) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, buildConnectionString(desc))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Adapter{pool: pool}, nil
}

// TestConnection verifies the database is reachable with valid credentials.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	var result int
	if err := a.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// StreamQuery runs the query and delivers rows in batches of at most
// batchSize. Cancellation is observed between batches: an in-flight batch
// is still delivered, then the stream stops.
func (a *Adapter) StreamQuery(ctx context.Context, sqlText string, batchSize int, sink datasource.BatchSink) error {
	rows, err := a.pool.Query(ctx, sqlText)
	if err != nil {
		return fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]datasource.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = datasource.ColumnInfo{
			Name: string(fd.Name),
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	batch := make([][]any, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := sink(batch, columns); err != nil {
			return err
		}
		batch = make([][]any, 0, batchSize)
		return nil
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("read row values: %w", err)
		}
		row := make([]any, len(values))
		copy(row, values)
		batch = append(batch, row)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	return flush()
}

// Execute runs a DDL/DML statement.
func (a *Adapter) Execute(ctx context.Context, sqlText string) error {
	if _, err := a.pool.Exec(ctx, sqlText); err != nil {
		return fmt.Errorf("execute statement: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// pgTypeNameFromOID maps common PostgreSQL type OIDs to readable names.
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "BOOL"
	case 17:
		return "BYTEA"
	case 20:
		return "INT8"
	case 21:
		return "INT2"
	case 23:
		return "INT4"
	case 25:
		return "TEXT"
	case 114:
		return "JSON"
	case 700:
		return "FLOAT4"
	case 701:
		return "FLOAT8"
	case 1042:
		return "BPCHAR"
	case 1043:
		return "VARCHAR"
	case 1082:
		return "DATE"
	case 1083:
		return "TIME"
	case 1114:
		return "TIMESTAMP"
	case 1184:
		return "TIMESTAMPTZ"
	case 1186:
		return "INTERVAL"
	case 1700:
		return "NUMERIC"
	case 2950:
		return "UUID"
	case 3802:
		return "JSONB"
	default:
		return "UNKNOWN"
	}
}

// Ensure Adapter implements the full surface at compile time.
var _ datasource.Adapter = (*Adapter)(nil)
