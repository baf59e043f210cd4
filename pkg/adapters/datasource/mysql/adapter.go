// Package mysql provides MySQL and MariaDB connectivity through the
// go-sql-driver. Both engines speak the same wire dialect; migration DDL
// is where the distinction matters, not here.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// Adapter provides MySQL/MariaDB connectivity.
type Adapter struct {
	db *sql.DB
}

// buildDSN formats a driver DSN through mysql.Config so special characters
// in credentials survive without manual escaping.
func buildDSN(desc models.ConnectionDescriptor) string {
	cfg := gomysql.NewConfig()
	cfg.User = desc.User
	cfg.Passwd = desc.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", desc.Host, desc.Port)
	cfg.DBName = desc.Database
	cfg.ParseTime = true
	if desc.SSL {
		cfg.TLSConfig = "preferred"
	}
	return cfg.FormatDSN()
}

// NewAdapter opens a pooled connection against the descriptor.
func NewAdapter(ctx context.Context, desc models.ConnectionDescriptor) (*Adapter, error) {
	db, err := sql.Open("mysql", buildDSN(desc))
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Adapter{db: db}, nil
}

// TestConnection verifies the database is reachable with valid credentials.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	var result int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// StreamQuery runs the query and delivers rows in batches of at most
// batchSize. Cancellation is observed between batches, never mid-batch.
func (a *Adapter) StreamQuery(ctx context.Context, sqlText string, batchSize int, sink datasource.BatchSink) error {
	rows, err := a.db.QueryContext(ctx, sqlText)
	if err != nil {
		return fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return fmt.Errorf("read column types: %w", err)
	}
	columns := make([]datasource.ColumnInfo, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = datasource.ColumnInfo{
			Name: ct.Name(),
			Type: ct.DatabaseTypeName(),
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
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		// The driver hands text columns back as []byte; surface strings
		// so the JSON layer does not base64-encode them.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		batch = append(batch, values)

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
	if _, err := a.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("execute statement: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

var _ datasource.Adapter = (*Adapter)(nil)
