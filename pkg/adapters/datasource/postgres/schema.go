package postgres

import (
	"context"
	"fmt"

	"github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// ListSchemaNames returns user schemas, excluding PostgreSQL internals.
func (a *Adapter) ListSchemaNames(ctx context.Context) ([]string, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListTables returns tables and views in the schema.
func (a *Adapter) ListTables(ctx context.Context, schema string) ([]datasource.TableInfo, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schema, err)
	}
	defer rows.Close()

	var tables []datasource.TableInfo
	for rows.Next() {
		var name, rawType string
		if err := rows.Scan(&name, &rawType); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		kind := "table"
		if rawType == "VIEW" {
			kind = "view"
		}
		tables = append(tables, datasource.TableInfo{Name: name, Type: kind})
	}
	return tables, rows.Err()
}

// ListColumns returns column metadata for one table, including primary key,
// unique and foreign key membership resolved from table constraints.
func (a *Adapter) ListColumns(ctx context.Context, schema, table string) ([]models.Column, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			c.column_default,
			COALESCE(pk.is_pk, false),
			COALESCE(uq.is_unique, false),
			COALESCE(fk.is_fk, false)
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = $1 AND tc.table_name = $2
		) pk ON pk.column_name = c.column_name
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_unique
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'UNIQUE'
				AND tc.table_schema = $1 AND tc.table_name = $2
			GROUP BY kcu.column_name
		) uq ON uq.column_name = c.column_name
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_fk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'FOREIGN KEY'
				AND tc.table_schema = $1 AND tc.table_name = $2
			GROUP BY kcu.column_name
		) fk ON fk.column_name = c.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("list columns for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var col models.Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.DefaultValue,
			&col.IsPrimaryKey, &col.IsUnique, &col.IsForeignKey); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// Stats reports totals for the connected database. Size comes from
// pg_database_size in MB; row counts are planner estimates (reltuples),
// which is cheap and close enough for a dashboard figure.
func (a *Adapter) Stats(ctx context.Context) (*datasource.DatabaseStats, error) {
	var stats datasource.DatabaseStats
	err := a.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*)
				FROM information_schema.tables
				WHERE table_type = 'BASE TABLE'
				AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')),
			(SELECT COALESCE(SUM(c.reltuples), 0)::bigint
				FROM pg_class c
				JOIN pg_namespace n ON n.oid = c.relnamespace
				WHERE c.relkind = 'r'
				AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')),
			pg_database_size(current_database()) / 1048576.0`).
		Scan(&stats.TotalTables, &stats.TotalRows, &stats.TotalDBSizeMB)
	if err != nil {
		return nil, fmt.Errorf("read database stats: %w", err)
	}
	return &stats, nil
}
