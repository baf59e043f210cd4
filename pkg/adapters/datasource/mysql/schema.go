package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// systemSchemas are excluded from introspection and stats.
const systemSchemas = "'mysql', 'information_schema', 'performance_schema', 'sys'"

// ListSchemaNames returns user schemas, excluding MySQL internals.
func (a *Adapter) ListSchemaNames(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN (`+systemSchemas+`)
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
	rows, err := a.db.QueryContext(ctx, `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = ?
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

// ListColumns returns column metadata for one table. Primary key and
// unique membership come from column_key; foreign keys from
// key_column_usage rows that reference another table.
func (a *Adapter) ListColumns(ctx context.Context, schema, table string) ([]models.Column, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			c.column_default,
			c.column_key = 'PRI',
			c.column_key = 'UNI',
			COALESCE(fk.is_fk, FALSE)
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT column_name, TRUE AS is_fk
			FROM information_schema.key_column_usage
			WHERE table_schema = ? AND table_name = ?
				AND referenced_table_name IS NOT NULL
			GROUP BY column_name
		) fk ON fk.column_name = c.column_name
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position`, schema, table, schema, table)
	if err != nil {
		return nil, fmt.Errorf("list columns for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var col models.Column
		var def sql.NullString
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &def,
			&col.IsPrimaryKey, &col.IsUnique, &col.IsForeignKey); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		if def.Valid {
			col.DefaultValue = &def.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// Stats reports totals across user schemas. Row counts come from
// information_schema estimates, which is cheap and good enough for a
// dashboard figure.
func (a *Adapter) Stats(ctx context.Context) (*datasource.DatabaseStats, error) {
	var stats datasource.DatabaseStats
	err := a.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(table_rows), 0),
			COALESCE(SUM(data_length + index_length), 0) / 1048576.0
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
			AND table_schema NOT IN (`+systemSchemas+`)`).
		Scan(&stats.TotalTables, &stats.TotalRows, &stats.TotalDBSizeMB)
	if err != nil {
		return nil, fmt.Errorf("read database stats: %w", err)
	}
	return &stats, nil
}
