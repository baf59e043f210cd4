// Package migration generates, stores, applies and rolls back schema
// migration artifacts. Each migration is a JSON file carrying paired
// up/down SQL; applied state is tracked per project in applied.json.
package migration

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// ColumnDef is the caller-supplied column shape for DDL generation.
type ColumnDef struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Nullable   bool    `json:"nullable"`
	Default    *string `json:"default,omitempty"`
	PrimaryKey bool    `json:"primaryKey"`
	Unique     bool    `json:"unique"`
}

// Artifact is one generated migration: a version stamp, the file it is
// stored in, and the paired up/down SQL.
type Artifact struct {
	Version  string `json:"version"`
	Filename string `json:"filename"`
	Name     string `json:"name"`
	UpSQL    string `json:"upSQL"`
	DownSQL  string `json:"downSQL"`
}

// quoteIdent quotes an identifier for the engine's DDL dialect.
func quoteIdent(engine models.Engine, ident string) string {
	switch engine {
	case models.EngineMySQL, models.EngineMariaDB:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

func qualifiedName(engine models.Engine, schema, table string) string {
	if schema == "" {
		return quoteIdent(engine, table)
	}
	return quoteIdent(engine, schema) + "." + quoteIdent(engine, table)
}

func columnClause(engine models.Engine, col ColumnDef) string {
	var b strings.Builder
	b.WriteString(quoteIdent(engine, col.Name))
	b.WriteString(" ")
	b.WriteString(col.Type)
	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	} else {
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if col.Unique {
			b.WriteString(" UNIQUE")
		}
	}
	if col.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*col.Default)
	}
	return b.String()
}

// createTableSQL builds a CREATE TABLE statement for the engine.
func createTableSQL(engine models.Engine, schema, table string, cols []ColumnDef) string {
	clauses := make([]string, 0, len(cols))
	for _, col := range cols {
		clauses = append(clauses, "  "+columnClause(engine, col))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);",
		qualifiedName(engine, schema, table), strings.Join(clauses, ",\n"))
}

func dropTableSQL(engine models.Engine, schema, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", qualifiedName(engine, schema, table))
}

// alterTableSQL builds paired ALTER statements adding and dropping
// columns. MariaDB accepts IF EXISTS on DROP COLUMN; MySQL does not,
// which is the one place the two engines diverge here.
func alterTableSQL(engine models.Engine, schema, table string, add []ColumnDef, drop []string) (up, down string) {
	name := qualifiedName(engine, schema, table)
	var upStmts, downStmts []string

	for _, col := range add {
		upStmts = append(upStmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", name, columnClause(engine, col)))
		downStmts = append(downStmts, dropColumnStmt(engine, name, col.Name))
	}
	for _, colName := range drop {
		upStmts = append(upStmts, dropColumnStmt(engine, name, colName))
		// The dropped column's definition is unknown at generation time;
		// the down path marks it for the operator to fill in.
		downStmts = append(downStmts, fmt.Sprintf("-- restore column %s on %s manually", colName, name))
	}
	return strings.Join(upStmts, "\n"), strings.Join(downStmts, "\n")
}

func dropColumnStmt(engine models.Engine, qualifiedTable, column string) string {
	if engine == models.EngineMariaDB {
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;", qualifiedTable, quoteIdent(engine, column))
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", qualifiedTable, quoteIdent(engine, column))
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9_]+`)

// slugify turns a human name into a filename-safe fragment.
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = unsafeFilenameChars.ReplaceAllString(slug, "")
	if slug == "" {
		slug = "migration"
	}
	return slug
}
