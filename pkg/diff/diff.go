// Package diff computes structured deltas between two schema snapshots.
// It is pure: no I/O, no mutation of its inputs, deterministic output.
package diff

import (
	"fmt"
	"sort"

	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// Status classifies one node of the diff tree.
type Status string

const (
	StatusRemoved   Status = "removed"
	StatusAdded     Status = "added"
	StatusModified  Status = "modified"
	StatusUnchanged Status = "unchanged"
)

// statusRank orders destructive changes first. The UI relies on this
// positional stability, so the order is fixed, not alphabetical.
func statusRank(s Status) int {
	switch s {
	case StatusRemoved:
		return 0
	case StatusAdded:
		return 1
	case StatusModified:
		return 2
	default:
		return 3
	}
}

// FieldChange is one column attribute that differs between snapshots.
// Old and New are stringified so the wire shape is uniform across types.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// ColumnDiff is the leaf level of the diff tree.
type ColumnDiff struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Changes []FieldChange `json:"changes,omitempty"`
}

// TableDiff carries the per-column classification for one table.
type TableDiff struct {
	Name    string       `json:"name"`
	Status  Status       `json:"status"`
	Columns []ColumnDiff `json:"columns"`
}

// SchemaDiff carries the per-table classification for one schema.
type SchemaDiff struct {
	Name   string      `json:"name"`
	Status Status      `json:"status"`
	Tables []TableDiff `json:"tables"`
}

// Summary aggregates counts across the whole tree. HasChanges reflects
// the schema-level counters only: a modification anywhere below bubbles
// up and marks its schema modified, which is what flips the flag.
type Summary struct {
	SchemasAdded    int  `json:"schemasAdded"`
	SchemasRemoved  int  `json:"schemasRemoved"`
	SchemasModified int  `json:"schemasModified"`
	TablesAdded     int  `json:"tablesAdded"`
	TablesRemoved   int  `json:"tablesRemoved"`
	TablesModified  int  `json:"tablesModified"`
	ColumnsAdded    int  `json:"columnsAdded"`
	ColumnsRemoved  int  `json:"columnsRemoved"`
	ColumnsModified int  `json:"columnsModified"`
	HasChanges      bool `json:"hasChanges"`
}

// Result is the full diff document. Derived on demand, never persisted.
type Result struct {
	Schemas []SchemaDiff `json:"schemas"`
	Summary Summary      `json:"summary"`
}

// Diff reconciles two snapshots. A nil snapshot means "does not exist at
// this point in history": Diff(nil, s) marks everything added,
// Diff(s, nil) marks everything removed.
func Diff(before, after *models.SchemaFile) *Result {
	var beforeSchemas, afterSchemas []models.Schema
	if before != nil {
		beforeSchemas = before.Schemas
	}
	if after != nil {
		afterSchemas = after.Schemas
	}

	result := &Result{Schemas: []SchemaDiff{}}

	beforeByName := make(map[string]models.Schema, len(beforeSchemas))
	for _, s := range beforeSchemas {
		beforeByName[s.Name] = s
	}
	afterByName := make(map[string]models.Schema, len(afterSchemas))
	for _, s := range afterSchemas {
		afterByName[s.Name] = s
	}

	for _, name := range unionNames(beforeByName, afterByName) {
		b, inBefore := beforeByName[name]
		a, inAfter := afterByName[name]

		var sd SchemaDiff
		switch {
		case !inBefore:
			sd = diffSchema(nil, &a)
			result.Summary.SchemasAdded++
		case !inAfter:
			sd = diffSchema(&b, nil)
			result.Summary.SchemasRemoved++
		default:
			sd = diffSchema(&b, &a)
			if sd.Status == StatusModified {
				result.Summary.SchemasModified++
			}
		}
		result.Schemas = append(result.Schemas, sd)
		result.Summary.tallyTables(sd.Tables)
	}

	sortByStatus(result.Schemas, func(s SchemaDiff) (Status, string) { return s.Status, s.Name })
	result.Summary.HasChanges = result.Summary.SchemasAdded > 0 ||
		result.Summary.SchemasRemoved > 0 ||
		result.Summary.SchemasModified > 0
	return result
}

func (s *Summary) tallyTables(tables []TableDiff) {
	for _, t := range tables {
		switch t.Status {
		case StatusAdded:
			s.TablesAdded++
		case StatusRemoved:
			s.TablesRemoved++
		case StatusModified:
			s.TablesModified++
		}
		for _, c := range t.Columns {
			switch c.Status {
			case StatusAdded:
				s.ColumnsAdded++
			case StatusRemoved:
				s.ColumnsRemoved++
			case StatusModified:
				s.ColumnsModified++
			}
		}
	}
}

// diffSchema reconciles one schema. A nil side marks the whole subtree
// added or removed.
func diffSchema(before, after *models.Schema) SchemaDiff {
	var name string
	var beforeTables, afterTables []models.Table
	if before != nil {
		name = before.Name
		beforeTables = before.Tables
	}
	if after != nil {
		name = after.Name
		afterTables = after.Tables
	}

	beforeByName := make(map[string]models.Table, len(beforeTables))
	for _, t := range beforeTables {
		beforeByName[t.Name] = t
	}
	afterByName := make(map[string]models.Table, len(afterTables))
	for _, t := range afterTables {
		afterByName[t.Name] = t
	}

	sd := SchemaDiff{Name: name, Tables: []TableDiff{}}
	modified := false
	for _, tname := range unionNames(beforeByName, afterByName) {
		b, inBefore := beforeByName[tname]
		a, inAfter := afterByName[tname]

		var td TableDiff
		switch {
		case !inBefore:
			td = diffTable(nil, &a)
		case !inAfter:
			td = diffTable(&b, nil)
		default:
			td = diffTable(&b, &a)
		}
		if td.Status != StatusUnchanged {
			modified = true
		}
		sd.Tables = append(sd.Tables, td)
	}
	sortByStatus(sd.Tables, func(t TableDiff) (Status, string) { return t.Status, t.Name })

	switch {
	case before == nil:
		sd.Status = StatusAdded
	case after == nil:
		sd.Status = StatusRemoved
	case modified:
		sd.Status = StatusModified
	default:
		sd.Status = StatusUnchanged
	}
	return sd
}

func diffTable(before, after *models.Table) TableDiff {
	var name string
	var beforeCols, afterCols []models.Column
	if before != nil {
		name = before.Name
		beforeCols = before.Columns
	}
	if after != nil {
		name = after.Name
		afterCols = after.Columns
	}

	beforeByName := make(map[string]models.Column, len(beforeCols))
	for _, c := range beforeCols {
		beforeByName[c.Name] = c
	}
	afterByName := make(map[string]models.Column, len(afterCols))
	for _, c := range afterCols {
		afterByName[c.Name] = c
	}

	td := TableDiff{Name: name, Columns: []ColumnDiff{}}
	modified := false
	for _, cname := range unionNames(beforeByName, afterByName) {
		b, inBefore := beforeByName[cname]
		a, inAfter := afterByName[cname]

		var cd ColumnDiff
		switch {
		case !inBefore:
			cd = ColumnDiff{Name: cname, Status: StatusAdded}
		case !inAfter:
			cd = ColumnDiff{Name: cname, Status: StatusRemoved}
		default:
			cd = diffColumn(b, a)
		}
		if cd.Status != StatusUnchanged {
			modified = true
		}
		td.Columns = append(td.Columns, cd)
	}
	sortByStatus(td.Columns, func(c ColumnDiff) (Status, string) { return c.Status, c.Name })

	switch {
	case before == nil:
		td.Status = StatusAdded
	case after == nil:
		td.Status = StatusRemoved
	case modified:
		td.Status = StatusModified
	default:
		td.Status = StatusUnchanged
	}
	return td
}

// diffColumn compares the tracked attributes of a column present on both
// sides and records field-level old/new pairs for each difference.
func diffColumn(before, after models.Column) ColumnDiff {
	cd := ColumnDiff{Name: after.Name, Status: StatusUnchanged}

	check := func(field string, oldVal, newVal any) {
		oldStr, newStr := stringify(oldVal), stringify(newVal)
		if oldStr != newStr {
			cd.Changes = append(cd.Changes, FieldChange{Field: field, Old: oldStr, New: newStr})
		}
	}
	check("type", before.Type, after.Type)
	check("nullable", before.Nullable, after.Nullable)
	check("isPrimaryKey", before.IsPrimaryKey, after.IsPrimaryKey)
	check("isForeignKey", before.IsForeignKey, after.IsForeignKey)
	check("isUnique", before.IsUnique, after.IsUnique)
	check("defaultValue", before.DefaultValue, after.DefaultValue)

	if len(cd.Changes) > 0 {
		cd.Status = StatusModified
	}
	return cd
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// unionNames returns the sorted union of keys from both maps. Sorting here
// gives the reconciliation a stable walk order before status sorting.
func unionNames[V any](before, after map[string]V) []string {
	seen := make(map[string]struct{}, len(before)+len(after))
	for name := range before {
		seen[name] = struct{}{}
	}
	for name := range after {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sortByStatus sorts removed < added < modified < unchanged, with name as
// the tie-break inside each group.
func sortByStatus[T any](items []T, key func(T) (Status, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		si, ni := key(items[i])
		sj, nj := key(items[j])
		if statusRank(si) != statusRank(sj) {
			return statusRank(si) < statusRank(sj)
		}
		return ni < nj
	})
}
