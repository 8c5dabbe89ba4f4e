// Package compare holds one comparator per object category. Each comparator
// walks the union of source and destination objects for its category,
// emitting zero or one ObjectDifference per object:
//
//   - present on one side only: MISSING (source only) or EXTRA (destination
//     only), with no attribute diffing performed;
//   - present on both sides: definitions are normalized first, then compared
//     attribute by attribute; equal objects emit nothing.
//
// Output is sorted by object name for deterministic results across runs.
package compare

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sqldrift/sqldrift/comparison/filter"
	"github.com/sqldrift/sqldrift/comparison/internal/normalize"
	"github.com/sqldrift/sqldrift/comparison/types"
	"github.com/sqldrift/sqldrift/config"
	dbtypes "github.com/sqldrift/sqldrift/dbschema/types"
)

// Input carries the shared state every comparator operates on. Emit is called
// once per discovered difference; the engine owns classification and
// aggregation.
type Input struct {
	Source      *dbtypes.Snapshot
	Destination *dbtypes.Snapshot
	Filter      *filter.Filter
	Options     *config.CompareOptions
	Emit        func(*types.ObjectDifference)
}

func qualified(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// unionKeys returns the sorted union of both maps' keys.
func unionKeys[T, U any](a map[string]T, b map[string]U) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	return sortedKeys(seen)
}

// Tables compares base tables and, for tables present on both sides, their
// columns. Column differences are emitted as COLUMN objects carrying their
// table as ParentObjectName. Returns the number of objects examined.
func Tables(in *Input) int {
	srcTables := make(map[string]dbtypes.Table)
	for _, t := range in.Source.Tables {
		if in.Filter.MatchesTable(t.Schema, t.Name) {
			srcTables[qualified(t.Schema, t.Name)] = t
		}
	}
	dstTables := make(map[string]dbtypes.Table)
	for _, t := range in.Destination.Tables {
		if in.Filter.MatchesTable(t.Schema, t.Name) {
			dstTables[qualified(t.Schema, t.Name)] = t
		}
	}

	scanned := 0
	for _, key := range unionKeys(srcTables, dstTables) {
		scanned++
		src, inSrc := srcTables[key]
		dst, inDst := dstTables[key]

		switch {
		case inSrc && !inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:       src.Name,
				SchemaName:       src.Schema,
				ObjectType:       types.ObjectTypeTable,
				DifferenceType:   types.DifferenceMissing,
				DependentObjects: tableDependents(in.Source, src.Schema, src.Name),
			})
		case !inSrc && inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:       dst.Name,
				SchemaName:       dst.Schema,
				ObjectType:       types.ObjectTypeTable,
				DifferenceType:   types.DifferenceExtra,
				DependentObjects: tableDependents(in.Destination, dst.Schema, dst.Name),
			})
		default:
			scanned += compareColumns(in, src, dst)
		}
	}
	return scanned
}

// compareColumns emits COLUMN differences for one table present on both
// sides. Returns the number of columns examined.
func compareColumns(in *Input, srcTable, dstTable dbtypes.Table) int {
	parent := qualified(srcTable.Schema, srcTable.Name)

	srcCols := make(map[string]dbtypes.Column, len(srcTable.Columns))
	for _, c := range srcTable.Columns {
		srcCols[c.Name] = c
	}
	dstCols := make(map[string]dbtypes.Column, len(dstTable.Columns))
	for _, c := range dstTable.Columns {
		dstCols[c.Name] = c
	}

	scanned := 0
	for _, name := range unionKeys(srcCols, dstCols) {
		scanned++
		src, inSrc := srcCols[name]
		dst, inDst := dstCols[name]

		base := types.ObjectDifference{
			ObjectName:       name,
			SchemaName:       srcTable.Schema,
			ObjectType:       types.ObjectTypeColumn,
			ParentObjectName: parent,
		}

		switch {
		case inSrc && !inDst:
			base.DifferenceType = types.DifferenceMissing
			in.Emit(&base)
		case !inSrc && inDst:
			base.DifferenceType = types.DifferenceExtra
			in.Emit(&base)
		default:
			attrs := columnAttributes(src, dst)
			if len(attrs) > 0 {
				base.DifferenceType = types.DifferenceModified
				base.Attributes = attrs
				in.Emit(&base)
			}
		}
	}
	return scanned
}

// columnAttributes compares the structural attributes of a column present on
// both sides. A data type change is breaking only when it crosses type
// families; length and precision changes within a family reconcile via ALTER.
func columnAttributes(src, dst dbtypes.Column) []types.AttributeDifference {
	var attrs []types.AttributeDifference

	srcType := normalize.TypeName(columnTypeSpelling(src))
	dstType := normalize.TypeName(columnTypeSpelling(dst))
	if srcType != dstType {
		breaking := !normalize.SameTypeFamily(srcType, dstType)
		attrs = append(attrs, types.NewModifiedAttribute("data_type", srcType, dstType, breaking))
	}

	if src.Nullable != dst.Nullable {
		attrs = append(attrs, types.NewModifiedAttribute("nullable",
			fmt.Sprintf("%t", src.Nullable), fmt.Sprintf("%t", dst.Nullable), false))
	}

	// Identity columns carry sequence-owned defaults that the catalog
	// reports but DDL never declares; comparing them produces noise.
	if !src.Identity && !dst.Identity {
		srcDefault := normalize.DefaultValue(deref(src.Default))
		dstDefault := normalize.DefaultValue(deref(dst.Default))
		if srcDefault != dstDefault {
			attrs = append(attrs, types.NewModifiedAttribute("default", srcDefault, dstDefault, false))
		}
	}

	if src.Collation != dst.Collation {
		attrs = append(attrs, types.NewModifiedAttribute("collation", src.Collation, dst.Collation, false))
	}

	return attrs
}

// columnTypeSpelling rebuilds the full type spelling including the length or
// precision suffix the catalog reports in separate columns.
func columnTypeSpelling(c dbtypes.Column) string {
	t := c.DataType
	if strings.Contains(t, "(") {
		return t
	}
	switch {
	case c.CharacterMaxLength != nil:
		return fmt.Sprintf("%s(%d)", t, *c.CharacterMaxLength)
	case c.NumericPrecision != nil && c.NumericScale != nil && *c.NumericScale > 0:
		return fmt.Sprintf("%s(%d,%d)", t, *c.NumericPrecision, *c.NumericScale)
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Indexes compares non-primary indexes. Primary key indexes are compared
// through their constraint. Returns the number of objects examined.
func Indexes(in *Input) int {
	srcIdx := indexMap(in.Source, in.Filter)
	dstIdx := indexMap(in.Destination, in.Filter)

	scanned := 0
	for _, key := range unionKeys(srcIdx, dstIdx) {
		scanned++
		src, inSrc := srcIdx[key]
		dst, inDst := dstIdx[key]

		base := types.ObjectDifference{
			ObjectType: types.ObjectTypeIndex,
		}

		switch {
		case inSrc && !inDst:
			base.ObjectName = src.Name
			base.SchemaName = src.Schema
			base.ParentObjectName = qualified(src.Schema, src.Table)
			base.DifferenceType = types.DifferenceMissing
			base.SourceDefinition = src.Definition
			in.Emit(&base)
		case !inSrc && inDst:
			base.ObjectName = dst.Name
			base.SchemaName = dst.Schema
			base.ParentObjectName = qualified(dst.Schema, dst.Table)
			base.DifferenceType = types.DifferenceExtra
			base.DestinationDefinition = dst.Definition
			in.Emit(&base)
		default:
			var attrs []types.AttributeDifference
			if srcCols, dstCols := strings.Join(src.Columns, ","), strings.Join(dst.Columns, ","); srcCols != dstCols {
				attrs = append(attrs, types.NewModifiedAttribute("columns", srcCols, dstCols, false))
			}
			if src.IsUnique != dst.IsUnique {
				attrs = append(attrs, types.NewModifiedAttribute("unique",
					fmt.Sprintf("%t", src.IsUnique), fmt.Sprintf("%t", dst.IsUnique), false))
			}
			if src.Method != dst.Method && src.Method != "" && dst.Method != "" {
				attrs = append(attrs, types.NewModifiedAttribute("method", src.Method, dst.Method, false))
			}
			if len(attrs) > 0 {
				base.ObjectName = src.Name
				base.SchemaName = src.Schema
				base.ParentObjectName = qualified(src.Schema, src.Table)
				base.DifferenceType = types.DifferenceModified
				base.SourceDefinition = src.Definition
				base.DestinationDefinition = dst.Definition
				base.Attributes = attrs
				in.Emit(&base)
			}
		}
	}
	return scanned
}

func indexMap(snap *dbtypes.Snapshot, f *filter.Filter) map[string]dbtypes.Index {
	m := make(map[string]dbtypes.Index)
	for _, idx := range snap.Indexes {
		if idx.IsPrimary {
			continue
		}
		if !f.MatchesTable(idx.Schema, idx.Table) {
			continue
		}
		m[qualified(idx.Schema, idx.Name)] = idx
	}
	return m
}

// constraintObjectTypes maps catalog constraint type spellings to object
// categories. Constraints with an unrecognized type are skipped with an
// informational note rather than aborting the run.
var constraintObjectTypes = map[string]types.ObjectType{
	"PRIMARY KEY": types.ObjectTypeConstraintPrimaryKey,
	"FOREIGN KEY": types.ObjectTypeConstraintForeignKey,
	"UNIQUE":      types.ObjectTypeConstraintUnique,
	"CHECK":       types.ObjectTypeConstraintCheck,
}

// Constraints compares table constraints of every kind, splitting them into
// the four constraint object categories. Returns the number of objects
// examined.
func Constraints(in *Input) int {
	srcCons := constraintMap(in.Source, in.Filter)
	dstCons := constraintMap(in.Destination, in.Filter)

	scanned := 0
	for _, key := range unionKeys(srcCons, dstCons) {
		scanned++
		src, inSrc := srcCons[key]
		dst, inDst := dstCons[key]

		var sample dbtypes.Constraint
		if inSrc {
			sample = src
		} else {
			sample = dst
		}
		objectType, ok := constraintObjectTypes[strings.ToUpper(sample.Type)]
		if !ok {
			slog.Info("skipping constraint with unsupported type",
				"constraint", sample.Name, "type", sample.Type)
			continue
		}

		base := types.ObjectDifference{
			ObjectName:       sample.Name,
			SchemaName:       sample.Schema,
			ObjectType:       objectType,
			ParentObjectName: qualified(sample.Schema, sample.Table),
		}

		switch {
		case inSrc && !inDst:
			base.DifferenceType = types.DifferenceMissing
			base.SourceDefinition = src.Definition
			in.Emit(&base)
		case !inSrc && inDst:
			base.DifferenceType = types.DifferenceExtra
			base.DestinationDefinition = dst.Definition
			in.Emit(&base)
		default:
			attrs := constraintAttributes(src, dst)
			if len(attrs) > 0 {
				base.DifferenceType = types.DifferenceModified
				base.SourceDefinition = src.Definition
				base.DestinationDefinition = dst.Definition
				base.Attributes = attrs
				in.Emit(&base)
			}
		}
	}
	return scanned
}

func constraintMap(snap *dbtypes.Snapshot, f *filter.Filter) map[string]dbtypes.Constraint {
	m := make(map[string]dbtypes.Constraint)
	for _, c := range snap.Constraints {
		if !f.MatchesTable(c.Schema, c.Table) {
			continue
		}
		m[qualified(c.Schema, c.Table)+"."+c.Name] = c
	}
	return m
}

func constraintAttributes(src, dst dbtypes.Constraint) []types.AttributeDifference {
	var attrs []types.AttributeDifference

	if s, d := strings.Join(src.Columns, ","), strings.Join(dst.Columns, ","); s != d {
		attrs = append(attrs, types.NewModifiedAttribute("columns", s, d, false))
	}
	if src.ForeignTable != dst.ForeignTable {
		attrs = append(attrs, types.NewModifiedAttribute("foreign_table", src.ForeignTable, dst.ForeignTable, false))
	}
	if s, d := strings.Join(src.ForeignColumns, ","), strings.Join(dst.ForeignColumns, ","); s != d {
		attrs = append(attrs, types.NewModifiedAttribute("foreign_columns", s, d, false))
	}
	if src.DeleteRule != dst.DeleteRule {
		attrs = append(attrs, types.NewModifiedAttribute("delete_rule", src.DeleteRule, dst.DeleteRule, false))
	}
	if src.UpdateRule != dst.UpdateRule {
		attrs = append(attrs, types.NewModifiedAttribute("update_rule", src.UpdateRule, dst.UpdateRule, false))
	}
	if s, d := normalize.Definition(src.CheckClause), normalize.Definition(dst.CheckClause); s != d {
		attrs = append(attrs, types.NewModifiedAttribute("check_clause", s, d, false))
	}

	return attrs
}

// tableDependents collects the qualified names of objects that cannot exist
// without the given table: its indexes, constraints, triggers, foreign keys
// referencing it from other tables, views and materialized views selecting
// from it, and sequences it owns.
func tableDependents(snap *dbtypes.Snapshot, schema, table string) []string {
	qname := qualified(schema, table)
	seen := make(map[string]bool)

	for _, idx := range snap.Indexes {
		if idx.Schema == schema && idx.Table == table && !idx.IsPrimary {
			seen[qualified(idx.Schema, idx.Name)] = true
		}
	}
	for _, c := range snap.Constraints {
		if c.Schema == schema && c.Table == table {
			seen[qualified(c.Schema, c.Name)] = true
		}
		// Foreign keys on other tables referencing this one.
		if c.ForeignTable == table && c.Table != table {
			seen[qualified(c.Schema, c.Name)] = true
		}
	}
	for _, tr := range snap.Triggers {
		if tr.Schema == schema && tr.Table == table {
			seen[qualified(tr.Schema, tr.Name)] = true
		}
	}
	for _, v := range snap.Views {
		for _, dep := range v.DependsOn {
			if dep == qname || dep == table {
				seen[qualified(v.Schema, v.Name)] = true
			}
		}
	}
	for _, mv := range snap.MaterializedViews {
		for _, dep := range mv.DependsOn {
			if dep == qname || dep == table {
				seen[qualified(mv.Schema, mv.Name)] = true
			}
		}
	}
	for _, s := range snap.Sequences {
		if s.OwnedBy != "" && strings.HasPrefix(s.OwnedBy, qname+".") {
			seen[qualified(s.Schema, s.Name)] = true
		}
	}

	return sortedKeys(seen)
}
