// Package ddl renders reconciliation SQL for discovered differences.
//
// Generated statements transform the destination schema toward the source:
// MISSING objects are created, MODIFIED objects are altered, EXTRA objects
// are dropped. Statements guard with IF EXISTS / IF NOT EXISTS so a partially
// applied script can be re-run. Statements for BREAKING differences are never
// emitted live: they are commented out behind a review banner, so a generated
// script applied verbatim cannot destroy data.
package ddl

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/sqldrift/sqldrift/comparison/types"
	dbtypes "github.com/sqldrift/sqldrift/dbschema/types"
)

// reviewBanner precedes every statement that is emitted commented out.
const reviewBanner = "-- WARNING: breaking change, review and uncomment to apply"

// Generator renders DDL for one comparison run. It needs both snapshots:
// differences record what changed, the snapshots hold the full definitions
// CREATE statements are rendered from.
type Generator struct {
	source      *dbtypes.Snapshot
	destination *dbtypes.Snapshot
}

// NewGenerator builds a generator over the two snapshots the differences were
// computed from.
func NewGenerator(source, destination *dbtypes.Snapshot) *Generator {
	return &Generator{source: source, destination: destination}
}

// Generate renders the reconciliation DDL for one difference and stamps it
// onto the difference. BREAKING differences come back fully commented out
// behind the review banner. Differences with no expressible DDL yield a
// comment naming the manual step.
func (g *Generator) Generate(diff *types.ObjectDifference) string {
	stmt := g.statement(diff)
	if stmt == "" {
		stmt = fmt.Sprintf("-- no automatic DDL for %s %s %s, manual reconciliation required",
			diff.DifferenceType, diff.ObjectType, diff.QualifiedName())
	} else if diff.Severity == types.SeverityBreaking || dropsData(diff) {
		stmt = commentOut(stmt)
	}
	diff.GeneratedDDL = stmt
	return stmt
}

// dropsData reports whether reconciling the difference destroys stored rows.
// Such statements stay behind the review banner regardless of severity: an
// EXTRA table is merely informational to report, but dropping it is not.
func dropsData(diff *types.ObjectDifference) bool {
	if diff.DifferenceType != types.DifferenceExtra {
		return false
	}
	switch diff.ObjectType {
	case types.ObjectTypeTable, types.ObjectTypeColumn, types.ObjectTypeMaterializedView:
		return true
	}
	return false
}

func (g *Generator) statement(diff *types.ObjectDifference) string {
	switch diff.ObjectType {
	case types.ObjectTypeTable:
		return g.tableStatement(diff)
	case types.ObjectTypeColumn:
		return g.columnStatement(diff)
	case types.ObjectTypeIndex:
		return g.indexStatement(diff)
	case types.ObjectTypeConstraintPrimaryKey, types.ObjectTypeConstraintForeignKey,
		types.ObjectTypeConstraintUnique, types.ObjectTypeConstraintCheck:
		return g.constraintStatement(diff)
	case types.ObjectTypeView:
		return g.viewStatement(diff)
	case types.ObjectTypeMaterializedView:
		return g.materializedViewStatement(diff)
	case types.ObjectTypeFunction:
		return g.routineStatement(diff, "FUNCTION")
	case types.ObjectTypeProcedure:
		return g.routineStatement(diff, "PROCEDURE")
	case types.ObjectTypeTrigger:
		return g.triggerStatement(diff)
	case types.ObjectTypeSequence:
		return g.sequenceStatement(diff)
	case types.ObjectTypeEnum:
		return g.enumStatement(diff)
	case types.ObjectTypeComposite:
		return g.compositeStatement(diff)
	case types.ObjectTypeDomain:
		return g.domainStatement(diff)
	case types.ObjectTypeExtension:
		return g.extensionStatement(diff)
	}
	return ""
}

func quoteQualified(schema, name string) string {
	if schema == "" {
		return pq.QuoteIdentifier(name)
	}
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(name)
}

func commentOut(stmt string) string {
	lines := strings.Split(strings.TrimRight(stmt, "\n"), "\n")
	var b strings.Builder
	b.WriteString(reviewBanner)
	for _, line := range lines {
		b.WriteString("\n-- ")
		b.WriteString(line)
	}
	return b.String()
}

func (g *Generator) tableStatement(diff *types.ObjectDifference) string {
	switch diff.DifferenceType {
	case types.DifferenceMissing:
		table := findTable(g.source, diff.SchemaName, diff.ObjectName)
		if table == nil {
			return ""
		}
		return createTable(*table)
	case types.DifferenceExtra:
		return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;",
			quoteQualified(diff.SchemaName, diff.ObjectName))
	}
	return ""
}

func createTable(table dbtypes.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", quoteQualified(table.Schema, table.Name))
	for i, col := range table.Columns {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n    ")
		b.WriteString(columnDefinition(col))
	}
	b.WriteString("\n);")
	return b.String()
}

func columnDefinition(col dbtypes.Column) string {
	var b strings.Builder
	b.WriteString(pq.QuoteIdentifier(col.Name))
	b.WriteString(" ")
	b.WriteString(columnType(col))
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil && !col.Identity {
		b.WriteString(" DEFAULT ")
		b.WriteString(*col.Default)
	}
	if col.Collation != "" {
		fmt.Fprintf(&b, " COLLATE %s", pq.QuoteIdentifier(col.Collation))
	}
	return b.String()
}

func columnType(col dbtypes.Column) string {
	t := col.DataType
	if strings.Contains(t, "(") {
		return t
	}
	switch {
	case col.CharacterMaxLength != nil:
		return fmt.Sprintf("%s(%d)", t, *col.CharacterMaxLength)
	case col.NumericPrecision != nil && col.NumericScale != nil && *col.NumericScale > 0:
		return fmt.Sprintf("%s(%d,%d)", t, *col.NumericPrecision, *col.NumericScale)
	}
	return t
}

func (g *Generator) columnStatement(diff *types.ObjectDifference) string {
	table := quoteParent(diff.ParentObjectName)

	switch diff.DifferenceType {
	case types.DifferenceMissing:
		col := findColumn(g.source, diff.ParentObjectName, diff.ObjectName)
		if col == nil {
			return ""
		}
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s;", table, columnDefinition(*col))
	case types.DifferenceExtra:
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;",
			table, pq.QuoteIdentifier(diff.ObjectName))
	case types.DifferenceModified:
		return g.alterColumn(diff, table)
	}
	return ""
}

// alterColumn emits one ALTER TABLE clause per reconcilable attribute,
// moving the destination column to the source side's value.
func (g *Generator) alterColumn(diff *types.ObjectDifference, table string) string {
	column := pq.QuoteIdentifier(diff.ObjectName)
	var stmts []string

	for _, attr := range diff.Attributes {
		switch attr.Name {
		case "data_type":
			if attr.Source != nil {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s;",
					table, column, *attr.Source))
			}
		case "nullable":
			if attr.Source != nil && *attr.Source == "true" {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;", table, column))
			} else {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", table, column))
			}
		case "default":
			if attr.Source == nil || *attr.Source == "" {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", table, column))
			} else {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;",
					table, column, *attr.Source))
			}
		case "collation":
			stmts = append(stmts, fmt.Sprintf("-- collation change on %s.%s requires a table rewrite, reconcile manually",
				diff.ParentObjectName, diff.ObjectName))
		}
	}

	return strings.Join(stmts, "\n")
}

func (g *Generator) indexStatement(diff *types.ObjectDifference) string {
	switch diff.DifferenceType {
	case types.DifferenceMissing:
		if diff.SourceDefinition != "" {
			return ensureStatementTerminated(diff.SourceDefinition)
		}
		idx := findIndex(g.source, diff.SchemaName, diff.ObjectName)
		if idx == nil {
			return ""
		}
		return createIndex(*idx)
	case types.DifferenceExtra:
		return fmt.Sprintf("DROP INDEX IF EXISTS %s;", quoteQualified(diff.SchemaName, diff.ObjectName))
	case types.DifferenceModified:
		drop := fmt.Sprintf("DROP INDEX IF EXISTS %s;", quoteQualified(diff.SchemaName, diff.ObjectName))
		create := ensureStatementTerminated(diff.SourceDefinition)
		return drop + "\n" + create
	}
	return ""
}

func createIndex(idx dbtypes.Index) string {
	unique := ""
	if idx.IsUnique {
		unique = "UNIQUE "
	}
	method := ""
	if idx.Method != "" {
		method = " USING " + idx.Method
	}
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = pq.QuoteIdentifier(c)
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s%s (%s);",
		unique, pq.QuoteIdentifier(idx.Name), quoteQualified(idx.Schema, idx.Table),
		method, strings.Join(cols, ", "))
}

func (g *Generator) constraintStatement(diff *types.ObjectDifference) string {
	table := quoteParent(diff.ParentObjectName)
	name := pq.QuoteIdentifier(diff.ObjectName)

	switch diff.DifferenceType {
	case types.DifferenceMissing:
		if diff.SourceDefinition == "" {
			return ""
		}
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;", table, name, diff.SourceDefinition)
	case types.DifferenceExtra:
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", table, name)
	case types.DifferenceModified:
		drop := fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", table, name)
		add := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;", table, name, diff.SourceDefinition)
		return drop + "\n" + add
	}
	return ""
}

func (g *Generator) viewStatement(diff *types.ObjectDifference) string {
	qname := quoteQualified(diff.SchemaName, diff.ObjectName)

	switch diff.DifferenceType {
	case types.DifferenceMissing, types.DifferenceModified:
		if diff.SourceDefinition == "" {
			return ""
		}
		return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", qname,
			ensureStatementTerminated(diff.SourceDefinition))
	case types.DifferenceExtra:
		return fmt.Sprintf("DROP VIEW IF EXISTS %s CASCADE;", qname)
	}
	return ""
}

func (g *Generator) materializedViewStatement(diff *types.ObjectDifference) string {
	qname := quoteQualified(diff.SchemaName, diff.ObjectName)

	switch diff.DifferenceType {
	case types.DifferenceMissing:
		if diff.SourceDefinition == "" {
			return ""
		}
		return fmt.Sprintf("CREATE MATERIALIZED VIEW IF NOT EXISTS %s AS\n%s", qname,
			ensureStatementTerminated(diff.SourceDefinition))
	case types.DifferenceExtra:
		return fmt.Sprintf("DROP MATERIALIZED VIEW IF EXISTS %s CASCADE;", qname)
	case types.DifferenceModified:
		drop := fmt.Sprintf("DROP MATERIALIZED VIEW IF EXISTS %s CASCADE;", qname)
		create := fmt.Sprintf("CREATE MATERIALIZED VIEW %s AS\n%s", qname,
			ensureStatementTerminated(diff.SourceDefinition))
		return drop + "\n" + create
	}
	return ""
}

// routineStatement handles functions and procedures. The catalog reports the
// complete CREATE OR REPLACE statement as the definition, so creation and
// modification replay it verbatim.
func (g *Generator) routineStatement(diff *types.ObjectDifference, kind string) string {
	switch diff.DifferenceType {
	case types.DifferenceMissing, types.DifferenceModified:
		if diff.SourceDefinition == "" {
			return ""
		}
		return ensureStatementTerminated(diff.SourceDefinition)
	case types.DifferenceExtra:
		return fmt.Sprintf("DROP %s IF EXISTS %s;", kind,
			quoteQualified(diff.SchemaName, diff.ObjectName))
	}
	return ""
}

func (g *Generator) triggerStatement(diff *types.ObjectDifference) string {
	table := quoteParent(diff.ParentObjectName)
	name := pq.QuoteIdentifier(diff.ObjectName)

	switch diff.DifferenceType {
	case types.DifferenceMissing:
		return ensureStatementTerminated(diff.SourceDefinition)
	case types.DifferenceExtra:
		return fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s;", name, table)
	case types.DifferenceModified:
		drop := fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s;", name, table)
		create := ensureStatementTerminated(diff.SourceDefinition)
		return drop + "\n" + create
	}
	return ""
}

func (g *Generator) sequenceStatement(diff *types.ObjectDifference) string {
	qname := quoteQualified(diff.SchemaName, diff.ObjectName)

	switch diff.DifferenceType {
	case types.DifferenceMissing:
		seq := findSequence(g.source, diff.SchemaName, diff.ObjectName)
		if seq == nil {
			return fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s;", qname)
		}
		return fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START WITH %d INCREMENT BY %d;",
			qname, seq.Start, seq.Increment)
	case types.DifferenceExtra:
		return fmt.Sprintf("DROP SEQUENCE IF EXISTS %s;", qname)
	case types.DifferenceModified:
		var clauses []string
		for _, attr := range diff.Attributes {
			if attr.Source == nil {
				continue
			}
			switch attr.Name {
			case "increment":
				clauses = append(clauses, "INCREMENT BY "+*attr.Source)
			case "min_value":
				clauses = append(clauses, "MINVALUE "+*attr.Source)
			case "max_value":
				clauses = append(clauses, "MAXVALUE "+*attr.Source)
			case "start":
				clauses = append(clauses, "START WITH "+*attr.Source)
			case "cycle":
				if *attr.Source == "true" {
					clauses = append(clauses, "CYCLE")
				} else {
					clauses = append(clauses, "NO CYCLE")
				}
			case "data_type":
				clauses = append(clauses, "AS "+*attr.Source)
			}
		}
		if len(clauses) == 0 {
			return ""
		}
		return fmt.Sprintf("ALTER SEQUENCE %s %s;", qname, strings.Join(clauses, " "))
	}
	return ""
}

func (g *Generator) enumStatement(diff *types.ObjectDifference) string {
	qname := quoteQualified(diff.SchemaName, diff.ObjectName)

	switch diff.DifferenceType {
	case types.DifferenceMissing:
		if diff.SourceDefinition == "" {
			return ""
		}
		return fmt.Sprintf("CREATE TYPE %s AS %s;", qname, diff.SourceDefinition)
	case types.DifferenceExtra:
		return fmt.Sprintf("DROP TYPE IF EXISTS %s;", qname)
	case types.DifferenceModified:
		var stmts []string
		for _, attr := range diff.Attributes {
			switch {
			case attr.IsRemoved():
				stmts = append(stmts, fmt.Sprintf("ALTER TYPE %s ADD VALUE IF NOT EXISTS '%s';",
					qname, strings.ReplaceAll(*attr.Source, "'", "''")))
			case attr.IsAdded():
				stmts = append(stmts, fmt.Sprintf(
					"-- removing enum value '%s' requires recreating %s and every column using it",
					*attr.Destination, diff.QualifiedName()))
			}
		}
		return strings.Join(stmts, "\n")
	}
	return ""
}

func (g *Generator) compositeStatement(diff *types.ObjectDifference) string {
	qname := quoteQualified(diff.SchemaName, diff.ObjectName)

	switch diff.DifferenceType {
	case types.DifferenceMissing:
		ct := findComposite(g.source, diff.SchemaName, diff.ObjectName)
		if ct == nil {
			return ""
		}
		fields := make([]string, len(ct.Attributes))
		for i, a := range ct.Attributes {
			fields[i] = pq.QuoteIdentifier(a.Name) + " " + a.DataType
		}
		return fmt.Sprintf("CREATE TYPE %s AS (%s);", qname, strings.Join(fields, ", "))
	case types.DifferenceExtra:
		return fmt.Sprintf("DROP TYPE IF EXISTS %s;", qname)
	case types.DifferenceModified:
		var stmts []string
		for _, attr := range diff.Attributes {
			field := pq.QuoteIdentifier(attr.Name)
			switch {
			case attr.IsRemoved():
				stmts = append(stmts, fmt.Sprintf("ALTER TYPE %s ADD ATTRIBUTE %s %s;",
					qname, field, *attr.Source))
			case attr.IsAdded():
				stmts = append(stmts, fmt.Sprintf("ALTER TYPE %s DROP ATTRIBUTE IF EXISTS %s;",
					qname, field))
			default:
				stmts = append(stmts, fmt.Sprintf("ALTER TYPE %s ALTER ATTRIBUTE %s TYPE %s;",
					qname, field, *attr.Source))
			}
		}
		return strings.Join(stmts, "\n")
	}
	return ""
}

func (g *Generator) domainStatement(diff *types.ObjectDifference) string {
	qname := quoteQualified(diff.SchemaName, diff.ObjectName)

	switch diff.DifferenceType {
	case types.DifferenceMissing:
		d := findDomain(g.source, diff.SchemaName, diff.ObjectName)
		if d == nil {
			return ""
		}
		var b strings.Builder
		fmt.Fprintf(&b, "CREATE DOMAIN %s AS %s", qname, d.BaseType)
		if d.Default != nil {
			fmt.Fprintf(&b, " DEFAULT %s", *d.Default)
		}
		if d.NotNull {
			b.WriteString(" NOT NULL")
		}
		if d.CheckClause != "" {
			fmt.Fprintf(&b, " CHECK (%s)", d.CheckClause)
		}
		b.WriteString(";")
		return b.String()
	case types.DifferenceExtra:
		return fmt.Sprintf("DROP DOMAIN IF EXISTS %s;", qname)
	case types.DifferenceModified:
		var stmts []string
		for _, attr := range diff.Attributes {
			switch attr.Name {
			case "base_type":
				stmts = append(stmts, fmt.Sprintf(
					"-- changing the base type of %s requires dropping and recreating the domain",
					diff.QualifiedName()))
			case "not_null":
				if attr.Source != nil && *attr.Source == "true" {
					stmts = append(stmts, fmt.Sprintf("ALTER DOMAIN %s SET NOT NULL;", qname))
				} else {
					stmts = append(stmts, fmt.Sprintf("ALTER DOMAIN %s DROP NOT NULL;", qname))
				}
			case "default":
				if attr.Source == nil || *attr.Source == "" {
					stmts = append(stmts, fmt.Sprintf("ALTER DOMAIN %s DROP DEFAULT;", qname))
				} else {
					stmts = append(stmts, fmt.Sprintf("ALTER DOMAIN %s SET DEFAULT %s;", qname, *attr.Source))
				}
			case "check_clause":
				name := pq.QuoteIdentifier(diff.ObjectName + "_check")
				stmts = append(stmts, fmt.Sprintf("ALTER DOMAIN %s DROP CONSTRAINT IF EXISTS %s;", qname, name))
				if attr.Source != nil && *attr.Source != "" {
					stmts = append(stmts, fmt.Sprintf("ALTER DOMAIN %s ADD CONSTRAINT %s CHECK (%s);",
						qname, name, *attr.Source))
				}
			}
		}
		return strings.Join(stmts, "\n")
	}
	return ""
}

func (g *Generator) extensionStatement(diff *types.ObjectDifference) string {
	name := pq.QuoteIdentifier(diff.ObjectName)

	switch diff.DifferenceType {
	case types.DifferenceMissing:
		return fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s;", name)
	case types.DifferenceExtra:
		return fmt.Sprintf("DROP EXTENSION IF EXISTS %s;", name)
	case types.DifferenceModified:
		for _, attr := range diff.Attributes {
			if attr.Name == "version" && attr.Source != nil {
				return fmt.Sprintf("ALTER EXTENSION %s UPDATE TO '%s';", name, *attr.Source)
			}
		}
	}
	return ""
}

// quoteParent quotes an already-qualified "schema.table" parent reference.
func quoteParent(parent string) string {
	schema, name, found := strings.Cut(parent, ".")
	if !found {
		return pq.QuoteIdentifier(parent)
	}
	return quoteQualified(schema, name)
}

func ensureStatementTerminated(stmt string) string {
	stmt = strings.TrimRight(stmt, " \n\t")
	if stmt == "" || strings.HasSuffix(stmt, ";") {
		return stmt
	}
	return stmt + ";"
}

func findTable(snap *dbtypes.Snapshot, schema, name string) *dbtypes.Table {
	for i := range snap.Tables {
		if snap.Tables[i].Schema == schema && snap.Tables[i].Name == name {
			return &snap.Tables[i]
		}
	}
	return nil
}

func findColumn(snap *dbtypes.Snapshot, qualifiedTable, column string) *dbtypes.Column {
	schema, table, _ := strings.Cut(qualifiedTable, ".")
	t := findTable(snap, schema, table)
	if t == nil {
		return nil
	}
	for i := range t.Columns {
		if t.Columns[i].Name == column {
			return &t.Columns[i]
		}
	}
	return nil
}

func findIndex(snap *dbtypes.Snapshot, schema, name string) *dbtypes.Index {
	for i := range snap.Indexes {
		if snap.Indexes[i].Schema == schema && snap.Indexes[i].Name == name {
			return &snap.Indexes[i]
		}
	}
	return nil
}

func findSequence(snap *dbtypes.Snapshot, schema, name string) *dbtypes.Sequence {
	for i := range snap.Sequences {
		if snap.Sequences[i].Schema == schema && snap.Sequences[i].Name == name {
			return &snap.Sequences[i]
		}
	}
	return nil
}

func findComposite(snap *dbtypes.Snapshot, schema, name string) *dbtypes.CompositeType {
	for i := range snap.Composites {
		if snap.Composites[i].Schema == schema && snap.Composites[i].Name == name {
			return &snap.Composites[i]
		}
	}
	return nil
}

func findDomain(snap *dbtypes.Snapshot, schema, name string) *dbtypes.Domain {
	for i := range snap.Domains {
		if snap.Domains[i].Schema == schema && snap.Domains[i].Name == name {
			return &snap.Domains[i]
		}
	}
	return nil
}
