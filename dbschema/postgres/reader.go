// Package postgres reads schema snapshots from PostgreSQL catalogs.
package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/sqldrift/sqldrift/dbschema/types"
)

// Reader captures snapshots of one PostgreSQL schema.
type Reader struct {
	db     *sql.DB
	schema string
}

// NewReader creates a PostgreSQL schema reader. An empty schema defaults to
// "public".
func NewReader(db *sql.DB, schema string) *Reader {
	if schema == "" {
		schema = "public"
	}
	return &Reader{db: db, schema: schema}
}

// ReadSchema reads the complete schema snapshot. Categories are read in a
// fixed order; any failure aborts the capture so the engine never compares a
// partial snapshot.
func (r *Reader) ReadSchema() (*types.Snapshot, error) {
	snap := &types.Snapshot{SchemaName: r.schema}

	var err error
	if snap.Tables, err = r.readTables(); err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	if snap.Views, err = r.readViews(); err != nil {
		return nil, fmt.Errorf("failed to read views: %w", err)
	}
	if snap.MaterializedViews, err = r.readMaterializedViews(); err != nil {
		return nil, fmt.Errorf("failed to read materialized views: %w", err)
	}
	if snap.Functions, snap.Procedures, err = r.readRoutines(); err != nil {
		return nil, fmt.Errorf("failed to read routines: %w", err)
	}
	if snap.Triggers, err = r.readTriggers(); err != nil {
		return nil, fmt.Errorf("failed to read triggers: %w", err)
	}
	if snap.Sequences, err = r.readSequences(); err != nil {
		return nil, fmt.Errorf("failed to read sequences: %w", err)
	}
	if snap.Enums, err = r.readEnums(); err != nil {
		return nil, fmt.Errorf("failed to read enums: %w", err)
	}
	if snap.Composites, err = r.readComposites(); err != nil {
		return nil, fmt.Errorf("failed to read composite types: %w", err)
	}
	if snap.Domains, err = r.readDomains(); err != nil {
		return nil, fmt.Errorf("failed to read domains: %w", err)
	}
	if snap.Extensions, err = r.readExtensions(); err != nil {
		return nil, fmt.Errorf("failed to read extensions: %w", err)
	}
	if snap.Indexes, err = r.readIndexes(); err != nil {
		return nil, fmt.Errorf("failed to read indexes: %w", err)
	}
	if snap.Constraints, err = r.readConstraints(); err != nil {
		return nil, fmt.Errorf("failed to read constraints: %w", err)
	}

	return snap, nil
}

func (r *Reader) readTables() ([]types.Table, error) {
	query := `
		SELECT t.table_name,
		       COALESCE(obj_description(c.oid), '') AS table_comment
		FROM information_schema.tables t
		LEFT JOIN pg_class c ON c.relname = t.table_name
		LEFT JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = t.table_schema
		WHERE t.table_schema = $1 AND t.table_type = 'BASE TABLE'
		ORDER BY t.table_name`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []types.Table
	for rows.Next() {
		table := types.Table{Schema: r.schema}
		if err := rows.Scan(&table.Name, &table.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		if table.Columns, err = r.readColumns(table.Name); err != nil {
			return nil, fmt.Errorf("failed to read columns for table %s: %w", table.Name, err)
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

func (r *Reader) readColumns(tableName string) ([]types.Column, error) {
	query := `
		SELECT c.column_name,
		       c.data_type,
		       c.is_nullable = 'YES',
		       c.column_default,
		       COALESCE(c.collation_name, ''),
		       c.character_maximum_length,
		       c.numeric_precision,
		       c.numeric_scale,
		       c.ordinal_position,
		       c.is_identity = 'YES' OR c.column_default LIKE 'nextval(%'
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := r.db.Query(query, r.schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var col types.Column
		var identity sql.NullBool
		err := rows.Scan(&col.Name, &col.DataType, &col.Nullable, &col.Default,
			&col.Collation, &col.CharacterMaxLength, &col.NumericPrecision,
			&col.NumericScale, &col.OrdinalPosition, &identity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Identity = identity.Valid && identity.Bool
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (r *Reader) readViews() ([]types.View, error) {
	query := `
		SELECT table_name, COALESCE(view_definition, '')
		FROM information_schema.views
		WHERE table_schema = $1
		ORDER BY table_name`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query views: %w", err)
	}
	defer rows.Close()

	var views []types.View
	for rows.Next() {
		view := types.View{Schema: r.schema}
		if err := rows.Scan(&view.Name, &view.Definition); err != nil {
			return nil, fmt.Errorf("failed to scan view: %w", err)
		}
		if view.DependsOn, err = r.readViewDependencies(view.Name); err != nil {
			return nil, fmt.Errorf("failed to read dependencies for view %s: %w", view.Name, err)
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

// readViewDependencies resolves the relations a view selects from, qualified
// with their schema. Feeds the dependency resolver.
func (r *Reader) readViewDependencies(viewName string) ([]string, error) {
	query := `
		SELECT DISTINCT table_schema || '.' || table_name
		FROM information_schema.view_table_usage
		WHERE view_schema = $1 AND view_name = $2
		ORDER BY 1`

	rows, err := r.db.Query(query, r.schema, viewName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []string
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

func (r *Reader) readMaterializedViews() ([]types.MaterializedView, error) {
	query := `
		SELECT matviewname, COALESCE(definition, '')
		FROM pg_matviews
		WHERE schemaname = $1
		ORDER BY matviewname`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query materialized views: %w", err)
	}
	defer rows.Close()

	var views []types.MaterializedView
	for rows.Next() {
		view := types.MaterializedView{Schema: r.schema}
		if err := rows.Scan(&view.Name, &view.Definition); err != nil {
			return nil, fmt.Errorf("failed to scan materialized view: %w", err)
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

// readRoutines reads functions and procedures in one pass over pg_proc,
// splitting on prokind.
func (r *Reader) readRoutines() ([]types.Function, []types.Procedure, error) {
	query := `
		SELECT p.proname,
		       pg_get_function_arguments(p.oid),
		       COALESCE(pg_get_function_result(p.oid), ''),
		       l.lanname,
		       CASE p.provolatile WHEN 'i' THEN 'IMMUTABLE' WHEN 's' THEN 'STABLE' ELSE 'VOLATILE' END,
		       pg_get_functiondef(p.oid),
		       p.prokind
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		JOIN pg_language l ON l.oid = p.prolang
		WHERE n.nspname = $1
		  AND p.prokind IN ('f', 'p')
		  AND NOT EXISTS (
		      SELECT 1 FROM pg_depend d
		      WHERE d.objid = p.oid AND d.deptype = 'e')
		ORDER BY p.proname`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query routines: %w", err)
	}
	defer rows.Close()

	var functions []types.Function
	var procedures []types.Procedure
	for rows.Next() {
		var name, args, returns, language, volatility, definition, kind string
		err := rows.Scan(&name, &args, &returns, &language, &volatility, &definition, &kind)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan routine: %w", err)
		}
		if kind == "p" {
			procedures = append(procedures, types.Procedure{
				Schema: r.schema, Name: name, Arguments: args,
				Language: language, Definition: definition,
			})
			continue
		}
		functions = append(functions, types.Function{
			Schema: r.schema, Name: name, Arguments: args, Returns: returns,
			Language: language, Volatility: volatility, Definition: definition,
		})
	}
	return functions, procedures, rows.Err()
}

func (r *Reader) readTriggers() ([]types.Trigger, error) {
	query := `
		SELECT t.tgname,
		       c.relname,
		       CASE WHEN t.tgtype & 2 > 0 THEN 'BEFORE'
		            WHEN t.tgtype & 64 > 0 THEN 'INSTEAD OF'
		            ELSE 'AFTER' END,
		       ARRAY(SELECT e FROM unnest(ARRAY[
		           CASE WHEN t.tgtype & 4 > 0 THEN 'INSERT' END,
		           CASE WHEN t.tgtype & 8 > 0 THEN 'DELETE' END,
		           CASE WHEN t.tgtype & 16 > 0 THEN 'UPDATE' END,
		           CASE WHEN t.tgtype & 32 > 0 THEN 'TRUNCATE' END]) AS e
		           WHERE e IS NOT NULL),
		       p.proname,
		       pg_get_triggerdef(t.oid)
		FROM pg_trigger t
		JOIN pg_class c ON c.oid = t.tgrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_proc p ON p.oid = t.tgfoid
		WHERE n.nspname = $1 AND NOT t.tgisinternal
		ORDER BY c.relname, t.tgname`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}
	defer rows.Close()

	var triggers []types.Trigger
	for rows.Next() {
		trigger := types.Trigger{Schema: r.schema}
		var events string
		err := rows.Scan(&trigger.Name, &trigger.Table, &trigger.Timing,
			&events, &trigger.Function, &trigger.Definition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		trigger.Events = parseTextArray(events)
		triggers = append(triggers, trigger)
	}
	return triggers, rows.Err()
}

func (r *Reader) readSequences() ([]types.Sequence, error) {
	query := `
		SELECT s.sequencename,
		       COALESCE(s.data_type::text, 'bigint'),
		       s.start_value,
		       s.increment_by,
		       s.min_value,
		       s.max_value,
		       s.cycle,
		       COALESCE(dc.relname || '.' || da.attname, '')
		FROM pg_sequences s
		JOIN pg_class c ON c.relname = s.sequencename
		JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = s.schemaname
		LEFT JOIN pg_depend d ON d.objid = c.oid AND d.deptype = 'a'
		LEFT JOIN pg_class dc ON dc.oid = d.refobjid
		LEFT JOIN pg_attribute da ON da.attrelid = d.refobjid AND da.attnum = d.refobjsubid
		WHERE s.schemaname = $1
		ORDER BY s.sequencename`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query sequences: %w", err)
	}
	defer rows.Close()

	var sequences []types.Sequence
	for rows.Next() {
		seq := types.Sequence{Schema: r.schema}
		var ownedBy string
		err := rows.Scan(&seq.Name, &seq.DataType, &seq.Start, &seq.Increment,
			&seq.MinValue, &seq.MaxValue, &seq.Cycle, &ownedBy)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequence: %w", err)
		}
		if ownedBy != "" {
			seq.OwnedBy = r.schema + "." + ownedBy
		}
		sequences = append(sequences, seq)
	}
	return sequences, rows.Err()
}

func (r *Reader) readEnums() ([]types.Enum, error) {
	query := `
		SELECT t.typname,
		       array_agg(e.enumlabel ORDER BY e.enumsortorder)
		FROM pg_type t
		JOIN pg_enum e ON e.enumtypid = t.oid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1
		GROUP BY t.typname
		ORDER BY t.typname`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query enums: %w", err)
	}
	defer rows.Close()

	var enums []types.Enum
	for rows.Next() {
		enum := types.Enum{Schema: r.schema}
		var values string
		if err := rows.Scan(&enum.Name, &values); err != nil {
			return nil, fmt.Errorf("failed to scan enum: %w", err)
		}
		enum.Values = parseTextArray(values)
		enums = append(enums, enum)
	}
	return enums, rows.Err()
}

func (r *Reader) readComposites() ([]types.CompositeType, error) {
	query := `
		SELECT t.typname, a.attname, format_type(a.atttypid, a.atttypmod)
		FROM pg_type t
		JOIN pg_class c ON c.oid = t.typrelid AND c.relkind = 'c'
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum > 0 AND NOT a.attisdropped
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1 AND t.typtype = 'c'
		ORDER BY t.typname, a.attnum`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query composite types: %w", err)
	}
	defer rows.Close()

	var composites []types.CompositeType
	byName := make(map[string]int)
	for rows.Next() {
		var typeName string
		var attr types.CompositeAttribute
		if err := rows.Scan(&typeName, &attr.Name, &attr.DataType); err != nil {
			return nil, fmt.Errorf("failed to scan composite attribute: %w", err)
		}
		idx, ok := byName[typeName]
		if !ok {
			composites = append(composites, types.CompositeType{Schema: r.schema, Name: typeName})
			idx = len(composites) - 1
			byName[typeName] = idx
		}
		composites[idx].Attributes = append(composites[idx].Attributes, attr)
	}
	return composites, rows.Err()
}

func (r *Reader) readDomains() ([]types.Domain, error) {
	query := `
		SELECT t.typname,
		       format_type(t.typbasetype, t.typtypmod),
		       t.typnotnull,
		       t.typdefault,
		       COALESCE((SELECT pg_get_constraintdef(c.oid)
		                 FROM pg_constraint c
		                 WHERE c.contypid = t.oid
		                 LIMIT 1), '')
		FROM pg_type t
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1 AND t.typtype = 'd'
		ORDER BY t.typname`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query domains: %w", err)
	}
	defer rows.Close()

	var domains []types.Domain
	for rows.Next() {
		domain := types.Domain{Schema: r.schema}
		var check string
		err := rows.Scan(&domain.Name, &domain.BaseType, &domain.NotNull, &domain.Default, &check)
		if err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domain.CheckClause = stripCheckWrapper(check)
		domains = append(domains, domain)
	}
	return domains, rows.Err()
}

func (r *Reader) readExtensions() ([]types.Extension, error) {
	query := `
		SELECT e.extname, e.extversion, n.nspname
		FROM pg_extension e
		JOIN pg_namespace n ON n.oid = e.extnamespace
		ORDER BY e.extname`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query extensions: %w", err)
	}
	defer rows.Close()

	var extensions []types.Extension
	for rows.Next() {
		var ext types.Extension
		if err := rows.Scan(&ext.Name, &ext.Version, &ext.Schema); err != nil {
			return nil, fmt.Errorf("failed to scan extension: %w", err)
		}
		extensions = append(extensions, ext)
	}
	return extensions, rows.Err()
}

func (r *Reader) readIndexes() ([]types.Index, error) {
	query := `
		SELECT ic.relname,
		       tc.relname,
		       ix.indisunique,
		       ix.indisprimary,
		       am.amname,
		       pg_get_indexdef(ix.indexrelid),
		       ARRAY(SELECT pg_get_indexdef(ix.indexrelid, k + 1, true)
		             FROM generate_subscripts(ix.indkey, 1) AS k
		             ORDER BY k)
		FROM pg_index ix
		JOIN pg_class ic ON ic.oid = ix.indexrelid
		JOIN pg_class tc ON tc.oid = ix.indrelid
		JOIN pg_am am ON am.oid = ic.relam
		JOIN pg_namespace n ON n.oid = tc.relnamespace
		WHERE n.nspname = $1
		ORDER BY tc.relname, ic.relname`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	var indexes []types.Index
	for rows.Next() {
		idx := types.Index{Schema: r.schema}
		var columns string
		err := rows.Scan(&idx.Name, &idx.Table, &idx.IsUnique, &idx.IsPrimary,
			&idx.Method, &idx.Definition, &columns)
		if err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		idx.Columns = parseTextArray(columns)
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (r *Reader) readConstraints() ([]types.Constraint, error) {
	query := `
		SELECT c.conname,
		       tc.relname,
		       CASE c.contype WHEN 'p' THEN 'PRIMARY KEY' WHEN 'f' THEN 'FOREIGN KEY'
		                      WHEN 'u' THEN 'UNIQUE' WHEN 'c' THEN 'CHECK'
		                      ELSE upper(c.contype::text) END,
		       ARRAY(SELECT a.attname FROM unnest(c.conkey) WITH ORDINALITY AS k(attnum, ord)
		             JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
		             ORDER BY k.ord),
		       COALESCE(fc.relname, ''),
		       ARRAY(SELECT a.attname FROM unnest(c.confkey) WITH ORDINALITY AS k(attnum, ord)
		             JOIN pg_attribute a ON a.attrelid = c.confrelid AND a.attnum = k.attnum
		             ORDER BY k.ord),
		       CASE c.confdeltype WHEN 'c' THEN 'CASCADE' WHEN 'n' THEN 'SET NULL'
		                          WHEN 'd' THEN 'SET DEFAULT' WHEN 'r' THEN 'RESTRICT'
		                          WHEN 'a' THEN 'NO ACTION' ELSE '' END,
		       CASE c.confupdtype WHEN 'c' THEN 'CASCADE' WHEN 'n' THEN 'SET NULL'
		                          WHEN 'd' THEN 'SET DEFAULT' WHEN 'r' THEN 'RESTRICT'
		                          WHEN 'a' THEN 'NO ACTION' ELSE '' END,
		       pg_get_constraintdef(c.oid)
		FROM pg_constraint c
		JOIN pg_class tc ON tc.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = tc.relnamespace
		WHERE n.nspname = $1 AND c.contype IN ('p', 'f', 'u', 'c')
		ORDER BY tc.relname, c.conname`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query constraints: %w", err)
	}
	defer rows.Close()

	var constraints []types.Constraint
	for rows.Next() {
		con := types.Constraint{Schema: r.schema}
		var columns, foreignColumns string
		err := rows.Scan(&con.Name, &con.Table, &con.Type, &columns,
			&con.ForeignTable, &foreignColumns, &con.DeleteRule, &con.UpdateRule,
			&con.Definition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan constraint: %w", err)
		}
		con.Columns = parseTextArray(columns)
		con.ForeignColumns = parseTextArray(foreignColumns)
		if con.Type == "CHECK" {
			con.CheckClause = stripCheckWrapper(con.Definition)
		}
		constraints = append(constraints, con)
	}
	return constraints, rows.Err()
}

// parseTextArray decodes a one-dimensional text array literal like
// {INSERT,UPDATE} into its elements. Good enough for identifier and keyword
// arrays, which never contain braces or escaped quotes.
func parseTextArray(s string) []string {
	s = strings.Trim(s, "{}")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stripCheckWrapper unwraps "CHECK ((expr))" into "expr". Only layers where
// the leading and trailing parentheses form one matching pair are removed, so
// compound clauses like "((a > 0) AND (b > 0))" keep their inner grouping.
func stripCheckWrapper(def string) string {
	s := strings.TrimSpace(def)
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "CHECK") {
		s = strings.TrimSpace(s[len("CHECK"):])
	}
	for isParenWrapped(s) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// isParenWrapped reports whether the leading "(" closes at the final ")".
func isParenWrapped(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i == len(s)-1
			}
		}
	}
	return false
}
