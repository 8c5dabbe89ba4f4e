// Package mysql reads schema snapshots from MySQL and MariaDB databases.
//
// MySQL has no schema/database distinction, so the snapshot schema is the
// database named in the connection URL. Categories PostgreSQL supports but
// MySQL lacks (extensions, domains, composite types, standalone enum types,
// materialized views) come back empty and simply never produce differences.
package mysql

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/sqldrift/sqldrift/dbschema/types"
)

// Reader captures snapshots of one MySQL database.
type Reader struct {
	db     *sql.DB
	schema string
}

// NewReader creates a MySQL schema reader.
func NewReader(db *sql.DB, schema string) *Reader {
	return &Reader{db: db, schema: schema}
}

// ReadSchema reads the complete schema snapshot.
func (r *Reader) ReadSchema() (*types.Snapshot, error) {
	snap := &types.Snapshot{SchemaName: r.schema}

	var err error
	if snap.Tables, err = r.readTables(); err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	if snap.Views, err = r.readViews(); err != nil {
		return nil, fmt.Errorf("failed to read views: %w", err)
	}
	if snap.Functions, snap.Procedures, err = r.readRoutines(); err != nil {
		return nil, fmt.Errorf("failed to read routines: %w", err)
	}
	if snap.Triggers, err = r.readTriggers(); err != nil {
		return nil, fmt.Errorf("failed to read triggers: %w", err)
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
		SELECT TABLE_NAME, COALESCE(TABLE_COMMENT, '')
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

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
		SELECT COLUMN_NAME,
		       DATA_TYPE,
		       IS_NULLABLE = 'YES',
		       COLUMN_DEFAULT,
		       COALESCE(COLLATION_NAME, ''),
		       CHARACTER_MAXIMUM_LENGTH,
		       NUMERIC_PRECISION,
		       NUMERIC_SCALE,
		       ORDINAL_POSITION,
		       EXTRA LIKE '%auto_increment%'
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

	rows, err := r.db.Query(query, r.schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var col types.Column
		err := rows.Scan(&col.Name, &col.DataType, &col.Nullable, &col.Default,
			&col.Collation, &col.CharacterMaxLength, &col.NumericPrecision,
			&col.NumericScale, &col.OrdinalPosition, &col.Identity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (r *Reader) readViews() ([]types.View, error) {
	query := `
		SELECT TABLE_NAME, COALESCE(VIEW_DEFINITION, '')
		FROM information_schema.VIEWS
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME`

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
		views = append(views, view)
	}
	return views, rows.Err()
}

func (r *Reader) readRoutines() ([]types.Function, []types.Procedure, error) {
	query := `
		SELECT ROUTINE_NAME,
		       ROUTINE_TYPE,
		       COALESCE(DTD_IDENTIFIER, ''),
		       COALESCE(ROUTINE_DEFINITION, '')
		FROM information_schema.ROUTINES
		WHERE ROUTINE_SCHEMA = ?
		ORDER BY ROUTINE_NAME`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query routines: %w", err)
	}
	defer rows.Close()

	var functions []types.Function
	var procedures []types.Procedure
	for rows.Next() {
		var name, kind, returns, definition string
		if err := rows.Scan(&name, &kind, &returns, &definition); err != nil {
			return nil, nil, fmt.Errorf("failed to scan routine: %w", err)
		}
		if kind == "PROCEDURE" {
			procedures = append(procedures, types.Procedure{
				Schema: r.schema, Name: name, Language: "SQL", Definition: definition,
			})
			continue
		}
		functions = append(functions, types.Function{
			Schema: r.schema, Name: name, Returns: returns,
			Language: "SQL", Definition: definition,
		})
	}
	return functions, procedures, rows.Err()
}

func (r *Reader) readTriggers() ([]types.Trigger, error) {
	query := `
		SELECT TRIGGER_NAME,
		       EVENT_OBJECT_TABLE,
		       ACTION_TIMING,
		       EVENT_MANIPULATION,
		       COALESCE(ACTION_STATEMENT, '')
		FROM information_schema.TRIGGERS
		WHERE TRIGGER_SCHEMA = ?
		ORDER BY EVENT_OBJECT_TABLE, TRIGGER_NAME`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}
	defer rows.Close()

	var triggers []types.Trigger
	for rows.Next() {
		trigger := types.Trigger{Schema: r.schema}
		var event string
		err := rows.Scan(&trigger.Name, &trigger.Table, &trigger.Timing, &event, &trigger.Definition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		trigger.Events = []string{event}
		triggers = append(triggers, trigger)
	}
	return triggers, rows.Err()
}

func (r *Reader) readIndexes() ([]types.Index, error) {
	query := `
		SELECT INDEX_NAME,
		       TABLE_NAME,
		       MAX(NON_UNIQUE) = 0,
		       INDEX_NAME = 'PRIMARY',
		       COALESCE(MIN(INDEX_TYPE), ''),
		       GROUP_CONCAT(COLUMN_NAME ORDER BY SEQ_IN_INDEX)
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ?
		GROUP BY TABLE_NAME, INDEX_NAME
		ORDER BY TABLE_NAME, INDEX_NAME`

	rows, err := r.db.Query(query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	var indexes []types.Index
	for rows.Next() {
		idx := types.Index{Schema: r.schema}
		var columns string
		err := rows.Scan(&idx.Name, &idx.Table, &idx.IsUnique, &idx.IsPrimary, &idx.Method, &columns)
		if err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		idx.Columns = strings.Split(columns, ",")
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (r *Reader) readConstraints() ([]types.Constraint, error) {
	query := `
		SELECT tc.CONSTRAINT_NAME,
		       tc.TABLE_NAME,
		       tc.CONSTRAINT_TYPE,
		       COALESCE(GROUP_CONCAT(kcu.COLUMN_NAME ORDER BY kcu.ORDINAL_POSITION), ''),
		       COALESCE(MIN(kcu.REFERENCED_TABLE_NAME), ''),
		       COALESCE(GROUP_CONCAT(kcu.REFERENCED_COLUMN_NAME ORDER BY kcu.ORDINAL_POSITION), ''),
		       COALESCE(MIN(rc.DELETE_RULE), ''),
		       COALESCE(MIN(rc.UPDATE_RULE), '')
		FROM information_schema.TABLE_CONSTRAINTS tc
		LEFT JOIN information_schema.KEY_COLUMN_USAGE kcu
		       ON kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
		      AND kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
		      AND kcu.TABLE_NAME = tc.TABLE_NAME
		LEFT JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
		       ON rc.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
		      AND rc.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
		WHERE tc.TABLE_SCHEMA = ?
		GROUP BY tc.TABLE_NAME, tc.CONSTRAINT_NAME, tc.CONSTRAINT_TYPE
		ORDER BY tc.TABLE_NAME, tc.CONSTRAINT_NAME`

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
			&con.ForeignTable, &foreignColumns, &con.DeleteRule, &con.UpdateRule)
		if err != nil {
			return nil, fmt.Errorf("failed to scan constraint: %w", err)
		}
		if columns != "" {
			con.Columns = strings.Split(columns, ",")
		}
		if foreignColumns != "" {
			con.ForeignColumns = strings.Split(foreignColumns, ",")
		}
		constraints = append(constraints, con)
	}
	return constraints, rows.Err()
}
