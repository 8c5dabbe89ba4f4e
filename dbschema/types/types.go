// Package types defines the snapshot data model produced by catalog
// introspection readers and consumed by the comparison engine.
//
// A Snapshot is a point-in-time capture of schema object definitions. The
// engine never touches a live database: both sides of a comparison are
// snapshots that the introspection collaborator fully materialized before the
// comparison started.
package types

// Snapshot represents the complete set of object definitions read from one
// database schema at one point in time.
type Snapshot struct {
	// SchemaName is the schema the snapshot was taken from.
	SchemaName string `json:"schema_name"`

	Tables            []Table            `json:"tables"`
	Views             []View             `json:"views"`
	MaterializedViews []MaterializedView `json:"materialized_views"`
	Functions         []Function         `json:"functions"`
	Procedures        []Procedure        `json:"procedures"`
	Triggers          []Trigger          `json:"triggers"`
	Sequences         []Sequence         `json:"sequences"`
	Enums             []Enum             `json:"enums"`
	Composites        []CompositeType    `json:"composites"`
	Domains           []Domain           `json:"domains"`
	Extensions        []Extension        `json:"extensions"`
	Indexes           []Index            `json:"indexes"`
	Constraints       []Constraint       `json:"constraints"`
}

// Table represents a base table and its column definitions.
type Table struct {
	Schema  string   `json:"schema"`
	Name    string   `json:"name"`
	Comment string   `json:"comment,omitempty"`
	Columns []Column `json:"columns"`
}

// Column represents one table column.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`

	// Nullable reports whether the column accepts NULL.
	Nullable bool `json:"nullable"`

	// Default is the column default expression, nil when none is set.
	Default *string `json:"default,omitempty"`

	// Collation is the column collation, empty for the schema default.
	Collation string `json:"collation,omitempty"`

	CharacterMaxLength *int `json:"character_max_length,omitempty"`
	NumericPrecision   *int `json:"numeric_precision,omitempty"`
	NumericScale       *int `json:"numeric_scale,omitempty"`

	OrdinalPosition int `json:"ordinal_position"`

	// Identity reports SERIAL / GENERATED AS IDENTITY columns; default
	// expressions on identity columns are sequence-owned and not compared.
	Identity bool `json:"identity"`
}

// Index represents a database index. Primary key indexes are reported with
// IsPrimary set and are compared through their constraint, not here.
type Index struct {
	Schema     string   `json:"schema"`
	Table      string   `json:"table"`
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	IsUnique   bool     `json:"is_unique"`
	IsPrimary  bool     `json:"is_primary"`
	Method     string   `json:"method,omitempty"`
	Definition string   `json:"definition,omitempty"`
}

// Constraint represents a table constraint of any kind. Type is one of
// "PRIMARY KEY", "FOREIGN KEY", "UNIQUE", "CHECK".
type Constraint struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Name   string `json:"name"`
	Type   string `json:"type"`

	Columns []string `json:"columns,omitempty"`

	ForeignTable   string   `json:"foreign_table,omitempty"`
	ForeignColumns []string `json:"foreign_columns,omitempty"`
	DeleteRule     string   `json:"delete_rule,omitempty"`
	UpdateRule     string   `json:"update_rule,omitempty"`

	CheckClause string `json:"check_clause,omitempty"`

	Definition string `json:"definition,omitempty"`
}

// View represents a regular view.
type View struct {
	Schema     string `json:"schema"`
	Name       string `json:"name"`
	Definition string `json:"definition"`

	// DependsOn lists qualified names of relations the view selects from,
	// when the reader could resolve them. Consumed by the dependency
	// resolver.
	DependsOn []string `json:"depends_on,omitempty"`
}

// MaterializedView represents a materialized view.
type MaterializedView struct {
	Schema     string   `json:"schema"`
	Name       string   `json:"name"`
	Definition string   `json:"definition"`
	DependsOn  []string `json:"depends_on,omitempty"`
}

// Function represents a stored function.
type Function struct {
	Schema     string `json:"schema"`
	Name       string `json:"name"`
	Arguments  string `json:"arguments,omitempty"`
	Returns    string `json:"returns,omitempty"`
	Language   string `json:"language,omitempty"`
	Volatility string `json:"volatility,omitempty"`
	Definition string `json:"definition"`
}

// Procedure represents a stored procedure.
type Procedure struct {
	Schema     string `json:"schema"`
	Name       string `json:"name"`
	Arguments  string `json:"arguments,omitempty"`
	Language   string `json:"language,omitempty"`
	Definition string `json:"definition"`
}

// Trigger represents a table trigger.
type Trigger struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Name   string `json:"name"`

	// Timing is BEFORE, AFTER or INSTEAD OF.
	Timing string `json:"timing,omitempty"`

	// Events lists the firing events (INSERT, UPDATE, DELETE, TRUNCATE).
	Events []string `json:"events,omitempty"`

	// Function is the function invoked by the trigger.
	Function string `json:"function,omitempty"`

	Definition string `json:"definition,omitempty"`
}

// Sequence represents a standalone sequence.
type Sequence struct {
	Schema    string `json:"schema"`
	Name      string `json:"name"`
	DataType  string `json:"data_type,omitempty"`
	Start     int64  `json:"start"`
	Increment int64  `json:"increment"`
	MinValue  int64  `json:"min_value"`
	MaxValue  int64  `json:"max_value"`
	Cycle     bool   `json:"cycle"`

	// OwnedBy is the qualified table.column owning the sequence, empty for
	// free-standing sequences.
	OwnedBy string `json:"owned_by,omitempty"`
}

// Enum represents an enum type and its ordered value list.
type Enum struct {
	Schema string   `json:"schema"`
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// CompositeType represents a composite (row) type.
type CompositeType struct {
	Schema     string               `json:"schema"`
	Name       string               `json:"name"`
	Attributes []CompositeAttribute `json:"attributes"`
}

// CompositeAttribute is one field of a composite type.
type CompositeAttribute struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// Domain represents a domain type.
type Domain struct {
	Schema      string  `json:"schema"`
	Name        string  `json:"name"`
	BaseType    string  `json:"base_type"`
	NotNull     bool    `json:"not_null"`
	Default     *string `json:"default,omitempty"`
	CheckClause string  `json:"check_clause,omitempty"`
}

// Extension represents an installed extension.
type Extension struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Schema  string `json:"schema,omitempty"`
}
