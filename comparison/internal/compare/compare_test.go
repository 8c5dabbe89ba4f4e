package compare_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/sqldrift/sqldrift/comparison/filter"
	"github.com/sqldrift/sqldrift/comparison/internal/compare"
	"github.com/sqldrift/sqldrift/comparison/types"
	"github.com/sqldrift/sqldrift/config"
	dbtypes "github.com/sqldrift/sqldrift/dbschema/types"
)

// collect runs one comparator over the two snapshots with no filtering and
// returns the emitted differences.
func collect(t *testing.T, src, dst *dbtypes.Snapshot, run func(*compare.Input) int) []*types.ObjectDifference {
	t.Helper()
	var diffs []*types.ObjectDifference
	run(&compare.Input{
		Source:      src,
		Destination: dst,
		Filter:      filter.None(),
		Options:     config.DefaultCompareOptions(),
		Emit:        func(d *types.ObjectDifference) { diffs = append(diffs, d) },
	})
	return diffs
}

func strPtr(s string) *string {
	return &s
}

func TestTables_MissingAndExtra(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{
		SchemaName: "public",
		Tables: []dbtypes.Table{
			{Schema: "public", Name: "orders"},
			{Schema: "public", Name: "users"},
		},
	}
	dst := &dbtypes.Snapshot{
		SchemaName: "public",
		Tables: []dbtypes.Table{
			{Schema: "public", Name: "users"},
			{Schema: "public", Name: "users_legacy"},
		},
	}

	diffs := collect(t, src, dst, compare.Tables)
	c.Assert(diffs, qt.HasLen, 2)

	c.Assert(diffs[0].ObjectName, qt.Equals, "orders")
	c.Assert(diffs[0].DifferenceType, qt.Equals, types.DifferenceMissing)
	c.Assert(diffs[1].ObjectName, qt.Equals, "users_legacy")
	c.Assert(diffs[1].DifferenceType, qt.Equals, types.DifferenceExtra)
}

func TestTables_ColumnModifications(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{
		SchemaName: "public",
		Tables: []dbtypes.Table{{
			Schema: "public",
			Name:   "orders",
			Columns: []dbtypes.Column{
				{Name: "id", DataType: "bigint", Nullable: false},
				{Name: "status", DataType: "character varying", CharacterMaxLength: intPtr(20), Nullable: false},
				{Name: "note", DataType: "text", Nullable: true},
			},
		}},
	}
	dst := &dbtypes.Snapshot{
		SchemaName: "public",
		Tables: []dbtypes.Table{{
			Schema: "public",
			Name:   "orders",
			Columns: []dbtypes.Column{
				{Name: "id", DataType: "bigint", Nullable: false},
				{Name: "status", DataType: "character varying", CharacterMaxLength: intPtr(50), Nullable: false},
				{Name: "legacy_flag", DataType: "boolean", Nullable: true},
			},
		}},
	}

	diffs := collect(t, src, dst, compare.Tables)
	c.Assert(diffs, qt.HasLen, 3)

	byName := make(map[string]*types.ObjectDifference)
	for _, d := range diffs {
		byName[d.ObjectName] = d
		c.Assert(d.ObjectType, qt.Equals, types.ObjectTypeColumn)
		c.Assert(d.ParentObjectName, qt.Equals, "public.orders")
	}

	// Length widening inside the varchar family: modified, not breaking.
	status := byName["status"]
	c.Assert(status.DifferenceType, qt.Equals, types.DifferenceModified)
	c.Assert(status.Attributes, qt.HasLen, 1)
	c.Assert(status.Attributes[0].Name, qt.Equals, "data_type")
	c.Assert(*status.Attributes[0].Source, qt.Equals, "varchar(20)")
	c.Assert(*status.Attributes[0].Destination, qt.Equals, "varchar(50)")
	c.Assert(status.Attributes[0].Breaking, qt.IsFalse)

	c.Assert(byName["note"].DifferenceType, qt.Equals, types.DifferenceMissing)
	c.Assert(byName["legacy_flag"].DifferenceType, qt.Equals, types.DifferenceExtra)
}

func TestTables_TypeFamilyChangeIsBreaking(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Tables: []dbtypes.Table{{
		Schema: "public", Name: "t",
		Columns: []dbtypes.Column{{Name: "v", DataType: "character varying", CharacterMaxLength: intPtr(50)}},
	}}}
	dst := &dbtypes.Snapshot{Tables: []dbtypes.Table{{
		Schema: "public", Name: "t",
		Columns: []dbtypes.Column{{Name: "v", DataType: "integer"}},
	}}}

	diffs := collect(t, src, dst, compare.Tables)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].Attributes[0].Breaking, qt.IsTrue)
}

func TestTables_IdentityDefaultsNotCompared(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Tables: []dbtypes.Table{{
		Schema: "public", Name: "t",
		Columns: []dbtypes.Column{{Name: "id", DataType: "bigint", Identity: true,
			Default: strPtr("nextval('t_id_seq'::regclass)")}},
	}}}
	dst := &dbtypes.Snapshot{Tables: []dbtypes.Table{{
		Schema: "public", Name: "t",
		Columns: []dbtypes.Column{{Name: "id", DataType: "bigint", Identity: true}},
	}}}

	c.Assert(collect(t, src, dst, compare.Tables), qt.HasLen, 0)
}

func TestTables_FilterGatesTables(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Tables: []dbtypes.Table{
		{Schema: "public", Name: "orders"},
		{Schema: "public", Name: "temp_orders"},
	}}
	dst := &dbtypes.Snapshot{}

	var diffs []*types.ObjectDifference
	compare.Tables(&compare.Input{
		Source:      src,
		Destination: dst,
		Filter:      filter.ExcludeTempTables(),
		Options:     config.DefaultCompareOptions(),
		Emit:        func(d *types.ObjectDifference) { diffs = append(diffs, d) },
	})

	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].ObjectName, qt.Equals, "orders")
}

func TestTables_DependentObjects(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{
		Tables: []dbtypes.Table{{Schema: "public", Name: "orders"}},
		Indexes: []dbtypes.Index{
			{Schema: "public", Table: "orders", Name: "idx_orders_status"},
		},
		Constraints: []dbtypes.Constraint{
			{Schema: "public", Table: "orders", Name: "orders_pkey", Type: "PRIMARY KEY"},
			{Schema: "public", Table: "order_items", Name: "order_items_order_fk",
				Type: "FOREIGN KEY", ForeignTable: "orders"},
		},
		Views: []dbtypes.View{
			{Schema: "public", Name: "order_totals", DependsOn: []string{"public.orders"}},
		},
	}
	dst := &dbtypes.Snapshot{}

	diffs := collect(t, src, dst, compare.Tables)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].DependentObjects, qt.DeepEquals, []string{
		"public.idx_orders_status",
		"public.order_items_order_fk",
		"public.order_totals",
		"public.orders_pkey",
	})
}

func TestConstraints_SplitByKind(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Constraints: []dbtypes.Constraint{
		{Schema: "public", Table: "orders", Name: "orders_pkey", Type: "PRIMARY KEY", Columns: []string{"id"}},
		{Schema: "public", Table: "orders", Name: "orders_user_fk", Type: "FOREIGN KEY",
			Columns: []string{"user_id"}, ForeignTable: "users", ForeignColumns: []string{"id"}},
	}}
	dst := &dbtypes.Snapshot{Constraints: []dbtypes.Constraint{
		{Schema: "public", Table: "orders", Name: "orders_status_chk", Type: "CHECK",
			CheckClause: "status <> ''"},
	}}

	diffs := collect(t, src, dst, compare.Constraints)
	c.Assert(diffs, qt.HasLen, 3)

	kinds := make(map[types.ObjectType]types.DifferenceType)
	for _, d := range diffs {
		kinds[d.ObjectType] = d.DifferenceType
		c.Assert(d.ParentObjectName, qt.Equals, "public.orders")
	}
	c.Assert(kinds[types.ObjectTypeConstraintPrimaryKey], qt.Equals, types.DifferenceMissing)
	c.Assert(kinds[types.ObjectTypeConstraintForeignKey], qt.Equals, types.DifferenceMissing)
	c.Assert(kinds[types.ObjectTypeConstraintCheck], qt.Equals, types.DifferenceExtra)
}

func TestConstraints_UnsupportedTypeSkipped(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Constraints: []dbtypes.Constraint{
		{Schema: "public", Table: "orders", Name: "odd", Type: "EXCLUSION"},
	}}

	c.Assert(collect(t, src, &dbtypes.Snapshot{}, compare.Constraints), qt.HasLen, 0)
}

func TestConstraints_RuleModification(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Constraints: []dbtypes.Constraint{
		{Schema: "public", Table: "orders", Name: "fk", Type: "FOREIGN KEY",
			Columns: []string{"user_id"}, ForeignTable: "users", DeleteRule: "CASCADE"},
	}}
	dst := &dbtypes.Snapshot{Constraints: []dbtypes.Constraint{
		{Schema: "public", Table: "orders", Name: "fk", Type: "FOREIGN KEY",
			Columns: []string{"user_id"}, ForeignTable: "users", DeleteRule: "NO ACTION"},
	}}

	diffs := collect(t, src, dst, compare.Constraints)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].DifferenceType, qt.Equals, types.DifferenceModified)
	c.Assert(diffs[0].Attributes, qt.HasLen, 1)
	c.Assert(diffs[0].Attributes[0].Name, qt.Equals, "delete_rule")
	c.Assert(*diffs[0].Attributes[0].Source, qt.Equals, "CASCADE")
}

func TestIndexes_PrimaryIndexesSkipped(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Indexes: []dbtypes.Index{
		{Schema: "public", Table: "orders", Name: "orders_pkey", IsPrimary: true},
		{Schema: "public", Table: "orders", Name: "idx_status", Columns: []string{"status"}},
	}}

	diffs := collect(t, src, &dbtypes.Snapshot{}, compare.Indexes)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].ObjectName, qt.Equals, "idx_status")
	c.Assert(diffs[0].ParentObjectName, qt.Equals, "public.orders")
}

func TestIndexes_UniquenessChange(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Indexes: []dbtypes.Index{
		{Schema: "public", Table: "t", Name: "idx", Columns: []string{"a"}, IsUnique: true},
	}}
	dst := &dbtypes.Snapshot{Indexes: []dbtypes.Index{
		{Schema: "public", Table: "t", Name: "idx", Columns: []string{"a"}, IsUnique: false},
	}}

	diffs := collect(t, src, dst, compare.Indexes)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].Attributes, qt.HasLen, 1)
	c.Assert(diffs[0].Attributes[0].Name, qt.Equals, "unique")
}

func TestViews_WhitespaceOnlyChangesAreEqual(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Views: []dbtypes.View{
		{Schema: "public", Name: "v", Definition: "SELECT  id\nFROM users;"},
	}}
	dst := &dbtypes.Snapshot{Views: []dbtypes.View{
		{Schema: "public", Name: "v", Definition: "select id from users"},
	}}

	c.Assert(collect(t, src, dst, compare.Views), qt.HasLen, 0)
}

func TestViews_BodyChangeIsSingleBreakingAttribute(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Views: []dbtypes.View{
		{Schema: "public", Name: "v", Definition: "SELECT id FROM users"},
	}}
	dst := &dbtypes.Snapshot{Views: []dbtypes.View{
		{Schema: "public", Name: "v", Definition: "SELECT id, email FROM users"},
	}}

	diffs := collect(t, src, dst, compare.Views)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].DifferenceType, qt.Equals, types.DifferenceModified)
	c.Assert(diffs[0].Attributes, qt.HasLen, 1)
	c.Assert(diffs[0].Attributes[0].Name, qt.Equals, "definition")
	c.Assert(diffs[0].Attributes[0].Breaking, qt.IsTrue)
}

func TestFunctions_OverloadsCompareIndependently(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Functions: []dbtypes.Function{
		{Schema: "public", Name: "f", Arguments: "integer", Definition: "body-a"},
		{Schema: "public", Name: "f", Arguments: "text", Definition: "body-b"},
	}}
	dst := &dbtypes.Snapshot{Functions: []dbtypes.Function{
		{Schema: "public", Name: "f", Arguments: "integer", Definition: "body-a"},
	}}

	diffs := collect(t, src, dst, compare.Functions)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].DifferenceType, qt.Equals, types.DifferenceMissing)
	c.Assert(diffs[0].SourceDefinition, qt.Equals, "body-b")
}

func TestTriggers_StructuralAttributes(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Triggers: []dbtypes.Trigger{
		{Schema: "public", Table: "orders", Name: "audit", Timing: "AFTER",
			Events: []string{"INSERT", "UPDATE"}, Function: "log_change"},
	}}
	dst := &dbtypes.Snapshot{Triggers: []dbtypes.Trigger{
		{Schema: "public", Table: "orders", Name: "audit", Timing: "BEFORE",
			Events: []string{"INSERT"}, Function: "log_change"},
	}}

	diffs := collect(t, src, dst, compare.Triggers)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].ParentObjectName, qt.Equals, "public.orders")
	c.Assert(diffs[0].Attributes, qt.HasLen, 2)
	c.Assert(diffs[0].HasBreakingAttribute(), qt.IsFalse)
}

func TestEnums_ValueDiffing(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Enums: []dbtypes.Enum{
		{Schema: "public", Name: "status", Values: []string{"new", "active", "closed"}},
	}}
	dst := &dbtypes.Snapshot{Enums: []dbtypes.Enum{
		{Schema: "public", Name: "status", Values: []string{"new", "active", "archived"}},
	}}

	diffs := collect(t, src, dst, compare.Enums)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].Attributes, qt.HasLen, 2)

	// "closed" is absent on the destination: addable in place.
	c.Assert(diffs[0].Attributes[0].IsRemoved(), qt.IsTrue)
	c.Assert(diffs[0].Attributes[0].Breaking, qt.IsFalse)

	// "archived" exists only on the destination: removal needs a recreate.
	c.Assert(diffs[0].Attributes[1].IsAdded(), qt.IsTrue)
	c.Assert(diffs[0].Attributes[1].Breaking, qt.IsTrue)
}

func TestSequences_OwnershipAndAttributes(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Sequences: []dbtypes.Sequence{
		{Schema: "public", Name: "order_seq", Start: 1, Increment: 1,
			MinValue: 1, MaxValue: 1000, OwnedBy: "public.orders.id"},
	}}
	dst := &dbtypes.Snapshot{Sequences: []dbtypes.Sequence{
		{Schema: "public", Name: "order_seq", Start: 1, Increment: 10,
			MinValue: 1, MaxValue: 1000, OwnedBy: "public.orders.id"},
	}}

	diffs := collect(t, src, dst, compare.Sequences)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].ParentObjectName, qt.Equals, "public.orders")
	c.Assert(diffs[0].Attributes, qt.HasLen, 1)
	c.Assert(diffs[0].Attributes[0].Name, qt.Equals, "increment")
}

func TestExtensions_IgnoreList(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Extensions: []dbtypes.Extension{
		{Name: "plpgsql", Version: "1.0"},
		{Name: "pg_trgm", Version: "1.6"},
	}}
	dst := &dbtypes.Snapshot{Extensions: []dbtypes.Extension{
		{Name: "plpgsql", Version: "1.0"},
	}}

	diffs := collect(t, src, dst, compare.Extensions)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].ObjectName, qt.Equals, "pg_trgm")
	c.Assert(diffs[0].DifferenceType, qt.Equals, types.DifferenceMissing)
}

func TestDomains_BaseTypeFamilyChange(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Domains: []dbtypes.Domain{
		{Schema: "public", Name: "email", BaseType: "character varying(255)", NotNull: true},
	}}
	dst := &dbtypes.Snapshot{Domains: []dbtypes.Domain{
		{Schema: "public", Name: "email", BaseType: "text", NotNull: false},
	}}

	diffs := collect(t, src, dst, compare.Domains)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].Attributes, qt.HasLen, 2)
	c.Assert(diffs[0].Attributes[0].Name, qt.Equals, "base_type")
	c.Assert(diffs[0].Attributes[0].Breaking, qt.IsTrue)
	c.Assert(diffs[0].Attributes[1].Name, qt.Equals, "not_null")
	c.Assert(diffs[0].Attributes[1].Breaking, qt.IsFalse)
}

func TestComposites_AttributeDiffing(t *testing.T) {
	c := qt.New(t)

	src := &dbtypes.Snapshot{Composites: []dbtypes.CompositeType{
		{Schema: "public", Name: "addr", Attributes: []dbtypes.CompositeAttribute{
			{Name: "street", DataType: "text"},
			{Name: "zip", DataType: "varchar(10)"},
		}},
	}}
	dst := &dbtypes.Snapshot{Composites: []dbtypes.CompositeType{
		{Schema: "public", Name: "addr", Attributes: []dbtypes.CompositeAttribute{
			{Name: "street", DataType: "text"},
			{Name: "country", DataType: "text"},
		}},
	}}

	diffs := collect(t, src, dst, compare.Composites)
	c.Assert(diffs, qt.HasLen, 1)
	c.Assert(diffs[0].Attributes, qt.HasLen, 2)
}

func intPtr(v int) *int {
	return &v
}
