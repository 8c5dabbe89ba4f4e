package comparison_test

import (
	"context"
	"sort"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/sqldrift/sqldrift/comparison"
	"github.com/sqldrift/sqldrift/comparison/filter"
	"github.com/sqldrift/sqldrift/comparison/types"
	dbtypes "github.com/sqldrift/sqldrift/dbschema/types"
)

func strPtr(s string) *string {
	return &s
}

func intPtr(v int) *int {
	return &v
}

func orderSchema(statusLength int) *dbtypes.Snapshot {
	return &dbtypes.Snapshot{
		SchemaName: "public",
		Tables: []dbtypes.Table{{
			Schema: "public",
			Name:   "orders",
			Columns: []dbtypes.Column{
				{Name: "id", DataType: "bigint", Nullable: false},
				{Name: "status", DataType: "character varying",
					CharacterMaxLength: intPtr(statusLength), Nullable: false,
					Default: strPtr("'new'::character varying")},
			},
		}},
		Indexes: []dbtypes.Index{{
			Schema: "public", Table: "orders", Name: "idx_orders_status",
			Columns: []string{"status"},
			Definition: "CREATE INDEX idx_orders_status ON public.orders USING btree (status)",
		}},
	}
}

func TestCompare_IdenticalSchemas(t *testing.T) {
	c := qt.New(t)

	result, err := comparison.Compare(context.Background(), orderSchema(20), orderSchema(20))
	c.Assert(err, qt.IsNil)
	c.Assert(result.State, qt.Equals, types.RunStateSucceeded)
	c.Assert(result.IsIdentical(), qt.IsTrue)
	c.Assert(result.Summary.TotalDifferences, qt.Equals, 0)
	c.Assert(result.Summary.ObjectTypesScanned[types.ObjectTypeTable] > 0, qt.IsTrue)
}

func TestCompare_LengthWideningIsWarningNotBreaking(t *testing.T) {
	c := qt.New(t)

	result, err := comparison.Compare(context.Background(), orderSchema(20), orderSchema(50))
	c.Assert(err, qt.IsNil)
	c.Assert(result.Differences, qt.HasLen, 1)

	diff := result.Differences[0]
	c.Assert(diff.ObjectType, qt.Equals, types.ObjectTypeColumn)
	c.Assert(diff.ObjectName, qt.Equals, "status")
	c.Assert(diff.DifferenceType, qt.Equals, types.DifferenceModified)
	c.Assert(diff.Severity, qt.Equals, types.SeverityWarning)
	c.Assert(diff.Attributes, qt.HasLen, 1)
	c.Assert(diff.Attributes[0].Name, qt.Equals, "data_type")
	c.Assert(*diff.Attributes[0].Source, qt.Equals, "varchar(20)")
	c.Assert(*diff.Attributes[0].Destination, qt.Equals, "varchar(50)")
	c.Assert(diff.Attributes[0].Breaking, qt.IsFalse)

	c.Assert(result.HasBreakingChanges(), qt.IsFalse)
	c.Assert(result.Summary.Warning, qt.Equals, 1)
	c.Assert(result.Script, qt.Contains, "ALTER TABLE")
}

func TestCompare_MissingTableProducesOrderedScript(t *testing.T) {
	c := qt.New(t)

	source := orderSchema(20)
	dest := &dbtypes.Snapshot{SchemaName: "public"}

	result, err := comparison.Compare(context.Background(), source, dest)
	c.Assert(err, qt.IsNil)

	byType := make(map[types.ObjectType]*types.ObjectDifference)
	for _, diff := range result.Differences {
		byType[diff.ObjectType] = diff
	}

	table := byType[types.ObjectTypeTable]
	c.Assert(table, qt.IsNotNil)
	c.Assert(table.DifferenceType, qt.Equals, types.DifferenceMissing)
	c.Assert(table.Severity, qt.Equals, types.SeverityBreaking)
	c.Assert(table.DependentObjects, qt.Contains, "public.idx_orders_status")

	index := byType[types.ObjectTypeIndex]
	c.Assert(index, qt.IsNotNil)
	c.Assert(index.ParentObjectName, qt.Equals, "public.orders")
	c.Assert(index.GeneratedDDL, qt.Not(qt.Equals), "")
}

func TestCompareWithOptions_FilterExcludesObjectTypes(t *testing.T) {
	c := qt.New(t)

	result, err := comparison.CompareWithOptions(context.Background(), &comparison.Request{
		Source:      orderSchema(20),
		Destination: &dbtypes.Snapshot{SchemaName: "public"},
		Filter: &filter.Filter{
			ExcludedObjectTypes: []types.ObjectType{types.ObjectTypeIndex},
		},
	})
	c.Assert(err, qt.IsNil)

	for _, diff := range result.Differences {
		c.Assert(diff.ObjectType, qt.Not(qt.Equals), types.ObjectTypeIndex)
	}
	c.Assert(result.FilterDescription, qt.Contains, "exclude-types")
}

func TestCompareWithOptions_StrictFiltersRejectInvalidPattern(t *testing.T) {
	c := qt.New(t)

	_, err := comparison.CompareWithOptions(context.Background(), &comparison.Request{
		Source:      orderSchema(20),
		Destination: orderSchema(20),
		Filter: &filter.Filter{
			ExcludeTablePatterns: []string{"[invalid"},
			UseRegex:             true,
		},
		StrictFilters: true,
	})
	c.Assert(err, qt.IsNotNil)

	var engineErr *comparison.Error
	c.Assert(err, qt.ErrorAs, &engineErr)
	c.Assert(engineErr.Kind, qt.Equals, comparison.ErrInvalidFilterPattern)
}

func TestCompareWithOptions_NilSnapshotsRejected(t *testing.T) {
	c := qt.New(t)

	_, err := comparison.CompareWithOptions(context.Background(), &comparison.Request{})
	c.Assert(err, qt.IsNotNil)

	var engineErr *comparison.Error
	c.Assert(err, qt.ErrorAs, &engineErr)
	c.Assert(engineErr.Kind, qt.Equals, comparison.ErrInvalidInput)
}

func TestCompare_CanceledContextFailsRun(t *testing.T) {
	c := qt.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := comparison.Compare(ctx, orderSchema(20), orderSchema(50))
	c.Assert(err, qt.IsNotNil)

	var engineErr *comparison.Error
	c.Assert(err, qt.ErrorAs, &engineErr)
	c.Assert(engineErr.Kind, qt.Equals, comparison.ErrCanceled)

	c.Assert(result, qt.IsNotNil)
	c.Assert(result.State, qt.Equals, types.RunStateFailed)
	c.Assert(result.ErrorMessage, qt.Not(qt.Equals), "")
}

func TestCompare_MissingExtraSymmetryUnderOperandSwap(t *testing.T) {
	c := qt.New(t)

	a := orderSchema(20)
	b := &dbtypes.Snapshot{
		SchemaName: "public",
		Tables: []dbtypes.Table{{
			Schema: "public",
			Name:   "customers",
			Columns: []dbtypes.Column{
				{Name: "id", DataType: "bigint", Nullable: false},
			},
		}},
		Sequences: []dbtypes.Sequence{
			{Schema: "public", Name: "customer_seq", Start: 1, Increment: 1},
		},
	}

	forward, err := comparison.Compare(context.Background(), a, b)
	c.Assert(err, qt.IsNil)
	reverse, err := comparison.Compare(context.Background(), b, a)
	c.Assert(err, qt.IsNil)

	key := func(d *types.ObjectDifference) string {
		return string(d.ObjectType) + " " + d.QualifiedName()
	}
	collect := func(res *types.SchemaComparisonResult, dt types.DifferenceType) []string {
		var out []string
		for _, d := range res.Differences {
			if d.DifferenceType == dt {
				out = append(out, key(d))
			}
		}
		sort.Strings(out)
		return out
	}

	c.Assert(collect(forward, types.DifferenceMissing), qt.Not(qt.HasLen), 0)
	c.Assert(collect(forward, types.DifferenceMissing), qt.DeepEquals,
		collect(reverse, types.DifferenceExtra))
	c.Assert(collect(forward, types.DifferenceExtra), qt.DeepEquals,
		collect(reverse, types.DifferenceMissing))
}

func TestCompare_IndependentRunsShareNoState(t *testing.T) {
	c := qt.New(t)

	first, err := comparison.Compare(context.Background(), orderSchema(20), orderSchema(50))
	c.Assert(err, qt.IsNil)
	second, err := comparison.Compare(context.Background(), orderSchema(20), orderSchema(50))
	c.Assert(err, qt.IsNil)

	c.Assert(first.ID, qt.Not(qt.Equals), second.ID)
	c.Assert(first.Summary.TotalDifferences, qt.Equals, second.Summary.TotalDifferences)
}
