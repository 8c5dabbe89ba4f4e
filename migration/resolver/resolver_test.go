package resolver_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/sqldrift/sqldrift/comparison/types"
	"github.com/sqldrift/sqldrift/migration/resolver"
)

func names(diffs []*types.ObjectDifference) []string {
	out := make([]string, len(diffs))
	for i, d := range diffs {
		out[i] = d.QualifiedName()
	}
	return out
}

func indexOf(list []string, name string) int {
	for i, v := range list {
		if v == name {
			return i
		}
	}
	return -1
}

func TestResolve_ParentsBeforeDependents(t *testing.T) {
	c := qt.New(t)

	table := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "orders",
		ObjectType: types.ObjectTypeTable, DifferenceType: types.DifferenceMissing,
	}
	index := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "idx_orders_status",
		ObjectType: types.ObjectTypeIndex, DifferenceType: types.DifferenceMissing,
		ParentObjectName: "public.orders",
	}
	fk := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "order_items_fk",
		ObjectType: types.ObjectTypeConstraintForeignKey, DifferenceType: types.DifferenceMissing,
		ParentObjectName: "public.orders",
	}

	res, err := resolver.Resolve([]*types.ObjectDifference{index, fk, table})
	c.Assert(err, qt.IsNil)
	c.Assert(res.Cyclic, qt.HasLen, 0)

	apply := names(res.ApplyOrder)
	c.Assert(apply, qt.HasLen, 3)
	c.Assert(indexOf(apply, "public.orders") < indexOf(apply, "public.idx_orders_status"), qt.IsTrue,
		qt.Commentf("apply order %v must create the table before its index", apply))
	c.Assert(indexOf(apply, "public.orders") < indexOf(apply, "public.order_items_fk"), qt.IsTrue,
		qt.Commentf("apply order %v must create the table before the foreign key", apply))

	// Teardown is the exact reverse: dependents drop first.
	teardown := names(res.TeardownOrder)
	c.Assert(indexOf(teardown, "public.idx_orders_status") < indexOf(teardown, "public.orders"), qt.IsTrue)
	c.Assert(indexOf(teardown, "public.order_items_fk") < indexOf(teardown, "public.orders"), qt.IsTrue)
	for i, name := range apply {
		c.Assert(teardown[len(teardown)-1-i], qt.Equals, name)
	}
}

func TestResolve_DependentObjectsEdges(t *testing.T) {
	c := qt.New(t)

	table := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "orders",
		ObjectType: types.ObjectTypeTable, DifferenceType: types.DifferenceExtra,
		DependentObjects: []string{"public.order_totals"},
	}
	view := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "order_totals",
		ObjectType: types.ObjectTypeView, DifferenceType: types.DifferenceExtra,
	}

	res, err := resolver.Resolve([]*types.ObjectDifference{view, table})
	c.Assert(err, qt.IsNil)

	apply := names(res.ApplyOrder)
	c.Assert(indexOf(apply, "public.orders") < indexOf(apply, "public.order_totals"), qt.IsTrue)
}

func TestResolve_DeterministicTieBreak(t *testing.T) {
	c := qt.New(t)

	diffs := []*types.ObjectDifference{
		{SchemaName: "public", ObjectName: "zeta", ObjectType: types.ObjectTypeTable},
		{SchemaName: "public", ObjectName: "alpha", ObjectType: types.ObjectTypeTable},
		{SchemaName: "public", ObjectName: "mid", ObjectType: types.ObjectTypeTable},
	}

	res, err := resolver.Resolve(diffs)
	c.Assert(err, qt.IsNil)
	c.Assert(names(res.ApplyOrder), qt.DeepEquals, []string{"public.alpha", "public.mid", "public.zeta"})
}

func TestResolve_EdgesToAbsentNodesIgnored(t *testing.T) {
	c := qt.New(t)

	// The column's table exists unchanged on both sides, so there is no
	// table node to order against.
	column := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "status",
		ObjectType: types.ObjectTypeColumn, DifferenceType: types.DifferenceMissing,
		ParentObjectName: "public.orders",
	}

	res, err := resolver.Resolve([]*types.ObjectDifference{column})
	c.Assert(err, qt.IsNil)
	c.Assert(res.ApplyOrder, qt.HasLen, 1)
}

func TestResolve_CycleIsolation(t *testing.T) {
	c := qt.New(t)

	a := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "view_a",
		ObjectType: types.ObjectTypeView, DifferenceType: types.DifferenceMissing,
		ParentObjectName: "public.view_b",
	}
	b := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "view_b",
		ObjectType: types.ObjectTypeView, DifferenceType: types.DifferenceMissing,
		ParentObjectName: "public.view_a",
	}
	standalone := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "orders",
		ObjectType: types.ObjectTypeTable, DifferenceType: types.DifferenceMissing,
	}

	res, err := resolver.Resolve([]*types.ObjectDifference{a, b, standalone})
	c.Assert(err, qt.IsNotNil)

	var cycleErr *resolver.CycleError
	c.Assert(errors.As(err, &cycleErr), qt.IsTrue)
	c.Assert(cycleErr.Members, qt.DeepEquals, []string{"public.view_a", "public.view_b"})

	// The acyclic remainder is still ordered.
	c.Assert(names(res.ApplyOrder), qt.DeepEquals, []string{"public.orders"})
	c.Assert(res.Cyclic, qt.HasLen, 2)
}

func TestResolve_Empty(t *testing.T) {
	c := qt.New(t)

	res, err := resolver.Resolve(nil)
	c.Assert(err, qt.IsNil)
	c.Assert(res.ApplyOrder, qt.HasLen, 0)
	c.Assert(res.TeardownOrder, qt.HasLen, 0)
}
