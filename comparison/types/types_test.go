package types_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/sqldrift/sqldrift/comparison/types"
)

func TestAttributeDifference_PresenceSemantics(t *testing.T) {
	c := qt.New(t)

	added := types.NewAddedAttribute("default", "now()")
	c.Assert(added.IsAdded(), qt.IsTrue)
	c.Assert(added.IsRemoved(), qt.IsFalse)
	c.Assert(added.IsModified(), qt.IsFalse)
	c.Assert(added.Source, qt.IsNil)
	c.Assert(*added.Destination, qt.Equals, "now()")

	removed := types.NewRemovedAttribute("collation", "en_US")
	c.Assert(removed.IsRemoved(), qt.IsTrue)
	c.Assert(removed.IsAdded(), qt.IsFalse)
	c.Assert(removed.Destination, qt.IsNil)

	modified := types.NewModifiedAttribute("data_type", "varchar(20)", "varchar(50)", false)
	c.Assert(modified.IsModified(), qt.IsTrue)
	c.Assert(modified.IsAdded(), qt.IsFalse)
	c.Assert(modified.IsRemoved(), qt.IsFalse)
	c.Assert(modified.Breaking, qt.IsFalse)
}

func TestAttributeDifference_EqualValuesAreNotModified(t *testing.T) {
	c := qt.New(t)

	same := types.NewModifiedAttribute("nullable", "true", "true", false)
	c.Assert(same.IsModified(), qt.IsFalse)
}

func TestObjectDifference_QualifiedName(t *testing.T) {
	c := qt.New(t)

	diff := &types.ObjectDifference{SchemaName: "public", ObjectName: "orders"}
	c.Assert(diff.QualifiedName(), qt.Equals, "public.orders")

	diff = &types.ObjectDifference{ObjectName: "orders"}
	c.Assert(diff.QualifiedName(), qt.Equals, "orders")
}

func TestObjectDifference_HasBreakingAttribute(t *testing.T) {
	c := qt.New(t)

	diff := &types.ObjectDifference{
		Attributes: []types.AttributeDifference{
			types.NewModifiedAttribute("nullable", "true", "false", false),
		},
	}
	c.Assert(diff.HasBreakingAttribute(), qt.IsFalse)

	diff.Attributes = append(diff.Attributes,
		types.NewModifiedAttribute("data_type", "varchar(50)", "int", true))
	c.Assert(diff.HasBreakingAttribute(), qt.IsTrue)
}

func TestAllObjectTypes_CoversEveryCategoryOnce(t *testing.T) {
	c := qt.New(t)

	all := types.AllObjectTypes()
	seen := make(map[types.ObjectType]int)
	for _, objectType := range all {
		seen[objectType]++
	}

	c.Assert(all, qt.HasLen, 17)
	for objectType, count := range seen {
		c.Assert(count, qt.Equals, 1, qt.Commentf("object type %s listed %d times", objectType, count))
	}
}
