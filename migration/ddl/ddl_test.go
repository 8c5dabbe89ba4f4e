package ddl_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/go-extras/go-kit/must"

	"github.com/sqldrift/sqldrift/comparison/types"
	dbtypes "github.com/sqldrift/sqldrift/dbschema/types"
	"github.com/sqldrift/sqldrift/migration/ddl"
	"github.com/sqldrift/sqldrift/migration/resolver"
)

func strPtr(s string) *string {
	return &s
}

func sourceSnapshot() *dbtypes.Snapshot {
	return &dbtypes.Snapshot{
		SchemaName: "public",
		Tables: []dbtypes.Table{{
			Schema: "public",
			Name:   "orders",
			Columns: []dbtypes.Column{
				{Name: "id", DataType: "bigint", Nullable: false},
				{Name: "status", DataType: "varchar(20)", Nullable: false, Default: strPtr("'new'")},
			},
		}},
		Sequences: []dbtypes.Sequence{
			{Schema: "public", Name: "order_seq", Start: 100, Increment: 5},
		},
	}
}

func TestGenerate_CreateTable(t *testing.T) {
	c := qt.New(t)

	gen := ddl.NewGenerator(sourceSnapshot(), &dbtypes.Snapshot{})
	diff := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "orders",
		ObjectType:     types.ObjectTypeTable,
		DifferenceType: types.DifferenceMissing,
		Severity:       types.SeverityBreaking,
	}

	stmt := gen.Generate(diff)
	c.Assert(diff.GeneratedDDL, qt.Equals, stmt)

	// Breaking differences are commented out behind the review banner but
	// the full statement is still present.
	c.Assert(stmt, qt.Contains, "WARNING: breaking change")
	c.Assert(stmt, qt.Contains, `-- CREATE TABLE IF NOT EXISTS "public"."orders" (`)
	c.Assert(stmt, qt.Contains, `"status" varchar(20) NOT NULL DEFAULT 'new'`)
	for _, line := range strings.Split(stmt, "\n") {
		c.Assert(strings.HasPrefix(line, "--"), qt.IsTrue,
			qt.Commentf("breaking output must be fully commented, got line %q", line))
	}
}

func TestGenerate_DropExtraTableAlwaysCommented(t *testing.T) {
	c := qt.New(t)

	gen := ddl.NewGenerator(&dbtypes.Snapshot{}, &dbtypes.Snapshot{})
	diff := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "users_legacy",
		ObjectType:     types.ObjectTypeTable,
		DifferenceType: types.DifferenceExtra,
		Severity:       types.SeverityInfo,
	}

	stmt := gen.Generate(diff)
	c.Assert(stmt, qt.Contains, "WARNING: breaking change")
	c.Assert(stmt, qt.Contains, `-- DROP TABLE IF EXISTS "public"."users_legacy" CASCADE;`)
}

func TestGenerate_AlterColumn(t *testing.T) {
	c := qt.New(t)

	gen := ddl.NewGenerator(sourceSnapshot(), &dbtypes.Snapshot{})
	diff := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "status",
		ObjectType:       types.ObjectTypeColumn,
		DifferenceType:   types.DifferenceModified,
		Severity:         types.SeverityWarning,
		ParentObjectName: "public.orders",
		Attributes: []types.AttributeDifference{
			types.NewModifiedAttribute("data_type", "varchar(20)", "varchar(50)", false),
			types.NewModifiedAttribute("nullable", "false", "true", false),
		},
	}

	stmt := gen.Generate(diff)
	c.Assert(stmt, qt.Contains, `ALTER TABLE "public"."orders" ALTER COLUMN "status" TYPE varchar(20);`)
	c.Assert(stmt, qt.Contains, `ALTER TABLE "public"."orders" ALTER COLUMN "status" SET NOT NULL;`)
	c.Assert(stmt, qt.Not(qt.Contains), "WARNING")
}

func TestGenerate_AddMissingColumn(t *testing.T) {
	c := qt.New(t)

	gen := ddl.NewGenerator(sourceSnapshot(), &dbtypes.Snapshot{})
	diff := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "status",
		ObjectType:       types.ObjectTypeColumn,
		DifferenceType:   types.DifferenceMissing,
		Severity:         types.SeverityBreaking,
		ParentObjectName: "public.orders",
	}

	stmt := gen.Generate(diff)
	c.Assert(stmt, qt.Contains,
		`-- ALTER TABLE "public"."orders" ADD COLUMN IF NOT EXISTS "status" varchar(20) NOT NULL DEFAULT 'new';`)
}

func TestGenerate_ConstraintFromDefinition(t *testing.T) {
	c := qt.New(t)

	gen := ddl.NewGenerator(&dbtypes.Snapshot{}, &dbtypes.Snapshot{})
	diff := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "orders_user_fk",
		ObjectType:       types.ObjectTypeConstraintForeignKey,
		DifferenceType:   types.DifferenceMissing,
		Severity:         types.SeverityWarning,
		ParentObjectName: "public.orders",
		SourceDefinition: "FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE",
	}

	stmt := gen.Generate(diff)
	c.Assert(stmt, qt.Equals,
		`ALTER TABLE "public"."orders" ADD CONSTRAINT "orders_user_fk" FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE;`)
}

func TestGenerate_IndexFromCatalogDefinition(t *testing.T) {
	c := qt.New(t)

	gen := ddl.NewGenerator(&dbtypes.Snapshot{}, &dbtypes.Snapshot{})
	diff := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "idx_status",
		ObjectType:       types.ObjectTypeIndex,
		DifferenceType:   types.DifferenceMissing,
		Severity:         types.SeverityWarning,
		SourceDefinition: "CREATE INDEX idx_status ON public.orders USING btree (status)",
	}

	stmt := gen.Generate(diff)
	c.Assert(stmt, qt.Equals, "CREATE INDEX idx_status ON public.orders USING btree (status);")
}

func TestGenerate_EnumAddValue(t *testing.T) {
	c := qt.New(t)

	gen := ddl.NewGenerator(&dbtypes.Snapshot{}, &dbtypes.Snapshot{})
	diff := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "status",
		ObjectType:     types.ObjectTypeEnum,
		DifferenceType: types.DifferenceModified,
		Severity:       types.SeverityWarning,
		Attributes: []types.AttributeDifference{
			types.NewRemovedAttribute("value:closed", "closed"),
		},
	}

	stmt := gen.Generate(diff)
	c.Assert(stmt, qt.Equals, `ALTER TYPE "public"."status" ADD VALUE IF NOT EXISTS 'closed';`)
}

func TestGenerate_SequenceAlter(t *testing.T) {
	c := qt.New(t)

	gen := ddl.NewGenerator(sourceSnapshot(), &dbtypes.Snapshot{})
	diff := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "order_seq",
		ObjectType:     types.ObjectTypeSequence,
		DifferenceType: types.DifferenceModified,
		Severity:       types.SeverityWarning,
		Attributes: []types.AttributeDifference{
			types.NewModifiedAttribute("increment", "5", "1", false),
		},
	}

	stmt := gen.Generate(diff)
	c.Assert(stmt, qt.Equals, `ALTER SEQUENCE "public"."order_seq" INCREMENT BY 5;`)
}

func TestGenerate_ExtensionLifecycle(t *testing.T) {
	c := qt.New(t)

	gen := ddl.NewGenerator(&dbtypes.Snapshot{}, &dbtypes.Snapshot{})

	missing := &types.ObjectDifference{
		ObjectName: "pg_trgm", ObjectType: types.ObjectTypeExtension,
		DifferenceType: types.DifferenceMissing, Severity: types.SeverityWarning,
	}
	c.Assert(gen.Generate(missing), qt.Equals, `CREATE EXTENSION IF NOT EXISTS "pg_trgm";`)

	extra := &types.ObjectDifference{
		ObjectName: "old_ext", ObjectType: types.ObjectTypeExtension,
		DifferenceType: types.DifferenceExtra, Severity: types.SeverityInfo,
	}
	c.Assert(gen.Generate(extra), qt.Equals, `DROP EXTENSION IF EXISTS "old_ext";`)
}

func TestScript_SectionsAndOrdering(t *testing.T) {
	c := qt.New(t)

	table := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "orders",
		ObjectType: types.ObjectTypeTable, DifferenceType: types.DifferenceMissing,
		Severity: types.SeverityBreaking,
	}
	index := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "idx_status",
		ObjectType: types.ObjectTypeIndex, DifferenceType: types.DifferenceMissing,
		Severity: types.SeverityWarning, ParentObjectName: "public.orders",
		SourceDefinition: "CREATE INDEX idx_status ON public.orders USING btree (status)",
	}
	extraView := &types.ObjectDifference{
		SchemaName: "public", ObjectName: "old_view",
		ObjectType: types.ObjectTypeView, DifferenceType: types.DifferenceExtra,
		Severity: types.SeverityInfo,
	}

	res := must.Must(resolveAll(table, index, extraView))
	gen := ddl.NewGenerator(sourceSnapshot(), &dbtypes.Snapshot{})
	script := gen.Script(res, ddl.ScriptMeta{
		RunID:       "run-1",
		Source:      "postgres://src/db",
		Destination: "postgres://dst/db",
		GeneratedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	})

	c.Assert(script, qt.Contains, "-- run: run-1")
	c.Assert(script, qt.Contains, "-- generated: 2026-08-24T12:00:00Z")
	c.Assert(script, qt.Contains, "-- create and alter")
	c.Assert(script, qt.Contains, "-- drop")

	// Creates run parent-first, drops come after all creates.
	tablePos := strings.Index(script, `"public"."orders"`)
	indexPos := strings.Index(script, "CREATE INDEX idx_status")
	dropPos := strings.Index(script, `DROP VIEW IF EXISTS "public"."old_view" CASCADE;`)
	c.Assert(tablePos >= 0 && indexPos >= 0 && dropPos >= 0, qt.IsTrue)
	c.Assert(tablePos < indexPos, qt.IsTrue)
	c.Assert(indexPos < dropPos, qt.IsTrue)

	// Every diff got its DDL stamped.
	c.Assert(table.GeneratedDDL, qt.Not(qt.Equals), "")
	c.Assert(index.GeneratedDDL, qt.Not(qt.Equals), "")
	c.Assert(extraView.GeneratedDDL, qt.Not(qt.Equals), "")
}

func resolveAll(diffs ...*types.ObjectDifference) (*resolver.Result, error) {
	return resolver.Resolve(diffs)
}

func TestWriteScript(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "out", "reconcile.sql")
	err := ddl.WriteScript(path, "-- script body\n")
	c.Assert(err, qt.IsNil)

	content := must.Must(os.ReadFile(path))
	c.Assert(string(content), qt.Equals, "-- script body\n")
}
