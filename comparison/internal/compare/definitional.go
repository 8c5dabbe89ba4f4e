package compare

import (
	"strings"

	"github.com/sqldrift/sqldrift/comparison/internal/normalize"
	"github.com/sqldrift/sqldrift/comparison/types"
	dbtypes "github.com/sqldrift/sqldrift/dbschema/types"
)

// Views compares view definitions. Two views whose bodies normalize to the
// same text are equal; anything else is a whole-body replacement, reported as
// a single breaking Definition attribute. Returns the number of objects
// examined.
func Views(in *Input) int {
	srcViews := make(map[string]dbtypes.View, len(in.Source.Views))
	for _, v := range in.Source.Views {
		srcViews[qualified(v.Schema, v.Name)] = v
	}
	dstViews := make(map[string]dbtypes.View, len(in.Destination.Views))
	for _, v := range in.Destination.Views {
		dstViews[qualified(v.Schema, v.Name)] = v
	}

	scanned := 0
	for _, key := range unionKeys(srcViews, dstViews) {
		scanned++
		src, inSrc := srcViews[key]
		dst, inDst := dstViews[key]

		switch {
		case inSrc && !inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:       src.Name,
				SchemaName:       src.Schema,
				ObjectType:       types.ObjectTypeView,
				DifferenceType:   types.DifferenceMissing,
				SourceDefinition: src.Definition,
				DependentObjects: viewDependents(in.Source, src.Schema, src.Name),
			})
		case !inSrc && inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:            dst.Name,
				SchemaName:            dst.Schema,
				ObjectType:            types.ObjectTypeView,
				DifferenceType:        types.DifferenceExtra,
				DestinationDefinition: dst.Definition,
				DependentObjects:      viewDependents(in.Destination, dst.Schema, dst.Name),
			})
		default:
			if diff := definitionAttribute(src.Definition, dst.Definition); diff != nil {
				in.Emit(&types.ObjectDifference{
					ObjectName:            src.Name,
					SchemaName:            src.Schema,
					ObjectType:            types.ObjectTypeView,
					DifferenceType:        types.DifferenceModified,
					SourceDefinition:      src.Definition,
					DestinationDefinition: dst.Definition,
					Attributes:            []types.AttributeDifference{*diff},
					DependentObjects:      viewDependents(in.Source, src.Schema, src.Name),
				})
			}
		}
	}
	return scanned
}

// MaterializedViews compares materialized view definitions the same way Views
// does. Returns the number of objects examined.
func MaterializedViews(in *Input) int {
	srcViews := make(map[string]dbtypes.MaterializedView, len(in.Source.MaterializedViews))
	for _, v := range in.Source.MaterializedViews {
		srcViews[qualified(v.Schema, v.Name)] = v
	}
	dstViews := make(map[string]dbtypes.MaterializedView, len(in.Destination.MaterializedViews))
	for _, v := range in.Destination.MaterializedViews {
		dstViews[qualified(v.Schema, v.Name)] = v
	}

	scanned := 0
	for _, key := range unionKeys(srcViews, dstViews) {
		scanned++
		src, inSrc := srcViews[key]
		dst, inDst := dstViews[key]

		switch {
		case inSrc && !inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:       src.Name,
				SchemaName:       src.Schema,
				ObjectType:       types.ObjectTypeMaterializedView,
				DifferenceType:   types.DifferenceMissing,
				SourceDefinition: src.Definition,
			})
		case !inSrc && inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:            dst.Name,
				SchemaName:            dst.Schema,
				ObjectType:            types.ObjectTypeMaterializedView,
				DifferenceType:        types.DifferenceExtra,
				DestinationDefinition: dst.Definition,
			})
		default:
			if diff := definitionAttribute(src.Definition, dst.Definition); diff != nil {
				in.Emit(&types.ObjectDifference{
					ObjectName:            src.Name,
					SchemaName:            src.Schema,
					ObjectType:            types.ObjectTypeMaterializedView,
					DifferenceType:        types.DifferenceModified,
					SourceDefinition:      src.Definition,
					DestinationDefinition: dst.Definition,
					Attributes:            []types.AttributeDifference{*diff},
				})
			}
		}
	}
	return scanned
}

// Functions compares stored functions. Signature changes (arguments, return
// type) require a drop and recreate and are breaking; body, language and
// volatility changes reconcile via CREATE OR REPLACE. Returns the number of
// objects examined.
func Functions(in *Input) int {
	srcFns := make(map[string]dbtypes.Function, len(in.Source.Functions))
	for _, fn := range in.Source.Functions {
		srcFns[functionKey(fn.Schema, fn.Name, fn.Arguments)] = fn
	}
	dstFns := make(map[string]dbtypes.Function, len(in.Destination.Functions))
	for _, fn := range in.Destination.Functions {
		dstFns[functionKey(fn.Schema, fn.Name, fn.Arguments)] = fn
	}

	scanned := 0
	for _, key := range unionKeys(srcFns, dstFns) {
		scanned++
		src, inSrc := srcFns[key]
		dst, inDst := dstFns[key]

		switch {
		case inSrc && !inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:       src.Name,
				SchemaName:       src.Schema,
				ObjectType:       types.ObjectTypeFunction,
				DifferenceType:   types.DifferenceMissing,
				SourceDefinition: src.Definition,
			})
		case !inSrc && inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:            dst.Name,
				SchemaName:            dst.Schema,
				ObjectType:            types.ObjectTypeFunction,
				DifferenceType:        types.DifferenceExtra,
				DestinationDefinition: dst.Definition,
			})
		default:
			var attrs []types.AttributeDifference
			if src.Returns != dst.Returns {
				attrs = append(attrs, types.NewModifiedAttribute("returns", src.Returns, dst.Returns, true))
			}
			if src.Language != dst.Language {
				attrs = append(attrs, types.NewModifiedAttribute("language", src.Language, dst.Language, false))
			}
			if src.Volatility != dst.Volatility {
				attrs = append(attrs, types.NewModifiedAttribute("volatility", src.Volatility, dst.Volatility, false))
			}
			if diff := definitionAttribute(src.Definition, dst.Definition); diff != nil {
				attrs = append(attrs, *diff)
			}
			if len(attrs) > 0 {
				in.Emit(&types.ObjectDifference{
					ObjectName:            src.Name,
					SchemaName:            src.Schema,
					ObjectType:            types.ObjectTypeFunction,
					DifferenceType:        types.DifferenceModified,
					SourceDefinition:      src.Definition,
					DestinationDefinition: dst.Definition,
					Attributes:            attrs,
				})
			}
		}
	}
	return scanned
}

// Procedures compares stored procedures the same way Functions does, minus
// the return type. Returns the number of objects examined.
func Procedures(in *Input) int {
	srcProcs := make(map[string]dbtypes.Procedure, len(in.Source.Procedures))
	for _, p := range in.Source.Procedures {
		srcProcs[functionKey(p.Schema, p.Name, p.Arguments)] = p
	}
	dstProcs := make(map[string]dbtypes.Procedure, len(in.Destination.Procedures))
	for _, p := range in.Destination.Procedures {
		dstProcs[functionKey(p.Schema, p.Name, p.Arguments)] = p
	}

	scanned := 0
	for _, key := range unionKeys(srcProcs, dstProcs) {
		scanned++
		src, inSrc := srcProcs[key]
		dst, inDst := dstProcs[key]

		switch {
		case inSrc && !inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:       src.Name,
				SchemaName:       src.Schema,
				ObjectType:       types.ObjectTypeProcedure,
				DifferenceType:   types.DifferenceMissing,
				SourceDefinition: src.Definition,
			})
		case !inSrc && inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:            dst.Name,
				SchemaName:            dst.Schema,
				ObjectType:            types.ObjectTypeProcedure,
				DifferenceType:        types.DifferenceExtra,
				DestinationDefinition: dst.Definition,
			})
		default:
			var attrs []types.AttributeDifference
			if src.Language != dst.Language {
				attrs = append(attrs, types.NewModifiedAttribute("language", src.Language, dst.Language, false))
			}
			if diff := definitionAttribute(src.Definition, dst.Definition); diff != nil {
				attrs = append(attrs, *diff)
			}
			if len(attrs) > 0 {
				in.Emit(&types.ObjectDifference{
					ObjectName:            src.Name,
					SchemaName:            src.Schema,
					ObjectType:            types.ObjectTypeProcedure,
					DifferenceType:        types.DifferenceModified,
					SourceDefinition:      src.Definition,
					DestinationDefinition: dst.Definition,
					Attributes:            attrs,
				})
			}
		}
	}
	return scanned
}

// Triggers compares triggers on tables that pass the filter. Triggers are
// cheap to drop and recreate, so modifications are never breaking. Returns
// the number of objects examined.
func Triggers(in *Input) int {
	srcTrig := triggerMap(in, in.Source)
	dstTrig := triggerMap(in, in.Destination)

	scanned := 0
	for _, key := range unionKeys(srcTrig, dstTrig) {
		scanned++
		src, inSrc := srcTrig[key]
		dst, inDst := dstTrig[key]

		var sample dbtypes.Trigger
		if inSrc {
			sample = src
		} else {
			sample = dst
		}

		base := types.ObjectDifference{
			ObjectName:       sample.Name,
			SchemaName:       sample.Schema,
			ObjectType:       types.ObjectTypeTrigger,
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
			var attrs []types.AttributeDifference
			if src.Timing != dst.Timing {
				attrs = append(attrs, types.NewModifiedAttribute("timing", src.Timing, dst.Timing, false))
			}
			if s, d := strings.Join(src.Events, ","), strings.Join(dst.Events, ","); s != d {
				attrs = append(attrs, types.NewModifiedAttribute("events", s, d, false))
			}
			if src.Function != dst.Function {
				attrs = append(attrs, types.NewModifiedAttribute("function", src.Function, dst.Function, false))
			}
			if len(attrs) == 0 {
				if s, d := normalize.Definition(src.Definition), normalize.Definition(dst.Definition); s != d {
					attrs = append(attrs, types.NewModifiedAttribute("definition", s, d, false))
				}
			}
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

func triggerMap(in *Input, snap *dbtypes.Snapshot) map[string]dbtypes.Trigger {
	m := make(map[string]dbtypes.Trigger)
	for _, tr := range snap.Triggers {
		if !in.Filter.MatchesTable(tr.Schema, tr.Table) {
			continue
		}
		m[qualified(tr.Schema, tr.Table)+"."+tr.Name] = tr
	}
	return m
}

// definitionAttribute compares two definition bodies after normalization and
// returns a breaking whole-body attribute when they differ, nil when equal.
func definitionAttribute(src, dst string) *types.AttributeDifference {
	srcNorm := normalize.Definition(src)
	dstNorm := normalize.Definition(dst)
	if srcNorm == dstNorm {
		return nil
	}
	attr := types.NewModifiedAttribute("definition", srcNorm, dstNorm, true)
	return &attr
}

// functionKey identifies a routine by schema, name and argument list so that
// overloads compare independently.
func functionKey(schema, name, arguments string) string {
	return qualified(schema, name) + "(" + normalize.Definition(arguments) + ")"
}

// viewDependents collects the qualified names of other views that select from
// the given view.
func viewDependents(snap *dbtypes.Snapshot, schema, name string) []string {
	qname := qualified(schema, name)
	seen := make(map[string]bool)
	for _, v := range snap.Views {
		if v.Schema == schema && v.Name == name {
			continue
		}
		for _, dep := range v.DependsOn {
			if dep == qname || dep == name {
				seen[qualified(v.Schema, v.Name)] = true
			}
		}
	}
	for _, mv := range snap.MaterializedViews {
		for _, dep := range mv.DependsOn {
			if dep == qname || dep == name {
				seen[qualified(mv.Schema, mv.Name)] = true
			}
		}
	}
	return sortedKeys(seen)
}
