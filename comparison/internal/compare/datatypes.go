package compare

import (
	"fmt"
	"strings"

	"github.com/sqldrift/sqldrift/comparison/internal/normalize"
	"github.com/sqldrift/sqldrift/comparison/types"
	dbtypes "github.com/sqldrift/sqldrift/dbschema/types"
)

// Enums compares enumerated types value by value. A value present only in the
// source can be added in place; a value present only in the destination
// cannot be removed without recreating the type, so it is breaking. Returns
// the number of objects examined.
func Enums(in *Input) int {
	srcEnums := make(map[string]dbtypes.Enum, len(in.Source.Enums))
	for _, e := range in.Source.Enums {
		srcEnums[qualified(e.Schema, e.Name)] = e
	}
	dstEnums := make(map[string]dbtypes.Enum, len(in.Destination.Enums))
	for _, e := range in.Destination.Enums {
		dstEnums[qualified(e.Schema, e.Name)] = e
	}

	scanned := 0
	for _, key := range unionKeys(srcEnums, dstEnums) {
		scanned++
		src, inSrc := srcEnums[key]
		dst, inDst := dstEnums[key]

		switch {
		case inSrc && !inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:       src.Name,
				SchemaName:       src.Schema,
				ObjectType:       types.ObjectTypeEnum,
				DifferenceType:   types.DifferenceMissing,
				SourceDefinition: enumSpelling(src),
			})
		case !inSrc && inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:            dst.Name,
				SchemaName:            dst.Schema,
				ObjectType:            types.ObjectTypeEnum,
				DifferenceType:        types.DifferenceExtra,
				DestinationDefinition: enumSpelling(dst),
			})
		default:
			attrs := enumAttributes(src, dst)
			if len(attrs) > 0 {
				in.Emit(&types.ObjectDifference{
					ObjectName:            src.Name,
					SchemaName:            src.Schema,
					ObjectType:            types.ObjectTypeEnum,
					DifferenceType:        types.DifferenceModified,
					SourceDefinition:      enumSpelling(src),
					DestinationDefinition: enumSpelling(dst),
					Attributes:            attrs,
				})
			}
		}
	}
	return scanned
}

func enumAttributes(src, dst dbtypes.Enum) []types.AttributeDifference {
	dstValues := make(map[string]bool, len(dst.Values))
	for _, v := range dst.Values {
		dstValues[v] = true
	}
	srcValues := make(map[string]bool, len(src.Values))
	for _, v := range src.Values {
		srcValues[v] = true
	}

	var attrs []types.AttributeDifference
	for _, v := range src.Values {
		if !dstValues[v] {
			// Addable in place with ALTER TYPE ... ADD VALUE.
			attrs = append(attrs, types.NewRemovedAttribute("value:"+v, v))
		}
	}
	for _, v := range dst.Values {
		if !srcValues[v] {
			// Removal requires recreating the type and every column using it.
			attr := types.NewAddedAttribute("value:"+v, v)
			attr.Breaking = true
			attrs = append(attrs, attr)
		}
	}
	return attrs
}

func enumSpelling(e dbtypes.Enum) string {
	return "ENUM ('" + strings.Join(e.Values, "', '") + "')"
}

// Composites compares composite types attribute by attribute. Returns the
// number of objects examined.
func Composites(in *Input) int {
	srcTypes := make(map[string]dbtypes.CompositeType, len(in.Source.Composites))
	for _, ct := range in.Source.Composites {
		srcTypes[qualified(ct.Schema, ct.Name)] = ct
	}
	dstTypes := make(map[string]dbtypes.CompositeType, len(in.Destination.Composites))
	for _, ct := range in.Destination.Composites {
		dstTypes[qualified(ct.Schema, ct.Name)] = ct
	}

	scanned := 0
	for _, key := range unionKeys(srcTypes, dstTypes) {
		scanned++
		src, inSrc := srcTypes[key]
		dst, inDst := dstTypes[key]

		switch {
		case inSrc && !inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:     src.Name,
				SchemaName:     src.Schema,
				ObjectType:     types.ObjectTypeComposite,
				DifferenceType: types.DifferenceMissing,
			})
		case !inSrc && inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:     dst.Name,
				SchemaName:     dst.Schema,
				ObjectType:     types.ObjectTypeComposite,
				DifferenceType: types.DifferenceExtra,
			})
		default:
			attrs := compositeAttributes(src, dst)
			if len(attrs) > 0 {
				in.Emit(&types.ObjectDifference{
					ObjectName:     src.Name,
					SchemaName:     src.Schema,
					ObjectType:     types.ObjectTypeComposite,
					DifferenceType: types.DifferenceModified,
					Attributes:     attrs,
				})
			}
		}
	}
	return scanned
}

func compositeAttributes(src, dst dbtypes.CompositeType) []types.AttributeDifference {
	srcAttrs := make(map[string]dbtypes.CompositeAttribute, len(src.Attributes))
	for _, a := range src.Attributes {
		srcAttrs[a.Name] = a
	}
	dstAttrs := make(map[string]dbtypes.CompositeAttribute, len(dst.Attributes))
	for _, a := range dst.Attributes {
		dstAttrs[a.Name] = a
	}

	var attrs []types.AttributeDifference
	for _, name := range unionKeys(srcAttrs, dstAttrs) {
		s, inSrc := srcAttrs[name]
		d, inDst := dstAttrs[name]

		switch {
		case inSrc && !inDst:
			attrs = append(attrs, types.NewRemovedAttribute(name, normalize.TypeName(s.DataType)))
		case !inSrc && inDst:
			attr := types.NewAddedAttribute(name, normalize.TypeName(d.DataType))
			attr.Breaking = true
			attrs = append(attrs, attr)
		default:
			srcType := normalize.TypeName(s.DataType)
			dstType := normalize.TypeName(d.DataType)
			if srcType != dstType {
				breaking := !normalize.SameTypeFamily(srcType, dstType)
				attrs = append(attrs, types.NewModifiedAttribute(name, srcType, dstType, breaking))
			}
		}
	}
	return attrs
}

// Domains compares domain types. A base type family change is breaking; the
// remaining attributes reconcile via ALTER DOMAIN. Returns the number of
// objects examined.
func Domains(in *Input) int {
	srcDomains := make(map[string]dbtypes.Domain, len(in.Source.Domains))
	for _, d := range in.Source.Domains {
		srcDomains[qualified(d.Schema, d.Name)] = d
	}
	dstDomains := make(map[string]dbtypes.Domain, len(in.Destination.Domains))
	for _, d := range in.Destination.Domains {
		dstDomains[qualified(d.Schema, d.Name)] = d
	}

	scanned := 0
	for _, key := range unionKeys(srcDomains, dstDomains) {
		scanned++
		src, inSrc := srcDomains[key]
		dst, inDst := dstDomains[key]

		switch {
		case inSrc && !inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:     src.Name,
				SchemaName:     src.Schema,
				ObjectType:     types.ObjectTypeDomain,
				DifferenceType: types.DifferenceMissing,
			})
		case !inSrc && inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:     dst.Name,
				SchemaName:     dst.Schema,
				ObjectType:     types.ObjectTypeDomain,
				DifferenceType: types.DifferenceExtra,
			})
		default:
			var attrs []types.AttributeDifference
			srcType := normalize.TypeName(src.BaseType)
			dstType := normalize.TypeName(dst.BaseType)
			if srcType != dstType {
				breaking := !normalize.SameTypeFamily(srcType, dstType)
				attrs = append(attrs, types.NewModifiedAttribute("base_type", srcType, dstType, breaking))
			}
			if src.NotNull != dst.NotNull {
				attrs = append(attrs, types.NewModifiedAttribute("not_null",
					fmt.Sprintf("%t", src.NotNull), fmt.Sprintf("%t", dst.NotNull), false))
			}
			if s, d := normalize.DefaultValue(deref(src.Default)), normalize.DefaultValue(deref(dst.Default)); s != d {
				attrs = append(attrs, types.NewModifiedAttribute("default", s, d, false))
			}
			if s, d := normalize.Definition(src.CheckClause), normalize.Definition(dst.CheckClause); s != d {
				attrs = append(attrs, types.NewModifiedAttribute("check_clause", s, d, false))
			}
			if len(attrs) > 0 {
				in.Emit(&types.ObjectDifference{
					ObjectName:     src.Name,
					SchemaName:     src.Schema,
					ObjectType:     types.ObjectTypeDomain,
					DifferenceType: types.DifferenceModified,
					Attributes:     attrs,
				})
			}
		}
	}
	return scanned
}

// Sequences compares standalone sequences. Sequences owned by a table column
// link to their table through ParentObjectName. Returns the number of objects
// examined.
func Sequences(in *Input) int {
	srcSeqs := make(map[string]dbtypes.Sequence, len(in.Source.Sequences))
	for _, s := range in.Source.Sequences {
		srcSeqs[qualified(s.Schema, s.Name)] = s
	}
	dstSeqs := make(map[string]dbtypes.Sequence, len(in.Destination.Sequences))
	for _, s := range in.Destination.Sequences {
		dstSeqs[qualified(s.Schema, s.Name)] = s
	}

	scanned := 0
	for _, key := range unionKeys(srcSeqs, dstSeqs) {
		scanned++
		src, inSrc := srcSeqs[key]
		dst, inDst := dstSeqs[key]

		var sample dbtypes.Sequence
		if inSrc {
			sample = src
		} else {
			sample = dst
		}

		base := types.ObjectDifference{
			ObjectName:       sample.Name,
			SchemaName:       sample.Schema,
			ObjectType:       types.ObjectTypeSequence,
			ParentObjectName: sequenceOwner(sample),
		}

		switch {
		case inSrc && !inDst:
			base.DifferenceType = types.DifferenceMissing
			in.Emit(&base)
		case !inSrc && inDst:
			base.DifferenceType = types.DifferenceExtra
			in.Emit(&base)
		default:
			attrs := sequenceAttributes(src, dst)
			if len(attrs) > 0 {
				base.DifferenceType = types.DifferenceModified
				base.Attributes = attrs
				in.Emit(&base)
			}
		}
	}
	return scanned
}

// sequenceOwner returns the qualified table name from an "schema.table.column"
// ownership string, or empty for free-standing sequences.
func sequenceOwner(s dbtypes.Sequence) string {
	if s.OwnedBy == "" {
		return ""
	}
	parts := strings.Split(s.OwnedBy, ".")
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], ".")
}

func sequenceAttributes(src, dst dbtypes.Sequence) []types.AttributeDifference {
	var attrs []types.AttributeDifference

	if s, d := normalize.TypeName(src.DataType), normalize.TypeName(dst.DataType); s != d {
		attrs = append(attrs, types.NewModifiedAttribute("data_type", s, d, false))
	}
	if src.Start != dst.Start {
		attrs = append(attrs, types.NewModifiedAttribute("start",
			fmt.Sprintf("%d", src.Start), fmt.Sprintf("%d", dst.Start), false))
	}
	if src.Increment != dst.Increment {
		attrs = append(attrs, types.NewModifiedAttribute("increment",
			fmt.Sprintf("%d", src.Increment), fmt.Sprintf("%d", dst.Increment), false))
	}
	if src.MinValue != dst.MinValue {
		attrs = append(attrs, types.NewModifiedAttribute("min_value",
			fmt.Sprintf("%d", src.MinValue), fmt.Sprintf("%d", dst.MinValue), false))
	}
	if src.MaxValue != dst.MaxValue {
		attrs = append(attrs, types.NewModifiedAttribute("max_value",
			fmt.Sprintf("%d", src.MaxValue), fmt.Sprintf("%d", dst.MaxValue), false))
	}
	if src.Cycle != dst.Cycle {
		attrs = append(attrs, types.NewModifiedAttribute("cycle",
			fmt.Sprintf("%t", src.Cycle), fmt.Sprintf("%t", dst.Cycle), false))
	}

	return attrs
}

// Extensions compares installed extensions, skipping the configured ignore
// list. Version differences reconcile via ALTER EXTENSION UPDATE. Returns the
// number of objects examined.
func Extensions(in *Input) int {
	srcExts := make(map[string]dbtypes.Extension, len(in.Source.Extensions))
	for _, e := range in.Source.Extensions {
		if in.Options.IsExtensionIgnored(e.Name) {
			continue
		}
		srcExts[e.Name] = e
	}
	dstExts := make(map[string]dbtypes.Extension, len(in.Destination.Extensions))
	for _, e := range in.Destination.Extensions {
		if in.Options.IsExtensionIgnored(e.Name) {
			continue
		}
		dstExts[e.Name] = e
	}

	scanned := 0
	for _, name := range unionKeys(srcExts, dstExts) {
		scanned++
		src, inSrc := srcExts[name]
		dst, inDst := dstExts[name]

		switch {
		case inSrc && !inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:     src.Name,
				SchemaName:     src.Schema,
				ObjectType:     types.ObjectTypeExtension,
				DifferenceType: types.DifferenceMissing,
			})
		case !inSrc && inDst:
			in.Emit(&types.ObjectDifference{
				ObjectName:     dst.Name,
				SchemaName:     dst.Schema,
				ObjectType:     types.ObjectTypeExtension,
				DifferenceType: types.DifferenceExtra,
			})
		default:
			if src.Version != dst.Version {
				in.Emit(&types.ObjectDifference{
					ObjectName:     src.Name,
					SchemaName:     src.Schema,
					ObjectType:     types.ObjectTypeExtension,
					DifferenceType: types.DifferenceModified,
					Attributes: []types.AttributeDifference{
						types.NewModifiedAttribute("version", src.Version, dst.Version, false),
					},
				})
			}
		}
	}
	return scanned
}
