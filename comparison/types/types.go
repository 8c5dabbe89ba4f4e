// Package types defines the data model shared by the comparison engine,
// the severity classifier, the dependency resolver and the DDL generator.
//
// The model is deliberately flat and JSON-serializable so results can be
// consumed by CI/CD pipelines, dashboards, and `.sql` export tooling without
// any knowledge of the engine internals.
package types

// ObjectType identifies the category of a database object participating in a
// schema comparison. The set is closed: comparators, severity rules and DDL
// templates are all keyed by it.
type ObjectType string

const (
	ObjectTypeTable                ObjectType = "TABLE"
	ObjectTypeColumn               ObjectType = "COLUMN"
	ObjectTypeIndex                ObjectType = "INDEX"
	ObjectTypeConstraintPrimaryKey ObjectType = "CONSTRAINT_PRIMARY_KEY"
	ObjectTypeConstraintForeignKey ObjectType = "CONSTRAINT_FOREIGN_KEY"
	ObjectTypeConstraintUnique     ObjectType = "CONSTRAINT_UNIQUE"
	ObjectTypeConstraintCheck      ObjectType = "CONSTRAINT_CHECK"
	ObjectTypeView                 ObjectType = "VIEW"
	ObjectTypeMaterializedView     ObjectType = "MATERIALIZED_VIEW"
	ObjectTypeFunction             ObjectType = "FUNCTION"
	ObjectTypeProcedure            ObjectType = "PROCEDURE"
	ObjectTypeTrigger              ObjectType = "TRIGGER"
	ObjectTypeSequence             ObjectType = "SEQUENCE"
	ObjectTypeEnum                 ObjectType = "TYPE_ENUM"
	ObjectTypeComposite            ObjectType = "TYPE_COMPOSITE"
	ObjectTypeDomain               ObjectType = "TYPE_DOMAIN"
	ObjectTypeExtension            ObjectType = "EXTENSION"
)

// AllObjectTypes lists every object category in the fixed order comparators
// run in. The order matters only for deterministic output; dependency-safe
// DDL ordering is the resolver's job, not this list's.
func AllObjectTypes() []ObjectType {
	return []ObjectType{
		ObjectTypeExtension,
		ObjectTypeEnum,
		ObjectTypeComposite,
		ObjectTypeDomain,
		ObjectTypeSequence,
		ObjectTypeTable,
		ObjectTypeColumn,
		ObjectTypeConstraintPrimaryKey,
		ObjectTypeConstraintForeignKey,
		ObjectTypeConstraintUnique,
		ObjectTypeConstraintCheck,
		ObjectTypeIndex,
		ObjectTypeView,
		ObjectTypeMaterializedView,
		ObjectTypeFunction,
		ObjectTypeProcedure,
		ObjectTypeTrigger,
	}
}

// DifferenceType describes on which side of the comparison an object exists.
type DifferenceType string

const (
	// DifferenceMissing marks an object present in the source snapshot only.
	// Reconciling the destination requires creating it there.
	DifferenceMissing DifferenceType = "MISSING"

	// DifferenceExtra marks an object present in the destination snapshot
	// only. Reconciling the destination requires dropping it.
	DifferenceExtra DifferenceType = "EXTRA"

	// DifferenceModified marks an object present on both sides with unequal
	// definitions.
	DifferenceModified DifferenceType = "MODIFIED"
)

// Severity classifies the operational risk of reconciling one difference.
type Severity string

const (
	// SeverityBreaking requires a DROP or a data-loss-risk alteration.
	SeverityBreaking Severity = "BREAKING"

	// SeverityWarning requires an ALTER that may affect behavior.
	SeverityWarning Severity = "WARNING"

	// SeverityInfo is additive and safe to apply.
	SeverityInfo Severity = "INFO"
)

// AttributeDifference records a single differing structural attribute of an
// object present in both snapshots (data type, nullability, default,
// collation, index columns, ...).
//
// The pointer fields encode presence: a nil Source with a non-nil Destination
// means the attribute was added on the destination side, and so on. Build
// instances through the constructors below and treat them as immutable
// afterwards; nothing in the engine mutates an AttributeDifference once it is
// attached to an ObjectDifference.
type AttributeDifference struct {
	// Name is the attribute identifier, e.g. "data_type" or "definition".
	Name string `json:"attribute_name"`

	// Source is the attribute value in the source snapshot, nil when absent.
	Source *string `json:"source_value,omitempty"`

	// Destination is the attribute value in the destination snapshot, nil
	// when absent.
	Destination *string `json:"destination_value,omitempty"`

	// Breaking marks this attribute change as requiring a DROP or risking
	// data loss. Any breaking attribute escalates the owning difference to
	// SeverityBreaking.
	Breaking bool `json:"breaking"`

	// Description optionally explains the change in human terms.
	Description string `json:"description,omitempty"`
}

// NewAddedAttribute builds a difference for an attribute present on the
// destination side only.
func NewAddedAttribute(name, destination string) AttributeDifference {
	return AttributeDifference{Name: name, Destination: &destination}
}

// NewRemovedAttribute builds a difference for an attribute present on the
// source side only.
func NewRemovedAttribute(name, source string) AttributeDifference {
	return AttributeDifference{Name: name, Source: &source}
}

// NewModifiedAttribute builds a difference for an attribute present on both
// sides with unequal values.
func NewModifiedAttribute(name, source, destination string, breaking bool) AttributeDifference {
	return AttributeDifference{Name: name, Source: &source, Destination: &destination, Breaking: breaking}
}

// IsAdded reports whether the attribute exists on the destination side only.
func (a AttributeDifference) IsAdded() bool {
	return a.Source == nil && a.Destination != nil
}

// IsRemoved reports whether the attribute exists on the source side only.
func (a AttributeDifference) IsRemoved() bool {
	return a.Source != nil && a.Destination == nil
}

// IsModified reports whether the attribute exists on both sides with unequal
// values.
func (a AttributeDifference) IsModified() bool {
	return a.Source != nil && a.Destination != nil && *a.Source != *a.Destination
}

// ObjectDifference is one structurally differing object discovered by a
// comparator. It owns its attribute list exclusively.
//
// ParentObjectName and DependentObjects form a lightweight dependency graph
// consumed by the resolver: ParentObjectName names the object this one cannot
// exist without (a column's table, an index's table), DependentObjects names
// objects that cannot exist without this one.
type ObjectDifference struct {
	// ObjectName is the unqualified object name.
	ObjectName string `json:"object_name"`

	// SchemaName is the schema the object lives in.
	SchemaName string `json:"schema_name"`

	ObjectType     ObjectType     `json:"object_type"`
	DifferenceType DifferenceType `json:"difference_type"`
	Severity       Severity       `json:"severity"`

	// SourceDefinition and DestinationDefinition carry the raw definition
	// text when the object is definitional (views, functions, ...); empty
	// for purely structural objects.
	SourceDefinition      string `json:"source_definition,omitempty"`
	DestinationDefinition string `json:"destination_definition,omitempty"`

	// Attributes holds one entry per differing structural attribute; empty
	// for MISSING and EXTRA differences.
	Attributes []AttributeDifference `json:"attribute_differences,omitempty"`

	// GeneratedDDL is filled in by the DDL generator after dependency
	// resolution.
	GeneratedDDL string `json:"generated_ddl,omitempty"`

	// DependentObjects lists qualified names of objects depending on this
	// one.
	DependentObjects []string `json:"dependent_objects,omitempty"`

	// ParentObjectName is the qualified name of the object this one depends
	// on, empty for top-level objects.
	ParentObjectName string `json:"parent_object_name,omitempty"`
}

// QualifiedName returns the schema-qualified object name used as the node key
// in the dependency graph.
func (d *ObjectDifference) QualifiedName() string {
	if d.SchemaName == "" {
		return d.ObjectName
	}
	return d.SchemaName + "." + d.ObjectName
}

// HasBreakingAttribute reports whether any attribute carries the breaking
// flag.
func (d *ObjectDifference) HasBreakingAttribute() bool {
	for _, attr := range d.Attributes {
		if attr.Breaking {
			return true
		}
	}
	return false
}
