// Package classify assigns operational risk severities to discovered
// differences.
//
// The policy is intentionally table-driven rather than heuristic: every
// (object type, difference type) pair resolves through an explicit rule, so
// the mapping is auditable in one place and stable across releases.
package classify

import (
	"github.com/sqldrift/sqldrift/comparison/types"
)

// missingSeverities overrides the default for MISSING differences. A table or
// column absent from the destination breaks every application statement
// touching it; other missing objects degrade behavior without failing writes.
var missingSeverities = map[types.ObjectType]types.Severity{
	types.ObjectTypeTable:  types.SeverityBreaking,
	types.ObjectTypeColumn: types.SeverityBreaking,
}

// extraSeverities overrides the default for EXTRA differences. Constraints
// present only on the destination can reject writes the source side considers
// valid, so they warrant review; other extra objects are inert.
var extraSeverities = map[types.ObjectType]types.Severity{
	types.ObjectTypeConstraintPrimaryKey: types.SeverityWarning,
	types.ObjectTypeConstraintForeignKey: types.SeverityWarning,
	types.ObjectTypeConstraintUnique:     types.SeverityWarning,
	types.ObjectTypeConstraintCheck:      types.SeverityWarning,
}

// Severity resolves the severity for one difference.
//
// MODIFIED differences escalate to BREAKING when any attribute carries the
// breaking flag (type family changes, whole-body definition replacements) and
// settle at WARNING otherwise: a varchar(20) to varchar(50) widening is a
// reviewable ALTER, not a drop.
//
// MISSING differences default to WARNING, escalated per missingSeverities.
// EXTRA differences default to INFO, escalated per extraSeverities, because
// reconciling them is destructive and always left behind a review comment by
// the DDL generator.
func Severity(diff *types.ObjectDifference) types.Severity {
	switch diff.DifferenceType {
	case types.DifferenceModified:
		if diff.HasBreakingAttribute() {
			return types.SeverityBreaking
		}
		return types.SeverityWarning
	case types.DifferenceMissing:
		if s, ok := missingSeverities[diff.ObjectType]; ok {
			return s
		}
		return types.SeverityWarning
	case types.DifferenceExtra:
		if s, ok := extraSeverities[diff.ObjectType]; ok {
			return s
		}
		return types.SeverityInfo
	default:
		return types.SeverityWarning
	}
}

// Apply stamps the resolved severity onto the difference and returns it.
func Apply(diff *types.ObjectDifference) *types.ObjectDifference {
	diff.Severity = Severity(diff)
	return diff
}
