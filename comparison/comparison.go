// Package comparison implements the schema comparison engine.
//
// # Overview
//
// The engine takes two fully materialized schema snapshots, a source (the
// reference) and a destination (the side under inspection), and produces a
// SchemaComparisonResult: the list of structural differences, severity
// classification for each, summary counters, and a dependency-ordered DDL
// script that would reconcile the destination toward the source.
//
// # Pipeline
//
// A run walks a fixed pipeline:
//
//  1. comparators run per object category in a fixed order, emitting
//     ObjectDifference records through a single collector;
//  2. each difference is severity-classified as it is collected;
//  3. the dependency resolver topologically orders the accumulated
//     differences;
//  4. the DDL generator renders per-difference statements and the assembled
//     script in resolver order.
//
// The engine never connects to a database: snapshot acquisition is the
// dbschema package's job, and both snapshots are complete before a run
// starts. A run is single-writer; independent runs share no state and may
// execute concurrently.
package comparison

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sqldrift/sqldrift/comparison/classify"
	"github.com/sqldrift/sqldrift/comparison/filter"
	"github.com/sqldrift/sqldrift/comparison/internal/compare"
	"github.com/sqldrift/sqldrift/comparison/types"
	"github.com/sqldrift/sqldrift/config"
	dbtypes "github.com/sqldrift/sqldrift/dbschema/types"
	"github.com/sqldrift/sqldrift/migration/ddl"
	"github.com/sqldrift/sqldrift/migration/resolver"
)

// ErrorKind discriminates engine failures so callers can map them to exit
// codes or retry policies without string matching.
type ErrorKind string

const (
	// ErrInvalidInput means a snapshot was missing or malformed.
	ErrInvalidInput ErrorKind = "INVALID_INPUT"

	// ErrInvalidFilterPattern means strict filter validation rejected a
	// pattern.
	ErrInvalidFilterPattern ErrorKind = "INVALID_FILTER_PATTERN"

	// ErrCanceled means the context expired or was canceled mid-run.
	ErrCanceled ErrorKind = "CANCELED"
)

// Error is the engine failure type. It wraps the underlying cause and names
// the object or pattern being processed when the failure occurred.
type Error struct {
	Kind    ErrorKind
	Context string
	Err     error
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Request carries everything one comparison run needs.
type Request struct {
	// Source is the reference snapshot.
	Source *dbtypes.Snapshot

	// Destination is the snapshot under inspection.
	Destination *dbtypes.Snapshot

	// SourceInstance and DestinationInstance label the result for display;
	// typically redacted connection targets.
	SourceInstance      string
	DestinationInstance string

	// Filter restricts which objects participate. Nil compares everything.
	Filter *filter.Filter

	// Options carries tuning knobs. Nil uses DefaultCompareOptions.
	Options *config.CompareOptions

	// StrictFilters fails the run on invalid filter patterns instead of
	// letting them fail open.
	StrictFilters bool
}

// comparatorEntry binds one comparator function to the object categories it
// covers. Some comparators cover several categories: the table comparator
// also emits column differences, the constraint comparator splits into four
// constraint categories. Emitted differences are gated per category by the
// filter regardless of entry granularity.
type comparatorEntry struct {
	primary types.ObjectType
	covers  []types.ObjectType
	run     func(*compare.Input) int
}

// comparators lists every comparator in the fixed execution order. The order
// only affects result listing; the resolver owns dependency-safe DDL order.
var comparators = []comparatorEntry{
	{primary: types.ObjectTypeExtension, covers: []types.ObjectType{types.ObjectTypeExtension}, run: compare.Extensions},
	{primary: types.ObjectTypeEnum, covers: []types.ObjectType{types.ObjectTypeEnum}, run: compare.Enums},
	{primary: types.ObjectTypeComposite, covers: []types.ObjectType{types.ObjectTypeComposite}, run: compare.Composites},
	{primary: types.ObjectTypeDomain, covers: []types.ObjectType{types.ObjectTypeDomain}, run: compare.Domains},
	{primary: types.ObjectTypeSequence, covers: []types.ObjectType{types.ObjectTypeSequence}, run: compare.Sequences},
	{primary: types.ObjectTypeTable, covers: []types.ObjectType{types.ObjectTypeTable, types.ObjectTypeColumn}, run: compare.Tables},
	{primary: types.ObjectTypeConstraintPrimaryKey, covers: []types.ObjectType{
		types.ObjectTypeConstraintPrimaryKey, types.ObjectTypeConstraintForeignKey,
		types.ObjectTypeConstraintUnique, types.ObjectTypeConstraintCheck,
	}, run: compare.Constraints},
	{primary: types.ObjectTypeIndex, covers: []types.ObjectType{types.ObjectTypeIndex}, run: compare.Indexes},
	{primary: types.ObjectTypeView, covers: []types.ObjectType{types.ObjectTypeView}, run: compare.Views},
	{primary: types.ObjectTypeMaterializedView, covers: []types.ObjectType{types.ObjectTypeMaterializedView}, run: compare.MaterializedViews},
	{primary: types.ObjectTypeFunction, covers: []types.ObjectType{types.ObjectTypeFunction}, run: compare.Functions},
	{primary: types.ObjectTypeProcedure, covers: []types.ObjectType{types.ObjectTypeProcedure}, run: compare.Procedures},
	{primary: types.ObjectTypeTrigger, covers: []types.ObjectType{types.ObjectTypeTrigger}, run: compare.Triggers},
}

// Compare runs a full comparison of two snapshots with no filtering and
// default options.
func Compare(ctx context.Context, source, destination *dbtypes.Snapshot) (*types.SchemaComparisonResult, error) {
	return CompareWithOptions(ctx, &Request{Source: source, Destination: destination})
}

// CompareWithOptions runs one comparison per the request.
//
// The returned result is always non-nil once inputs validate: on mid-run
// failure it is finalized FAILED with partial differences retained for
// diagnostics, and the error explains the abort.
func CompareWithOptions(ctx context.Context, req *Request) (*types.SchemaComparisonResult, error) {
	if req.Source == nil || req.Destination == nil {
		return nil, &Error{Kind: ErrInvalidInput, Err: fmt.Errorf("both snapshots are required")}
	}

	f := req.Filter
	if f == nil {
		f = filter.None()
	}
	opts := req.Options
	if opts == nil {
		opts = config.DefaultCompareOptions()
	}

	if req.StrictFilters {
		if errs := f.Validate(); len(errs) > 0 {
			return nil, &Error{Kind: ErrInvalidFilterPattern, Context: errs[0].Error(), Err: errs[0]}
		}
	}

	started := time.Now()
	result := types.NewSchemaComparisonResult(
		req.SourceInstance, req.DestinationInstance,
		req.Source.SchemaName, req.Destination.SchemaName)
	result.PerformedBy = opts.PerformedBy
	if desc := f.Describe(); desc != "none" {
		result.FilterDescription = desc
	}

	slog.Info("starting schema comparison",
		"run", result.ID,
		"source_schema", req.Source.SchemaName,
		"destination_schema", req.Destination.SchemaName,
		"filter", f.Describe())

	input := &compare.Input{
		Source:      req.Source,
		Destination: req.Destination,
		Filter:      f,
		Options:     opts,
		Emit: func(diff *types.ObjectDifference) {
			if !f.MatchesObjectType(diff.ObjectType) {
				return
			}
			classify.Apply(diff)
			// AddDifference only fails after finalization, which cannot
			// happen while comparators run.
			_ = result.AddDifference(diff)
		},
	}

	for _, entry := range comparators {
		if err := ctx.Err(); err != nil {
			result.Fail(time.Since(started), err.Error())
			return result, &Error{Kind: ErrCanceled, Context: string(entry.primary), Err: err}
		}
		if !anyTypeMatches(f, entry.covers) {
			continue
		}
		scanned := entry.run(input)
		result.Summary.RecordScanned(entry.primary, scanned)
	}

	resolved, err := resolver.Resolve(result.Differences)
	if err != nil {
		// A cycle degrades ordering, not correctness: cycle members are
		// emitted in a manual-review section of the script.
		slog.Warn("dependency resolution incomplete", "run", result.ID, "error", err)
	}

	gen := ddl.NewGenerator(req.Source, req.Destination)
	result.Script = gen.Script(resolved, ddl.ScriptMeta{
		RunID:       result.ID,
		Source:      req.SourceInstance,
		Destination: req.DestinationInstance,
		GeneratedAt: time.Now(),
	})

	result.Succeed(time.Since(started))

	slog.Info("schema comparison finished",
		"run", result.ID,
		"differences", result.Summary.TotalDifferences,
		"breaking", result.Summary.Breaking,
		"duration_ms", result.DurationMillis)

	return result, nil
}

func anyTypeMatches(f *filter.Filter, objectTypes []types.ObjectType) bool {
	for _, t := range objectTypes {
		if f.MatchesObjectType(t) {
			return true
		}
	}
	return false
}
