package types

import (
	"time"

	"github.com/google/uuid"
)

// RunState tracks the lifecycle of a single comparison run.
type RunState string

const (
	// RunStateRunning means differences are still being accumulated.
	RunStateRunning RunState = "RUNNING"

	// RunStateSucceeded means the run completed; the result is frozen and
	// safe for concurrent reads.
	RunStateSucceeded RunState = "SUCCEEDED"

	// RunStateFailed means the run aborted; partial differences are retained
	// for diagnostics but no DDL is guaranteed complete.
	RunStateFailed RunState = "FAILED"
)

// ComparisonSummary carries write-through counters over the accumulated
// difference list. Counters are updated on every Record call, never
// recomputed lazily, so TotalDifferences always equals
// Missing+Extra+Modified and always equals the owning result's list length.
type ComparisonSummary struct {
	TotalDifferences int `json:"total_differences"`

	Missing  int `json:"missing"`
	Extra    int `json:"extra"`
	Modified int `json:"modified"`

	Breaking int `json:"breaking"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`

	// ByObjectType counts differences per object category.
	ByObjectType map[ObjectType]int `json:"by_object_type"`

	// ObjectTypesScanned counts objects examined per category, including the
	// ones that matched. Filled in by the engine as comparators run.
	ObjectTypesScanned map[ObjectType]int `json:"object_types_scanned"`
}

// NewComparisonSummary returns an empty summary with initialized maps.
func NewComparisonSummary() *ComparisonSummary {
	return &ComparisonSummary{
		ByObjectType:       make(map[ObjectType]int),
		ObjectTypesScanned: make(map[ObjectType]int),
	}
}

// Record updates every counter affected by one difference.
func (s *ComparisonSummary) Record(diff *ObjectDifference) {
	s.TotalDifferences++

	switch diff.DifferenceType {
	case DifferenceMissing:
		s.Missing++
	case DifferenceExtra:
		s.Extra++
	case DifferenceModified:
		s.Modified++
	}

	switch diff.Severity {
	case SeverityBreaking:
		s.Breaking++
	case SeverityWarning:
		s.Warning++
	case SeverityInfo:
		s.Info++
	}

	s.ByObjectType[diff.ObjectType]++
}

// RecordScanned notes that count objects of the given category were examined.
func (s *ComparisonSummary) RecordScanned(objectType ObjectType, count int) {
	s.ObjectTypesScanned[objectType] += count
}

// SchemaComparisonResult is the aggregate outcome of one comparison run.
//
// A result is created at scan start (timestamp assigned, ID generated),
// mutated only via AddDifference while the run is RUNNING, and frozen by
// Succeed or Fail. It owns Differences and Summary exclusively; Summary is
// derived and always equals an aggregation over Differences.
//
// A single run is single-writer by contract: AddDifference is called from one
// logical goroutine because the summary counters are not synchronized.
// Independent runs share no state and may execute in parallel. Once
// finalized, a result is immutable and safe for concurrent reads.
type SchemaComparisonResult struct {
	ID                  string   `json:"id"`
	SourceInstance      string   `json:"source_instance"`
	DestinationInstance string   `json:"destination_instance"`
	SourceSchema        string   `json:"source_schema"`
	DestinationSchema   string   `json:"destination_schema"`
	PerformedBy         string   `json:"performed_by,omitempty"`
	State               RunState `json:"state"`

	ComparedAt     time.Time `json:"compared_at"`
	DurationMillis int64     `json:"duration_millis"`
	ErrorMessage   string    `json:"error_message,omitempty"`

	Summary     *ComparisonSummary  `json:"summary"`
	Differences []*ObjectDifference `json:"differences"`

	// FilterDescription records the filter configuration applied to the run,
	// empty when no filtering was requested.
	FilterDescription string `json:"filter,omitempty"`

	// Script is the assembled DDL migration script in resolver order.
	Script string `json:"script,omitempty"`
}

// NewSchemaComparisonResult starts a new RUNNING result with a fresh ID and
// the comparison timestamp assigned.
func NewSchemaComparisonResult(sourceInstance, destinationInstance, sourceSchema, destinationSchema string) *SchemaComparisonResult {
	return &SchemaComparisonResult{
		ID:                  uuid.NewString(),
		SourceInstance:      sourceInstance,
		DestinationInstance: destinationInstance,
		SourceSchema:        sourceSchema,
		DestinationSchema:   destinationSchema,
		State:               RunStateRunning,
		ComparedAt:          time.Now().UTC(),
		Summary:             NewComparisonSummary(),
	}
}

// ErrResultFinalized is returned when a mutation is attempted on a result
// that already reached SUCCEEDED or FAILED.
type ErrResultFinalized struct {
	State RunState
}

func (e *ErrResultFinalized) Error() string {
	return "schema comparison result is finalized in state " + string(e.State)
}

// AddDifference appends one difference and updates the summary counters
// atomically with respect to the single-writer contract. It fails once the
// result is finalized.
func (r *SchemaComparisonResult) AddDifference(diff *ObjectDifference) error {
	if r.State != RunStateRunning {
		return &ErrResultFinalized{State: r.State}
	}
	r.Differences = append(r.Differences, diff)
	r.Summary.Record(diff)
	return nil
}

// Succeed freezes the result with the run duration set and no error message.
func (r *SchemaComparisonResult) Succeed(duration time.Duration) {
	if r.State != RunStateRunning {
		return
	}
	r.DurationMillis = duration.Milliseconds()
	r.State = RunStateSucceeded
}

// Fail freezes the result with an error message. Partial differences are
// retained for diagnostics.
func (r *SchemaComparisonResult) Fail(duration time.Duration, message string) {
	if r.State != RunStateRunning {
		return
	}
	r.DurationMillis = duration.Milliseconds()
	r.ErrorMessage = message
	r.State = RunStateFailed
}

// IsIdentical reports whether the run completed without finding any
// difference.
func (r *SchemaComparisonResult) IsIdentical() bool {
	return r.State == RunStateSucceeded && len(r.Differences) == 0
}

// HasBreakingChanges reports whether any accumulated difference is BREAKING.
func (r *SchemaComparisonResult) HasBreakingChanges() bool {
	for _, diff := range r.Differences {
		if diff.Severity == SeverityBreaking {
			return true
		}
	}
	return false
}

// DifferencesBySeverity returns the differences matching the given severity,
// preserving accumulation order.
func (r *SchemaComparisonResult) DifferencesBySeverity(severity Severity) []*ObjectDifference {
	var out []*ObjectDifference
	for _, diff := range r.Differences {
		if diff.Severity == severity {
			out = append(out, diff)
		}
	}
	return out
}

// DifferencesByObjectType returns the differences for one object category,
// preserving accumulation order.
func (r *SchemaComparisonResult) DifferencesByObjectType(objectType ObjectType) []*ObjectDifference {
	var out []*ObjectDifference
	for _, diff := range r.Differences {
		if diff.ObjectType == objectType {
			out = append(out, diff)
		}
	}
	return out
}

// DifferencesByDiffType returns the differences matching the given difference
// type, preserving accumulation order.
func (r *SchemaComparisonResult) DifferencesByDiffType(diffType DifferenceType) []*ObjectDifference {
	var out []*ObjectDifference
	for _, diff := range r.Differences {
		if diff.DifferenceType == diffType {
			out = append(out, diff)
		}
	}
	return out
}
