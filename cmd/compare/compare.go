// Package compare implements the `sqldrift compare` command.
package compare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sqldrift/sqldrift/comparison"
	"github.com/sqldrift/sqldrift/comparison/filter"
	"github.com/sqldrift/sqldrift/comparison/types"
	"github.com/sqldrift/sqldrift/config"
	"github.com/sqldrift/sqldrift/dbschema"
	"github.com/sqldrift/sqldrift/migration/ddl"
)

// Exit codes. The comparison outcome is part of the command contract so CI
// pipelines can gate on drift without parsing output.
const (
	ExitIdentical   = 0
	ExitDifferences = 1
	ExitBreaking    = 2
	ExitCompareFail = 3
)

// ExitError carries the process exit code alongside the cause. main unwraps
// it to pick the exit status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

const (
	sourceFlag      = "source"
	destinationFlag = "destination"
	schemaFlag      = "schema"
	destSchemaFlag  = "dest-schema"
	presetFlag      = "preset"
	excludeFlag     = "exclude-tables"
	regexFlag       = "regex"
	typesFlag       = "types"
	outputFlag      = "output"
	scriptFileFlag  = "script-file"
	performedByFlag = "performed-by"
	timeoutFlag     = "timeout"
)

var compareFlags = map[string]cobraflags.Flag{
	sourceFlag: &cobraflags.StringFlag{
		Name:  sourceFlag,
		Value: "",
		Usage: "Source (reference) database URL; falls back to SQLDRIFT_SOURCE",
	},
	destinationFlag: &cobraflags.StringFlag{
		Name:  destinationFlag,
		Value: "",
		Usage: "Destination database URL; falls back to SQLDRIFT_DESTINATION",
	},
	schemaFlag: &cobraflags.StringFlag{
		Name:  schemaFlag,
		Value: "",
		Usage: "Schema to compare on both sides (default: dialect default)",
	},
	destSchemaFlag: &cobraflags.StringFlag{
		Name:  destSchemaFlag,
		Value: "",
		Usage: "Destination schema when it differs from --schema",
	},
	presetFlag: &cobraflags.StringFlag{
		Name:  presetFlag,
		Value: "none",
		Usage: "Filter preset: none, exclude_temp_tables, exclude_system_schemas, production_safe",
	},
	excludeFlag: &cobraflags.StringFlag{
		Name:  excludeFlag,
		Value: "",
		Usage: "Comma-separated table exclusion patterns (wildcard unless --regex)",
	},
	regexFlag: &cobraflags.BoolFlag{
		Name:  regexFlag,
		Value: false,
		Usage: "Interpret exclusion patterns as regular expressions",
	},
	typesFlag: &cobraflags.StringFlag{
		Name:  typesFlag,
		Value: "",
		Usage: "Comma-separated object types to compare (default: all)",
	},
	outputFlag: &cobraflags.StringFlag{
		Name:  outputFlag,
		Value: "text",
		Usage: "Output format: text, json, ddl",
	},
	scriptFileFlag: &cobraflags.StringFlag{
		Name:  scriptFileFlag,
		Value: "",
		Usage: "Write the reconciliation DDL script to this .sql file",
	},
	performedByFlag: &cobraflags.StringFlag{
		Name:  performedByFlag,
		Value: "",
		Usage: "Label recorded on the result for audit display",
	},
	timeoutFlag: &cobraflags.StringFlag{
		Name:  timeoutFlag,
		Value: "5m",
		Usage: "Overall comparison timeout",
	},
}

// NewCompareCommand builds the compare command.
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two database schemas and report structural drift",
		Long: `Compare a destination database schema against a source (reference) schema.

The command reports every structural difference with a severity, and renders
a dependency-ordered DDL script that would reconcile the destination toward
the source. BREAKING statements are emitted commented out for review.

Exit codes:
  0  schemas are identical
  1  non-breaking differences found
  2  breaking differences found
  3  comparison failed (connection, snapshot or input error)`,
		RunE: runCompare,
	}
	cobraflags.RegisterMap(cmd, compareFlags)
	return cmd
}

func runCompare(cmd *cobra.Command, _ []string) error {
	sourceDSN := flagOrEnv(sourceFlag, "source")
	destDSN := flagOrEnv(destinationFlag, "destination")
	if sourceDSN == "" || destDSN == "" {
		return &ExitError{Code: ExitCompareFail,
			Err: fmt.Errorf("both --source and --destination are required")}
	}

	timeout, err := time.ParseDuration(compareFlags[timeoutFlag].GetString())
	if err != nil {
		return &ExitError{Code: ExitCompareFail, Err: fmt.Errorf("invalid --timeout: %w", err)}
	}

	f, err := buildFilter()
	if err != nil {
		return &ExitError{Code: ExitCompareFail, Err: err}
	}

	schema := compareFlags[schemaFlag].GetString()
	destSchema := compareFlags[destSchemaFlag].GetString()
	if destSchema == "" {
		destSchema = schema
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	source, err := dbschema.ConnectToDatabase(sourceDSN, schema)
	if err != nil {
		return &ExitError{Code: ExitCompareFail, Err: fmt.Errorf("source: %w", err)}
	}
	defer source.Close()

	dest, err := dbschema.ConnectToDatabase(destDSN, destSchema)
	if err != nil {
		return &ExitError{Code: ExitCompareFail, Err: fmt.Errorf("destination: %w", err)}
	}
	defer dest.Close()

	slog.Info("capturing snapshots",
		"source", source.Redacted(), "destination", dest.Redacted())

	sourceSnap, err := source.Reader().ReadSchema()
	if err != nil {
		return &ExitError{Code: ExitCompareFail, Err: fmt.Errorf("source snapshot: %w", err)}
	}
	destSnap, err := dest.Reader().ReadSchema()
	if err != nil {
		return &ExitError{Code: ExitCompareFail, Err: fmt.Errorf("destination snapshot: %w", err)}
	}

	opts := config.DefaultCompareOptions()
	opts.PerformedBy = compareFlags[performedByFlag].GetString()

	result, err := comparison.CompareWithOptions(ctx, &comparison.Request{
		Source:              sourceSnap,
		Destination:         destSnap,
		SourceInstance:      source.Redacted(),
		DestinationInstance: dest.Redacted(),
		Filter:              f,
		Options:             opts,
		StrictFilters:       true,
	})
	if err != nil {
		return &ExitError{Code: ExitCompareFail, Err: err}
	}

	if err := render(cmd, result); err != nil {
		return &ExitError{Code: ExitCompareFail, Err: err}
	}

	if path := compareFlags[scriptFileFlag].GetString(); path != "" {
		if err := ddl.WriteScript(path, result.Script); err != nil {
			return &ExitError{Code: ExitCompareFail, Err: err}
		}
		slog.Info("reconciliation script written", "path", path)
	}

	switch {
	case result.HasBreakingChanges():
		return &ExitError{Code: ExitBreaking,
			Err: fmt.Errorf("%d difference(s) found, %d breaking",
				result.Summary.TotalDifferences, result.Summary.Breaking)}
	case !result.IsIdentical():
		return &ExitError{Code: ExitDifferences,
			Err: fmt.Errorf("%d difference(s) found", result.Summary.TotalDifferences)}
	}
	return nil
}

func flagOrEnv(flag, envKey string) string {
	if v := compareFlags[flag].GetString(); v != "" {
		return v
	}
	return viper.GetString(envKey)
}

func buildFilter() (*filter.Filter, error) {
	f, err := filter.Parse(compareFlags[presetFlag].GetString())
	if err != nil {
		return nil, err
	}

	if patterns := compareFlags[excludeFlag].GetString(); patterns != "" {
		f = filter.Merge(f, filter.FromPatterns(patterns, compareFlags[regexFlag].GetBool()))
	}

	if list := compareFlags[typesFlag].GetString(); list != "" {
		included, err := parseObjectTypes(list)
		if err != nil {
			return nil, err
		}
		f.IncludedObjectTypes = included
	}

	return f, nil
}

func parseObjectTypes(csv string) ([]types.ObjectType, error) {
	known := make(map[types.ObjectType]bool)
	for _, t := range types.AllObjectTypes() {
		known[t] = true
	}

	var out []types.ObjectType
	for _, raw := range strings.Split(csv, ",") {
		raw = strings.ToUpper(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		t := types.ObjectType(raw)
		if !known[t] {
			return nil, fmt.Errorf("unknown object type %q", raw)
		}
		out = append(out, t)
	}
	return out, nil
}

func render(cmd *cobra.Command, result *types.SchemaComparisonResult) error {
	out := cmd.OutOrStdout()

	switch compareFlags[outputFlag].GetString() {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "ddl":
		fmt.Fprintln(out, result.Script)
		return nil
	case "text":
		renderText(out, result)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", compareFlags[outputFlag].GetString())
	}
}

// renderText prints the run header, a difference table sorted by severity
// then name, and the summary counters.
func renderText(out io.Writer, result *types.SchemaComparisonResult) {
	fmt.Fprintf(out, "Comparison %s: %s -> %s\n",
		result.ID, result.SourceInstance, result.DestinationInstance)
	if result.FilterDescription != "" {
		fmt.Fprintf(out, "Filter: %s\n", result.FilterDescription)
	}

	if result.IsIdentical() {
		fmt.Fprintln(out, "Schemas are identical.")
		return
	}

	diffs := make([]*types.ObjectDifference, len(result.Differences))
	copy(diffs, result.Differences)
	sort.SliceStable(diffs, func(i, j int) bool {
		if diffs[i].Severity != diffs[j].Severity {
			return severityRank(diffs[i].Severity) < severityRank(diffs[j].Severity)
		}
		return diffs[i].QualifiedName() < diffs[j].QualifiedName()
	})

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Severity", "Type", "Object", "Difference", "Details"})
	for _, diff := range diffs {
		t.AppendRow(table.Row{
			diff.Severity, diff.ObjectType, diff.QualifiedName(),
			diff.DifferenceType, attributeSummary(diff),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", result.Summary.TotalDifferences})
	t.Render()

	fmt.Fprintf(out, "\n%d breaking, %d warning, %d info (%d missing, %d extra, %d modified) in %dms\n",
		result.Summary.Breaking, result.Summary.Warning, result.Summary.Info,
		result.Summary.Missing, result.Summary.Extra, result.Summary.Modified,
		result.DurationMillis)
}

func severityRank(s types.Severity) int {
	switch s {
	case types.SeverityBreaking:
		return 0
	case types.SeverityWarning:
		return 1
	default:
		return 2
	}
}

func attributeSummary(diff *types.ObjectDifference) string {
	if len(diff.Attributes) == 0 {
		return ""
	}
	parts := make([]string, 0, len(diff.Attributes))
	for _, attr := range diff.Attributes {
		switch {
		case attr.IsModified():
			parts = append(parts, fmt.Sprintf("%s: %s -> %s", attr.Name, *attr.Source, *attr.Destination))
		case attr.IsRemoved():
			parts = append(parts, fmt.Sprintf("%s: removed from destination", attr.Name))
		case attr.IsAdded():
			parts = append(parts, fmt.Sprintf("%s: added on destination", attr.Name))
		}
	}
	return strings.Join(parts, "; ")
}
