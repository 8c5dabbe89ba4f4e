package filter

import (
	"fmt"
	"strings"
)

// Preset names accepted by Parse. Presets are immutable constant
// configurations: every call returns a fresh Filter value, so callers can
// never mutate shared state.
const (
	PresetNone                 = "NONE"
	PresetExcludeTempTables    = "EXCLUDE_TEMP_TABLES"
	PresetExcludeSystemSchemas = "EXCLUDE_SYSTEM_SCHEMAS"
	PresetProductionSafe       = "PRODUCTION_SAFE"
)

// None returns a filter that matches everything.
func None() *Filter {
	return &Filter{}
}

// ExcludeTempTables returns a filter that removes conventional temporary and
// scratch tables from comparison.
func ExcludeTempTables() *Filter {
	return &Filter{
		ExcludeTablePatterns: []string{"temp_*", "tmp_*", "*_temp", "*_tmp"},
	}
}

// ExcludeSystemSchemas returns a filter that removes database-internal
// schemas from comparison.
func ExcludeSystemSchemas() *Filter {
	return &Filter{
		ExcludeSchemaPatterns: []string{
			"pg_*",
			"information_schema",
			"mysql",
			"performance_schema",
			"sys",
		},
	}
}

// ProductionSafe combines the temp-table and system-schema exclusions and
// additionally removes conventional backup tables.
func ProductionSafe() *Filter {
	return &Filter{
		ExcludeSchemaPatterns: ExcludeSystemSchemas().ExcludeSchemaPatterns,
		ExcludeTablePatterns: append(ExcludeTempTables().ExcludeTablePatterns,
			"*_backup", "*_bak", "*_old"),
	}
}

// Parse resolves a preset name to its filter configuration. Names are
// case-insensitive.
func Parse(name string) (*Filter, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case PresetNone, "":
		return None(), nil
	case PresetExcludeTempTables:
		return ExcludeTempTables(), nil
	case PresetExcludeSystemSchemas:
		return ExcludeSystemSchemas(), nil
	case PresetProductionSafe:
		return ProductionSafe(), nil
	default:
		return nil, fmt.Errorf("unknown filter preset %q", name)
	}
}

// FromPatterns builds a filter from a comma-separated table exclusion
// pattern string, in wildcard or regex mode.
func FromPatterns(csv string, useRegex bool) *Filter {
	var patterns []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return &Filter{
		ExcludeTablePatterns: patterns,
		UseRegex:             useRegex,
	}
}
