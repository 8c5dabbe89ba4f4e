// Package filter decides which schemas, tables and object types participate
// in a comparison run.
//
// Patterns come in two modes: wildcard (the default, where `*` matches any
// run of characters and `?` matches exactly one) and raw regular expressions.
// Wildcard patterns are translated by escaping every regex metacharacter and
// anchoring the result, so `temp_*` matches `temp_orders` and `temp_` but
// never `mytemp_orders`.
//
// Invalid regex patterns fail open: a pattern that does not compile never
// matches, so it never excludes a candidate. Each invalid pattern is logged
// once at WARN; callers that want hard validation use Validate.
package filter

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/sqldrift/sqldrift/comparison/types"
)

// Filter holds the inclusion and exclusion configuration for one comparison
// run. The zero value matches everything. Filters are not mutated after
// construction; independent runs use independent Filter values.
type Filter struct {
	// IncludedObjectTypes restricts comparison to the listed categories when
	// non-empty.
	IncludedObjectTypes []types.ObjectType

	// ExcludedObjectTypes removes categories from comparison regardless of
	// the inclusion list.
	ExcludedObjectTypes []types.ObjectType

	// ExcludeSchemaPatterns removes whole schemas. Evaluated first.
	ExcludeSchemaPatterns []string

	// ExcludeTablePatterns removes individual tables. Evaluated second.
	ExcludeTablePatterns []string

	// IncludeTablePatterns, when non-empty, is an allowlist: a table must
	// match at least one pattern to participate. Evaluated last.
	IncludeTablePatterns []string

	// UseRegex switches pattern interpretation from wildcard to raw regex.
	UseRegex bool

	compileOnce    sync.Once
	excludeSchemas []*regexp.Regexp
	excludeTables  []*regexp.Regexp
	includeTables  []*regexp.Regexp
	invalid        []string
}

// MatchesObjectType reports whether the given object category participates in
// the comparison: false if explicitly excluded, true if the inclusion list is
// empty or the category is explicitly included.
func (f *Filter) MatchesObjectType(objectType types.ObjectType) bool {
	for _, excluded := range f.ExcludedObjectTypes {
		if excluded == objectType {
			return false
		}
	}
	if len(f.IncludedObjectTypes) == 0 {
		return true
	}
	for _, included := range f.IncludedObjectTypes {
		if included == objectType {
			return true
		}
	}
	return false
}

// MatchesTable reports whether a table participates in the comparison. The
// evaluation order is fixed: schema exclusions, then table exclusions, then
// the inclusion allowlist when one is configured, then default true.
func (f *Filter) MatchesTable(schema, table string) bool {
	f.compile()

	for _, re := range f.excludeSchemas {
		if re != nil && re.MatchString(schema) {
			return false
		}
	}
	for _, re := range f.excludeTables {
		if re != nil && re.MatchString(table) {
			return false
		}
	}
	if len(f.IncludeTablePatterns) > 0 {
		for _, re := range f.includeTables {
			if re != nil && re.MatchString(table) {
				return true
			}
		}
		return false
	}
	return true
}

// Validate returns one error per pattern that does not compile in the
// configured mode. Wildcard patterns always compile; only raw regex patterns
// can fail.
func (f *Filter) Validate() []error {
	f.compile()
	var errs []error
	for _, pattern := range f.invalid {
		errs = append(errs, fmt.Errorf("invalid filter pattern %q", pattern))
	}
	return errs
}

// Describe renders the filter configuration as a short human-readable string
// recorded on comparison results.
func (f *Filter) Describe() string {
	var parts []string
	if len(f.IncludedObjectTypes) > 0 {
		parts = append(parts, fmt.Sprintf("types=%v", f.IncludedObjectTypes))
	}
	if len(f.ExcludedObjectTypes) > 0 {
		parts = append(parts, fmt.Sprintf("exclude-types=%v", f.ExcludedObjectTypes))
	}
	if len(f.ExcludeSchemaPatterns) > 0 {
		parts = append(parts, "exclude-schemas="+strings.Join(f.ExcludeSchemaPatterns, ","))
	}
	if len(f.ExcludeTablePatterns) > 0 {
		parts = append(parts, "exclude-tables="+strings.Join(f.ExcludeTablePatterns, ","))
	}
	if len(f.IncludeTablePatterns) > 0 {
		parts = append(parts, "include-tables="+strings.Join(f.IncludeTablePatterns, ","))
	}
	if f.UseRegex {
		parts = append(parts, "regex")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

func (f *Filter) compile() {
	f.compileOnce.Do(func() {
		f.excludeSchemas = f.compilePatterns(f.ExcludeSchemaPatterns)
		f.excludeTables = f.compilePatterns(f.ExcludeTablePatterns)
		f.includeTables = f.compilePatterns(f.IncludeTablePatterns)
	})
}

func (f *Filter) compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, pattern := range patterns {
		expr := pattern
		if !f.UseRegex {
			expr = wildcardToRegex(pattern)
		}
		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			// Fail open: an invalid pattern never matches, so it never
			// excludes a candidate.
			slog.Warn("ignoring invalid filter pattern", "pattern", pattern, "error", err)
			f.invalid = append(f.invalid, pattern)
			continue
		}
		compiled[i] = re
	}
	return compiled
}

// wildcardToRegex translates a wildcard pattern into a regular expression
// body: every regex metacharacter is escaped, `*` becomes `.*` and `?`
// becomes `.`. Anchoring happens at compile time.
func wildcardToRegex(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

// Merge combines two filter configurations into one. When only one side is in
// regex mode, the other side's wildcard patterns are translated first, so a
// preset's `*_backup` exclusion keeps its meaning next to user-supplied
// regexes.
func Merge(base, extra *Filter) *Filter {
	useRegex := base.UseRegex || extra.UseRegex

	translate := func(from *Filter, patterns []string) []string {
		if len(patterns) == 0 {
			return nil
		}
		if !useRegex || from.UseRegex {
			return append([]string(nil), patterns...)
		}
		out := make([]string, len(patterns))
		for i, p := range patterns {
			out[i] = wildcardToRegex(p)
		}
		return out
	}
	merge := func(a, b []string) []string {
		return append(a, b...)
	}

	return &Filter{
		IncludedObjectTypes: append(append([]types.ObjectType(nil), base.IncludedObjectTypes...), extra.IncludedObjectTypes...),
		ExcludedObjectTypes: append(append([]types.ObjectType(nil), base.ExcludedObjectTypes...), extra.ExcludedObjectTypes...),

		ExcludeSchemaPatterns: merge(translate(base, base.ExcludeSchemaPatterns), translate(extra, extra.ExcludeSchemaPatterns)),
		ExcludeTablePatterns:  merge(translate(base, base.ExcludeTablePatterns), translate(extra, extra.ExcludeTablePatterns)),
		IncludeTablePatterns:  merge(translate(base, base.IncludeTablePatterns), translate(extra, extra.IncludeTablePatterns)),

		UseRegex: useRegex,
	}
}
