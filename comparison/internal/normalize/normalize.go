// Package normalize prepares object definitions and type names for
// comparison so that formatting noise does not produce false differences.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// Definition canonicalizes a definition body: whitespace runs collapse to a
// single space, trailing semicolons are stripped, and the text is lowercased.
// Two definitions that normalize to the same string are considered equal.
func Definition(s string) string {
	fields := strings.Fields(s)
	collapsed := strings.Join(fields, " ")
	collapsed = strings.TrimRight(collapsed, "; ")
	return lower.String(collapsed)
}

// typeAliases maps catalog spellings to a canonical family name. The catalog
// reports "character varying" where DDL says "varchar"; both sides must
// normalize to the same spelling before comparison.
var typeAliases = map[string]string{
	"character varying":           "varchar",
	"character":                   "char",
	"integer":                     "int",
	"int4":                        "int",
	"int2":                        "smallint",
	"int8":                        "bigint",
	"serial":                      "int",
	"smallserial":                 "smallint",
	"bigserial":                   "bigint",
	"boolean":                     "bool",
	"double precision":            "float8",
	"real":                        "float4",
	"numeric":                     "decimal",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamptz",
	"time without time zone":      "time",
	"time with time zone":         "timetz",
}

// TypeName canonicalizes a data type, preserving any length or precision
// suffix: "Character Varying(50)" becomes "varchar(50)".
func TypeName(s string) string {
	t := strings.TrimSpace(lower.String(s))
	base, suffix := splitTypeSuffix(t)
	base = strings.TrimSpace(base)
	if alias, ok := typeAliases[base]; ok {
		base = alias
	}
	return base + suffix
}

// BaseType returns the canonical type family with any length or precision
// suffix removed: "varchar(50)" and "character varying(20)" both become
// "varchar". Used to decide whether a type change crosses families.
func BaseType(s string) string {
	base, _ := splitTypeSuffix(TypeName(s))
	return base
}

// SameTypeFamily reports whether two type spellings share a canonical
// family. Length and precision changes within a family are reconcilable via
// ALTER; family changes imply a rewrite.
func SameTypeFamily(a, b string) bool {
	return BaseType(a) == BaseType(b)
}

// DefaultValue canonicalizes a default expression: PostgreSQL-style type
// casts are stripped, the text is lowercased, and a bare NULL normalizes to
// the empty string (no default).
func DefaultValue(s string) string {
	v := strings.TrimSpace(s)
	if idx := strings.Index(v, "::"); idx >= 0 {
		v = strings.TrimSpace(v[:idx])
	}
	v = lower.String(v)
	if v == "null" {
		return ""
	}
	return v
}

func splitTypeSuffix(t string) (base, suffix string) {
	if idx := strings.Index(t, "("); idx >= 0 {
		return t[:idx], strings.ReplaceAll(t[idx:], " ", "")
	}
	return t, ""
}
