// Package config provides programmatic configuration for the sqldrift
// comparison engine.
//
// It focuses on clean Go APIs for library use; CLI flag and environment
// handling lives in the cmd packages.
package config

// CompareOptions contains configuration options for schema comparison runs.
type CompareOptions struct {
	// IgnoredExtensions lists extension names excluded from comparison.
	// Ignored extensions are never reported MISSING or EXTRA and never
	// appear in generated DDL.
	//
	// Common extensions to ignore:
	// - plpgsql: default procedural language, usually pre-installed
	// - adminpack: administrative functions, often pre-installed
	IgnoredExtensions []string

	// PerformedBy optionally labels who or what triggered the run; recorded
	// on the result for audit display.
	PerformedBy string
}

// DefaultCompareOptions returns comparison options with sensible defaults:
// commonly pre-installed extensions are ignored.
func DefaultCompareOptions() *CompareOptions {
	return &CompareOptions{
		IgnoredExtensions: []string{
			"plpgsql", // pre-installed procedural language
		},
	}
}

// WithIgnoredExtensions returns a new CompareOptions with the specified
// ignored extensions, replacing the defaults entirely.
//
// Example:
//
//	opts := config.WithIgnoredExtensions("plpgsql", "adminpack")
func WithIgnoredExtensions(extensions ...string) *CompareOptions {
	return &CompareOptions{
		IgnoredExtensions: extensions,
	}
}

// WithAdditionalIgnoredExtensions returns a new CompareOptions that keeps the
// default ignored extensions and appends the given ones.
func WithAdditionalIgnoredExtensions(extensions ...string) *CompareOptions {
	defaults := DefaultCompareOptions()
	all := make([]string, 0, len(defaults.IgnoredExtensions)+len(extensions))
	all = append(all, defaults.IgnoredExtensions...)
	all = append(all, extensions...)

	return &CompareOptions{
		IgnoredExtensions: all,
	}
}

// IsExtensionIgnored checks whether the given extension name is excluded
// from comparison under the current configuration.
func (c *CompareOptions) IsExtensionIgnored(extensionName string) bool {
	for _, ignored := range c.IgnoredExtensions {
		if ignored == extensionName {
			return true
		}
	}
	return false
}
