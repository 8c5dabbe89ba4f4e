package ddl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sqldrift/sqldrift/comparison/types"
	"github.com/sqldrift/sqldrift/migration/resolver"
)

// ScriptMeta labels the header of a generated script.
type ScriptMeta struct {
	RunID       string
	Source      string
	Destination string
	GeneratedAt time.Time
}

// Script assembles the full reconciliation script from resolved differences.
//
// Layout is fixed: creates and alters first in apply order (parents before
// dependents), then drops in teardown order (dependents before parents), then
// a comment block for any cycle members that could not be ordered. Each
// difference's DDL is generated and stamped on it as a side effect.
func (g *Generator) Script(res *resolver.Result, meta ScriptMeta) string {
	var b strings.Builder

	fmt.Fprintf(&b, "-- sqldrift reconciliation script\n")
	if meta.RunID != "" {
		fmt.Fprintf(&b, "-- run: %s\n", meta.RunID)
	}
	if meta.Source != "" || meta.Destination != "" {
		fmt.Fprintf(&b, "-- source: %s\n-- destination: %s\n", meta.Source, meta.Destination)
	}
	if !meta.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "-- generated: %s\n", meta.GeneratedAt.UTC().Format(time.RFC3339))
	}
	b.WriteString("-- review before applying: BREAKING statements are commented out\n")

	var creates, drops []*types.ObjectDifference
	for _, diff := range res.ApplyOrder {
		if diff.DifferenceType == types.DifferenceExtra {
			continue
		}
		creates = append(creates, diff)
	}
	for _, diff := range res.TeardownOrder {
		if diff.DifferenceType == types.DifferenceExtra {
			drops = append(drops, diff)
		}
	}

	if len(creates) > 0 {
		b.WriteString("\n-- create and alter\n")
		for _, diff := range creates {
			writeStatement(&b, g.Generate(diff))
		}
	}
	if len(drops) > 0 {
		b.WriteString("\n-- drop\n")
		for _, diff := range drops {
			writeStatement(&b, g.Generate(diff))
		}
	}
	if len(res.Cyclic) > 0 {
		b.WriteString("\n-- unresolved dependency cycle, sequence manually\n")
		for _, diff := range res.Cyclic {
			writeStatement(&b, g.Generate(diff))
		}
	}

	return b.String()
}

func writeStatement(b *strings.Builder, stmt string) {
	if stmt == "" {
		return
	}
	b.WriteString("\n")
	b.WriteString(stmt)
	b.WriteString("\n")
}

// WriteScript saves a generated script to disk, creating parent directories
// as needed.
func WriteScript(path, script string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating script directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	return nil
}
