// Package resolver orders differences so that generated DDL respects object
// dependencies.
//
// Differences form a directed graph: an edge runs from a parent object to
// every object that cannot exist without it (a table to its indexes, a
// referenced table to the foreign key pointing at it). A topological sort of
// that graph yields the apply order, where parents are created before
// dependents; the teardown order is its exact reverse, so dependents are
// dropped before the objects they depend on.
package resolver

import (
	"fmt"
	"sort"

	"github.com/sqldrift/sqldrift/comparison/types"
)

// Result holds the two orderings consumed by the DDL generator.
type Result struct {
	// ApplyOrder lists differences parent-first: safe for CREATE and ALTER
	// statements.
	ApplyOrder []*types.ObjectDifference

	// TeardownOrder lists differences dependent-first: safe for DROP
	// statements. Always the exact reverse of ApplyOrder.
	TeardownOrder []*types.ObjectDifference

	// Cyclic lists differences that participate in a dependency cycle. They
	// are excluded from both orderings and need manual sequencing.
	Cyclic []*types.ObjectDifference
}

// CycleError reports that one or more dependency cycles were found. The
// resolver still produces a valid ordering for the acyclic remainder.
type CycleError struct {
	// Members holds the qualified names of all cycle participants, sorted.
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle among %d objects: %v", len(e.Members), e.Members)
}

type node struct {
	diff     *types.ObjectDifference
	key      string
	inDegree int
	emitted  bool
}

// Resolve topologically sorts the differences using Kahn's algorithm. Ties
// break alphabetically by qualified name so the ordering is deterministic.
//
// Edges referencing objects with no difference of their own are ignored: a
// column difference whose table exists unchanged on both sides has no table
// node to order against.
//
// When the graph contains a cycle, Resolve isolates the cycle members into
// Result.Cyclic, orders everything else normally, and returns a CycleError
// alongside the partial result.
func Resolve(diffs []*types.ObjectDifference) (*Result, error) {
	nodes := make([]*node, len(diffs))
	byName := make(map[string][]*node)
	for i, diff := range diffs {
		n := &node{diff: diff, key: nodeKey(diff)}
		nodes[i] = n
		byName[diff.QualifiedName()] = append(byName[diff.QualifiedName()], n)
	}

	// adjacency holds parent -> dependents edges. Duplicate edges are
	// deduplicated so in-degrees stay correct.
	adjacency := make(map[*node]map[*node]bool)
	addEdge := func(from, to *node) {
		if from == to {
			return
		}
		if adjacency[from] == nil {
			adjacency[from] = make(map[*node]bool)
		}
		if !adjacency[from][to] {
			adjacency[from][to] = true
			to.inDegree++
		}
	}

	for _, n := range nodes {
		if parent := n.diff.ParentObjectName; parent != "" {
			for _, p := range byName[parent] {
				addEdge(p, n)
			}
		}
		for _, dep := range n.diff.DependentObjects {
			for _, d := range byName[dep] {
				addEdge(n, d)
			}
		}
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].key < nodes[j].key })

	result := &Result{}
	remaining := len(nodes)
	for remaining > 0 {
		progressed := false
		for _, n := range nodes {
			if n.emitted || n.inDegree > 0 {
				continue
			}
			n.emitted = true
			remaining--
			progressed = true
			result.ApplyOrder = append(result.ApplyOrder, n.diff)
			for dep := range adjacency[n] {
				dep.inDegree--
			}
		}
		if !progressed {
			break
		}
	}

	var err error
	if remaining > 0 {
		cycleNames := make([]string, 0, remaining)
		for _, n := range nodes {
			if !n.emitted {
				result.Cyclic = append(result.Cyclic, n.diff)
				cycleNames = append(cycleNames, n.diff.QualifiedName())
			}
		}
		sort.Strings(cycleNames)
		err = &CycleError{Members: cycleNames}
	}

	result.TeardownOrder = make([]*types.ObjectDifference, len(result.ApplyOrder))
	for i, diff := range result.ApplyOrder {
		result.TeardownOrder[len(result.ApplyOrder)-1-i] = diff
	}

	return result, err
}

// nodeKey disambiguates same-named objects of different categories so the
// alphabetical tie-break stays total.
func nodeKey(diff *types.ObjectDifference) string {
	return diff.QualifiedName() + "\x00" + string(diff.ObjectType)
}
