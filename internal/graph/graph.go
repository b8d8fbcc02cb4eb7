package graph

import (
	"context"
	"sort"

	"github.com/specialistvlad/flowgridgo/internal/asset"
	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
)

// Graph is the immutable DAG of named assets and their dependency edges.
// It is built once and read-only thereafter; rebuilding produces a new Graph
// rather than mutating in place, so concurrent runs can share it freely.
type Graph struct {
	name   string
	assets map[string]*asset.Asset
	// order preserves insertion order for deterministic tie-breaking.
	order []string
	// index maps asset name to its insertion position.
	index map[string]int
	// deps and dependents are the precomputed adjacency lists.
	deps       map[string][]string
	dependents map[string][]string
}

// Build constructs a validated graph from the given assets. It rejects
// duplicate names, resolves every declared dependency edge, and runs full
// depth-first cycle detection over all declared dependencies with an explicit
// recursion stack. It succeeds only for a fully acyclic set.
func Build(ctx context.Context, name string, assets []*asset.Asset) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "graph", name, "asset_count", len(assets))

	g := &Graph{
		name:       name,
		assets:     make(map[string]*asset.Asset, len(assets)),
		index:      make(map[string]int, len(assets)),
		deps:       make(map[string][]string, len(assets)),
		dependents: make(map[string][]string, len(assets)),
	}

	// First pass: register all nodes, rejecting duplicates.
	for _, a := range assets {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, exists := g.assets[a.Name]; exists {
			return nil, &DuplicateAssetError{Asset: a.Name}
		}
		g.index[a.Name] = len(g.order)
		g.order = append(g.order, a.Name)
		g.assets[a.Name] = a
	}
	logger.Debug("Build: Node registration complete.")

	// Second pass: resolve dependency edges into adjacency.
	for _, a := range assets {
		for _, dep := range a.DependsOn {
			if _, ok := g.assets[dep]; !ok {
				return nil, &UnknownAssetError{Asset: dep, ReferencedBy: a.Name}
			}
			g.deps[a.Name] = append(g.deps[a.Name], dep)
			g.dependents[dep] = append(g.dependents[dep], a.Name)
		}
	}
	logger.Debug("Build: Edge resolution complete.")

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: Cycle detection passed.")

	return g, nil
}

// detectCycles runs depth-first search over all declared dependencies with an
// explicit recursion stack, using the classic three-set coloring:
// permanent nodes are fully explored, temporary nodes are on the current
// stack, everything else is unvisited. A back-edge into the temporary set is
// a cycle.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool, len(g.order))
	temporary := make(map[string]bool)

	type frame struct {
		name string
		next int
	}

	for _, root := range g.order {
		if permanent[root] {
			continue
		}

		stack := []frame{{name: root}}
		temporary[root] = true

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.deps[top.name]

			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++

				if temporary[dep] {
					return &CircularDependencyError{Asset: dep}
				}
				if !permanent[dep] {
					temporary[dep] = true
					stack = append(stack, frame{name: dep})
				}
				continue
			}

			delete(temporary, top.name)
			permanent[top.name] = true
			stack = stack[:len(stack)-1]
		}
	}

	return nil
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// Len returns the number of assets in the graph.
func (g *Graph) Len() int { return len(g.order) }

// Asset returns the named asset, if present.
func (g *Graph) Asset(name string) (*asset.Asset, bool) {
	a, ok := g.assets[name]
	return a, ok
}

// Names returns all asset names in insertion order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Dependencies returns the direct upstream dependencies of the named asset.
func (g *Graph) Dependencies(name string) []string {
	return append([]string(nil), g.deps[name]...)
}

// Dependents returns the direct downstream dependents of the named asset.
func (g *Graph) Dependents(name string) []string {
	return append([]string(nil), g.dependents[name]...)
}

// TransitiveDependents returns every asset downstream of the named asset,
// directly or indirectly. The engine uses it to propagate upstream-failure
// skips.
func (g *Graph) TransitiveDependents(name string) []string {
	seen := make(map[string]bool)
	queue := append([]string(nil), g.dependents[name]...)
	var out []string
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, g.dependents[next]...)
	}
	g.sortByInsertion(out)
	return out
}

// closure returns the minimal set containing the targets plus all their
// transitive dependencies. With no targets it covers the whole graph.
func (g *Graph) closure(targets []string) (map[string]bool, error) {
	include := make(map[string]bool, len(g.order))
	if len(targets) == 0 {
		for _, name := range g.order {
			include[name] = true
		}
		return include, nil
	}

	var queue []string
	for _, t := range targets {
		if _, ok := g.assets[t]; !ok {
			return nil, &UnknownAssetError{Asset: t}
		}
		queue = append(queue, t)
	}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if include[next] {
			continue
		}
		include[next] = true
		queue = append(queue, g.deps[next]...)
	}
	return include, nil
}

// sortByInsertion orders names by original insertion order, falling back to
// lexical order for names the graph does not know (which should not happen).
func (g *Graph) sortByInsertion(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ii, iok := g.index[names[i]]
		ji, jok := g.index[names[j]]
		if iok && jok && ii != ji {
			return ii < ji
		}
		return names[i] < names[j]
	})
}

// TopologicalOrder returns a deterministic linear order of the targets'
// closure in which every dependency precedes its dependents. Ties are broken
// by original insertion order, then by name, so the same input always yields
// the same order. With no targets the order covers the whole graph.
func (g *Graph) TopologicalOrder(targets ...string) ([]string, error) {
	include, err := g.closure(targets)
	if err != nil {
		return nil, err
	}

	// Kahn's algorithm over the closure, with a deterministically ordered
	// ready list.
	pending := make(map[string]int, len(include))
	var ready []string
	for _, name := range g.order {
		if !include[name] {
			continue
		}
		n := 0
		for _, dep := range g.deps[name] {
			if include[dep] {
				n++
			}
		}
		pending[name] = n
		if n == 0 {
			ready = append(ready, name)
		}
	}
	g.sortByInsertion(ready)

	out := make([]string, 0, len(pending))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		out = append(out, next)

		var unlocked []string
		for _, dependent := range g.dependents[next] {
			if !include[dependent] {
				continue
			}
			pending[dependent]--
			if pending[dependent] == 0 {
				unlocked = append(unlocked, dependent)
			}
		}
		g.sortByInsertion(unlocked)
		ready = mergeByInsertion(g, ready, unlocked)
	}

	return out, nil
}

// Levels partitions the targets' closure into topological levels: each level
// is the maximal set of assets whose dependencies all sit in earlier levels.
// Assets within one level carry no edges between each other and may execute
// concurrently.
func (g *Graph) Levels(targets ...string) ([][]string, error) {
	include, err := g.closure(targets)
	if err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(include))
	order, err := g.TopologicalOrder(targets...)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, nil
	}

	maxDepth := 0
	for _, name := range order {
		d := 0
		for _, dep := range g.deps[name] {
			if include[dep] && depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[name] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	levels := make([][]string, maxDepth+1)
	for _, name := range order {
		d := depth[name]
		levels[d] = append(levels[d], name)
	}
	return levels, nil
}

// mergeByInsertion merges two insertion-ordered lists preserving order.
func mergeByInsertion(g *Graph, a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if g.index[a[i]] <= g.index[b[j]] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
