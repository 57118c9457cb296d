package graph

import (
	"slices"

	"github.com/qbridge/qbridge/pkg/errors"
	"github.com/qbridge/qbridge/pkg/format"
)

// pair identifies an edge by its ordered endpoints.
type pair struct {
	source format.Format
	target format.Format
}

// ConversionGraph is a directed graph whose nodes are formats and whose
// edges wrap pairwise converters.
//
// The graph is intended to be built once and treated as read-mostly.
// AddConversion is not internally synchronized - concurrent mutation must
// be serialized by the caller. Concurrent read-only use is safe.
type ConversionGraph struct {
	reg      *format.Registry
	nodes    map[format.Format]struct{}
	edges    map[pair]*Edge
	outgoing map[format.Format][]format.Format // sorted target lists
	version  uint64
}

// New builds a graph from registered edges. Nodes are derived as the union
// of all edge endpoints. Duplicate (source, target) pairs in the input fail
// with CONVERSION_CONFLICT.
func New(reg *format.Registry, edges ...*Edge) (*ConversionGraph, error) {
	if reg == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph requires a format registry")
	}
	g := &ConversionGraph{
		reg:      reg,
		nodes:    make(map[format.Format]struct{}),
		edges:    make(map[pair]*Edge),
		outgoing: make(map[format.Format][]format.Format),
	}
	for _, e := range edges {
		if err := g.AddConversion(e, false); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Registry returns the format registry the graph was built against.
func (g *ConversionGraph) Registry() *format.Registry { return g.reg }

// Version returns a counter incremented on every successful mutation.
// It is used to scope cache keys for derived path queries.
func (g *ConversionGraph) Version() uint64 { return g.version }

// AddConversion inserts or replaces the edge for its (source, target) pair.
//
// If an edge with the same endpoints already exists and overwrite is false,
// the call fails with CONVERSION_CONFLICT and the graph is unchanged.
// Edge endpoints were validated against the registry at construction, so
// only pair conflicts can fail here.
func (g *ConversionGraph) AddConversion(e *Edge, overwrite bool) error {
	if e == nil {
		return errors.New(errors.ErrCodeInvalidEdge, "nil edge")
	}
	key := pair{e.source, e.target}
	if _, exists := g.edges[key]; exists && !overwrite {
		return errors.New(errors.ErrCodeConversionConflict,
			"conversion %s already registered (use overwrite to replace)", e)
	}

	_, existed := g.edges[key]
	g.edges[key] = e
	g.nodes[e.source] = struct{}{}
	g.nodes[e.target] = struct{}{}
	if !existed {
		targets := append(g.outgoing[e.source], e.target)
		slices.Sort(targets)
		g.outgoing[e.source] = targets
	}
	g.version++
	return nil
}

// HasConversion reports whether a direct edge exists for the ordered pair.
func (g *ConversionGraph) HasConversion(source, target format.Format) bool {
	_, ok := g.edges[pair{source, target}]
	return ok
}

// Edge returns the active edge for the ordered pair, if any.
func (g *ConversionGraph) Edge(source, target format.Format) (*Edge, bool) {
	e, ok := g.edges[pair{source, target}]
	return e, ok
}

// Nodes returns all formats referenced by at least one edge, sorted.
func (g *ConversionGraph) Nodes() []format.Format {
	nodes := make([]format.Format, 0, len(g.nodes))
	for n := range g.nodes {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	return nodes
}

// Edges returns all active edges sorted by (source, target).
func (g *ConversionGraph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	slices.SortFunc(edges, func(a, b *Edge) int {
		if a.source != b.source {
			if a.source < b.source {
				return -1
			}
			return 1
		}
		if a.target < b.target {
			return -1
		}
		if a.target > b.target {
			return 1
		}
		return 0
	})
	return edges
}

// NodeCount returns the number of formats referenced by edges.
func (g *ConversionGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of active edges.
func (g *ConversionGraph) EdgeCount() int { return len(g.edges) }

// targets returns the sorted direct successors of a format.
// The returned slice must not be modified.
func (g *ConversionGraph) targets(f format.Format) []format.Format {
	return g.outgoing[f]
}

// HasPath reports whether target is reachable from source.
// Returns false when either format is unregistered. A format is trivially
// reachable from itself.
func (g *ConversionGraph) HasPath(source, target format.Format) bool {
	if !g.reg.Contains(source) || !g.reg.Contains(target) {
		return false
	}
	if source == target {
		return true
	}

	visited := map[format.Format]struct{}{source: {}}
	queue := []format.Format{source}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.targets(cur) {
			if next == target {
				return true
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return false
}
