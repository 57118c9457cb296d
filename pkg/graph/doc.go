// Package graph implements the directed conversion graph at the core of the
// qbridge engine.
//
// Nodes are program formats and edges wrap pairwise converter functions. The
// graph answers reachability, shortest-path, and top-N shortest simple-path
// queries; the orchestrator in [github.com/qbridge/qbridge/pkg/transpile]
// executes the returned paths.
//
// # Architecture
//
// The graph is built once from an explicit list of registered edges and is
// read-mostly afterwards:
//
//	reg := format.DefaultRegistry()
//	e, _ := graph.NewEdge(reg, format.Qasm2, format.Qasm3, convertFn)
//	g, _ := graph.New(reg, e)
//	path, _ := g.ShortestPath(format.Qasm2, format.Qasm3)
//
// Exactly one converter is active per ordered (source, target) pair. Adding
// an edge for an existing pair requires an explicit overwrite, making
// "replace a conversion" a deliberate operation rather than an accident.
//
// AddConversion is not internally synchronized. Build the graph before
// sharing it; concurrent read-only use is safe.
package graph
