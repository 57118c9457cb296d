package graph

import (
	"slices"
	"strings"

	"github.com/qbridge/qbridge/pkg/errors"
	"github.com/qbridge/qbridge/pkg/format"
)

// Path is an ordered chain of edges linking a source format to a target.
// Paths are derived data - they are recomputed per query, never stored.
type Path []*Edge

// Source returns the first edge's input format, or "" for an empty path.
func (p Path) Source() format.Format {
	if len(p) == 0 {
		return ""
	}
	return p[0].Source()
}

// Target returns the last edge's output format, or "" for an empty path.
func (p Path) Target() format.Format {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1].Target()
}

// Formats returns the chain of formats visited by the path, including both
// endpoints. An empty path yields nil.
func (p Path) Formats() []format.Format {
	if len(p) == 0 {
		return nil
	}
	out := make([]format.Format, 0, len(p)+1)
	out = append(out, p[0].Source())
	for _, e := range p {
		out = append(out, e.Target())
	}
	return out
}

// String renders the path as "qasm2 -> qasm3 -> qiskit".
// This is the human-readable form logged on every successful conversion.
func (p Path) String() string {
	formats := p.Formats()
	parts := make([]string, len(formats))
	for i, f := range formats {
		parts[i] = string(f)
	}
	return strings.Join(parts, " -> ")
}

// ShortestPath returns the minimum-hop-count path from source to target.
//
// Ranking is purely by hop count; declared edge weights are not consulted.
// Ties are broken by lexicographic format order, so repeated calls on an
// unmodified graph return equal paths. Fails with UNKNOWN_FORMAT for
// unregistered formats and NO_PATH when target is unreachable.
// For source == target the returned path is empty.
func (g *ConversionGraph) ShortestPath(source, target format.Format) (Path, error) {
	if err := g.reg.Validate(source); err != nil {
		return nil, err
	}
	if err := g.reg.Validate(target); err != nil {
		return nil, err
	}
	if source == target {
		return Path{}, nil
	}

	// BFS with sorted successor lists gives deterministic parents.
	parent := map[format.Format]format.Format{source: source}
	queue := []format.Format{source}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return g.assemble(parent, source, target), nil
		}
		for _, next := range g.targets(cur) {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = cur
			queue = append(queue, next)
		}
	}

	return nil, errors.New(errors.ErrCodeNoPath, "no conversion path from %q to %q", source, target)
}

// assemble walks the BFS parent map back from target to source.
func (g *ConversionGraph) assemble(parent map[format.Format]format.Format, source, target format.Format) Path {
	var chain []format.Format
	for cur := target; cur != source; cur = parent[cur] {
		chain = append(chain, cur)
	}
	chain = append(chain, source)
	slices.Reverse(chain)

	path := make(Path, 0, len(chain)-1)
	for i := 0; i+1 < len(chain); i++ {
		e, _ := g.Edge(chain[i], chain[i+1])
		path = append(path, e)
	}
	return path
}

// TopPaths enumerates all simple paths from source to target, sorts them
// ascending by hop count, and returns the first n (or fewer if fewer exist).
//
// The sort is stable over a deterministic depth-first enumeration with
// sorted successor lists, so equal-length candidates appear in lexicographic
// order. Fails with UNKNOWN_FORMAT for unregistered formats, INVALID_INPUT
// for n < 1, and NO_PATH when no simple path exists.
func (g *ConversionGraph) TopPaths(source, target format.Format, n int) ([]Path, error) {
	if err := g.reg.Validate(source); err != nil {
		return nil, err
	}
	if err := g.reg.Validate(target); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "path count must be positive, got %d", n)
	}

	var (
		all     []Path
		current Path
		visited = map[format.Format]struct{}{source: {}}
	)

	var walk func(cur format.Format)
	walk = func(cur format.Format) {
		if cur == target {
			all = append(all, slices.Clone(current))
			return
		}
		for _, next := range g.targets(cur) {
			if _, seen := visited[next]; seen {
				continue
			}
			e, _ := g.Edge(cur, next)
			visited[next] = struct{}{}
			current = append(current, e)
			walk(next)
			current = current[:len(current)-1]
			delete(visited, next)
		}
	}
	walk(source)

	if len(all) == 0 {
		return nil, errors.New(errors.ErrCodeNoPath, "no conversion path from %q to %q", source, target)
	}

	slices.SortStableFunc(all, func(a, b Path) int { return len(a) - len(b) })
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}
