package datastructure

import (
	"iter"
	"slices"

	"github.com/lintang-b-s/transitscheduler/pkg/util"
)

type Edge struct {
	From string
	To   string
}

func NewEdge(from, to string) Edge {
	return Edge{From: from, To: to}
}

// RouteGraph is a directed graph over string-labelled stops.
// Nodes and edges keep their insertion order, adjacency is by label so an edge may name a stop that is added later.
type RouteGraph struct {
	nodes   []string
	nodeSet map[string]struct{}
	edges   []Edge
	adj     map[string][]string // label -> heads, in edge insertion order
}

func NewRouteGraph() *RouteGraph {
	return &RouteGraph{
		nodes:   make([]string, 0),
		nodeSet: make(map[string]struct{}),
		edges:   make([]Edge, 0),
		adj:     make(map[string][]string),
	}
}

// AddNode appends label to the node sequence. It returns false if the label already exists.
func (g *RouteGraph) AddNode(label string) (bool, error) {
	if label == "" {
		return false, util.NewErrorf(util.ErrInvalidArgument, "node label must not be empty")
	}
	if g.HasNode(label) {
		return false, nil
	}
	g.nodes = append(g.nodes, label)
	g.nodeSet[label] = struct{}{}
	return true, nil
}

// AddEdge appends the directed edge (from, to). Neither endpoint has to be a known node.
func (g *RouteGraph) AddEdge(from, to string) error {
	if from == "" || to == "" {
		return util.NewErrorf(util.ErrInvalidArgument, "edge endpoints must not be empty: (%q, %q)", from, to)
	}
	g.edges = append(g.edges, NewEdge(from, to))
	g.adj[from] = append(g.adj[from], to)
	return nil
}

func (g *RouteGraph) HasNode(label string) bool {
	_, ok := g.nodeSet[label]
	return ok
}

func (g *RouteGraph) NumberOfNodes() int {
	return len(g.nodes)
}

func (g *RouteGraph) NumberOfEdges() int {
	return len(g.edges)
}

// ForNeighborsOf calls handle for every known head of an out edge of u, in edge insertion order.
// Heads that were never added as nodes are skipped.
func (g *RouteGraph) ForNeighborsOf(u string, handle func(v string)) {
	for _, v := range g.adj[u] {
		if !g.HasNode(v) {
			continue
		}
		handle(v)
	}
}

func (g *RouteGraph) Nodes() []string {
	return slices.Clone(g.nodes)
}

func (g *RouteGraph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// SetNodes replaces the node sequence verbatim.
func (g *RouteGraph) SetNodes(nodes []string) error {
	nodeSet := make(map[string]struct{}, len(nodes))
	for _, label := range nodes {
		if label == "" {
			return util.NewErrorf(util.ErrInvalidArgument, "node label must not be empty")
		}
		if _, dup := nodeSet[label]; dup {
			return util.NewErrorf(util.ErrInvalidArgument, "duplicate node label %q", label)
		}
		nodeSet[label] = struct{}{}
	}
	g.nodes = slices.Clone(nodes)
	g.nodeSet = nodeSet
	return nil
}

// SetEdges replaces the edge sequence verbatim and rebuilds the adjacency lists.
func (g *RouteGraph) SetEdges(edges []Edge) error {
	adj := make(map[string][]string)
	for _, e := range edges {
		if e.From == "" || e.To == "" {
			return util.NewErrorf(util.ErrInvalidArgument, "edge endpoints must not be empty: (%q, %q)", e.From, e.To)
		}
		adj[e.From] = append(adj[e.From], e.To)
	}
	g.edges = slices.Clone(edges)
	g.adj = adj
	return nil
}

// BFS returns the stops reachable from start in breadth-first discovery order.
// If start is not a known node the sequence is empty and ok is false.
// The sequence reads the graph when iterated, it must not be used across mutations.
func (g *RouteGraph) BFS(start string) (seq iter.Seq[string], ok bool) {
	if !g.HasNode(start) {
		return emptySeq, false
	}

	return func(yield func(string) bool) {
		visited := map[string]struct{}{start: {}}
		queue := []string{start}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			if !yield(u) {
				return
			}

			g.ForNeighborsOf(u, func(v string) {
				if _, seen := visited[v]; seen {
					return
				}
				visited[v] = struct{}{}
				queue = append(queue, v)
			})
		}
	}, true
}

// DFS returns the stops reachable from start in depth-first preorder.
// Neighbours are explored in edge insertion order, same as the recursive formulation.
func (g *RouteGraph) DFS(start string) (seq iter.Seq[string], ok bool) {
	if !g.HasNode(start) {
		return emptySeq, false
	}

	return func(yield func(string) bool) {
		visited := make(map[string]struct{})
		stack := []string{start}
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, seen := visited[u]; seen {
				continue
			}
			visited[u] = struct{}{}
			if !yield(u) {
				return
			}

			next := make([]string, 0, len(g.adj[u]))
			g.ForNeighborsOf(u, func(v string) {
				if _, seen := visited[v]; !seen {
					next = append(next, v)
				}
			})
			// pushed reversed so the first edge is popped first
			stack = append(stack, util.ReverseG(next)...)
		}
	}, true
}

// Reachable reports whether to can be reached from from following directed edges.
func (g *RouteGraph) Reachable(from, to string) bool {
	if !g.HasNode(to) {
		return false
	}
	seq, ok := g.BFS(from)
	if !ok {
		return false
	}
	for v := range seq {
		if v == to {
			return true
		}
	}
	return false
}

func emptySeq(yield func(string) bool) {}
