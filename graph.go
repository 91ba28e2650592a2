package whidl

import "sort"

// NodeID indexes a node (an elaborated sub-chip instance) within a Graph.
type NodeID int

// Edge is a bit-level (or, after coalescing, multi-bit) wire between two
// nodes' named buses.
type Edge struct {
	Source, Target         NodeID
	SourceBus, TargetBus   string
	SourceStart, SourceEnd int
	TargetStart, TargetEnd int
}

func (e Edge) width() int { return e.TargetEnd - e.TargetStart + 1 }

// Graph is the directed multigraph of elaborated sub-chip instances wired
// by bit-level (then coalesced) edges. Self-loops represent feedback.
type Graph struct {
	Nodes []*Chip
	out   map[NodeID][]Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{out: make(map[NodeID][]Edge)}
}

// AddNode appends c as a new node and records its NodeID on it.
func (g *Graph) AddNode(c *Chip) NodeID {
	id := NodeID(len(g.Nodes))
	g.Nodes = append(g.Nodes, c)
	c.nodeID = id
	return id
}

// AddEdge records a wire from e.Source to e.Target.
func (g *Graph) AddEdge(e Edge) {
	g.out[e.Source] = append(g.out[e.Source], e)
}

// OutEdges returns the edges leaving n, in insertion order.
func (g *Graph) OutEdges(n NodeID) []Edge {
	return g.out[n]
}

// CoalesceEdges implements §4.6 step 10: for each ordered (source, target)
// pair, sort connecting edges by target-bus name then by target-range
// start, then merge consecutive edges whose source and target bus names
// match and whose source and target ranges both abut.
func (g *Graph) CoalesceEdges() {
	for src, edges := range g.out {
		byTarget := make(map[NodeID][]Edge)
		for _, e := range edges {
			byTarget[e.Target] = append(byTarget[e.Target], e)
		}
		var merged []Edge
		for _, tgt := range sortedTargets(byTarget) {
			group := byTarget[tgt]
			sort.SliceStable(group, func(i, j int) bool {
				if group[i].TargetBus != group[j].TargetBus {
					return group[i].TargetBus < group[j].TargetBus
				}
				return group[i].TargetStart < group[j].TargetStart
			})
			merged = append(merged, coalesceGroup(group)...)
		}
		g.out[src] = merged
	}
}

func sortedTargets(m map[NodeID][]Edge) []NodeID {
	ids := make([]NodeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func coalesceGroup(group []Edge) []Edge {
	if len(group) == 0 {
		return nil
	}
	out := []Edge{group[0]}
	for _, cur := range group[1:] {
		prev := &out[len(out)-1]
		if cur.SourceBus == prev.SourceBus && cur.TargetBus == prev.TargetBus &&
			cur.SourceStart == prev.SourceEnd+1 && cur.TargetStart == prev.TargetEnd+1 {
			prev.SourceEnd = cur.SourceEnd
			prev.TargetEnd = cur.TargetEnd
			continue
		}
		out = append(out, cur)
	}
	return out
}

// SCCs computes a Tarjan strongly-connected-component decomposition of the
// graph, reversed so that each component precedes every component that
// depends on it (a source chip's SCC is returned before the SCCs of chips
// it feeds), matching the reference Kosaraju/Tarjan-reversed choice in
// §4.7. No Go dependency in the retrieved example pack offers a
// graph/SCC primitive, so this is hand-rolled over the standard library.
func (g *Graph) SCCs() [][]NodeID {
	t := &tarjan{
		index:   make(map[NodeID]int),
		lowlink: make(map[NodeID]int),
		onStack: make(map[NodeID]bool),
		graph:   g,
	}
	for i := range g.Nodes {
		n := NodeID(i)
		if _, seen := t.index[n]; !seen {
			t.strongConnect(n)
		}
	}
	// t.result is in completion order (sinks first); reverse so sources
	// (drivers) precede the components that consume them.
	for i, j := 0, len(t.result)-1; i < j; i, j = i+1, j-1 {
		t.result[i], t.result[j] = t.result[j], t.result[i]
	}
	return t.result
}

type tarjan struct {
	graph   *Graph
	index   map[NodeID]int
	lowlink map[NodeID]int
	onStack map[NodeID]bool
	stack   []NodeID
	counter int
	result  [][]NodeID
}

func (t *tarjan) strongConnect(v NodeID) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, e := range t.graph.OutEdges(v) {
		w := e.Target
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var component []NodeID
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		t.result = append(t.result, component)
	}
}
