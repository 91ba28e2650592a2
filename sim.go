package whidl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// maxTruthTableRows bounds FullTruthTable's enumeration: a chip whose
// total input width would require more rows is refused outright rather
// than silently truncated.
const maxTruthTableRows = 1024

// Simulator drives one elaborated chip tree: it owns the cross-instance
// compute cache and the set of DFFs pending commit.
type Simulator struct {
	Root       *Chip
	elaborator *Elaborator
	cache      map[string]*SignalMap
	dirtyDFFs  []*Chip
}

// NewSimulator builds a Simulator around an already-elaborated root chip.
func NewSimulator(root *Chip, elaborator *Elaborator) *Simulator {
	return &Simulator{Root: root, elaborator: elaborator, cache: make(map[string]*SignalMap)}
}

// Simulate elaborates ast (if needed), drives inputs through the chip, and
// returns the resulting signal map for every port (input and output).
func Simulate(ast *ChipAST, provider HDLProvider, generics []*Width, inputs map[string]Bus) (*SignalMap, error) {
	elaborator := NewElaborator(provider)
	env, err := bindGenerics(ast, generics)
	if err != nil {
		return nil, err
	}
	root, err := elaborator.shallowElaborate(ast, env)
	if err != nil {
		return nil, err
	}
	if err := elaborator.fullyElaborate(root); err != nil {
		return nil, err
	}
	sim := NewSimulator(root, elaborator)
	return sim.Run(inputs)
}

// Run sets every input port's signal, computes the chip, and returns the
// complete signal map (inputs and outputs) of the root chip.
func (s *Simulator) Run(inputs map[string]Bus) (*SignalMap, error) {
	for name, value := range inputs {
		if err := s.Root.Signals.Set(name, value); err != nil {
			return nil, errors.Wrapf(err, "setting input %q", name)
		}
	}
	if err := s.compute(s.Root); err != nil {
		return nil, err
	}
	return s.Root.Signals, nil
}

// Tick commits every pending DFF's input to its output (§4.7: "tick"),
// then recomputes the root so downstream combinational logic sees the new
// state. It corresponds to the reference simulator's tick()/"clock edge"
// step: DFFs never update during an ordinary compute() pass.
func (s *Simulator) Tick() error {
	for _, dff := range s.dirtyDFFs {
		in, err := dff.Signals.Get("in")
		if err != nil {
			return err
		}
		if err := dff.Signals.Set("out", in.Clone()); err != nil {
			return err
		}
	}
	s.dirtyDFFs = nil
	s.invalidateCache()
	return s.compute(s.Root)
}

func (s *Simulator) invalidateCache() {
	s.cache = make(map[string]*SignalMap)
	var mark func(c *Chip)
	mark = func(c *Chip) {
		c.CacheValid = false
		if c.Graph == nil {
			return
		}
		for _, n := range c.Graph.Nodes {
			mark(n)
		}
	}
	mark(s.Root)
}

// compute implements §4.7's event-driven evaluation: primitive
// short-circuits for NAND/DFF/BUFFER, a cache keyed by (chip name, input
// bits) bypassed whenever any descendant DFF is pending, and otherwise an
// SCC-ordered topological walk over the chip's own sub-graph.
func (s *Simulator) compute(chip *Chip) error {
	if !chip.Elaborated {
		if err := s.elaborator.fullyElaborate(chip); err != nil {
			return err
		}
	}

	switch chip.Primitive {
	case primNand:
		a, err := chip.Signals.Get("a")
		if err != nil {
			return err
		}
		b, err := chip.Signals.Get("b")
		if err != nil {
			return err
		}
		return chip.Signals.Set("out", Bus{Nand(a[0], b[0])})
	case primDFF:
		for _, d := range s.dirtyDFFs {
			if d == chip {
				return nil
			}
		}
		s.dirtyDFFs = append(s.dirtyDFFs, chip)
		return nil
	case primInputPort, primOutputPort, primLiteral:
		return nil
	}

	if strings.EqualFold(chip.Name, "buffer") {
		in, err := chip.Signals.Get("in")
		if err != nil {
			return err
		}
		return chip.Signals.Set("out", in.Clone())
	}

	key, cacheable := s.cacheKey(chip)
	if cacheable && chip.CacheValid {
		if cached, ok := s.cache[key]; ok {
			chip.Signals = cached.Clone()
			log.WithField("chip", chip.Name).Trace("cache hit")
			return nil
		}
	}

	// push chip input-port values into the boundary input-port chips
	for name, node := range chip.InputPortNodes {
		value, err := chip.Signals.Get(name)
		if err != nil {
			return err
		}
		if err := chip.Graph.Nodes[node].Signals.Set("value", value.Clone()); err != nil {
			return err
		}
	}

	for _, scc := range chip.Graph.SCCs() {
		if len(scc) > 1 {
			if err := s.computeFeedback(chip, scc); err != nil {
				return err
			}
		} else {
			n := chip.Graph.Nodes[scc[0]]
			if err := s.propagateInto(chip, scc[0]); err != nil {
				return err
			}
			if err := s.compute(n); err != nil {
				return err
			}
		}
	}
	hasPendingDFF := s.hasPendingDescendant(chip)

	// propagate output-port chips' input bits into the parent chip's
	// output signals
	for name, node := range chip.OutputPortNodes {
		value, err := chip.Graph.Nodes[node].Signals.Get("value")
		if err != nil {
			return err
		}
		if err := chip.Signals.Set(name, value); err != nil {
			return err
		}
	}

	if cacheable && !hasPendingDFF {
		s.cache[key] = chip.Signals.Clone()
		chip.CacheValid = true
	}
	return nil
}

// hasPendingDescendant reports whether any chip reachable from chip's own
// graph (at any depth) is a DFF currently awaiting Tick, which disables
// caching for chip on this pass: a cached result would otherwise hide the
// pending state transition from the next compute().
func (s *Simulator) hasPendingDescendant(chip *Chip) bool {
	if chip.Graph == nil {
		return false
	}
	for _, n := range chip.Graph.Nodes {
		if n.Primitive == primDFF {
			for _, d := range s.dirtyDFFs {
				if d == n {
					return true
				}
			}
			continue
		}
		if s.hasPendingDescendant(n) {
			return true
		}
	}
	return false
}

// propagateInto pushes the current values of every edge feeding node into
// node's own input signals, following the coalesced edges recorded during
// elaboration.
func (s *Simulator) propagateInto(chip *Chip, node NodeID) error {
	for srcID, edges := range chip.graphEdgesInto(node) {
		src := chip.Graph.Nodes[srcID]
		for _, e := range edges {
			value, err := src.Signals.GetRange(e.SourceBus, e.SourceStart, e.SourceEnd)
			if err != nil {
				return err
			}
			dst := chip.Graph.Nodes[node]
			if err := dst.Signals.SetRange(e.TargetBus, e.TargetStart, e.TargetEnd, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// computeFeedback handles a multi-node SCC (a combinational loop, e.g. a
// DFF feeding its own fan-in through combinational logic) by iterating
// propagate+compute over the component until signals stop changing. If they
// are still changing when the iteration budget is exhausted, it returns a
// KindSim "did not converge" error.
func (s *Simulator) computeFeedback(chip *Chip, scc []NodeID) error {
	const maxIterations = 64
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for _, n := range scc {
			before := chip.Graph.Nodes[n].Signals.snapshot()
			if err := s.propagateInto(chip, n); err != nil {
				return err
			}
			if err := s.compute(chip.Graph.Nodes[n]); err != nil {
				return err
			}
			if chip.Graph.Nodes[n].Signals.snapshot() != before {
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}
	return newError(KindSim, "", 0, 0, chip.Name,
		fmt.Sprintf("simulation did not converge in chip %q after %d iterations", chip.Name, maxIterations))
}

// graphEdgesInto inverts chip.Graph's adjacency for a single target node,
// grouped by source node.
func (c *Chip) graphEdgesInto(target NodeID) map[NodeID][]Edge {
	result := make(map[NodeID][]Edge)
	for i := range c.Graph.Nodes {
		src := NodeID(i)
		for _, e := range c.Graph.OutEdges(src) {
			if e.Target == target {
				result[src] = append(result[src], e)
			}
		}
	}
	return result
}

// cacheKey returns the (chip name, input bits) cache key for chip, and
// whether the chip is eligible for caching at all (primitives and
// boundary/literal chips are never cached; they are cheap and, for DFFs,
// stateful).
func (s *Simulator) cacheKey(chip *Chip) (string, bool) {
	if chip.AST == nil {
		return "", false
	}
	var b strings.Builder
	b.WriteString(chip.Name)
	for _, p := range chip.Ports {
		if p.Direction != In {
			continue
		}
		bus, err := chip.Signals.Get(p.Name.Value)
		if err != nil {
			return "", false
		}
		b.WriteString("|")
		b.WriteString(p.Name.Value)
		b.WriteString("=")
		for _, bit := range bus {
			b.WriteString(bit.String())
		}
	}
	return b.String(), true
}

// FullTruthTable enumerates every input combination of ast (refusing any
// chip whose total input width would exceed maxTruthTableRows rows) and
// simulates each one, returning the ordered port-name columns and one row
// per combination.
func FullTruthTable(ast *ChipAST, provider HDLProvider, generics []*Width) (columns []string, rows []SignalMap, err error) {
	elaborator := NewElaborator(provider)
	env, err := bindGenerics(ast, generics)
	if err != nil {
		return nil, nil, err
	}
	root, err := elaborator.shallowElaborate(ast, env)
	if err != nil {
		return nil, nil, err
	}
	if err := elaborator.fullyElaborate(root); err != nil {
		return nil, nil, err
	}

	var inputWidth int
	var inputNames []string
	var outputNames []string
	for _, p := range root.Ports {
		w, _ := root.Signals.Width(p.Name.Value)
		if p.Direction == In {
			inputWidth += w
			inputNames = append(inputNames, p.Name.Value)
		} else {
			outputNames = append(outputNames, p.Name.Value)
		}
	}
	if inputWidth > 10 {
		return nil, nil, fmt.Errorf("chip %q has %d input bits; truth table would exceed %d rows", ast.Name.Value, inputWidth, maxTruthTableRows)
	}
	total := 1 << uint(inputWidth)
	if total > maxTruthTableRows {
		return nil, nil, fmt.Errorf("chip %q truth table has %d rows, exceeding the %d-row limit", ast.Name.Value, total, maxTruthTableRows)
	}

	columns = append(append([]string{}, inputNames...), outputNames...)
	for combo := 0; combo < total; combo++ {
		sim := NewSimulator(root, elaborator)
		inputs := make(map[string]Bus)
		bitpos := inputWidth - 1
		for _, name := range inputNames {
			w, _ := root.Signals.Width(name)
			bus := NewBus(w)
			for i := w - 1; i >= 0; i-- {
				if combo&(1<<uint(bitpos)) != 0 {
					bus[i] = One
				} else {
					bus[i] = Zero
				}
				bitpos--
			}
			inputs[name] = bus
		}
		out, err := sim.Run(inputs)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, *out.Clone())
	}
	return columns, rows, nil
}
