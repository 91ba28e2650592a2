package whidl

import (
	"fmt"
	"sort"
	"strings"
)

// chipPrimitive distinguishes the handful of node kinds that never go
// through a full AST-driven elaboration: the NAND and DFF primitives, the
// synthetic chip-boundary port chips, and the lazily-created true/false
// literal constant chips.
type chipPrimitive int

const (
	primNone chipPrimitive = iota
	primNand
	primDFF
	primInputPort
	primOutputPort
	primLiteral
)

// bitSource records, for a single bit of a signal, which graph node and
// which bit of that node's named bus drives it.
type bitSource struct {
	Node NodeID
	Bus  string
	Bit  int
}

// Chip is an elaborated chip instance: a resolved port table, the signal
// map for all of its ports and internal signals, and (once elaborated) the
// graph of its instantiated sub-chips. Sub-chip nodes inside a parent's
// Graph hold a non-owning Parent back-reference used by Tick to walk up to
// the root for cache invalidation.
type Chip struct {
	Name      string
	Primitive chipPrimitive
	AST       *ChipAST
	Env       Env
	Ports     []Port
	Signals   *SignalMap

	components  []Component
	assignments []Assignment

	Graph   *Graph
	nodeID  NodeID
	Parent  *Chip

	Elaborated bool
	Dirty      bool
	CacheValid bool

	InputPortNodes  map[string]NodeID
	OutputPortNodes map[string]NodeID

	sources      map[string][]*bitSource
	literalNodes map[string]NodeID

	elaborator *Elaborator
}

// primitivePorts returns the fixed port list for the NAND and DFF
// primitives, recognized case-insensitively by name without any AST
// lookup.
func primitivePorts(name string) ([]Port, bool) {
	switch strings.ToLower(name) {
	case "nand":
		return []Port{
			{Name: NewIdentifier("a", "", 0), Direction: In, Width: Num(1)},
			{Name: NewIdentifier("b", "", 0), Direction: In, Width: Num(1)},
			{Name: NewIdentifier("out", "", 0), Direction: Out, Width: Num(1)},
		}, true
	case "dff":
		return []Port{
			{Name: NewIdentifier("in", "", 0), Direction: In, Width: Num(1)},
			{Name: NewIdentifier("out", "", 0), Direction: Out, Width: Num(1)},
		}, true
	default:
		return nil, false
	}
}

// isBuffer reports whether name is the simulator-recognized BUFFER helper
// (compute() short-circuits it to out := in; it is otherwise an ordinary
// HDL chip, elaborated normally).
func isBuffer(name string) bool { return strings.EqualFold(name, "buffer") }

// Elaborator resolves chip names to ASTs through an HDLProvider, caching
// parsed ASTs across an elaboration run.
type Elaborator struct {
	Provider HDLProvider
	astCache map[string]*ChipAST
}

// NewElaborator returns an Elaborator backed by provider.
func NewElaborator(provider HDLProvider) *Elaborator {
	return &Elaborator{Provider: provider, astCache: make(map[string]*ChipAST)}
}

func (e *Elaborator) loadAST(name string) (*ChipAST, error) {
	if ast, ok := e.astCache[name]; ok {
		return ast, nil
	}
	text, err := e.Provider.GetHDL(name)
	if err != nil {
		return nil, wrapError(KindIO, err, "loading chip "+name)
	}
	ast, err := Parse(text, e.Provider.GetPath(name))
	if err != nil {
		return nil, err
	}
	e.astCache[name] = ast
	return ast, nil
}

// Elaborate is the exported core-library entry point: given a chip AST and
// concrete (or symbolic, for non-simulating callers) generic arguments, it
// binds generics, builds the port signal map, and fully elaborates the
// chip's own body (§4.6 steps 1-10). Sub-chip instances are elaborated only
// shallowly (ports + signal map) unless fullRecursion requests a deep,
// structural elaboration of the whole tree (used for structural export,
// never required by the simulator's lazy elaboration).
func Elaborate(ast *ChipAST, provider HDLProvider, generics []*Width, fullRecursion bool) (*Chip, error) {
	e := NewElaborator(provider)
	env, err := bindGenerics(ast, generics)
	if err != nil {
		return nil, err
	}
	chip, err := e.shallowElaborate(ast, env)
	if err != nil {
		return nil, err
	}
	if err := e.fullyElaborate(chip); err != nil {
		return nil, err
	}
	if fullRecursion {
		if err := e.recursivelyElaborate(chip); err != nil {
			return nil, err
		}
	}
	return chip, nil
}

func bindGenerics(ast *ChipAST, generics []*Width) (Env, error) {
	if len(generics) != len(ast.Generics) {
		return nil, newError(KindElaboration, ast.Path, ast.Name.Line, 0, ast.Name.Value,
			fmt.Sprintf("chip %q expects %d generic argument(s), got %d", ast.Name.Value, len(ast.Generics), len(generics)))
	}
	env := Env{}
	for i, g := range ast.Generics {
		env[g.Value] = generics[i]
	}
	return env, nil
}

// shallowElaborate performs §4.6 steps 1-2: it binds env (already resolved
// by the caller) and creates the chip's port signal map, rejecting
// non-numeric or zero-width ports. It does not expand components or build
// a graph; Elaborated remains false until fullyElaborate runs.
func (e *Elaborator) shallowElaborate(ast *ChipAST, env Env) (*Chip, error) {
	c := &Chip{
		Name:       ast.Name.Value,
		AST:        ast,
		Env:        env,
		Signals:    NewSignalMap(),
		elaborator: e,
	}
	for _, p := range ast.Ports {
		w, err := EvalNumeric(p.Width, env)
		if err != nil {
			return nil, wrapError(KindElaboration, err, fmt.Sprintf("port %q of chip %q has non-numeric width", p.Name.Value, ast.Name.Value))
		}
		if w <= 0 {
			return nil, newError(KindElaboration, ast.Path, p.Name.Line, 0, p.Name.Value,
				fmt.Sprintf("port %q of chip %q has zero width", p.Name.Value, ast.Name.Value))
		}
		c.Ports = append(c.Ports, Port{Name: p.Name, Direction: p.Direction, Width: Num(w)})
		if err := c.Signals.Create(p.Name.Value, w); err != nil {
			return nil, wrapError(KindElaboration, err, "creating port signal")
		}
	}
	return c, nil
}

// subchipPorts implements SubchipPorts for width inference: it resolves a
// component's target chip (or NAND/DFF primitive) to its port list, with
// widths evaluated under the sub-chip's own generic environment.
func (e *Elaborator) subchipPorts(comp *Component, outerEnv Env) ([]Port, error) {
	if ports, ok := primitivePorts(comp.ChipName.Value); ok {
		return ports, nil
	}
	ast, err := e.loadAST(comp.ChipName.Value)
	if err != nil {
		return nil, err
	}
	if len(comp.GenericArgs) != len(ast.Generics) {
		return nil, newError(KindElaboration, comp.ChipName.Path, comp.ChipName.Line, 0, comp.ChipName.Value,
			fmt.Sprintf("chip %q expects %d generic argument(s), got %d", comp.ChipName.Value, len(ast.Generics), len(comp.GenericArgs)))
	}
	subEnv := Env{}
	for i, g := range ast.Generics {
		subEnv[g.Value] = Eval(comp.GenericArgs[i], outerEnv)
	}
	var ports []Port
	for _, p := range ast.Ports {
		ports = append(ports, Port{Name: p.Name, Direction: p.Direction, Width: Eval(p.Width, subEnv)})
	}
	return ports, nil
}

// expandComponents implements §4.5: integer for-loop bounds are evaluated
// numerically and every component in the loop body is cloned once per
// iteration, substituting Var(iterator) with Num(i). Assignments are
// collected from the top-level parts only: loop bodies never contain
// assignments, per the grammar.
func expandComponents(ast *ChipAST, env Env) ([]Component, []Assignment, error) {
	var comps []Component
	var assigns []Assignment
	for _, part := range ast.Parts {
		switch {
		case part.Component != nil:
			comps = append(comps, *part.Component)
		case part.Assignment != nil:
			assigns = append(assigns, *part.Assignment)
		case part.Loop != nil:
			start, err := EvalNumeric(part.Loop.Start, env)
			if err != nil {
				return nil, nil, wrapError(KindElaboration, err, "for-loop start bound")
			}
			end, err := EvalNumeric(part.Loop.End, env)
			if err != nil {
				return nil, nil, wrapError(KindElaboration, err, "for-loop end bound")
			}
			for i := start; i <= end; i++ {
				for _, bodyComp := range part.Loop.Body {
					comps = append(comps, substituteComponent(bodyComp, part.Loop.Iterator.Value, Num(i)))
				}
			}
		}
	}
	return comps, assigns, nil
}

func substituteComponent(c Component, varName string, repl *Width) Component {
	out := Component{ChipName: c.ChipName, SourceLine: c.SourceLine}
	for _, g := range c.GenericArgs {
		out.GenericArgs = append(out.GenericArgs, Substitute(g, varName, repl))
	}
	for _, pm := range c.PortMappings {
		out.PortMappings = append(out.PortMappings, PortMapping{
			PortBus: substituteBusRef(pm.PortBus, varName, repl),
			WireBus: substituteBusRef(pm.WireBus, varName, repl),
			Origin:  pm.Origin,
		})
	}
	return out
}

func substituteBusRef(br BusRef, varName string, repl *Width) BusRef {
	if !br.HasRange {
		return br
	}
	return BitRange(br.Name, Substitute(br.Start, varName, repl), Substitute(br.End, varName, repl))
}

// fullyElaborate implements §4.6 steps 3-10 over an already shallow chip.
func (e *Elaborator) fullyElaborate(chip *Chip) error {
	if chip.Elaborated {
		return nil
	}

	comps, assigns, err := expandComponents(chip.AST, chip.Env)
	if err != nil {
		return err
	}
	widths, err := InferWidths(chip.AST, comps, assigns, chip.Env, e.subchipPorts)
	if err != nil {
		return err
	}

	var newNames []string
	for name := range widths {
		if _, exists := chip.Signals.Width(name); !exists {
			newNames = append(newNames, name)
		}
	}
	sort.Strings(newNames)
	for _, name := range newNames {
		w, err := EvalNumeric(widths[name], nil)
		if err != nil {
			return wrapError(KindElaboration, err, fmt.Sprintf("internal signal %q has non-numeric width", name))
		}
		if err := chip.Signals.Create(name, w); err != nil {
			return wrapError(KindElaboration, err, "creating internal signal")
		}
	}

	chip.components = comps
	chip.assignments = assigns
	chip.Graph = NewGraph()
	chip.sources = make(map[string][]*bitSource)
	chip.literalNodes = make(map[string]NodeID)
	chip.InputPortNodes = make(map[string]NodeID)
	chip.OutputPortNodes = make(map[string]NodeID)
	for _, name := range chip.Signals.Names() {
		w, _ := chip.Signals.Width(name)
		chip.sources[name] = make([]*bitSource, w)
	}

	// Step: attach input-port boundary chips and register their provenance
	// before processing components, so a component or assignment that
	// consumes the chip's own input port resolves to it.
	for _, p := range chip.Ports {
		if p.Direction != In {
			continue
		}
		w, _ := chip.Signals.Width(p.Name.Value)
		ipChip := makePortChip(p.Name.Value, w, primInputPort)
		nodeID := chip.Graph.AddNode(ipChip)
		chip.InputPortNodes[p.Name.Value] = nodeID
		for bit := 0; bit < w; bit++ {
			chip.sources[p.Name.Value][bit] = &bitSource{Node: nodeID, Bus: "value", Bit: bit}
		}
	}

	// Step 6 (Out-mapping half): instantiate every component and record
	// provenance for each Out port mapping, rejecting duplicate drivers.
	nodeIDs := make([]NodeID, len(comps))
	for i := range comps {
		comp := &comps[i]
		node, ports, err := e.instantiate(chip, comp)
		if err != nil {
			return err
		}
		nodeIDs[i] = node
		for _, pm := range comp.PortMappings {
			port, found := findPort(ports, pm.PortBus.Name.Value)
			if !found {
				return newError(KindElaboration, pm.Origin.Path, pm.Origin.Line, 0, pm.Origin.Value,
					fmt.Sprintf("chip %q has no port named %q", comp.ChipName.Value, pm.PortBus.Name.Value))
			}
			if port.Direction != Out {
				continue
			}
			if err := e.recordOutProvenance(chip, node, port, pm); err != nil {
				return err
			}
		}
	}

	// Assignments populate provenance too (`left <= right;` means left is
	// driven by whatever drives right); resolved in a small fixed-point
	// loop so assignment chains settle regardless of declaration order,
	// using the same "shared provenance lookup" the component edges use
	// instead of materializing a dedicated assignment graph node.
	if err := e.resolveAssignmentProvenance(chip); err != nil {
		return err
	}

	// Step 7 + second pass of step 8: verify full In-port coverage and wire
	// edges from provenance to every component's In ports.
	for i := range comps {
		comp := &comps[i]
		ports, err := e.subchipPorts(comp, chip.Env)
		if err != nil {
			return err
		}
		if err := e.wireInPorts(chip, nodeIDs[i], comp, ports); err != nil {
			return err
		}
	}

	// Step 9 (output half): attach output-port boundary chips and wire
	// them from the chip's own output-port provenance.
	for _, p := range chip.Ports {
		if p.Direction != Out {
			continue
		}
		w, _ := chip.Signals.Width(p.Name.Value)
		opChip := makePortChip(p.Name.Value, w, primOutputPort)
		nodeID := chip.Graph.AddNode(opChip)
		chip.OutputPortNodes[p.Name.Value] = nodeID
		for bit := 0; bit < w; bit++ {
			src, err := chip.resolveSource(p.Name.Value, bit)
			if err != nil {
				return wrapError(KindElaboration, err, fmt.Sprintf("output port %q bit %d", p.Name.Value, bit))
			}
			chip.Graph.AddEdge(Edge{
				Source: src.Node, SourceBus: src.Bus, SourceStart: src.Bit, SourceEnd: src.Bit,
				Target: nodeID, TargetBus: "value", TargetStart: bit, TargetEnd: bit,
			})
		}
	}

	chip.Graph.CoalesceEdges()
	chip.Elaborated = true
	log.WithField("chip", chip.Name).Debug("elaborated")
	return nil
}

func findPort(ports []Port, name string) (Port, bool) {
	for _, p := range ports {
		if p.Name.Value == name {
			return p, true
		}
	}
	return Port{}, false
}

// instantiate constructs the elaborated (possibly still shallow, for
// non-primitive chips) sub-chip for comp and adds it as a node in chip's
// graph.
func (e *Elaborator) instantiate(chip *Chip, comp *Component) (NodeID, []Port, error) {
	name := comp.ChipName.Value
	switch strings.ToLower(name) {
	case "nand":
		sub := makeNandChip()
		return chip.Graph.AddNode(sub), sub.Ports, nil
	case "dff":
		sub := makeDffChip()
		return chip.Graph.AddNode(sub), sub.Ports, nil
	}

	ast, err := e.loadAST(name)
	if err != nil {
		return 0, nil, err
	}
	if len(comp.GenericArgs) != len(ast.Generics) {
		return 0, nil, newError(KindElaboration, comp.ChipName.Path, comp.ChipName.Line, 0, name,
			fmt.Sprintf("chip %q expects %d generic argument(s), got %d", name, len(ast.Generics), len(comp.GenericArgs)))
	}
	subEnv := Env{}
	for i, g := range ast.Generics {
		subEnv[g.Value] = Eval(comp.GenericArgs[i], chip.Env)
	}
	sub, err := e.shallowElaborate(ast, subEnv)
	if err != nil {
		return 0, nil, err
	}
	sub.Parent = chip
	node := chip.Graph.AddNode(sub)
	return node, sub.Ports, nil
}

// recordOutProvenance inscribes the (node, port bit range) provenance for
// a single Out port mapping into the parent chip's source table,
// rejecting duplicate drivers.
func (e *Elaborator) recordOutProvenance(chip *Chip, node NodeID, port Port, pm PortMapping) error {
	portWidth, err := EvalNumeric(port.Width, nil)
	if err != nil {
		return wrapError(KindElaboration, err, "resolving port width")
	}
	pStart, pEnd, err := resolveRange(pm.PortBus, portWidth)
	if err != nil {
		return err
	}
	wireWidth, ok := chip.Signals.Width(pm.WireBus.Name.Value)
	if !ok {
		return newError(KindElaboration, pm.Origin.Path, pm.Origin.Line, 0, pm.WireBus.Name.Value,
			fmt.Sprintf("unknown signal %q", pm.WireBus.Name.Value))
	}
	wStart, wEnd, err := resolveRange(pm.WireBus, wireWidth)
	if err != nil {
		return err
	}
	if (pEnd - pStart) != (wEnd - wStart) {
		return newError(KindElaboration, pm.Origin.Path, pm.Origin.Line, 0, pm.Origin.Value,
			fmt.Sprintf("port mapping width mismatch for %q", pm.Origin.Value))
	}
	sources := chip.sources[pm.WireBus.Name.Value]
	for k := 0; k <= pEnd-pStart; k++ {
		wireBit := wStart + k
		portBit := pStart + k
		if wireBit < 0 || wireBit >= len(sources) {
			return newError(KindElaboration, pm.Origin.Path, pm.Origin.Line, 0, pm.Origin.Value,
				fmt.Sprintf("bit %d out of range for signal %q", wireBit, pm.WireBus.Name.Value))
		}
		if sources[wireBit] != nil {
			return newError(KindElaboration, pm.Origin.Path, pm.Origin.Line, 0, pm.Origin.Value,
				fmt.Sprintf("duplicate driver for bit %d of signal %q", wireBit, pm.WireBus.Name.Value))
		}
		sources[wireBit] = &bitSource{Node: node, Bus: port.Name.Value, Bit: portBit}
	}
	return nil
}

// resolveAssignmentProvenance copies each assignment's right-hand
// provenance into its left-hand signal, bit by bit, iterating to a fixed
// point so chained assignments (left <= mid; mid <= right;) resolve
// regardless of declaration order.
func (e *Elaborator) resolveAssignmentProvenance(chip *Chip) error {
	pending := make([]Assignment, len(chip.assignments))
	copy(pending, chip.assignments)

	for rounds := 0; len(pending) > 0 && rounds <= len(chip.assignments)+1; rounds++ {
		var stillPending []Assignment
		progressed := false
		for _, a := range pending {
			rightWidth, ok := chip.Signals.Width(a.Right.Name.Value)
			if !ok {
				return newError(KindWidth, a.Right.Name.Path, a.Right.Name.Line, 0, a.Right.Name.Value,
					fmt.Sprintf("unknown signal %q", a.Right.Name.Value))
			}
			rStart, rEnd, err := resolveRange(a.Right, rightWidth)
			if err != nil {
				return err
			}
			ready := true
			for k := 0; k <= rEnd-rStart; k++ {
				if _, err := chip.resolveSource(a.Right.Name.Value, rStart+k); err != nil {
					ready = false
					break
				}
			}
			if !ready {
				stillPending = append(stillPending, a)
				continue
			}

			leftWidth, ok := chip.Signals.Width(a.Left.Name.Value)
			if !ok {
				return newError(KindWidth, a.Left.Name.Path, a.Left.Name.Line, 0, a.Left.Name.Value,
					fmt.Sprintf("unknown signal %q", a.Left.Name.Value))
			}
			lStart, lEnd, err := resolveRange(a.Left, leftWidth)
			if err != nil {
				return err
			}
			if (lEnd - lStart) != (rEnd - rStart) {
				return newError(KindWidth, a.Left.Name.Path, a.Left.Name.Line, 0, a.Left.Name.Value,
					"assignment width mismatch")
			}
			sources := chip.sources[a.Left.Name.Value]
			for k := 0; k <= lEnd-lStart; k++ {
				src, err := chip.resolveSource(a.Right.Name.Value, rStart+k)
				if err != nil {
					return err
				}
				lbit := lStart + k
				if sources[lbit] != nil {
					return newError(KindElaboration, a.Left.Name.Path, a.Left.Name.Line, 0, a.Left.Name.Value,
						fmt.Sprintf("duplicate driver for bit %d of signal %q", lbit, a.Left.Name.Value))
				}
				sources[lbit] = src
			}
			progressed = true
		}
		pending = stillPending
		if !progressed && len(pending) > 0 {
			break
		}
	}
	if len(pending) > 0 {
		a := pending[0]
		return newError(KindWidth, a.Right.Name.Path, a.Right.Name.Line, 0, a.Right.Name.Value,
			fmt.Sprintf("signal %q has no source or destination", a.Right.Name.Value))
	}
	return nil
}

// wireInPorts implements §4.6 step 7 (coverage check) and the second pass
// of step 8 (edges into every In port of the component at node).
func (e *Elaborator) wireInPorts(chip *Chip, node NodeID, comp *Component, ports []Port) error {
	covered := make(map[string][]bool)
	for _, p := range ports {
		if p.Direction == In {
			w, err := EvalNumeric(p.Width, nil)
			if err != nil {
				return wrapError(KindElaboration, err, fmt.Sprintf("port %q has non-numeric width", p.Name.Value))
			}
			covered[p.Name.Value] = make([]bool, w)
		}
	}

	for _, pm := range comp.PortMappings {
		port, found := findPort(ports, pm.PortBus.Name.Value)
		if !found || port.Direction != In {
			continue
		}
		portWidth, err := EvalNumeric(port.Width, nil)
		if err != nil {
			return wrapError(KindElaboration, err, "resolving port width")
		}
		pStart, pEnd, err := resolveRange(pm.PortBus, portWidth)
		if err != nil {
			return err
		}

		isLiteral := literalWireNames[pm.WireBus.Name.Value]
		var wStart int
		if !isLiteral {
			wireWidth, ok := chip.Signals.Width(pm.WireBus.Name.Value)
			if !ok {
				return newError(KindElaboration, pm.Origin.Path, pm.Origin.Line, 0, pm.WireBus.Name.Value,
					fmt.Sprintf("unknown signal %q", pm.WireBus.Name.Value))
			}
			var wEnd int
			wStart, wEnd, err = resolveRange(pm.WireBus, wireWidth)
			if err != nil {
				return err
			}
			if (pEnd - pStart) != (wEnd - wStart) {
				return newError(KindElaboration, pm.Origin.Path, pm.Origin.Line, 0, pm.Origin.Value,
					fmt.Sprintf("port mapping width mismatch for %q", pm.Origin.Value))
			}
		} else if pm.WireBus.HasRange {
			wStart, _, err = resolveRange(pm.WireBus, portWidth)
			if err != nil {
				return err
			}
		}

		for k := 0; k <= pEnd-pStart; k++ {
			portBit := pStart + k
			covered[port.Name.Value][portBit] = true

			var src *bitSource
			if isLiteral {
				litNode, err := chip.getOrCreateLiteral(pm.WireBus.Name.Value)
				if err != nil {
					return err
				}
				src = &bitSource{Node: litNode, Bus: "out", Bit: clampLiteralBit(wStart + k)}
			} else {
				src, err = chip.resolveSource(pm.WireBus.Name.Value, wStart+k)
				if err != nil {
					return err
				}
			}
			chip.Graph.AddEdge(Edge{
				Source: src.Node, SourceBus: src.Bus, SourceStart: src.Bit, SourceEnd: src.Bit,
				Target: node, TargetBus: port.Name.Value, TargetStart: portBit, TargetEnd: portBit,
			})
		}
	}

	for portName, bits := range covered {
		for bit, ok := range bits {
			if !ok {
				return newError(KindElaboration, comp.ChipName.Path, comp.SourceLine, 0, comp.ChipName.Value,
					fmt.Sprintf("input port %q bit %d of %q is never assigned", portName, bit, comp.ChipName.Value))
			}
		}
	}
	return nil
}

func resolveRange(br BusRef, defaultWidth int) (start, end int, err error) {
	if !br.HasRange {
		return 0, defaultWidth - 1, nil
	}
	s, err := EvalNumeric(br.Start, nil)
	if err != nil {
		return 0, 0, wrapError(KindElaboration, err, "bus range start")
	}
	e, err := EvalNumeric(br.End, nil)
	if err != nil {
		return 0, 0, wrapError(KindElaboration, err, "bus range end")
	}
	return s, e, nil
}

func clampLiteralBit(b int) int {
	if b > 15 {
		return 15
	}
	if b < 0 {
		return 0
	}
	return b
}

// resolveSource looks up the bitSource driving a single bit of a named
// signal within chip, erroring if it is undriven.
func (c *Chip) resolveSource(name string, bit int) (*bitSource, error) {
	sources, ok := c.sources[name]
	if !ok || bit < 0 || bit >= len(sources) {
		return nil, newError(KindElaboration, "", 0, 0, name, fmt.Sprintf("unknown signal %q bit %d", name, bit))
	}
	src := sources[bit]
	if src == nil {
		return nil, newError(KindElaboration, "", 0, 0, name, fmt.Sprintf("signal %q bit %d has no driver", name, bit))
	}
	return src, nil
}

func (c *Chip) getOrCreateLiteral(name string) (NodeID, error) {
	if id, ok := c.literalNodes[name]; ok {
		return id, nil
	}
	lit := makeLiteralChip(name == "true")
	id := c.Graph.AddNode(lit)
	c.literalNodes[name] = id
	return id, nil
}

// makeNandChip builds the NAND primitive: a, b -> out, all width 1.
func makeNandChip() *Chip {
	ports, _ := primitivePorts("nand")
	sig := NewSignalMap()
	sig.Create("a", 1)
	sig.Create("b", 1)
	sig.Create("out", 1)
	return &Chip{Name: "NAND", Primitive: primNand, Ports: ports, Signals: sig, Elaborated: true}
}

// makeDffChip builds the DFF primitive: in -> out, width 1, initialized to
// Zero rather than Unknown.
func makeDffChip() *Chip {
	ports, _ := primitivePorts("dff")
	sig := NewSignalMap()
	sig.Create("in", 1)
	sig.Create("out", 1)
	sig.Set("in", Bus{Zero})
	sig.Set("out", Bus{Zero})
	return &Chip{Name: "DFF", Primitive: primDFF, Ports: ports, Signals: sig, Elaborated: true}
}

// makePortChip builds a synthetic chip-boundary port chip: a single named
// "value" bus of the given width, used both for chip inputs (fed by the
// caller, read by the graph) and chip outputs (written by the graph, read
// by the caller). kind must be primInputPort or primOutputPort.
func makePortChip(name string, width int, kind chipPrimitive) *Chip {
	sig := NewSignalMap()
	sig.Create("value", width)
	dir := In
	if kind == primOutputPort {
		dir = Out
	}
	return &Chip{
		Name:       name,
		Primitive:  kind,
		Ports:      []Port{{Name: NewIdentifier("value", "", 0), Direction: dir, Width: Num(width)}},
		Signals:    sig,
		Elaborated: true,
	}
}

// makeLiteralChip builds a lazily-created 16-bit-wide constant source node
// for the "true" (all-One) or "false" (all-Zero) literal signal.
func makeLiteralChip(isTrue bool) *Chip {
	sig := NewSignalMap()
	sig.Create("out", 16)
	bits := NewBus(16)
	v := Zero
	if isTrue {
		v = One
	}
	for i := range bits {
		bits[i] = v
	}
	sig.Set("out", bits)
	name := "false"
	if isTrue {
		name = "true"
	}
	return &Chip{
		Name:       name,
		Primitive:  primLiteral,
		Ports:      []Port{{Name: NewIdentifier("out", "", 0), Direction: Out, Width: Num(16)}},
		Signals:    sig,
		Elaborated: true,
	}
}

// recursivelyElaborate deeply elaborates every sub-chip node reachable
// from chip's graph (used when fullRecursion is requested, e.g. for
// structural export). The simulator's own lazy elaboration
// never needs this: a sub-chip only elaborates itself on first compute().
func (e *Elaborator) recursivelyElaborate(chip *Chip) error {
	for _, node := range chip.Graph.Nodes {
		if node.Primitive != primNone || node.Elaborated {
			continue
		}
		if err := e.fullyElaborate(node); err != nil {
			return err
		}
		if err := e.recursivelyElaborate(node); err != nil {
			return err
		}
	}
	return nil
}
