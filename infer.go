package whidl

import (
	"sort"
	"strings"
)

// literal wire names that width inference ignores entirely on the wire
// side of a port mapping.
var literalWireNames = map[string]bool{"true": true, "false": true, "none": true}

// SubchipPorts resolves a component's target chip (or NAND/DFF primitive)
// to its port list, with port widths evaluated under the sub-chip's own
// generic environment (bound from the component's generic arguments,
// themselves evaluated under the enclosing chip's environment outerEnv).
type SubchipPorts func(comp *Component, outerEnv Env) ([]Port, error)

// InferWidths implements the §4.4 fixed-point width inference algorithm.
// It returns a mapping from signal name to width expression covering every
// declared port of ast, plus every wire name referenced by a component's
// port mapping or by an assignment.
func InferWidths(ast *ChipAST, components []Component, assignments []Assignment, env Env, lookupPorts SubchipPorts) (map[string]*Width, error) {
	widths := make(map[string]*Width)
	for _, port := range ast.Ports {
		widths[port.Name.Value] = Eval(port.Width, env)
	}

	noChangeStreak := 0
	prev := snapshotWidths(widths)
	for noChangeStreak < 2 {
		if err := inferPass(components, assignments, env, lookupPorts, widths); err != nil {
			return nil, err
		}
		cur := snapshotWidths(widths)
		if cur == prev {
			noChangeStreak++
		} else {
			noChangeStreak = 0
		}
		prev = cur
	}

	for _, a := range assignments {
		if _, ok := widths[a.Left.Name.Value]; !ok {
			return nil, newError(KindWidth, a.Left.Name.Path, a.Left.Name.Line, 0, a.Left.Name.Value,
				"signal \""+a.Left.Name.Value+"\" has no source or destination")
		}
		if _, ok := widths[a.Right.Name.Value]; !ok {
			return nil, newError(KindWidth, a.Right.Name.Path, a.Right.Name.Line, 0, a.Right.Name.Value,
				"signal \""+a.Right.Name.Value+"\" has no source or destination")
		}
	}

	return widths, nil
}

func snapshotWidths(widths map[string]*Width) string {
	names := make([]string, 0, len(widths))
	for n := range widths {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteString("=")
		b.WriteString(widths[n].String())
		b.WriteString(";")
	}
	return b.String()
}

func inferPass(components []Component, assignments []Assignment, env Env, lookupPorts SubchipPorts, widths map[string]*Width) error {
	for i := range components {
		comp := &components[i]
		ports, err := lookupPorts(comp, env)
		if err != nil {
			return err
		}
		for _, pm := range comp.PortMappings {
			if literalWireNames[pm.WireBus.Name.Value] {
				continue
			}
			var portWidth *Width
			found := false
			for _, p := range ports {
				if p.Name.Value == pm.PortBus.Name.Value {
					portWidth = p.Width
					found = true
					break
				}
			}
			if !found {
				return newError(KindElaboration, pm.PortBus.Name.Path, pm.PortBus.Name.Line, 0, pm.PortBus.Name.Value,
					"chip \""+comp.ChipName.Value+"\" has no port named \""+pm.PortBus.Name.Value+"\"")
			}

			if err := applyMappingWidth(pm, portWidth, env, widths); err != nil {
				return err
			}
		}
	}

	for _, a := range assignments {
		leftW, hasLeft := widths[a.Left.Name.Value]
		rightW, hasRight := widths[a.Right.Name.Value]
		switch {
		case hasLeft && !hasRight:
			widths[a.Right.Name.Value] = leftW
		case hasRight && !hasLeft:
			widths[a.Left.Name.Value] = rightW
		case hasLeft && hasRight:
			if eq, skip := widthsNumericEqual(leftW, rightW); !skip && !eq {
				return newError(KindWidth, a.Left.Name.Path, a.Left.Name.Line, 0, a.Left.Name.Value,
					"assignment width mismatch: "+leftW.String()+" vs "+rightW.String())
			}
		}
	}
	return nil
}

// applyMappingWidth implements the §4.4 precedence table for a single
// port mapping.
func applyMappingWidth(pm PortMapping, portWidth *Width, env Env, widths map[string]*Width) error {
	wireName := pm.WireBus.Name.Value
	prior, hasPrior := widths[wireName]

	var wireLen *Width
	if pm.WireBus.HasRange {
		wireLen = rangeLen(pm.WireBus, env)
	}
	var portLen *Width
	if pm.PortBus.HasRange {
		portLen = rangeLen(pm.PortBus, env)
	}

	checkLen := func(a, b *Width, what string) error {
		if eq, skip := widthsNumericEqual(a, b); !skip && !eq {
			return newError(KindWidth, pm.Origin.Path, pm.Origin.Line, 0, pm.Origin.Value,
				"width mismatch on "+what+": "+a.String()+" != "+b.String())
		}
		return nil
	}

	switch {
	case wireLen == nil && portLen == nil:
		if hasPrior {
			if eq, skip := widthsNumericEqual(prior, portWidth); !skip && !eq {
				return newError(KindWidth, pm.Origin.Path, pm.Origin.Line, 0, pm.Origin.Value,
					"signal \""+wireName+"\" width conflict: "+prior.String()+" vs "+portWidth.String())
			}
			return nil
		}
		widths[wireName] = portWidth
		return nil

	case wireLen == nil && portLen != nil:
		if hasPrior {
			return checkLen(prior, portLen, "signal \""+wireName+"\"")
		}
		widths[wireName] = portLen
		return nil

	case wireLen != nil && portLen == nil:
		if err := checkLen(wireLen, portWidth, "port mapping for \""+wireName+"\""); err != nil {
			return err
		}
		end := Eval(pm.WireBus.End, env)
		newWidth := Add(end, Num(1))
		if hasPrior {
			newWidth = Max(newWidth, prior)
		}
		widths[wireName] = newWidth
		return nil

	default: // wireLen != nil && portLen != nil
		if err := checkLen(wireLen, portLen, "port mapping for \""+wireName+"\""); err != nil {
			return err
		}
		end := Eval(pm.WireBus.End, env)
		newWidth := Add(end, Num(1))
		if hasPrior {
			newWidth = Max(newWidth, prior)
		}
		widths[wireName] = newWidth
		return nil
	}
}

// rangeLen evaluates a BusRef's inclusive range length under env.
func rangeLen(br BusRef, env Env) *Width {
	start := Eval(br.Start, env)
	end := Eval(br.End, env)
	return Add(Sub(end, start), Num(1))
}

// widthsNumericEqual compares two widths for numeric equality, reporting
// skip=true when either side is not yet fully numeric (symbolic generics
// are not compared, per §4.4).
func widthsNumericEqual(a, b *Width) (eq bool, skip bool) {
	if a.Kind != WidthNum || b.Kind != WidthNum {
		return false, true
	}
	return a.Num == b.Num, false
}
