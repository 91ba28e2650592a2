package whidl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whidl-go/whidl"
)

// memProvider resolves chip names against an in-memory map of HDL source
// text, for tests that need a handful of small interdependent chips
// without touching the filesystem or the bundled builtins library.
type memProvider struct {
	texts map[string]string
}

func (m *memProvider) GetHDL(name string) (string, error) {
	if t, ok := m.texts[name]; ok {
		return t, nil
	}
	return whidl.NewFSProvider("/nonexistent").GetHDL(name)
}

func (m *memProvider) GetPath(name string) string { return "mem://" + name }

func TestElaborateBuildsGraphForSimpleChip(t *testing.T) {
	p := &memProvider{texts: map[string]string{
		"And.hdl": `CHIP And {
		    IN a, b;
		    OUT out;

		    PARTS:
		    Nand(a=a, b=b, out=w);
		    Nand(a=w, b=w, out=out);
		}`,
	}}
	ast, err := whidl.Parse(p.texts["And.hdl"], "And.hdl")
	require.NoError(t, err)

	chip, err := whidl.Elaborate(ast, p, nil, false)
	require.NoError(t, err)
	// 2 input port nodes (a, b) + 1 output port node (out) + 2 Nand
	// component instances.
	require.Len(t, chip.Graph.Nodes, 5)
}

func TestElaborateRejectsDuplicateDriver(t *testing.T) {
	p := &memProvider{texts: map[string]string{
		"Bad.hdl": `CHIP Bad {
		    IN a, b;
		    OUT out;

		    PARTS:
		    Nand(a=a, b=b, out=out);
		    Nand(a=a, b=b, out=out);
		}`,
	}}
	ast, err := whidl.Parse(p.texts["Bad.hdl"], "Bad.hdl")
	require.NoError(t, err)

	_, err = whidl.Elaborate(ast, p, nil, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate driver")
}

func TestElaborateRejectsMissingDriver(t *testing.T) {
	p := &memProvider{texts: map[string]string{
		"Bad.hdl": `CHIP Bad {
		    IN a, b;
		    OUT out;

		    PARTS:
		    Nand(a=a, b=b, out=w);
		}`,
	}}
	ast, err := whidl.Parse(p.texts["Bad.hdl"], "Bad.hdl")
	require.NoError(t, err)

	_, err = whidl.Elaborate(ast, p, nil, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no driver")
}

func TestElaborateRejectsGenericCountMismatch(t *testing.T) {
	ast := &whidl.ChipAST{
		Name:     whidl.NewIdentifier("Gen", "Gen.hdl", 1),
		Generics: []whidl.Identifier{whidl.NewIdentifier("n", "Gen.hdl", 1)},
		Ports: []whidl.Port{
			{Name: whidl.NewIdentifier("in", "", 0), Direction: whidl.In, Width: whidl.Var(whidl.NewIdentifier("n", "", 0))},
			{Name: whidl.NewIdentifier("out", "", 0), Direction: whidl.Out, Width: whidl.Var(whidl.NewIdentifier("n", "", 0))},
		},
	}
	p := &memProvider{texts: map[string]string{}}
	_, err := whidl.Elaborate(ast, p, nil, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "generic argument")
}

func TestElaborateRejectsZeroWidthPort(t *testing.T) {
	ast := &whidl.ChipAST{
		Name: whidl.NewIdentifier("Zero", "Zero.hdl", 1),
		Ports: []whidl.Port{
			{Name: whidl.NewIdentifier("in", "", 0), Direction: whidl.In, Width: whidl.Num(0)},
			{Name: whidl.NewIdentifier("out", "", 0), Direction: whidl.Out, Width: whidl.Num(1)},
		},
	}
	p := &memProvider{texts: map[string]string{}}
	_, err := whidl.Elaborate(ast, p, nil, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "zero width")
}

func TestElaborateCoalescesContiguousBitEdges(t *testing.T) {
	p := &memProvider{texts: map[string]string{
		"Buf2.hdl": `CHIP Buf2 {
		    IN in[2];
		    OUT out[2];

		    PARTS:
		    out <= in;
		}`,
	}}
	ast, err := whidl.Parse(p.texts["Buf2.hdl"], "Buf2.hdl")
	require.NoError(t, err)

	chip, err := whidl.Elaborate(ast, p, nil, false)
	require.NoError(t, err)
	// a direct assignment never allocates its own graph node: the whole
	// chip has only the synthetic input/output port chips.
	require.Len(t, chip.Graph.Nodes, 2)
	// the two per-bit edges from the input port chip coalesce into one
	// edge covering bits 0..1.
	edges := chip.Graph.OutEdges(chip.InputPortNodes["in"])
	require.Len(t, edges, 1)
	require.Equal(t, 0, edges[0].TargetStart)
	require.Equal(t, 1, edges[0].TargetEnd)
}
