package whidl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whidl-go/whidl"
)

// fixedPorts builds a SubchipPorts stub that always returns the same port
// list regardless of the component or its generics, enough to exercise
// InferWidths without a full elaborator.
func fixedPorts(ports []whidl.Port) whidl.SubchipPorts {
	return func(comp *whidl.Component, outerEnv whidl.Env) ([]whidl.Port, error) {
		return ports, nil
	}
}

func TestInferWidthsPropagatesPortWidthThroughWireMapping(t *testing.T) {
	ast := &whidl.ChipAST{
		Name: whidl.NewIdentifier("Buf16", "", 0),
		Ports: []whidl.Port{
			{Name: whidl.NewIdentifier("in", "", 0), Direction: whidl.In, Width: whidl.Num(16)},
			{Name: whidl.NewIdentifier("out", "", 0), Direction: whidl.Out, Width: whidl.Num(16)},
		},
	}
	lookup := fixedPorts([]whidl.Port{
		{Name: whidl.NewIdentifier("in", "", 0), Direction: whidl.In, Width: whidl.Num(16)},
		{Name: whidl.NewIdentifier("out", "", 0), Direction: whidl.Out, Width: whidl.Num(16)},
	})
	components := []whidl.Component{
		{
			ChipName: whidl.NewIdentifier("Not16", "", 0),
			PortMappings: []whidl.PortMapping{
				{PortBus: whidl.WholeBus(whidl.NewIdentifier("in", "", 0)), WireBus: whidl.WholeBus(whidl.NewIdentifier("in", "", 0))},
				{PortBus: whidl.WholeBus(whidl.NewIdentifier("out", "", 0)), WireBus: whidl.WholeBus(whidl.NewIdentifier("w", "", 0))},
			},
		},
	}
	widths, err := whidl.InferWidths(ast, components, nil, nil, lookup)
	require.NoError(t, err)
	w, ok := widths["w"]
	require.True(t, ok)
	n, err := whidl.EvalNumeric(w, nil)
	require.NoError(t, err)
	require.Equal(t, 16, n)
}

func TestInferWidthsRejectsUngroundedAssignmentSignal(t *testing.T) {
	ast := &whidl.ChipAST{Name: whidl.NewIdentifier("Bad", "", 0)}
	assignments := []whidl.Assignment{
		{
			Left:  whidl.WholeBus(whidl.NewIdentifier("nowhere", "", 0)),
			Right: whidl.WholeBus(whidl.NewIdentifier("alsonowhere", "", 0)),
		},
	}
	_, err := whidl.InferWidths(ast, nil, assignments, nil, fixedPorts(nil))
	require.Error(t, err)
}

func TestInferWidthsResolvesGenericPortWidthUnderEnv(t *testing.T) {
	ast := &whidl.ChipAST{
		Name: whidl.NewIdentifier("Wrap", "", 0),
		Generics: []whidl.Identifier{
			whidl.NewIdentifier("n", "", 0),
		},
		Ports: []whidl.Port{
			{Name: whidl.NewIdentifier("in", "", 0), Direction: whidl.In, Width: whidl.Var(whidl.NewIdentifier("n", "", 0))},
			{Name: whidl.NewIdentifier("out", "", 0), Direction: whidl.Out, Width: whidl.Var(whidl.NewIdentifier("n", "", 0))},
		},
	}
	env := whidl.Env{"n": whidl.Num(4)}
	widths, err := whidl.InferWidths(ast, nil, nil, env, fixedPorts(nil))
	require.NoError(t, err)
	n, err := whidl.EvalNumeric(widths["in"], nil)
	require.NoError(t, err)
	require.Equal(t, 4, n)
}
